package main

import (
	"github.com/jessevdk/go-flags"
)

type config struct {
	ShowVersion bool `long:"version" short:"v" description:"Display version information and exit"`
	Debug       bool `long:"debug" description:"Start in debug mode"`

	Launcher        string `long:"launcher" short:"l" description:"Launcher used to display the menu" choice:"dmenu" choice:"rofi" choice:"fuzzel" choice:"walker" choice:"custom" default:"dmenu"`
	LauncherCommand string `long:"launcher-command" description:"Command template for the custom launcher"`

	Icon   string `long:"icon" short:"i" description:"Icon style for menu entries" choice:"font" choice:"xdg" default:"font"`
	Spaces int    `long:"spaces" description:"Spaces between a font icon and its label" default:"2"`

	NoNotifications bool `long:"no-notifications" description:"Do not send desktop notifications"`
}

func loadConfig() (*config, error) {
	cfg := &config{}

	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	return cfg, nil
}
