package menu

import (
	"fmt"

	"iwdmenu/catalog"
	"iwdmenu/icons"
)

// Networks builds the main page for one adapter: its visible networks in
// catalog order, a scan entry, the known-networks entry and settings. While
// a scan is running the scan entry is replaced by a non-selectable
// progress line.
func Networks(adapter *catalog.Adapter, networks []*catalog.Network, set *icons.Set) *Page {
	page := &Page{Prompt: "Wi-Fi"}

	for _, network := range networks {
		key := icons.NetworkKey(network.Key.Security.NeedsSecret(), network.Connected, network.Signal)
		page.Lines = append(page.Lines, Line{
			Text:   set.Decorate(key, network.Key.SSID),
			Action: SelectNetworkAction{Key: network.Key},
		})
	}

	if adapter.Scan == catalog.Scanning {
		page.Lines = append(page.Lines, Line{
			Text: set.Decorate("scan", "Scanning..."),
		})
	} else {
		page.Lines = append(page.Lines, Line{
			Text:   set.Decorate("scan", "Scan"),
			Action: ScanAction{},
		})
	}

	page.Lines = append(page.Lines,
		Line{Text: set.Decorate("known_networks", "Known Networks"), Action: KnownNetworksAction{}},
		Line{Text: set.Decorate("settings", "Settings"), Action: SettingsAction{}},
	)

	return page
}

// Adapters builds the adapter choice page. The session skips it when only
// one adapter exists.
func Adapters(adapters []*catalog.Adapter, set *icons.Set) *Page {
	page := &Page{Prompt: "Device"}

	for _, adapter := range adapters {
		key := "disconnected"
		if adapter.State == catalog.StateConnected {
			key = "connected"
		}
		page.Lines = append(page.Lines, Line{
			Text:   set.Decorate(key, fmt.Sprintf("%s (%s)", adapter.Name, adapter.Address)),
			Action: SelectAdapterAction{Path: string(adapter.Path)},
		})
	}

	return page
}

// Passphrase builds the single-field secret page for one network. The
// selector runs in password mode; whatever it prints back is the secret.
func Passphrase(ssid string) *Page {
	return &Page{
		Prompt:   fmt.Sprintf("Passphrase for %s", ssid),
		Password: true,
	}
}

// PowerOn is shown when the active adapter is powered off.
func PowerOn(set *icons.Set) *Page {
	return &Page{
		Prompt: "Wi-Fi",
		Lines: []Line{
			{Text: set.Decorate("power_on_device", "Power On Device"), Action: PowerOnAction{}},
		},
	}
}

// KnownNetworks lists every stored-credentials entry.
func KnownNetworks(known []*catalog.KnownNetwork, set *icons.Set) *Page {
	page := &Page{Prompt: "Known Networks"}

	for _, entry := range known {
		key := icons.NetworkKey(entry.Security.NeedsSecret(), false, 0)
		page.Lines = append(page.Lines, Line{
			Text:   set.Decorate(key, entry.Name),
			Action: KnownNetworkOptionsAction{Path: string(entry.Path)},
		})
	}

	return page
}

// KnownNetworkOptions offers forget and the autoconnect toggle for one
// known entry.
func KnownNetworkOptions(known *catalog.KnownNetwork, set *icons.Set) *Page {
	page := &Page{Prompt: known.Name}

	if known.AutoConnect {
		page.Lines = append(page.Lines, Line{
			Text:   set.Decorate("disable_autoconnect", "Disable Autoconnect"),
			Action: ToggleAutoConnectAction{Path: string(known.Path), Enable: false},
		})
	} else {
		page.Lines = append(page.Lines, Line{
			Text:   set.Decorate("enable_autoconnect", "Enable Autoconnect"),
			Action: ToggleAutoConnectAction{Path: string(known.Path), Enable: true},
		})
	}

	page.Lines = append(page.Lines, Line{
		Text:   set.Decorate("forget_network", "Forget Network"),
		Action: ForgetAction{Path: string(known.Path)},
	})

	return page
}

// Settings offers the adapter controls.
func Settings(set *icons.Set) *Page {
	return &Page{
		Prompt: "Settings",
		Lines: []Line{
			{Text: set.Decorate("disable_adapter", "Disable Adapter"), Action: PowerOffAction{}},
		},
	}
}
