package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"iwdmenu/agent"
	"iwdmenu/catalog"
	"iwdmenu/icons"
	"iwdmenu/iwd"
	"iwdmenu/launcher"
	"iwdmenu/notify"
	"iwdmenu/session"
)

var (
	// Commit stores the current commit hash of this build. This should be set using -ldflags during compilation.
	Commit string
	// Version stores the version string of this build. This should be set using -ldflags during compilation.
	Version string
)

// iwdmenuMain is the true entry point for iwdmenu. This is required since
// defers created in the top-level scope of a main method aren't executed if
// os.Exit() is called.
func iwdmenuMain() error {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)

	// Load CLI configuration and defaults
	cfg, err := loadConfig()
	if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		return nil
	} else if err != nil {
		return errors.Errorf("Failed parsing arguments: %v", err)
	}

	// Set logger into debug mode if called with --debug
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		log.Info("Setting debug mode.")
	}

	log.Debug("Loaded config.")

	if cfg.ShowVersion {
		log.Infof("Version %s (commit %s)", Version, Commit)
		return nil
	}

	// Cancel the session on interrupt so the launcher process and the
	// daemon registration are torn down cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The daemon client carries every wireless operation and the single
	// ordered event stream.
	client := iwd.New(&iwd.Config{
		Logger: log.New().WithField("system", "iwd"),
	})

	if err := client.Start(); err != nil {
		return errors.Errorf("Could not connect to wireless daemon: %v", err)
	}

	log.Info("Connected to wireless daemon.")

	defer func() {
		err := client.Stop()
		if err != nil {
			log.Errorf("Could not properly disconnect from wireless daemon: %v", err)
		} else {
			log.Info("Disconnected from wireless daemon.")
		}
	}()

	// The authentication agent receives the daemon's credential callbacks
	// for fresh connect attempts.
	authAgent := agent.New(&agent.Config{
		Logger: log.New().WithField("system", "agent"),
	})

	if err := authAgent.Register(client); err != nil {
		return errors.Errorf("Could not register authentication agent: %v", err)
	}

	log.Info("Registered authentication agent.")

	defer func() {
		err := authAgent.Unregister()
		if err != nil {
			log.Errorf("Could not properly unregister agent: %v", err)
		} else {
			log.Info("Unregistered authentication agent.")
		}
	}()

	// The catalog is the in-memory model the menus render from.
	networkCatalog := catalog.New(&catalog.Config{
		Backend: client,
		Logger:  log.New().WithField("system", "catalog"),
	})

	log.Debug("Created network catalog.")

	iconSet := icons.New(icons.Kind(cfg.Icon), cfg.Spaces)

	launcherKind, err := launcher.ParseKind(cfg.Launcher)
	if err != nil {
		return errors.Errorf("Could not parse launcher: %v", err)
	}

	// The launcher runs one subprocess per menu page and reports the
	// chosen line.
	selector, err := launcher.NewExec(&launcher.Config{
		Kind:     launcherKind,
		Command:  cfg.LauncherCommand,
		IconKind: icons.Kind(cfg.Icon),
		Logger:   log.New().WithField("system", "launcher"),
	})
	if err != nil {
		return errors.Errorf("Could not create launcher: %v", err)
	}

	log.Infof("Created %v launcher.", cfg.Launcher)

	// Desktop notifications are best effort; without a session bus the
	// session runs silently.
	var notifier notify.Notifier
	if cfg.NoNotifications {
		notifier = notify.NewNoop()
	} else {
		dbusNotifier, err := notify.New(&notify.Config{
			Logger: log.New().WithField("system", "notify"),
		})
		if err != nil {
			log.Warnf("Could not reach notification service: %v", err)
			notifier = notify.NewNoop()
		} else {
			notifier = dbusNotifier
		}
	}

	controller := session.New(&session.Config{
		Catalog:  networkCatalog,
		Events:   client.Events(),
		Agent:    authAgent,
		Selector: selector,
		Notifier: notifier,
		Icons:    iconSet,
		Logger:   log.New().WithField("system", "session"),
	})

	log.Debug("Created session controller.")

	// Blocks until the user dismisses the menu or the session fails.
	if err := controller.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("Session interrupted.")
			return nil
		}
		return errors.Errorf("Failed running session: %v", err)
	}

	return nil
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := iwdmenuMain(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		} else {
			log.WithError(err).Println("Failed running iwdmenu.")
		}
		os.Exit(1)
	}
}
