package session

import (
	"context"
	"time"

	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"

	"iwdmenu/catalog"
	"iwdmenu/launcher"
	"iwdmenu/menu"
)

// poweredOff shows the single power-on entry until the adapter comes up.
// It returns false when the user dismisses instead.
func (c *Controller) poweredOff(ctx context.Context) (bool, error) {
	for {
		page := menu.PowerOn(c.icons)

		output, err := c.selector.Select(ctx, page)
		if errors.Is(err, launcher.ErrDismissed) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		if _, result := page.Match(output); result != menu.Matched {
			return false, nil
		}

		if err := c.catalog.SetPowered(c.active, true); err != nil {
			c.log.Warnf("Could not power on adapter: %v", err)
			continue
		}

		if err := c.awaitPowered(ctx, true); err != nil {
			return false, err
		}

		// The station interface appears a moment after Powered flips;
		// a full refresh picks it up along with the network list.
		if err := c.catalog.Refresh(); err != nil {
			return false, err
		}

		adapter, ok := c.catalog.Adapter(c.active)
		if !ok {
			return false, errors.New("active adapter disappeared")
		}
		if adapter.Powered {
			c.notifier.Notify("Wi-Fi", "Adapter enabled", c.icons.Xdg("power_on_device"))
			return true, nil
		}
	}
}

// awaitPowered applies events until the active adapter reports the wanted
// power state or the wait times out. Timing out is not an error; the
// caller re-reads the model.
func (c *Controller) awaitPowered(ctx context.Context, powered bool) error {
	deadline := time.NewTimer(powerWait)
	defer deadline.Stop()

	for {
		adapter, ok := c.catalog.Adapter(c.active)
		if !ok {
			return errors.New("active adapter disappeared")
		}
		if adapter.Powered == powered {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case event, ok := <-c.events:
			if !ok {
				return errTransportLost
			}
			c.catalog.ApplyEvent(event)
		}
	}
}

// knownNetworks shows the saved-profile list and, for a chosen profile,
// its options. Dismissing a submenu returns to the network list.
func (c *Controller) knownNetworks(ctx context.Context) error {
	for {
		if err := c.drainEvents(); err != nil {
			return err
		}

		known := c.catalog.KnownNetworks()
		page := menu.KnownNetworks(known, c.icons)

		output, err := c.selector.Select(ctx, page)
		if errors.Is(err, launcher.ErrDismissed) {
			return nil
		}
		if err != nil {
			return err
		}

		action, result := page.Match(output)
		if result != menu.Matched {
			return nil
		}

		options, ok := action.(menu.KnownNetworkOptionsAction)
		if !ok {
			return nil
		}

		done, err := c.knownNetworkOptions(ctx, dbus.ObjectPath(options.Path))
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// knownNetworkOptions runs the per-profile submenu. It reports done when
// the flow should fall back to the network list rather than the profile
// list.
func (c *Controller) knownNetworkOptions(ctx context.Context, path dbus.ObjectPath) (bool, error) {
	var known *catalog.KnownNetwork
	for _, candidate := range c.catalog.KnownNetworks() {
		if candidate.Path == path {
			known = candidate
			break
		}
	}
	if known == nil {
		return false, nil
	}

	page := menu.KnownNetworkOptions(known, c.icons)

	output, err := c.selector.Select(ctx, page)
	if errors.Is(err, launcher.ErrDismissed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	action, result := page.Match(output)
	if result != menu.Matched {
		return false, nil
	}

	switch action := action.(type) {
	case menu.ForgetAction:
		if err := c.catalog.Forget(path); err != nil {
			c.log.Warnf("Could not forget %v: %v", known.Name, err)
			return false, nil
		}
		c.log.Infof("Forgot network %v", known.Name)
		c.notifier.Notify("Wi-Fi", "Forgot network "+known.Name, c.icons.Xdg("forget_network"))
		return true, nil

	case menu.ToggleAutoConnectAction:
		if err := c.catalog.SetAutoConnect(path, action.Enable); err != nil {
			c.log.Warnf("Could not change autoconnect for %v: %v", known.Name, err)
		}
		return false, nil
	}

	return false, nil
}

// settings runs the adapter settings submenu.
func (c *Controller) settings(ctx context.Context) error {
	page := menu.Settings(c.icons)

	output, err := c.selector.Select(ctx, page)
	if errors.Is(err, launcher.ErrDismissed) {
		return nil
	}
	if err != nil {
		return err
	}

	action, result := page.Match(output)
	if result != menu.Matched {
		return nil
	}

	if _, ok := action.(menu.PowerOffAction); ok {
		if err := c.catalog.SetPowered(c.active, false); err != nil {
			c.log.Warnf("Could not power off adapter: %v", err)
			return nil
		}
		if err := c.awaitPowered(ctx, false); err != nil {
			return err
		}
		// The network loop notices the powered-off adapter next pass.
	}

	return nil
}
