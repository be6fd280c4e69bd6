// Package session runs the interactive connection dialogue: it renders
// menu pages from the catalog, drives the selector process, issues catalog
// operations for the chosen entries and folds daemon events back into the
// model between steps. The controller owns the catalog's single mutation
// goroutine; daemon events and agent callbacks reach it only through
// channels it selects on.
package session

import (
	"context"
	"time"

	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"

	"iwdmenu/agent"
	"iwdmenu/catalog"
	"iwdmenu/icons"
	"iwdmenu/iwd"
	"iwdmenu/launcher"
	"iwdmenu/menu"
	"iwdmenu/notify"
)

// Auth is the agent surface the controller needs: delivery of pending
// authentication requests.
type Auth interface {
	Requests() <-chan *agent.Request
}

type Config struct {
	Catalog  *catalog.Catalog
	Events   <-chan iwd.Event
	Agent    Auth
	Selector launcher.Selector
	Notifier notify.Notifier
	Icons    *icons.Set
	Logger   Logger
}

// Controller is the session state machine.
type Controller struct {
	log      Logger
	catalog  *catalog.Catalog
	events   <-chan iwd.Event
	agent    Auth
	selector launcher.Selector
	notifier notify.Notifier
	icons    *icons.Set

	active dbus.ObjectPath
}

// errTransportLost is raised when the event stream closes underneath the
// session.
var errTransportLost = errors.New("lost connection to the wireless daemon")

const (
	// scanWait bounds how long a started scan may hold up re-rendering.
	scanWait = 30 * time.Second
	// authWait bounds the gap between issuing a connect and the daemon's
	// credential callback.
	authWait = 15 * time.Second
	// connectWait bounds a connect attempt with no daemon verdict.
	connectWait = 90 * time.Second
	// powerWait bounds waiting for a power toggle to take effect.
	powerWait = 10 * time.Second
)

func New(config *Config) *Controller {
	controller := &Controller{
		catalog:  config.Catalog,
		events:   config.Events,
		agent:    config.Agent,
		selector: config.Selector,
		notifier: config.Notifier,
		icons:    config.Icons,
	}

	if controller.notifier == nil {
		controller.notifier = notify.NewNoop()
	}

	if controller.icons == nil {
		controller.icons = icons.New(icons.Font, 2)
	}

	if config.Logger != nil {
		controller.log = config.Logger
	} else {
		controller.log = noopLogger{}
	}

	return controller
}

// Run drives the dialogue until the user dismisses it or the daemon
// session is lost. A nil return means a clean exit.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.catalog.Refresh(); err != nil {
		return err
	}

	adapter, err := c.chooseAdapter(ctx)
	if err != nil {
		return err
	}
	if adapter == nil {
		return nil
	}

	c.active = adapter.Path
	c.log.Infof("Using adapter %v (%v)", adapter.Name, adapter.Path)

	return c.networkLoop(ctx)
}

// chooseAdapter picks the session's adapter, skipping the menu when there
// is exactly one. A nil adapter with nil error means the user dismissed
// the menu.
func (c *Controller) chooseAdapter(ctx context.Context) (*catalog.Adapter, error) {
	adapters := c.catalog.Adapters()

	switch len(adapters) {
	case 0:
		return nil, errors.New("no wireless adapter available")
	case 1:
		return adapters[0], nil
	}

	page := menu.Adapters(adapters, c.icons)

	output, err := c.selector.Select(ctx, page)
	if errors.Is(err, launcher.ErrDismissed) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	action, result := page.Match(output)
	if result != menu.Matched {
		return nil, nil
	}

	selected := action.(menu.SelectAdapterAction)
	adapter, ok := c.catalog.Adapter(dbus.ObjectPath(selected.Path))
	if !ok {
		return nil, errors.Errorf("adapter %v disappeared", selected.Path)
	}

	return adapter, nil
}

// networkLoop is the SelectNetwork state. Every pass re-renders from the
// current model; a model change while the menu was open invalidates the
// selection and forces a re-render instead of acting on stale entries.
func (c *Controller) networkLoop(ctx context.Context) error {
	for {
		if err := c.drainEvents(); err != nil {
			return err
		}

		adapter, ok := c.catalog.Adapter(c.active)
		if !ok {
			return errors.New("active adapter disappeared")
		}

		if !adapter.Powered {
			resumed, err := c.poweredOff(ctx)
			if err != nil {
				return err
			}
			if !resumed {
				return nil
			}
			continue
		}

		generation := c.catalog.Generation()
		page := menu.Networks(adapter, c.catalog.Networks(c.active), c.icons)

		output, err := c.selector.Select(ctx, page)
		if errors.Is(err, launcher.ErrDismissed) {
			return nil
		}
		if err != nil {
			return err
		}

		action, result := page.Match(output)
		switch result {
		case menu.NoMatch:
			// Unparseable selector output counts as dismissal.
			c.log.Debugf("Selector output %q matches no entry", output)
			return nil
		case menu.Unselectable:
			continue
		}

		if err := c.drainEvents(); err != nil {
			return err
		}
		if c.catalog.Generation() != generation {
			c.log.Debugf("Model changed while the menu was open, re-rendering")
			continue
		}

		if err := c.dispatch(ctx, action); err != nil {
			return err
		}
	}
}

func (c *Controller) dispatch(ctx context.Context, action menu.Action) error {
	switch action := action.(type) {
	case menu.ScanAction:
		return c.scan(ctx)

	case menu.SelectNetworkAction:
		network, ok := c.catalog.Network(action.Key)
		if !ok {
			// Stale selection; the next pass re-renders.
			c.log.Debugf("Selected network %v is gone", action.Key.SSID)
			return nil
		}
		if network.Connected {
			return c.disconnect(network.Key.SSID)
		}
		return c.connect(ctx, network)

	case menu.KnownNetworksAction:
		return c.knownNetworks(ctx)

	case menu.SettingsAction:
		return c.settings(ctx)
	}

	return nil
}

// scan starts a rescan and blocks, applying events, until the daemon
// reports the scan finished, then refreshes signal strengths.
func (c *Controller) scan(ctx context.Context) error {
	if err := c.catalog.StartScan(c.active); err != nil {
		c.log.Warnf("Could not start scan: %v", err)
		c.notifier.Notify("Wi-Fi", "Could not start scan", c.icons.Xdg("disconnected"))
		return nil
	}

	c.notifier.Notify("Wi-Fi", "Scanning for networks...", c.icons.Xdg("scan"))

	deadline := time.NewTimer(scanWait)
	defer deadline.Stop()

	sawScanning := false
	for {
		adapter, ok := c.catalog.Adapter(c.active)
		if !ok {
			return errors.New("active adapter disappeared")
		}
		if adapter.Scan == catalog.Scanning {
			sawScanning = true
		} else if sawScanning {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			c.log.Warnf("Scan did not finish within %v", scanWait)
			return nil
		case event, ok := <-c.events:
			if !ok {
				return errTransportLost
			}
			c.catalog.ApplyEvent(event)
		}
	}

	if err := c.catalog.Refresh(); err != nil {
		return err
	}

	c.notifier.Notify("Wi-Fi", "Scan completed", c.icons.Xdg("scan"))

	return nil
}

func (c *Controller) disconnect(ssid string) error {
	if err := c.catalog.Disconnect(c.active); err != nil {
		if _, ok := err.(*iwd.TransportError); ok {
			return err
		}
		c.log.Warnf("Could not disconnect: %v", err)
		return nil
	}

	c.log.Infof("Disconnected from %v", ssid)
	c.notifier.Notify("Wi-Fi", "Disconnected from "+ssid, c.icons.Xdg("disconnected"))

	return nil
}

// connect runs the Connecting state and, for networks that need a secret,
// the EnterSecret state in between. The catalog reflects only what the
// daemon reports; the controller never marks the attempt successful on its
// own.
func (c *Controller) connect(ctx context.Context, network *catalog.Network) error {
	ssid := network.Key.SSID
	needsSecret := !network.Known && network.Key.Security.NeedsSecret()

	c.log.Infof("Connecting to %v", ssid)

	if err := c.catalog.Connect(network.Key); err != nil {
		c.result(ssid, err.Error())
		return nil
	}

	if needsSecret {
		proceed, err := c.enterSecret(ctx, ssid)
		if err != nil {
			return err
		}
		if !proceed {
			return nil
		}
	}

	return c.awaitConnection(ctx, ssid, network.Path)
}

// enterSecret waits for the agent callback the connect attempt triggers,
// prompts through the selector in password mode, and resolves the pending
// request. It returns false when the attempt is already settled or was
// cancelled by the user.
func (c *Controller) enterSecret(ctx context.Context, ssid string) (bool, error) {
	request, proceed, err := c.awaitAuthRequest(ctx, ssid)
	if err != nil || request == nil {
		return proceed, err
	}

	if request.Kind() == agent.KindUserNameAndPassword {
		return c.promptLogin(ctx, request, ssid)
	}

	return c.promptSecret(ctx, request, ssid)
}

// awaitAuthRequest is the gap between issuing connect and the daemon's
// callback. The attempt may settle first, for example when the daemon
// still holds usable credentials.
func (c *Controller) awaitAuthRequest(ctx context.Context, ssid string) (*agent.Request, bool, error) {
	deadline := time.NewTimer(authWait)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case request := <-c.agent.Requests():
			return request, true, nil
		case <-deadline.C:
			// No callback; wait for the attempt outcome directly.
			c.log.Debugf("No authentication request for %v, awaiting outcome", ssid)
			return nil, true, nil
		case event, ok := <-c.events:
			if !ok {
				return nil, false, errTransportLost
			}
			c.catalog.ApplyEvent(event)
			if finished, ok := event.(iwd.ConnectFinished); ok {
				c.reportOutcome(ssid, finished)
				return nil, false, nil
			}
		}
	}
}

// promptSecret shows one password-mode page for the request. While the
// selector is open the controller keeps applying events and watches for
// the daemon cancelling the request or settling the attempt; either one
// tears the selector down rather than leaving it dangling.
func (c *Controller) promptSecret(ctx context.Context, request *agent.Request, ssid string) (bool, error) {
	page := menu.Passphrase(ssid)

	selectorCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type selection struct {
		output string
		err    error
	}

	results := make(chan selection, 1)
	go func() {
		output, err := c.selector.Select(selectorCtx, page)
		results <- selection{output: output, err: err}
	}()

	for {
		select {
		case <-ctx.Done():
			cancel()
			<-results
			_ = request.Cancel()
			return false, ctx.Err()

		case <-request.Done():
			// Daemon withdrew the request while the prompt was open.
			cancel()
			<-results
			c.log.Infof("Authentication request cancelled by daemon")
			return false, nil

		case event, ok := <-c.events:
			if !ok {
				cancel()
				<-results
				_ = request.Cancel()
				return false, errTransportLost
			}
			c.catalog.ApplyEvent(event)
			if finished, ok := event.(iwd.ConnectFinished); ok {
				cancel()
				<-results
				_ = request.Cancel()
				c.reportOutcome(ssid, finished)
				return false, nil
			}

		case result := <-results:
			if errors.Is(result.err, launcher.ErrDismissed) {
				// Leave the daemon idle rather than half-authenticated.
				_ = request.Cancel()
				if err := c.catalog.Disconnect(c.active); err != nil {
					c.log.Debugf("Disconnect after dismissal: %v", err)
				}
				return false, nil
			}
			if result.err != nil {
				_ = request.Cancel()
				return false, result.err
			}

			if err := request.Answer(agent.Secret{
				Passphrase: result.output,
				Password:   result.output,
			}); err != nil {
				// Resolved underneath us, usually a daemon cancel.
				return false, nil
			}
			return true, nil
		}
	}
}

// promptLogin handles enterprise requests that need a user name before the
// password.
func (c *Controller) promptLogin(ctx context.Context, request *agent.Request, ssid string) (bool, error) {
	userPage := &menu.Page{Prompt: "Username for " + ssid}

	output, err := c.selector.Select(ctx, userPage)
	if errors.Is(err, launcher.ErrDismissed) {
		_ = request.Cancel()
		if err := c.catalog.Disconnect(c.active); err != nil {
			c.log.Debugf("Disconnect after dismissal: %v", err)
		}
		return false, nil
	}
	if err != nil {
		_ = request.Cancel()
		return false, err
	}

	passwordPage := &menu.Page{Prompt: "Password for " + ssid, Password: true}

	secret, err := c.selector.Select(ctx, passwordPage)
	if errors.Is(err, launcher.ErrDismissed) {
		_ = request.Cancel()
		if err := c.catalog.Disconnect(c.active); err != nil {
			c.log.Debugf("Disconnect after dismissal: %v", err)
		}
		return false, nil
	}
	if err != nil {
		_ = request.Cancel()
		return false, err
	}

	if err := request.Answer(agent.Secret{UserName: output, Password: secret}); err != nil {
		return false, nil
	}
	return true, nil
}

// awaitConnection is the Connecting state: block on daemon events until
// the attempt settles one way or the other. Failures arrive only through
// the ConnectFinished completion; a connected state counts as success only
// when it points at the network of this attempt, so leftover state from an
// earlier connection cannot settle a fresh attempt.
func (c *Controller) awaitConnection(ctx context.Context, ssid string, networkPath dbus.ObjectPath) error {
	deadline := time.NewTimer(connectWait)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			c.result(ssid, "connection attempt timed out")
			return nil
		case event, ok := <-c.events:
			if !ok {
				return errTransportLost
			}
			c.catalog.ApplyEvent(event)

			if finished, ok := event.(iwd.ConnectFinished); ok {
				c.reportOutcome(ssid, finished)
				return nil
			}

			adapter, ok := c.catalog.Adapter(c.active)
			if !ok {
				return errors.New("active adapter disappeared")
			}
			if adapter.State == catalog.StateConnected && adapter.ConnectedNetwork == networkPath {
				c.success(ssid)
				return nil
			}
		}
	}
}

// reportOutcome is the Result state for an attempt settled by the call
// completion rather than a state transition.
func (c *Controller) reportOutcome(ssid string, finished iwd.ConnectFinished) {
	if finished.Err == nil {
		c.success(ssid)
		return
	}

	if callErr, ok := finished.Err.(*iwd.CallError); ok {
		if callErr.Aborted() {
			c.log.Infof("Connection to %v cancelled", ssid)
			return
		}
		c.result(ssid, callErr.Reason())
		return
	}

	c.result(ssid, finished.Err.Error())
}

func (c *Controller) success(ssid string) {
	c.log.Infof("Connected to %v", ssid)
	c.notifier.Notify("Wi-Fi", "Connected to "+ssid, c.icons.Xdg("connected"))
}

// result surfaces a failure with the daemon's own reason. The secret that
// led here is gone; a retry needs explicit re-selection.
func (c *Controller) result(ssid, reason string) {
	if reason == "" {
		reason = "unknown error"
	}
	c.log.Warnf("Could not connect to %v: %v", ssid, reason)
	c.notifier.Notify("Wi-Fi", "Could not connect to "+ssid+": "+reason, c.icons.Xdg("disconnected"))
}

// drainEvents applies every queued event without blocking.
func (c *Controller) drainEvents() error {
	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				return errTransportLost
			}
			c.catalog.ApplyEvent(event)
		default:
			return nil
		}
	}
}
