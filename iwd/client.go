package iwd

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

const (
	busName = "net.connman.iwd"

	objectManagerPath = dbus.ObjectPath("/")
	agentManagerPath  = dbus.ObjectPath("/net/connman/iwd")

	agentManagerInterface = "net.connman.iwd.AgentManager"

	propertiesInterface    = "org.freedesktop.DBus.Properties"
	objectManagerInterface = "org.freedesktop.DBus.ObjectManager"
)

// Daemon object interfaces, as they appear in change events.
const (
	InterfaceAdapter      = "net.connman.iwd.Adapter"
	InterfaceDevice       = "net.connman.iwd.Device"
	InterfaceStation      = "net.connman.iwd.Station"
	InterfaceNetwork      = "net.connman.iwd.Network"
	InterfaceKnownNetwork = "net.connman.iwd.KnownNetwork"
)

// AgentInterface is the interface the daemon expects the registered
// authentication agent object to implement.
const AgentInterface = "net.connman.iwd.Agent"

type Config struct {
	Logger Logger
}

// Client is the session to the iwd daemon. All daemon communication in the
// program goes through it: method calls, the typed event stream and the
// agent object export.
type Client struct {
	log     Logger
	conn    *dbus.Conn
	signals chan *dbus.Signal
	events  chan Event
}

func New(config *Config) *Client {
	client := &Client{
		signals: make(chan *dbus.Signal, 64),
		events:  make(chan Event, 64),
	}

	if config.Logger != nil {
		client.log = config.Logger
	} else {
		client.log = noopLogger{}
	}

	return client
}

// Start opens the system bus session and begins delivering daemon signals
// on the event channel. It fails with a TransportError when the daemon is
// not reachable on the bus.
func (c *Client) Start() error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return &TransportError{Err: err}
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return &TransportError{Err: err}
	}

	found := false
	for _, name := range names {
		if name == busName {
			found = true
			break
		}
	}
	if !found {
		return &TransportError{Err: errors.Errorf("%v not found on system bus, is iwd running?", busName)}
	}

	c.conn = conn

	matches := [][]dbus.MatchOption{
		{
			dbus.WithMatchSender(busName),
			dbus.WithMatchInterface(propertiesInterface),
			dbus.WithMatchMember("PropertiesChanged"),
		},
		{
			dbus.WithMatchSender(busName),
			dbus.WithMatchInterface(objectManagerInterface),
			dbus.WithMatchMember("InterfacesAdded"),
		},
		{
			dbus.WithMatchSender(busName),
			dbus.WithMatchInterface(objectManagerInterface),
			dbus.WithMatchMember("InterfacesRemoved"),
		},
	}

	for _, match := range matches {
		if err := conn.AddMatchSignal(match...); err != nil {
			return &TransportError{Err: err}
		}
	}

	conn.Signal(c.signals)

	go c.deliverEvents()

	c.log.Debugf("Connected to %v", busName)

	return nil
}

// Stop tears down the signal subscription and closes the event channel.
func (c *Client) Stop() error {
	if c.conn == nil {
		return nil
	}

	c.conn.RemoveSignal(c.signals)
	close(c.signals)

	return nil
}

// Events returns the single event channel. Signals are decoded in arrival
// order; the channel is closed by Stop.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) deliverEvents() {
	for signal := range c.signals {
		event := decodeSignal(signal)
		if event == nil {
			continue
		}

		c.events <- event
	}

	close(c.events)
}

// Snapshot enumerates the daemon's full object tree and resolves per-network
// signal strengths through each station's ordered network list.
func (c *Client) Snapshot() (*Snapshot, error) {
	var objects managedObjects

	err := c.conn.Object(busName, objectManagerPath).
		Call(objectManagerInterface+".GetManagedObjects", 0).
		Store(&objects)
	if err != nil {
		return nil, classify(err)
	}

	snapshot := parseSnapshot(objects)

	signals := make(map[dbus.ObjectPath]int16)
	for _, device := range snapshot.Devices {
		if device.State == "" {
			// Not operating as a station.
			continue
		}

		var ordered []struct {
			Path   dbus.ObjectPath
			Signal int16
		}
		err := c.conn.Object(busName, device.Path).
			Call(InterfaceStation+".GetOrderedNetworks", 0).
			Store(&ordered)
		if err != nil {
			c.log.Warnf("Could not get ordered networks for %v: %v", device.Path, err)
			continue
		}

		for _, entry := range ordered {
			signals[entry.Path] = entry.Signal
		}
	}

	for i := range snapshot.Networks {
		if signal, ok := signals[snapshot.Networks[i].Path]; ok {
			snapshot.Networks[i].Signal = signal
		}
	}

	return snapshot, nil
}

// Scan asks the station to rescan. Completion arrives as a Scanning
// property change, not as the call result.
func (c *Client) Scan(devicePath dbus.ObjectPath) error {
	call := c.conn.Object(busName, devicePath).Call(InterfaceStation+".Scan", 0)
	return classify(call.Err)
}

// Connect starts an asynchronous connect attempt on the given network. The
// daemon resolves the call only once the attempt succeeds or fails, so the
// outcome is delivered as a ConnectFinished event instead of a return
// value. Any passphrase request the attempt triggers arrives through the
// registered agent in the meantime.
func (c *Client) Connect(networkPath dbus.ObjectPath) {
	call := c.conn.Object(busName, networkPath).
		Go(InterfaceNetwork+".Connect", 0, make(chan *dbus.Call, 1))

	go func() {
		<-call.Done
		c.events <- ConnectFinished{NetworkPath: networkPath, Err: classify(call.Err)}
	}()
}

// Disconnect drops the station's current connection.
func (c *Client) Disconnect(devicePath dbus.ObjectPath) error {
	call := c.conn.Object(busName, devicePath).Call(InterfaceStation+".Disconnect", 0)
	return classify(call.Err)
}

// Forget removes the stored credentials of a known network.
func (c *Client) Forget(knownPath dbus.ObjectPath) error {
	call := c.conn.Object(busName, knownPath).Call(InterfaceKnownNetwork+".Forget", 0)
	return classify(call.Err)
}

// SetAutoConnect toggles automatic connection for a known network.
func (c *Client) SetAutoConnect(knownPath dbus.ObjectPath, enable bool) error {
	call := c.conn.Object(busName, knownPath).Call(propertiesInterface+".Set", 0,
		InterfaceKnownNetwork, "AutoConnect", dbus.MakeVariant(enable))
	return classify(call.Err)
}

// SetPowered powers the device radio on or off.
func (c *Client) SetPowered(devicePath dbus.ObjectPath, on bool) error {
	call := c.conn.Object(busName, devicePath).Call(propertiesInterface+".Set", 0,
		InterfaceDevice, "Powered", dbus.MakeVariant(on))
	return classify(call.Err)
}

// ExportAgent publishes the agent object on the bus and registers it with
// the daemon's agent manager. Registration must happen before any connect
// attempt that could need a secret.
func (c *Client) ExportAgent(object interface{}, path dbus.ObjectPath) error {
	if err := c.conn.Export(object, path, AgentInterface); err != nil {
		return &TransportError{Err: err}
	}

	call := c.conn.Object(busName, agentManagerPath).
		Call(agentManagerInterface+".RegisterAgent", 0, path)
	return classify(call.Err)
}

// UnexportAgent unregisters and removes the agent object.
func (c *Client) UnexportAgent(path dbus.ObjectPath) error {
	call := c.conn.Object(busName, agentManagerPath).
		Call(agentManagerInterface+".UnregisterAgent", 0, path)
	if call.Err != nil {
		return classify(call.Err)
	}

	return classify(c.conn.Export(nil, path, AgentInterface))
}
