// Package catalog keeps the live model of adapters, visible networks and
// known networks. It is refreshed from a full daemon snapshot and kept
// current by applying daemon change events one at a time. All mutation
// happens through Refresh and ApplyEvent on the session's single goroutine;
// there are no concurrent writers.
package catalog

import (
	"sort"

	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"

	"iwdmenu/iwd"
)

// Security of a network, from the daemon's network type.
type Security string

const (
	SecurityOpen       Security = "open"
	SecurityPSK        Security = "psk"
	SecurityEnterprise Security = "8021x"
	SecurityWEP        Security = "wep"
)

// NeedsSecret reports whether a fresh connect attempt to a network of this
// security will trigger an agent callback.
func (s Security) NeedsSecret() bool {
	return s != SecurityOpen
}

// ScanState of one adapter.
type ScanState int

const (
	ScanIdle ScanState = iota
	Scanning
)

// ConnState of one adapter. Transitions are driven only by daemon events,
// never asserted ahead of them.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateFailed:
		return "failed"
	}
	return "disconnected"
}

func connStateFromDaemon(state string) ConnState {
	switch state {
	case "connected", "roaming":
		return StateConnected
	case "connecting":
		return StateConnecting
	case "disconnecting":
		return StateDisconnecting
	}
	return StateDisconnected
}

// Adapter is one radio operating as a station, merged from the daemon's
// device and station objects. One adapter is active per session.
type Adapter struct {
	Path    dbus.ObjectPath
	Name    string
	Address string
	Mode    string
	Powered bool

	Scan             ScanState
	State            ConnState
	FailReason       string
	ConnectedNetwork dbus.ObjectPath
}

// Key identifies a network across refreshes. The daemon object path is an
// internal handle only; identity is the (adapter, SSID, security) tuple.
type Key struct {
	Adapter  dbus.ObjectPath
	SSID     string
	Security Security
}

// Network is one visible network on an adapter.
type Network struct {
	Key    Key
	Path   dbus.ObjectPath
	Signal int16

	Known       bool
	KnownPath   dbus.ObjectPath
	AutoConnect bool
	Hidden      bool
	Connected   bool
}

// KnownNetwork is a stored-credentials entry, visible or not.
type KnownNetwork struct {
	Path        dbus.ObjectPath
	Name        string
	Security    Security
	Hidden      bool
	AutoConnect bool
}

// ErrUnknownNetwork is returned by operations on a network that is no
// longer in the model.
var ErrUnknownNetwork = errors.New("network is no longer available")

// Backend is the daemon operation surface the catalog passes through to.
// *iwd.Client implements it; tests substitute a replayed double.
type Backend interface {
	Snapshot() (*iwd.Snapshot, error)
	Scan(devicePath dbus.ObjectPath) error
	Connect(networkPath dbus.ObjectPath)
	Disconnect(devicePath dbus.ObjectPath) error
	Forget(knownPath dbus.ObjectPath) error
	SetAutoConnect(knownPath dbus.ObjectPath, enable bool) error
	SetPowered(devicePath dbus.ObjectPath, on bool) error
}

type Config struct {
	Backend Backend
	Logger  Logger
}

type Catalog struct {
	backend Backend
	log     Logger

	adapters map[dbus.ObjectPath]*Adapter
	networks map[Key]*Network
	known    map[dbus.ObjectPath]*KnownNetwork

	// networkPaths maps daemon object paths back to identity keys so
	// change events, which only carry paths, can be applied.
	networkPaths map[dbus.ObjectPath]Key

	generation uint64
}

func New(config *Config) *Catalog {
	catalog := &Catalog{
		backend:      config.Backend,
		adapters:     make(map[dbus.ObjectPath]*Adapter),
		networks:     make(map[Key]*Network),
		known:        make(map[dbus.ObjectPath]*KnownNetwork),
		networkPaths: make(map[dbus.ObjectPath]Key),
	}

	if config.Logger != nil {
		catalog.log = config.Logger
	} else {
		catalog.log = noopLogger{}
	}

	return catalog
}

// Generation is bumped on every model mutation. A menu rendered at one
// generation must not act on selections once the generation has moved on.
func (c *Catalog) Generation() uint64 {
	return c.generation
}

// Refresh re-enumerates the daemon and rebuilds the model. Costs one IPC
// round trip; scans stay asynchronous.
func (c *Catalog) Refresh() error {
	snapshot, err := c.backend.Snapshot()
	if err != nil {
		return err
	}

	previous := c.adapters

	c.adapters = make(map[dbus.ObjectPath]*Adapter)
	c.networks = make(map[Key]*Network)
	c.known = make(map[dbus.ObjectPath]*KnownNetwork)
	c.networkPaths = make(map[dbus.ObjectPath]Key)

	for _, device := range snapshot.Devices {
		adapter := &Adapter{
			Path:             device.Path,
			Name:             device.Name,
			Address:          device.Address,
			Mode:             device.Mode,
			Powered:          device.Powered,
			State:            connStateFromDaemon(device.State),
			ConnectedNetwork: device.ConnectedNetwork,
		}
		if device.Scanning {
			adapter.Scan = Scanning
		}
		// A failure reason survives the rebuild until the daemon
		// reports a new attempt.
		if old, ok := previous[device.Path]; ok && old.State == StateFailed && adapter.State == StateDisconnected {
			adapter.State = StateFailed
			adapter.FailReason = old.FailReason
		}
		c.adapters[device.Path] = adapter
	}

	for i := range snapshot.Known {
		known := snapshot.Known[i]
		c.known[known.Path] = &KnownNetwork{
			Path:        known.Path,
			Name:        known.Name,
			Security:    Security(known.Type),
			Hidden:      known.Hidden,
			AutoConnect: known.AutoConnect,
		}
	}

	for i := range snapshot.Networks {
		c.insertNetwork(snapshot.Networks[i])
	}

	c.generation++

	return nil
}

func (c *Catalog) insertNetwork(visible iwd.Network) {
	key := Key{
		Adapter:  visible.DevicePath,
		SSID:     visible.Name,
		Security: Security(visible.Type),
	}

	network := &Network{
		Key:       key,
		Path:      visible.Path,
		Signal:    visible.Signal,
		Connected: visible.Connected,
	}

	if visible.KnownPath != "" && visible.KnownPath != "/" {
		network.Known = true
		network.KnownPath = visible.KnownPath
		if known, ok := c.known[visible.KnownPath]; ok {
			network.AutoConnect = known.AutoConnect
			network.Hidden = known.Hidden
		}
	}

	c.networks[key] = network
	c.networkPaths[visible.Path] = key
}

// Adapters returns all station adapters ordered by name.
func (c *Catalog) Adapters() []*Adapter {
	adapters := make([]*Adapter, 0, len(c.adapters))
	for _, adapter := range c.adapters {
		adapters = append(adapters, adapter)
	}

	sort.Slice(adapters, func(i, j int) bool {
		if adapters[i].Name != adapters[j].Name {
			return adapters[i].Name < adapters[j].Name
		}
		return adapters[i].Path < adapters[j].Path
	})

	return adapters
}

// Adapter looks up one adapter by path.
func (c *Catalog) Adapter(path dbus.ObjectPath) (*Adapter, bool) {
	adapter, ok := c.adapters[path]
	return adapter, ok
}

// Networks returns the visible networks of one adapter in menu order:
// connected network first, then known networks by descending signal, then
// unknown networks by descending signal, ties broken by SSID. The order is
// deterministic for a fixed model.
func (c *Catalog) Networks(adapter dbus.ObjectPath) []*Network {
	networks := make([]*Network, 0, len(c.networks))
	for _, network := range c.networks {
		if network.Key.Adapter == adapter {
			networks = append(networks, network)
		}
	}

	sort.Slice(networks, func(i, j int) bool {
		a, b := networks[i], networks[j]
		if a.Connected != b.Connected {
			return a.Connected
		}
		if a.Known != b.Known {
			return a.Known
		}
		if a.Signal != b.Signal {
			return a.Signal > b.Signal
		}
		if a.Key.SSID != b.Key.SSID {
			return a.Key.SSID < b.Key.SSID
		}
		return a.Key.Security < b.Key.Security
	})

	return networks
}

// Network looks up one network by identity.
func (c *Catalog) Network(key Key) (*Network, bool) {
	network, ok := c.networks[key]
	return network, ok
}

// KnownNetworks returns all stored-credentials entries ordered by name.
func (c *Catalog) KnownNetworks() []*KnownNetwork {
	known := make([]*KnownNetwork, 0, len(c.known))
	for _, entry := range c.known {
		known = append(known, entry)
	}

	sort.Slice(known, func(i, j int) bool {
		if known[i].Name != known[j].Name {
			return known[i].Name < known[j].Name
		}
		return known[i].Security < known[j].Security
	})

	return known
}

// StartScan asks the adapter's station to rescan. Completion arrives as a
// Scanning property event.
func (c *Catalog) StartScan(adapter dbus.ObjectPath) error {
	return c.backend.Scan(adapter)
}

// Connect starts an asynchronous connect attempt. The outcome arrives as a
// ConnectFinished event; intermediate state changes arrive as property
// events.
func (c *Catalog) Connect(key Key) error {
	network, ok := c.networks[key]
	if !ok {
		return ErrUnknownNetwork
	}

	c.backend.Connect(network.Path)

	return nil
}

// Disconnect drops the adapter's current connection.
func (c *Catalog) Disconnect(adapter dbus.ObjectPath) error {
	return c.backend.Disconnect(adapter)
}

// Forget removes the stored credentials behind a known entry.
func (c *Catalog) Forget(knownPath dbus.ObjectPath) error {
	return c.backend.Forget(knownPath)
}

// SetAutoConnect toggles automatic connection on a known entry.
func (c *Catalog) SetAutoConnect(knownPath dbus.ObjectPath, enable bool) error {
	return c.backend.SetAutoConnect(knownPath, enable)
}

// SetPowered powers the adapter on or off.
func (c *Catalog) SetPowered(adapter dbus.ObjectPath, on bool) error {
	return c.backend.SetPowered(adapter, on)
}
