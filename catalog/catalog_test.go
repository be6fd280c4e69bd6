package catalog

import (
	"testing"

	"github.com/godbus/dbus/v5"

	"iwdmenu/iwd"
)

const (
	devicePath = dbus.ObjectPath("/net/connman/iwd/0/3")
	cafePath   = dbus.ObjectPath("/net/connman/iwd/0/3/1234_psk")
	officePath = dbus.ObjectPath("/net/connman/iwd/0/3/5678_psk")
	guestPath  = dbus.ObjectPath("/net/connman/iwd/0/3/9abc_open")
	atticPath  = dbus.ObjectPath("/net/connman/iwd/0/3/def0_psk")

	knownCafePath   = dbus.ObjectPath("/net/connman/iwd/1234_psk")
	knownOfficePath = dbus.ObjectPath("/net/connman/iwd/5678_psk")
)

type fakeBackend struct {
	snapshot *iwd.Snapshot
	err      error

	scans       []dbus.ObjectPath
	connects    []dbus.ObjectPath
	disconnects []dbus.ObjectPath
	forgets     []dbus.ObjectPath
	autoConnect map[dbus.ObjectPath]bool
	powered     []bool
}

func (f *fakeBackend) Snapshot() (*iwd.Snapshot, error) {
	return f.snapshot, f.err
}

func (f *fakeBackend) Scan(devicePath dbus.ObjectPath) error {
	f.scans = append(f.scans, devicePath)
	return nil
}

func (f *fakeBackend) Connect(networkPath dbus.ObjectPath) {
	f.connects = append(f.connects, networkPath)
}

func (f *fakeBackend) Disconnect(devicePath dbus.ObjectPath) error {
	f.disconnects = append(f.disconnects, devicePath)
	return nil
}

func (f *fakeBackend) Forget(knownPath dbus.ObjectPath) error {
	f.forgets = append(f.forgets, knownPath)
	return nil
}

func (f *fakeBackend) SetAutoConnect(knownPath dbus.ObjectPath, enable bool) error {
	if f.autoConnect == nil {
		f.autoConnect = make(map[dbus.ObjectPath]bool)
	}
	f.autoConnect[knownPath] = enable
	return nil
}

func (f *fakeBackend) SetPowered(devicePath dbus.ObjectPath, on bool) error {
	f.powered = append(f.powered, on)
	return nil
}

func testSnapshot() *iwd.Snapshot {
	return &iwd.Snapshot{
		Devices: []iwd.Device{
			{
				Path:             devicePath,
				Name:             "wlan0",
				Address:          "aa:bb:cc:dd:ee:ff",
				Mode:             "station",
				Powered:          true,
				State:            "connected",
				ConnectedNetwork: cafePath,
			},
		},
		Networks: []iwd.Network{
			{Path: cafePath, DevicePath: devicePath, KnownPath: knownCafePath, Name: "Cafe", Type: "psk", Connected: true, Signal: -5000},
			{Path: officePath, DevicePath: devicePath, KnownPath: knownOfficePath, Name: "Office", Type: "psk", Signal: -6000},
			{Path: guestPath, DevicePath: devicePath, Name: "Guest", Type: "open", Signal: -4000},
			{Path: atticPath, DevicePath: devicePath, Name: "Attic", Type: "psk", Signal: -8000},
		},
		Known: []iwd.KnownNetwork{
			{Path: knownCafePath, Name: "Cafe", Type: "psk", AutoConnect: true},
			{Path: knownOfficePath, Name: "Office", Type: "psk"},
		},
	}
}

func testCatalog(t *testing.T) (*Catalog, *fakeBackend) {
	t.Helper()

	backend := &fakeBackend{snapshot: testSnapshot()}
	c := New(&Config{Backend: backend})
	if err := c.Refresh(); err != nil {
		t.Fatal(err)
	}
	return c, backend
}

func TestRefreshBuildsModel(t *testing.T) {
	c, _ := testCatalog(t)

	adapter, ok := c.Adapter(devicePath)
	if !ok {
		t.Fatal("adapter missing after refresh")
	}
	if adapter.State != StateConnected {
		t.Fatalf("adapter state = %v, want connected", adapter.State)
	}
	if adapter.ConnectedNetwork != cafePath {
		t.Fatalf("connected network = %v", adapter.ConnectedNetwork)
	}

	cafe, ok := c.Network(Key{Adapter: devicePath, SSID: "Cafe", Security: SecurityPSK})
	if !ok {
		t.Fatal("Cafe missing after refresh")
	}
	if !cafe.Known || !cafe.Connected || !cafe.AutoConnect {
		t.Fatalf("Cafe flags = known %v connected %v autoconnect %v", cafe.Known, cafe.Connected, cafe.AutoConnect)
	}

	if got := len(c.KnownNetworks()); got != 2 {
		t.Fatalf("known networks = %d, want 2", got)
	}
}

func TestNetworksOrdering(t *testing.T) {
	c, _ := testCatalog(t)

	networks := c.Networks(devicePath)
	got := make([]string, len(networks))
	for i, network := range networks {
		got[i] = network.Key.SSID
	}

	// Connected first, then known by signal, then unknown by signal.
	want := []string{"Cafe", "Office", "Guest", "Attic"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestGenerationMovesOnEveryMutation(t *testing.T) {
	c, _ := testCatalog(t)

	before := c.Generation()
	if err := c.Refresh(); err != nil {
		t.Fatal(err)
	}
	if c.Generation() == before {
		t.Fatal("refresh must bump the generation")
	}

	before = c.Generation()
	c.ApplyEvent(iwd.PropertiesChanged{
		Path:      devicePath,
		Interface: iwd.InterfaceStation,
		Values:    map[string]dbus.Variant{"Scanning": dbus.MakeVariant(true)},
	})
	if c.Generation() == before {
		t.Fatal("an applied event must bump the generation")
	}
}

func TestConnectUnknownNetwork(t *testing.T) {
	c, backend := testCatalog(t)

	err := c.Connect(Key{Adapter: devicePath, SSID: "Nope", Security: SecurityPSK})
	if err != ErrUnknownNetwork {
		t.Fatalf("Connect = %v, want ErrUnknownNetwork", err)
	}
	if len(backend.connects) != 0 {
		t.Fatal("no daemon call must be made for an unknown network")
	}
}

func TestConnectPassesNetworkPath(t *testing.T) {
	c, backend := testCatalog(t)

	if err := c.Connect(Key{Adapter: devicePath, SSID: "Guest", Security: SecurityOpen}); err != nil {
		t.Fatal(err)
	}
	if len(backend.connects) != 1 || backend.connects[0] != guestPath {
		t.Fatalf("connects = %v", backend.connects)
	}
}

func TestStationStateTransitions(t *testing.T) {
	c, _ := testCatalog(t)

	c.ApplyEvent(iwd.PropertiesChanged{
		Path:      devicePath,
		Interface: iwd.InterfaceStation,
		Values:    map[string]dbus.Variant{"State": dbus.MakeVariant("connecting")},
	})

	adapter, _ := c.Adapter(devicePath)
	if adapter.State != StateConnecting {
		t.Fatalf("state = %v, want connecting", adapter.State)
	}

	c.ApplyEvent(iwd.PropertiesChanged{
		Path:      devicePath,
		Interface: iwd.InterfaceStation,
		Values:    map[string]dbus.Variant{"State": dbus.MakeVariant("roaming")},
	})

	adapter, _ = c.Adapter(devicePath)
	if adapter.State != StateConnected {
		t.Fatalf("roaming must count as connected, got %v", adapter.State)
	}
}

func TestConnectFinishedFailureKeepsReason(t *testing.T) {
	c, backend := testCatalog(t)

	c.ApplyEvent(iwd.ConnectFinished{
		NetworkPath: officePath,
		Err:         &iwd.CallError{Name: "net.connman.iwd.Failed"},
	})

	adapter, _ := c.Adapter(devicePath)
	if adapter.State != StateFailed {
		t.Fatalf("state = %v, want failed", adapter.State)
	}
	if adapter.FailReason != "Failed" {
		t.Fatalf("reason = %q", adapter.FailReason)
	}

	// The daemon settles back to disconnected after a failure; the failed
	// state must survive so the outcome stays observable.
	c.ApplyEvent(iwd.PropertiesChanged{
		Path:      devicePath,
		Interface: iwd.InterfaceStation,
		Values:    map[string]dbus.Variant{"State": dbus.MakeVariant("disconnected")},
	})

	adapter, _ = c.Adapter(devicePath)
	if adapter.State != StateFailed {
		t.Fatalf("failure must survive the disconnected event, got %v", adapter.State)
	}

	// It also survives a full refresh while the daemon reports the
	// post-failure idle state.
	backend.snapshot.Devices[0].State = "disconnected"
	backend.snapshot.Devices[0].ConnectedNetwork = ""
	backend.snapshot.Networks[0].Connected = false
	if err := c.Refresh(); err != nil {
		t.Fatal(err)
	}
	adapter, _ = c.Adapter(devicePath)
	if adapter.State != StateFailed || adapter.FailReason != "Failed" {
		t.Fatalf("failure must survive a refresh, got %v (%q)", adapter.State, adapter.FailReason)
	}

	// A new attempt clears it.
	c.ApplyEvent(iwd.PropertiesChanged{
		Path:      devicePath,
		Interface: iwd.InterfaceStation,
		Values:    map[string]dbus.Variant{"State": dbus.MakeVariant("connecting")},
	})
	adapter, _ = c.Adapter(devicePath)
	if adapter.State != StateConnecting || adapter.FailReason != "" {
		t.Fatalf("new attempt must clear the failure, got %v (%q)", adapter.State, adapter.FailReason)
	}
}

func TestConnectFinishedAbortedResetsToDisconnected(t *testing.T) {
	c, _ := testCatalog(t)

	c.ApplyEvent(iwd.ConnectFinished{
		NetworkPath: officePath,
		Err:         &iwd.CallError{Name: "net.connman.iwd.Aborted"},
	})

	adapter, _ := c.Adapter(devicePath)
	if adapter.State != StateDisconnected {
		t.Fatalf("state = %v, want disconnected after abort", adapter.State)
	}
	if adapter.FailReason != "" {
		t.Fatalf("an abort must not leave a failure reason, got %q", adapter.FailReason)
	}
}

func TestConnectedNetworkMarksExactlyOne(t *testing.T) {
	c, _ := testCatalog(t)

	c.ApplyEvent(iwd.PropertiesChanged{
		Path:      devicePath,
		Interface: iwd.InterfaceStation,
		Values:    map[string]dbus.Variant{"ConnectedNetwork": dbus.MakeVariant(officePath)},
	})

	connected := 0
	for _, network := range c.Networks(devicePath) {
		if network.Connected {
			connected++
			if network.Key.SSID != "Office" {
				t.Fatalf("connected network = %q, want Office", network.Key.SSID)
			}
		}
	}
	if connected != 1 {
		t.Fatalf("connected count = %d, want 1", connected)
	}

	c.ApplyEvent(iwd.PropertiesChanged{
		Path:        devicePath,
		Interface:   iwd.InterfaceStation,
		Invalidated: []string{"ConnectedNetwork"},
	})

	for _, network := range c.Networks(devicePath) {
		if network.Connected {
			t.Fatalf("%q still connected after invalidation", network.Key.SSID)
		}
	}
}

func TestObjectAddedAndRemovedNetwork(t *testing.T) {
	c, _ := testCatalog(t)

	newPath := dbus.ObjectPath("/net/connman/iwd/0/3/ffff_psk")
	c.ApplyEvent(iwd.ObjectAdded{
		Path: newPath,
		Interfaces: map[string]map[string]dbus.Variant{
			iwd.InterfaceNetwork: {
				"Name":   dbus.MakeVariant("Lobby"),
				"Type":   dbus.MakeVariant("psk"),
				"Device": dbus.MakeVariant(devicePath),
			},
		},
	})

	key := Key{Adapter: devicePath, SSID: "Lobby", Security: SecurityPSK}
	if _, ok := c.Network(key); !ok {
		t.Fatal("added network missing")
	}

	c.ApplyEvent(iwd.ObjectRemoved{
		Path:       newPath,
		Interfaces: []string{iwd.InterfaceNetwork},
	})

	if _, ok := c.Network(key); ok {
		t.Fatal("removed network still present")
	}
}

func TestDeviceRemovalCascades(t *testing.T) {
	c, _ := testCatalog(t)

	c.ApplyEvent(iwd.ObjectRemoved{
		Path:       devicePath,
		Interfaces: []string{iwd.InterfaceDevice, iwd.InterfaceStation},
	})

	if _, ok := c.Adapter(devicePath); ok {
		t.Fatal("removed adapter still present")
	}
	if got := len(c.Networks(devicePath)); got != 0 {
		t.Fatalf("adapter removal left %d networks behind", got)
	}
}

func TestKnownNetworkRemovalUnlinks(t *testing.T) {
	c, _ := testCatalog(t)

	c.ApplyEvent(iwd.ObjectRemoved{
		Path:       knownCafePath,
		Interfaces: []string{iwd.InterfaceKnownNetwork},
	})

	cafe, ok := c.Network(Key{Adapter: devicePath, SSID: "Cafe", Security: SecurityPSK})
	if !ok {
		t.Fatal("Cafe disappeared with its profile")
	}
	if cafe.Known {
		t.Fatal("Cafe still marked known after the profile was removed")
	}
	if got := len(c.KnownNetworks()); got != 1 {
		t.Fatalf("known networks = %d, want 1", got)
	}
}

func TestAutoConnectPropagatesToVisibleNetwork(t *testing.T) {
	c, _ := testCatalog(t)

	c.ApplyEvent(iwd.PropertiesChanged{
		Path:      knownOfficePath,
		Interface: iwd.InterfaceKnownNetwork,
		Values:    map[string]dbus.Variant{"AutoConnect": dbus.MakeVariant(true)},
	})

	office, _ := c.Network(Key{Adapter: devicePath, SSID: "Office", Security: SecurityPSK})
	if !office.AutoConnect {
		t.Fatal("autoconnect change not propagated to the visible network")
	}
}
