package iwd

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestDecodeSignalPropertiesChanged(t *testing.T) {
	signal := &dbus.Signal{
		Path: "/net/connman/iwd/0/3",
		Name: "org.freedesktop.DBus.Properties.PropertiesChanged",
		Body: []interface{}{
			InterfaceStation,
			map[string]dbus.Variant{"Scanning": dbus.MakeVariant(true)},
			[]string{"ConnectedNetwork"},
		},
	}

	event := decodeSignal(signal)
	changed, ok := event.(PropertiesChanged)
	if !ok {
		t.Fatalf("event = %T, want PropertiesChanged", event)
	}
	if changed.Interface != InterfaceStation {
		t.Fatalf("interface = %q", changed.Interface)
	}
	if changed.Path != "/net/connman/iwd/0/3" {
		t.Fatalf("path = %q", changed.Path)
	}
	if len(changed.Invalidated) != 1 || changed.Invalidated[0] != "ConnectedNetwork" {
		t.Fatalf("invalidated = %v", changed.Invalidated)
	}
}

func TestDecodeSignalInterfacesAdded(t *testing.T) {
	signal := &dbus.Signal{
		Name: "org.freedesktop.DBus.ObjectManager.InterfacesAdded",
		Body: []interface{}{
			dbus.ObjectPath("/net/connman/iwd/0/3/1234_psk"),
			map[string]map[string]dbus.Variant{
				InterfaceNetwork: {"Name": dbus.MakeVariant("Cafe")},
			},
		},
	}

	event := decodeSignal(signal)
	added, ok := event.(ObjectAdded)
	if !ok {
		t.Fatalf("event = %T, want ObjectAdded", event)
	}
	if _, ok := added.Interfaces[InterfaceNetwork]; !ok {
		t.Fatal("network interface missing from event")
	}
}

func TestDecodeSignalInterfacesRemoved(t *testing.T) {
	signal := &dbus.Signal{
		Name: "org.freedesktop.DBus.ObjectManager.InterfacesRemoved",
		Body: []interface{}{
			dbus.ObjectPath("/net/connman/iwd/0/3/1234_psk"),
			[]string{InterfaceNetwork},
		},
	}

	event := decodeSignal(signal)
	removed, ok := event.(ObjectRemoved)
	if !ok {
		t.Fatalf("event = %T, want ObjectRemoved", event)
	}
	if len(removed.Interfaces) != 1 || removed.Interfaces[0] != InterfaceNetwork {
		t.Fatalf("interfaces = %v", removed.Interfaces)
	}
}

func TestDecodeSignalIgnoresUnrelated(t *testing.T) {
	signal := &dbus.Signal{
		Name: "org.freedesktop.DBus.NameOwnerChanged",
		Body: []interface{}{"net.connman.iwd", ":1.5", ""},
	}

	if event := decodeSignal(signal); event != nil {
		t.Fatalf("event = %T, want nil", event)
	}
}
