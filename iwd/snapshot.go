package iwd

import (
	"time"

	"github.com/godbus/dbus/v5"
)

// Device is one wireless radio as enumerated from the daemon. Station
// properties are merged in because iwd exposes them as a second interface
// on the same object path.
type Device struct {
	Path             dbus.ObjectPath
	AdapterPath      dbus.ObjectPath
	Name             string
	Address          string
	Mode             string
	Powered          bool
	State            string
	Scanning         bool
	ConnectedNetwork dbus.ObjectPath
}

// Network is one visible network.
type Network struct {
	Path       dbus.ObjectPath
	DevicePath dbus.ObjectPath
	KnownPath  dbus.ObjectPath
	Name       string
	Type       string
	Connected  bool
	// Signal is the strength in 100 * dBm, filled from the station's
	// ordered network list. SignalUnknown when the station did not
	// report it.
	Signal int16
}

// SignalUnknown sorts below any reported strength.
const SignalUnknown int16 = -32768

// KnownNetwork is a network the daemon has stored credentials for. It may
// or may not currently be visible.
type KnownNetwork struct {
	Path          dbus.ObjectPath
	Name          string
	Type          string
	Hidden        bool
	AutoConnect   bool
	LastConnected time.Time
}

// Snapshot is a full enumeration of the daemon's object tree at one point
// in time.
type Snapshot struct {
	Devices  []Device
	Networks []Network
	Known    []KnownNetwork
}

type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

func parseSnapshot(objects managedObjects) *Snapshot {
	snapshot := &Snapshot{}

	for path, ifaces := range objects {
		if props, ok := ifaces[InterfaceDevice]; ok {
			device := DeviceFromProps(path, props)
			if station, ok := ifaces[InterfaceStation]; ok {
				device.ApplyStationProps(station)
			}
			snapshot.Devices = append(snapshot.Devices, device)
		}

		if props, ok := ifaces[InterfaceNetwork]; ok {
			snapshot.Networks = append(snapshot.Networks, NetworkFromProps(path, props))
		}

		if props, ok := ifaces[InterfaceKnownNetwork]; ok {
			snapshot.Known = append(snapshot.Known, KnownFromProps(path, props))
		}
	}

	return snapshot
}

// DeviceFromProps builds a Device from the initial property map of a
// net.connman.iwd.Device interface.
func DeviceFromProps(path dbus.ObjectPath, props map[string]dbus.Variant) Device {
	device := Device{Path: path}
	device.ApplyDeviceProps(props)
	return device
}

// ApplyDeviceProps folds changed Device properties into the struct.
func (d *Device) ApplyDeviceProps(props map[string]dbus.Variant) {
	if value, ok := variantString(props, "Name"); ok {
		d.Name = value
	}
	if value, ok := variantString(props, "Address"); ok {
		d.Address = value
	}
	if value, ok := variantString(props, "Mode"); ok {
		d.Mode = value
	}
	if value, ok := variantBool(props, "Powered"); ok {
		d.Powered = value
	}
	if value, ok := variantPath(props, "Adapter"); ok {
		d.AdapterPath = value
	}
}

// ApplyStationProps folds changed Station properties into the struct.
func (d *Device) ApplyStationProps(props map[string]dbus.Variant) {
	if value, ok := variantString(props, "State"); ok {
		d.State = value
	}
	if value, ok := variantBool(props, "Scanning"); ok {
		d.Scanning = value
	}
	if value, ok := variantPath(props, "ConnectedNetwork"); ok {
		d.ConnectedNetwork = value
	}
}

// NetworkFromProps builds a Network from the initial property map of a
// net.connman.iwd.Network interface. Signal starts out unknown.
func NetworkFromProps(path dbus.ObjectPath, props map[string]dbus.Variant) Network {
	network := Network{Path: path, Signal: SignalUnknown}
	network.ApplyProps(props)
	return network
}

// ApplyProps folds changed Network properties into the struct.
func (n *Network) ApplyProps(props map[string]dbus.Variant) {
	if value, ok := variantString(props, "Name"); ok {
		n.Name = value
	}
	if value, ok := variantString(props, "Type"); ok {
		n.Type = value
	}
	if value, ok := variantBool(props, "Connected"); ok {
		n.Connected = value
	}
	if value, ok := variantPath(props, "Device"); ok {
		n.DevicePath = value
	}
	if value, ok := variantPath(props, "KnownNetwork"); ok {
		n.KnownPath = value
	}
}

// KnownFromProps builds a KnownNetwork from the initial property map of a
// net.connman.iwd.KnownNetwork interface.
func KnownFromProps(path dbus.ObjectPath, props map[string]dbus.Variant) KnownNetwork {
	known := KnownNetwork{Path: path}
	known.ApplyProps(props)
	return known
}

// ApplyProps folds changed KnownNetwork properties into the struct.
func (k *KnownNetwork) ApplyProps(props map[string]dbus.Variant) {
	if value, ok := variantString(props, "Name"); ok {
		k.Name = value
	}
	if value, ok := variantString(props, "Type"); ok {
		k.Type = value
	}
	if value, ok := variantBool(props, "Hidden"); ok {
		k.Hidden = value
	}
	if value, ok := variantBool(props, "AutoConnect"); ok {
		k.AutoConnect = value
	}
	if raw, ok := variantString(props, "LastConnectedTime"); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			k.LastConnected = t
		}
	}
}

func variantString(props map[string]dbus.Variant, key string) (string, bool) {
	if variant, ok := props[key]; ok {
		if value, ok := variant.Value().(string); ok {
			return value, true
		}
	}
	return "", false
}

func variantBool(props map[string]dbus.Variant, key string) (bool, bool) {
	if variant, ok := props[key]; ok {
		if value, ok := variant.Value().(bool); ok {
			return value, true
		}
	}
	return false, false
}

func variantPath(props map[string]dbus.Variant, key string) (dbus.ObjectPath, bool) {
	if variant, ok := props[key]; ok {
		if value, ok := variant.Value().(dbus.ObjectPath); ok {
			return value, true
		}
	}
	return "", false
}
