package catalog

import (
	"github.com/godbus/dbus/v5"

	"iwdmenu/iwd"
)

// ApplyEvent folds one daemon event into the model. It is a pure state
// transition: no I/O, no retries, so recorded event sequences replay
// identically in tests. Events must be applied in daemon-emission order
// from a single goroutine.
func (c *Catalog) ApplyEvent(event iwd.Event) {
	switch event := event.(type) {
	case iwd.PropertiesChanged:
		c.applyPropertiesChanged(event)
	case iwd.ObjectAdded:
		c.applyObjectAdded(event)
	case iwd.ObjectRemoved:
		c.applyObjectRemoved(event)
	case iwd.ConnectFinished:
		c.applyConnectFinished(event)
	default:
		return
	}

	c.generation++
}

func (c *Catalog) applyPropertiesChanged(event iwd.PropertiesChanged) {
	switch event.Interface {
	case iwd.InterfaceDevice:
		adapter, ok := c.adapters[event.Path]
		if !ok {
			return
		}
		if name, ok := propString(event.Values, "Name"); ok {
			adapter.Name = name
		}
		if mode, ok := propString(event.Values, "Mode"); ok {
			adapter.Mode = mode
		}
		if powered, ok := propBool(event.Values, "Powered"); ok {
			adapter.Powered = powered
		}

	case iwd.InterfaceStation:
		adapter, ok := c.adapters[event.Path]
		if !ok {
			return
		}
		if state, ok := propString(event.Values, "State"); ok {
			next := connStateFromDaemon(state)
			if next != StateDisconnected || adapter.State != StateFailed {
				adapter.State = next
			}
			if next == StateConnecting || next == StateConnected {
				adapter.FailReason = ""
			}
			c.log.Debugf("Station %v is now %v", event.Path, next)
		}
		if scanning, ok := propBool(event.Values, "Scanning"); ok {
			if scanning {
				adapter.Scan = Scanning
			} else {
				adapter.Scan = ScanIdle
			}
		}
		if connected, ok := propPath(event.Values, "ConnectedNetwork"); ok {
			adapter.ConnectedNetwork = connected
			c.markConnected(event.Path, connected)
		}
		for _, name := range event.Invalidated {
			if name == "ConnectedNetwork" {
				adapter.ConnectedNetwork = ""
				c.markConnected(event.Path, "")
			}
		}

	case iwd.InterfaceNetwork:
		key, ok := c.networkPaths[event.Path]
		if !ok {
			return
		}
		network := c.networks[key]
		if connected, ok := propBool(event.Values, "Connected"); ok {
			network.Connected = connected
		}
		if knownPath, ok := propPath(event.Values, "KnownNetwork"); ok {
			c.linkKnown(network, knownPath)
		}
		for _, name := range event.Invalidated {
			if name == "KnownNetwork" {
				c.linkKnown(network, "")
			}
		}

	case iwd.InterfaceKnownNetwork:
		known, ok := c.known[event.Path]
		if !ok {
			return
		}
		if autoConnect, ok := propBool(event.Values, "AutoConnect"); ok {
			known.AutoConnect = autoConnect
			for _, network := range c.networks {
				if network.KnownPath == event.Path {
					network.AutoConnect = autoConnect
				}
			}
		}
		if hidden, ok := propBool(event.Values, "Hidden"); ok {
			known.Hidden = hidden
		}
	}
}

func (c *Catalog) applyObjectAdded(event iwd.ObjectAdded) {
	if props, ok := event.Interfaces[iwd.InterfaceKnownNetwork]; ok {
		known := iwd.KnownFromProps(event.Path, props)
		c.known[event.Path] = &KnownNetwork{
			Path:        known.Path,
			Name:        known.Name,
			Security:    Security(known.Type),
			Hidden:      known.Hidden,
			AutoConnect: known.AutoConnect,
		}
	}

	if props, ok := event.Interfaces[iwd.InterfaceNetwork]; ok {
		c.insertNetwork(iwd.NetworkFromProps(event.Path, props))
	}

	if props, ok := event.Interfaces[iwd.InterfaceDevice]; ok {
		device := iwd.DeviceFromProps(event.Path, props)
		if station, ok := event.Interfaces[iwd.InterfaceStation]; ok {
			device.ApplyStationProps(station)
		}
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
		c.adapters[event.Path] = adapter
	}
}

func (c *Catalog) applyObjectRemoved(event iwd.ObjectRemoved) {
	for _, iface := range event.Interfaces {
		switch iface {
		case iwd.InterfaceNetwork:
			if key, ok := c.networkPaths[event.Path]; ok {
				delete(c.networks, key)
				delete(c.networkPaths, event.Path)
			}

		case iwd.InterfaceKnownNetwork:
			delete(c.known, event.Path)
			for _, network := range c.networks {
				if network.KnownPath == event.Path {
					c.linkKnown(network, "")
				}
			}

		case iwd.InterfaceDevice:
			delete(c.adapters, event.Path)
			for key, network := range c.networks {
				if network.Key.Adapter == event.Path {
					delete(c.networkPaths, network.Path)
					delete(c.networks, key)
				}
			}
		}
	}
}

func (c *Catalog) applyConnectFinished(event iwd.ConnectFinished) {
	key, ok := c.networkPaths[event.NetworkPath]
	if !ok {
		return
	}
	adapter, ok := c.adapters[key.Adapter]
	if !ok {
		return
	}

	if event.Err == nil {
		return
	}

	if callErr, ok := event.Err.(*iwd.CallError); ok {
		if callErr.Aborted() {
			adapter.State = StateDisconnected
			adapter.FailReason = ""
			return
		}
		adapter.State = StateFailed
		adapter.FailReason = callErr.Reason()
		return
	}

	adapter.State = StateFailed
	adapter.FailReason = event.Err.Error()
}

// markConnected flips the Connected flag so that exactly the network behind
// connectedPath carries it for the given adapter.
func (c *Catalog) markConnected(adapter, connectedPath dbus.ObjectPath) {
	for _, network := range c.networks {
		if network.Key.Adapter != adapter {
			continue
		}
		network.Connected = network.Path == connectedPath && connectedPath != ""
	}
}

func (c *Catalog) linkKnown(network *Network, knownPath dbus.ObjectPath) {
	if knownPath == "" || knownPath == "/" {
		network.Known = false
		network.KnownPath = ""
		network.AutoConnect = false
		network.Hidden = false
		return
	}

	network.Known = true
	network.KnownPath = knownPath
	if known, ok := c.known[knownPath]; ok {
		network.AutoConnect = known.AutoConnect
		network.Hidden = known.Hidden
	}
}

func propString(props map[string]dbus.Variant, key string) (string, bool) {
	if variant, ok := props[key]; ok {
		if value, ok := variant.Value().(string); ok {
			return value, true
		}
	}
	return "", false
}

func propBool(props map[string]dbus.Variant, key string) (bool, bool) {
	if variant, ok := props[key]; ok {
		if value, ok := variant.Value().(bool); ok {
			return value, true
		}
	}
	return false, false
}

func propPath(props map[string]dbus.Variant, key string) (dbus.ObjectPath, bool) {
	if variant, ok := props[key]; ok {
		if value, ok := variant.Value().(dbus.ObjectPath); ok {
			return value, true
		}
	}
	return "", false
}
