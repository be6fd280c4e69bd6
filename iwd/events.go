package iwd

import "github.com/godbus/dbus/v5"

// Event is one daemon-origin change notification. Events are delivered on a
// single channel in daemon-emission order; consumers must apply them from
// one goroutine only.
type Event interface {
	isEvent()
}

// PropertiesChanged reports changed properties on one daemon object.
type PropertiesChanged struct {
	Path        dbus.ObjectPath
	Interface   string
	Values      map[string]dbus.Variant
	Invalidated []string
}

// ObjectAdded reports a new daemon object, for example a freshly discovered
// network, with the initial properties of each of its interfaces.
type ObjectAdded struct {
	Path       dbus.ObjectPath
	Interfaces map[string]map[string]dbus.Variant
}

// ObjectRemoved reports a vanished daemon object.
type ObjectRemoved struct {
	Path       dbus.ObjectPath
	Interfaces []string
}

// ConnectFinished reports the outcome of an asynchronous connect attempt.
// It travels through the same event channel as the bus signals so that the
// consumer observes it strictly after any state changes the daemon emitted
// before completing the call. Err is nil on success, a *CallError when the
// daemon rejected the attempt.
type ConnectFinished struct {
	NetworkPath dbus.ObjectPath
	Err         error
}

func (PropertiesChanged) isEvent() {}
func (ObjectAdded) isEvent()       {}
func (ObjectRemoved) isEvent()     {}
func (ConnectFinished) isEvent()   {}

func decodeSignal(signal *dbus.Signal) Event {
	switch signal.Name {
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		if len(signal.Body) < 3 {
			return nil
		}
		iface, ok := signal.Body[0].(string)
		if !ok {
			return nil
		}
		values, ok := signal.Body[1].(map[string]dbus.Variant)
		if !ok {
			return nil
		}
		invalidated, _ := signal.Body[2].([]string)
		return PropertiesChanged{
			Path:        signal.Path,
			Interface:   iface,
			Values:      values,
			Invalidated: invalidated,
		}

	case "org.freedesktop.DBus.ObjectManager.InterfacesAdded":
		if len(signal.Body) < 2 {
			return nil
		}
		path, ok := signal.Body[0].(dbus.ObjectPath)
		if !ok {
			return nil
		}
		ifaces, ok := signal.Body[1].(map[string]map[string]dbus.Variant)
		if !ok {
			return nil
		}
		return ObjectAdded{Path: path, Interfaces: ifaces}

	case "org.freedesktop.DBus.ObjectManager.InterfacesRemoved":
		if len(signal.Body) < 2 {
			return nil
		}
		path, ok := signal.Body[0].(dbus.ObjectPath)
		if !ok {
			return nil
		}
		ifaces, ok := signal.Body[1].([]string)
		if !ok {
			return nil
		}
		return ObjectRemoved{Path: path, Interfaces: ifaces}
	}

	return nil
}
