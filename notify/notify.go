// Package notify delivers desktop notifications over the session bus
// notification service. Notifications are best effort: failures are logged
// and never surface into the session.
package notify

import (
	"github.com/godbus/dbus/v5"
)

const (
	notifyBusName   = "org.freedesktop.Notifications"
	notifyPath      = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyInterface = "org.freedesktop.Notifications"

	defaultTimeoutMs = 3000
)

// Notifier posts one transient notification.
type Notifier interface {
	Notify(summary, body, icon string)
}

type Config struct {
	// AppName is shown by the notification daemon, defaults to the
	// program name.
	AppName string
	Logger  Logger
}

// Dbus is the session-bus backed Notifier.
type Dbus struct {
	log     Logger
	conn    *dbus.Conn
	appName string
}

var _ Notifier = (*Dbus)(nil)

func New(config *Config) (*Dbus, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}

	notifier := &Dbus{
		conn:    conn,
		appName: config.AppName,
	}

	if notifier.appName == "" {
		notifier.appName = "iwdmenu"
	}

	if config.Logger != nil {
		notifier.log = config.Logger
	} else {
		notifier.log = noopLogger{}
	}

	return notifier, nil
}

func (n *Dbus) Notify(summary, body, icon string) {
	call := n.conn.Object(notifyBusName, notifyPath).Call(
		notifyInterface+".Notify", 0,
		n.appName,
		uint32(0),             // no notification to replace
		icon,
		summary,
		body,
		[]string{},            // actions
		map[string]dbus.Variant{},
		int32(defaultTimeoutMs),
	)
	if call.Err != nil {
		n.log.Warnf("Could not send notification: %v", call.Err)
	}
}

// Noop is the fallback Notifier when no session bus is available.
type Noop struct{}

var _ Notifier = (*Noop)(nil)

func NewNoop() *Noop {
	return &Noop{}
}

func (*Noop) Notify(summary, body, icon string) {}
