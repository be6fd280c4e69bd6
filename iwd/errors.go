package iwd

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// TransportError means the daemon session itself is gone. It is fatal for
// the interactive session, unlike a rejected call.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("iwd transport failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CallError is a single rejected method call. Name keeps the daemon's own
// D-Bus error name so the failure reason can be shown to the user verbatim.
type CallError struct {
	Name    string
	Message string
}

func (e *CallError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Name
}

// Reason returns a short human-readable failure reason, preferring the
// daemon's message over the raw error name.
func (e *CallError) Reason() string {
	if e.Message != "" {
		return e.Message
	}
	return strings.TrimPrefix(e.Name, errorPrefix)
}

// Aborted reports whether the daemon cancelled the operation, which happens
// when the user dismisses a pending authentication request.
func (e *CallError) Aborted() bool {
	return e.Name == errorPrefix+"Aborted"
}

const errorPrefix = "net.connman.iwd."

// classify turns a godbus error into the session's error taxonomy. Errors
// carrying a D-Bus error name were rejected by the daemon and are
// recoverable; everything else means the transport is broken.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if dbusErr, ok := err.(dbus.Error); ok {
		return &CallError{Name: dbusErr.Name, Message: dbusErrorMessage(dbusErr)}
	}
	return &TransportError{Err: err}
}

func dbusErrorMessage(err dbus.Error) string {
	if len(err.Body) == 0 {
		return ""
	}
	if msg, ok := err.Body[0].(string); ok {
		return msg
	}
	return ""
}
