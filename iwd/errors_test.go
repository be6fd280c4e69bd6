package iwd

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestClassifyDaemonRejection(t *testing.T) {
	err := classify(dbus.Error{
		Name: "net.connman.iwd.InvalidFormat",
		Body: []interface{}{"Argument format is invalid"},
	})

	callErr, ok := err.(*CallError)
	if !ok {
		t.Fatalf("classified as %T, want *CallError", err)
	}
	if callErr.Reason() != "Argument format is invalid" {
		t.Fatalf("reason = %q", callErr.Reason())
	}
	if callErr.Aborted() {
		t.Fatal("rejection must not count as aborted")
	}
}

func TestReasonFallsBackToTrimmedName(t *testing.T) {
	callErr := &CallError{Name: "net.connman.iwd.Failed"}

	if callErr.Reason() != "Failed" {
		t.Fatalf("reason = %q, want Failed", callErr.Reason())
	}
}

func TestAborted(t *testing.T) {
	callErr := &CallError{Name: "net.connman.iwd.Aborted"}

	if !callErr.Aborted() {
		t.Fatal("abort not recognized")
	}
}

func TestClassifyTransportFailure(t *testing.T) {
	err := classify(errors.New("connection closed by user"))

	if _, ok := err.(*TransportError); !ok {
		t.Fatalf("classified as %T, want *TransportError", err)
	}
}

func TestClassifyNil(t *testing.T) {
	if err := classify(nil); err != nil {
		t.Fatalf("classify(nil) = %v", err)
	}
}
