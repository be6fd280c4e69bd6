// Package launcher drives the external selector process: it turns a menu
// page into one subprocess invocation, pipes the lines in and reads the
// single chosen line back. Launcher-specific quirks (prompt vs. placeholder
// flags, password mode) are confined to command construction so the session
// stays launcher-agnostic.
package launcher

import (
	"context"

	"github.com/go-errors/errors"

	"iwdmenu/menu"
)

// ErrDismissed is returned when the user dismissed the selector: empty
// output, non-zero exit, or a child that could not be run at all.
var ErrDismissed = errors.New("selection dismissed")

// Selector shows one page and returns the raw selected line. The two
// implementations are the subprocess-backed Exec and the in-memory Scripted
// used by tests.
type Selector interface {
	Select(ctx context.Context, page *menu.Page) (string, error)
}

// Kind names a supported launcher flavor.
type Kind string

const (
	Dmenu  Kind = "dmenu"
	Rofi   Kind = "rofi"
	Fuzzel Kind = "fuzzel"
	Walker Kind = "walker"
	// Custom runs a user-supplied command template, see Resolve.
	Custom Kind = "custom"
)

// ParseKind validates a configured launcher name.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case Dmenu, Rofi, Fuzzel, Walker, Custom:
		return Kind(name), nil
	}
	return "", errors.Errorf("unknown launcher %q", name)
}
