// Package icons maps menu entries and network states to either nerd-font
// glyphs or XDG icon names, depending on what the configured launcher can
// display.
package icons

import "strings"

// Kind selects the icon style for menu lines.
type Kind string

const (
	// Font renders a glyph before the label.
	Font Kind = "font"
	// Xdg appends a rofi icon escape naming a themed icon.
	Xdg Kind = "xdg"
)

var fontGlyphs = map[string]rune{
	"connected":              '\U000f05a9',
	"disconnected":           '\U000f16bc',
	"scan":                   '\U0000f46a',
	"settings":               '\U000f0493',
	"known_networks":         '\U000f0134',
	"power_on_device":        '\U000f0425',
	"disable_adapter":        '\U000f092d',
	"forget_network":         '\U000f0377',
	"enable_autoconnect":     '\U000f006a',
	"disable_autoconnect":    '\U000f0415',
	"signal_weak_open":       '\U000f16cb',
	"signal_weak_secure":     '\U000f0921',
	"signal_ok_open":         '\U000f16cc',
	"signal_ok_secure":       '\U000f0924',
	"signal_good_open":       '\U000f16cd',
	"signal_good_secure":     '\U000f0927',
	"signal_excellent_open":  '\U000f16ce',
	"signal_excellent_secure": '\U000f092a',
}

var xdgNames = map[string]string{
	"connected":              "network-wireless-connected",
	"disconnected":           "network-wireless-offline",
	"scan":                   "sync-synchronizing",
	"settings":               "preferences-system",
	"known_networks":         "app-installed",
	"power_on_device":        "system-shutdown",
	"disable_adapter":        "network-wireless-disabled",
	"forget_network":         "close",
	"enable_autoconnect":     "on",
	"disable_autoconnect":    "off",
	"signal_weak_open":       "network-wireless-signal-weak",
	"signal_weak_secure":     "network-wireless-signal-weak-secure",
	"signal_ok_open":         "network-wireless-signal-ok",
	"signal_ok_secure":       "network-wireless-signal-ok-secure",
	"signal_good_open":       "network-wireless-signal-good",
	"signal_good_secure":     "network-wireless-signal-good-secure",
	"signal_excellent_open":  "network-wireless-signal-excellent",
	"signal_excellent_secure": "network-wireless-signal-excellent-secure",
}

// Set resolves icon keys for one configured style.
type Set struct {
	kind   Kind
	spaces int
}

// New builds a Set. spaces is the gap between a font glyph and its label.
func New(kind Kind, spaces int) *Set {
	if spaces <= 0 {
		spaces = 1
	}
	return &Set{kind: kind, spaces: spaces}
}

// Decorate turns a label into one menu line carrying its icon. Font icons
// are prefixed; XDG icons use the rofi null-byte escape so the label text
// itself stays untouched for selection matching.
func (s *Set) Decorate(key, label string) string {
	switch s.kind {
	case Font:
		glyph, ok := fontGlyphs[key]
		if !ok {
			return label
		}
		return string(glyph) + strings.Repeat(" ", s.spaces) + label
	case Xdg:
		name, ok := xdgNames[key]
		if !ok {
			return label
		}
		return label + "\x00icon\x1f" + name
	}
	return label
}

// Xdg resolves an icon key to a themed icon name for notifications,
// regardless of the configured menu style.
func (s *Set) Xdg(key string) string {
	if name, ok := xdgNames[key]; ok {
		return name
	}
	return "network-wireless"
}

// NetworkKey picks the icon for a network from its security, connected
// flag and signal strength (100 * dBm).
func NetworkKey(secured, connected bool, signal int16) string {
	if connected {
		return "connected"
	}

	suffix := "open"
	if secured {
		suffix = "secure"
	}

	return "signal_" + signalBucket(signal) + "_" + suffix
}

// signalBucket maps a strength in 100 * dBm onto the four display buckets.
func signalBucket(signal int16) string {
	dbm := int(signal) / 100
	switch {
	case dbm >= -60:
		return "excellent"
	case dbm >= -67:
		return "good"
	case dbm >= -75:
		return "ok"
	default:
		return "weak"
	}
}
