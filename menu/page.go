// Package menu builds the line-oriented pages written to the selector
// process and matches its answer back to an action. Pages are rebuilt from
// a catalog snapshot on every render and never mutated in place.
package menu

import (
	"strings"

	"iwdmenu/catalog"
)

// Action is the opaque tag behind one selectable line.
type Action interface {
	isAction()
}

type ScanAction struct{}

type KnownNetworksAction struct{}

type SettingsAction struct{}

type PowerOnAction struct{}

type PowerOffAction struct{}

// SelectNetworkAction carries the identity of the chosen network, not its
// daemon handle, so a stale selection is detectable after a refresh.
type SelectNetworkAction struct {
	Key catalog.Key
}

type SelectAdapterAction struct {
	Path string
}

// KnownNetworkOptionsAction opens the options page of one known entry.
type KnownNetworkOptionsAction struct {
	Path string
}

type ForgetAction struct {
	Path string
}

type ToggleAutoConnectAction struct {
	Path   string
	Enable bool
}

func (ScanAction) isAction()                {}
func (KnownNetworksAction) isAction()       {}
func (SettingsAction) isAction()            {}
func (PowerOnAction) isAction()             {}
func (PowerOffAction) isAction()            {}
func (SelectNetworkAction) isAction()       {}
func (SelectAdapterAction) isAction()       {}
func (KnownNetworkOptionsAction) isAction() {}
func (ForgetAction) isAction()              {}
func (ToggleAutoConnectAction) isAction()   {}

// Line is one row of a page. Non-selectable lines, like the scanning
// notice, are displayed but carry no action.
type Line struct {
	Text   string
	Action Action
}

// Page is one menu step: the lines piped to the selector plus the prompt
// shown by launchers that support one. Password pages carry no lines; the
// selector's raw output is the secret.
type Page struct {
	Prompt   string
	Lines    []Line
	Password bool
}

// Input renders the page the way the selector process expects it: one line
// per entry, in order.
func (p *Page) Input() string {
	texts := make([]string, len(p.Lines))
	for i, line := range p.Lines {
		texts[i] = line.Text
	}
	return strings.Join(texts, "\n")
}

// MatchResult classifies what the selector's output referred to.
type MatchResult int

const (
	// Matched: the output names a selectable line; its action applies.
	Matched MatchResult = iota
	// Unselectable: the output names a displayed line with no action.
	Unselectable
	// NoMatch: the output names no line at all.
	NoMatch
)

// Match resolves the selector's raw output against the page by exact
// string equality.
func (p *Page) Match(output string) (Action, MatchResult) {
	for _, line := range p.Lines {
		if line.Text != output {
			continue
		}
		if line.Action == nil {
			return nil, Unselectable
		}
		return line.Action, Matched
	}
	return nil, NoMatch
}
