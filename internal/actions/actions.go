// Package actions defines the closed set of toolbar actions and how they are
// grouped for display.
package actions

import (
	"fmt"
	"strings"
)

// Action identifies one toolbar action.
type Action string

const (
	GenerateAll       Action = "all"
	GenerateStartHere Action = "start-here"
	Copy              Action = "copy"
	DownloadText      Action = "txt-download"
	DownloadSVG       Action = "svg-download"
	DownloadPNG       Action = "png-download"
	OpenSVG           Action = "svg-url"
	OpenPNG           Action = "png-url"
)

// Kind is the family an action belongs to.
type Kind string

const (
	KindGenerate Kind = "generate"
	KindCopy     Kind = "copy"
	KindDownload Kind = "download"
	KindURL      Kind = "url"
)

var all = []Action{
	GenerateAll, GenerateStartHere,
	Copy,
	DownloadText, DownloadSVG, DownloadPNG,
	OpenSVG, OpenPNG,
}

var details = map[Action]struct {
	kind  Kind
	label string
	op    string
}{
	GenerateAll:       {KindGenerate, "All", "generate sitemap"},
	GenerateStartHere: {KindGenerate, "Start Here", "generate sitemap from current page"},
	Copy:              {KindCopy, "Copy", "copy sitemap"},
	DownloadText:      {KindDownload, "Txt", "download text"},
	DownloadSVG:       {KindDownload, "SVG", "download SVG"},
	DownloadPNG:       {KindDownload, "PNG", "download PNG"},
	OpenSVG:           {KindURL, "SVG", "open SVG"},
	OpenPNG:           {KindURL, "PNG", "open PNG"},
}

// All returns every action in toolbar order.
func All() []Action {
	out := make([]Action, len(all))
	copy(out, all)
	return out
}

// Parse converts a string such as "svg-download" into an Action.
func Parse(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := details[a]; !ok {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

func (a Action) String() string { return string(a) }

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	_, ok := details[a]
	return ok
}

// Kind returns the action's family.
func (a Action) Kind() Kind { return details[a].kind }

// Label is the short button caption.
func (a Action) Label() string { return details[a].label }

// Operation names the action in notifications, as in "Failed to <op>: ...".
func (a Action) Operation() string { return details[a].op }

// Group is a labelled row of toolbar buttons.
type Group struct {
	Kind    Kind     `json:"kind"`
	Label   string   `json:"label"`
	Actions []Action `json:"actions"`
}

var groupLabels = []struct {
	kind  Kind
	label string
}{
	{KindGenerate, "Sitemap"},
	{KindCopy, "Code"},
	{KindDownload, "Download"},
	{KindURL, "URL"},
}

// Groups returns the toolbar layout.
func Groups() []Group {
	groups := make([]Group, 0, len(groupLabels))
	for _, gl := range groupLabels {
		g := Group{Kind: gl.kind, Label: gl.label}
		for _, a := range all {
			if a.Kind() == gl.kind {
				g.Actions = append(g.Actions, a)
			}
		}
		groups = append(groups, g)
	}
	return groups
}
