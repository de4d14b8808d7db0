package route

import (
	"fmt"
	"sort"
)

// SelectionState is which route is selected and whether the alternatives are
// drawn. Transitions return a new value and never mutate the receiver.
type SelectionState struct {
	SelectedIndex int  `json:"selected_index"`
	ShowAllRoutes bool `json:"show_all_routes"`
}

// InitialSelection is the state before the first fetch.
func InitialSelection() SelectionState {
	return SelectionState{SelectedIndex: 0, ShowAllRoutes: true}
}

// SelectRouteOnly focuses a single route.
func (s SelectionState) SelectRouteOnly(index int) SelectionState {
	return SelectionState{SelectedIndex: index, ShowAllRoutes: false}
}

// ToggleShowAll flips between focus mode and showing every route.
func (s SelectionState) ToggleShowAll() SelectionState {
	return SelectionState{SelectedIndex: s.SelectedIndex, ShowAllRoutes: !s.ShowAllRoutes}
}

// ResetForPrimary is the state after a successful fetch.
func (s SelectionState) ResetForPrimary(primary int) SelectionState {
	if primary < 0 {
		primary = 0
	}
	return SelectionState{SelectedIndex: primary, ShowAllRoutes: true}
}

// Emphasis ranks how prominently a route is drawn.
type Emphasis int

const (
	EmphasisOther Emphasis = iota
	EmphasisPrimary
	EmphasisSelected
	EmphasisSelectedPrimary
)

func (e Emphasis) String() string {
	switch e {
	case EmphasisSelectedPrimary:
		return "selected_primary"
	case EmphasisSelected:
		return "selected"
	case EmphasisPrimary:
		return "primary"
	default:
		return "other"
	}
}

// MarshalText encodes the emphasis by name.
func (e Emphasis) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText decodes an emphasis name.
func (e *Emphasis) UnmarshalText(text []byte) error {
	switch string(text) {
	case "selected_primary":
		*e = EmphasisSelectedPrimary
	case "selected":
		*e = EmphasisSelected
	case "primary":
		*e = EmphasisPrimary
	case "other":
		*e = EmphasisOther
	default:
		return fmt.Errorf("unknown emphasis %q", text)
	}
	return nil
}

// StrokeLayer is one pass of the two-layer line style.
type StrokeLayer struct {
	Role    string  `json:"role"`
	Color   string  `json:"color"`
	Width   float64 `json:"width"`
	Opacity float64 `json:"opacity"`
}

const (
	outlineColor   = "#1f2937"
	outlineWidth   = 9
	outlineOpacity = 0.35
	fillWidth      = 5
	fillWidthBold  = 6
	fillOpacity    = 0.9
)

// RouteDisplay is the derived rendering state of one route.
type RouteDisplay struct {
	Index    int           `json:"index"`
	Visible  bool          `json:"visible"`
	Selected bool          `json:"selected"`
	Primary  bool          `json:"primary"`
	Emphasis Emphasis      `json:"emphasis"`
	ZIndex   int           `json:"z_index"`
	Layers   []StrokeLayer `json:"layers,omitempty"`
}

// Derive computes the display state of a single route.
func (s SelectionState) Derive(v RouteView) RouteDisplay {
	selected := v.Index == s.SelectedIndex
	d := RouteDisplay{
		Index:    v.Index,
		Selected: selected,
		Primary:  v.IsPrimary,
		Visible:  s.ShowAllRoutes || selected,
	}

	switch {
	case selected && v.IsPrimary:
		d.Emphasis = EmphasisSelectedPrimary
	case selected:
		d.Emphasis = EmphasisSelected
	case v.IsPrimary:
		d.Emphasis = EmphasisPrimary
	default:
		d.Emphasis = EmphasisOther
	}
	// Higher emphasis draws on top; among equals, lower rank draws on top.
	d.ZIndex = int(d.Emphasis)*10 + (MaxRoutes - v.Index)

	if d.Visible {
		width := float64(fillWidth)
		if d.Emphasis != EmphasisOther {
			width = fillWidthBold
		}
		d.Layers = []StrokeLayer{
			{Role: "outline", Color: outlineColor, Width: outlineWidth, Opacity: outlineOpacity},
			{Role: "fill", Color: v.Color, Width: width, Opacity: fillOpacity},
		}
	}
	return d
}

// DeriveAll computes display state for every route, in route order.
func (s SelectionState) DeriveAll(views []RouteView) []RouteDisplay {
	out := make([]RouteDisplay, len(views))
	for i, v := range views {
		out[i] = s.Derive(v)
	}
	return out
}

// DrawOrder returns the visible routes sorted bottom to top.
func DrawOrder(displays []RouteDisplay) []RouteDisplay {
	out := make([]RouteDisplay, 0, len(displays))
	for _, d := range displays {
		if d.Visible {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}
