package window

import (
	"math/bits"
	"strings"

	"github.com/1broseidon/winlink/internal/geom"
	"github.com/1broseidon/winlink/internal/platform"
)

// State is a full snapshot of a window as the model sees it.
type State struct {
	Center            geom.Point             `json:"center"`
	HalfSize          geom.Point             `json:"half_size"`
	Frame             bool                   `json:"frame"`
	Hidden            bool                   `json:"hidden"`
	State             platform.WindowState   `json:"state"`
	Icon              string                 `json:"icon"`
	Title             string                 `json:"title"`
	ShowTaskbarIcon   bool                   `json:"show_taskbar_icon"`
	ResizeConstraints geom.ResizeConstraints `json:"resize_constraints"`
	Opacity           float64                `json:"opacity"`
	AlwaysOnTop       bool                   `json:"always_on_top"`
	Maximizable       bool                   `json:"maximizable"`
}

// Bounds returns the center-based geometry.
func (s State) Bounds() geom.Bounds {
	return geom.Bounds{Center: s.Center, HalfSize: s.HalfSize}
}

// Field is a bitmask naming State fields.
type Field uint16

const (
	FieldCenter Field = 1 << iota
	FieldHalfSize
	FieldFrame
	FieldHidden
	FieldState
	FieldIcon
	FieldTitle
	FieldShowTaskbarIcon
	FieldResizeConstraints
	FieldOpacity
	FieldAlwaysOnTop
	FieldMaximizable

	fieldEnd
)

const (
	// AllFields covers every State field.
	AllFields = fieldEnd - 1
	// FieldGeometry is the center-based rectangle.
	FieldGeometry = FieldCenter | FieldHalfSize
	// optionFields are batched into a single options update.
	optionFields = FieldFrame | FieldIcon | FieldTitle | FieldShowTaskbarIcon |
		FieldOpacity | FieldAlwaysOnTop | FieldMaximizable
)

var fieldNames = map[Field]string{
	FieldCenter:            "center",
	FieldHalfSize:          "halfSize",
	FieldFrame:             "frame",
	FieldHidden:            "hidden",
	FieldState:             "state",
	FieldIcon:              "icon",
	FieldTitle:             "title",
	FieldShowTaskbarIcon:   "showTaskbarIcon",
	FieldResizeConstraints: "resizeConstraints",
	FieldOpacity:           "opacity",
	FieldAlwaysOnTop:       "alwaysOnTop",
	FieldMaximizable:       "maximizable",
}

// ParseField looks up a field by its name.
func ParseField(name string) (Field, bool) {
	for f, n := range fieldNames {
		if strings.EqualFold(n, name) {
			return f, true
		}
	}
	return 0, false
}

// Each calls fn for every field set in f, lowest bit first.
func (f Field) Each(fn func(Field)) {
	for rest := f & AllFields; rest != 0; rest &= rest - 1 {
		fn(Field(1) << bits.TrailingZeros16(uint16(rest)))
	}
}

// Names lists the set fields.
func (f Field) Names() []string {
	var out []string
	f.Each(func(one Field) { out = append(out, fieldNames[one]) })
	return out
}

func (f Field) String() string {
	if f == 0 {
		return "none"
	}
	return strings.Join(f.Names(), "|")
}

// fieldEqual compares a single field of a and b.
func fieldEqual(f Field, a, b *State) bool {
	switch f {
	case FieldCenter:
		return a.Center == b.Center
	case FieldHalfSize:
		return a.HalfSize == b.HalfSize
	case FieldFrame:
		return a.Frame == b.Frame
	case FieldHidden:
		return a.Hidden == b.Hidden
	case FieldState:
		return a.State == b.State
	case FieldIcon:
		return a.Icon == b.Icon
	case FieldTitle:
		return a.Title == b.Title
	case FieldShowTaskbarIcon:
		return a.ShowTaskbarIcon == b.ShowTaskbarIcon
	case FieldResizeConstraints:
		return a.ResizeConstraints == b.ResizeConstraints
	case FieldOpacity:
		return a.Opacity == b.Opacity
	case FieldAlwaysOnTop:
		return a.AlwaysOnTop == b.AlwaysOnTop
	case FieldMaximizable:
		return a.Maximizable == b.Maximizable
	}
	return true
}

// copyField copies a single field from src to dst.
func copyField(f Field, dst, src *State) {
	switch f {
	case FieldCenter:
		dst.Center = src.Center
	case FieldHalfSize:
		dst.HalfSize = src.HalfSize
	case FieldFrame:
		dst.Frame = src.Frame
	case FieldHidden:
		dst.Hidden = src.Hidden
	case FieldState:
		dst.State = src.State
	case FieldIcon:
		dst.Icon = src.Icon
	case FieldTitle:
		dst.Title = src.Title
	case FieldShowTaskbarIcon:
		dst.ShowTaskbarIcon = src.ShowTaskbarIcon
	case FieldResizeConstraints:
		dst.ResizeConstraints = src.ResizeConstraints
	case FieldOpacity:
		dst.Opacity = src.Opacity
	case FieldAlwaysOnTop:
		dst.AlwaysOnTop = src.AlwaysOnTop
	case FieldMaximizable:
		dst.Maximizable = src.Maximizable
	}
}

// diffFields returns the fields in mask whose values differ between a and b.
func diffFields(mask Field, a, b *State) Field {
	var out Field
	mask.Each(func(f Field) {
		if !fieldEqual(f, a, b) {
			out |= f
		}
	})
	return out
}

// Delta is a sparse set of field values. Only fields in its mask carry
// meaning; the zero Delta changes nothing.
type Delta struct {
	fields Field
	values State
}

// DeltaOf takes the given fields from s.
func DeltaOf(s State, fields Field) Delta {
	var d Delta
	fields.Each(func(f Field) { d.set(f, &s) })
	return d
}

// Fields returns the mask of set fields.
func (d Delta) Fields() Field { return d.fields }

// Has reports whether f is set.
func (d Delta) Has(f Field) bool { return d.fields&f == f && f != 0 }

// Empty reports whether no field is set.
func (d Delta) Empty() bool { return d.fields == 0 }

// Values returns the carried values. Fields outside the mask are zero.
func (d Delta) Values() State { return d.values }

// Only restricts d to the given fields.
func (d Delta) Only(fields Field) Delta {
	return DeltaOf(d.values, d.fields&fields)
}

// ApplyTo writes the set fields into s.
func (d Delta) ApplyTo(s *State) {
	d.fields.Each(func(f Field) { copyField(f, s, &d.values) })
}

func (d *Delta) set(f Field, src *State) {
	copyField(f, &d.values, src)
	d.fields |= f
}

func (d *Delta) clear(f Field) {
	var zero State
	copyField(f, &d.values, &zero)
	d.fields &^= f
}

func (d Delta) with(f Field, fn func(*State)) Delta {
	fn(&d.values)
	d.fields |= f
	return d
}

func (d Delta) WithCenter(p geom.Point) Delta {
	return d.with(FieldCenter, func(s *State) { s.Center = p })
}

func (d Delta) WithHalfSize(p geom.Point) Delta {
	return d.with(FieldHalfSize, func(s *State) { s.HalfSize = p })
}

// WithBounds sets both geometry fields.
func (d Delta) WithBounds(b geom.Bounds) Delta {
	return d.WithCenter(b.Center).WithHalfSize(b.HalfSize)
}

func (d Delta) WithFrame(v bool) Delta {
	return d.with(FieldFrame, func(s *State) { s.Frame = v })
}

func (d Delta) WithHidden(v bool) Delta {
	return d.with(FieldHidden, func(s *State) { s.Hidden = v })
}

func (d Delta) WithState(v platform.WindowState) Delta {
	return d.with(FieldState, func(s *State) { s.State = v })
}

func (d Delta) WithIcon(v string) Delta {
	return d.with(FieldIcon, func(s *State) { s.Icon = v })
}

func (d Delta) WithTitle(v string) Delta {
	return d.with(FieldTitle, func(s *State) { s.Title = v })
}

func (d Delta) WithShowTaskbarIcon(v bool) Delta {
	return d.with(FieldShowTaskbarIcon, func(s *State) { s.ShowTaskbarIcon = v })
}

func (d Delta) WithResizeConstraints(v geom.ResizeConstraints) Delta {
	return d.with(FieldResizeConstraints, func(s *State) { s.ResizeConstraints = v })
}

func (d Delta) WithOpacity(v float64) Delta {
	return d.with(FieldOpacity, func(s *State) { s.Opacity = v })
}

func (d Delta) WithAlwaysOnTop(v bool) Delta {
	return d.with(FieldAlwaysOnTop, func(s *State) { s.AlwaysOnTop = v })
}

func (d Delta) WithMaximizable(v bool) Delta {
	return d.with(FieldMaximizable, func(s *State) { s.Maximizable = v })
}
