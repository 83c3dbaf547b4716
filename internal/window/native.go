package window

import (
	"github.com/1broseidon/winlink/internal/geom"
	"github.com/1broseidon/winlink/internal/platform"
)

// DefaultFrameShadow is the invisible resize border Windows draws around
// framed windows. Native bounds include it; the model does not.
var DefaultFrameShadow = geom.Insets{Left: 7, Right: 7, Bottom: 7}

// shadowInsets returns the correction between model and native bounds. It
// only applies to framed windows on Windows.
func shadowInsets(goos string, frame bool, shadow geom.Insets) geom.Insets {
	if goos == "windows" && frame {
		return shadow
	}
	return geom.Insets{}
}

// nativeRect converts model geometry to the rectangle sent to the surface.
func (e *Entity) nativeRect(b geom.Bounds, frame bool) geom.Rect {
	return b.ToRect().Outset(shadowInsets(e.cfg.GOOS, frame, e.cfg.FrameShadow))
}

// modelBounds converts a rectangle reported by the surface to model geometry.
func (e *Entity) modelBounds(r geom.Rect, frame bool) geom.Bounds {
	return geom.FromRect(r.Inset(shadowInsets(e.cfg.GOOS, frame, e.cfg.FrameShadow)))
}

func (e *Entity) stateFromNative(n platform.NativeState) State {
	b := e.modelBounds(n.Bounds, n.Options.Frame)
	state := n.State
	if !state.Valid() {
		state = platform.StateNormal
	}
	return State{
		Center:            b.Center,
		HalfSize:          b.HalfSize,
		Frame:             n.Options.Frame,
		Hidden:            !n.Visible,
		State:             state,
		Icon:              n.Options.Icon,
		Title:             n.Options.Title,
		ShowTaskbarIcon:   n.Options.ShowTaskbarIcon,
		ResizeConstraints: constraintsFromOptions(n.Options),
		Opacity:           n.Options.Opacity,
		AlwaysOnTop:       n.Options.AlwaysOnTop,
		Maximizable:       n.Options.Maximizable,
	}
}

func constraintsFromOptions(o platform.Options) geom.ResizeConstraints {
	maxOrUnbounded := func(v int) int {
		if v <= 0 {
			return geom.UnboundedSize
		}
		return v
	}
	return geom.ResizeConstraints{
		X: geom.ResizeConstraint{
			ResizableMin: o.Resizable && o.ResizeRegion.Left,
			ResizableMax: o.Resizable && o.ResizeRegion.Right,
			MinSize:      o.MinWidth,
			MaxSize:      maxOrUnbounded(o.MaxWidth),
		},
		Y: geom.ResizeConstraint{
			ResizableMin: o.Resizable && o.ResizeRegion.Top,
			ResizableMax: o.Resizable && o.ResizeRegion.Bottom,
			MinSize:      o.MinHeight,
			MaxSize:      maxOrUnbounded(o.MaxHeight),
		},
	}
}

// optionsFromState builds creation options for a new native window.
func optionsFromState(s State) platform.Options {
	rc := s.ResizeConstraints
	maxOrClear := func(c geom.ResizeConstraint) int {
		if c.Bounded() {
			return c.MaxSize
		}
		return platform.ClearSize
	}
	return platform.Options{
		Frame:           s.Frame,
		Icon:            s.Icon,
		Title:           s.Title,
		ShowTaskbarIcon: s.ShowTaskbarIcon,
		Opacity:         s.Opacity,
		AlwaysOnTop:     s.AlwaysOnTop,
		Maximizable:     s.Maximizable,
		Resizable:       rc.X.Resizable() || rc.Y.Resizable(),
		ResizeRegion:    regionFromConstraints(rc),
		MinWidth:        rc.X.MinSize,
		MinHeight:       rc.Y.MinSize,
		MaxWidth:        maxOrClear(rc.X),
		MaxHeight:       maxOrClear(rc.Y),
	}
}

func regionFromConstraints(rc geom.ResizeConstraints) platform.Sides {
	return platform.Sides{
		Top:    rc.Y.ResizableMin,
		Bottom: rc.Y.ResizableMax,
		Left:   rc.X.ResizableMin,
		Right:  rc.X.ResizableMax,
	}
}

// maxSizeOption picks how an axis maximum is sent. A real limit is sent as
// is. An unbounded axis is sent as ClearSize only when a limit existed
// before; the native API treats an explicit clear and an absent value
// differently, and clearing a limit that never existed is rejected.
func maxSizeOption(prev, next geom.ResizeConstraint) (int, bool) {
	if next.Bounded() {
		return next.MaxSize, true
	}
	if prev.Bounded() {
		return platform.ClearSize, true
	}
	return 0, false
}

func constraintsUpdate(prev, next geom.ResizeConstraints) platform.OptionsUpdate {
	u := platform.OptionsUpdate{
		Resizable:    ptr(next.X.Resizable() || next.Y.Resizable()),
		ResizeRegion: ptr(regionFromConstraints(next)),
		MinWidth:     ptr(next.X.MinSize),
		MinHeight:    ptr(next.Y.MinSize),
	}
	if v, ok := maxSizeOption(prev.X, next.X); ok {
		u.MaxWidth = ptr(v)
	}
	if v, ok := maxSizeOption(prev.Y, next.Y); ok {
		u.MaxHeight = ptr(v)
	}
	return u
}

// optionsUpdate batches the simple option fields in changed.
func optionsUpdate(changed Field, s *State) platform.OptionsUpdate {
	var u platform.OptionsUpdate
	changed.Each(func(f Field) {
		switch f {
		case FieldFrame:
			u.Frame = ptr(s.Frame)
		case FieldIcon:
			u.Icon = ptr(s.Icon)
		case FieldTitle:
			u.Title = ptr(s.Title)
		case FieldShowTaskbarIcon:
			u.ShowTaskbarIcon = ptr(s.ShowTaskbarIcon)
		case FieldOpacity:
			u.Opacity = ptr(s.Opacity)
		case FieldAlwaysOnTop:
			u.AlwaysOnTop = ptr(s.AlwaysOnTop)
		case FieldMaximizable:
			u.Maximizable = ptr(s.Maximizable)
		}
	})
	return u
}

func ptr[T any](v T) *T { return &v }
