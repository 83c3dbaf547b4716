package x11

import (
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/motif"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// EWMH state atoms the surface reads and toggles.
const (
	StateHidden        = "_NET_WM_STATE_HIDDEN"
	StateMaximizedHorz = "_NET_WM_STATE_MAXIMIZED_HORZ"
	StateMaximizedVert = "_NET_WM_STATE_MAXIMIZED_VERT"
	StateAbove         = "_NET_WM_STATE_ABOVE"
	StateSkipTaskbar   = "_NET_WM_STATE_SKIP_TASKBAR"
)

// Rect is a window rectangle in root coordinates.
type Rect struct {
	X, Y, Width, Height int
}

// SizeHints is the subset of WM_NORMAL_HINTS the surface manages. A zero
// maximum means unbounded.
type SizeHints struct {
	MinWidth, MinHeight int
	MaxWidth, MaxHeight int
}

// Geometry returns the client rectangle of windowID in root coordinates.
func (c *Connection) Geometry(windowID xproto.Window) (Rect, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return Rect{}, err
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return Rect{}, err
	}

	return Rect{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// MoveResizeWindow moves and resizes a window to the specified geometry
func (c *Connection) MoveResizeWindow(windowID xproto.Window, r Rect) error {
	// Use EWMH MoveResize for better WM compatibility
	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, r.X, r.Y, r.Width, r.Height); err != nil {
		// Fallback to direct window manipulation
		xwindow.New(c.XUtil, windowID).MoveResize(r.X, r.Y, r.Width, r.Height)
	}
	return nil
}

// States returns the _NET_WM_STATE atoms set on windowID.
func (c *Connection) States(windowID xproto.Window) ([]string, error) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		// Property absent: no states.
		if _, gerr := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply(); gerr != nil {
			return nil, gerr
		}
		return nil, nil
	}
	return states, nil
}

// HasState reports whether state is in states.
func HasState(states []string, state string) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

// SetState adds or removes a single _NET_WM_STATE atom.
func (c *Connection) SetState(windowID xproto.Window, state string, on bool) error {
	action := ewmh.StateRemove
	if on {
		action = ewmh.StateAdd
	}
	return ewmh.WmStateReq(c.XUtil, windowID, action, state)
}

// Maximize asks the window manager to maximize in both directions.
func (c *Connection) Maximize(windowID xproto.Window) error {
	return ewmh.WmStateReqExtra(c.XUtil, windowID, ewmh.StateAdd, StateMaximizedHorz, StateMaximizedVert, 2)
}

// Unmaximize removes maximized state from a window
func (c *Connection) Unmaximize(windowID xproto.Window) error {
	return ewmh.WmStateReqExtra(c.XUtil, windowID, ewmh.StateRemove, StateMaximizedHorz, StateMaximizedVert, 2)
}

// Minimize iconifies a window via WM_CHANGE_STATE.
func (c *Connection) Minimize(windowID xproto.Window) error {
	changeState, err := c.Atom("WM_CHANGE_STATE")
	if err != nil {
		return err
	}

	const iconicState = 3
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   changeState,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{iconicState, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// Mapped reports whether the window is currently mapped.
func (c *Connection) Mapped(windowID xproto.Window) (bool, error) {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return false, err
	}
	return attrs.MapState != xproto.MapStateUnmapped, nil
}

// SetMapped maps or unmaps windowID.
func (c *Connection) SetMapped(windowID xproto.Window, mapped bool) error {
	if mapped {
		return xproto.MapWindowChecked(c.XUtil.Conn(), windowID).Check()
	}
	return xproto.UnmapWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// Raise stacks windowID above its siblings.
func (c *Connection) Raise(windowID xproto.Window) error {
	return xproto.ConfigureWindowChecked(
		c.XUtil.Conn(),
		windowID,
		xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove},
	).Check()
}

// Activate asks the window manager to focus windowID.
func (c *Connection) Activate(windowID xproto.Window) error {
	return ewmh.ActiveWindowReq(c.XUtil, windowID)
}

// CloseWindow requests graceful window close via WM_DELETE_WINDOW.
func (c *Connection) CloseWindow(windowID xproto.Window) error {
	deleteAtom, err := c.Atom("WM_DELETE_WINDOW")
	if err != nil {
		return err
	}
	protocols, err := c.Atom("WM_PROTOCOLS")
	if err != nil {
		return err
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   protocols,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(deleteAtom), 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		windowID,
		xproto.EventMaskNoEvent,
		string(ev.Bytes()),
	).Check()
}

// Title returns the window title, preferring _NET_WM_NAME.
func (c *Connection) Title(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, windowID)
	if err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}

// SetTitle sets _NET_WM_NAME.
func (c *Connection) SetTitle(windowID xproto.Window, title string) error {
	return ewmh.WmNameSet(c.XUtil, windowID, title)
}

// IconName returns _NET_WM_ICON_NAME.
func (c *Connection) IconName(windowID xproto.Window) string {
	name, err := ewmh.WmIconNameGet(c.XUtil, windowID)
	if err != nil {
		return ""
	}
	return name
}

// SetIconName sets _NET_WM_ICON_NAME.
func (c *Connection) SetIconName(windowID xproto.Window, name string) error {
	return ewmh.WmIconNameSet(c.XUtil, windowID, name)
}

// AppClass returns the WM_CLASS class of windowID.
func (c *Connection) AppClass(windowID xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

// SetAppClass sets WM_CLASS.
func (c *Connection) SetAppClass(windowID xproto.Window, class string) error {
	return icccm.WmClassSet(c.XUtil, windowID, &icccm.WmClass{Instance: class, Class: class})
}

// Opacity returns _NET_WM_WINDOW_OPACITY, or 1 when unset.
func (c *Connection) Opacity(windowID xproto.Window) float64 {
	opacity, err := ewmh.WmWindowOpacityGet(c.XUtil, windowID)
	if err != nil {
		return 1
	}
	return opacity
}

// SetOpacity sets _NET_WM_WINDOW_OPACITY.
func (c *Connection) SetOpacity(windowID xproto.Window, opacity float64) error {
	return ewmh.WmWindowOpacitySet(c.XUtil, windowID, opacity)
}

// Decorated reports whether the window manager draws a frame. Windows
// without Motif hints are decorated.
func (c *Connection) Decorated(windowID xproto.Window) bool {
	hints, err := motif.WmHintsGet(c.XUtil, windowID)
	if err != nil {
		return true
	}
	return motif.Decor(hints)
}

// SetDecorated toggles the frame through _MOTIF_WM_HINTS.
func (c *Connection) SetDecorated(windowID xproto.Window, decorated bool) error {
	hints, err := motif.WmHintsGet(c.XUtil, windowID)
	if err != nil {
		hints = &motif.Hints{}
	}
	hints.Flags |= motif.HintDecorations
	if decorated {
		hints.Decoration = motif.DecorationAll
	} else {
		hints.Decoration = motif.DecorationNone
	}
	return motif.WmHintsSet(c.XUtil, windowID, hints)
}

// Maximizable reports whether the window manager allows maximizing.
// Windows without _NET_WM_ALLOWED_ACTIONS are maximizable.
func (c *Connection) Maximizable(windowID xproto.Window) bool {
	actions, err := ewmh.WmAllowedActionsGet(c.XUtil, windowID)
	if err != nil || len(actions) == 0 {
		return true
	}
	for _, a := range actions {
		if a == "_NET_WM_ACTION_MAXIMIZE_HORZ" || a == "_NET_WM_ACTION_MAXIMIZE_VERT" {
			return true
		}
	}
	return false
}

// SizeHints reads the min/max size from WM_NORMAL_HINTS.
func (c *Connection) SizeHints(windowID xproto.Window) SizeHints {
	nh, err := icccm.WmNormalHintsGet(c.XUtil, windowID)
	if err != nil {
		return SizeHints{}
	}
	var out SizeHints
	if nh.Flags&icccm.SizeHintPMinSize != 0 {
		out.MinWidth = int(nh.MinWidth)
		out.MinHeight = int(nh.MinHeight)
	}
	if nh.Flags&icccm.SizeHintPMaxSize != 0 {
		out.MaxWidth = int(nh.MaxWidth)
		out.MaxHeight = int(nh.MaxHeight)
	}
	return out
}

// SetSizeHints writes the min/max size into WM_NORMAL_HINTS, keeping the
// other hints intact.
func (c *Connection) SetSizeHints(windowID xproto.Window, h SizeHints) error {
	nh, err := icccm.WmNormalHintsGet(c.XUtil, windowID)
	if err != nil {
		nh = &icccm.NormalHints{}
	}
	nh.Flags |= icccm.SizeHintPMinSize
	nh.MinWidth = uint(h.MinWidth)
	nh.MinHeight = uint(h.MinHeight)
	if h.MaxWidth > 0 || h.MaxHeight > 0 {
		nh.Flags |= icccm.SizeHintPMaxSize
		nh.MaxWidth = uint(h.MaxWidth)
		nh.MaxHeight = uint(h.MaxHeight)
	} else {
		nh.Flags &^= icccm.SizeHintPMaxSize
		nh.MaxWidth = 0
		nh.MaxHeight = 0
	}
	return icccm.WmNormalHintsSet(c.XUtil, windowID, nh)
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	// Check for normal window type
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_NORMAL" {
			return true
		}
		// Reject desktop, dock, splash, etc.
		if t == "_NET_WM_WINDOW_TYPE_DESKTOP" ||
			t == "_NET_WM_WINDOW_TYPE_DOCK" ||
			t == "_NET_WM_WINDOW_TYPE_SPLASH" ||
			t == "_NET_WM_WINDOW_TYPE_NOTIFICATION" {
			return false
		}
	}

	// If no specific type is set, assume it's normal
	return len(types) == 0
}

// ClientWindows returns the managed normal windows from _NET_CLIENT_LIST.
func (c *Connection) ClientWindows() ([]xproto.Window, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, err
	}
	out := make([]xproto.Window, 0, len(clients))
	for _, w := range clients {
		if c.IsNormalWindow(w) {
			out = append(out, w)
		}
	}
	return out, nil
}

// CreateWindow creates and maps a plain top-level window.
func (c *Connection) CreateWindow(class string, r Rect) (xproto.Window, error) {
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return 0, err
	}
	if err := win.CreateChecked(c.Root, r.X, r.Y, r.Width, r.Height, 0); err != nil {
		return 0, err
	}
	if err := c.SetAppClass(win.Id, class); err != nil {
		return 0, err
	}
	win.Map()
	return win.Id, nil
}
