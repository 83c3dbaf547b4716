package platform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/1broseidon/winlink/internal/geom"
)

// Identity names a window: the owning application plus the window name.
// It is unique and immutable for the lifetime of a window.
type Identity struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

func (id Identity) String() string {
	return id.Owner + "/" + id.Name
}

// ParseIdentity parses the "owner/name" form produced by String.
func ParseIdentity(s string) (Identity, error) {
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" {
		return Identity{}, fmt.Errorf("invalid window identity %q (want owner/name)", s)
	}
	return Identity{Owner: owner, Name: name}, nil
}

// Less orders identities by owner, then name.
func (id Identity) Less(other Identity) bool {
	if id.Owner != other.Owner {
		return id.Owner < other.Owner
	}
	return id.Name < other.Name
}

// SortIdentities sorts ids in place by owner, then name.
func SortIdentities(ids []Identity) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

// SameIdentitySet reports whether a and b contain the same identities,
// ignoring order. Neither input is modified.
func SameIdentitySet(a, b []Identity) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]Identity(nil), a...)
	bs := append([]Identity(nil), b...)
	SortIdentities(as)
	SortIdentities(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// WindowState is the native show state of a window.
type WindowState string

const (
	StateNormal    WindowState = "normal"
	StateMinimized WindowState = "minimized"
	StateMaximized WindowState = "maximized"
)

// Valid reports whether s is one of the known states.
func (s WindowState) Valid() bool {
	switch s {
	case StateNormal, StateMinimized, StateMaximized:
		return true
	}
	return false
}

// ClearSize is sent as a maximum size to remove a previously set limit.
const ClearSize = -1

// Sides flags which window edges can be dragged.
type Sides struct {
	Top    bool `json:"top"`
	Bottom bool `json:"bottom"`
	Left   bool `json:"left"`
	Right  bool `json:"right"`
}

// Options is the full set of native window options.
type Options struct {
	Frame           bool    `json:"frame"`
	Icon            string  `json:"icon"`
	Title           string  `json:"title"`
	ShowTaskbarIcon bool    `json:"show_taskbar_icon"`
	Opacity         float64 `json:"opacity"`
	AlwaysOnTop     bool    `json:"always_on_top"`
	Maximizable     bool    `json:"maximizable"`
	Resizable       bool    `json:"resizable"`
	ResizeRegion    Sides   `json:"resize_region"`
	MinWidth        int     `json:"min_width"`
	MinHeight       int     `json:"min_height"`
	// MaxWidth and MaxHeight use ClearSize for "no limit".
	MaxWidth  int `json:"max_width"`
	MaxHeight int `json:"max_height"`
}

// OptionsUpdate is a partial Options change. Nil fields are left alone.
type OptionsUpdate struct {
	Frame           *bool
	Icon            *string
	Title           *string
	ShowTaskbarIcon *bool
	Opacity         *float64
	AlwaysOnTop     *bool
	Maximizable     *bool
	Resizable       *bool
	ResizeRegion    *Sides
	MinWidth        *int
	MinHeight       *int
	MaxWidth        *int
	MaxHeight       *int
}

// Empty reports whether the update changes nothing.
func (u OptionsUpdate) Empty() bool {
	return u == OptionsUpdate{}
}

// Apply merges u into o.
func (u OptionsUpdate) Apply(o *Options) {
	if u.Frame != nil {
		o.Frame = *u.Frame
	}
	if u.Icon != nil {
		o.Icon = *u.Icon
	}
	if u.Title != nil {
		o.Title = *u.Title
	}
	if u.ShowTaskbarIcon != nil {
		o.ShowTaskbarIcon = *u.ShowTaskbarIcon
	}
	if u.Opacity != nil {
		o.Opacity = *u.Opacity
	}
	if u.AlwaysOnTop != nil {
		o.AlwaysOnTop = *u.AlwaysOnTop
	}
	if u.Maximizable != nil {
		o.Maximizable = *u.Maximizable
	}
	if u.Resizable != nil {
		o.Resizable = *u.Resizable
	}
	if u.ResizeRegion != nil {
		o.ResizeRegion = *u.ResizeRegion
	}
	if u.MinWidth != nil {
		o.MinWidth = *u.MinWidth
	}
	if u.MinHeight != nil {
		o.MinHeight = *u.MinHeight
	}
	if u.MaxWidth != nil {
		o.MaxWidth = *u.MaxWidth
	}
	if u.MaxHeight != nil {
		o.MaxHeight = *u.MaxHeight
	}
}

// NativeState is everything a single batched query returns about a window.
type NativeState struct {
	Options Options     `json:"options"`
	Visible bool        `json:"visible"`
	Bounds  geom.Rect   `json:"bounds"`
	State   WindowState `json:"state"`
	// Alive is false once the native window has been destroyed.
	Alive bool `json:"alive"`
}

// ErrWindowNotFound is the class of error returned when a command targets a
// window that no longer exists.
var ErrWindowNotFound = errors.New("window does not exist")

// NotFoundError reports which window was missing.
type NotFoundError struct {
	ID Identity
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("window %s does not exist", e.ID)
}

// Is matches ErrWindowNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrWindowNotFound
}

// EventHandler receives events for one subscribed window.
type EventHandler func(Event)

// Surface abstracts the native windowing API a window entity drives.
type Surface interface {
	// Create asks the surface to open a new native window.
	Create(ctx context.Context, id Identity, opts Options, bounds geom.Rect) error
	// Query fetches the full native state in one round trip.
	Query(ctx context.Context, id Identity) (NativeState, error)

	SetVisible(ctx context.Context, id Identity, visible bool) error
	Minimize(ctx context.Context, id Identity) error
	Maximize(ctx context.Context, id Identity) error
	Restore(ctx context.Context, id Identity) error
	SetBounds(ctx context.Context, id Identity, bounds geom.Rect) error
	UpdateOptions(ctx context.Context, id Identity, update OptionsUpdate) error
	BringToFront(ctx context.Context, id Identity) error
	SetAsForeground(ctx context.Context, id Identity) error
	Close(ctx context.Context, id Identity) error

	// MergeGroup joins id into the native group of target.
	MergeGroup(ctx context.Context, id, target Identity) error
	// LeaveGroup detaches id from whatever native group it is in.
	LeaveGroup(ctx context.Context, id Identity) error

	// Subscribe attaches h to events for id until the returned func is called.
	Subscribe(id Identity, h EventHandler) (func(), error)

	// DisplayScale returns the scale factor of the display showing id.
	DisplayScale(ctx context.Context, id Identity) (float64, error)
}

// Lister is implemented by surfaces that can enumerate the windows they
// manage.
type Lister interface {
	List(ctx context.Context) ([]Identity, error)
}

// NativeSurface is a Surface backed by a real window system. Run processes
// native events until Shutdown is called.
type NativeSurface interface {
	Surface
	Lister
	Run()
	Shutdown()
}
