//go:build linux

package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/winlink/internal/geom"
	"github.com/1broseidon/winlink/internal/x11"
)

// DefaultDragSettle is how long an X11 window must stay still before an
// interactive move or resize is considered finished.
const DefaultDragSettle = 150 * time.Millisecond

// X11Surface drives top-level windows through EWMH and ICCCM. X11 has no
// native window grouping, so groups are modelled in-process and reported to
// every member the way a grouping host would.
type X11Surface struct {
	conn   *x11.Connection
	settle time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	groups  groupTable
	aliases map[Identity]xproto.Window
	watches map[xproto.Window]*x11Watch
}

type x11Watch struct {
	id       Identity
	win      xproto.Window
	handlers map[int]EventHandler
	next     int
	drag     *dragTracker
	state    WindowState
	cancel   func()
}

var _ NativeSurface = (*X11Surface)(nil)

// NewX11Surface wraps an existing X11 connection.
func NewX11Surface(conn *x11.Connection, settle time.Duration, logger *slog.Logger) *X11Surface {
	if settle <= 0 {
		settle = DefaultDragSettle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &X11Surface{
		conn:    conn,
		settle:  settle,
		logger:  logger,
		groups:  newGroupTable(),
		aliases: make(map[Identity]xproto.Window),
		watches: make(map[xproto.Window]*x11Watch),
	}
}

// OpenNative opens the X11 surface on $DISPLAY.
func OpenNative(settle time.Duration, logger *slog.Logger) (NativeSurface, error) {
	return OpenX11Surface("", settle, logger)
}

// OpenX11Surface connects to display (empty means $DISPLAY).
func OpenX11Surface(display string, settle time.Duration, logger *slog.Logger) (*X11Surface, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewX11Surface(conn, settle, logger), nil
}

// Run processes X events until Shutdown is called.
func (s *X11Surface) Run() {
	s.conn.EventLoop()
}

// Shutdown stops the event loop and disconnects.
func (s *X11Surface) Shutdown() {
	s.mu.Lock()
	for _, w := range s.watches {
		w.drag.stop()
	}
	s.mu.Unlock()
	s.conn.Quit()
	s.conn.Close()
}

// IdentityOf names an X window by its WM_CLASS and id.
func (s *X11Surface) IdentityOf(win xproto.Window) Identity {
	owner := s.conn.AppClass(win)
	if owner == "" {
		owner = "x11"
	}
	return Identity{Owner: owner, Name: fmt.Sprintf("0x%08x", uint32(win))}
}

func (s *X11Surface) resolve(id Identity) (xproto.Window, error) {
	s.mu.Lock()
	win, ok := s.aliases[id]
	s.mu.Unlock()
	if ok {
		return win, nil
	}
	n, err := strconv.ParseUint(id.Name, 0, 32)
	if err != nil {
		return 0, &NotFoundError{ID: id}
	}
	return xproto.Window(n), nil
}

// call resolves id and runs fn, translating X "bad window" errors.
func (s *X11Surface) call(ctx context.Context, id Identity, fn func(xproto.Window) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	win, err := s.resolve(id)
	if err != nil {
		return err
	}
	if err := fn(win); err != nil {
		if x11.IsBadWindow(err) {
			return &NotFoundError{ID: id}
		}
		return err
	}
	return nil
}

func toGeom(r x11.Rect) geom.Rect {
	return geom.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func fromGeom(r geom.Rect) x11.Rect {
	return x11.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func windowStateOf(states []string) WindowState {
	switch {
	case x11.HasState(states, x11.StateHidden):
		return StateMinimized
	case x11.HasState(states, x11.StateMaximizedHorz) && x11.HasState(states, x11.StateMaximizedVert):
		return StateMaximized
	default:
		return StateNormal
	}
}

func (s *X11Surface) Create(ctx context.Context, id Identity, opts Options, bounds geom.Rect) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	win, err := s.conn.CreateWindow(id.Owner, fromGeom(bounds))
	if err != nil {
		return fmt.Errorf("create %s: %w", id, err)
	}
	s.mu.Lock()
	s.aliases[id] = win
	s.mu.Unlock()

	full := OptionsUpdate{
		Frame:           &opts.Frame,
		Icon:            &opts.Icon,
		Title:           &opts.Title,
		ShowTaskbarIcon: &opts.ShowTaskbarIcon,
		Opacity:         &opts.Opacity,
		AlwaysOnTop:     &opts.AlwaysOnTop,
		MinWidth:        &opts.MinWidth,
		MinHeight:       &opts.MinHeight,
		MaxWidth:        &opts.MaxWidth,
		MaxHeight:       &opts.MaxHeight,
	}
	return s.UpdateOptions(ctx, id, full)
}

func (s *X11Surface) Query(ctx context.Context, id Identity) (NativeState, error) {
	var out NativeState
	err := s.call(ctx, id, func(win xproto.Window) error {
		r, err := s.conn.Geometry(win)
		if err != nil {
			return err
		}
		states, err := s.conn.States(win)
		if err != nil {
			return err
		}
		mapped, err := s.conn.Mapped(win)
		if err != nil {
			return err
		}
		hints := s.conn.SizeHints(win)

		state := windowStateOf(states)
		out = NativeState{
			Options: Options{
				Frame:           s.conn.Decorated(win),
				Icon:            s.conn.IconName(win),
				Title:           s.conn.Title(win),
				ShowTaskbarIcon: !x11.HasState(states, x11.StateSkipTaskbar),
				Opacity:         s.conn.Opacity(win),
				AlwaysOnTop:     x11.HasState(states, x11.StateAbove),
				Maximizable:     s.conn.Maximizable(win),
				Resizable:       hints.MaxWidth == 0 || hints.MaxHeight == 0 || hints.MaxWidth != hints.MinWidth || hints.MaxHeight != hints.MinHeight,
				ResizeRegion:    Sides{Top: true, Bottom: true, Left: true, Right: true},
				MinWidth:        hints.MinWidth,
				MinHeight:       hints.MinHeight,
				MaxWidth:        ClearSize,
				MaxHeight:       ClearSize,
			},
			// A minimized window is unmapped by the window manager but is
			// still shown as far as the application is concerned.
			Visible: mapped || state == StateMinimized,
			Bounds:  toGeom(r),
			State:   state,
			Alive:   true,
		}
		if hints.MaxWidth > 0 {
			out.Options.MaxWidth = hints.MaxWidth
		}
		if hints.MaxHeight > 0 {
			out.Options.MaxHeight = hints.MaxHeight
		}
		return nil
	})
	return out, err
}

func (s *X11Surface) SetVisible(ctx context.Context, id Identity, visible bool) error {
	return s.call(ctx, id, func(win xproto.Window) error {
		return s.conn.SetMapped(win, visible)
	})
}

func (s *X11Surface) Minimize(ctx context.Context, id Identity) error {
	return s.call(ctx, id, s.conn.Minimize)
}

func (s *X11Surface) Maximize(ctx context.Context, id Identity) error {
	return s.call(ctx, id, s.conn.Maximize)
}

func (s *X11Surface) Restore(ctx context.Context, id Identity) error {
	return s.call(ctx, id, func(win xproto.Window) error {
		states, err := s.conn.States(win)
		if err != nil {
			return err
		}
		switch windowStateOf(states) {
		case StateMinimized:
			if err := s.conn.SetMapped(win, true); err != nil {
				return err
			}
			return s.conn.Activate(win)
		case StateMaximized:
			return s.conn.Unmaximize(win)
		}
		return nil
	})
}

func (s *X11Surface) SetBounds(ctx context.Context, id Identity, bounds geom.Rect) error {
	return s.call(ctx, id, func(win xproto.Window) error {
		s.mu.Lock()
		if w, ok := s.watches[win]; ok {
			w.drag.expectBounds(bounds)
		}
		s.mu.Unlock()
		return s.conn.MoveResizeWindow(win, fromGeom(bounds))
	})
}

func (s *X11Surface) UpdateOptions(ctx context.Context, id Identity, u OptionsUpdate) error {
	return s.call(ctx, id, func(win xproto.Window) error {
		if u.Frame != nil {
			if err := s.conn.SetDecorated(win, *u.Frame); err != nil {
				return err
			}
		}
		if u.Title != nil {
			if err := s.conn.SetTitle(win, *u.Title); err != nil {
				return err
			}
		}
		if u.Icon != nil {
			if err := s.conn.SetIconName(win, *u.Icon); err != nil {
				return err
			}
		}
		if u.ShowTaskbarIcon != nil {
			if err := s.conn.SetState(win, x11.StateSkipTaskbar, !*u.ShowTaskbarIcon); err != nil {
				return err
			}
		}
		if u.Opacity != nil {
			if err := s.conn.SetOpacity(win, *u.Opacity); err != nil {
				return err
			}
		}
		if u.AlwaysOnTop != nil {
			if err := s.conn.SetState(win, x11.StateAbove, *u.AlwaysOnTop); err != nil {
				return err
			}
		}
		if u.Maximizable != nil {
			s.logger.Debug("maximizable is controlled by the window manager on X11", "window", id)
		}
		if u.MinWidth != nil || u.MinHeight != nil || u.MaxWidth != nil || u.MaxHeight != nil {
			hints := s.conn.SizeHints(win)
			if u.MinWidth != nil {
				hints.MinWidth = *u.MinWidth
			}
			if u.MinHeight != nil {
				hints.MinHeight = *u.MinHeight
			}
			if u.MaxWidth != nil {
				hints.MaxWidth = max(*u.MaxWidth, 0)
			}
			if u.MaxHeight != nil {
				hints.MaxHeight = max(*u.MaxHeight, 0)
			}
			if err := s.conn.SetSizeHints(win, hints); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *X11Surface) BringToFront(ctx context.Context, id Identity) error {
	return s.call(ctx, id, s.conn.Raise)
}

func (s *X11Surface) SetAsForeground(ctx context.Context, id Identity) error {
	return s.call(ctx, id, s.conn.Activate)
}

func (s *X11Surface) Close(ctx context.Context, id Identity) error {
	return s.call(ctx, id, s.conn.CloseWindow)
}

// exists checks that win is still known to the server.
func (s *X11Surface) exists(win xproto.Window) error {
	_, err := s.conn.Geometry(win)
	return err
}

func (s *X11Surface) MergeGroup(ctx context.Context, id, target Identity) error {
	targetWin, err := s.resolve(target)
	if err != nil {
		return err
	}
	if err := s.exists(targetWin); err != nil {
		if x11.IsBadWindow(err) {
			return &NotFoundError{ID: target}
		}
		return err
	}
	var events []Event
	err = s.call(ctx, id, func(win xproto.Window) error {
		if err := s.exists(win); err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.ensureGroupLocked(id)
		s.ensureGroupLocked(target)
		events, _ = s.groups.merge(id, target)
		return nil
	})
	if err != nil {
		return err
	}
	s.deliver(events)
	return nil
}

func (s *X11Surface) LeaveGroup(ctx context.Context, id Identity) error {
	var events []Event
	err := s.call(ctx, id, func(win xproto.Window) error {
		if err := s.exists(win); err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		events = s.groups.leave(id)
		return nil
	})
	if err != nil {
		return err
	}
	s.deliver(events)
	return nil
}

func (s *X11Surface) ensureGroupLocked(id Identity) {
	if !s.groups.has(id) {
		s.groups.add(id)
	}
}

func (s *X11Surface) deliver(events []Event) {
	for _, ev := range events {
		win, err := s.resolve(ev.Window)
		if err != nil {
			continue
		}
		s.dispatch(win, ev)
	}
}

func (s *X11Surface) dispatch(win xproto.Window, ev Event) {
	s.mu.Lock()
	w, ok := s.watches[win]
	var handlers []EventHandler
	if ok {
		for _, h := range w.handlers {
			handlers = append(handlers, h)
		}
	}
	s.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (s *X11Surface) Subscribe(id Identity, h EventHandler) (func(), error) {
	win, err := s.resolve(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	w, ok := s.watches[win]
	s.mu.Unlock()
	if !ok {
		if w, err = s.watch(id, win); err != nil {
			if x11.IsBadWindow(err) {
				return nil, &NotFoundError{ID: id}
			}
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w.next++
	key := w.next
	w.handlers[key] = h
	return func() {
		s.mu.Lock()
		delete(w.handlers, key)
		empty := len(w.handlers) == 0
		if empty && s.watches[win] == w {
			delete(s.watches, win)
		}
		s.mu.Unlock()
		if empty {
			w.cancel()
			w.drag.stop()
		}
	}, nil
}

// watch starts listening for X events on win and translates them.
func (s *X11Surface) watch(id Identity, win xproto.Window) (*x11Watch, error) {
	r, err := s.conn.Geometry(win)
	if err != nil {
		return nil, err
	}
	states, err := s.conn.States(win)
	if err != nil {
		return nil, err
	}

	w := &x11Watch{
		id:       id,
		win:      win,
		handlers: make(map[int]EventHandler),
		state:    windowStateOf(states),
	}
	emit := func(ev Event) { s.dispatch(win, ev) }
	w.drag = newDragTracker(id, toGeom(r), s.settle, emit)

	cancel, err := s.conn.Watch(win, x11.WindowEvents{
		Configure: func(r x11.Rect) { w.drag.update(toGeom(r)) },
		Mapped: func() {
			if s.currentState(w) != StateMinimized {
				emit(Event{Kind: EventShown, Window: id})
			}
		},
		Unmapped: func() {
			// Iconifying unmaps too; that is reported through the state change.
			if states, err := s.conn.States(win); err == nil && windowStateOf(states) == StateMinimized {
				return
			}
			emit(Event{Kind: EventHidden, Window: id})
		},
		Destroyed:    func() { s.destroyed(id, win) },
		StateChanged: func(states []string) { s.stateChanged(w, states) },
		Focused:      func() { emit(Event{Kind: EventFocused, Window: id}) },
	})
	if err != nil {
		return nil, err
	}
	w.cancel = cancel

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.watches[win]; ok {
		// Lost a race with another subscriber; keep theirs.
		cancel()
		w.drag.stop()
		return existing, nil
	}
	s.watches[win] = w
	s.ensureGroupLocked(id)
	return w, nil
}

func (s *X11Surface) currentState(w *x11Watch) WindowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return w.state
}

func (s *X11Surface) stateChanged(w *x11Watch, states []string) {
	next := windowStateOf(states)
	s.mu.Lock()
	prev := w.state
	w.state = next
	s.mu.Unlock()
	if prev == next {
		return
	}
	kind := EventRestored
	switch next {
	case StateMinimized:
		kind = EventMinimized
	case StateMaximized:
		kind = EventMaximized
	}
	ev := Event{Kind: kind, Window: w.id}
	if r, err := s.conn.Geometry(w.win); err == nil {
		ev.Bounds = toGeom(r)
	}
	s.dispatch(w.win, ev)
}

// destroyed reports the close and drops id from its group.
func (s *X11Surface) destroyed(id Identity, win xproto.Window) {
	s.dispatch(win, Event{Kind: EventClosing, Window: id})

	s.mu.Lock()
	events := s.groups.leave(id)
	s.groups.remove(id)
	delete(s.aliases, id)
	s.mu.Unlock()

	// The leaver is gone; only the survivors hear about it.
	var survivors []Event
	for _, ev := range events {
		if ev.Window != id {
			survivors = append(survivors, ev)
		}
	}
	s.deliver(survivors)
}

func (s *X11Surface) DisplayScale(ctx context.Context, id Identity) (float64, error) {
	var scale float64
	err := s.call(ctx, id, func(win xproto.Window) error {
		var err error
		scale, err = s.conn.ScaleForWindow(win)
		return err
	})
	return scale, err
}

// List returns every managed normal window.
func (s *X11Surface) List(ctx context.Context) ([]Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wins, err := s.conn.ClientWindows()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	created := make(map[xproto.Window]Identity, len(s.aliases))
	for id, win := range s.aliases {
		created[win] = id
	}
	s.mu.Unlock()

	out := make([]Identity, 0, len(wins))
	for _, win := range wins {
		if id, ok := created[win]; ok {
			out = append(out, id)
			continue
		}
		out = append(out, s.IdentityOf(win))
	}
	SortIdentities(out)
	return out, nil
}
