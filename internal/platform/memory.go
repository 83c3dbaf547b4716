package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/1broseidon/winlink/internal/geom"
)

// Command records one call made against a MemorySurface.
type Command struct {
	Op     string
	Window Identity
	Target Identity
	Bounds geom.Rect
	Update OptionsUpdate
}

// CommandHook runs before a MemorySurface command is applied. Returning an
// error fails the command.
type CommandHook func(ctx context.Context, cmd Command) error

type memWindow struct {
	state    NativeState
	scale    float64
	handlers map[int]EventHandler
}

// MemorySurface is an in-process Surface. Windows exist only in memory and
// native groups are tracked by integer ids. Group changes are reported to
// every member of the affected groups, like a real host does.
type MemorySurface struct {
	mu       sync.Mutex
	windows  map[Identity]*memWindow
	groups   groupTable
	nextSub  int
	commands []Command
	hook     CommandHook
}

var (
	_ Surface = (*MemorySurface)(nil)
	_ Lister  = (*MemorySurface)(nil)
)

// NewMemorySurface returns an empty surface.
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{windows: make(map[Identity]*memWindow), groups: newGroupTable()}
}

// Add registers a pre-existing native window.
func (m *MemorySurface) Add(id Identity, state NativeState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state.Alive = true
	if !state.State.Valid() {
		state.State = StateNormal
	}
	m.groups.add(id)
	m.windows[id] = &memWindow{
		state:    state,
		scale:    1,
		handlers: make(map[int]EventHandler),
	}
}

// SetHook installs a hook run before every command.
func (m *MemorySurface) SetHook(h CommandHook) {
	m.mu.Lock()
	m.hook = h
	m.mu.Unlock()
}

// SetDisplayScale sets the scale factor reported for id.
func (m *MemorySurface) SetDisplayScale(id Identity, scale float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.windows[id]; ok {
		w.scale = scale
	}
}

// Mutate changes the native state of id without notifying anyone, as if the
// application had changed it and the event was lost.
func (m *MemorySurface) Mutate(id Identity, fn func(*NativeState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.windows[id]; ok {
		fn(&w.state)
	}
}

// Commands returns a copy of the command log.
func (m *MemorySurface) Commands() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Command(nil), m.commands...)
}

// ResetCommands clears the command log.
func (m *MemorySurface) ResetCommands() {
	m.mu.Lock()
	m.commands = nil
	m.mu.Unlock()
}

// GroupOf returns the identities sharing a native group with id, id included.
func (m *MemorySurface) GroupOf(id Identity) []Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	return m.groups.members(id)
}

// Emit delivers ev to the subscribers of ev.Window.
func (m *MemorySurface) Emit(ev Event) {
	m.mu.Lock()
	w, ok := m.windows[ev.Window]
	var handlers []EventHandler
	if ok {
		for _, h := range w.handlers {
			handlers = append(handlers, h)
		}
	}
	m.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// pruneLocked drops dead windows from the group table.
func (m *MemorySurface) pruneLocked() {
	for id, w := range m.windows {
		if !w.state.Alive && m.groups.has(id) {
			m.groups.remove(id)
		}
	}
}

// run logs cmd, runs the hook, then applies fn to the live window under lock.
func (m *MemorySurface) run(ctx context.Context, cmd Command, fn func(w *memWindow)) error {
	m.mu.Lock()
	m.commands = append(m.commands, cmd)
	hook := m.hook
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, cmd); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[cmd.Window]
	if !ok || !w.state.Alive {
		return &NotFoundError{ID: cmd.Window}
	}
	if fn != nil {
		fn(w)
	}
	return nil
}

func (m *MemorySurface) Create(ctx context.Context, id Identity, opts Options, bounds geom.Rect) error {
	m.mu.Lock()
	if w, ok := m.windows[id]; ok && w.state.Alive {
		m.mu.Unlock()
		return fmt.Errorf("window %s already exists", id)
	}
	m.mu.Unlock()
	m.Add(id, NativeState{Options: opts, Visible: true, Bounds: bounds, State: StateNormal})
	return m.run(ctx, Command{Op: "create", Window: id, Bounds: bounds}, nil)
}

func (m *MemorySurface) Query(ctx context.Context, id Identity) (NativeState, error) {
	if err := ctx.Err(); err != nil {
		return NativeState{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[id]
	if !ok || !w.state.Alive {
		return NativeState{}, &NotFoundError{ID: id}
	}
	return w.state, nil
}

func (m *MemorySurface) SetVisible(ctx context.Context, id Identity, visible bool) error {
	op := "hide"
	if visible {
		op = "show"
	}
	return m.run(ctx, Command{Op: op, Window: id}, func(w *memWindow) { w.state.Visible = visible })
}

func (m *MemorySurface) Minimize(ctx context.Context, id Identity) error {
	return m.run(ctx, Command{Op: "minimize", Window: id}, func(w *memWindow) { w.state.State = StateMinimized })
}

func (m *MemorySurface) Maximize(ctx context.Context, id Identity) error {
	return m.run(ctx, Command{Op: "maximize", Window: id}, func(w *memWindow) { w.state.State = StateMaximized })
}

func (m *MemorySurface) Restore(ctx context.Context, id Identity) error {
	return m.run(ctx, Command{Op: "restore", Window: id}, func(w *memWindow) { w.state.State = StateNormal })
}

func (m *MemorySurface) SetBounds(ctx context.Context, id Identity, bounds geom.Rect) error {
	return m.run(ctx, Command{Op: "set-bounds", Window: id, Bounds: bounds}, func(w *memWindow) { w.state.Bounds = bounds })
}

func (m *MemorySurface) UpdateOptions(ctx context.Context, id Identity, update OptionsUpdate) error {
	return m.run(ctx, Command{Op: "update-options", Window: id, Update: update}, func(w *memWindow) { update.Apply(&w.state.Options) })
}

func (m *MemorySurface) BringToFront(ctx context.Context, id Identity) error {
	return m.run(ctx, Command{Op: "bring-to-front", Window: id}, nil)
}

func (m *MemorySurface) SetAsForeground(ctx context.Context, id Identity) error {
	return m.run(ctx, Command{Op: "set-as-foreground", Window: id}, nil)
}

func (m *MemorySurface) Close(ctx context.Context, id Identity) error {
	if err := m.run(ctx, Command{Op: "close", Window: id}, nil); err != nil {
		return err
	}
	m.Emit(Event{Kind: EventClosing, Window: id})
	m.mu.Lock()
	if w, ok := m.windows[id]; ok {
		w.state.Alive = false
	}
	m.mu.Unlock()
	return nil
}

// MergeGroup moves id's native group into target's.
func (m *MemorySurface) MergeGroup(ctx context.Context, id, target Identity) error {
	var (
		events []Event
		ok     bool
	)
	err := m.run(ctx, Command{Op: "merge-group", Window: id, Target: target}, func(*memWindow) {
		m.pruneLocked()
		events, ok = m.groups.merge(id, target)
	})
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{ID: target}
	}
	m.deliver(events)
	return nil
}

// LeaveGroup gives id a fresh native group.
func (m *MemorySurface) LeaveGroup(ctx context.Context, id Identity) error {
	var events []Event
	err := m.run(ctx, Command{Op: "leave-group", Window: id}, func(*memWindow) {
		m.pruneLocked()
		events = m.groups.leave(id)
	})
	if err != nil {
		return err
	}
	m.deliver(events)
	return nil
}

func (m *MemorySurface) deliver(events []Event) {
	for _, ev := range events {
		m.Emit(ev)
	}
}

func (m *MemorySurface) Subscribe(id Identity, h EventHandler) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	m.nextSub++
	key := m.nextSub
	w.handlers[key] = h
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(w.handlers, key)
	}, nil
}

func (m *MemorySurface) DisplayScale(_ context.Context, id Identity) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[id]
	if !ok {
		return 0, &NotFoundError{ID: id}
	}
	return w.scale, nil
}

// List returns every live window, sorted.
func (m *MemorySurface) List(ctx context.Context) ([]Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Identity, 0, len(m.windows))
	for id, w := range m.windows {
		if w.state.Alive {
			out = append(out, id)
		}
	}
	SortIdentities(out)
	return out, nil
}
