package window

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/1broseidon/winlink/internal/geom"
	"github.com/1broseidon/winlink/internal/platform"
)

// members is an insertion-ordered set of entities.
type members struct {
	mu      sync.Mutex
	windows []*Entity
}

func (m *members) add(e *Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.windows {
		if w == e {
			return
		}
	}
	m.windows = append(m.windows, e)
}

func (m *members) remove(e *Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.windows {
		if w == e {
			m.windows = append(m.windows[:i:i], m.windows[i+1:]...)
			return
		}
	}
}

// Windows returns the members in the order they joined.
func (m *members) Windows() []*Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Entity(nil), m.windows...)
}

// Len returns the number of members.
func (m *members) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// Contains reports whether e is a member.
func (m *members) Contains(e *Entity) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.windows {
		if w == e {
			return true
		}
	}
	return false
}

// Identities returns the member identities sorted by owner, then name.
func (m *members) Identities() []platform.Identity {
	m.mu.Lock()
	ids := make([]platform.Identity, len(m.windows))
	for i, w := range m.windows {
		ids[i] = w.id
	}
	m.mu.Unlock()
	platform.SortIdentities(ids)
	return ids
}

// SnapGroup is a set of windows whose positions move together. Every entity
// belongs to exactly one, a singleton by default.
type SnapGroup struct {
	members
	id uuid.UUID
}

// NewSnapGroup returns an empty group.
func NewSnapGroup() *SnapGroup {
	return &SnapGroup{id: uuid.New()}
}

// ID returns the group's handle.
func (g *SnapGroup) ID() uuid.UUID { return g.id }

// SuspendResizeConstraints lifts every member's resize constraints with a
// temporary override. The native commands are not awaited.
func (g *SnapGroup) SuspendResizeConstraints(ctx context.Context) error {
	var errs []error
	for _, w := range g.Windows() {
		if !w.Ready() {
			continue
		}
		if _, err := w.applyOverride(ctx, Delta{}.WithResizeConstraints(geom.Unconstrained())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RestoreResizeConstraints reverts SuspendResizeConstraints. The native
// commands are not awaited.
func (g *SnapGroup) RestoreResizeConstraints(ctx context.Context) error {
	var errs []error
	for _, w := range g.Windows() {
		if !w.Ready() {
			continue
		}
		if _, err := w.resetOverride(ctx, FieldResizeConstraints); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TabGroup is a set of windows sharing one frame.
type TabGroup struct {
	members
	id uuid.UUID
}

// NewTabGroup returns an empty tab group.
func NewTabGroup() *TabGroup {
	return &TabGroup{id: uuid.New()}
}

// ID returns the tab group's handle.
func (g *TabGroup) ID() uuid.UUID { return g.id }

// SnapGroup returns the window's group.
func (e *Entity) SnapGroup() *SnapGroup {
	e.groupMu.Lock()
	defer e.groupMu.Unlock()
	return e.snapGroup
}

// PrevGroup returns the group the window was in before its last change.
func (e *Entity) PrevGroup() *SnapGroup {
	e.groupMu.Lock()
	defer e.groupMu.Unlock()
	return e.prevGroup
}

// SetSnapGroup moves the window into g in the model only. The native group
// is realised separately by Snap.
func (e *Entity) SetSnapGroup(g *SnapGroup) {
	if g == nil {
		g = NewSnapGroup()
	}
	e.groupMu.Lock()
	defer e.groupMu.Unlock()
	if e.snapGroup == g {
		return
	}
	old := e.snapGroup
	old.remove(e)
	g.add(e)
	e.prevGroup = old
	e.snapGroup = g
	e.logger.Debug("snap group changed", "members", g.Len())
}

// TabGroup returns the window's tab group, or nil.
func (e *Entity) TabGroup() *TabGroup {
	e.groupMu.Lock()
	defer e.groupMu.Unlock()
	return e.tabGroup
}

// SetTabGroup moves the window into g, or out of any tab group when g is
// nil, and publishes TabGroupChanged.
func (e *Entity) SetTabGroup(ctx context.Context, g *TabGroup) {
	e.groupMu.Lock()
	old := e.tabGroup
	if old == g {
		e.groupMu.Unlock()
		return
	}
	if old != nil {
		old.remove(e)
	}
	if g != nil {
		g.add(e)
	}
	e.tabGroup = g
	e.groupMu.Unlock()

	if err := e.TabGroupChanged.Emit(ctx, g); err != nil {
		e.logger.Warn("tab group subscriber failed", "error", err)
	}
}
