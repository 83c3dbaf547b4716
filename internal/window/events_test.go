package window

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/winlink/internal/geom"
	"github.com/1broseidon/winlink/internal/platform"
	"github.com/1broseidon/winlink/internal/transform"
)

type typeLog struct {
	mu    sync.Mutex
	types []transform.Type
}

func (l *typeLog) record(_ context.Context, t transform.Type) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.types = append(l.types, t)
	return nil
}

func (l *typeLog) all() []transform.Type {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]transform.Type(nil), l.types...)
}

func drag(h *harness, w *Entity, hint platform.ChangeHint, samples ...geom.Rect) {
	h.surf.Emit(platform.Event{Kind: platform.EventBeginBoundsChanging, Window: w.Identity()})
	for _, r := range samples {
		h.surf.Emit(platform.Event{Kind: platform.EventBoundsChanging, Window: w.Identity(), Bounds: r, Hint: hint})
	}
	h.surf.Emit(platform.Event{Kind: platform.EventBoundsChanged, Window: w.Identity(), Hint: hint})
}

func TestDrag_ScaledDisplayInfersFromGeometry(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(50, 50, 100, 100))
	h.surf.SetDisplayScale(a.Identity(), 1.25)

	var progress, committed typeLog
	a.TransformInProgress.Connect(progress.record)
	a.TransformCommitted.Connect(committed.record)

	// Host claims a move; geometry says a symmetric resize.
	drag(h, a, platform.HintMove, rect(40, 50, 120, 100))

	assert.Equal(t, []transform.Type{transform.Resize}, progress.all())
	assert.Equal(t, []transform.Type{transform.Resize}, committed.all())
	assert.False(t, a.ActiveTransform())
	assert.Equal(t, geom.Point{X: 60, Y: 50}, a.CurrentState().HalfSize)
	assert.Equal(t, a.CurrentState(), a.ApplicationState())
}

func TestDrag_IntegerScaleTrustsHint(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(50, 50, 100, 100))

	var committed typeLog
	a.TransformCommitted.Connect(committed.record)

	drag(h, a, platform.HintMove, rect(40, 50, 120, 100))
	assert.Equal(t, []transform.Type{transform.Move}, committed.all())
}

func TestDrag_GroupMoveSuspendsResizeConstraints(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(0, 0, 100, 100))
	b := h.window("b", rect(100, 0, 100, 100))
	h.group(a, b)

	limited := geom.Unconstrained()
	limited.X.MaxSize = 300
	require.NoError(t, b.ApplyProperties(context.Background(), Delta{}.WithResizeConstraints(limited)))

	h.surf.Emit(platform.Event{Kind: platform.EventBeginBoundsChanging, Window: a.Identity()})
	h.surf.Emit(platform.Event{Kind: platform.EventBoundsChanging, Window: a.Identity(), Bounds: rect(20, 0, 100, 100), Hint: platform.HintMove})

	assert.True(t, a.ActiveTransform())
	assert.Equal(t, geom.Unconstrained(), b.CurrentState().ResizeConstraints)
	assert.True(t, b.TemporaryState().Has(FieldResizeConstraints))
	assert.Equal(t, limited, b.TemporaryState().Values().ResizeConstraints)

	h.surf.Emit(platform.Event{Kind: platform.EventBoundsChanged, Window: a.Identity(), Bounds: rect(30, 0, 100, 100), Hint: platform.HintMove})

	assert.False(t, a.ActiveTransform())
	assert.Equal(t, limited, b.CurrentState().ResizeConstraints)
	assert.False(t, b.TemporaryState().Has(FieldResizeConstraints))
	assert.Equal(t, 80.0, a.CurrentState().Center.X)
}

func TestDrag_CommitAsResizeRestoresConstraints(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(0, 0, 100, 100))
	b := h.window("b", rect(100, 0, 100, 100))
	h.group(a, b)
	h.surf.SetDisplayScale(a.Identity(), 1.25)

	limited := geom.Unconstrained()
	limited.X.MaxSize = 300
	require.NoError(t, b.ApplyProperties(context.Background(), Delta{}.WithResizeConstraints(limited)))

	h.surf.Emit(platform.Event{Kind: platform.EventBeginBoundsChanging, Window: a.Identity()})
	h.surf.Emit(platform.Event{Kind: platform.EventBoundsChanging, Window: a.Identity(), Bounds: rect(20, 0, 100, 100), Hint: platform.HintMove})
	require.True(t, b.TemporaryState().Has(FieldResizeConstraints))

	// The final bounds turn the drag into a resize.
	h.surf.Emit(platform.Event{Kind: platform.EventBoundsChanged, Window: a.Identity(), Bounds: rect(-10, 0, 120, 100), Hint: platform.HintMove})

	assert.False(t, a.ActiveTransform())
	assert.Equal(t, limited, b.CurrentState().ResizeConstraints)
	assert.False(t, b.TemporaryState().Has(FieldResizeConstraints))
}

func TestDrag_SingletonDoesNotTouchConstraints(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(0, 0, 100, 100))
	drag(h, a, platform.HintMove, rect(20, 0, 100, 100))
	assert.True(t, a.TemporaryState().Empty())
}

func TestEvents_NativeStateChangesAreApplicationUpdates(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(0, 0, 100, 100))
	h.surf.ResetCommands()

	for _, tt := range []struct {
		kind   platform.EventKind
		check  func(State) bool
		expect string
	}{
		{platform.EventHidden, func(s State) bool { return s.Hidden }, "hidden"},
		{platform.EventShown, func(s State) bool { return !s.Hidden }, "shown"},
		{platform.EventMaximized, func(s State) bool { return s.State == platform.StateMaximized }, "maximized"},
		{platform.EventMinimized, func(s State) bool { return s.State == platform.StateMinimized }, "minimized"},
		{platform.EventRestored, func(s State) bool { return s.State == platform.StateNormal }, "restored"},
	} {
		h.surf.Emit(platform.Event{Kind: tt.kind, Window: a.Identity()})
		assert.True(t, tt.check(a.ApplicationState()), tt.expect)
	}
	assert.Empty(t, h.surf.Commands())
}

func TestEvents_FocusRaisesGroup(t *testing.T) {
	h := newHarness(t)
	a := h.window("a", rect(0, 0, 100, 100))
	b := h.window("b", rect(100, 0, 100, 100))
	c := h.window("c", rect(200, 0, 100, 100))
	h.group(a, b, c)
	h.surf.ResetCommands()

	h.surf.Emit(platform.Event{Kind: platform.EventFocused, Window: b.Identity()})

	var raised []platform.Identity
	for _, cmd := range h.surf.Commands() {
		require.Equal(t, "bring-to-front", cmd.Op)
		raised = append(raised, cmd.Window)
	}
	assert.ElementsMatch(t, []platform.Identity{a.Identity(), c.Identity()}, raised)
}
