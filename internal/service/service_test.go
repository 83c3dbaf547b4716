package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/winlink/internal/geom"
	"github.com/1broseidon/winlink/internal/platform"
	"github.com/1broseidon/winlink/internal/window"
)

func native(x int) platform.NativeState {
	return platform.NativeState{
		Options: platform.Options{
			Frame:     true,
			Opacity:   1,
			Resizable: true,
			MaxWidth:  platform.ClearSize,
			MaxHeight: platform.ClearSize,
		},
		Visible: true,
		Bounds:  geom.Rect{X: x, Y: 0, Width: 100, Height: 100},
		State:   platform.StateNormal,
	}
}

func newTestService(t *testing.T, names ...string) (*Service, *platform.MemorySurface, []platform.Identity) {
	t.Helper()
	surf := platform.NewMemorySurface()
	svc := New(Config{
		Surface:             surf,
		TransactionDebounce: 100 * time.Millisecond,
		Window:              window.Config{GOOS: "linux"},
	})
	var ids []platform.Identity
	for i, name := range names {
		id := platform.Identity{Owner: "app", Name: name}
		surf.Add(id, native(i*100))
		_, err := svc.Register(context.Background(), id)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return svc, surf, ids
}

func TestRegister(t *testing.T) {
	svc, surf, _ := newTestService(t)
	id := platform.Identity{Owner: "app", Name: "a"}
	surf.Add(id, native(0))

	var created []platform.Identity
	svc.Created.Connect(func(_ context.Context, e *window.Entity) error {
		created = append(created, e.Identity())
		return nil
	})

	e, err := svc.Register(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, e.Ready())
	assert.Equal(t, []platform.Identity{id}, created)

	got, ok := svc.Lookup(id)
	require.True(t, ok)
	assert.Same(t, e, got)

	_, err = svc.Register(context.Background(), id)
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegister_MissingNativeWindow(t *testing.T) {
	svc, _, _ := newTestService(t)
	id := platform.Identity{Owner: "app", Name: "ghost"}

	_, err := svc.Register(context.Background(), id)
	require.ErrorIs(t, err, platform.ErrWindowNotFound)
	_, ok := svc.Lookup(id)
	assert.False(t, ok)
}

func TestCreate(t *testing.T) {
	svc, surf, _ := newTestService(t)
	id := platform.Identity{Owner: "app", Name: "new"}

	e, err := svc.Create(context.Background(), id, window.State{
		Center:            geom.Point{X: 50, Y: 50},
		HalfSize:          geom.Point{X: 50, Y: 50},
		Opacity:           1,
		ResizeConstraints: geom.Unconstrained(),
	})
	require.NoError(t, err)
	assert.True(t, e.Ready())
	_, err = surf.Query(context.Background(), id)
	require.NoError(t, err)
}

func TestWindowsSorted(t *testing.T) {
	svc, _, _ := newTestService(t, "c", "a", "b")
	var names []string
	for _, e := range svc.Windows() {
		names = append(names, e.Identity().Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestSnap_GroupsWindowsInTransaction(t *testing.T) {
	svc, surf, ids := newTestService(t, "a", "b", "c")
	ctx := context.Background()

	require.NoError(t, svc.Snap(ctx, ids...))

	for _, id := range ids {
		e, _ := svc.Lookup(id)
		assert.Equal(t, ids, e.SnapGroup().Identities())
		assert.Equal(t, ids, surf.GroupOf(id))
		assert.True(t, svc.Coordinator().InTransaction(id), "join reports still suppressed")
	}
	require.Eventually(t, func() bool { return svc.Coordinator().Active() == 0 }, time.Second, 5*time.Millisecond)

	a, _ := svc.Lookup(ids[0])
	assert.Equal(t, ids, a.SnapGroup().Identities(), "postponed reports did not disturb the group")
}

func TestSnap_Preconditions(t *testing.T) {
	svc, _, ids := newTestService(t, "a", "b")
	ctx := context.Background()

	require.ErrorIs(t, svc.Snap(ctx, ids[0]), window.ErrNotEnoughWindows)
	require.ErrorIs(t, svc.Snap(ctx, ids[0], ids[0]), window.ErrNotEnoughWindows)
	require.ErrorIs(t, svc.Snap(ctx, ids[0], platform.Identity{Owner: "x", Name: "y"}), ErrUnknownWindow)
}

func TestUnsnap(t *testing.T) {
	svc, surf, ids := newTestService(t, "a", "b", "c")
	ctx := context.Background()
	require.NoError(t, svc.Snap(ctx, ids...))

	require.NoError(t, svc.Unsnap(ctx, ids[2]))

	c, _ := svc.Lookup(ids[2])
	a, _ := svc.Lookup(ids[0])
	assert.Equal(t, []platform.Identity{ids[2]}, c.SnapGroup().Identities())
	assert.Equal(t, ids[:2], a.SnapGroup().Identities())
	assert.Equal(t, []platform.Identity{ids[2]}, surf.GroupOf(ids[2]))
	assert.Equal(t, ids[:2], surf.GroupOf(ids[0]))

	require.ErrorIs(t, svc.Unsnap(ctx, ids[2]), window.ErrNotEnoughWindows)
}

func TestDeregister(t *testing.T) {
	svc, _, ids := newTestService(t, "a")
	var destroyed []platform.Identity
	svc.Destroyed.Connect(func(_ context.Context, id platform.Identity) error {
		destroyed = append(destroyed, id)
		return nil
	})

	require.NoError(t, svc.Deregister(context.Background(), ids[0]))
	_, ok := svc.Lookup(ids[0])
	assert.False(t, ok)
	assert.Equal(t, ids, destroyed)
	require.ErrorIs(t, svc.Deregister(context.Background(), ids[0]), ErrUnknownWindow)
}

func TestNativeCloseRemovesWindow(t *testing.T) {
	svc, _, ids := newTestService(t, "a", "b")
	e, _ := svc.Lookup(ids[0])

	require.NoError(t, e.Close(context.Background()))
	_, ok := svc.Lookup(ids[0])
	assert.False(t, ok)
	assert.Len(t, svc.Windows(), 1)
}

func TestShutdown(t *testing.T) {
	svc, _, _ := newTestService(t, "a", "b")
	require.NoError(t, svc.Shutdown(context.Background()))
	assert.Empty(t, svc.Windows())
}
