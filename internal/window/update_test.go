package window

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/winlink/internal/geom"
	"github.com/1broseidon/winlink/internal/platform"
)

func TestServiceUpdate_InverseRestoresApplicationState(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))
	ctx := context.Background()
	orig := w.CurrentState()

	change := Delta{}.
		WithOpacity(0.4).
		WithAlwaysOnTop(true).
		WithTitle("busy").
		WithBounds(geom.FromRect(rect(50, 50, 300, 200)))
	require.NoError(t, w.ApplyProperties(ctx, change))

	assert.Equal(t, FieldOpacity|FieldAlwaysOnTop|FieldTitle|FieldCenter|FieldHalfSize, w.ModifiedState().Fields())
	assert.NotEqual(t, w.CurrentState(), w.ApplicationState())
	assert.Equal(t, orig, w.ApplicationState())

	require.NoError(t, w.ApplyProperties(ctx, DeltaOf(orig, change.Fields())))

	assert.True(t, w.ModifiedState().Empty())
	assert.Equal(t, w.ApplicationState(), w.CurrentState())
}

func TestServiceUpdate_RequiresReady(t *testing.T) {
	h := newHarness(t)
	w := New(platform.Identity{Owner: "app", Name: "idle"}, h.config())

	_, err := w.UpdateState(context.Background(), Delta{}.WithOpacity(0.5), OriginService)
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = w.UpdateState(context.Background(), Delta{}.WithOpacity(0.5), OriginServiceTemporary)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestApplicationUpdate_IgnoredUntilReady(t *testing.T) {
	h := newHarness(t)
	w := New(platform.Identity{Owner: "app", Name: "idle"}, h.config())

	actions, err := w.UpdateState(context.Background(), Delta{}.WithTitle("x"), OriginApplication)
	require.NoError(t, err)
	assert.Nil(t, actions)
	assert.Equal(t, "", w.CurrentState().Title)
}

func TestApplicationUpdate_IssuesNoCommands(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))
	h.surf.ResetCommands()

	actions, err := w.UpdateState(context.Background(), Delta{}.WithTitle("renamed").WithHidden(true), OriginApplication)
	require.NoError(t, err)
	assert.Nil(t, actions)
	assert.Empty(t, h.surf.Commands())
	assert.Equal(t, "renamed", w.ApplicationState().Title)
	assert.True(t, w.CurrentState().Hidden)
}

func TestApplicationUpdate_KeepsOverriddenApplicationValue(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))
	ctx := context.Background()
	require.NoError(t, w.ApplyOverride(ctx, Delta{}.WithOpacity(0.5)))

	_, err := w.UpdateState(ctx, Delta{}.WithOpacity(0.9).WithTitle("app"), OriginApplication)
	require.NoError(t, err)

	assert.Equal(t, 0.9, w.CurrentState().Opacity)
	assert.Equal(t, 1.0, w.ApplicationState().Opacity, "service still owns opacity")
	assert.Equal(t, "app", w.ApplicationState().Title)
}

func TestServiceUpdate_DropsInvalidWindowState(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))
	h.surf.ResetCommands()

	err := w.ApplyProperties(context.Background(), Delta{}.WithState("fullscreen").WithOpacity(0.7))
	require.NoError(t, err)
	assert.Equal(t, platform.StateNormal, w.CurrentState().State)
	assert.Equal(t, 0.7, w.CurrentState().Opacity)
	assert.Equal(t, []string{"update-options"}, h.ops())
}

func TestApplyProperties_UnchangedFieldIssuesNoCommand(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))
	require.False(t, w.CurrentState().Maximizable)
	h.surf.ResetCommands()

	require.NoError(t, w.ApplyProperties(context.Background(), Delta{}.WithMaximizable(false)))
	assert.Empty(t, h.surf.Commands())
	assert.True(t, w.ModifiedState().Empty())
}

func TestApplyProperties_CommandOrder(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))
	h.surf.ResetCommands()

	rc := geom.Unconstrained()
	rc.X.MaxSize = 800
	change := Delta{}.
		WithOpacity(0.5).
		WithResizeConstraints(rc).
		WithBounds(geom.FromRect(rect(10, 10, 200, 100))).
		WithState(platform.StateMaximized).
		WithHidden(true)
	require.NoError(t, w.ApplyProperties(context.Background(), change))

	assert.Equal(t, []string{"hide", "maximize", "set-bounds", "update-options", "update-options"}, h.ops())
}

func TestApplyProperties_BatchesOptions(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))
	h.surf.ResetCommands()

	change := Delta{}.WithOpacity(0.5).WithTitle("x").WithAlwaysOnTop(true).WithIcon("icon.png")
	require.NoError(t, w.ApplyProperties(context.Background(), change))

	cmds := h.surf.Commands()
	require.Len(t, cmds, 1)
	u := cmds[0].Update
	require.NotNil(t, u.Opacity)
	require.NotNil(t, u.Title)
	require.NotNil(t, u.AlwaysOnTop)
	require.NotNil(t, u.Icon)
	assert.Nil(t, u.Frame)
	assert.Nil(t, u.MaxWidth)
}

func TestResizeConstraints_ClearSentinelOnlyAfterRealLimit(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))
	ctx := context.Background()

	limited := geom.Unconstrained()
	limited.X.MaxSize = 800
	h.surf.ResetCommands()
	require.NoError(t, w.ApplyProperties(ctx, Delta{}.WithResizeConstraints(limited)))
	cmds := h.surf.Commands()
	require.Len(t, cmds, 1)
	require.NotNil(t, cmds[0].Update.MaxWidth)
	assert.Equal(t, 800, *cmds[0].Update.MaxWidth)
	assert.Nil(t, cmds[0].Update.MaxHeight, "never-limited axis is omitted")

	h.surf.ResetCommands()
	require.NoError(t, w.ApplyProperties(ctx, Delta{}.WithResizeConstraints(geom.Unconstrained())))
	cmds = h.surf.Commands()
	require.Len(t, cmds, 1)
	require.NotNil(t, cmds[0].Update.MaxWidth)
	assert.Equal(t, platform.ClearSize, *cmds[0].Update.MaxWidth)
	assert.Nil(t, cmds[0].Update.MaxHeight)
}

func TestUpdateState_UnknownOrigin(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))
	_, err := w.UpdateState(context.Background(), Delta{}.WithOpacity(0.5), Origin(42))
	require.Error(t, err)
}

func TestNormalBounds_IgnoresMaximizedGeometry(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))
	ctx := context.Background()
	normal := w.NormalBounds()

	_, err := w.UpdateState(ctx, Delta{}.WithState(platform.StateMaximized).WithBounds(geom.FromRect(rect(0, 0, 1920, 1080))), OriginApplication)
	require.NoError(t, err)
	assert.Equal(t, normal, w.NormalBounds())

	restored := geom.FromRect(rect(20, 20, 200, 100))
	_, err = w.UpdateState(ctx, Delta{}.WithState(platform.StateNormal).WithBounds(restored), OriginApplication)
	require.NoError(t, err)
	assert.Equal(t, restored, w.NormalBounds())
}

func TestModifiedSignal(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))

	var got []Origin
	w.Modified.Connect(func(_ context.Context, m Modification) error {
		got = append(got, m.Origin)
		return nil
	})
	ctx := context.Background()
	_, err := w.UpdateState(ctx, Delta{}.WithTitle("a"), OriginApplication)
	require.NoError(t, err)
	require.NoError(t, w.ApplyProperties(ctx, Delta{}.WithTitle("b")))
	require.NoError(t, w.ApplyOverride(ctx, Delta{}.WithOpacity(0.2)))

	assert.Equal(t, []Origin{OriginApplication, OriginService, OriginServiceTemporary}, got)
}
