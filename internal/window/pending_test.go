package window

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/winlink/internal/platform"
)

func TestAction_CompletesOnce(t *testing.T) {
	a, finish := NewAction("demo")
	assert.False(t, a.Finished())
	assert.NoError(t, a.Err())

	boom := errors.New("boom")
	finish(boom)
	finish(nil)

	assert.True(t, a.Finished())
	assert.ErrorIs(t, a.Err(), boom)
	assert.ErrorIs(t, a.Wait(context.Background()), boom)
}

func TestSync_WaitsForPendingCommands(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))
	ctx := context.Background()

	release := make(chan struct{})
	h.surf.SetHook(func(_ context.Context, cmd platform.Command) error {
		if cmd.Op == "update-options" {
			<-release
		}
		return nil
	})

	actions, err := w.UpdateState(ctx, Delta{}.WithOpacity(0.5), OriginService)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, []string{"update options opacity"}, w.Snapshot().Pending)

	done := make(chan error, 1)
	go func() { done <- w.Sync(ctx) }()

	assert.Never(t, func() bool { return len(done) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sync did not resolve")
	}
	assert.Empty(t, w.PendingActions())
}

func TestSync_IgnoresFailedActions(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))
	h.surf.SetHook(func(context.Context, platform.Command) error { return errors.New("denied") })

	err := w.ApplyProperties(context.Background(), Delta{}.WithOpacity(0.5))
	require.Error(t, err)
	require.NoError(t, w.Sync(context.Background()))
}

// chain queues a new action just before finishing each one, steps times in
// total, or forever when steps is negative.
func chain(t *testing.T, w *Entity, steps int32) *atomic.Int32 {
	var (
		created atomic.Int32
		stopped atomic.Bool
		step    func()
	)
	t.Cleanup(func() { stopped.Store(true) })
	step = func() {
		n := created.Add(1)
		a, finish := NewAction(fmt.Sprintf("step %d", n))
		w.AddPendingActions(a)
		go func() {
			time.Sleep(2 * time.Millisecond)
			if !stopped.Load() && (steps < 0 || n < steps) {
				step()
			}
			finish(nil)
		}()
	}
	step()
	return &created
}

func TestSync_FollowsShortChains(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))

	created := chain(t, w, 4)
	require.NoError(t, w.Sync(context.Background()))
	assert.Equal(t, int32(4), created.Load())
}

func TestSync_TimesOutOnEndlessChain(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))

	created := chain(t, w, -1)
	err := w.Sync(context.Background())
	require.ErrorIs(t, err, ErrSyncTimeout)
	assert.Contains(t, err.Error(), "step")
	assert.GreaterOrEqual(t, created.Load(), int32(DefaultSyncMaxRounds+1))
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSync_TimeoutLogNamesWindowOnce(t *testing.T) {
	h := newHarness(t)
	var out lockedBuffer
	cfg := h.config()
	cfg.Logger = slog.New(slog.NewTextHandler(&out, nil))

	id := platform.Identity{Owner: "app", Name: "main"}
	h.surf.Add(id, nativeWindow(rect(0, 0, 200, 100)))
	w := New(id, cfg)
	h.reg.add(w)
	require.NoError(t, w.Start(context.Background()))

	chain(t, w, -1)
	require.ErrorIs(t, w.Sync(context.Background()), ErrSyncTimeout)

	var line string
	for _, l := range strings.Split(out.String(), "\n") {
		if strings.Contains(l, "sync gave up") {
			line = l
		}
	}
	require.NotEmpty(t, line)
	assert.Equal(t, 1, strings.Count(line, "window="), line)
}

func TestSync_HonoursContext(t *testing.T) {
	h := newHarness(t)
	w := h.window("main", rect(0, 0, 200, 100))
	a, finish := NewAction("stuck")
	defer finish(nil)
	w.AddPendingActions(a)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, w.Sync(ctx), context.DeadlineExceeded)
}
