package platform

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/winlink/internal/geom"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

func (l *eventLog) last() Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

func TestDragTracker_BurstSettles(t *testing.T) {
	var log eventLog
	start := geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}
	d := newDragTracker(Identity{Owner: "a", Name: "1"}, start, 30*time.Millisecond, log.add)
	defer d.stop()

	d.update(geom.Rect{X: 5, Y: 0, Width: 100, Height: 100})
	d.update(geom.Rect{X: 10, Y: 0, Width: 100, Height: 100})

	require.Eventually(t, func() bool { return len(log.kinds()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []EventKind{
		EventBeginBoundsChanging,
		EventBoundsChanging,
		EventBoundsChanging,
		EventBoundsChanged,
	}, log.kinds())
	last := log.last()
	assert.Equal(t, geom.Rect{X: 10, Y: 0, Width: 100, Height: 100}, last.Bounds)
	assert.Equal(t, HintMove, last.Hint)
}

func TestDragTracker_IgnoresUnchangedAndExpected(t *testing.T) {
	var log eventLog
	start := geom.Rect{Width: 100, Height: 100}
	d := newDragTracker(Identity{Owner: "a", Name: "1"}, start, 20*time.Millisecond, log.add)
	defer d.stop()

	d.update(start)
	own := geom.Rect{Width: 200, Height: 100}
	d.expectBounds(own)
	d.update(own)

	assert.Never(t, func() bool { return len(log.kinds()) > 0 }, 80*time.Millisecond, 10*time.Millisecond)
}

func TestChangeHint(t *testing.T) {
	base := geom.Rect{X: 10, Y: 10, Width: 100, Height: 100}
	assert.Equal(t, HintMove, changeHint(base, geom.Rect{X: 20, Y: 10, Width: 100, Height: 100}))
	assert.Equal(t, HintResize, changeHint(base, geom.Rect{X: 10, Y: 10, Width: 120, Height: 100}))
	assert.Equal(t, HintMoveResize, changeHint(base, geom.Rect{X: 0, Y: 10, Width: 120, Height: 100}))
}
