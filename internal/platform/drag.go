package platform

import (
	"sync"
	"time"

	"github.com/1broseidon/winlink/internal/geom"
)

// dragTracker turns a burst of geometry notifications into a begin, a series
// of changing events and a final changed event. The burst ends once no
// change has arrived for settle. Hosts that report interactive moves only as
// plain geometry changes use it to synthesize transform events.
type dragTracker struct {
	id     Identity
	settle time.Duration
	emit   func(Event)

	mu     sync.Mutex
	timer  *time.Timer
	active bool
	start  geom.Rect
	last   geom.Rect
	expect []geom.Rect
}

func newDragTracker(id Identity, initial geom.Rect, settle time.Duration, emit func(Event)) *dragTracker {
	return &dragTracker{id: id, settle: settle, emit: emit, last: initial}
}

// expectBounds marks r as a change the service itself requested. The next
// idle notification reporting r is absorbed instead of starting a drag.
func (d *dragTracker) expectBounds(r geom.Rect) {
	d.mu.Lock()
	d.expect = append(d.expect, r)
	d.mu.Unlock()
}

// update feeds one geometry notification.
func (d *dragTracker) update(r geom.Rect) {
	var events []Event
	d.mu.Lock()
	if !d.active {
		if r == d.last {
			d.mu.Unlock()
			return
		}
		if d.consumeExpectedLocked(r) {
			d.last = r
			d.mu.Unlock()
			return
		}
		d.active = true
		d.start = d.last
		events = append(events, Event{Kind: EventBeginBoundsChanging, Window: d.id, Bounds: r, Hint: changeHint(d.start, r)})
	}
	d.last = r
	events = append(events, Event{Kind: EventBoundsChanging, Window: d.id, Bounds: r, Hint: changeHint(d.start, r)})
	if d.timer == nil {
		d.timer = time.AfterFunc(d.settle, d.settled)
	} else {
		d.timer.Reset(d.settle)
	}
	d.mu.Unlock()

	for _, ev := range events {
		d.emit(ev)
	}
}

func (d *dragTracker) consumeExpectedLocked(r geom.Rect) bool {
	for i, e := range d.expect {
		if e == r {
			d.expect = append(d.expect[:i], d.expect[i+1:]...)
			return true
		}
	}
	return false
}

func (d *dragTracker) settled() {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	d.expect = nil
	ev := Event{Kind: EventBoundsChanged, Window: d.id, Bounds: d.last, Hint: changeHint(d.start, d.last)}
	d.mu.Unlock()
	d.emit(ev)
}

func (d *dragTracker) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.active = false
}

func changeHint(from, to geom.Rect) ChangeHint {
	sameSize := from.Width == to.Width && from.Height == to.Height
	samePos := from.X == to.X && from.Y == to.Y
	switch {
	case sameSize:
		return HintMove
	case samePos:
		return HintResize
	default:
		return HintMoveResize
	}
}
