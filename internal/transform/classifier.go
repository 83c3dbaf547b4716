// Package transform classifies user-driven bounds changes as moves, resizes
// or both.
package transform

import (
	"math"

	"github.com/1broseidon/winlink/internal/geom"
	"github.com/1broseidon/winlink/internal/platform"
)

// Type is a bitmask of the kinds of change a drag performed.
type Type uint8

const (
	Move Type = 1 << iota
	Resize
)

// None is the classification before any change was seen.
const None Type = 0

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Move:
		return "move"
	case Resize:
		return "resize"
	case Move | Resize:
		return "move|resize"
	}
	return "unknown"
}

// FromHint converts the host's own classification.
func FromHint(h platform.ChangeHint) Type {
	switch h {
	case platform.HintMove:
		return Move
	case platform.HintResize:
		return Resize
	case platform.HintMoveResize:
		return Move | Resize
	}
	return None
}

const (
	// DefaultMoveThreshold is how far the center may drift from its expected
	// position before an axis counts as moved.
	DefaultMoveThreshold = 2.0
	// DefaultResizeThreshold is the smallest full-size change that counts as
	// a resize.
	DefaultResizeThreshold = 2.0
)

// Thresholds tune the geometric inference used on scaled displays.
type Thresholds struct {
	Move   float64
	Resize float64
}

// DefaultThresholds returns the standard thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Move: DefaultMoveThreshold, Resize: DefaultResizeThreshold}
}

// Change is the state of one in-progress drag.
type Change struct {
	Type  Type
	Start geom.Bounds
	// Scaled is set when the host hint is not trusted.
	Scaled bool
}

// Transition reports how a sample moved the classification in or out of a
// pure move.
type Transition int

const (
	Unchanged Transition = iota
	EnteredMove
	LeftMove
)

// Classifier tracks at most one active drag. It is not safe for concurrent
// use; the owning window serializes access.
type Classifier struct {
	thresholds Thresholds
	active     *Change
}

// NewClassifier returns a classifier using th. Zero thresholds fall back to
// the defaults.
func NewClassifier(th Thresholds) *Classifier {
	if th.Move <= 0 {
		th.Move = DefaultMoveThreshold
	}
	if th.Resize <= 0 {
		th.Resize = DefaultResizeThreshold
	}
	return &Classifier{thresholds: th}
}

// Active returns the in-progress change, or nil.
func (c *Classifier) Active() *Change {
	return c.active
}

// Begin starts tracking a drag from start. scaled selects geometric
// inference over the host hint.
func (c *Classifier) Begin(start geom.Bounds, scaled bool) {
	c.active = &Change{Start: start, Scaled: scaled}
}

// Sample classifies the drag so far against bounds. A sample with no active
// change starts one at bounds.
func (c *Classifier) Sample(bounds geom.Bounds, hint platform.ChangeHint) (Type, Transition) {
	if c.active == nil {
		c.Begin(bounds, false)
	}
	prev := c.active.Type

	var next Type
	if c.active.Scaled {
		next = c.infer(c.active.Start, bounds)
		if next&Move != 0 {
			next = Move
		}
	} else {
		next = FromHint(hint)
	}
	c.active.Type = next

	switch {
	case next == Move && prev != Move:
		return next, EnteredMove
	case next != Move && prev == Move:
		return next, LeftMove
	}
	return next, Unchanged
}

// Commit ends the drag and returns its final classification along with
// whether a pure move was still in effect.
func (c *Classifier) Commit() (Type, Transition) {
	if c.active == nil {
		return None, Unchanged
	}
	t := c.active.Type
	c.active = nil
	if t == Move {
		return t, LeftMove
	}
	return t, Unchanged
}

// infer classifies a sample purely from geometry. Each axis is resized if its
// full size changed by more than the resize threshold. The center is then
// expected to have shifted by the half-size delta toward whichever edge was
// dragged (or not at all for a symmetric resize); drifting further than the
// move threshold from that expectation marks the axis moved.
func (c *Classifier) infer(start, now geom.Bounds) Type {
	var t Type
	for _, a := range geom.Axes {
		halfDelta := now.HalfSize.Axis(a) - start.HalfSize.Axis(a)
		centerDelta := now.Center.Axis(a) - start.Center.Axis(a)

		if math.Abs(halfDelta*2) > c.thresholds.Resize {
			t |= Resize
		}

		deviation := math.Abs(centerDelta)
		for _, expected := range [2]float64{halfDelta, -halfDelta} {
			deviation = math.Min(deviation, math.Abs(centerDelta-expected))
		}
		if deviation > c.thresholds.Move {
			t |= Move
		}
	}
	return t
}
