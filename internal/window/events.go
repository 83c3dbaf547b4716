package window

import (
	"context"
	"math"

	"github.com/1broseidon/winlink/internal/geom"
	"github.com/1broseidon/winlink/internal/platform"
	"github.com/1broseidon/winlink/internal/transform"
)

// handleEvent is the surface subscription for this window.
func (e *Entity) handleEvent(ev platform.Event) {
	ctx := context.Background()
	switch ev.Kind {
	case platform.EventBeginBoundsChanging:
		e.beginTransform(ctx)
	case platform.EventBoundsChanging:
		e.sampleTransform(ctx, ev.Bounds, ev.Hint)
	case platform.EventBoundsChanged:
		e.commitTransform(ctx, ev.Bounds, ev.Hint)
	case platform.EventClosing:
		if err := e.Teardown(ctx, false); err != nil {
			e.logger.Warn("teardown after close failed", "error", err)
		}
	case platform.EventFocused:
		e.raiseGroup(ctx)
	case platform.EventGroupChanged:
		e.handleGroupChange(ctx, ev.Group)
	case platform.EventHidden:
		e.applyApplication(ctx, Delta{}.WithHidden(true))
	case platform.EventShown:
		e.applyApplication(ctx, Delta{}.WithHidden(false))
	case platform.EventMaximized:
		e.applyApplication(ctx, Delta{}.WithState(platform.StateMaximized))
	case platform.EventMinimized:
		e.applyApplication(ctx, Delta{}.WithState(platform.StateMinimized))
	case platform.EventRestored:
		e.applyApplication(ctx, Delta{}.WithState(platform.StateNormal))
	default:
		e.logger.Debug("unhandled event", "kind", string(ev.Kind))
	}
}

// raiseGroup brings the other snap group members forward with the focused
// window.
func (e *Entity) raiseGroup(ctx context.Context) {
	for _, w := range e.SnapGroup().Windows() {
		if w == e || !w.Ready() {
			continue
		}
		if err := w.BringToFront(ctx); err != nil {
			e.logger.Debug("raise group member failed", "member", w.id, "error", err)
		}
	}
}

// beginTransform starts classifying a user drag. Geometry is trusted over
// the host's hint when the display uses a fractional scale factor.
func (e *Entity) beginTransform(ctx context.Context) {
	scaled := e.cfg.ForceScaledBounds
	if !scaled {
		scale, err := e.surface.DisplayScale(ctx, e.id)
		if err != nil {
			e.logger.Debug("display scale unavailable", "error", err)
		} else {
			scaled = scale != math.Trunc(scale)
		}
	}
	e.mu.Lock()
	e.classifier.Begin(e.current.Bounds(), scaled)
	e.mu.Unlock()
}

func (e *Entity) sampleTransform(ctx context.Context, r geom.Rect, hint platform.ChangeHint) {
	e.mu.Lock()
	b := e.modelBounds(r, e.current.Frame)
	typ, tr := e.classifier.Sample(b, hint)
	e.mu.Unlock()

	e.applyApplication(ctx, Delta{}.WithBounds(b))
	e.moveTransition(ctx, tr)
	if err := e.TransformInProgress.Emit(ctx, typ); err != nil {
		e.logger.Warn("transform subscriber failed", "error", err)
	}
}

func (e *Entity) commitTransform(ctx context.Context, r geom.Rect, hint platform.ChangeHint) {
	e.mu.Lock()
	change := e.classifier.Active()
	active := change != nil
	wasMove := active && change.Type == transform.Move
	b := e.modelBounds(r, e.current.Frame)
	if active && r != (geom.Rect{}) {
		e.classifier.Sample(b, hint)
	}
	typ, _ := e.classifier.Commit()
	e.mu.Unlock()

	// Constraints were suspended iff the last applied sample was a pure move.
	tr := transform.Unchanged
	if wasMove {
		tr = transform.LeftMove
	}

	if r != (geom.Rect{}) {
		e.applyApplication(ctx, Delta{}.WithBounds(b))
	}
	if !active {
		return
	}
	e.moveTransition(ctx, tr)
	if err := e.TransformCommitted.Emit(ctx, typ); err != nil {
		e.logger.Warn("transform subscriber failed", "error", err)
	}
}

// moveTransition suspends the group's resize constraints while it is being
// moved as a whole.
func (e *Entity) moveTransition(ctx context.Context, tr transform.Transition) {
	g := e.SnapGroup()
	if g.Len() < 2 {
		return
	}
	var err error
	switch tr {
	case transform.EnteredMove:
		err = g.SuspendResizeConstraints(ctx)
	case transform.LeftMove:
		err = g.RestoreResizeConstraints(ctx)
	}
	if err != nil {
		e.logger.Warn("toggle resize constraints failed", "error", err)
	}
}
