package window

import (
	"context"
	"errors"
	"fmt"

	"github.com/1broseidon/winlink/internal/platform"
)

// Snap joins the window's native group to the rest of its snap group and
// raises every member. A window found missing on the native side is moved to
// ENDING and is not reported as an error.
func (e *Entity) Snap(ctx context.Context) error {
	if !e.Ready() {
		return fmt.Errorf("%w: snap %s", ErrInvalidState, e.id)
	}
	g := e.SnapGroup()
	if !g.Contains(e) {
		return fmt.Errorf("%w: %s", ErrNotInGroup, e.id)
	}
	windows := g.Windows()
	if len(windows) < 2 {
		return fmt.Errorf("%w: %s is alone", ErrNotEnoughWindows, e.id)
	}

	joined := false
	for _, target := range snapTargets(e, windows) {
		if !target.Ready() {
			continue
		}
		err := e.track(ctx, "merge group with "+target.id.String(), func(ctx context.Context) error {
			return e.surface.MergeGroup(ctx, e.id, target.id)
		})
		if err == nil {
			joined = true
			break
		}
		var nf *platform.NotFoundError
		if !errors.As(err, &nf) {
			return fmt.Errorf("snap %s to %s: %w", e.id, target.id, err)
		}
		if nf.ID != target.id {
			e.markEnding()
			return nil
		}
		target.markEnding()
	}
	if !joined {
		e.logger.Warn("no ready window to snap to", "members", len(windows))
		return nil
	}

	var errs []error
	for _, w := range windows {
		if !w.Ready() {
			continue
		}
		err := w.BringToFront(ctx)
		switch {
		case errors.Is(err, platform.ErrWindowNotFound):
			w.markEnding()
		case errors.Is(err, ErrInvalidState):
		case err != nil:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// snapTargets orders the candidates e may merge into. Every member merges
// into the first one; the first merges into the second.
func snapTargets(e *Entity, windows []*Entity) []*Entity {
	out := make([]*Entity, 0, len(windows)-1)
	for _, w := range windows {
		if w != e {
			out = append(out, w)
		}
	}
	return out
}

// Unsnap detaches the window from its native group while keeping its snap
// group in the model.
func (e *Entity) Unsnap(ctx context.Context) error {
	if !e.Ready() {
		return nil
	}
	err := e.track(ctx, "leave group", func(ctx context.Context) error {
		return e.surface.LeaveGroup(ctx, e.id)
	})
	if errors.Is(err, platform.ErrWindowNotFound) {
		e.markEnding()
		return nil
	}
	if err != nil {
		return fmt.Errorf("unsnap %s: %w", e.id, err)
	}
	return nil
}

// Resnap joins the window back into its snap group natively. Windows that
// are alone or not ready are left as they are.
func (e *Entity) Resnap(ctx context.Context) error {
	if !e.Ready() || e.SnapGroup().Len() < 2 {
		return nil
	}
	return e.Snap(ctx)
}
