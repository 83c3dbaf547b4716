package window

import (
	"context"
	"errors"
	"fmt"

	"github.com/1broseidon/winlink/internal/platform"
)

// UpdateState merges d into the model according to origin. Service origins
// return the native commands they issued as pending actions; application
// updates never issue commands.
func (e *Entity) UpdateState(ctx context.Context, d Delta, origin Origin) ([]*Action, error) {
	switch origin {
	case OriginApplication:
		e.applyApplication(ctx, d)
		return nil, nil
	case OriginService:
		return e.applyService(ctx, d)
	case OriginServiceTemporary:
		return e.applyServiceTemporary(ctx, d)
	}
	return nil, fmt.Errorf("unknown update origin %s", origin)
}

// ApplyProperties makes a persistent service change and waits for the
// resulting native commands.
func (e *Entity) ApplyProperties(ctx context.Context, d Delta) error {
	actions, err := e.applyService(ctx, d)
	if err != nil {
		return err
	}
	return WaitAll(ctx, actions)
}

// sanitizeLocked drops a window state the surface cannot represent.
func (e *Entity) sanitizeLocked(d Delta) Delta {
	if d.Has(FieldState) && !d.values.State.Valid() {
		e.logger.Warn("ignoring invalid window state", "state", string(d.values.State))
		d.clear(FieldState)
	}
	return d
}

// applyApplication folds in a change the native window already made.
// Overridden fields keep their application value; the service still owns
// them.
func (e *Entity) applyApplication(ctx context.Context, d Delta) {
	e.mu.Lock()
	if e.stage != StageReady {
		e.mu.Unlock()
		return
	}
	d = e.sanitizeLocked(d)
	if d.Empty() {
		e.mu.Unlock()
		return
	}
	d.fields.Each(func(f Field) {
		if !e.modified.Has(f) {
			copyField(f, &e.application, &d.values)
		}
	})
	d.ApplyTo(&e.current)
	e.trackNormalBoundsLocked()
	e.mu.Unlock()

	e.publish(ctx, d, OriginApplication)
}

func (e *Entity) applyService(ctx context.Context, d Delta) ([]*Action, error) {
	return e.serviceUpdate(ctx, d, OriginService)
}

func (e *Entity) applyServiceTemporary(ctx context.Context, d Delta) ([]*Action, error) {
	return e.serviceUpdate(ctx, d, OriginServiceTemporary)
}

// serviceUpdate is shared by both service origins. A temporary update backs
// up each field's previous value unless a backup already exists; a
// persistent update drops the backup.
func (e *Entity) serviceUpdate(ctx context.Context, d Delta, origin Origin) ([]*Action, error) {
	e.mu.Lock()
	if e.stage != StageReady {
		stage := e.stage
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: update %s while %s", ErrInvalidState, e.id, stage)
	}
	d = e.sanitizeLocked(d)
	if d.Empty() {
		e.mu.Unlock()
		return nil, nil
	}

	prev := e.current
	d.fields.Each(func(f Field) {
		if fieldEqual(f, &d.values, &e.application) {
			e.modified.clear(f)
		} else {
			e.modified.set(f, &d.values)
		}
		switch {
		case origin == OriginService:
			e.temporary.clear(f)
		case !e.temporary.Has(f):
			e.temporary.set(f, &prev)
		}
	})
	d.ApplyTo(&e.current)
	e.trackNormalBoundsLocked()
	next := e.current
	changed := diffFields(d.fields, &prev, &next)
	e.mu.Unlock()

	actions := e.issueCommands(ctx, prev, next, changed)
	e.publish(ctx, d, origin)
	return actions, nil
}

func (e *Entity) publish(ctx context.Context, d Delta, origin Origin) {
	if err := e.Modified.Emit(ctx, Modification{Window: e.id, Delta: d, Origin: origin}); err != nil {
		e.logger.Warn("modified subscriber failed", "error", err)
	}
}

type command struct {
	desc string
	run  func(ctx context.Context) error
}

// planCommands turns the changed fields into native commands: visibility,
// window state, geometry, resize constraints, then every other option in
// one batch.
func (e *Entity) planCommands(prev, next State, changed Field) []command {
	var cmds []command
	id := e.id

	if changed&FieldHidden != 0 {
		visible := !next.Hidden
		desc := "show"
		if !visible {
			desc = "hide"
		}
		cmds = append(cmds, command{desc, func(ctx context.Context) error {
			return e.surface.SetVisible(ctx, id, visible)
		}})
	}

	if changed&FieldState != 0 {
		switch next.State {
		case platform.StateMinimized:
			cmds = append(cmds, command{"minimize", func(ctx context.Context) error {
				return e.surface.Minimize(ctx, id)
			}})
		case platform.StateMaximized:
			cmds = append(cmds, command{"maximize", func(ctx context.Context) error {
				return e.surface.Maximize(ctx, id)
			}})
		default:
			cmds = append(cmds, command{"restore", func(ctx context.Context) error {
				return e.surface.Restore(ctx, id)
			}})
		}
	}

	shadowChanged := changed&FieldFrame != 0 &&
		shadowInsets(e.cfg.GOOS, prev.Frame, e.cfg.FrameShadow) != shadowInsets(e.cfg.GOOS, next.Frame, e.cfg.FrameShadow)
	if changed&FieldGeometry != 0 || shadowChanged {
		rect := e.nativeRect(next.Bounds(), next.Frame)
		cmds = append(cmds, command{fmt.Sprintf("set bounds %dx%d+%d+%d", rect.Width, rect.Height, rect.X, rect.Y), func(ctx context.Context) error {
			return e.surface.SetBounds(ctx, id, rect)
		}})
	}

	if changed&FieldResizeConstraints != 0 {
		u := constraintsUpdate(prev.ResizeConstraints, next.ResizeConstraints)
		cmds = append(cmds, command{"update resize constraints", func(ctx context.Context) error {
			return e.surface.UpdateOptions(ctx, id, u)
		}})
	}

	if opts := changed & optionFields; opts != 0 {
		u := optionsUpdate(opts, &next)
		if !u.Empty() {
			cmds = append(cmds, command{"update options " + opts.String(), func(ctx context.Context) error {
				return e.surface.UpdateOptions(ctx, id, u)
			}})
		}
	}
	return cmds
}

// issueCommands registers one pending action per command and runs them in
// order on a new goroutine. The caller's cancellation does not reach the
// native calls; a command once issued is left to finish.
func (e *Entity) issueCommands(ctx context.Context, prev, next State, changed Field) []*Action {
	cmds := e.planCommands(prev, next, changed)
	if len(cmds) == 0 {
		return nil
	}

	actions := make([]*Action, len(cmds))
	finishers := make([]func(error), len(cmds))
	for i, c := range cmds {
		actions[i], finishers[i] = NewAction(c.desc)
	}
	e.AddPendingActions(actions...)

	ctx = context.WithoutCancel(ctx)
	go func() {
		for i, c := range cmds {
			err := c.run(ctx)
			if err != nil {
				if errors.Is(err, platform.ErrWindowNotFound) {
					e.markEnding()
				}
				e.logger.Warn("native command failed", "command", c.desc, "error", err)
			}
			finishers[i](err)
		}
	}()
	return actions
}
