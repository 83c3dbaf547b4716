package window

import (
	"context"
	"fmt"
)

// ApplyOverride applies d as a revertible override and waits for the native
// commands. Fields already at the requested value are skipped, so repeating
// an override does not replace its backup.
func (e *Entity) ApplyOverride(ctx context.Context, d Delta) error {
	actions, err := e.applyOverride(ctx, d)
	if err != nil {
		return err
	}
	return WaitAll(ctx, actions)
}

func (e *Entity) applyOverride(ctx context.Context, d Delta) ([]*Action, error) {
	e.mu.Lock()
	changed := diffFields(d.fields, &d.values, &e.current)
	e.mu.Unlock()

	d = d.Only(changed)
	if d.Empty() {
		return nil, nil
	}
	return e.applyServiceTemporary(ctx, d)
}

// ResetOverride restores the pre-override value of each field in fields that
// has a backup. Fields without a backup are left alone.
func (e *Entity) ResetOverride(ctx context.Context, fields Field) error {
	actions, err := e.resetOverride(ctx, fields)
	if err != nil {
		return err
	}
	return WaitAll(ctx, actions)
}

func (e *Entity) resetOverride(ctx context.Context, fields Field) ([]*Action, error) {
	e.mu.Lock()
	restore := e.temporary.Only(fields)
	e.mu.Unlock()

	if restore.Empty() {
		return nil, nil
	}
	// Restoring is a persistent change so the backup is dropped with it.
	return e.applyService(ctx, restore)
}

// Refresh re-reads the native window and folds in every field that changed
// outside the service's knowledge. A field reported at the service's own
// override value is not a change. It returns the delta that was applied.
func (e *Entity) Refresh(ctx context.Context) (Delta, error) {
	if !e.Ready() {
		return Delta{}, nil
	}
	native, err := e.surface.Query(ctx, e.id)
	if err != nil {
		return Delta{}, fmt.Errorf("refresh %s: %w", e.id, err)
	}
	fresh := e.stateFromNative(native)

	e.mu.Lock()
	var d Delta
	AllFields.Each(func(f Field) {
		if fieldEqual(f, &fresh, &e.application) {
			return
		}
		if e.modified.Has(f) && fieldEqual(f, &fresh, &e.modified.values) {
			return
		}
		d.set(f, &fresh)
	})
	e.mu.Unlock()

	if !d.Empty() {
		e.logger.Debug("refresh found external changes", "fields", d.Fields().String())
		e.applyApplication(ctx, d)
	}
	return d, nil
}
