package window

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultSyncMaxRounds bounds how many times Sync re-checks for newly queued
// actions before giving up.
const DefaultSyncMaxRounds = 10

// Action is one in-flight asynchronous command against a window.
type Action struct {
	id      uuid.UUID
	desc    string
	done    chan struct{}
	once    sync.Once
	err     error
	created int64
}

var actionSeq atomic.Int64

// NewAction returns a pending action and the func that completes it. Only the
// first completion counts.
func NewAction(desc string) (*Action, func(error)) {
	a := &Action{id: uuid.New(), desc: desc, done: make(chan struct{}), created: actionSeq.Add(1)}
	return a, func(err error) {
		a.once.Do(func() {
			a.err = err
			close(a.done)
		})
	}
}

// ID returns the action's handle.
func (a *Action) ID() uuid.UUID { return a.id }

// Description is the human-readable tag given at creation.
func (a *Action) Description() string { return a.desc }

// Done is closed once the action completes.
func (a *Action) Done() <-chan struct{} { return a.done }

// Finished reports whether the action has completed.
func (a *Action) Finished() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// Err returns the action's result. It is nil until the action completes.
func (a *Action) Err() error {
	if !a.Finished() {
		return nil
	}
	return a.err
}

// Wait blocks until the action completes or ctx ends.
func (a *Action) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitAll waits for every action and joins their errors.
func WaitAll(ctx context.Context, actions []*Action) error {
	var errs []error
	for _, a := range actions {
		if err := a.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return err
			}
			errs = append(errs, fmt.Errorf("%s: %w", a.desc, err))
		}
	}
	return errors.Join(errs...)
}

// AddPendingActions records actions against the window. Each one leaves the
// pending set when it completes.
func (e *Entity) AddPendingActions(actions ...*Action) {
	if len(actions) == 0 {
		return
	}
	e.pendingMu.Lock()
	for _, a := range actions {
		e.pending[a.id] = a
	}
	e.pendingMu.Unlock()

	for _, a := range actions {
		go func() {
			<-a.done
			e.pendingMu.Lock()
			delete(e.pending, a.id)
			e.pendingMu.Unlock()
			if a.err != nil {
				e.logger.Debug("pending action failed", "action", a.desc, "error", a.err)
			}
		}()
	}
}

// PendingActions returns the unfinished actions in creation order.
func (e *Entity) PendingActions() []*Action {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	out := make([]*Action, 0, len(e.pending))
	for _, a := range e.pending {
		if !a.Finished() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].created < out[j].created })
	return out
}

// Sync waits until the window has no pending actions. Actions queued while
// waiting are waited for too, for at most the configured number of rounds.
// Failed actions do not fail Sync.
func (e *Entity) Sync(ctx context.Context) error {
	rounds := e.cfg.SyncMaxRounds
	for round := 0; round < rounds; round++ {
		pending := e.PendingActions()
		if len(pending) == 0 {
			return nil
		}
		for _, a := range pending {
			select {
			case <-a.done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	stuck := e.PendingActions()
	if len(stuck) == 0 {
		return nil
	}
	descs := make([]string, len(stuck))
	for i, a := range stuck {
		descs[i] = a.desc
	}
	e.logger.Warn("sync gave up", "rounds", rounds, "pending", len(stuck))
	return fmt.Errorf("%w: %s after %d rounds: %s", ErrSyncTimeout, e.id, rounds, strings.Join(descs, ", "))
}

// track runs fn as a pending action on the calling goroutine.
func (e *Entity) track(ctx context.Context, desc string, fn func(context.Context) error) error {
	a, finish := NewAction(desc)
	e.AddPendingActions(a)
	err := fn(ctx)
	finish(err)
	return err
}
