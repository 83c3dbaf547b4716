// Package txn coordinates multi-window detach/transform/regroup operations.
//
// While a transaction involving a window is registered, native group-change
// reports for that window are the transaction's own intermediate states and
// must not be acted on. Records outlive the transaction by a debounce delay so
// that stragglers are still recognised.
package txn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/winlink/internal/platform"
)

// DefaultDebounce is how long a finished transaction keeps suppressing group
// events for its windows.
const DefaultDebounce = 100 * time.Millisecond

// Participant is a window that can take part in a transaction.
type Participant interface {
	Identity() platform.Identity
	// Sync waits for the window's in-flight native commands to settle.
	Sync(ctx context.Context) error
	// Unsnap detaches the window from its native group while keeping its
	// logical group.
	Unsnap(ctx context.Context) error
	// Resnap joins the window back into its logical group natively.
	Resnap(ctx context.Context) error
}

// Transform is the caller's work inside a transaction.
type Transform func(ctx context.Context, windows []Participant) error

type record struct {
	id        uuid.UUID
	windows   map[platform.Identity]struct{}
	finishing bool
	postponed int
	timer     *time.Timer
}

// Coordinator is the registry of in-flight transactions.
type Coordinator struct {
	mu       sync.Mutex
	debounce time.Duration
	logger   *slog.Logger
	active   map[uuid.UUID]*record
}

// NewCoordinator returns a coordinator. A non-positive debounce uses
// DefaultDebounce.
func NewCoordinator(debounce time.Duration, logger *slog.Logger) *Coordinator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		debounce: debounce,
		logger:   logger,
		active:   make(map[uuid.UUID]*record),
	}
}

// Transaction syncs, detaches, transforms and regroups windows as one unit.
// Regrouping runs even if the transform fails; the transform error is
// returned joined with any regroup error.
func (c *Coordinator) Transaction(ctx context.Context, windows []Participant, transform Transform) error {
	rec := c.register(windows)
	defer c.finish(rec)

	log := c.logger.With("txn", rec.id.String(), "windows", len(windows))
	log.Debug("transaction started")

	if err := each(ctx, windows, Participant.Sync); err != nil {
		return fmt.Errorf("sync before transaction: %w", err)
	}

	// A partial detach still needs the regroup below.
	unsnapErr := each(ctx, windows, Participant.Unsnap)
	if unsnapErr != nil {
		unsnapErr = fmt.Errorf("detach windows: %w", unsnapErr)
	}

	var transformErr error
	if unsnapErr == nil {
		transformErr = transform(ctx, windows)
	}

	resnapErr := each(ctx, windows, Participant.Resnap)
	if resnapErr != nil {
		resnapErr = fmt.Errorf("regroup windows: %w", resnapErr)
	}

	err := errors.Join(unsnapErr, transformErr, resnapErr)
	if err != nil {
		log.Warn("transaction failed", "error", err)
	} else {
		log.Debug("transaction complete")
	}
	return err
}

// InTransaction reports whether id belongs to a registered transaction.
func (c *Coordinator) InTransaction(id platform.Identity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range c.active {
		if _, ok := rec.windows[id]; ok {
			return true
		}
	}
	return false
}

// Postpone records a suppressed event for id. Finished transactions holding
// id restart their removal delay.
func (c *Coordinator) Postpone(id platform.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range c.active {
		if _, ok := rec.windows[id]; !ok {
			continue
		}
		rec.postponed++
		if rec.finishing && rec.timer != nil {
			rec.timer.Reset(c.debounce)
		}
	}
}

// Active returns the number of registered transactions.
func (c *Coordinator) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

func (c *Coordinator) register(windows []Participant) *record {
	rec := &record{
		id:      uuid.New(),
		windows: make(map[platform.Identity]struct{}, len(windows)),
	}
	for _, w := range windows {
		rec.windows[w.Identity()] = struct{}{}
	}
	c.mu.Lock()
	c.active[rec.id] = rec
	c.mu.Unlock()
	return rec
}

func (c *Coordinator) finish(rec *record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec.finishing = true
	rec.timer = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		delete(c.active, rec.id)
		postponed := rec.postponed
		c.mu.Unlock()
		c.logger.Debug("transaction released", "txn", rec.id.String(), "postponed_events", postponed)
	})
}

// each runs fn for every window concurrently. Every window is attempted even
// when others fail, so a regroup never leaves a window behind.
func each(ctx context.Context, windows []Participant, fn func(Participant, context.Context) error) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, w := range windows {
		g.Go(func() error {
			if err := fn(w, ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", w.Identity(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
