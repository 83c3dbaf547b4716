package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/winlink/internal/platform"
	"github.com/1broseidon/winlink/internal/service"
)

// WindowLister returns the identities of the native windows currently present.
type WindowLister func(ctx context.Context) ([]platform.Identity, error)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	// Discover registers native windows the service does not know yet.
	Discover bool
	Logger   *slog.Logger
}

// Reconciler periodically checks for state drift and corrects it: it folds
// in window changes whose events were lost, registers new native windows and
// drops windows whose native counterpart is gone.
type Reconciler struct {
	mu          sync.Mutex
	interval    time.Duration
	discover    bool
	svc         *service.Service
	listWindows WindowLister
	logger      *slog.Logger
	reset       chan struct{}
}

// NewReconciler creates a new reconciler with the given configuration.
// listWindows may be nil, which disables discovery and vanished-window
// detection by listing; refresh still catches closed windows.
func NewReconciler(cfg ReconcilerConfig, svc *service.Service, listWindows WindowLister) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		interval:    cfg.Interval,
		discover:    cfg.Discover,
		svc:         svc,
		listWindows: listWindows,
		logger:      logger,
		reset:       make(chan struct{}, 1),
	}
}

// SetInterval changes the period of a running loop. Zero pauses it.
func (r *Reconciler) SetInterval(d time.Duration) {
	r.mu.Lock()
	r.interval = d
	r.mu.Unlock()
	select {
	case r.reset <- struct{}{}:
	default:
	}
}

func (r *Reconciler) currentInterval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	r.logger.Info("reconciler started", "interval", r.currentInterval())

	var tick <-chan time.Time
	var ticker *time.Ticker
	restart := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
		if d := r.currentInterval(); d > 0 {
			ticker = time.NewTicker(d)
			tick = ticker.C
		}
	}
	restart()
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-r.reset:
			restart()
		case <-tick:
			r.reconcile(ctx)
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile(ctx context.Context) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	if r.listWindows != nil {
		r.syncRegistry(ctx)
	}

	for _, e := range r.svc.Windows() {
		if !e.Ready() {
			continue
		}
		d, err := e.Refresh(ctx)
		switch {
		case errors.Is(err, platform.ErrWindowNotFound):
			r.logger.Info("reconciler: window vanished", "window", e.Identity())
			r.drop(ctx, e.Identity())
		case err != nil:
			r.logger.Warn("reconciler: refresh failed", "window", e.Identity(), "error", err)
		case !d.Empty():
			r.logger.Debug("reconciler: folded external changes", "window", e.Identity(), "fields", d.Fields().String())
		}
	}
}

// syncRegistry compares the registry with the native window list.
func (r *Reconciler) syncRegistry(ctx context.Context) {
	actual, err := r.listWindows(ctx)
	if err != nil {
		r.logger.Error("reconciler: failed to list windows", "error", err)
		return
	}

	present := make(map[platform.Identity]bool, len(actual))
	for _, id := range actual {
		present[id] = true
	}

	// Registered windows whose native window is gone.
	for _, e := range r.svc.Windows() {
		if !present[e.Identity()] && e.Ready() {
			r.logger.Info("reconciler: orphaned window detected", "window", e.Identity())
			r.drop(ctx, e.Identity())
		}
	}

	if !r.discover {
		return
	}
	for _, id := range actual {
		if _, ok := r.svc.Lookup(id); ok {
			continue
		}
		if _, err := r.svc.Register(ctx, id); err != nil {
			r.logger.Warn("reconciler: failed to register window", "window", id, "error", err)
		}
	}
}

func (r *Reconciler) drop(ctx context.Context, id platform.Identity) {
	if err := r.svc.Deregister(ctx, id); err != nil && !errors.Is(err, service.ErrUnknownWindow) {
		r.logger.Debug("reconciler: deregister reported errors", "window", id, "error", err)
	}
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow(ctx context.Context) {
	r.reconcile(ctx)
}
