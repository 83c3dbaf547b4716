// Package daemon wires the window service to a native surface, the IPC
// server and the periodic reconciler.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/winlink/internal/config"
	"github.com/1broseidon/winlink/internal/geom"
	"github.com/1broseidon/winlink/internal/ipc"
	"github.com/1broseidon/winlink/internal/platform"
	"github.com/1broseidon/winlink/internal/runtimepath"
	"github.com/1broseidon/winlink/internal/service"
	"github.com/1broseidon/winlink/internal/transform"
	"github.com/1broseidon/winlink/internal/window"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Daemon.
type Options struct {
	// ConfigPath is re-read on Reload. Empty means the default path.
	ConfigPath string
	Config     *config.Config
	// Surface overrides the backend named in Config.
	Surface  platform.Surface
	Logger   *slog.Logger
	LogLevel *slog.LevelVar
}

// Daemon owns the service for the lifetime of the process and implements
// the IPC commands.
type Daemon struct {
	cfgPath    string
	logLevel   *slog.LevelVar
	logger     *slog.Logger
	surface    platform.Surface
	native     platform.NativeSurface
	svc        *service.Service
	reconciler *Reconciler
	started    time.Time

	mu  sync.RWMutex
	cfg *config.Config
}

var _ ipc.Controller = (*Daemon)(nil)

// New builds a daemon. The native surface, if any, is opened here but its
// event loop only starts in Run.
func New(opts Options) (*Daemon, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Daemon{
		cfgPath:  opts.ConfigPath,
		logLevel: opts.LogLevel,
		logger:   logger,
		cfg:      cfg,
		surface:  opts.Surface,
	}
	if d.surface == nil {
		surface, err := openSurface(cfg, logger)
		if err != nil {
			return nil, err
		}
		d.surface = surface
	}
	if native, ok := d.surface.(platform.NativeSurface); ok {
		d.native = native
	}

	d.svc = service.New(service.Config{
		Surface:             d.surface,
		Logger:              logger,
		TransactionDebounce: cfg.TransactionDebounce,
		Window:              windowConfig(cfg),
	})

	var lister WindowLister
	if l, ok := d.surface.(platform.Lister); ok {
		lister = l.List
	}
	d.reconciler = NewReconciler(ReconcilerConfig{
		Interval: cfg.RefreshInterval,
		Discover: true,
		Logger:   logger.With("component", "reconciler"),
	}, d.svc, lister)

	return d, nil
}

func openSurface(cfg *config.Config, logger *slog.Logger) (platform.Surface, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return platform.NewMemorySurface(), nil
	case config.BackendX11:
		return platform.OpenNative(cfg.DragSettle, logger.With("component", "x11"))
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func windowConfig(cfg *config.Config) window.Config {
	return window.Config{
		SyncMaxRounds: cfg.SyncMaxRounds,
		FrameShadow: geom.Insets{
			Left:   cfg.FrameShadow.Left,
			Right:  cfg.FrameShadow.Right,
			Bottom: cfg.FrameShadow.Bottom,
		},
		Thresholds: transform.Thresholds{
			Move:   float64(cfg.MoveThreshold),
			Resize: float64(cfg.ResizeThreshold),
		},
		ForceScaledBounds: cfg.ForceScaledBoundsLogic,
	}
}

// Service returns the window service.
func (d *Daemon) Service() *service.Service { return d.svc }

// Reconciler returns the refresh loop.
func (d *Daemon) Reconciler() *Reconciler { return d.reconciler }

func (d *Daemon) config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Run serves IPC and reconciles until ctx is cancelled, then tears every
// window down.
func (d *Daemon) Run(ctx context.Context) error {
	d.started = time.Now()

	socket, err := runtimepath.SocketPath(d.config().SocketPath)
	if err != nil {
		return err
	}
	srv, err := ipc.NewServer(socket, d, d.logger.With("component", "ipc"))
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	if d.native != nil {
		go d.native.Run()
	}

	d.reconciler.ReconcileNow(ctx)
	d.logger.Info("daemon started", "backend", d.config().Backend, "windows", len(d.svc.Windows()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.reconciler.Run(ctx)
	}()

	<-ctx.Done()
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr := d.svc.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		d.logger.Warn("shutdown reported errors", "error", shutdownErr)
	}

	srv.Stop()
	if d.native != nil {
		d.native.Shutdown()
	}
	d.logger.Info("daemon stopped")
	return shutdownErr
}

// Status implements ipc.Controller.
func (d *Daemon) Status() ipc.StatusData {
	windows := d.svc.Windows()
	groups := make(map[string]bool)
	for _, e := range windows {
		if g := e.SnapGroup(); g != nil && g.Len() >= 2 {
			groups[g.ID().String()] = true
		}
	}
	var uptime int64
	if !d.started.IsZero() {
		uptime = int64(time.Since(d.started).Seconds())
	}
	return ipc.StatusData{
		Backend:            string(d.config().Backend),
		WindowCount:        len(windows),
		SnapGroupCount:     len(groups),
		ActiveTransactions: d.svc.Coordinator().Active(),
		UptimeSeconds:      uptime,
		DaemonRunning:      true,
	}
}

// Windows implements ipc.Controller.
func (d *Daemon) Windows() []window.Snapshot {
	entities := d.svc.Windows()
	out := make([]window.Snapshot, len(entities))
	for i, e := range entities {
		out[i] = e.Snapshot()
	}
	return out
}

// Window implements ipc.Controller.
func (d *Daemon) Window(id platform.Identity) (window.Snapshot, error) {
	e, err := d.svc.Window(id)
	if err != nil {
		return window.Snapshot{}, err
	}
	return e.Snapshot(), nil
}

// ApplyOverride implements ipc.Controller.
func (d *Daemon) ApplyOverride(ctx context.Context, id platform.Identity, delta window.Delta) error {
	e, err := d.svc.Window(id)
	if err != nil {
		return err
	}
	return e.ApplyOverride(ctx, delta)
}

// ResetOverride implements ipc.Controller.
func (d *Daemon) ResetOverride(ctx context.Context, id platform.Identity, fields window.Field) error {
	e, err := d.svc.Window(id)
	if err != nil {
		return err
	}
	return e.ResetOverride(ctx, fields)
}

// Snap implements ipc.Controller.
func (d *Daemon) Snap(ctx context.Context, ids []platform.Identity) error {
	return d.svc.Snap(ctx, ids...)
}

// Unsnap implements ipc.Controller.
func (d *Daemon) Unsnap(ctx context.Context, id platform.Identity) error {
	return d.svc.Unsnap(ctx, id)
}

// Reload re-reads the config file. The log level and refresh interval apply
// at once; settings baked into the service need a restart.
func (d *Daemon) Reload() error {
	var (
		res *config.LoadResult
		err error
	)
	if d.cfgPath != "" {
		res, err = config.LoadFromPath(d.cfgPath)
	} else {
		res, err = config.LoadWithSources()
	}
	if err != nil {
		return err
	}
	next := res.Config

	d.mu.Lock()
	prev := d.cfg
	d.cfg = next
	d.mu.Unlock()

	if d.logLevel != nil {
		d.logLevel.Set(next.SlogLevel())
	}
	if next.RefreshInterval != prev.RefreshInterval {
		d.reconciler.SetInterval(next.RefreshInterval)
	}
	if restart := restartRequired(prev, next); len(restart) > 0 {
		d.logger.Warn("config changes need a daemon restart", "keys", restart)
	}
	d.logger.Info("config reloaded", "files", res.Files)
	return nil
}

func restartRequired(prev, next *config.Config) []string {
	var keys []string
	if prev.Backend != next.Backend {
		keys = append(keys, "backend")
	}
	if prev.SocketPath != next.SocketPath {
		keys = append(keys, "socket_path")
	}
	if prev.TransactionDebounce != next.TransactionDebounce {
		keys = append(keys, "transaction_debounce")
	}
	if prev.DragSettle != next.DragSettle {
		keys = append(keys, "drag_settle")
	}
	if windowConfig(prev) != windowConfig(next) {
		keys = append(keys, "window settings")
	}
	return keys
}
