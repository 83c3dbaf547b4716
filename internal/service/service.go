// Package service is the orchestration root: it owns the window registry,
// the transaction coordinator and the process-wide creation and destruction
// signals.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/1broseidon/winlink/internal/broadcast"
	"github.com/1broseidon/winlink/internal/platform"
	"github.com/1broseidon/winlink/internal/txn"
	"github.com/1broseidon/winlink/internal/window"
)

var (
	// ErrUnknownWindow is returned for identities that are not registered.
	ErrUnknownWindow = errors.New("window is not registered")
	// ErrAlreadyRegistered is returned when registering an identity twice.
	ErrAlreadyRegistered = errors.New("window is already registered")
)

// Config configures a Service.
type Config struct {
	Surface             platform.Surface
	Logger              *slog.Logger
	TransactionDebounce time.Duration
	// Window is the template for every entity. Surface, Tracker, Resolver
	// and Logger are filled in by the service.
	Window window.Config
}

// Service tracks every registered window.
type Service struct {
	surface platform.Surface
	coord   *txn.Coordinator
	logger  *slog.Logger
	winCfg  window.Config

	mu      sync.RWMutex
	windows map[platform.Identity]*window.Entity

	Created   broadcast.Signal[*window.Entity]
	Destroyed broadcast.Signal[platform.Identity]
}

// New returns a service with an empty registry.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		surface: cfg.Surface,
		coord:   txn.NewCoordinator(cfg.TransactionDebounce, logger.With("component", "txn")),
		logger:  logger,
		windows: make(map[platform.Identity]*window.Entity),
	}
	winCfg := cfg.Window
	winCfg.Surface = cfg.Surface
	winCfg.Tracker = s.coord
	winCfg.Resolver = s
	winCfg.Logger = logger
	s.winCfg = winCfg
	return s
}

// Coordinator returns the transaction coordinator.
func (s *Service) Coordinator() *txn.Coordinator { return s.coord }

// Lookup returns the entity registered for id.
func (s *Service) Lookup(id platform.Identity) (*window.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.windows[id]
	return e, ok
}

// Window is Lookup with an error for unknown identities.
func (s *Service) Window(id platform.Identity) (*window.Entity, error) {
	if e, ok := s.Lookup(id); ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownWindow, id)
}

// Windows returns every registered entity sorted by identity.
func (s *Service) Windows() []*window.Entity {
	s.mu.RLock()
	out := make([]*window.Entity, 0, len(s.windows))
	for _, e := range s.windows {
		out = append(out, e)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Identity().Less(out[j].Identity()) })
	return out
}

// Register wraps an existing native window.
func (s *Service) Register(ctx context.Context, id platform.Identity) (*window.Entity, error) {
	return s.add(ctx, id, func(ctx context.Context, e *window.Entity) error {
		return e.Start(ctx)
	})
}

// Create opens a new native window in the given initial state.
func (s *Service) Create(ctx context.Context, id platform.Identity, initial window.State) (*window.Entity, error) {
	return s.add(ctx, id, func(ctx context.Context, e *window.Entity) error {
		return e.Create(ctx, initial)
	})
}

func (s *Service) add(ctx context.Context, id platform.Identity, start func(context.Context, *window.Entity) error) (*window.Entity, error) {
	s.mu.Lock()
	if _, ok := s.windows[id]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}
	e := window.New(id, s.winCfg)
	s.windows[id] = e
	s.mu.Unlock()

	e.Destroyed.Connect(func(ctx context.Context, id platform.Identity) error {
		s.remove(e)
		return s.Destroyed.Emit(ctx, id)
	})
	if err := s.Created.Emit(ctx, e); err != nil {
		s.logger.Warn("created subscriber failed", "window", id, "error", err)
	}

	if err := start(ctx, e); err != nil {
		s.remove(e)
		return nil, err
	}
	s.logger.Info("window registered", "window", id)
	return e, nil
}

func (s *Service) remove(e *window.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.windows[e.Identity()] == e {
		delete(s.windows, e.Identity())
	}
}

// Deregister tears the window down, reverting its temporary overrides and
// leaving its groups.
func (s *Service) Deregister(ctx context.Context, id platform.Identity) error {
	e, err := s.Window(id)
	if err != nil {
		return err
	}
	err = e.Teardown(ctx, true)
	s.remove(e)
	s.logger.Info("window deregistered", "window", id)
	return err
}

// Snap groups the given windows together as one transaction.
func (s *Service) Snap(ctx context.Context, ids ...platform.Identity) error {
	if len(ids) < 2 {
		return fmt.Errorf("%w: need at least 2, got %d", window.ErrNotEnoughWindows, len(ids))
	}
	entities, err := s.readyWindows(ids)
	if err != nil {
		return err
	}
	if len(entities) < 2 {
		return fmt.Errorf("%w: duplicate windows", window.ErrNotEnoughWindows)
	}
	return s.coord.Transaction(ctx, participants(entities), func(context.Context, []txn.Participant) error {
		g := window.NewSnapGroup()
		for _, e := range entities {
			e.SetSnapGroup(g)
		}
		return nil
	})
}

// Unsnap takes one window out of its snap group.
func (s *Service) Unsnap(ctx context.Context, id platform.Identity) error {
	entities, err := s.readyWindows([]platform.Identity{id})
	if err != nil {
		return err
	}
	e := entities[0]
	if e.SnapGroup().Len() < 2 {
		return fmt.Errorf("%w: %s is not snapped", window.ErrNotEnoughWindows, id)
	}
	return s.coord.Transaction(ctx, participants(entities), func(context.Context, []txn.Participant) error {
		e.SetSnapGroup(window.NewSnapGroup())
		return nil
	})
}

// Shutdown deregisters every window.
func (s *Service) Shutdown(ctx context.Context) error {
	var errs []error
	for _, e := range s.Windows() {
		if err := s.Deregister(ctx, e.Identity()); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Identity(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) readyWindows(ids []platform.Identity) ([]*window.Entity, error) {
	seen := make(map[platform.Identity]bool, len(ids))
	out := make([]*window.Entity, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		e, err := s.Window(id)
		if err != nil {
			return nil, err
		}
		if !e.Ready() {
			return nil, fmt.Errorf("%w: %s is %s", window.ErrInvalidState, id, e.Stage())
		}
		out = append(out, e)
	}
	return out, nil
}

func participants(entities []*window.Entity) []txn.Participant {
	out := make([]txn.Participant, len(entities))
	for i, e := range entities {
		out[i] = e
	}
	return out
}
