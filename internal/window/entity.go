// Package window models one native desktop window as seen by the service.
//
// An Entity keeps three layers of state: what the real window currently
// shows, what its owning application believes it shows, and which fields the
// service has overridden on top of that (with a backup of the previous value
// for overrides that must be revertible). Updates are tagged with their
// origin so each layer is kept consistent.
package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/1broseidon/winlink/internal/broadcast"
	"github.com/1broseidon/winlink/internal/geom"
	"github.com/1broseidon/winlink/internal/platform"
	"github.com/1broseidon/winlink/internal/transform"
)

// Stage is the lifecycle stage of an Entity.
type Stage int

const (
	StageStarting Stage = iota
	StageReady
	StageEnding
)

func (s Stage) String() string {
	switch s {
	case StageStarting:
		return "starting"
	case StageReady:
		return "ready"
	case StageEnding:
		return "ending"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Origin tags who produced a state update.
type Origin int

const (
	// OriginApplication is a change that already happened on the native
	// window.
	OriginApplication Origin = iota
	// OriginService is a persistent change requested by the service.
	OriginService
	// OriginServiceTemporary is a revertible override.
	OriginServiceTemporary
)

func (o Origin) String() string {
	switch o {
	case OriginApplication:
		return "application"
	case OriginService:
		return "service"
	case OriginServiceTemporary:
		return "service-temporary"
	}
	return fmt.Sprintf("origin(%d)", int(o))
}

// TransactionTracker reports which windows are inside a multi-window
// transaction.
type TransactionTracker interface {
	InTransaction(id platform.Identity) bool
	Postpone(id platform.Identity)
}

// Resolver finds the entity registered for a native window.
type Resolver interface {
	Lookup(id platform.Identity) (*Entity, bool)
}

// Config holds the collaborators and tuning shared by every entity.
type Config struct {
	Surface  platform.Surface
	Tracker  TransactionTracker
	Resolver Resolver
	Logger   *slog.Logger

	// SyncMaxRounds bounds Sync. Zero means DefaultSyncMaxRounds.
	SyncMaxRounds int
	// FrameShadow is removed from native bounds of framed windows on
	// Windows hosts.
	FrameShadow geom.Insets
	// GOOS overrides runtime.GOOS.
	GOOS string
	// Thresholds tune bounds classification on scaled displays.
	Thresholds transform.Thresholds
	// ForceScaledBounds always infers move/resize from geometry.
	ForceScaledBounds bool
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.SyncMaxRounds <= 0 {
		c.SyncMaxRounds = DefaultSyncMaxRounds
	}
	if c.GOOS == "" {
		c.GOOS = runtime.GOOS
	}
	if c.Tracker == nil {
		c.Tracker = noTransactions{}
	}
	return c
}

type noTransactions struct{}

func (noTransactions) InTransaction(platform.Identity) bool { return false }
func (noTransactions) Postpone(platform.Identity)           {}

// Modification is published after every applied update.
type Modification struct {
	Window platform.Identity
	Delta  Delta
	Origin Origin
}

// Entity is the service-side model of one native window.
type Entity struct {
	id      platform.Identity
	surface platform.Surface
	cfg     Config
	logger  *slog.Logger

	mu           sync.Mutex
	stage        Stage
	tornDown     bool
	current      State
	application  State
	modified     Delta
	temporary    Delta
	normalBounds geom.Bounds
	classifier   *transform.Classifier
	unsubscribe  func()

	pendingMu sync.Mutex
	pending   map[uuid.UUID]*Action

	groupMu   sync.Mutex
	snapGroup *SnapGroup
	prevGroup *SnapGroup
	tabGroup  *TabGroup

	Modified            broadcast.Signal[Modification]
	TransformInProgress broadcast.Signal[transform.Type]
	TransformCommitted  broadcast.Signal[transform.Type]
	TabGroupChanged     broadcast.Signal[*TabGroup]
	// TeardownRequested is awaited by every subscriber before the entity
	// finishes tearing down.
	TeardownRequested broadcast.Signal[*Entity]
	Destroyed         broadcast.Signal[platform.Identity]
}

// New returns a STARTING entity for id in its own singleton snap group.
func New(id platform.Identity, cfg Config) *Entity {
	cfg = cfg.withDefaults()
	e := &Entity{
		id:         id,
		surface:    cfg.Surface,
		cfg:        cfg,
		logger:     cfg.Logger.With("window", id.String()),
		classifier: transform.NewClassifier(cfg.Thresholds),
		pending:    make(map[uuid.UUID]*Action),
	}
	g := NewSnapGroup()
	g.add(e)
	e.snapGroup = g
	return e
}

// Identity returns the (owner, name) pair of the window.
func (e *Entity) Identity() platform.Identity { return e.id }

// Stage returns the lifecycle stage.
func (e *Entity) Stage() Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stage
}

// Ready reports whether commands may be issued.
func (e *Entity) Ready() bool { return e.Stage() == StageReady }

// Start fetches the initial native state, attaches event listeners and
// moves the entity to READY.
func (e *Entity) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.stage != StageStarting {
		stage := e.stage
		e.mu.Unlock()
		return fmt.Errorf("%w: start %s while %s", ErrInvalidState, e.id, stage)
	}
	e.mu.Unlock()

	native, err := e.surface.Query(ctx, e.id)
	if err != nil {
		return fmt.Errorf("query %s: %w", e.id, err)
	}
	unsubscribe, err := e.surface.Subscribe(e.id, e.handleEvent)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", e.id, err)
	}

	state := e.stateFromNative(native)

	e.mu.Lock()
	if e.stage != StageStarting {
		e.mu.Unlock()
		unsubscribe()
		return fmt.Errorf("%w: %s ended while starting", ErrInvalidState, e.id)
	}
	e.current = state
	e.application = state
	e.unsubscribe = unsubscribe
	e.trackNormalBoundsLocked()
	e.stage = StageReady
	e.mu.Unlock()

	e.logger.Debug("window ready", "bounds", state.Bounds().ToRect(), "state", state.State)
	return nil
}

// Create asks the surface for a new native window with the initial state,
// then starts the entity.
func (e *Entity) Create(ctx context.Context, initial State) error {
	if !initial.State.Valid() {
		initial.State = platform.StateNormal
	}
	rect := e.nativeRect(initial.Bounds(), initial.Frame)
	if err := e.surface.Create(ctx, e.id, optionsFromState(initial), rect); err != nil {
		return fmt.Errorf("create %s: %w", e.id, err)
	}
	if initial.Hidden {
		if err := e.surface.SetVisible(ctx, e.id, false); err != nil {
			return fmt.Errorf("hide new window %s: %w", e.id, err)
		}
	}
	switch initial.State {
	case platform.StateMinimized:
		if err := e.surface.Minimize(ctx, e.id); err != nil {
			return fmt.Errorf("minimize new window %s: %w", e.id, err)
		}
	case platform.StateMaximized:
		if err := e.surface.Maximize(ctx, e.id); err != nil {
			return fmt.Errorf("maximize new window %s: %w", e.id, err)
		}
	}
	return e.Start(ctx)
}

// markEnding moves the entity to ENDING without tearing it down. Used when a
// native command shows the window is already gone; the closing event still
// drives the actual teardown.
func (e *Entity) markEnding() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stage != StageEnding {
		e.stage = StageEnding
		e.logger.Info("window vanished, ending")
	}
}

// Teardown reverts temporary overrides, leaves every group, detaches event
// listeners, waits for TeardownRequested subscribers and finally publishes
// Destroyed. With revert false nothing is sent to the native window, which
// is how a closing window is handled. Teardown runs once; later calls
// return nil.
func (e *Entity) Teardown(ctx context.Context, revert bool) error {
	e.mu.Lock()
	if e.tornDown {
		e.mu.Unlock()
		return nil
	}
	e.tornDown = true
	live := revert && e.stage == StageReady
	overridden := e.temporary.Fields()
	e.mu.Unlock()

	var errs []error
	if live && overridden != 0 {
		if err := e.ResetOverride(ctx, overridden); err != nil {
			errs = append(errs, fmt.Errorf("revert overrides: %w", err))
		}
	}

	grouped := e.SnapGroup().Len() > 1
	e.SetSnapGroup(NewSnapGroup())
	if live && grouped {
		err := e.track(ctx, "leave group", func(ctx context.Context) error {
			return e.surface.LeaveGroup(ctx, e.id)
		})
		if err != nil && !errors.Is(err, platform.ErrWindowNotFound) {
			errs = append(errs, fmt.Errorf("leave group: %w", err))
		}
	}
	e.SetTabGroup(ctx, nil)

	e.mu.Lock()
	e.stage = StageEnding
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}

	if err := e.TeardownRequested.EmitAwait(ctx, e); err != nil {
		errs = append(errs, fmt.Errorf("teardown subscribers: %w", err))
	}
	if err := e.Destroyed.Emit(ctx, e.id); err != nil {
		errs = append(errs, err)
	}
	e.logger.Debug("window torn down")
	return errors.Join(errs...)
}

// Close asks the native window to close. Teardown follows from the closing
// event.
func (e *Entity) Close(ctx context.Context) error {
	if !e.Ready() {
		return fmt.Errorf("%w: close %s", ErrInvalidState, e.id)
	}
	return e.track(ctx, "close", func(ctx context.Context) error {
		return e.surface.Close(ctx, e.id)
	})
}

// BringToFront raises the window.
func (e *Entity) BringToFront(ctx context.Context) error {
	if !e.Ready() {
		return fmt.Errorf("%w: bring %s to front", ErrInvalidState, e.id)
	}
	return e.track(ctx, "bring to front", func(ctx context.Context) error {
		return e.surface.BringToFront(ctx, e.id)
	})
}

// Focus raises and activates the window.
func (e *Entity) Focus(ctx context.Context) error {
	if !e.Ready() {
		return fmt.Errorf("%w: focus %s", ErrInvalidState, e.id)
	}
	return e.track(ctx, "set as foreground", func(ctx context.Context) error {
		return e.surface.SetAsForeground(ctx, e.id)
	})
}

// CurrentState is the best-known state of the native window.
func (e *Entity) CurrentState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// ApplicationState is the state the owning application believes in.
func (e *Entity) ApplicationState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.application
}

// ModifiedState holds the fields the service currently overrides.
func (e *Entity) ModifiedState() Delta {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modified
}

// TemporaryState holds the pre-override values of revertible overrides.
func (e *Entity) TemporaryState() Delta {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.temporary
}

// NormalBounds is the last geometry seen while the window was neither
// minimized nor maximized.
func (e *Entity) NormalBounds() geom.Bounds {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.normalBounds
}

// ActiveTransform reports whether a user drag is in progress.
func (e *Entity) ActiveTransform() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.classifier.Active() != nil
}

func (e *Entity) trackNormalBoundsLocked() {
	if e.current.State == platform.StateNormal {
		e.normalBounds = e.current.Bounds()
	}
}

// Snapshot is a serializable view of an entity.
type Snapshot struct {
	ID              platform.Identity   `json:"id"`
	Stage           string              `json:"stage"`
	Current         State               `json:"current"`
	Application     State               `json:"application"`
	Modified        []string            `json:"modified,omitempty"`
	Temporary       []string            `json:"temporary,omitempty"`
	NormalBounds    geom.Rect           `json:"normal_bounds"`
	SnapGroup       []platform.Identity `json:"snap_group"`
	TabGroup        []platform.Identity `json:"tab_group,omitempty"`
	ActiveTransform bool                `json:"active_transform"`
	Pending         []string            `json:"pending,omitempty"`
}

// Snapshot captures the entity for reporting.
func (e *Entity) Snapshot() Snapshot {
	e.mu.Lock()
	s := Snapshot{
		ID:              e.id,
		Stage:           e.stage.String(),
		Current:         e.current,
		Application:     e.application,
		Modified:        e.modified.Fields().Names(),
		Temporary:       e.temporary.Fields().Names(),
		NormalBounds:    e.normalBounds.ToRect(),
		ActiveTransform: e.classifier.Active() != nil,
	}
	e.mu.Unlock()

	s.SnapGroup = e.SnapGroup().Identities()
	if tg := e.TabGroup(); tg != nil {
		s.TabGroup = tg.Identities()
	}
	for _, a := range e.PendingActions() {
		s.Pending = append(s.Pending, a.Description())
	}
	return s
}
