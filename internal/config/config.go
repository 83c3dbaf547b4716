package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend selects the native surface implementation.
type Backend string

const (
	BackendX11    Backend = "x11"
	BackendMemory Backend = "memory"
)

const (
	DefaultSyncMaxRounds       = 10
	DefaultTransactionDebounce = 100 * time.Millisecond
	DefaultRefreshInterval     = 10 * time.Second
	DefaultMoveThreshold       = 2
	DefaultResizeThreshold     = 2
	DefaultDragSettle          = 150 * time.Millisecond
	DefaultShadowInset         = 7
)

// FrameShadow is the invisible border added around framed windows on
// platforms that draw one.
type FrameShadow struct {
	Left   int `yaml:"left"`
	Right  int `yaml:"right"`
	Bottom int `yaml:"bottom"`
}

// Config is the effective daemon configuration.
type Config struct {
	LogLevel            string        `yaml:"log_level"`
	Backend             Backend       `yaml:"backend"`
	SyncMaxRounds       int           `yaml:"sync_max_rounds"`
	TransactionDebounce time.Duration `yaml:"transaction_debounce"`
	RefreshInterval     time.Duration `yaml:"refresh_interval"`
	// MoveThreshold and ResizeThreshold are pixel distances the transform
	// classifier tolerates before reporting a move or resize.
	MoveThreshold          int         `yaml:"move_threshold"`
	ResizeThreshold        int         `yaml:"resize_threshold"`
	ForceScaledBoundsLogic bool        `yaml:"force_scaled_bounds_logic"`
	FrameShadow            FrameShadow `yaml:"frame_shadow"`
	// DragSettle is how long the X11 backend waits after the last geometry
	// change before it reports the end of an interactive move or resize.
	DragSettle time.Duration `yaml:"drag_settle"`
	// SocketPath overrides the runtime-dir IPC socket.
	SocketPath string `yaml:"socket_path,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:            "info",
		Backend:             BackendX11,
		SyncMaxRounds:       DefaultSyncMaxRounds,
		TransactionDebounce: DefaultTransactionDebounce,
		RefreshInterval:     DefaultRefreshInterval,
		MoveThreshold:       DefaultMoveThreshold,
		ResizeThreshold:     DefaultResizeThreshold,
		FrameShadow: FrameShadow{
			Left:   DefaultShadowInset,
			Right:  DefaultShadowInset,
			Bottom: DefaultShadowInset,
		},
		DragSettle: DefaultDragSettle,
	}
}

// SlogLevel maps log_level onto a slog level. Validate guarantees a known
// value; anything else falls back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Marshal renders the effective config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	switch c.Backend {
	case BackendX11, BackendMemory:
	default:
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: x11, memory")}
	}
	if c.SyncMaxRounds < 1 {
		return &ValidationError{Path: "sync_max_rounds", Err: fmt.Errorf("sync_max_rounds must be >= 1")}
	}
	if c.TransactionDebounce < 0 {
		return &ValidationError{Path: "transaction_debounce", Err: fmt.Errorf("transaction_debounce must be >= 0")}
	}
	if c.RefreshInterval < 0 {
		return &ValidationError{Path: "refresh_interval", Err: fmt.Errorf("refresh_interval must be >= 0 (0 disables refresh)")}
	}
	if c.MoveThreshold < 0 {
		return &ValidationError{Path: "move_threshold", Err: fmt.Errorf("move_threshold must be >= 0")}
	}
	if c.ResizeThreshold < 0 {
		return &ValidationError{Path: "resize_threshold", Err: fmt.Errorf("resize_threshold must be >= 0")}
	}
	if c.FrameShadow.Left < 0 || c.FrameShadow.Right < 0 || c.FrameShadow.Bottom < 0 {
		return &ValidationError{Path: "frame_shadow", Err: fmt.Errorf("frame_shadow values must be >= 0")}
	}
	if c.DragSettle <= 0 {
		return &ValidationError{Path: "drag_settle", Err: fmt.Errorf("drag_settle must be > 0")}
	}
	return nil
}
