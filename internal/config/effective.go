package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig overlays raw onto DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.LogLevel != nil {
		cfg.LogLevel = strings.TrimSpace(*raw.LogLevel)
	}
	if raw.Backend != nil {
		cfg.Backend = Backend(strings.ToLower(strings.TrimSpace(string(*raw.Backend))))
	}
	if raw.SyncMaxRounds != nil {
		cfg.SyncMaxRounds = *raw.SyncMaxRounds
	}
	if raw.TransactionDebounce != nil {
		cfg.TransactionDebounce = *raw.TransactionDebounce
	}
	if raw.RefreshInterval != nil {
		cfg.RefreshInterval = *raw.RefreshInterval
	}
	if raw.MoveThreshold != nil {
		cfg.MoveThreshold = *raw.MoveThreshold
	}
	if raw.ResizeThreshold != nil {
		cfg.ResizeThreshold = *raw.ResizeThreshold
	}
	if raw.ForceScaledBoundsLogic != nil {
		cfg.ForceScaledBoundsLogic = *raw.ForceScaledBoundsLogic
	}
	if fs := raw.FrameShadow; fs != nil {
		if fs.Left != nil {
			cfg.FrameShadow.Left = *fs.Left
		}
		if fs.Right != nil {
			cfg.FrameShadow.Right = *fs.Right
		}
		if fs.Bottom != nil {
			cfg.FrameShadow.Bottom = *fs.Bottom
		}
	}
	if raw.DragSettle != nil {
		cfg.DragSettle = *raw.DragSettle
	}
	if raw.SocketPath != nil {
		path, err := expandHome(strings.TrimSpace(*raw.SocketPath))
		if err != nil {
			return nil, &ValidationError{Path: "socket_path", Err: err}
		}
		cfg.SocketPath = path
	}

	return cfg, nil
}
