package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	log_level
//	backend
//	sync_max_rounds
//	transaction_debounce
//	refresh_interval
//	move_threshold
//	resize_threshold
//	force_scaled_bounds_logic
//	frame_shadow.left
//	drag_settle
//	socket_path
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	if parts[0] == "frame_shadow" {
		switch {
		case len(parts) == 1:
			return cfg.FrameShadow, nil
		case len(parts) == 2 && parts[1] == "left":
			return cfg.FrameShadow.Left, nil
		case len(parts) == 2 && parts[1] == "right":
			return cfg.FrameShadow.Right, nil
		case len(parts) == 2 && parts[1] == "bottom":
			return cfg.FrameShadow.Bottom, nil
		default:
			return nil, fmt.Errorf("unsupported path %q", path)
		}
	}
	if len(parts) != 1 {
		return nil, fmt.Errorf("unsupported path %q", path)
	}

	switch path {
	case "log_level":
		return cfg.LogLevel, nil
	case "backend":
		return string(cfg.Backend), nil
	case "sync_max_rounds":
		return cfg.SyncMaxRounds, nil
	case "transaction_debounce":
		return cfg.TransactionDebounce.String(), nil
	case "refresh_interval":
		return cfg.RefreshInterval.String(), nil
	case "move_threshold":
		return cfg.MoveThreshold, nil
	case "resize_threshold":
		return cfg.ResizeThreshold, nil
	case "force_scaled_bounds_logic":
		return cfg.ForceScaledBoundsLogic, nil
	case "drag_settle":
		return cfg.DragSettle.String(), nil
	case "socket_path":
		return cfg.SocketPath, nil
	default:
		return nil, fmt.Errorf("unknown path %q", path)
	}
}
