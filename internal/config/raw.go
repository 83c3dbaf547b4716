package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawFrameShadow struct {
	Left   *int `yaml:"left"`
	Right  *int `yaml:"right"`
	Bottom *int `yaml:"bottom"`
}

// RawConfig mirrors one YAML file. Nil fields were not set by that file.
type RawConfig struct {
	Include                IncludeList     `yaml:"include"`
	LogLevel               *string         `yaml:"log_level"`
	Backend                *Backend        `yaml:"backend"`
	SyncMaxRounds          *int            `yaml:"sync_max_rounds"`
	TransactionDebounce    *time.Duration  `yaml:"transaction_debounce"`
	RefreshInterval        *time.Duration  `yaml:"refresh_interval"`
	MoveThreshold          *int            `yaml:"move_threshold"`
	ResizeThreshold        *int            `yaml:"resize_threshold"`
	ForceScaledBoundsLogic *bool           `yaml:"force_scaled_bounds_logic"`
	FrameShadow            *RawFrameShadow `yaml:"frame_shadow"`
	DragSettle             *time.Duration  `yaml:"drag_settle"`
	SocketPath             *string         `yaml:"socket_path"`
}

// merge overlays other on r; set fields in other win.
func (r RawConfig) merge(other RawConfig) RawConfig {
	out := r
	out.Include = nil
	if other.LogLevel != nil {
		out.LogLevel = other.LogLevel
	}
	if other.Backend != nil {
		out.Backend = other.Backend
	}
	if other.SyncMaxRounds != nil {
		out.SyncMaxRounds = other.SyncMaxRounds
	}
	if other.TransactionDebounce != nil {
		out.TransactionDebounce = other.TransactionDebounce
	}
	if other.RefreshInterval != nil {
		out.RefreshInterval = other.RefreshInterval
	}
	if other.MoveThreshold != nil {
		out.MoveThreshold = other.MoveThreshold
	}
	if other.ResizeThreshold != nil {
		out.ResizeThreshold = other.ResizeThreshold
	}
	if other.ForceScaledBoundsLogic != nil {
		out.ForceScaledBoundsLogic = other.ForceScaledBoundsLogic
	}
	if other.FrameShadow != nil {
		if out.FrameShadow == nil {
			out.FrameShadow = &RawFrameShadow{}
		} else {
			fs := *out.FrameShadow
			out.FrameShadow = &fs
		}
		if other.FrameShadow.Left != nil {
			out.FrameShadow.Left = other.FrameShadow.Left
		}
		if other.FrameShadow.Right != nil {
			out.FrameShadow.Right = other.FrameShadow.Right
		}
		if other.FrameShadow.Bottom != nil {
			out.FrameShadow.Bottom = other.FrameShadow.Bottom
		}
	}
	if other.DragSettle != nil {
		out.DragSettle = other.DragSettle
	}
	if other.SocketPath != nil {
		out.SocketPath = other.SocketPath
	}
	return out
}
