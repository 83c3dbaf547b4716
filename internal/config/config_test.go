package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.SyncMaxRounds != 10 {
		t.Fatalf("expected sync_max_rounds 10, got %d", cfg.SyncMaxRounds)
	}
	if cfg.TransactionDebounce != 100*time.Millisecond {
		t.Fatalf("expected transaction_debounce 100ms, got %s", cfg.TransactionDebounce)
	}
	if cfg.FrameShadow != (FrameShadow{Left: 7, Right: 7, Bottom: 7}) {
		t.Fatalf("unexpected frame_shadow %+v", cfg.FrameShadow)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Backend != BackendX11 {
		t.Fatalf("expected backend x11, got %q", res.Config.Backend)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files, got %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.RefreshInterval != DefaultRefreshInterval {
		t.Fatalf("expected refresh_interval %s, got %s", DefaultRefreshInterval, res.Config.RefreshInterval)
	}
}

func TestLoadFromPath_Values(t *testing.T) {
	data := strings.Join([]string{
		"log_level: debug",
		"backend: memory",
		"sync_max_rounds: 4",
		"transaction_debounce: 250ms",
		"refresh_interval: 0s",
		"move_threshold: 5",
		"force_scaled_bounds_logic: true",
		"frame_shadow:",
		"  bottom: 3",
		"drag_settle: 1s",
		"socket_path: /tmp/wl.sock",
		"",
	}, "\n")
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.SlogLevel())
	}
	if cfg.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Backend)
	}
	if cfg.SyncMaxRounds != 4 || cfg.MoveThreshold != 5 || cfg.ResizeThreshold != DefaultResizeThreshold {
		t.Fatalf("unexpected ints: %+v", cfg)
	}
	if cfg.TransactionDebounce != 250*time.Millisecond || cfg.RefreshInterval != 0 || cfg.DragSettle != time.Second {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if !cfg.ForceScaledBoundsLogic {
		t.Fatalf("expected force_scaled_bounds_logic")
	}
	if cfg.FrameShadow != (FrameShadow{Left: 7, Right: 7, Bottom: 3}) {
		t.Fatalf("expected partial frame_shadow overlay, got %+v", cfg.FrameShadow)
	}
	if cfg.SocketPath != "/tmp/wl.sock" {
		t.Fatalf("unexpected socket_path %q", cfg.SocketPath)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown_key") {
		t.Fatalf("expected error to mention unknown_key, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSource(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "log_level: info\nbackend: wayland\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "backend" {
		t.Fatalf("expected path backend, got %q", verr.Path)
	}
	if verr.Source.Line != 2 {
		t.Fatalf("expected source line 2, got %+v", verr.Source)
	}
	if !strings.Contains(err.Error(), ":2:") {
		t.Fatalf("expected file position in error, got %v", err)
	}
}

func TestLoadFromPath_IncludesMergeInOrder(t *testing.T) {
	dir := t.TempDir()
	confd := filepath.Join(dir, "conf.d")
	if err := os.Mkdir(confd, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, confd, "10-base.yaml", "move_threshold: 9\nresize_threshold: 9\n")
	writeConfig(t, confd, "20-more.yaml", "resize_threshold: 4\n")
	path := writeConfig(t, dir, "config.yaml", "include: conf.d\nmove_threshold: 1\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.MoveThreshold != 1 {
		t.Fatalf("expected main file to win, got %d", res.Config.MoveThreshold)
	}
	if res.Config.ResizeThreshold != 4 {
		t.Fatalf("expected later include to win, got %d", res.Config.ResizeThreshold)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 files, got %v", res.Files)
	}
}

func TestLoadFromPath_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "include: b.yaml\n")
	writeConfig(t, dir, "b.yaml", "include: a.yaml\n")

	_, err := LoadFromPath(filepath.Join(dir, "a.yaml"))
	if err == nil || !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"backend", func(c *Config) { c.Backend = "cocoa" }, "backend"},
		{"sync rounds", func(c *Config) { c.SyncMaxRounds = 0 }, "sync_max_rounds"},
		{"debounce", func(c *Config) { c.TransactionDebounce = -time.Second }, "transaction_debounce"},
		{"refresh", func(c *Config) { c.RefreshInterval = -time.Second }, "refresh_interval"},
		{"move threshold", func(c *Config) { c.MoveThreshold = -1 }, "move_threshold"},
		{"resize threshold", func(c *Config) { c.ResizeThreshold = -1 }, "resize_threshold"},
		{"shadow", func(c *Config) { c.FrameShadow.Right = -1 }, "frame_shadow"},
		{"drag settle", func(c *Config) { c.DragSettle = 0 }, "drag_settle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, verr.Path)
			}
		})
	}
}

func TestExplain(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "frame_shadow:\n  left: 2\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	val, src, err := Explain(res, "frame_shadow.left")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 2 || src.Kind != SourceFile {
		t.Fatalf("expected file-sourced 2, got %#v from %#v", val, src)
	}

	val, src, err = Explain(res, "transaction_debounce")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != "100ms" || src.Kind != SourceDefault {
		t.Fatalf("expected default 100ms, got %#v from %#v", val, src)
	}

	if _, _, err := Explain(res, "nope"); err == nil {
		t.Fatalf("expected unknown path error")
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Backend = BackendMemory
	cfg.DragSettle = 300 * time.Millisecond
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load saved: %v", err)
	}
	if *res.Config != *cfg {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *res.Config, *cfg)
	}
}

func TestDefaultConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if path != "/cfg/winlink/config.yaml" {
		t.Fatalf("unexpected path %q", path)
	}
}
