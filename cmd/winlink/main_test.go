package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1broseidon/winlink/internal/geom"
	"github.com/1broseidon/winlink/internal/platform"
	"github.com/1broseidon/winlink/internal/window"
)

func TestParseWindows(t *testing.T) {
	ids, err := parseWindows([]string{"x11/0x00000001", "app/a/b"})
	if err != nil {
		t.Fatalf("parseWindows: %v", err)
	}
	if ids[1].Owner != "app" || ids[1].Name != "a/b" {
		t.Errorf("ids[1] = %+v, want owner app, name a/b", ids[1])
	}
	if _, err := parseWindows([]string{"bogus"}); err == nil {
		t.Error("expected error for identity without owner")
	}
}

func TestPrintWindowTable(t *testing.T) {
	snaps := []window.Snapshot{{
		ID:    platform.Identity{Owner: "app", Name: "a"},
		Stage: "ready",
		Current: window.State{
			Center:   geom.Point{X: 60, Y: 60},
			HalfSize: geom.Point{X: 50, Y: 50},
			Opacity:  0.5,
			State:    platform.StateNormal,
			Title:    "Editor",
		},
		Temporary: []string{"opacity"},
		SnapGroup: []platform.Identity{{Owner: "app", Name: "a"}, {Owner: "app", Name: "b"}},
	}}

	var buf bytes.Buffer
	printWindowTable(&buf, snaps)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header + 1 row:\n%s", len(lines), buf.String())
	}
	row := strings.Fields(lines[1])
	want := []string{"app/a", "ready", string(platform.StateNormal), "10,10", "100x100", "0.50", "2", "opacity", "Editor"}
	if strings.Join(row, " ") != strings.Join(want, " ") {
		t.Errorf("row = %v, want %v", row, want)
	}
}

func TestRunOverrideUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no window", []string{"--opacity", "0.5"}},
		{"no fields", []string{"app/a"}},
		{"bad identity", []string{"--hidden", "nope"}},
		{"opacity out of range", []string{"--opacity", "2", "app/a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rc := runOverride(tt.args); rc != 2 {
				t.Errorf("runOverride(%v) = %d, want 2", tt.args, rc)
			}
		})
	}
}

func TestRunResetRejectsUnknownField(t *testing.T) {
	if rc := runReset([]string{"app/a", "bogus"}); rc != 2 {
		t.Errorf("rc = %d, want 2", rc)
	}
}

func TestRunSnapNeedsTwoWindows(t *testing.T) {
	if rc := runSnap([]string{"app/a"}); rc != 2 {
		t.Errorf("rc = %d, want 2", rc)
	}
}

func TestClientCommandsWithoutDaemon(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "none.sock")
	if rc := runStatus([]string{"--socket", socket}); rc != 1 {
		t.Errorf("status rc = %d, want 1", rc)
	}
	if rc := runUnsnap([]string{"--socket", socket, "app/a"}); rc != 1 {
		t.Errorf("unsnap rc = %d, want 1", rc)
	}
}

func TestRunConfigValidateAndInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if rc := runConfig([]string{"init", "--path", path}); rc != 0 {
		t.Fatalf("init rc = %d, want 0", rc)
	}
	if rc := runConfig([]string{"init", "--path", path}); rc != 1 {
		t.Errorf("second init without --force rc = %d, want 1", rc)
	}
	if rc := runConfig([]string{"validate", "--path", path}); rc != 0 {
		t.Errorf("validate rc = %d, want 0", rc)
	}

	if err := os.WriteFile(path, []byte("sync_max_rounds: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if rc := runConfig([]string{"validate", "--path", path}); rc != 1 {
		t.Errorf("validate invalid rc = %d, want 1", rc)
	}
	if rc := runConfig([]string{"frobnicate"}); rc != 2 {
		t.Errorf("unknown subcommand rc = %d, want 2", rc)
	}
}
