package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winlink/internal/ipc"
	"github.com/1broseidon/winlink/internal/platform"
	"github.com/1broseidon/winlink/internal/window"
)

// EmptyInput is the input of tools that take no arguments.
type EmptyInput struct{}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		Backend:            st.Backend,
		WindowCount:        st.WindowCount,
		SnapGroupCount:     st.SnapGroupCount,
		ActiveTransactions: st.ActiveTransactions,
		UptimeSeconds:      st.UptimeSeconds,
	}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	snaps, err := s.daemon.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	out := ListWindowsOutput{Windows: make([]WindowInfo, 0, len(snaps))}
	for _, snap := range snaps {
		out.Windows = append(out.Windows, windowInfo(snap))
	}
	return nil, out, nil
}

func (s *Server) handleGetWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowArgs) (*mcpsdk.CallToolResult, WindowInfo, error) {
	id, err := platform.ParseIdentity(strings.TrimSpace(args.Window))
	if err != nil {
		return nil, WindowInfo{}, err
	}
	snap, err := s.daemon.GetWindow(id)
	if err != nil {
		return nil, WindowInfo{}, err
	}
	return nil, windowInfo(*snap), nil
}

func (s *Server) handleSnapWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args SnapWindowsInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	ids, err := parseIdentities(args.Windows)
	if err != nil {
		return nil, ActionOutput{}, err
	}
	if len(ids) < 2 {
		return nil, ActionOutput{}, fmt.Errorf("snap_windows needs at least 2 windows, got %d", len(ids))
	}
	if err := s.daemon.Snap(ids...); err != nil {
		s.logger.Warn("mcp: snap failed", "windows", args.Windows, "error", err)
		return nil, ActionOutput{}, err
	}
	s.logger.Info("mcp: snapped windows", "windows", args.Windows)
	return nil, ActionOutput{Windows: identityStrings(ids), Message: fmt.Sprintf("snapped %d windows", len(ids))}, nil
}

func (s *Server) handleUnsnapWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowArgs) (*mcpsdk.CallToolResult, ActionOutput, error) {
	id, err := platform.ParseIdentity(strings.TrimSpace(args.Window))
	if err != nil {
		return nil, ActionOutput{}, err
	}
	if err := s.daemon.Unsnap(id); err != nil {
		return nil, ActionOutput{}, err
	}
	return nil, ActionOutput{Windows: []string{id.String()}, Message: "unsnapped"}, nil
}

func (s *Server) handleSetOverride(_ context.Context, _ *mcpsdk.CallToolRequest, args SetOverrideInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	id, err := platform.ParseIdentity(strings.TrimSpace(args.Window))
	if err != nil {
		return nil, ActionOutput{}, err
	}
	if args.Opacity == nil && args.AlwaysOnTop == nil && args.Hidden == nil {
		return nil, ActionOutput{}, fmt.Errorf("set_override needs at least one of opacity, always_on_top, hidden")
	}
	if args.Opacity != nil && (*args.Opacity < 0 || *args.Opacity > 1) {
		return nil, ActionOutput{}, fmt.Errorf("opacity must be between 0 and 1, got %g", *args.Opacity)
	}
	payload := ipc.OverridePayload{
		Window:      id,
		Opacity:     args.Opacity,
		AlwaysOnTop: args.AlwaysOnTop,
		Hidden:      args.Hidden,
	}
	if err := s.daemon.ApplyOverride(payload); err != nil {
		return nil, ActionOutput{}, err
	}
	return nil, ActionOutput{
		Windows: []string{id.String()},
		Message: "override applied: " + payload.Delta().Fields().String(),
	}, nil
}

func (s *Server) handleResetOverrides(_ context.Context, _ *mcpsdk.CallToolRequest, args ResetOverridesInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	id, err := platform.ParseIdentity(strings.TrimSpace(args.Window))
	if err != nil {
		return nil, ActionOutput{}, err
	}
	fields, err := ipc.ParseFields(args.Fields)
	if err != nil {
		return nil, ActionOutput{}, err
	}
	if err := s.daemon.ResetOverride(id, args.Fields...); err != nil {
		return nil, ActionOutput{}, err
	}
	return nil, ActionOutput{Windows: []string{id.String()}, Message: "restored: " + fields.String()}, nil
}

func (s *Server) handleReloadConfig(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.daemon.Reload(); err != nil {
		return nil, ActionOutput{}, err
	}
	return nil, ActionOutput{Message: "configuration reloaded"}, nil
}

func windowInfo(snap window.Snapshot) WindowInfo {
	r := snap.Current.Bounds().ToRect()
	info := WindowInfo{
		ID:          snap.ID.String(),
		Title:       snap.Current.Title,
		Stage:       snap.Stage,
		State:       string(snap.Current.State),
		X:           r.X,
		Y:           r.Y,
		Width:       r.Width,
		Height:      r.Height,
		Opacity:     snap.Current.Opacity,
		AlwaysOnTop: snap.Current.AlwaysOnTop,
		Hidden:      snap.Current.Hidden,
		Overrides:   snap.Temporary,
		Transform:   snap.ActiveTransform,
	}
	if len(snap.SnapGroup) > 1 {
		info.SnapGroup = identityStrings(snap.SnapGroup)
	}
	return info
}

func parseIdentities(raw []string) ([]platform.Identity, error) {
	ids := make([]platform.Identity, 0, len(raw))
	seen := make(map[platform.Identity]bool, len(raw))
	for _, s := range raw {
		id, err := platform.ParseIdentity(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func identityStrings(ids []platform.Identity) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
