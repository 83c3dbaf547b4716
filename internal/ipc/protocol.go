package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/winlink/internal/platform"
	"github.com/1broseidon/winlink/internal/window"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload        CommandType = "RELOAD"
	CommandGetStatus     CommandType = "GET_STATUS"
	CommandListWindows   CommandType = "LIST_WINDOWS"
	CommandGetWindow     CommandType = "GET_WINDOW"
	CommandApplyOverride CommandType = "APPLY_OVERRIDE"
	CommandResetOverride CommandType = "RESET_OVERRIDE"
	CommandSnap          CommandType = "SNAP"
	CommandUnsnap        CommandType = "UNSNAP"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Backend            string `json:"backend"`
	WindowCount        int    `json:"window_count"`
	SnapGroupCount     int    `json:"snap_group_count"`
	ActiveTransactions int    `json:"active_transactions"`
	UptimeSeconds      int64  `json:"uptime_seconds"`
	DaemonRunning      bool   `json:"daemon_running"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows []window.Snapshot `json:"windows"`
}

// WindowPayload names a single window for GET_WINDOW and UNSNAP
type WindowPayload struct {
	Window platform.Identity `json:"window"`
}

// OverridePayload represents the payload for APPLY_OVERRIDE. Nil fields are
// left alone.
type OverridePayload struct {
	Window      platform.Identity `json:"window"`
	Opacity     *float64          `json:"opacity,omitempty"`
	AlwaysOnTop *bool             `json:"always_on_top,omitempty"`
	Hidden      *bool             `json:"hidden,omitempty"`
}

// Delta converts the payload into a window delta.
func (p OverridePayload) Delta() window.Delta {
	var d window.Delta
	if p.Opacity != nil {
		d = d.WithOpacity(*p.Opacity)
	}
	if p.AlwaysOnTop != nil {
		d = d.WithAlwaysOnTop(*p.AlwaysOnTop)
	}
	if p.Hidden != nil {
		d = d.WithHidden(*p.Hidden)
	}
	return d
}

// ResetOverridePayload represents the payload for RESET_OVERRIDE. An empty
// field list resets every override.
type ResetOverridePayload struct {
	Window platform.Identity `json:"window"`
	Fields []string          `json:"fields,omitempty"`
}

// ParseFields resolves field names. No names means every field.
func ParseFields(names []string) (window.Field, error) {
	if len(names) == 0 {
		return window.AllFields, nil
	}
	var fields window.Field
	for _, name := range names {
		f, ok := window.ParseField(name)
		if !ok {
			return 0, fmt.Errorf("unknown field %q", name)
		}
		fields |= f
	}
	return fields, nil
}

// SnapPayload represents the payload for SNAP
type SnapPayload struct {
	Windows []platform.Identity `json:"windows"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
