package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/winlink/internal/platform"
	"github.com/1broseidon/winlink/internal/runtimepath"
	"github.com/1broseidon/winlink/internal/window"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client for the default socket
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath("")
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientWithSocket(socketPath)
}

// NewClientWithSocket creates a new IPC client for socketPath
func NewClientWithSocket(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    15 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// call sends command with an optional payload and decodes the response data
// into out when out is non-nil.
func (c *Client) call(command CommandType, payload, out interface{}) error {
	req := &Request{Command: command}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", command, err)
		}
		req.Payload = data
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListWindows retrieves every registered window
func (c *Client) ListWindows() ([]window.Snapshot, error) {
	var data WindowsData
	if err := c.call(CommandListWindows, nil, &data); err != nil {
		return nil, err
	}
	return data.Windows, nil
}

// GetWindow retrieves a single window
func (c *Client) GetWindow(id platform.Identity) (*window.Snapshot, error) {
	var snap window.Snapshot
	if err := c.call(CommandGetWindow, WindowPayload{Window: id}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ApplyOverride applies a temporary override to a window
func (c *Client) ApplyOverride(payload OverridePayload) error {
	return c.call(CommandApplyOverride, payload, nil)
}

// ResetOverride reverts temporary overrides; no fields means all of them
func (c *Client) ResetOverride(id platform.Identity, fields ...string) error {
	return c.call(CommandResetOverride, ResetOverridePayload{Window: id, Fields: fields}, nil)
}

// Snap groups windows together
func (c *Client) Snap(ids ...platform.Identity) error {
	return c.call(CommandSnap, SnapPayload{Windows: ids}, nil)
}

// Unsnap removes a window from its snap group
func (c *Client) Unsnap(id platform.Identity) error {
	return c.call(CommandUnsnap, WindowPayload{Window: id}, nil)
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
