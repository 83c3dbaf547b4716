package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/winlink/internal/platform"
	"github.com/1broseidon/winlink/internal/window"
)

// requestTimeout bounds how long a single command may run.
const requestTimeout = 10 * time.Second

// Controller is the daemon-side implementation of the IPC commands.
type Controller interface {
	Status() StatusData
	Windows() []window.Snapshot
	Window(id platform.Identity) (window.Snapshot, error)
	ApplyOverride(ctx context.Context, id platform.Identity, d window.Delta) error
	ResetOverride(ctx context.Context, id platform.Identity, fields window.Field) error
	Snap(ctx context.Context, ids []platform.Identity) error
	Unsnap(ctx context.Context, id platform.Identity) error
	Reload() error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	ctrl         Controller
	logger       *slog.Logger
	shuttingDown bool
	shutdownMu   sync.Mutex
	conns        sync.WaitGroup
}

// NewServer creates a new IPC server on socketPath
func NewServer(socketPath string, ctrl Controller, logger *slog.Logger) (*Server, error) {
	if socketPath == "" {
		return nil, fmt.Errorf("IPC socket path is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		ctrl:       ctrl,
		logger:     logger,
	}, nil
}

// SocketPath returns the path the server listens on
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	resp := s.handleCommand(ctx, req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	s.logger.Debug("IPC command", "command", string(req.Command))
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return ok(s.ctrl.Status())
	case CommandListWindows:
		return ok(WindowsData{Windows: s.ctrl.Windows()})
	case CommandGetWindow:
		return s.handleGetWindow(req.Payload)
	case CommandApplyOverride:
		return s.handleApplyOverride(ctx, req.Payload)
	case CommandResetOverride:
		return s.handleResetOverride(ctx, req.Payload)
	case CommandSnap:
		return s.handleSnap(ctx, req.Payload)
	case CommandUnsnap:
		return s.handleUnsnap(ctx, req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleReload() *Response {
	if err := s.ctrl.Reload(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}
	s.logger.Info("config reloaded via IPC")
	return ok(nil)
}

func (s *Server) handleGetWindow(payload json.RawMessage) *Response {
	var req WindowPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid window payload: %v", err))
	}
	snap, err := s.ctrl.Window(req.Window)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return ok(snap)
}

func (s *Server) handleApplyOverride(ctx context.Context, payload json.RawMessage) *Response {
	var req OverridePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid override payload: %v", err))
	}
	d := req.Delta()
	if d.Empty() {
		return NewErrorResponse("override payload sets no fields")
	}
	if err := s.ctrl.ApplyOverride(ctx, req.Window, d); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to apply override: %v", err))
	}
	return ok(nil)
}

func (s *Server) handleResetOverride(ctx context.Context, payload json.RawMessage) *Response {
	var req ResetOverridePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid reset payload: %v", err))
	}
	fields, err := ParseFields(req.Fields)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	if err := s.ctrl.ResetOverride(ctx, req.Window, fields); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reset override: %v", err))
	}
	return ok(nil)
}

func (s *Server) handleSnap(ctx context.Context, payload json.RawMessage) *Response {
	var req SnapPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid snap payload: %v", err))
	}
	if err := s.ctrl.Snap(ctx, req.Windows); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to snap: %v", err))
	}
	return ok(nil)
}

func (s *Server) handleUnsnap(ctx context.Context, payload json.RawMessage) *Response {
	var req WindowPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid unsnap payload: %v", err))
	}
	if err := s.ctrl.Unsnap(ctx, req.Window); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to unsnap: %v", err))
	}
	return ok(nil)
}

func ok(data interface{}) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.conns.Wait()
	os.Remove(s.socketPath)
}
