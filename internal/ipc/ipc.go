// Package ipc is the daemon's control socket: one JSON request and one JSON
// response per connection over a unix socket.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"time"

	"delta/internal/domain"
)

const DefaultSocketPath = "/tmp/delta.sock"

const (
	OpStart  = "start"
	OpStop   = "stop"
	OpStatus = "status"
	OpSay    = "say"
	OpHear   = "hear"
	OpLogout = "logout"
)

type Request struct {
	Op  string `json:"op"`
	Arg string `json:"arg,omitempty"`
}

type Response struct {
	OK       bool             `json:"ok"`
	Error    string           `json:"error,omitempty"`
	Text     string           `json:"text,omitempty"`
	Snapshot *domain.Snapshot `json:"snapshot,omitempty"`
}

func Fail(err error) Response {
	return Response{Error: err.Error()}
}

type Handler func(ctx context.Context, req Request) Response

type Server struct {
	path    string
	handler Handler
	lg      *log.Logger
}

func NewServer(path string, handler Handler, lg *log.Logger) *Server {
	if path == "" {
		path = DefaultSocketPath
	}
	if lg == nil {
		lg = log.Default()
	}
	return &Server{path: path, handler: handler, lg: lg.With("component", "ipc")}
}

// Serve listens until ctx is done and removes the socket on exit.
func (s *Server) Serve(ctx context.Context) error {
	_ = os.Remove(s.path)

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.path, err)
	}
	defer os.Remove(s.path)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.lg.Info("Control socket ready", "path", s.path)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.lg.Warn("Accept failed", "err", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		s.lg.Warn("Bad request", "err", err)
		_ = json.NewEncoder(conn).Encode(Fail(fmt.Errorf("decode request: %w", err)))
		return
	}

	s.lg.Debug("Request", "op", req.Op, "arg", req.Arg)
	resp := s.handler(ctx, req)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.lg.Warn("Write response failed", "op", req.Op, "err", err)
	}
}

// Send performs one round trip with the daemon at path.
func Send(ctx context.Context, path string, req Request) (Response, error) {
	if path == "" {
		path = DefaultSocketPath
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, fmt.Errorf("dial %s: %w", path, err)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	} else {
		_ = conn.SetDeadline(time.Now().Add(time.Minute))
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("write request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	if !resp.OK && resp.Error != "" {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}
