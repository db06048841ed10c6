package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"
)

// DefaultTimeout bounds the read and write of one connection.
const DefaultTimeout = 5 * time.Second

// ErrEndpointExists is returned by Listen when another instance already owns
// the socket path.
var ErrEndpointExists = errors.New("control endpoint already exists")

// Handler executes decoded commands. Exit is handled by the server itself.
type Handler interface {
	ReloadConfig() Status
	AddTab(path string) (Status, string)
	DeleteTab(sel Selector) (Status, string)
	ReloadTab(sel Selector) (Status, string)
	Play(path string) (Status, string)
	StopAll() Status
	SetVolume(req VolumeRequest) (Status, uint32)
	PlayID(id uint32) (Status, string)
	PlayWaveID(id uint32) (Status, string)
	StopWaveID(id uint32) (Status, string)
}

// Server accepts one connection at a time on a unix socket.
type Server struct {
	logger  *slog.Logger
	path    string
	handler Handler
	timeout time.Duration

	ln *net.UnixListener

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
	exitCh   chan struct{}
	exitOnce sync.Once
}

// Listen binds the socket at path. A path that is already bound yields
// ErrEndpointExists.
func Listen(path string, handler Handler, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("%w: %s", ErrEndpointExists, path)
		}
		return nil, fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	// The listener unlinks the socket file on Close.
	ln.SetUnlinkOnClose(true)

	return &Server{
		logger:  logger,
		path:    path,
		handler: handler,
		timeout: DefaultTimeout,
		ln:      ln,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		exitCh:  make(chan struct{}),
	}, nil
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Start runs the accept loop in the background.
func (s *Server) Start(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.stopCh:
		}
	}()
	go s.serve()
	s.logger.Info("control socket listening", "path", s.path)
}

// Stop closes the listener and waits for the accept loop to exit.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		_ = s.ln.Close()
	})
	<-s.doneCh
}

// Exited is closed when a client sent the exit command.
func (s *Server) Exited() <-chan struct{} {
	return s.exitCh
}

// Done is closed when the accept loop has returned.
func (s *Server) Done() <-chan struct{} {
	return s.doneCh
}

func (s *Server) serve() {
	defer close(s.doneCh)

	for {
		conn, err := s.ln.AcceptUnix()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("control accept failed", "error", err)
			continue
		}

		if exit := s.handle(conn); exit {
			s.logger.Info("exit requested over control socket")
			s.exitOnce.Do(func() { close(s.exitCh) })
			s.stopOnce.Do(func() {
				close(s.stopCh)
				_ = s.ln.Close()
			})
			return
		}
	}
}

// handle serves one connection and reports whether it carried exit.
func (s *Server) handle(conn *net.UnixConn) (exit bool) {
	defer func() { _ = conn.Close() }()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("control handler panicked", "panic", r)
			exit = false
		}
	}()

	_ = conn.SetDeadline(time.Now().Add(s.timeout))

	data, err := io.ReadAll(io.LimitReader(conn, MaxRequestSize+1))
	if err != nil {
		s.logger.Debug("control read failed", "error", err)
		return false
	}

	req, err := DecodeRequest(data)
	if err != nil {
		s.logger.Debug("dropping control request", "error", err, "bytes", len(data))
		return false
	}
	if req.Op == OpExit {
		return true
	}

	resp := Dispatch(s.handler, req)
	s.logger.Debug("control command", "op", req.Op, "status", resp.Status)

	if _, err := conn.Write(EncodeResponse(resp)); err != nil {
		s.logger.Debug("control write failed", "op", req.Op, "error", err)
	}
	return false
}

// Dispatch runs req against h. It must not be called with OpExit.
func Dispatch(h Handler, req Request) Response {
	switch req.Op {
	case OpReloadConfig:
		return Response{Status: h.ReloadConfig()}
	case OpAddTab:
		return TextResponse(h.AddTab(req.Path))
	case OpDeleteTab:
		return TextResponse(h.DeleteTab(req.Selector))
	case OpReloadTab:
		return TextResponse(h.ReloadTab(req.Selector))
	case OpPlay:
		return TextResponse(h.Play(req.Path))
	case OpStop:
		return Response{Status: h.StopAll()}
	case OpSetVolume:
		return VolumeResponse(h.SetVolume(req.Volume))
	case OpPlayID:
		return TextResponse(h.PlayID(req.ID))
	case OpPlayWaveID:
		return TextResponse(h.PlayWaveID(req.ID))
	case OpStopWaveID:
		return TextResponse(h.StopWaveID(req.ID))
	default:
		panic(fmt.Sprintf("control: dispatch of %s", req.Op))
	}
}
