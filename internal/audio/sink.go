package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// Stream is an open connection to the sink. Close lets the sink drain what it
// has buffered; Abort drops it immediately.
type Stream interface {
	io.WriteCloser
	Abort() error
}

// Sink opens raw float32 little-endian PCM streams.
type Sink interface {
	Open(channels int) (Stream, error)
}

// ProcessSink spawns one external process per stream and writes PCM to its
// standard input.
type ProcessSink struct {
	logger  *slog.Logger
	command string
	args    func(channels int) []string
}

// NewProcessSink creates a sink running command with args(channels).
func NewProcessSink(command string, args func(channels int) []string, logger *slog.Logger) *ProcessSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessSink{
		logger:  logger,
		command: command,
		args:    args,
	}
}

// Open starts the sink process.
func (s *ProcessSink) Open(channels int) (Stream, error) {
	var args []string
	if s.args != nil {
		args = s.args(channels)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, s.command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create sink stdin pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		if closeErr := stdin.Close(); closeErr != nil {
			s.logger.Warn("failed to close stdin pipe", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to start sink %q: %w", s.command, err)
	}

	s.logger.Debug("sink started", "command", s.command, "channels", channels, "pid", cmd.Process.Pid)
	return &processStream{
		logger: s.logger,
		cmd:    cmd,
		cancel: cancel,
		stdin:  stdin,
		stderr: &stderr,
	}, nil
}

type processStream struct {
	logger *slog.Logger
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser
	stderr *bytes.Buffer

	once sync.Once
	err  error
}

func (p *processStream) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

// Close signals end of input and waits for the process to drain and exit.
func (p *processStream) Close() error {
	p.once.Do(func() {
		_ = p.stdin.Close()
		p.err = p.cmd.Wait()
		p.cancel()
		if p.err != nil {
			p.logger.Debug("sink exited", "error", p.err, "stderr", strings.TrimSpace(p.stderr.String()))
		}
	})
	return p.err
}

// Abort kills the process without waiting for buffered audio.
func (p *processStream) Abort() error {
	p.cancel()
	err := p.Close()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// NullSink discards everything. Read-only instances use it so the engine
// runs unchanged without touching an audio device.
type NullSink struct{}

// Open returns a stream that discards writes.
func (NullSink) Open(int) (Stream, error) {
	return nullStream{}, nil
}

type nullStream struct{}

func (nullStream) Write(b []byte) (int, error) { return len(b), nil }
func (nullStream) Close() error                { return nil }
func (nullStream) Abort() error                { return nil }
