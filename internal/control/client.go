package control

import (
	"fmt"
	"io"
	"net"
	"time"
)

// Client sends single commands to a running instance.
type Client struct {
	path    string
	timeout time.Duration
}

// NewClient returns a client for the socket at path.
func NewClient(path string) *Client {
	return &Client{path: path, timeout: DefaultTimeout}
}

// Do sends req and waits for the response. Exit returns a zero Response.
func (c *Client) Do(req Request) (Response, error) {
	frame, err := EncodeRequest(req)
	if err != nil {
		return Response{}, err
	}

	conn, err := net.DialTimeout("unix", c.path, c.timeout)
	if err != nil {
		return Response{}, fmt.Errorf("failed to connect to %s: %w", c.path, err)
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write(frame); err != nil {
		return Response{}, fmt.Errorf("failed to send %s: %w", req.Op, err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		if err := uc.CloseWrite(); err != nil {
			return Response{}, fmt.Errorf("failed to finish %s: %w", req.Op, err)
		}
	}

	if req.Op == OpExit {
		_, _ = io.Copy(io.Discard, conn)
		return Response{}, nil
	}

	buf := make([]byte, ResponseSize)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return Response{}, fmt.Errorf("failed to read %s response: %w", req.Op, err)
	}
	return DecodeResponse(buf)
}

// Exit asks the instance to shut down.
func (c *Client) Exit() error {
	_, err := c.Do(Request{Op: OpExit})
	return err
}

// ReloadConfig asks the instance to re-read its config file.
func (c *Client) ReloadConfig() (Response, error) {
	return c.Do(Request{Op: OpReloadConfig})
}

// AddTab adds a directory tab.
func (c *Client) AddTab(path string) (Response, error) {
	return c.Do(Request{Op: OpAddTab, Path: path})
}

// DeleteTab removes the selected tab.
func (c *Client) DeleteTab(sel Selector) (Response, error) {
	return c.Do(Request{Op: OpDeleteTab, Selector: sel})
}

// ReloadTab rescans the selected tab.
func (c *Client) ReloadTab(sel Selector) (Response, error) {
	return c.Do(Request{Op: OpReloadTab, Selector: sel})
}

// Play plays one file.
func (c *Client) Play(path string) (Response, error) {
	return c.Do(Request{Op: OpPlay, Path: path})
}

// Stop stops every file, waveform and dialog.
func (c *Client) Stop() (Response, error) {
	return c.Do(Request{Op: OpStop})
}

// SetVolume changes the sink or a file volume.
func (c *Client) SetVolume(v VolumeRequest) (Response, error) {
	return c.Do(Request{Op: OpSetVolume, Volume: v})
}

// PlayID plays the file or dialog with the given id.
func (c *Client) PlayID(id uint32) (Response, error) {
	return c.Do(Request{Op: OpPlayID, ID: id})
}

// PlayWaveID starts the waveform with the given id.
func (c *Client) PlayWaveID(id uint32) (Response, error) {
	return c.Do(Request{Op: OpPlayWaveID, ID: id})
}

// StopWaveID stops the waveform with the given id.
func (c *Client) StopWaveID(id uint32) (Response, error) {
	return c.Do(Request{Op: OpStopWaveID, ID: id})
}
