package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

// Client sends notifications to whichever daemon owns the notification
// service on the session bus.
type Client struct {
	mu     sync.Mutex
	conn   *dbus.Conn
	logger *slog.Logger
}

// NewClient creates a client. The bus connection is made on first use.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{logger: logger}
}

func (c *Client) connect() (*dbus.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.conn.Connected() {
		return c.conn, nil
	}
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	c.conn = conn
	return conn, nil
}

// Notify sends n and returns the id assigned by the notification daemon.
func (c *Client) Notify(n *Notification) (uint32, error) {
	conn, err := c.connect()
	if err != nil {
		return 0, err
	}

	var id uint32
	call := conn.Object(DBusBusName, DBusPath).Call(DBusInterface+".Notify", 0, n.args()...)
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", err)
	}
	c.logger.Debug("desktop notification sent", "id", id, "summary", n.Summary)
	return id, nil
}

// Close drops the reference to the shared session bus connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	// SessionBus is shared with the rest of the process and stays open.
	c.conn = nil
}
