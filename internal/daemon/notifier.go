package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/soundboard/internal/dbus"
)

// NotificationLevel indicates the severity of a desktop notification.
type NotificationLevel int

const (
	NotificationLevelInfo NotificationLevel = iota
	NotificationLevelWarning
	NotificationLevelError
)

// DefaultNotifyInterval is the minimum time between two notifications with
// the same key.
const DefaultNotifyInterval = 5 * time.Second

// SendFunc delivers one notification.
type SendFunc func(n *dbus.Notification) (uint32, error)

// Notifier raises desktop notifications for persistent faults: a dead audio
// sink, a broken config file, a second instance running read-only.
type Notifier struct {
	mu     sync.Mutex
	logger *slog.Logger

	send SendFunc

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration

	enabled bool
	now     func() time.Time
}

// NewNotifier creates a notifier. A nil send disables delivery.
func NewNotifier(send SendFunc, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger:         logger,
		send:           send,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    DefaultNotifyInterval,
		enabled:        true,
		now:            time.Now,
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between duplicate notifications.
func (n *Notifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends a notification unless one with the same key went out within
// the minimum interval. It reports whether the notification was handed to
// the sender.
func (n *Notifier) Notify(key, summary, body string, level NotificationLevel) bool {
	n.mu.Lock()
	if !n.enabled || n.send == nil {
		n.mu.Unlock()
		n.logger.Debug("desktop notification skipped", "key", key, "summary", summary)
		return false
	}
	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("desktop notification rate-limited", "key", key)
		return false
	}
	n.lastNotifyTime[key] = now
	send := n.send
	n.mu.Unlock()

	notification := &dbus.Notification{
		AppName:       "soundboard",
		Summary:       summary,
		Body:          body,
		Category:      "device",
		Transient:     true,
		ExpireTimeout: 5000,
	}
	switch level {
	case NotificationLevelInfo:
		notification.Urgency = dbus.UrgencyLow
		notification.AppIcon = "dialog-information"
	case NotificationLevelWarning:
		notification.Urgency = dbus.UrgencyNormal
		notification.AppIcon = "dialog-warning"
	case NotificationLevelError:
		notification.Urgency = dbus.UrgencyCritical
		notification.AppIcon = "dialog-error"
		notification.Transient = false
	}

	if _, err := send(notification); err != nil {
		n.logger.Debug("failed to send desktop notification", "key", key, "error", err)
	}
	return true
}

// NotifySinkFailure reports that audio output stopped.
func (n *Notifier) NotifySinkFailure(err error) {
	n.Notify("sink-failure", "Audio Output Failed",
		"The audio sink stopped: "+err.Error()+". Sounds will not be heard until soundboard is restarted.",
		NotificationLevelError)
}

// NotifyConfigReloaded reports a successful reload.
func (n *Notifier) NotifyConfigReloaded() {
	n.Notify("config-reload", "Configuration Reloaded",
		"soundboard configuration has been reloaded.",
		NotificationLevelInfo)
}

// NotifyConfigError reports a config file that could not be applied.
func (n *Notifier) NotifyConfigError(err error) {
	n.Notify("config-error", "Configuration Error",
		"Failed to reload configuration: "+err.Error(),
		NotificationLevelWarning)
}

// NotifyEditOnly reports that this instance runs without audio.
func (n *Notifier) NotifyEditOnly(socketPath string) {
	n.Notify("edit-only", "Edit-only Mode",
		"Another soundboard instance owns "+socketPath+". This instance will not play audio.",
		NotificationLevelInfo)
}

// NotifyHotkeysUnavailable reports that no keyboard could be opened.
func (n *Notifier) NotifyHotkeysUnavailable(err error) {
	n.Notify("hotkeys", "Global Hotkeys Unavailable",
		"Keyboard devices could not be read: "+err.Error(),
		NotificationLevelWarning)
}
