package daemon

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/soundboard/internal/dbus"
)

func TestNotifier_RateLimit(t *testing.T) {
	rec := &recorder{}
	n := NewNotifier(rec.send, nil)

	now := time.Unix(1000, 0)
	n.now = func() time.Time { return now }

	assert.True(t, n.Notify("k", "first", "", NotificationLevelInfo))
	assert.False(t, n.Notify("k", "again", "", NotificationLevelInfo))
	assert.True(t, n.Notify("other", "other", "", NotificationLevelInfo))

	now = now.Add(DefaultNotifyInterval)
	assert.True(t, n.Notify("k", "later", "", NotificationLevelInfo))

	assert.Equal(t, []string{"first", "other", "later"}, rec.summaries())
}

func TestNotifier_Levels(t *testing.T) {
	tests := []struct {
		level     NotificationLevel
		urgency   dbus.Urgency
		icon      string
		transient bool
	}{
		{NotificationLevelInfo, dbus.UrgencyLow, "dialog-information", true},
		{NotificationLevelWarning, dbus.UrgencyNormal, "dialog-warning", true},
		{NotificationLevelError, dbus.UrgencyCritical, "dialog-error", false},
	}

	for _, tt := range tests {
		t.Run(tt.icon, func(t *testing.T) {
			rec := &recorder{}
			n := NewNotifier(rec.send, nil)
			n.Notify("k", "s", "b", tt.level)

			require.Len(t, rec.sent, 1)
			got := rec.sent[0]
			assert.Equal(t, "soundboard", got.AppName)
			assert.Equal(t, tt.urgency, got.Urgency)
			assert.Equal(t, tt.icon, got.AppIcon)
			assert.Equal(t, tt.transient, got.Transient)
		})
	}
}

func TestNotifier_Disabled(t *testing.T) {
	rec := &recorder{}
	n := NewNotifier(rec.send, nil)
	n.SetEnabled(false)
	assert.False(t, n.Notify("k", "s", "", NotificationLevelInfo))
	assert.Empty(t, rec.summaries())

	assert.False(t, NewNotifier(nil, nil).Notify("k", "s", "", NotificationLevelInfo))
}

func TestNotifier_SendErrorIsAbsorbed(t *testing.T) {
	n := NewNotifier(func(*dbus.Notification) (uint32, error) {
		return 0, errors.New("no bus")
	}, nil)
	assert.NotPanics(t, func() {
		n.NotifySinkFailure(errors.New("pacat: exit status 1"))
	})
}

func TestNotifier_Messages(t *testing.T) {
	rec := &recorder{}
	n := NewNotifier(rec.send, nil)

	n.NotifySinkFailure(errors.New("broken pipe"))
	n.NotifyConfigError(errors.New("bad"))
	n.NotifyConfigReloaded()
	n.NotifyEditOnly("/run/user/1000/soundboard.sock")
	n.NotifyHotkeysUnavailable(errors.New("permission denied"))

	assert.Equal(t, []string{
		"Audio Output Failed",
		"Configuration Error",
		"Configuration Reloaded",
		"Edit-only Mode",
		"Global Hotkeys Unavailable",
	}, rec.summaries())
	assert.Contains(t, rec.sent[0].Body, "broken pipe")
	assert.Contains(t, rec.sent[3].Body, "/run/user/1000/soundboard.sock")
}
