package dbus

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUrgency_String(t *testing.T) {
	tests := []struct {
		urgency Urgency
		want    string
	}{
		{UrgencyLow, "low"},
		{UrgencyNormal, "normal"},
		{UrgencyCritical, "critical"},
		{Urgency(9), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.urgency.String())
		})
	}
}

func TestNotification_Hints(t *testing.T) {
	n := &Notification{AppName: "soundboard", Urgency: UrgencyCritical, Category: "device", Transient: true}
	hints := n.Hints()

	assert.Equal(t, dbus.MakeVariant(byte(2)), hints["urgency"])
	assert.Equal(t, dbus.MakeVariant("device"), hints["category"])
	assert.Equal(t, dbus.MakeVariant(true), hints["transient"])
	assert.Equal(t, dbus.MakeVariant("soundboard"), hints["desktop-entry"])

	bare := (&Notification{}).Hints()
	assert.Len(t, bare, 1)
}

func TestNotification_Args(t *testing.T) {
	n := &Notification{AppName: "soundboard", Summary: "Audio", Body: "sink died", ExpireTimeout: 5000}
	args := n.args()
	require.Len(t, args, 8)

	assert.Equal(t, "soundboard", args[0])
	assert.Equal(t, uint32(0), args[1])
	assert.Equal(t, "Audio", args[3])
	assert.Equal(t, "sink died", args[4])
	assert.Equal(t, []string{}, args[5])
	assert.Equal(t, int32(5000), args[7])
}
