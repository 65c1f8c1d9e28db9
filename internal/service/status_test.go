package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChargerStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, ChargerStatusUnavailable, ChargerStatus(nil, now))

	recent := now.Add(-time.Minute)
	assert.Equal(t, ChargerStatusOnline, ChargerStatus(&recent, now))

	edge := now.Add(-StalenessWindow)
	assert.Equal(t, ChargerStatusOnline, ChargerStatus(&edge, now))

	stale := now.Add(-StalenessWindow - time.Second)
	assert.Equal(t, ChargerStatusOffline, ChargerStatus(&stale, now))
}

func TestControllerStatus(t *testing.T) {
	assert.Equal(t, ControllerStatusOffline, ControllerStatus(nil))

	connected := "connected"
	assert.Equal(t, ControllerStatusConnected, ControllerStatus(&connected))

	disconnected := "disconnected"
	assert.Equal(t, ControllerStatusDisconnected, ControllerStatus(&disconnected))

	junk := "rebooting"
	assert.Equal(t, ControllerStatusOffline, ControllerStatus(&junk))
}

func TestConnectedStateFromIec(t *testing.T) {
	for _, state := range []string{"B1", "B2", "C1", "C2", "D1", "D2"} {
		assert.Equal(t, ControllerStatusConnected, ConnectedStateFromIec(state), state)
	}
	for _, state := range []string{"A1", "A2", "E", "F", ""} {
		assert.Equal(t, ControllerStatusDisconnected, ConnectedStateFromIec(state), state)
	}
}
