package service

import "time"

// Charger display status, derived at read time from the last-seen timestamp.
const (
	ChargerStatusOnline      = "online"
	ChargerStatusOffline     = "offline"
	ChargerStatusUnavailable = "unavailable"
)

// Controller display status, derived from the latest snapshot's connected state.
const (
	ControllerStatusConnected    = "connected"
	ControllerStatusDisconnected = "disconnected"
	ControllerStatusOffline      = "offline"
)

// StalenessWindow is how long a charger may stay silent before it counts as offline.
const StalenessWindow = 3 * time.Minute

// ChargerStatus derives the display status of a charger. A charger that has
// never reported is unavailable, one silent past the staleness window is
// offline. This is independent of controller status and the two are not
// reconciled against each other.
func ChargerStatus(lastConnected *time.Time, now time.Time) string {
	if lastConnected == nil {
		return ChargerStatusUnavailable
	}
	if now.Sub(*lastConnected) > StalenessWindow {
		return ChargerStatusOffline
	}
	return ChargerStatusOnline
}

// ControllerStatus derives the display status of a controller from its latest
// snapshot's connected_state string.
func ControllerStatus(connectedState *string) string {
	if connectedState == nil {
		return ControllerStatusOffline
	}
	switch *connectedState {
	case ControllerStatusConnected:
		return ControllerStatusConnected
	case ControllerStatusDisconnected:
		return ControllerStatusDisconnected
	default:
		return ControllerStatusOffline
	}
}

// IEC 61851 states reported while a vehicle is attached.
var iecConnectedStates = map[string]struct{}{
	"B1": {}, "B2": {}, "C1": {}, "C2": {}, "D1": {}, "D2": {},
}

// ConnectedStateFromIec maps an IEC 61851 state string to the connected /
// disconnected pair used by the dashboard.
func ConnectedStateFromIec(state string) string {
	if _, ok := iecConnectedStates[state]; ok {
		return ControllerStatusConnected
	}
	return ControllerStatusDisconnected
}
