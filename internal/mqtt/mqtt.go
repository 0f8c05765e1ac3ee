// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/ergo-tacho/internal/logic"
)

// TopicLaps is the MQTT topic for waypoint crossings.
const TopicLaps = "sport/ergo/tacho/laps"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sport/ergo/tacho/system"

// System event names.
const (
	EventStartup   = "STARTUP"
	EventShutdown  = "SHUTDOWN"
	EventHeartbeat = "HEARTBEAT"
	EventReset     = "RESET"
	EventOffline   = "OFFLINE"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishLap sends a waypoint crossing to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishLap(sessionID string, event logic.LapEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a waypoint crossing.
type Payload struct {
	Lap LapPayload `json:"lap"`
}

// LapPayload contains the crossing details.
type LapPayload struct {
	Timestamp    string  `json:"timestamp"`
	Session      string  `json:"session"`
	Waypoint     int     `json:"waypoint"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	DistanceM    float64 `json:"distance_m"`
	Speed        float64 `json:"speed"`
	Lap          int     `json:"lap"`
	LapCompleted bool    `json:"lap_completed,omitempty"`
}

// FormatPayload creates the JSON payload for a waypoint crossing.
func FormatPayload(sessionID string, event logic.LapEvent) ([]byte, error) {
	payload := Payload{
		Lap: LapPayload{
			Timestamp:    event.Timestamp.UTC().Format(time.RFC3339),
			Session:      sessionID,
			Waypoint:     event.Waypoint,
			Lat:          event.Lat,
			Lon:          event.Lon,
			DistanceM:    event.Distance,
			Speed:        event.Speed,
			Lap:          event.Lap,
			LapCompleted: event.LapCompleted,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Discard is a Publisher that drops everything. Used when no broker is
// configured.
type Discard struct{}

// PublishLap does nothing.
func (Discard) PublishLap(string, logic.LapEvent) error { return nil }

// PublishSystem does nothing.
func (Discard) PublishSystem(SystemEvent) error { return nil }

// Close does nothing.
func (Discard) Close() error { return nil }

// IsConnected always reports false.
func (Discard) IsConnected() bool { return false }
