package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/ergo-tacho/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string     `json:"event,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	Session        string     `json:"session"`
	SessionStart   string     `json:"session_start"`
	Count          uint64     `json:"count"`
	RPM            float64    `json:"rpm"`
	Speed          float64    `json:"speed"`
	DistanceM      float64    `json:"distance_m"`
	Elapsed        string     `json:"elapsed"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
	Lap            LapJSON    `json:"lap"`
	Counts         CountsJSON `json:"tick_counts"`
	UptimeSeconds  int64      `json:"uptime_seconds"`
	StartTime      string     `json:"start_time"`
	Timestamp      string     `json:"timestamp"`
	MQTT           MQTTStatus `json:"mqtt"`
	Config         ConfigJSON `json:"config"`
}

// LapJSON reports progress around the virtual course.
type LapJSON struct {
	Laps     int `json:"laps"`
	Waypoint int `json:"waypoint"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of tick counters.
type CountsJSON struct {
	Samples int `json:"samples"`
	Skipped int `json:"skipped"`
	Resets  int `json:"resets"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Source       string  `json:"source"`
	Device       string  `json:"device"`
	SampleRateHz float64 `json:"sample_rate_hz"`
	RevsPerMetre float64 `json:"revs_per_metre"`
	SpeedPerRPM  float64 `json:"speed_per_rpm"`
	HistorySize  int     `json:"history_size"`
	Curve        string  `json:"curve,omitempty"`
	StepCount    int     `json:"step_count"`
	LapDistanceM float64 `json:"lap_distance_m"`
	HeartbeatMs  int64   `json:"heartbeat_ms"`
	Broker       string  `json:"broker"`
	HTTPAddr     string  `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	m := snap.Metrics
	cfg := snap.Config
	return StatusInner{
		Session:        snap.SessionID,
		SessionStart:   snap.SessionStart.UTC().Format(time.RFC3339),
		Count:          m.Count,
		RPM:            m.RPM,
		Speed:          m.Speed,
		DistanceM:      m.Distance,
		Elapsed:        logic.FormatElapsed(m.Elapsed),
		ElapsedSeconds: int64(m.Elapsed / time.Second),
		Lap:            LapJSON{Laps: snap.Lap.Laps, Waypoint: snap.Lap.Pointer},
		Counts: CountsJSON{
			Samples: snap.Counts.Samples,
			Skipped: snap.Counts.Skipped,
			Resets:  snap.Counts.Resets,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: cfg.Broker},
		Config: ConfigJSON{
			Source:       cfg.Source,
			Device:       cfg.Device,
			SampleRateHz: cfg.SampleRateHz,
			RevsPerMetre: cfg.RevsPerMetre,
			SpeedPerRPM:  cfg.SpeedPerRPM,
			HistorySize:  cfg.HistorySize,
			Curve:        cfg.Curve,
			StepCount:    cfg.StepCount,
			LapDistanceM: cfg.LapDistance,
			HeartbeatMs:  cfg.HeartbeatMs,
			Broker:       cfg.Broker,
			HTTPAddr:     cfg.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
