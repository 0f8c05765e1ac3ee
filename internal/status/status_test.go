package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/ergo-tacho/internal/logic"
)

var testStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testMetrics() logic.Metrics {
	return logic.Metrics{
		Count:    5000,
		Rate:     1,
		RPM:      240,
		Speed:    3.2,
		Distance: 1000,
		Elapsed:  3725 * time.Second,
	}
}

func TestNewTracker(t *testing.T) {
	cfg := Config{Source: "serial", Device: "/dev/ttyUSB1", Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(testStart, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(testStart) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, testStart)
	}
	if !snap.SessionStart.Equal(testStart) {
		t.Errorf("SessionStart: got %v, want %v", snap.SessionStart, testStart)
	}
	if snap.Config.Device != "/dev/ttyUSB1" {
		t.Errorf("Config.Device: got %q", snap.Config.Device)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(testStart, Config{})

	tr.Update(testMetrics(), logic.LapState{Pointer: 17, Laps: 2}, logic.Counts{Samples: 40, Skipped: 1})
	tr.SetSession("abc", testStart.Add(time.Minute))

	snap := tr.SnapshotAt(testStart.Add(2 * time.Minute))
	if snap.Metrics.RPM != 240 {
		t.Errorf("RPM: got %v, want 240", snap.Metrics.RPM)
	}
	if snap.Lap.Pointer != 17 || snap.Lap.Laps != 2 {
		t.Errorf("Lap: got %+v", snap.Lap)
	}
	if snap.Counts.Samples != 40 || snap.Counts.Skipped != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
	if snap.SessionID != "abc" || !snap.SessionStart.Equal(testStart.Add(time.Minute)) {
		t.Errorf("session: got %q %v", snap.SessionID, snap.SessionStart)
	}
	if snap.Uptime() != 2*time.Minute {
		t.Errorf("Uptime: got %v, want 2m", snap.Uptime())
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(testStart, Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(testMetrics(), logic.LapState{Laps: 1}, logic.Counts{})

	snap1 := tr.Snapshot()

	tr.Update(logic.Metrics{}, logic.LapState{Laps: 5}, logic.Counts{})

	if snap1.Lap.Laps != 1 {
		t.Error("snapshot should be a copy; Lap was modified")
	}
	if snap1.Metrics.RPM != 240 {
		t.Error("snapshot should be a copy; Metrics was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		Metrics:       testMetrics(),
		Lap:           logic.LapState{Pointer: 12, Laps: 3},
		Counts:        logic.Counts{Samples: 3600, Skipped: 4, Resets: 1},
		SessionID:     "9b2c",
		SessionStart:  testStart.Add(5 * time.Minute),
		StartTime:     testStart,
		Now:           testStart.Add(15 * time.Minute),
		MQTTConnected: true,
		Config: Config{
			Source:      "serial",
			Device:      "/dev/ttyUSB1",
			HistorySize: 16,
			StepCount:   200,
			LapDistance: 5656.85,
			Broker:      "tcp://localhost:1883",
			HTTPAddr:    ":80",
		},
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status

	if s.Session != "9b2c" {
		t.Errorf("Session: got %q", s.Session)
	}
	if s.SessionStart != "2026-01-01T00:05:00Z" {
		t.Errorf("SessionStart: got %q", s.SessionStart)
	}
	if s.Elapsed != "01:02:05" {
		t.Errorf("Elapsed: got %q, want 01:02:05", s.Elapsed)
	}
	if s.ElapsedSeconds != 3725 {
		t.Errorf("ElapsedSeconds: got %d, want 3725", s.ElapsedSeconds)
	}
	if s.RPM != 240 || s.Speed != 3.2 || s.DistanceM != 1000 || s.Count != 5000 {
		t.Errorf("metrics: got rpm=%v speed=%v distance=%v count=%d", s.RPM, s.Speed, s.DistanceM, s.Count)
	}
	if s.Lap.Laps != 3 || s.Lap.Waypoint != 12 {
		t.Errorf("Lap: got %+v", s.Lap)
	}
	if s.Counts.Samples != 3600 || s.Counts.Skipped != 4 || s.Counts.Resets != 1 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("MQTT: got %+v", s.MQTT)
	}
	if s.Config.LapDistanceM != 5656.85 || s.Config.StepCount != 200 {
		t.Errorf("Config: got %+v", s.Config)
	}
	// Event and Reason should be omitted
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected empty event/reason for web format, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONZeroSnapshot(t *testing.T) {
	snap := Snapshot{StartTime: testStart, Now: testStart.Add(time.Second)}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Elapsed != "00:00:00" {
		t.Errorf("Elapsed: got %q, want 00:00:00", parsed.Status.Elapsed)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		Metrics:   testMetrics(),
		StartTime: testStart,
		Now:       testStart.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	tests := []struct {
		event  string
		reason string
	}{
		{"HEARTBEAT", ""},
		{"SHUTDOWN", "SIGTERM"},
		{"RESET", ""},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			data := FormatStatusEvent(snap, tt.event, tt.reason)

			var raw map[string]interface{}
			if err := json.Unmarshal(data, &raw); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			status := raw["status"].(map[string]interface{})
			if status["event"] != tt.event {
				t.Errorf("event: got %v, want %s", status["event"], tt.event)
			}
			reason, exists := status["reason"]
			if tt.reason == "" && exists {
				t.Error("reason should be omitted when empty")
			}
			if tt.reason != "" && reason != tt.reason {
				t.Errorf("reason: got %v, want %s", reason, tt.reason)
			}
			if status["uptime_seconds"] != float64(1800) {
				t.Errorf("uptime_seconds: got %v, want 1800", status["uptime_seconds"])
			}
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(logic.Metrics{Count: uint64(i)}, logic.LapState{Pointer: i}, logic.Counts{Samples: i})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetSession("s", time.Now())
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = FormatJSON(tr.Snapshot())
		}
	}()

	wg.Wait()
}
