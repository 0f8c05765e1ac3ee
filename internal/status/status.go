// Package status provides a thread-safe status tracker for the ergo-tacho daemon.
// It is read by the HTTP status server and used to build MQTT status events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/ergo-tacho/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Source       string // "serial" or "gpio"
	Device       string // serial device path or "gpiochip0:7"
	SampleRateHz float64
	RevsPerMetre float64
	SpeedPerRPM  float64
	HistorySize  int
	Curve        string
	StepCount    int
	LapDistance  float64 // metres, 0 when lap tracking is disabled
	HeartbeatMs  int64
	Broker       string
	HTTPAddr     string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Metrics       logic.Metrics
	Lap           logic.LapState
	Counts        logic.Counts
	SessionID     string
	SessionStart  time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
// The first session starts at startTime.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime:    startTime,
			SessionStart: startTime,
			Config:       cfg,
		},
	}
}

// Update sets the latest metrics, lap progress and tick counters.
// Called from runLoop on every tick.
func (t *Tracker) Update(m logic.Metrics, lap logic.LapState, counts logic.Counts) {
	t.mu.Lock()
	t.snap.Metrics = m
	t.snap.Lap = lap
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetSession records the current session ID and its start time.
func (t *Tracker) SetSession(id string, start time.Time) {
	t.mu.Lock()
	t.snap.SessionID = id
	t.snap.SessionStart = start
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	return t.SnapshotAt(time.Now())
}

// SnapshotAt is Snapshot with an explicit Now, for callers on an injected clock.
func (t *Tracker) SnapshotAt(now time.Time) Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = now
	return s
}
