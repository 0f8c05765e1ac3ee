// Package logic contains the pure tachometer pipeline: rate smoothing,
// derived metrics, session timing and lap tracking.
// This package has NO external dependencies (no serial, GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"errors"
	"time"
)

// ErrInvalidConfiguration is returned when calibration or buffer settings
// cannot produce meaningful metrics.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// DefaultHistorySize is the number of samples the rate is smoothed over.
const DefaultHistorySize = 16

// Calibration holds the device-specific constants that turn pulse counts into
// physical units.
type Calibration struct {
	// SampleRateHz is the fixed frequency at which the pulse source reports.
	SampleRateHz float64
	// RevsPerMetre is the number of counted revolutions per metre travelled.
	RevsPerMetre float64
	// SpeedPerRPM converts RPM into speed units (e.g. 12/900 for kph).
	SpeedPerRPM float64
}

// DefaultCalibration matches the kayak ergometer: 4 samples/sec,
// 5 revs per metre, 900 rpm = 12 kph.
func DefaultCalibration() Calibration {
	return Calibration{
		SampleRateHz: 4,
		RevsPerMetre: 5,
		SpeedPerRPM:  12.0 / 900.0,
	}
}

// Input is one raw pulse count observed at a tick.
type Input struct {
	Count uint64
	Time  time.Time
}

// Metrics are the derived values for one tick. They are a pure function of
// the history buffer and the session clock.
type Metrics struct {
	Count    uint64        // newest raw count in the history
	Rate     float64       // smoothed revolutions per sample
	RPM      float64
	Speed    float64
	Distance float64       // metres
	Elapsed  time.Duration // whole seconds since session start
}

// LapState tracks progress along a precomputed path.
type LapState struct {
	Pointer int // index of the next waypoint to cross
	Laps    int // completed laps
}

// LapEvent is emitted for each waypoint crossing.
type LapEvent struct {
	Timestamp    time.Time
	Waypoint     int
	Lat          float64
	Lon          float64
	Distance     float64 // cumulative distance of the crossed waypoint, metres
	Speed        float64
	Lap          int  // laps completed after this crossing
	LapCompleted bool // true when this crossing wrapped the pointer to 0
}

// Result is the outcome of one Session.Tick.
type Result struct {
	Metrics Metrics
	Reset   bool
	Laps    []LapEvent
}

// Counts tracks tick outcomes since the daemon started.
type Counts struct {
	Samples int // ticks with a valid sample
	Skipped int // ticks with a malformed or missing sample
	Resets  int // counter resets detected
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
	Metrics   Metrics
	Lap       LapState
}
