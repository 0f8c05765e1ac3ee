package logic

import (
	"time"

	"github.com/sweeney/ergo-tacho/internal/geo"
)

// LapTracker advances a pointer along a closed path as distance accumulates.
type LapTracker struct {
	path  *geo.Path
	state LapState
}

// NewLapTracker creates a tracker positioned at the first waypoint.
// A nil or empty path yields a tracker that never emits events.
func NewLapTracker(path *geo.Path) *LapTracker {
	return &LapTracker{path: path}
}

// State returns the current pointer and lap count.
func (l *LapTracker) State() LapState {
	return l.state
}

// Reset moves the pointer back to the first waypoint and clears the lap count.
func (l *LapTracker) Reset() {
	l.state = LapState{}
}

// threshold is the session distance at which the current waypoint is passed.
func (l *LapTracker) threshold() float64 {
	return l.path.Points[l.state.Pointer].Cumulative + float64(l.state.Laps)*l.path.LapDistance
}

// Advance emits one event for every waypoint whose threshold distance has
// been exceeded, in path order. Sparse samples that jump several segments
// produce several events in the same tick.
func (l *LapTracker) Advance(distance, speed float64, t time.Time) []LapEvent {
	if l.path == nil || l.path.Len() == 0 || l.path.LapDistance <= 0 {
		return nil
	}

	// Whole laps inside a single gap are counted without per-waypoint events,
	// so a corrupt count cannot produce an unbounded event burst.
	if gap := distance - l.threshold(); gap > l.path.LapDistance {
		l.state.Laps += int(gap / l.path.LapDistance)
	}

	var events []LapEvent
	for distance > l.threshold() {
		wp := l.path.Points[l.state.Pointer]
		ev := LapEvent{
			Timestamp: t,
			Waypoint:  l.state.Pointer,
			Lat:       wp.Lat,
			Lon:       wp.Lon,
			Distance:  l.threshold(),
			Speed:     speed,
		}

		l.state.Pointer = (l.state.Pointer + 1) % l.path.Len()
		if l.state.Pointer == 0 {
			l.state.Laps++
			ev.LapCompleted = true
		}
		ev.Lap = l.state.Laps

		events = append(events, ev)
	}
	return events
}
