package activity

import (
	"time"

	"github.com/sweeney/ergo-tacho/internal/logic"
)

// FakeRecorder records calls for test assertions.
type FakeRecorder struct {
	// Samples contains the counts passed to Sample.
	Samples []uint64

	// Crossings contains all recorded waypoint crossings.
	Crossings []logic.LapEvent

	// SampleError, if set, is returned by Sample.
	SampleError error

	// CrossingError, if set, is returned by Crossing.
	CrossingError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeRecorder creates a FakeRecorder for testing.
func NewFakeRecorder() *FakeRecorder {
	return &FakeRecorder{}
}

// Sample records the count.
func (f *FakeRecorder) Sample(_ time.Time, count uint64) error {
	if f.SampleError != nil {
		return f.SampleError
	}
	f.Samples = append(f.Samples, count)
	return nil
}

// Crossing records the event.
func (f *FakeRecorder) Crossing(ev logic.LapEvent) error {
	if f.CrossingError != nil {
		return f.CrossingError
	}
	f.Crossings = append(f.Crossings, ev)
	return nil
}

// Close marks the recorder as closed.
func (f *FakeRecorder) Close() error {
	f.Closed = true
	return nil
}
