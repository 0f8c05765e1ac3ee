package pulse

import "errors"

// FakeSource is a test double that returns scripted samples.
type FakeSource struct {
	// Samples contains scripted reads. Each call to Read() consumes the next
	// sample; when exhausted, the last sample repeats.
	Samples []Sample

	index int

	// Closed tracks if Close was called.
	Closed bool

	// CloseError, if set, is returned by Close.
	CloseError error
}

// Sample is one scripted Read result.
type Sample struct {
	Count uint64
	Err   error
}

// NewFakeSource creates a FakeSource with the given samples.
func NewFakeSource(samples []Sample) *FakeSource {
	return &FakeSource{Samples: samples}
}

// Counts is a shorthand for a script of valid counts.
func Counts(counts ...uint64) []Sample {
	out := make([]Sample, len(counts))
	for i, c := range counts {
		out[i] = Sample{Count: c}
	}
	return out
}

// Read returns the next scripted sample.
func (f *FakeSource) Read() (uint64, error) {
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s.Count, s.Err
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return f.CloseError
}

// Reset rewinds the script.
func (f *FakeSource) Reset() {
	f.index = 0
	f.Closed = false
}
