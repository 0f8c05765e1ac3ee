package pulse

import (
	"errors"
	"testing"
)

func TestFakeSourceRead(t *testing.T) {
	f := NewFakeSource([]Sample{
		{Count: 1},
		{Err: ErrMalformed},
		{Count: 3},
	})

	if n, err := f.Read(); err != nil || n != 1 {
		t.Errorf("read 0: got (%d, %v)", n, err)
	}
	if _, err := f.Read(); !errors.Is(err, ErrMalformed) {
		t.Errorf("read 1: expected ErrMalformed, got %v", err)
	}
	if n, err := f.Read(); err != nil || n != 3 {
		t.Errorf("read 2: got (%d, %v)", n, err)
	}
	// Exhausted: last sample repeats.
	if n, err := f.Read(); err != nil || n != 3 {
		t.Errorf("read 3 (repeat): got (%d, %v)", n, err)
	}
}

func TestFakeSourceNoSamples(t *testing.T) {
	f := NewFakeSource(nil)
	if _, err := f.Read(); err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeSourceCloseAndReset(t *testing.T) {
	f := NewFakeSource(Counts(5, 6))
	f.Read()
	if err := f.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Reset()
	if f.Closed {
		t.Error("Reset should clear Closed")
	}
	if n, _ := f.Read(); n != 5 {
		t.Errorf("after reset: got %d, want 5", n)
	}
}
