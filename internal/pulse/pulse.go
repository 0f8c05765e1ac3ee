// Package pulse reads raw revolution counts from the tachometer hardware.
// The serial implementation talks to the counter board over a tty; the GPIO
// implementation counts rising edges directly. The fake implementation
// allows testing without hardware.
package pulse

import "errors"

var (
	// ErrMalformed is returned when a complete frame arrived but did not
	// contain a valid count. The tick should be skipped.
	ErrMalformed = errors.New("pulse: malformed sample")

	// ErrNoSample is returned when no complete frame arrived before the read
	// timeout. The tick should be skipped.
	ErrNoSample = errors.New("pulse: no sample")
)

// Source reads pulse counts.
type Source interface {
	// Read returns the latest cumulative pulse count.
	// Returns ErrMalformed or ErrNoSample when the tick has no usable sample.
	Read() (uint64, error)

	// Close releases the underlying device.
	Close() error
}

// Skippable reports whether err means "no usable sample this tick" rather
// than a device failure.
func Skippable(err error) bool {
	return errors.Is(err, ErrMalformed) || errors.Is(err, ErrNoSample)
}
