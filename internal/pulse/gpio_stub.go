//go:build !linux

package pulse

import (
	"errors"
	"time"
)

// GPIOSource is not available on non-Linux platforms.
type GPIOSource struct{}

// OpenGPIO returns an error on non-Linux platforms.
func OpenGPIO(chip string, pin int, debounce time.Duration) (*GPIOSource, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (g *GPIOSource) Read() (uint64, error) {
	return 0, errors.New("gpio: not supported")
}

// Period is not implemented on non-Linux platforms.
func (g *GPIOSource) Period(now time.Time) (time.Duration, bool) {
	return 0, false
}

// Close is not implemented on non-Linux platforms.
func (g *GPIOSource) Close() error {
	return nil
}
