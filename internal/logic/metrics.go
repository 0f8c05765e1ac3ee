package logic

import (
	"fmt"
	"time"
)

// Validate reports whether every calibration constant is positive.
func (c Calibration) Validate() error {
	if c.SampleRateHz <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %v", ErrInvalidConfiguration, c.SampleRateHz)
	}
	if c.RevsPerMetre <= 0 {
		return fmt.Errorf("%w: revs per metre must be positive, got %v", ErrInvalidConfiguration, c.RevsPerMetre)
	}
	if c.SpeedPerRPM <= 0 {
		return fmt.Errorf("%w: speed per rpm must be positive, got %v", ErrInvalidConfiguration, c.SpeedPerRPM)
	}
	return nil
}

// ComputeMetrics converts a smoothed rate and the newest cumulative count
// into RPM, speed and distance. Elapsed is floored to whole seconds.
func ComputeMetrics(rate float64, count uint64, elapsed time.Duration, cal Calibration) (Metrics, error) {
	if err := cal.Validate(); err != nil {
		return Metrics{}, err
	}

	rpm := rate * cal.SampleRateHz * 60
	if elapsed < 0 {
		elapsed = 0
	}
	return Metrics{
		Count:    count,
		Rate:     rate,
		RPM:      rpm,
		Speed:    rpm * cal.SpeedPerRPM,
		Distance: float64(count) / cal.RevsPerMetre,
		Elapsed:  elapsed.Truncate(time.Second),
	}, nil
}

// FormatElapsed renders d as HH:MM:SS, flooring to whole seconds.
// Hours are not wrapped at 24.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
