package logic

import (
	"fmt"
	"time"

	"github.com/sweeney/ergo-tacho/internal/geo"
)

// Config describes a tachometer session.
type Config struct {
	Calibration Calibration
	HistorySize int
	// Path is optional; when nil, lap tracking is disabled.
	Path *geo.Path
}

// Session owns all per-run pipeline state: the history buffer, the session
// clock, the last computed metrics and the lap tracker. One Session is driven
// by a single goroutine; Tick must not be called concurrently.
type Session struct {
	cal           Calibration
	history       *History
	laps          *LapTracker
	startTime     time.Time // daemon start, for uptime
	sessionStart  time.Time // reset on counter reset
	metrics       Metrics
	counts        Counts
	lastHeartbeat time.Time
}

// NewSession validates cfg and creates a session whose clock starts at start.
func NewSession(cfg Config, start time.Time) (*Session, error) {
	if err := cfg.Calibration.Validate(); err != nil {
		return nil, err
	}
	if cfg.HistorySize < 1 {
		return nil, fmt.Errorf("%w: history size must be at least 1, got %d", ErrInvalidConfiguration, cfg.HistorySize)
	}
	return &Session{
		cal:           cfg.Calibration,
		history:       NewHistory(cfg.HistorySize),
		laps:          NewLapTracker(cfg.Path),
		startTime:     start,
		sessionStart:  start,
		lastHeartbeat: start,
	}, nil
}

// Tick runs one pipeline pass for a valid sample.
func (s *Session) Tick(in Input) Result {
	rate, reset := s.history.Push(in.Count)
	if reset {
		s.sessionStart = in.Time
		s.laps.Reset()
		s.counts.Resets++
	}
	s.counts.Samples++

	// Calibration was validated in NewSession.
	m, _ := ComputeMetrics(rate, s.history.Newest(), in.Time.Sub(s.sessionStart), s.cal)
	s.metrics = m

	return Result{
		Metrics: m,
		Reset:   reset,
		Laps:    s.laps.Advance(m.Distance, m.Speed, in.Time),
	}
}

// Skip records a tick at t without a usable sample. Only Elapsed moves on;
// the rate-derived metrics and the history buffer are left untouched.
func (s *Session) Skip(t time.Time) {
	s.counts.Skipped++
	if elapsed := t.Sub(s.sessionStart); elapsed > s.metrics.Elapsed {
		s.metrics.Elapsed = elapsed.Truncate(time.Second)
	}
}

// Metrics returns the metrics from the last valid tick.
func (s *Session) Metrics() Metrics {
	return s.metrics
}

// Lap returns the current lap state.
func (s *Session) Lap() LapState {
	return s.laps.State()
}

// Counts returns tick outcome counters.
func (s *Session) Counts() Counts {
	return s.counts
}

// SessionStart returns the start of the current session (moved on reset).
func (s *Session) SessionStart() time.Time {
	return s.sessionStart
}

// History returns the buffered counts, most recent first.
func (s *Session) History() []uint64 {
	return s.history.Values()
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (s *Session) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(s.lastHeartbeat) < interval {
		return nil
	}

	s.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(s.startTime),
		Counts:    s.counts,
		Metrics:   s.metrics,
		Lap:       s.laps.State(),
	}
}
