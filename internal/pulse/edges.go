package pulse

import (
	"sync"
	"time"
)

// DefaultWatchdog is how long the line may stay idle before the reported
// period starts growing.
const DefaultWatchdog = 200 * time.Millisecond

// edgeCounter is shared between the gpiocdev event goroutine and Read.
type edgeCounter struct {
	mu       sync.Mutex
	watchdog time.Duration
	edges    uint64
	last     time.Duration // kernel timestamp of the last edge
	delta    time.Duration // interval between the last two edges
	lastSeen time.Time     // wall clock of the last edge
}

func newEdgeCounter(watchdog time.Duration) *edgeCounter {
	return &edgeCounter{watchdog: watchdog}
}

func (e *edgeCounter) edge(ts time.Duration) {
	e.edgeAt(ts, time.Now())
}

func (e *edgeCounter) edgeAt(ts time.Duration, wall time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.edges > 0 {
		e.delta = ts - e.last
	}
	e.edges++
	e.last = ts
	e.lastSeen = wall
}

func (e *edgeCounter) count() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.edges
}

// period extends the last delta by one watchdog interval for every interval
// the line has been idle, so a stopped wheel reads as slowing down rather
// than holding its last speed.
func (e *edgeCounter) period(now time.Time) (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.edges < 2 {
		return 0, false
	}
	d := e.delta
	if idle := now.Sub(e.lastSeen); idle > e.watchdog && e.watchdog > 0 {
		d += (idle / e.watchdog) * e.watchdog
	}
	return d, true
}
