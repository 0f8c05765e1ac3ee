//go:build linux

package pulse

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOSource counts rising edges on a GPIO line, for reed switches or hall
// sensors wired straight to the Pi instead of through a counter board.
type GPIOSource struct {
	line  *gpiocdev.Line
	edges *edgeCounter
}

// OpenGPIO requests pin on chip as an input with rising-edge detection and a
// glitch filter of debounce.
func OpenGPIO(chip string, pin int, debounce time.Duration) (*GPIOSource, error) {
	edges := newEdgeCounter(DefaultWatchdog)

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			if evt.Type == gpiocdev.LineEventRisingEdge {
				edges.edge(evt.Timestamp)
			}
		}),
	}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}

	line, err := gpiocdev.RequestLine(chip, pin, opts...)
	if err != nil {
		return nil, fmt.Errorf("request %s pin %d: %w", chip, pin, err)
	}

	return &GPIOSource{line: line, edges: edges}, nil
}

// Read returns the number of rising edges seen since the line was requested.
func (g *GPIOSource) Read() (uint64, error) {
	return g.edges.count(), nil
}

// Period returns the interval between the last two edges, extended by the
// watchdog while no edges arrive. ok is false until two edges have been seen.
func (g *GPIOSource) Period(now time.Time) (time.Duration, bool) {
	return g.edges.period(now)
}

// Close reconfigures the line back to a pulled-down input and releases it.
func (g *GPIOSource) Close() error {
	var errs []error
	if err := g.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
	}
	if err := g.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
