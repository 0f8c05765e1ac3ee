// Package activity records a session to disk: a flat per-tick count log and
// a GPX export of waypoint crossings. Write failures are returned to the
// caller and stop the daemon.
package activity

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sweeney/ergo-tacho/internal/logic"
)

// Recorder receives every valid sample and every waypoint crossing.
type Recorder interface {
	// Sample records the raw count read at t.
	Sample(t time.Time, count uint64) error

	// Crossing records a waypoint crossing.
	Crossing(ev logic.LapEvent) error

	// Close flushes any trailer and releases files.
	Close() error
}

// Options selects which files to write. Empty paths disable that output.
type Options struct {
	LogPath    string
	ExportPath string
	SessionID  string
	Start      time.Time
}

// Open creates the configured recorders. With no paths set it returns a
// recorder that discards everything.
func Open(opts Options) (Recorder, error) {
	var recs Multi

	if opts.LogPath != "" {
		f, err := os.OpenFile(opts.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open activity log %s: %w", opts.LogPath, err)
		}
		recs = append(recs, NewTextLog(f))
	}

	if opts.ExportPath != "" {
		f, err := os.Create(opts.ExportPath)
		if err != nil {
			recs.Close()
			return nil, fmt.Errorf("create export %s: %w", opts.ExportPath, err)
		}
		exp, err := NewGPXExport(f, opts.SessionID, opts.Start)
		if err != nil {
			f.Close()
			recs.Close()
			return nil, fmt.Errorf("write export header %s: %w", opts.ExportPath, err)
		}
		recs = append(recs, exp)
	}

	return recs, nil
}

// Multi fans out to several recorders, stopping at the first error.
type Multi []Recorder

// Sample forwards to every recorder.
func (m Multi) Sample(t time.Time, count uint64) error {
	for _, r := range m {
		if err := r.Sample(t, count); err != nil {
			return err
		}
	}
	return nil
}

// Crossing forwards to every recorder.
func (m Multi) Crossing(ev logic.LapEvent) error {
	for _, r := range m {
		if err := r.Crossing(ev); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every recorder and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
