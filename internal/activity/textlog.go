package activity

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/sweeney/ergo-tacho/internal/logic"
)

// TimestampLayout is the timestamp format of the text log.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// TextLog writes one "<timestamp> <raw_count>" line per sample.
type TextLog struct {
	w  *bufio.Writer
	wc io.WriteCloser
}

// NewTextLog writes to wc and closes it on Close.
func NewTextLog(wc io.WriteCloser) *TextLog {
	return &TextLog{w: bufio.NewWriter(wc), wc: wc}
}

// Sample appends a line and flushes it, so a crash loses at most one tick.
func (l *TextLog) Sample(t time.Time, count uint64) error {
	if _, err := fmt.Fprintf(l.w, "%s %d\n", t.Format(TimestampLayout), count); err != nil {
		return fmt.Errorf("write activity log: %w", err)
	}
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("flush activity log: %w", err)
	}
	return nil
}

// Crossing is not recorded in the text log.
func (l *TextLog) Crossing(logic.LapEvent) error {
	return nil
}

// Close flushes and closes the underlying file.
func (l *TextLog) Close() error {
	ferr := l.w.Flush()
	cerr := l.wc.Close()
	if ferr != nil {
		return fmt.Errorf("flush activity log: %w", ferr)
	}
	return cerr
}
