package pulse

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
)

// DefaultReadTimeout bounds how long a single Read waits for a frame.
const DefaultReadTimeout = 500 * time.Millisecond

// PortOptions describes the serial connection parameters for the counter
// board.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 9600
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	return opts, nil
}

// SerialMode converts the options into the go.bug.st/serial mode.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}

// Port is the subset of a serial port used by SerialSource. A Read that
// times out returns (0, nil), matching go.bug.st/serial.
type Port interface {
	io.Reader
	io.Closer
}

// SerialSource reads framed counts from a serial port.
type SerialSource struct {
	port    Port
	framing Framing
	pending []byte
	chunk   []byte
}

// OpenSerial opens the counter board at path.
func OpenSerial(path string, opts PortOptions, framing Framing, timeout time.Duration) (*SerialSource, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
	}

	// Drop whatever accumulated before we started listening.
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("reset input buffer on %s: %w", path, err)
	}

	return NewSerialSource(port, framing), nil
}

// NewSerialSource wraps an already-open port.
func NewSerialSource(port Port, framing Framing) *SerialSource {
	return &SerialSource{
		port:    port,
		framing: framing,
		chunk:   make([]byte, 64),
	}
}

// Read returns the next framed count. It blocks until a frame completes or
// the port's read timeout expires (ErrNoSample).
func (s *SerialSource) Read() (uint64, error) {
	for {
		if frame, rest, ok := s.framing.split(s.pending); ok {
			count, err := s.framing.Parse(frame)
			s.pending = append(s.pending[:0], rest...)
			return count, err
		}

		n, err := s.port.Read(s.chunk)
		if n > 0 {
			s.pending = append(s.pending, s.chunk[:n]...)
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("read serial: %w", err)
		}
		return 0, ErrNoSample
	}
}

// Close releases the serial port.
func (s *SerialSource) Close() error {
	return s.port.Close()
}
