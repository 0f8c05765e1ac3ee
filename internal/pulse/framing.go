package pulse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Framing selects how counts are encoded on the serial line.
type Framing string

const (
	// FramingBinary is a 4-byte little-endian uint32 followed by "\r\n".
	FramingBinary Framing = "binary"
	// FramingText is an ASCII line; the first run of decimal digits is the count.
	FramingText Framing = "text"
)

// binaryFrameLen is the payload length of a binary frame, excluding "\r\n".
const binaryFrameLen = 4

// maxPending bounds the unterminated bytes kept while waiting for a frame.
const maxPending = 256

var digitRun = regexp.MustCompile(`[0-9]+`)

// ParseFraming converts a config string into a Framing.
func ParseFraming(s string) (Framing, error) {
	switch f := Framing(strings.ToLower(strings.TrimSpace(s))); f {
	case FramingBinary, FramingText:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported framing %q: expected %q or %q", s, FramingBinary, FramingText)
	}
}

// Parse decodes a single frame (terminator already removed).
func (f Framing) Parse(frame []byte) (uint64, error) {
	switch f {
	case FramingBinary:
		if len(frame) != binaryFrameLen {
			return 0, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformed, len(frame), binaryFrameLen)
		}
		return uint64(binary.LittleEndian.Uint32(frame)), nil

	case FramingText:
		run := digitRun.Find(frame)
		if run == nil {
			return 0, fmt.Errorf("%w: no digits in %q", ErrMalformed, frame)
		}
		n, err := strconv.ParseUint(string(run), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return n, nil

	default:
		return 0, fmt.Errorf("unsupported framing %q", string(f))
	}
}

// split extracts the next frame from buf. ok is false when buf does not yet
// hold a complete frame. A frame that cannot be aligned is returned as-is so
// that Parse reports it as malformed; rest always makes progress.
func (f Framing) split(buf []byte) (frame, rest []byte, ok bool) {
	if f == FramingBinary {
		// The payload may itself contain '\n', so match the fixed width first.
		if len(buf) < binaryFrameLen+2 {
			return nil, buf, false
		}
		if buf[binaryFrameLen] == '\r' && buf[binaryFrameLen+1] == '\n' {
			return buf[:binaryFrameLen], buf[binaryFrameLen+2:], true
		}
		// Out of sync: drop through the next newline.
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			return trimCR(buf[:i]), buf[i+1:], true
		}
		return overflow(buf)
	}

	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		return trimCR(buf[:i]), buf[i+1:], true
	}
	return overflow(buf)
}

// overflow discards a pending buffer that has grown past maxPending without a
// terminator, reporting it as a (malformed) frame.
func overflow(buf []byte) ([]byte, []byte, bool) {
	if len(buf) > maxPending {
		return buf, nil, true
	}
	return nil, buf, false
}

func trimCR(b []byte) []byte {
	return bytes.TrimSuffix(b, []byte("\r"))
}
