package logic

// History is a fixed-capacity ring of the most recent pulse counts.
// It always holds exactly Len() values; unused slots read as zero.
// Not safe for concurrent use.
type History struct {
	buf  []uint64
	head int // index of the newest value
}

// NewHistory creates a zero-filled history of the given capacity.
// Capacity below 1 is treated as 1.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]uint64, capacity)}
}

// Len returns the buffer capacity.
func (h *History) Len() int {
	return len(h.buf)
}

// Push stores count as the newest value, dropping the oldest, and returns
// the smoothed rate (newest - oldest) / capacity.
//
// A negative rate means the counter went backwards (device reset). In that
// case the whole buffer is zeroed, the rate is 0 and reset is true.
func (h *History) Push(count uint64) (rate float64, reset bool) {
	h.head = (h.head + 1) % len(h.buf)
	h.buf[h.head] = count

	oldest := h.Oldest()
	if count < oldest {
		h.Clear()
		return 0, true
	}
	return float64(count-oldest) / float64(len(h.buf)), false
}

// Newest returns the most recently pushed value.
func (h *History) Newest() uint64 {
	return h.buf[h.head]
}

// Oldest returns the value that will be dropped by the next Push.
func (h *History) Oldest() uint64 {
	return h.buf[(h.head+1)%len(h.buf)]
}

// Values returns a copy of the buffer, most recent first.
func (h *History) Values() []uint64 {
	out := make([]uint64, len(h.buf))
	for i := range out {
		out[i] = h.buf[(h.head-i+len(h.buf))%len(h.buf)]
	}
	return out
}

// Clear zeroes every slot.
func (h *History) Clear() {
	for i := range h.buf {
		h.buf[i] = 0
	}
	h.head = 0
}
