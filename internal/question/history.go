package question

// DefaultHistorySize is how many recent selections are suppressed before an
// index may repeat.
const DefaultHistorySize = 3

// History is a bounded FIFO of recently selected answer-row indices. The
// oldest entry is evicted once capacity is exceeded. It is not safe for
// concurrent use; the round engine serializes access per session.
type History struct {
	capacity int
	entries  []int
}

// NewHistory creates a history with the given capacity. A capacity of zero
// or less falls back to DefaultHistorySize.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{capacity: capacity}
}

// Contains reports whether idx is among the recent selections.
func (h *History) Contains(idx int) bool {
	for _, e := range h.entries {
		if e == idx {
			return true
		}
	}
	return false
}

// Push records a selection, evicting the oldest entry when full.
func (h *History) Push(idx int) {
	h.entries = append(h.entries, idx)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[1:]
	}
}

// Entries returns the recorded indices, oldest first.
func (h *History) Entries() []int {
	return append([]int(nil), h.entries...)
}

// Reset clears the history.
func (h *History) Reset() {
	h.entries = h.entries[:0]
}
