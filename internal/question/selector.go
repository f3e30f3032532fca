package question

import (
	"fmt"

	"quizslot/internal/domain"
	"quizslot/internal/rng"
)

// DefaultMaxAttempts bounds the redraw loop. Each draw, including ones
// rejected for history hits or invalid rows, consumes one attempt.
const DefaultMaxAttempts = 50

// Selector draws one valid, non-recently-used answer row.
type Selector struct {
	src         rng.Source
	maxAttempts int
}

// NewSelector creates a selector over the given random source. maxAttempts
// of zero or less falls back to DefaultMaxAttempts.
func NewSelector(src rng.Source, maxAttempts int) *Selector {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Selector{src: src, maxAttempts: maxAttempts}
}

// Selection is a successfully drawn question: the row index within the
// store and the answer row itself. Per-reel symbol references are reachable
// through Row.RowFor.
type Selection struct {
	Index int              `json:"index"`
	Row   domain.AnswerRow `json:"row"`
}

// Pick repeatedly draws a uniform random index, rejecting indices present in
// the history and rows that are not selectable, until one is accepted or the
// attempt cap is exhausted. On success the index is pushed into the history.
//
// An ErrSelectionExhausted result is fatal for the round: the caller must
// surface it rather than fall back to a stale question.
func (s *Selector) Pick(store *Store, hist *History) (*Selection, error) {
	if !store.Ready() {
		return nil, ErrNotReady
	}

	n := store.Count()
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		idx, err := s.src.Intn(n)
		if err != nil {
			return nil, fmt.Errorf("failed to draw question index: %w", err)
		}
		if hist.Contains(idx) {
			continue
		}
		row, ok := store.Row(idx)
		if !ok || !row.Selectable() {
			continue
		}

		hist.Push(idx)
		return &Selection{Index: idx, Row: row}, nil
	}

	return nil, ErrSelectionExhausted
}
