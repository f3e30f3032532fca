// Package question holds the loaded answer table and draws valid,
// non-recently-used questions from it.
package question

import (
	"errors"
	"sync"

	"quizslot/internal/domain"
)

var (
	ErrNotReady           = errors.New("question store is not loaded")
	ErrSelectionExhausted = errors.New("no valid question available")
)

// Store holds the validated answer rows and the per-reel lists of available
// symbol row numbers. Collections are replaced wholesale on load and
// read-only during gameplay.
type Store struct {
	mu    sync.RWMutex
	rows  []domain.AnswerRow
	lists map[domain.Reel][]int
	ready bool
}

// NewStore creates an empty, not-ready store.
func NewStore() *Store {
	return &Store{lists: make(map[domain.Reel][]int)}
}

// Load replaces all four collections. If any collection is empty the store
// stays not ready and ErrNotReady is returned.
func (s *Store) Load(rows []domain.AnswerRow, left, center, right []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(rows) == 0 || len(left) == 0 || len(center) == 0 || len(right) == 0 {
		s.ready = false
		return ErrNotReady
	}

	s.rows = append([]domain.AnswerRow(nil), rows...)
	s.lists = map[domain.Reel][]int{
		domain.ReelLeft:   append([]int(nil), left...),
		domain.ReelCenter: append([]int(nil), center...),
		domain.ReelRight:  append([]int(nil), right...),
	}
	s.ready = true
	return nil
}

// Reset discards all loaded content.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	s.lists = make(map[domain.Reel][]int)
	s.ready = false
}

// Ready reports whether the store is loaded and all collections non-empty.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Count returns the number of answer rows.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Row returns the answer row at index i.
func (s *Store) Row(i int) (domain.AnswerRow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.rows) {
		return domain.AnswerRow{}, false
	}
	return s.rows[i], true
}

// SymbolRows returns the ordered symbol row numbers for a reel. The returned
// slice is a copy; order defines the reel's index-to-pixel mapping.
func (s *Store) SymbolRows(r domain.Reel) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int(nil), s.lists[r]...)
}
