package question

import (
	"errors"
	"testing"

	"quizslot/internal/domain"
	"quizslot/internal/rng"
)

// scriptedSource replays a fixed index sequence, wrapping around, so
// rejection behavior can be asserted deterministically.
type scriptedSource struct {
	seq   []int
	calls int
}

func (s *scriptedSource) Intn(max int) (int, error) {
	v := s.seq[s.calls%len(s.seq)]
	s.calls++
	return v % max, nil
}

type failingSource struct{}

func (failingSource) Intn(int) (int, error) {
	return 0, errors.New("no randomness")
}

func loadedStore(t *testing.T, rows []domain.AnswerRow) *Store {
	t.Helper()
	s := NewStore()
	if err := s.Load(rows, []int{2, 3}, []int{2, 3}, []int{2, 3}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return s
}

func TestPickNotReady(t *testing.T) {
	sel := NewSelector(rng.New(), 0)
	_, err := sel.Pick(NewStore(), NewHistory(0))
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady, got %v", err)
	}
}

func TestPickAvoidsRecentRepeats(t *testing.T) {
	// Six valid rows, history capacity 3: a freshly picked index must never
	// be among the three most recent prior selections.
	store := loadedStore(t, validRows(6))
	hist := NewHistory(3)
	sel := NewSelector(rng.New(), 0)

	var recent []int
	for i := 0; i < 100; i++ {
		got, err := sel.Pick(store, hist)
		if err != nil {
			t.Fatalf("Pick %d failed: %v", i, err)
		}

		for _, r := range recent {
			if got.Index == r {
				t.Fatalf("Pick %d returned index %d present in recent %v", i, got.Index, recent)
			}
		}

		recent = append(recent, got.Index)
		if len(recent) > 3 {
			recent = recent[1:]
		}
	}
}

func TestPickSkipsInvalidRows(t *testing.T) {
	t.Run("BlankAnswer", func(t *testing.T) {
		rows := validRows(4)
		rows[1].Answer = "   "

		store := loadedStore(t, rows)
		// Cycle through every index; index 1 must always be rejected.
		src := &scriptedSource{seq: []int{1, 0, 1, 2, 1, 3}}
		sel := NewSelector(src, 0)

		for i := 0; i < 20; i++ {
			got, err := sel.Pick(store, NewHistory(1))
			if err != nil {
				t.Fatalf("Pick failed: %v", err)
			}
			if got.Index == 1 {
				t.Fatal("Selector returned a row with a blank answer")
			}
		}
	})

	t.Run("BlankDistractor", func(t *testing.T) {
		rows := validRows(2)
		rows[0].Distractor2 = ""

		store := loadedStore(t, rows)
		sel := NewSelector(&scriptedSource{seq: []int{0, 1}}, 0)

		got, err := sel.Pick(store, NewHistory(1))
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		if got.Index != 1 {
			t.Errorf("Expected index 1, got %d", got.Index)
		}
	})

	t.Run("MissingReelReference", func(t *testing.T) {
		rows := validRows(2)
		rows[0].RowC = 0

		store := loadedStore(t, rows)
		sel := NewSelector(&scriptedSource{seq: []int{0, 1}}, 0)

		got, err := sel.Pick(store, NewHistory(1))
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		if got.Index != 1 {
			t.Errorf("Expected index 1, got %d", got.Index)
		}
	})
}

func TestPickExhaustion(t *testing.T) {
	// All rows invalid: the selector must fail after exactly the attempt cap.
	rows := validRows(3)
	for i := range rows {
		rows[i].Answer = ""
	}
	store := loadedStore(t, rows)

	t.Run("DefaultCap", func(t *testing.T) {
		src := &scriptedSource{seq: []int{0, 1, 2}}
		sel := NewSelector(src, 0)

		_, err := sel.Pick(store, NewHistory(0))
		if !errors.Is(err, ErrSelectionExhausted) {
			t.Fatalf("Expected ErrSelectionExhausted, got %v", err)
		}
		if src.calls != DefaultMaxAttempts {
			t.Errorf("Expected exactly %d draws, got %d", DefaultMaxAttempts, src.calls)
		}
	})

	t.Run("OverriddenCap", func(t *testing.T) {
		src := &scriptedSource{seq: []int{0, 1, 2}}
		sel := NewSelector(src, 7)

		_, err := sel.Pick(store, NewHistory(0))
		if !errors.Is(err, ErrSelectionExhausted) {
			t.Fatalf("Expected ErrSelectionExhausted, got %v", err)
		}
		if src.calls != 7 {
			t.Errorf("Expected exactly 7 draws, got %d", src.calls)
		}
	})
}

func TestPickHistoryConsumesAttempts(t *testing.T) {
	// A history hit is a rejected draw, not a free retry.
	store := loadedStore(t, validRows(2))
	hist := NewHistory(3)
	hist.Push(0)

	src := &scriptedSource{seq: []int{0, 0, 1}}
	sel := NewSelector(src, 0)

	got, err := sel.Pick(store, hist)
	if err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	if got.Index != 1 {
		t.Errorf("Expected index 1, got %d", got.Index)
	}
	if src.calls != 3 {
		t.Errorf("Expected 3 draws, got %d", src.calls)
	}
}

func TestPickPushesHistory(t *testing.T) {
	store := loadedStore(t, validRows(4))
	hist := NewHistory(3)
	sel := NewSelector(&scriptedSource{seq: []int{2}}, 0)

	got, err := sel.Pick(store, hist)
	if err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	if !hist.Contains(got.Index) {
		t.Error("Selected index should be recorded in history")
	}
}

func TestPickSourceError(t *testing.T) {
	store := loadedStore(t, validRows(2))
	sel := NewSelector(failingSource{}, 0)

	if _, err := sel.Pick(store, NewHistory(0)); err == nil {
		t.Error("Expected error when random source fails")
	}
}
