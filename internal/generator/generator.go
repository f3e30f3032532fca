// Package generator enumerates every (left, center, right) row triple whose
// type tags satisfy the pairwise compatibility constraints, for the
// authoring workflow that fills the answer table.
package generator

import (
	"quizslot/internal/domain"
)

// AnsDataStart is the first data row of the answer sheet; row 1 is the
// header. Generated combinations are numbered from here, immediately after
// any pre-existing rows.
const AnsDataStart = 2

// Pair is an ordered (typeA, typeB) tag pair.
type Pair struct {
	A int
	B int
}

// PairSet is a set of legal type pairs for one reel pairing.
type PairSet map[Pair]struct{}

// NewPairSet builds a set from (a, b) tuples.
func NewPairSet(pairs ...[2]int) PairSet {
	s := make(PairSet, len(pairs))
	for _, p := range pairs {
		s[Pair{A: p[0], B: p[1]}] = struct{}{}
	}
	return s
}

// Contains reports whether (a, b) is a legal pairing.
func (s PairSet) Contains(a, b int) bool {
	_, ok := s[Pair{A: a, B: b}]
	return ok
}

// RuleSet holds the three pairwise constraint sets.
type RuleSet struct {
	LC PairSet // legal (left, center) type pairs
	LR PairSet // legal (left, right) type pairs
	CR PairSet // legal (center, right) type pairs
}

// Allows reports whether a type triple satisfies all three constraints.
func (r RuleSet) Allows(typeL, typeC, typeR int) bool {
	return r.LC.Contains(typeL, typeC) &&
		r.LR.Contains(typeL, typeR) &&
		r.CR.Contains(typeC, typeR)
}

// TripleSet is a set of already-recorded row combinations.
type TripleSet map[domain.Triple]struct{}

// NewTripleSet builds a set from triples.
func NewTripleSet(triples ...domain.Triple) TripleSet {
	s := make(TripleSet, len(triples))
	for _, t := range triples {
		s[t] = struct{}{}
	}
	return s
}

// Contains reports whether the triple is already recorded.
func (s TripleSet) Contains(t domain.Triple) bool {
	_, ok := s[t]
	return ok
}

// Input carries the per-reel entries, the constraint rules, and the triples
// already present in the destination answer table.
type Input struct {
	Left     []domain.ReelEntry
	Center   []domain.ReelEntry
	Right    []domain.ReelEntry
	Rules    RuleSet
	Existing TripleSet
}

// Result is the ordered generator output. SkippedEntries counts source
// entries dropped for a missing or non-numeric type tag.
type Result struct {
	Combinations   []domain.Combination `json:"combinations"`
	Generated      int                  `json:"generated"`
	SkippedEntries int                  `json:"skipped_entries"`
	NextAnsRow     int                  `json:"next_ans_row"`
}

// Generate walks all candidate triples in stable nested order (left, then
// center, then right) and emits those that satisfy every constraint and are
// not already recorded. Destination row numbers are assigned sequentially
// starting after the last pre-existing answer row.
//
// Complexity is O(L*C*R); exhaustive enumeration over three independent
// axes, acceptable at authoring-table sizes.
func Generate(in Input) *Result {
	res := &Result{}

	left := filterTagged(in.Left, &res.SkippedEntries)
	center := filterTagged(in.Center, &res.SkippedEntries)
	right := filterTagged(in.Right, &res.SkippedEntries)

	next := AnsDataStart + len(in.Existing)

	for _, l := range left {
		for _, c := range center {
			for _, r := range right {
				if !in.Rules.Allows(l.Type, c.Type, r.Type) {
					continue
				}

				triple := domain.Triple{RowL: l.Row, RowC: c.Row, RowR: r.Row}
				if in.Existing.Contains(triple) {
					continue
				}

				res.Combinations = append(res.Combinations, domain.Combination{
					Triple:   triple,
					Question: l.Content + c.Content + r.Content,
					AnsRow:   next,
				})
				next++
			}
		}
	}

	res.Generated = len(res.Combinations)
	res.NextAnsRow = next
	return res
}

// filterTagged drops entries without a usable type tag, counting them.
func filterTagged(entries []domain.ReelEntry, skipped *int) []domain.ReelEntry {
	kept := make([]domain.ReelEntry, 0, len(entries))
	for _, e := range entries {
		if e.Type <= 0 {
			*skipped++
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
