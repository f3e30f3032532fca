// Package choice builds the displayed multiple-choice set and judges the
// player's submission.
package choice

import (
	"fmt"

	"quizslot/internal/domain"
	"quizslot/internal/rng"
)

// Builder assembles shuffled choice sets for an answer row.
type Builder struct {
	src rng.Source
}

// NewBuilder creates a builder over the given random source.
func NewBuilder(src rng.Source) *Builder {
	return &Builder{src: src}
}

// Build returns the 3-way choice set: the correct answer plus the first two
// distractors, in Fisher-Yates shuffled order. Callers must rely on the
// Correct flag, never on position.
func (b *Builder) Build(row domain.AnswerRow) ([]domain.Choice, error) {
	choices := []domain.Choice{
		{Text: row.Answer, Correct: true},
		{Text: row.Distractor1},
		{Text: row.Distractor2},
	}

	for i := len(choices) - 1; i > 0; i-- {
		j, err := b.src.Intn(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to shuffle choices: %w", err)
		}
		choices[i], choices[j] = choices[j], choices[i]
	}

	return choices, nil
}

// Judge compares the submitted text against the row's correct answer. A nil
// row means no question is active; that is a host-sequencing bug, so the
// result is a well-formed miss rather than an error.
func (b *Builder) Judge(selected string, row *domain.AnswerRow) domain.JudgeResult {
	if row == nil {
		return domain.JudgeResult{}
	}
	return domain.JudgeResult{
		IsCorrect:     selected == row.Answer,
		CorrectAnswer: row.Answer,
	}
}
