// Package domain contains core domain models for the quiz slot game.
//
// Row numbers are 1-based identifiers tying a reel symbol or answer entry to
// its position in the source answer workbook (data starts at row 2, below the
// header row). They are stable across import/export so that generated
// combinations written back into the workbook stay addressable.
package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Reel identifies one of the three independently spinning symbol strips.
type Reel int

const (
	ReelLeft Reel = iota
	ReelCenter
	ReelRight
)

// Reels lists all reels in display order.
var Reels = [3]Reel{ReelLeft, ReelCenter, ReelRight}

func (r Reel) String() string {
	switch r {
	case ReelLeft:
		return "left"
	case ReelCenter:
		return "center"
	case ReelRight:
		return "right"
	}
	return "unknown"
}

// AnswerRow is one fully specified question: which left/center/right symbol
// rows combine, the correct answer, and up to three distractors.
type AnswerRow struct {
	RowL        int    `json:"row_l"`
	RowC        int    `json:"row_c"`
	RowR        int    `json:"row_r"`
	Answer      string `json:"answer"`
	Distractor1 string `json:"distractor1"`
	Distractor2 string `json:"distractor2"`
	Distractor3 string `json:"distractor3,omitempty"`
	Question    string `json:"question,omitempty"` // concatenated fragment text
}

// RowFor returns the symbol row number this answer references on the given reel.
func (a AnswerRow) RowFor(r Reel) int {
	switch r {
	case ReelLeft:
		return a.RowL
	case ReelCenter:
		return a.RowC
	case ReelRight:
		return a.RowR
	}
	return 0
}

// Selectable reports whether the row may be offered to a player: all three
// reel references present and answer plus first two distractors non-blank.
func (a AnswerRow) Selectable() bool {
	if a.RowL == 0 || a.RowC == 0 || a.RowR == 0 {
		return false
	}
	return strings.TrimSpace(a.Answer) != "" &&
		strings.TrimSpace(a.Distractor1) != "" &&
		strings.TrimSpace(a.Distractor2) != ""
}

// ReelEntry is an authoring-side symbol entry: its workbook row, its integer
// type tag (used only for pairing constraints) and the question fragment.
// A Type of zero means the tag was missing or non-numeric in the source.
type ReelEntry struct {
	Row     int    `json:"row"`
	Type    int    `json:"type"`
	Content string `json:"content"`
}

// Triple is a (left, center, right) row-number combination.
type Triple struct {
	RowL int `json:"row_l"`
	RowC int `json:"row_c"`
	RowR int `json:"row_r"`
}

// Combination is one generated problem: its row triple, the concatenated
// fragment text, and the destination row assigned in the answer table.
type Combination struct {
	Triple
	Question string `json:"question"`
	AnsRow   int    `json:"ans_row"`
}

// Choice is one entry of the displayed multiple-choice set.
type Choice struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// JudgeResult is the outcome of judging a submitted choice. CorrectAnswer is
// empty when no question was active at judge time.
type JudgeResult struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
}

// Player is a registered (guest) player.
type Player struct {
	ID        string    `json:"id" db:"id"`
	Nickname  string    `json:"nickname" db:"nickname"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SessionStatus represents play session state.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// PlaySession is one sitting at the machine: a sequence of rounds with a
// running score.
type PlaySession struct {
	ID           string        `json:"id" db:"id"`
	PlayerID     string        `json:"player_id" db:"player_id"`
	StartedAt    time.Time     `json:"started_at" db:"started_at"`
	EndedAt      *time.Time    `json:"ended_at,omitempty" db:"ended_at"`
	Status       SessionStatus `json:"status" db:"status"`
	RoundsPlayed int           `json:"rounds_played" db:"rounds_played"`
	CorrectCount int           `json:"correct_count" db:"correct_count"`
	Score        int64         `json:"score" db:"score"`
}

// RankingEntry is one leaderboard line.
type RankingEntry struct {
	Rank         int       `json:"rank"`
	PlayerID     string    `json:"player_id"`
	Nickname     string    `json:"nickname"`
	Score        int64     `json:"score"`
	CorrectCount int       `json:"correct_count"`
	RoundsPlayed int       `json:"rounds_played"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// EventSeverity represents event log severity.
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityError    EventSeverity = "error"
	SeverityCritical EventSeverity = "critical"
)

// Event is a significant game event: content loads, round lifecycle,
// selection exhaustion, reel lookup fallbacks, generator runs.
type Event struct {
	ID          string          `json:"id" db:"id"`
	Type        string          `json:"type" db:"type"`
	Severity    EventSeverity   `json:"severity" db:"severity"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
	PlayerID    *string         `json:"player_id,omitempty" db:"player_id"`
	SessionID   *string         `json:"session_id,omitempty" db:"session_id"`
	Description string          `json:"description" db:"description"`
	Data        json.RawMessage `json:"data,omitempty" db:"data"`
	Component   string          `json:"component" db:"component"`
}
