// Package ranking keeps the persistent leaderboard of completed sessions.
package ranking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quizslot/internal/domain"
)

var (
	ErrNoResults      = errors.New("no recorded results")
	ErrSessionOngoing = errors.New("session has not ended")
)

// PointsPerCorrect is the score awarded per correctly answered question.
const PointsPerCorrect = 100

// Service records session results and serves the leaderboard.
type Service struct {
	db *sql.DB
}

// New creates a new ranking service
func New(db *sql.DB) *Service {
	return &Service{db: db}
}

// RecordResult writes one completed session onto the leaderboard. Only
// completed sessions rank; recording an active session is a sequencing bug.
func (s *Service) RecordResult(ctx context.Context, session *domain.PlaySession) (*domain.RankingEntry, error) {
	if session.Status != domain.SessionCompleted {
		return nil, ErrSessionOngoing
	}

	now := time.Now().UTC()
	id := uuid.New().String()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rankings (id, player_id, session_id, score, correct_count, rounds_played, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, session.PlayerID, session.ID, session.Score, session.CorrectCount, session.RoundsPlayed, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record result: %w", err)
	}

	var nickname string
	err = s.db.QueryRowContext(ctx, `SELECT nickname FROM players WHERE id = $1`, session.PlayerID).Scan(&nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve player: %w", err)
	}

	return &domain.RankingEntry{
		PlayerID:     session.PlayerID,
		Nickname:     nickname,
		Score:        session.Score,
		CorrectCount: session.CorrectCount,
		RoundsPlayed: session.RoundsPlayed,
		RecordedAt:   now,
	}, nil
}

// Top returns the highest-scoring results in rank order. Ties break on the
// earlier recording.
func (s *Service) Top(ctx context.Context, limit int) ([]*domain.RankingEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.player_id, p.nickname, r.score, r.correct_count, r.rounds_played, r.recorded_at
		FROM rankings r JOIN players p ON p.id = r.player_id
		ORDER BY r.score DESC, r.recorded_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*domain.RankingEntry
	for rows.Next() {
		var e domain.RankingEntry
		if err := rows.Scan(&e.PlayerID, &e.Nickname, &e.Score, &e.CorrectCount, &e.RoundsPlayed, &e.RecordedAt); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// PlayerBest returns a player's highest-scoring result.
func (s *Service) PlayerBest(ctx context.Context, playerID string) (*domain.RankingEntry, error) {
	var e domain.RankingEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT r.player_id, p.nickname, r.score, r.correct_count, r.rounds_played, r.recorded_at
		FROM rankings r JOIN players p ON p.id = r.player_id
		WHERE r.player_id = $1
		ORDER BY r.score DESC, r.recorded_at ASC
		LIMIT 1
	`, playerID).Scan(&e.PlayerID, &e.Nickname, &e.Score, &e.CorrectCount, &e.RoundsPlayed, &e.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoResults
		}
		return nil, fmt.Errorf("failed to load player best: %w", err)
	}

	return &e, nil
}
