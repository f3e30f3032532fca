// Package game runs quiz rounds: drawing a question, steering the reels to
// its fragments, and judging the player's answer.
package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizslot/internal/choice"
	"quizslot/internal/control"
	"quizslot/internal/domain"
	"quizslot/internal/events"
	"quizslot/internal/question"
	"quizslot/internal/ranking"
	"quizslot/internal/reel"
	"quizslot/internal/workbook"
)

var (
	ErrSessionNotFound  = errors.New("play session not found")
	ErrSessionNotActive = errors.New("play session is not active")
	ErrNoContent        = errors.New("no question content loaded")
)

// Engine coordinates one quiz machine: shared content, per-session rounds.
type Engine struct {
	db       *sql.DB
	store    *question.Store
	selector *question.Selector
	mapper   *reel.Mapper
	builder  *choice.Builder
	ranking  *ranking.Service
	events   *events.Service
	control  *control.Service
	logger   *zap.Logger

	historySize int

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// sessionState is the engine-side state of one active session. Access is
// serialized by the engine mutex; rounds within a session are sequential.
type sessionState struct {
	history *question.History
	current *question.Selection
	choices []domain.Choice
}

// New creates a new game engine
func New(db *sql.DB, store *question.Store, selector *question.Selector, mapper *reel.Mapper,
	builder *choice.Builder, rankingSvc *ranking.Service, eventSvc *events.Service,
	controlSvc *control.Service, historySize int, logger *zap.Logger) *Engine {

	return &Engine{
		db:          db,
		store:       store,
		selector:    selector,
		mapper:      mapper,
		builder:     builder,
		ranking:     rankingSvc,
		events:      eventSvc,
		control:     controlSvc,
		logger:      logger,
		historySize: historySize,
		sessions:    make(map[string]*sessionState),
	}
}

// LoadWorkbook replaces the engine's content with the given workbook. The
// store swaps atomically, so a failed load leaves the previous content
// untouched.
func (e *Engine) LoadWorkbook(ctx context.Context, path string) (int, error) {
	wb, err := workbook.Open(path)
	if err != nil {
		return 0, err
	}
	defer wb.Close()

	if res := wb.CheckStructure(); !res.Valid {
		return 0, fmt.Errorf("workbook structure invalid: %v", res.Errors)
	}

	data, err := wb.LoadQuizData()
	if err != nil {
		return 0, err
	}

	if err := e.store.Load(data.Rows, data.Left, data.Center, data.Right); err != nil {
		return 0, err
	}

	e.logger.Info("question content loaded",
		zap.String("path", path),
		zap.Int("questions", len(data.Rows)))
	e.events.Log(ctx, events.EventQuestionsLoaded, domain.SeverityInfo,
		fmt.Sprintf("Loaded %d questions", len(data.Rows)),
		map[string]interface{}{"path": path, "questions": len(data.Rows)})

	return len(data.Rows), nil
}

// ContentReady reports whether questions are loaded.
func (e *Engine) ContentReady() bool {
	return e.store.Ready()
}

// StartSession opens a new play session for a player.
func (e *Engine) StartSession(ctx context.Context, playerID string) (*domain.PlaySession, error) {
	if err := e.control.CheckAccess(); err != nil {
		return nil, err
	}
	if !e.store.Ready() {
		return nil, ErrNoContent
	}

	now := time.Now().UTC()
	session := &domain.PlaySession{
		ID:        uuid.New().String(),
		PlayerID:  playerID,
		StartedAt: now,
		Status:    domain.SessionActive,
	}

	_, err := e.db.ExecContext(ctx, `
		INSERT INTO play_sessions (id, player_id, started_at, status, rounds_played, correct_count, score)
		VALUES ($1, $2, $3, $4, 0, 0, 0)
	`, session.ID, session.PlayerID, session.StartedAt, session.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to create play session: %w", err)
	}

	e.mu.Lock()
	e.sessions[session.ID] = &sessionState{history: question.NewHistory(e.historySize)}
	e.mu.Unlock()

	e.events.Log(ctx, events.EventSessionStarted, domain.SeverityInfo,
		"Play session started", nil,
		events.WithPlayer(playerID), events.WithSession(session.ID))

	return session, nil
}

// GetSession retrieves a play session
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*domain.PlaySession, error) {
	var session domain.PlaySession
	var endedAt sql.NullTime

	err := e.db.QueryRowContext(ctx, `
		SELECT id, player_id, started_at, ended_at, status, rounds_played, correct_count, score
		FROM play_sessions WHERE id = $1
	`, sessionID).Scan(
		&session.ID, &session.PlayerID, &session.StartedAt, &endedAt,
		&session.Status, &session.RoundsPlayed, &session.CorrectCount, &session.Score)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if endedAt.Valid {
		session.EndedAt = &endedAt.Time
	}
	return &session, nil
}

// EndSession closes a play session and records its result on the leaderboard.
func (e *Engine) EndSession(ctx context.Context, sessionID string) (*domain.PlaySession, error) {
	session, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionActive {
		return nil, ErrSessionNotActive
	}

	now := time.Now().UTC()
	session.EndedAt = &now
	session.Status = domain.SessionCompleted

	_, err = e.db.ExecContext(ctx, `
		UPDATE play_sessions SET ended_at = $1, status = $2 WHERE id = $3
	`, now, session.Status, sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	delete(e.sessions, sessionID)
	e.mu.Unlock()

	if _, err := e.ranking.RecordResult(ctx, session); err != nil {
		e.logger.Error("failed to record session result", zap.Error(err),
			zap.String("session_id", sessionID))
	}

	e.events.Log(ctx, events.EventSessionEnded, domain.SeverityInfo,
		fmt.Sprintf("Play session ended: %d rounds, %d correct", session.RoundsPlayed, session.CorrectCount),
		map[string]interface{}{
			"rounds_played": session.RoundsPlayed,
			"correct_count": session.CorrectCount,
			"score":         session.Score,
		},
		events.WithPlayer(session.PlayerID), events.WithSession(sessionID))

	return session, nil
}

// SpinResult describes one started round: the stop position per reel and the
// choice texts to display. The correct answer is never included; judging
// happens server-side.
type SpinResult struct {
	Question   string         `json:"question"`
	Positions  map[string]int `json:"positions"`
	Choices    []string       `json:"choices"`
	IntervalMS int64          `json:"interval_ms"`
	Round      int            `json:"round"`
}

// Spin starts a round: draws a question and computes where each reel must
// stop to display its fragments. A reel row missing from a symbol list is a
// content defect; the round continues on a fallback stop and the defect is
// recorded for the operator.
func (e *Engine) Spin(ctx context.Context, sessionID string) (*SpinResult, error) {
	if err := e.control.CheckAccess(); err != nil {
		return nil, err
	}

	session, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionActive {
		return nil, ErrSessionNotActive
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	sel, err := e.selector.Pick(e.store, state.history)
	if err != nil {
		if errors.Is(err, question.ErrSelectionExhausted) {
			e.events.Log(ctx, events.EventSelectionExhausted, domain.SeverityError,
				"Question selection exhausted", nil,
				events.WithPlayer(session.PlayerID), events.WithSession(sessionID))
		}
		return nil, err
	}

	positions := make(map[string]int, len(domain.Reels))
	for _, r := range domain.Reels {
		row := sel.Row.RowFor(r)
		pos, err := e.mapper.PositionForRow(row, e.store.SymbolRows(r))
		if err != nil {
			if !errors.Is(err, reel.ErrRowNotFound) {
				return nil, err
			}
			e.logger.Warn("reel row missing, using fallback stop",
				zap.String("reel", r.String()), zap.Int("row", row))
			e.events.Log(ctx, events.EventReelRowMissing, domain.SeverityWarning,
				fmt.Sprintf("Row %d missing from %s reel", row, r),
				map[string]interface{}{"reel": r.String(), "row": row, "question_index": sel.Index},
				events.WithPlayer(session.PlayerID), events.WithSession(sessionID))
		}
		positions[r.String()] = pos
	}

	choices, err := e.builder.Build(sel.Row)
	if err != nil {
		return nil, err
	}

	state.current = sel
	state.choices = choices

	round := session.RoundsPlayed + 1
	_, err = e.db.ExecContext(ctx, `
		UPDATE play_sessions SET rounds_played = $1 WHERE id = $2
	`, round, sessionID)
	if err != nil {
		return nil, err
	}

	e.events.Log(ctx, events.EventRoundStarted, domain.SeverityInfo,
		fmt.Sprintf("Round %d started", round),
		map[string]interface{}{"question_index": sel.Index},
		events.WithPlayer(session.PlayerID), events.WithSession(sessionID))

	texts := make([]string, len(choices))
	for i, c := range choices {
		texts[i] = c.Text
	}

	return &SpinResult{
		Question:   sel.Row.Question,
		Positions:  positions,
		Choices:    texts,
		IntervalMS: e.mapper.Interval().Milliseconds(),
		Round:      round,
	}, nil
}

// ReelGeometry exposes the reel layout and pacing for clients driving the
// spin animation.
func (e *Engine) ReelGeometry() reel.Geometry {
	return e.mapper.Geometry()
}

// StopResult reports where a reel settled and which row that is.
type StopResult struct {
	Reel     string `json:"reel"`
	Position int    `json:"position"`
	Row      int    `json:"row"`
}

// ConfirmStop snaps a client-reported reel position to the nearest stop and
// resolves the displayed row. The client reports raw animation positions;
// the server owns the mapping.
func (e *Engine) ConfirmStop(ctx context.Context, sessionID string, r domain.Reel, reported int) (*StopResult, error) {
	session, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionActive {
		return nil, ErrSessionNotActive
	}

	snapped := e.mapper.Snap(reported)
	row, err := e.mapper.RowForPosition(snapped, e.store.SymbolRows(r))
	if err != nil {
		return nil, err
	}

	e.events.Log(ctx, events.EventStopConfirmed, domain.SeverityInfo,
		fmt.Sprintf("Reel %s stopped at row %d", r, row),
		map[string]interface{}{"reel": r.String(), "position": snapped, "row": row},
		events.WithPlayer(session.PlayerID), events.WithSession(sessionID))

	return &StopResult{Reel: r.String(), Position: snapped, Row: row}, nil
}

// AnswerResult is the judged outcome plus the session's running totals.
type AnswerResult struct {
	domain.JudgeResult
	CorrectCount int   `json:"correct_count"`
	Score        int64 `json:"score"`
}

// Answer judges the submitted choice against the current question. Answering
// with no question in flight is a client sequencing bug; it judges false with
// no correct answer revealed, and the session totals are untouched.
func (e *Engine) Answer(ctx context.Context, sessionID, selected string) (*AnswerResult, error) {
	session, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionActive {
		return nil, ErrSessionNotActive
	}

	e.mu.Lock()
	state, ok := e.sessions[sessionID]
	if !ok {
		e.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	var row *domain.AnswerRow
	if state.current != nil {
		r := state.current.Row
		row = &r
	}
	state.current = nil
	state.choices = nil
	e.mu.Unlock()

	result := e.builder.Judge(selected, row)

	if row != nil {
		if result.IsCorrect {
			session.CorrectCount++
			session.Score += ranking.PointsPerCorrect
		}
		_, err = e.db.ExecContext(ctx, `
			UPDATE play_sessions SET correct_count = $1, score = $2 WHERE id = $3
		`, session.CorrectCount, session.Score, sessionID)
		if err != nil {
			return nil, err
		}

		e.events.Log(ctx, events.EventAnswerJudged, domain.SeverityInfo,
			fmt.Sprintf("Answer judged: correct=%t", result.IsCorrect),
			map[string]interface{}{"correct": result.IsCorrect},
			events.WithPlayer(session.PlayerID), events.WithSession(sessionID))
	}

	return &AnswerResult{
		JudgeResult:  result,
		CorrectCount: session.CorrectCount,
		Score:        session.Score,
	}, nil
}
