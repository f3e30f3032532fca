// Package events records significant host events for operator review.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quizslot/internal/domain"
)

// Event types
const (
	EventPlayerRegistered      = "player_registered"
	EventQuestionsLoaded       = "questions_loaded"
	EventSessionStarted        = "session_started"
	EventSessionEnded          = "session_ended"
	EventRoundStarted          = "round_started"
	EventStopConfirmed         = "stop_confirmed"
	EventAnswerJudged          = "answer_judged"
	EventSelectionExhausted    = "selection_exhausted"
	EventReelRowMissing        = "reel_row_missing"
	EventCombinationsGenerated = "combinations_generated"
	EventGameplayDisabled      = "gameplay_disabled"
	EventGameplayEnabled       = "gameplay_enabled"
	EventSystemError           = "system_error"
	EventRNGHealthCheck        = "rng_health_check"
)

// Service provides event logging functionality
type Service struct {
	db *sql.DB
}

// New creates a new event service
func New(db *sql.DB) *Service {
	return &Service{db: db}
}

// LogEvent records a significant event
func (s *Service) LogEvent(ctx context.Context, event *domain.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	dataJSON, _ := json.Marshal(event.Data)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, type, severity, timestamp, player_id, session_id, description, data, component)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, event.ID, event.Type, event.Severity, event.Timestamp, event.PlayerID, event.SessionID,
		event.Description, string(dataJSON), event.Component)

	return err
}

// Log is a convenience method for logging events
func (s *Service) Log(ctx context.Context, eventType string, severity domain.EventSeverity, description string, data interface{}, opts ...EventOption) error {
	event := &domain.Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		Severity:    severity,
		Timestamp:   time.Now().UTC(),
		Description: description,
		Component:   "host",
	}

	if data != nil {
		jsonData, err := json.Marshal(data)
		if err == nil {
			event.Data = jsonData
		}
	}

	for _, opt := range opts {
		opt(event)
	}

	return s.LogEvent(ctx, event)
}

// EventOption is a functional option for configuring events
type EventOption func(*domain.Event)

// WithPlayer sets the player ID for the event
func WithPlayer(playerID string) EventOption {
	return func(e *domain.Event) {
		e.PlayerID = &playerID
	}
}

// WithSession sets the session ID for the event
func WithSession(sessionID string) EventOption {
	return func(e *domain.Event) {
		e.SessionID = &sessionID
	}
}

// WithComponent sets the component for the event
func WithComponent(component string) EventOption {
	return func(e *domain.Event) {
		e.Component = component
	}
}

// GetEvents retrieves events with optional filtering
func (s *Service) GetEvents(ctx context.Context, filter *EventFilter) ([]*domain.Event, error) {
	query := `SELECT id, type, severity, timestamp, player_id, session_id, description, data, component
			  FROM events WHERE 1=1`
	args := []interface{}{}
	paramIdx := 1

	if filter != nil {
		if filter.PlayerID != "" {
			query += fmt.Sprintf(" AND player_id = $%d", paramIdx)
			args = append(args, filter.PlayerID)
			paramIdx++
		}
		if filter.Type != "" {
			query += fmt.Sprintf(" AND type = $%d", paramIdx)
			args = append(args, filter.Type)
			paramIdx++
		}
		if !filter.From.IsZero() {
			query += fmt.Sprintf(" AND timestamp >= $%d", paramIdx)
			args = append(args, filter.From)
			paramIdx++
		}
		if !filter.To.IsZero() {
			query += fmt.Sprintf(" AND timestamp <= $%d", paramIdx)
			args = append(args, filter.To)
			paramIdx++
		}
	}

	query += " ORDER BY timestamp DESC"

	if filter != nil && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", paramIdx)
		args = append(args, filter.Limit)
	} else {
		query += " LIMIT 100"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		var event domain.Event
		var playerID, sessionID sql.NullString
		var data string

		err := rows.Scan(&event.ID, &event.Type, &event.Severity, &event.Timestamp,
			&playerID, &sessionID, &event.Description, &data, &event.Component)
		if err != nil {
			return nil, err
		}

		if playerID.Valid {
			event.PlayerID = &playerID.String
		}
		if sessionID.Valid {
			event.SessionID = &sessionID.String
		}
		if data != "" {
			event.Data = json.RawMessage(data)
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}

// CountByType returns how many events of each type were recorded since the
// given time. Content problems such as missing reel rows surface here as
// growing warning counts rather than gameplay failures.
func (s *Service) CountByType(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, COUNT(*) FROM events WHERE timestamp >= $1 GROUP BY type
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		counts[typ] = n
	}

	return counts, rows.Err()
}

// EventFilter defines criteria for filtering events
type EventFilter struct {
	PlayerID string
	Type     string
	From     time.Time
	To       time.Time
	Limit    int
}
