// Package api provides the HTTP surface of the quiz host.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"quizslot/internal/auth"
	"quizslot/internal/control"
	"quizslot/internal/domain"
	"quizslot/internal/events"
	"quizslot/internal/game"
	"quizslot/internal/generator"
	"quizslot/internal/question"
	"quizslot/internal/ranking"
	"quizslot/internal/rng"
	"quizslot/internal/workbook"
)

// Handler contains all HTTP handlers
type Handler struct {
	auth         *auth.Service
	game         *game.Engine
	ranking      *ranking.Service
	events       *events.Service
	control      *control.Service
	rng          *rng.Service
	logger       *zap.Logger
	workbookPath string
}

// New creates a new API handler
func New(authSvc *auth.Service, gameEngine *game.Engine, rankingSvc *ranking.Service,
	eventSvc *events.Service, controlSvc *control.Service, rngSvc *rng.Service,
	workbookPath string, logger *zap.Logger) *Handler {

	return &Handler{
		auth:         authSvc,
		game:         gameEngine,
		ranking:      rankingSvc,
		events:       eventSvc,
		control:      controlSvc,
		rng:          rngSvc,
		logger:       logger,
		workbookPath: workbookPath,
	}
}

// Response helpers

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}

func parseReel(name string) (domain.Reel, bool) {
	for _, r := range domain.Reels {
		if r.String() == name {
			return r, true
		}
	}
	return 0, false
}

// === Health & Info ===

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	rngHealth, _ := h.rng.HealthCheck()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"rng_status":    rngHealth,
		"content_ready": h.game.ContentReady(),
	})
}

// ServerInfo handles GET /
func (h *Handler) ServerInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "quizslot",
		"version":     "1.0.0",
		"description": "Quiz slot machine host",
	})
}

// === Authentication ===

// Register handles POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	resp, err := h.auth.Register(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNicknameRequired):
			respondError(w, http.StatusBadRequest, "NICKNAME_REQUIRED", "Nickname is required")
		default:
			respondError(w, http.StatusInternalServerError, "REGISTRATION_FAILED", "Registration failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"player_id": resp.Player.ID,
		"nickname":  resp.Player.Nickname,
		"token":     resp.Token,
	})
}

// AdminLogin handles POST /api/v1/auth/admin
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	token, err := h.auth.AdminLogin(r.Context(), req.Passphrase)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid passphrase")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// === Quiz status ===

// QuizStatus handles GET /api/v1/quiz/status
func (h *Handler) QuizStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"content_ready":    h.game.ContentReady(),
		"gameplay_enabled": h.control.IsGameplayEnabled(),
		"reel":             h.game.ReelGeometry(),
	})
}

// === Sessions & rounds ===

// StartSession handles POST /api/v1/sessions
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	session, err := h.game.StartSession(r.Context(), claims.PlayerID)
	if err != nil {
		switch {
		case errors.Is(err, control.ErrGameplayDisabled):
			respondError(w, http.StatusServiceUnavailable, "GAMEPLAY_DISABLED", "Gameplay is disabled for maintenance")
		case errors.Is(err, game.ErrNoContent):
			respondError(w, http.StatusServiceUnavailable, "NO_CONTENT", "No question content loaded")
		default:
			respondError(w, http.StatusInternalServerError, "SESSION_ERROR", "Failed to start session")
		}
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// GetSession handles GET /api/v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// EndSession handles DELETE /api/v1/sessions/{id}
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	ended, err := h.game.EndSession(r.Context(), session.ID)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrSessionNotActive):
			respondError(w, http.StatusBadRequest, "SESSION_NOT_ACTIVE", "Session is not active")
		default:
			respondError(w, http.StatusInternalServerError, "SESSION_ERROR", "Failed to end session")
		}
		return
	}

	respondJSON(w, http.StatusOK, ended)
}

// Spin handles POST /api/v1/sessions/{id}/spin
func (h *Handler) Spin(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	result, err := h.game.Spin(r.Context(), session.ID)
	if err != nil {
		h.respondSpinError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) respondSpinError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, control.ErrGameplayDisabled):
		respondError(w, http.StatusServiceUnavailable, "GAMEPLAY_DISABLED", "Gameplay is disabled for maintenance")
	case errors.Is(err, game.ErrSessionNotActive):
		respondError(w, http.StatusBadRequest, "SESSION_NOT_ACTIVE", "Session is not active")
	case errors.Is(err, question.ErrSelectionExhausted):
		respondError(w, http.StatusConflict, "SELECTION_EXHAUSTED", "No valid question available")
	case errors.Is(err, question.ErrNotReady):
		respondError(w, http.StatusServiceUnavailable, "NO_CONTENT", "No question content loaded")
	default:
		respondError(w, http.StatusInternalServerError, "SPIN_ERROR", "Failed to start round")
	}
}

// ConfirmStop handles POST /api/v1/sessions/{id}/stop
func (h *Handler) ConfirmStop(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	var req struct {
		Reel     string `json:"reel"`
		Position int    `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	reelID, ok := parseReel(req.Reel)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_REEL", "Unknown reel: "+req.Reel)
		return
	}

	result, err := h.game.ConfirmStop(r.Context(), session.ID, reelID, req.Position)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrSessionNotActive):
			respondError(w, http.StatusBadRequest, "SESSION_NOT_ACTIVE", "Session is not active")
		default:
			respondError(w, http.StatusInternalServerError, "STOP_ERROR", "Failed to confirm stop")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Answer handles POST /api/v1/sessions/{id}/answer
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	var req struct {
		Choice string `json:"choice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	result, err := h.game.Answer(r.Context(), session.ID, req.Choice)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrSessionNotActive):
			respondError(w, http.StatusBadRequest, "SESSION_NOT_ACTIVE", "Session is not active")
		default:
			respondError(w, http.StatusInternalServerError, "ANSWER_ERROR", "Failed to judge answer")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ownedSession loads the session in the URL and verifies it belongs to the
// authenticated player. Admin tokens may touch any session.
func (h *Handler) ownedSession(w http.ResponseWriter, r *http.Request) (*domain.PlaySession, bool) {
	claims := claimsFrom(r)
	sessionID := pathVar(r, "id")

	session, err := h.game.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, game.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found")
		} else {
			respondError(w, http.StatusInternalServerError, "SESSION_ERROR", "Failed to load session")
		}
		return nil, false
	}

	if !claims.Admin && session.PlayerID != claims.PlayerID {
		respondError(w, http.StatusForbidden, "NOT_YOUR_SESSION", "Session belongs to another player")
		return nil, false
	}

	return session, true
}

// === Ranking ===

// GetRanking handles GET /api/v1/ranking
func (h *Handler) GetRanking(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.ranking.Top(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "RANKING_ERROR", "Failed to load leaderboard")
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// GetMyBest handles GET /api/v1/ranking/me
func (h *Handler) GetMyBest(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	best, err := h.ranking.PlayerBest(r.Context(), claims.PlayerID)
	if err != nil {
		if errors.Is(err, ranking.ErrNoResults) {
			respondError(w, http.StatusNotFound, "NO_RESULTS", "No recorded results yet")
		} else {
			respondError(w, http.StatusInternalServerError, "RANKING_ERROR", "Failed to load result")
		}
		return
	}

	respondJSON(w, http.StatusOK, best)
}

// === Admin: content & gameplay ===

// ReloadContent handles POST /api/v1/admin/content/reload
func (h *Handler) ReloadContent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	path := req.Path
	if path == "" {
		path = h.workbookPath
	}

	n, err := h.game.LoadWorkbook(r.Context(), path)
	if err != nil {
		respondError(w, http.StatusBadRequest, "RELOAD_FAILED", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"path":      path,
		"questions": n,
	})
}

// DisableGameplay handles POST /api/v1/admin/gameplay/disable
func (h *Handler) DisableGameplay(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.control.DisableGameplay(r.Context(), req.Reason, claims.Nickname); err != nil {
		respondError(w, http.StatusInternalServerError, "CONTROL_ERROR", "Failed to disable gameplay")
		return
	}

	respondJSON(w, http.StatusOK, h.control.GetStatus())
}

// EnableGameplay handles POST /api/v1/admin/gameplay/enable
func (h *Handler) EnableGameplay(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	if err := h.control.EnableGameplay(r.Context(), claims.Nickname); err != nil {
		respondError(w, http.StatusInternalServerError, "CONTROL_ERROR", "Failed to enable gameplay")
		return
	}

	respondJSON(w, http.StatusOK, h.control.GetStatus())
}

// === Admin: events ===

// GetEvents handles GET /api/v1/admin/events
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	filter := &events.EventFilter{
		PlayerID: r.URL.Query().Get("player_id"),
		Type:     r.URL.Query().Get("type"),
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	list, err := h.events.GetEvents(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "EVENTS_ERROR", "Failed to load events")
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// GetEventCounts handles GET /api/v1/admin/events/counts
func (h *Handler) GetEventCounts(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-24 * time.Hour)
	if s := r.URL.Query().Get("since"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_SINCE", "since must be RFC 3339")
			return
		}
		since = parsed
	}

	counts, err := h.events.CountByType(r.Context(), since)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "EVENTS_ERROR", "Failed to count events")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"since":  since,
		"counts": counts,
	})
}

// === Admin: authoring ===

// CheckWorkbook handles POST /api/v1/admin/workbook/check
func (h *Handler) CheckWorkbook(w http.ResponseWriter, r *http.Request) {
	wb, err := workbook.Open(h.workbookPath)
	if err != nil {
		respondError(w, http.StatusBadRequest, "WORKBOOK_ERROR", err.Error())
		return
	}
	defer wb.Close()

	respondJSON(w, http.StatusOK, wb.CheckStructure())
}

// GenerateCombinations handles POST /api/v1/admin/workbook/generate
func (h *Handler) GenerateCombinations(w http.ResponseWriter, r *http.Request) {
	wb, err := workbook.Open(h.workbookPath)
	if err != nil {
		respondError(w, http.StatusBadRequest, "WORKBOOK_ERROR", err.Error())
		return
	}
	defer wb.Close()

	if res := wb.CheckStructure(); !res.Valid {
		respondError(w, http.StatusBadRequest, "WORKBOOK_INVALID", "Workbook structure is invalid")
		return
	}

	in, err := wb.GeneratorInput()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "WORKBOOK_ERROR", err.Error())
		return
	}

	result := generator.Generate(in)
	if err := wb.AppendCombinations(result.Combinations); err != nil {
		respondError(w, http.StatusInternalServerError, "WORKBOOK_ERROR", err.Error())
		return
	}
	if err := wb.Save(); err != nil {
		respondError(w, http.StatusInternalServerError, "WORKBOOK_ERROR", err.Error())
		return
	}

	h.events.Log(r.Context(), events.EventCombinationsGenerated, domain.SeverityInfo,
		"Combinations generated",
		map[string]interface{}{
			"generated": result.Generated,
			"skipped":   result.SkippedEntries,
		},
		events.WithComponent("authoring"))

	respondJSON(w, http.StatusOK, result)
}

// ImportAnswers handles POST /api/v1/admin/workbook/answers
func (h *Handler) ImportAnswers(w http.ResponseWriter, r *http.Request) {
	var answers []workbook.AnswerImport
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Expected a JSON array of answer sets")
		return
	}

	wb, err := workbook.Open(h.workbookPath)
	if err != nil {
		respondError(w, http.StatusBadRequest, "WORKBOOK_ERROR", err.Error())
		return
	}
	defer wb.Close()

	n, err := wb.ImportAnswers(answers)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "WORKBOOK_ERROR", err.Error())
		return
	}
	if err := wb.Save(); err != nil {
		respondError(w, http.StatusInternalServerError, "WORKBOOK_ERROR", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"imported": n})
}
