// Package api - Router setup
package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRouter creates and configures the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(h.RecoveryMiddleware)
	r.Use(CORSMiddleware)
	r.Use(h.LoggingMiddleware)

	// Public routes
	r.HandleFunc("/", h.ServerInfo).Methods("GET")
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// API v1 routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Auth routes (public)
	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.HandleFunc("/register", h.Register).Methods("POST")
	authRoutes.HandleFunc("/admin", h.AdminLogin).Methods("POST")

	// Player routes
	player := api.PathPrefix("").Subrouter()
	player.Use(h.AuthMiddleware)

	player.HandleFunc("/quiz/status", h.QuizStatus).Methods("GET")

	player.HandleFunc("/sessions", h.StartSession).Methods("POST")
	player.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	player.HandleFunc("/sessions/{id}", h.EndSession).Methods("DELETE")
	player.HandleFunc("/sessions/{id}/spin", h.Spin).Methods("POST")
	player.HandleFunc("/sessions/{id}/stop", h.ConfirmStop).Methods("POST")
	player.HandleFunc("/sessions/{id}/answer", h.Answer).Methods("POST")

	player.HandleFunc("/ranking", h.GetRanking).Methods("GET")
	player.HandleFunc("/ranking/me", h.GetMyBest).Methods("GET")

	// WebSocket for round-by-round play
	player.HandleFunc("/ws/sessions/{id}", h.HandleWebSocket).Methods("GET")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(h.AdminMiddleware)

	admin.HandleFunc("/content/reload", h.ReloadContent).Methods("POST")
	admin.HandleFunc("/gameplay/disable", h.DisableGameplay).Methods("POST")
	admin.HandleFunc("/gameplay/enable", h.EnableGameplay).Methods("POST")
	admin.HandleFunc("/events", h.GetEvents).Methods("GET")
	admin.HandleFunc("/events/counts", h.GetEventCounts).Methods("GET")
	admin.HandleFunc("/workbook/check", h.CheckWorkbook).Methods("POST")
	admin.HandleFunc("/workbook/generate", h.GenerateCombinations).Methods("POST")
	admin.HandleFunc("/workbook/answers", h.ImportAnswers).Methods("POST")

	return r
}

// pathVar reads one mux path variable.
func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// NotFoundHandler handles 404 errors
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}
