// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/rollbot/internal/adapters/chat"
	service "github.com/okian/rollbot/internal/app"
	"github.com/okian/rollbot/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EventDependencies
	LeaderboardDependencies
	OutboxDependencies
}

// Read shapes returned by the leaderboard endpoints.
type (
	EntityRow = types.EntityRow
	UserRow   = types.UserRow
)

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	leaderboardHandler *LeaderboardHandler
	outboxHandler      *OutboxHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// limit query parameter of the list endpoints.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		eventsHandler:      NewEventsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		outboxHandler:      NewOutboxHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/commands", MetricsMiddleware(s.eventsHandler.HandlePostCommand, "commands"))
	mux.HandleFunc("/interactions", MetricsMiddleware(s.eventsHandler.HandlePostInteraction, "interactions"))
	mux.HandleFunc("/leaderboard/entities", MetricsMiddleware(s.leaderboardHandler.HandleGetEntities, "leaderboard_entities"))
	mux.HandleFunc("/leaderboard/users", MetricsMiddleware(s.leaderboardHandler.HandleGetUsers, "leaderboard_users"))
	mux.HandleFunc("/outbox", MetricsMiddleware(s.outboxHandler.HandleGetOutbox, "outbox"))
}

// Request bodies mirror the OpenAPI schemas for the inbound endpoints.
type (
	commandRequest     = service.Command
	interactionRequest = service.Interaction
)

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type outboxResponse struct {
	Records []chat.Record `json:"records"`
	Next    int64         `json:"next"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
