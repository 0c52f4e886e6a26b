package api

import (
	"context"
	"net/http"
	"strconv"
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	TopEntities(ctx context.Context, limit int) ([]EntityRow, error)
	TopUsers(ctx context.Context, limit int) ([]UserRow, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetEntities handles GET /leaderboard/entities?limit=N requests.
func (h *LeaderboardHandler) HandleGetEntities(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_top_entities"
	n, ok := h.limit(w, r, op)
	if !ok {
		return
	}
	rows, err := h.deps.TopEntities(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if rows == nil {
		rows = []EntityRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleGetUsers handles GET /leaderboard/users?limit=N requests.
func (h *LeaderboardHandler) HandleGetUsers(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_top_users"
	n, ok := h.limit(w, r, op)
	if !ok {
		return
	}
	rows, err := h.deps.TopUsers(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if rows == nil {
		rows = []UserRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// limit validates the method and the required limit parameter. It writes
// the error response itself and reports false when the request is bad.
func (h *LeaderboardHandler) limit(w http.ResponseWriter, r *http.Request, op string) (int, bool) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return 0, false
	}
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return 0, false
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return 0, false
	}
	return n, true
}
