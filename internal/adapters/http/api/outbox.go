package api

import (
	"net/http"
	"strconv"

	"github.com/okian/rollbot/internal/adapters/chat"
)

const defaultOutboxLimit = 100

// OutboxDependencies exposes the in-memory messenger. Outbox returns nil
// when messages are delivered elsewhere.
type OutboxDependencies interface {
	Outbox() *chat.Outbox
}

// OutboxHandler serves the messages the service has sent and edited.
type OutboxHandler struct {
	deps     OutboxDependencies
	maxLimit int
}

// NewOutboxHandler creates a new outbox handler.
func NewOutboxHandler(deps OutboxDependencies, maxLimit int) *OutboxHandler {
	return &OutboxHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetOutbox handles GET /outbox?after=SEQ&limit=N requests. Clients
// poll with after set to the previous response's next value.
func (h *OutboxHandler) HandleGetOutbox(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_outbox"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	outbox := h.deps.Outbox()
	if outbox == nil {
		writeError(w, http.StatusNotFound, "outbox_disabled", NewKind(op, ErrNoOutbox))
		return
	}

	q := r.URL.Query()
	var after int64
	if v := q.Get("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		after = n
	}
	limit := min(defaultOutboxLimit, h.maxLimit)
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = min(n, h.maxLimit)
	}

	records := outbox.Since(after, limit)
	next := after
	if len(records) > 0 {
		next = records[len(records)-1].Seq
	}
	writeJSON(w, http.StatusOK, outboxResponse{Records: records, Next: next})
}
