package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mimamori-ai/call-bridge/internal/agent"
	"github.com/mimamori-ai/call-bridge/internal/middleware"
)

// respondJSON encodes v onto the response with the given status. Shared by
// the admin and health handlers; the media handler speaks WebSocket only.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// CallsHandler serves the admin view of live calls.
type CallsHandler struct {
	registry *agent.Registry
}

// NewCallsHandler creates the calls handler.
func NewCallsHandler(registry *agent.Registry) *CallsHandler {
	return &CallsHandler{registry: registry}
}

// ListCalls handles GET /api/v1/calls. An optional user_id query parameter
// filters to one callee's calls.
func (h *CallsHandler) ListCalls(w http.ResponseWriter, r *http.Request) {
	calls := h.registry.Snapshot()

	if userID := r.URL.Query().Get("user_id"); userID != "" {
		if err := middleware.ValidateUserID(userID); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		filtered := calls[:0]
		for _, c := range calls {
			if c.UserID == userID {
				filtered = append(filtered, c)
			}
		}
		calls = filtered
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"calls": calls,
		"count": len(calls),
	})
}
