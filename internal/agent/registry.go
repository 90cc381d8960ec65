package agent

import (
	"sync"
	"time"

	"github.com/mimamori-ai/call-bridge/internal/model"
)

// CallSummary is the admin-facing view of one live call.
type CallSummary struct {
	CallID    string          `json:"call_id"`
	UserID    string          `json:"user_id,omitempty"`
	State     model.CallState `json:"state"`
	StartedAt time.Time       `json:"started_at"`
}

// Registry tracks the agents for all live calls.
type Registry struct {
	mu     sync.Mutex
	agents map[*CallAgent]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[*CallAgent]struct{})}
}

// Add registers a live call agent.
func (r *Registry) Add(a *CallAgent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a] = struct{}{}
}

// Remove drops a finished call agent.
func (r *Registry) Remove(a *CallAgent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, a)
}

// Snapshot returns summaries of all live calls.
func (r *Registry) Snapshot() []CallSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]CallSummary, 0, len(r.agents))
	for a := range r.agents {
		s := a.Session()
		out = append(out, CallSummary{
			CallID:    s.CallID,
			UserID:    s.UserID,
			State:     a.State(),
			StartedAt: s.StartedAt,
		})
	}
	return out
}
