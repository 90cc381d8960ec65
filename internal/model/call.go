// Package model defines data structures for the call bridge.
package model

import (
	"sync"
	"time"
)

// CallState represents the lifecycle state of a call session.
type CallState string

const (
	StateDisconnected CallState = "disconnected"
	StateConnecting   CallState = "connecting"
	StateSessionReady CallState = "session_ready"
	StateActive       CallState = "active"
	StateInterrupted  CallState = "interrupted"
	StateClosed       CallState = "closed"
)

// CallSession holds the per-call state shared between the call agent, the
// upstream session client and the tool orchestrator. One instance exists per
// phone call and is destroyed when the call ends. Audio-path fields are only
// touched from the call's own relay loops; StoredEvents is also written from
// detached tool goroutines, so all access goes through the accessors.
type CallSession struct {
	mu sync.Mutex

	// CallID is the external stream identifier (Twilio streamSid).
	CallID string
	// UserID is set once the telephony leg identifies the callee.
	UserID string

	sessionReady      bool
	lastAssistantItem string
	accumulatedAudio  int
	user              *UserContext
	storedEvents      []RankedEvent

	StartedAt time.Time
}

// NewCallSession creates an empty session for a newly accepted call.
func NewCallSession() *CallSession {
	return &CallSession{StartedAt: time.Now()}
}

// MarkReady records that the upstream session confirmed creation.
func (s *CallSession) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionReady = true
}

// Ready reports whether the upstream session confirmed creation.
func (s *CallSession) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionReady
}

// SetLastAssistantItem tracks the currently-streaming assistant utterance.
func (s *CallSession) SetLastAssistantItem(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAssistantItem = itemID
}

// LastAssistantItem returns the currently-streaming assistant utterance id,
// or the empty string when no utterance is in flight.
func (s *CallSession) LastAssistantItem() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAssistantItem
}

// ClearLastAssistantItem resets the tracked utterance, returning the previous
// value.
func (s *CallSession) ClearLastAssistantItem() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.lastAssistantItem
	s.lastAssistantItem = ""
	return prev
}

// AddAccumulatedAudio grows the working utterance byte count.
func (s *CallSession) AddAccumulatedAudio(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accumulatedAudio += n
}

// ResetAccumulatedAudio resets the working utterance byte count, returning
// the size of the finished utterance.
func (s *CallSession) ResetAccumulatedAudio() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.accumulatedAudio
	s.accumulatedAudio = 0
	return n
}

// SetUser attaches the resolved user context for the call.
func (s *CallSession) SetUser(u *UserContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}

// User returns the resolved user context, or nil when the profile lookup
// failed or never ran.
func (s *CallSession) User() *UserContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// SetStoredEvents caches the most recent tool-returned event candidates for
// later detail lookups.
func (s *CallSession) SetStoredEvents(events []RankedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storedEvents = events
}

// StoredEvents returns the cached event candidates from the last search.
func (s *CallSession) StoredEvents() []RankedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storedEvents
}
