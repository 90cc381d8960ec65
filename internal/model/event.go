package model

import "time"

// LocalEvent is a community event record returned by the event service.
type LocalEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Region      string    `json:"region"`
	Venue       string    `json:"venue,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at,omitempty"`
	Fee         string    `json:"fee,omitempty"`
	Contact     string    `json:"contact,omitempty"`
}

// RankedEvent is a local event with its relevance ordering from the ranking
// sub-agent. Ordinal is 1-based and matches the position spoken to the
// caller.
type RankedEvent struct {
	Ordinal int        `json:"ordinal"`
	Reason  string     `json:"reason,omitempty"`
	Event   LocalEvent `json:"event"`
}

// CallEventType classifies call lifecycle events published to the stream.
type CallEventType string

const (
	CallEventStarted      CallEventType = "call_started"
	CallEventTranscript   CallEventType = "transcript"
	CallEventToolCall     CallEventType = "tool_call"
	CallEventInterruption CallEventType = "interruption"
	CallEventEnded        CallEventType = "call_ended"
)

// CallEvent is the record published to JetStream for each notable moment in
// a call. Consumers use it for audit and offline analytics.
type CallEvent struct {
	ID        string         `json:"id"`
	CallID    string         `json:"call_id"`
	UserID    string         `json:"user_id,omitempty"`
	Type      CallEventType  `json:"type"`
	Detail    string         `json:"detail,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
