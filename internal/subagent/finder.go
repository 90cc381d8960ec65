// Package subagent implements the domain sub-agents the call agent delegates
// to: finding candidate events, ranking them against the conversation, and
// composing short creative text.
package subagent

import (
	"context"
	"fmt"
	"time"

	"github.com/mimamori-ai/call-bridge/internal/model"
	"github.com/mimamori-ai/call-bridge/internal/repository"
)

const (
	// maxCandidates caps how many events are handed to the ranker.
	maxCandidates = 100

	// Search window: events starting between one and four weeks out.
	windowStartWeeks = 1
	windowEndWeeks   = 4
)

// EventFinder retrieves candidate events for a user's region.
type EventFinder struct {
	events repository.EventRepository
	now    func() time.Time
}

// NewEventFinder creates a finder backed by the given repository.
func NewEventFinder(events repository.EventRepository) *EventFinder {
	return &EventFinder{events: events, now: time.Now}
}

// Find returns events in the user's region starting between one and four
// weeks from now, capped at the candidate limit.
func (f *EventFinder) Find(ctx context.Context, region string) ([]model.LocalEvent, error) {
	if region == "" {
		return nil, fmt.Errorf("region is required")
	}

	now := f.now()
	from := now.AddDate(0, 0, windowStartWeeks*7)
	to := now.AddDate(0, 0, windowEndWeeks*7)

	events, err := f.events.UpcomingByRegion(ctx, region, from, to, maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("finding events in %s: %w", region, err)
	}

	if len(events) > maxCandidates {
		events = events[:maxCandidates]
	}

	return events, nil
}
