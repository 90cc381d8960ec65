package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mimamori-ai/call-bridge/internal/model"
)

// EventRepository looks up community events.
type EventRepository interface {
	// UpcomingByRegion returns events in the region starting within
	// [from, to), at most limit of them.
	UpcomingByRegion(ctx context.Context, region string, from, to time.Time, limit int) ([]model.LocalEvent, error)
}

// HTTPEventRepository fetches events from the event service over HTTP.
type HTTPEventRepository struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEventRepository creates a repository against the given base URL.
func NewHTTPEventRepository(baseURL string) *HTTPEventRepository {
	return &HTTPEventRepository{
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

// UpcomingByRegion returns events in the region starting within [from, to).
func (r *HTTPEventRepository) UpcomingByRegion(ctx context.Context, region string, from, to time.Time, limit int) ([]model.LocalEvent, error) {
	q := url.Values{}
	q.Set("region", region)
	q.Set("from", from.Format(time.RFC3339))
	q.Set("to", to.Format(time.RFC3339))
	q.Set("limit", strconv.Itoa(limit))

	u := fmt.Sprintf("%s/events?%s", r.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building event request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching events for %s: %w", region, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("event service returned %d", resp.StatusCode)
	}

	var events []model.LocalEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decoding event response: %w", err)
	}

	return events, nil
}
