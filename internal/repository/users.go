package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mimamori-ai/call-bridge/internal/model"
)

// UserRepository looks up callee profiles.
type UserRepository interface {
	// GetUser fetches the profile for the given user ID. It returns
	// ErrNotFound when no profile exists.
	GetUser(ctx context.Context, userID string) (*model.UserContext, error)
}

// HTTPUserRepository fetches profiles from the user service over HTTP.
type HTTPUserRepository struct {
	baseURL string
	client  *http.Client
}

// NewHTTPUserRepository creates a repository against the given base URL.
func NewHTTPUserRepository(baseURL string) *HTTPUserRepository {
	return &HTTPUserRepository{
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

// GetUser fetches the profile for the given user ID.
func (r *HTTPUserRepository) GetUser(ctx context.Context, userID string) (*model.UserContext, error) {
	u := fmt.Sprintf("%s/users/%s", r.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building user request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user service returned %d", resp.StatusCode)
	}

	var user model.UserContext
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decoding user response: %w", err)
	}

	return &user, nil
}
