// Package repository provides access to the user and event backend services.
package repository

import (
	"errors"
	"net/http"
	"time"
)

// ErrNotFound is returned when the backend has no record for the key.
var ErrNotFound = errors.New("repository: not found")

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
