package middleware

import (
	"errors"
	"unicode/utf8"
)

// ValidateUserID validates a callee or operator ID.
func ValidateUserID(id string) error {
	if len(id) == 0 {
		return errors.New("user ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("user ID exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New("user ID must be valid UTF-8")
	}
	return nil
}

// ValidateCallID validates a media stream identifier.
func ValidateCallID(id string) error {
	if len(id) == 0 {
		return errors.New("call ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("call ID exceeds maximum length")
	}
	return nil
}
