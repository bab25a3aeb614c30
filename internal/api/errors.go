package api

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("resource not found")
	ErrRateLimited = errors.New("rate limited by API")
	ErrAuthFailed  = errors.New("authentication failed")
)

// StatusError is a non-2xx reply from the API. Callers can use errors.As to
// get at the status code and the error text the server sent back.
type StatusError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error_text"`
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("plurk: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("plurk: unexpected status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known status codes onto the sentinel errors.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case 401, 403:
		return ErrAuthFailed
	case 404:
		return ErrNotFound
	case 429:
		return ErrRateLimited
	}
	return nil
}
