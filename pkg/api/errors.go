package api

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized      = errors.New("api: unauthorized")
	ErrFileNotRegistered = errors.New("api: file not registered")
	ErrEnvelopeNotFound  = errors.New("api: envelope not found")
	ErrNotStaged         = errors.New("api: file is not staged yet")
)

// ExternalAPIError is returned for any response the download API should not
// have produced.
type ExternalAPIError struct {
	URL        string
	StatusCode int
	Message    string
}

var _ error = &ExternalAPIError{}

func (e *ExternalAPIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: unexpected response from %s (status %d): %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: unexpected response from %s (status %d)", e.URL, e.StatusCode)
}
