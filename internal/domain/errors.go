package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport indicates the backend could not be reached.
	ErrTransport = errors.New("backend unreachable")
	// ErrUnauthorized indicates a missing, expired or rejected bearer token,
	// or rejected credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation indicates the backend rejected the request body.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMalformedResponse indicates a 2xx response whose body did not match
	// the expected schema.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// APIError is a non-2xx backend response.
type APIError struct {
	Status int
	// Detail is the first message the backend reported, if any.
	Detail string
	// Kind is the sentinel the status maps to; nil for unclassified statuses.
	Kind error
}

// NewAPIError classifies a backend status code.
func NewAPIError(status int, detail string) *APIError {
	var kind error
	switch status {
	case 401, 403:
		kind = ErrUnauthorized
	case 404:
		kind = ErrNotFound
	case 400, 422:
		kind = ErrValidation
	}
	return &APIError{Status: status, Detail: detail, Kind: kind}
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend status %d", e.Status)
}

// Unwrap exposes the sentinel matching the status, if any.
func (e *APIError) Unwrap() error {
	return e.Kind
}

// Detail returns the first server-reported message carried by err, or
// fallback when there is none.
func Detail(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
