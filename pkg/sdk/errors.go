package ragchat

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for API failure classes. Use errors.Is() to check.
var (
	ErrValidation   = errors.New("ragchat: request rejected")
	ErrUnauthorized = errors.New("ragchat: unauthorized")
	ErrUpstream     = errors.New("ragchat: upstream provider or store failure")
	ErrUnavailable  = errors.New("ragchat: service unavailable")
	ErrInternal     = errors.New("ragchat: internal server error")
)

// APIError carries the HTTP status and the server's error payload.
// It wraps the matching sentinel, so both errors.Is and errors.As work:
//
//	var apiErr *ragchat.APIError
//	if errors.As(err, &apiErr) { ... apiErr.Detail ... }
type APIError struct {
	StatusCode int
	Code       string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ragchat: %s (%d): %s", e.Code, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("ragchat: %s (%d)", e.Code, e.StatusCode)
}

// Unwrap maps the status code onto a sentinel.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusBadGateway:
		return ErrUpstream
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		return ErrInternal
	}
}
