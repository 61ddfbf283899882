package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying request failures. Every error leaving a
// use case wraps exactly one of these so transport can map it to a status.
var (
	// ErrEmbedding signals an embedding provider failure (bad key, quota,
	// malformed or wrongly sized vector).
	ErrEmbedding = errors.New("embedding failed")
	// ErrRetrieval signals a vector store failure.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration signals a completion provider failure or an empty answer.
	ErrGeneration = errors.New("generation failed")
	// ErrValidation signals a malformed request.
	ErrValidation = errors.New("validation failed")
)

// Kind enumerates the classified failure kinds.
type Kind string

// Failure kinds.
const (
	KindEmbedding  Kind = "embedding"
	KindRetrieval  Kind = "retrieval"
	KindGeneration Kind = "generation"
	KindValidation Kind = "validation"
)

func (k Kind) sentinel() error {
	switch k {
	case KindEmbedding:
		return ErrEmbedding
	case KindRetrieval:
		return ErrRetrieval
	case KindGeneration:
		return ErrGeneration
	case KindValidation:
		return ErrValidation
	default:
		return nil
	}
}

// Error carries a failure kind and a short machine-readable reason.
// It unwraps to both the kind's sentinel and the underlying cause, so
// callers can match with errors.Is(err, domain.ErrEmbedding) etc.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap exposes the kind sentinel and the cause for errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.sentinel(), e.Err}
	}
	return []error{e.Kind.sentinel()}
}

// NewError creates a classified error with a reason and optional cause.
func NewError(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: cause}
}

// KindOf returns the failure kind of err, or "" if err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrEmbedding):
		return KindEmbedding
	case errors.Is(err, ErrRetrieval):
		return KindRetrieval
	case errors.Is(err, ErrGeneration):
		return KindGeneration
	case errors.Is(err, ErrValidation):
		return KindValidation
	}
	return ""
}
