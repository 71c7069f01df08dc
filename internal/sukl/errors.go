package sukl

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the registry has no record for the requested code
	// or document. Never retried; the caller records a skip.
	ErrNotFound = errors.New("not found in registry")

	// ErrEmptyDocument means the download endpoint returned a 2xx response
	// with no body. Treated as a skip, not a crash.
	ErrEmptyDocument = errors.New("document body is empty")

	// ErrDocumentTooLarge means the download exceeded the configured size
	// guard. Treated as a skip.
	ErrDocumentTooLarge = errors.New("document exceeds size limit")
)

// StatusError is an unexpected HTTP status from the registry API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Retryable reports whether the status indicates a transient server-side
// failure. 4xx responses are terminal.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500
}

// DecodeError means the response body did not match the expected schema.
// Raw carries the offending payload so a skipped item can be diagnosed
// and re-driven manually.
type DecodeError struct {
	Raw []byte
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsRetryable classifies an error as transient. Connection-level failures
// and 5xx statuses are retried; NotFound, schema mismatches, size-guard
// skips and context cancellation are terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrEmptyDocument) || errors.Is(err, ErrDocumentTooLarge) {
		return false
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	// Anything else at this point is a transport-level failure
	// (connection reset, timeout, DNS).
	return true
}
