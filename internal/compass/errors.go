package compass

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrMissingBaseURL means the caller supplied no upstream base URL.
	ErrMissingBaseURL = errors.New("missing base url")

	// ErrNotAuthenticated means an operation ran before a successful
	// Login or LoadFromToken.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrIncompleteSession means the session was accepted but the
	// upstream identifiers could not be extracted, so identifier-bound
	// operations cannot proceed.
	ErrIncompleteSession = errors.New("session accepted but upstream identifiers missing")

	// ErrDriverClosed means an operation was issued after Close.
	ErrDriverClosed = errors.New("driver already closed")
)

// AuthError reports an upstream login rejection. It is fatal for the
// current attempt; callers should not retry with the same credentials.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("authentication failed: %s (upstream status %d)", e.Message, e.Status)
	}
	return "authentication failed: " + e.Message
}

// TimeoutError reports an upstream call that ran out of time. Unlike
// AuthError it is plausibly transient and safe to retry.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream timeout during %s: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// classify separates timeouts from other upstream failures so callers
// can decide whether a retry is worthwhile.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return &TimeoutError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
