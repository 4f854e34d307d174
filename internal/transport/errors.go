package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCanceled reports a call that was superseded by a newer one or
	// cancelled by its owner. It is never shown to the user. It matches
	// context.Canceled so packages below transport can recognise it.
	ErrCanceled = fmt.Errorf("request superseded: %w", context.Canceled)
	// ErrTimeout is the cause attached to calls that exceed the request timeout
	ErrTimeout = errors.New("request timed out")
)

// NetworkError reports a request that could not be sent or a connection
// that dropped before the reply completed.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError reports a non-success status from the chat route
type APIError struct {
	Status int
	Body   string
	// Message is the "error" field of a JSON error body, when present
	Message string
}

func (e *APIError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = e.Body
	}
	if detail == "" {
		detail = http.StatusText(e.Status)
	}
	return fmt.Sprintf("API error: %d %s", e.Status, detail)
}

// IsCanceled reports whether err is a silent cancellation
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

func isCancellation(cause error) bool {
	return errors.Is(cause, context.Canceled)
}
