package notify

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnknownChannel is recorded for a requested channel with no registered
// sender.
var ErrUnknownChannel = errors.New("notify: unknown channel")

// SendError is returned when a provider call fails.
// StatusCode is zero for transport-level failures.
type SendError struct {
	Channel    string
	StatusCode int
	Body       string
	Err        error
}

func (e *SendError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("notify: %s: http %d: %s", e.Channel, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("notify: %s: http %d", e.Channel, e.StatusCode)
	}
	return fmt.Sprintf("notify: %s: %v", e.Channel, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed: transport errors,
// 429 and 5xx are retryable, other 4xx are not.
func (e *SendError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// permanentError marks an error that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Policy.Do stops retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var p *permanentError
	if errors.As(err, &p) {
		return true
	}
	var se *SendError
	if errors.As(err, &se) {
		return !se.Retryable()
	}
	return false
}
