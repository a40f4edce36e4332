package watcher

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidRequest is returned when the request has no usable target URL.
var ErrInvalidRequest = errors.New("watcher: invalid request")

// FetchError reports a failure retrieving the target page.
// StatusCode is zero for transport-level failures.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("watcher: fetch %s: http %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("watcher: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StorageError reports a Version Store failure. It is fatal for the check.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("watcher: storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// HTTPStatus maps an error from Check to the response status code:
// 400 for invalid requests, 500 for everything else.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidRequest}, args...)...)
}
