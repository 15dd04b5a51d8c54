package enrich

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when no website was supplied.
var ErrEmptyInput = errors.New("website is empty")

// Failure kinds used as log fields and metric labels.
const (
	KindEmptyInput = "empty_input"
	KindTimeout    = "timeout"
	KindHTTPError  = "http_error"
	KindTooLarge   = "too_large"
	KindNetwork    = "network"
	KindNoMatch    = "no_match"
)

// TimeoutError reports that the fetch exceeded its time budget.
type TimeoutError struct {
	URL string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("fetch %s timed out: %v", e.URL, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// TooLargeError reports a declared Content-Length above the size cap.
type TooLargeError struct {
	URL          string
	DeclaredSize int64
	Limit        int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("fetch %s: declared size %d exceeds limit %d", e.URL, e.DeclaredSize, e.Limit)
}

// NetworkError wraps DNS, connection, TLS and URL errors.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// FailureKind maps an error from the pipeline to its kind label.
func FailureKind(err error) string {
	var (
		timeoutErr  *TimeoutError
		httpErr     *HTTPError
		tooLargeErr *TooLargeError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &httpErr):
		return KindHTTPError
	case errors.As(err, &tooLargeErr):
		return KindTooLarge
	default:
		return KindNetwork
	}
}
