package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies a fetch failure.
type ErrorKind string

const (
	// KindNetwork covers DNS, connection and protocol failures.
	KindNetwork ErrorKind = "network"

	// KindTimeout is a request that exceeded its deadline.
	KindTimeout ErrorKind = "timeout"

	// KindHTTPStatus is a response with a non-2xx status code.
	KindHTTPStatus ErrorKind = "http_status"
)

// ErrHTTPStatus is wrapped by FetchError for non-2xx responses.
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// FetchError describes a failed fetch. It is recorded on the page and
// never aborts the crawl.
type FetchError struct {
	// URL is the requested URL.
	URL string

	// Kind classifies the failure.
	Kind ErrorKind

	// StatusCode is set for KindHTTPStatus.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("%d %s for url: %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// newStatusError creates a FetchError for a non-2xx response.
func newStatusError(url string, status int) *FetchError {
	return &FetchError{
		URL:        url,
		Kind:       KindHTTPStatus,
		StatusCode: status,
		Err:        ErrHTTPStatus,
	}
}

// classify wraps a transport error in a FetchError.
func classify(url string, err error) *FetchError {
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &FetchError{URL: url, Kind: kind, Err: err}
}

// KindOf returns the ErrorKind of err, or KindNetwork when err is not a
// FetchError.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindNetwork
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}
