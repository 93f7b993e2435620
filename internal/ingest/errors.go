package ingest

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// StatusError is an HTTP-shaped failure from the object store or the
// extraction provider. The pipeline uses the status code to decide whether
// a step is worth retrying.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, http.StatusText(e.StatusCode), e.StatusCode)
}

// IsTransient reports whether err is worth retrying: rate limiting (429),
// server-side failures (5xx), and network timeouts. Everything else fails
// the document immediately.
func IsTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	return false
}
