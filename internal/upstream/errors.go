package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-2xx upstream response.
type StatusError struct {
	URL  string
	Body string
	Code int
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream %s: status %d", e.URL, e.Code)
	}
	return fmt.Sprintf("upstream %s: status %d: %s", e.URL, e.Code, e.Body)
}

// IsRateLimited reports a 429.
func (e *StatusError) IsRateLimited() bool {
	return e.Code == http.StatusTooManyRequests
}

// IsServerError reports a 5xx.
func (e *StatusError) IsServerError() bool {
	return e.Code >= 500
}

// AsStatusError extracts a *StatusError from err's chain.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
