package client

import (
	"errors"
	"fmt"
	"strings"
)

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// ErrorMessage extracts the server-provided message from err, or returns the
// empty string when err carries no HTTPError.
func ErrorMessage(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	return ""
}

// IsPlanProblem reports whether the server rejected the call because the user
// has no usable plan. The API signals this through the error message rather
// than a dedicated status code, so the check is textual.
func IsPlanProblem(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return strings.Contains(strings.ToLower(httpErr.Message), "plan")
	}
	return false
}
