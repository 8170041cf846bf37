package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Error kinds.
var (
	// ErrNetworkFailure indicates no response was received.
	ErrNetworkFailure = errors.New("apiclient: network failure")

	// ErrAuthFailure indicates an unrecoverable 401: no refresh token was
	// stored, the refresh itself failed, or the retried request was rejected.
	ErrAuthFailure = errors.New("apiclient: authentication failed")

	// ErrValidationFailure indicates input rejected before any request was sent.
	ErrValidationFailure = errors.New("apiclient: validation failed")

	// ErrServerError indicates a non-401 error status.
	ErrServerError = errors.New("apiclient: server error")

	// ErrMalformedResponse indicates a response body that could not be used.
	ErrMalformedResponse = errors.New("apiclient: malformed response")
)

const maxBodyInMessage = 256

// Error describes a failed API call.
type Error struct {
	Kind   error  // one of the Err* kinds
	Method string // HTTP method
	Path   string // request path
	Status int    // response status, 0 when no response was received
	Body   []byte // response body as received
	Err    error  // underlying cause, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Method != "" {
		fmt.Fprintf(&b, ": %s %s", e.Method, e.Path)
	}
	if e.Status > 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if len(e.Body) > 0 {
		fmt.Fprintf(&b, ": %s", truncateBody(e.Body))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns a human-readable reason suitable for an alert. It prefers
// the "detail" or "error" field of a JSON error body.
func (e *Error) Message() string {
	var payload map[string]any
	if json.Unmarshal(e.Body, &payload) == nil {
		for _, k := range []string{"detail", "error", "message"} {
			if s, ok := payload[k].(string); ok && s != "" {
				return s
			}
		}
		if s, ok := firstFieldError(payload); ok {
			return s
		}
	}
	if e.Status > 0 && len(e.Body) > 0 && len(e.Body) <= maxBodyInMessage {
		return string(e.Body)
	}
	return e.Error()
}

// truncateBody shortens body to at most maxBodyInMessage bytes without
// splitting a UTF-8 sequence.
func truncateBody(body []byte) string {
	if len(body) <= maxBodyInMessage {
		return string(body)
	}
	n := maxBodyInMessage
	for n > 0 && !utf8.RuneStart(body[n]) {
		n--
	}
	return string(body[:n]) + "..."
}

// firstFieldError picks a message out of a {"field": ["msg"]} body.
func firstFieldError(payload map[string]any) (string, bool) {
	fields := make([]string, 0, len(payload))
	for field := range payload {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		if list, ok := payload[field].([]any); ok && len(list) > 0 {
			if s, ok := list[0].(string); ok {
				return field + ": " + s, true
			}
		}
	}
	return "", false
}

// IsAuthFailure reports whether err is an unrecoverable authentication failure.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrAuthFailure)
}

// IsNetworkFailure reports whether err means the backend was not reached.
func IsNetworkFailure(err error) bool {
	return errors.Is(err, ErrNetworkFailure)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// retryable reports whether a request may be resent after err. A refresh
// that failed on the network is an auth failure and is never retried.
func retryable(err error) bool {
	return IsNetworkFailure(err) && !IsAuthFailure(err)
}
