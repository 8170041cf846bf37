package resilience

import "errors"

// ErrMaxRetriesExceeded is joined with the last error when every attempt failed.
var ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")
