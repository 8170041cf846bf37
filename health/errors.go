package health

import "errors"

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check timed out.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrProbeMismatch indicates the store returned a different probe value.
	ErrProbeMismatch = errors.New("health: probe value mismatch")
)
