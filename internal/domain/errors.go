package domain

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
