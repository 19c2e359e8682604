package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrUpstreamFailure is reserved for the case where the primary
	// fixture/odds fetch fails entirely and there is no data to process.
	// Partial upstream failures degrade instead of raising this.
	ErrUpstreamFailure = errors.New("upstream fetch failure")
)
