package analysis

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidIdentifier is returned when the input cannot be resolved to a
	// channel identifier. User input error, never retried.
	ErrInvalidIdentifier = errors.New("invalid channel identifier")

	// ErrNotFound is returned when the channel does not exist upstream or no
	// analysis exists for it.
	ErrNotFound = errors.New("channel not found")

	// ErrNoVideos is returned when a channel exists but has no videos to analyze.
	ErrNoVideos = errors.New("channel has no videos")

	// ErrQuotaExceeded is returned when the daily provider budget would be
	// exceeded. The external call is never made.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrProviderTimeout is returned when an external provider call exceeded
	// its deadline.
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrProvider is returned for non-timeout external provider failures.
	ErrProvider = errors.New("provider error")

	// ErrValidation is returned when the AI payload fails validation after
	// the configured retries.
	ErrValidation = errors.New("analysis payload validation failed")

	// ErrPersistence is returned when a computed analysis could not be stored.
	// The computed record is still handed to the caller.
	ErrPersistence = errors.New("persistence failure")
)

// QuotaError carries reservation details alongside ErrQuotaExceeded.
type QuotaError struct {
	Requested  int
	Remaining  int
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded: requested %d units, %d remaining (retry after %s)",
		e.Requested, e.Remaining, e.RetryAfter.Round(time.Second))
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// IsQuotaExceeded reports whether err is a quota exhaustion failure.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// IsNotFound reports whether err indicates a missing channel or analysis.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable reports whether err is a transient provider failure worth
// retrying with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProviderTimeout) || errors.Is(err, ErrProvider)
}
