package storyforge

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrNoProviders         = errors.New("storyforge: no eligible providers")
	ErrAllFailed           = errors.New("storyforge: all providers failed")
	ErrProviderUnavailable = errors.New("storyforge: provider unavailable")
	ErrRateLimited         = errors.New("storyforge: rate limited by provider")
	ErrAuthFailed          = errors.New("storyforge: authentication failed")
	ErrInvalidRequest      = errors.New("storyforge: invalid request")
)

// RouteError wraps an error with routing context.
type RouteError struct {
	Err      error
	Provider string
	Kind     MediaKind
	Strategy string
	Attempts int
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("storyforge: provider=%s kind=%s strategy=%s attempts=%d: %v",
		e.Provider, e.Kind, e.Strategy, e.Attempts, e.Err)
}

func (e *RouteError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the error should not be retried with another provider.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrInvalidRequest)
}

// IsRetryable returns true if the error can be retried with another provider.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnavailable)
}
