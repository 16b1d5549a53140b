package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for generative backend failures. Callers match them with
// errors.Is to decide on retry, truncation escalation, or fallback.
var (
	// ErrNotConfigured indicates no API key is available, so no backend
	// client can be constructed.
	ErrNotConfigured = errors.New("generative backend is not configured")

	// ErrBackendTimeout indicates the backend call did not complete in time.
	ErrBackendTimeout = errors.New("backend request timed out")

	// ErrBackendConnectionFailure indicates a network-level failure reaching
	// the backend.
	ErrBackendConnectionFailure = errors.New("backend connection failed")

	// ErrBackendRateLimited indicates the backend rejected the call due to
	// quota or rate limits.
	ErrBackendRateLimited = errors.New("backend rate limited")

	// ErrBackendTokenLimit indicates the prompt exceeded the model's context
	// window.
	ErrBackendTokenLimit = errors.New("backend token limit exceeded")

	// ErrBackendInvalidResponse indicates the backend returned something the
	// caller could not use (empty text, unparseable JSON).
	ErrBackendInvalidResponse = errors.New("backend returned an invalid response")
)

// Classify maps an arbitrary backend error onto one of the sentinel errors,
// wrapping so the original message is preserved. Errors that already carry a
// sentinel pass through unchanged. Unrecognized errors are returned as-is and
// treated as generic by callers.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{
		ErrNotConfigured,
		ErrBackendTimeout,
		ErrBackendConnectionFailure,
		ErrBackendRateLimited,
		ErrBackendTokenLimit,
		ErrBackendInvalidResponse,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case isRateLimitError(msg):
		return fmt.Errorf("%w: %v", ErrBackendRateLimited, err)
	case isTokenLimitError(msg):
		return fmt.Errorf("%w: %v", ErrBackendTokenLimit, err)
	case isTimeoutError(msg):
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	case isConnectionError(msg):
		return fmt.Errorf("%w: %v", ErrBackendConnectionFailure, err)
	}

	return err
}

func isRateLimitError(msg string) bool {
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "throttl") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "429")
}

func isTokenLimitError(msg string) bool {
	return strings.Contains(msg, "token limit") ||
		strings.Contains(msg, "maximum context length") ||
		strings.Contains(msg, "context length") ||
		strings.Contains(msg, "exceeds the maximum") ||
		strings.Contains(msg, "input is too long")
}

func isTimeoutError(msg string) bool {
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "deadline exceeded")
}

func isConnectionError(msg string) bool {
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "dns") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake")
}
