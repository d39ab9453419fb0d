package sources

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel failure classes. The orchestrator retries once on transient
// failures and gives up immediately on permanent ones; both end up as an
// unavailable source in the Result evidence, never as an error to the
// caller.
var (
	// ErrTransient marks failures where a single retry is worth it:
	// timeouts, connection errors, upstream 5xx.
	ErrTransient = errors.New("transient source failure")

	// ErrPermanent marks failures a retry cannot fix: upstream 4xx,
	// malformed payloads, GraphQL-level errors.
	ErrPermanent = errors.New("permanent source failure")

	// ErrNotFound marks an empty lookup for a specific identifier.
	ErrNotFound = errors.New("not found")
)

// IsTransient reports whether err is worth one retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// classifyHTTPError wraps a transport-level error from an HTTP round trip.
// Context deadlines and network errors are transient.
func classifyHTTPError(source string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: request timed out: %w", source, ErrTransient)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: request timed out: %w", source, ErrTransient)
	}
	return fmt.Errorf("%s: request failed: %v: %w", source, err, ErrTransient)
}

// classifyStatus wraps a non-2xx upstream response status.
func classifyStatus(source string, status int) error {
	if status >= 500 {
		return fmt.Errorf("%s: upstream status %d: %w", source, status, ErrTransient)
	}
	return fmt.Errorf("%s: upstream status %d: %w", source, status, ErrPermanent)
}
