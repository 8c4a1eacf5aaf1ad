package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/northstar-pm/northstar/pkg/config"
)

// Sentinel errors for the provider taxonomy. Adapters wrap these with
// fmt.Errorf so callers can branch with errors.Is while logs keep the
// provider detail.
var (
	// ErrProviderNotConfigured means no usable credential exists for the
	// requested provider. Fatal for the call, never for the process.
	ErrProviderNotConfigured = errors.New("provider not configured")

	// ErrProviderAuthFailed means the provider rejected the credential.
	ErrProviderAuthFailed = errors.New("provider authentication failed")

	// ErrProviderUnavailable means the provider could not be reached or
	// returned a transient failure. Retry is a caller policy.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// classifyStatus maps a provider HTTP status onto the error taxonomy.
// Statuses outside the taxonomy (malformed requests and similar) come back
// as plain wrapped errors.
func classifyStatus(p config.ProviderType, op string, status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w: %v", p, op, ErrProviderAuthFailed, err)
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return fmt.Errorf("%s %s: %w: %v", p, op, ErrProviderUnavailable, err)
	default:
		return fmt.Errorf("%s %s: %v", p, op, err)
	}
}

// classifyTransport wraps an error with no HTTP status at all, which means
// the request never produced a provider response. Context cancellation and
// deadline expiry stay on the error chain unclassified: they are caller-owned
// signals, not provider failures, and agents branch on them for timeout
// detection.
func classifyTransport(p config.ProviderType, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", p, op, err)
	}
	return fmt.Errorf("%s %s: %w: %v", p, op, ErrProviderUnavailable, err)
}
