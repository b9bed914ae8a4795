// Package payment is the payment collaborator: session creation and
// confirmation. Payment effects are never retried automatically; a
// failed payment must be re-initiated by the user.
package payment

import (
	"context"
)

// Session is one created payment session.
type Session struct {
	ID           string
	ClientSecret string
}

// Result reports a confirmation outcome.
type Result struct {
	Succeeded  bool
	NewBalance float64
}

// Provider defines the contract for any payment vendor implementation.
type Provider interface {
	// Name returns provider name for logging/metrics.
	Name() string
	// CreateSession opens a payment session for amount on behalf of user.
	CreateSession(ctx context.Context, user string, amount float64) (Session, error)
	// Confirm completes the session and reports the updated balance.
	Confirm(ctx context.Context, sessionID string, amount float64) (Result, error)
}
