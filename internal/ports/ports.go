// Package ports declares the collaborator interfaces the core calls
// into: the API port for deal snapshots and finalize preparation, the
// Notification port for reviewer/party messaging, and the chain policy
// port backing the Policy Gate. Implementations are resolved once per
// worker process and must tolerate construction without side effects
// until their first method call.
package ports

import (
	"context"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
)

// API fetches deal state and prepares (never submits) finalize actions.
type API interface {
	GetDealSnapshot(ctx context.Context, dealID string) (domain.DealSnapshot, error)

	// PrepareFinalize is idempotent per (dealId, action).
	PrepareFinalize(ctx context.Context, dealID string, action domain.Suggestion) (PrepareResult, error)
}

// PrepareResult carries the URLs a reviewer/party can act on.
type PrepareResult struct {
	ApprovalURL string
	BlinkURL    string
}

// ReminderContext is extra data a reminder notification carries.
type ReminderContext struct {
	DeliveryBy   int64
	DisputeUntil int64
}

// Notification is the outbound messaging port. Every method must be
// idempotent — implementations are expected to key on a stable hash of
// the logical call, not rely on at-most-once delivery from callers.
type Notification interface {
	NotifyReviewer(ctx context.Context, dealID string, suggested domain.Suggestion, prep PrepareResult) error
	NotifyParties(ctx context.Context, dealID string, event string) error
	SendReminder(ctx context.Context, dealID string, audience domain.Audience, reason domain.ReminderReason, rc ReminderContext) error
}

// ChainPolicy backs the Policy Gate's capability check.
type ChainPolicy interface {
	AllowsAutoFinalize(action domain.Suggestion) bool
}
