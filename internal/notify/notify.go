// Package notify provides the outbound Notification port drivers: a
// noop driver for local/dev runs and a dialect HTTP driver for
// production messaging. Both are safe to construct without side
// effects; no network or file I/O happens until a method is called.
package notify

import (
	"context"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
	"github.com/Ap3pp3rs94/escrow-timer/internal/ports"
)

// Noop discards every call. It satisfies ports.Notification and is the
// default driver when no outbound messaging is configured.
type Noop struct{}

var _ ports.Notification = Noop{}

func (Noop) NotifyReviewer(ctx context.Context, dealID string, suggested domain.Suggestion, prep ports.PrepareResult) error {
	return nil
}

func (Noop) NotifyParties(ctx context.Context, dealID string, event string) error { return nil }

func (Noop) SendReminder(ctx context.Context, dealID string, audience domain.Audience, reason domain.ReminderReason, rc ports.ReminderContext) error {
	return nil
}
