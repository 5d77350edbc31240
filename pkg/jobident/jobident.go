// Package jobident computes the deterministic identity strings that the
// queue substrate dedupes on. Every function here is pure: same input,
// same output, forever — any change to composition is a breaking change
// (jobs already in flight would stop deduping against newly-scheduled
// copies).
package jobident

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
)

// Deadline returns "deadline:<dealId>:<deadlineAt>:<kind>:<nonce>".
func Deadline(dealID string, deadlineAt int64, kind domain.DeadlineKind, nonce int) string {
	return fmt.Sprintf("deadline:%s:%d:%s:%d", dealID, deadlineAt, kind, nonce)
}

// Reminder returns "reminder:<dealId>:<notifyAt>:<audience>:<reason>".
func Reminder(dealID string, notifyAt int64, audience domain.Audience, reason domain.ReminderReason) string {
	return fmt.Sprintf("reminder:%s:%d:%s:%s", dealID, notifyAt, audience, reason)
}

// Escalation returns "escalation:<dealId>:<reason>:<suggested>".
func Escalation(dealID string, reason domain.EscalationReason, suggested domain.Suggestion) string {
	return fmt.Sprintf("escalation:%s:%s:%s", dealID, reason, suggested)
}

// DealPrefix returns the identity prefix shared by every job of kind
// scheduled for a deal. Used by cancel-on-terminal to find everything
// outstanding regardless of the job's other fields.
func DealPrefix(kind string, dealID string) string {
	return fmt.Sprintf("%s:%s:", kind, dealID)
}

// ComputeWebhookID returns SHA-256 hex of "webhookId|sig|index". Missing
// parts default to empty string / 0 per the intake dedup contract —
// callers should not pre-validate presence before calling this.
func ComputeWebhookID(webhookID, sig string, index int) string {
	h := sha256.New()
	_, _ = h.Write([]byte(webhookID))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(sig))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(fmt.Sprintf("%d", index)))
	return hex.EncodeToString(h.Sum(nil))
}
