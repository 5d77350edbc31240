// Package policygate implements the read-only, side-effect-free
// capability check that gates auto-finalize preparation. Strict-default:
// both RELEASE and REFUND are disallowed unless explicitly enabled.
package policygate

import "github.com/Ap3pp3rs94/escrow-timer/internal/domain"

// Gate answers allowsAutoFinalize(action) from fixed, boot-time config.
type Gate struct {
	allowRelease bool
	allowRefund  bool
}

// New builds a Gate from the AUTO_FINALIZE_RELEASE/AUTO_FINALIZE_REFUND
// config flags.
func New(allowRelease, allowRefund bool) *Gate {
	return &Gate{allowRelease: allowRelease, allowRefund: allowRefund}
}

// AllowsAutoFinalize reports whether action may be auto-prepared.
// REVIEW is never allowed — it is not a finalize action.
func (g *Gate) AllowsAutoFinalize(action domain.Suggestion) bool {
	if g == nil {
		return false
	}
	switch action {
	case domain.SuggestRelease:
		return g.allowRelease
	case domain.SuggestRefund:
		return g.allowRefund
	default:
		return false
	}
}
