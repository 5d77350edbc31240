package processor

import (
	"context"
	"fmt"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
	"github.com/Ap3pp3rs94/escrow-timer/internal/policygate"
	"github.com/Ap3pp3rs94/escrow-timer/internal/ports"
)

// EscalationResult is returned for logging.
type EscalationResult struct {
	Action string // "prepared" | "review"
	DealID string
}

// EscalationProcessor implements §4.9. It never submits transactions
// and never holds keys — PrepareFinalize only returns URLs a human
// acts on.
type EscalationProcessor struct {
	api    ports.API
	notify ports.Notification
	gate   *policygate.Gate
}

func NewEscalationProcessor(api ports.API, notify ports.Notification, gate *policygate.Gate) *EscalationProcessor {
	return &EscalationProcessor{api: api, notify: notify, gate: gate}
}

func (p *EscalationProcessor) Process(ctx context.Context, job domain.EscalationJob) (EscalationResult, error) {
	if err := job.Validate(); err != nil {
		return EscalationResult{}, err
	}

	route := "review"
	var prep ports.PrepareResult

	if (job.Suggested == domain.SuggestRelease || job.Suggested == domain.SuggestRefund) && p.gate.AllowsAutoFinalize(job.Suggested) {
		result, err := p.api.PrepareFinalize(ctx, job.DealID, job.Suggested)
		if err == nil {
			route = "prepared"
			prep = result
		}
	}

	if route == "prepared" {
		if err := p.notify.NotifyReviewer(ctx, job.DealID, job.Suggested, prep); err != nil {
			return EscalationResult{}, fmt.Errorf("processor: notify reviewer: %w", err)
		}
		if err := p.notify.NotifyParties(ctx, job.DealID, "finalize-prepared"); err != nil {
			return EscalationResult{}, fmt.Errorf("processor: notify parties: %w", err)
		}
		return EscalationResult{Action: "prepared", DealID: job.DealID}, nil
	}

	if err := p.notify.NotifyReviewer(ctx, job.DealID, domain.SuggestReview, ports.PrepareResult{}); err != nil {
		return EscalationResult{}, fmt.Errorf("processor: notify reviewer: %w", err)
	}
	return EscalationResult{Action: "review", DealID: job.DealID}, nil
}
