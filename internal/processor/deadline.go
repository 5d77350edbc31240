// Package processor implements the three job processors — deadline,
// reminder, escalation — that run when the queue substrate delivers a
// job at its fire time. Each reads a fresh snapshot and derives its
// decision solely from that snapshot plus the job payload: no
// cross-job state is held.
package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
	"github.com/Ap3pp3rs94/escrow-timer/internal/policygate"
	"github.com/Ap3pp3rs94/escrow-timer/internal/ports"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/jobident"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/queue"
)

const queueEscalation queue.Name = "escalation"

// DeadlineResult is returned for logging: the action taken and, if an
// escalation was raised, its reason/suggestion.
type DeadlineResult struct {
	Action    string
	DealID    string
	Reason    domain.EscalationReason
	Suggested domain.Suggestion
}

// DeadlineProcessor implements §4.7.
type DeadlineProcessor struct {
	api      ports.API
	producer queue.Producer
	notify   ports.Notification
	gate     *policygate.Gate
	clock    Clock
}

func NewDeadlineProcessor(api ports.API, producer queue.Producer, notify ports.Notification, gate *policygate.Gate, clock Clock) *DeadlineProcessor {
	if clock == nil {
		clock = systemClock{}
	}
	return &DeadlineProcessor{api: api, producer: producer, notify: notify, gate: gate, clock: clock}
}

func (p *DeadlineProcessor) Process(ctx context.Context, job domain.DeadlineJob) (DeadlineResult, error) {
	if err := job.Validate(); err != nil {
		return DeadlineResult{}, err
	}
	snapshot, err := p.api.GetDealSnapshot(ctx, job.DealID)
	if err != nil {
		return DeadlineResult{}, fmt.Errorf("processor: fetch snapshot: %w", err)
	}

	reason, suggested, escalate := decideDeadline(job.Kind, snapshot.State, p.elapsed(job.DeadlineAt))
	if !escalate {
		return DeadlineResult{Action: "noop", DealID: job.DealID}, nil
	}

	if suggested != domain.SuggestReview && !p.gate.AllowsAutoFinalize(suggested) {
		suggested = domain.SuggestReview
	}

	escJob := domain.EscalationJob{DealID: job.DealID, Reason: reason, Suggested: suggested}
	payload, err := json.Marshal(escJob)
	if err != nil {
		return DeadlineResult{}, fmt.Errorf("processor: marshal escalation job: %w", err)
	}
	id := jobident.Escalation(job.DealID, reason, suggested)
	if err := p.producer.Add(ctx, queue.Job{ID: id, Queue: queueEscalation, Payload: payload}); err != nil {
		return DeadlineResult{}, fmt.Errorf("processor: enqueue escalation: %w", err)
	}

	if suggested == domain.SuggestReview && p.notify != nil {
		if err := p.notify.NotifyReviewer(ctx, job.DealID, suggested, ports.PrepareResult{}); err != nil {
			return DeadlineResult{}, fmt.Errorf("processor: notify reviewer: %w", err)
		}
	}

	return DeadlineResult{Action: "escalated", DealID: job.DealID, Reason: reason, Suggested: suggested}, nil
}

func (p *DeadlineProcessor) elapsed(deadlineAt int64) bool {
	return p.clock.Now().Unix() >= deadlineAt
}

// decideDeadline implements the §4.7 decision table in isolation so it
// can be exhaustively unit tested without a fake API/producer.
func decideDeadline(kind domain.DeadlineKind, state domain.DealState, elapsed bool) (domain.EscalationReason, domain.Suggestion, bool) {
	switch kind {
	case domain.DeadlineDelivery:
		switch state {
		case domain.StateDelivered, domain.StateReleased, domain.StateRefunded, domain.StateResolved:
			return "", "", false
		default:
			if !elapsed {
				return "", "", false
			}
			return domain.EscalationNoDelivery, domain.SuggestReview, true
		}
	case domain.DeadlineDispute:
		switch state {
		case domain.StateResolved, domain.StateReleased, domain.StateRefunded:
			return "", "", false
		default:
			if !elapsed {
				return "", "", false
			}
			if state == domain.StateFunded || state == domain.StateDelivered {
				return domain.EscalationDeadlineExpired, domain.SuggestRelease, true
			}
			return domain.EscalationDeadlineExpired, domain.SuggestReview, true
		}
	default:
		return "", "", false
	}
}
