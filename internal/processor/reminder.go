package processor

import (
	"context"
	"fmt"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
	"github.com/Ap3pp3rs94/escrow-timer/internal/ports"
)

// ReminderResult is returned for logging.
type ReminderResult struct {
	Action string
	DealID string
}

// ReminderProcessor implements §4.8.
type ReminderProcessor struct {
	api    ports.API
	notify ports.Notification
	clock  Clock
}

func NewReminderProcessor(api ports.API, notify ports.Notification, clock Clock) *ReminderProcessor {
	if clock == nil {
		clock = systemClock{}
	}
	return &ReminderProcessor{api: api, notify: notify, clock: clock}
}

func (p *ReminderProcessor) Process(ctx context.Context, job domain.ReminderJob) (ReminderResult, error) {
	if err := job.Validate(); err != nil {
		return ReminderResult{}, err
	}
	snapshot, err := p.api.GetDealSnapshot(ctx, job.DealID)
	if err != nil {
		return ReminderResult{}, fmt.Errorf("processor: fetch snapshot: %w", err)
	}

	now := p.clock.Now().Unix()
	if suppressReminder(snapshot, job.Reason, now) {
		return ReminderResult{Action: "noop", DealID: job.DealID}, nil
	}

	rc := ports.ReminderContext{DeliveryBy: snapshot.DeliveryBy, DisputeUntil: snapshot.DisputeUntil}
	if err := p.notify.SendReminder(ctx, job.DealID, job.Audience, job.Reason, rc); err != nil {
		return ReminderResult{}, fmt.Errorf("processor: send reminder: %w", err)
	}
	return ReminderResult{Action: "sent", DealID: job.DealID}, nil
}

func suppressReminder(snapshot domain.DealSnapshot, reason domain.ReminderReason, now int64) bool {
	if snapshot.State.Terminal() {
		return true
	}
	switch reason {
	case domain.ReasonDeadlineUpcoming:
		return now >= snapshot.DeliveryBy
	case domain.ReasonDisputeWindowClosing:
		return now >= snapshot.DisputeUntil
	default:
		return true
	}
}
