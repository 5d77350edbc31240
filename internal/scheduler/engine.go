// Package scheduler computes and emits the deadline/reminder/escalation
// jobs for a deal. A single entry point, Schedule, takes the deal
// snapshot plus the normalized effect that triggered it and an injected
// Plan; the minimalist event-derived behavior is the default Plan, and
// full-plan mode is the same entry point with extra configured reminder
// offsets. Re-invocation for the same (deal, effect, snapshot) always
// produces the same job identities, so it is safe to call on retries.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/jobident"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/queue"
)

const (
	queueDeadlines  queue.Name = "deadlines"
	queueReminders  queue.Name = "reminders"
	queueEscalation queue.Name = "escalation"

	reminderLeadDelivery = 24 * time.Hour
	reminderLeadDispute  = 2 * time.Hour
)

// Clock enables deterministic testing.
type Clock interface{ Now() time.Time }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Plan configures full-plan-mode scheduling. The zero value is the
// minimalist event-derived plan described in §4.3.
type Plan struct {
	// ReminderOffsets, if non-empty, replaces the single fixed-lead
	// reminder with one reminder per offset (time before the deadline).
	ReminderOffsets []time.Duration

	// DisputeWindow, if positive, additionally schedules an escalation
	// job at deliveryAt+DisputeWindow when a delivery deadline is set.
	DisputeWindow time.Duration
}

func (p Plan) fullMode() bool { return len(p.ReminderOffsets) > 0 }

// Engine owns timer emission for deals. It caches the last nonce it
// used per (dealId, kind) in memory only — an optimization, since
// dedup-by-identity already makes redundant Add calls idempotent; a
// process restart simply starts back at nonce 0, which is safe because
// the substrate still collapses to the most recently emitted identity.
type Engine struct {
	producer queue.Producer
	clock    Clock
	plan     Plan

	mu    sync.Mutex
	nonce map[nonceKey]nonceState
}

type nonceKey struct {
	DealID string
	Kind   domain.DeadlineKind
}

type nonceState struct {
	Nonce      int
	DeadlineAt int64
}

// New builds an Engine. plan may be the zero value for minimalist mode.
func New(producer queue.Producer, clock Clock, plan Plan) *Engine {
	if clock == nil {
		clock = systemClock{}
	}
	return &Engine{producer: producer, clock: clock, plan: plan, nonce: make(map[nonceKey]nonceState)}
}

// Schedule emits or cancels timers for dealID in response to effect,
// given the current snapshot.
func (e *Engine) Schedule(ctx context.Context, dealID string, snapshot domain.DealSnapshot, effect domain.Effect) error {
	if snapshot.State.Terminal() {
		return e.cancelAll(ctx, dealID)
	}

	now := e.clock.Now().Unix()

	switch effect.Kind {
	case domain.EffectDealFunded:
		if snapshot.DeliveryBy > now {
			if err := e.scheduleDeadline(ctx, dealID, domain.DeadlineDelivery, snapshot.DeliveryBy); err != nil {
				return err
			}
			if err := e.scheduleReminders(ctx, dealID, snapshot.DeliveryBy, now, domain.ReasonDeadlineUpcoming, reminderLeadDelivery); err != nil {
				return err
			}
			if e.plan.DisputeWindow > 0 {
				escAt := snapshot.DeliveryBy + int64(e.plan.DisputeWindow/time.Second)
				if escAt > now {
					if err := e.scheduleEscalationAt(ctx, dealID, escAt); err != nil {
						return err
					}
				}
			}
		}
	case domain.EffectDealDelivered:
		if snapshot.DisputeUntil > now {
			if err := e.scheduleDeadline(ctx, dealID, domain.DeadlineDispute, snapshot.DisputeUntil); err != nil {
				return err
			}
			if err := e.scheduleReminders(ctx, dealID, snapshot.DisputeUntil, now, domain.ReasonDisputeWindowClosing, reminderLeadDispute); err != nil {
				return err
			}
		}
	case domain.EffectDealDisputed, domain.EffectDealReleased, domain.EffectDealRefunded:
		// no timer emission by default; downstream processors handle messaging.
	default:
		return fmt.Errorf("scheduler: unhandled effect kind %q", effect.Kind)
	}
	return nil
}

func (e *Engine) scheduleDeadline(ctx context.Context, dealID string, kind domain.DeadlineKind, at int64) error {
	key := nonceKey{DealID: dealID, Kind: kind}

	e.mu.Lock()
	state, seen := e.nonce[key]
	nonce := 0
	var prevID string
	if seen {
		if state.DeadlineAt == at {
			// same logical timer already scheduled at this nonce; re-add is idempotent.
			nonce = state.Nonce
		} else {
			nonce = state.Nonce + 1
			prevID = jobident.Deadline(dealID, state.DeadlineAt, kind, state.Nonce)
		}
	}
	e.nonce[key] = nonceState{Nonce: nonce, DeadlineAt: at}
	e.mu.Unlock()

	if prevID != "" {
		if err := e.producer.CancelByID(ctx, queueDeadlines, prevID); err != nil {
			return fmt.Errorf("scheduler: cancel superseded deadline: %w", err)
		}
	}

	job := domain.DeadlineJob{DealID: dealID, DeadlineAt: at, Kind: kind, Nonce: nonce}
	if err := job.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("scheduler: marshal deadline job: %w", err)
	}
	id := jobident.Deadline(dealID, at, kind, nonce)
	return e.producer.Add(ctx, queue.Job{
		ID:      id,
		Queue:   queueDeadlines,
		FireAt:  fireAtFloor(at, e.clock.Now()),
		Payload: payload,
	})
}

func (e *Engine) scheduleReminders(ctx context.Context, dealID string, deadlineAt, now int64, reason domain.ReminderReason, defaultLead time.Duration) error {
	offsets := e.plan.ReminderOffsets
	if !e.plan.fullMode() {
		offsets = []time.Duration{defaultLead}
	}
	for _, offset := range offsets {
		notifyAt := deadlineAt - int64(offset/time.Second)
		if notifyAt <= now {
			continue
		}
		job := domain.ReminderJob{DealID: dealID, NotifyAt: notifyAt, Audience: domain.AudienceBoth, Reason: reason}
		if err := job.Validate(); err != nil {
			return err
		}
		payload, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("scheduler: marshal reminder job: %w", err)
		}
		id := jobident.Reminder(dealID, notifyAt, domain.AudienceBoth, reason)
		if err := e.producer.Add(ctx, queue.Job{
			ID:      id,
			Queue:   queueReminders,
			FireAt:  fireAtFloor(notifyAt, e.clock.Now()),
			Payload: payload,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) scheduleEscalationAt(ctx context.Context, dealID string, at int64) error {
	job := domain.EscalationJob{DealID: dealID, Reason: domain.EscalationDeadlineExpired, Suggested: domain.SuggestReview}
	if err := job.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("scheduler: marshal escalation job: %w", err)
	}
	id := jobident.Escalation(dealID, domain.EscalationDeadlineExpired, domain.SuggestReview)
	return e.producer.Add(ctx, queue.Job{
		ID:      id,
		Queue:   queueEscalation,
		FireAt:  fireAtFloor(at, e.clock.Now()),
		Payload: payload,
	})
}

func (e *Engine) cancelAll(ctx context.Context, dealID string) error {
	canceler, ok := e.producer.(queue.PrefixCanceler)
	if !ok {
		return nil
	}
	var firstErr error
	for _, q := range []struct {
		name   queue.Name
		prefix string
	}{
		{queueDeadlines, jobident.DealPrefix("deadline", dealID)},
		{queueReminders, jobident.DealPrefix("reminder", dealID)},
		{queueEscalation, jobident.DealPrefix("escalation", dealID)},
	} {
		if _, err := canceler.CancelPrefix(ctx, q.name, q.prefix); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// fireAtFloor converts a unix-seconds target into a time.Time, flooring
// any already-past target to now so delay never goes negative.
func fireAtFloor(targetUnixSeconds int64, now time.Time) time.Time {
	t := time.Unix(targetUnixSeconds, 0)
	if t.Before(now) {
		return now
	}
	return t
}
