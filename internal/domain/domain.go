// Package domain holds the escrow timing engine's core data types: the
// deal snapshot, the three job payloads, and the normalized webhook
// event. These are pure data — no I/O, no clock reads beyond what a
// caller passes in.
package domain

import (
	"errors"
	"fmt"
)

// DealState is one of the seven states a deal can occupy.
type DealState string

const (
	StateInit      DealState = "INIT"
	StateFunded    DealState = "FUNDED"
	StateDelivered DealState = "DELIVERED"
	StateDisputed  DealState = "DISPUTED"
	StateResolved  DealState = "RESOLVED"
	StateReleased  DealState = "RELEASED"
	StateRefunded  DealState = "REFUNDED"
)

// Terminal reports whether state suppresses all scheduled work for the deal.
func (s DealState) Terminal() bool {
	switch s {
	case StateResolved, StateReleased, StateRefunded:
		return true
	default:
		return false
	}
}

func (s DealState) valid() bool {
	switch s {
	case StateInit, StateFunded, StateDelivered, StateDisputed, StateResolved, StateReleased, StateRefunded:
		return true
	default:
		return false
	}
}

// DealSnapshot is the read-only view processors and the scheduling
// engine consume. DeliveryBy/DisputeUntil are unix seconds; 0 means unset.
type DealSnapshot struct {
	ID           string    `json:"id"`
	State        DealState `json:"state"`
	DeliveryBy   int64     `json:"deliveryBy,omitempty"`
	DisputeUntil int64     `json:"disputeUntil,omitempty"`
}

var ErrInvalid = errors.New("domain: invalid")

func (s DealSnapshot) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: deal snapshot id is required", ErrInvalid)
	}
	if !s.State.valid() {
		return fmt.Errorf("%w: unknown deal state %q", ErrInvalid, s.State)
	}
	if s.DeliveryBy < 0 || s.DisputeUntil < 0 {
		return fmt.Errorf("%w: timestamps must be non-negative", ErrInvalid)
	}
	return nil
}

// DeadlineKind distinguishes the two deadline flavors tracked per deal.
type DeadlineKind string

const (
	DeadlineDelivery DeadlineKind = "delivery"
	DeadlineDispute  DeadlineKind = "dispute"
)

func (k DeadlineKind) valid() bool {
	return k == DeadlineDelivery || k == DeadlineDispute
}

// DeadlineJob is the payload scheduled onto the "deadlines" queue.
type DeadlineJob struct {
	DealID     string       `json:"dealId"`
	DeadlineAt int64        `json:"deadlineAt"`
	Kind       DeadlineKind `json:"kind"`
	Nonce      int          `json:"nonce"`
}

func (j DeadlineJob) Validate() error {
	if j.DealID == "" {
		return fmt.Errorf("%w: deadline job dealId is required", ErrInvalid)
	}
	if !j.Kind.valid() {
		return fmt.Errorf("%w: unknown deadline kind %q", ErrInvalid, j.Kind)
	}
	if j.DeadlineAt <= 0 {
		return fmt.Errorf("%w: deadlineAt must be positive", ErrInvalid)
	}
	if j.Nonce < 0 {
		return fmt.Errorf("%w: nonce must be non-negative", ErrInvalid)
	}
	return nil
}

// Audience is who a reminder is addressed to.
type Audience string

const (
	AudienceBuyer  Audience = "buyer"
	AudienceSeller Audience = "seller"
	AudienceBoth   Audience = "both"
)

func (a Audience) valid() bool {
	switch a {
	case AudienceBuyer, AudienceSeller, AudienceBoth:
		return true
	default:
		return false
	}
}

// ReminderReason is why a reminder fires.
type ReminderReason string

const (
	ReasonDeadlineUpcoming     ReminderReason = "deadline-upcoming"
	ReasonDisputeWindowClosing ReminderReason = "dispute-window-closing"
)

func (r ReminderReason) valid() bool {
	return r == ReasonDeadlineUpcoming || r == ReasonDisputeWindowClosing
}

// ReminderJob is the payload scheduled onto the "reminders" queue.
type ReminderJob struct {
	DealID   string         `json:"dealId"`
	NotifyAt int64          `json:"notifyAt"`
	Audience Audience       `json:"audience"`
	Reason   ReminderReason `json:"reason"`
}

func (j ReminderJob) Validate() error {
	if j.DealID == "" {
		return fmt.Errorf("%w: reminder job dealId is required", ErrInvalid)
	}
	if !j.Audience.valid() {
		return fmt.Errorf("%w: unknown audience %q", ErrInvalid, j.Audience)
	}
	if !j.Reason.valid() {
		return fmt.Errorf("%w: unknown reminder reason %q", ErrInvalid, j.Reason)
	}
	if j.NotifyAt <= 0 {
		return fmt.Errorf("%w: notifyAt must be positive", ErrInvalid)
	}
	return nil
}

// EscalationReason is why an escalation fires.
type EscalationReason string

const (
	EscalationDeadlineExpired EscalationReason = "deadline-expired"
	EscalationNoAck           EscalationReason = "no-ack"
	EscalationNoDelivery      EscalationReason = "no-delivery"
)

func (r EscalationReason) valid() bool {
	switch r {
	case EscalationDeadlineExpired, EscalationNoAck, EscalationNoDelivery:
		return true
	default:
		return false
	}
}

// Suggestion is the escalation processor's recommended disposition.
type Suggestion string

const (
	SuggestRelease Suggestion = "RELEASE"
	SuggestRefund  Suggestion = "REFUND"
	SuggestReview  Suggestion = "REVIEW"
)

func (s Suggestion) valid() bool {
	switch s {
	case SuggestRelease, SuggestRefund, SuggestReview:
		return true
	default:
		return false
	}
}

// EscalationJob is the payload scheduled onto the "escalation" queue.
type EscalationJob struct {
	DealID    string           `json:"dealId"`
	Reason    EscalationReason `json:"reason"`
	Suggested Suggestion       `json:"suggested"`
}

func (j EscalationJob) Validate() error {
	if j.DealID == "" {
		return fmt.Errorf("%w: escalation job dealId is required", ErrInvalid)
	}
	if !j.Reason.valid() {
		return fmt.Errorf("%w: unknown escalation reason %q", ErrInvalid, j.Reason)
	}
	if !j.Suggested.valid() {
		return fmt.Errorf("%w: unknown suggestion %q", ErrInvalid, j.Suggested)
	}
	return nil
}

// EffectKind is the closed, exhaustive set of webhook effects.
type EffectKind string

const (
	EffectDealFunded    EffectKind = "deal-funded"
	EffectDealDelivered EffectKind = "deal-delivered"
	EffectDealDisputed  EffectKind = "deal-disputed"
	EffectDealReleased  EffectKind = "deal-released"
	EffectDealRefunded  EffectKind = "deal-refunded"
)

func (k EffectKind) valid() bool {
	switch k {
	case EffectDealFunded, EffectDealDelivered, EffectDealDisputed, EffectDealReleased, EffectDealRefunded:
		return true
	default:
		return false
	}
}

// Effect is the tagged union carried by a NormalizedWebhookEvent.
type Effect struct {
	Kind   EffectKind `json:"kind"`
	DealID string     `json:"dealId"`
}

func (e Effect) Validate() error {
	if !e.Kind.valid() {
		return fmt.Errorf("%w: unknown effect kind %q", ErrInvalid, e.Kind)
	}
	if e.DealID == "" {
		return fmt.Errorf("%w: effect dealId is required", ErrInvalid)
	}
	return nil
}

// NormalizedWebhookEvent is the internal shape produced by webhook intake.
type NormalizedWebhookEvent struct {
	ID     string `json:"id" validate:"required,len=64,hexadecimal"`
	Sig    string `json:"sig" validate:"required"`
	Slot   int64  `json:"slot" validate:"gte=0"`
	When   int64  `json:"when" validate:"gt=0"`
	Effect Effect `json:"effect" validate:"required"`
}

func (e NormalizedWebhookEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: event id is required", ErrInvalid)
	}
	if e.Sig == "" {
		return fmt.Errorf("%w: event sig is required", ErrInvalid)
	}
	if e.Slot < 0 {
		return fmt.Errorf("%w: slot must be non-negative", ErrInvalid)
	}
	if e.When <= 0 {
		return fmt.Errorf("%w: when must be positive", ErrInvalid)
	}
	return e.Effect.Validate()
}
