package jobident

import (
	"testing"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
)

func TestDeadlineDeterministic(t *testing.T) {
	a := Deadline("D-123", 1000, domain.DeadlineDelivery, 0)
	b := Deadline("D-123", 1000, domain.DeadlineDelivery, 0)
	if a != b {
		t.Fatalf("expected identical ids, got %q vs %q", a, b)
	}
	if a != "deadline:D-123:1000:delivery:0" {
		t.Fatalf("unexpected format: %q", a)
	}
}

func TestDeadlineChangesWithAnyField(t *testing.T) {
	base := Deadline("D-1", 1000, domain.DeadlineDelivery, 0)
	variants := []string{
		Deadline("D-2", 1000, domain.DeadlineDelivery, 0),
		Deadline("D-1", 1001, domain.DeadlineDelivery, 0),
		Deadline("D-1", 1000, domain.DeadlineDispute, 0),
		Deadline("D-1", 1000, domain.DeadlineDelivery, 1),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d did not change identity: %q", i, v)
		}
	}
}

func TestReminderAndEscalationFormat(t *testing.T) {
	r := Reminder("D-1", 500, domain.AudienceBoth, domain.ReasonDeadlineUpcoming)
	if r != "reminder:D-1:500:both:deadline-upcoming" {
		t.Fatalf("unexpected reminder id: %q", r)
	}
	e := Escalation("D-1", domain.EscalationNoDelivery, domain.SuggestReview)
	if e != "escalation:D-1:no-delivery:REVIEW" {
		t.Fatalf("unexpected escalation id: %q", e)
	}
}

func TestComputeWebhookIDDeterministicAndSensitive(t *testing.T) {
	a := ComputeWebhookID("wh1", "sig1", 0)
	b := ComputeWebhookID("wh1", "sig1", 0)
	if a != b {
		t.Fatalf("expected deterministic hash")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	c := ComputeWebhookID("wh1", "sig1", 1)
	if c == a {
		t.Fatalf("expected index change to change hash")
	}
	d := ComputeWebhookID("", "", 0)
	if d == a {
		t.Fatalf("expected empty defaults to differ from populated inputs")
	}
}
