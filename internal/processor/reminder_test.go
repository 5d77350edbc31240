package processor

import (
	"context"
	"testing"
	"time"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
)

func TestReminderSuppressedForTerminalState(t *testing.T) {
	api := &stubAPI{snapshot: domain.DealSnapshot{ID: "D-1", State: domain.StateReleased, DeliveryBy: 1000}}
	notify := &stubNotify{}
	proc := NewReminderProcessor(api, notify, fixedClock{now: time.Unix(10, 0)})

	job := domain.ReminderJob{DealID: "D-1", NotifyAt: 500, Audience: domain.AudienceBoth, Reason: domain.ReasonDeadlineUpcoming}
	res, err := proc.Process(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Action != "noop" {
		t.Fatalf("expected noop for terminal state, got %+v", res)
	}
	if notify.reminderCalls != 0 {
		t.Fatalf("expected no reminder sent")
	}
}

func TestReminderSuppressedWhenDeadlinePassed(t *testing.T) {
	api := &stubAPI{snapshot: domain.DealSnapshot{ID: "D-1", State: domain.StateFunded, DeliveryBy: 100}}
	notify := &stubNotify{}
	proc := NewReminderProcessor(api, notify, fixedClock{now: time.Unix(200, 0)})

	job := domain.ReminderJob{DealID: "D-1", NotifyAt: 50, Audience: domain.AudienceBoth, Reason: domain.ReasonDeadlineUpcoming}
	res, err := proc.Process(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Action != "noop" {
		t.Fatalf("expected noop when now >= deliveryBy, got %+v", res)
	}
}

func TestReminderSentWhenStillUpcoming(t *testing.T) {
	api := &stubAPI{snapshot: domain.DealSnapshot{ID: "D-1", State: domain.StateFunded, DeliveryBy: 1000}}
	notify := &stubNotify{}
	proc := NewReminderProcessor(api, notify, fixedClock{now: time.Unix(10, 0)})

	job := domain.ReminderJob{DealID: "D-1", NotifyAt: 500, Audience: domain.AudienceBoth, Reason: domain.ReasonDeadlineUpcoming}
	res, err := proc.Process(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Action != "sent" {
		t.Fatalf("expected sent, got %+v", res)
	}
	if notify.reminderCalls != 1 {
		t.Fatalf("expected exactly one reminder call, got %d", notify.reminderCalls)
	}
}

func TestReminderDisputeWindowClosingSuppression(t *testing.T) {
	api := &stubAPI{snapshot: domain.DealSnapshot{ID: "D-1", State: domain.StateDelivered, DisputeUntil: 100}}
	notify := &stubNotify{}
	proc := NewReminderProcessor(api, notify, fixedClock{now: time.Unix(150, 0)})

	job := domain.ReminderJob{DealID: "D-1", NotifyAt: 90, Audience: domain.AudienceBoth, Reason: domain.ReasonDisputeWindowClosing}
	res, err := proc.Process(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Action != "noop" {
		t.Fatalf("expected noop once dispute window closed, got %+v", res)
	}
}
