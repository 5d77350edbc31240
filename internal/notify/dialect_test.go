package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
	"github.com/Ap3pp3rs94/escrow-timer/internal/ports"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestServer(t *testing.T, check func(r *http.Request, body dialectMessage)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg dialectMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		check(r, msg)
		w.WriteHeader(http.StatusOK)
	}))
}

func TestNotifyReviewerSendsIdempotencyKeyAndAuth(t *testing.T) {
	var gotAuth, gotKey string
	srv := newTestServer(t, func(r *http.Request, body dialectMessage) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("Idempotency-Key")
		if body.DealID != "D-1" || body.Kind != "reviewer" {
			t.Fatalf("unexpected body: %+v", body)
		}
	})
	defer srv.Close()

	d := NewDialect(srv.URL+"/", "secret-key", time.Second)
	d.clock = fixedClock{now: time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)}

	err := d.NotifyReviewer(context.Background(), "D-1", domain.SuggestReview, ports.PrepareResult{ApprovalURL: "https://x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("expected bearer auth header, got %q", gotAuth)
	}
	if gotKey == "" {
		t.Fatalf("expected non-empty idempotency key header")
	}
}

func TestSendReminderKeyStableWithinDayBucket(t *testing.T) {
	var keys []string
	srv := newTestServer(t, func(r *http.Request, body dialectMessage) {
		keys = append(keys, body.IdempotencyKey)
	})
	defer srv.Close()

	d := NewDialect(srv.URL+"/", "k", time.Second)
	d.clock = fixedClock{now: time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)}

	rc := ports.ReminderContext{DeliveryBy: 100}
	if err := d.SendReminder(context.Background(), "D-1", domain.AudienceBoth, domain.ReasonDeadlineUpcoming, rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.clock = fixedClock{now: time.Date(2026, 7, 29, 18, 0, 0, 0, time.UTC)}
	if err := d.SendReminder(context.Background(), "D-1", domain.AudienceBoth, domain.ReasonDeadlineUpcoming, rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] != keys[1] {
		t.Fatalf("expected same-day sends to share an idempotency key, got %v", keys)
	}
}

func TestSendReminderKeyChangesNextDay(t *testing.T) {
	var keys []string
	srv := newTestServer(t, func(r *http.Request, body dialectMessage) {
		keys = append(keys, body.IdempotencyKey)
	})
	defer srv.Close()

	d := NewDialect(srv.URL+"/", "k", time.Second)
	rc := ports.ReminderContext{DeliveryBy: 100}

	d.clock = fixedClock{now: time.Date(2026, 7, 29, 23, 0, 0, 0, time.UTC)}
	if err := d.SendReminder(context.Background(), "D-1", domain.AudienceBoth, domain.ReasonDeadlineUpcoming, rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.clock = fixedClock{now: time.Date(2026, 7, 30, 1, 0, 0, 0, time.UTC)}
	if err := d.SendReminder(context.Background(), "D-1", domain.AudienceBoth, domain.ReasonDeadlineUpcoming, rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] == keys[1] {
		t.Fatalf("expected different-day sends to use different keys, got %v", keys)
	}
}

func TestNotifyPartiesPropagatesNon2xxAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDialect(srv.URL+"/", "k", time.Second)
	if err := d.NotifyParties(context.Background(), "D-1", "deal-released"); err == nil {
		t.Fatalf("expected error for 5xx response")
	}
}

func TestNewDialectPanicsOnMissingTrailingSlash(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for baseURL without trailing slash")
		}
	}()
	NewDialect("http://example.com", "k", time.Second)
}

func TestNoopSatisfiesAllMethodsWithoutError(t *testing.T) {
	var n Noop
	ctx := context.Background()
	if err := n.NotifyReviewer(ctx, "D-1", domain.SuggestReview, ports.PrepareResult{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := n.NotifyParties(ctx, "D-1", "event"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := n.SendReminder(ctx, "D-1", domain.AudienceBoth, domain.ReasonDeadlineUpcoming, ports.ReminderContext{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
