package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
	"github.com/Ap3pp3rs94/escrow-timer/internal/ports"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/idempotency"
)

// Clock lets tests pin the day bucket used in idempotency keys.
type Clock interface{ Now() time.Time }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Dialect posts outbound messages to a Dialect-compatible HTTP
// endpoint, attaching an idempotency key derived from the logical
// notification so retried sends collapse at the transport layer.
type Dialect struct {
	baseURL string
	apiKey  string
	http    *http.Client
	clock   Clock
}

// NewDialect builds a Dialect driver. baseURL must end with "/"; NewDialect
// panics on a malformed baseURL since this is a wiring-time config
// error, not a runtime one.
func NewDialect(baseURL, apiKey string, timeout time.Duration) *Dialect {
	if !strings.HasSuffix(baseURL, "/") {
		panic(fmt.Sprintf("notify: NOTIFY_DIALECT_BASEURL must end with '/', got %q", baseURL))
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dialect{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		clock:   systemClock{},
	}
}

var _ ports.Notification = (*Dialect)(nil)

type dialectMessage struct {
	DealID         string `json:"dealId"`
	Kind           string `json:"kind"`
	Audience       string `json:"audience,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Event          string `json:"event,omitempty"`
	Suggested      string `json:"suggested,omitempty"`
	ApprovalURL    string `json:"approvalUrl,omitempty"`
	BlinkURL       string `json:"blinkUrl,omitempty"`
	DeliveryBy     int64  `json:"deliveryBy,omitempty"`
	DisputeUntil   int64  `json:"disputeUntil,omitempty"`
	IdempotencyKey string `json:"idempotencyKey"`
}

func (d *Dialect) dayBucket() string {
	return d.clock.Now().Format("2006-01-02")
}

func (d *Dialect) send(ctx context.Context, msg dialectMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: marshal message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Idempotency-Key", msg.IdempotencyKey)

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: dialect responded %d", resp.StatusCode)
	}
	return nil
}

func (d *Dialect) NotifyReviewer(ctx context.Context, dealID string, suggested domain.Suggestion, prep ports.PrepareResult) error {
	key, err := idempotency.NotificationKey(dealID, "reviewer-"+string(suggested), "reviewer", d.dayBucket())
	if err != nil {
		return fmt.Errorf("notify: build idempotency key: %w", err)
	}
	return d.send(ctx, dialectMessage{
		DealID:         dealID,
		Kind:           "reviewer",
		Suggested:      string(suggested),
		ApprovalURL:    prep.ApprovalURL,
		BlinkURL:       prep.BlinkURL,
		IdempotencyKey: key,
	})
}

func (d *Dialect) NotifyParties(ctx context.Context, dealID string, event string) error {
	key, err := idempotency.NotificationKey(dealID, event, "both", d.dayBucket())
	if err != nil {
		return fmt.Errorf("notify: build idempotency key: %w", err)
	}
	return d.send(ctx, dialectMessage{
		DealID:         dealID,
		Kind:           "parties",
		Event:          event,
		IdempotencyKey: key,
	})
}

func (d *Dialect) SendReminder(ctx context.Context, dealID string, audience domain.Audience, reason domain.ReminderReason, rc ports.ReminderContext) error {
	key, err := idempotency.NotificationKey(dealID, string(reason), string(audience), d.dayBucket())
	if err != nil {
		return fmt.Errorf("notify: build idempotency key: %w", err)
	}
	return d.send(ctx, dialectMessage{
		DealID:         dealID,
		Kind:           "reminder",
		Audience:       string(audience),
		Reason:         string(reason),
		DeliveryBy:     rc.DeliveryBy,
		DisputeUntil:   rc.DisputeUntil,
		IdempotencyKey: key,
	})
}
