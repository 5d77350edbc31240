package webhookintake

import (
	"github.com/go-playground/validator/v10"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/errorsx"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/jobident"
)

// Intake verifies and normalizes raw webhook deliveries. One instance
// is built per process and reused across requests; it holds no
// per-request state.
type Intake struct {
	secret string
	schema *validator.Validate
}

// New builds an Intake keyed on secret, the HMAC shared secret used to
// verify incoming deliveries.
func New(secret string) *Intake {
	return &Intake{secret: secret, schema: validator.New()}
}

// Result is the outcome of processing one webhook delivery.
type Result struct {
	Events   []domain.NormalizedWebhookEvent
	Accepted int
	Ignored  int
}

// Verify checks body against sigHex using the configured secret,
// returning a CodedError (errorsx.IntakeSignatureMissing or
// IntakeSignatureInvalid) on failure.
func (in *Intake) Verify(body []byte, sigHex string) error {
	if !VerifySignature(body, sigHex, in.secret) {
		return errorsx.NewCodedError(VerifyErr(sigHex), "webhook signature verification failed")
	}
	return nil
}

// Process parses, normalizes, maps, and validates body into events.
// webhookID is the optional X-Webhook-Id header value (may be empty).
// Malformed JSON is the only error Process returns; every other
// rejection is a silent drop per the intake contract. Unknown types,
// missing deal ids and schema failures are counted in Ignored; entries
// with no transaction signature are dropped before counting and appear
// in neither Accepted nor Ignored.
func (in *Intake) Process(body []byte, webhookID string) (Result, error) {
	maps, err := parseRaw(body)
	if err != nil {
		return Result{}, errorsx.NewCodedError(errorsx.IntakeMalformedJSON, err.Error())
	}
	entries := extractEntries(maps)

	events := make([]domain.NormalizedWebhookEvent, 0, len(entries))
	ignored := 0
	for i, entry := range entries {
		kind, ok := mapEffect(entry.eventType)
		if !ok {
			ignored++
			continue
		}
		if entry.dealID == "" {
			ignored++
			continue
		}
		effect := domain.Effect{Kind: kind, DealID: entry.dealID}
		evt := domain.NormalizedWebhookEvent{
			ID:     jobident.ComputeWebhookID(webhookID, entry.signature, i),
			Sig:    entry.signature,
			Slot:   entry.slot,
			When:   entry.timestamp,
			Effect: effect,
		}
		if err := in.schema.Struct(evt); err != nil {
			ignored++
			continue
		}
		if err := evt.Validate(); err != nil {
			ignored++
			continue
		}
		events = append(events, evt)
	}

	return Result{Events: events, Accepted: len(events), Ignored: ignored}, nil
}
