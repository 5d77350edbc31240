// Package router pulls a fresh deal snapshot for each normalized
// webhook event and calls the scheduling engine to (re)schedule timers.
// Per-event failures are isolated: one event's failure never aborts the
// batch.
package router

import (
	"context"
	"time"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
	"github.com/Ap3pp3rs94/escrow-timer/internal/ports"
)

// Engine is the subset of the scheduling engine the router depends on.
type Engine interface {
	Schedule(ctx context.Context, dealID string, snapshot domain.DealSnapshot, effect domain.Effect) error
}

// Logger is the minimal logging surface the router uses to record
// isolated per-event failures.
type Logger interface {
	Warn(msg string, fields map[string]any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, map[string]any) {}

// Router wires the API port and scheduling engine together.
type Router struct {
	api         ports.API
	engine      Engine
	snapshotTTL time.Duration
	log         Logger
}

// New builds a Router. snapshotTimeout bounds each GetDealSnapshot call;
// a zero value defaults to 5s. A nil logger discards warnings.
func New(api ports.API, engine Engine, snapshotTimeout time.Duration, log Logger) *Router {
	if snapshotTimeout <= 0 {
		snapshotTimeout = 5 * time.Second
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Router{api: api, engine: engine, snapshotTTL: snapshotTimeout, log: log}
}

// Outcome is the batch-level result returned to the HTTP handler.
type Outcome struct {
	Accepted int
	Ignored  int
}

// Route processes every event in order, isolating per-event failures.
// A failure to fetch the snapshot or to schedule counts the event as
// ignored and logs a warning; it never aborts the remaining events.
func (r *Router) Route(ctx context.Context, events []domain.NormalizedWebhookEvent) Outcome {
	out := Outcome{}
	for _, evt := range events {
		if r.routeOne(ctx, evt) {
			out.Accepted++
		} else {
			out.Ignored++
		}
	}
	return out
}

func (r *Router) routeOne(ctx context.Context, evt domain.NormalizedWebhookEvent) bool {
	dealID := evt.Effect.DealID

	cctx, cancel := context.WithTimeout(ctx, r.snapshotTTL)
	defer cancel()

	snapshot, err := r.api.GetDealSnapshot(cctx, dealID)
	if err != nil {
		r.log.Warn("router: snapshot fetch failed", map[string]any{"dealId": dealID, "error": err.Error()})
		return false
	}
	if err := snapshot.Validate(); err != nil {
		r.log.Warn("router: invalid snapshot", map[string]any{"dealId": dealID, "error": err.Error()})
		return false
	}

	if err := r.engine.Schedule(ctx, dealID, snapshot, evt.Effect); err != nil {
		r.log.Warn("router: schedule failed", map[string]any{"dealId": dealID, "error": err.Error()})
		return false
	}
	return true
}
