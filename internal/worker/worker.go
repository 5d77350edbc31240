// Package worker boots one Runner per queue (deadlines, reminders,
// escalation), each wrapping the matching processor as a queue.Handler,
// and coordinates graceful shutdown across all three on SIGINT/SIGTERM.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
	"github.com/Ap3pp3rs94/escrow-timer/internal/processor"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/queue"
)

const (
	QueueDeadlines  queue.Name = "deadlines"
	QueueReminders  queue.Name = "reminders"
	QueueEscalation queue.Name = "escalation"
)

// Logger is the minimal sink each Runner writes operational lines to.
type Logger interface {
	Printf(format string, args ...any)
}

// Processors bundles the three job processors a Runtime dispatches to.
type Processors struct {
	Deadline   *processor.DeadlineProcessor
	Reminder   *processor.ReminderProcessor
	Escalation *processor.EscalationProcessor
}

// Runtime owns the three per-queue Runners.
type Runtime struct {
	runners []*queue.Runner
}

// New builds a Runtime. consumer serves all three queues (the Redis
// substrate multiplexes queues by name within one client); concurrency
// is applied uniformly across queues per the worker contract.
func New(consumer queue.Consumer, procs Processors, concurrency int, logger Logger) (*Runtime, error) {
	base := queue.RunnerOptions{Concurrency: concurrency, Logger: logger}

	specs := []struct {
		name    queue.Name
		handler queue.Handler
	}{
		{QueueDeadlines, deadlineHandler(procs.Deadline, logger)},
		{QueueReminders, reminderHandler(procs.Reminder, logger)},
		{QueueEscalation, escalationHandler(procs.Escalation, logger)},
	}

	runners := make([]*queue.Runner, 0, len(specs))
	for _, s := range specs {
		opts := base
		opts.Queue = s.name
		r, err := queue.NewRunner(consumer, s.handler, opts)
		if err != nil {
			return nil, fmt.Errorf("worker: build runner for %s: %w", s.name, err)
		}
		runners = append(runners, r)
	}
	return &Runtime{runners: runners}, nil
}

// Run starts all Runners and blocks until ctx is canceled or any
// Runner gives up; it then waits for the others to unwind before
// returning, so shutdown is always coordinated across queues.
func (rt *Runtime) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, len(rt.runners))
	for _, r := range rt.runners {
		go func(r *queue.Runner) { errCh <- r.Run(ctx) }(r)
	}
	var firstErr error
	for range rt.runners {
		if err := <-errCh; err != nil {
			if firstErr == nil && ctx.Err() == nil {
				firstErr = err
			}
			cancel()
		}
	}
	return firstErr
}

func deadlineHandler(p *processor.DeadlineProcessor, logger Logger) queue.Handler {
	return func(ctx context.Context, d queue.Delivery) error {
		var job domain.DeadlineJob
		if err := json.Unmarshal(d.Job.Payload, &job); err != nil {
			return fmt.Errorf("worker: decode deadline job: %w", err)
		}
		result, err := p.Process(ctx, job)
		if err == nil {
			logResult(logger, "deadline", result.Action, result.DealID, string(result.Reason), string(result.Suggested))
		}
		return err
	}
}

func reminderHandler(p *processor.ReminderProcessor, logger Logger) queue.Handler {
	return func(ctx context.Context, d queue.Delivery) error {
		var job domain.ReminderJob
		if err := json.Unmarshal(d.Job.Payload, &job); err != nil {
			return fmt.Errorf("worker: decode reminder job: %w", err)
		}
		result, err := p.Process(ctx, job)
		if err == nil {
			logResult(logger, "reminder", result.Action, result.DealID, "", "")
		}
		return err
	}
}

func escalationHandler(p *processor.EscalationProcessor, logger Logger) queue.Handler {
	return func(ctx context.Context, d queue.Delivery) error {
		var job domain.EscalationJob
		if err := json.Unmarshal(d.Job.Payload, &job); err != nil {
			return fmt.Errorf("worker: decode escalation job: %w", err)
		}
		result, err := p.Process(ctx, job)
		if err == nil {
			logResult(logger, "escalation", result.Action, result.DealID, "", "")
		}
		return err
	}
}

// logResult records the {action, dealId, reason?, suggested?} a
// processor returned, per §4.7-4.9's logging requirement. reason and
// suggested are omitted when empty.
func logResult(logger Logger, job, action, dealID, reason, suggested string) {
	if logger == nil {
		return
	}
	line := fmt.Sprintf("worker: job=%s action=%s dealId=%s", job, action, dealID)
	if reason != "" {
		line += " reason=" + reason
	}
	if suggested != "" {
		line += " suggested=" + suggested
	}
	logger.Printf("%s", line)
}
