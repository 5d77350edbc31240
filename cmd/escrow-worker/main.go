// Command escrow-worker drains the deadlines, reminders, and escalation
// queues and runs each due job through its matching processor.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Ap3pp3rs94/escrow-timer/internal/dealapi"
	"github.com/Ap3pp3rs94/escrow-timer/internal/notify"
	"github.com/Ap3pp3rs94/escrow-timer/internal/policygate"
	"github.com/Ap3pp3rs94/escrow-timer/internal/ports"
	"github.com/Ap3pp3rs94/escrow-timer/internal/processor"
	"github.com/Ap3pp3rs94/escrow-timer/internal/worker"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/config"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/queue"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/telemetry"
)

const serviceName = "escrow-worker"

// promoteInterval is how often pending jobs whose fire time has passed
// are moved into each queue's ready list.
const promoteInterval = 500 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.Nop.Error("config", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	logger := telemetry.New(os.Stdout, serviceName, telemetry.Level(cfg.LogLevel))

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("parse_redis_url", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	rq := queue.NewRedisQueue(rdb, "escrow")

	api := dealapi.New(cfg.ActionsBaseURL, cfg.PortTimeout)
	gate := policygate.New(cfg.AutoFinalizeRelease, cfg.AutoFinalizeRefund)
	notifier := buildNotifier(cfg)

	procs := worker.Processors{
		Deadline:   processor.NewDeadlineProcessor(api, rq, notifier, gate, nil),
		Reminder:   processor.NewReminderProcessor(api, notifier, nil),
		Escalation: processor.NewEscalationProcessor(api, notifier, gate),
	}

	rt, err := worker.New(rq, procs, cfg.WorkerConcurrency, logger)
	if err != nil {
		logger.Error("build_runtime", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go runPromoters(ctx, rq, logger)

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- rt.Run(ctx) }()

	logger.Info("worker_start", map[string]any{"concurrency": cfg.WorkerConcurrency})

	select {
	case <-stop:
		logger.Info("shutdown_start", nil)
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("runtime_error", map[string]any{"error": err.Error()})
		}
	}
	cancel()
	logger.Info("shutdown_complete", nil)
}

func buildNotifier(cfg config.Config) ports.Notification {
	switch cfg.NotifyDriver {
	case "dialect":
		return notify.NewDialect(cfg.NotifyDialectBaseURL, cfg.NotifyDialectKey, cfg.PortTimeout)
	default:
		return notify.Noop{}
	}
}

// runPromoters ticks PromoteDue for each of the three queues until ctx
// is canceled.
func runPromoters(ctx context.Context, rq *queue.RedisQueue, logger *telemetry.Logger) {
	queues := []queue.Name{worker.QueueDeadlines, worker.QueueReminders, worker.QueueEscalation}
	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, q := range queues {
				if _, err := rq.PromoteDue(ctx, q, now, 0); err != nil {
					logger.Warn("promote_due_failed", map[string]any{"queue": string(q), "error": err.Error()})
				}
			}
		}
	}
}
