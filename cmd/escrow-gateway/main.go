// Command escrow-gateway hosts the webhook intake HTTP endpoint: it
// verifies, normalizes, and routes deal-state webhooks into the
// scheduling engine, then acks the sender with accepted/ignored counts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Ap3pp3rs94/escrow-timer/internal/chainclient"
	"github.com/Ap3pp3rs94/escrow-timer/internal/dealapi"
	"github.com/Ap3pp3rs94/escrow-timer/internal/domain"
	"github.com/Ap3pp3rs94/escrow-timer/internal/router"
	"github.com/Ap3pp3rs94/escrow-timer/internal/scheduler"
	"github.com/Ap3pp3rs94/escrow-timer/internal/webhookintake"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/config"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/errorsx"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/queue"
	"github.com/Ap3pp3rs94/escrow-timer/pkg/telemetry"
)

const serviceName = "escrow-gateway"

type ctxKey string

const ctxRequestID ctxKey = "request_id"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("escrow-gateway: %v", err)
	}
	logger := telemetry.New(os.Stdout, serviceName, telemetry.Level(cfg.LogLevel))

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("escrow-gateway: parse REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opt)
	rq := queue.NewRedisQueue(rdb, "escrow")

	profile, err := config.LoadSchedulingProfile(cfg.SchedulingProfilePath)
	if err != nil {
		log.Fatalf("escrow-gateway: %v", err)
	}
	plan := scheduler.Plan{}
	if profile.Enabled() {
		offsets := make([]time.Duration, 0, len(profile.ReminderOffsetsMinutes))
		for _, m := range profile.ReminderOffsetsMinutes {
			offsets = append(offsets, time.Duration(m)*time.Minute)
		}
		plan = scheduler.Plan{ReminderOffsets: offsets, DisputeWindow: profile.DisputeWindow}
	}
	engine := scheduler.New(rq, nil, plan)

	api := dealapi.New(cfg.ActionsBaseURL, cfg.PortTimeout)

	rtr := router.New(api, engine, cfg.PortTimeout, logger)
	intake := webhookintake.New(cfg.HeliusWebhookSecret)

	var chain *chainclient.Client
	if cfg.RPCURL != "" {
		chain = chainclient.New(cfg.RPCURL, cfg.PortTimeout)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": serviceName}, requestIDFromCtx(r.Context()))
	})
	mux.HandleFunc("/webhooks/helius", webhookHandler(intake, rtr, chain, logger))

	var handler http.Handler = mux
	handler = withAccessLog(handler, logger)
	handler = withRecovery(handler, logger)
	handler = withRequestID(handler)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
		BaseContext: func(net.Listener) context.Context {
			return context.Background()
		},
	}

	go func() {
		logger.Info("server_start", map[string]any{"addr": cfg.Addr, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	logger.Info("shutdown_start", nil)
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown_error", map[string]any{"error": err.Error()})
		_ = srv.Close()
	}
	logger.Info("shutdown_complete", nil)
}

func webhookHandler(intake *webhookintake.Intake, rtr *router.Router, chain *chainclient.Client, logger *telemetry.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := requestIDFromCtx(r.Context())
		body, err := io.ReadAll(io.LimitReader(r.Body, queue.MaxPayloadBytes))
		if err != nil {
			writeError(w, errorsx.NewCodedError(errorsx.IntakeMalformedJSON, "request body unreadable"), rid)
			return
		}

		sigHex := r.Header.Get("X-Helius-Signature")
		if err := intake.Verify(body, sigHex); err != nil {
			writeError(w, err, rid)
			return
		}

		webhookID := strings.TrimSpace(r.Header.Get("X-Webhook-Id"))
		if webhookID == "" {
			webhookID = rid
		}

		result, err := intake.Process(body, webhookID)
		if err != nil {
			writeError(w, err, rid)
			return
		}

		outcome := rtr.Route(r.Context(), result.Events)
		fields := map[string]any{
			"request_id": rid,
			"accepted":   outcome.Accepted,
			"ignored":    outcome.Ignored + result.Ignored,
		}
		if chain != nil {
			fields["confirmations"] = confirmationStatuses(r.Context(), chain, result.Events)
		}
		logger.Info("webhook_processed", fields)
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":       true,
			"accepted": outcome.Accepted,
			"ignored":  outcome.Ignored + result.Ignored,
		}, rid)
	}
}

// confirmationStatuses best-effort attaches each event's on-chain
// confirmation status to the webhook_processed log line; a lookup failure is recorded
// as "unknown" and never affects routing or the HTTP response.
func confirmationStatuses(ctx context.Context, chain *chainclient.Client, events []domain.NormalizedWebhookEvent) map[string]string {
	out := make(map[string]string, len(events))
	for _, evt := range events {
		status, err := chain.SignatureStatus(ctx, evt.Sig)
		if err != nil {
			out[evt.Sig] = "unknown"
			continue
		}
		out[evt.Sig] = status.ConfirmationStatus
	}
	return out
}

// writeError maps err to a stable error envelope and writes it. If err
// is (or wraps) an errorsx.CodedError its code and HTTP status are
// used directly; otherwise it falls back to an internal error.
func writeError(w http.ResponseWriter, err error, requestID string) {
	env := errorsx.FromError(err, errorsx.Internal, requestID)
	errorsx.WriteHTTP(w, errorsx.HTTPStatusFor(env.Error.Code), env)
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", rid)
		ctx := context.WithValue(r.Context(), ctxRequestID, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func withRecovery(next http.Handler, logger *telemetry.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				rid := requestIDFromCtx(r.Context())
				logger.Error("panic_recovered", map[string]any{
					"request_id": rid,
					"panic":      stringifyPanic(rec),
					"stack":      string(debug.Stack()),
				})
				writeError(w, errorsx.NewCodedError(errorsx.Internal, "internal error"), rid)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func withAccessLog(next http.Handler, logger *telemetry.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		logger.Info("http_request", map[string]any{
			"request_id":  requestIDFromCtx(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func requestIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRequestID).(string); ok {
		return v
	}
	return ""
}

func stringifyPanic(rec any) string {
	if err, ok := rec.(error); ok {
		return err.Error()
	}
	return http.StatusText(http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v map[string]any, requestID string) {
	if requestID != "" {
		v["request_id"] = requestID
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
