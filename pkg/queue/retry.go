package queue

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"
)

var ErrRetryInvalid = errors.New("queue: retry policy invalid")

// RetryPolicy computes exponential backoff with deterministic jitter.
type RetryPolicy struct {
	Enabled      bool          `json:"enabled"`
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
	JitterPct    float64       `json:"jitter_pct"`
}

// DefaultRetryPolicy matches the at-least-once delivery contract: 5
// attempts, 1s base delay, doubling, capped at 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Enabled:      true,
		MaxAttempts:  5,
		InitialDelay: 1000 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterPct:    0.1,
	}
}

func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 0 {
		return fmt.Errorf("%w: max_attempts", ErrRetryInvalid)
	}
	if p.InitialDelay < 0 {
		return fmt.Errorf("%w: initial_delay", ErrRetryInvalid)
	}
	if p.MaxDelay < 0 {
		return fmt.Errorf("%w: max_delay", ErrRetryInvalid)
	}
	if p.Multiplier < 1.0 && p.MaxAttempts > 0 {
		return fmt.Errorf("%w: multiplier", ErrRetryInvalid)
	}
	if p.JitterPct < 0 || p.JitterPct >= 1.0 {
		return fmt.Errorf("%w: jitter_pct", ErrRetryInvalid)
	}
	if p.MaxDelay > 0 && p.InitialDelay > p.MaxDelay {
		return fmt.Errorf("%w: initial_delay > max_delay", ErrRetryInvalid)
	}
	return nil
}

// RetryDecision is the outcome of Next.
type RetryDecision struct {
	Delay  time.Duration
	ToDLQ  bool
	Reason string
}

// Next computes the retry decision for a job's next attempt (1-based,
// post-failure attempt count).
func (p RetryPolicy) Next(jobID string, attempt int) RetryDecision {
	if !p.Enabled {
		return RetryDecision{ToDLQ: true, Reason: "retries_disabled"}
	}
	if attempt <= 0 {
		return RetryDecision{ToDLQ: true, Reason: "invalid_attempt"}
	}
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return RetryDecision{ToDLQ: true, Reason: fmt.Sprintf("max_attempts_exceeded:%d", p.MaxAttempts)}
	}
	if err := p.Validate(); err != nil {
		return RetryDecision{ToDLQ: true, Reason: "invalid_policy"}
	}

	base := float64(p.InitialDelay)
	if base <= 0 {
		base = float64(1000 * time.Millisecond)
	}
	mult := p.Multiplier
	if mult < 1.0 {
		mult = 2.0
	}
	exp := math.Pow(mult, float64(attempt-1))
	raw := time.Duration(base * exp)

	maxD := p.MaxDelay
	if maxD <= 0 {
		maxD = 30 * time.Second
	}
	if raw > maxD {
		raw = maxD
	}
	if p.JitterPct <= 0 {
		return RetryDecision{Delay: raw, Reason: "ok"}
	}
	return RetryDecision{Delay: jitter(raw, p.JitterPct, jobID, attempt), Reason: "ok_jittered"}
}

// jitter applies deterministic +/-pct jitter derived from FNV-1a(jobID:attempt).
func jitter(base time.Duration, pct float64, jobID string, attempt int) time.Duration {
	jid := strings.TrimSpace(jobID)
	if jid == "" {
		jid = "unknown"
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(jid))
	_, _ = h.Write([]byte(":"))
	_, _ = h.Write([]byte(fmt.Sprintf("%d", attempt)))
	sum := h.Sum64()

	u := float64(sum%1000000) / 1000000.0
	x := (u * 2.0) - 1.0
	factor := 1.0 + (x * pct)

	d := time.Duration(float64(base) * factor)
	if d < 0 {
		d = 0
	}
	return d
}
