package queue

import "testing"

func TestDefaultRetryPolicyExhaustsAtFiveAttempts(t *testing.T) {
	p := DefaultRetryPolicy()
	for attempt := 1; attempt <= 5; attempt++ {
		d := p.Next("job-1", attempt)
		if d.ToDLQ {
			t.Fatalf("attempt %d: expected retry, got dead-letter (%s)", attempt, d.Reason)
		}
		if d.Delay <= 0 {
			t.Fatalf("attempt %d: expected positive delay", attempt)
		}
	}
	d := p.Next("job-1", 6)
	if !d.ToDLQ {
		t.Fatalf("expected dead-letter after max attempts, got %+v", d)
	}
}

func TestRetryPolicyDeterministicJitter(t *testing.T) {
	p := DefaultRetryPolicy()
	a := p.Next("job-1", 2)
	b := p.Next("job-1", 2)
	if a.Delay != b.Delay {
		t.Fatalf("expected identical jittered delay for identical inputs, got %v vs %v", a.Delay, b.Delay)
	}
	c := p.Next("job-2", 2)
	if c.Delay == a.Delay {
		t.Fatalf("expected different job id to change jittered delay")
	}
}

func TestRetryPolicyDelayGrowsExponentially(t *testing.T) {
	p := DefaultRetryPolicy()
	p.JitterPct = 0
	d1 := p.Next("job-1", 1).Delay
	d2 := p.Next("job-1", 2).Delay
	if d2 <= d1 {
		t.Fatalf("expected delay to grow: %v then %v", d1, d2)
	}
}

func TestRetryPolicyValidateRejectsBadMultiplier(t *testing.T) {
	p := DefaultRetryPolicy()
	p.Multiplier = 0.5
	if err := p.Validate(); err == nil {
		t.Fatalf("expected validation error for multiplier < 1 with attempts > 0")
	}
}
