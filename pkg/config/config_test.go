package config

import "testing"

func TestLoadRequiresRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("HELIUS_WEBHOOK_SECRET", "s3cr3t")
	_, err := Load()
	if err == nil {
		t.Fatalf("expected error when REDIS_URL missing")
	}
}

func TestLoadRequiresWebhookSecret(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("HELIUS_WEBHOOK_SECRET", "")
	_, err := Load()
	if err == nil {
		t.Fatalf("expected error when HELIUS_WEBHOOK_SECRET missing")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("HELIUS_WEBHOOK_SECRET", "s3cr3t")
	t.Setenv("WORKER_CONCURRENCY", "")
	t.Setenv("AUTO_FINALIZE_RELEASE", "")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.WorkerConcurrency != 5 {
		t.Fatalf("expected default concurrency 5, got %d", c.WorkerConcurrency)
	}
	if c.AutoFinalizeRelease != false {
		t.Fatalf("expected strict-default false for auto finalize")
	}
	if c.NotifyDriver != "noop" {
		t.Fatalf("expected default notify driver noop, got %q", c.NotifyDriver)
	}
}

func TestBoolFromEnvAcceptsAllTruthyForms(t *testing.T) {
	for _, v := range []string{"true", "1", "yes", "on", "TRUE", "On"} {
		t.Setenv("AUTO_FINALIZE_REFUND", v)
		t.Setenv("REDIS_URL", "redis://localhost:6379")
		t.Setenv("HELIUS_WEBHOOK_SECRET", "s3cr3t")
		c, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !c.AutoFinalizeRefund {
			t.Fatalf("expected %q to parse as true", v)
		}
	}
}

func TestBoolFromEnvRejectsOtherStrings(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("HELIUS_WEBHOOK_SECRET", "s3cr3t")
	t.Setenv("AUTO_FINALIZE_REFUND", "enabled")
	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.AutoFinalizeRefund {
		t.Fatalf("expected non-recognized value to default false")
	}
}
