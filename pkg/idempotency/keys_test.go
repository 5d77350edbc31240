package idempotency

import "testing"

func TestNotificationKeyDeterministic(t *testing.T) {
	a, err := NotificationKey("D-1", "deadline-upcoming", "buyer", "2026-07-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NotificationKey("D-1", "deadline-upcoming", "buyer", "2026-07-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("expected deterministic key, got %q vs %q", a, b)
	}
}

func TestNotificationKeyChangesWithDayBucket(t *testing.T) {
	a, _ := NotificationKey("D-1", "deadline-upcoming", "buyer", "2026-07-29")
	b, _ := NotificationKey("D-1", "deadline-upcoming", "buyer", "2026-07-30")
	if a == b {
		t.Fatalf("expected different day bucket to change key")
	}
}

func TestParseKeyRoundTrip(t *testing.T) {
	k, err := NotificationKey("D-1", "no-ack", "seller", "2026-07-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parts, err := ParseKey(k)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if parts.Version != KeyVersion || parts.Scope != "notify" || len(parts.Hash) != 64 {
		t.Fatalf("unexpected parts: %+v", parts)
	}
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	cases := []string{"", "v1:notify", "v2:notify:abc", "v1:notify:not-hex-and-wrong-len"}
	for _, c := range cases {
		if err := ValidateKey(c); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}
