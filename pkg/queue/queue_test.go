package queue

import (
	"testing"
	"time"
)

func TestJobValidate(t *testing.T) {
	valid := Job{ID: "deadline:D-1:1000:delivery:0", Queue: "deadlines", FireAt: time.Now()}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid job, got %v", err)
	}

	cases := []Job{
		{ID: "", Queue: "deadlines"},
		{ID: "x", Queue: ""},
		{ID: "x", Queue: "deadlines", Attempt: -1},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected error for %+v", i, c)
		}
	}
}

func TestJobValidateOversizedPayload(t *testing.T) {
	j := Job{ID: "x", Queue: "deadlines", Payload: make([]byte, MaxPayloadBytes+1)}
	if err := j.Validate(); err == nil {
		t.Fatalf("expected oversize error")
	}
}
