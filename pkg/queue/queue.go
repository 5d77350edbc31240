// Package queue defines the Queue Substrate contracts: a delayed,
// dedup-on-add job queue. Jobs are added with a deterministic identity
// string and a fire time; a job already present under the same identity
// is a no-op. This package holds contracts and the Redis-backed
// implementation; callers that only need the contracts can depend on
// the interfaces without pulling in go-redis.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Name identifies a queue ("deadlines", "reminders", "escalation").
type Name string

const (
	MaxPayloadBytes = 256 * 1024
	MaxIDLen        = 512
)

var (
	ErrEmpty    = errors.New("queue: empty")
	ErrClosed   = errors.New("queue: closed")
	ErrInvalid  = errors.New("queue: invalid")
	ErrOversize = errors.New("queue: oversize")
)

// Job is the unit scheduled onto a queue.
type Job struct {
	// ID is the deterministic identity string computed by pkg/jobident.
	// Adding a job whose ID is already pending/in-flight is a no-op.
	ID string `json:"id"`

	Queue Name `json:"queue"`

	// FireAt is when the job becomes eligible for delivery.
	FireAt time.Time `json:"fire_at"`

	// Attempt is backend-managed; 0 on first delivery.
	Attempt int `json:"attempt,omitempty"`

	// Payload is the job body (JSON-encoded by the caller).
	Payload []byte `json:"payload,omitempty"`
}

// Validate enforces bounds producers must respect.
func (j Job) Validate() error {
	if strings.TrimSpace(j.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if len(j.ID) > MaxIDLen {
		return fmt.Errorf("%w: id too long", ErrInvalid)
	}
	if strings.TrimSpace(string(j.Queue)) == "" {
		return fmt.Errorf("%w: queue is required", ErrInvalid)
	}
	if len(j.Payload) > MaxPayloadBytes {
		return fmt.Errorf("%w: payload exceeds %d bytes", ErrOversize, MaxPayloadBytes)
	}
	if j.Attempt < 0 {
		return fmt.Errorf("%w: attempt cannot be negative", ErrInvalid)
	}
	return nil
}

// Delivery is a leased job handed to a worker.
type Delivery struct {
	Job     Job
	Receipt string // opaque token needed for Ack/Nack
}

// Producer schedules and cancels jobs.
type Producer interface {
	// Add schedules job for delivery at job.FireAt. If a job with the
	// same ID is already pending, ready, or in-flight, Add is a no-op
	// and returns nil. Once a job is acked or dead-lettered its ID can
	// be scheduled again.
	Add(ctx context.Context, job Job) error

	// CancelByID removes a pending job. Returns nil whether or not the
	// id was present — cancel is idempotent by design (a terminal-state
	// deal may cancel the same job id more than once).
	CancelByID(ctx context.Context, queue Name, id string) error
}

// Consumer leases due jobs for processing.
type Consumer interface {
	// Dequeue blocks up to pollTimeout waiting for a due job. Returns
	// ErrEmpty if none became available in that window.
	Dequeue(ctx context.Context, queue Name, pollTimeout time.Duration) (Delivery, error)

	// Ack permanently removes a leased job.
	Ack(ctx context.Context, queue Name, receipt string) error

	// Nack returns a leased job to the queue after delay, incrementing
	// its attempt count.
	Nack(ctx context.Context, queue Name, receipt string, delay time.Duration) error

	// NackToDeadLetter moves a leased job to the dead-letter retention
	// list instead of requeueing it.
	NackToDeadLetter(ctx context.Context, queue Name, receipt string, reason string) error
}

// PrefixCanceler is implemented by substrates that can remove every
// pending job whose identity starts with a given prefix in one call —
// used to clear all outstanding timers for a deal that has reached a
// terminal state, per the identity scheme in pkg/jobident.
type PrefixCanceler interface {
	CancelPrefix(ctx context.Context, queue Name, prefix string) (int, error)
}

// Queue combines Producer and Consumer, the full substrate contract.
type Queue interface {
	Producer
	Consumer
}
