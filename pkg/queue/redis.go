package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultVisibility = 30 * time.Second

	completedRetention = 1 * time.Hour
	completedCap       = 1000
	failedRetention    = 24 * time.Hour
	failedCap          = 1000
)

// RedisQueue is the Queue Substrate backed by Redis. Pending jobs for a
// queue live in a sorted set scored by fire-time (unix millis), members
// are the job's own deterministic identity string; due jobs are
// promoted into a list that Dequeue pops from. Dedup-on-add is a SETNX
// on the job body keyed by that same identity, so a second Add for the
// same id is a no-op regardless of which node performs it. Keeping the
// identity string as the member (rather than hashing it) is what lets
// CancelPrefix find every outstanding timer for a deal without a
// separate index.
type RedisQueue struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisQueue wraps an existing client. prefix namespaces all keys
// (e.g. "escrow") so a shared Redis instance can host multiple queues.
func NewRedisQueue(rdb *redis.Client, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "escrow"
	}
	return &RedisQueue{rdb: rdb, prefix: prefix}
}

func (q *RedisQueue) pendingKey(queue Name) string {
	return fmt.Sprintf("%s:{%s}:pending", q.prefix, queue)
}
func (q *RedisQueue) readyKey(queue Name) string {
	return fmt.Sprintf("%s:{%s}:ready", q.prefix, queue)
}
func (q *RedisQueue) jobKey(queue Name, id string) string {
	return fmt.Sprintf("%s:{%s}:job:%s", q.prefix, queue, id)
}
func (q *RedisQueue) inflightKey(queue Name) string { return fmt.Sprintf("%s:{%s}:inflight", q.prefix, queue) }
func (q *RedisQueue) completedKey(queue Name) string {
	return fmt.Sprintf("%s:{%s}:completed", q.prefix, queue)
}
func (q *RedisQueue) failedKey(queue Name) string { return fmt.Sprintf("%s:{%s}:failed", q.prefix, queue) }

type storedJob struct {
	ID      string `json:"id"`
	Queue   Name   `json:"queue"`
	FireAt  int64  `json:"fire_at_ms"`
	Attempt int    `json:"attempt"`
	Payload []byte `json:"payload,omitempty"`
}

// Add implements Producer. It is a no-op if id is already pending,
// ready, or in-flight.
func (q *RedisQueue) Add(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	sj := storedJob{ID: job.ID, Queue: job.Queue, FireAt: job.FireAt.UnixMilli(), Attempt: job.Attempt, Payload: job.Payload}
	body, err := json.Marshal(sj)
	if err != nil {
		return fmt.Errorf("%w: marshal job: %v", ErrInvalid, err)
	}

	// SETNX the job body first so a concurrent Add with the same id
	// loses the race cleanly, then ZADD the schedule entry keyed by the
	// same identity.
	ok, err := q.rdb.SetNX(ctx, q.jobKey(job.Queue, job.ID), body, 0).Result()
	if err != nil {
		return fmt.Errorf("queue: redis setnx: %w", err)
	}
	if !ok {
		return nil
	}
	if err := q.rdb.ZAdd(ctx, q.pendingKey(job.Queue), redis.Z{
		Score:  float64(sj.FireAt),
		Member: job.ID,
	}).Err(); err != nil {
		return fmt.Errorf("queue: redis zadd: %w", err)
	}
	return nil
}

// CancelByID removes a pending job. Idempotent: absent ids are not an error.
func (q *RedisQueue) CancelByID(ctx context.Context, queue Name, id string) error {
	pipe := q.rdb.TxPipeline()
	pipe.ZRem(ctx, q.pendingKey(queue), id)
	pipe.LRem(ctx, q.readyKey(queue), 0, id)
	pipe.Del(ctx, q.jobKey(queue, id))
	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return fmt.Errorf("queue: redis cancel: %w", err)
	}
	return nil
}

// CancelPrefix cancels every pending job on queue whose identity starts
// with prefix. Used to clear all outstanding timers for a deal once it
// reaches a terminal state.
func (q *RedisQueue) CancelPrefix(ctx context.Context, queue Name, prefix string) (int, error) {
	members, err := q.rdb.ZRange(ctx, q.pendingKey(queue), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: redis zrange: %w", err)
	}
	n := 0
	for _, m := range members {
		if !strings.HasPrefix(m, prefix) {
			continue
		}
		if err := q.CancelByID(ctx, queue, m); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// PromoteDue moves jobs whose fire time has passed from the pending
// sorted set into the ready list. A worker process should call this on
// a short interval (e.g. every 500ms) per queue it serves.
func (q *RedisQueue) PromoteDue(ctx context.Context, queue Name, now time.Time, limit int64) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	due, err := q.rdb.ZRangeByScore(ctx, q.pendingKey(queue), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: redis zrangebyscore: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}
	pipe := q.rdb.TxPipeline()
	for _, member := range due {
		pipe.ZRem(ctx, q.pendingKey(queue), member)
		pipe.RPush(ctx, q.readyKey(queue), member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("queue: redis promote: %w", err)
	}
	return len(due), nil
}

// Dequeue blocks up to pollTimeout for a ready job.
func (q *RedisQueue) Dequeue(ctx context.Context, queue Name, pollTimeout time.Duration) (Delivery, error) {
	if pollTimeout <= 0 {
		pollTimeout = 2 * time.Second
	}
	res, err := q.rdb.BLPop(ctx, pollTimeout, q.readyKey(queue)).Result()
	if err == redis.Nil {
		return Delivery{}, ErrEmpty
	}
	if err != nil {
		return Delivery{}, fmt.Errorf("queue: redis blpop: %w", err)
	}
	if len(res) != 2 {
		return Delivery{}, ErrEmpty
	}
	id := res[1]

	body, err := q.rdb.Get(ctx, q.jobKey(queue, id)).Bytes()
	if err == redis.Nil {
		return Delivery{}, ErrEmpty
	}
	if err != nil {
		return Delivery{}, fmt.Errorf("queue: redis get job: %w", err)
	}
	var sj storedJob
	if err := json.Unmarshal(body, &sj); err != nil {
		return Delivery{}, fmt.Errorf("%w: corrupt stored job: %v", ErrInvalid, err)
	}

	receipt := id
	if err := q.rdb.HSet(ctx, q.inflightKey(queue), receipt, body).Err(); err != nil {
		return Delivery{}, fmt.Errorf("queue: redis hset inflight: %w", err)
	}
	_ = q.rdb.Expire(ctx, q.inflightKey(queue), defaultVisibility*4)

	job := Job{ID: sj.ID, Queue: sj.Queue, FireAt: time.UnixMilli(sj.FireAt), Attempt: sj.Attempt, Payload: sj.Payload}
	return Delivery{Job: job, Receipt: receipt}, nil
}

// Ack permanently removes a leased job and records completion for the
// retention window.
func (q *RedisQueue) Ack(ctx context.Context, queue Name, receipt string) error {
	pipe := q.rdb.TxPipeline()
	pipe.HDel(ctx, q.inflightKey(queue), receipt)
	pipe.Del(ctx, q.jobKey(queue, receipt))
	pipe.LPush(ctx, q.completedKey(queue), receipt)
	pipe.LTrim(ctx, q.completedKey(queue), 0, completedCap-1)
	pipe.Expire(ctx, q.completedKey(queue), completedRetention)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("queue: redis ack: %w", err)
	}
	return nil
}

// Nack returns a leased job to the pending set after delay, bumping its
// attempt count.
func (q *RedisQueue) Nack(ctx context.Context, queue Name, receipt string, delay time.Duration) error {
	body, err := q.rdb.HGet(ctx, q.inflightKey(queue), receipt).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("queue: redis hget inflight: %w", err)
	}
	var sj storedJob
	if err := json.Unmarshal(body, &sj); err != nil {
		return fmt.Errorf("%w: corrupt inflight job: %v", ErrInvalid, err)
	}
	sj.Attempt++
	fireAt := time.Now().Add(delay)
	sj.FireAt = fireAt.UnixMilli()
	newBody, err := json.Marshal(sj)
	if err != nil {
		return fmt.Errorf("%w: remarshal job: %v", ErrInvalid, err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.HDel(ctx, q.inflightKey(queue), receipt)
	pipe.Set(ctx, q.jobKey(queue, receipt), newBody, 0)
	pipe.ZAdd(ctx, q.pendingKey(queue), redis.Z{Score: float64(sj.FireAt), Member: receipt})
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("queue: redis nack: %w", err)
	}
	return nil
}

// NackToDeadLetter moves a leased job into the failed retention list
// instead of requeueing it.
func (q *RedisQueue) NackToDeadLetter(ctx context.Context, queue Name, receipt string, reason string) error {
	record := map[string]any{"receipt": receipt, "reason": reason, "failed_at_ms": time.Now().UnixMilli()}
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: marshal dlq record: %v", ErrInvalid, err)
	}
	pipe := q.rdb.TxPipeline()
	pipe.HDel(ctx, q.inflightKey(queue), receipt)
	pipe.Del(ctx, q.jobKey(queue, receipt))
	pipe.LPush(ctx, q.failedKey(queue), body)
	pipe.LTrim(ctx, q.failedKey(queue), 0, failedCap-1)
	pipe.Expire(ctx, q.failedKey(queue), failedRetention)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("queue: redis dlq: %w", err)
	}
	return nil
}

var _ Queue = (*RedisQueue)(nil)
