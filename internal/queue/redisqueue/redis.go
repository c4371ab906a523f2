// Package redisqueue implements queue.DispatchQueue on top of Redis sorted
// sets, grounded on the scheduled-jobs ZSET pattern used for delayed job
// queues: a ZADD with the due Unix timestamp as score, and a ZRANGEBYSCORE
// scan (0, now] to find due work.
package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/open-crosspost/scheduler-service/internal/queue"
	"github.com/open-crosspost/scheduler-service/internal/schedule"
)

const (
	dispatchSetKey = "scheduler:dispatch"
	dlqHashKey     = "scheduler:dlq"
)

// entryPayload is the JSON member stored in the dispatch ZSET. Its job_id is
// duplicated into the ZSET member (rather than keeping only a bare UUID) so
// the repeat plan survives the round trip to Consume. Cron carries the cron
// expression for a CRON registration; Every carries the fixed period for a
// RECURRING registration with a fixed-duration unit. At most one is set.
// Due is set only on one-shot entries (neither Cron nor Every), so two
// one-shot entries for the same job at different times are distinct members.
type entryPayload struct {
	JobID uuid.UUID     `json:"job_id"`
	Cron  string        `json:"cron,omitempty"`
	Every time.Duration `json:"every,omitempty"`
	Due   int64         `json:"due,omitempty"`
}

func (p entryPayload) plan() schedule.RepeatPlan {
	return schedule.RepeatPlan{Cron: p.Cron, Every: p.Every}
}

// Queue is the Redis-backed DispatchQueue.
type Queue struct {
	client redis.Cmdable
}

// New wraps an existing Redis client (or cluster client) as a DispatchQueue.
func New(client redis.Cmdable) *Queue {
	return &Queue{client: client}
}

func (q *Queue) EnqueueDelayed(ctx context.Context, jobID uuid.UUID, dueAt time.Time) error {
	return q.add(ctx, jobID, dueAt, schedule.RepeatPlan{})
}

func (q *Queue) EnqueueRepeating(ctx context.Context, jobID uuid.UUID, dueAt time.Time, plan schedule.RepeatPlan) error {
	return q.add(ctx, jobID, dueAt, plan)
}

func (q *Queue) add(ctx context.Context, jobID uuid.UUID, dueAt time.Time, plan schedule.RepeatPlan) error {
	p := entryPayload{JobID: jobID, Cron: plan.Cron, Every: plan.Every}
	if plan.IsZero() {
		p.Due = dueAt.Unix()
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal dispatch entry: %w", err)
	}

	err = q.client.ZAdd(ctx, dispatchSetKey, redis.Z{
		Score:  float64(dueAt.Unix()),
		Member: payload,
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	return nil
}

// Remove cancels every pending entry for jobID. A job can have more than one
// live dispatch entry (RunNow adds a one-shot entry beside the job's own
// registration), so Remove scans the whole set and removes each match.
func (q *Queue) Remove(ctx context.Context, jobID uuid.UUID) error {
	members, err := q.client.ZRange(ctx, dispatchSetKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("scan dispatch queue: %w", err)
	}

	for _, m := range members {
		var p entryPayload
		if err := json.Unmarshal([]byte(m), &p); err != nil {
			continue
		}
		if p.JobID == jobID {
			if err := q.client.ZRem(ctx, dispatchSetKey, m).Err(); err != nil {
				return fmt.Errorf("remove job %s: %w", jobID, err)
			}
		}
	}
	return nil
}

// Consume claims up to max entries due at or before now, removing them from
// the ZSET. Each entry is removed via ZREM keyed on its exact serialized
// member, so two workers racing the same ZRANGEBYSCORE scan can't both
// successfully remove it — the loser's ZREM is a no-op and it simply drops
// that entry, which is the at-least-once (not exactly-once) guarantee
// spec.md §5 calls for.
func (q *Queue) Consume(ctx context.Context, max int) ([]queue.Entry, error) {
	now := time.Now()
	members, err := q.client.ZRangeByScoreWithScores(ctx, dispatchSetKey, &redis.ZRangeBy{
		Min:   "0",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: int64(max),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("scan due entries: %w", err)
	}

	entries := make([]queue.Entry, 0, len(members))
	for _, z := range members {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}

		removed, err := q.client.ZRem(ctx, dispatchSetKey, member).Result()
		if err != nil || removed == 0 {
			continue // another worker claimed it first
		}

		var p entryPayload
		if err := json.Unmarshal([]byte(member), &p); err != nil {
			continue
		}
		dueAt := time.Unix(int64(z.Score), 0)
		plan := p.plan()
		entries = append(entries, queue.Entry{
			JobID: p.JobID,
			DueAt: dueAt,
			Plan:  plan,
		})

		if plan.IsZero() {
			continue
		}
		next, err := plan.NextOccurrence(dueAt)
		if err != nil {
			slog.Error("compute next occurrence for repeating entry", "job_id", p.JobID, "error", err)
			continue
		}
		if err := q.add(ctx, p.JobID, next, plan); err != nil {
			slog.Error("re-arm repeating entry", "job_id", p.JobID, "error", err)
		}
	}
	return entries, nil
}

// dlqPayload is the JSON value stored per-job in the DLQ hash.
type dlqPayload struct {
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
	Attempts int       `json:"attempts"`
}

func (q *Queue) EnqueueDLQ(ctx context.Context, entry queue.DLQEntry) error {
	payload, err := json.Marshal(dlqPayload{
		Reason:   entry.Reason,
		FailedAt: entry.FailedAt,
		Attempts: entry.Attempts,
	})
	if err != nil {
		return fmt.Errorf("marshal dlq entry: %w", err)
	}
	if err := q.client.HSet(ctx, dlqHashKey, entry.JobID.String(), payload).Err(); err != nil {
		return fmt.Errorf("dead-letter job %s: %w", entry.JobID, err)
	}
	return nil
}

func (q *Queue) RemoveDLQ(ctx context.Context, jobID uuid.UUID) error {
	if err := q.client.HDel(ctx, dlqHashKey, jobID.String()).Err(); err != nil {
		return fmt.Errorf("remove dlq entry %s: %w", jobID, err)
	}
	return nil
}

func (q *Queue) ListDLQ(ctx context.Context) ([]queue.DLQEntry, error) {
	all, err := q.client.HGetAll(ctx, dlqHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list dlq: %w", err)
	}

	entries := make([]queue.DLQEntry, 0, len(all))
	for idStr, raw := range all {
		jobID, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		var p dlqPayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			continue
		}
		entries = append(entries, queue.DLQEntry{
			JobID:    jobID,
			Reason:   p.Reason,
			FailedAt: p.FailedAt,
			Attempts: p.Attempts,
		})
	}
	return entries, nil
}

var _ queue.DispatchQueue = (*Queue)(nil)
