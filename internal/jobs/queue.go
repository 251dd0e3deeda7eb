package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Type string

const (
	TypeGenerateQuestions Type = "generate_questions"
	TypeEvaluateAnswer    Type = "evaluate_answer"
)

const (
	QueueKey      = "interview:jobs"
	ProcessingKey = "interview:jobs:processing"
	LeasesKey     = "interview:jobs:leases" // job id -> unix ms it was claimed
)

// ErrEmpty is returned by Dequeue when no job arrived before the timeout.
var ErrEmpty = errors.New("jobs: queue empty")

// Job is one unit of background AI work. It is stored as JSON in Redis.
type Job struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	SessionID     string    `json:"sessionId"`
	UserID        string    `json:"userId"`
	Count         int       `json:"count,omitempty"`
	QuestionIndex int       `json:"questionIndex"`
	AudioPath     string    `json:"audioPath,omitempty"`
	Code          string    `json:"code,omitempty"`
	Attempts      int       `json:"attempts"`
	EnqueuedAt    time.Time `json:"enqueuedAt"`

	raw string // exact payload as claimed, used to remove it from the processing list
}

// Queue is a reliable Redis list queue. Claimed jobs sit on a processing list
// until acknowledged, so a crashed worker never loses them.
type Queue struct {
	rdb *redis.Client
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.rdb.LPush(ctx, QueueKey, data).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	job.raw = string(data)
	return nil
}

// Dequeue blocks up to timeout for the oldest job and moves it onto the
// processing list.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	raw, err := q.rdb.BLMove(ctx, QueueKey, ProcessingKey, "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// poison payload, drop it so it cannot block the queue
		q.rdb.LRem(ctx, ProcessingKey, 1, raw)
		return nil, fmt.Errorf("decode job: %w", err)
	}
	job.raw = raw

	if err := q.rdb.HSet(ctx, LeasesKey, job.ID, time.Now().UnixMilli()).Err(); err != nil {
		return nil, fmt.Errorf("record lease: %w", err)
	}
	return &job, nil
}

// Ack removes a finished job from the processing list.
func (q *Queue) Ack(ctx context.Context, job *Job) error {
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, ProcessingKey, 1, job.raw)
		pipe.HDel(ctx, LeasesKey, job.ID)
		return nil
	})
	return err
}

// Retry acknowledges the claimed copy and enqueues it again with one more
// attempt recorded.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	next := *job
	next.Attempts++
	return q.replace(ctx, job, &next, false)
}

// Release puts a claimed job back without counting an attempt, used when a
// worker shuts down mid-job.
func (q *Queue) Release(ctx context.Context, job *Job) error {
	next := *job
	return q.replace(ctx, job, &next, true)
}

// replace swaps a claimed job for next, at the head of the queue when front
// is set and at the tail otherwise.
func (q *Queue) replace(ctx context.Context, old, next *Job, front bool) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, ProcessingKey, 1, old.raw)
		pipe.HDel(ctx, LeasesKey, old.ID)
		if front {
			pipe.RPush(ctx, QueueKey, data)
		} else {
			pipe.LPush(ctx, QueueKey, data)
		}
		return nil
	})
	if err != nil {
		return err
	}
	next.raw = string(data)
	return nil
}

// RequeueStale moves jobs claimed longer than olderThan ago back onto the
// queue and returns how many were moved.
func (q *Queue) RequeueStale(ctx context.Context, olderThan time.Duration) (int, error) {
	claimed, err := q.rdb.LRange(ctx, ProcessingKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan).UnixMilli()
	moved := 0
	for _, raw := range claimed {
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			q.rdb.LRem(ctx, ProcessingKey, 1, raw)
			continue
		}

		lease, err := q.rdb.HGet(ctx, LeasesKey, job.ID).Result()
		if errors.Is(err, redis.Nil) {
			// claimed but the lease is not written yet; start the clock now
			q.rdb.HSetNX(ctx, LeasesKey, job.ID, time.Now().UnixMilli())
			continue
		}
		if err != nil {
			return moved, err
		}
		if claimedAt, perr := strconv.ParseInt(lease, 10, 64); perr == nil && claimedAt > cutoff {
			continue
		}

		// the worker may ack concurrently, only requeue if we removed it
		removed, err := q.rdb.LRem(ctx, ProcessingKey, 1, raw).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.RPush(ctx, QueueKey, raw).Err(); err != nil {
			return moved, err
		}
		q.rdb.HDel(ctx, LeasesKey, job.ID)
		moved++
	}
	return moved, nil
}

// AudioPaths returns the uploads still referenced by waiting or claimed
// jobs.
func (q *Queue) AudioPaths(ctx context.Context) (map[string]bool, error) {
	paths := make(map[string]bool)
	for _, key := range []string{QueueKey, ProcessingKey} {
		raws, err := q.rdb.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return nil, err
		}
		for _, raw := range raws {
			var job Job
			if err := json.Unmarshal([]byte(raw), &job); err == nil && job.AudioPath != "" {
				paths[job.AudioPath] = true
			}
		}
	}
	return paths, nil
}

// Len reports the number of waiting and claimed jobs.
func (q *Queue) Len(ctx context.Context) (pending, processing int64, err error) {
	if pending, err = q.rdb.LLen(ctx, QueueKey).Result(); err != nil {
		return 0, 0, err
	}
	if processing, err = q.rdb.LLen(ctx, ProcessingKey).Result(); err != nil {
		return 0, 0, err
	}
	return pending, processing, nil
}

// Ping checks the Redis connection.
func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
