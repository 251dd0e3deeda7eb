package jobs

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/testhelpers"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/uploads"
)

func newQueue(t *testing.T) (*Queue, *redis.Client) {
	t.Helper()
	_, rdb := testhelpers.SetupTestRedis(t)
	return NewQueue(rdb), rdb
}

func TestQueueFIFOAndAck(t *testing.T) {
	ctx := context.Background()
	q, rdb := newQueue(t)

	first := &Job{Type: TypeGenerateQuestions, SessionID: "s1"}
	second := &Job{Type: TypeEvaluateAnswer, SessionID: "s2", QuestionIndex: 3}
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.EnqueuedAt.IsZero())

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, TypeGenerateQuestions, got.Type)

	pending, processing, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
	assert.Equal(t, int64(1), processing)
	assert.True(t, rdb.HExists(ctx, LeasesKey, got.ID).Val())

	require.NoError(t, q.Ack(ctx, got))
	_, processing, err = q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), processing)
	assert.False(t, rdb.HExists(ctx, LeasesKey, got.ID).Val())

	next, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, second.ID, next.ID)
	assert.Equal(t, 3, next.QuestionIndex)
}

func TestQueueDequeueEmpty(t *testing.T) {
	q, _ := newQueue(t)
	_, err := q.Dequeue(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestQueueDropsPoisonPayload(t *testing.T) {
	ctx := context.Background()
	q, rdb := newQueue(t)
	require.NoError(t, rdb.LPush(ctx, QueueKey, "not json").Err())

	_, err := q.Dequeue(ctx, time.Second)
	require.Error(t, err)
	assert.Equal(t, int64(0), rdb.LLen(ctx, ProcessingKey).Val())
}

func TestQueueRetryGoesToTail(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue(t)

	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer, SessionID: "a"}))
	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer, SessionID: "b"}))

	a, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NoError(t, q.Retry(ctx, a))

	b, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "b", b.SessionID)

	again, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "a", again.SessionID)
	assert.Equal(t, 1, again.Attempts)
}

func TestQueueReleaseGoesToHead(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue(t)

	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer, SessionID: "a"}))
	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer, SessionID: "b"}))

	a, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NoError(t, q.Release(ctx, a))

	again, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "a", again.SessionID)
	assert.Equal(t, 0, again.Attempts)
}

func TestQueueRequeueStale(t *testing.T) {
	ctx := context.Background()
	q, rdb := newQueue(t)

	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer, SessionID: "stale"}))
	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer, SessionID: "fresh"}))

	stale, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	_, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	old := time.Now().Add(-time.Hour).UnixMilli()
	require.NoError(t, rdb.HSet(ctx, LeasesKey, stale.ID, old).Err())

	moved, err := q.RequeueStale(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	pending, processing, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
	assert.Equal(t, int64(1), processing)

	back, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "stale", back.SessionID)
}

func TestQueueRequeueStaleStampsMissingLease(t *testing.T) {
	ctx := context.Background()
	q, rdb := newQueue(t)

	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer, SessionID: "x"}))
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NoError(t, rdb.HDel(ctx, LeasesKey, job.ID).Err())

	moved, err := q.RequeueStale(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, moved)
	assert.True(t, rdb.HExists(ctx, LeasesKey, job.ID).Val())
}

func startPool(t *testing.T, q *Queue, maxAttempts int, run HandlerFunc, onFail FailureFunc) {
	t.Helper()
	pool := NewWorkerPool(q, PoolOptions{Workers: 2, MaxAttempts: maxAttempts, PollTimeout: time.Second}, zap.NewNop())
	pool.Register(TypeEvaluateAnswer, run, onFail)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for worker")
	}
}

func TestWorkerPoolAcksSuccessfulJobs(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue(t)
	done := make(chan struct{})

	startPool(t, q, 3, func(ctx context.Context, job *Job) error {
		assert.Equal(t, "s1", job.SessionID)
		close(done)
		return nil
	}, func(ctx context.Context, job *Job, err error) {
		t.Errorf("unexpected failure: %v", err)
	})

	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer, SessionID: "s1"}))
	waitFor(t, done)

	assert.Eventually(t, func() bool {
		pending, processing, err := q.Len(ctx)
		return err == nil && pending == 0 && processing == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWorkerPoolRetriesThenGivesUp(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue(t)
	var calls int32
	failed := make(chan struct{})
	var lastAttempt int32

	startPool(t, q, 3, func(ctx context.Context, job *Job) error {
		atomic.AddInt32(&calls, 1)
		atomic.StoreInt32(&lastAttempt, int32(job.Attempts))
		return errors.New("transient")
	}, func(ctx context.Context, job *Job, err error) {
		close(failed)
	})

	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer, SessionID: "s1"}))
	waitFor(t, failed)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&lastAttempt))
}

func TestWorkerPoolPermanentErrorSkipsRetries(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue(t)
	var calls int32
	failed := make(chan error, 1)

	startPool(t, q, 5, func(ctx context.Context, job *Job) error {
		atomic.AddInt32(&calls, 1)
		return Permanent(errors.New("bad input"))
	}, func(ctx context.Context, job *Job, err error) {
		failed <- err
	})

	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer}))
	select {
	case err := <-failed:
		assert.True(t, IsPermanent(err))
		assert.Equal(t, "bad input", err.Error())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for failure")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWorkerPoolRecoversPanics(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue(t)
	failed := make(chan error, 1)

	startPool(t, q, 3, func(ctx context.Context, job *Job) error {
		panic("boom")
	}, func(ctx context.Context, job *Job, err error) {
		failed <- err
	})

	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer}))
	select {
	case err := <-failed:
		assert.Contains(t, err.Error(), "panicked")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for failure")
	}
}

func TestWorkerPoolReleasesJobOnShutdown(t *testing.T) {
	ctx := context.Background()
	q, rdb := newQueue(t)
	started := make(chan struct{})
	var once sync.Once
	var failures int32

	pool := NewWorkerPool(q, PoolOptions{Workers: 1, MaxAttempts: 3, PollTimeout: 100 * time.Millisecond}, zap.NewNop())
	pool.Register(TypeEvaluateAnswer, func(ctx context.Context, job *Job) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return ctx.Err()
	}, func(ctx context.Context, job *Job, err error) {
		atomic.AddInt32(&failures, 1)
	})
	pool.Start(ctx)

	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer, SessionID: "s1", AudioPath: "/uploads/s1.webm"}))
	waitFor(t, started)
	pool.Stop()

	assert.Equal(t, int64(1), rdb.LLen(ctx, QueueKey).Val())
	assert.Equal(t, int64(0), rdb.LLen(ctx, ProcessingKey).Val())
	assert.Equal(t, int32(0), atomic.LoadInt32(&failures))

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, job.Attempts)
	assert.Equal(t, "/uploads/s1.webm", job.AudioPath)
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("x")))
}

func TestSweeperRequeuesAndCleansUploads(t *testing.T) {
	ctx := context.Background()
	q, rdb := newQueue(t)
	store, err := uploads.NewStore(t.TempDir())
	require.NoError(t, err)

	oldUpload, err := store.Save("s1", "a.webm", strings.NewReader("x"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldUpload, past, past))

	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer, SessionID: "s1"}))
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NoError(t, rdb.HSet(ctx, LeasesKey, job.ID, past.UnixMilli()).Err())

	sweeper := NewSweeper(q, store, 10*time.Minute, time.Hour, zap.NewNop())
	sweeper.Sweep(ctx)

	pending, processing, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
	assert.Equal(t, int64(0), processing)

	_, err = os.Stat(oldUpload)
	assert.True(t, os.IsNotExist(err))
}

func TestSweeperKeepsAudioOfQueuedJobs(t *testing.T) {
	ctx := context.Background()
	q, _ := newQueue(t)
	store, err := uploads.NewStore(t.TempDir())
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	waiting, err := store.Save("s1", "a.webm", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(waiting, past, past))
	claimed, err := store.Save("s2", "a.webm", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(claimed, past, past))
	orphan, err := store.Save("s3", "a.webm", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(orphan, past, past))

	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer, SessionID: "s2", AudioPath: claimed}))
	_, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, &Job{Type: TypeEvaluateAnswer, SessionID: "s1", AudioPath: waiting}))

	NewSweeper(q, store, time.Hour, time.Hour, zap.NewNop()).Sweep(ctx)

	_, err = os.Stat(waiting)
	assert.NoError(t, err, "audio of a waiting job was removed")
	_, err = os.Stat(claimed)
	assert.NoError(t, err, "audio of a claimed job was removed")
	_, err = os.Stat(orphan)
	assert.True(t, os.IsNotExist(err))
}

func TestSweeperStartRejectsBadSchedule(t *testing.T) {
	q, _ := newQueue(t)
	sweeper := NewSweeper(q, nil, time.Minute, time.Hour, zap.NewNop())
	assert.Error(t, sweeper.Start("not a schedule"))

	require.NoError(t, sweeper.Start("@every 1h"))
	sweeper.Stop()
}
