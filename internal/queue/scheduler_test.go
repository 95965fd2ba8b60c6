package queue

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codepractice-api/internal/observability"
)

type recorder struct {
	mu   sync.Mutex
	seen []uint
	done chan struct{}
	want int
}

func newRecorder(want int) *recorder {
	return &recorder{done: make(chan struct{}), want: want}
}

func (r *recorder) handle(_ context.Context, id uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, id)
	if len(r.seen) == r.want {
		close(r.done)
	}
}

func (r *recorder) wait(t *testing.T) []uint {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for grading jobs")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := append([]uint(nil), r.seen...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestLocalSchedulerDispatchesEveryJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := NewLocalScheduler(3, 16, zerolog.Nop())
	rec := newRecorder(5)
	require.NoError(t, scheduler.Start(ctx, rec.handle))

	for id := uint(1); id <= 5; id++ {
		require.NoError(t, scheduler.Enqueue(ctx, id))
	}

	require.Equal(t, []uint{1, 2, 3, 4, 5}, rec.wait(t))
	require.NoError(t, scheduler.Close())
}

func TestLocalSchedulerRejectsAfterClose(t *testing.T) {
	scheduler := NewLocalScheduler(1, 1, zerolog.Nop())
	require.NoError(t, scheduler.Start(context.Background(), func(context.Context, uint) {}))
	require.NoError(t, scheduler.Close())

	err := scheduler.Enqueue(context.Background(), 1)
	require.ErrorIs(t, err, ErrSchedulerClosed)
}

func TestLocalSchedulerSurvivesHandlerPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := NewLocalScheduler(1, 4, zerolog.Nop())
	rec := newRecorder(1)
	require.NoError(t, scheduler.Start(ctx, func(ctx context.Context, id uint) {
		if id == 1 {
			panic("boom")
		}
		rec.handle(ctx, id)
	}))

	require.NoError(t, scheduler.Enqueue(ctx, 1))
	require.NoError(t, scheduler.Enqueue(ctx, 2))

	require.Equal(t, []uint{2}, rec.wait(t))
	require.NoError(t, scheduler.Close())
}

func TestLocalSchedulerStopsTakingJobsOnClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := NewLocalScheduler(1, 8, zerolog.Nop())
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var seen []uint
	require.NoError(t, scheduler.Start(ctx, func(_ context.Context, id uint) {
		mu.Lock()
		seen = append(seen, id)
		mu.Unlock()
		if id == 1 {
			close(started)
			<-release
		}
	}))

	for id := uint(1); id <= 5; id++ {
		require.NoError(t, scheduler.Enqueue(ctx, id))
	}
	<-started

	closed := make(chan struct{})
	go func() {
		_ = scheduler.Close()
		close(closed)
	}()
	require.Eventually(t, func() bool {
		select {
		case <-scheduler.pool.done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	close(release)
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("close did not return")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []uint{1}, seen)
	require.Len(t, scheduler.pool.jobs, 4)
}

func TestRedisSchedulerRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := NewRedisScheduler(client, "test:grading", 2, zerolog.Nop())

	// Jobs enqueued before any consumer runs stay in the list.
	require.NoError(t, scheduler.Enqueue(ctx, 7))
	require.NoError(t, scheduler.Enqueue(ctx, 8))
	length, err := client.LLen(ctx, "test:grading").Result()
	require.NoError(t, err)
	require.EqualValues(t, 2, length)

	rec := newRecorder(3)
	require.NoError(t, scheduler.Start(ctx, rec.handle))
	require.NoError(t, scheduler.Enqueue(ctx, 9))

	require.Equal(t, []uint{7, 8, 9}, rec.wait(t))
	require.NoError(t, scheduler.Close())
}

func TestDecodeJobRejectsMissingSubmission(t *testing.T) {
	_, err := decodeJob([]byte(`{"enqueued_at":"2024-01-01T00:00:00Z"}`))
	require.Error(t, err)

	_, err = decodeJob([]byte(`not-json`))
	require.Error(t, err)

	ctx := observability.WithCorrelationID(context.Background(), "req-1")
	payload, err := encodeJob(newJob(ctx, 42))
	require.NoError(t, err)
	j, err := decodeJob(payload)
	require.NoError(t, err)
	require.EqualValues(t, 42, j.SubmissionID)
	require.Equal(t, "req-1", observability.CorrelationIDFromContext(j.context(context.Background())))
}

func TestLocalSchedulerCarriesCorrelationID(t *testing.T) {
	scheduler := NewLocalScheduler(1, 4, zerolog.Nop())
	seen := make(chan string, 1)
	require.NoError(t, scheduler.Start(context.Background(), func(ctx context.Context, _ uint) {
		seen <- observability.CorrelationIDFromContext(ctx)
	}))
	defer scheduler.Close()

	ctx := observability.WithCorrelationID(context.Background(), "req-42")
	require.NoError(t, scheduler.Enqueue(ctx, 1))

	select {
	case id := <-seen:
		require.Equal(t, "req-42", id)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not dispatched")
	}
}
