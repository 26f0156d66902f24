package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobOnce(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "post_events"}))

	select {
	case job := <-done:
		assert.Equal(t, "post_events", job.Type)
		assert.NotEmpty(t, job.ID)
		assert.False(t, job.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueReportsFailureWithoutRetry(t *testing.T) {
	var (
		mu       sync.Mutex
		calls    int
		failures []error
	)
	reported := make(chan struct{}, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("boom")
	}, QueueConfig{OnFailure: func(job Job, err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
		reported <- struct{}{}
	}})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{Type: "post_events"}))
	select {
	case <-reported:
	case <-time.After(2 * time.Second):
		t.Fatal("failure hook not called")
	}
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	require.Len(t, failures, 1)
	assert.EqualError(t, failures[0], "boom")
}

func TestQueueRecoversPanickingHandler(t *testing.T) {
	reported := make(chan error, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		panic("kaboom")
	}, QueueConfig{OnFailure: func(job Job, err error) { reported <- err }})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{}))
	select {
	case err := <-reported:
		assert.Contains(t, err.Error(), "kaboom")
	case <-time.After(2 * time.Second):
		t.Fatal("panic not reported")
	}
}

func TestQueueEnqueueRejectsWhenNotStarted(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{}))
}

func TestQueueEnqueueRejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{}))
	<-started
	require.NoError(t, q.Enqueue(Job{}))

	err := q.Enqueue(Job{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueueFull))

	close(release)
	q.Stop()
}

func TestQueueStopDoesNotCancelRunningJob(t *testing.T) {
	started := make(chan struct{})
	finished := make(chan error, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished <- ctx.Err()
		return nil
	}, QueueConfig{})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{}))
	<-started
	q.Stop()

	assert.NoError(t, <-finished)
	require.Error(t, q.Enqueue(Job{}))
}

func TestQueueStopRunsBufferedJobsAfterParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	var (
		mu  sync.Mutex
		ran []string
	)
	failures := 0
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if job.Type == "first" {
			started <- struct{}{}
			<-release
		}
		mu.Lock()
		ran = append(ran, job.Type)
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4, OnFailure: func(Job, error) { failures++ }})
	q.Start(ctx)

	require.NoError(t, q.Enqueue(Job{Type: "first"}))
	<-started
	for _, typ := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{Type: typ}))
	}

	cancel()
	time.Sleep(20 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	close(release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "a", "b", "c"}, ran)
	assert.Zero(t, failures)

	err := q.Enqueue(Job{Type: "late"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueueStopped))
}

func TestQueueStopIsIdempotent(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()
	assert.NotPanics(t, q.Stop)
}
