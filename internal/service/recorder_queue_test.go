package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderQueue_RunsInSubmissionOrder(t *testing.T) {
	q := NewRecorderQueue(16, time.Second)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		q.submit("job", func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
			return nil
		})
	}

	q.Start()
	q.Stop()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestRecorderQueue_DropsWhenFull(t *testing.T) {
	q := NewRecorderQueue(2, time.Second)

	ran := 0
	for i := 0; i < 5; i++ {
		q.submit("job", func(ctx context.Context) error {
			ran++
			return nil
		})
	}
	q.Stop()

	assert.Equal(t, 2, ran)
}

func TestRecorderQueue_SubmitAfterStopIsDropped(t *testing.T) {
	q := NewRecorderQueue(4, time.Second)
	q.Start()
	q.Stop()
	q.Stop()

	ran := false
	q.submit("late", func(ctx context.Context) error {
		ran = true
		return nil
	})

	assert.False(t, ran)
}

func TestRecorderQueue_FailuresDoNotStopWorker(t *testing.T) {
	q := NewRecorderQueue(8, time.Second)

	var completed []string
	q.submit("failing", func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	q.submit("panicking", func(ctx context.Context) error {
		panic("nil map")
	})
	q.submit("ok", func(ctx context.Context) error {
		completed = append(completed, "ok")
		return nil
	})
	q.Stop()

	assert.Equal(t, []string{"ok"}, completed)
}

func TestRecorderQueue_JobTimeout(t *testing.T) {
	q := NewRecorderQueue(1, 20*time.Millisecond)

	var jobErr error
	q.submit("slow", func(ctx context.Context) error {
		<-ctx.Done()
		jobErr = ctx.Err()
		return jobErr
	})
	q.Stop()

	require.Error(t, jobErr)
	assert.ErrorIs(t, jobErr, context.DeadlineExceeded)
}
