package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunByName(t *testing.T) {
	s := New()
	calls := 0
	s.Register(Job{
		Name:     "demo",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			calls++
			return nil
		},
	})

	require.NoError(t, s.Run(context.Background(), "demo"))
	assert.Equal(t, 1, calls)

	jobs := s.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, StatusFulfill, jobs[0].Status)
	assert.NotNil(t, jobs[0].LastRunAt)
	assert.Empty(t, jobs[0].Message)
}

func TestRunUnknownJob(t *testing.T) {
	err := New().Run(context.Background(), "missing")
	assert.Error(t, err)
}

func TestJobFailureRecordsMessage(t *testing.T) {
	s := New()
	s.Register(Job{
		Name:     "flaky",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			return errors.New("boom")
		},
	})

	require.NoError(t, s.Run(context.Background(), "flaky"))

	jobs := s.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, StatusReject, jobs[0].Status)
	assert.Equal(t, "boom", jobs[0].Message)
}

func TestStartRunsOnInterval(t *testing.T) {
	s := New()
	done := make(chan struct{})
	s.Register(Job{
		Name:     "tick",
		Interval: 10 * time.Millisecond,
		Fn: func(ctx context.Context) error {
			select {
			case done <- struct{}{}:
			default:
			}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}
