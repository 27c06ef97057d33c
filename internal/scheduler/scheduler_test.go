package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_RejectsNonPositiveInterval(t *testing.T) {
	_, err := New(0, func(context.Context) error { return nil }, discardLogger())
	assert.Error(t, err)
}

func TestScheduler_RunsImmediately(t *testing.T) {
	var runs atomic.Int32
	s, err := New(time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	}, discardLogger())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_FailedRunKeepsScheduling(t *testing.T) {
	var runs atomic.Int32
	s, err := New(time.Hour, func(context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	}, discardLogger())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	s.Stop()
}

func TestScheduler_StopCancelsJobContext(t *testing.T) {
	started := make(chan struct{})
	canceled := make(chan struct{})
	s, err := New(time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(canceled)
		return ctx.Err()
	}, discardLogger())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not start")
	}

	s.Stop()

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("job context was not canceled")
	}
}
