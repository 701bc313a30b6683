package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls int32
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	atomic.AddInt32(&r.calls, 1)
	return r.err
}

func TestNewScheduler_RejectsBadInput(t *testing.T) {
	_, err := NewScheduler(&countingRefresher{}, "not a cron", "Europe/Moscow", zerolog.Nop())
	assert.Error(t, err)

	_, err = NewScheduler(&countingRefresher{}, "0 3 * * *", "Mars/Olympus", zerolog.Nop())
	assert.Error(t, err)
}

func TestScheduler_RunsRefresh(t *testing.T) {
	r := &countingRefresher{err: errors.New("upload failed")}
	s, err := NewScheduler(r, "@every 1s", "UTC", zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&r.calls) >= 1
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	s.Stop()
}
