package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	at, err := ParseTimeOfDay("08:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 8, Minute: 30}, at)
	assert.Equal(t, "08:30", at.String())

	for _, bad := range []string{"", "8h", "25:00", "12:61"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestNextTrigger(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	at := TimeOfDay{Hour: 8}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before trigger", time.Date(2025, 3, 12, 7, 59, 0, 0, loc), time.Date(2025, 3, 12, 8, 0, 0, 0, loc)},
		{"exactly at trigger", time.Date(2025, 3, 12, 8, 0, 0, 0, loc), time.Date(2025, 3, 13, 8, 0, 0, 0, loc)},
		{"after trigger", time.Date(2025, 3, 12, 21, 0, 0, 0, loc), time.Date(2025, 3, 13, 8, 0, 0, 0, loc)},
		{"month end", time.Date(2025, 1, 31, 9, 0, 0, 0, loc), time.Date(2025, 2, 1, 8, 0, 0, 0, loc)},
		{"year end", time.Date(2025, 12, 31, 23, 0, 0, 0, loc), time.Date(2026, 1, 1, 8, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(NextTrigger(tt.now, at)), NextTrigger(tt.now, at))
		})
	}
}

func TestWithRetry_BackoffOnFakeClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := &Scheduler{clock: clock}

	var calls atomic.Int32
	fn := func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("feed down")
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- s.withRetry(fn, "test", RetryPolicy{MaxRetries: 3, Backoff: 5 * time.Minute})(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(5 * time.Minute)
	}

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("retry did not finish")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestWithRetry_GivesUp(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := &Scheduler{clock: clock}

	var calls atomic.Int32
	fn := func(context.Context) error {
		calls.Add(1)
		return errors.New("still down")
	}

	err := s.withRetry(fn, "test", RetryPolicy{MaxRetries: 0, Backoff: time.Minute})(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWithRetry_CancelledDuringBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := &Scheduler{clock: clock}

	ctx, cancel := context.WithCancel(context.Background())
	fn := func(context.Context) error { return errors.New("down") }

	done := make(chan error, 1)
	go func() {
		done <- s.withRetry(fn, "test", RetryPolicy{MaxRetries: 5, Backoff: time.Hour})(ctx)
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-waitCtx.Done():
		t.Fatal("wait was not interrupted")
	}
}

func TestTaskWithRecover(t *testing.T) {
	s := &Scheduler{clock: clockwork.NewFakeClock()}

	assert.NotPanics(t, func() {
		s.taskWithRecover(func(context.Context) error { panic("boom") }, "panicky")(context.Background())
	})
}

func TestNewDailyJob_NextRun(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC))
	s := New(clock, time.UTC)
	s.NewDailyJob("daily update", func(context.Context) error { return nil }, TimeOfDay{Hour: 8}, RetryPolicy{})
	s.Start()
	defer s.Stop()

	want := time.Date(2025, 3, 13, 8, 0, 0, 0, time.UTC)
	assert.Eventually(t, func() bool {
		next, err := s.NextRun("daily update")
		return err == nil && next.Equal(want)
	}, 2*time.Second, 10*time.Millisecond)

	_, err := s.NextRun("missing")
	assert.Error(t, err)
}
