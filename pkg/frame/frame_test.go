package frame

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedulerRejectsInvalidRate(t *testing.T) {
	_, err := NewScheduler(WithFPS(0))
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestNominal(t *testing.T) {
	s, err := NewScheduler(WithFPS(50))
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, s.Nominal())
}

func TestRunFastMaxTicks(t *testing.T) {
	s, err := NewScheduler(WithRealtime(false), WithMaxTicks(120))
	require.NoError(t, err)

	var elapsed []time.Duration
	n, err := s.Run(context.Background(), func(d time.Duration) bool {
		elapsed = append(elapsed, d)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(120), n)
	assert.Len(t, elapsed, 120)
	for _, d := range elapsed {
		assert.Equal(t, time.Second/60, d)
	}
}

func TestRunStopsWhenFuncReturnsFalse(t *testing.T) {
	s, err := NewScheduler(WithRealtime(false))
	require.NoError(t, err)

	calls := 0
	n, err := s.Run(context.Background(), func(time.Duration) bool {
		calls++
		return calls < 5
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)
	assert.Equal(t, 5, calls)
}

func TestRunRealtimeStopsWhenFuncReturnsFalse(t *testing.T) {
	s, err := NewScheduler(WithFPS(200))
	require.NoError(t, err)

	calls := 0
	n, err := s.Run(context.Background(), func(time.Duration) bool {
		calls++
		return calls < 3
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	assert.Equal(t, 3, calls)
}

func TestRunFastStopsOnCancel(t *testing.T) {
	s, err := NewScheduler(WithRealtime(false))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	n, err := s.Run(ctx, func(time.Duration) bool {
		cancel()
		return true
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(1), n)
}

func TestRunRealtime(t *testing.T) {
	s, err := NewScheduler(WithFPS(200), WithMaxTicks(3))
	require.NoError(t, err)

	var total time.Duration
	n, err := s.Run(context.Background(), func(d time.Duration) bool {
		assert.Positive(t, d)
		total += d
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
	assert.GreaterOrEqual(t, total, 10*time.Millisecond)
}

func TestRunRealtimeStopsOnCancel(t *testing.T) {
	s, err := NewScheduler(WithFPS(100))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.Run(ctx, func(time.Duration) bool { return true })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
