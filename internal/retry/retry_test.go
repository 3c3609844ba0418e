package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
)

func newTestController() (*Controller, *[]time.Duration) {
	c := NewController(slog.Default())
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestDoRecoversAfterRateLimit(t *testing.T) {
	c, slept := newTestController()

	calls := 0
	err := c.Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: slow down", common.ErrRateLimited)
		}
		return nil
	}, 5)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, *slept, 2)
	// Exponential: second delay's floor doubles the first's.
	assert.GreaterOrEqual(t, (*slept)[0], 1000*time.Millisecond)
	assert.GreaterOrEqual(t, (*slept)[1], 2000*time.Millisecond)
}

func TestDoMalformedAbortsImmediately(t *testing.T) {
	c, slept := newTestController()

	calls := 0
	err := c.Do(context.Background(), "op", func() error {
		calls++
		return fmt.Errorf("%w: not json", common.ErrMalformedResponse)
	}, 5)

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedResponse))
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
	assert.False(t, IsExhausted(err))
}

func TestDoExhaustionWrapsLastError(t *testing.T) {
	c, _ := newTestController()

	boom := fmt.Errorf("%w: 503", common.ErrTransientProvider)
	calls := 0
	err := c.Do(context.Background(), "op", func() error {
		calls++
		return boom
	}, 3)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, IsExhausted(err))
	assert.True(t, errors.Is(err, common.ErrTransientProvider))

	var ex *common.ExhaustedRetriesError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, 3, ex.Attempts)
}

func TestDoContextCancelled(t *testing.T) {
	c, _ := newTestController()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Do(ctx, "op", func() error { return nil }, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDelayBounds(t *testing.T) {
	// Rate limited: min(1000ms * 2^(n-1), 30s) + up to 1s jitter.
	for attempt := 1; attempt <= 10; attempt++ {
		d := Delay(common.ClassRateLimited, attempt)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 31*time.Second)
	}
	// Other: min(500ms * 1.5^(n-1), 5s) + up to 500ms jitter.
	for attempt := 1; attempt <= 10; attempt++ {
		d := Delay(common.ClassOther, attempt)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 5500*time.Millisecond)
	}
}
