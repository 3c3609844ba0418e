package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGovernorEnforcesSpacing(t *testing.T) {
	const interval = 50 * time.Millisecond
	g := NewGovernor(interval, slog.Default())
	defer g.Close()

	var starts []time.Time
	var mu sync.Mutex
	op := func() error {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return nil
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, g.Do(context.Background(), op))
	}

	require.Len(t, starts, 3)
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond, "gap %d too small: %v", i, gap)
	}
}

func TestGovernorFIFOUnderConcurrency(t *testing.T) {
	g := NewGovernor(time.Millisecond, slog.Default())
	defer g.Close()

	// Park one op so later submissions stack up in the queue.
	release := make(chan struct{})
	firstRunning := make(chan struct{})
	go g.Do(context.Background(), func() error {
		close(firstRunning)
		<-release
		return nil
	})
	<-firstRunning

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 1; i <= 3; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			g.Do(context.Background(), func() error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		// Stagger submissions so queue order is deterministic.
		time.Sleep(20 * time.Millisecond)
	}

	close(release)
	wg.Wait()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestGovernorCancelWhileQueued(t *testing.T) {
	g := NewGovernor(time.Millisecond, slog.Default())
	defer g.Close()

	release := make(chan struct{})
	firstRunning := make(chan struct{})
	go g.Do(context.Background(), func() error {
		close(firstRunning)
		<-release
		return nil
	})
	<-firstRunning

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()
	err := g.Do(ctx, func() error {
		t.Error("cancelled op must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGovernorClose(t *testing.T) {
	g := NewGovernor(time.Millisecond, slog.Default())
	g.Close()

	err := g.Do(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrClosed)

	// Closing twice is safe.
	g.Close()
}
