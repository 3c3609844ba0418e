package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned for operations submitted to (or queued on) a closed governor.
var ErrClosed = errors.New("rate governor closed")

// Governor serializes all calls to one external endpoint through a single FIFO
// queue and enforces a minimum wall-clock gap between the starts of
// consecutive operations. Concurrent submitters block until their turn.
//
// One Governor is constructed per process and passed by handle to every
// caller that needs it; fallback attempts across providers share the same
// instance so they cannot defeat the spacing.
type Governor struct {
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	queue     []*job
	closed    bool
	lastStart time.Time

	wake chan struct{}
	done chan struct{}
}

type job struct {
	ctx    context.Context
	op     func() error
	result chan error
}

// NewGovernor creates a governor with the given minimum inter-call interval
// and starts its dispatch loop. Call Close to stop it.
func NewGovernor(interval time.Duration, logger *slog.Logger) *Governor {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Governor{
		interval: interval,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go g.loop()
	return g
}

// Do queues op and blocks until it has run (or until ctx is cancelled while
// still queued). Operations run strictly one at a time in submission order;
// no operation is ever dropped by the governor itself. Once op has started it
// runs to completion regardless of ctx.
func (g *Governor) Do(ctx context.Context, op func() error) error {
	j := &job{ctx: ctx, op: op, result: make(chan error, 1)}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	g.queue = append(g.queue, j)
	depth := len(g.queue)
	g.mu.Unlock()

	if depth > 1 {
		g.logger.Debug("ratelimit.queued", "depth", depth)
	}
	select {
	case g.wake <- struct{}{}:
	default:
	}

	// The dispatcher sends exactly one result per job, including for jobs
	// whose context was cancelled while waiting in the queue.
	return <-j.result
}

// Close stops the dispatch loop. Jobs still queued fail with ErrClosed.
func (g *Governor) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	pending := g.queue
	g.queue = nil
	g.mu.Unlock()

	close(g.done)
	for _, j := range pending {
		j.result <- ErrClosed
	}
}

func (g *Governor) loop() {
	for {
		j := g.pop()
		if j == nil {
			select {
			case <-g.wake:
				continue
			case <-g.done:
				return
			}
		}

		// Caller abandoned the job while it was queued: answer and move on
		// without consuming a rate slot.
		if err := j.ctx.Err(); err != nil {
			j.result <- err
			continue
		}

		if !g.waitInterval(j) {
			continue
		}

		g.mu.Lock()
		g.lastStart = time.Now()
		g.mu.Unlock()

		j.result <- j.op()
	}
}

// waitInterval sleeps out the remaining portion of the minimum interval since
// the previous start. Returns false if the job was answered without running.
func (g *Governor) waitInterval(j *job) bool {
	g.mu.Lock()
	last := g.lastStart
	g.mu.Unlock()

	if last.IsZero() {
		return true
	}
	rem := g.interval - time.Since(last)
	if rem <= 0 {
		return true
	}

	timer := time.NewTimer(rem)
	defer timer.Stop()
	select {
	case <-timer.C:
		if err := j.ctx.Err(); err != nil {
			j.result <- err
			return false
		}
		return true
	case <-j.ctx.Done():
		j.result <- j.ctx.Err()
		return false
	case <-g.done:
		j.result <- ErrClosed
		return false
	}
}

func (g *Governor) pop() *job {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) == 0 {
		return nil
	}
	j := g.queue[0]
	g.queue = g.queue[1:]
	return j
}
