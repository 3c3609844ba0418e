package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
)

// Backoff constants per failure class. Rate-limit failures back off harder
// and longer than ordinary transient failures.
const (
	rateLimitedBase = 1000 * time.Millisecond
	rateLimitedCap  = 30 * time.Second
	rateLimitedJit  = 1000 * time.Millisecond

	otherBase = 500 * time.Millisecond
	otherCap  = 5 * time.Second
	otherJit  = 500 * time.Millisecond
)

// Controller wraps a fallible operation with bounded retries and
// class-differentiated exponential backoff.
type Controller struct {
	logger *slog.Logger

	// sleep is swapped out by tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewController(logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{logger: logger, sleep: sleepCtx}
}

// Do runs op up to maxAttempts times. Malformed-response errors are surfaced
// immediately (a provider/schema mismatch does not heal on retry). After the
// final attempt the original error is preserved inside ExhaustedRetriesError;
// partial success is never returned.
func (c *Controller) Do(ctx context.Context, name string, op func() error, maxAttempts int) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op()
		if err == nil {
			if attempt > 1 {
				c.logger.Info("retry.recovered", "op", name, "attempt", attempt)
			}
			return nil
		}
		last = err

		class := common.Classify(err)
		if class == common.ClassMalformed {
			c.logger.Error("retry.malformed_abort", "op", name, "attempt", attempt, "error", err)
			return err
		}
		// A polling window that already ran out once will run out again.
		if errors.Is(err, common.ErrAnalysisTimedOut) {
			c.logger.Error("retry.timeout_abort", "op", name, "attempt", attempt, "error", err)
			return err
		}
		if attempt >= maxAttempts {
			break
		}

		delay := Delay(class, attempt)
		c.logger.Warn("retry.backoff",
			"op", name,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"class", string(class),
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}

	c.logger.Error("retry.exhausted", "op", name, "attempts", maxAttempts, "error", last)
	return &common.ExhaustedRetriesError{Attempts: maxAttempts, Last: last}
}

// Delay computes the backoff before attempt+1, including jitter.
// Rate limited: min(1000ms * 2^(attempt-1), 30s) + up to 1s jitter.
// Other:        min(500ms * 1.5^(attempt-1), 5s) + up to 500ms jitter.
func Delay(class common.ErrorClass, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	var base time.Duration
	if class == common.ClassRateLimited {
		d := float64(rateLimitedBase) * math.Pow(2, float64(attempt-1))
		base = time.Duration(math.Min(d, float64(rateLimitedCap)))
		return base + rand.N(rateLimitedJit)
	}
	d := float64(otherBase) * math.Pow(1.5, float64(attempt-1))
	base = time.Duration(math.Min(d, float64(otherCap)))
	return base + rand.N(otherJit)
}

// IsExhausted reports whether err is a retry-exhaustion failure.
func IsExhausted(err error) bool {
	var ex *common.ExhaustedRetriesError
	return errors.As(err, &ex)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
