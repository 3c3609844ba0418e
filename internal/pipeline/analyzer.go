package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
	"github.com/joseph-ayodele/invoice-reconciler/internal/normalize"
	"github.com/joseph-ayodele/invoice-reconciler/internal/provider"
	"github.com/joseph-ayodele/invoice-reconciler/internal/ratelimit"
	"github.com/joseph-ayodele/invoice-reconciler/internal/retry"
)

// AnalysisResult is one document's normalized invoice plus the per-provider
// attempt log (diagnostics only).
type AnalysisResult struct {
	Invoice  entity.NormalizedInvoice
	Attempts []common.AttemptRecord
}

// Analyzer runs a document through the ordered provider list: each provider
// gets bounded retries, the first success wins, and every outbound call —
// including fallback attempts and polls — funnels through one shared rate
// governor so fallback cannot defeat the rate limit.
type Analyzer struct {
	providers  []provider.Provider
	governor   *ratelimit.Governor
	retrier    *retry.Controller
	normalizer *normalize.Normalizer
	cfg        common.PipelineConfig
	logger     *slog.Logger

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewAnalyzer(
	providers []provider.Provider,
	governor *ratelimit.Governor,
	retrier *retry.Controller,
	normalizer *normalize.Normalizer,
	cfg common.PipelineConfig,
	logger *slog.Logger,
) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		providers:  providers,
		governor:   governor,
		retrier:    retrier,
		normalizer: normalizer,
		cfg:        cfg,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// Analyze converts one document into a normalized invoice.
//
// Per provider: retry with backoff; on exhaustion, cool down (longer after a
// rate-limit exhaustion) and fall through to the next provider. Polling
// timeouts are terminal for the document — burning the remaining providers
// after five minutes of polling would only stack more wall-clock on a
// document the reviewer already waits for.
func (a *Analyzer) Analyze(ctx context.Context, doc entity.Document) (AnalysisResult, error) {
	start := time.Now()
	var attempts []common.AttemptRecord
	var lastErr error

	for i, p := range a.providers {
		attemptStart := time.Now()
		var raw *provider.RawInvoice

		err := a.retrier.Do(ctx, p.Name(), func() error {
			inv, opErr := a.callProvider(ctx, p, doc)
			if opErr != nil {
				return opErr
			}
			raw = inv
			return nil
		}, a.cfg.ProviderMaxAttempts)

		if err == nil {
			attempts = append(attempts, common.AttemptRecord{
				Provider: p.Name(),
				Success:  true,
				Duration: time.Since(attemptStart),
			})
			inv := a.normalizer.Normalize(doc.ID, raw)
			a.logger.Info("pipeline.analyze.ok",
				"doc_id", doc.ID,
				"provider", p.Name(),
				"providers_tried", i+1,
				"lines", len(inv.Lines),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return AnalysisResult{Invoice: inv, Attempts: attempts}, nil
		}

		lastErr = err
		class := common.Classify(err)
		attempts = append(attempts, common.AttemptRecord{
			Provider: p.Name(),
			Success:  false,
			Class:    class,
			Err:      err.Error(),
			Duration: time.Since(attemptStart),
		})
		a.logger.Warn("pipeline.analyze.provider_exhausted",
			"doc_id", doc.ID,
			"provider", p.Name(),
			"class", string(class),
			"error", err,
		)

		if errors.Is(err, common.ErrAnalysisTimedOut) || ctx.Err() != nil {
			break
		}
		if i == len(a.providers)-1 {
			break
		}

		cooldown := a.cfg.FailureCooldown
		if class == common.ClassRateLimited {
			cooldown = a.cfg.RateLimitCooldown
		}
		if err := a.sleep(ctx, cooldown); err != nil {
			return AnalysisResult{Attempts: attempts}, err
		}
	}

	a.logger.Error("pipeline.analyze.failed",
		"doc_id", doc.ID,
		"providers_tried", len(attempts),
		"elapsed_ms", time.Since(start).Milliseconds(),
		"error", lastErr,
	)
	if errors.Is(lastErr, common.ErrAnalysisTimedOut) {
		return AnalysisResult{Attempts: attempts}, lastErr
	}
	return AnalysisResult{Attempts: attempts}, &common.AllProvidersFailedError{Attempts: attempts, Last: lastErr}
}

// callProvider performs one full submit(+poll) cycle through the governor.
func (a *Analyzer) callProvider(ctx context.Context, p provider.Provider, doc entity.Document) (*provider.RawInvoice, error) {
	var sub provider.Submission
	err := a.governor.Do(ctx, func() error {
		var e error
		sub, e = p.Submit(ctx, doc)
		return e
	})
	if err != nil {
		return nil, err
	}
	if sub.Invoice != nil {
		// Synchronous provider: zero polling.
		return sub.Invoice, nil
	}
	return a.poll(ctx, p, sub.Handle)
}

// poll waits out the operation with increasing backoff until a terminal
// status or the absolute timeout.
func (a *Analyzer) poll(ctx context.Context, p provider.Provider, handle string) (*provider.RawInvoice, error) {
	deadline := time.Now().Add(a.cfg.PollTimeout)
	delay := a.cfg.PollInitialDelay

	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: operation %s still pending after %s",
				common.ErrAnalysisTimedOut, handle, a.cfg.PollTimeout)
		}
		if err := a.sleep(ctx, delay); err != nil {
			return nil, err
		}
		if next := time.Duration(float64(delay) * 1.5); next < a.cfg.PollMaxDelay {
			delay = next
		} else {
			delay = a.cfg.PollMaxDelay
		}

		var res provider.PollResult
		err := a.governor.Do(ctx, func() error {
			var e error
			res, e = p.Poll(ctx, handle)
			return e
		})
		if err != nil {
			return nil, err
		}

		switch res.Status {
		case constants.AnalysisSucceeded:
			return res.Invoice, nil
		case constants.AnalysisFailed:
			return nil, fmt.Errorf("%w: provider reported failure: %s", common.ErrTransientProvider, res.Message)
		case constants.AnalysisPending:
			// keep polling
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
