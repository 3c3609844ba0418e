package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
	"github.com/joseph-ayodele/invoice-reconciler/internal/normalize"
	"github.com/joseph-ayodele/invoice-reconciler/internal/provider"
	"github.com/joseph-ayodele/invoice-reconciler/internal/ratelimit"
	"github.com/joseph-ayodele/invoice-reconciler/internal/retry"
)

type fakeProvider struct {
	name   string
	submit func(doc entity.Document) (provider.Submission, error)
	poll   func(handle string) (provider.PollResult, error)
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Submit(_ context.Context, doc entity.Document) (provider.Submission, error) {
	return f.submit(doc)
}

func (f *fakeProvider) Poll(_ context.Context, handle string) (provider.PollResult, error) {
	if f.poll == nil {
		return provider.PollResult{}, fmt.Errorf("%w: no poll operation", common.ErrMalformedResponse)
	}
	return f.poll(handle)
}

func syncSuccess(name string) *fakeProvider {
	return &fakeProvider{
		name: name,
		submit: func(entity.Document) (provider.Submission, error) {
			return provider.Submission{Invoice: &provider.RawInvoice{
				VendorName: "UAB Tiekėjas",
				Date:       "2024-03-15",
				Lines: []provider.RawLineItem{
					{Name: "Pomidorai", Quantity: "2", Unit: "kg", UnitPrice: "3,00", TotalPrice: "6,00"},
				},
			}}, nil
		},
	}
}

func alwaysFailing(name string, err error) *fakeProvider {
	return &fakeProvider{
		name: name,
		submit: func(entity.Document) (provider.Submission, error) {
			return provider.Submission{}, err
		},
	}
}

func testConfig() common.PipelineConfig {
	return common.PipelineConfig{
		MinCallInterval:     0,
		ProviderMaxAttempts: 1,
		BatchMaxAttempts:    1,
		RateLimitCooldown:   10 * time.Second,
		FailureCooldown:     2 * time.Second,
		PollInitialDelay:    time.Millisecond,
		PollMaxDelay:        2 * time.Millisecond,
		PollTimeout:         time.Minute,
	}
}

func newTestAnalyzer(cfg common.PipelineConfig, providers ...provider.Provider) (*Analyzer, *[]time.Duration, func()) {
	logger := slog.Default()
	governor := ratelimit.NewGovernor(cfg.MinCallInterval, logger)
	normalizer := normalize.NewNormalizer("EUR", 21.0, logger)
	a := NewAnalyzer(providers, governor, retry.NewController(logger), normalizer, cfg, logger)

	var slept []time.Duration
	a.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return a, &slept, governor.Close
}

func testDoc() entity.Document {
	return entity.NewDocument([]byte("fake scan"), "image/png", "invoice.png")
}

func TestAnalyzeFallbackToSecondProvider(t *testing.T) {
	failing := alwaysFailing("first", fmt.Errorf("%w: 503", common.ErrTransientProvider))
	a, slept, done := newTestAnalyzer(testConfig(), failing, syncSuccess("second"))
	defer done()

	res, err := a.Analyze(context.Background(), testDoc())
	require.NoError(t, err)

	require.Len(t, res.Attempts, 2)
	assert.Equal(t, "first", res.Attempts[0].Provider)
	assert.False(t, res.Attempts[0].Success)
	assert.Equal(t, "second", res.Attempts[1].Provider)
	assert.True(t, res.Attempts[1].Success)

	assert.Equal(t, "UAB Tiekėjas", res.Invoice.VendorName)
	require.Len(t, res.Invoice.Lines, 1)
	assert.Equal(t, constants.UnitKg, res.Invoice.Lines[0].Unit)

	// Ordinary failure uses the short cooldown before the next provider.
	require.Len(t, *slept, 1)
	assert.Equal(t, 2*time.Second, (*slept)[0])
}

func TestAnalyzeRateLimitUsesLongCooldown(t *testing.T) {
	limited := alwaysFailing("first", fmt.Errorf("%w: 429", common.ErrRateLimited))
	a, slept, done := newTestAnalyzer(testConfig(), limited, syncSuccess("second"))
	defer done()

	_, err := a.Analyze(context.Background(), testDoc())
	require.NoError(t, err)
	require.Len(t, *slept, 1)
	assert.Equal(t, 10*time.Second, (*slept)[0])
}

func TestAnalyzeThirdProviderSucceeds(t *testing.T) {
	a, _, done := newTestAnalyzer(testConfig(),
		alwaysFailing("first", fmt.Errorf("%w: 429", common.ErrRateLimited)),
		alwaysFailing("second", fmt.Errorf("%w: 429", common.ErrRateLimited)),
		syncSuccess("third"),
	)
	defer done()

	res, err := a.Analyze(context.Background(), testDoc())
	require.NoError(t, err)

	require.Len(t, res.Attempts, 3)
	assert.False(t, res.Attempts[0].Success)
	assert.False(t, res.Attempts[1].Success)
	assert.True(t, res.Attempts[2].Success)
	assert.Equal(t, "third", res.Attempts[2].Provider)
	assert.Equal(t, "UAB Tiekėjas", res.Invoice.VendorName)
}

func TestAnalyzeAllProvidersFail(t *testing.T) {
	a, _, done := newTestAnalyzer(testConfig(),
		alwaysFailing("first", fmt.Errorf("%w: 503", common.ErrTransientProvider)),
		alwaysFailing("second", fmt.Errorf("%w: not json", common.ErrMalformedResponse)),
	)
	defer done()

	_, err := a.Analyze(context.Background(), testDoc())
	require.Error(t, err)

	var all *common.AllProvidersFailedError
	require.True(t, errors.As(err, &all))
	require.Len(t, all.Attempts, 2)
	assert.Equal(t, common.ClassOther, all.Attempts[0].Class)
	assert.Equal(t, common.ClassMalformed, all.Attempts[1].Class)
}

func TestAnalyzePollingUntilSucceeded(t *testing.T) {
	polls := 0
	async := &fakeProvider{
		name: "async",
		submit: func(entity.Document) (provider.Submission, error) {
			return provider.Submission{Handle: "op-1"}, nil
		},
		poll: func(handle string) (provider.PollResult, error) {
			polls++
			if polls < 3 {
				return provider.PollResult{Status: constants.AnalysisPending}, nil
			}
			return provider.PollResult{
				Status: constants.AnalysisSucceeded,
				Invoice: &provider.RawInvoice{
					VendorName: "UAB Sandėlys",
					Date:       "2024-03-15",
				},
			}, nil
		},
	}
	a, _, done := newTestAnalyzer(testConfig(), async)
	defer done()

	res, err := a.Analyze(context.Background(), testDoc())
	require.NoError(t, err)
	assert.Equal(t, 3, polls)
	assert.Equal(t, "UAB Sandėlys", res.Invoice.VendorName)
}

func TestAnalyzePollTimeoutIsTerminal(t *testing.T) {
	cfg := testConfig()
	cfg.PollTimeout = 5 * time.Millisecond
	stuck := &fakeProvider{
		name: "stuck",
		submit: func(entity.Document) (provider.Submission, error) {
			return provider.Submission{Handle: "op-1"}, nil
		},
		poll: func(string) (provider.PollResult, error) {
			return provider.PollResult{Status: constants.AnalysisPending}, nil
		},
	}
	// A second provider is configured but must not be consulted.
	a, _, done := newTestAnalyzer(cfg, stuck, syncSuccess("unused"))
	defer done()

	_, err := a.Analyze(context.Background(), testDoc())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAnalysisTimedOut)

	var all *common.AllProvidersFailedError
	assert.False(t, errors.As(err, &all))
}

func TestAnalyzeBatchContinuesPastFailures(t *testing.T) {
	bad := fmt.Errorf("%w: unreadable", common.ErrMalformedResponse)
	selective := &fakeProvider{
		name: "selective",
		submit: func(doc entity.Document) (provider.Submission, error) {
			if doc.Filename == "bad.png" {
				return provider.Submission{}, bad
			}
			return provider.Submission{Invoice: &provider.RawInvoice{
				VendorName: "UAB Tiekėjas",
				Date:       "2024-03-15",
			}}, nil
		},
	}
	a, _, done := newTestAnalyzer(testConfig(), selective)
	defer done()

	docs := []entity.Document{
		entity.NewDocument([]byte("a"), "image/png", "one.png"),
		entity.NewDocument([]byte("b"), "image/png", "two.png"),
		entity.NewDocument([]byte("c"), "image/png", "bad.png"),
		entity.NewDocument([]byte("d"), "image/png", "four.png"),
		entity.NewDocument([]byte("e"), "image/png", "five.png"),
	}
	results := a.AnalyzeBatch(context.Background(), docs)

	require.Len(t, results, 5)
	ok := 0
	for i, res := range results {
		if res.Invoice != nil {
			ok++
			continue
		}
		assert.Equal(t, 2, i, "only the third document should fail")
		assert.Error(t, res.Err)
	}
	assert.Equal(t, 4, ok)
	assert.Equal(t, "bad.png", results[2].Filename)
}
