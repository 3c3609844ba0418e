package pipeline

import (
	"context"

	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
)

// DocumentResult is the per-document outcome of a batch run. Exactly one of
// Invoice / Err is meaningful; Attempts always carries the provider log.
type DocumentResult struct {
	DocumentID string
	Filename   string
	Invoice    *entity.NormalizedInvoice
	Attempts   []common.AttemptRecord
	Err        error
}

// Run is the batch pipeline stage: it consumes documents from in, analyzes
// them strictly one at a time, and emits one result per document on out in
// input order. A failed document never aborts the stage. Run closes out when
// in is closed or ctx is cancelled.
//
// Sequential consumption is load-bearing: combined with the shared governor
// it keeps a batch from ever presenting concurrent load to the providers.
func (a *Analyzer) Run(ctx context.Context, in <-chan entity.Document, out chan<- DocumentResult) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case doc, ok := <-in:
			if !ok {
				return
			}
			res := a.analyzeWithRetry(ctx, doc)
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

// AnalyzeBatch is the slice convenience wrapper around Run.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, docs []entity.Document) []DocumentResult {
	in := make(chan entity.Document)
	out := make(chan DocumentResult, len(docs))
	go func() {
		defer close(in)
		for _, doc := range docs {
			select {
			case in <- doc:
			case <-ctx.Done():
				return
			}
		}
	}()
	go a.Run(ctx, in, out)

	results := make([]DocumentResult, 0, len(docs))
	for res := range out {
		results = append(results, res)
	}
	return results
}

// analyzeWithRetry gives each document a second full pass through the
// provider chain before recording it as failed. The inner chain already
// retried and cooled down, so this outer loop is deliberately light.
func (a *Analyzer) analyzeWithRetry(ctx context.Context, doc entity.Document) DocumentResult {
	res := DocumentResult{DocumentID: doc.ID.String(), Filename: doc.Filename}

	maxAttempts := a.cfg.BatchMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ar, err := a.Analyze(ctx, doc)
		res.Attempts = append(res.Attempts, ar.Attempts...)
		if err == nil {
			inv := ar.Invoice
			res.Invoice = &inv
			res.Err = nil
			return res
		}
		res.Err = err
		if ctx.Err() != nil {
			return res
		}
		a.logger.Warn("pipeline.batch.document_failed",
			"doc_id", doc.ID,
			"filename", doc.Filename,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err,
		)
	}
	return res
}
