package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
	"github.com/joseph-ayodele/invoice-reconciler/internal/pipeline"
)

type documentRequest struct {
	Filename      string `json:"filename"`
	ContentBase64 string `json:"content_base64"`
}

type batchRequest struct {
	Documents []documentRequest `json:"documents"`
}

func (req documentRequest) toDocument() (entity.Document, string) {
	if req.ContentBase64 == "" {
		return entity.Document{}, "content_base64 is required"
	}
	ext := constants.NormalizeExt(filepath.Ext(req.Filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return entity.Document{}, "unsupported file extension: " + ext
	}
	data, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		return entity.Document{}, "invalid base64 content"
	}
	return entity.NewDocument(data, constants.MediaTypeForExt(ext), req.Filename), ""
}

// handleAnalyzeDocument runs a single document through the pipeline and
// persists the normalized invoice.
func handleAnalyzeDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBodySize)
		defer r.Body.Close()

		var req documentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		doc, problem := req.toDocument()
		if problem != "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", problem)
			return
		}

		res, err := deps.Analyzer.Analyze(r.Context(), doc)
		if err != nil {
			deps.Logger.Error("server.document.failed", "filename", req.Filename, "error", err)
			httpError(w, http.StatusBadGateway, "provider_error", "analysis failed: %v", err)
			return
		}
		if err := deps.Store.SaveInvoice(r.Context(), &res.Invoice); err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// handleAnalyzeBatch runs a document batch sequentially, groups line items
// across the successful invoices, and annotates groups with catalog
// suggestions. Pass ?format=xlsx for a workbook instead of JSON.
func handleAnalyzeBatch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBodySize)
		defer r.Body.Close()

		var req batchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Documents) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "documents is required and must not be empty")
			return
		}

		docs := make([]entity.Document, 0, len(req.Documents))
		for i, d := range req.Documents {
			doc, problem := d.toDocument()
			if problem != "" {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "document %d: %s", i, problem)
				return
			}
			docs = append(docs, doc)
		}

		results := deps.Analyzer.AnalyzeBatch(r.Context(), docs)
		for i := range results {
			if results[i].Invoice == nil {
				continue
			}
			if err := deps.Store.SaveInvoice(r.Context(), results[i].Invoice); err != nil {
				domainError(w, err)
				return
			}
		}

		catalog, err := deps.Store.ListProducts(r.Context())
		if err != nil {
			domainError(w, err)
			return
		}
		review := pipeline.BuildReview(results, deps.Grouper, deps.Matcher, catalog)

		if r.URL.Query().Get("format") == "xlsx" {
			data, err := deps.Exporter.ExportReviewXLSX(review)
			if err != nil {
				domainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", `attachment; filename="batch-review.xlsx"`)
			w.Write(data)
			return
		}
		writeJSON(w, http.StatusOK, reviewResponse(review))
	}
}

// reviewResponse flattens errors into strings so the review serializes.
func reviewResponse(review pipeline.BatchReview) map[string]any {
	type resultView struct {
		DocumentID string                      `json:"document_id"`
		Filename   string                      `json:"filename"`
		Invoice    *entity.NormalizedInvoice   `json:"invoice,omitempty"`
		Attempts   []map[string]any            `json:"attempts,omitempty"`
		Error      string                      `json:"error,omitempty"`
	}
	results := make([]resultView, len(review.Results))
	for i, res := range review.Results {
		rv := resultView{DocumentID: res.DocumentID, Filename: res.Filename, Invoice: res.Invoice}
		for _, a := range res.Attempts {
			rv.Attempts = append(rv.Attempts, map[string]any{
				"provider":    a.Provider,
				"success":     a.Success,
				"class":       string(a.Class),
				"error":       a.Err,
				"duration_ms": a.Duration.Milliseconds(),
			})
		}
		if res.Err != nil {
			rv.Error = res.Err.Error()
		}
		results[i] = rv
	}
	return map[string]any{
		"results": results,
		"groups":  review.Groups,
	}
}

func handleListInvoices(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if s := r.URL.Query().Get("limit"); s != "" {
			if v, err := strconv.Atoi(s); err == nil && v > 0 {
				limit = v
			}
		}
		invoices, err := deps.Store.ListInvoices(r.Context(), limit)
		if err != nil {
			domainError(w, err)
			return
		}
		if invoices == nil {
			invoices = []entity.NormalizedInvoice{}
		}
		writeJSON(w, http.StatusOK, invoices)
	}
}

func handleGetInvoice(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid invoice id")
			return
		}
		inv, err := deps.Store.GetInvoice(r.Context(), id)
		if err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}
