package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/invoice-reconciler/internal/common"
	"github.com/joseph-ayodele/invoice-reconciler/internal/export"
	"github.com/joseph-ayodele/invoice-reconciler/internal/match"
	"github.com/joseph-ayodele/invoice-reconciler/internal/pipeline"
	"github.com/joseph-ayodele/invoice-reconciler/internal/repository"
)

const maxDocumentBodySize = 25 << 20 // 25MB, base64-encoded scans are bulky

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Store    *repository.Store
	Analyzer *pipeline.Analyzer
	Grouper  *match.Grouper
	Matcher  *match.Matcher
	Exporter *export.Service
	Logger   *slog.Logger
}

// NewHandler builds the router for the reconciliation API.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth(deps))

	r.Post("/v1/documents", handleAnalyzeDocument(deps))
	r.Post("/v1/batches", handleAnalyzeBatch(deps))

	r.Get("/v1/invoices", handleListInvoices(deps))
	r.Get("/v1/invoices/{id}", handleGetInvoice(deps))

	r.Get("/v1/products", handleListProducts(deps))
	r.Post("/v1/products", handleCreateProduct(deps))
	r.Post("/v1/products/{id}/quantity", handleAdjustQuantity(deps))
	r.Get("/v1/products/{id}/prices", handleListPrices(deps))
	r.Put("/v1/products/{id}/prices", handleUpsertPrice(deps))
	r.Post("/v1/products/{id}/prices/{priceID}/preferred", handleSetPreferred(deps))

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store != nil {
			if err := deps.Store.HealthCheck(r.Context(), 0); err != nil {
				httpError(w, http.StatusServiceUnavailable, "api_error", "database unavailable: %v", err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// domainError translates repository and pipeline sentinels to HTTP responses.
func domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrProductNotFound), errors.Is(err, common.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	case errors.Is(err, common.ErrInvalidInput):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, common.ErrRateLimited):
		httpError(w, http.StatusBadGateway, "provider_error", "%v", err)
	case errors.Is(err, common.ErrAnalysisTimedOut):
		httpError(w, http.StatusGatewayTimeout, "provider_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}
