package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
)

func handleListProducts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := deps.Store.ListProducts(r.Context())
		if err != nil {
			domainError(w, err)
			return
		}
		if products == nil {
			products = []entity.CatalogProduct{}
		}
		writeJSON(w, http.StatusOK, products)
	}
}

type createProductRequest struct {
	Name     string   `json:"name"`
	SKU      string   `json:"sku"`
	Unit     string   `json:"unit"`
	Quantity float64  `json:"quantity"`
	MinStock *float64 `json:"min_stock"`
}

func handleCreateProduct(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}
		unit, ok := constants.ParseUnit(req.Unit)
		if !ok {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown unit %q", req.Unit)
			return
		}

		p := entity.CatalogProduct{
			Name:     req.Name,
			SKU:      req.SKU,
			Unit:     unit,
			Quantity: req.Quantity,
			MinStock: req.MinStock,
		}
		if err := deps.Store.CreateProduct(r.Context(), &p); err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

type adjustQuantityRequest struct {
	Delta float64 `json:"delta"`
}

func handleAdjustQuantity(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid product id")
			return
		}
		var req adjustQuantityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		qty, err := deps.Store.AdjustQuantity(r.Context(), id, req.Delta)
		if err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "quantity": qty})
	}
}

func handleListPrices(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid product id")
			return
		}
		prices, err := deps.Store.ListPrices(r.Context(), id)
		if err != nil {
			domainError(w, err)
			return
		}
		if prices == nil {
			prices = []entity.SupplierPrice{}
		}
		writeJSON(w, http.StatusOK, prices)
	}
}

type upsertPriceRequest struct {
	SupplierID   string  `json:"supplier_id"`
	PriceExclVAT float64 `json:"price_excl_vat"`
	PriceInclVAT float64 `json:"price_incl_vat"`
	CurrencyCode string  `json:"currency_code"`
	Preferred    bool    `json:"preferred"`
}

func handleUpsertPrice(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid product id")
			return
		}
		var req upsertPriceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		supplierID, err := uuid.Parse(req.SupplierID)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid supplier id")
			return
		}

		price := entity.SupplierPrice{
			ProductID:    productID,
			SupplierID:   supplierID,
			PriceExclVAT: req.PriceExclVAT,
			PriceInclVAT: req.PriceInclVAT,
			CurrencyCode: req.CurrencyCode,
			Preferred:    req.Preferred,
		}
		if err := deps.Store.Upsert(r.Context(), &price); err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, price)
	}
}

func handleSetPreferred(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid product id")
			return
		}
		priceID, err := uuid.Parse(chi.URLParam(r, "priceID"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid price id")
			return
		}
		if err := deps.Store.SetPreferred(r.Context(), productID, priceID); err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}
