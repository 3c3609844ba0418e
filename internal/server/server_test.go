package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
	"github.com/joseph-ayodele/invoice-reconciler/internal/repository"
)

func newTestServer(t *testing.T) (*httptest.Server, *repository.Store) {
	t.Helper()
	store, err := repository.OpenSQLite(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(store.Close)

	srv := httptest.NewServer(NewHandler(Deps{Store: store, Logger: slog.Default()}))
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	resp := doJSON(t, http.MethodGet, srv.URL+"/health", nil, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestProductLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	var created entity.CatalogProduct
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/products", map[string]any{
		"name": "Pomidorai", "sku": "TOM-001", "unit": "kg",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEqual(t, uuid.Nil, created.ID)

	var adjusted map[string]any
	resp = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/v1/products/%s/quantity", srv.URL, created.ID),
		map[string]any{"delta": 7.5}, &adjusted)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 7.5, adjusted["quantity"].(float64), 1e-9)

	var listed []entity.CatalogProduct
	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/products", nil, &listed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, listed, 1)
	assert.InDelta(t, 7.5, listed[0].Quantity, 1e-9)
}

func TestProductValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/products",
		map[string]any{"unit": "kg"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/products",
		map[string]any{"name": "Agurkai", "unit": "barrels"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/v1/products/%s/quantity", srv.URL, uuid.New()),
		map[string]any{"delta": 1}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPriceEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	var product entity.CatalogProduct
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/products", map[string]any{
		"name": "Morkos", "unit": "kg",
	}, &product)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	pricesURL := fmt.Sprintf("%s/v1/products/%s/prices", srv.URL, product.ID)

	var first entity.SupplierPrice
	resp = doJSON(t, http.MethodPut, pricesURL, map[string]any{
		"supplier_id": uuid.NewString(), "price_excl_vat": 1.10,
		"price_incl_vat": 1.33, "currency_code": "EUR",
	}, &first)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, first.Preferred)

	var second entity.SupplierPrice
	resp = doJSON(t, http.MethodPut, pricesURL, map[string]any{
		"supplier_id": uuid.NewString(), "price_excl_vat": 0.95,
		"price_incl_vat": 1.15, "currency_code": "EUR",
	}, &second)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, second.Preferred)

	resp = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/%s/preferred", pricesURL, second.ID), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var prices []entity.SupplierPrice
	resp = doJSON(t, http.MethodGet, pricesURL, nil, &prices)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, prices, 2)
	// Preferred sorts first.
	assert.Equal(t, second.ID, prices[0].ID)
	assert.True(t, prices[0].Preferred)
	assert.False(t, prices[1].Preferred)

	resp = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/%s/preferred", pricesURL, uuid.New()), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpsertPricePreferredFlag(t *testing.T) {
	srv, _ := newTestServer(t)

	var product entity.CatalogProduct
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/products", map[string]any{
		"name": "Kopūstai", "unit": "kg",
	}, &product)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	pricesURL := fmt.Sprintf("%s/v1/products/%s/prices", srv.URL, product.ID)

	var first entity.SupplierPrice
	resp = doJSON(t, http.MethodPut, pricesURL, map[string]any{
		"supplier_id": uuid.NewString(), "price_excl_vat": 0.80,
		"price_incl_vat": 0.97, "currency_code": "EUR",
	}, &first)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, first.Preferred)

	// Upserting with preferred set moves the flag off the first price.
	var second entity.SupplierPrice
	resp = doJSON(t, http.MethodPut, pricesURL, map[string]any{
		"supplier_id": uuid.NewString(), "price_excl_vat": 0.70,
		"price_incl_vat": 0.85, "currency_code": "EUR", "preferred": true,
	}, &second)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, second.Preferred)

	var prices []entity.SupplierPrice
	resp = doJSON(t, http.MethodGet, pricesURL, nil, &prices)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, prices, 2)
	assert.Equal(t, second.ID, prices[0].ID)
	assert.True(t, prices[0].Preferred)
	assert.False(t, prices[1].Preferred)
}

func TestGetInvoiceNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/v1/invoices/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/invoices/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
