package documents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasirpos/pos/internal/shared"
)

type memoryKeys struct {
	seen map[string]bool
}

func (m *memoryKeys) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.seen[module+":"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.seen[module+":"+key] = true
	return nil
}

func (m *memoryKeys) Delete(ctx context.Context, key, module string) error {
	delete(m.seen, module+":"+key)
	return nil
}

func newTestRouter(kind Kind, repo *memoryRepo, keys IdempotencyPort) http.Handler {
	svc, _, _ := newTestService(repo, true)
	h := NewHandler(kind, nil, svc, keys)
	r := chi.NewRouter()
	r.Route("/api/docs", h.MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{UserID: "user-1", Username: "kasir"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateSale(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	router := newTestRouter(KindSale, repo, nil)

	body := `{"tax_rate":"11","items":[{"product_id":"` + productP + `","quantity":3,"unit_price":"33.333"}]}`
	rec := do(t, router, http.MethodPost, "/api/docs", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var doc Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "100", doc.Subtotal.String())
	assert.Equal(t, "11", doc.Tax.String())
	assert.Equal(t, "111", doc.Total.String())
	assert.Equal(t, "user-1", *doc.CreatedBy)
	assert.Equal(t, int64(7), repo.stock(productP))
}

func TestHandlerCreateValidation(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	router := newTestRouter(KindSale, repo, nil)

	cases := map[string]string{
		"empty items":         `{"items":[]}`,
		"fractional quantity": `{"items":[{"product_id":"` + productP + `","quantity":1.5}]}`,
		"malformed":           `{"items":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/docs", body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
	require.Equal(t, int64(10), repo.stock(productP))
}

func TestHandlerCreateUnknownProduct(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	router := newTestRouter(KindSale, repo, nil)

	body := `{"items":[{"product_id":"` + missingID + `","quantity":1,"unit_price":"1"}]}`
	rec := do(t, router, http.MethodPost, "/api/docs", body, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, repo.state.docs)
}

func TestHandlerIdempotencyKey(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	keys := &memoryKeys{seen: map[string]bool{}}
	router := newTestRouter(KindSale, repo, keys)
	header := map[string]string{"Idempotency-Key": "abc"}

	body := `{"items":[{"product_id":"` + productP + `","quantity":1,"unit_price":"5"}]}`
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/docs", body, header).Code)
	require.Equal(t, http.StatusConflict, do(t, router, http.MethodPost, "/api/docs", body, header).Code)
	require.Equal(t, int64(9), repo.stock(productP))

	bad := `{"items":[{"product_id":"` + missingID + `","quantity":1,"unit_price":"5"}]}`
	other := map[string]string{"Idempotency-Key": "def"}
	require.Equal(t, http.StatusNotFound, do(t, router, http.MethodPost, "/api/docs", bad, other).Code)
	require.False(t, keys.seen["sale.create:def"])
}

func TestHandlerUpdateAndDelete(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	router := newTestRouter(KindSale, repo, nil)
	svc, _, _ := newTestService(repo, true)
	doc, err := svc.Create(context.Background(), KindSale, saleInput(3, "100"), "")
	require.NoError(t, err)

	body := `{"items":[{"product_id":"` + productP + `","quantity":1,"unit_price":"100"}]}`
	rec := do(t, router, http.MethodPut, "/api/docs/"+doc.ID, body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, int64(9), repo.stock(productP))

	rec = do(t, router, http.MethodDelete, "/api/docs/"+doc.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"Sale deleted successfully"}`, rec.Body.String())
	require.Equal(t, int64(10), repo.stock(productP))

	rec = do(t, router, http.MethodGet, "/api/docs/"+doc.ID, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerInvalidID(t *testing.T) {
	router := newTestRouter(KindSale, newMemoryRepo(), nil)
	rec := do(t, router, http.MethodGet, "/api/docs/not-a-uuid", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerPurchaseItemRoutes(t *testing.T) {
	repo := newMemoryRepo(stockedP(7, "50"))
	router := newTestRouter(KindPurchase, repo, nil)

	body := `{"counterparty_id":"` + supplierID + `","items":[{"product_id":"` + productP + `","quantity":5,"unit_price":"60"}]}`
	rec := do(t, router, http.MethodPost, "/api/docs", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var doc Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, int64(12), repo.stock(productP))

	add := `{"items":[{"product_id":"` + productP + `","quantity":2,"unit_price":"65"}]}`
	rec = do(t, router, http.MethodPost, "/api/docs/"+doc.ID+"/items", add, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, "430", doc.Total.String())
	require.Equal(t, int64(14), repo.stock(productP))

	rec = do(t, router, http.MethodDelete, "/api/docs/"+doc.ID+"/items/"+doc.Items[0].ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, "130", doc.Total.String())
	require.Equal(t, int64(9), repo.stock(productP))

	rec = do(t, router, http.MethodGet, "/api/docs/supplier/"+supplierID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page shared.Page[Document]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	require.Equal(t, 1, page.Pagination.Total)
}

func TestHandlerSaleHasNoItemRoutes(t *testing.T) {
	router := newTestRouter(KindSale, newMemoryRepo(), nil)
	rec := do(t, router, http.MethodPost, "/api/docs/"+productP+"/items", `{}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
