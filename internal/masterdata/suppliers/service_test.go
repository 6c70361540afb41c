package suppliers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kasirpos/pos/internal/documents"
	"github.com/kasirpos/pos/internal/masterdata/shared"
	"github.com/kasirpos/pos/internal/platform/httpx"
)

type mockRepository struct {
	items   map[string]Supplier
	refs    References
	filters shared.ListFilters
}

func (m *mockRepository) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	m.filters = filters
	var out []Supplier
	for _, s := range m.items {
		if filters.Search == "" || strings.Contains(strings.ToLower(s.Name), strings.ToLower(filters.Search)) {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) Get(ctx context.Context, id string) (Supplier, error) {
	s, ok := m.items[id]
	if !ok {
		return Supplier{}, ErrNotFound
	}
	return s, nil
}

func (m *mockRepository) Create(ctx context.Context, s Supplier) (Supplier, error) {
	m.items[s.ID] = s
	return s, nil
}

func (m *mockRepository) Update(ctx context.Context, s Supplier) (Supplier, error) {
	if _, ok := m.items[s.ID]; !ok {
		return Supplier{}, ErrNotFound
	}
	m.items[s.ID] = s
	return s, nil
}

func (m *mockRepository) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *mockRepository) References(ctx context.Context, id string) (References, error) {
	return m.refs, nil
}

type mockHistory struct {
	filter documents.ListFilter
}

func (m *mockHistory) List(ctx context.Context, kind documents.Kind, filter documents.ListFilter) ([]documents.Document, int, error) {
	m.filter = filter
	return []documents.Document{{ID: "p1", Kind: kind}}, 1, nil
}

func TestCreateValidatesEmail(t *testing.T) {
	svc := NewService(&mockRepository{items: map[string]Supplier{}}, &mockHistory{})
	_, err := svc.Create(context.Background(), Input{Name: "PT Maju", Email: "nope"})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Contains(t, err.Error(), "email")

	s, err := svc.Create(context.Background(), Input{Name: " PT  Maju ", Email: " sales@maju.co.id "})
	require.NoError(t, err)
	require.Equal(t, "PT Maju", s.Name)
	require.Equal(t, "sales@maju.co.id", s.Email)
}

func TestDeleteBlockedByPurchases(t *testing.T) {
	repo := &mockRepository{items: map[string]Supplier{"s1": {ID: "s1", Name: "A"}}, refs: References{Purchases: 1}}
	svc := NewService(repo, &mockHistory{})

	err := svc.Delete(context.Background(), "s1")
	require.ErrorIs(t, err, ErrInUse)
	require.Equal(t, http.StatusConflict, httpx.StatusFor(err))

	repo.refs = References{}
	require.NoError(t, svc.Delete(context.Background(), "s1"))
	require.ErrorIs(t, svc.Delete(context.Background(), "s1"), ErrNotFound)
}

func TestPurchasesLoadsItems(t *testing.T) {
	history := &mockHistory{}
	repo := &mockRepository{items: map[string]Supplier{"s1": {ID: "s1", Name: "A"}}}
	svc := NewService(repo, history)

	docs, err := svc.Purchases(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "s1", history.filter.CounterpartyID)
	require.True(t, history.filter.WithItems)

	_, err = svc.Purchases(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearchRoute(t *testing.T) {
	repo := &mockRepository{items: map[string]Supplier{
		"s1": {ID: "s1", Name: "Sinar Jaya"},
		"s2": {ID: "s2", Name: "Maju Mundur"},
	}}
	h := NewHandler(nil, NewService(repo, &mockHistory{}))
	r := chi.NewRouter()
	r.Route("/suppliers", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/suppliers/search/sinar", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Sinar Jaya")
	require.NotContains(t, rec.Body.String(), "Maju")
	require.Equal(t, shared.MaxLimit, repo.filters.Limit)
}
