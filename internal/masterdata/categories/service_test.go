package categories

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kasirpos/pos/internal/masterdata/shared"
	"github.com/kasirpos/pos/internal/platform/httpx"
)

type memoryRepo struct {
	items    map[string]Category
	products map[string]int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[string]Category{}, products: map[string]int{}}
}

func (m *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error) {
	var out []Category
	for _, c := range m.items {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id string) (Category, error) {
	c, ok := m.items[id]
	if !ok {
		return Category{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) unique(c Category) error {
	for _, other := range m.items {
		if other.ID != c.ID && strings.EqualFold(other.Name, c.Name) {
			return ErrDuplicateName
		}
	}
	return nil
}

func (m *memoryRepo) Create(ctx context.Context, c Category) (Category, error) {
	if err := m.unique(c); err != nil {
		return Category{}, err
	}
	m.items[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Update(ctx context.Context, c Category) (Category, error) {
	if _, ok := m.items[c.ID]; !ok {
		return Category{}, ErrNotFound
	}
	if err := m.unique(c); err != nil {
		return Category{}, err
	}
	m.items[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *memoryRepo) CountProducts(ctx context.Context, id string) (int, error) {
	return m.products[id], nil
}

func TestCreateNormalizesAndRejectsDuplicates(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, Input{Name: "  Minuman   Dingin "})
	require.NoError(t, err)
	require.Equal(t, "Minuman Dingin", c.Name)
	require.NotEmpty(t, c.ID)

	_, err = svc.Create(ctx, Input{Name: "minuman dingin"})
	require.ErrorIs(t, err, ErrDuplicateName)
	require.Equal(t, http.StatusConflict, httpx.StatusFor(err))
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Create(context.Background(), Input{Name: "   "})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDeleteBlockedWhileUsed(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	c, err := svc.Create(ctx, Input{Name: "Snack"})
	require.NoError(t, err)
	repo.products[c.ID] = 2

	err = svc.Delete(ctx, c.ID)
	require.ErrorIs(t, err, ErrInUse)

	repo.products[c.ID] = 0
	require.NoError(t, svc.Delete(ctx, c.ID))
	_, err = svc.Get(ctx, c.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHandlerRoutes(t *testing.T) {
	h := NewHandler(nil, NewService(newMemoryRepo()))
	r := chi.NewRouter()
	r.Route("/categories", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"Elektronik"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"per_page":5`)
	require.Contains(t, rec.Body.String(), "Elektronik")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/categories/8a4f3a8e-2f7e-4f51-9f1e-8c2d7f3b9a10", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
