package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

type memoryRepo struct {
	values map[string]Setting
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{values: map[string]Setting{}}
}

func (m *memoryRepo) List(ctx context.Context) ([]Setting, error) {
	out := make([]Setting, 0, len(m.values))
	for _, s := range m.values {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, key string) (Setting, error) {
	s, ok := m.values[key]
	if !ok {
		return Setting{}, ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) Upsert(ctx context.Context, values map[string]string, now time.Time) error {
	for k, v := range values {
		m.values[k] = Setting{Key: k, Value: v, UpdatedAt: now}
	}
	return nil
}

func TestListMergesDefaults(t *testing.T) {
	repo := newMemoryRepo()
	repo.values[KeyStoreName] = Setting{Key: KeyStoreName, Value: "Toko Maju"}
	svc := NewService(repo)

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, len(Defaults))
	for i := 1; i < len(items); i++ {
		assert.Less(t, items[i-1].Key, items[i].Key)
	}
	st, err := svc.Get(context.Background(), KeyStoreName)
	require.NoError(t, err)
	assert.Equal(t, "Toko Maju", st.Value)

	_, err = svc.Get(context.Background(), "missing_key")
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestUpdateNormalizesValues(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Update(context.Background(), map[string]string{
		KeyRegistrationEnabled: "1",
		KeyDefaultTaxRate:      "11.00",
		KeyCurrency:            "idr",
	})
	require.NoError(t, err)

	open, err := svc.RegistrationEnabled(context.Background())
	require.NoError(t, err)
	assert.True(t, open)
	st, _ := svc.Get(context.Background(), KeyDefaultTaxRate)
	assert.Equal(t, "11", st.Value)
	st, _ = svc.Get(context.Background(), KeyCurrency)
	assert.Equal(t, "IDR", st.Value)
}

func TestUpdateRejectsInvalid(t *testing.T) {
	svc := NewService(newMemoryRepo())
	cases := []map[string]string{
		{},
		{"Bad Key": "x"},
		{KeyRegistrationEnabled: "maybe"},
		{KeyDefaultTaxRate: "150"},
		{KeyCurrency: "RUPIAH"},
	}
	for _, values := range cases {
		_, err := svc.Update(context.Background(), values)
		require.ErrorIs(t, err, httpx.ErrValidation, values)
	}
}

func TestRegistrationDisabledByDefault(t *testing.T) {
	open, err := NewService(newMemoryRepo()).RegistrationEnabled(context.Background())
	require.NoError(t, err)
	assert.False(t, open)
}

func TestHandlerUpdate(t *testing.T) {
	denied := false
	guard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Role") != "admin" {
				denied = true
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	r := chi.NewRouter()
	r.Route("/api/settings", NewHandler(nil, NewService(newMemoryRepo()), guard).MountRoutes)

	body := `{"store_name":"Toko Maju","registration_enabled":"true"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(body)))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.True(t, denied)

	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(body))
	req.Header.Set("X-Role", "admin")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var items []Setting
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.NotEmpty(t, items)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings/store_name", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Toko Maju")
}
