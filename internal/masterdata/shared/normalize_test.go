package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Kopi Susu", NormalizeName("  Kopi \t  Susu \n"))
	// "e" followed by a combining acute accent composes to U+00E9.
	assert.Equal(t, "Caf\u00e9", NormalizeName("Cafe\u0301"))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestNullIfEmpty(t *testing.T) {
	require.Nil(t, NullIfEmpty("  "))
	v := NullIfEmpty(" SKU-1 ")
	require.NotNil(t, v)
	require.Equal(t, "SKU-1", *v)
}

func TestFiltersNormalize(t *testing.T) {
	f := ListFilters{Page: 0, Limit: 1000, SortDir: "sideways", Search: "  kopi "}.Normalize()
	assert.Equal(t, DefaultPage, f.Page)
	assert.Equal(t, MaxLimit, f.Limit)
	assert.Equal(t, SortAsc, f.SortDir)
	assert.Equal(t, "kopi", f.Search)
	assert.Equal(t, 0, f.Offset())

	f = ListFilters{Page: 3, Limit: 10}.Normalize()
	assert.Equal(t, 20, f.Offset())
}
