package shared

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims, collapses inner whitespace and converts to NFC so
// visually identical names compare equal in unique indexes.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// NullIfEmpty returns nil for blank strings. Optional unique columns store
// NULL so several rows may leave them empty.
func NullIfEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
