package perf

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kasirpos/pos/internal/documents"
	"github.com/kasirpos/pos/internal/inventory"
)

type memoryStore struct {
	levels map[string]inventory.Level
	moves  int
}

func newMemoryStore(products int) *memoryStore {
	s := &memoryStore{levels: make(map[string]inventory.Level, products)}
	for i := 0; i < products; i++ {
		id := fmt.Sprintf("p-%04d", i)
		s.levels[id] = inventory.Level{ProductID: id, Quantity: 1_000_000, CostPrice: decimal.NewFromInt(50)}
	}
	return s
}

func (s *memoryStore) LockProducts(ctx context.Context, ids []string) ([]inventory.Level, error) {
	out := make([]inventory.Level, 0, len(ids))
	for _, id := range ids {
		if lvl, ok := s.levels[id]; ok {
			out = append(out, lvl)
		}
	}
	return out, nil
}

func (s *memoryStore) SaveLevel(ctx context.Context, level inventory.Level) error {
	s.levels[level.ProductID] = level
	return nil
}

func (s *memoryStore) InsertMovements(ctx context.Context, moves []inventory.Movement) error {
	s.moves += len(moves)
	return nil
}

func checkoutLines(n int) ([]inventory.Line, []documents.Priced, []string) {
	lines := make([]inventory.Line, n)
	priced := make([]documents.Priced, n)
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("p-%04d", i)
		ids[i] = id
		lines[i] = inventory.Line{ProductID: id, Quantity: int64(i%5 + 1)}
		priced[i] = documents.Priced{Quantity: int64(i%5 + 1), UnitPrice: decimal.RequireFromString("12500.50")}
	}
	return lines, priced, ids
}

// checkout runs the CPU side of a sale: totals plus a ledger posting.
func checkout(ctx context.Context, ledger *inventory.Ledger, store inventory.Store, lines []inventory.Line, priced []documents.Priced, ids []string) error {
	documents.Summarize(priced, decimal.NewFromInt(1000), decimal.NewFromInt(11))
	posting, err := ledger.Begin(ctx, store, ids)
	if err != nil {
		return err
	}
	if err := posting.Apply(inventory.DirectionOut, inventory.Ref{Type: "sale", ID: "bench"}, lines); err != nil {
		return err
	}
	return posting.Commit(ctx)
}

func TestCheckoutLatencyTargets(t *testing.T) {
	scenarios := []struct {
		name      string
		lines     int
		threshold time.Duration
	}{
		{name: "basket", lines: 5, threshold: 5 * time.Millisecond},
		{name: "wholesale", lines: 200, threshold: 50 * time.Millisecond},
	}

	ctx := context.Background()
	ledger := inventory.NewLedger(inventory.Config{})
	for _, scenario := range scenarios {
		store := newMemoryStore(scenario.lines)
		lines, priced, ids := checkoutLines(scenario.lines)
		samples := make([]time.Duration, 0, 50)
		for i := 0; i < 50; i++ {
			start := time.Now()
			require.NoError(t, checkout(ctx, ledger, store, lines, priced, ids))
			samples = append(samples, time.Since(start))
		}
		p95 := percentile95(samples)
		if p95 > scenario.threshold {
			t.Fatalf("%s latency regression: p95=%s threshold=%s", scenario.name, p95, scenario.threshold)
		}
		require.Equal(t, 50*scenario.lines, store.moves)
	}
}

func BenchmarkSummarize(b *testing.B) {
	_, priced, _ := checkoutLines(50)
	discount := decimal.NewFromInt(1000)
	rate := decimal.NewFromInt(11)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		documents.Summarize(priced, discount, rate)
	}
}

func BenchmarkCheckoutPosting(b *testing.B) {
	ctx := context.Background()
	ledger := inventory.NewLedger(inventory.Config{AllowNegativeStock: true})
	store := newMemoryStore(20)
	lines, priced, ids := checkoutLines(20)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := checkout(ctx, ledger, store, lines, priced, ids); err != nil {
			b.Fatal(err)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
