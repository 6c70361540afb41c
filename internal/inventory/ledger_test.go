package inventory

import (
	"context"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	levels map[string]Level
	moves  []Movement
	locked [][]string
}

func newMemoryStore(levels ...Level) *memoryStore {
	s := &memoryStore{levels: make(map[string]Level)}
	for _, lvl := range levels {
		s.levels[lvl.ProductID] = lvl
	}
	return s
}

func (s *memoryStore) LockProducts(ctx context.Context, ids []string) ([]Level, error) {
	s.locked = append(s.locked, ids)
	var out []Level
	for _, id := range ids {
		if lvl, ok := s.levels[id]; ok {
			out = append(out, lvl)
		}
	}
	return out, nil
}

func (s *memoryStore) SaveLevel(ctx context.Context, level Level) error {
	s.levels[level.ProductID] = level
	return nil
}

func (s *memoryStore) InsertMovements(ctx context.Context, moves []Movement) error {
	s.moves = append(s.moves, moves...)
	return nil
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestPostingSaleDecrementsStock(t *testing.T) {
	store := newMemoryStore(Level{ProductID: "p1", Code: "SKU-1", Quantity: 10, CostPrice: dec("50")})
	ledger := NewLedger(Config{AllowNegativeStock: true})
	ctx := context.Background()

	posting, err := ledger.Begin(ctx, store, []string{"p1"})
	require.NoError(t, err)
	require.NoError(t, posting.Apply(DirectionOut, Ref{Type: "sale", ID: "s1"}, []Line{{ProductID: "p1", Quantity: 3}}))
	require.NoError(t, posting.Commit(ctx))

	require.EqualValues(t, 7, store.levels["p1"].Quantity)
	require.True(t, dec("50").Equal(store.levels["p1"].CostPrice))
	require.Len(t, store.moves, 1)
	require.EqualValues(t, -3, store.moves[0].QtyChange)
	require.EqualValues(t, 7, store.moves[0].BalanceQty)
}

func TestPostingPurchaseOverwritesCostLastWins(t *testing.T) {
	store := newMemoryStore(Level{ProductID: "p1", Quantity: 7, CostPrice: dec("50")})
	ledger := NewLedger(Config{AllowNegativeStock: true})
	ctx := context.Background()

	posting, err := ledger.Begin(ctx, store, []string{"p1", "p1"})
	require.NoError(t, err)
	err = posting.Apply(DirectionIn, Ref{Type: "purchase", ID: "po1"}, []Line{
		{ProductID: "p1", Quantity: 5, UnitCost: dec("60")},
		{ProductID: "p1", Quantity: 1, UnitCost: dec("65")},
	})
	require.NoError(t, err)
	require.NoError(t, posting.Commit(ctx))

	require.EqualValues(t, 13, store.levels["p1"].Quantity)
	require.True(t, dec("65").Equal(store.levels["p1"].CostPrice))
	require.Equal(t, [][]string{{"p1"}}, store.locked)
}

func TestPostingReverseRestoresQuantity(t *testing.T) {
	store := newMemoryStore(Level{ProductID: "p1", Quantity: 7, CostPrice: dec("60")})
	ledger := NewLedger(Config{AllowNegativeStock: true})
	ctx := context.Background()

	posting, err := ledger.Begin(ctx, store, []string{"p1"})
	require.NoError(t, err)
	ref := Ref{Type: "sale", ID: "s1"}
	require.NoError(t, posting.Reverse(DirectionOut, ref, []Line{{ProductID: "p1", Quantity: 3}}))
	require.NoError(t, posting.Apply(DirectionOut, ref, []Line{{ProductID: "p1", Quantity: 1}}))
	require.NoError(t, posting.Commit(ctx))

	require.EqualValues(t, 9, store.levels["p1"].Quantity)
	require.Len(t, store.moves, 2)
	require.EqualValues(t, 10, store.moves[0].BalanceQty)
	require.EqualValues(t, 9, store.moves[1].BalanceQty)
}

func TestBeginUnknownProduct(t *testing.T) {
	store := newMemoryStore(Level{ProductID: "p1", Quantity: 1})
	ledger := NewLedger(Config{})

	_, err := ledger.Begin(context.Background(), store, []string{"p1", "missing"})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestNegativeStockGuard(t *testing.T) {
	store := newMemoryStore(Level{ProductID: "p1", Code: "SKU-1", Quantity: 2})
	ctx := context.Background()

	strict := NewLedger(Config{AllowNegativeStock: false})
	posting, err := strict.Begin(ctx, store, []string{"p1"})
	require.NoError(t, err)
	require.NoError(t, posting.Apply(DirectionOut, Ref{Type: "sale", ID: "s1"}, []Line{{ProductID: "p1", Quantity: 3}}))
	require.ErrorIs(t, posting.Commit(ctx), ErrInsufficientStock)
	require.EqualValues(t, 2, store.levels["p1"].Quantity)
	require.Empty(t, store.moves)

	lenient := NewLedger(Config{AllowNegativeStock: true})
	posting, err = lenient.Begin(ctx, store, []string{"p1"})
	require.NoError(t, err)
	require.NoError(t, posting.Apply(DirectionOut, Ref{Type: "sale", ID: "s1"}, []Line{{ProductID: "p1", Quantity: 3}}))
	require.NoError(t, posting.Commit(ctx))
	require.EqualValues(t, -1, store.levels["p1"].Quantity)
}

func TestPostingRejectsInvalidLines(t *testing.T) {
	store := newMemoryStore(Level{ProductID: "p1", Quantity: 2})
	ledger := NewLedger(Config{AllowNegativeStock: true})
	ctx := context.Background()

	posting, err := ledger.Begin(ctx, store, []string{"p1"})
	require.NoError(t, err)
	require.ErrorIs(t, posting.Apply(DirectionOut, Ref{}, []Line{{ProductID: "p1", Quantity: 0}}), ErrInvalidQuantity)
	require.ErrorIs(t, posting.Apply(DirectionOut, Ref{}, []Line{{ProductID: "p2", Quantity: 1}}), ErrProductNotFound)

	require.NoError(t, posting.Commit(ctx))
	require.ErrorIs(t, posting.Commit(ctx), ErrPostingClosed)
}

func TestPostingRefusesQuantityOverflow(t *testing.T) {
	store := newMemoryStore(Level{ProductID: "p1", Code: "SKU-1", Quantity: 10})
	ledger := NewLedger(Config{AllowNegativeStock: true})
	ctx := context.Background()

	posting, err := ledger.Begin(ctx, store, []string{"p1"})
	require.NoError(t, err)
	big := []Line{{ProductID: "p1", Quantity: math.MaxInt64}}
	require.ErrorIs(t, posting.Apply(DirectionIn, Ref{Type: "purchase", ID: "b1"}, big), ErrQuantityOverflow)
	lvl, _ := posting.Level("p1")
	require.EqualValues(t, 10, lvl.Quantity)

	require.NoError(t, posting.Apply(DirectionOut, Ref{Type: "sale", ID: "s1"}, []Line{{ProductID: "p1", Quantity: 20}}))
	require.ErrorIs(t, posting.Reverse(DirectionIn, Ref{Type: "purchase", ID: "b1"}, big), ErrQuantityOverflow)
	lvl, _ = posting.Level("p1")
	require.EqualValues(t, -10, lvl.Quantity)
}
