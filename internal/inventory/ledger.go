package inventory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

// Store is the transaction-scoped persistence used by a Posting.
type Store interface {
	// LockProducts returns the current levels and holds a row lock on each
	// product until the surrounding transaction ends.
	LockProducts(ctx context.Context, ids []string) ([]Level, error)
	SaveLevel(ctx context.Context, level Level) error
	InsertMovements(ctx context.Context, moves []Movement) error
}

// Config groups ledger policy.
type Config struct {
	AllowNegativeStock bool
}

// Ledger applies document line effects to product stock.
type Ledger struct {
	allowNeg bool
	now      func() time.Time
}

// NewLedger builds a Ledger.
func NewLedger(cfg Config) *Ledger {
	return &Ledger{allowNeg: cfg.AllowNegativeStock, now: func() time.Time { return time.Now().UTC() }}
}

// Posting accumulates effects for one transaction over a fixed set of locked
// products. Levels are written once, on Commit.
type Posting struct {
	store    Store
	allowNeg bool
	now      time.Time
	levels   map[string]*Level
	dirty    map[string]bool
	moves    []Movement
	closed   bool
}

// Begin locks every product in productIDs, in a stable order, and returns a
// Posting over them. Unknown ids fail with ErrProductNotFound.
func (l *Ledger) Begin(ctx context.Context, store Store, productIDs []string) (*Posting, error) {
	ids := uniqueSorted(productIDs)
	levels, err := store.LockProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*Level, len(levels))
	for i := range levels {
		lvl := levels[i]
		byID[lvl.ProductID] = &lvl
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
	}
	return &Posting{
		store:    store,
		allowNeg: l.allowNeg,
		now:      l.now(),
		levels:   byID,
		dirty:    make(map[string]bool),
	}, nil
}

// Level returns the in-transaction level of a locked product.
func (p *Posting) Level(productID string) (Level, bool) {
	lvl, ok := p.levels[productID]
	if !ok {
		return Level{}, false
	}
	return *lvl, true
}

// Apply posts the effect of lines. Inbound lines overwrite the product cost
// price, so the last line for a product wins.
func (p *Posting) Apply(dir Direction, ref Ref, lines []Line) error {
	for _, line := range lines {
		lvl, err := p.line(line)
		if err != nil {
			return err
		}
		change := int64(dir) * line.Quantity
		if err := shift(lvl, change); err != nil {
			return err
		}
		if dir == DirectionIn {
			lvl.CostPrice = line.UnitCost
		}
		p.record(lvl, ref, change, line, dir.String())
	}
	return nil
}

// Reverse undoes the quantity effect of lines previously applied with dir.
// Cost price is left as is.
func (p *Posting) Reverse(dir Direction, ref Ref, lines []Line) error {
	for _, line := range lines {
		lvl, err := p.line(line)
		if err != nil {
			return err
		}
		change := -int64(dir) * line.Quantity
		if err := shift(lvl, change); err != nil {
			return err
		}
		p.record(lvl, ref, change, line, "REVERSAL "+dir.String())
	}
	return nil
}

// Commit enforces the stock policy on final levels and persists them.
func (p *Posting) Commit(ctx context.Context) error {
	if p.closed {
		return ErrPostingClosed
	}
	ids := make([]string, 0, len(p.dirty))
	for id := range p.dirty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if !p.allowNeg {
		for _, id := range ids {
			if lvl := p.levels[id]; lvl.Quantity < 0 {
				return fmt.Errorf("%w: %s would drop to %d", ErrInsufficientStock, lvl.Code, lvl.Quantity)
			}
		}
	}
	for _, id := range ids {
		if err := p.store.SaveLevel(ctx, *p.levels[id]); err != nil {
			return fmt.Errorf("inventory: save level %s: %w", id, err)
		}
	}
	if len(p.moves) > 0 {
		if err := p.store.InsertMovements(ctx, p.moves); err != nil {
			return fmt.Errorf("inventory: insert movements: %w", err)
		}
	}
	p.closed = true
	return nil
}

func (p *Posting) line(line Line) (*Level, error) {
	if p.closed {
		return nil, ErrPostingClosed
	}
	if line.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	lvl, ok := p.levels[line.ProductID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
	}
	return lvl, nil
}

// shift moves the level by change, refusing results outside int64.
func shift(lvl *Level, change int64) error {
	if (change > 0 && lvl.Quantity > math.MaxInt64-change) ||
		(change < 0 && lvl.Quantity < math.MinInt64-change) {
		return fmt.Errorf("%w: %s %d%+d", ErrQuantityOverflow, lvl.Code, lvl.Quantity, change)
	}
	lvl.Quantity += change
	return nil
}

func (p *Posting) record(lvl *Level, ref Ref, change int64, line Line, note string) {
	p.dirty[lvl.ProductID] = true
	p.moves = append(p.moves, Movement{
		ProductID:  lvl.ProductID,
		RefType:    ref.Type,
		RefID:      ref.ID,
		QtyChange:  change,
		BalanceQty: lvl.Quantity,
		UnitCost:   line.UnitCost,
		Note:       note,
		PostedAt:   p.now,
	})
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
