package inventory

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirpos/pos/internal/platform/db"
)

// Repository reads stock card data from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListMovements returns stock card rows, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id::text, ref_type, ref_id::text, qty_change, balance_qty, unit_cost, note, posted_at
		FROM stock_movements
		WHERE product_id = $1
		  AND ($2::timestamptz IS NULL OR posted_at >= $2)
		  AND ($3::timestamptz IS NULL OR posted_at <= $3)
		ORDER BY posted_at DESC, id DESC
		LIMIT $4`,
		filter.ProductID, optionalTime(filter.From), optionalTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var moves []Movement
	for rows.Next() {
		var m Movement
		var cost pgtype.Numeric
		if err := rows.Scan(&m.ID, &m.ProductID, &m.RefType, &m.RefID, &m.QtyChange, &m.BalanceQty, &cost, &m.Note, &m.PostedAt); err != nil {
			return nil, err
		}
		m.UnitCost = db.Decimal(cost)
		moves = append(moves, m)
	}
	return moves, rows.Err()
}

// TxStore implements Store on an open transaction.
type TxStore struct {
	tx pgx.Tx
}

// NewTxStore wraps tx.
func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{tx: tx}
}

// LockProducts selects the products FOR UPDATE in id order.
func (s *TxStore) LockProducts(ctx context.Context, ids []string) ([]Level, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.tx.Query(ctx, `SELECT id::text, COALESCE(sku, ''), name, stock_quantity, cost_price, selling_price
		FROM products
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	levels := make([]Level, 0, len(ids))
	for rows.Next() {
		var lvl Level
		var cost, price pgtype.Numeric
		if err := rows.Scan(&lvl.ProductID, &lvl.Code, &lvl.Name, &lvl.Quantity, &cost, &price); err != nil {
			return nil, err
		}
		lvl.CostPrice = db.Decimal(cost)
		lvl.SellingPrice = db.Decimal(price)
		levels = append(levels, lvl)
	}
	return levels, rows.Err()
}

// SaveLevel writes stock quantity and cost price.
func (s *TxStore) SaveLevel(ctx context.Context, level Level) error {
	_, err := s.tx.Exec(ctx, `UPDATE products SET stock_quantity = $2, cost_price = $3, updated_at = NOW() WHERE id = $1`,
		level.ProductID, level.Quantity, db.Numeric(level.CostPrice))
	return err
}

// InsertMovements appends stock card rows in one round trip.
func (s *TxStore) InsertMovements(ctx context.Context, moves []Movement) error {
	batch := &pgx.Batch{}
	for _, m := range moves {
		batch.Queue(`INSERT INTO stock_movements (product_id, ref_type, ref_id, qty_change, balance_qty, unit_cost, note, posted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			m.ProductID, m.RefType, m.RefID, m.QtyChange, m.BalanceQty, db.Numeric(m.UnitCost), m.Note, m.PostedAt)
	}
	return s.tx.SendBatch(ctx, batch).Close()
}

func optionalTime(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}

var _ Store = (*TxStore)(nil)
