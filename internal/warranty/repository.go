package warranty

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirpos/pos/internal/platform/db"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	List(ctx context.Context, filter Filter, now time.Time) ([]Warranty, int, error)
	Get(ctx context.Context, id string) (Warranty, error)
	GetBySerial(ctx context.Context, serial string) (Warranty, error)
	Create(ctx context.Context, w Warranty) error
	Update(ctx context.Context, w Warranty) error
	Delete(ctx context.Context, id string) error
	ExpiringBetween(ctx context.Context, from, to time.Time, limit int) ([]Warranty, error)
}

// Repository stores warranties in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectWarranty = `SELECT w.id::text, w.product_id::text, COALESCE(p.name, ''), w.customer_id::text, COALESCE(c.name, ''),
	w.sale_id::text, COALESCE(s.invoice_number, ''), w.serial_number, w.warranty_period, w.warranty_start, w.warranty_end,
	w.notes, w.created_at, w.updated_at
	FROM warranties w
	LEFT JOIN products p ON p.id = w.product_id
	LEFT JOIN customers c ON c.id = w.customer_id
	LEFT JOIN sales s ON s.id = w.sale_id`

func scanWarranty(row pgx.Row) (Warranty, error) {
	var w Warranty
	var saleID pgtype.Text
	err := row.Scan(&w.ID, &w.ProductID, &w.ProductName, &w.CustomerID, &w.CustomerName,
		&saleID, &w.InvoiceNumber, &w.SerialNumber, &w.PeriodMonths, &w.Start, &w.End,
		&w.Notes, &w.CreatedAt, &w.UpdatedAt)
	if saleID.Valid {
		w.SaleID = &saleID.String
	}
	return w, err
}

// List returns a page of warranties, newest first.
func (r *Repository) List(ctx context.Context, filter Filter, now time.Time) ([]Warranty, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(w.serial_number ILIKE $%d OR p.name ILIKE $%d OR c.name ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}
	if filter.CustomerID != "" {
		conditions = append(conditions, fmt.Sprintf("w.customer_id = $%d", argPos))
		args = append(args, filter.CustomerID)
		argPos++
	}
	switch filter.Status {
	case StatusValid:
		conditions = append(conditions, fmt.Sprintf("w.warranty_end >= $%d", argPos))
		args = append(args, now)
		argPos++
	case StatusExpired:
		conditions = append(conditions, fmt.Sprintf("w.warranty_end < $%d", argPos))
		args = append(args, now)
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM warranties w
		LEFT JOIN products p ON p.id = w.product_id
		LEFT JOIN customers c ON c.id = w.customer_id` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectWarranty + where + fmt.Sprintf(" ORDER BY w.created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Warranty
	for rows.Next() {
		w, err := scanWarranty(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, w)
	}
	return out, total, rows.Err()
}

// Get loads a warranty by id.
func (r *Repository) Get(ctx context.Context, id string) (Warranty, error) {
	return r.one(ctx, selectWarranty+` WHERE w.id = $1`, id)
}

// GetBySerial loads a warranty by serial number.
func (r *Repository) GetBySerial(ctx context.Context, serial string) (Warranty, error) {
	return r.one(ctx, selectWarranty+` WHERE w.serial_number = $1`, serial)
}

func (r *Repository) one(ctx context.Context, query string, arg string) (Warranty, error) {
	w, err := scanWarranty(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return Warranty{}, ErrNotFound
	}
	return w, err
}

// Create inserts w.
func (r *Repository) Create(ctx context.Context, w Warranty) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO warranties (id, product_id, customer_id, sale_id, serial_number,
		warranty_period, warranty_start, warranty_end, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		w.ID, w.ProductID, w.CustomerID, w.SaleID, w.SerialNumber, w.PeriodMonths, w.Start, w.End, w.Notes, w.CreatedAt)
	return mapWriteError(err)
}

// Update overwrites every mutable column of w.
func (r *Repository) Update(ctx context.Context, w Warranty) error {
	tag, err := r.pool.Exec(ctx, `UPDATE warranties SET product_id = $2, customer_id = $3, sale_id = $4, serial_number = $5,
		warranty_period = $6, warranty_start = $7, warranty_end = $8, notes = $9, updated_at = $10
		WHERE id = $1`,
		w.ID, w.ProductID, w.CustomerID, w.SaleID, w.SerialNumber, w.PeriodMonths, w.Start, w.End, w.Notes, w.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a warranty.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM warranties WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpiringBetween lists warranties whose end falls in [from, to].
func (r *Repository) ExpiringBetween(ctx context.Context, from, to time.Time, limit int) ([]Warranty, error) {
	rows, err := r.pool.Query(ctx, selectWarranty+` WHERE w.warranty_end BETWEEN $1 AND $2 ORDER BY w.warranty_end LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Warranty
	for rows.Next() {
		w, err := scanWarranty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err):
		return ErrDuplicateSerial
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("%w (%s)", ErrMissingRef, db.ConstraintName(err))
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
