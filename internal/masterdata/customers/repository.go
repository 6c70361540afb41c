package customers

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirpos/pos/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error)
	Get(ctx context.Context, id string) (Customer, error)
	Create(ctx context.Context, customer Customer) (Customer, error)
	Update(ctx context.Context, customer Customer) (Customer, error)
	Delete(ctx context.Context, id string) error
	References(ctx context.Context, id string) (References, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const returning = ` RETURNING id::text, name, phone, email, address, tax_id, notes, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.TaxID, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		p := `$` + strconv.Itoa(argCount)
		where += ` AND (name ILIKE ` + p + ` OR phone ILIKE ` + p + ` OR email ILIKE ` + p + ` OR address ILIKE ` + p + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if filters.SortDir == shared.SortDesc {
		dir = "DESC"
	}
	orderBy := "name"
	if filters.SortBy == "created_at" {
		orderBy = "created_at"
	}
	query := `SELECT id::text, name, phone, email, address, tax_id, notes, created_at, updated_at FROM customers` +
		where + ` ORDER BY ` + orderBy + ` ` + dir +
		` LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, filters.Limit, filters.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx,
		`SELECT id::text, name, phone, email, address, tax_id, notes, created_at, updated_at FROM customers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	out, err := scanCustomer(r.db.QueryRow(ctx, `INSERT INTO customers (id, name, phone, email, address, tax_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`+returning,
		c.ID, c.Name, c.Phone, c.Email, c.Address, c.TaxID, c.Notes))
	if err != nil {
		return Customer{}, shared.MapWriteError(err, nil)
	}
	return out, nil
}

func (r *repository) Update(ctx context.Context, c Customer) (Customer, error) {
	out, err := scanCustomer(r.db.QueryRow(ctx, `UPDATE customers
		SET name = $2, phone = $3, email = $4, address = $5, tax_id = $6, notes = $7, updated_at = NOW()
		WHERE id = $1`+returning,
		c.ID, c.Name, c.Phone, c.Email, c.Address, c.TaxID, c.Notes))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return out, err
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(shared.MapWriteError(err, nil), shared.ErrInUse) {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) References(ctx context.Context, id string) (References, error) {
	var refs References
	err := r.db.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM sales WHERE customer_id = $1),
		(SELECT COUNT(*) FROM warranties WHERE customer_id = $1)`, id).Scan(&refs.Sales, &refs.Warranties)
	return refs, err
}
