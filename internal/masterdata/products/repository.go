package products

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirpos/pos/internal/inventory"
	"github.com/kasirpos/pos/internal/masterdata/shared"
	"github.com/kasirpos/pos/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id string) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, product Product) (Product, error)
	Delete(ctx context.Context, id string) error
	References(ctx context.Context, id string) (References, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const selectProduct = `SELECT p.id::text, p.name, p.description, p.sku, p.barcode,
	p.category_id::text, COALESCE(c.name, ''), p.supplier_id::text, COALESCE(s.name, ''),
	p.cost_price, p.selling_price, p.stock_quantity, p.reorder_level, p.location, p.is_active,
	p.created_at, p.updated_at
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN suppliers s ON s.id = p.supplier_id`

var uniqueColumns = map[string]error{
	"products_sku_key":     ErrDuplicateSKU,
	"products_barcode_key": ErrDuplicateBarcode,
}

var foreignKeys = map[string]error{
	"products_category_id_fkey": ErrCategoryNotFound,
	"products_supplier_id_fkey": ErrSupplierNotFound,
}

var deleteForeignKeys = map[string]error{
	"sale_items_product_id_fkey":     ErrInUse,
	"purchase_items_product_id_fkey": ErrInUse,
	"warranties_product_id_fkey":     ErrHasWarranties,
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p                                Product
		sku, barcode, category, supplier pgtype.Text
		cost, price                      pgtype.Numeric
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &sku, &barcode,
		&category, &p.CategoryName, &supplier, &p.SupplierName,
		&cost, &price, &p.StockQuantity, &p.ReorderLevel, &p.Location, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.SKU = textPtr(sku)
	p.Barcode = textPtr(barcode)
	p.CategoryID = textPtr(category)
	p.SupplierID = textPtr(supplier)
	p.CostPrice = db.Decimal(cost)
	p.SellingPrice = db.Decimal(price)
	return p, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		p := `$` + strconv.Itoa(argCount)
		where += ` AND (p.name ILIKE ` + p + ` OR p.sku ILIKE ` + p + ` OR p.barcode ILIKE ` + p + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.CategoryID != "" {
		argCount++
		where += ` AND p.category_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.CategoryID)
	}
	if filters.SupplierID != "" {
		argCount++
		where += ` AND p.supplier_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.SupplierID)
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND p.is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}
	if filters.LowStock {
		where += ` AND p.stock_quantity <= p.reorder_level`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectProduct + where + " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filters.Limit, filters.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, selectProduct+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// Create inserts the product and, when it starts with stock, an opening
// row on its stock card.
func (r *repository) Create(ctx context.Context, p Product) (Product, error) {
	err := db.WithTx(ctx, r.db, 0, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO products (id, name, description, sku, barcode, category_id, supplier_id,
			cost_price, selling_price, stock_quantity, reorder_level, location, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			p.ID, p.Name, p.Description, p.SKU, p.Barcode, p.CategoryID, p.SupplierID,
			db.Numeric(p.CostPrice), db.Numeric(p.SellingPrice), p.StockQuantity, p.ReorderLevel, p.Location, p.IsActive)
		if err != nil {
			return mapWriteError(err)
		}
		if p.StockQuantity == 0 {
			return nil
		}
		return inventory.NewTxStore(tx).InsertMovements(ctx, []inventory.Movement{{
			ProductID:  p.ID,
			RefType:    inventory.RefOpening,
			RefID:      p.ID,
			QtyChange:  p.StockQuantity,
			BalanceQty: p.StockQuantity,
			UnitCost:   p.CostPrice,
			Note:       "opening stock",
			PostedAt:   time.Now().UTC(),
		}})
	})
	if err != nil {
		return Product{}, err
	}
	return r.Get(ctx, p.ID)
}

// Update never touches stock_quantity; stock only moves through documents.
func (r *repository) Update(ctx context.Context, p Product) (Product, error) {
	tag, err := r.db.Exec(ctx, `UPDATE products
		SET name = $2, description = $3, sku = $4, barcode = $5, category_id = $6, supplier_id = $7,
			cost_price = $8, selling_price = $9, reorder_level = $10, location = $11, is_active = $12, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.SKU, p.Barcode, p.CategoryID, p.SupplierID,
		db.Numeric(p.CostPrice), db.Numeric(p.SellingPrice), p.ReorderLevel, p.Location, p.IsActive)
	if err != nil {
		return Product{}, mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return Product{}, ErrNotFound
	}
	return r.Get(ctx, p.ID)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return db.WithTx(ctx, r.db, 0, func(ctx context.Context, tx pgx.Tx) error {
		return deleteProduct(ctx, tx, id)
	})
}

type queryExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// deleteProduct locks the product, re-checks document lines and then drops
// its stock card together with the product row.
func deleteProduct(ctx context.Context, q queryExecer, id string) error {
	var locked string
	err := q.QueryRow(ctx, `SELECT id::text FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var refs References
	if err := q.QueryRow(ctx, referencesSQL, id).Scan(&refs.SaleItems, &refs.PurchaseItems); err != nil {
		return err
	}
	if refs.SaleItems > 0 || refs.PurchaseItems > 0 {
		return ErrInUse
	}
	if _, err := q.Exec(ctx, `DELETE FROM stock_movements WHERE product_id = $1`, id); err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			if mapped, ok := deleteForeignKeys[db.ConstraintName(err)]; ok {
				return mapped
			}
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const referencesSQL = `SELECT
	(SELECT COUNT(*) FROM sale_items WHERE product_id = $1),
	(SELECT COUNT(*) FROM purchase_items WHERE product_id = $1)`

func (r *repository) References(ctx context.Context, id string) (References, error) {
	var refs References
	err := r.db.QueryRow(ctx, referencesSQL, id).Scan(&refs.SaleItems, &refs.PurchaseItems)
	return refs, err
}

func mapWriteError(err error) error {
	if db.IsForeignKeyViolation(err) {
		if mapped, ok := foreignKeys[db.ConstraintName(err)]; ok {
			return mapped
		}
	}
	return shared.MapWriteError(err, uniqueColumns)
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "sku":
		return "p.sku " + dir
	case "selling_price":
		return "p.selling_price " + dir
	case "cost_price":
		return "p.cost_price " + dir
	case "stock_quantity":
		return "p.stock_quantity " + dir
	case "created_at":
		return "p.created_at " + dir
	default:
		return "p.name " + dir
	}
}
