package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirpos/pos/internal/platform/db"
)

// Repository runs the aggregate report queries.
type Repository interface {
	SalesSummary(ctx context.Context, r Range) (SalesSummary, error)
	SalesByDate(ctx context.Context, r Range, group Grouping) ([]DatePoint, error)
	TopProducts(ctx context.Context, r Range, limit int) ([]ProductSales, error)
	InventoryValue(ctx context.Context) (InventoryValue, error)
	LowStock(ctx context.Context, limit int) ([]LowStockItem, error)
	SalesByCategory(ctx context.Context, r Range) ([]CategorySales, error)
	TopCustomers(ctx context.Context, r Range, limit int) ([]TopCustomer, error)
	ProfitMargins(ctx context.Context, r Range) ([]ProductMargin, error)
	PaymentMethods(ctx context.Context, r Range) ([]PaymentMethodShare, error)
	WarrantyStatus(ctx context.Context, now time.Time, soonDays int) (WarrantyStatus, error)
	ExpiringWarranties(ctx context.Context, now time.Time, days, limit int) ([]ExpiringWarranty, error)
}

// SQLRepository implements Repository on PostgreSQL.
type SQLRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs SQLRepository.
func NewRepository(pool *pgxpool.Pool) *SQLRepository {
	return &SQLRepository{pool: pool}
}

// salesWhere filters completed sales by date. Placeholders start after
// offset existing arguments.
func salesWhere(alias string, r Range, offset int) (string, []interface{}) {
	conds := []string{alias + ".status <> 'cancelled'"}
	var args []interface{}
	if !r.From.IsZero() {
		args = append(args, r.From)
		conds = append(conds, fmt.Sprintf("%s.date >= $%d", alias, offset+len(args)))
	}
	if !r.To.IsZero() {
		args = append(args, r.To)
		conds = append(conds, fmt.Sprintf("%s.date < $%d", alias, offset+len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *SQLRepository) SalesSummary(ctx context.Context, r Range) (SalesSummary, error) {
	where, args := salesWhere("s", r, 0)
	var out SalesSummary
	var revenue, profit, avg, lo, hi pgtype.Numeric
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*),
		SUM(s.total),
		SUM(s.total - COALESCE((SELECT SUM(si.quantity * si.unit_cost) FROM sale_items si WHERE si.sale_id = s.id), 0)),
		AVG(s.total), MIN(s.total), MAX(s.total)
		FROM sales s`+where, args...).Scan(&out.TotalSales, &revenue, &profit, &avg, &lo, &hi)
	if err != nil {
		return SalesSummary{}, err
	}
	out.TotalRevenue = db.Decimal(revenue)
	out.TotalProfit = db.Decimal(profit)
	out.AverageSale = db.Decimal(avg).Round(2)
	out.MinSale = db.Decimal(lo)
	out.MaxSale = db.Decimal(hi)
	return out, nil
}

func (s *SQLRepository) SalesByDate(ctx context.Context, r Range, group Grouping) ([]DatePoint, error) {
	where, args := salesWhere("s", r, 1)
	args = append([]interface{}{string(group)}, args...)
	rows, err := s.pool.Query(ctx, `SELECT DATE_TRUNC($1, s.date) AS bucket, COUNT(*),
		SUM(s.total),
		SUM(s.total - COALESCE((SELECT SUM(si.quantity * si.unit_cost) FROM sale_items si WHERE si.sale_id = s.id), 0))
		FROM sales s`+where+` GROUP BY bucket ORDER BY bucket`, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (DatePoint, error) {
		var p DatePoint
		var revenue, profit pgtype.Numeric
		err := row.Scan(&p.Date, &p.SalesCount, &revenue, &profit)
		p.TotalRevenue, p.TotalProfit = db.Decimal(revenue), db.Decimal(profit)
		return p, err
	})
}

func (s *SQLRepository) TopProducts(ctx context.Context, r Range, limit int) ([]ProductSales, error) {
	where, args := salesWhere("s", r, 1)
	args = append([]interface{}{limit}, args...)
	rows, err := s.pool.Query(ctx, `SELECT p.id::text, p.name, COALESCE(p.sku, ''),
		SUM(si.quantity), SUM(si.total), SUM(si.total - si.quantity * si.unit_cost), COUNT(DISTINCT s.id)
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		JOIN sales s ON s.id = si.sale_id`+where+`
		GROUP BY p.id, p.name, p.sku
		ORDER BY SUM(si.quantity) DESC
		LIMIT $1`, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (ProductSales, error) {
		var p ProductSales
		var revenue, profit pgtype.Numeric
		err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.TotalQuantity, &revenue, &profit, &p.SalesCount)
		p.TotalRevenue, p.TotalProfit = db.Decimal(revenue), db.Decimal(profit)
		return p, err
	})
}

func (s *SQLRepository) InventoryValue(ctx context.Context) (InventoryValue, error) {
	var out InventoryValue
	var cost, selling, potential pgtype.Numeric
	err := s.pool.QueryRow(ctx, `SELECT
		SUM(stock_quantity * cost_price),
		SUM(stock_quantity * selling_price),
		SUM(stock_quantity * (selling_price - cost_price)),
		COUNT(*),
		COUNT(*) FILTER (WHERE stock_quantity <= 0),
		COUNT(*) FILTER (WHERE stock_quantity <= reorder_level)
		FROM products WHERE is_active`).Scan(&cost, &selling, &potential, &out.TotalProducts, &out.OutOfStockProducts, &out.LowStockProducts)
	if err != nil {
		return InventoryValue{}, err
	}
	out.TotalCostValue = db.Decimal(cost)
	out.TotalSellingValue = db.Decimal(selling)
	out.PotentialProfit = db.Decimal(potential)
	return out, nil
}

func (s *SQLRepository) LowStock(ctx context.Context, limit int) ([]LowStockItem, error) {
	rows, err := s.pool.Query(ctx, `SELECT p.id::text, p.name, COALESCE(p.sku, ''), p.stock_quantity, p.reorder_level,
		p.cost_price, p.selling_price, COALESCE(c.name, '')
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.is_active AND p.stock_quantity <= p.reorder_level
		ORDER BY (p.reorder_level - p.stock_quantity) DESC, p.name
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (LowStockItem, error) {
		var it LowStockItem
		var cost, price pgtype.Numeric
		err := row.Scan(&it.ID, &it.Name, &it.SKU, &it.StockQuantity, &it.ReorderLevel, &cost, &price, &it.CategoryName)
		it.CostPrice, it.SellingPrice = db.Decimal(cost), db.Decimal(price)
		return it, err
	})
}

func (s *SQLRepository) SalesByCategory(ctx context.Context, r Range) ([]CategorySales, error) {
	where, args := salesWhere("s", r, 0)
	rows, err := s.pool.Query(ctx, `SELECT c.id::text, COALESCE(c.name, 'Uncategorized'),
		COUNT(DISTINCT s.id), SUM(si.quantity), SUM(si.total), SUM(si.total - si.quantity * si.unit_cost)
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		JOIN sales s ON s.id = si.sale_id
		LEFT JOIN categories c ON c.id = p.category_id`+where+`
		GROUP BY c.id, c.name
		ORDER BY SUM(si.total) DESC`, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (CategorySales, error) {
		var c CategorySales
		var id pgtype.Text
		var revenue, profit pgtype.Numeric
		err := row.Scan(&id, &c.Name, &c.SalesCount, &c.TotalQuantity, &revenue, &profit)
		if id.Valid {
			c.ID = &id.String
		}
		c.TotalRevenue, c.TotalProfit = db.Decimal(revenue), db.Decimal(profit)
		return c, err
	})
}

func (s *SQLRepository) TopCustomers(ctx context.Context, r Range, limit int) ([]TopCustomer, error) {
	where, args := salesWhere("s", r, 1)
	args = append([]interface{}{limit}, args...)
	rows, err := s.pool.Query(ctx, `SELECT c.id::text, c.name, c.phone, c.email,
		COUNT(s.id), SUM(s.total), AVG(s.total), MAX(s.date)
		FROM sales s
		JOIN customers c ON c.id = s.customer_id`+where+`
		GROUP BY c.id, c.name, c.phone, c.email
		ORDER BY SUM(s.total) DESC
		LIMIT $1`, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (TopCustomer, error) {
		var c TopCustomer
		var spent, avg pgtype.Numeric
		err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.SalesCount, &spent, &avg, &c.LastPurchaseDate)
		c.TotalSpent, c.AveragePurchase = db.Decimal(spent), db.Decimal(avg).Round(2)
		return c, err
	})
}

func (s *SQLRepository) ProfitMargins(ctx context.Context, r Range) ([]ProductMargin, error) {
	where, args := salesWhere("s", r, 0)
	rows, err := s.pool.Query(ctx, `SELECT p.id::text, p.name, COALESCE(p.sku, ''),
		SUM(si.quantity), SUM(si.total), SUM(si.quantity * si.unit_cost)
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		JOIN sales s ON s.id = si.sale_id`+where+`
		GROUP BY p.id, p.name, p.sku`, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (ProductMargin, error) {
		var m ProductMargin
		var revenue, cost pgtype.Numeric
		err := row.Scan(&m.ID, &m.Name, &m.SKU, &m.TotalQuantity, &revenue, &cost)
		m.TotalRevenue, m.TotalCost = db.Decimal(revenue), db.Decimal(cost)
		return m, err
	})
}

func (s *SQLRepository) PaymentMethods(ctx context.Context, r Range) ([]PaymentMethodShare, error) {
	where, args := salesWhere("s", r, 0)
	rows, err := s.pool.Query(ctx, `SELECT s.payment_method, COUNT(*), SUM(s.total)
		FROM sales s`+where+`
		GROUP BY s.payment_method
		ORDER BY SUM(s.total) DESC`, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (PaymentMethodShare, error) {
		var p PaymentMethodShare
		var total pgtype.Numeric
		err := row.Scan(&p.PaymentMethod, &p.SalesCount, &total)
		p.TotalAmount = db.Decimal(total)
		return p, err
	})
}

func (s *SQLRepository) WarrantyStatus(ctx context.Context, now time.Time, soonDays int) (WarrantyStatus, error) {
	var out WarrantyStatus
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE warranty_end >= $1),
		COUNT(*) FILTER (WHERE warranty_end < $1),
		COUNT(*) FILTER (WHERE warranty_end BETWEEN $1 AND $2)
		FROM warranties`, now, now.AddDate(0, 0, soonDays)).
		Scan(&out.TotalWarranties, &out.ActiveWarranties, &out.ExpiredWarranties, &out.ExpiringSoon)
	return out, err
}

func (s *SQLRepository) ExpiringWarranties(ctx context.Context, now time.Time, days, limit int) ([]ExpiringWarranty, error) {
	rows, err := s.pool.Query(ctx, `SELECT w.id::text, w.serial_number, w.warranty_start, w.warranty_end, w.warranty_period,
		p.name, COALESCE(p.sku, ''), c.name, c.phone, c.email, COALESCE(s.invoice_number, '')
		FROM warranties w
		JOIN products p ON p.id = w.product_id
		JOIN customers c ON c.id = w.customer_id
		LEFT JOIN sales s ON s.id = w.sale_id
		WHERE w.warranty_end BETWEEN $1 AND $2
		ORDER BY w.warranty_end
		LIMIT $3`, now, now.AddDate(0, 0, days), limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (ExpiringWarranty, error) {
		var w ExpiringWarranty
		err := row.Scan(&w.ID, &w.SerialNumber, &w.Start, &w.End, &w.PeriodMonths,
			&w.ProductName, &w.SKU, &w.CustomerName, &w.Phone, &w.Email, &w.InvoiceNumber)
		return w, err
	})
}

func collect[T any](rows pgx.Rows, scan func(pgx.Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

var _ Repository = (*SQLRepository)(nil)
