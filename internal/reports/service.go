package reports

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

const (
	defaultTopLimit      = 10
	defaultLowStockLimit = 20
	defaultExpiringLimit = 50
	defaultExpiringDays  = 30
	maxLimit             = 500
)

var hundred = decimal.NewFromInt(100)

// Service coordinates report queries with the cache layer.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// NewService wires a Repository with a Cache helper. cache may be nil.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: func() time.Time { return time.Now().UTC() }}
}

// Bump invalidates cached reports after a document write.
func (s *Service) Bump(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) cached(ctx context.Context, dest interface{}, loader func(context.Context) (interface{}, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

func checkRange(r Range) error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return fmt.Errorf("%w: end_date is before start_date", httpx.ErrValidation)
	}
	return nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func (s *Service) SalesSummary(ctx context.Context, r Range) (SalesSummary, error) {
	if err := checkRange(r); err != nil {
		return SalesSummary{}, err
	}
	var out SalesSummary
	err := s.cached(ctx, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.SalesSummary(ctx, r)
	}, "sales_summary", r.token())
	return out, err
}

func (s *Service) SalesByDate(ctx context.Context, r Range, group Grouping) ([]DatePoint, error) {
	if err := checkRange(r); err != nil {
		return nil, err
	}
	var out []DatePoint
	err := s.cached(ctx, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.SalesByDate(ctx, r, group)
	}, "sales_by_date", string(group), r.token())
	return out, err
}

func (s *Service) TopProducts(ctx context.Context, r Range, limit int) ([]ProductSales, error) {
	if err := checkRange(r); err != nil {
		return nil, err
	}
	limit = clampLimit(limit, defaultTopLimit)
	var out []ProductSales
	err := s.cached(ctx, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.TopProducts(ctx, r, limit)
	}, "top_products", strconv.Itoa(limit), r.token())
	return out, err
}

func (s *Service) InventoryValue(ctx context.Context) (InventoryValue, error) {
	var out InventoryValue
	err := s.cached(ctx, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.InventoryValue(ctx)
	}, "inventory_value")
	return out, err
}

func (s *Service) LowStock(ctx context.Context, limit int) ([]LowStockItem, error) {
	limit = clampLimit(limit, defaultLowStockLimit)
	var out []LowStockItem
	err := s.cached(ctx, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.LowStock(ctx, limit)
	}, "low_stock", strconv.Itoa(limit))
	return out, err
}

func (s *Service) SalesByCategory(ctx context.Context, r Range) ([]CategorySales, error) {
	if err := checkRange(r); err != nil {
		return nil, err
	}
	var out []CategorySales
	err := s.cached(ctx, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.SalesByCategory(ctx, r)
	}, "sales_by_category", r.token())
	return out, err
}

func (s *Service) TopCustomers(ctx context.Context, r Range, limit int) ([]TopCustomer, error) {
	if err := checkRange(r); err != nil {
		return nil, err
	}
	limit = clampLimit(limit, defaultTopLimit)
	var out []TopCustomer
	err := s.cached(ctx, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.TopCustomers(ctx, r, limit)
	}, "top_customers", strconv.Itoa(limit), r.token())
	return out, err
}

// ProfitMargins ranks products by margin percentage, highest first.
func (s *Service) ProfitMargins(ctx context.Context, r Range) ([]ProductMargin, error) {
	if err := checkRange(r); err != nil {
		return nil, err
	}
	var out []ProductMargin
	err := s.cached(ctx, &out, func(ctx context.Context) (interface{}, error) {
		rows, err := s.repo.ProfitMargins(ctx, r)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			rows[i].TotalProfit = rows[i].TotalRevenue.Sub(rows[i].TotalCost)
			rows[i].ProfitMargin = decimal.Zero
			if rows[i].TotalRevenue.IsPositive() {
				rows[i].ProfitMargin = rows[i].TotalProfit.Div(rows[i].TotalRevenue).Mul(hundred).Round(2)
			}
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].ProfitMargin.GreaterThan(rows[j].ProfitMargin)
		})
		return rows, nil
	}, "profit_margin", r.token())
	return out, err
}

// PaymentMethods shares each payment method's count of the period's sales.
func (s *Service) PaymentMethods(ctx context.Context, r Range) ([]PaymentMethodShare, error) {
	if err := checkRange(r); err != nil {
		return nil, err
	}
	var out []PaymentMethodShare
	err := s.cached(ctx, &out, func(ctx context.Context) (interface{}, error) {
		rows, err := s.repo.PaymentMethods(ctx, r)
		if err != nil {
			return nil, err
		}
		total := 0
		for _, row := range rows {
			total += row.SalesCount
		}
		for i := range rows {
			rows[i].Percentage = decimal.Zero
			if total > 0 {
				rows[i].Percentage = decimal.NewFromInt(int64(rows[i].SalesCount)).Mul(hundred).
					Div(decimal.NewFromInt(int64(total))).Round(2)
			}
		}
		return rows, nil
	}, "payment_methods", r.token())
	return out, err
}

func (s *Service) WarrantyStatus(ctx context.Context) (WarrantyStatus, error) {
	now := s.now()
	var out WarrantyStatus
	err := s.cached(ctx, &out, func(ctx context.Context) (interface{}, error) {
		return s.repo.WarrantyStatus(ctx, now, defaultExpiringDays)
	}, "warranty_status", now.Format(time.DateOnly))
	return out, err
}

// ExpiringWarranties is not cached; days remaining depend on the clock.
func (s *Service) ExpiringWarranties(ctx context.Context, days, limit int) ([]ExpiringWarranty, error) {
	if days <= 0 {
		days = defaultExpiringDays
	}
	limit = clampLimit(limit, defaultExpiringLimit)
	now := s.now()
	rows, err := s.repo.ExpiringWarranties(ctx, now, days, limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		left := rows[i].End.Sub(now)
		d := int(left / (24 * time.Hour))
		if left%(24*time.Hour) > 0 {
			d++
		}
		rows[i].DaysRemaining = d
	}
	return rows, nil
}

// Overview loads the dashboard reports concurrently.
func (s *Service) Overview(ctx context.Context, r Range) (Overview, error) {
	if err := checkRange(r); err != nil {
		return Overview{}, err
	}
	var out Overview
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.SalesSummary(ctx, r)
		out.Sales = summary
		return err
	})
	g.Go(func() error {
		value, err := s.InventoryValue(ctx)
		out.Inventory = value
		return err
	})
	g.Go(func() error {
		status, err := s.WarrantyStatus(ctx)
		out.Warranties = status
		return err
	})
	g.Go(func() error {
		top, err := s.TopProducts(ctx, r, 5)
		out.TopProducts = top
		return err
	})
	g.Go(func() error {
		low, err := s.LowStock(ctx, 5)
		out.LowStock = low
		return err
	})

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}
