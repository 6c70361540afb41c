package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kasirpos/pos/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	out, total, err := s.repo.List(ctx, filters.Normalize())
	if out == nil {
		out = []Product{}
	}
	return out, total, err
}

func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (Product, error) {
	p, err := build(in)
	if err != nil {
		return Product{}, err
	}
	p.ID = uuid.NewString()
	return s.repo.Create(ctx, p)
}

// Update replaces catalog fields. The stock quantity in the payload is
// ignored.
func (s *Service) Update(ctx context.Context, id string, in Input) (Product, error) {
	p, err := build(in)
	if err != nil {
		return Product{}, err
	}
	p.ID = id
	p.StockQuantity = 0
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.References(ctx, id)
	if err != nil {
		return err
	}
	if refs.SaleItems > 0 || refs.PurchaseItems > 0 {
		return fmt.Errorf("%w (%d sale lines, %d purchase lines)", ErrInUse, refs.SaleItems, refs.PurchaseItems)
	}
	return s.repo.Delete(ctx, id)
}
