package categories

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error) {
	out, total, err := s.repo.List(ctx, filters.Normalize())
	if out == nil {
		out = []Category{}
	}
	return out, total, err
}

func (s *Service) Get(ctx context.Context, id string) (Category, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (Category, error) {
	c, err := s.build(in)
	if err != nil {
		return Category{}, err
	}
	c.ID = uuid.NewString()
	return s.repo.Create(ctx, c)
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Category, error) {
	c, err := s.build(in)
	if err != nil {
		return Category{}, err
	}
	c.ID = id
	return s.repo.Update(ctx, c)
}

// Delete refuses while any product still points at the category.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w (%d products)", ErrInUse, n)
	}
	return s.repo.Delete(ctx, id)
}
