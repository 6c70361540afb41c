package inventory

import (
	"context"
	"fmt"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// RepositoryPort abstracts read access for the service.
type RepositoryPort interface {
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// Service exposes read operations over the ledger.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Movements lists the stock card of one product.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.ProductID == "" {
		return nil, fmt.Errorf("%w: product id required", httpx.ErrValidation)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, fmt.Errorf("%w: to must not be before from", httpx.ErrValidation)
	}
	moves, err := s.repo.ListMovements(ctx, filter)
	if err != nil {
		return nil, err
	}
	if moves == nil {
		moves = []Movement{}
	}
	return moves, nil
}
