package suppliers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kasirpos/pos/internal/documents"
	"github.com/kasirpos/pos/internal/masterdata/shared"
)

// HistoryPort lists purchase documents.
type HistoryPort interface {
	List(ctx context.Context, kind documents.Kind, filter documents.ListFilter) ([]documents.Document, int, error)
}

type Service struct {
	repo    Repository
	history HistoryPort
}

func NewService(repo Repository, history HistoryPort) *Service {
	return &Service{repo: repo, history: history}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	out, total, err := s.repo.List(ctx, filters.Normalize())
	if out == nil {
		out = []Supplier{}
	}
	return out, total, err
}

// Search matches name, contact, phone, email and address.
func (s *Service) Search(ctx context.Context, query string) ([]Supplier, error) {
	out, _, err := s.List(ctx, shared.ListFilters{Search: query, Limit: shared.MaxLimit})
	return out, err
}

func (s *Service) Get(ctx context.Context, id string) (Supplier, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (Supplier, error) {
	sup, err := build(in)
	if err != nil {
		return Supplier{}, err
	}
	sup.ID = uuid.NewString()
	return s.repo.Create(ctx, sup)
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Supplier, error) {
	sup, err := build(in)
	if err != nil {
		return Supplier{}, err
	}
	sup.ID = id
	return s.repo.Update(ctx, sup)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.References(ctx, id)
	if err != nil {
		return err
	}
	if refs.Purchases > 0 || refs.Products > 0 {
		return fmt.Errorf("%w (%d purchases, %d products)", ErrInUse, refs.Purchases, refs.Products)
	}
	return s.repo.Delete(ctx, id)
}

// Purchases returns every purchase from the supplier with its items, newest first.
func (s *Service) Purchases(ctx context.Context, id string) ([]documents.Document, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	docs, _, err := s.history.List(ctx, documents.KindPurchase, documents.ListFilter{
		CounterpartyID: id,
		Limit:          shared.MaxLimit,
		WithItems:      true,
	})
	return docs, err
}
