package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kasirpos/pos/internal/documents"
	"github.com/kasirpos/pos/internal/masterdata/shared"
	"github.com/kasirpos/pos/internal/platform/httpx"
	"github.com/kasirpos/pos/internal/warranty"
)

// HistoryPort lists sale documents.
type HistoryPort interface {
	List(ctx context.Context, kind documents.Kind, filter documents.ListFilter) ([]documents.Document, int, error)
}

// WarrantyPort lists warranties with their current status.
type WarrantyPort interface {
	ByCustomer(ctx context.Context, customerID string) ([]warranty.Verification, error)
}

type Service struct {
	repo       Repository
	history    HistoryPort
	warranties WarrantyPort
}

func NewService(repo Repository, history HistoryPort, warranties WarrantyPort) *Service {
	return &Service{repo: repo, history: history, warranties: warranties}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	out, total, err := s.repo.List(ctx, filters.Normalize())
	if out == nil {
		out = []Customer{}
	}
	return out, total, err
}

func (s *Service) Search(ctx context.Context, query string) ([]Customer, error) {
	out, _, err := s.List(ctx, shared.ListFilters{Search: query, Limit: shared.MaxLimit})
	return out, err
}

func (s *Service) Get(ctx context.Context, id string) (Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (Customer, error) {
	c, err := validate(in)
	if err != nil {
		return Customer{}, err
	}
	c.ID = uuid.NewString()
	return s.repo.Create(ctx, c)
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Customer, error) {
	c, err := validate(in)
	if err != nil {
		return Customer{}, err
	}
	c.ID = id
	return s.repo.Update(ctx, c)
}

// Delete refuses customers that still have sales or warranties.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.References(ctx, id)
	if err != nil {
		return err
	}
	if refs.Sales > 0 || refs.Warranties > 0 {
		return fmt.Errorf("%w (%d sales, %d warranties)", ErrInUse, refs.Sales, refs.Warranties)
	}
	return s.repo.Delete(ctx, id)
}

// Purchases returns the customer's sales with items, newest first.
func (s *Service) Purchases(ctx context.Context, id string) ([]documents.Document, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	docs, _, err := s.history.List(ctx, documents.KindSale, documents.ListFilter{
		CounterpartyID: id,
		Limit:          shared.MaxLimit,
		WithItems:      true,
	})
	return docs, err
}

func (s *Service) Warranties(ctx context.Context, id string) ([]warranty.Verification, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.warranties.ByCustomer(ctx, id)
}

func validate(in Input) (Customer, error) {
	in.Name = shared.NormalizeName(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := httpx.Validate(in); err != nil {
		return Customer{}, err
	}
	return Customer{
		Name:    in.Name,
		Phone:   strings.TrimSpace(in.Phone),
		Email:   in.Email,
		Address: strings.TrimSpace(in.Address),
		TaxID:   strings.TrimSpace(in.TaxID),
		Notes:   in.Notes,
	}, nil
}
