package warranty

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// Service applies warranty rules on top of the repository.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService constructs a warranty service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// List returns a filtered page of warranties.
func (s *Service) List(ctx context.Context, filter Filter) ([]Warranty, int, error) {
	if filter.Status != "" && filter.Status != StatusValid && filter.Status != StatusExpired {
		return nil, 0, fmt.Errorf("%w: status must be valid or expired", httpx.ErrValidation)
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	filter.Search = strings.TrimSpace(filter.Search)
	items, total, err := s.repo.List(ctx, filter, s.now())
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []Warranty{}
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, id string) (Warranty, error) {
	return s.repo.Get(ctx, id)
}

// GetBySerial looks up a warranty by its serial number.
func (s *Service) GetBySerial(ctx context.Context, serial string) (Warranty, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return Warranty{}, ErrNotFound
	}
	return s.repo.GetBySerial(ctx, serial)
}

// Create registers a warranty.
func (s *Service) Create(ctx context.Context, in Input) (Warranty, error) {
	w, err := s.build(in)
	if err != nil {
		return Warranty{}, err
	}
	w.ID = uuid.NewString()
	w.CreatedAt = s.now()
	w.UpdatedAt = w.CreatedAt
	if err := s.repo.Create(ctx, w); err != nil {
		return Warranty{}, err
	}
	return s.repo.Get(ctx, w.ID)
}

// Update replaces a warranty's fields.
func (s *Service) Update(ctx context.Context, id string, in Input) (Warranty, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Warranty{}, err
	}
	if in.Start == nil {
		in.Start = &existing.Start
	}
	w, err := s.build(in)
	if err != nil {
		return Warranty{}, err
	}
	w.ID = existing.ID
	w.CreatedAt = existing.CreatedAt
	w.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, w); err != nil {
		return Warranty{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Verify reports whether the warranty for serial is still in force.
func (s *Service) Verify(ctx context.Context, serial string) (Verification, error) {
	w, err := s.GetBySerial(ctx, serial)
	if err != nil {
		return Verification{}, err
	}
	return Evaluate(w, s.now()), nil
}

// ByCustomer lists a customer's warranties with their current status.
func (s *Service) ByCustomer(ctx context.Context, customerID string) ([]Verification, error) {
	items, _, err := s.repo.List(ctx, Filter{CustomerID: customerID, Page: 1, Limit: maxLimit}, s.now())
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]Verification, 0, len(items))
	for _, w := range items {
		out = append(out, Evaluate(w, now))
	}
	return out, nil
}

// Expiring lists warranties that end within the next days.
func (s *Service) Expiring(ctx context.Context, days, limit int) ([]Warranty, error) {
	if days <= 0 {
		days = 30
	}
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	now := s.now()
	items, err := s.repo.ExpiringBetween(ctx, now, now.AddDate(0, 0, days), limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Warranty{}
	}
	return items, nil
}

func (s *Service) build(in Input) (Warranty, error) {
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)
	if err := httpx.Validate(in); err != nil {
		return Warranty{}, err
	}
	start := s.now()
	if in.Start != nil && !in.Start.IsZero() {
		start = in.Start.UTC()
	}
	var end time.Time
	switch {
	case in.End != nil && !in.End.IsZero():
		end = in.End.UTC()
	case in.PeriodMonths > 0:
		end = start.AddDate(0, in.PeriodMonths, 0)
	default:
		return Warranty{}, ErrInvalidPeriod
	}
	if end.Before(start) {
		return Warranty{}, ErrEndBeforeStart
	}
	var saleID *string
	if in.SaleID != nil && *in.SaleID != "" {
		saleID = in.SaleID
	}
	return Warranty{
		ProductID:    in.ProductID,
		CustomerID:   in.CustomerID,
		SaleID:       saleID,
		SerialNumber: in.SerialNumber,
		PeriodMonths: in.PeriodMonths,
		Start:        start,
		End:          end,
		Notes:        strings.TrimSpace(in.Notes),
	}, nil
}
