package documents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kasirpos/pos/internal/inventory"
	"github.com/kasirpos/pos/internal/platform/httpx"
	"github.com/kasirpos/pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, kind Kind, id string) (Document, error)
	List(ctx context.Context, kind Kind, filter ListFilter) ([]Document, int, error)
}

// TxRepository exposes transactional operations used by service. It embeds
// the ledger store so postings share the document transaction.
type TxRepository interface {
	inventory.Store
	GetForUpdate(ctx context.Context, kind Kind, id string) (Document, error)
	LoadCounterparty(ctx context.Context, kind Kind, id string) (Counterparty, error)
	InsertHeader(ctx context.Context, doc Document) error
	UpdateHeader(ctx context.Context, doc Document) error
	DeleteHeader(ctx context.Context, kind Kind, id string) error
	InsertItems(ctx context.Context, kind Kind, items []Item) error
	DeleteItems(ctx context.Context, kind Kind, documentID string) error
	DeleteItem(ctx context.Context, kind Kind, documentID, itemID string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CachePort invalidates derived report data after writes.
type CachePort interface {
	Bump(ctx context.Context) error
}

// Service writes sales and purchases together with their stock effects.
type Service struct {
	repo   RepositoryPort
	ledger *inventory.Ledger
	audit  AuditPort
	cache  CachePort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service. audit and cache may be nil.
func NewService(repo RepositoryPort, ledger *inventory.Ledger, audit AuditPort, cache CachePort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		ledger: ledger,
		audit:  audit,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a document with its items.
func (s *Service) Get(ctx context.Context, kind Kind, id string) (Document, error) {
	return s.repo.Get(ctx, kind, id)
}

// List returns a page of documents and the total count.
func (s *Service) List(ctx context.Context, kind Kind, filter ListFilter) ([]Document, int, error) {
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, 0, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, filter.Status)
	}
	docs, total, err := s.repo.List(ctx, kind, filter)
	if err != nil {
		return nil, 0, err
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, total, nil
}

// Create writes the header, the items and their stock effects atomically.
func (s *Service) Create(ctx context.Context, kind Kind, in Input, actorID string) (Document, error) {
	if err := validateInput(kind, in); err != nil {
		return Document{}, err
	}
	now := s.now()
	doc := Document{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if actorID != "" {
		doc.CreatedBy = &actorID
	}
	s.applyHeader(&doc, in)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.resolveCounterparty(ctx, tx, &doc, in); err != nil {
			return err
		}
		posting, err := s.ledger.Begin(ctx, tx, inputProductIDs(in.Items))
		if err != nil {
			return err
		}
		items, err := buildItems(kind, doc.ID, 1, in.Items, posting)
		if err != nil {
			return err
		}
		doc.Items = items
		if err := s.total(&doc); err != nil {
			return err
		}
		if err := tx.InsertHeader(ctx, doc); err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, kind, items); err != nil {
			return err
		}
		if err := posting.Apply(kind.Direction(), doc.ref(), ledgerLines(items)); err != nil {
			return err
		}
		return posting.Commit(ctx)
	})
	if err != nil {
		return Document{}, err
	}
	s.afterWrite(ctx, "create", doc, actorID)
	return doc, nil
}

// Update replaces the header fields and the whole item set. Stock effects of
// the old items are reversed before the new ones are applied, all within
// one transaction.
func (s *Service) Update(ctx context.Context, kind Kind, id string, in Input, actorID string) (Document, error) {
	if err := validateInput(kind, in); err != nil {
		return Document{}, err
	}
	var doc Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		doc = existing
		doc.Items = nil
		doc.UpdatedAt = s.now()
		s.applyHeader(&doc, in)
		if in.Number == "" {
			doc.Number = existing.Number
		}
		if err := s.resolveCounterparty(ctx, tx, &doc, in); err != nil {
			return err
		}

		ids := append(itemProductIDs(existing.Items), inputProductIDs(in.Items)...)
		posting, err := s.ledger.Begin(ctx, tx, ids)
		if err != nil {
			return err
		}
		if err := posting.Reverse(kind.Direction(), doc.ref(), ledgerLines(existing.Items)); err != nil {
			return err
		}
		if err := tx.DeleteItems(ctx, kind, id); err != nil {
			return err
		}

		items, err := buildItems(kind, doc.ID, 1, in.Items, posting)
		if err != nil {
			return err
		}
		doc.Items = items
		if err := s.total(&doc); err != nil {
			return err
		}
		if err := tx.UpdateHeader(ctx, doc); err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, kind, items); err != nil {
			return err
		}
		if err := posting.Apply(kind.Direction(), doc.ref(), ledgerLines(items)); err != nil {
			return err
		}
		return posting.Commit(ctx)
	})
	if err != nil {
		return Document{}, err
	}
	s.afterWrite(ctx, "update", doc, actorID)
	return doc, nil
}

// Delete reverses the stock effects of every item and removes the document.
func (s *Service) Delete(ctx context.Context, kind Kind, id string, actorID string) error {
	var doc Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		doc = existing
		posting, err := s.ledger.Begin(ctx, tx, itemProductIDs(existing.Items))
		if err != nil {
			return err
		}
		if err := posting.Reverse(kind.Direction(), doc.ref(), ledgerLines(existing.Items)); err != nil {
			return err
		}
		if err := tx.DeleteItems(ctx, kind, id); err != nil {
			return err
		}
		if err := tx.DeleteHeader(ctx, kind, id); err != nil {
			return err
		}
		return posting.Commit(ctx)
	})
	if err != nil {
		return err
	}
	s.afterWrite(ctx, "delete", doc, actorID)
	return nil
}

// AddItems appends lines to an existing document and applies their stock
// effect. Totals are recomputed from every current item.
func (s *Service) AddItems(ctx context.Context, kind Kind, id string, in AddItemsInput, actorID string) (Document, error) {
	if err := validateItems(kind, in.Items); err != nil {
		return Document{}, err
	}
	var doc Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		doc = existing
		posting, err := s.ledger.Begin(ctx, tx, inputProductIDs(in.Items))
		if err != nil {
			return err
		}
		added, err := buildItems(kind, doc.ID, nextLineNo(existing.Items), in.Items, posting)
		if err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, kind, added); err != nil {
			return err
		}
		if err := posting.Apply(kind.Direction(), doc.ref(), ledgerLines(added)); err != nil {
			return err
		}
		doc.Items = append(existing.Items, added...)
		doc.UpdatedAt = s.now()
		if err := s.total(&doc); err != nil {
			return err
		}
		if err := tx.UpdateHeader(ctx, doc); err != nil {
			return err
		}
		return posting.Commit(ctx)
	})
	if err != nil {
		return Document{}, err
	}
	s.afterWrite(ctx, "add_items", doc, actorID)
	return doc, nil
}

// RemoveItem deletes one line, reverses its stock effect and recomputes the
// totals from the remaining items. A discount larger than the new subtotal
// is clamped to it.
func (s *Service) RemoveItem(ctx context.Context, kind Kind, id, itemID string, actorID string) (Document, error) {
	var doc Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		doc = existing
		var removed *Item
		remaining := make([]Item, 0, len(existing.Items))
		for i := range existing.Items {
			if existing.Items[i].ID == itemID {
				removed = &existing.Items[i]
				continue
			}
			remaining = append(remaining, existing.Items[i])
		}
		if removed == nil {
			return ErrItemNotFound
		}
		posting, err := s.ledger.Begin(ctx, tx, []string{removed.ProductID})
		if err != nil {
			return err
		}
		if err := posting.Reverse(kind.Direction(), doc.ref(), ledgerLines([]Item{*removed})); err != nil {
			return err
		}
		if err := tx.DeleteItem(ctx, kind, id, itemID); err != nil {
			return err
		}
		doc.Items = remaining
		doc.UpdatedAt = s.now()
		subtotal := Summarize(pricedItems(remaining), decimal.Zero, decimal.Zero).Subtotal
		if doc.Discount.GreaterThan(subtotal) {
			doc.Discount = subtotal
		}
		if err := s.total(&doc); err != nil {
			return err
		}
		if err := tx.UpdateHeader(ctx, doc); err != nil {
			return err
		}
		return posting.Commit(ctx)
	})
	if err != nil {
		return Document{}, err
	}
	s.afterWrite(ctx, "remove_item", doc, actorID)
	return doc, nil
}

func (s *Service) applyHeader(doc *Document, in Input) {
	doc.Number = strings.TrimSpace(in.Number)
	if doc.Number == "" {
		doc.Number = generateNumber(doc.Kind, s.now())
	}
	doc.CounterpartyID = in.CounterpartyID
	doc.Counterparty = trimCounterparty(in.Counterparty)
	if in.Date != nil && !in.Date.IsZero() {
		doc.Date = in.Date.UTC()
	} else if doc.Date.IsZero() {
		doc.Date = s.now()
	}
	doc.TaxRate = in.TaxRate
	doc.Discount = in.Discount
	doc.Status = in.Status
	if doc.Status == "" {
		doc.Status = StatusCompleted
	}
	doc.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if doc.PaymentMethod == "" {
		doc.PaymentMethod = DefaultPaymentMethod
	}
	doc.PaymentStatus = in.PaymentStatus
	if doc.PaymentStatus == "" {
		doc.PaymentStatus = PaymentPaid
		if doc.Kind == KindPurchase {
			doc.PaymentStatus = PaymentPending
		}
	}
	doc.Notes = in.Notes
}

// resolveCounterparty fills empty snapshot fields from the referenced
// customer or supplier. The referenced record must exist.
func (s *Service) resolveCounterparty(ctx context.Context, tx TxRepository, doc *Document, in Input) error {
	if in.CounterpartyID == nil || *in.CounterpartyID == "" {
		doc.CounterpartyID = nil
		if doc.Counterparty.Name == "" && doc.Kind == KindSale {
			doc.Counterparty.Name = "Walk-in customer"
		}
		return nil
	}
	party, err := tx.LoadCounterparty(ctx, doc.Kind, *in.CounterpartyID)
	if err != nil {
		return err
	}
	snap := doc.Counterparty
	if snap.Name == "" {
		snap.Name = party.Name
	}
	if snap.TaxID == "" {
		snap.TaxID = party.TaxID
	}
	if snap.Phone == "" {
		snap.Phone = party.Phone
	}
	if snap.Address == "" {
		snap.Address = party.Address
	}
	doc.Counterparty = snap
	return nil
}

func (s *Service) total(doc *Document) error {
	totals := Summarize(pricedItems(doc.Items), doc.Discount, doc.TaxRate)
	if doc.Discount.GreaterThan(totals.Subtotal) {
		return fmt.Errorf("%w: discount %s exceeds subtotal %s", ErrInvalidAmounts, doc.Discount, totals.Subtotal)
	}
	if !fitsAmount(totals.Subtotal) || !fitsAmount(totals.Total) {
		return fmt.Errorf("%w: document total must be below %s", ErrInvalidAmounts, maxAmount)
	}
	doc.applyTotals(totals)
	return nil
}

func (s *Service) afterWrite(ctx context.Context, action string, doc Document, actorID string) {
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   doc.Kind.label() + "." + action,
			Entity:   doc.Kind.label(),
			EntityID: doc.ID,
			Meta: map[string]any{
				"invoice_number": doc.Number,
				"total":          doc.Total.String(),
				"items":          len(doc.Items),
			},
		})
		if err != nil {
			s.logger.Warn("audit document write", slog.String("id", doc.ID), slog.Any("error", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("bump report cache", slog.Any("error", err))
		}
	}
}

func validateInput(kind Kind, in Input) error {
	if err := httpx.Validate(in); err != nil {
		return err
	}
	if kind == KindPurchase && (in.CounterpartyID == nil || *in.CounterpartyID == "") {
		return ErrCounterpartyRequired
	}
	if in.TaxRate.IsNegative() || in.TaxRate.GreaterThan(hundred) {
		return fmt.Errorf("%w: tax_rate must be between 0 and 100", ErrInvalidAmounts)
	}
	if in.Discount.IsNegative() {
		return fmt.Errorf("%w: discount must not be negative", ErrInvalidAmounts)
	}
	if !in.TaxRate.Equal(in.TaxRate.Round(AmountScale)) {
		return fmt.Errorf("%w: tax_rate allows at most %d decimals", ErrInvalidAmounts, AmountScale)
	}
	if !fitsAmount(in.Discount) {
		return fmt.Errorf("%w: discount allows at most %d decimals and must be below %s", ErrInvalidAmounts, AmountScale, maxAmount)
	}
	return validateItems(kind, in.Items)
}

func validateItems(kind Kind, items []ItemInput) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	for i, it := range items {
		if err := httpx.Validate(it); err != nil {
			return fmt.Errorf("item %d: %w", i+1, err)
		}
		if it.UnitPrice == nil {
			if kind == KindPurchase {
				return fmt.Errorf("%w: item %d: unit_price is required", ErrInvalidItem, i+1)
			}
			continue
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %d: unit_price must not be negative", ErrInvalidItem, i+1)
		}
		if !fitsAmount(*it.UnitPrice) {
			return fmt.Errorf("%w: item %d: unit_price allows at most %d decimals and must be below %s", ErrInvalidItem, i+1, AmountScale, maxAmount)
		}
	}
	return nil
}

// buildItems snapshots product code and name from the locked levels. Sale
// lines without a unit price use the product selling price, and record the
// current cost price for margin reporting.
func buildItems(kind Kind, documentID string, firstLine int, inputs []ItemInput, posting *inventory.Posting) ([]Item, error) {
	items := make([]Item, 0, len(inputs))
	for i, in := range inputs {
		lvl, ok := posting.Level(in.ProductID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", inventory.ErrProductNotFound, in.ProductID)
		}
		price := lvl.SellingPrice
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		}
		cost := lvl.CostPrice
		if kind == KindPurchase {
			cost = price
		}
		items = append(items, Item{
			ID:          uuid.NewString(),
			DocumentID:  documentID,
			LineNo:      firstLine + i,
			ProductID:   in.ProductID,
			ProductCode: lvl.Code,
			ProductName: lvl.Name,
			Quantity:    in.Quantity,
			UnitPrice:   price,
			UnitCost:    cost,
			Total:       LineTotal(in.Quantity, price),
		})
	}
	return items, nil
}

func ledgerLines(items []Item) []inventory.Line {
	lines := make([]inventory.Line, len(items))
	for i, it := range items {
		lines[i] = inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity, UnitCost: it.UnitCost}
	}
	return lines
}

func inputProductIDs(items []ItemInput) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	return ids
}

func itemProductIDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	return ids
}

func nextLineNo(items []Item) int {
	last := 0
	for _, it := range items {
		if it.LineNo > last {
			last = it.LineNo
		}
	}
	return last + 1
}

func generateNumber(kind Kind, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", kind.numberPrefix(), now.Format("20060102"), suffix)
}

func trimCounterparty(c Counterparty) Counterparty {
	return Counterparty{
		Name:    strings.TrimSpace(c.Name),
		TaxID:   strings.TrimSpace(c.TaxID),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
	}
}

func validStatus(s Status) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
