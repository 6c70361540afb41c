package documents

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kasirpos/pos/internal/inventory"
	"github.com/kasirpos/pos/internal/platform/httpx"
	"github.com/kasirpos/pos/internal/shared"
)

const (
	productP   = "11111111-1111-4111-8111-111111111111"
	productQ   = "22222222-2222-4222-8222-222222222222"
	missingID  = "99999999-9999-4999-8999-999999999999"
	supplierID = "33333333-3333-4333-8333-333333333333"
	customerID = "44444444-4444-4444-8444-444444444444"
)

// memoryState is everything a transaction may touch. WithTx works on a copy
// and only publishes it when fn succeeds.
type memoryState struct {
	products map[string]inventory.Level
	docs     map[string]Document
	moves    []inventory.Movement
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		products: make(map[string]inventory.Level, len(s.products)),
		docs:     make(map[string]Document, len(s.docs)),
		moves:    append([]inventory.Movement(nil), s.moves...),
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.docs {
		v.Items = append([]Item(nil), v.Items...)
		out.docs[k] = v
	}
	return out
}

type memoryRepo struct {
	state   memoryState
	parties map[string]Counterparty
	failOn  string
}

func newMemoryRepo(levels ...inventory.Level) *memoryRepo {
	r := &memoryRepo{
		state: memoryState{
			products: make(map[string]inventory.Level),
			docs:     make(map[string]Document),
		},
		parties: map[string]Counterparty{
			supplierID: {Name: "PT Sumber Makmur", Phone: "021-555"},
			customerID: {Name: "Budi", TaxID: "NPWP-1"},
		},
	}
	for _, lvl := range levels {
		r.state.products[lvl.ProductID] = lvl
	}
	return r
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, state: r.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, kind Kind, id string) (Document, error) {
	doc, ok := r.state.docs[id]
	if !ok || doc.Kind != kind {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *memoryRepo) List(ctx context.Context, kind Kind, filter ListFilter) ([]Document, int, error) {
	var out []Document
	for _, doc := range r.state.docs {
		if doc.Kind != kind {
			continue
		}
		if filter.CounterpartyID != "" && (doc.CounterpartyID == nil || *doc.CounterpartyID != filter.CounterpartyID) {
			continue
		}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, len(out), nil
}

func (r *memoryRepo) stock(id string) int64 {
	return r.state.products[id].Quantity
}

type memoryTx struct {
	repo  *memoryRepo
	state memoryState
}

func (tx *memoryTx) fail(op string) error {
	if tx.repo.failOn == op {
		return errors.New("injected failure: " + op)
	}
	return nil
}

func (tx *memoryTx) LockProducts(ctx context.Context, ids []string) ([]inventory.Level, error) {
	var out []inventory.Level
	for _, id := range ids {
		if lvl, ok := tx.state.products[id]; ok {
			out = append(out, lvl)
		}
	}
	return out, nil
}

func (tx *memoryTx) SaveLevel(ctx context.Context, level inventory.Level) error {
	if err := tx.fail("save_level"); err != nil {
		return err
	}
	tx.state.products[level.ProductID] = level
	return nil
}

func (tx *memoryTx) InsertMovements(ctx context.Context, moves []inventory.Movement) error {
	tx.state.moves = append(tx.state.moves, moves...)
	return nil
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, kind Kind, id string) (Document, error) {
	doc, ok := tx.state.docs[id]
	if !ok || doc.Kind != kind {
		return Document{}, ErrNotFound
	}
	doc.Items = append([]Item(nil), doc.Items...)
	return doc, nil
}

func (tx *memoryTx) LoadCounterparty(ctx context.Context, kind Kind, id string) (Counterparty, error) {
	c, ok := tx.repo.parties[id]
	if !ok {
		return Counterparty{}, ErrCounterpartyNotFound
	}
	return c, nil
}

func (tx *memoryTx) InsertHeader(ctx context.Context, doc Document) error {
	for _, other := range tx.state.docs {
		if other.Kind == doc.Kind && other.Number == doc.Number {
			return ErrDuplicateNumber
		}
	}
	doc.Items = nil
	tx.state.docs[doc.ID] = doc
	return nil
}

func (tx *memoryTx) UpdateHeader(ctx context.Context, doc Document) error {
	cur, ok := tx.state.docs[doc.ID]
	if !ok {
		return ErrNotFound
	}
	doc.Items = cur.Items
	tx.state.docs[doc.ID] = doc
	return nil
}

func (tx *memoryTx) DeleteHeader(ctx context.Context, kind Kind, id string) error {
	if _, ok := tx.state.docs[id]; !ok {
		return ErrNotFound
	}
	delete(tx.state.docs, id)
	return nil
}

func (tx *memoryTx) InsertItems(ctx context.Context, kind Kind, items []Item) error {
	if err := tx.fail("insert_items"); err != nil {
		return err
	}
	for _, it := range items {
		doc := tx.state.docs[it.DocumentID]
		doc.Items = append(doc.Items, it)
		tx.state.docs[it.DocumentID] = doc
	}
	return nil
}

func (tx *memoryTx) DeleteItems(ctx context.Context, kind Kind, documentID string) error {
	doc := tx.state.docs[documentID]
	doc.Items = nil
	tx.state.docs[documentID] = doc
	return nil
}

func (tx *memoryTx) DeleteItem(ctx context.Context, kind Kind, documentID, itemID string) error {
	doc := tx.state.docs[documentID]
	for i, it := range doc.Items {
		if it.ID == itemID {
			doc.Items = append(doc.Items[:i:i], doc.Items[i+1:]...)
			tx.state.docs[documentID] = doc
			return nil
		}
	}
	return ErrItemNotFound
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type countingCache struct {
	bumps int
}

func (c *countingCache) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func newTestService(repo *memoryRepo, allowNegative bool) (*Service, *recordingAudit, *countingCache) {
	audit := &recordingAudit{}
	cache := &countingCache{}
	svc := NewService(repo, inventory.NewLedger(inventory.Config{AllowNegativeStock: allowNegative}), audit, cache, nil)
	return svc, audit, cache
}

func price(v string) *decimal.Decimal {
	p := decimal.RequireFromString(v)
	return &p
}

func saleInput(qty int64, unit string) Input {
	return Input{Items: []ItemInput{{ProductID: productP, Quantity: qty, UnitPrice: price(unit)}}}
}

func stockedP(qty int64, cost string) inventory.Level {
	return inventory.Level{
		ProductID:    productP,
		Code:         "SKU-P",
		Name:         "Product P",
		Quantity:     qty,
		CostPrice:    decimal.RequireFromString(cost),
		SellingPrice: decimal.RequireFromString("120"),
	}
}

func TestCreateSaleDecrementsStock(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, audit, cache := newTestService(repo, true)

	doc, err := svc.Create(context.Background(), KindSale, saleInput(3, "100"), "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(7), repo.stock(productP))
	require.True(t, doc.Total.Equal(decimal.NewFromInt(300)))
	require.True(t, doc.Subtotal.Equal(decimal.NewFromInt(300)))
	require.True(t, doc.Tax.IsZero())
	require.Equal(t, StatusCompleted, doc.Status)
	require.Equal(t, PaymentPaid, doc.PaymentStatus)
	require.Equal(t, DefaultPaymentMethod, doc.PaymentMethod)
	require.Equal(t, "Walk-in customer", doc.Counterparty.Name)
	require.Regexp(t, `^INV-\d{8}-[0-9A-F]{8}$`, doc.Number)
	require.Len(t, doc.Items, 1)
	require.Equal(t, "SKU-P", doc.Items[0].ProductCode)
	require.True(t, doc.Items[0].UnitCost.Equal(decimal.NewFromInt(50)))
	require.Equal(t, "user-1", *doc.CreatedBy)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "sale.create", audit.logs[0].Action)
	require.Equal(t, 1, cache.bumps)
	require.Len(t, repo.state.moves, 1)
	require.Equal(t, int64(-3), repo.state.moves[0].QtyChange)
}

func TestCreateSaleUsesSellingPriceWhenOmitted(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, _, _ := newTestService(repo, true)

	in := Input{Items: []ItemInput{{ProductID: productP, Quantity: 2}}}
	doc, err := svc.Create(context.Background(), KindSale, in, "")
	require.NoError(t, err)
	require.True(t, doc.Total.Equal(decimal.NewFromInt(240)))
	require.Nil(t, doc.CreatedBy)
}

func TestCreatePurchaseIncrementsStockAndCost(t *testing.T) {
	repo := newMemoryRepo(stockedP(7, "50"))
	svc, _, _ := newTestService(repo, true)

	sid := supplierID
	in := Input{
		CounterpartyID: &sid,
		Items:          []ItemInput{{ProductID: productP, Quantity: 5, UnitPrice: price("60")}},
	}
	doc, err := svc.Create(context.Background(), KindPurchase, in, "")
	require.NoError(t, err)
	require.Equal(t, int64(12), repo.stock(productP))
	require.True(t, repo.state.products[productP].CostPrice.Equal(decimal.NewFromInt(60)))
	require.Equal(t, "PT Sumber Makmur", doc.Counterparty.Name)
	require.Equal(t, PaymentPending, doc.PaymentStatus)
	require.Regexp(t, `^PO-`, doc.Number)
}

func TestCreatePurchaseRequiresSupplier(t *testing.T) {
	repo := newMemoryRepo(stockedP(7, "50"))
	svc, _, _ := newTestService(repo, true)

	in := Input{Items: []ItemInput{{ProductID: productP, Quantity: 5, UnitPrice: price("60")}}}
	_, err := svc.Create(context.Background(), KindPurchase, in, "")
	require.ErrorIs(t, err, ErrCounterpartyRequired)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreatePurchaseRequiresUnitPrice(t *testing.T) {
	repo := newMemoryRepo(stockedP(7, "50"))
	svc, _, _ := newTestService(repo, true)

	sid := supplierID
	in := Input{CounterpartyID: &sid, Items: []ItemInput{{ProductID: productP, Quantity: 5}}}
	_, err := svc.Create(context.Background(), KindPurchase, in, "")
	require.ErrorIs(t, err, ErrInvalidItem)
}

func TestCreateUnknownCounterparty(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, _, _ := newTestService(repo, true)

	id := missingID
	in := saleInput(1, "100")
	in.CounterpartyID = &id
	_, err := svc.Create(context.Background(), KindSale, in, "")
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Empty(t, repo.state.docs)
}

func TestCreateSnapshotKeepsExplicitCounterparty(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, _, _ := newTestService(repo, true)

	id := customerID
	in := saleInput(1, "100")
	in.CounterpartyID = &id
	in.Counterparty = Counterparty{Name: "  Budi Santoso  "}
	doc, err := svc.Create(context.Background(), KindSale, in, "")
	require.NoError(t, err)
	require.Equal(t, "Budi Santoso", doc.Counterparty.Name)
	require.Equal(t, "NPWP-1", doc.Counterparty.TaxID)
}

func TestUpdateSaleReversesThenApplies(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, _, _ := newTestService(repo, true)
	ctx := context.Background()

	doc, err := svc.Create(ctx, KindSale, saleInput(3, "100"), "")
	require.NoError(t, err)
	require.Equal(t, int64(7), repo.stock(productP))

	updated, err := svc.Update(ctx, KindSale, doc.ID, saleInput(1, "100"), "")
	require.NoError(t, err)
	require.Equal(t, int64(9), repo.stock(productP))
	require.Equal(t, doc.Number, updated.Number)
	require.True(t, updated.Total.Equal(decimal.NewFromInt(100)))
	require.Len(t, repo.state.docs[doc.ID].Items, 1)
	require.Equal(t, int64(1), repo.state.docs[doc.ID].Items[0].Quantity)
}

func TestUpdateSwapsProducts(t *testing.T) {
	q := inventory.Level{ProductID: productQ, Code: "SKU-Q", Quantity: 4, CostPrice: decimal.NewFromInt(5)}
	repo := newMemoryRepo(stockedP(10, "50"), q)
	svc, _, _ := newTestService(repo, true)
	ctx := context.Background()

	doc, err := svc.Create(ctx, KindSale, saleInput(3, "100"), "")
	require.NoError(t, err)

	in := Input{Items: []ItemInput{{ProductID: productQ, Quantity: 2, UnitPrice: price("10")}}}
	_, err = svc.Update(ctx, KindSale, doc.ID, in, "")
	require.NoError(t, err)
	require.Equal(t, int64(10), repo.stock(productP))
	require.Equal(t, int64(2), repo.stock(productQ))
}

func TestUpdateRejectsEmptyItems(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, _, _ := newTestService(repo, true)
	ctx := context.Background()

	doc, err := svc.Create(ctx, KindSale, saleInput(3, "100"), "")
	require.NoError(t, err)

	_, err = svc.Update(ctx, KindSale, doc.ID, Input{}, "")
	require.ErrorIs(t, err, ErrNoItems)
	require.Equal(t, int64(7), repo.stock(productP))
}

func TestUpdateMissingDocument(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, _, _ := newTestService(repo, true)

	_, err := svc.Update(context.Background(), KindSale, missingID, saleInput(1, "100"), "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSaleRestoresStock(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, audit, _ := newTestService(repo, true)
	ctx := context.Background()

	doc, err := svc.Create(ctx, KindSale, saleInput(3, "100"), "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, KindSale, doc.ID, ""))
	require.Equal(t, int64(10), repo.stock(productP))
	require.Empty(t, repo.state.docs)
	require.Equal(t, "sale.delete", audit.logs[len(audit.logs)-1].Action)

	err = svc.Delete(ctx, KindSale, doc.ID, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUnknownProductPersistsNothing(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, audit, cache := newTestService(repo, true)

	in := Input{Items: []ItemInput{
		{ProductID: productP, Quantity: 1, UnitPrice: price("100")},
		{ProductID: missingID, Quantity: 1, UnitPrice: price("100")},
	}}
	_, err := svc.Create(context.Background(), KindSale, in, "")
	require.ErrorIs(t, err, inventory.ErrProductNotFound)
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Empty(t, repo.state.docs)
	require.Equal(t, int64(10), repo.stock(productP))
	require.Empty(t, repo.state.moves)
	require.Empty(t, audit.logs)
	require.Zero(t, cache.bumps)
}

func TestCreateRollsBackOnItemFailure(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	repo.failOn = "insert_items"
	svc, _, _ := newTestService(repo, true)

	_, err := svc.Create(context.Background(), KindSale, saleInput(3, "100"), "")
	require.Error(t, err)
	require.Empty(t, repo.state.docs)
	require.Equal(t, int64(10), repo.stock(productP))
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, _, _ := newTestService(repo, true)

	_, err := svc.Create(context.Background(), KindSale, Input{}, "")
	require.ErrorIs(t, err, ErrNoItems)
}

func TestCreateRejectsInvalidItems(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, _, _ := newTestService(repo, true)
	ctx := context.Background()

	cases := map[string]ItemInput{
		"zero quantity":  {ProductID: productP, Quantity: 0, UnitPrice: price("1")},
		"missing id":     {Quantity: 1, UnitPrice: price("1")},
		"negative price": {ProductID: productP, Quantity: 1, UnitPrice: price("-1")},
		"quantity cap":   {ProductID: productP, Quantity: 1_000_000_001, UnitPrice: price("1")},
		"price scale":    {ProductID: productP, Quantity: 3, UnitPrice: price("0.33335")},
		"price too big":  {ProductID: productP, Quantity: 1, UnitPrice: price("100000000000000")},
	}
	for name, item := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, KindSale, Input{Items: []ItemInput{item}}, "")
			require.ErrorIs(t, err, httpx.ErrValidation)
		})
	}
	require.Empty(t, repo.state.docs)
}

func TestCreateRejectsDiscountAboveSubtotal(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, _, _ := newTestService(repo, true)

	in := saleInput(1, "100")
	in.Discount = decimal.NewFromInt(150)
	_, err := svc.Create(context.Background(), KindSale, in, "")
	require.ErrorIs(t, err, ErrInvalidAmounts)
	require.Equal(t, int64(10), repo.stock(productP))
}

func TestCreateAppliesDiscountAndTax(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, _, _ := newTestService(repo, true)

	in := saleInput(2, "50")
	in.Discount = decimal.NewFromInt(10)
	in.TaxRate = decimal.NewFromInt(10)
	doc, err := svc.Create(context.Background(), KindSale, in, "")
	require.NoError(t, err)
	require.True(t, doc.Subtotal.Equal(decimal.NewFromInt(100)))
	require.True(t, doc.Tax.Equal(decimal.NewFromInt(9)))
	require.True(t, doc.Total.Equal(decimal.NewFromInt(99)))
}

func TestCreateDuplicateNumber(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, _, _ := newTestService(repo, true)
	ctx := context.Background()

	in := saleInput(1, "100")
	in.Number = "INV-001"
	_, err := svc.Create(ctx, KindSale, in, "")
	require.NoError(t, err)

	_, err = svc.Create(ctx, KindSale, in, "")
	require.ErrorIs(t, err, ErrDuplicateNumber)
	require.ErrorIs(t, err, httpx.ErrConflict)
	require.Equal(t, int64(9), repo.stock(productP))
}

func TestCreateStrictStockPolicy(t *testing.T) {
	repo := newMemoryRepo(stockedP(2, "50"))
	svc, _, _ := newTestService(repo, false)

	_, err := svc.Create(context.Background(), KindSale, saleInput(3, "100"), "")
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	require.Equal(t, int64(2), repo.stock(productP))
	require.Empty(t, repo.state.docs)
}

func TestCreateLenientStockPolicy(t *testing.T) {
	repo := newMemoryRepo(stockedP(2, "50"))
	svc, _, _ := newTestService(repo, true)

	_, err := svc.Create(context.Background(), KindSale, saleInput(3, "100"), "")
	require.NoError(t, err)
	require.Equal(t, int64(-1), repo.stock(productP))
}

func newPurchase(t *testing.T, svc *Service) Document {
	t.Helper()
	sid := supplierID
	in := Input{
		CounterpartyID: &sid,
		Discount:       decimal.NewFromInt(20),
		Items: []ItemInput{
			{ProductID: productP, Quantity: 5, UnitPrice: price("60")},
			{ProductID: productQ, Quantity: 2, UnitPrice: price("10")},
		},
	}
	doc, err := svc.Create(context.Background(), KindPurchase, in, "")
	require.NoError(t, err)
	return doc
}

func TestAddItemsRecomputesTotals(t *testing.T) {
	q := inventory.Level{ProductID: productQ, Code: "SKU-Q", Quantity: 0}
	repo := newMemoryRepo(stockedP(7, "50"), q)
	svc, _, _ := newTestService(repo, true)
	ctx := context.Background()

	doc := newPurchase(t, svc)
	require.True(t, doc.Subtotal.Equal(decimal.NewFromInt(320)))

	updated, err := svc.AddItems(ctx, KindPurchase, doc.ID, AddItemsInput{
		Items: []ItemInput{{ProductID: productQ, Quantity: 3, UnitPrice: price("12")}},
	}, "")
	require.NoError(t, err)
	require.Len(t, updated.Items, 3)
	require.Equal(t, 3, updated.Items[2].LineNo)
	require.True(t, updated.Subtotal.Equal(decimal.NewFromInt(356)))
	require.True(t, updated.Total.Equal(decimal.NewFromInt(336)))
	require.Equal(t, int64(5), repo.stock(productQ))
	require.True(t, repo.state.products[productQ].CostPrice.Equal(decimal.NewFromInt(12)))
	require.True(t, repo.state.docs[doc.ID].Total.Equal(decimal.NewFromInt(336)))
}

func TestAddItemsUnknownProduct(t *testing.T) {
	q := inventory.Level{ProductID: productQ, Code: "SKU-Q"}
	repo := newMemoryRepo(stockedP(7, "50"), q)
	svc, _, _ := newTestService(repo, true)

	doc := newPurchase(t, svc)
	_, err := svc.AddItems(context.Background(), KindPurchase, doc.ID, AddItemsInput{
		Items: []ItemInput{{ProductID: missingID, Quantity: 1, UnitPrice: price("1")}},
	}, "")
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Len(t, repo.state.docs[doc.ID].Items, 2)
}

func TestRemoveItemReversesAndRecomputes(t *testing.T) {
	q := inventory.Level{ProductID: productQ, Code: "SKU-Q"}
	repo := newMemoryRepo(stockedP(7, "50"), q)
	svc, _, _ := newTestService(repo, true)
	ctx := context.Background()

	doc := newPurchase(t, svc)
	require.Equal(t, int64(12), repo.stock(productP))

	updated, err := svc.RemoveItem(ctx, KindPurchase, doc.ID, doc.Items[0].ID, "")
	require.NoError(t, err)
	require.Equal(t, int64(7), repo.stock(productP))
	require.Len(t, updated.Items, 1)
	require.True(t, updated.Subtotal.Equal(decimal.NewFromInt(20)))
	require.True(t, updated.Discount.Equal(decimal.NewFromInt(20)))
	require.True(t, updated.Total.IsZero())

	last, err := svc.RemoveItem(ctx, KindPurchase, doc.ID, updated.Items[0].ID, "")
	require.NoError(t, err)
	require.Empty(t, last.Items)
	require.True(t, last.Total.IsZero())
	require.Equal(t, int64(0), repo.stock(productQ))
}

func TestRemoveItemMissing(t *testing.T) {
	q := inventory.Level{ProductID: productQ, Code: "SKU-Q"}
	repo := newMemoryRepo(stockedP(7, "50"), q)
	svc, _, _ := newTestService(repo, true)

	doc := newPurchase(t, svc)
	_, err := svc.RemoveItem(context.Background(), KindPurchase, doc.ID, missingID, "")
	require.ErrorIs(t, err, ErrItemNotFound)
	require.Equal(t, int64(12), repo.stock(productP))
}

func TestStockInvariantAcrossOperations(t *testing.T) {
	q := inventory.Level{ProductID: productQ, Code: "SKU-Q", Quantity: 100}
	repo := newMemoryRepo(stockedP(50, "10"), q)
	svc, _, _ := newTestService(repo, true)
	ctx := context.Background()

	s1, err := svc.Create(ctx, KindSale, saleInput(4, "20"), "")
	require.NoError(t, err)
	p1 := newPurchase(t, svc)
	_, err = svc.Update(ctx, KindSale, s1.ID, Input{Items: []ItemInput{
		{ProductID: productP, Quantity: 6, UnitPrice: price("20")},
		{ProductID: productQ, Quantity: 1, UnitPrice: price("20")},
	}}, "")
	require.NoError(t, err)
	_, err = svc.RemoveItem(ctx, KindPurchase, p1.ID, p1.Items[1].ID, "")
	require.NoError(t, err)

	var netP, netQ int64
	for _, doc := range repo.state.docs {
		for _, it := range doc.Items {
			delta := int64(doc.Kind.Direction()) * it.Quantity
			switch it.ProductID {
			case productP:
				netP += delta
			case productQ:
				netQ += delta
			}
		}
	}
	require.Equal(t, 50+netP, repo.stock(productP))
	require.Equal(t, 100+netQ, repo.stock(productQ))
}

func TestListRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestService(newMemoryRepo(), true)
	_, _, err := svc.List(context.Background(), KindSale, ListFilter{Status: "void"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestListEmptyIsNotNil(t *testing.T) {
	svc, _, _ := newTestService(newMemoryRepo(), true)
	docs, total, err := svc.List(context.Background(), KindPurchase, ListFilter{})
	require.NoError(t, err)
	require.NotNil(t, docs)
	require.Zero(t, total)
}

func TestCreatePurchaseRejectsOutOfRangeQuantity(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, _, _ := newTestService(repo, false)

	sid := supplierID
	in := Input{
		CounterpartyID: &sid,
		Items:          []ItemInput{{ProductID: productP, Quantity: math.MaxInt64, UnitPrice: price("0")}},
	}
	_, err := svc.Create(context.Background(), KindPurchase, in, "")
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.NotErrorIs(t, err, inventory.ErrInsufficientStock)
	require.Equal(t, int64(10), repo.stock(productP))
	require.Empty(t, repo.state.moves)
}

func TestCreateRejectsAmountsBeyondColumnScale(t *testing.T) {
	repo := newMemoryRepo(stockedP(1_000_000_000, "50"))
	svc, _, _ := newTestService(repo, true)
	ctx := context.Background()

	in := saleInput(1, "10")
	in.TaxRate = decimal.RequireFromString("11.12345")
	_, err := svc.Create(ctx, KindSale, in, "")
	require.ErrorIs(t, err, ErrInvalidAmounts)

	in = saleInput(1, "10")
	in.Discount = decimal.RequireFromString("0.00001")
	_, err = svc.Create(ctx, KindSale, in, "")
	require.ErrorIs(t, err, ErrInvalidAmounts)

	_, err = svc.Create(ctx, KindSale, saleInput(1_000_000_000, "99999999"), "")
	require.ErrorIs(t, err, ErrInvalidAmounts)

	require.Empty(t, repo.state.docs)
	require.Equal(t, int64(1_000_000_000), repo.stock(productP))
}

func TestCreateTotalsMatchStoredScale(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, _, _ := newTestService(repo, true)

	in := saleInput(3, "0.3334")
	in.TaxRate = decimal.RequireFromString("11")
	doc, err := svc.Create(context.Background(), KindSale, in, "")
	require.NoError(t, err)

	for _, d := range []decimal.Decimal{doc.Subtotal, doc.Tax, doc.Total, doc.Items[0].Total} {
		require.True(t, d.Equal(d.Round(AmountScale)), d.String())
	}
	require.True(t, doc.Items[0].Total.Equal(LineTotal(3, doc.Items[0].UnitPrice)))
	require.True(t, doc.Subtotal.Add(doc.Tax).Equal(doc.Total))
	require.Equal(t, "0.11", doc.Tax.String())
}

func TestUpdateKeepsDateWhenOmitted(t *testing.T) {
	repo := newMemoryRepo(stockedP(10, "50"))
	svc, _, _ := newTestService(repo, true)
	ctx := context.Background()

	when := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)
	in := saleInput(2, "100")
	in.Date = &when
	doc, err := svc.Create(ctx, KindSale, in, "")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, KindSale, doc.ID, saleInput(1, "100"), "")
	require.NoError(t, err)
	require.True(t, when.Equal(updated.Date))
	require.True(t, when.Equal(repo.state.docs[doc.ID].Date))

	moved := when.AddDate(0, 0, 1)
	in = saleInput(1, "100")
	in.Date = &moved
	updated, err = svc.Update(ctx, KindSale, doc.ID, in, "")
	require.NoError(t, err)
	require.True(t, moved.Equal(updated.Date))
}
