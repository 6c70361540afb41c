package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirpos/pos/internal/inventory"
	"github.com/kasirpos/pos/internal/platform/db"
	"github.com/kasirpos/pos/internal/platform/httpx"
)

// tables maps a document kind onto its header, item and counterparty tables.
type tables struct {
	header string
	items  string
	fk     string
	party  string
	source string
}

func tablesFor(kind Kind) tables {
	if kind == KindPurchase {
		return tables{header: "purchases", items: "purchase_items", fk: "purchase_id", party: "supplier", source: "suppliers"}
	}
	return tables{header: "sales", items: "sale_items", fk: "sale_id", party: "customer", source: "customers"}
}

func (t tables) headerColumns() string {
	p := t.party
	return fmt.Sprintf(`id::text, invoice_number, %[1]s_id::text, %[1]s_name, %[1]s_tax_id, %[1]s_phone, %[1]s_address,
		date, subtotal, tax, tax_rate, discount, total, status, payment_method, payment_status, notes,
		created_by::text, created_at, updated_at`, p)
}

const itemColumns = `id::text, %s::text, line_no, product_id::text, product_code, product_name, quantity, unit_price, unit_cost, total`

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository persists sales and purchases in PostgreSQL.
type Repository struct {
	pool      *pgxpool.Pool
	txTimeout time.Duration
}

// NewRepository constructs Repository. txTimeout bounds every write
// transaction; zero disables the bound.
func NewRepository(pool *pgxpool.Pool, txTimeout time.Duration) *Repository {
	return &Repository{pool: pool, txTimeout: txTimeout}
}

// WithTx runs fn inside a database transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, r.txTimeout, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepo{TxStore: inventory.NewTxStore(tx), db: tx})
	})
}

// Get loads a document and its items.
func (r *Repository) Get(ctx context.Context, kind Kind, id string) (Document, error) {
	return getDocument(ctx, r.pool, kind, id, false)
}

// List returns a page of headers, optionally with items, and the total count.
func (r *Repository) List(ctx context.Context, kind Kind, filter ListFilter) ([]Document, int, error) {
	t := tablesFor(kind)
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(invoice_number ILIKE $%d OR %s_name ILIKE $%d)", argPos, t.party, argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(filter.Status))
		argPos++
	}
	if filter.CounterpartyID != "" {
		conditions = append(conditions, fmt.Sprintf("%s_id = $%d", t.party, argPos))
		args = append(args, filter.CounterpartyID)
		argPos++
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", argPos))
		args = append(args, filter.From)
		argPos++
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", argPos))
		args = append(args, filter.To)
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s %s", t.header, where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	query := fmt.Sprintf("SELECT %s FROM %s %s ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d",
		t.headerColumns(), t.header, where, argPos, argPos+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	docs, err := scanHeaders(rows, kind)
	if err != nil {
		return nil, 0, err
	}

	if filter.WithItems && len(docs) > 0 {
		ids := make([]string, len(docs))
		for i, d := range docs {
			ids[i] = d.ID
		}
		items, err := loadItems(ctx, r.pool, kind, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range docs {
			docs[i].Items = items[docs[i].ID]
			if docs[i].Items == nil {
				docs[i].Items = []Item{}
			}
		}
	}
	return docs, total, nil
}

type txRepo struct {
	*inventory.TxStore
	db dbtx
}

func (r *txRepo) GetForUpdate(ctx context.Context, kind Kind, id string) (Document, error) {
	return getDocument(ctx, r.db, kind, id, true)
}

func (r *txRepo) LoadCounterparty(ctx context.Context, kind Kind, id string) (Counterparty, error) {
	t := tablesFor(kind)
	var c Counterparty
	err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT name, COALESCE(tax_id, ''), COALESCE(phone, ''), COALESCE(address, '')
		FROM %s WHERE id = $1`, t.source), id).Scan(&c.Name, &c.TaxID, &c.Phone, &c.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Counterparty{}, fmt.Errorf("%w: %s", ErrCounterpartyNotFound, id)
		}
		return Counterparty{}, err
	}
	return c, nil
}

func (r *txRepo) InsertHeader(ctx context.Context, doc Document) error {
	t := tablesFor(doc.Kind)
	query := fmt.Sprintf(`INSERT INTO %s (id, invoice_number, %[2]s_id, %[2]s_name, %[2]s_tax_id, %[2]s_phone, %[2]s_address,
		date, subtotal, tax, tax_rate, discount, total, status, payment_method, payment_status, notes,
		created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`, t.header, t.party)
	_, err := r.db.Exec(ctx, query,
		doc.ID, doc.Number, doc.CounterpartyID, doc.Counterparty.Name, doc.Counterparty.TaxID,
		doc.Counterparty.Phone, doc.Counterparty.Address, doc.Date,
		db.Numeric(doc.Subtotal), db.Numeric(doc.Tax), db.Numeric(doc.TaxRate), db.Numeric(doc.Discount), db.Numeric(doc.Total),
		string(doc.Status), doc.PaymentMethod, doc.PaymentStatus, doc.Notes,
		doc.CreatedBy, doc.CreatedAt, doc.UpdatedAt,
	)
	return mapWriteError(err)
}

func (r *txRepo) UpdateHeader(ctx context.Context, doc Document) error {
	t := tablesFor(doc.Kind)
	query := fmt.Sprintf(`UPDATE %s SET invoice_number = $2, %[2]s_id = $3, %[2]s_name = $4, %[2]s_tax_id = $5,
		%[2]s_phone = $6, %[2]s_address = $7, date = $8, subtotal = $9, tax = $10, tax_rate = $11,
		discount = $12, total = $13, status = $14, payment_method = $15, payment_status = $16, notes = $17,
		updated_at = $18
		WHERE id = $1`, t.header, t.party)
	tag, err := r.db.Exec(ctx, query,
		doc.ID, doc.Number, doc.CounterpartyID, doc.Counterparty.Name, doc.Counterparty.TaxID,
		doc.Counterparty.Phone, doc.Counterparty.Address, doc.Date,
		db.Numeric(doc.Subtotal), db.Numeric(doc.Tax), db.Numeric(doc.TaxRate), db.Numeric(doc.Discount), db.Numeric(doc.Total),
		string(doc.Status), doc.PaymentMethod, doc.PaymentStatus, doc.Notes, doc.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepo) DeleteHeader(ctx context.Context, kind Kind, id string) error {
	t := tablesFor(kind)
	tag, err := r.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", t.header), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepo) InsertItems(ctx context.Context, kind Kind, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	t := tablesFor(kind)
	query := fmt.Sprintf(`INSERT INTO %s (id, %s, line_no, product_id, product_code, product_name, quantity, unit_price, unit_cost, total)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`, t.items, t.fk)
	for _, it := range items {
		_, err := r.db.Exec(ctx, query,
			it.ID, it.DocumentID, it.LineNo, it.ProductID, it.ProductCode, it.ProductName,
			it.Quantity, db.Numeric(it.UnitPrice), db.Numeric(it.UnitCost), db.Numeric(it.Total),
		)
		if err != nil {
			return fmt.Errorf("insert %s line %d: %w", kind, it.LineNo, mapWriteError(err))
		}
	}
	return nil
}

func (r *txRepo) DeleteItems(ctx context.Context, kind Kind, documentID string) error {
	t := tablesFor(kind)
	_, err := r.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = $1", t.items, t.fk), documentID)
	return err
}

func (r *txRepo) DeleteItem(ctx context.Context, kind Kind, documentID, itemID string) error {
	t := tablesFor(kind)
	tag, err := r.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND id = $2", t.items, t.fk), documentID, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func getDocument(ctx context.Context, q dbtx, kind Kind, id string, lock bool) (Document, error) {
	t := tablesFor(kind)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", t.headerColumns(), t.header)
	if lock {
		query += " FOR UPDATE"
	}
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return Document{}, err
	}
	docs, err := scanHeaders(rows, kind)
	if err != nil {
		return Document{}, err
	}
	if len(docs) == 0 {
		return Document{}, ErrNotFound
	}
	doc := docs[0]
	items, err := loadItems(ctx, q, kind, []string{doc.ID})
	if err != nil {
		return Document{}, err
	}
	doc.Items = items[doc.ID]
	if doc.Items == nil {
		doc.Items = []Item{}
	}
	return doc, nil
}

func scanHeaders(rows pgx.Rows, kind Kind) ([]Document, error) {
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		doc := Document{Kind: kind}
		var partyID, createdBy, taxID, phone, address, notes pgtype.Text
		var subtotal, tax, taxRate, discount, total pgtype.Numeric
		var status string
		err := rows.Scan(
			&doc.ID, &doc.Number, &partyID, &doc.Counterparty.Name, &taxID, &phone, &address,
			&doc.Date, &subtotal, &tax, &taxRate, &discount, &total, &status,
			&doc.PaymentMethod, &doc.PaymentStatus, &notes,
			&createdBy, &doc.CreatedAt, &doc.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if partyID.Valid {
			doc.CounterpartyID = &partyID.String
		}
		if createdBy.Valid {
			doc.CreatedBy = &createdBy.String
		}
		doc.Counterparty.TaxID = taxID.String
		doc.Counterparty.Phone = phone.String
		doc.Counterparty.Address = address.String
		doc.Notes = notes.String
		doc.Status = Status(status)
		doc.Subtotal = db.Decimal(subtotal)
		doc.Tax = db.Decimal(tax)
		doc.TaxRate = db.Decimal(taxRate)
		doc.Discount = db.Decimal(discount)
		doc.Total = db.Decimal(total)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func loadItems(ctx context.Context, q dbtx, kind Kind, documentIDs []string) (map[string][]Item, error) {
	t := tablesFor(kind)
	query := fmt.Sprintf("SELECT "+itemColumns+" FROM %s WHERE %s = ANY($1::uuid[]) ORDER BY %s, line_no",
		t.fk, t.items, t.fk, t.fk)
	rows, err := q.Query(ctx, query, documentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Item, len(documentIDs))
	for rows.Next() {
		var it Item
		var price, cost, total pgtype.Numeric
		if err := rows.Scan(&it.ID, &it.DocumentID, &it.LineNo, &it.ProductID, &it.ProductCode, &it.ProductName,
			&it.Quantity, &price, &cost, &total); err != nil {
			return nil, err
		}
		it.UnitPrice = db.Decimal(price)
		it.UnitCost = db.Decimal(cost)
		it.Total = db.Decimal(total)
		out[it.DocumentID] = append(out[it.DocumentID], it)
	}
	return out, rows.Err()
}

func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err):
		return ErrDuplicateNumber
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: referenced row missing (%s)", httpx.ErrValidation, db.ConstraintName(err))
	}
	return err
}

var (
	_ RepositoryPort = (*Repository)(nil)
	_ TxRepository   = (*txRepo)(nil)
)
