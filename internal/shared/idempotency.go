package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrIdempotencyConflict is returned when an Idempotency-Key was already used
// for the same module.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// IdempotencyStore claims Idempotency-Key values in idempotency_keys. Keys
// are scoped per module, so "sale.create" and "purchase.create" never clash.
type IdempotencyStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool, now: time.Now}
}

func scopedKey(key, module string) (string, error) {
	key, module = strings.TrimSpace(key), strings.TrimSpace(module)
	if key == "" || module == "" {
		return "", errors.New("idempotency: key and module required")
	}
	return module + ":" + key, nil
}

// CheckAndInsert claims key for module, failing with ErrIdempotencyConflict
// when it is already held.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil || s.pool == nil {
		return errors.New("idempotency: store not configured")
	}
	scoped, err := scopedKey(key, module)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO NOTHING`,
		scoped, module, s.now().UTC())
	if err != nil {
		return fmt.Errorf("idempotency: claim %s: %w", scoped, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

// Delete releases a claim so a failed request can be retried with the same key.
func (s *IdempotencyStore) Delete(ctx context.Context, key, module string) error {
	if s == nil || s.pool == nil {
		return nil
	}
	scoped, err := scopedKey(key, module)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1`, scoped)
	return err
}

// Purge drops claims created before cutoff and reports how many went.
func (s *IdempotencyStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
