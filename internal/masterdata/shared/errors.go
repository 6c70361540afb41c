package shared

import (
	"fmt"

	"github.com/kasirpos/pos/internal/platform/db"
	"github.com/kasirpos/pos/internal/platform/httpx"
)

var (
	ErrDuplicate = fmt.Errorf("%w: duplicate entry", httpx.ErrDuplicate)
	ErrInUse     = fmt.Errorf("%w: record is still referenced", httpx.ErrConflict)
	ErrInvalidID = fmt.Errorf("%w: invalid id", httpx.ErrValidation)
)

// MapWriteError translates constraint violations raised by catalog writes.
// duplicates maps unique constraint names to the error reported for them;
// unknown constraints fall back to ErrDuplicate.
func MapWriteError(err error, duplicates map[string]error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err):
		if mapped, ok := duplicates[db.ConstraintName(err)]; ok {
			return mapped
		}
		return ErrDuplicate
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("%w (%s)", ErrInUse, db.ConstraintName(err))
	}
	return err
}
