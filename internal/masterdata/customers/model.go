package customers

import (
	"fmt"
	"time"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// Customer is a buyer record referenced by sales and warranties.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	TaxID     string    `json:"tax_id"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Input struct {
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone" validate:"max=50"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=500"`
	TaxID   string `json:"tax_id" validate:"max=64"`
	Notes   string `json:"notes" validate:"max=2000"`
}

type References struct {
	Sales      int
	Warranties int
}

var (
	ErrNotFound = fmt.Errorf("%w: customer", httpx.ErrNotFound)
	ErrInUse    = fmt.Errorf("%w: customer has sales or warranties", httpx.ErrConflict)
)
