package suppliers

import (
	"fmt"
	"time"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// Supplier represents a supplier entity
type Supplier struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContactName string    `json:"contact_name"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Address     string    `json:"address"`
	TaxID       string    `json:"tax_id"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input is the create/update payload.
type Input struct {
	Name        string `json:"name" validate:"required,max=200"`
	ContactName string `json:"contact_name" validate:"max=200"`
	Phone       string `json:"phone" validate:"max=50"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address" validate:"max=500"`
	TaxID       string `json:"tax_id" validate:"max=64"`
	Notes       string `json:"notes" validate:"max=2000"`
}

// References counts the rows pointing at a supplier.
type References struct {
	Purchases int
	Products  int
}

var (
	ErrNotFound = fmt.Errorf("%w: supplier", httpx.ErrNotFound)
	ErrInUse    = fmt.Errorf("%w: supplier has purchases or products", httpx.ErrConflict)
)
