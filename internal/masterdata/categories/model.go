package categories

import (
	"fmt"
	"time"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// Category represents a product category
type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Input is the create/update payload.
type Input struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

var (
	ErrNotFound      = fmt.Errorf("%w: category", httpx.ErrNotFound)
	ErrDuplicateName = fmt.Errorf("%w: category with this name already exists", httpx.ErrDuplicate)
	ErrInUse         = fmt.Errorf("%w: category is used by products", httpx.ErrConflict)
)
