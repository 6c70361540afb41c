package settings

import (
	"fmt"
	"time"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

// Known keys.
const (
	KeyRegistrationEnabled = "registration_enabled"
	KeyStoreName           = "store_name"
	KeyStoreAddress        = "store_address"
	KeyStorePhone          = "store_phone"
	KeyDefaultTaxRate      = "default_tax_rate"
	KeyCurrency            = "currency"
	KeyReceiptFooter       = "receipt_footer"
)

// Setting is one application setting.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNotFound     = fmt.Errorf("%w: setting", httpx.ErrNotFound)
	ErrInvalidKey   = fmt.Errorf("%w: setting key must be lowercase letters, digits or underscores", httpx.ErrValidation)
	ErrInvalidValue = fmt.Errorf("%w: invalid setting value", httpx.ErrValidation)
)
