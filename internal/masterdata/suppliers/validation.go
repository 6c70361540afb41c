package suppliers

import (
	"strings"

	"github.com/kasirpos/pos/internal/masterdata/shared"
	"github.com/kasirpos/pos/internal/platform/httpx"
)

func build(in Input) (Supplier, error) {
	in.Name = shared.NormalizeName(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := httpx.Validate(in); err != nil {
		return Supplier{}, err
	}
	return Supplier{
		Name:        in.Name,
		ContactName: strings.TrimSpace(in.ContactName),
		Phone:       strings.TrimSpace(in.Phone),
		Email:       in.Email,
		Address:     strings.TrimSpace(in.Address),
		TaxID:       strings.TrimSpace(in.TaxID),
		Notes:       in.Notes,
	}, nil
}
