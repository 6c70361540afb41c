package categories

import (
	"github.com/kasirpos/pos/internal/masterdata/shared"
	"github.com/kasirpos/pos/internal/platform/httpx"
)

func (s *Service) build(in Input) (Category, error) {
	in.Name = shared.NormalizeName(in.Name)
	if err := httpx.Validate(in); err != nil {
		return Category{}, err
	}
	return Category{Name: in.Name, Description: in.Description}, nil
}
