package settings

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kasirpos/pos/internal/platform/httpx"
)

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// Defaults are returned for keys that have never been written.
var Defaults = map[string]string{
	KeyRegistrationEnabled: "false",
	KeyStoreName:           "Kasir POS",
	KeyCurrency:            "IDR",
	KeyDefaultTaxRate:      "0",
}

// Service applies settings rules.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// List returns stored settings merged over the defaults, sorted by key.
func (s *Service) List(ctx context.Context) ([]Setting, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(stored))
	out := make([]Setting, 0, len(stored)+len(Defaults))
	for _, st := range stored {
		seen[st.Key] = true
		out = append(out, st)
	}
	for k, v := range Defaults {
		if !seen[k] {
			out = append(out, Setting{Key: k, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Get returns one setting, falling back to its default.
func (s *Service) Get(ctx context.Context, key string) (Setting, error) {
	st, err := s.repo.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		if v, ok := Defaults[key]; ok {
			return Setting{Key: key, Value: v}, nil
		}
	}
	return st, err
}

// Update writes values atomically and returns the full list.
func (s *Service) Update(ctx context.Context, values map[string]string) ([]Setting, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no settings given", httpx.ErrValidation)
	}
	clean := make(map[string]string, len(values))
	for k, v := range values {
		k = strings.TrimSpace(k)
		if !keyPattern.MatchString(k) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, k)
		}
		v, err := normalize(k, strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		clean[k] = v
	}
	if err := s.repo.Upsert(ctx, clean, s.now()); err != nil {
		return nil, err
	}
	return s.List(ctx)
}

// RegistrationEnabled reports whether self-registration is open.
func (s *Service) RegistrationEnabled(ctx context.Context) (bool, error) {
	st, err := s.Get(ctx, KeyRegistrationEnabled)
	if err != nil {
		return false, err
	}
	open, err := strconv.ParseBool(st.Value)
	if err != nil {
		return false, nil
	}
	return open, nil
}

func normalize(key, value string) (string, error) {
	switch key {
	case KeyRegistrationEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%w: %s must be true or false", ErrInvalidValue, key)
		}
		return strconv.FormatBool(b), nil
	case KeyDefaultTaxRate:
		d, err := decimal.NewFromString(value)
		if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
			return "", fmt.Errorf("%w: %s must be a number between 0 and 100", ErrInvalidValue, key)
		}
		return d.String(), nil
	case KeyCurrency:
		if len(value) != 3 {
			return "", fmt.Errorf("%w: %s must be a 3-letter code", ErrInvalidValue, key)
		}
		return strings.ToUpper(value), nil
	}
	if len(value) > 1000 {
		return "", fmt.Errorf("%w: %s is too long", ErrInvalidValue, key)
	}
	return value, nil
}
