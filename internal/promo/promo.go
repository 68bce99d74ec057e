package promo

import (
	"context"

	"github.com/shopspring/decimal"
)

// Validator resolves promo codes to discounts.
type Validator interface {
	// Discount returns the amount taken off subtotal by code, rounded to cents.
	// Unknown or malformed codes return model.ErrInvalidPromoCode.
	Discount(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error)

	// Size returns the number of codes known to the validator.
	Size() int
}

// Catalog is a parsed promo catalogue file.
type Catalog interface {
	// Size returns the number of codes in the catalogue.
	Size() int

	// Range calls fn for every code in the catalogue.
	Range(fn func(code string, pct decimal.Decimal))
}

// Loader reads a gzipped catalogue.
type Loader interface {
	Load(ctx context.Context, path string) (Catalog, error)
}
