package promo

import (
	"context"
	"fmt"
	"sync"

	"poultrymarket/internal/model"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// validator holds the merged catalogue. It is read-only after construction.
type validator struct {
	codes  map[string]decimal.Decimal
	logger zerolog.Logger
}

// NewValidator loads every file concurrently and merges them in order, so a code in a
// later file overrides the same code in an earlier one. Any failed file fails the whole
// load and every failure is reported.
func NewValidator(ctx context.Context, files []string, loader Loader, logger zerolog.Logger) (Validator, error) {
	logger = logger.With().Str("component", "promo-validator").Logger()
	logger.Info().Int("file_count", len(files)).Msg("initialising promo validator")

	catalogs := make([]Catalog, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, path := range files {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			catalogs[i], errs[i] = loader.Load(ctx, path)
		}(i, path)
	}
	wg.Wait()

	var result *multierror.Error
	for i, err := range errs {
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("promo file %s: %w", files[i], err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		logger.Error().Err(err).Msg("failed to load promo catalogues")
		return nil, err
	}

	v := &validator{
		codes:  make(map[string]decimal.Decimal),
		logger: logger,
	}
	for _, c := range catalogs {
		c.Range(func(code string, pct decimal.Decimal) {
			v.codes[code] = pct
		})
	}

	logger.Info().Int("total_codes", len(v.codes)).Msg("promo validator initialised")

	return v, nil
}

func (v *validator) Discount(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	normalised, ok := NormaliseCode(code)
	if !ok {
		v.logger.Debug().Str("promo_code", code).Msg("promo code length invalid")
		return decimal.Zero, model.ErrInvalidPromoCode
	}

	pct, ok := v.codes[normalised]
	if !ok {
		v.logger.Debug().Str("promo_code", normalised).Msg("promo code not found")
		return decimal.Zero, model.ErrInvalidPromoCode
	}

	return subtotal.Mul(pct).Div(hundred).Round(2), nil
}

func (v *validator) Size() int {
	return len(v.codes)
}
