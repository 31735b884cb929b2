package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/repositories"
)

// PriceServiceDeps bundles collaborators required to construct a price service.
type PriceServiceDeps struct {
	Currencies      repositories.CurrencyRepository
	DefaultCurrency string
	Clock           func() time.Time
}

type priceService struct {
	currencies      repositories.CurrencyRepository
	defaultCurrency string
	clock           func() time.Time
}

// NewPriceService constructs the price resolution service.
func NewPriceService(deps PriceServiceDeps) (PriceService, error) {
	if deps.Currencies == nil {
		return nil, errors.New("price service: currency repository is required")
	}
	defaultCurrency := strings.ToUpper(strings.TrimSpace(deps.DefaultCurrency))
	if defaultCurrency == "" {
		return nil, errors.New("price service: default currency is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &priceService{
		currencies:      deps.Currencies,
		defaultCurrency: defaultCurrency,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

// NewProductPriceForCurrency constructs an unpersisted price for the product.
// An empty currency code falls back to the configured default; the currency
// must exist.
func (s *priceService) NewProductPriceForCurrency(ctx context.Context, product domain.Product, price float64, minimumQuantity float64, currencyCode string) (domain.ProductPrice, error) {
	code := s.resolveCurrencyCode(currencyCode)
	currency, err := s.currencies.FindByCode(ctx, code)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.ProductPrice{}, newProductError("currency %s is not configured", code)
		}
		return domain.ProductPrice{}, fmt.Errorf("resolve currency %s: %w", code, err)
	}
	if minimumQuantity < 0 {
		minimumQuantity = 0
	}
	return domain.ProductPrice{
		CurrencyCode:    currency.Code,
		Price:           price,
		MinimumQuantity: minimumQuantity,
	}, nil
}

// BulkPriceForCurrency selects the price tier with the largest minimum
// quantity not exceeding the requested quantity. Nil when no tier qualifies.
func (s *priceService) BulkPriceForCurrency(product domain.Product, quantity float64, currencyCode string) *domain.ProductPrice {
	code := s.resolveCurrencyCode(currencyCode)

	var best *domain.ProductPrice
	for i := range product.Prices {
		price := product.Prices[i]
		if price.CurrencyCode != code || price.MinimumQuantity > quantity {
			continue
		}
		if best == nil || price.MinimumQuantity > best.MinimumQuantity {
			copied := price
			best = &copied
		}
	}
	return best
}

// BasePriceForCurrency returns the minimumQuantity zero price of the currency.
func (s *priceService) BasePriceForCurrency(product domain.Product, currencyCode string) *domain.ProductPrice {
	code := s.resolveCurrencyCode(currencyCode)
	for i := range product.Prices {
		price := product.Prices[i]
		if price.CurrencyCode == code && price.MinimumQuantity == 0 {
			copied := price
			return &copied
		}
	}
	return nil
}

// SpecialPriceForCurrency returns the currently valid special price of the
// currency. Scanning stops at the first currency match whether or not the
// window is open, so an expired entry shadows later ones.
func (s *priceService) SpecialPriceForCurrency(product domain.Product, currencyCode string) *domain.SpecialPrice {
	code := s.resolveCurrencyCode(currencyCode)
	now := s.clock()
	for i := range product.SpecialPrices {
		special := product.SpecialPrices[i]
		if special.CurrencyCode != code {
			continue
		}
		if special.IsValidAt(now) {
			copied := special
			return &copied
		}
		return nil
	}
	return nil
}

// AddonPriceForCurrency returns the first addon price of the currency.
func (s *priceService) AddonPriceForCurrency(addon domain.Addon, currencyCode string) *domain.AddonPrice {
	code := s.resolveCurrencyCode(currencyCode)
	for i := range addon.Prices {
		price := addon.Prices[i]
		if price.CurrencyCode == code {
			copied := price
			return &copied
		}
	}
	return nil
}

func (s *priceService) resolveCurrencyCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return s.defaultCurrency
	}
	return code
}
