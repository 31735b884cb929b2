package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/catalix/pim-api/internal/domain"
)

func newTestPriceService(t *testing.T, now time.Time) PriceService {
	t.Helper()
	svc, err := NewPriceService(PriceServiceDeps{
		Currencies: &stubCurrencyRepository{byCode: map[string]domain.Currency{
			"EUR": {ID: 1, Code: "EUR"},
			"USD": {ID: 2, Code: "USD"},
		}},
		DefaultCurrency: "eur",
		Clock:           func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewPriceService: %v", err)
	}
	return svc
}

func TestNewProductPriceForCurrency(t *testing.T) {
	svc := newTestPriceService(t, time.Now())

	price, err := svc.NewProductPriceForCurrency(context.Background(), domain.Product{}, 9.99, -2, "")
	if err != nil {
		t.Fatalf("NewProductPriceForCurrency: %v", err)
	}
	if price.CurrencyCode != "EUR" {
		t.Fatalf("currency = %q, want EUR", price.CurrencyCode)
	}
	if price.MinimumQuantity != 0 {
		t.Fatalf("minimum quantity = %v, want 0", price.MinimumQuantity)
	}
	if price.ID != 0 {
		t.Fatalf("id = %d, want unset", price.ID)
	}

	if _, err := svc.NewProductPriceForCurrency(context.Background(), domain.Product{}, 9.99, 0, "gbp"); !errors.Is(err, ErrProductInvalid) {
		t.Fatalf("err = %v, want product invalid for unknown currency", err)
	}
}

func TestBulkPriceForCurrency(t *testing.T) {
	svc := newTestPriceService(t, time.Now())
	product := domain.Product{Prices: []domain.ProductPrice{
		{CurrencyCode: "EUR", Price: 10, MinimumQuantity: 0},
		{CurrencyCode: "EUR", Price: 8, MinimumQuantity: 10},
		{CurrencyCode: "EUR", Price: 6, MinimumQuantity: 50},
		{CurrencyCode: "USD", Price: 5, MinimumQuantity: 10},
	}}

	price := svc.BulkPriceForCurrency(product, 25, "EUR")
	if price == nil || price.Price != 8 {
		t.Fatalf("price = %+v, want the 10+ tier", price)
	}

	price = svc.BulkPriceForCurrency(product, 100, "")
	if price == nil || price.Price != 6 {
		t.Fatalf("price = %+v, want the 50+ tier", price)
	}

	if price := svc.BulkPriceForCurrency(product, 5, "USD"); price != nil {
		t.Fatalf("price = %+v, want nil below the smallest tier", price)
	}
}

func TestBasePriceForCurrency(t *testing.T) {
	svc := newTestPriceService(t, time.Now())
	product := domain.Product{Prices: []domain.ProductPrice{
		{CurrencyCode: "USD", Price: 12, MinimumQuantity: 0},
		{CurrencyCode: "EUR", Price: 10, MinimumQuantity: 5},
	}}

	if price := svc.BasePriceForCurrency(product, "USD"); price == nil || price.Price != 12 {
		t.Fatalf("price = %+v, want the USD base price", price)
	}
	if price := svc.BasePriceForCurrency(product, "EUR"); price != nil {
		t.Fatalf("price = %+v, want nil without a zero-quantity tier", price)
	}
}

func TestSpecialPriceForCurrency(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestPriceService(t, now)
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)
	past := now.Add(-2 * time.Hour)

	product := domain.Product{SpecialPrices: []domain.SpecialPrice{
		{CurrencyCode: "USD", Price: 4, StartDate: &start, EndDate: &end},
		{CurrencyCode: "EUR", Price: 7, StartDate: &start, EndDate: &end},
	}}
	if price := svc.SpecialPriceForCurrency(product, "EUR"); price == nil || price.Price != 7 {
		t.Fatalf("price = %+v, want the open EUR window", price)
	}

	// An expired entry shadows a later valid one for the same currency.
	shadowed := domain.Product{SpecialPrices: []domain.SpecialPrice{
		{CurrencyCode: "EUR", Price: 5, StartDate: &past, EndDate: &past},
		{CurrencyCode: "EUR", Price: 7, StartDate: &start, EndDate: &end},
	}}
	if price := svc.SpecialPriceForCurrency(shadowed, "EUR"); price != nil {
		t.Fatalf("price = %+v, want nil for the expired first entry", price)
	}

	open := domain.Product{SpecialPrices: []domain.SpecialPrice{{CurrencyCode: "EUR", Price: 3}}}
	if price := svc.SpecialPriceForCurrency(open, ""); price == nil || price.Price != 3 {
		t.Fatalf("price = %+v, want the unbounded window", price)
	}
}

func TestAddonPriceForCurrency(t *testing.T) {
	svc := newTestPriceService(t, time.Now())
	addon := domain.Addon{Prices: []domain.AddonPrice{
		{CurrencyCode: "USD", Price: 2},
		{CurrencyCode: "EUR", Price: 3},
	}}

	if price := svc.AddonPriceForCurrency(addon, ""); price == nil || price.Price != 3 {
		t.Fatalf("price = %+v, want the EUR addon price", price)
	}
	if price := svc.AddonPriceForCurrency(domain.Addon{}, "EUR"); price != nil {
		t.Fatalf("price = %+v, want nil without prices", price)
	}
}
