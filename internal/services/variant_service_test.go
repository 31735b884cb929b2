package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/catalix/pim-api/internal/domain"
)

func newTestVariantService(t *testing.T, products *stubProductRepository) VariantService {
	t.Helper()
	clock := func() time.Time {
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	}
	attributes, err := NewAttributeService(AttributeServiceDeps{
		Attributes: &stubReferenceRepository[domain.Attribute]{entries: map[int64]domain.Attribute{
			10: {ID: 10, Key: "color"},
			11: {ID: 11, Key: "size"},
		}},
		Clock: clock,
	})
	if err != nil {
		t.Fatalf("NewAttributeService: %v", err)
	}
	prices, err := NewPriceService(PriceServiceDeps{
		Currencies: &stubCurrencyRepository{byCode: map[string]domain.Currency{
			"EUR": {ID: 1, Code: "EUR"},
			"USD": {ID: 2, Code: "USD"},
		}},
		DefaultCurrency: "EUR",
		Clock:           clock,
	})
	if err != nil {
		t.Fatalf("NewPriceService: %v", err)
	}
	svc, err := NewVariantService(VariantServiceDeps{
		Products:   products,
		Counters:   &stubCounters{},
		UnitOfWork: &stubUnitOfWork{},
		Attributes: attributes,
		Prices:     prices,
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("NewVariantService: %v", err)
	}
	return svc
}

func withVariantsParent() domain.Product {
	return domain.Product{
		ID:                  1,
		TypeID:              domain.ProductTypeWithVariants,
		StatusID:            domain.ProductStatusActive,
		VariantAttributeIDs: []int64{10, 11},
	}
}

func TestCreateVariant(t *testing.T) {
	products := newStubProductRepository(withVariantsParent())
	svc := newTestVariantService(t, products)

	variant, err := svc.CreateVariant(context.Background(), 1, VariantData{
		Name:   "Shirt red XL",
		Number: "SHIRT-R-XL",
		Attributes: []AttributeInput{
			{AttributeID: 10, Value: "red"},
			{AttributeID: 11, Value: "xl"},
		},
		Prices: []VariantPriceInput{{CurrencyCode: "EUR", Price: 19.9}},
	}, "en", 7)
	if err != nil {
		t.Fatalf("CreateVariant: %v", err)
	}

	if variant.ID == 0 {
		t.Fatal("expected an allocated variant id")
	}
	if variant.TypeID != domain.ProductTypeVariant {
		t.Fatalf("type = %d, want variant", variant.TypeID)
	}
	if variant.StatusID != domain.ProductStatusActive {
		t.Fatalf("status = %d, want the parent status", variant.StatusID)
	}
	if variant.ParentID == nil || *variant.ParentID != 1 {
		t.Fatalf("parent = %v, want 1", variant.ParentID)
	}
	if got := variant.Name("en"); got != "Shirt red XL" {
		t.Fatalf("name = %q", got)
	}
	if len(variant.Attributes) != 2 {
		t.Fatalf("attributes = %+v, want 2", variant.Attributes)
	}
	if len(variant.Prices) != 1 || variant.Prices[0].MinimumQuantity != 0 {
		t.Fatalf("prices = %+v, want one base price", variant.Prices)
	}
	if variant.CreatorID != 7 || variant.ChangerID != 7 {
		t.Fatalf("actor ids = %d/%d, want 7", variant.CreatorID, variant.ChangerID)
	}
	if products.inserts != 1 {
		t.Fatalf("inserts = %d, want 1", products.inserts)
	}
}

func TestCreateVariantAttributeMismatch(t *testing.T) {
	products := newStubProductRepository(withVariantsParent())
	svc := newTestVariantService(t, products)

	cases := []struct {
		name   string
		inputs []AttributeInput
	}{
		{"none", nil},
		{"too few", []AttributeInput{{AttributeID: 10, Value: "red"}}},
		{"unknown attribute", []AttributeInput{
			{AttributeID: 10, Value: "red"},
			{AttributeID: 99, Value: "wool"},
		}},
		{"duplicate attribute", []AttributeInput{
			{AttributeID: 10, Value: "red"},
			{AttributeID: 10, Value: "blue"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateVariant(context.Background(), 1, VariantData{
				Name:       "v",
				Attributes: tc.inputs,
			}, "en", 7)
			if !errors.Is(err, ErrProductInvalid) {
				t.Fatalf("err = %v, want product invalid", err)
			}
		})
	}
	if products.inserts != 0 {
		t.Fatalf("inserts = %d, want none", products.inserts)
	}
}

func TestCreateVariantUndeclaredAttribute(t *testing.T) {
	products := newStubProductRepository(withVariantsParent())
	svc := newTestVariantService(t, products)

	// Input count matches the declared count. The failure is the undeclared
	// attribute, not the count.
	_, err := svc.CreateVariant(context.Background(), 1, VariantData{
		Name: "v",
		Attributes: []AttributeInput{
			{AttributeID: 10, Value: "red"},
			{AttributeID: 99, Value: "wool"},
		},
	}, "en", 7)
	if !errors.Is(err, ErrProductInvalid) {
		t.Fatalf("err = %v, want product invalid", err)
	}
	if err.Error() != "invalid attributes for variant provided" {
		t.Fatalf("err = %q, want the invalid attributes message", err)
	}
}

func TestCreateVariantParentChecks(t *testing.T) {
	products := newStubProductRepository(domain.Product{ID: 2, TypeID: domain.ProductTypeSimple})
	svc := newTestVariantService(t, products)

	if _, err := svc.CreateVariant(context.Background(), 99, VariantData{}, "en", 7); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("err = %v, want product not found", err)
	}
	if _, err := svc.CreateVariant(context.Background(), 2, VariantData{}, "en", 7); !errors.Is(err, ErrProductInvalid) {
		t.Fatalf("err = %v, want product invalid for simple parent", err)
	}
}

func TestUpdateVariant(t *testing.T) {
	parentID := int64(1)
	existing := domain.Product{
		ID:       5,
		TypeID:   domain.ProductTypeVariant,
		ParentID: &parentID,
		Translations: []domain.ProductTranslation{
			{Locale: "en", Name: "Shirt red XL"},
		},
		Attributes: []domain.ProductAttribute{
			{AttributeID: 10, Value: domain.AttributeValue{ID: "v1", Translations: []domain.AttributeValueTranslation{{Locale: "en", Value: "red"}}}},
			{AttributeID: 11, Value: domain.AttributeValue{ID: "v2", Translations: []domain.AttributeValueTranslation{{Locale: "en", Value: "xl"}}}},
		},
		Prices: []domain.ProductPrice{
			{ID: 3, CurrencyCode: "EUR", Price: 19.9},
			{ID: 4, CurrencyCode: "USD", Price: 24.9},
		},
	}
	products := newStubProductRepository(withVariantsParent(), existing)
	svc := newTestVariantService(t, products)

	variant, err := svc.UpdateVariant(context.Background(), 5, VariantData{
		Name:   "Shirt blue XL",
		Number: "SHIRT-B-XL",
		Attributes: []AttributeInput{
			{AttributeID: 10, Value: "blue"},
			{AttributeID: 11, Value: "xl"},
		},
		Prices: []VariantPriceInput{{CurrencyCode: "EUR", Price: 21.9}},
	}, "en", 8)
	if err != nil {
		t.Fatalf("UpdateVariant: %v", err)
	}

	if got := variant.Name("en"); got != "Shirt blue XL" {
		t.Fatalf("name = %q", got)
	}
	attr, ok := variant.AttributeByID(10)
	if !ok || attr.Value.ID != "v1" {
		t.Fatalf("attribute 10 = %+v, want the existing value updated in place", attr)
	}
	if got := attr.Value.Value("en"); got != "blue" {
		t.Fatalf("attribute 10 value = %q", got)
	}
	// The matched EUR price keeps its id, the unmatched USD price is dropped.
	if len(variant.Prices) != 1 || variant.Prices[0].ID != 3 || variant.Prices[0].Price != 21.9 {
		t.Fatalf("prices = %+v", variant.Prices)
	}
	if variant.ChangerID != 8 {
		t.Fatalf("changer = %d, want 8", variant.ChangerID)
	}
}

func TestUpdateVariantEmptyPricesKeepExisting(t *testing.T) {
	parentID := int64(1)
	existing := domain.Product{
		ID:       5,
		TypeID:   domain.ProductTypeVariant,
		ParentID: &parentID,
		Attributes: []domain.ProductAttribute{
			{AttributeID: 10, Value: domain.AttributeValue{ID: "v1", Translations: []domain.AttributeValueTranslation{{Locale: "en", Value: "red"}}}},
			{AttributeID: 11, Value: domain.AttributeValue{ID: "v2", Translations: []domain.AttributeValueTranslation{{Locale: "en", Value: "xl"}}}},
		},
		Prices: []domain.ProductPrice{
			{ID: 3, CurrencyCode: "EUR", Price: 19.9},
			{ID: 4, CurrencyCode: "USD", Price: 24.9},
		},
	}
	products := newStubProductRepository(withVariantsParent(), existing)
	svc := newTestVariantService(t, products)

	variant, err := svc.UpdateVariant(context.Background(), 5, VariantData{
		Name:   "Shirt red XL",
		Number: "SHIRT-R-XL",
		Attributes: []AttributeInput{
			{AttributeID: 10, Value: "red"},
			{AttributeID: 11, Value: "xl"},
		},
	}, "en", 8)
	if err != nil {
		t.Fatalf("UpdateVariant: %v", err)
	}

	if len(variant.Prices) != 2 {
		t.Fatalf("prices = %+v, want both kept when none are supplied", variant.Prices)
	}
}

func TestDeleteVariantDetachesParent(t *testing.T) {
	parentID := int64(1)
	products := newStubProductRepository(
		withVariantsParent(),
		domain.Product{ID: 5, TypeID: domain.ProductTypeVariant, ParentID: &parentID},
	)
	svc := newTestVariantService(t, products)

	if err := svc.DeleteVariant(context.Background(), 5); err != nil {
		t.Fatalf("DeleteVariant: %v", err)
	}
	stored := products.products[5]
	if stored.ParentID != nil {
		t.Fatalf("parent = %v, want detached", stored.ParentID)
	}
	if len(products.deletes) != 0 {
		t.Fatalf("deletes = %v, want the row kept", products.deletes)
	}
}

func TestDeleteVariantWrongType(t *testing.T) {
	products := newStubProductRepository(domain.Product{ID: 2, TypeID: domain.ProductTypeSimple})
	svc := newTestVariantService(t, products)

	if err := svc.DeleteVariant(context.Background(), 2); !errors.Is(err, ErrProductInvalid) {
		t.Fatalf("err = %v, want product invalid", err)
	}
}

func TestListVariants(t *testing.T) {
	parentID := int64(1)
	products := newStubProductRepository(
		withVariantsParent(),
		domain.Product{ID: 5, TypeID: domain.ProductTypeVariant, ParentID: &parentID},
		domain.Product{ID: 6, TypeID: domain.ProductTypeVariant, ParentID: &parentID},
		domain.Product{ID: 7, TypeID: domain.ProductTypeSimple},
	)
	svc := newTestVariantService(t, products)

	page, err := svc.ListVariants(context.Background(), 1, "en", domain.Pagination{PageSize: 10})
	if err != nil {
		t.Fatalf("ListVariants: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("items = %+v, want the two children", page.Items)
	}

	if _, err := svc.ListVariants(context.Background(), 99, "en", domain.Pagination{}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("err = %v, want product not found", err)
	}
}
