package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/repositories"
)

// VariantServiceDeps bundles collaborators required to construct a variant
// service.
type VariantServiceDeps struct {
	Products   repositories.ProductRepository
	Counters   repositories.CounterRepository
	UnitOfWork repositories.UnitOfWork
	Attributes AttributeService
	Prices     PriceService
	Clock      func() time.Time
}

type variantService struct {
	products   repositories.ProductRepository
	counters   repositories.CounterRepository
	uow        repositories.UnitOfWork
	attributes AttributeService
	prices     PriceService
	clock      func() time.Time
}

// NewVariantService constructs the service managing variant products beneath
// a WithVariants parent.
func NewVariantService(deps VariantServiceDeps) (VariantService, error) {
	if deps.Products == nil {
		return nil, errors.New("variant service: product repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("variant service: counter repository is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("variant service: unit of work is required")
	}
	if deps.Attributes == nil {
		return nil, errors.New("variant service: attribute service is required")
	}
	if deps.Prices == nil {
		return nil, errors.New("variant service: price service is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &variantService{
		products:   deps.Products,
		counters:   deps.Counters,
		uow:        deps.UnitOfWork,
		attributes: deps.Attributes,
		prices:     deps.Prices,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

// CreateVariant creates a variant product beneath the parent. The supplied
// attribute values must map one-to-one onto the parent's variant-defining
// attribute set.
func (s *variantService) CreateVariant(ctx context.Context, parentID int64, data VariantData, locale string, userID int64) (domain.Product, error) {
	parent, err := s.loadProduct(ctx, parentID)
	if err != nil {
		return domain.Product{}, err
	}
	if !parent.TypeID.CanDeclareVariantAttributes() {
		return domain.Product{}, newProductError("product %d cannot have variants", parentID)
	}

	attributes, err := s.bindVariantAttributes(ctx, parent, nil, data.Attributes, locale)
	if err != nil {
		return domain.Product{}, err
	}

	now := s.clock()
	variant := domain.Product{
		Number:   data.Number,
		TypeID:   domain.ProductTypeVariant,
		StatusID: parent.StatusID,
		ParentID: &parent.ID,
		Translations: []domain.ProductTranslation{
			{Locale: locale, Name: data.Name},
		},
		Attributes: attributes,
		Created:    now,
		Changed:    now,
		CreatorID:  userID,
		ChangerID:  userID,
	}

	// Id allocation and currency lookups happen ahead of the transaction so
	// its reads are not preceded by buffered writes.
	id, err := s.counters.Next(ctx, repositories.CounterProducts, 1)
	if err != nil {
		return domain.Product{}, fmt.Errorf("allocate product id: %w", err)
	}
	variant.ID = id

	prices, err := s.reconcileVariantPrices(ctx, variant, data.Prices)
	if err != nil {
		return domain.Product{}, err
	}
	variant.Prices = prices

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		return s.products.Insert(ctx, variant)
	})
	if err != nil {
		return domain.Product{}, err
	}
	return variant, nil
}

// UpdateVariant applies the payload to an existing variant under the same
// attribute completeness and price reconciliation rules as CreateVariant.
func (s *variantService) UpdateVariant(ctx context.Context, variantID int64, data VariantData, locale string, userID int64) (domain.Product, error) {
	variant, err := s.loadProduct(ctx, variantID)
	if err != nil {
		return domain.Product{}, err
	}
	if variant.TypeID != domain.ProductTypeVariant || variant.ParentID == nil {
		return domain.Product{}, newProductError("product %d is no variant and therefore cannot be updated", variantID)
	}
	parent, err := s.loadProduct(ctx, *variant.ParentID)
	if err != nil {
		return domain.Product{}, err
	}

	attributes, err := s.bindVariantAttributes(ctx, parent, variant.Attributes, data.Attributes, locale)
	if err != nil {
		return domain.Product{}, err
	}

	variant.Number = data.Number
	variant.Attributes = attributes
	variant.Translations = upsertTranslationName(variant.Translations, locale, data.Name)
	variant.Changed = s.clock()
	variant.ChangerID = userID

	prices, err := s.reconcileVariantPrices(ctx, variant, data.Prices)
	if err != nil {
		return domain.Product{}, err
	}
	variant.Prices = prices

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		return s.products.Update(ctx, variant)
	})
	if err != nil {
		return domain.Product{}, err
	}
	return variant, nil
}

// DeleteVariant detaches the variant from its parent. The product row
// survives, it just stops being a child.
func (s *variantService) DeleteVariant(ctx context.Context, variantID int64) error {
	variant, err := s.loadProduct(ctx, variantID)
	if err != nil {
		return err
	}
	if variant.TypeID != domain.ProductTypeVariant {
		return newProductError("product %d is no variant and therefore cannot be deleted", variantID)
	}

	variant.ParentID = nil
	variant.Changed = s.clock()
	if err := s.products.Update(ctx, variant); err != nil {
		return fmt.Errorf("update product %d: %w", variantID, err)
	}
	return nil
}

// ListVariants lists the variant children of the parent product.
func (s *variantService) ListVariants(ctx context.Context, parentID int64, locale string, pager domain.Pagination) (domain.CursorPage[domain.Product], error) {
	if _, err := s.loadProduct(ctx, parentID); err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}
	filter := repositories.ProductListFilter{ParentID: &parentID}
	return s.products.List(ctx, filter, pager)
}

// bindVariantAttributes enforces the exact one-to-one mapping between the
// parent's variant-defining attribute set and the supplied values, returning
// the variant's attribute assignments.
func (s *variantService) bindVariantAttributes(ctx context.Context, parent domain.Product, existing []domain.ProductAttribute, inputs []AttributeInput, locale string) ([]domain.ProductAttribute, error) {
	declared := parent.VariantAttributeIDs
	if len(inputs) == 0 || len(declared) == 0 || len(inputs) != len(declared) {
		return nil, newProductError("invalid number of attributes for variant")
	}

	remaining := make(map[int64]string, len(inputs))
	for _, input := range inputs {
		remaining[input.AttributeID] = input.Value
	}
	// A repeated attribute id collapses in the map; the surplus entry could
	// never match a declared attribute.
	if len(remaining) != len(inputs) {
		return nil, newProductError("invalid attributes for variant provided")
	}

	currentByID := make(map[int64]domain.ProductAttribute, len(existing))
	for _, attr := range existing {
		currentByID[attr.AttributeID] = attr
	}

	attributes := make([]domain.ProductAttribute, 0, len(declared))
	for _, attributeID := range declared {
		value, ok := remaining[attributeID]
		if !ok {
			continue
		}
		delete(remaining, attributeID)

		if current, assigned := currentByID[attributeID]; assigned {
			current.Value = s.attributes.SetOrCreateTranslation(current.Value, value, locale)
			attributes = append(attributes, current)
			continue
		}
		created, err := s.attributes.CreateProductAttribute(ctx, attributeID, value, locale)
		if err != nil {
			return nil, err
		}
		attributes = append(attributes, created)
	}

	if len(remaining) > 0 {
		return nil, newProductError("invalid attributes for variant provided")
	}
	return attributes, nil
}

// reconcileVariantPrices matches incoming prices to existing ones by
// currency, updating in place or creating at minimum quantity zero. Existing
// prices left unmatched are dropped; an empty input leaves them untouched.
func (s *variantService) reconcileVariantPrices(ctx context.Context, variant domain.Product, inputs []VariantPriceInput) ([]domain.ProductPrice, error) {
	if len(inputs) == 0 {
		return variant.Prices, nil
	}
	existingByCurrency := make(map[string]domain.ProductPrice, len(variant.Prices))
	for _, price := range variant.Prices {
		existingByCurrency[price.CurrencyCode] = price
	}

	prices := make([]domain.ProductPrice, 0, len(inputs))
	for _, input := range inputs {
		if matched, ok := existingByCurrency[input.CurrencyCode]; ok {
			matched.Price = input.Price
			prices = append(prices, matched)
			delete(existingByCurrency, input.CurrencyCode)
			continue
		}
		created, err := s.prices.NewProductPriceForCurrency(ctx, variant, input.Price, 0, input.CurrencyCode)
		if err != nil {
			return nil, err
		}
		prices = append(prices, created)
	}
	return prices, nil
}

func (s *variantService) loadProduct(ctx context.Context, productID int64) (domain.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.Product{}, &ProductNotFoundError{ID: productID}
		}
		return domain.Product{}, fmt.Errorf("load product %d: %w", productID, err)
	}
	return product, nil
}

// upsertTranslationName sets the name of the locale translation, creating the
// translation when absent.
func upsertTranslationName(translations []domain.ProductTranslation, locale string, name string) []domain.ProductTranslation {
	for i, tr := range translations {
		if tr.Locale == locale {
			updated := make([]domain.ProductTranslation, len(translations))
			copy(updated, translations)
			updated[i].Name = name
			return updated
		}
	}
	return append(translations, domain.ProductTranslation{Locale: locale, Name: name})
}
