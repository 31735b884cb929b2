package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/repositories"
)

// VariantAttributeServiceDeps bundles collaborators required to construct a
// variant attribute service.
type VariantAttributeServiceDeps struct {
	Products   repositories.ProductRepository
	Attributes repositories.ReferenceRepository[domain.Attribute]
	Clock      func() time.Time
}

type variantAttributeService struct {
	products   repositories.ProductRepository
	attributes repositories.ReferenceRepository[domain.Attribute]
	clock      func() time.Time
}

// NewVariantAttributeService constructs the service managing the
// variant-defining attribute set of a product.
func NewVariantAttributeService(deps VariantAttributeServiceDeps) (VariantAttributeService, error) {
	if deps.Products == nil {
		return nil, errors.New("variant attribute service: product repository is required")
	}
	if deps.Attributes == nil {
		return nil, errors.New("variant attribute service: attribute repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &variantAttributeService{
		products:   deps.Products,
		attributes: deps.Attributes,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

// CreateRelation adds the attribute to the product's variant-defining set.
// Adding an attribute that is already part of the set is a no-op.
func (s *variantAttributeService) CreateRelation(ctx context.Context, productID int64, attributeID int64) (domain.Product, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if !product.TypeID.CanDeclareVariantAttributes() {
		return domain.Product{}, newProductError("product %d cannot declare variant attributes", productID)
	}

	if _, err := s.attributes.Find(ctx, attributeID); err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.Product{}, &AttributeNotFoundError{ID: attributeID}
		}
		return domain.Product{}, fmt.Errorf("load attribute %d: %w", attributeID, err)
	}

	if product.HasVariantAttribute(attributeID) {
		return product, nil
	}

	product.VariantAttributeIDs = append(product.VariantAttributeIDs, attributeID)
	product.Changed = s.clock()
	if err := s.products.Update(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("update product %d: %w", productID, err)
	}
	return product, nil
}

// RemoveRelation removes the attribute from the product's variant-defining
// set.
func (s *variantAttributeService) RemoveRelation(ctx context.Context, productID int64, attributeID int64) (domain.Product, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if !product.HasVariantAttribute(attributeID) {
		return domain.Product{}, newProductError("attribute %d is not a variant attribute of product %d", attributeID, productID)
	}

	ids := make([]int64, 0, len(product.VariantAttributeIDs)-1)
	for _, id := range product.VariantAttributeIDs {
		if id == attributeID {
			continue
		}
		ids = append(ids, id)
	}
	product.VariantAttributeIDs = ids
	product.Changed = s.clock()
	if err := s.products.Update(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("update product %d: %w", productID, err)
	}
	return product, nil
}

// List resolves the product's variant-defining attributes with localized
// names.
func (s *variantAttributeService) List(ctx context.Context, productID int64, locale string) ([]VariantAttributeView, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	views := make([]VariantAttributeView, 0, len(product.VariantAttributeIDs))
	for _, id := range product.VariantAttributeIDs {
		attribute, err := s.attributes.Find(ctx, id)
		if err != nil {
			var repoErr repositories.RepositoryError
			if errors.As(err, &repoErr) && repoErr.IsNotFound() {
				continue
			}
			return nil, fmt.Errorf("load attribute %d: %w", id, err)
		}
		views = append(views, VariantAttributeView{
			ID:   attribute.ID,
			Key:  attribute.Key,
			Name: attribute.LocalizedName(locale),
		})
	}
	return views, nil
}

func (s *variantAttributeService) loadProduct(ctx context.Context, productID int64) (domain.Product, error) {
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
