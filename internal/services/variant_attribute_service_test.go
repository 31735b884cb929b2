package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/catalix/pim-api/internal/domain"
)

func newTestVariantAttributeService(t *testing.T, products *stubProductRepository, attributes map[int64]domain.Attribute) VariantAttributeService {
	t.Helper()
	svc, err := NewVariantAttributeService(VariantAttributeServiceDeps{
		Products:   products,
		Attributes: &stubReferenceRepository[domain.Attribute]{entries: attributes},
	})
	if err != nil {
		t.Fatalf("NewVariantAttributeService: %v", err)
	}
	return svc
}

func TestCreateRelation(t *testing.T) {
	products := newStubProductRepository(domain.Product{ID: 1, TypeID: domain.ProductTypeWithVariants})
	svc := newTestVariantAttributeService(t, products, map[int64]domain.Attribute{
		10: {ID: 10, Key: "color"},
	})

	product, err := svc.CreateRelation(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("CreateRelation: %v", err)
	}
	if !product.HasVariantAttribute(10) {
		t.Fatalf("variant attributes = %v, want attribute 10", product.VariantAttributeIDs)
	}
	if products.updates != 1 {
		t.Fatalf("updates = %d, want 1", products.updates)
	}

	// Adding the same attribute again leaves the set unchanged.
	product, err = svc.CreateRelation(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("CreateRelation repeat: %v", err)
	}
	if len(product.VariantAttributeIDs) != 1 {
		t.Fatalf("variant attributes = %v, want one entry", product.VariantAttributeIDs)
	}
	if products.updates != 1 {
		t.Fatalf("updates = %d, want no second write", products.updates)
	}
}

func TestCreateRelationErrors(t *testing.T) {
	products := newStubProductRepository(
		domain.Product{ID: 1, TypeID: domain.ProductTypeWithVariants},
		domain.Product{ID: 2, TypeID: domain.ProductTypeSimple},
	)
	svc := newTestVariantAttributeService(t, products, map[int64]domain.Attribute{10: {ID: 10}})

	if _, err := svc.CreateRelation(context.Background(), 99, 10); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("err = %v, want product not found", err)
	}
	if _, err := svc.CreateRelation(context.Background(), 1, 99); !errors.Is(err, ErrAttributeNotFound) {
		t.Fatalf("err = %v, want attribute not found", err)
	}
	if _, err := svc.CreateRelation(context.Background(), 2, 10); !errors.Is(err, ErrProductInvalid) {
		t.Fatalf("err = %v, want product invalid for simple product", err)
	}
}

func TestRemoveRelation(t *testing.T) {
	products := newStubProductRepository(domain.Product{
		ID:                  1,
		TypeID:              domain.ProductTypeWithVariants,
		VariantAttributeIDs: []int64{10, 11},
	})
	svc := newTestVariantAttributeService(t, products, map[int64]domain.Attribute{10: {ID: 10}, 11: {ID: 11}})

	product, err := svc.RemoveRelation(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("RemoveRelation: %v", err)
	}
	if product.HasVariantAttribute(10) || !product.HasVariantAttribute(11) {
		t.Fatalf("variant attributes = %v, want only 11", product.VariantAttributeIDs)
	}

	if _, err := svc.RemoveRelation(context.Background(), 1, 10); !errors.Is(err, ErrProductInvalid) {
		t.Fatalf("err = %v, want product invalid for absent relation", err)
	}
}

func TestListVariantAttributes(t *testing.T) {
	products := newStubProductRepository(domain.Product{
		ID:                  1,
		TypeID:              domain.ProductTypeWithVariants,
		VariantAttributeIDs: []int64{10, 11},
	})
	svc := newTestVariantAttributeService(t, products, map[int64]domain.Attribute{
		10: {ID: 10, Key: "color", Names: map[string]string{"de": "Farbe"}},
		11: {ID: 11, Key: "size"},
	})

	views, err := svc.List(context.Background(), 1, "de")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("views = %+v, want 2", views)
	}
	if views[0].Name != "Farbe" {
		t.Fatalf("name = %q, want localized name", views[0].Name)
	}
	if views[1].Name != "size" {
		t.Fatalf("name = %q, want key fallback", views[1].Name)
	}
}
