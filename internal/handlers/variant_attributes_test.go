package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/services"
)

type stubVariantAttributeService struct {
	createFunc func(ctx context.Context, productID int64, attributeID int64) (domain.Product, error)
	removeFunc func(ctx context.Context, productID int64, attributeID int64) (domain.Product, error)
	listFunc   func(ctx context.Context, productID int64, locale string) ([]services.VariantAttributeView, error)
}

func (s *stubVariantAttributeService) CreateRelation(ctx context.Context, productID int64, attributeID int64) (domain.Product, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, productID, attributeID)
	}
	return domain.Product{}, nil
}

func (s *stubVariantAttributeService) RemoveRelation(ctx context.Context, productID int64, attributeID int64) (domain.Product, error) {
	if s.removeFunc != nil {
		return s.removeFunc(ctx, productID, attributeID)
	}
	return domain.Product{}, nil
}

func (s *stubVariantAttributeService) List(ctx context.Context, productID int64, locale string) ([]services.VariantAttributeView, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, productID, locale)
	}
	return nil, nil
}

func newVariantAttributeRouter(h *VariantAttributeHandlers) chi.Router {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func TestVariantAttributeHandlersCreate(t *testing.T) {
	var receivedProduct, receivedAttribute int64
	svc := &stubVariantAttributeService{
		createFunc: func(ctx context.Context, productID int64, attributeID int64) (domain.Product, error) {
			receivedProduct = productID
			receivedAttribute = attributeID
			return domain.Product{
				ID:                  productID,
				TypeID:              domain.ProductTypeWithVariants,
				StatusID:            1,
				VariantAttributeIDs: []int64{attributeID},
			}, nil
		},
	}

	handler := NewVariantAttributeHandlers(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/1/variant-attributes", bytes.NewBufferString(`{"attributeId":10}`))
	resp := httptest.NewRecorder()

	newVariantAttributeRouter(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if receivedProduct != 1 || receivedAttribute != 10 {
		t.Fatalf("unexpected relation args: product %d attribute %d", receivedProduct, receivedAttribute)
	}

	var payload productResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Product.VariantAttributeIDs) != 1 || payload.Product.VariantAttributeIDs[0] != 10 {
		t.Fatalf("unexpected variant attribute ids: %v", payload.Product.VariantAttributeIDs)
	}
}

func TestVariantAttributeHandlersCreateRequiresAttributeID(t *testing.T) {
	handler := NewVariantAttributeHandlers(&stubVariantAttributeService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/1/variant-attributes", bytes.NewBufferString(`{}`))
	resp := httptest.NewRecorder()

	newVariantAttributeRouter(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestVariantAttributeHandlersCreateWrongType(t *testing.T) {
	svc := &stubVariantAttributeService{
		createFunc: func(ctx context.Context, productID int64, attributeID int64) (domain.Product, error) {
			return domain.Product{}, &services.ProductError{Msg: "product 1 cannot declare variant attributes"}
		},
	}
	handler := NewVariantAttributeHandlers(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/1/variant-attributes", bytes.NewBufferString(`{"attributeId":10}`))
	resp := httptest.NewRecorder()

	newVariantAttributeRouter(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp); code != "product_invalid" {
		t.Fatalf("expected code product_invalid, got %q", code)
	}
}

func TestVariantAttributeHandlersCreateUnknownAttribute(t *testing.T) {
	svc := &stubVariantAttributeService{
		createFunc: func(ctx context.Context, productID int64, attributeID int64) (domain.Product, error) {
			return domain.Product{}, &services.AttributeNotFoundError{ID: attributeID}
		},
	}
	handler := NewVariantAttributeHandlers(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/1/variant-attributes", bytes.NewBufferString(`{"attributeId":99}`))
	resp := httptest.NewRecorder()

	newVariantAttributeRouter(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp); code != "attribute_not_found" {
		t.Fatalf("expected code attribute_not_found, got %q", code)
	}
}

func TestVariantAttributeHandlersRemove(t *testing.T) {
	var receivedProduct, receivedAttribute int64
	svc := &stubVariantAttributeService{
		removeFunc: func(ctx context.Context, productID int64, attributeID int64) (domain.Product, error) {
			receivedProduct = productID
			receivedAttribute = attributeID
			return domain.Product{ID: productID}, nil
		},
	}
	handler := NewVariantAttributeHandlers(svc, nil)
	req := httptest.NewRequest(http.MethodDelete, "/1/variant-attributes/10", nil)
	resp := httptest.NewRecorder()

	newVariantAttributeRouter(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}
	if receivedProduct != 1 || receivedAttribute != 10 {
		t.Fatalf("unexpected relation args: product %d attribute %d", receivedProduct, receivedAttribute)
	}
}

func TestVariantAttributeHandlersList(t *testing.T) {
	svc := &stubVariantAttributeService{
		listFunc: func(ctx context.Context, productID int64, locale string) ([]services.VariantAttributeView, error) {
			return []services.VariantAttributeView{
				{ID: 10, Key: "color", Name: "Farbe"},
				{ID: 11, Key: "size", Name: "Größe"},
			}, nil
		},
	}
	handler := NewVariantAttributeHandlers(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/1/variant-attributes?locale=de", nil)
	resp := httptest.NewRecorder()

	newVariantAttributeRouter(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var payload variantAttributeListResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Items) != 2 || payload.Items[0].Name != "Farbe" {
		t.Fatalf("unexpected items: %+v", payload.Items)
	}
}
