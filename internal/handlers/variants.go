package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/platform/httpx"
	"github.com/catalix/pim-api/internal/platform/locale"
	"github.com/catalix/pim-api/internal/services"
)

const maxVariantRequestBody = 64 * 1024

// VariantHandlers exposes the variant endpoints beneath a parent product.
type VariantHandlers struct {
	variants services.VariantService
	products services.ProductService
	locales  *locale.Resolver
}

// NewVariantHandlers constructs the variant handler set.
func NewVariantHandlers(variants services.VariantService, products services.ProductService, locales *locale.Resolver) *VariantHandlers {
	return &VariantHandlers{
		variants: variants,
		products: products,
		locales:  locales,
	}
}

// Routes registers the variant endpoints relative to the /products group.
func (h *VariantHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	r.Get("/{productId}/variants", h.list)
	r.Post("/{productId}/variants", h.create)
	r.Get("/{productId}/variants/{variantId}", h.get)
	r.Put("/{productId}/variants/{variantId}", h.update)
	r.Delete("/{productId}/variants/{variantId}", h.deleteVariant)
}

func (h *VariantHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parentID, err := parseIDParam(r, "productId")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	pager, err := parsePaginationParams(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	loc := resolveRequestLocale(r, h.locales)
	page, err := h.variants.ListVariants(ctx, parentID, loc, pager)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	items := make([]productPayload, 0, len(page.Items))
	for _, variant := range page.Items {
		items = append(items, buildProductPayload(variant, loc))
	}
	writeJSONResponse(w, http.StatusOK, productListResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *VariantHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parentID, err := parseIDParam(r, "productId")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	data, ok := decodeVariantData(w, r)
	if !ok {
		return
	}

	loc := resolveRequestLocale(r, h.locales)
	variant, err := h.variants.CreateVariant(ctx, parentID, data, loc, actingUserID(r))
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, productResponse{
		Product: buildProductPayload(variant, loc),
	})
}

func (h *VariantHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parentID, variantID, ok := h.parseVariantPath(w, r)
	if !ok {
		return
	}

	loc := resolveRequestLocale(r, h.locales)
	view, err := h.products.Get(ctx, variantID, loc)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}
	if !isVariantOf(view.Product, parentID) {
		writeProductError(ctx, w, &services.ProductNotFoundError{ID: variantID})
		return
	}

	payload := productResponse{Product: buildProductPayload(view.Product, loc)}
	for _, media := range view.Media {
		payload.Media = append(payload.Media, buildMediaPayload(media))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *VariantHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parentID, variantID, ok := h.parseVariantPath(w, r)
	if !ok {
		return
	}
	data, okBody := decodeVariantData(w, r)
	if !okBody {
		return
	}

	loc := resolveRequestLocale(r, h.locales)
	if !h.variantBelongsTo(ctx, w, variantID, parentID, loc) {
		return
	}

	variant, err := h.variants.UpdateVariant(ctx, variantID, data, loc, actingUserID(r))
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{
		Product: buildProductPayload(variant, loc),
	})
}

func (h *VariantHandlers) deleteVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parentID, variantID, ok := h.parseVariantPath(w, r)
	if !ok {
		return
	}

	loc := resolveRequestLocale(r, h.locales)
	if !h.variantBelongsTo(ctx, w, variantID, parentID, loc) {
		return
	}

	if err := h.variants.DeleteVariant(ctx, variantID); err != nil {
		writeProductError(ctx, w, err)
		return
	}
	httpx.WriteNoContent(w)
}

func (h *VariantHandlers) parseVariantPath(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	ctx := r.Context()

	parentID, err := parseIDParam(r, "productId")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return 0, 0, false
	}
	variantID, err := parseIDParam(r, "variantId")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return 0, 0, false
	}
	return parentID, variantID, true
}

// variantBelongsTo rejects path mismatches before the mutation so an update
// addressed to the wrong parent cannot touch another product's variant.
func (h *VariantHandlers) variantBelongsTo(ctx context.Context, w http.ResponseWriter, variantID, parentID int64, loc string) bool {
	view, err := h.products.Get(ctx, variantID, loc)
	if err != nil {
		writeProductError(ctx, w, err)
		return false
	}
	if !isVariantOf(view.Product, parentID) {
		writeProductError(ctx, w, &services.ProductNotFoundError{ID: variantID})
		return false
	}
	return true
}

func isVariantOf(product domain.Product, parentID int64) bool {
	return product.TypeID == domain.ProductTypeVariant &&
		product.ParentID != nil &&
		*product.ParentID == parentID
}

func decodeVariantData(w http.ResponseWriter, r *http.Request) (services.VariantData, bool) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxVariantRequestBody)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return services.VariantData{}, false
	}

	var data services.VariantData
	if err := json.Unmarshal(body, &data); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return services.VariantData{}, false
	}
	return data, true
}
