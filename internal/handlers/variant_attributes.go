package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/catalix/pim-api/internal/platform/httpx"
	"github.com/catalix/pim-api/internal/platform/locale"
	"github.com/catalix/pim-api/internal/services"
)

const maxVariantAttributeRequestBody = 4 * 1024

// VariantAttributeHandlers manages the variant-defining attribute set of a
// parent product.
type VariantAttributeHandlers struct {
	relations services.VariantAttributeService
	locales   *locale.Resolver
}

// NewVariantAttributeHandlers constructs the variant attribute handler set.
func NewVariantAttributeHandlers(relations services.VariantAttributeService, locales *locale.Resolver) *VariantAttributeHandlers {
	return &VariantAttributeHandlers{
		relations: relations,
		locales:   locales,
	}
}

// Routes registers the variant attribute endpoints relative to the /products group.
func (h *VariantAttributeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	r.Get("/{productId}/variant-attributes", h.list)
	r.Post("/{productId}/variant-attributes", h.create)
	r.Delete("/{productId}/variant-attributes/{attributeId}", h.remove)
}

func (h *VariantAttributeHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := parseIDParam(r, "productId")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	loc := resolveRequestLocale(r, h.locales)
	views, err := h.relations.List(ctx, productID, loc)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	items := make([]services.VariantAttributeView, 0, len(views))
	items = append(items, views...)
	writeJSONResponse(w, http.StatusOK, variantAttributeListResponse{Items: items})
}

func (h *VariantAttributeHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := parseIDParam(r, "productId")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxVariantAttributeRequestBody)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return
	}

	var req createVariantAttributeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}
	if req.AttributeID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "attributeId is required", http.StatusBadRequest))
		return
	}

	product, err := h.relations.CreateRelation(ctx, productID, req.AttributeID)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	loc := resolveRequestLocale(r, h.locales)
	writeJSONResponse(w, http.StatusCreated, productResponse{
		Product: buildProductPayload(product, loc),
	})
}

func (h *VariantAttributeHandlers) remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := parseIDParam(r, "productId")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	attributeID, err := parseIDParam(r, "attributeId")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	if _, err := h.relations.RemoveRelation(ctx, productID, attributeID); err != nil {
		writeProductError(ctx, w, err)
		return
	}
	httpx.WriteNoContent(w)
}

type createVariantAttributeRequest struct {
	AttributeID int64 `json:"attributeId"`
}

type variantAttributeListResponse struct {
	Items []services.VariantAttributeView `json:"items"`
}
