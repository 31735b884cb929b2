package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/platform/httpx"
	"github.com/catalix/pim-api/internal/platform/locale"
	"github.com/catalix/pim-api/internal/repositories"
	"github.com/catalix/pim-api/internal/services"
)

const maxProductRequestBody = 512 * 1024

// ProductHandlers exposes the catalog product endpoints.
type ProductHandlers struct {
	products services.ProductService
	audit    services.AuditLogService
	locales  *locale.Resolver
	limiter  rateLimiter
}

// NewProductHandlers constructs the product handler set.
func NewProductHandlers(products services.ProductService, audit services.AuditLogService, locales *locale.Resolver) *ProductHandlers {
	return &ProductHandlers{
		products: products,
		audit:    audit,
		locales:  locales,
	}
}

// WithWriteLimit throttles mutating endpoints per client, counted over the
// window. Non-positive values disable the limiter.
func (h *ProductHandlers) WithWriteLimit(limit int, window time.Duration) *ProductHandlers {
	h.limiter = newWriteLimiter(limit, window, nil)
	return h
}

// Routes registers the product endpoints relative to the /products group.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Delete("/", h.bulkDelete)
	r.Get("/offers", h.offers)
	r.Get("/{productId}", h.get)
	r.Put("/{productId}", h.update)
	r.Patch("/{productId}", h.partialUpdate)
	r.Delete("/{productId}", h.deleteOne)
	r.Get("/{productId}/audit-logs", h.auditLogs)
}

func (h *ProductHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := parseProductListFilter(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	pager, err := parsePaginationParams(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.products.List(ctx, filter, pager)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	loc := resolveRequestLocale(r, h.locales)
	items := make([]productPayload, 0, len(page.Items))
	for _, product := range page.Items {
		items = append(items, buildProductPayload(product, loc))
	}
	writeJSONResponse(w, http.StatusOK, productListResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *ProductHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allowWrite(r) {
		writeRateLimited(ctx, w)
		return
	}

	data, ok := h.decodeProductData(w, r)
	if !ok {
		return
	}

	opts := services.SaveOptions{
		Locale: resolveRequestLocale(r, h.locales),
		UserID: actingUserID(r),
	}
	if data.Supplier != nil {
		supplierID := data.Supplier.ID
		opts.SupplierID = &supplierID
	}

	product, err := h.products.Save(ctx, data, opts)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, productResponse{
		Product: buildProductPayload(product, opts.Locale),
	})
}

func (h *ProductHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := parseIDParam(r, "productId")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	loc := resolveRequestLocale(r, h.locales)
	view, err := h.products.Get(ctx, productID, loc)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	payload := productResponse{Product: buildProductPayload(view.Product, loc)}
	for _, media := range view.Media {
		payload.Media = append(payload.Media, buildMediaPayload(media))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *ProductHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allowWrite(r) {
		writeRateLimited(ctx, w)
		return
	}

	productID, err := parseIDParam(r, "productId")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	data, ok := h.decodeProductData(w, r)
	if !ok {
		return
	}

	opts := services.SaveOptions{
		ID:          &productID,
		Locale:      resolveRequestLocale(r, h.locales),
		UserID:      actingUserID(r),
		SkipChanged: parseBoolQuery(r, "skipChanged"),
	}
	if data.Supplier != nil {
		supplierID := data.Supplier.ID
		opts.SupplierID = &supplierID
	}

	product, err := h.products.Save(ctx, data, opts)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{
		Product: buildProductPayload(product, opts.Locale),
	})
}

func (h *ProductHandlers) partialUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allowWrite(r) {
		writeRateLimited(ctx, w)
		return
	}

	productID, err := parseIDParam(r, "productId")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	data, ok := h.decodeProductData(w, r)
	if !ok {
		return
	}

	loc := resolveRequestLocale(r, h.locales)
	product, err := h.products.PartialUpdate(ctx, data, loc, actingUserID(r), productID)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{
		Product: buildProductPayload(product, loc),
	})
}

func (h *ProductHandlers) deleteOne(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allowWrite(r) {
		writeRateLimited(ctx, w)
		return
	}

	productID, err := parseIDParam(r, "productId")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	if err := h.products.Delete(ctx, []int64{productID}, actingUserID(r)); err != nil {
		writeProductError(ctx, w, err)
		return
	}
	httpx.WriteNoContent(w)
}

func (h *ProductHandlers) bulkDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allowWrite(r) {
		writeRateLimited(ctx, w)
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("ids"))
	if raw == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "ids query parameter is required", http.StatusBadRequest))
		return
	}
	ids, err := parseIDList(raw)
	if err != nil || len(ids) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "ids must be a comma separated list of positive integers", http.StatusBadRequest))
		return
	}

	if err := h.products.Delete(ctx, ids, actingUserID(r)); err != nil {
		writeProductError(ctx, w, err)
		return
	}
	httpx.WriteNoContent(w)
}

func (h *ProductHandlers) offers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.products.FindCurrentOffered(ctx)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	loc := resolveRequestLocale(r, h.locales)
	items := make([]productPayload, 0, len(products))
	for _, product := range products {
		items = append(items, buildProductPayload(product, loc))
	}
	writeJSONResponse(w, http.StatusOK, productListResponse{Items: items})
}

func (h *ProductHandlers) auditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.audit == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "audit log service not available", http.StatusServiceUnavailable))
		return
	}

	productID, err := parseIDParam(r, "productId")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	pager, err := parsePaginationParams(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.audit.ListByTarget(ctx, fmt.Sprintf("products/%d", productID), pager)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	items := make([]auditLogPayload, 0, len(page.Items))
	for _, entry := range page.Items {
		items = append(items, buildAuditLogPayload(entry))
	}
	writeJSONResponse(w, http.StatusOK, auditLogListResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *ProductHandlers) decodeProductData(w http.ResponseWriter, r *http.Request) (services.ProductData, bool) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxProductRequestBody)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return services.ProductData{}, false
	}

	var data services.ProductData
	if err := json.Unmarshal(body, &data); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return services.ProductData{}, false
	}
	return data, true
}

func (h *ProductHandlers) allowWrite(r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(r.RemoteAddr)
}

func writeRateLimited(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many catalog writes, retry later", http.StatusTooManyRequests))
}

func parseProductListFilter(r *http.Request) (repositories.ProductListFilter, error) {
	query := r.URL.Query()
	var filter repositories.ProductListFilter

	if raw := strings.TrimSpace(query.Get("statusIds")); raw != "" {
		ids, err := parseIDList(raw)
		if err != nil {
			return filter, errors.New("statusIds must be a comma separated list of positive integers")
		}
		filter.StatusIDs = ids
	}
	if raw := strings.TrimSpace(query.Get("typeIds")); raw != "" {
		ids, err := parseIDList(raw)
		if err != nil {
			return filter, errors.New("typeIds must be a comma separated list of positive integers")
		}
		filter.TypeIDs = ids
	}
	if raw := strings.TrimSpace(query.Get("ids")); raw != "" {
		ids, err := parseIDList(raw)
		if err != nil {
			return filter, errors.New("ids must be a comma separated list of positive integers")
		}
		filter.IDs = ids
	}

	supplierID, err := parseOptionalIDQuery(query.Get("supplierId"), "supplierId")
	if err != nil {
		return filter, err
	}
	filter.SupplierID = supplierID

	parentID, err := parseOptionalIDQuery(query.Get("parentId"), "parentId")
	if err != nil {
		return filter, err
	}
	filter.ParentID = parentID

	categoryID, err := parseOptionalIDQuery(query.Get("categoryId"), "categoryId")
	if err != nil {
		return filter, err
	}
	filter.CategoryID = categoryID

	if raw := strings.TrimSpace(query.Get("isDeprecated")); raw != "" {
		deprecated, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, errors.New("isDeprecated must be a boolean")
		}
		filter.IsDeprecated = &deprecated
	}
	filter.WithoutParent = parseBoolQuery(r, "noParent")
	filter.InternalItemNumber = strings.TrimSpace(query.Get("internalItemNumber"))

	return filter, nil
}

func parseOptionalIDQuery(raw, name string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.New(name + " must be a positive integer")
	}
	return &id, nil
}

func parseBoolQuery(r *http.Request, name string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(name)))
	return err == nil && value
}

type productResponse struct {
	Product productPayload `json:"product"`
	Media   []mediaPayload `json:"media,omitempty"`
}

type productListResponse struct {
	Items         []productPayload `json:"items"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
}

type productPayload struct {
	ID                    int64  `json:"id"`
	Number                string `json:"number,omitempty"`
	InternalItemNumber    string `json:"internalItemNumber,omitempty"`
	GlobalTradeItemNumber string `json:"globalTradeItemNumber,omitempty"`
	Locale                string `json:"locale,omitempty"`
	Name                  string `json:"name,omitempty"`
	ShortDescription      string `json:"shortDescription,omitempty"`
	LongDescription       string `json:"longDescription,omitempty"`
	Manufacturer          string `json:"manufacturer,omitempty"`
	ManufacturerCountry   string `json:"manufacturerCountry,omitempty"`

	TypeID       int64  `json:"typeId"`
	StatusID     int64  `json:"statusId"`
	IsDeprecated bool   `json:"isDeprecated"`
	ParentID     *int64 `json:"parentId,omitempty"`

	SupplierID       *int64 `json:"supplierId,omitempty"`
	TaxClassID       *int64 `json:"taxClassId,omitempty"`
	DeliveryStatusID *int64 `json:"deliveryStatusId,omitempty"`
	OrderUnitID      *int64 `json:"orderUnitId,omitempty"`
	ContentUnitID    *int64 `json:"contentUnitId,omitempty"`

	Cost           float64 `json:"cost,omitempty"`
	PriceInfo      string  `json:"priceInfo,omitempty"`
	AreGrossPrices bool    `json:"areGrossPrices"`
	SearchTerms    string  `json:"searchTerms,omitempty"`
	DeliveryTime   int     `json:"deliveryTime,omitempty"`

	OrderContentRatio        *float64 `json:"orderContentRatio,omitempty"`
	MinimumOrderQuantity     *float64 `json:"minimumOrderQuantity,omitempty"`
	RecommendedOrderQuantity *float64 `json:"recommendedOrderQuantity,omitempty"`

	CategoryIDs         []int64               `json:"categoryIds,omitempty"`
	MediaIDs            []int64               `json:"mediaIds,omitempty"`
	Prices              []pricePayload        `json:"prices,omitempty"`
	SpecialPrices       []specialPricePayload `json:"specialPrices,omitempty"`
	Addons              []addonPayload        `json:"addons,omitempty"`
	VariantAttributeIDs []int64               `json:"variantAttributeIds,omitempty"`
	Attributes          []attributePayload    `json:"attributes,omitempty"`

	Created   string `json:"created,omitempty"`
	Changed   string `json:"changed,omitempty"`
	CreatorID int64  `json:"creatorId,omitempty"`
	ChangerID int64  `json:"changerId,omitempty"`
}

type pricePayload struct {
	ID              int64   `json:"id"`
	CurrencyCode    string  `json:"currencyCode"`
	Price           float64 `json:"price"`
	MinimumQuantity float64 `json:"minimumQuantity"`
	PriceInfo       string  `json:"priceInfo,omitempty"`
}

type specialPricePayload struct {
	CurrencyCode string  `json:"currencyCode"`
	Price        float64 `json:"price"`
	StartDate    string  `json:"startDate,omitempty"`
	EndDate      string  `json:"endDate,omitempty"`
}

type addonPayload struct {
	AddonID int64               `json:"addonId"`
	Prices  []addonPricePayload `json:"prices,omitempty"`
}

type addonPricePayload struct {
	CurrencyCode string  `json:"currencyCode"`
	Price        float64 `json:"price"`
}

type attributePayload struct {
	AttributeID int64  `json:"attributeId"`
	ValueID     string `json:"valueId,omitempty"`
	Value       string `json:"value"`
}

type mediaPayload struct {
	ID           int64  `json:"id"`
	Title        string `json:"title,omitempty"`
	URL          string `json:"url,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

type auditLogListResponse struct {
	Items         []auditLogPayload `json:"items"`
	NextPageToken string            `json:"nextPageToken,omitempty"`
}

type auditLogPayload struct {
	ID        string         `json:"id,omitempty"`
	Actor     string         `json:"actor"`
	ActorType string         `json:"actorType"`
	Action    string         `json:"action"`
	TargetRef string         `json:"targetRef"`
	Severity  string         `json:"severity"`
	RequestID string         `json:"requestId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Diff      map[string]any `json:"diff,omitempty"`
	CreatedAt string         `json:"createdAt"`
}

func buildProductPayload(product domain.Product, loc string) productPayload {
	payload := productPayload{
		ID:                    product.ID,
		Number:                product.Number,
		InternalItemNumber:    product.InternalItemNumber,
		GlobalTradeItemNumber: product.GlobalTradeItemNumber,
		Manufacturer:          product.Manufacturer,
		ManufacturerCountry:   product.ManufacturerCountry,

		TypeID:       int64(product.TypeID),
		StatusID:     product.StatusID,
		IsDeprecated: product.IsDeprecated,
		ParentID:     product.ParentID,

		SupplierID:       product.SupplierID,
		TaxClassID:       product.TaxClassID,
		DeliveryStatusID: product.DeliveryStatusID,
		OrderUnitID:      product.OrderUnitID,
		ContentUnitID:    product.ContentUnitID,

		Cost:           product.Cost,
		PriceInfo:      product.PriceInfo,
		AreGrossPrices: product.AreGrossPrices,
		SearchTerms:    product.SearchTerms,
		DeliveryTime:   product.DeliveryTime,

		OrderContentRatio:        product.OrderContentRatio,
		MinimumOrderQuantity:     product.MinimumOrderQuantity,
		RecommendedOrderQuantity: product.RecommendedOrderQuantity,

		CategoryIDs:         product.CategoryIDs,
		MediaIDs:            product.MediaIDs,
		VariantAttributeIDs: product.VariantAttributeIDs,

		Created:   formatTime(product.Created),
		Changed:   formatTime(product.Changed),
		CreatorID: product.CreatorID,
		ChangerID: product.ChangerID,
	}

	if tr, ok := product.Translation(loc); ok {
		payload.Locale = tr.Locale
		payload.Name = tr.Name
		payload.ShortDescription = tr.ShortDescription
		payload.LongDescription = tr.LongDescription
	} else if len(product.Translations) > 0 {
		tr := product.Translations[0]
		payload.Locale = tr.Locale
		payload.Name = tr.Name
		payload.ShortDescription = tr.ShortDescription
		payload.LongDescription = tr.LongDescription
	}

	for _, price := range product.Prices {
		payload.Prices = append(payload.Prices, pricePayload{
			ID:              price.ID,
			CurrencyCode:    price.CurrencyCode,
			Price:           price.Price,
			MinimumQuantity: price.MinimumQuantity,
			PriceInfo:       price.PriceInfo,
		})
	}
	for _, special := range product.SpecialPrices {
		payload.SpecialPrices = append(payload.SpecialPrices, specialPricePayload{
			CurrencyCode: special.CurrencyCode,
			Price:        special.Price,
			StartDate:    formatTimePointer(special.StartDate),
			EndDate:      formatTimePointer(special.EndDate),
		})
	}
	for _, addon := range product.Addons {
		entry := addonPayload{AddonID: addon.AddonID}
		for _, price := range addon.Prices {
			entry.Prices = append(entry.Prices, addonPricePayload{
				CurrencyCode: price.CurrencyCode,
				Price:        price.Price,
			})
		}
		payload.Addons = append(payload.Addons, entry)
	}
	for _, attr := range product.Attributes {
		payload.Attributes = append(payload.Attributes, attributePayload{
			AttributeID: attr.AttributeID,
			ValueID:     attr.Value.ID,
			Value:       attr.Value.Value(loc),
		})
	}

	return payload
}

func buildMediaPayload(media domain.MediaView) mediaPayload {
	return mediaPayload{
		ID:           media.ID,
		Title:        media.Title,
		URL:          media.URL,
		ThumbnailURL: media.ThumbnailURL,
		MimeType:     media.MimeType,
		Width:        media.Width,
		Height:       media.Height,
	}
}

func buildAuditLogPayload(entry domain.AuditLogEntry) auditLogPayload {
	return auditLogPayload{
		ID:        entry.ID,
		Actor:     entry.Actor,
		ActorType: entry.ActorType,
		Action:    entry.Action,
		TargetRef: entry.TargetRef,
		Severity:  entry.Severity,
		RequestID: entry.RequestID,
		Metadata:  entry.Metadata,
		Diff:      entry.Diff,
		CreatedAt: formatTime(entry.CreatedAt),
	}
}

func writeProductError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrMissingAttribute):
		httpx.WriteError(ctx, w, httpx.NewError("missing_product_attribute", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrDependencyNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("dependency_not_found", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrIDAlreadySet):
		httpx.WriteError(ctx, w, httpx.NewError("entity_id_already_set", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrChildrenExist):
		httpx.WriteError(ctx, w, httpx.NewError("product_children_exist", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrAttributeNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("attribute_not_found", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrProductInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("product_invalid", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to process catalog request", http.StatusInternalServerError))
	}
}
