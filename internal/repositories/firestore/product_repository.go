package firestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/catalix/pim-api/internal/domain"
	pfirestore "github.com/catalix/pim-api/internal/platform/firestore"
	"github.com/catalix/pim-api/internal/platform/pagination"
	"github.com/catalix/pim-api/internal/repositories"
)

const productsCollection = "products"

// ProductRepository persists the product aggregate as one Firestore document
// per product. Parent/child links are id references resolved by query.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil)
	return &ProductRepository{base: base}, nil
}

// Insert stores a new product. The id must already be allocated and unique.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	if product.ID <= 0 {
		return errors.New("product repository: product id is required")
	}
	return r.base.Create(ctx, productDocID(product.ID), encodeProductDocument(product))
}

// Update replaces the persisted aggregate with the provided snapshot.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	if product.ID <= 0 {
		return errors.New("product repository: product id is required")
	}
	return r.base.Set(ctx, productDocID(product.ID), encodeProductDocument(product))
}

// Delete removes the product document.
func (r *ProductRepository) Delete(ctx context.Context, productID int64) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	if productID <= 0 {
		return errors.New("product repository: product id is required")
	}
	return r.base.Delete(ctx, productDocID(productID))
}

// FindByID fetches a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID int64) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	if productID <= 0 {
		return domain.Product{}, pfirestore.NotFoundError("products.find", fmt.Errorf("invalid product id %d", productID))
	}
	doc, err := r.base.Get(ctx, productDocID(productID))
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProductDocument(doc.Data), nil
}

// FindByInternalItemNumber returns every product sharing the item number.
// Published/draft duplicates make this a list, not a single row.
func (r *ProductRepository) FindByInternalItemNumber(ctx context.Context, number string) ([]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("internalItemNumber", "==", number)
	})
	if err != nil {
		return nil, err
	}
	return decodeProductDocuments(docs), nil
}

// FindChildren returns every product whose parent is the given product.
func (r *ProductRepository) FindChildren(ctx context.Context, parentID int64) ([]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("parentId", "==", parentID).OrderBy("id", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	return decodeProductDocuments(docs), nil
}

// HasChildren reports whether at least one product references this parent.
func (r *ProductRepository) HasChildren(ctx context.Context, parentID int64) (bool, error) {
	if r == nil || r.base == nil {
		return false, errors.New("product repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("parentId", "==", parentID).Limit(1)
	})
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// List returns a filtered product page ordered by id.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter, pager domain.Pagination) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
	}

	if len(filter.IDs) > 0 {
		return r.listByIDs(ctx, filter)
	}

	limit := pager.PageSize
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}

	cursor, err := pagination.DecodeToken(pager.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = applyProductFilter(q, filter)
		q = q.OrderBy("id", firestore.Asc)
		if cursor.LastID > 0 {
			q = q.StartAfter(cursor.LastID)
		}
		return q.Limit(limit + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}

	products := decodeProductDocuments(docs)
	page := domain.CursorPage[domain.Product]{Items: products}
	if len(products) > limit {
		page.Items = products[:limit]
		token, err := pagination.EncodeToken(pagination.Cursor{LastID: page.Items[limit-1].ID})
		if err != nil {
			return domain.CursorPage[domain.Product]{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}

// FindWithSpecialPrices returns every product carrying at least one special price.
func (r *ProductRepository) FindWithSpecialPrices(ctx context.Context) ([]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("hasSpecialPrices", "==", true)
	})
	if err != nil {
		return nil, err
	}
	return decodeProductDocuments(docs), nil
}

func (r *ProductRepository) listByIDs(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	products := make([]domain.Product, 0, len(filter.IDs))
	for _, id := range filter.IDs {
		product, err := r.FindByID(ctx, id)
		if err != nil {
			var repoErr repositories.RepositoryError
			if errors.As(err, &repoErr) && repoErr.IsNotFound() {
				continue
			}
			return domain.CursorPage[domain.Product]{}, err
		}
		if productMatchesFilter(product, filter) {
			products = append(products, product)
		}
	}
	return domain.CursorPage[domain.Product]{Items: products}, nil
}

func applyProductFilter(q firestore.Query, filter repositories.ProductListFilter) firestore.Query {
	switch len(filter.StatusIDs) {
	case 0:
	case 1:
		q = q.Where("statusId", "==", filter.StatusIDs[0])
	default:
		q = q.Where("statusId", "in", toAnySlice(filter.StatusIDs))
	}
	switch len(filter.TypeIDs) {
	case 0:
	case 1:
		q = q.Where("typeId", "==", filter.TypeIDs[0])
	default:
		q = q.Where("typeId", "in", toAnySlice(filter.TypeIDs))
	}
	if filter.SupplierID != nil {
		q = q.Where("supplierId", "==", *filter.SupplierID)
	}
	if filter.IsDeprecated != nil {
		q = q.Where("isDeprecated", "==", *filter.IsDeprecated)
	}
	if filter.ParentID != nil {
		q = q.Where("parentId", "==", *filter.ParentID)
	} else if filter.WithoutParent {
		q = q.Where("parentId", "==", int64(0))
	}
	if filter.CategoryID != nil {
		q = q.Where("categoryIds", "array-contains", *filter.CategoryID)
	}
	if filter.InternalItemNumber != "" {
		q = q.Where("internalItemNumber", "==", filter.InternalItemNumber)
	}
	return q
}

func productMatchesFilter(product domain.Product, filter repositories.ProductListFilter) bool {
	if len(filter.StatusIDs) > 0 && !containsInt64(filter.StatusIDs, product.StatusID) {
		return false
	}
	if len(filter.TypeIDs) > 0 && !containsInt64(filter.TypeIDs, int64(product.TypeID)) {
		return false
	}
	if filter.SupplierID != nil && (product.SupplierID == nil || *product.SupplierID != *filter.SupplierID) {
		return false
	}
	if filter.IsDeprecated != nil && product.IsDeprecated != *filter.IsDeprecated {
		return false
	}
	if filter.ParentID != nil && (product.ParentID == nil || *product.ParentID != *filter.ParentID) {
		return false
	}
	if filter.ParentID == nil && filter.WithoutParent && product.ParentID != nil {
		return false
	}
	if filter.CategoryID != nil && !containsInt64(product.CategoryIDs, *filter.CategoryID) {
		return false
	}
	if filter.InternalItemNumber != "" && product.InternalItemNumber != filter.InternalItemNumber {
		return false
	}
	return true
}

func productDocID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func toAnySlice(values []int64) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func containsInt64(values []int64, target int64) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// Document model -------------------------------------------------------------

type productDocument struct {
	ID                    int64   `firestore:"id"`
	Number                string  `firestore:"number"`
	InternalItemNumber    string  `firestore:"internalItemNumber"`
	GlobalTradeItemNumber string  `firestore:"globalTradeItemNumber,omitempty"`
	Manufacturer          string  `firestore:"manufacturer,omitempty"`
	ManufacturerCountry   string  `firestore:"manufacturerCountry,omitempty"`
	Cost                  float64 `firestore:"cost"`
	PriceInfo             string  `firestore:"priceInfo,omitempty"`
	AreGrossPrices        bool    `firestore:"areGrossPrices"`
	SearchTerms           string  `firestore:"searchTerms,omitempty"`
	DeliveryTime          int     `firestore:"deliveryTime"`

	TypeID           int64 `firestore:"typeId"`
	StatusID         int64 `firestore:"statusId"`
	IsDeprecated     bool  `firestore:"isDeprecated"`
	DeliveryStatusID int64 `firestore:"deliveryStatusId"`
	TaxClassID       int64 `firestore:"taxClassId"`
	OrderUnitID      int64 `firestore:"orderUnitId"`
	ContentUnitID    int64 `firestore:"contentUnitId"`
	SupplierID       int64 `firestore:"supplierId"`
	ParentID         int64 `firestore:"parentId"`

	OrderContentRatio        *float64 `firestore:"orderContentRatio,omitempty"`
	MinimumOrderQuantity     *float64 `firestore:"minimumOrderQuantity,omitempty"`
	RecommendedOrderQuantity *float64 `firestore:"recommendedOrderQuantity,omitempty"`

	Translations        []productTranslationDocument `firestore:"translations,omitempty"`
	CategoryIDs         []int64                      `firestore:"categoryIds,omitempty"`
	MediaIDs            []int64                      `firestore:"mediaIds,omitempty"`
	Prices              []productPriceDocument       `firestore:"prices,omitempty"`
	SpecialPrices       []specialPriceDocument       `firestore:"specialPrices,omitempty"`
	HasSpecialPrices    bool                         `firestore:"hasSpecialPrices"`
	Addons              []addonDocument              `firestore:"addons,omitempty"`
	VariantAttributeIDs []int64                      `firestore:"variantAttributeIds,omitempty"`
	Attributes          []productAttributeDocument   `firestore:"attributes,omitempty"`

	Created   time.Time `firestore:"created"`
	Changed   time.Time `firestore:"changed"`
	CreatorID int64     `firestore:"creatorId"`
	ChangerID int64     `firestore:"changerId"`
}

type productTranslationDocument struct {
	Locale           string `firestore:"locale"`
	Name             string `firestore:"name,omitempty"`
	ShortDescription string `firestore:"shortDescription,omitempty"`
	LongDescription  string `firestore:"longDescription,omitempty"`
	RouteID          *int64 `firestore:"routeId,omitempty"`
}

type productPriceDocument struct {
	ID              int64   `firestore:"id"`
	CurrencyCode    string  `firestore:"currencyCode"`
	Price           float64 `firestore:"price"`
	MinimumQuantity float64 `firestore:"minimumQuantity"`
	PriceInfo       string  `firestore:"priceInfo,omitempty"`
}

type specialPriceDocument struct {
	CurrencyCode string     `firestore:"currencyCode"`
	Price        float64    `firestore:"price"`
	StartDate    *time.Time `firestore:"startDate,omitempty"`
	EndDate      *time.Time `firestore:"endDate,omitempty"`
}

type addonDocument struct {
	AddonID int64                `firestore:"addonId"`
	Prices  []addonPriceDocument `firestore:"prices,omitempty"`
}

type addonPriceDocument struct {
	CurrencyCode string  `firestore:"currencyCode"`
	Price        float64 `firestore:"price"`
}

type productAttributeDocument struct {
	AttributeID  int64                               `firestore:"attributeId"`
	ValueID      string                              `firestore:"valueId"`
	Translations []attributeValueTranslationDocument `firestore:"translations,omitempty"`
}

type attributeValueTranslationDocument struct {
	Locale string `firestore:"locale"`
	Value  string `firestore:"value"`
}

func encodeProductDocument(product domain.Product) productDocument {
	doc := productDocument{
		ID:                       product.ID,
		Number:                   product.Number,
		InternalItemNumber:       product.InternalItemNumber,
		GlobalTradeItemNumber:    product.GlobalTradeItemNumber,
		Manufacturer:             product.Manufacturer,
		ManufacturerCountry:      product.ManufacturerCountry,
		Cost:                     product.Cost,
		PriceInfo:                product.PriceInfo,
		AreGrossPrices:           product.AreGrossPrices,
		SearchTerms:              product.SearchTerms,
		DeliveryTime:             product.DeliveryTime,
		TypeID:                   int64(product.TypeID),
		StatusID:                 product.StatusID,
		IsDeprecated:             product.IsDeprecated,
		DeliveryStatusID:         derefID(product.DeliveryStatusID),
		TaxClassID:               derefID(product.TaxClassID),
		OrderUnitID:              derefID(product.OrderUnitID),
		ContentUnitID:            derefID(product.ContentUnitID),
		SupplierID:               derefID(product.SupplierID),
		ParentID:                 derefID(product.ParentID),
		OrderContentRatio:        product.OrderContentRatio,
		MinimumOrderQuantity:     product.MinimumOrderQuantity,
		RecommendedOrderQuantity: product.RecommendedOrderQuantity,
		CategoryIDs:              product.CategoryIDs,
		MediaIDs:                 product.MediaIDs,
		HasSpecialPrices:         len(product.SpecialPrices) > 0,
		VariantAttributeIDs:      product.VariantAttributeIDs,
		Created:                  product.Created.UTC(),
		Changed:                  product.Changed.UTC(),
		CreatorID:                product.CreatorID,
		ChangerID:                product.ChangerID,
	}

	for _, tr := range product.Translations {
		doc.Translations = append(doc.Translations, productTranslationDocument(tr))
	}
	for _, price := range product.Prices {
		doc.Prices = append(doc.Prices, productPriceDocument(price))
	}
	for _, special := range product.SpecialPrices {
		doc.SpecialPrices = append(doc.SpecialPrices, specialPriceDocument(special))
	}
	for _, addon := range product.Addons {
		addonDoc := addonDocument{AddonID: addon.AddonID}
		for _, price := range addon.Prices {
			addonDoc.Prices = append(addonDoc.Prices, addonPriceDocument(price))
		}
		doc.Addons = append(doc.Addons, addonDoc)
	}
	for _, attr := range product.Attributes {
		attrDoc := productAttributeDocument{
			AttributeID: attr.AttributeID,
			ValueID:     attr.Value.ID,
		}
		for _, tr := range attr.Value.Translations {
			attrDoc.Translations = append(attrDoc.Translations, attributeValueTranslationDocument(tr))
		}
		doc.Attributes = append(doc.Attributes, attrDoc)
	}
	return doc
}

func decodeProductDocument(doc productDocument) domain.Product {
	product := domain.Product{
		ID:                       doc.ID,
		Number:                   doc.Number,
		InternalItemNumber:       doc.InternalItemNumber,
		GlobalTradeItemNumber:    doc.GlobalTradeItemNumber,
		Manufacturer:             doc.Manufacturer,
		ManufacturerCountry:      doc.ManufacturerCountry,
		Cost:                     doc.Cost,
		PriceInfo:                doc.PriceInfo,
		AreGrossPrices:           doc.AreGrossPrices,
		SearchTerms:              doc.SearchTerms,
		DeliveryTime:             doc.DeliveryTime,
		TypeID:                   domain.ProductType(doc.TypeID),
		StatusID:                 doc.StatusID,
		IsDeprecated:             doc.IsDeprecated,
		DeliveryStatusID:         idPtr(doc.DeliveryStatusID),
		TaxClassID:               idPtr(doc.TaxClassID),
		OrderUnitID:              idPtr(doc.OrderUnitID),
		ContentUnitID:            idPtr(doc.ContentUnitID),
		SupplierID:               idPtr(doc.SupplierID),
		ParentID:                 idPtr(doc.ParentID),
		OrderContentRatio:        doc.OrderContentRatio,
		MinimumOrderQuantity:     doc.MinimumOrderQuantity,
		RecommendedOrderQuantity: doc.RecommendedOrderQuantity,
		CategoryIDs:              doc.CategoryIDs,
		MediaIDs:                 doc.MediaIDs,
		VariantAttributeIDs:      doc.VariantAttributeIDs,
		Created:                  doc.Created,
		Changed:                  doc.Changed,
		CreatorID:                doc.CreatorID,
		ChangerID:                doc.ChangerID,
	}

	for _, tr := range doc.Translations {
		product.Translations = append(product.Translations, domain.ProductTranslation(tr))
	}
	for _, price := range doc.Prices {
		product.Prices = append(product.Prices, domain.ProductPrice(price))
	}
	for _, special := range doc.SpecialPrices {
		product.SpecialPrices = append(product.SpecialPrices, domain.SpecialPrice(special))
	}
	for _, addonDoc := range doc.Addons {
		addon := domain.Addon{AddonID: addonDoc.AddonID}
		for _, price := range addonDoc.Prices {
			addon.Prices = append(addon.Prices, domain.AddonPrice(price))
		}
		product.Addons = append(product.Addons, addon)
	}
	for _, attrDoc := range doc.Attributes {
		attr := domain.ProductAttribute{
			AttributeID: attrDoc.AttributeID,
			Value:       domain.AttributeValue{ID: attrDoc.ValueID},
		}
		for _, tr := range attrDoc.Translations {
			attr.Value.Translations = append(attr.Value.Translations, domain.AttributeValueTranslation(tr))
		}
		product.Attributes = append(product.Attributes, attr)
	}
	return product
}

func decodeProductDocuments(docs []pfirestore.Document[productDocument]) []domain.Product {
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, decodeProductDocument(doc.Data))
	}
	return products
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

func idPtr(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
