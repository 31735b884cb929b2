package services

import (
	"context"
	"time"

	domain "github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/repositories"
)

// ReferenceInput carries a reference to a lookup entity in a save payload.
type ReferenceInput struct {
	ID int64 `json:"id"`
}

// PriceInput is one price entry of a save payload. An explicit id matches an
// existing price; supplying one for a new price is rejected.
type PriceInput struct {
	ID              *int64  `json:"id,omitempty"`
	CurrencyCode    string  `json:"currencyCode"`
	Price           float64 `json:"price"`
	MinimumQuantity float64 `json:"minimumQuantity"`
	PriceInfo       string  `json:"priceInfo,omitempty"`
}

// SpecialPriceInput is one special price entry, matched by currency code.
type SpecialPriceInput struct {
	CurrencyCode string     `json:"currencyCode"`
	Price        float64    `json:"price"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
}

// AttributeInput assigns a value to an attribute. An empty trimmed value
// removes the assignment.
type AttributeInput struct {
	AttributeID int64  `json:"attributeId"`
	Value       string `json:"value"`
}

// AddonInput links an addon product with its addon-specific prices.
type AddonInput struct {
	AddonID int64             `json:"addonId"`
	Prices  []AddonPriceInput `json:"prices,omitempty"`
}

// AddonPriceInput is one addon price entry.
type AddonPriceInput struct {
	CurrencyCode string  `json:"currencyCode"`
	Price        float64 `json:"price"`
}

// ProductData is the typed save payload. Optional scalar fields distinguish
// absent (keep), null (clear) and value (set); nil slices keep the existing
// collection, non-nil slices are reconciled against it.
type ProductData struct {
	Number                   domain.Optional[string]  `json:"number"`
	GlobalTradeItemNumber    domain.Optional[string]  `json:"globalTradeItemNumber"`
	Name                     domain.Optional[string]  `json:"name"`
	ShortDescription         domain.Optional[string]  `json:"shortDescription"`
	LongDescription          domain.Optional[string]  `json:"longDescription"`
	Manufacturer             domain.Optional[string]  `json:"manufacturer"`
	ManufacturerCountry      domain.Optional[string]  `json:"manufacturerCountry"`
	Cost                     domain.Optional[float64] `json:"cost"`
	PriceInfo                domain.Optional[string]  `json:"priceInfo"`
	AreGrossPrices           domain.Optional[bool]    `json:"areGrossPrices"`
	SearchTerms              domain.Optional[string]  `json:"searchTerms"`
	DeliveryTime             domain.Optional[int]     `json:"deliveryTime"`
	OrderContentRatio        domain.Optional[float64] `json:"orderContentRatio"`
	MinimumOrderQuantity     domain.Optional[float64] `json:"minimumOrderQuantity"`
	RecommendedOrderQuantity domain.Optional[float64] `json:"recommendedOrderQuantity"`
	IsDeprecated             domain.Optional[bool]    `json:"isDeprecated"`

	Type           *ReferenceInput `json:"type,omitempty"`
	Status         *ReferenceInput `json:"status,omitempty"`
	Parent         *ReferenceInput `json:"parent,omitempty"`
	OrderUnit      *ReferenceInput `json:"orderUnit,omitempty"`
	ContentUnit    *ReferenceInput `json:"contentUnit,omitempty"`
	Supplier       *ReferenceInput `json:"supplier,omitempty"`
	TaxClass       *ReferenceInput `json:"taxClass,omitempty"`
	DeliveryStatus *ReferenceInput `json:"deliveryStatus,omitempty"`

	Categories    *[]int64             `json:"categories,omitempty"`
	Media         *[]int64             `json:"media,omitempty"`
	Prices        *[]PriceInput        `json:"prices,omitempty"`
	SpecialPrices *[]SpecialPriceInput `json:"specialPrices,omitempty"`
	Addons        *[]AddonInput        `json:"addons,omitempty"`
	Attributes    []AttributeInput     `json:"attributes,omitempty"`
}

// SaveOptions control a product save.
type SaveOptions struct {
	// ID selects the product to update; nil creates a new product.
	ID *int64
	// Locale receives translated fields of the payload.
	Locale string
	// UserID is the acting backend user, recorded as creator/changer.
	UserID int64
	// SkipChanged keeps the changed/changer audit fields on updates.
	SkipChanged bool
	// SupplierID scopes the generated internal item number on create.
	SupplierID *int64
	// Patch keeps collections untouched unless the payload carries them.
	Patch bool
}

// ProductView pairs a product with its resolved media references.
type ProductView struct {
	Product domain.Product
	Media   []domain.MediaView
}

// VariantPriceInput is one variant price entry, keyed by currency.
type VariantPriceInput struct {
	CurrencyCode string  `json:"currencyCode"`
	Price        float64 `json:"price"`
}

// VariantData is the variant create/update payload.
type VariantData struct {
	Name       string              `json:"name"`
	Number     string              `json:"number"`
	Attributes []AttributeInput    `json:"attributes"`
	Prices     []VariantPriceInput `json:"prices,omitempty"`
}

// VariantAttributeView is a localized summary of a variant-defining attribute.
type VariantAttributeView struct {
	ID   int64  `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// ProductService orchestrates create, update, partial update, delete and
// listing of products.
type ProductService interface {
	Save(ctx context.Context, data ProductData, opts SaveOptions) (domain.Product, error)
	PartialUpdate(ctx context.Context, data ProductData, locale string, userID int64, productID int64) (domain.Product, error)
	Get(ctx context.Context, productID int64, locale string) (ProductView, error)
	List(ctx context.Context, filter repositories.ProductListFilter, pager domain.Pagination) (domain.CursorPage[domain.Product], error)
	Delete(ctx context.Context, productIDs []int64, userID int64) error
	FindCurrentOffered(ctx context.Context) ([]domain.Product, error)
}

// VariantService manages variant products beneath a WithVariants parent.
type VariantService interface {
	CreateVariant(ctx context.Context, parentID int64, data VariantData, locale string, userID int64) (domain.Product, error)
	UpdateVariant(ctx context.Context, variantID int64, data VariantData, locale string, userID int64) (domain.Product, error)
	DeleteVariant(ctx context.Context, variantID int64) error
	ListVariants(ctx context.Context, parentID int64, locale string, pager domain.Pagination) (domain.CursorPage[domain.Product], error)
}

// VariantAttributeService manages the variant-defining attribute set of a
// WithVariants product.
type VariantAttributeService interface {
	CreateRelation(ctx context.Context, productID int64, attributeID int64) (domain.Product, error)
	RemoveRelation(ctx context.Context, productID int64, attributeID int64) (domain.Product, error)
	List(ctx context.Context, productID int64, locale string) ([]VariantAttributeView, error)
}

// PriceService resolves price entries for products and addons.
type PriceService interface {
	NewProductPriceForCurrency(ctx context.Context, product domain.Product, price float64, minimumQuantity float64, currencyCode string) (domain.ProductPrice, error)
	BulkPriceForCurrency(product domain.Product, quantity float64, currencyCode string) *domain.ProductPrice
	BasePriceForCurrency(product domain.Product, currencyCode string) *domain.ProductPrice
	SpecialPriceForCurrency(product domain.Product, currencyCode string) *domain.SpecialPrice
	AddonPriceForCurrency(addon domain.Addon, currencyCode string) *domain.AddonPrice
}

// AttributeService manages attribute values, their translations and the
// product attribute linkage.
type AttributeService interface {
	CreateProductAttribute(ctx context.Context, attributeID int64, value string, locale string) (domain.ProductAttribute, error)
	SetOrCreateTranslation(value domain.AttributeValue, text string, locale string) domain.AttributeValue
	RemoveTranslation(value domain.AttributeValue, locale string) domain.AttributeValue
	RemoveAllTranslations(value domain.AttributeValue) domain.AttributeValue
	ReconcileAttributes(ctx context.Context, existing []domain.ProductAttribute, inputs []AttributeInput, locale string) (AttributeDiff, error)
}

// AttributeDiff is the reconciliation result for a product attribute set,
// computed in full before it is applied.
type AttributeDiff struct {
	Added   []domain.ProductAttribute
	Updated []domain.ProductAttribute
	Removed []int64
}

// IsZero reports whether the diff carries no changes.
func (d AttributeDiff) IsZero() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// Apply folds the diff into the attribute list and returns the new list.
func (d AttributeDiff) Apply(existing []domain.ProductAttribute) []domain.ProductAttribute {
	removed := make(map[int64]struct{}, len(d.Removed))
	for _, id := range d.Removed {
		removed[id] = struct{}{}
	}
	updated := make(map[int64]domain.ProductAttribute, len(d.Updated))
	for _, attr := range d.Updated {
		updated[attr.AttributeID] = attr
	}

	result := make([]domain.ProductAttribute, 0, len(existing)+len(d.Added))
	for _, attr := range existing {
		if _, gone := removed[attr.AttributeID]; gone {
			continue
		}
		if next, ok := updated[attr.AttributeID]; ok {
			result = append(result, next)
			continue
		}
		result = append(result, attr)
	}
	return append(result, d.Added...)
}

// AuditLogService records catalog mutations for admin review.
type AuditLogService interface {
	Record(ctx context.Context, entry domain.AuditLogEntry) error
	ListByTarget(ctx context.Context, targetRef string, pager domain.Pagination) (domain.CursorPage[domain.AuditLogEntry], error)
}

// EventPublisher publishes product lifecycle events after commit. Failures
// are logged, never surfaced.
type EventPublisher interface {
	PublishProductCreated(ctx context.Context, product domain.Product, actorID int64)
	PublishProductUpdated(ctx context.Context, product domain.Product, actorID int64)
	PublishProductDeleted(ctx context.Context, productID int64, actorID int64)
}

// RouteManager maintains storefront routes for product translations. Invoked
// only for translations that already carry a persisted route id.
type RouteManager interface {
	Create(ctx context.Context, translation domain.ProductTranslation, path string) (int64, error)
	Update(ctx context.Context, translation domain.ProductTranslation, path string) error
}

// MediaResolver decorates media references with accessible URLs at read time.
type MediaResolver interface {
	GetByID(ctx context.Context, mediaID int64, locale string) (domain.MediaView, error)
}

// SystemService reports dependency health for the operational endpoints.
type SystemService interface {
	Health(ctx context.Context) (domain.SystemHealthReport, error)
}
