package domain

import (
	"time"
)

// ProductType is the closed set of product kinds carried on every product row.
type ProductType int64

const (
	// ProductTypeSimple is a standalone sellable product.
	ProductTypeSimple ProductType = 1
	// ProductTypeWithVariants is a parent product whose concrete instances are variants.
	ProductTypeWithVariants ProductType = 2
	// ProductTypeAddon is a product sold only as an addition to another product.
	ProductTypeAddon ProductType = 3
	// ProductTypeSet is a bundle composed of other products.
	ProductTypeSet ProductType = 4
	// ProductTypeVariant is a concrete instance of a ProductTypeWithVariants parent.
	ProductTypeVariant ProductType = 5
)

// CanDeclareVariantAttributes reports whether products of this type may carry
// a variant-defining attribute set.
func (t ProductType) CanDeclareVariantAttributes() bool {
	return t == ProductTypeWithVariants
}

// Product status ids. Deprecation is a separate flag, not a status.
const (
	ProductStatusActive   int64 = 1
	ProductStatusInactive int64 = 2
	ProductStatusImported int64 = 3
)

// Well-known reference ids applied as defaults when a save omits them.
const (
	DefaultOrderUnitID      int64 = 1 // piece
	DefaultTaxClassID       int64 = 1 // standard rate
	DefaultDeliveryStatusID int64 = 1 // available
)

// ProductTranslation stores per-locale display fields of a product.
type ProductTranslation struct {
	Locale           string
	Name             string
	ShortDescription string
	LongDescription  string
	RouteID          *int64
}

// ProductPrice is a quantity-tiered price in one currency.
// MinimumQuantity 0 is the base price for its currency.
type ProductPrice struct {
	ID              int64
	CurrencyCode    string
	Price           float64
	MinimumQuantity float64
	PriceInfo       string
}

// SpecialPrice is a time-bounded promotional price for one currency.
// Open bounds mean "since forever" / "until forever".
type SpecialPrice struct {
	CurrencyCode string
	Price        float64
	StartDate    *time.Time
	EndDate      *time.Time
}

// IsValidAt reports whether the special price window covers the given instant.
func (p SpecialPrice) IsValidAt(now time.Time) bool {
	if p.StartDate != nil && now.Before(*p.StartDate) {
		return false
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return false
	}
	return true
}

// AddonPrice is the addon-specific price of an addon relation in one currency.
type AddonPrice struct {
	CurrencyCode string
	Price        float64
}

// Addon links a product to another product sold as its addition.
type Addon struct {
	AddonID int64
	Prices  []AddonPrice
}

// AttributeValueTranslation stores the localized string of an attribute value.
type AttributeValueTranslation struct {
	Locale string
	Value  string
}

// AttributeValue is one concrete value instance of an attribute, translatable
// per locale.
type AttributeValue struct {
	ID           string
	Translations []AttributeValueTranslation
}

// Value returns the translation for the locale, falling back to the first one.
func (v AttributeValue) Value(locale string) string {
	for _, tr := range v.Translations {
		if tr.Locale == locale {
			return tr.Value
		}
	}
	if len(v.Translations) > 0 {
		return v.Translations[0].Value
	}
	return ""
}

// ProductAttribute binds a concrete attribute value to a product.
type ProductAttribute struct {
	AttributeID int64
	Value       AttributeValue
}

// Product is the catalog aggregate managed by the PIM. Parent is an id
// reference; children are resolved through repository queries.
type Product struct {
	ID                    int64
	Number                string
	InternalItemNumber    string
	GlobalTradeItemNumber string
	Manufacturer          string
	ManufacturerCountry   string
	Cost                  float64
	PriceInfo             string
	AreGrossPrices        bool
	SearchTerms           string
	DeliveryTime          int

	TypeID           ProductType
	StatusID         int64
	IsDeprecated     bool
	DeliveryStatusID *int64
	TaxClassID       *int64
	OrderUnitID      *int64
	ContentUnitID    *int64
	SupplierID       *int64
	ParentID         *int64

	OrderContentRatio        *float64
	MinimumOrderQuantity     *float64
	RecommendedOrderQuantity *float64

	Translations        []ProductTranslation
	CategoryIDs         []int64
	MediaIDs            []int64
	Prices              []ProductPrice
	SpecialPrices       []SpecialPrice
	Addons              []Addon
	VariantAttributeIDs []int64
	Attributes          []ProductAttribute

	Created   time.Time
	Changed   time.Time
	CreatorID int64
	ChangerID int64
}

// Translation returns the translation for the locale and whether it exists.
func (p Product) Translation(locale string) (ProductTranslation, bool) {
	for _, tr := range p.Translations {
		if tr.Locale == locale {
			return tr, true
		}
	}
	return ProductTranslation{}, false
}

// Name returns the localized product name, empty when no translation exists.
func (p Product) Name(locale string) string {
	if tr, ok := p.Translation(locale); ok {
		return tr.Name
	}
	return ""
}

// HasVariantAttribute reports whether the attribute id is part of the
// variant-defining set.
func (p Product) HasVariantAttribute(attributeID int64) bool {
	for _, id := range p.VariantAttributeIDs {
		if id == attributeID {
			return true
		}
	}
	return false
}

// AttributeByID returns the product attribute bound to the attribute id.
func (p Product) AttributeByID(attributeID int64) (ProductAttribute, bool) {
	for _, pa := range p.Attributes {
		if pa.AttributeID == attributeID {
			return pa, true
		}
	}
	return ProductAttribute{}, false
}

// Reference entities resolved through lookup repositories --------------------

// ProductStatus is a lifecycle status lookup entry.
type ProductStatus struct {
	ID    int64
	Names map[string]string
}

// ProductKind is a product type lookup entry.
type ProductKind struct {
	ID    ProductType
	Names map[string]string
}

// DeliveryStatus is a delivery availability lookup entry.
type DeliveryStatus struct {
	ID    int64
	Names map[string]string
}

// TaxClass is a tax rate class lookup entry.
type TaxClass struct {
	ID    int64
	Rate  float64
	Names map[string]string
}

// Unit is an order/content unit lookup entry.
type Unit struct {
	ID    int64
	Names map[string]string
}

// Currency is a currency lookup entry keyed by its ISO code.
type Currency struct {
	ID     int64
	Code   string
	Symbol string
	Names  map[string]string
}

// Category is a catalog category lookup entry.
type Category struct {
	ID    int64
	Key   string
	Names map[string]string
}

// AttributeType distinguishes how attribute values are captured.
type AttributeType int64

const (
	// AttributeTypeText is a free-text attribute.
	AttributeTypeText AttributeType = 1
)

// Attribute is a named, typed catalog dimension.
type Attribute struct {
	ID     int64
	Key    string
	TypeID AttributeType
	Names  map[string]string
}

// LocalizedName returns the attribute name for the locale, falling back to
// the key.
func (a Attribute) LocalizedName(locale string) string {
	if name, ok := a.Names[locale]; ok && name != "" {
		return name
	}
	return a.Key
}

// Supplier is a product supplier lookup entry.
type Supplier struct {
	ID   int64
	Name string
}

// Account is a backend user referenced as creator/changer of products.
type Account struct {
	ID    int64
	Name  string
	Email string
}
