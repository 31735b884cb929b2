package firestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/catalix/pim-api/internal/domain"
	pfirestore "github.com/catalix/pim-api/internal/platform/firestore"
)

// Reference-data collection names.
const (
	statusesCollection         = "productStatuses"
	typesCollection            = "productTypes"
	deliveryStatusesCollection = "deliveryStatuses"
	taxClassesCollection       = "taxClasses"
	unitsCollection            = "units"
	categoriesCollection       = "categories"
	attributesCollection       = "attributes"
	suppliersCollection        = "suppliers"
	currenciesCollection       = "currencies"
)

// ReferenceRepository is the shared Firestore implementation behind the lookup
// stores. Documents are keyed by their numeric id.
type ReferenceRepository[D, T any] struct {
	base   *pfirestore.BaseRepository[D]
	decode func(D) T
}

func newReferenceRepository[D, T any](provider *pfirestore.Provider, collection string, decode func(D) T) (*ReferenceRepository[D, T], error) {
	if provider == nil {
		return nil, fmt.Errorf("%s repository: firestore provider is required", collection)
	}
	return &ReferenceRepository[D, T]{
		base:   pfirestore.NewBaseRepository[D](provider, collection, nil, nil),
		decode: decode,
	}, nil
}

// Find fetches a single lookup entry by id.
func (r *ReferenceRepository[D, T]) Find(ctx context.Context, id int64) (T, error) {
	var zero T
	if r == nil || r.base == nil {
		return zero, errors.New("reference repository not initialised")
	}
	if id <= 0 {
		return zero, pfirestore.NotFoundError("reference.find", fmt.Errorf("invalid id %d", id))
	}
	doc, err := r.base.Get(ctx, strconv.FormatInt(id, 10))
	if err != nil {
		return zero, err
	}
	return r.decode(doc.Data), nil
}

// FindAll returns every lookup entry ordered by id.
func (r *ReferenceRepository[D, T]) FindAll(ctx context.Context) ([]T, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("reference repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("id", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	entries := make([]T, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, r.decode(doc.Data))
	}
	return entries, nil
}

type referenceDocument struct {
	ID    int64             `firestore:"id"`
	Key   string            `firestore:"key,omitempty"`
	Rate  float64           `firestore:"rate,omitempty"`
	Names map[string]string `firestore:"names,omitempty"`
}

// NewStatusRepository constructs the product status lookup store.
func NewStatusRepository(provider *pfirestore.Provider) (*ReferenceRepository[referenceDocument, domain.ProductStatus], error) {
	return newReferenceRepository(provider, statusesCollection, func(doc referenceDocument) domain.ProductStatus {
		return domain.ProductStatus{ID: doc.ID, Names: doc.Names}
	})
}

// NewTypeRepository constructs the product type lookup store.
func NewTypeRepository(provider *pfirestore.Provider) (*ReferenceRepository[referenceDocument, domain.ProductKind], error) {
	return newReferenceRepository(provider, typesCollection, func(doc referenceDocument) domain.ProductKind {
		return domain.ProductKind{ID: domain.ProductType(doc.ID), Names: doc.Names}
	})
}

// NewDeliveryStatusRepository constructs the delivery status lookup store.
func NewDeliveryStatusRepository(provider *pfirestore.Provider) (*ReferenceRepository[referenceDocument, domain.DeliveryStatus], error) {
	return newReferenceRepository(provider, deliveryStatusesCollection, func(doc referenceDocument) domain.DeliveryStatus {
		return domain.DeliveryStatus{ID: doc.ID, Names: doc.Names}
	})
}

// NewTaxClassRepository constructs the tax class lookup store.
func NewTaxClassRepository(provider *pfirestore.Provider) (*ReferenceRepository[referenceDocument, domain.TaxClass], error) {
	return newReferenceRepository(provider, taxClassesCollection, func(doc referenceDocument) domain.TaxClass {
		return domain.TaxClass{ID: doc.ID, Rate: doc.Rate, Names: doc.Names}
	})
}

// NewUnitRepository constructs the unit lookup store.
func NewUnitRepository(provider *pfirestore.Provider) (*ReferenceRepository[referenceDocument, domain.Unit], error) {
	return newReferenceRepository(provider, unitsCollection, func(doc referenceDocument) domain.Unit {
		return domain.Unit{ID: doc.ID, Names: doc.Names}
	})
}

// NewCategoryRepository constructs the category lookup store.
func NewCategoryRepository(provider *pfirestore.Provider) (*ReferenceRepository[referenceDocument, domain.Category], error) {
	return newReferenceRepository(provider, categoriesCollection, func(doc referenceDocument) domain.Category {
		return domain.Category{ID: doc.ID, Key: doc.Key, Names: doc.Names}
	})
}

type attributeDocument struct {
	ID     int64             `firestore:"id"`
	Key    string            `firestore:"key"`
	TypeID int64             `firestore:"typeId"`
	Names  map[string]string `firestore:"names,omitempty"`
}

// NewAttributeRepository constructs the attribute lookup store.
func NewAttributeRepository(provider *pfirestore.Provider) (*ReferenceRepository[attributeDocument, domain.Attribute], error) {
	return newReferenceRepository(provider, attributesCollection, func(doc attributeDocument) domain.Attribute {
		return domain.Attribute{
			ID:     doc.ID,
			Key:    doc.Key,
			TypeID: domain.AttributeType(doc.TypeID),
			Names:  doc.Names,
		}
	})
}

type supplierDocument struct {
	ID   int64  `firestore:"id"`
	Name string `firestore:"name"`
}

// NewSupplierRepository constructs the supplier lookup store.
func NewSupplierRepository(provider *pfirestore.Provider) (*ReferenceRepository[supplierDocument, domain.Supplier], error) {
	return newReferenceRepository(provider, suppliersCollection, func(doc supplierDocument) domain.Supplier {
		return domain.Supplier{ID: doc.ID, Name: doc.Name}
	})
}

type currencyDocument struct {
	ID     int64             `firestore:"id"`
	Code   string            `firestore:"code"`
	Symbol string            `firestore:"symbol,omitempty"`
	Names  map[string]string `firestore:"names,omitempty"`
}

func decodeCurrencyDocument(doc currencyDocument) domain.Currency {
	return domain.Currency{ID: doc.ID, Code: doc.Code, Symbol: doc.Symbol, Names: doc.Names}
}

// CurrencyRepository resolves currencies by id or ISO code.
type CurrencyRepository struct {
	*ReferenceRepository[currencyDocument, domain.Currency]
}

// NewCurrencyRepository constructs the currency lookup store.
func NewCurrencyRepository(provider *pfirestore.Provider) (*CurrencyRepository, error) {
	ref, err := newReferenceRepository(provider, currenciesCollection, decodeCurrencyDocument)
	if err != nil {
		return nil, err
	}
	return &CurrencyRepository{ReferenceRepository: ref}, nil
}

// FindByCode resolves a currency by its ISO code, case insensitive.
func (r *CurrencyRepository) FindByCode(ctx context.Context, code string) (domain.Currency, error) {
	if r == nil || r.ReferenceRepository == nil {
		return domain.Currency{}, errors.New("currency repository not initialised")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Currency{}, pfirestore.NotFoundError("currencies.find_by_code", errors.New("currency code is required"))
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("code", "==", code).Limit(1)
	})
	if err != nil {
		return domain.Currency{}, err
	}
	if len(docs) == 0 {
		return domain.Currency{}, pfirestore.NotFoundError("currencies.find_by_code", fmt.Errorf("currency %s not found", code))
	}
	return decodeCurrencyDocument(docs[0].Data), nil
}
