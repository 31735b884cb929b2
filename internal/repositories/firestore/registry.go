package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	domain "github.com/catalix/pim-api/internal/domain"
	pfirestore "github.com/catalix/pim-api/internal/platform/firestore"
	"github.com/catalix/pim-api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract.
type Registry struct {
	provider *pfirestore.Provider

	products         *ProductRepository
	statuses         *ReferenceRepository[referenceDocument, domain.ProductStatus]
	types            *ReferenceRepository[referenceDocument, domain.ProductKind]
	deliveryStatuses *ReferenceRepository[referenceDocument, domain.DeliveryStatus]
	taxClasses       *ReferenceRepository[referenceDocument, domain.TaxClass]
	units            *ReferenceRepository[referenceDocument, domain.Unit]
	categories       *ReferenceRepository[referenceDocument, domain.Category]
	attributes       *ReferenceRepository[attributeDocument, domain.Attribute]
	suppliers        *ReferenceRepository[supplierDocument, domain.Supplier]
	currencies       *CurrencyRepository
	media            *MediaRepository
	auditLogs        *AuditLogRepository
	counters         *CounterRepository
	health           repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry wires every Firestore repository against the shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry: firestore provider is required")
	}

	registry := &Registry{provider: provider}

	var err error
	if registry.products, err = NewProductRepository(provider); err != nil {
		return nil, err
	}
	if registry.statuses, err = NewStatusRepository(provider); err != nil {
		return nil, err
	}
	if registry.types, err = NewTypeRepository(provider); err != nil {
		return nil, err
	}
	if registry.deliveryStatuses, err = NewDeliveryStatusRepository(provider); err != nil {
		return nil, err
	}
	if registry.taxClasses, err = NewTaxClassRepository(provider); err != nil {
		return nil, err
	}
	if registry.units, err = NewUnitRepository(provider); err != nil {
		return nil, err
	}
	if registry.categories, err = NewCategoryRepository(provider); err != nil {
		return nil, err
	}
	if registry.attributes, err = NewAttributeRepository(provider); err != nil {
		return nil, err
	}
	if registry.suppliers, err = NewSupplierRepository(provider); err != nil {
		return nil, err
	}
	if registry.currencies, err = NewCurrencyRepository(provider); err != nil {
		return nil, err
	}
	if registry.media, err = NewMediaRepository(provider); err != nil {
		return nil, err
	}
	if registry.auditLogs, err = NewAuditLogRepository(provider); err != nil {
		return nil, err
	}
	if registry.counters, err = NewCounterRepository(provider); err != nil {
		return nil, err
	}

	registry.health, err = repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				_, err := provider.Client(ctx)
				return err
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return registry, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *Registry) Products() repositories.ProductRepository { return r.products }

func (r *Registry) Statuses() repositories.ReferenceRepository[domain.ProductStatus] {
	return r.statuses
}

func (r *Registry) Types() repositories.ReferenceRepository[domain.ProductKind] { return r.types }

func (r *Registry) DeliveryStatuses() repositories.ReferenceRepository[domain.DeliveryStatus] {
	return r.deliveryStatuses
}

func (r *Registry) TaxClasses() repositories.ReferenceRepository[domain.TaxClass] {
	return r.taxClasses
}

func (r *Registry) Units() repositories.ReferenceRepository[domain.Unit] { return r.units }

func (r *Registry) Categories() repositories.ReferenceRepository[domain.Category] {
	return r.categories
}

func (r *Registry) Attributes() repositories.ReferenceRepository[domain.Attribute] {
	return r.attributes
}

func (r *Registry) Suppliers() repositories.ReferenceRepository[domain.Supplier] {
	return r.suppliers
}

func (r *Registry) Currencies() repositories.CurrencyRepository { return r.currencies }

func (r *Registry) Media() repositories.MediaRepository { return r.media }

func (r *Registry) AuditLogs() repositories.AuditLogRepository { return r.auditLogs }

func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

func (r *Registry) Health() repositories.HealthRepository { return r.health }

// RunInTx executes fn inside one Firestore transaction. Repository calls made
// with the callback context join the transaction, so a returned error rolls
// back every write issued within fn.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry not initialised")
	}
	if fn == nil {
		return errors.New("registry: transaction function is required")
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, _ *firestore.Transaction) error {
		return fn(ctx)
	})
}
