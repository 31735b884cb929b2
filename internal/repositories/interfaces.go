package repositories

import (
	"context"

	domain "github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/platform/media"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Statuses() ReferenceRepository[domain.ProductStatus]
	Types() ReferenceRepository[domain.ProductKind]
	DeliveryStatuses() ReferenceRepository[domain.DeliveryStatus]
	TaxClasses() ReferenceRepository[domain.TaxClass]
	Units() ReferenceRepository[domain.Unit]
	Categories() ReferenceRepository[domain.Category]
	Attributes() ReferenceRepository[domain.Attribute]
	Suppliers() ReferenceRepository[domain.Supplier]
	Currencies() CurrencyRepository
	Media() MediaRepository
	AuditLogs() AuditLogRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductRepository persists the product aggregate. Children are resolved by
// parent-id queries, never stored inline.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, productID int64) error
	FindByID(ctx context.Context, productID int64) (domain.Product, error)
	FindByInternalItemNumber(ctx context.Context, number string) ([]domain.Product, error)
	FindChildren(ctx context.Context, parentID int64) ([]domain.Product, error)
	HasChildren(ctx context.Context, parentID int64) (bool, error)
	List(ctx context.Context, filter ProductListFilter, pager domain.Pagination) (domain.CursorPage[domain.Product], error)
	FindWithSpecialPrices(ctx context.Context) ([]domain.Product, error)
}

// ReferenceRepository is the shared lookup contract of the reference-data
// stores (statuses, types, tax classes, units, categories, attributes...).
type ReferenceRepository[T any] interface {
	Find(ctx context.Context, id int64) (T, error)
	FindAll(ctx context.Context) ([]T, error)
}

// CurrencyRepository additionally resolves currencies by ISO code.
type CurrencyRepository interface {
	ReferenceRepository[domain.Currency]
	FindByCode(ctx context.Context, code string) (domain.Currency, error)
}

// MediaRepository loads stored media records referenced by products.
type MediaRepository interface {
	Get(ctx context.Context, mediaID int64) (media.Object, error)
}

// AuditLogRepository appends immutable audit entries for catalog mutations.
type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	ListByTarget(ctx context.Context, targetRef string, pager domain.Pagination) (domain.CursorPage[domain.AuditLogEntry], error)
}

// Well-known counter ids.
const (
	// CounterProducts allocates product ids.
	CounterProducts = "products"
	// CounterItemNumbers allocates the numeric part of internal item numbers.
	CounterItemNumbers = "itemNumbers"
)

// CounterRepository issues monotonically increasing sequence values, used for
// product ids and internal item numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// HealthRepository aggregates dependency probes for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// ProductListFilter captures the supported product listing criteria. Nil
// pointer fields are not applied.
type ProductListFilter struct {
	StatusIDs          []int64
	TypeIDs            []int64
	SupplierID         *int64
	IsDeprecated       *bool
	ParentID           *int64
	WithoutParent      bool
	CategoryID         *int64
	IDs                []int64
	InternalItemNumber string
}

// IsZero reports whether no filter criteria are set.
func (f ProductListFilter) IsZero() bool {
	return len(f.StatusIDs) == 0 &&
		len(f.TypeIDs) == 0 &&
		f.SupplierID == nil &&
		f.IsDeprecated == nil &&
		f.ParentID == nil &&
		!f.WithoutParent &&
		f.CategoryID == nil &&
		len(f.IDs) == 0 &&
		f.InternalItemNumber == ""
}
