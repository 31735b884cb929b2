package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	domain "github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/platform/config"
	"github.com/catalix/pim-api/internal/repositories"
	"github.com/catalix/pim-api/internal/repositories/refcache"
	"github.com/catalix/pim-api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
// Concrete implementations are assembled via dependency injection in
// NewContainer.
type Services struct {
	Products          services.ProductService
	Variants          services.VariantService
	VariantAttributes services.VariantAttributeService
	Attributes        services.AttributeService
	Prices            services.PriceService
	Audit             services.AuditLogService
	Events            services.EventPublisher
	System            services.SystemService
}

// Extras carries runtime collaborators that are not repositories: the media
// resolver, the event sink and build metadata. Every field is optional.
type Extras struct {
	Media  services.MediaResolver
	Events services.ProductEventSink
	Routes services.RouteManager
	Logger *zap.Logger
	Build  services.BuildInfo
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring supplies
// the Firestore registry; tests can provide in-memory implementations.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, extras Extras) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, cfg, reg, extras)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients and caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(ctx context.Context, cfg config.Config, reg repositories.Registry, extras Extras) (Services, error) {
	var svc Services

	logger := extras.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cacheTTL := cfg.Catalog.ReferenceCacheTTL

	auditSvc, err := services.NewAuditLogService(services.AuditLogServiceDeps{
		Repository: reg.AuditLogs(),
		Clock:      time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build audit log service: %w", err)
	}
	svc.Audit = auditSvc

	currencies, err := refcache.NewCachedCurrencies(reg.Currencies(), cacheTTL)
	if err != nil {
		return Services{}, fmt.Errorf("build currency cache: %w", err)
	}
	priceSvc, err := services.NewPriceService(services.PriceServiceDeps{
		Currencies:      currencies,
		DefaultCurrency: cfg.Catalog.DefaultCurrency,
		Clock:           time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build price service: %w", err)
	}
	svc.Prices = priceSvc

	attributes, err := refcache.NewCachedReference[domain.Attribute]("attributes", reg.Attributes(), cacheTTL)
	if err != nil {
		return Services{}, fmt.Errorf("build attribute cache: %w", err)
	}
	attributeSvc, err := services.NewAttributeService(services.AttributeServiceDeps{
		Attributes: attributes,
		Clock:      time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build attribute service: %w", err)
	}
	svc.Attributes = attributeSvc

	if extras.Events != nil {
		eventSvc, err := services.NewProductEventPublisher(services.ProductEventPublisherDeps{
			Sink:   extras.Events,
			Logger: logger.Named("events"),
			Clock:  time.Now,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build event publisher: %w", err)
		}
		svc.Events = eventSvc
	}

	statuses, err := refcache.NewCachedReference[domain.ProductStatus]("statuses", reg.Statuses(), cacheTTL)
	if err != nil {
		return Services{}, fmt.Errorf("build status cache: %w", err)
	}
	types, err := refcache.NewCachedReference[domain.ProductKind]("types", reg.Types(), cacheTTL)
	if err != nil {
		return Services{}, fmt.Errorf("build type cache: %w", err)
	}
	deliveryStatuses, err := refcache.NewCachedReference[domain.DeliveryStatus]("deliveryStatuses", reg.DeliveryStatuses(), cacheTTL)
	if err != nil {
		return Services{}, fmt.Errorf("build delivery status cache: %w", err)
	}
	taxClasses, err := refcache.NewCachedReference[domain.TaxClass]("taxClasses", reg.TaxClasses(), cacheTTL)
	if err != nil {
		return Services{}, fmt.Errorf("build tax class cache: %w", err)
	}
	units, err := refcache.NewCachedReference[domain.Unit]("units", reg.Units(), cacheTTL)
	if err != nil {
		return Services{}, fmt.Errorf("build unit cache: %w", err)
	}
	categories, err := refcache.NewCachedReference[domain.Category]("categories", reg.Categories(), cacheTTL)
	if err != nil {
		return Services{}, fmt.Errorf("build category cache: %w", err)
	}
	suppliers, err := refcache.NewCachedReference[domain.Supplier]("suppliers", reg.Suppliers(), cacheTTL)
	if err != nil {
		return Services{}, fmt.Errorf("build supplier cache: %w", err)
	}

	productSvc, err := services.NewProductService(services.ProductServiceDeps{
		Products:         reg.Products(),
		Statuses:         statuses,
		Types:            types,
		DeliveryStatuses: deliveryStatuses,
		TaxClasses:       taxClasses,
		Units:            units,
		Categories:       categories,
		Suppliers:        suppliers,
		Counters:         reg.Counters(),
		UnitOfWork:       reg,

		Attributes: svc.Attributes,
		Prices:     svc.Prices,
		Audit:      svc.Audit,
		Events:     svc.Events,
		Media:      extras.Media,
		Routes:     extras.Routes,

		DefaultCurrency: cfg.Catalog.DefaultCurrency,
		Logger:          logger.Named("products"),
		Clock:           time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build product service: %w", err)
	}
	svc.Products = productSvc

	variantSvc, err := services.NewVariantService(services.VariantServiceDeps{
		Products:   reg.Products(),
		Counters:   reg.Counters(),
		UnitOfWork: reg,
		Attributes: svc.Attributes,
		Prices:     svc.Prices,
		Clock:      time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build variant service: %w", err)
	}
	svc.Variants = variantSvc

	variantAttrSvc, err := services.NewVariantAttributeService(services.VariantAttributeServiceDeps{
		Products:   reg.Products(),
		Attributes: attributes,
		Clock:      time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build variant attribute service: %w", err)
	}
	svc.VariantAttributes = variantAttrSvc

	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: reg.Health(),
		Clock:            time.Now,
		Build:            extras.Build,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}
