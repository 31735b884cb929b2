package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	domain "github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/platform/textutil"
	"github.com/catalix/pim-api/internal/repositories"
)

// deleteBatchSize bounds how many products one delete transaction touches.
const deleteBatchSize = 20

// Entity names used in dependency-not-found errors.
const (
	entityStatus         = "Status"
	entityType           = "Type"
	entityParent         = "Product"
	entityOrderUnit      = "OrderUnit"
	entityContentUnit    = "ContentUnit"
	entitySupplier       = "Supplier"
	entityTaxClass       = "TaxClass"
	entityDeliveryStatus = "DeliveryStatus"
	entityCategory       = "Category"
	entityAddon          = "Addon"
)

// ProductServiceDeps bundles collaborators required to construct a product
// service.
type ProductServiceDeps struct {
	Products         repositories.ProductRepository
	Statuses         repositories.ReferenceRepository[domain.ProductStatus]
	Types            repositories.ReferenceRepository[domain.ProductKind]
	DeliveryStatuses repositories.ReferenceRepository[domain.DeliveryStatus]
	TaxClasses       repositories.ReferenceRepository[domain.TaxClass]
	Units            repositories.ReferenceRepository[domain.Unit]
	Categories       repositories.ReferenceRepository[domain.Category]
	Suppliers        repositories.ReferenceRepository[domain.Supplier]
	Counters         repositories.CounterRepository
	UnitOfWork       repositories.UnitOfWork

	Attributes AttributeService
	Prices     PriceService
	Audit      AuditLogService
	Events     EventPublisher
	Media      MediaResolver
	Routes     RouteManager

	Sanitizer       *bluemonday.Policy
	DefaultCurrency string
	Logger          *zap.Logger
	Clock           func() time.Time
}

type productService struct {
	products         repositories.ProductRepository
	statuses         repositories.ReferenceRepository[domain.ProductStatus]
	types            repositories.ReferenceRepository[domain.ProductKind]
	deliveryStatuses repositories.ReferenceRepository[domain.DeliveryStatus]
	taxClasses       repositories.ReferenceRepository[domain.TaxClass]
	units            repositories.ReferenceRepository[domain.Unit]
	categories       repositories.ReferenceRepository[domain.Category]
	suppliers        repositories.ReferenceRepository[domain.Supplier]
	counters         repositories.CounterRepository
	uow              repositories.UnitOfWork

	attributes AttributeService
	prices     PriceService
	audit      AuditLogService
	events     EventPublisher
	media      MediaResolver
	routes     RouteManager

	sanitizer       *bluemonday.Policy
	defaultCurrency string
	logger          *zap.Logger
	clock           func() time.Time
}

// NewProductService assembles the product orchestration service.
func NewProductService(deps ProductServiceDeps) (ProductService, error) {
	switch {
	case deps.Products == nil:
		return nil, errors.New("product service: product repository is required")
	case deps.Statuses == nil:
		return nil, errors.New("product service: status repository is required")
	case deps.Types == nil:
		return nil, errors.New("product service: type repository is required")
	case deps.DeliveryStatuses == nil:
		return nil, errors.New("product service: delivery status repository is required")
	case deps.TaxClasses == nil:
		return nil, errors.New("product service: tax class repository is required")
	case deps.Units == nil:
		return nil, errors.New("product service: unit repository is required")
	case deps.Categories == nil:
		return nil, errors.New("product service: category repository is required")
	case deps.Suppliers == nil:
		return nil, errors.New("product service: supplier repository is required")
	case deps.Counters == nil:
		return nil, errors.New("product service: counter repository is required")
	case deps.UnitOfWork == nil:
		return nil, errors.New("product service: unit of work is required")
	case deps.Attributes == nil:
		return nil, errors.New("product service: attribute service is required")
	case deps.Prices == nil:
		return nil, errors.New("product service: price service is required")
	}

	defaultCurrency := strings.ToUpper(strings.TrimSpace(deps.DefaultCurrency))
	if defaultCurrency == "" {
		return nil, errors.New("product service: default currency is required")
	}

	sanitizer := deps.Sanitizer
	if sanitizer == nil {
		sanitizer = bluemonday.UGCPolicy()
	}
	routes := deps.Routes
	if routes == nil {
		routes = NoopRouteManager{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &productService{
		products:         deps.Products,
		statuses:         deps.Statuses,
		types:            deps.Types,
		deliveryStatuses: deps.DeliveryStatuses,
		taxClasses:       deps.TaxClasses,
		units:            deps.Units,
		categories:       deps.Categories,
		suppliers:        deps.Suppliers,
		counters:         deps.Counters,
		uow:              deps.UnitOfWork,
		attributes:       deps.Attributes,
		prices:           deps.Prices,
		audit:            deps.Audit,
		events:           deps.Events,
		media:            deps.Media,
		routes:           routes,
		sanitizer:        sanitizer,
		defaultCurrency:  defaultCurrency,
		logger:           logger,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

// Save creates or updates a product from the typed payload. Updates whose
// status transitions to Active or Inactive fold the edited draft into an
// existing published product sharing the internal item number, when one
// exists.
func (s *productService) Save(ctx context.Context, data ProductData, opts SaveOptions) (domain.Product, error) {
	var product domain.Product
	isNew := opts.ID == nil

	if isNew {
		if data.Type == nil || data.Type.ID == 0 {
			return domain.Product{}, &MissingAttributeError{Key: "type"}
		}
		if data.Status == nil || data.Status.ID == 0 {
			return domain.Product{}, &MissingAttributeError{Key: "status"}
		}
	} else {
		loaded, err := s.loadProduct(ctx, *opts.ID)
		if err != nil {
			return domain.Product{}, err
		}
		product = loaded
	}

	published, err := s.findPublishedCounterpart(ctx, product, data, isNew)
	if err != nil {
		return domain.Product{}, err
	}

	if err := s.applyData(ctx, &product, data, opts, isNew); err != nil {
		return domain.Product{}, err
	}

	// Ids are allocated ahead of the transaction so the transaction itself
	// performs its reads before any buffered write.
	if isNew {
		id, err := s.counters.Next(ctx, repositories.CounterProducts, 1)
		if err != nil {
			return domain.Product{}, fmt.Errorf("allocate product id: %w", err)
		}
		product.ID = id
	}
	if product.InternalItemNumber == "" {
		number, err := s.generateInternalItemNumber(ctx, opts)
		if err != nil {
			return domain.Product{}, err
		}
		product.InternalItemNumber = number
	}

	if err := s.checkShopValidity(product, opts.Locale); err != nil {
		return domain.Product{}, err
	}

	result := product
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		if published != nil {
			merged, err := s.convertProduct(ctx, product, *published)
			if err != nil {
				return err
			}
			result = merged
			return nil
		}

		if isNew {
			if err := s.products.Insert(ctx, product); err != nil {
				return fmt.Errorf("insert product: %w", err)
			}
		} else if err := s.products.Update(ctx, product); err != nil {
			return fmt.Errorf("update product %d: %w", product.ID, err)
		}
		result = product
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	if isNew {
		s.notifyCreated(ctx, result, opts.UserID)
	} else {
		s.notifyUpdated(ctx, result, opts.UserID)
	}
	s.syncRoutes(ctx, result)
	return result, nil
}

// syncRoutes refreshes storefront routes for translations that already carry
// a persisted route id. Failures are logged, never surfaced.
func (s *productService) syncRoutes(ctx context.Context, product domain.Product) {
	for _, tr := range product.Translations {
		if tr.RouteID == nil {
			continue
		}
		path := RoutePath(tr)
		if path == "" {
			continue
		}
		if err := s.routes.Update(ctx, tr, path); err != nil {
			s.logger.Warn("route update failed",
				zap.Int64("productId", product.ID),
				zap.String("locale", tr.Locale),
				zap.Error(err))
		}
	}
}

// PartialUpdate is the narrow status-only transition path.
func (s *productService) PartialUpdate(ctx context.Context, data ProductData, locale string, userID int64, productID int64) (domain.Product, error) {
	if data.Status == nil || data.Status.ID == 0 {
		return domain.Product{}, &MissingAttributeError{Key: "status"}
	}
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if _, err := s.statuses.Find(ctx, data.Status.ID); err != nil {
		return domain.Product{}, s.dependencyError(entityStatus, data.Status.ID, err)
	}

	product.StatusID = data.Status.ID
	product.Changed = s.clock()
	product.ChangerID = userID

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkShopValidity(product, locale); err != nil {
			return err
		}
		return s.products.Update(ctx, product)
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.notifyUpdated(ctx, product, userID)
	return product, nil
}

// Get loads one product and decorates its media references.
func (s *productService) Get(ctx context.Context, productID int64, locale string) (ProductView, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return ProductView{}, err
	}

	view := ProductView{Product: product}
	if s.media == nil {
		return view, nil
	}
	for _, mediaID := range product.MediaIDs {
		resolved, err := s.media.GetByID(ctx, mediaID, locale)
		if err != nil {
			s.logger.Warn("media resolution failed",
				zap.Int64("productId", productID),
				zap.Int64("mediaId", mediaID),
				zap.Error(err))
			continue
		}
		view.Media = append(view.Media, resolved)
	}
	return view, nil
}

// List returns a filtered product page.
func (s *productService) List(ctx context.Context, filter repositories.ProductListFilter, pager domain.Pagination) (domain.CursorPage[domain.Product], error) {
	return s.products.List(ctx, filter, pager)
}

// Delete removes the products, committing every twenty deletions. Products
// with children are refused.
func (s *productService) Delete(ctx context.Context, productIDs []int64, userID int64) error {
	for start := 0; start < len(productIDs); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(productIDs) {
			end = len(productIDs)
		}
		batch := productIDs[start:end]

		err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
			// All reads first, deletions after.
			for _, id := range batch {
				if _, err := s.loadProduct(ctx, id); err != nil {
					return err
				}
				hasChildren, err := s.products.HasChildren(ctx, id)
				if err != nil {
					return fmt.Errorf("check children of product %d: %w", id, err)
				}
				if hasChildren {
					return &ChildrenExistError{ID: id}
				}
			}
			for _, id := range batch {
				if err := s.products.Delete(ctx, id); err != nil {
					return fmt.Errorf("delete product %d: %w", id, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, id := range batch {
			s.notifyDeleted(ctx, id, userID)
		}
	}
	return nil
}

// FindCurrentOffered returns the products with a special price valid right
// now.
func (s *productService) FindCurrentOffered(ctx context.Context) ([]domain.Product, error) {
	candidates, err := s.products.FindWithSpecialPrices(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	offered := make([]domain.Product, 0, len(candidates))
	for _, product := range candidates {
		for _, special := range product.SpecialPrices {
			if special.IsValidAt(now) {
				offered = append(offered, product)
				break
			}
		}
	}
	return offered, nil
}

// findPublishedCounterpart looks for an already published product sharing the
// internal item number when an update moves the status to Active or Inactive.
func (s *productService) findPublishedCounterpart(ctx context.Context, product domain.Product, data ProductData, isNew bool) (*domain.Product, error) {
	if isNew || data.Status == nil || product.InternalItemNumber == "" {
		return nil, nil
	}
	target := data.Status.ID
	if target != domain.ProductStatusActive && target != domain.ProductStatusInactive {
		return nil, nil
	}
	if product.StatusID == target {
		return nil, nil
	}

	siblings, err := s.products.FindByInternalItemNumber(ctx, product.InternalItemNumber)
	if err != nil {
		return nil, fmt.Errorf("find products by item number: %w", err)
	}
	for i := range siblings {
		if siblings[i].ID != product.ID {
			return &siblings[i], nil
		}
	}
	return nil, nil
}

// convertProduct folds the edited draft into the published counterpart: the
// published product takes over all of the draft's data, the draft's children
// are re-parented, and the draft row is removed.
func (s *productService) convertProduct(ctx context.Context, draft domain.Product, published domain.Product) (domain.Product, error) {
	target := draft
	target.ID = published.ID
	target.Created = published.Created
	target.CreatorID = published.CreatorID

	children, err := s.products.FindChildren(ctx, draft.ID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("find children of product %d: %w", draft.ID, err)
	}
	for _, child := range children {
		child.ParentID = &target.ID
		if err := s.products.Update(ctx, child); err != nil {
			return domain.Product{}, fmt.Errorf("re-parent product %d: %w", child.ID, err)
		}
	}

	if err := s.products.Update(ctx, target); err != nil {
		return domain.Product{}, fmt.Errorf("update product %d: %w", target.ID, err)
	}
	if err := s.products.Delete(ctx, draft.ID); err != nil {
		return domain.Product{}, fmt.Errorf("delete product %d: %w", draft.ID, err)
	}
	return target, nil
}

func (s *productService) applyData(ctx context.Context, product *domain.Product, data ProductData, opts SaveOptions, isNew bool) error {
	s.applyScalars(product, data)
	s.applyTranslation(product, data, opts.Locale)

	if err := s.applyReferences(ctx, product, data, isNew); err != nil {
		return err
	}
	if err := s.applyCategories(ctx, product, data); err != nil {
		return err
	}
	if data.Media != nil {
		product.MediaIDs = append([]int64(nil), (*data.Media)...)
	}
	if err := s.applyPrices(ctx, product, data); err != nil {
		return err
	}
	if data.SpecialPrices != nil {
		product.SpecialPrices = reconcileSpecialPrices(product.SpecialPrices, *data.SpecialPrices)
	}
	if err := s.applyAddons(ctx, product, data); err != nil {
		return err
	}

	diff, err := s.attributes.ReconcileAttributes(ctx, product.Attributes, data.Attributes, opts.Locale)
	if err != nil {
		return err
	}
	if !diff.IsZero() {
		product.Attributes = diff.Apply(product.Attributes)
	}

	now := s.clock()
	if isNew {
		product.Created = now
		product.CreatorID = opts.UserID
	}
	if isNew || !opts.SkipChanged {
		product.Changed = now
		product.ChangerID = opts.UserID
	}
	return nil
}

func (s *productService) applyScalars(product *domain.Product, data ProductData) {
	if v, ok := data.Number.Get(); ok {
		product.Number = strings.TrimSpace(v)
	} else if data.Number.Null() {
		product.Number = ""
	}
	if v, ok := data.GlobalTradeItemNumber.Get(); ok {
		product.GlobalTradeItemNumber = strings.TrimSpace(v)
	} else if data.GlobalTradeItemNumber.Null() {
		product.GlobalTradeItemNumber = ""
	}
	if v, ok := data.Manufacturer.Get(); ok {
		product.Manufacturer = strings.TrimSpace(v)
	} else if data.Manufacturer.Null() {
		product.Manufacturer = ""
	}
	if v, ok := data.ManufacturerCountry.Get(); ok {
		product.ManufacturerCountry = strings.TrimSpace(v)
	} else if data.ManufacturerCountry.Null() {
		product.ManufacturerCountry = ""
	}
	if v, ok := data.Cost.Get(); ok {
		product.Cost = v
	} else if data.Cost.Null() {
		product.Cost = 0
	}
	if v, ok := data.PriceInfo.Get(); ok {
		product.PriceInfo = strings.TrimSpace(v)
	} else if data.PriceInfo.Null() {
		product.PriceInfo = ""
	}
	if v, ok := data.AreGrossPrices.Get(); ok {
		product.AreGrossPrices = v
	}
	if v, ok := data.DeliveryTime.Get(); ok {
		product.DeliveryTime = v
	} else if data.DeliveryTime.Null() {
		product.DeliveryTime = 0
	}
	if v, ok := data.IsDeprecated.Get(); ok {
		product.IsDeprecated = v
	}
	if data.SearchTerms.Present() {
		terms, _ := data.SearchTerms.Get()
		product.SearchTerms = textutil.ParseSearchTerms(terms, textutil.MaxSearchTermsLength)
	}

	product.OrderContentRatio = applyOptionalFloat(product.OrderContentRatio, data.OrderContentRatio)
	product.MinimumOrderQuantity = applyOptionalFloat(product.MinimumOrderQuantity, data.MinimumOrderQuantity)
	product.RecommendedOrderQuantity = applyOptionalFloat(product.RecommendedOrderQuantity, data.RecommendedOrderQuantity)
}

func (s *productService) applyTranslation(product *domain.Product, data ProductData, locale string) {
	if !data.Name.Present() && !data.ShortDescription.Present() && !data.LongDescription.Present() {
		return
	}

	idx := -1
	for i, tr := range product.Translations {
		if tr.Locale == locale {
			idx = i
			break
		}
	}
	if idx == -1 {
		product.Translations = append(product.Translations, domain.ProductTranslation{Locale: locale})
		idx = len(product.Translations) - 1
	}

	tr := &product.Translations[idx]
	if v, ok := data.Name.Get(); ok {
		tr.Name = strings.TrimSpace(v)
	} else if data.Name.Null() {
		tr.Name = ""
	}
	if v, ok := data.ShortDescription.Get(); ok {
		tr.ShortDescription = strings.TrimSpace(v)
	} else if data.ShortDescription.Null() {
		tr.ShortDescription = ""
	}
	if v, ok := data.LongDescription.Get(); ok {
		tr.LongDescription = s.sanitizer.Sanitize(strings.TrimSpace(v))
	} else if data.LongDescription.Null() {
		tr.LongDescription = ""
	}
}

func (s *productService) applyReferences(ctx context.Context, product *domain.Product, data ProductData, isNew bool) error {
	if data.Type != nil {
		if _, err := s.types.Find(ctx, data.Type.ID); err != nil {
			return s.dependencyError(entityType, data.Type.ID, err)
		}
		product.TypeID = domain.ProductType(data.Type.ID)
	}
	if data.Status != nil {
		if _, err := s.statuses.Find(ctx, data.Status.ID); err != nil {
			return s.dependencyError(entityStatus, data.Status.ID, err)
		}
		product.StatusID = data.Status.ID
	}
	if data.Parent != nil {
		if _, err := s.products.FindByID(ctx, data.Parent.ID); err != nil {
			return s.dependencyError(entityParent, data.Parent.ID, err)
		}
		parentID := data.Parent.ID
		product.ParentID = &parentID
	}
	if data.OrderUnit != nil {
		if _, err := s.units.Find(ctx, data.OrderUnit.ID); err != nil {
			return s.dependencyError(entityOrderUnit, data.OrderUnit.ID, err)
		}
		id := data.OrderUnit.ID
		product.OrderUnitID = &id
	}
	if data.ContentUnit != nil {
		if _, err := s.units.Find(ctx, data.ContentUnit.ID); err != nil {
			return s.dependencyError(entityContentUnit, data.ContentUnit.ID, err)
		}
		id := data.ContentUnit.ID
		product.ContentUnitID = &id
	}
	if data.Supplier != nil {
		if _, err := s.suppliers.Find(ctx, data.Supplier.ID); err != nil {
			return s.dependencyError(entitySupplier, data.Supplier.ID, err)
		}
		id := data.Supplier.ID
		product.SupplierID = &id
	}
	if data.TaxClass != nil {
		if _, err := s.taxClasses.Find(ctx, data.TaxClass.ID); err != nil {
			return s.dependencyError(entityTaxClass, data.TaxClass.ID, err)
		}
		id := data.TaxClass.ID
		product.TaxClassID = &id
	}
	if data.DeliveryStatus != nil {
		if _, err := s.deliveryStatuses.Find(ctx, data.DeliveryStatus.ID); err != nil {
			return s.dependencyError(entityDeliveryStatus, data.DeliveryStatus.ID, err)
		}
		id := data.DeliveryStatus.ID
		product.DeliveryStatusID = &id
	}

	// Defaults: piece order unit on create, standard tax class and available
	// delivery status whenever unset.
	if isNew && product.OrderUnitID == nil {
		id := domain.DefaultOrderUnitID
		product.OrderUnitID = &id
	}
	if product.TaxClassID == nil {
		id := domain.DefaultTaxClassID
		product.TaxClassID = &id
	}
	if product.DeliveryStatusID == nil {
		id := domain.DefaultDeliveryStatusID
		product.DeliveryStatusID = &id
	}
	return nil
}

func (s *productService) applyCategories(ctx context.Context, product *domain.Product, data ProductData) error {
	if data.Categories == nil {
		return nil
	}
	ids := make([]int64, 0, len(*data.Categories))
	for _, id := range *data.Categories {
		if containsInt64List(ids, id) {
			continue
		}
		if _, err := s.categories.Find(ctx, id); err != nil {
			return s.dependencyError(entityCategory, id, err)
		}
		ids = append(ids, id)
	}
	product.CategoryIDs = ids
	return nil
}

// applyPrices reconciles the incoming price list against the stored one.
// Entries match by id first, then by currency+price+minimumQuantity equality;
// unmatched stored prices are dropped. A payload may carry at most one entry
// per currency and minimum quantity.
func (s *productService) applyPrices(ctx context.Context, product *domain.Product, data ProductData) error {
	if data.Prices == nil {
		return nil
	}

	existing := product.Prices
	nextID := int64(0)
	byID := make(map[int64]domain.ProductPrice, len(existing))
	for _, price := range existing {
		byID[price.ID] = price
		if price.ID > nextID {
			nextID = price.ID
		}
	}

	type priceKey struct {
		currency string
		minimum  float64
	}
	seen := make(map[priceKey]struct{}, len(*data.Prices))

	prices := make([]domain.ProductPrice, 0, len(*data.Prices))
	for _, input := range *data.Prices {
		key := priceKey{
			currency: strings.ToUpper(strings.TrimSpace(input.CurrencyCode)),
			minimum:  input.MinimumQuantity,
		}
		if _, dup := seen[key]; dup {
			return newProductError("duplicate price for currency %s at minimum quantity %v", key.currency, key.minimum)
		}
		seen[key] = struct{}{}

		if input.ID != nil {
			matched, ok := byID[*input.ID]
			if !ok {
				return &IDAlreadySetError{Entity: "ProductPrice", ID: *input.ID}
			}
			matched.CurrencyCode = strings.ToUpper(strings.TrimSpace(input.CurrencyCode))
			matched.Price = input.Price
			matched.MinimumQuantity = input.MinimumQuantity
			matched.PriceInfo = input.PriceInfo
			prices = append(prices, matched)
			continue
		}

		if matched, ok := matchPriceByValue(existing, input); ok {
			prices = append(prices, matched)
			continue
		}

		created, err := s.prices.NewProductPriceForCurrency(ctx, *product, input.Price, input.MinimumQuantity, input.CurrencyCode)
		if err != nil {
			return err
		}
		created.PriceInfo = input.PriceInfo
		nextID++
		created.ID = nextID
		prices = append(prices, created)
	}
	product.Prices = prices
	return nil
}

func (s *productService) applyAddons(ctx context.Context, product *domain.Product, data ProductData) error {
	if data.Addons == nil {
		return nil
	}
	addons := make([]domain.Addon, 0, len(*data.Addons))
	for _, input := range *data.Addons {
		if _, err := s.products.FindByID(ctx, input.AddonID); err != nil {
			return s.dependencyError(entityAddon, input.AddonID, err)
		}
		addon := domain.Addon{AddonID: input.AddonID}
		for _, price := range input.Prices {
			addon.Prices = append(addon.Prices, domain.AddonPrice{
				CurrencyCode: strings.ToUpper(strings.TrimSpace(price.CurrencyCode)),
				Price:        price.Price,
			})
		}
		addons = append(addons, addon)
	}
	product.Addons = addons
	return nil
}

func (s *productService) generateInternalItemNumber(ctx context.Context, opts SaveOptions) (string, error) {
	number, err := s.counters.Next(ctx, repositories.CounterItemNumbers, 1)
	if err != nil {
		return "", fmt.Errorf("allocate item number: %w", err)
	}
	if opts.SupplierID != nil {
		return fmt.Sprintf("S-%d-%d", *opts.SupplierID, number), nil
	}
	return fmt.Sprintf("U-%d-%d", opts.UserID, number), nil
}

// checkShopValidity enforces product completeness for Active products: a
// localized name and a base price in the default currency.
func (s *productService) checkShopValidity(product domain.Product, locale string) error {
	if product.StatusID != domain.ProductStatusActive {
		return nil
	}
	if strings.TrimSpace(product.Name(locale)) == "" {
		return newProductError("product %d is not valid for shop", product.ID)
	}
	if s.prices.BasePriceForCurrency(product, s.defaultCurrency) == nil {
		return newProductError("product %d is not valid for shop", product.ID)
	}
	return nil
}

func (s *productService) loadProduct(ctx context.Context, productID int64) (domain.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.Product{}, &ProductNotFoundError{ID: productID}
		}
		return domain.Product{}, fmt.Errorf("load product %d: %w", productID, err)
	}
	return product, nil
}

func (s *productService) dependencyError(entity string, id int64, err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return &DependencyNotFoundError{Entity: entity, ID: id}
	}
	return fmt.Errorf("load %s %d: %w", entity, id, err)
}

func (s *productService) notifyCreated(ctx context.Context, product domain.Product, userID int64) {
	if s.events != nil {
		s.events.PublishProductCreated(ctx, product, userID)
	}
	s.recordAudit(ctx, "product.created", product.ID, userID)
}

func (s *productService) notifyUpdated(ctx context.Context, product domain.Product, userID int64) {
	if s.events != nil {
		s.events.PublishProductUpdated(ctx, product, userID)
	}
	s.recordAudit(ctx, "product.updated", product.ID, userID)
}

func (s *productService) notifyDeleted(ctx context.Context, productID int64, userID int64) {
	if s.events != nil {
		s.events.PublishProductDeleted(ctx, productID, userID)
	}
	s.recordAudit(ctx, "product.deleted", productID, userID)
}

func (s *productService) recordAudit(ctx context.Context, action string, productID int64, userID int64) {
	if s.audit == nil {
		return
	}
	entry := domain.AuditLogEntry{
		Actor:     fmt.Sprintf("user:%d", userID),
		ActorType: "user",
		Action:    action,
		TargetRef: fmt.Sprintf("products/%d", productID),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed",
			zap.String("action", action),
			zap.Int64("productId", productID),
			zap.Error(err))
	}
}

// reconcileSpecialPrices keys entries by currency: present currencies are
// created or updated in place, absent ones are dropped. A currency appearing
// more than once in the input collapses to its last entry. End dates are
// clamped to the end of their day.
func reconcileSpecialPrices(existing []domain.SpecialPrice, inputs []SpecialPriceInput) []domain.SpecialPrice {
	byCurrency := make(map[string]domain.SpecialPrice, len(existing))
	for _, special := range existing {
		byCurrency[special.CurrencyCode] = special
	}

	result := make([]domain.SpecialPrice, 0, len(inputs))
	slot := make(map[string]int, len(inputs))
	for _, input := range inputs {
		code := strings.ToUpper(strings.TrimSpace(input.CurrencyCode))
		special, ok := byCurrency[code]
		if !ok {
			special = domain.SpecialPrice{CurrencyCode: code}
		}
		special.Price = input.Price
		special.StartDate = copyTime(input.StartDate)
		special.EndDate = clampEndOfDay(input.EndDate)

		if i, dup := slot[code]; dup {
			result[i] = special
			continue
		}
		slot[code] = len(result)
		result = append(result, special)
	}
	return result
}

func matchPriceByValue(existing []domain.ProductPrice, input PriceInput) (domain.ProductPrice, bool) {
	code := strings.ToUpper(strings.TrimSpace(input.CurrencyCode))
	for _, price := range existing {
		if price.CurrencyCode == code && price.Price == input.Price && price.MinimumQuantity == input.MinimumQuantity {
			return price, true
		}
	}
	return domain.ProductPrice{}, false
}

func applyOptionalFloat(current *float64, opt domain.Optional[float64]) *float64 {
	if v, ok := opt.Get(); ok {
		return &v
	}
	if opt.Null() {
		return nil
	}
	return current
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func clampEndOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	end := time.Date(utc.Year(), utc.Month(), utc.Day(), 23, 59, 59, 0, time.UTC)
	return &end
}

func containsInt64List(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
