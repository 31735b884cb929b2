package services

import (
	"context"
	"fmt"
	"sort"

	domain "github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/repositories"
)

type stubRepoError struct {
	msg      string
	notFound bool
	conflict bool
}

func (e *stubRepoError) Error() string       { return e.msg }
func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return false }

func repoNotFound(entity string, id any) error {
	return &stubRepoError{msg: fmt.Sprintf("%s %v not found", entity, id), notFound: true}
}

type stubReferenceRepository[T any] struct {
	entries map[int64]T
	finds   int
}

func (s *stubReferenceRepository[T]) Find(_ context.Context, id int64) (T, error) {
	s.finds++
	entry, ok := s.entries[id]
	if !ok {
		var zero T
		return zero, repoNotFound("entry", id)
	}
	return entry, nil
}

func (s *stubReferenceRepository[T]) FindAll(context.Context) ([]T, error) {
	entries := make([]T, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	return entries, nil
}

type stubProductRepository struct {
	products map[int64]domain.Product

	inserts int
	updates int
	deletes []int64

	insertErr error
	updateErr error
	deleteErr error
}

func newStubProductRepository(products ...domain.Product) *stubProductRepository {
	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &stubProductRepository{products: byID}
}

func (s *stubProductRepository) Insert(_ context.Context, product domain.Product) error {
	s.inserts++
	if s.insertErr != nil {
		return s.insertErr
	}
	s.products[product.ID] = product
	return nil
}

func (s *stubProductRepository) Update(_ context.Context, product domain.Product) error {
	s.updates++
	if s.updateErr != nil {
		return s.updateErr
	}
	s.products[product.ID] = product
	return nil
}

func (s *stubProductRepository) Delete(_ context.Context, productID int64) error {
	s.deletes = append(s.deletes, productID)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.products, productID)
	return nil
}

func (s *stubProductRepository) FindByID(_ context.Context, productID int64) (domain.Product, error) {
	product, ok := s.products[productID]
	if !ok {
		return domain.Product{}, repoNotFound("product", productID)
	}
	return product, nil
}

func (s *stubProductRepository) FindByInternalItemNumber(_ context.Context, number string) ([]domain.Product, error) {
	var matches []domain.Product
	for _, p := range s.products {
		if p.InternalItemNumber == number {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

func (s *stubProductRepository) FindChildren(_ context.Context, parentID int64) ([]domain.Product, error) {
	var children []domain.Product
	for _, p := range s.products {
		if p.ParentID != nil && *p.ParentID == parentID {
			children = append(children, p)
		}
	}
	return children, nil
}

func (s *stubProductRepository) HasChildren(ctx context.Context, parentID int64) (bool, error) {
	children, err := s.FindChildren(ctx, parentID)
	if err != nil {
		return false, err
	}
	return len(children) > 0, nil
}

func (s *stubProductRepository) List(_ context.Context, filter repositories.ProductListFilter, _ domain.Pagination) (domain.CursorPage[domain.Product], error) {
	var items []domain.Product
	for _, p := range s.products {
		if len(filter.IDs) > 0 && !containsID(filter.IDs, p.ID) {
			continue
		}
		if filter.ParentID != nil && (p.ParentID == nil || *p.ParentID != *filter.ParentID) {
			continue
		}
		if filter.WithoutParent && p.ParentID != nil {
			continue
		}
		if len(filter.StatusIDs) > 0 && !containsID(filter.StatusIDs, p.StatusID) {
			continue
		}
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return domain.CursorPage[domain.Product]{Items: items}, nil
}

func (s *stubProductRepository) FindWithSpecialPrices(context.Context) ([]domain.Product, error) {
	var matches []domain.Product
	for _, p := range s.products {
		if len(p.SpecialPrices) > 0 {
			matches = append(matches, p)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

type stubUnitOfWork struct {
	runs int
	err  error
}

func (s *stubUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	s.runs++
	if s.err != nil {
		return s.err
	}
	return fn(ctx)
}

type stubCounters struct {
	values map[string]int64
	err    error
}

func (s *stubCounters) Next(_ context.Context, counterID string, step int64) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.values == nil {
		s.values = map[string]int64{}
	}
	s.values[counterID] += step
	return s.values[counterID], nil
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

type stubCurrencyRepository struct {
	stubReferenceRepository[domain.Currency]
	byCode map[string]domain.Currency
}

func (s *stubCurrencyRepository) FindByCode(_ context.Context, code string) (domain.Currency, error) {
	currency, ok := s.byCode[code]
	if !ok {
		return domain.Currency{}, repoNotFound("currency", code)
	}
	return currency, nil
}
