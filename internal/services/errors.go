package services

import (
	"errors"
	"fmt"
)

// Sentinel categories surfaced to the boundary layer via errors.Is.
var (
	// ErrProductNotFound marks lookups of products that do not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrDependencyNotFound marks references to missing related entities.
	ErrDependencyNotFound = errors.New("product dependency not found")
	// ErrMissingAttribute marks required input fields that are absent.
	ErrMissingAttribute = errors.New("missing product attribute")
	// ErrIDAlreadySet marks payloads supplying an id for a fresh entity.
	ErrIDAlreadySet = errors.New("entity id already set")
	// ErrChildrenExist marks deletions blocked by existing children.
	ErrChildrenExist = errors.New("product children exist")
	// ErrAttributeNotFound marks references to missing attributes.
	ErrAttributeNotFound = errors.New("attribute not found")
	// ErrProductInvalid marks domain-rule violations without a narrower kind.
	ErrProductInvalid = errors.New("product invalid")
)

// ProductNotFoundError reports a product id that does not exist.
type ProductNotFoundError struct {
	ID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ID)
}

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrProductNotFound
}

// DependencyNotFoundError reports a missing referenced entity.
type DependencyNotFoundError struct {
	Entity string
	ID     int64
}

func (e *DependencyNotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *DependencyNotFoundError) Is(target error) bool {
	return target == ErrDependencyNotFound
}

// MissingAttributeError reports a required input field that is absent.
type MissingAttributeError struct {
	Key string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("missing attribute %q in request data", e.Key)
}

func (e *MissingAttributeError) Is(target error) bool {
	return target == ErrMissingAttribute
}

// IDAlreadySetError reports an id supplied for an entity being created.
type IDAlreadySetError struct {
	Entity string
	ID     int64
}

func (e *IDAlreadySetError) Error() string {
	return fmt.Sprintf("%s cannot be created with explicit id %d", e.Entity, e.ID)
}

func (e *IDAlreadySetError) Is(target error) bool {
	return target == ErrIDAlreadySet
}

// ChildrenExistError reports a delete blocked by child products.
type ChildrenExistError struct {
	ID int64
}

func (e *ChildrenExistError) Error() string {
	return fmt.Sprintf("product %d cannot be deleted because it has children", e.ID)
}

func (e *ChildrenExistError) Is(target error) bool {
	return target == ErrChildrenExist
}

// AttributeNotFoundError reports an attribute id that does not exist.
type AttributeNotFoundError struct {
	ID int64
}

func (e *AttributeNotFoundError) Error() string {
	return fmt.Sprintf("attribute %d not found", e.ID)
}

func (e *AttributeNotFoundError) Is(target error) bool {
	return target == ErrAttributeNotFound
}

// ProductError is the catch-all for domain-rule violations: shop-invalidity,
// variant relation absence, attribute count mismatches.
type ProductError struct {
	Msg string
}

func (e *ProductError) Error() string {
	return e.Msg
}

func (e *ProductError) Is(target error) bool {
	return target == ErrProductInvalid
}

func newProductError(format string, args ...any) *ProductError {
	return &ProductError{Msg: fmt.Sprintf(format, args...)}
}
