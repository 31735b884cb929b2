package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/catalix/pim-api/internal/domain"
)

func newTestAttributeService(t *testing.T, attributes map[int64]domain.Attribute) AttributeService {
	t.Helper()
	svc, err := NewAttributeService(AttributeServiceDeps{
		Attributes: &stubReferenceRepository[domain.Attribute]{entries: attributes},
		Clock: func() time.Time {
			return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("NewAttributeService: %v", err)
	}
	return svc
}

func TestCreateProductAttribute(t *testing.T) {
	svc := newTestAttributeService(t, map[int64]domain.Attribute{
		7: {ID: 7, Key: "color"},
	})

	attr, err := svc.CreateProductAttribute(context.Background(), 7, "  red  ", "en")
	if err != nil {
		t.Fatalf("CreateProductAttribute: %v", err)
	}
	if attr.AttributeID != 7 {
		t.Fatalf("attribute id = %d, want 7", attr.AttributeID)
	}
	if attr.Value.ID == "" {
		t.Fatal("expected a generated value id")
	}
	if got := attr.Value.Value("en"); got != "red" {
		t.Fatalf("value = %q, want %q", got, "red")
	}
}

func TestCreateProductAttributeUnknownAttribute(t *testing.T) {
	svc := newTestAttributeService(t, nil)

	_, err := svc.CreateProductAttribute(context.Background(), 99, "red", "en")
	if !errors.Is(err, ErrDependencyNotFound) {
		t.Fatalf("err = %v, want dependency not found", err)
	}
	var depErr *DependencyNotFoundError
	if !errors.As(err, &depErr) || depErr.ID != 99 {
		t.Fatalf("err = %v, want DependencyNotFoundError for id 99", err)
	}
}

func TestCreateProductAttributeEmptyValue(t *testing.T) {
	svc := newTestAttributeService(t, map[int64]domain.Attribute{7: {ID: 7}})

	if _, err := svc.CreateProductAttribute(context.Background(), 7, "   ", "en"); !errors.Is(err, ErrProductInvalid) {
		t.Fatalf("err = %v, want product invalid", err)
	}
}

func TestSetOrCreateTranslation(t *testing.T) {
	svc := newTestAttributeService(t, nil)
	value := domain.AttributeValue{
		ID:           "v1",
		Translations: []domain.AttributeValueTranslation{{Locale: "en", Value: "red"}},
	}

	updated := svc.SetOrCreateTranslation(value, "rot", "de")
	if len(updated.Translations) != 2 {
		t.Fatalf("translations = %d, want 2", len(updated.Translations))
	}
	if got := updated.Value("de"); got != "rot" {
		t.Fatalf("de value = %q, want %q", got, "rot")
	}

	replaced := svc.SetOrCreateTranslation(updated, "crimson", "en")
	if got := replaced.Value("en"); got != "crimson" {
		t.Fatalf("en value = %q, want %q", got, "crimson")
	}
	if len(replaced.Translations) != 2 {
		t.Fatalf("translations = %d, want 2", len(replaced.Translations))
	}
	if value.Translations[0].Value != "red" {
		t.Fatal("original value mutated")
	}
}

func TestRemoveTranslations(t *testing.T) {
	svc := newTestAttributeService(t, nil)
	value := domain.AttributeValue{
		ID: "v1",
		Translations: []domain.AttributeValueTranslation{
			{Locale: "en", Value: "red"},
			{Locale: "de", Value: "rot"},
		},
	}

	trimmed := svc.RemoveTranslation(value, "de")
	if len(trimmed.Translations) != 1 || trimmed.Translations[0].Locale != "en" {
		t.Fatalf("translations after remove = %+v", trimmed.Translations)
	}

	cleared := svc.RemoveAllTranslations(value)
	if len(cleared.Translations) != 0 {
		t.Fatalf("translations after clear = %+v", cleared.Translations)
	}
}

func TestReconcileAttributes(t *testing.T) {
	svc := newTestAttributeService(t, map[int64]domain.Attribute{
		1: {ID: 1, Key: "color"},
		2: {ID: 2, Key: "size"},
		3: {ID: 3, Key: "material"},
	})

	existing := []domain.ProductAttribute{
		{AttributeID: 1, Value: domain.AttributeValue{ID: "v1", Translations: []domain.AttributeValueTranslation{{Locale: "en", Value: "red"}}}},
		{AttributeID: 2, Value: domain.AttributeValue{ID: "v2", Translations: []domain.AttributeValueTranslation{{Locale: "en", Value: "xl"}}}},
	}
	inputs := []AttributeInput{
		{AttributeID: 1, Value: "blue"},
		{AttributeID: 2, Value: "  "},
		{AttributeID: 3, Value: "wool"},
	}

	diff, err := svc.ReconcileAttributes(context.Background(), existing, inputs, "en")
	if err != nil {
		t.Fatalf("ReconcileAttributes: %v", err)
	}
	if len(diff.Added) != 1 || diff.Added[0].AttributeID != 3 {
		t.Fatalf("added = %+v", diff.Added)
	}
	if len(diff.Updated) != 1 || diff.Updated[0].Value.Value("en") != "blue" {
		t.Fatalf("updated = %+v", diff.Updated)
	}
	if len(diff.Removed) != 1 || diff.Removed[0] != 2 {
		t.Fatalf("removed = %+v", diff.Removed)
	}

	result := diff.Apply(existing)
	if len(result) != 2 {
		t.Fatalf("applied list = %+v", result)
	}
	byID := map[int64]domain.ProductAttribute{}
	for _, attr := range result {
		byID[attr.AttributeID] = attr
	}
	if _, still := byID[2]; still {
		t.Fatal("attribute 2 not removed")
	}
	if byID[1].Value.Value("en") != "blue" {
		t.Fatalf("attribute 1 value = %q", byID[1].Value.Value("en"))
	}
	if byID[3].Value.Value("en") != "wool" {
		t.Fatalf("attribute 3 value = %q", byID[3].Value.Value("en"))
	}
}

func TestReconcileAttributesUnknownAttribute(t *testing.T) {
	svc := newTestAttributeService(t, nil)

	_, err := svc.ReconcileAttributes(context.Background(), nil, []AttributeInput{{AttributeID: 5, Value: "x"}}, "en")
	if !errors.Is(err, ErrDependencyNotFound) {
		t.Fatalf("err = %v, want dependency not found", err)
	}
}

func TestReconcileAttributesNoChanges(t *testing.T) {
	svc := newTestAttributeService(t, nil)

	diff, err := svc.ReconcileAttributes(context.Background(), nil, []AttributeInput{{AttributeID: 4, Value: ""}}, "en")
	if err != nil {
		t.Fatalf("ReconcileAttributes: %v", err)
	}
	if !diff.IsZero() {
		t.Fatalf("diff = %+v, want zero", diff)
	}
}
