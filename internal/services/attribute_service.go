package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/catalix/pim-api/internal/domain"
	"github.com/catalix/pim-api/internal/repositories"
)

const attributeEntityName = "Attribute"

// AttributeServiceDeps bundles collaborators required to construct an
// attribute service.
type AttributeServiceDeps struct {
	Attributes repositories.ReferenceRepository[domain.Attribute]
	Clock      func() time.Time
}

type attributeService struct {
	attributes repositories.ReferenceRepository[domain.Attribute]
	clock      func() time.Time

	entropyMu sync.Mutex
	entropy   *rand.Rand
}

// NewAttributeService constructs the attribute value/linkage service.
func NewAttributeService(deps AttributeServiceDeps) (AttributeService, error) {
	if deps.Attributes == nil {
		return nil, errors.New("attribute service: attribute repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &attributeService{
		attributes: deps.Attributes,
		clock: func() time.Time {
			return clock().UTC()
		},
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// CreateProductAttribute builds a new product attribute binding with a fresh
// attribute value and its locale translation.
func (s *attributeService) CreateProductAttribute(ctx context.Context, attributeID int64, value string, locale string) (domain.ProductAttribute, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.ProductAttribute{}, newProductError("attribute %d value must not be empty", attributeID)
	}

	if _, err := s.attributes.Find(ctx, attributeID); err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.ProductAttribute{}, &DependencyNotFoundError{Entity: attributeEntityName, ID: attributeID}
		}
		return domain.ProductAttribute{}, fmt.Errorf("load attribute %d: %w", attributeID, err)
	}

	return domain.ProductAttribute{
		AttributeID: attributeID,
		Value: domain.AttributeValue{
			ID: s.newValueID(),
			Translations: []domain.AttributeValueTranslation{
				{Locale: locale, Value: value},
			},
		},
	}, nil
}

// SetOrCreateTranslation upserts the locale translation of an attribute value.
func (s *attributeService) SetOrCreateTranslation(value domain.AttributeValue, text string, locale string) domain.AttributeValue {
	for i, tr := range value.Translations {
		if tr.Locale == locale {
			translations := make([]domain.AttributeValueTranslation, len(value.Translations))
			copy(translations, value.Translations)
			translations[i].Value = text
			value.Translations = translations
			return value
		}
	}
	translations := make([]domain.AttributeValueTranslation, len(value.Translations), len(value.Translations)+1)
	copy(translations, value.Translations)
	value.Translations = append(translations, domain.AttributeValueTranslation{Locale: locale, Value: text})
	return value
}

// RemoveTranslation drops the locale translation of an attribute value.
func (s *attributeService) RemoveTranslation(value domain.AttributeValue, locale string) domain.AttributeValue {
	translations := make([]domain.AttributeValueTranslation, 0, len(value.Translations))
	for _, tr := range value.Translations {
		if tr.Locale == locale {
			continue
		}
		translations = append(translations, tr)
	}
	value.Translations = translations
	return value
}

// RemoveAllTranslations drops every translation of an attribute value.
func (s *attributeService) RemoveAllTranslations(value domain.AttributeValue) domain.AttributeValue {
	value.Translations = nil
	return value
}

// ReconcileAttributes computes the full diff between the existing attribute
// set and the incoming entries. Entries with a non-empty trimmed value are
// added or updated in place, entries with an empty value remove any existing
// assignment for that attribute id.
func (s *attributeService) ReconcileAttributes(ctx context.Context, existing []domain.ProductAttribute, inputs []AttributeInput, locale string) (AttributeDiff, error) {
	byID := make(map[int64]domain.ProductAttribute, len(existing))
	for _, attr := range existing {
		byID[attr.AttributeID] = attr
	}

	var diff AttributeDiff
	for _, input := range inputs {
		value := strings.TrimSpace(input.Value)
		current, assigned := byID[input.AttributeID]

		if value == "" {
			if assigned {
				diff.Removed = append(diff.Removed, input.AttributeID)
			}
			continue
		}

		if assigned {
			current.Value = s.SetOrCreateTranslation(current.Value, value, locale)
			diff.Updated = append(diff.Updated, current)
			continue
		}

		created, err := s.CreateProductAttribute(ctx, input.AttributeID, value, locale)
		if err != nil {
			return AttributeDiff{}, err
		}
		diff.Added = append(diff.Added, created)
	}
	return diff, nil
}

func (s *attributeService) newValueID() string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.clock()), s.entropy).String()
}
