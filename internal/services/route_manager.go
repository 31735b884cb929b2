package services

import (
	"context"
	"strings"
	"unicode"

	domain "github.com/catalix/pim-api/internal/domain"
)

// NoopRouteManager is the default route manager used when no storefront
// routing integration is configured.
type NoopRouteManager struct{}

func (NoopRouteManager) Create(context.Context, domain.ProductTranslation, string) (int64, error) {
	return 0, nil
}

func (NoopRouteManager) Update(context.Context, domain.ProductTranslation, string) error {
	return nil
}

// RoutePath derives the storefront path for a product translation.
func RoutePath(translation domain.ProductTranslation) string {
	slug := slugify(translation.Name)
	if slug == "" {
		return ""
	}
	return "/products/" + slug
}

func slugify(input string) string {
	var builder strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(input)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(r)
			lastDash = false
		case !lastDash:
			builder.WriteRune('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(builder.String(), "-")
}
