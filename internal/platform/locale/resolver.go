package locale

import (
	"errors"
	"strings"

	"golang.org/x/text/language"
)

// Resolver negotiates the best-matching configured catalog locale for a
// request. Preference order: exact request locale, request language, exact
// user locale, user language, configured fallback.
type Resolver struct {
	locales  []string
	tags     []language.Tag
	matcher  language.Matcher
	fallback string
}

// NewResolver builds a Resolver over the configured locales. The fallback must
// be one of the configured locales.
func NewResolver(locales []string, fallback string) (*Resolver, error) {
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		return nil, errors.New("locale: fallback locale is required")
	}

	seen := make(map[string]struct{}, len(locales)+1)
	cleaned := make([]string, 0, len(locales)+1)
	tags := make([]language.Tag, 0, len(locales)+1)
	add := func(loc string) error {
		loc = strings.TrimSpace(loc)
		if loc == "" {
			return nil
		}
		key := strings.ToLower(loc)
		if _, ok := seen[key]; ok {
			return nil
		}
		tag, err := language.Parse(loc)
		if err != nil {
			return errors.New("locale: invalid locale " + loc)
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, loc)
		tags = append(tags, tag)
		return nil
	}

	for _, loc := range locales {
		if err := add(loc); err != nil {
			return nil, err
		}
	}
	if err := add(fallback); err != nil {
		return nil, err
	}

	return &Resolver{
		locales:  cleaned,
		tags:     tags,
		matcher:  language.NewMatcher(tags),
		fallback: fallback,
	}, nil
}

// Locales returns the configured locale list.
func (r *Resolver) Locales() []string {
	out := make([]string, len(r.locales))
	copy(out, r.locales)
	return out
}

// Fallback returns the configured fallback locale.
func (r *Resolver) Fallback() string {
	return r.fallback
}

// Resolve returns the single best-matching configured locale for the user's
// preferred locale and an optional request locale.
func (r *Resolver) Resolve(userLocale, requestLocale string) string {
	if loc, ok := r.exact(requestLocale); ok {
		return loc
	}
	if loc, ok := r.byLanguage(requestLocale); ok {
		return loc
	}
	if loc, ok := r.exact(userLocale); ok {
		return loc
	}
	if loc, ok := r.byLanguage(userLocale); ok {
		return loc
	}
	return r.fallback
}

// ResolveAcceptLanguage negotiates against an Accept-Language header value,
// falling back to the configured fallback locale.
func (r *Resolver) ResolveAcceptLanguage(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return r.fallback
	}
	wanted, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(wanted) == 0 {
		return r.fallback
	}
	_, index, confidence := r.matcher.Match(wanted...)
	if confidence == language.No {
		return r.fallback
	}
	return r.locales[index]
}

func (r *Resolver) exact(locale string) (string, bool) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return "", false
	}
	for _, candidate := range r.locales {
		if strings.EqualFold(candidate, locale) {
			return candidate, true
		}
	}
	return "", false
}

func (r *Resolver) byLanguage(locale string) (string, bool) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return "", false
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return "", false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	for i, candidate := range r.tags {
		candidateBase, _ := candidate.Base()
		if candidateBase == base {
			return r.locales[i], true
		}
	}
	return "", false
}
