package textutil

import "strings"

// MaxSearchTermsLength bounds the stored comma-separated search terms string.
const MaxSearchTermsLength = 500

// ParseSearchTerms normalizes a comma-separated search terms string: terms are
// lowercased and trimmed, empty terms are dropped and the joined result is
// bounded to maxLength by removing the term the cut falls into. Returns the
// empty string when nothing usable remains.
func ParseSearchTerms(raw string, maxLength int) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxSearchTermsLength
	}

	fields := strings.Split(strings.ToLower(raw), ",")
	terms := fields[:0]
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		terms = append(terms, field)
	}
	if len(terms) == 0 {
		return ""
	}

	result := strings.Join(terms, ",")
	if len(result) > maxLength {
		cut := result[:maxLength]
		if result[maxLength] != ',' {
			// The cut landed inside a term, drop that term.
			idx := strings.LastIndex(cut, ",")
			if idx < 0 {
				return ""
			}
			cut = cut[:idx]
		}
		result = strings.TrimSuffix(cut, ",")
	}
	return result
}

// SearchTermList splits a normalized search terms string into its terms.
func SearchTermList(terms string) []string {
	if terms == "" {
		return nil
	}
	return strings.Split(terms, ",")
}
