package domain

import "strings"

// NormalizeTag canonicalizes a tag name: trimmed of surrounding
// whitespace and lower-cased. Returns a validation error if the result
// is empty or out of bounds. Tag identity is the normalized name; the
// association table in the relational store is the only source of
// truth for how many documents reference a tag.
func NormalizeTag(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if err := validateTag(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// NormalizeTags normalizes every tag in the slice and removes
// duplicates, preserving first-seen order. A nil or empty input yields
// an empty slice.
func NormalizeTags(tags []string) ([]string, error) {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, tag := range tags {
		name, err := NormalizeTag(tag)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}

	return normalized, nil
}

// validateTag checks an already-normalized tag name against the bounds.
func validateTag(name string) error {
	if name == "" {
		return ErrEmptyTag
	}
	if len(name) < TagMinLength {
		return ErrTagTooShort
	}
	if len(name) > TagMaxLength {
		return ErrTagTooLong
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
