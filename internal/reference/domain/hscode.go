package domain

import "strings"

// NormalizeHS6 strips separators and truncates national tariff lines to the
// 6-digit HS subheading. It reports false for anything that is not at least
// six digits.
func NormalizeHS6(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == ' ' || r == '-':
		default:
			return "", false
		}
	}
	digits := b.String()
	if len(digits) < 6 {
		return "", false
	}
	return digits[:6], true
}

// HSPrefixes returns the 2-, 4- and 6-digit prefixes of a normalized hs6.
func HSPrefixes(hs6 string) []string {
	if len(hs6) < 6 {
		return nil
	}
	return []string{hs6[:2], hs6[:4], hs6[:6]}
}

// Chapter returns the 2-digit HS chapter.
func Chapter(hs6 string) string {
	if len(hs6) < 2 {
		return ""
	}
	return hs6[:2]
}
