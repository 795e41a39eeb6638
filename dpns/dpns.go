// Package dpns implements the DPNS contention rule: whether a
// normalized label falls into Platform's "contested" name window,
// which requires an auction rather than an immediate registration.
package dpns

import "strings"

// NormalizeLabel lowercases label and folds the characters DPNS
// treats as visually ambiguous: o -> 0, i and l -> 1.
func NormalizeLabel(label string) string {
	lower := strings.ToLower(label)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch r {
		case 'o':
			b.WriteRune('0')
		case 'i', 'l':
			b.WriteRune('1')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsContested reports whether the normalized label L is in Platform's
// contested-name window: 3-19 characters, drawn only from
// [a-z0-9-], and containing no digit 2-9.
func IsContested(normalizedLabel string) bool {
	if len(normalizedLabel) < 3 || len(normalizedLabel) > 19 {
		return false
	}
	for _, r := range normalizedLabel {
		switch {
		case r >= 'a' && r <= 'z':
		case r == '0' || r == '1':
		case r == '-':
		case r >= '2' && r <= '9':
			return false
		default:
			return false
		}
	}
	return true
}
