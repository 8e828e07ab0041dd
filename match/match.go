// Package match decides whether an element's text names an automation
// target. Matching is plain substring containment on trimmed text.
package match

import "strings"

// Any reports whether some pattern is contained in the trimmed text.
// An empty pattern set or blank text never matches.
func Any(text string, patterns []string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Prefix reports whether the trimmed text starts with marker and returns
// the trimmed remainder.
func Prefix(text, marker string) (string, bool) {
	text = strings.TrimSpace(text)
	if marker == "" || !strings.HasPrefix(text, marker) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(text, marker)), true
}
