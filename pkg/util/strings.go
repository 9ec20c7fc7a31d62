package util

import "strings"

// NormalizeLabel lowercases and trims a free-form label such as a risk level.
func NormalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
