// Package slug derives URL-safe identifiers from display names.
package slug

import "strings"

// Make lowercases s, collapses every run of characters outside [a-z0-9] into a
// single '-' and trims leading and trailing separators. Make is idempotent.
func Make(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
