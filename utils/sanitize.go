package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML post bodies to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// SanitizeText strips all markup, used for comments and category descriptions.
func SanitizeText(input string) string {
	return strings.TrimSpace(stripper.Sanitize(input))
}
