package masking

import "strings"

// Unmask replaces every occurrence of each mapping key in text with its
// original value. Placeholder tokens are opaque here: keys are matched as
// literal strings, so replacement order across keys cannot matter (no
// placeholder is a substring of another). Unknown tokens and an empty mapping
// both leave text untouched.
func Unmask(text string, mappings map[string]string) string {
	for placeholder, original := range mappings {
		text = strings.ReplaceAll(text, placeholder, original)
	}
	return text
}
