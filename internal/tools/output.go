package tools

import "unicode/utf8"

// MaxDisplayOutput caps command output shown to a person or a model.
const MaxDisplayOutput = 4000

// TruncateOutput shortens text to max bytes, on a rune boundary, and marks the
// cut.
func TruncateOutput(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n... (output truncated)"
}
