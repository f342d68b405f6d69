package validators

import "strings"

// SanitizeString trims input and caps it at maxLen runes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 {
		runes := []rune(trimmed)
		if len(runes) > maxLen {
			return string(runes[:maxLen])
		}
	}
	return trimmed
}

// SanitizeCode normalises identifiers such as SKUs and order numbers.
func SanitizeCode(input string, maxLen int) string {
	return strings.ToUpper(SanitizeString(input, maxLen))
}
