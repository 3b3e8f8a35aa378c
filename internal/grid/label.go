package grid

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Humanize turns a field name into a header label: "createdAt", "created_at" and
// "created-at" all become "Created At".
func Humanize(field string) string {
	runes := []rune(field)
	var sb strings.Builder
	for i, r := range runes {
		if r == '_' || r == '-' || r == '.' {
			sb.WriteRune(' ')
			continue
		}
		if i > 0 && wordStart(runes, i) {
			sb.WriteRune(' ')
		}
		sb.WriteRune(r)
	}
	words := strings.Fields(strings.ToLower(sb.String()))
	// Casers keep state, so each call gets its own.
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

func wordStart(runes []rune, i int) bool {
	r, prev := runes[i], runes[i-1]
	switch {
	case unicode.IsDigit(r):
		return !unicode.IsDigit(prev)
	case unicode.IsUpper(r):
		if unicode.IsLower(prev) || unicode.IsDigit(prev) {
			return true
		}
		// End of an acronym: "HTTPServer" splits before "Server".
		return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
	}
	return false
}
