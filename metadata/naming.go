package metadata

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	snakeRe1 = regexp.MustCompile("([a-z0-9])([A-Z])")
	snakeRe2 = regexp.MustCompile("([A-Z])([A-Z][a-z])")
)

// CamelToSnakeCase converts camelCase or PascalCase to snake_case, handling
// acronym runs like "XMLHttpRequest" -> "xml_http_request".
func CamelToSnakeCase(input string) string {
	if input == "" {
		return ""
	}
	result := snakeRe1.ReplaceAllString(input, "${1}_${2}")
	result = snakeRe2.ReplaceAllString(result, "${1}_${2}")
	return strings.ToLower(result)
}

// Pluralize applies simple English pluralization rules for default table
// naming.
func Pluralize(word string) string {
	if word == "" {
		return word
	}
	word = strings.ToLower(word)

	switch {
	case strings.HasSuffix(word, "s"), strings.HasSuffix(word, "x"),
		strings.HasSuffix(word, "z"), strings.HasSuffix(word, "ch"),
		strings.HasSuffix(word, "sh"):
		return word + "es"
	case strings.HasSuffix(word, "y") && len(word) > 1 && !isVowel(rune(word[len(word)-2])):
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(word, "fe"):
		return word[:len(word)-2] + "ves"
	case strings.HasSuffix(word, "f"):
		return word[:len(word)-1] + "ves"
	default:
		return word + "s"
	}
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	default:
		return false
	}
}

// DefaultTableName derives a table name from a Go type's short name.
func DefaultTableName(shortName string) string {
	return Pluralize(CamelToSnakeCase(shortName))
}
