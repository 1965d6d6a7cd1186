package convention

import "strings"

// Pluralize returns the plural form of a word using simple English rules.
// For snake_case input only the last word is pluralized.
func Pluralize(word string) string {
	if word == "" {
		return ""
	}
	if i := strings.LastIndexByte(word, '_'); i >= 0 && i < len(word)-1 {
		return word[:i+1] + Pluralize(word[i+1:])
	}

	if plural, ok := irregularPlurals[strings.ToLower(word)]; ok {
		if word[0] >= 'A' && word[0] <= 'Z' {
			return strings.ToUpper(plural[:1]) + plural[1:]
		}
		return plural
	}

	lower := strings.ToLower(word)

	// sibilants take 'es'
	if strings.HasSuffix(lower, "s") ||
		strings.HasSuffix(lower, "x") ||
		strings.HasSuffix(lower, "z") ||
		strings.HasSuffix(lower, "ch") ||
		strings.HasSuffix(lower, "sh") {
		return word + "es"
	}

	// consonant + 'y' → 'ies'
	if strings.HasSuffix(lower, "y") && len(word) > 1 {
		secondLast := lower[len(lower)-2]
		if !isVowel(rune(secondLast)) {
			return word[:len(word)-1] + "ies"
		}
	}

	// Words ending in 'f' or 'fe' → change to 'ves'
	if strings.HasSuffix(lower, "f") {
		return word[:len(word)-1] + "ves"
	}
	if strings.HasSuffix(lower, "fe") {
		return word[:len(word)-2] + "ves"
	}

	// Default: add 's'
	return word + "s"
}

// isVowel returns true if the rune is a vowel.
func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	default:
		return false
	}
}

// Common irregular plurals.
var irregularPlurals = map[string]string{
	"person":   "people",
	"man":      "men",
	"woman":    "women",
	"child":    "children",
	"foot":     "feet",
	"tooth":    "teeth",
	"goose":    "geese",
	"mouse":    "mice",
	"ox":       "oxen",
	"index":    "indices",
	"matrix":   "matrices",
	"vertex":   "vertices",
	"analysis": "analyses",
	"crisis":   "crises",
	"thesis":   "theses",
	"datum":    "data",
	"medium":   "media",
	"schema":   "schemas",
	"status":   "statuses",
}
