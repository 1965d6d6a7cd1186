// Package convention derives names from minimal model definitions:
// table names, collection paths and route parameter names.
package convention

import (
	"strings"
	"unicode"
)

// TableName returns the default table for a model name: snake case, plural.
func TableName(model string) string {
	return Pluralize(SnakeCase(model))
}

// CollectionPath returns the default collection path for a model name.
func CollectionPath(model string) string {
	return "/" + strings.ReplaceAll(TableName(model), "_", "-")
}

// SnakeCase converts "BlogPost" or "blog-post" to "blog_post".
func SnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '-' || r == ' ':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 && s[i-1] != '_' && s[i-1] != '-' {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
