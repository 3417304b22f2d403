// Package normalize canonicalizes user-supplied identifiers before they are
// stored or compared.
package normalize

import "strings"

// Email returns a normalized form of an email address suitable for
// storage and comparisons. Normalization currently trims surrounding
// whitespace and lower-cases the address.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// Filiere trims surrounding whitespace from a program code. Case is kept:
// program codes are not validated and distinct spellings map to distinct rooms.
func Filiere(f string) string {
	return strings.TrimSpace(f)
}

// DisplayName collapses runs of whitespace so names render on one line.
func DisplayName(n string) string {
	return strings.Join(strings.Fields(n), " ")
}
