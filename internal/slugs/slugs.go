// Package slugs turns free text into safe identifier and filename fragments.
package slugs

import (
	"strings"

	goslug "github.com/gosimple/slug"
)

// Component converts s to a lowercase slug usable as a filename or ID
// fragment. A trailing ".md" is dropped.
func Component(s string) string {
	s = strings.TrimSuffix(s, ".md")
	slugged := goslug.Make(s)
	if slugged == "" {
		slugged = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "-"))
	}
	return slugged
}

// Compact is Component with dashes removed, for prefixes that sit in front
// of a separator of their own.
func Compact(s string) string {
	return strings.ReplaceAll(Component(s), "-", "")
}
