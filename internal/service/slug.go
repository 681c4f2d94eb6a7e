package service

import (
	"fmt"
	"strings"
	"unicode"
)

// Slugify lowercases the name and collapses every run of
// non-alphanumeric characters into a single hyphen. ASCII-safe output;
// characters outside a-z0-9 never survive.
func Slugify(name string) string {
	var b strings.Builder
	pendingHyphen := false

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			// Non-ASCII letters and digits are transliterated to a
			// hyphen rather than dropped silently mid-word.
			pendingHyphen = true
		default:
			pendingHyphen = true
		}
	}

	return b.String()
}

// AllocateSlug derives the stable public identifier for a node. The ID
// suffix makes the result globally unique without any lookup; a name
// that slugifies to nothing still gets a usable slug.
func AllocateSlug(name string, id int64) string {
	base := Slugify(name)
	if base == "" {
		return fmt.Sprintf("d-%d", id)
	}
	return fmt.Sprintf("%s-%d", base, id)
}
