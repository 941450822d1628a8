// Package slug derives URL-safe identifiers from free text.
package slug

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength leaves room for a numeric suffix inside a 255 char column.
const MaxLength = 200

// Make joins parts with "-" and reduces the result to lowercase ASCII letters,
// digits and single hyphens. Accents are folded ("Doação" becomes "doacao").
func Make(parts ...string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.Join(parts, "-"),
	)
	if err != nil {
		folded = strings.Join(parts, "-")
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}

	s := strings.TrimRight(b.String(), "-")
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}

// WithSuffix returns base for n <= 1 and "base-n" otherwise.
func WithSuffix(base string, n int) string {
	if n <= 1 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}
