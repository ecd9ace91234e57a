package wines

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug lower-cases s, drops accents and joins words with dashes.
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// NewID derives a wine id from brand and winery plus a base36 time suffix.
// Ids never change after creation.
func NewID(brand, winery string, now time.Time) string {
	parts := make([]string, 0, 3)
	if s := Slug(brand); s != "" {
		parts = append(parts, s)
	}
	if s := Slug(winery); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, strconv.FormatInt(now.UnixMilli(), 36))
	return strings.Join(parts, "-")
}
