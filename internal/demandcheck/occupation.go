package demandcheck

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// titleNormalizer decomposes and strips combining marks so that
// "Bürokauffrau", "Burokauffrau" and "BÜROKAUFFRAU" all match the same
// catalogue entry.
var titleNormalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeJobTitle canonicalizes a free-text job title for occupation
// lookup: lowercase, diacritics stripped, whitespace collapsed.
func NormalizeJobTitle(title string) string {
	lowered := strings.ToLower(strings.TrimSpace(title))
	stripped, _, err := transform.String(titleNormalizer, lowered)
	if err != nil {
		stripped = lowered
	}
	stripped = strings.ReplaceAll(stripped, "ß", "ss")
	return strings.Join(strings.Fields(stripped), " ")
}
