package address

import (
	"regexp"
	"strings"
)

var (
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	// Leading street-type tokens as humans (and the mapping site) write them.
	streetPrefixRegex = regexp.MustCompile(`(?i)^(улица|ул\.?|проспект|пр-т|пр\.?|переулок|пер\.?|бульвар|б-р|шоссе|ш\.)\s+`)
)

// CleanText strips the non-breaking and zero-width characters the mapping
// site pads its text nodes with.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.ReplaceAll(text, "\u200b", "")
	return strings.TrimSpace(text)
}

// StripStreetPrefix removes a leading street-type token ("Улица", "ул." and
// friends) so "Улица Тимирязева" and "Тимирязева" compare equal.
func StripStreetPrefix(street string) string {
	return strings.TrimSpace(streetPrefixRegex.ReplaceAllString(strings.TrimSpace(street), ""))
}

// NormalizeStreet canonicalizes a street name for lookups: cleaned,
// prefix-stripped, lower-cased, single-spaced. Stored street values keep
// their original casing; only comparisons go through this.
func NormalizeStreet(street string) string {
	s := StripStreetPrefix(CleanText(street))
	s = strings.ToLower(s)
	return multiSpaceRegex.ReplaceAllString(s, " ")
}
