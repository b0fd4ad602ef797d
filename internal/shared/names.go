package shared

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// NameLanguage is the locale used to order product and outlet names.
var NameLanguage = language.Indonesian

// NameCollator returns a collator for display-name ordering. Collators keep
// internal buffers, so callers create one per sort instead of sharing it.
func NameCollator() *collate.Collator {
	return collate.New(NameLanguage, collate.IgnoreCase, collate.Numeric)
}

// CompareNames orders two display names with c, falling back to a byte
// comparison when the collator considers them equal.
func CompareNames(c *collate.Collator, a, b string) int {
	if r := c.CompareString(a, b); r != 0 {
		return r
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
