package record

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// caser does Unicode-aware lowercasing so non-ASCII offer and product
// names (accented produce names, non-English program names) fold the
// same way a human reader would expect, not just byte-wise ASCII
// lowercasing.
var caser = cases.Lower(language.Und)

func foldLower(s string) string {
	if s == "" {
		return s
	}
	return caser.String(s)
}
