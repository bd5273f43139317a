// Package textcase implements the `upper`/`lower`/`title` intrinsics'
// Unicode-aware case conversion through golang.org/x/text/cases. The
// casers use language.Und, so no locale-specific rules (such as Turkish
// dotless i) are applied.
package textcase

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
	title = cases.Title(language.Und)
)

func Upper(s string) string { return upper.String(s) }
func Lower(s string) string { return lower.String(s) }
func Title(s string) string { return title.String(s) }
