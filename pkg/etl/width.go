package etl

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// foldWidth implements normalization step 5: full-width→half-width folding
// (U+FF01..U+FF5E → U+0021..U+007E, U+3000→space), then whitespace-run
// collapsing, then trim.
func foldWidth(s string) string {
	folded := width.Fold.String(s)

	var b strings.Builder
	b.Grow(len(folded))
	lastWasSpace := false
	for _, r := range folded {
		if r == '　' {
			r = ' '
		}
		if unicode.IsSpace(r) {
			if lastWasSpace {
				continue
			}
			lastWasSpace = true
			b.WriteRune(' ')
			continue
		}
		lastWasSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
