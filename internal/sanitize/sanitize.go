// Package sanitize strips markup from user-supplied text before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

const maxPasses = 8

// Text removes every HTML element and trims surrounding space.
// Entity-encoded markup is decoded and stripped again until the text is stable.
func Text(s string) string {
	cur := s
	for i := 0; i < maxPasses; i++ {
		escaped := strict.Sanitize(cur)
		plain := html.UnescapeString(escaped)
		if plain == cur {
			return strings.TrimSpace(plain)
		}
		cur = plain
	}
	// still unstable: keep the escaped form, it cannot render as markup
	return strings.TrimSpace(strict.Sanitize(cur))
}
