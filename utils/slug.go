package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	reHyphen   = regexp.MustCompile(`-+`)
)

// Slugify lower-cases s, strips diacritics ("Géométrie" -> "geometrie") and collapses
// every run of non-alphanumerics into a single hyphen. It may return "".
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	// Ligatures NFD leaves alone.
	s = strings.NewReplacer("œ", "oe", "æ", "ae", "ß", "ss").Replace(s)

	s = reNonAlnum.ReplaceAllString(s, "-")
	s = reHyphen.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
