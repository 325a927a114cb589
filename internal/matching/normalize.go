package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics folds accented characters (Croatian č/ć/đ/š/ž and the
// general Latin diacritic range) down to their plain-ASCII equivalents,
// so supplier and Amazon titles compare on the same token alphabet
// regardless of which side used accented spelling.
func RemoveDiacritics(s string) string {
	replacer := strings.NewReplacer(
		"č", "c", "Č", "C",
		"ć", "c", "Ć", "C",
		"đ", "dj", "Đ", "Dj",
		"š", "s", "Š", "S",
		"ž", "z", "Ž", "Z",
	)
	s = replacer.Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}
