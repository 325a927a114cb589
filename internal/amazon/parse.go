package amazon

import (
	"regexp"
	"strconv"
	"strings"
)

// asinPattern mirrors domain.ValidASIN's pattern, used here to pull
// an ASIN out of a redirected URL (spec §4.5's "direct product
// redirect" behaviour).
var asinURLPattern = regexp.MustCompile(`/(?:dp|gp/product)/([A-Z0-9]{10})`)

func asinFromURL(u string) (string, bool) {
	m := asinURLPattern.FindStringSubmatch(u)
	if m == nil {
		return "", false
	}
	return m[1], true
}

var ratingPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:out of|von|sur)`)

// parseRating extracts the numeric rating from text like "4.4 out of
// 5 stars" (regex applied to an already-extracted string only, per
// spec §9's parsing-restriction note).
func parseRating(text string) (float64, bool) {
	m := ratingPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var nonDigitComma = regexp.MustCompile(`[^\d,]`)

// parseReviewCount extracts an integer review count from text like
// "1,234 ratings".
func parseReviewCount(text string) (int, bool) {
	cleaned := nonDigitComma.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, false
	}
	return v, true
}

func inStockIndicatesAvailable(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "out of stock") || strings.Contains(lower, "currently unavailable") {
		return false
	}
	return true
}

func soldByIndicatesAmazon(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "sold by amazon") || strings.Contains(lower, "ships from and sold by amazon")
}
