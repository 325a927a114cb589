package supplier

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PaginationConfig names the supplier-specific pagination strategy
// inputs (spec §4.4's three-strategy resolution order). An empty
// config falls through to strategy (c), URL inference.
type PaginationConfig struct {
	// URLPattern is an explicit pattern containing the literal
	// placeholder "{page_num}" (strategy a).
	URLPattern string

	// NextButtonSelectors, tried in order, locate a next-page link
	// element on the current page (strategy b).
	NextButtonSelectors []Selector
}

// fourDigitYear avoids treating a URL's trailing numeric segment as a
// page number when it looks like a year (spec §4.4's "avoiding
// four-digit year matches").
var fourDigitYear = regexp.MustCompile(`^(19|20)\d{2}$`)

var queryPagePattern = regexp.MustCompile(`([?&])page=(\d+)`)
var pathPagePattern = regexp.MustCompile(`/page/(\d+)/?`)
var trailingNumericSegment = regexp.MustCompile(`/(\d+)(/?)$`)

// GetNextPageURL implements the three pagination strategies in order,
// returning ("", false) when none apply.
func GetNextPageURL(cfg PaginationConfig, page Page, currentURL string, pageNum int) (string, bool) {
	if u, ok := explicitPatternNextURL(cfg.URLPattern, pageNum+1); ok {
		return u, true
	}

	if u, ok := nextButtonURL(cfg.NextButtonSelectors, page); ok {
		return u, true
	}

	return inferNextPageURL(currentURL, pageNum+1)
}

// explicitPatternNextURL substitutes {page_num} into an explicit
// config-provided URL pattern (strategy a).
func explicitPatternNextURL(pattern string, nextPageNum int) (string, bool) {
	if pattern == "" || !strings.Contains(pattern, "{page_num}") {
		return "", false
	}
	return strings.ReplaceAll(pattern, "{page_num}", strconv.Itoa(nextPageNum)), true
}

// nextButtonURL evaluates configured next-button selectors against
// the current page and returns the href of the first match (strategy
// b).
func nextButtonURL(selectors []Selector, page Page) (string, bool) {
	if page == nil {
		return "", false
	}
	for _, sel := range selectors {
		elements, err := page.Select(sel, nil)
		if err != nil || len(elements) == 0 {
			continue
		}
		href, err := page.AttrValue(elements[0], "href")
		if err == nil && href != "" {
			return href, true
		}
	}
	return "", false
}

// inferNextPageURL rewrites a ?page=N query param, a /page/N/ path
// segment, or a trailing numeric path segment, whichever is found
// first, skipping any match that looks like a four-digit year
// (strategy c).
func inferNextPageURL(currentURL string, nextPageNum int) (string, bool) {
	if m := queryPagePattern.FindStringSubmatchIndex(currentURL); m != nil {
		matched := currentURL[m[4]:m[5]]
		if !fourDigitYear.MatchString(matched) {
			return queryPagePattern.ReplaceAllString(currentURL, fmt.Sprintf("${1}page=%d", nextPageNum)), true
		}
	}

	if m := pathPagePattern.FindStringSubmatch(currentURL); m != nil {
		if !fourDigitYear.MatchString(m[1]) {
			return pathPagePattern.ReplaceAllString(currentURL, fmt.Sprintf("/page/%d/", nextPageNum)), true
		}
	}

	if m := trailingNumericSegment.FindStringSubmatch(currentURL); m != nil {
		if !fourDigitYear.MatchString(m[1]) {
			return trailingNumericSegment.ReplaceAllString(currentURL, fmt.Sprintf("/%d${2}", nextPageNum)), true
		}
	}

	// No recognizable pagination pattern and no explicit/next-button
	// strategy matched: append a page query param as a last resort.
	sep := "?"
	if strings.Contains(currentURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", currentURL, sep, nextPageNum), true
}
