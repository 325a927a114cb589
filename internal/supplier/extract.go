package supplier

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chri75252/simpler-fba-sub003/internal/matching"
)

// nonPriceChars strips everything but digits, '.', and ',' ahead of
// price parsing (spec §9: regex restricted to normalizing
// already-extracted strings).
var nonPriceChars = regexp.MustCompile(`[^0-9.,]`)

// ExtractProductElements runs the supplier's product-tile selectors
// against a category/listing page and returns one Element per
// product tile.
func ExtractProductElements(ctx context.Context, page Page, tileSelector Selector) ([]Element, error) {
	return page.Select(tileSelector, nil)
}

// evaluateFirst tries each selector in order against el (or the whole
// page, when el is nil) and returns the first non-empty rendered
// text.
func evaluateFirst(page Page, el Element, selectors []Selector) (string, bool) {
	for _, sel := range selectors {
		matches, err := page.Select(sel, el)
		if err != nil || len(matches) == 0 {
			continue
		}
		var value string
		if sel.Kind == SelectorAttr {
			value, err = page.AttrValue(matches[0], sel.AttrName)
		} else {
			value, err = page.Text(matches[0])
		}
		if err != nil {
			continue
		}
		value = strings.TrimSpace(value)
		if value != "" {
			return value, true
		}
	}
	return "", false
}

// withAIFallback tries the selectors first, and when every selector
// yields nothing, invokes ai (if configured) with a bounded HTML
// context, per spec §4.4's "selector fallback".
func withAIFallback(ctx context.Context, page Page, el Element, selectors []Selector, fieldName string, htmlContext string, ai AICallback) (string, bool) {
	if v, ok := evaluateFirst(page, el, selectors); ok {
		return v, true
	}
	if ai == nil {
		return "", false
	}
	bounded := htmlContext
	if len(bounded) > maxAIHTMLContextChars {
		bounded = bounded[:maxAIHTMLContextChars]
	}
	return ai.ExtractField(ctx, fieldName, bounded)
}

// ExtractTitle extracts a product title from el.
func ExtractTitle(ctx context.Context, page Page, el Element, selectors []Selector, htmlContext string, ai AICallback) (string, bool) {
	return withAIFallback(ctx, page, el, selectors, "title", htmlContext, ai)
}

// ExtractPrice extracts and parses a product price from el. The
// returned decimal is nil when no selector (and no AI fallback)
// produced a parseable value.
func ExtractPrice(ctx context.Context, page Page, el Element, selectors []Selector, htmlContext string, ai AICallback) (*decimal.Decimal, bool) {
	raw, ok := withAIFallback(ctx, page, el, selectors, "price", htmlContext, ai)
	if !ok {
		return nil, false
	}
	cleaned := nonPriceChars.ReplaceAllString(raw, "")
	cleaned = normalizeDecimalSeparator(cleaned)
	if cleaned == "" {
		return nil, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil, false
	}
	return &d, true
}

// normalizeDecimalSeparator collapses thousands separators and
// converts a trailing comma-decimal to a dot-decimal, handling both
// "1,234.56" and "1.234,56" shapes.
func normalizeDecimalSeparator(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma > lastDot:
		// comma is the decimal separator; dots (if any) are thousands.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot > lastComma:
		// dot is the decimal separator; commas (if any) are thousands.
		s = strings.ReplaceAll(s, ",", "")
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	return s
}

// ExtractURL extracts a product detail URL from el, resolving it
// against baseURL when relative.
func ExtractURL(ctx context.Context, page Page, el Element, selectors []Selector, baseURL string, htmlContext string, ai AICallback) (string, bool) {
	raw, ok := withAIFallback(ctx, page, el, selectors, "url", htmlContext, ai)
	if !ok {
		return "", false
	}
	return resolveURL(raw, baseURL), true
}

// ExtractImage extracts a product image URL from el, resolving it
// against baseURL when relative.
func ExtractImage(ctx context.Context, page Page, el Element, selectors []Selector, baseURL string, htmlContext string, ai AICallback) (string, bool) {
	raw, ok := withAIFallback(ctx, page, el, selectors, "image", htmlContext, ai)
	if !ok {
		return "", false
	}
	return resolveURL(raw, baseURL), true
}

// ExtractIdentifier extracts a supplier product identifier (EAN/UPC)
// from el: tries each selector in order, normalizing to digits-only
// and checking the accepted-length set, and takes the first accepted
// value (spec §4.4's "identifier extraction").
func ExtractIdentifier(ctx context.Context, page Page, el Element, selectors []Selector, htmlContext string, ai AICallback) (string, bool) {
	for _, sel := range selectors {
		matches, err := page.Select(sel, el)
		if err != nil || len(matches) == 0 {
			continue
		}
		var raw string
		if sel.Kind == SelectorAttr {
			raw, err = page.AttrValue(matches[0], sel.AttrName)
		} else {
			raw, err = page.Text(matches[0])
		}
		if err != nil {
			continue
		}
		if digits, ok := matching.NormalizeIdentifierDigits(raw); ok {
			return digits, true
		}
	}

	if ai == nil {
		return "", false
	}
	bounded := htmlContext
	if len(bounded) > maxAIHTMLContextChars {
		bounded = bounded[:maxAIHTMLContextChars]
	}
	raw, ok := ai.ExtractField(ctx, "identifier", bounded)
	if !ok {
		return "", false
	}
	return matching.NormalizeIdentifierDigits(raw)
}

// resolveURL resolves href against baseURL when href is not already
// absolute, mirroring internal/adapters/discovery/html.go's
// resolveURL.
func resolveURL(href, baseURL string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base := strings.TrimRight(baseURL, "/")
	if strings.HasPrefix(href, "/") {
		return schemeHost(baseURL) + href
	}
	return base + "/" + href
}

// schemeHost extracts "scheme://host" from a URL string.
func schemeHost(u string) string {
	idx := strings.Index(u, "://")
	if idx < 0 {
		return u
	}
	rest := u[idx+3:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return u[:idx+3] + rest
}
