// Package supplier implements the C5 supplier scraper interface:
// category/subpage discovery, rate-limited retrying fetch, selector
// evaluation, pagination resolution, and identifier extraction (spec
// §4.4). Parsing is selector-first per spec §9's design note — regex
// is restricted to normalizing already-extracted strings (prices,
// identifiers), never to parsing raw HTML, which is why the actual
// DOM walk is delegated to an injected Page collaborator rather than
// done with the teacher's regex-over-raw-HTML approach in
// internal/adapters/discovery/html.go.
package supplier

// SelectorKind distinguishes the tagged Selector variants (spec §9's
// "Dynamic selector config -> typed variants" design note).
type SelectorKind int

const (
	SelectorCss SelectorKind = iota
	SelectorXpath
	SelectorAttr
)

// Selector is the tagged union Css(string) | Xpath(string) |
// Attr(string, string). AttrName is only meaningful when Kind ==
// SelectorAttr.
type Selector struct {
	Kind     SelectorKind
	Query    string
	AttrName string
}

// Css builds a CSS-selector variant.
func Css(query string) Selector { return Selector{Kind: SelectorCss, Query: query} }

// Xpath builds an XPath-selector variant.
func Xpath(query string) Selector { return Selector{Kind: SelectorXpath, Query: query} }

// Attr builds an attribute-extraction variant: evaluate query, then
// read attrName off the matched element.
func Attr(query, attrName string) Selector {
	return Selector{Kind: SelectorAttr, Query: query, AttrName: attrName}
}

// FieldSelectors is the per-field selector list a supplier config
// supplies, tried in order until one yields a non-empty value (spec
// §4.4's "selector fallback").
type FieldSelectors struct {
	Title      []Selector
	Price      []Selector
	URL        []Selector
	Image      []Selector
	Identifier []Selector
}
