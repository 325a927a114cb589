// Package amazon implements the C6 Amazon extractor interface:
// ASIN/EAN/title lookup, the navigate-stabilize-extract state
// machine, sponsored-result filtering, EAN disambiguation, and Keepa
// iframe grid parsing (spec §4.5), against an injected Page
// collaborator, modeled on the EmbeddingProvider dependency-injection
// shape in internal/matching/embedding.go — browser automation itself
// (navigation, CAPTCHA solving, cookie dismissal) is out of scope and
// lives behind this interface.
package amazon

import "context"

// Element is an opaque handle to a matched DOM node, mirroring
// internal/supplier.Element (spec §9's "explicit handles" note).
type Element interface{}

// EventKind names the page-load events a Page reports back to the
// state machine (spec §4.5's NAVIGATE state transitions).
type EventKind int

const (
	EventLoaded EventKind = iota
	EventCaptcha
	EventCookieBanner
)

// NavigateResult is what Navigate reports after loading url.
type NavigateResult struct {
	Event      EventKind
	FinalURL   string // after any redirect (spec §4.5's "direct product redirect").
	StatusCode int
}

// Page is the injected browser collaborator for one Amazon lookup.
type Page interface {
	Navigate(ctx context.Context, url string) (NavigateResult, error)

	// SolveCaptcha attempts an AI-assisted captcha solve; ok is false
	// when no solver is configured or the solve failed.
	SolveCaptcha(ctx context.Context) (ok bool)

	// DismissCookieBanner clicks through a cookie-consent banner if
	// present; ok is false when none was found.
	DismissCookieBanner(ctx context.Context) (ok bool)

	Select(sel Selector, within Element) ([]Element, error)
	Text(el Element) (string, error)
	AttrValue(el Element, name string) (string, error)

	// HasIframe reports whether an iframe matching sel is present on
	// the current page (used to detect the Keepa overlay).
	HasIframe(sel Selector) bool

	// WaitFor polls for sel to appear within budget, returning false
	// on timeout.
	WaitFor(ctx context.Context, sel Selector, budgetSeconds int) bool
}

// SelectorKind mirrors internal/supplier.SelectorKind.
type SelectorKind int

const (
	SelectorCss SelectorKind = iota
	SelectorXpath
)

// Selector is the tagged Css(string)|Xpath(string) selector variant
// used by the Amazon extractor (spec §9's typed-selector design
// note).
type Selector struct {
	Kind  SelectorKind
	Query string
}

func Css(query string) Selector   { return Selector{Kind: SelectorCss, Query: query} }
func Xpath(query string) Selector { return Selector{Kind: SelectorXpath, Query: query} }
