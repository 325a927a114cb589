package supplier

import "context"

// Element is an opaque handle to one matched node within a Page,
// passed back into Page methods for further selector evaluation
// (spec §9's "explicit handles" design note — no global mutable DOM
// singleton).
type Element interface{}

// Page is the injected browser/DOM collaborator. Concrete
// implementations (headless browser, HTML parser) live outside this
// package's scope — browser automation, login, and CAPTCHA solving
// are explicitly out of scope for the scraper interface itself (spec
// §4.4 lists only the operations below).
type Page interface {
	// Navigate loads url into the page, returning the raw response
	// body for response-sanity checks.
	Navigate(ctx context.Context, url string) (body []byte, statusCode int, retryAfter string, err error)

	// Select evaluates a selector against the current page (or,
	// when within is non-nil, scoped to that element) and returns
	// every matching element.
	Select(sel Selector, within Element) ([]Element, error)

	// Text returns an element's rendered text content.
	Text(el Element) (string, error)

	// AttrValue returns the named attribute's value on el.
	AttrValue(el Element, name string) (string, error)
}

// AICallback is the bounded HTML-context fallback invoked when every
// configured selector for a field yields nothing (spec §4.4's
// "selector fallback"). Returns ("", false) when the AI cannot
// determine a value.
type AICallback interface {
	ExtractField(ctx context.Context, fieldName string, htmlContext string) (value string, ok bool)
}

// maxAIHTMLContextChars bounds the HTML context sent to the AI
// callback, per spec §4.4.
const maxAIHTMLContextChars = 6000
