package amazon

import "context"

// fakePage is an in-memory Page test double keyed by selector query
// string, mirroring internal/supplier's fakePage test double.
type fakePage struct {
	navigateResults map[string]NavigateResult
	selectResults   map[string][]Element
	textValues      map[Element]string
	attrValues      map[string]string // keyed by "<elementKey>|<attrName>".
	hasIframe       bool
	waitForResult   bool
	waitForResults  []bool // when set, consumed in order across successive WaitFor calls.
	solveCaptchaOK  bool
	dismissBannerOK bool

	navigateCalls []string
	waitForCalls  int
}

func newFakePage() *fakePage {
	return &fakePage{
		navigateResults: map[string]NavigateResult{},
		selectResults:   map[string][]Element{},
		textValues:      map[Element]string{},
		attrValues:      map[string]string{},
	}
}

func (f *fakePage) Navigate(_ context.Context, url string) (NavigateResult, error) {
	f.navigateCalls = append(f.navigateCalls, url)
	if result, ok := f.navigateResults[url]; ok {
		return result, nil
	}
	return NavigateResult{Event: EventLoaded, FinalURL: url}, nil
}

func (f *fakePage) SolveCaptcha(_ context.Context) bool { return f.solveCaptchaOK }

func (f *fakePage) DismissCookieBanner(_ context.Context) bool { return f.dismissBannerOK }

func (f *fakePage) Select(sel Selector, _ Element) ([]Element, error) {
	return f.selectResults[sel.Query], nil
}

func (f *fakePage) Text(el Element) (string, error) {
	return f.textValues[el], nil
}

func (f *fakePage) AttrValue(el Element, name string) (string, error) {
	key, _ := el.(string)
	return f.attrValues[key+"|"+name], nil
}

func (f *fakePage) HasIframe(_ Selector) bool { return f.hasIframe }

func (f *fakePage) WaitFor(_ context.Context, _ Selector, _ int) bool {
	defer func() { f.waitForCalls++ }()
	if f.waitForCalls < len(f.waitForResults) {
		return f.waitForResults[f.waitForCalls]
	}
	return f.waitForResult
}
