package supplier

import "context"

// fakePage is a minimal in-memory Page test double keyed by selector
// query string, avoiding the need for a real DOM/browser dependency
// in unit tests.
type fakePage struct {
	selectResults map[string][]Element
	textValues    map[Element]string
	attrValues    map[Element]map[string]string
	navigateBody  []byte
	navigateCode  int
}

func (p *fakePage) Navigate(_ context.Context, _ string) ([]byte, int, string, error) {
	code := p.navigateCode
	if code == 0 {
		code = 200
	}
	return p.navigateBody, code, "", nil
}

func (p *fakePage) Select(sel Selector, _ Element) ([]Element, error) {
	return p.selectResults[sel.Query], nil
}

func (p *fakePage) Text(el Element) (string, error) {
	return p.textValues[el], nil
}

func (p *fakePage) AttrValue(el Element, name string) (string, error) {
	if m, ok := p.attrValues[el]; ok {
		return m[name], nil
	}
	return "", nil
}
