package supplier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExplicitPatternNextURL(t *testing.T) {
	cfg := PaginationConfig{URLPattern: "https://example.com/cat?p={page_num}"}
	u, ok := GetNextPageURL(cfg, nil, "https://example.com/cat?p=1", 1)
	require.True(t, ok)
	require.Equal(t, "https://example.com/cat?p=2", u)
}

func TestInferNextPageURLFromQueryParam(t *testing.T) {
	u, ok := inferNextPageURL("https://example.com/cat?page=3&sort=asc", 4)
	require.True(t, ok)
	require.Equal(t, "https://example.com/cat?page=4&sort=asc", u)
}

func TestInferNextPageURLFromPathSegment(t *testing.T) {
	u, ok := inferNextPageURL("https://example.com/cat/page/2/", 3)
	require.True(t, ok)
	require.Equal(t, "https://example.com/cat/page/3/", u)
}

func TestInferNextPageURLAvoidsFourDigitYear(t *testing.T) {
	u, ok := inferNextPageURL("https://example.com/archive/2024", 2025)
	require.True(t, ok)
	// Must not rewrite the year as a page number; falls through to
	// the query-param last resort instead.
	require.Equal(t, "https://example.com/archive/2024?page=2025", u)
}

func TestInferNextPageURLTrailingNumericSegment(t *testing.T) {
	u, ok := inferNextPageURL("https://example.com/cat/5", 6)
	require.True(t, ok)
	require.Equal(t, "https://example.com/cat/6", u)
}

func TestNextButtonURLPrefersConfiguredSelector(t *testing.T) {
	el := "next-link-element"
	page := &fakePage{
		selectResults: map[string][]Element{"a.next": {el}},
		attrValues:    map[Element]map[string]string{el: {"href": "/cat?page=7"}},
	}

	u, ok := nextButtonURL([]Selector{Css("a.next")}, page)
	require.True(t, ok)
	require.Equal(t, "/cat?page=7", u)
}
