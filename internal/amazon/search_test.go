package amazon

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestIsSponsoredDetectsVisibleText(t *testing.T) {
	require.True(t, isSponsored(searchTile{VisibleText: "Sponsored"}))
}

func TestIsSponsoredDetectsAriaLabel(t *testing.T) {
	require.True(t, isSponsored(searchTile{AriaLabel: "sponsored"}))
}

func TestIsSponsoredDetectsComponentType(t *testing.T) {
	require.True(t, isSponsored(searchTile{ComponentType: "sp-sponsored-result"}))
}

func TestIsSponsoredDetectsAdMarkerClass(t *testing.T) {
	require.True(t, isSponsored(searchTile{Classes: []string{"puis-sponsored-label-text"}}))
}

func TestIsSponsoredDetectsRegexFallback(t *testing.T) {
	require.True(t, isSponsored(searchTile{VisibleText: "This is an Advertisement"}))
}

func TestIsSponsoredFalseForOrdinaryTile(t *testing.T) {
	require.False(t, isSponsored(searchTile{VisibleText: "Example Widget, Pack of 4"}))
}

func TestCollectOrganicsStopsAtScanLimit(t *testing.T) {
	tiles := make([]searchTile, 0, 20)
	for i := 0; i < 20; i++ {
		tiles = append(tiles, searchTile{ASIN: "SPONSORED", VisibleText: "Sponsored"})
	}
	tiles = append(tiles, searchTile{ASIN: "ORGANIC-AFTER-LIMIT"})

	organics := collectOrganics(tiles)
	require.Empty(t, organics, "the one organic sits past the 15-candidate scan limit")
}

func TestCollectOrganicsStopsAtCollectLimit(t *testing.T) {
	tiles := make([]searchTile, 0, 6)
	for i := 0; i < 6; i++ {
		tiles = append(tiles, searchTile{ASIN: "ORGANIC"})
	}

	organics := collectOrganics(tiles)
	require.Len(t, organics, 5)
}

func TestDisambiguateSingleOrganicTakenAsIs(t *testing.T) {
	organics := []searchTile{{ASIN: "B01", Title: "Widget"}}
	outcome := disambiguate(organics, "Widget")
	require.Equal(t, "B01", outcome.ASIN)
	require.Empty(t, outcome.MatchConfidence)
}

func TestDisambiguateAcceptsHighestOverlapAboveThreshold(t *testing.T) {
	organics := []searchTile{
		{ASIN: "B01", Title: "Completely unrelated item"},
		{ASIN: "B02", Title: "Premium Widget Pack of 4"},
	}
	outcome := disambiguate(organics, "Premium Widget Pack of 4")
	require.Equal(t, "B02", outcome.ASIN)
	require.Empty(t, outcome.MatchConfidence)
}

func TestDisambiguateFlagsLowConfidenceBelowThreshold(t *testing.T) {
	organics := []searchTile{
		{ASIN: "B01", Title: "Totally different product name"},
		{ASIN: "B02", Title: "Another unrelated listing"},
	}
	outcome := disambiguate(organics, "Supplier Widget XYZ 500ml")
	require.Equal(t, "B01", outcome.ASIN)
	require.Equal(t, "low", outcome.MatchConfidence)
}

func TestDisambiguateNoOrganicsReturnsNil(t *testing.T) {
	require.Nil(t, disambiguate(nil, "anything"))
}

func TestSearchByEANDetectsDirectRedirect(t *testing.T) {
	page := newFakePage()
	selectors := Selectors{
		DirectProductMarkers: []Selector{Css("#dp-container")},
	}
	page.navigateResults["https://www.amazon.co.uk/s?k=5012345678900"] = NavigateResult{
		Event:    EventLoaded,
		FinalURL: "https://www.amazon.co.uk/dp/B0DIRECT01",
	}
	page.selectResults["#dp-container"] = []Element{"dp-root"}

	e := New(page, selectors, zerolog.Nop())
	outcome, err := e.SearchByEAN(t.Context(), "5012345678900", "Example Widget")

	require.NoError(t, err)
	require.NotNil(t, outcome)
	require.True(t, outcome.DirectRedirect)
	require.Equal(t, "B0DIRECT01", outcome.ASIN)
}
