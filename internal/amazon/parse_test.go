package amazon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAsinFromURLExtractsDPForm(t *testing.T) {
	asin, ok := asinFromURL("https://www.amazon.co.uk/Example-Widget/dp/B0ABCDEFGH/ref=sr_1_1")
	require.True(t, ok)
	require.Equal(t, "B0ABCDEFGH", asin)
}

func TestAsinFromURLExtractsGPProductForm(t *testing.T) {
	asin, ok := asinFromURL("https://www.amazon.co.uk/gp/product/B0ABCDEFGH")
	require.True(t, ok)
	require.Equal(t, "B0ABCDEFGH", asin)
}

func TestAsinFromURLFalseWhenAbsent(t *testing.T) {
	_, ok := asinFromURL("https://www.amazon.co.uk/s?k=widget")
	require.False(t, ok)
}

func TestParseRatingExtractsNumericValue(t *testing.T) {
	rating, ok := parseRating("4.4 out of 5 stars")
	require.True(t, ok)
	require.Equal(t, 4.4, rating)
}

func TestParseRatingFalseWhenNoMatch(t *testing.T) {
	_, ok := parseRating("No ratings yet")
	require.False(t, ok)
}

func TestParseReviewCountStripsThousandsSeparator(t *testing.T) {
	count, ok := parseReviewCount("1,234 ratings")
	require.True(t, ok)
	require.Equal(t, 1234, count)
}

func TestInStockIndicatesAvailableFalseWhenOutOfStock(t *testing.T) {
	require.False(t, inStockIndicatesAvailable("Currently unavailable"))
	require.False(t, inStockIndicatesAvailable("Out of Stock"))
}

func TestInStockIndicatesAvailableTrueOtherwise(t *testing.T) {
	require.True(t, inStockIndicatesAvailable("In stock"))
}

func TestSoldByIndicatesAmazonTrueForAmazonSeller(t *testing.T) {
	require.True(t, soldByIndicatesAmazon("Ships from and sold by Amazon"))
}

func TestSoldByIndicatesAmazonFalseForThirdParty(t *testing.T) {
	require.False(t, soldByIndicatesAmazon("Sold by Third Party Seller Ltd"))
}
