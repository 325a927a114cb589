package amazon

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chri75252/simpler-fba-sub003/internal/domain"
)

func TestExtractKeepaNoopWhenNoIframe(t *testing.T) {
	page := newFakePage()
	page.hasIframe = false

	e := New(page, Selectors{}, zerolog.Nop())
	product := &domain.AmazonProduct{}
	e.extractKeepa(t.Context(), product)

	require.Nil(t, product.Keepa)
	require.Empty(t, product.Status)
}

func TestExtractKeepaSetsTimeoutSentinelWhenGridNeverAppears(t *testing.T) {
	page := newFakePage()
	page.hasIframe = true
	page.waitForResult = false

	e := New(page, Selectors{KeepaGridRows: Css("[role=row]")}, zerolog.Nop())
	product := &domain.AmazonProduct{}
	e.extractKeepa(t.Context(), product)

	require.Equal(t, statusProductDetailsTabTimeout, product.Status)
	require.Nil(t, product.Keepa)
}

func TestExtractKeepaParsesRowsIntoSnapshot(t *testing.T) {
	page := newFakePage()
	page.hasIframe = true
	page.waitForResult = true
	page.selectResults["[role=row]"] = []Element{"row-buybox", "row-rank"}
	page.textValues["row-buybox"] = "Buy Box - Current: £19.99"
	page.textValues["row-rank"] = "Sales Rank - Current: 1,234"

	e := New(page, Selectors{KeepaGridRows: Css("[role=row]")}, zerolog.Nop())
	product := &domain.AmazonProduct{}
	e.extractKeepa(t.Context(), product)

	require.NotNil(t, product.Keepa)
	require.NotNil(t, product.KeepaSnapshot)
	require.NotNil(t, product.KeepaSnapshot.BuyBoxCurrent)
	require.Equal(t, "19.99", product.KeepaSnapshot.BuyBoxCurrent.String())
	require.NotNil(t, product.KeepaSnapshot.SalesRank)
	require.Equal(t, 1234, *product.KeepaSnapshot.SalesRank)
}

func TestExtractKeepaFallsBackToSecondaryWaitBudget(t *testing.T) {
	page := newFakePage()
	page.hasIframe = true
	page.waitForResults = []bool{false, true} // primary budget misses, fallback budget hits.
	page.selectResults["[role=row]"] = []Element{"row-amazon"}
	page.textValues["row-amazon"] = "Amazon - Current: £24.50"

	e := New(page, Selectors{KeepaGridRows: Css("[role=row]")}, zerolog.Nop())
	product := &domain.AmazonProduct{}
	e.extractKeepa(t.Context(), product)

	require.Empty(t, product.Status)
	require.NotNil(t, product.KeepaSnapshot.AmazonCurrent)
	require.Equal(t, "24.5", product.KeepaSnapshot.AmazonCurrent.String())
	require.Equal(t, 2, page.waitForCalls)
}

// TestBuildKeepaSnapshotMatchesOriginalKeySeparator pins the key
// strings Keepa's own overlay renders
// (amazon_playwright_extractor.py's price_keys_to_check /
// keepa_bsr_keys: hyphen-space for price rows, "Sales Rank - Current"
// for the BSR row), so a regression back to the no-dash convention
// fails this test instead of silently degrading the fallback chain.
func TestBuildKeepaSnapshotMatchesOriginalKeySeparator(t *testing.T) {
	page := newFakePage()
	page.hasIframe = true
	page.waitForResult = true
	page.selectResults["[role=row]"] = []Element{"row-buybox", "row-amazon", "row-new", "row-rank"}
	page.textValues["row-buybox"] = "Buy Box - Current: £12.34"
	page.textValues["row-amazon"] = "Amazon - Current: £13.45"
	page.textValues["row-new"] = "New - Current: £14.56"
	page.textValues["row-rank"] = "Sales Rank - Current: 5,678"

	e := New(page, Selectors{KeepaGridRows: Css("[role=row]")}, zerolog.Nop())
	product := &domain.AmazonProduct{}
	e.extractKeepa(t.Context(), product)

	require.NotNil(t, product.KeepaSnapshot)
	require.NotNil(t, product.KeepaSnapshot.BuyBoxCurrent)
	require.Equal(t, "12.34", product.KeepaSnapshot.BuyBoxCurrent.String())
	require.NotNil(t, product.KeepaSnapshot.AmazonCurrent)
	require.Equal(t, "13.45", product.KeepaSnapshot.AmazonCurrent.String())
	require.NotNil(t, product.KeepaSnapshot.NewCurrent)
	require.Equal(t, "14.56", product.KeepaSnapshot.NewCurrent.String())
	require.NotNil(t, product.KeepaSnapshot.SalesRank)
	require.Equal(t, 5678, *product.KeepaSnapshot.SalesRank)
}

func TestResolveCurrentPriceUsesKeepaFallbackChain(t *testing.T) {
	page := newFakePage()
	page.hasIframe = true
	page.waitForResult = true
	page.selectResults["[role=row]"] = []Element{"row-new"}
	page.textValues["row-new"] = "New - Current: £9.99"

	e := New(page, Selectors{KeepaGridRows: Css("[role=row]")}, zerolog.Nop())
	product := &domain.AmazonProduct{}
	e.extractKeepa(t.Context(), product)
	product.ResolveCurrentPrice()

	require.NotNil(t, product.CurrentPrice)
	require.Equal(t, domain.PriceSourceKeepaNewFallback, product.CurrentPriceSrc)
}
