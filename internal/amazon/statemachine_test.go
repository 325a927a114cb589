package amazon

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNavigateWithRecoveryDismissesCookieBanner(t *testing.T) {
	page := newFakePage()
	page.navigateResults["https://www.amazon.co.uk/dp/B000000001"] = NavigateResult{Event: EventCookieBanner}
	page.dismissBannerOK = true

	e := New(page, Selectors{}, zerolog.Nop())
	result, err := e.navigateWithRecovery(context.Background(), "https://www.amazon.co.uk/dp/B000000001", true)

	require.NoError(t, err)
	require.Equal(t, EventCookieBanner, result.Event)
	require.Len(t, page.navigateCalls, 2, "expected one dismiss-banner retry navigate")
}

func TestNavigateWithRecoveryRetriesAfterCaptchaSolve(t *testing.T) {
	page := newFakePage()
	url := "https://www.amazon.co.uk/dp/B000000002"
	page.navigateResults[url] = NavigateResult{Event: EventCaptcha}
	page.solveCaptchaOK = true

	e := New(page, Selectors{}, zerolog.Nop())
	_, err := e.navigateWithRecovery(context.Background(), url, true)

	require.NoError(t, err)
	require.Len(t, page.navigateCalls, 2, "expected one post-solve retry navigate")
}

func TestNavigateWithRecoveryFailsWhenCaptchaUnsolvedAndRetryDisallowed(t *testing.T) {
	page := newFakePage()
	url := "https://www.amazon.co.uk/dp/B000000003"
	page.navigateResults[url] = NavigateResult{Event: EventCaptcha}
	page.solveCaptchaOK = false

	e := New(page, Selectors{}, zerolog.Nop())
	_, err := e.navigateWithRecovery(context.Background(), url, false)

	require.Error(t, err)
}

func TestExtractBasicReadsTitlePriceImageAndStock(t *testing.T) {
	page := newFakePage()
	selectors := Selectors{
		Title:        []Selector{Css("#title")},
		Price:        []Selector{Css("#price")},
		Images:       []Selector{Css("#main-image")},
		InStock:      []Selector{Css("#availability")},
		SoldByAmazon: []Selector{Css("#sold-by")},
	}
	page.selectResults["#title"] = []Element{"title-el"}
	page.textValues["title-el"] = "Example Widget"
	page.selectResults["#price"] = []Element{"price-el"}
	page.textValues["price-el"] = "£12.99"
	page.selectResults["#main-image"] = []Element{"img-el"}
	page.attrValues["img-el|src"] = "https://example.com/image.jpg"
	page.selectResults["#availability"] = []Element{"avail-el"}
	page.textValues["avail-el"] = "Currently unavailable"
	page.selectResults["#sold-by"] = []Element{"sold-el"}
	page.textValues["sold-el"] = "Ships from and sold by Amazon"

	e := New(page, selectors, zerolog.Nop())
	product := e.extractBasic(context.Background())

	require.Equal(t, "Example Widget", product.Title)
	require.NotNil(t, product.CurrentPrice)
	require.Equal(t, "12.99", product.CurrentPrice.String())
	require.Equal(t, "https://example.com/image.jpg", product.MainImage)
	require.False(t, product.InStock)
	require.True(t, product.SoldByAmazon)
}

func TestExtractBasicDefaultsInStockWhenNoSelectorMatches(t *testing.T) {
	page := newFakePage()
	e := New(page, Selectors{}, zerolog.Nop())
	product := e.extractBasic(context.Background())
	require.True(t, product.InStock)
}

func TestExtractByASINSetsASINFromRedirect(t *testing.T) {
	page := newFakePage()
	requestedURL := "https://www.amazon.co.uk/dp/B000000004"
	page.navigateResults[requestedURL] = NavigateResult{Event: EventLoaded, FinalURL: "https://www.amazon.co.uk/dp/B0REDIR001"}

	e := New(page, Selectors{}, zerolog.Nop())
	product, err := e.ExtractByASIN(context.Background(), "B000000004")

	require.NoError(t, err)
	require.Equal(t, "B0REDIR001", product.ASIN)
	require.Equal(t, "B0REDIR001", product.ASINFromDetails)
	require.Equal(t, "B000000004", product.ASINQueried)
}
