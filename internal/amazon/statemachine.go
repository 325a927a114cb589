package amazon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/chri75252/simpler-fba-sub003/internal/domain"
)

// StabilizeWait is how long EXTRACT waits after LOAD before reading
// the DOM, per spec §4.5's "extension_data_wait seconds".
const StabilizeWait = 2 * time.Second

// maxCookieBannerDismissLoops bounds the COOKIE_BANNER retry loop
// (spec §4.5: "loop max 2").
const maxCookieBannerDismissLoops = 2

// manualCaptchaWait is the fallback wait when AI captcha-solving is
// unavailable (spec §4.5's "manual_wait(20s)").
const manualCaptchaWait = 20 * time.Second

// Selectors bundles every selector the state machine and field
// extraction need for one supplier/marketplace configuration.
type Selectors struct {
	Title                []Selector
	Price                []Selector
	Images               []Selector
	DetailsRows          []Selector // key/value rows within the product-details table.
	Rank                 []Selector
	Rating               []Selector
	ReviewCount          []Selector
	InStock              []Selector
	SoldByAmazon         []Selector
	DirectProductMarkers []Selector // e.g. #dp-container, #ppd.
	KeepaIframe          Selector
	KeepaGridRows        Selector // role="row" elements within the Keepa grid.

	// Search-result-page selectors.
	ResultTile    Selector // one tile per search-result element.
	ResultASIN    Selector // data-asin attribute holder, scoped within a tile.
	ResultTitle   []Selector
	SponsoredText []Selector // elements whose text marks the tile sponsored.
}

// Extractor implements the C6 Amazon extractor interface (spec §4.5)
// against an injected Page.
type Extractor struct {
	page      Page
	selectors Selectors
	logger    zerolog.Logger
}

// New builds an Extractor.
func New(page Page, selectors Selectors, logger zerolog.Logger) *Extractor {
	return &Extractor{page: page, selectors: selectors, logger: logger}
}

// ExtractByASIN runs the full NAVIGATE->EXTRACT->DONE state machine
// for a known ASIN's product page (spec §4.5).
func (e *Extractor) ExtractByASIN(ctx context.Context, asin string) (*domain.AmazonProduct, error) {
	url := fmt.Sprintf("https://www.amazon.co.uk/dp/%s", asin)
	return e.lookup(ctx, url, asin, false)
}

// lookup runs one full state-machine pass starting at url.
// asinQueried is the ASIN the caller asked for (empty for
// title/EAN-driven searches); asinFromDetails is set when the ASIN
// had to be recovered from a redirect.
func (e *Extractor) lookup(ctx context.Context, url string, asinQueried string, allowCaptchaRetry bool) (*domain.AmazonProduct, error) {
	result, err := e.navigateWithRecovery(ctx, url, true)
	if err != nil {
		return nil, err
	}

	time.Sleep(StabilizeWait)

	product := e.extractBasic(ctx)
	product.ASINQueried = asinQueried
	if result.FinalURL != "" && result.FinalURL != url {
		if asin, ok := asinFromURL(result.FinalURL); ok {
			product.ASIN = asin
			product.ASINFromDetails = asin
		}
	}
	if product.ASIN == "" {
		product.ASIN = asinQueried
	}

	e.extractRankRatingReviews(product)
	e.extractKeepa(ctx, product)

	product.ResolveCurrentPrice()
	product.ResolveSalesRank()
	product.ExtractionTime = time.Now().UTC()

	return product, nil
}

// navigateWithRecovery runs NAVIGATE, looping through CAPTCHA and
// COOKIE_BANNER handling until LOAD is reached (spec §4.5's state
// diagram).
func (e *Extractor) navigateWithRecovery(ctx context.Context, url string, allowCaptchaRetry bool) (NavigateResult, error) {
	result, err := e.page.Navigate(ctx, url)
	if err != nil {
		return NavigateResult{}, err
	}

	switch result.Event {
	case EventCaptcha:
		if e.page.SolveCaptcha(ctx) {
			return e.page.Navigate(ctx, url)
		}
		if allowCaptchaRetry {
			time.Sleep(manualCaptchaWait)
			return e.navigateWithRecovery(ctx, url, false)
		}
		return result, fmt.Errorf("amazon: captcha not resolved for %s", url)

	case EventCookieBanner:
		for i := 0; i < maxCookieBannerDismissLoops; i++ {
			if !e.page.DismissCookieBanner(ctx) {
				break
			}
		}
		return e.page.Navigate(ctx, url)
	}

	return result, nil
}

// extractBasic extracts title, price, and images (spec §4.5's
// "basic" extraction group).
func (e *Extractor) extractBasic(ctx context.Context) *domain.AmazonProduct {
	product := &domain.AmazonProduct{Source: "fresh"}

	if title, ok := firstText(e.page, e.selectors.Title); ok {
		product.Title = title
	}
	if priceText, ok := firstText(e.page, e.selectors.Price); ok {
		cleaned := strings.TrimPrefix(strings.TrimSpace(priceText), "£")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		if price, err := decimal.NewFromString(cleaned); err == nil {
			product.CurrentPrice = &price
			product.CurrentPriceSrc = domain.PriceSourcePage
		}
	}
	if img, ok := firstAttr(e.page, e.selectors.Images, "src"); ok {
		product.MainImage = img
	}
	if inStockText, ok := firstText(e.page, e.selectors.InStock); ok {
		product.InStock = inStockIndicatesAvailable(inStockText)
	} else {
		product.InStock = true
	}
	if soldByText, ok := firstText(e.page, e.selectors.SoldByAmazon); ok {
		product.SoldByAmazon = soldByIndicatesAmazon(soldByText)
	}

	return product
}

// extractRankRatingReviews extracts sales rank, rating, and review
// count (spec §4.5's "rank/rating/reviews" extraction group).
func (e *Extractor) extractRankRatingReviews(product *domain.AmazonProduct) {
	if rankText, ok := firstText(e.page, e.selectors.Rank); ok {
		product.SalesRank = parseFirstInt(rankText)
	}
	if ratingText, ok := firstText(e.page, e.selectors.Rating); ok {
		if rating, ok := parseRating(ratingText); ok {
			product.Rating = &rating
		}
	}
	if reviewText, ok := firstText(e.page, e.selectors.ReviewCount); ok {
		if count, ok := parseReviewCount(reviewText); ok {
			product.ReviewCount = &count
		}
	}
}

func firstText(page Page, selectors []Selector) (string, bool) {
	for _, sel := range selectors {
		elements, err := page.Select(sel, nil)
		if err != nil || len(elements) == 0 {
			continue
		}
		text, err := page.Text(elements[0])
		if err == nil && text != "" {
			return text, true
		}
	}
	return "", false
}

func firstAttr(page Page, selectors []Selector, attrName string) (string, bool) {
	for _, sel := range selectors {
		elements, err := page.Select(sel, nil)
		if err != nil || len(elements) == 0 {
			continue
		}
		value, err := page.AttrValue(elements[0], attrName)
		if err == nil && value != "" {
			return value, true
		}
	}
	return "", false
}
