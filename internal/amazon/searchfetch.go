package amazon

import (
	"context"
	"fmt"
	"net/url"
)

// fetchEANSearchTiles navigates to the EAN search results page and
// converts every result tile into a searchTile. Returns a non-empty
// redirectURL when the search landed directly on a detail page (spec
// §4.5's "direct product redirect").
func (e *Extractor) fetchEANSearchTiles(ctx context.Context, ean string) (tiles []searchTile, redirectURL string, err error) {
	searchURL := fmt.Sprintf("https://www.amazon.co.uk/s?k=%s", url.QueryEscape(ean))
	result, navErr := e.navigateWithRecovery(ctx, searchURL, true)
	if navErr != nil {
		return nil, "", navErr
	}

	if e.onDetailPage() {
		return nil, result.FinalURL, nil
	}

	return e.extractSearchTiles(), "", nil
}

// fetchTitleSearchTiles navigates to a free-text title search and
// converts every result tile into a searchTile.
func (e *Extractor) fetchTitleSearchTiles(ctx context.Context, title string) ([]searchTile, error) {
	searchURL := fmt.Sprintf("https://www.amazon.co.uk/s?k=%s", url.QueryEscape(title))
	if _, err := e.navigateWithRecovery(ctx, searchURL, true); err != nil {
		return nil, err
	}
	return e.extractSearchTiles(), nil
}

// onDetailPage reports whether the current page is a product detail
// page rather than a search-results page (spec §4.5's direct-redirect
// detection via selectors like #dp-container, #ppd).
func (e *Extractor) onDetailPage() bool {
	for _, sel := range e.selectors.DirectProductMarkers {
		if elements, err := e.page.Select(sel, nil); err == nil && len(elements) > 0 {
			return true
		}
	}
	return false
}

// extractSearchTiles reads every result tile on the current
// search-results page into the internal searchTile shape the
// sponsored filter and disambiguation logic consume.
func (e *Extractor) extractSearchTiles() []searchTile {
	tileElements, err := e.page.Select(e.selectors.ResultTile, nil)
	if err != nil {
		return nil
	}

	tiles := make([]searchTile, 0, len(tileElements))
	for _, el := range tileElements {
		tile := searchTile{}

		if asinEls, err := e.page.Select(e.selectors.ResultASIN, el); err == nil && len(asinEls) > 0 {
			if asin, err := e.page.AttrValue(asinEls[0], "data-asin"); err == nil {
				tile.ASIN = asin
			}
		}
		if title, ok := firstTextWithin(e.page, e.selectors.ResultTitle, el); ok {
			tile.Title = title
		}
		for _, sel := range e.selectors.SponsoredText {
			if matches, err := e.page.Select(sel, el); err == nil && len(matches) > 0 {
				if text, err := e.page.Text(matches[0]); err == nil {
					tile.VisibleText += " " + text
				}
			}
		}

		if tile.ASIN == "" {
			continue
		}
		tiles = append(tiles, tile)
	}

	return tiles
}

// firstTextWithin is firstText scoped to a single tile element rather
// than the whole page.
func firstTextWithin(page Page, selectors []Selector, within Element) (string, bool) {
	for _, sel := range selectors {
		elements, err := page.Select(sel, within)
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
