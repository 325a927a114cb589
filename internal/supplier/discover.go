package supplier

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/chri75252/simpler-fba-sub003/internal/ratelimit"
)

// Category is a discovered supplier category (spec §4.4's
// discover_categories return shape).
type Category struct {
	Name string
	URL  string
}

// Config bundles everything a Scraper needs: per-field selectors,
// pagination strategy, and the category/subpage discovery selectors.
type Config struct {
	BaseURL             string
	CategorySelectors   []Selector
	ProductTileSelector Selector
	Fields              FieldSelectors
	Pagination          PaginationConfig
	// MaxSubpageDepth bounds discover_subpages' crawl (spec §4.4:
	// "bounded depth").
	MaxSubpageDepth int
}

// Scraper implements the C5 supplier scraper interface (spec §4.4)
// against an injected Page and AI callback.
type Scraper struct {
	config  Config
	page    Page
	ai      AICallback
	limiter *ratelimit.Limiter
	logger  zerolog.Logger
}

// NewScraper builds a Scraper. ai may be nil (no AI fallback
// configured).
func NewScraper(config Config, page Page, ai AICallback, limiter *ratelimit.Limiter, logger zerolog.Logger) *Scraper {
	return &Scraper{config: config, page: page, ai: ai, limiter: limiter, logger: logger}
}

// DiscoverCategories evaluates the configured category selectors
// against the supplier's base URL and returns each category's name
// and URL.
func (s *Scraper) DiscoverCategories(ctx context.Context) ([]Category, error) {
	if _, err := GetPageContent(ctx, s.page, s.limiter, s.config.BaseURL, s.logger); err != nil {
		return nil, err
	}

	var categories []Category
	for _, sel := range s.config.CategorySelectors {
		elements, err := s.page.Select(sel, nil)
		if err != nil {
			continue
		}
		for _, el := range elements {
			name, _ := s.page.Text(el)
			href, err := s.page.AttrValue(el, "href")
			if err != nil || href == "" {
				continue
			}
			categories = append(categories, Category{
				Name: name,
				URL:  resolveURL(href, s.config.BaseURL),
			})
		}
	}
	return categories, nil
}

// DiscoverSubpages walks a category's paginated listing up to
// MaxSubpageDepth pages, returning every page URL visited (spec
// §4.4's "bounded depth").
func (s *Scraper) DiscoverSubpages(ctx context.Context, categoryURL string) ([]string, error) {
	maxDepth := s.config.MaxSubpageDepth
	if maxDepth <= 0 {
		maxDepth = 1
	}

	urls := []string{categoryURL}
	current := categoryURL

	for pageNum := 1; pageNum < maxDepth; pageNum++ {
		if _, err := GetPageContent(ctx, s.page, s.limiter, current, s.logger); err != nil {
			break
		}
		next, ok := GetNextPageURL(s.config.Pagination, s.page, current, pageNum)
		if !ok || next == current {
			break
		}
		urls = append(urls, next)
		current = next
	}

	return urls, nil
}

// GetPageContent fetches url with rate limiting and retries (spec
// §4.4).
func (s *Scraper) GetPageContent(ctx context.Context, url string) ([]byte, error) {
	return GetPageContent(ctx, s.page, s.limiter, url, s.logger)
}

// ExtractProductElements evaluates the configured product-tile
// selector against the current page.
func (s *Scraper) ExtractProductElements(ctx context.Context, url string) ([]Element, error) {
	return ExtractProductElements(ctx, s.page, s.config.ProductTileSelector)
}

// ExtractedProduct bundles every field extracted from one product
// tile.
type ExtractedProduct struct {
	Title      string
	Price      string // raw decimal string; nil-equivalent is "".
	URL        string
	Image      string
	Identifier string
}

// ExtractProduct extracts every field from a single product tile
// element, applying the selector-then-AI-fallback policy per field.
func (s *Scraper) ExtractProduct(ctx context.Context, el Element, htmlContext string) ExtractedProduct {
	var out ExtractedProduct

	if title, ok := ExtractTitle(ctx, s.page, el, s.config.Fields.Title, htmlContext, s.ai); ok {
		out.Title = title
	}
	if price, ok := ExtractPrice(ctx, s.page, el, s.config.Fields.Price, htmlContext, s.ai); ok {
		out.Price = price.String()
	}
	if u, ok := ExtractURL(ctx, s.page, el, s.config.Fields.URL, s.config.BaseURL, htmlContext, s.ai); ok {
		out.URL = u
	}
	if img, ok := ExtractImage(ctx, s.page, el, s.config.Fields.Image, s.config.BaseURL, htmlContext, s.ai); ok {
		out.Image = img
	}
	if id, ok := ExtractIdentifier(ctx, s.page, el, s.config.Fields.Identifier, htmlContext, s.ai); ok {
		out.Identifier = id
	}

	return out
}
