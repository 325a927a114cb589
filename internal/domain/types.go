// Package domain holds the data model shared across the extraction
// orchestrator, matcher, and financial evaluator: the entities described
// in the system's cache, state, and linking-map layers.
package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// IdentifierKind tags a SupplierProduct.Identifier as either a barcode
// or a fallback URL.
type IdentifierKind string

const (
	IdentifierEAN IdentifierKind = "EAN"
	IdentifierURL IdentifierKind = "URL"
)

// Identifier is the tagged union supplier_product_identifier: EAN(string)
// | URL(string), preferring EAN when present and of an accepted length.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

// String renders the identifier the way LinkingRecord persists it:
// "EAN_<digits>" or "URL_<absolute>".
func (id Identifier) String() string {
	return fmt.Sprintf("%s_%s", id.Kind, id.Value)
}

var acceptedIdentifierLengths = map[int]bool{8: true, 12: true, 13: true, 14: true}

// AcceptedIdentifierLength reports whether n is one of the accepted
// digit-only identifier lengths {8,12,13,14}.
func AcceptedIdentifierLength(n int) bool {
	return acceptedIdentifierLengths[n]
}

// SupplierProduct is what a supplier's listing looks like after
// extraction (§3). JSON tags fix the on-disk shape cached_products.json
// and the output verifier (C10) agree on: {title, price, url,
// extraction_timestamp} are the fields §4.9 requires present.
type SupplierProduct struct {
	Identifier        Identifier      `json:"identifier"`
	Title             string          `json:"title"`
	Price             decimal.Decimal `json:"price"`
	URL               string          `json:"url"`
	ImageURL          string          `json:"image_url,omitempty"`
	EAN               string          `json:"ean,omitempty"`
	UPC               string          `json:"upc,omitempty"`
	SKU               string          `json:"sku,omitempty"`
	Brand             string          `json:"brand,omitempty"`
	Description       string          `json:"description,omitempty"`
	SourceSupplier    string          `json:"source_supplier,omitempty"`
	SourceCategoryURL string          `json:"source_category_url,omitempty"`
	ExtractionTime    time.Time       `json:"extraction_timestamp"`
}

// CachedProductsDocument is the on-disk shape of
// cached_products/<supplier>_products_cache.json (§4.9): an object with
// a products array/map and bookkeeping the cache store reads back on
// resume.
type CachedProductsDocument struct {
	Supplier string            `json:"supplier"`
	Products []SupplierProduct `json:"products"`
	Updated  time.Time         `json:"updated"`
}

// AICategoryCacheDocument is the on-disk shape of
// FBA_ANALYSIS/ai_category_cache.json (§4.9): supplier, created,
// ai_suggestion_history[] (each item's timestamp/ai_suggestions.top_3_urls
// checked by the verifier).
type AICategoryCacheDocument struct {
	Supplier            string                `json:"supplier"`
	Created             time.Time             `json:"created"`
	AISuggestionHistory []CategorySuggestion  `json:"ai_suggestion_history"`
}

// KeepaSnapshot is the typed, derived view over AmazonProduct.Keepa's
// raw map tables: the Buy-Box/Amazon/New price fallback chain and the
// sales-rank fallback, pre-coerced so callers don't re-parse maps.
type KeepaSnapshot struct {
	BuyBoxCurrent *decimal.Decimal
	AmazonCurrent *decimal.Decimal
	NewCurrent    *decimal.Decimal
	SalesRank     *int
	TokensUsed    *int
}

// KeepaTables is the JSON-wire-authoritative raw Keepa data: the two
// named tabs spec.md §3 requires be preserved as map[string]any.
type KeepaTables struct {
	ProductDetailsTabData map[string]any `json:"product_details_tab_data"`
	SalesRankDetailsTable map[string]any `json:"sales_rank_details_table"`
}

var asinPattern = regexp.MustCompile(`^B[0-9A-Z]{9}$|^[0-9X]{10}$|^[A-Z0-9]{10}$`)

// ValidASIN reports whether asin matches the spec.md §6 ASIN regex.
func ValidASIN(asin string) bool {
	return asinPattern.MatchString(asin)
}

// PriceSource records where AmazonProduct.CurrentPrice ultimately came
// from, per the §3 fallback-chain invariant.
type PriceSource string

const (
	PriceSourcePage                    PriceSource = "page"
	PriceSourceKeepaBuyBoxFallback     PriceSource = "Keepa_Product_Details_Fallback"
	PriceSourceKeepaAmazonFallback     PriceSource = "Keepa_Amazon_Current_Fallback"
	PriceSourceKeepaNewFallback        PriceSource = "Keepa_New_Current_Fallback"
)

// AmazonProduct is a resolved Amazon listing (§3).
type AmazonProduct struct {
	ASIN            string
	Title           string
	CurrentPrice    *decimal.Decimal
	CurrentPriceSrc PriceSource
	SalesRank       *int
	Category        string
	Rating          *float64
	ReviewCount     *int
	InStock         bool
	SoldByAmazon    bool
	MainImage       string
	EansOnPage      map[string]struct{}
	UpcsOnPage      map[string]struct{}
	Keepa           *KeepaTables
	KeepaSnapshot   *KeepaSnapshot
	ExtractionTime  time.Time
	Source          string // "cache" | "fresh"
	ASINQueried     string
	ASINFromDetails string
	Status          string // e.g. "Product details tab timeout"; empty on a clean extraction.
}

// ResolveCurrentPrice fills CurrentPrice/CurrentPriceSrc from the Keepa
// fallback chain (Buy Box -> Amazon -> New, in that order) when the page
// scrape did not yield a price. No-op if CurrentPrice is already set.
func (p *AmazonProduct) ResolveCurrentPrice() {
	if p.CurrentPrice != nil {
		return
	}
	if p.KeepaSnapshot == nil {
		return
	}
	switch {
	case p.KeepaSnapshot.BuyBoxCurrent != nil:
		p.CurrentPrice = p.KeepaSnapshot.BuyBoxCurrent
		p.CurrentPriceSrc = PriceSourceKeepaBuyBoxFallback
	case p.KeepaSnapshot.AmazonCurrent != nil:
		p.CurrentPrice = p.KeepaSnapshot.AmazonCurrent
		p.CurrentPriceSrc = PriceSourceKeepaAmazonFallback
	case p.KeepaSnapshot.NewCurrent != nil:
		p.CurrentPrice = p.KeepaSnapshot.NewCurrent
		p.CurrentPriceSrc = PriceSourceKeepaNewFallback
	}
}

// ResolveSalesRank fills SalesRank from the Keepa snapshot's sales rank
// (parsed from the Keepa sales-rank rows) when the page scrape did not
// yield a rank. The product-details table is not consulted.
func (p *AmazonProduct) ResolveSalesRank() {
	if p.SalesRank != nil {
		return
	}
	if p.KeepaSnapshot == nil || p.KeepaSnapshot.SalesRank == nil {
		return
	}
	p.SalesRank = p.KeepaSnapshot.SalesRank
}

// MatchMethod is how a LinkingRecord's match was established.
type MatchMethod string

const (
	MatchMethodEANSearch    MatchMethod = "EAN_search"
	MatchMethodTitleSearch  MatchMethod = "title_search"
	MatchMethodHybridSearch MatchMethod = "hybrid_search"
	MatchMethodManual       MatchMethod = "manual_match"
)

// LinkingRecord is one entry in the persistent linking map (§3).
type LinkingRecord struct {
	SupplierProductIdentifier string      `json:"supplier_product_identifier"`
	SupplierTitleSnippet      string      `json:"supplier_title_snippet"`
	ChosenAmazonASIN          string      `json:"chosen_amazon_asin"`
	AmazonTitleSnippet        string      `json:"amazon_title_snippet"`
	AmazonEANOnPage           string      `json:"amazon_ean_on_page,omitempty"`
	MatchMethod               MatchMethod `json:"match_method"`
}

// Ellipsis trims s to at most n runes, appending "..." when truncated.
// Used for the <=63-char supplier/Amazon title snippets.
func Ellipsis(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// MatchQuality classifies a MatchValidation's confidence.
type MatchQuality string

const (
	MatchHigh   MatchQuality = "high"
	MatchMedium MatchQuality = "medium"
	MatchLow    MatchQuality = "low"
)

// AIDecision is the AI tie-breaker's verdict.
type AIDecision string

const (
	AIMatch     AIDecision = "MATCH"
	AIMismatch  AIDecision = "MISMATCH"
	AIUncertain AIDecision = "UNCERTAIN"
)

// CheckKind names a validation check performed by the matcher.
type CheckKind string

const (
	CheckEANGTIN CheckKind = "EAN/GTIN"
	CheckBrand   CheckKind = "Brand"
	CheckTitle   CheckKind = "Title"
)

// MatchValidation is the output of the matcher (C7, §3).
type MatchValidation struct {
	MatchQuality         MatchQuality
	ConfidenceScore      float64
	Reasons              []string
	ChecksPerformed       []CheckKind
	TitleSimilarityScore *float64
	AIValidationDecision *AIDecision
}

// FinancialMetrics is the output of the financial evaluator (C8, §3).
// All prices are in the VAT-inclusive currency of the supplier.
type FinancialMetrics struct {
	SupplierCostPrice          decimal.Decimal
	AmazonSellingPrice         decimal.Decimal
	EstimatedAmazonFees        decimal.Decimal
	EstimatedProfitPerUnit     decimal.Decimal
	ROIPercentCalculated       decimal.Decimal
	VATOnPurchaseEstimated     decimal.Decimal
	VATOnSaleEstimated         decimal.Decimal
	EstimatedMonthlySales      int
	EstimatedMonthlyProfit     decimal.Decimal
}

// SupplierExtractionProgress tracks the category walk's position.
type SupplierExtractionProgress struct {
	CurrentCategoryIndex           int      `json:"current_category_index"`
	CurrentProductIndexInCategory  int      `json:"current_product_index_in_category"`
	TotalCategories                int      `json:"total_categories"`
	CategoriesCompleted            []string `json:"categories_completed"`
}

// ProcessingState is the resumability record, per supplier (§3).
type ProcessingState struct {
	LastProcessedIndex         int                         `json:"last_processed_index"`
	SupplierExtractionProgress SupplierExtractionProgress  `json:"supplier_extraction_progress"`
	LinkingMapBatchPosition    int                         `json:"linking_map_batch_position"`
	LastCheckpoint             time.Time                   `json:"last_checkpoint"`
}

// CategorySuggestion records one AI-assisted category-ranking decision,
// persisted into ai_category_cache.json's ai_suggestion_history (a
// feature recovered from original_source's langgraph category tool;
// the verifier (C10) requires it be present when populated).
type CategorySuggestion struct {
	Timestamp     time.Time `json:"timestamp"`
	AISuggestions struct {
		Top3URLs []string `json:"top_3_urls"`
	} `json:"ai_suggestions"`
}

// ProcessingTuple is the in-memory working unit C7/C8 operate on; they
// do not persist it themselves (§3 Ownership).
type ProcessingTuple struct {
	Supplier    SupplierProduct
	Amazon      AmazonProduct
	Match       MatchValidation
	Financial   FinancialMetrics
	MatchMethod MatchMethod
}
