package financial

import (
	"github.com/shopspring/decimal"

	"github.com/chri75252/simpler-fba-sub003/internal/domain"
)

// GateConfig holds the criteria-gate thresholds (spec §4.7), all
// configuration with the teacher's mapstructure+env+default tag
// convention (internal/optimizer/config.go).
type GateConfig struct {
	MinROIPercent    decimal.Decimal `mapstructure:"min_roi_percent" default:"35"`
	MinProfitPerUnit decimal.Decimal `mapstructure:"min_profit_per_unit" default:"3.0"`
	MinRating        float64         `mapstructure:"min_rating" default:"4.0"`
	MinReviews       int             `mapstructure:"min_reviews" default:"50"`
	MaxSalesRank     int             `mapstructure:"max_sales_rank" default:"150000"`
}

// DefaultGateConfig returns the spec §4.7 default thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinROIPercent:    decimal.NewFromFloat(35),
		MinProfitPerUnit: decimal.NewFromFloat(3.0),
		MinRating:        4.0,
		MinReviews:       50,
		MaxSalesRank:     150000,
	}
}

// GateInput bundles everything the criteria gate needs to evaluate one
// tuple's eligibility.
type GateInput struct {
	Metrics      domain.FinancialMetrics
	Rating       *float64
	ReviewCount  *int
	SalesRank    *int
	InStock      bool
	SoldByAmazon bool
	MainImage    string
	MatchQuality domain.MatchQuality
}

// RejectionReason names why a tuple failed the gate, for rejection
// counters (spec §7's "surfaced ... final summary counts").
type RejectionReason string

const (
	RejectROI          RejectionReason = "roi_below_minimum"
	RejectProfit       RejectionReason = "profit_below_minimum"
	RejectRating       RejectionReason = "rating_below_minimum"
	RejectReviews      RejectionReason = "reviews_below_minimum"
	RejectSalesRank    RejectionReason = "sales_rank_out_of_range"
	RejectOutOfStock   RejectionReason = "out_of_stock"
	RejectSoldByAmazon RejectionReason = "sold_by_amazon"
	RejectNoMainImage  RejectionReason = "no_main_image"
	RejectMatchQuality RejectionReason = "match_quality_too_low"
)

// Evaluate evaluates the criteria gate deterministically (spec §4.7).
// Passes (ok==true, reasons empty) iff every criterion holds; otherwise
// returns every criterion that failed, since the gate evaluates all
// conditions rather than short-circuiting (useful for rejection
// analytics).
func (c GateConfig) Evaluate(in GateInput) (ok bool, reasons []RejectionReason) {
	if in.Metrics.ROIPercentCalculated.LessThan(c.MinROIPercent) {
		reasons = append(reasons, RejectROI)
	}
	if in.Metrics.EstimatedProfitPerUnit.LessThan(c.MinProfitPerUnit) {
		reasons = append(reasons, RejectProfit)
	}
	if in.Rating == nil || *in.Rating < c.MinRating {
		reasons = append(reasons, RejectRating)
	}
	if in.ReviewCount == nil || *in.ReviewCount < c.MinReviews {
		reasons = append(reasons, RejectReviews)
	}
	if in.SalesRank == nil || *in.SalesRank <= 0 || *in.SalesRank > c.MaxSalesRank {
		reasons = append(reasons, RejectSalesRank)
	}
	if !in.InStock {
		reasons = append(reasons, RejectOutOfStock)
	}
	if in.SoldByAmazon {
		reasons = append(reasons, RejectSoldByAmazon)
	}
	if in.MainImage == "" {
		reasons = append(reasons, RejectNoMainImage)
	}
	if in.MatchQuality != domain.MatchHigh && in.MatchQuality != domain.MatchMedium {
		reasons = append(reasons, RejectMatchQuality)
	}

	return len(reasons) == 0, reasons
}
