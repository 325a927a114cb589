// Package financial implements the C8 financial evaluator: fee
// estimation, profit/ROI computation, sales-velocity estimation, and
// the criteria gate (spec §4.7), grounded on the fee-formula shape in
// original_source/langraph_integration/enhanced_fba_tools.py
// (referral_fee = price * 0.15, flat FBA-fee fallback, ROI-banded
// recommendation), retargeted to spec.md's exact VAT/threshold
// constants and decimal arithmetic.
package financial

import (
	"github.com/shopspring/decimal"

	"github.com/chri75252/simpler-fba-sub003/internal/domain"
)

// VATRate is the assumed VAT-inclusive rate (20%, per spec §4.7/GLOSSARY).
var VATRate = decimal.NewFromFloat(0.20)

// ReferralFeeRate is Amazon's assumed referral fee (15% of ex-VAT price).
var ReferralFeeRate = decimal.NewFromFloat(0.15)

// MinimumFBAFee is the floor the FBA fee estimator never goes below.
var MinimumFBAFee = decimal.NewFromFloat(1.50)

// SizeTier names the FBA fee-estimation size tiers.
type SizeTier string

const (
	SizeTierSmall    SizeTier = "small"
	SizeTierStandard SizeTier = "standard"
	SizeTierLarge    SizeTier = "large"
	SizeTierOversize SizeTier = "oversize"
)

var sizeTierBaseFee = map[SizeTier]decimal.Decimal{
	SizeTierSmall:    decimal.NewFromFloat(2.50),
	SizeTierStandard: decimal.NewFromFloat(3.80),
	SizeTierLarge:    decimal.NewFromFloat(5.50),
	SizeTierOversize: decimal.NewFromFloat(9.00),
}

// categoryFeeMultiplier adjusts the base FBA fee by product category.
var categoryFeeMultiplier = map[string]decimal.Decimal{
	"books":       decimal.NewFromFloat(0.9),
	"electronics": decimal.NewFromFloat(1.1),
	"toys":        decimal.NewFromFloat(1.0),
	"grocery":     decimal.NewFromFloat(0.95),
	"beauty":      decimal.NewFromFloat(1.0),
	"home":        decimal.NewFromFloat(1.05),
}

// Dimensions is the physical-size input to the FBA fee fallback
// estimator (weight in kg, size tier inferred by caller from dims).
type Dimensions struct {
	WeightKg decimal.Decimal
	Tier     SizeTier
}

// EstimateFBAFee computes the fallback FBA pick-pack fee from a size
// tier, weight, and category multiplier, floored at MinimumFBAFee.
func EstimateFBAFee(dims Dimensions, category string) decimal.Decimal {
	base, ok := sizeTierBaseFee[dims.Tier]
	if !ok {
		base = sizeTierBaseFee[SizeTierStandard]
	}

	weightAdj := dims.WeightKg.Mul(decimal.NewFromFloat(0.30))
	fee := base.Add(weightAdj)

	if mult, ok := categoryFeeMultiplier[category]; ok {
		fee = fee.Mul(mult)
	}

	if fee.LessThan(MinimumFBAFee) {
		return MinimumFBAFee
	}
	return fee
}

// Inputs bundles the financial evaluator's inputs for one tuple.
type Inputs struct {
	SupplierPriceIncVAT decimal.Decimal // p_s
	AmazonPriceIncVAT   decimal.Decimal // p_a
	KeepaFBAFee         *decimal.Decimal
	Dimensions          Dimensions
	Category            string
}

// Evaluate computes FinancialMetrics per the formulas in spec §4.7.
func Evaluate(in Inputs) domain.FinancialMetrics {
	onePlusVAT := decimal.NewFromInt(1).Add(VATRate)

	pSEx := in.SupplierPriceIncVAT.Div(onePlusVAT)
	pAEx := in.AmazonPriceIncVAT.Div(onePlusVAT)

	referralFee := pAEx.Mul(ReferralFeeRate)

	fbaFee := in.KeepaFBAFee
	var fbaFeeValue decimal.Decimal
	if fbaFee != nil {
		fbaFeeValue = *fbaFee
	} else {
		fbaFeeValue = EstimateFBAFee(in.Dimensions, in.Category)
	}

	feesTotal := referralFee.Add(fbaFeeValue)
	profit := pAEx.Sub(pSEx).Sub(feesTotal)

	var roiPercent decimal.Decimal
	if pSEx.GreaterThan(decimal.Zero) {
		roiPercent = profit.Div(pSEx).Mul(decimal.NewFromInt(100))
	} else {
		roiPercent = decimal.Zero
	}

	vatOnPurchase := in.SupplierPriceIncVAT.Sub(pSEx)
	vatOnSale := in.AmazonPriceIncVAT.Sub(pAEx)

	return domain.FinancialMetrics{
		SupplierCostPrice:      in.SupplierPriceIncVAT,
		AmazonSellingPrice:     in.AmazonPriceIncVAT,
		EstimatedAmazonFees:    feesTotal,
		EstimatedProfitPerUnit: profit,
		ROIPercentCalculated:   roiPercent,
		VATOnPurchaseEstimated: vatOnPurchase,
		VATOnSaleEstimated:     vatOnSale,
	}
}

// categoryVelocityMultiplier is the BSR-to-sales curve's per-category
// adjustment, per spec §4.7.
var categoryVelocityMultiplier = map[string]float64{
	"books":       0.5,
	"electronics": 1.2,
	"toys":        1.5,
	"grocery":     2.0,
	"beauty":      1.8,
	"home":        1.3,
}

// EstimateSalesFromBSR implements estimate_sales_from_bsr(rank,
// category): the third-precedence sales-velocity source. Returns 0 for
// rank < 1, per spec §8's boundary behaviour.
func EstimateSalesFromBSR(rank int, category string) int {
	if rank < 1 {
		return 0
	}

	// Power-law approximation: lower rank -> exponentially higher sales.
	base := 10000.0 / float64(rank)
	if base > 1000 {
		base = 1000
	}

	mult, ok := categoryVelocityMultiplier[category]
	if !ok {
		mult = 1.0
	}

	estimate := base * mult
	if estimate < 0 {
		estimate = 0
	}
	return int(estimate)
}

// SalesVelocitySource names where EstimatedMonthlySales came from, per
// the precedence order in spec §4.7 (scraped overlay text, AI-vision
// overlay fallback, BSR curve). The "SellerAmp" overlay the original
// implementation disables is modeled only as this optional input, not
// as a component (spec §9 open question).
type SalesVelocitySource struct {
	ScrapedMonthlySales *int
	AIVisionMonthlySales *int
}

// ResolveMonthlySales applies the sales-velocity precedence: scraped
// overlay first, then AI-vision overlay, then the BSR curve.
func ResolveMonthlySales(src SalesVelocitySource, salesRank *int, category string) int {
	if src.ScrapedMonthlySales != nil {
		return *src.ScrapedMonthlySales
	}
	if src.AIVisionMonthlySales != nil {
		return *src.AIVisionMonthlySales
	}
	if salesRank != nil {
		return EstimateSalesFromBSR(*salesRank, category)
	}
	return 0
}
