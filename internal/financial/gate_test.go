package financial

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/chri75252/simpler-fba-sub003/internal/domain"
)

func qualifyingInput() GateInput {
	rating := 4.5
	reviews := 200
	rank := 50000
	return GateInput{
		Metrics: domain.FinancialMetrics{
			ROIPercentCalculated:   decimal.NewFromFloat(50),
			EstimatedProfitPerUnit: decimal.NewFromFloat(5),
		},
		Rating:       &rating,
		ReviewCount:  &reviews,
		SalesRank:    &rank,
		InStock:      true,
		SoldByAmazon: false,
		MainImage:    "https://example.com/img.jpg",
		MatchQuality: domain.MatchHigh,
	}
}

func TestGateEvaluatePassesQualifyingTuple(t *testing.T) {
	ok, reasons := DefaultGateConfig().Evaluate(qualifyingInput())
	require.True(t, ok)
	require.Empty(t, reasons)
}

// Scenario S1: ROI below the 35% minimum fails the gate.
func TestGateEvaluateFailsBelowMinimumROI(t *testing.T) {
	in := qualifyingInput()
	in.Metrics.ROIPercentCalculated = decimal.NewFromFloat(10)

	ok, reasons := DefaultGateConfig().Evaluate(in)
	require.False(t, ok)
	require.Contains(t, reasons, RejectROI)
}

// Scenario S6: sold_by_amazon=true excludes an otherwise-qualifying tuple.
func TestGateEvaluateExcludesSoldByAmazon(t *testing.T) {
	in := qualifyingInput()
	in.SoldByAmazon = true

	ok, reasons := DefaultGateConfig().Evaluate(in)
	require.False(t, ok)
	require.Contains(t, reasons, RejectSoldByAmazon)
	require.Len(t, reasons, 1, "only sold_by_amazon should fail")
}

func TestGateEvaluateRejectsSalesRankOutOfRange(t *testing.T) {
	zero := 0
	in := qualifyingInput()
	in.SalesRank = &zero
	ok, reasons := DefaultGateConfig().Evaluate(in)
	require.False(t, ok)
	require.Contains(t, reasons, RejectSalesRank)
}

func TestGateEvaluateRejectsLowMatchQuality(t *testing.T) {
	in := qualifyingInput()
	in.MatchQuality = domain.MatchLow
	ok, reasons := DefaultGateConfig().Evaluate(in)
	require.False(t, ok)
	require.Contains(t, reasons, RejectMatchQuality)
}

func TestGateEvaluateAccumulatesAllFailures(t *testing.T) {
	in := GateInput{
		Metrics: domain.FinancialMetrics{
			ROIPercentCalculated:   decimal.NewFromFloat(0),
			EstimatedProfitPerUnit: decimal.NewFromFloat(0),
		},
		InStock:      false,
		SoldByAmazon: true,
		MatchQuality: domain.MatchLow,
	}
	ok, reasons := DefaultGateConfig().Evaluate(in)
	require.False(t, ok)
	require.Len(t, reasons, 9)
}
