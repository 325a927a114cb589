package matching

import (
	"context"

	"github.com/chri75252/simpler-fba-sub003/internal/domain"
)

// AITieBreaker is the optional AI disambiguation collaborator for
// medium-confidence matches (spec §4.6). LLM clients are explicitly
// out of scope (spec §1); this interface is the injected collaborator
// shape the orchestrator/matcher consumes, modeled on the teacher's
// EmbeddingProvider dependency-injection pattern
// (internal/matching/embedding.go) but with a MATCH/MISMATCH/UNCERTAIN
// decision shape instead of a similarity score.
type AITieBreaker interface {
	// Decide receives truncated supplier/amazon titles+descriptions and
	// returns the tie-breaker's verdict. An error is treated the same
	// as UNCERTAIN (confidence left unchanged).
	Decide(ctx context.Context, supplierTitle, amazonTitle string) (domain.AIDecision, error)
}

// maxAITitleChars bounds each title sent to the AI tie-breaker to 2000
// runes, a per-title bound well below the ~6000-char HTML context the
// scraper's selector fallback sends to its own AI callback (spec §4.4).
const maxAITitleChars = 2000

// DecisionInput bundles everything Decide needs to score one
// (supplier, amazon) pair.
type DecisionInput struct {
	SupplierTitle string
	SupplierEAN   string
	SupplierBrand string
	AmazonTitle   string
	AmazonEAN     string
	AmazonBrand   string
	BrandVocab    BrandVocabulary
}

// Evaluate computes the MatchValidation for one (supplier, amazon) pair
// per spec §4.6: the EAN/brand/title confidence rules, classification,
// and (for medium matches) the AI tie-breaker invocation.
func Evaluate(ctx context.Context, in DecisionInput, ai AITieBreaker) domain.MatchValidation {
	var reasons []string
	var checks []domain.CheckKind
	confidence := 0.0

	checks = append(checks, domain.CheckEANGTIN)
	switch {
	case in.SupplierEAN != "" && in.AmazonEAN != "" && in.SupplierEAN == in.AmazonEAN:
		confidence += 0.60
		reasons = append(reasons, "EAN/GTIN match on both sides")
	case in.SupplierEAN != "" && in.AmazonEAN == "":
		reasons = append(reasons, "EAN present on supplier, absent on Amazon")
	case in.SupplierEAN != "" && in.AmazonEAN != "" && in.SupplierEAN != in.AmazonEAN:
		confidence -= 0.20
		reasons = append(reasons, "EAN differs between supplier and Amazon")
	}

	if in.SupplierBrand != "" && in.AmazonBrand != "" {
		checks = append(checks, domain.CheckBrand)
		sim := brandScore(in.SupplierBrand, in.AmazonBrand, in.BrandVocab)
		if sim >= 0.85 {
			confidence += 0.25
			reasons = append(reasons, "brand similarity high")
		} else {
			reasons = append(reasons, "brand similarity below threshold")
		}
	}

	checks = append(checks, domain.CheckTitle)
	titleSim := TitleSimilarity(in.SupplierTitle, in.AmazonTitle, in.BrandVocab)
	switch {
	case titleSim >= 0.75:
		confidence += 0.15
	case titleSim >= 0.50:
		confidence += 0.05
	default:
		confidence -= 0.10
	}

	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}

	quality := classify(confidence)

	mv := domain.MatchValidation{
		MatchQuality:         quality,
		ConfidenceScore:      QuantizeConfidence(confidence),
		Reasons:              reasons,
		ChecksPerformed:      checks,
		TitleSimilarityScore: &titleSim,
	}

	if quality == domain.MatchMedium && ai != nil {
		decision, err := ai.Decide(ctx, truncate(in.SupplierTitle), truncate(in.AmazonTitle))
		if err == nil {
			mv.AIValidationDecision = &decision
			switch decision {
			case domain.AIMatch:
				mv.MatchQuality = domain.MatchHigh
				mv.ConfidenceScore = QuantizeConfidence(maxFloat(confidence, 0.80))
			case domain.AIMismatch:
				mv.MatchQuality = domain.MatchLow
				mv.ConfidenceScore = QuantizeConfidence(minFloat(confidence, 0.20))
			case domain.AIUncertain:
				// leave unchanged
			}
		}
		// AI failure: leave unchanged, per spec §4.6.
	}

	return mv
}

func classify(confidence float64) domain.MatchQuality {
	switch {
	case confidence >= 0.75:
		return domain.MatchHigh
	case confidence >= 0.45:
		return domain.MatchMedium
	default:
		return domain.MatchLow
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxAITitleChars {
		return s
	}
	return string(r[:maxAITitleChars])
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
