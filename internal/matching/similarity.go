// Package matching implements the C7 matcher & similarity component:
// the weighted composite title score and the overall (supplier, amazon)
// match decision from spec §4.6. Title-overlap scoring is generalized
// from the teacher's stringSimilarity (a bare rune-set Jaccard, kept in
// barcode.go for the retailer-item domain it was written for) into the
// full four-layer weighted composite this spec requires.
package matching

import (
	"regexp"
	"strconv"
	"strings"
)

// Layer weights from spec §4.6.
const (
	WeightBrand    = 0.40
	WeightModel    = 0.30
	WeightPackage  = 0.20
	WeightResidual = 0.10
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "with": true,
	"for": true, "in": true, "on": true, "at": true, "by": true, "from": true,
	"new": true, "sale": true, "offer": true, "deal": true, "hot": true, "best": true,
	"top": true, "premium": true, "quality": true, "great": true, "amazing": true,
	"perfect": true, "ultimate": true, "professional": true, "classic": true,
	"original": true, "genuine": true, "authentic": true, "official": true, "branded": true,
}

var modelTokenRe = regexp.MustCompile(`\b[A-Z0-9]+\b`)
var packageTokenRe = regexp.MustCompile(`(?i)\b(\d+)[_\s-]?(pack|set|box)\b`)

// BrandVocabulary is the set of lowercased brand-indicator words the
// brand layer scores against. When it is nil or empty, brandScore falls
// back to every token of both titles (lowercased, diacritics folded).
type BrandVocabulary map[string]bool

// tokenize folds diacritics, lowercases, and splits s on non-letter/
// non-digit runes.
func tokenize(s string) []string {
	s = RemoveDiacritics(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(r == '\'' || isAlnum(r))
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToLower(f))
	}
	return out
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func removeStopWords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !stopWords[t] {
			out = append(out, t)
		}
	}
	return out
}

// brandScore is the intersection-over-max of brand-indicator word sets.
// When vocab is nil or empty, falls back to the full token sets (any
// shared word counts as a brand-indicator candidate).
func brandScore(titleA, titleB string, vocab BrandVocabulary) float64 {
	setA := toSet(tokenize(titleA))
	setB := toSet(tokenize(titleB))

	if len(vocab) > 0 {
		setA = filterByVocab(setA, vocab)
		setB = filterByVocab(setB, vocab)
	}

	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	inter := 0
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	maxLen := len(setA)
	if len(setB) > maxLen {
		maxLen = len(setB)
	}
	if maxLen == 0 {
		return 0
	}
	return float64(inter) / float64(maxLen)
}

func filterByVocab(set map[string]bool, vocab BrandVocabulary) map[string]bool {
	out := make(map[string]bool)
	for t := range set {
		if vocab[t] {
			out[t] = true
		}
	}
	return out
}

// modelScore is the Jaccard index of uppercased alnum tokens matching
// \b[A-Z0-9]+\b — product/model codes.
func modelScore(titleA, titleB string) float64 {
	a := toSet(modelTokenRe.FindAllString(titleA, -1))
	b := toSet(modelTokenRe.FindAllString(titleB, -1))
	return jaccard(a, b)
}

// packageScore scores tokens of form <n>_pack/_set/_box; if neither
// title has any such token, awards full credit (1.0) — no package-size
// signal to contradict on either side.
func packageScore(titleA, titleB string) float64 {
	a := packageTokens(titleA)
	b := packageTokens(titleB)
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	return jaccard(toSet(a), toSet(b))
}

func packageTokens(title string) []string {
	matches := packageTokenRe.FindAllStringSubmatch(title, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.ToLower(m[1]+m[2]))
	}
	return out
}

// residualScore is the Jaccard overlap of remaining tokens after
// stop-word removal.
func residualScore(titleA, titleB string) float64 {
	a := removeStopWords(tokenize(titleA))
	b := removeStopWords(tokenize(titleB))
	return jaccard(toSet(a), toSet(b))
}

// TitleSimilarity computes the weighted composite score in [0,1] for
// two titles, per spec §4.6, applying the deterministic high-confidence
// boost when warranted. Symmetric: TitleSimilarity(a,b) == TitleSimilarity(b,a).
func TitleSimilarity(titleA, titleB string, vocab BrandVocabulary) float64 {
	brand := brandScore(titleA, titleB, vocab) * WeightBrand
	model := modelScore(titleA, titleB) * WeightModel
	pkg := packageScore(titleA, titleB) * WeightPackage
	residual := residualScore(titleA, titleB) * WeightResidual

	score := brand + model + pkg + residual

	aTokens := toSet(removeStopWords(tokenize(titleA)))
	bTokens := toSet(removeStopWords(tokenize(titleB)))
	intersectionCount := 0
	for t := range aTokens {
		if bTokens[t] {
			intersectionCount++
		}
	}

	if intersectionCount >= 3 && score >= 0.7 {
		score = score + 0.15
		if score > 0.95 {
			score = 0.95
		}
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// QuantizeConfidence rounds v to 3 decimal places, per spec §3's
// confidence_score quantisation rule.
func QuantizeConfidence(v float64) float64 {
	q, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 3, 64), 64)
	if err != nil {
		return v
	}
	return q
}
