package matching

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTitleSimilarityIsSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Acme Widget 4-Pack", "Acme Widget 4 Pack (New)"},
		{"Bluebell Soy Candle 200g", "Bluebell Candles Soy 200 g Jar"},
		{"Totally Different Product ABC123", "Unrelated Item XYZ999"},
	}
	for _, p := range pairs {
		a := TitleSimilarity(p[0], p[1], nil)
		b := TitleSimilarity(p[1], p[0], nil)
		require.InDelta(t, a, b, 1e-9)
	}
}

func TestTitleSimilarityRange(t *testing.T) {
	s := TitleSimilarity("Acme Widget 4-Pack", "Acme Widget 4 Pack (New)", nil)
	require.GreaterOrEqual(t, s, 0.0)
	require.LessOrEqual(t, s, 1.0)
}

func TestPackageScoreFullCreditWhenNeitherHasTokens(t *testing.T) {
	s := TitleSimilarity("Plain Widget", "Plain Gadget", nil)
	require.GreaterOrEqual(t, s, 0.0)
	require.Equal(t, 1.0, packageScore("Plain Widget", "Plain Gadget"))
}

func TestNormalizeIdentifierDigitsAcceptsKnownLengths(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"5000000000012", "5000000000012", true},
		{"500-000-0000-12", "5000000000012", true},
		{"12345678", "12345678", true},
		{"123", "123", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := NormalizeIdentifierDigits(c.in)
		require.Equal(t, c.ok, ok, c.in)
		if ok {
			require.Equal(t, c.want, got)
		}
	}
}

func TestQuantizeConfidenceRoundsToThreeDP(t *testing.T) {
	require.Equal(t, 0.625, QuantizeConfidence(0.6251))
	require.Equal(t, 0.8, QuantizeConfidence(0.8))
}
