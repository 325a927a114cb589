package supplier

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chri75252/simpler-fba-sub003/internal/ratelimit"
)

func TestResponseSaneRejectsShortBody(t *testing.T) {
	require.False(t, responseSane([]byte("<html><body>short</body></html>")))
}

func TestResponseSaneAcceptsWellFormedBody(t *testing.T) {
	body := "<html><body>" + strings.Repeat("x", minResponseBytes) + "</body></html>"
	require.True(t, responseSane([]byte(body)))
}

func TestGetPageContentSucceedsOnFirstTry(t *testing.T) {
	body := []byte("<html><body>" + strings.Repeat("x", minResponseBytes) + "</body></html>")
	page := &fakePage{navigateBody: body, navigateCode: 200}
	limiter := ratelimit.New(ratelimit.Config{RequestsPerSecond: 1000})

	got, err := GetPageContent(context.Background(), page, limiter, "https://example.com/cat", zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, body, got)
}

func TestGetPageContentFailsAfterRetriesExhausted(t *testing.T) {
	page := &fakePage{navigateBody: []byte("too short"), navigateCode: 200}
	limiter := ratelimit.New(ratelimit.Config{RequestsPerSecond: 1000})

	_, err := GetPageContent(context.Background(), page, limiter, "https://example.com/cat", zerolog.Nop())
	require.Error(t, err)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, maxFetchAttempts, fetchErr.Attempts)
}
