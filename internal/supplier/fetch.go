package supplier

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/chri75252/simpler-fba-sub003/internal/ratelimit"
)

// minResponseBytes is the response-sanity floor (spec §4.4).
const minResponseBytes = 1000

// maxFetchAttempts is the retry budget (spec §4.4).
const maxFetchAttempts = 3

// FetchError wraps the final failure after all retry attempts are
// exhausted.
type FetchError struct {
	URL      string
	Attempts int
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("supplier: failed to fetch %s after %d attempts: %v", e.URL, e.Attempts, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// responseSane applies spec §4.4's response-sanity check: too short,
// or missing the basic HTML document markers, counts as a failure.
func responseSane(body []byte) bool {
	if len(body) < minResponseBytes {
		return false
	}
	lower := bytes.ToLower(body)
	return bytes.Contains(lower, []byte("<html")) && bytes.Contains(lower, []byte("<body"))
}

// GetPageContent fetches url with rate limiting (per-domain, via
// limiter) and up to maxFetchAttempts retries with exponential
// backoff, honouring a server Retry-After header (spec §4.4).
// Any failure that ends the attempts (retries exhausted, or an
// unretryable status) is returned as a *FetchError.
func GetPageContent(ctx context.Context, page Page, limiter *ratelimit.Limiter, url string, logger zerolog.Logger) ([]byte, error) {
	domain := ratelimit.DomainOf(url)

	var lastErr error
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if err := limiter.Wait(ctx, domain); err != nil {
			return nil, err
		}

		body, status, retryAfter, err := page.Navigate(ctx, url)
		if err == nil && status == 200 && responseSane(body) {
			return body, nil
		}

		if err != nil {
			lastErr = err
		} else if !responseSane(body) {
			lastErr = fmt.Errorf("response failed sanity check (status %d, %d bytes)", status, len(body))
		} else {
			lastErr = fmt.Errorf("unexpected status %d", status)
		}

		retryable := err != nil || ratelimit.IsRetryableStatus(status) || !responseSane(body)
		if !retryable || attempt == maxFetchAttempts-1 {
			break
		}

		delay := ratelimit.Backoff(attempt, retryAfter)
		logger.Warn().
			Str("url", url).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Err(lastErr).
			Msg("supplier fetch failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, &FetchError{URL: url, Attempts: maxFetchAttempts, Cause: lastErr}
}
