package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDomainOfExtractsHost(t *testing.T) {
	require.Equal(t, "www.example-supplier.com", DomainOf("https://www.example-supplier.com/category/123?page=2"))
}

func TestDomainOfFallsBackOnUnparsable(t *testing.T) {
	require.Equal(t, "not a url", DomainOf("not a url"))
}

func TestLimiterSerializesPerDomain(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1000, MaxRetries: 3, InitialBackoffMs: 100, MaxBackoffMs: 1000})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, l.Wait(ctx, "a.example.com"))
	require.NoError(t, l.Wait(ctx, "b.example.com"))
}

func TestRetryAfterParsesSeconds(t *testing.T) {
	d, ok := RetryAfter("5")
	require.True(t, ok)
	require.Equal(t, 5*time.Second, d)

	_, ok = RetryAfter("")
	require.False(t, ok)

	_, ok = RetryAfter("not-a-number")
	require.False(t, ok)
}

func TestBackoffHonoursRetryAfter(t *testing.T) {
	d := Backoff(0, "10")
	require.GreaterOrEqual(t, d, 10*time.Second)
	require.Less(t, d, 11*time.Second)
}

func TestBackoffExponentialWithoutRetryAfter(t *testing.T) {
	d0 := Backoff(0, "")
	d1 := Backoff(3, "")
	require.Greater(t, d1, d0)
}

func TestIsRetryableStatus(t *testing.T) {
	require.True(t, IsRetryableStatus(429))
	require.True(t, IsRetryableStatus(503))
	require.False(t, IsRetryableStatus(404))
	require.False(t, IsRetryableStatus(200))
}
