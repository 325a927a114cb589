package authguard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestGuard(cfg Config) *Guard {
	return New(cfg, zerolog.Nop())
}

func TestShouldReLoginOnStartup(t *testing.T) {
	g := newTestGuard(DefaultConfig())
	require.True(t, g.ShouldReLogin())
}

func TestShouldReLoginAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultConfig()
	g := newTestGuard(cfg)
	g.RecordLoginSuccess()
	require.False(t, g.ShouldReLogin())

	for i := 0; i < cfg.ConsecutiveFailureThreshold; i++ {
		g.RecordPriceExtractionResult(false)
	}
	require.True(t, g.ShouldReLogin())
}

func TestShouldReLoginOnPrimaryPeriodicInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrimaryPeriodicInterval = 5
	cfg.SecondaryPeriodicInterval = 1000
	g := newTestGuard(cfg)
	g.RecordLoginSuccess()

	for i := 0; i < 4; i++ {
		g.RecordPriceExtractionResult(true)
		require.False(t, g.ShouldReLogin())
	}
	g.RecordPriceExtractionResult(true)
	require.True(t, g.ShouldReLogin())
}

func TestCircuitBreakerOpensAfterMaxLoginFailures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConsecutiveAuthFailures = 2
	cfg.AuthFailureDelay = 10 * time.Millisecond
	g := newTestGuard(cfg)

	require.True(t, g.AllowLogin(context.Background()))
	g.RecordLoginFailure(errors.New("bad credentials"))
	require.Equal(t, Closed, g.State())

	g.RecordLoginFailure(errors.New("bad credentials"))
	require.Equal(t, Open, g.State())
	require.False(t, g.AllowLogin(context.Background()))
}

func TestCircuitBreakerTransitionsToHalfOpenAfterDelay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConsecutiveAuthFailures = 1
	cfg.AuthFailureDelay = 1 * time.Millisecond
	g := newTestGuard(cfg)

	g.RecordLoginFailure(errors.New("bad credentials"))
	require.Equal(t, Open, g.State())

	time.Sleep(5 * time.Millisecond)
	require.True(t, g.AllowLogin(context.Background()))
	require.Equal(t, HalfOpen, g.State())
}

func TestLoginSuccessResetsTriggersAndCloses(t *testing.T) {
	g := newTestGuard(DefaultConfig())
	g.RecordLoginFailure(errors.New("x"))
	g.RecordLoginSuccess()

	require.Equal(t, Closed, g.State())
	require.True(t, g.IsReady())
	require.False(t, g.ShouldReLogin())
}
