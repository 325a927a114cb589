// Package authguard implements the C11 auth coordinator: the
// multi-tier re-login trigger and the login circuit breaker (spec
// §4.10), adapted from the CircuitBreaker/WarmupGate pair in
// internal/optimizer/resilience.go. The state machine shape (Closed /
// Open / HalfOpen, ResetTimeout-gated recovery) is kept verbatim; what
// changes is what trips it — login failures instead of cache misses —
// and the addition of the periodic/consecutive re-login trigger, which
// resilience.go has no equivalent for.
package authguard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State mirrors resilience.go's CircuitBreakerState naming.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds the auth coordinator's thresholds (spec §4.10), all
// configurable via authentication.* keys.
type Config struct {
	ConsecutiveFailureThreshold int           `mapstructure:"consecutive_failure_threshold" default:"3"`
	PrimaryPeriodicInterval     int           `mapstructure:"primary_periodic_interval" default:"100"`
	SecondaryPeriodicInterval   int           `mapstructure:"secondary_periodic_interval" default:"200"`
	MaxConsecutiveAuthFailures  int           `mapstructure:"max_consecutive_auth_failures" default:"3"`
	AuthFailureDelay            time.Duration `mapstructure:"auth_failure_delay_seconds" default:"30s"`
}

// DefaultConfig returns spec §4.10's default thresholds.
func DefaultConfig() Config {
	return Config{
		ConsecutiveFailureThreshold: 3,
		PrimaryPeriodicInterval:     100,
		SecondaryPeriodicInterval:   200,
		MaxConsecutiveAuthFailures:  3,
		AuthFailureDelay:            30 * time.Second,
	}
}

// Guard coordinates re-login triggers and the login circuit breaker
// for one supplier run.
type Guard struct {
	mu sync.Mutex

	config Config
	logger zerolog.Logger

	// circuit breaker state, tripped by failed LOGIN attempts.
	state           State
	loginFailures   int
	lastFailureTime time.Time
	lastStateChange time.Time

	// re-login trigger bookkeeping.
	ready                    bool
	consecutivePriceFailures int
	productsProcessedTotal   int
	lastPrimaryTriggerAt     int
	lastSecondaryTriggerAt   int
}

// New creates an auth guard, initially not-ready (forcing a startup
// re-login, per spec §4.10's first trigger condition).
func New(config Config, logger zerolog.Logger) *Guard {
	return &Guard{
		config:          config,
		logger:          logger,
		state:           Closed,
		lastStateChange: time.Now(),
	}
}

// ShouldReLogin reports whether a re-login should be performed before
// processing the next product, per spec §4.10's four trigger
// conditions (startup / consecutive-failure / two periodic
// intervals).
func (g *Guard) ShouldReLogin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.ready {
		return true
	}
	if g.consecutivePriceFailures >= g.config.ConsecutiveFailureThreshold {
		return true
	}
	if g.config.PrimaryPeriodicInterval > 0 &&
		g.productsProcessedTotal-g.lastPrimaryTriggerAt >= g.config.PrimaryPeriodicInterval {
		return true
	}
	if g.config.SecondaryPeriodicInterval > 0 &&
		g.productsProcessedTotal-g.lastSecondaryTriggerAt >= g.config.SecondaryPeriodicInterval {
		return true
	}
	return false
}

// RecordPriceExtractionResult updates the consecutive-failure counter
// and the processed-product tallies that drive the periodic triggers.
func (g *Guard) RecordPriceExtractionResult(ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.productsProcessedTotal++
	if ok {
		g.consecutivePriceFailures = 0
	} else {
		g.consecutivePriceFailures++
	}
}

// AllowLogin reports whether a login attempt should be permitted
// through the circuit breaker right now.
func (g *Guard) AllowLogin(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()

	switch g.state {
	case Closed:
		return true
	case Open:
		if now.Sub(g.lastFailureTime) >= g.config.AuthFailureDelay {
			g.transitionTo(HalfOpen, now)
			g.logger.Info().Msg("auth circuit breaker transitioning to half-open")
			return true
		}
		return false
	case HalfOpen:
		return true
	default:
		return false
	}
}

// RecordLoginSuccess records a successful login: closes the circuit,
// resets failure bookkeeping, marks the guard ready, and resets the
// periodic trigger counters.
func (g *Guard) RecordLoginSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	g.transitionTo(Closed, now)
	g.loginFailures = 0
	g.ready = true
	g.consecutivePriceFailures = 0
	g.lastPrimaryTriggerAt = g.productsProcessedTotal
	g.lastSecondaryTriggerAt = g.productsProcessedTotal

	g.logger.Info().Msg("login succeeded, auth guard ready")
}

// RecordLoginFailure records a failed login attempt.
func (g *Guard) RecordLoginFailure(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	g.loginFailures++
	g.lastFailureTime = now
	g.ready = false

	g.logger.Error().
		Err(err).
		Int("login_failures", g.loginFailures).
		Msg("login attempt failed")

	switch g.state {
	case Closed, HalfOpen:
		if g.loginFailures >= g.config.MaxConsecutiveAuthFailures {
			g.transitionTo(Open, now)
			g.logger.Warn().
				Int("login_failures", g.loginFailures).
				Dur("auth_failure_delay", g.config.AuthFailureDelay).
				Msg("auth circuit breaker opening, login disabled")
		}
	}
}

func (g *Guard) transitionTo(newState State, now time.Time) {
	g.state = newState
	g.lastStateChange = now
}

// State returns the current circuit breaker state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// IsReady reports whether the guard considers the session currently
// authenticated: set by a successful login and cleared only by a
// failed login attempt (re-login triggers do not clear it).
func (g *Guard) IsReady() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}
