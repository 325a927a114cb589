// Package pipelineerrors enumerates the error kinds from spec §7 as
// sentinel errors, wrapped with context via fmt.Errorf("...: %w", ...)
// the way the teacher wraps storage/pipeline errors throughout.
package pipelineerrors

import (
	"context"
	"errors"
)

var (
	// ErrTransientNetwork covers timeout, 5xx, connection reset, 429.
	// Policy: retry with backoff, abandon after 3 attempts, record and continue.
	ErrTransientNetwork = errors.New("transient network error")

	// ErrRateLimited covers an explicit 429. Policy: sleep Retry-After,
	// count as one attempt.
	ErrRateLimited = errors.New("rate limited")

	// ErrParseFailure covers missing selector, empty HTML, malformed JSON.
	// Policy: log, try next selector, then AI fallback if available, else nil.
	ErrParseFailure = errors.New("parse failure")

	// ErrStaleAuth covers a failed price-access verification or reaching
	// the consecutive-failure threshold. Policy: trigger auth coordinator,
	// skip current product.
	ErrStaleAuth = errors.New("stale auth")

	// ErrInvariantViolation covers an invalid ASIN format or identifier
	// length outside {8,12,13,14}. Policy: discard value, do not persist.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrCorruption covers a cache file failing JSON-decode. Policy:
	// rename with .corrupt.<ts>, treat as miss.
	ErrCorruption = errors.New("corrupted cache entry")

	// ErrFatal covers an unwritable filesystem or invalid config. Policy:
	// flush in-memory state, exit non-zero.
	ErrFatal = errors.New("fatal error")

	// ErrNeedsIntervention covers schema validation failing at C10.
	// Policy: block mark_ready, surface with reason.
	ErrNeedsIntervention = errors.New("needs intervention")
)

// ExitCode maps a returned error to the process exit codes of spec §6:
// 0 success/already-ready, 1 failed, 2 needs-intervention, 130 interrupted.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNeedsIntervention):
		return 2
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
