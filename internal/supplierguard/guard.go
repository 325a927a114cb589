// Package supplierguard implements the C3 supplier guard: the
// .supplier_ready flag lifecycle and archive-on-regenerate behaviour
// from spec §4.2.
package supplierguard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/chri75252/simpler-fba-sub003/internal/paths"
	"github.com/chri75252/simpler-fba-sub003/internal/pipelineerrors"
)

// DefaultTTL is the default ready-flag freshness window (7 days, §3).
const DefaultTTL = 7 * 24 * time.Hour

// ReadySummary is written as ready_summary.json alongside .supplier_ready.
type ReadySummary struct {
	Supplier     string    `json:"supplier"`
	ProductCount int       `json:"product_count"`
	MarkedAt     time.Time `json:"marked_at"`
}

// Guard implements is_ready/mark_ready/archive_on_force_regenerate.
type Guard struct {
	paths  *paths.Manager
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a supplier guard backed by paths, using ttl (DefaultTTL
// if zero).
func New(p *paths.Manager, ttl time.Duration, logger zerolog.Logger) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{paths: p, ttl: ttl, logger: logger}
}

// IsReady reports whether the ready flag exists, is readable, and its
// age is within TTL. The returned reason explains a false result.
func (g *Guard) IsReady(supplier string) (bool, string) {
	flagPath := g.paths.SupplierReadyFile(supplier)
	info, err := os.Stat(flagPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, "ready flag does not exist"
		}
		return false, fmt.Sprintf("ready flag unreadable: %v", err)
	}

	age := time.Since(info.ModTime())
	if age >= g.ttl {
		return false, fmt.Sprintf("ready flag stale: age %s exceeds TTL %s", age, g.ttl)
	}

	return true, ""
}

// MarkReady creates the ready flag and a sibling ready_summary.json
// recording product counts and timestamps.
func (g *Guard) MarkReady(supplier string, productCount int) error {
	dir := g.paths.SupplierDir(supplier)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create supplier dir %s: %v", pipelineerrors.ErrFatal, dir, err)
	}

	now := time.Now()
	flagPath := g.paths.SupplierReadyFile(supplier)
	if err := os.WriteFile(flagPath, []byte(now.Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return fmt.Errorf("%w: write ready flag %s: %v", pipelineerrors.ErrFatal, flagPath, err)
	}

	summary := ReadySummary{Supplier: supplier, ProductCount: productCount, MarkedAt: now}
	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ready summary: %w", err)
	}

	summaryPath := g.paths.SupplierReadySummaryFile(supplier)
	tmpPath := summaryPath + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write tmp ready summary %s: %v", pipelineerrors.ErrFatal, tmpPath, err)
	}
	if err := os.Rename(tmpPath, summaryPath); err != nil {
		return fmt.Errorf("%w: rename ready summary into place: %v", pipelineerrors.ErrFatal, err)
	}

	g.logger.Info().Str("supplier", supplier).Int("product_count", productCount).
		Msg("supplier marked ready")
	return nil
}

// ArchiveOnForceRegenerate atomically renames the supplier directory to
// <supplier>.archived.<ts> and creates a fresh empty supplier dir.
func (g *Guard) ArchiveOnForceRegenerate(supplier string) error {
	dir := g.paths.SupplierDir(supplier)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	archived := g.paths.ArchivedSupplierDir(supplier, time.Now().Unix())
	if err := os.MkdirAll(filepath.Dir(archived), 0o755); err != nil {
		return fmt.Errorf("%w: create archive parent: %v", pipelineerrors.ErrFatal, err)
	}
	if err := os.Rename(dir, archived); err != nil {
		return fmt.Errorf("%w: archive supplier dir %s -> %s: %v", pipelineerrors.ErrFatal, dir, archived, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: recreate fresh supplier dir %s: %v", pipelineerrors.ErrFatal, dir, err)
	}

	g.logger.Info().Str("supplier", supplier).Str("archived_to", archived).
		Msg("supplier directory archived before force-regenerate")
	return nil
}
