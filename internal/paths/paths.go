// Package paths implements the C2 path manager: the per-run output
// directory layout from spec §6, with one function per path shape,
// mirroring the teacher's BuildArchiveKey/BuildExpandedKey idiom.
package paths

import (
	"fmt"
	"path/filepath"
)

// Manager supplies every file path the pipeline writes to or reads
// from, rooted at a single output_root (§6's <output_root>/ layout).
type Manager struct {
	root string
}

// NewManager creates a path manager rooted at root.
func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Root returns the configured output root.
func (m *Manager) Root() string {
	return m.root
}

// AmazonCacheFile returns <output_root>/FBA_ANALYSIS/amazon_cache/amazon_<ASIN>[_<EAN>].json.
func (m *Manager) AmazonCacheFile(asin, ean string) string {
	name := fmt.Sprintf("amazon_%s.json", asin)
	if ean != "" {
		name = fmt.Sprintf("amazon_%s_%s.json", asin, ean)
	}
	return filepath.Join(m.root, "FBA_ANALYSIS", "amazon_cache", name)
}

// FinancialReportsDir returns <output_root>/FBA_ANALYSIS/financial_reports/<supplier>/.
func (m *Manager) FinancialReportsDir(supplier string) string {
	return filepath.Join(m.root, "FBA_ANALYSIS", "financial_reports", supplier)
}

// LinkingMapFile returns <output_root>/FBA_ANALYSIS/Linking map/linking_map.json.
func (m *Manager) LinkingMapFile() string {
	return filepath.Join(m.root, "FBA_ANALYSIS", "Linking map", "linking_map.json")
}

// CachedProductsFile returns <output_root>/cached_products/<supplier>_products_cache.json.
func (m *Manager) CachedProductsFile(supplier string) string {
	return filepath.Join(m.root, "cached_products", fmt.Sprintf("%s_products_cache.json", supplier))
}

// ProcessingStateFile returns <output_root>/processing_states/<supplier>_processing_state.json.
func (m *Manager) ProcessingStateFile(supplier string) string {
	return filepath.Join(m.root, "processing_states", fmt.Sprintf("%s_processing_state.json", supplier))
}

// SupplierDir returns <output_root>/suppliers/<supplier>/.
func (m *Manager) SupplierDir(supplier string) string {
	return filepath.Join(m.root, "suppliers", supplier)
}

// SupplierReadyFile returns <output_root>/suppliers/<supplier>/.supplier_ready.
func (m *Manager) SupplierReadyFile(supplier string) string {
	return filepath.Join(m.SupplierDir(supplier), ".supplier_ready")
}

// SupplierReadySummaryFile returns the sibling ready_summary.json written
// alongside .supplier_ready by the supplier guard (C3).
func (m *Manager) SupplierReadySummaryFile(supplier string) string {
	return filepath.Join(m.SupplierDir(supplier), "ready_summary.json")
}

// AICategoryCacheFile returns <output_root>/FBA_ANALYSIS/ai_category_cache.json,
// validated by the output verifier (C10, §4.9).
func (m *Manager) AICategoryCacheFile() string {
	return filepath.Join(m.root, "FBA_ANALYSIS", "ai_category_cache.json")
}

// ArchivedSupplierDir returns the path a force-regenerate archives the
// supplier directory to: <supplier>.archived.<ts>.
func (m *Manager) ArchivedSupplierDir(supplier string, unixTS int64) string {
	return filepath.Join(m.root, "suppliers", fmt.Sprintf("%s.archived.%d", supplier, unixTS))
}
