// Package orchestrator implements the C9 extraction orchestrator: the
// resumable, chunk-interleaved state machine that drives a run from a
// supplier URL to a verified results set (spec §4.8), grounded on
// internal/pipeline/pipeline.go's Discover->Fetch->Parse->Persist
// control flow (generalized to the category/match interleave) and
// internal/workers/worker.go's bounded worker-pool idiom (replaced
// with golang.org/x/sync/errgroup for the detail-page fetch pool).
package orchestrator

import (
	"context"

	"github.com/chri75252/simpler-fba-sub003/internal/amazon"
	"github.com/chri75252/simpler-fba-sub003/internal/domain"
	"github.com/chri75252/simpler-fba-sub003/internal/supplier"
)

// SupplierScraper is the subset of *supplier.Scraper the orchestrator
// drives; declared here (rather than consumed as the concrete type) so
// tests can inject a fake, per spec.md §9's dependency-injection note.
type SupplierScraper interface {
	DiscoverCategories(ctx context.Context) ([]supplier.Category, error)
	DiscoverSubpages(ctx context.Context, categoryURL string) ([]string, error)
	ExtractProductElements(ctx context.Context, url string) ([]supplier.Element, error)
	ExtractProduct(ctx context.Context, el supplier.Element, htmlContext string) supplier.ExtractedProduct
}

// AmazonResolver is the subset of *amazon.Extractor the orchestrator's
// match phase drives.
type AmazonResolver interface {
	ExtractByASIN(ctx context.Context, asin string) (*domain.AmazonProduct, error)
	SearchByEAN(ctx context.Context, ean string, supplierTitle string) (*amazon.EANSearchOutcome, error)
	SearchByTitle(ctx context.Context, title string) ([]amazon.SearchResult, error)
}

// Authenticator performs the supplier login itself. Browser automation
// and credential handling are out of scope (spec.md §1); this is the
// injected collaborator the auth coordinator (C11) triggers through.
type Authenticator interface {
	Login(ctx context.Context, email, password string) error
}

// OutputVerifier is C10's contract: validate the run's output
// artifacts and report a human-readable reason on failure (spec
// §4.9). Declared here, implemented by *verifier.Verifier, so this
// package never imports internal/verifier directly and stays free to
// run with no verifier configured (falling back to a minimal built-in
// check — see verifyOutputs).
type OutputVerifier interface {
	Verify() (ok bool, reason string, err error)
}

// CategoryRanker is the optional AI category-ranking collaborator
// recovered from original_source/langraph_integration's category-
// suggestion tool: given the categories DiscoverCategories returned,
// it names the top few worth extracting first. Nil-safe: when absent,
// category order is left as discovered and ai_category_cache.json is
// never written.
type CategoryRanker interface {
	Suggest(ctx context.Context, categories []supplier.Category) (topURLs []string, err error)
}
