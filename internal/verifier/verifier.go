// Package verifier implements the C10 output verifier: the final
// VERIFY_OUTPUTS gate the orchestrator runs before mark_ready, checking
// the three run artifacts against spec.md §4.9's structural rules.
package verifier

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/chri75252/simpler-fba-sub003/internal/domain"
)

// MinCachedProducts is cached_products.json's minimum required count
// (spec §4.9).
const MinCachedProducts = 5

// Result is one artifact's verification outcome.
type Result struct {
	Artifact string
	OK       bool
	Reason   string
}

// Verifier validates the three run artifacts under one output root.
type Verifier struct {
	cachedProductsPath  string
	aiCategoryCachePath string
	linkingMapPath      string
}

// New builds a Verifier for the three documented artifact paths
// (supplied by the caller via paths.Manager, kept out of this package's
// import graph to avoid a C2<->C10 coupling neither side needs).
func New(cachedProductsPath, aiCategoryCachePath, linkingMapPath string) *Verifier {
	return &Verifier{
		cachedProductsPath:  cachedProductsPath,
		aiCategoryCachePath: aiCategoryCachePath,
		linkingMapPath:      linkingMapPath,
	}
}

// Verify runs every check and reports the first failure found, per
// spec §4.9's "any schema failure ... blocks mark_ready". Every
// artifact is still checked so the reason names the right one.
func (v *Verifier) Verify() (ok bool, reason string, err error) {
	results, err := v.VerifyAll()
	if err != nil {
		return false, "", err
	}
	for _, r := range results {
		if !r.OK {
			return false, fmt.Sprintf("%s: %s", r.Artifact, r.Reason), nil
		}
	}
	return true, "", nil
}

// VerifyAll runs every check and returns every artifact's result,
// useful for a status surface that wants to show all three at once
// rather than stopping at the first failure.
func (v *Verifier) VerifyAll() ([]Result, error) {
	results := make([]Result, 0, 3)

	r, err := v.verifyCachedProducts()
	if err != nil {
		return nil, err
	}
	results = append(results, r)

	r, err = v.verifyAICategoryCache()
	if err != nil {
		return nil, err
	}
	results = append(results, r)

	r, err = v.verifyLinkingMap()
	if err != nil {
		return nil, err
	}
	results = append(results, r)

	return results, nil
}

func (v *Verifier) verifyCachedProducts() (Result, error) {
	const artifact = "cached_products.json"

	raw, ok, err := readIfExists(v.cachedProductsPath)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Artifact: artifact, OK: false, Reason: "file does not exist"}, nil
	}

	var doc domain.CachedProductsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Result{Artifact: artifact, OK: false, Reason: fmt.Sprintf("invalid JSON: %v", err)}, nil
	}

	if len(doc.Products) < MinCachedProducts {
		return Result{
			Artifact: artifact, OK: false,
			Reason: fmt.Sprintf("has %d products, minimum is %d", len(doc.Products), MinCachedProducts),
		}, nil
	}

	for i, p := range doc.Products {
		if p.Title == "" {
			return Result{Artifact: artifact, OK: false, Reason: fmt.Sprintf("product %d missing title", i)}, nil
		}
		if p.URL == "" {
			return Result{Artifact: artifact, OK: false, Reason: fmt.Sprintf("product %d missing url", i)}, nil
		}
		if p.ExtractionTime.IsZero() {
			return Result{Artifact: artifact, OK: false, Reason: fmt.Sprintf("product %d missing extraction_timestamp", i)}, nil
		}
	}

	return Result{Artifact: artifact, OK: true}, nil
}

func (v *Verifier) verifyAICategoryCache() (Result, error) {
	const artifact = "ai_category_cache.json"

	raw, ok, err := readIfExists(v.aiCategoryCachePath)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		// Nil-safe: a supplier run without a CategoryRanker never writes
		// this file (spec.md's Non-goals exclude an injected AI client),
		// so its absence is not itself a verification failure.
		return Result{Artifact: artifact, OK: true}, nil
	}

	var doc domain.AICategoryCacheDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Result{Artifact: artifact, OK: false, Reason: fmt.Sprintf("invalid JSON: %v", err)}, nil
	}

	if doc.Supplier == "" {
		return Result{Artifact: artifact, OK: false, Reason: "missing supplier"}, nil
	}
	if doc.Created.IsZero() {
		return Result{Artifact: artifact, OK: false, Reason: "missing created"}, nil
	}
	for i, s := range doc.AISuggestionHistory {
		if s.Timestamp.IsZero() {
			return Result{Artifact: artifact, OK: false, Reason: fmt.Sprintf("history entry %d missing timestamp", i)}, nil
		}
		if len(s.AISuggestions.Top3URLs) == 0 {
			return Result{Artifact: artifact, OK: false, Reason: fmt.Sprintf("history entry %d missing ai_suggestions.top_3_urls", i)}, nil
		}
	}

	return Result{Artifact: artifact, OK: true}, nil
}

func (v *Verifier) verifyLinkingMap() (Result, error) {
	const artifact = "linking_maps/linking_map.json"

	raw, ok, err := readIfExists(v.linkingMapPath)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		// Absence is fine pre-first-run; emptiness is caught indirectly
		// by cached_products.json's minimum-count check, which is the
		// stage that actually gates readiness on having matched anything.
		return Result{Artifact: artifact, OK: true}, nil
	}

	var records []domain.LinkingRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return Result{Artifact: artifact, OK: false, Reason: fmt.Sprintf("invalid JSON: %v", err)}, nil
	}

	for i, r := range records {
		if r.SupplierProductIdentifier == "" {
			return Result{Artifact: artifact, OK: false, Reason: fmt.Sprintf("record %d missing supplier_product_identifier", i)}, nil
		}
		if r.ChosenAmazonASIN == "" {
			return Result{Artifact: artifact, OK: false, Reason: fmt.Sprintf("record %d missing chosen_amazon_asin", i)}, nil
		}
		if !domain.ValidASIN(r.ChosenAmazonASIN) {
			return Result{Artifact: artifact, OK: false, Reason: fmt.Sprintf("record %d has malformed asin %q", i, r.ChosenAmazonASIN)}, nil
		}
	}

	return Result{Artifact: artifact, OK: true}, nil
}

func readIfExists(path string) (raw []byte, ok bool, err error) {
	raw, err = os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, true, nil
}

// Schemas returns the jsonschema.Schema documents for the three
// artifact types, generated via reflection the same way
// cmd/schema-gen/main.go generates its own API-type schemas. Not used
// for runtime validation (no JSON-Schema validator is in the module's
// dependency graph, see DESIGN.md) — exposed so a status surface or
// docs generator can publish the same shape this package checks by
// hand.
func Schemas() map[string]*jsonschema.Schema {
	reflector := &jsonschema.Reflector{ExpandedStruct: true}
	return map[string]*jsonschema.Schema{
		"cached_products.json":  reflector.Reflect(&domain.CachedProductsDocument{}),
		"ai_category_cache.json": reflector.Reflect(&domain.AICategoryCacheDocument{}),
		"linking_map.json":       reflector.Reflect(&[]domain.LinkingRecord{}),
	}
}
