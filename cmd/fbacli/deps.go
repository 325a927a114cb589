package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/chri75252/simpler-fba-sub003/internal/amazon"
	"github.com/chri75252/simpler-fba-sub003/internal/matching"
	"github.com/chri75252/simpler-fba-sub003/internal/orchestrator"
	"github.com/chri75252/simpler-fba-sub003/internal/supplier"
)

// The four collaborators below are the ones spec.md §1 names as out of
// scope for this module: "Headless browser automation, supplier login
// script generation, vision-assisted element discovery, LLM clients,
// the concrete Amazon/supplier HTML selectors, and the top-level CLI.
// The spec treats these as interfaces the core consumes." fbacli is
// that top-level CLI, and it stops exactly at that boundary: every
// concern the core owns (config, caching, state, guards, financial
// evaluation, output verification) is wired below with real,
// production code; these four seams are left as nil package-level
// constructors for a deployment build to set before main() runs.
//
// Wiring one in means writing a Go file (same package, same build)
// whose init() assigns it — e.g. a browser-driver package that sets
// newSupplierPage/newAmazonPage against chromedp or Rod, and a
// selectors-loader that sets buildSupplierConfig/buildAmazonSelectors
// from a JSON document. None of that exists in this module because no
// browser-automation library appears anywhere in the source corpus
// this module was grounded on (see DESIGN.md's C9/cmd/fbacli entry).

// newSupplierPage constructs the concrete supplier.Page a deployment's
// browser driver implements. Nil until a deployment sets it.
var newSupplierPage func(ctx context.Context, headed bool, logger zerolog.Logger) (supplier.Page, error)

// newAmazonPage constructs the concrete amazon.Page a deployment's
// browser driver implements. Nil until a deployment sets it.
var newAmazonPage func(ctx context.Context, headed bool, logger zerolog.Logger) (amazon.Page, error)

// buildSupplierConfig resolves the per-domain supplier.Config (category
// selectors, product-tile selector, pagination) for the configured
// supplier URL. Nil until a deployment sets it.
var buildSupplierConfig func(supplierURL string) (supplier.Config, error)

// buildAmazonSelectors resolves the amazon.Selectors a deployment's
// Amazon storefront layout requires. Nil until a deployment sets it.
var buildAmazonSelectors func() (amazon.Selectors, error)

// aiTieBreaker and categoryRanker are genuinely optional (spec §4.3,
// §4.8): nil is a supported, fully-functional configuration, not a gap.
var aiTieBreaker matching.AITieBreaker
var categoryRanker orchestrator.CategoryRanker
