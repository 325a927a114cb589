package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/chri75252/simpler-fba-sub003/internal/cache"
	"github.com/chri75252/simpler-fba-sub003/internal/domain"
	"github.com/chri75252/simpler-fba-sub003/internal/financial"
	"github.com/chri75252/simpler-fba-sub003/internal/linking"
	"github.com/chri75252/simpler-fba-sub003/internal/matching"
	"github.com/chri75252/simpler-fba-sub003/internal/paths"
	"github.com/chri75252/simpler-fba-sub003/internal/pipelineconfig"
	"github.com/chri75252/simpler-fba-sub003/internal/pipelineerrors"
	"github.com/chri75252/simpler-fba-sub003/internal/supplier"
	"github.com/chri75252/simpler-fba-sub003/internal/supplierguard"
)

var (
	stageRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fba_orchestrator_stage_records_total",
		Help: "Records produced by each orchestrator stage",
	}, []string{"stage"})

	gateRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fba_orchestrator_gate_rejections_total",
		Help: "Criteria-gate rejections by reason",
	}, []string{"reason"})
)

// AuthCoordinator is the subset of *authguard.Guard the orchestrator
// drives (declared locally so this package doesn't need to re-export
// authguard's whole surface).
type AuthCoordinator interface {
	AllowLogin(ctx context.Context) bool
	RecordLoginSuccess()
	RecordLoginFailure(err error)
	ShouldReLogin() bool
	RecordPriceExtractionResult(ok bool)
	IsReady() bool
}

// Deps bundles every collaborator the orchestrator drives. Supplier,
// Amazon, and Auth are interfaces so tests can inject fakes; the rest
// are the concrete C1-C4/C8 stores already wired to one output root.
type Deps struct {
	Config         *pipelineconfig.Config
	Paths          *paths.Manager
	Cache          *cache.Store
	Guard          *supplierguard.Guard
	Auth           AuthCoordinator
	Supplier       SupplierScraper
	Amazon         AmazonResolver
	Login          Authenticator
	AI             matching.AITieBreaker // optional, may be nil
	CategoryRanker CategoryRanker        // optional, may be nil
	Verifier       OutputVerifier        // optional; nil falls back to a minimal built-in check
	BrandVocab     matching.BrandVocabulary
	Logger         zerolog.Logger
}

// RunResult summarizes one orchestrator run.
type RunResult struct {
	Supplier             string
	SkippedAlreadyReady  bool
	CategoriesDiscovered int
	ProductsExtracted    int
	ProductsMatched      int
	ProductsQualified    int
	Errors               []string
}

// Orchestrator drives the C9 state machine for one supplier (spec §4.8).
type Orchestrator struct {
	deps     Deps
	supplier string

	productCache *ProductCache
	state        *StateStore
	linkingMap   *linking.Store
	aiCache      *AICategoryCache
}

// New builds an Orchestrator for one supplier run.
func New(deps Deps, supplier string) (*Orchestrator, error) {
	productCache, err := LoadProductCache(
		deps.Paths.CachedProductsFile(supplier),
		supplier,
		deps.Config.SupplierCacheControl.UpdateFrequencyProducts,
		deps.Logger,
	)
	if err != nil {
		return nil, err
	}

	state, err := LoadState(deps.Paths.ProcessingStateFile(supplier), deps.Logger)
	if err != nil {
		return nil, err
	}

	linkingMap, err := linking.Load(deps.Paths.LinkingMapFile(), linking.DefaultBatchSize, deps.Logger)
	if err != nil {
		return nil, err
	}

	aiCache, err := LoadAICategoryCache(deps.Paths.AICategoryCacheFile(), supplier, deps.Logger)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		deps:         deps,
		supplier:     supplier,
		productCache: productCache,
		state:        state,
		linkingMap:   linkingMap,
		aiCache:      aiCache,
	}, nil
}

// Run executes the full INIT->...->MARK_READY/FAIL state machine (spec
// §4.8's state diagram) for the configured supplier, given
// force-regenerate. Categories come from the supplier scraper's own
// discovery (the caller resolves --supplier-url into the base URL the
// scraper was constructed against).
func (o *Orchestrator) Run(ctx context.Context, forceRegenerate bool) (*RunResult, error) {
	result := &RunResult{Supplier: o.supplier}

	if !forceRegenerate {
		if ready, _ := o.deps.Guard.IsReady(o.supplier); ready {
			result.SkippedAlreadyReady = true
			return result, nil
		}
	} else {
		if err := o.deps.Guard.ArchiveOnForceRegenerate(o.supplier); err != nil {
			return result, err
		}
	}

	if err := o.login(ctx); err != nil {
		return result, err
	}

	categories, err := o.enumerateCategories(ctx)
	if err != nil {
		return result, err
	}
	result.CategoriesDiscovered = len(categories)
	if err := o.stageGuard("category-enumeration", len(categories), -1, true); err != nil {
		return result, err
	}

	if err := o.loopCategoriesAndMatch(ctx, categories, result); err != nil {
		return result, err
	}

	if err := o.finalize(ctx); err != nil {
		return result, err
	}

	reason, ok, err := o.verifyOutputs()
	if err != nil {
		return result, err
	}
	if !ok {
		return result, fmt.Errorf("%w: %s", pipelineerrors.ErrNeedsIntervention, reason)
	}

	if err := o.deps.Guard.MarkReady(o.supplier, o.productCache.Len()); err != nil {
		return result, err
	}

	return result, nil
}

// login triggers the auth coordinator's ShouldReLogin/AllowLogin
// checks and runs the injected Authenticator when due (spec §4.10).
func (o *Orchestrator) login(ctx context.Context) error {
	if !o.deps.Auth.ShouldReLogin() {
		return nil
	}
	if !o.deps.Auth.AllowLogin(ctx) {
		return fmt.Errorf("%w: auth coordinator circuit open", pipelineerrors.ErrStaleAuth)
	}

	err := o.deps.Login.Login(ctx, o.deps.Config.SupplierEmail, o.deps.Config.SupplierPassword)
	if err != nil {
		o.deps.Auth.RecordLoginFailure(err)
		return fmt.Errorf("%w: login failed: %v", pipelineerrors.ErrStaleAuth, err)
	}
	o.deps.Auth.RecordLoginSuccess()
	return nil
}

func (o *Orchestrator) enumerateCategories(ctx context.Context) ([]string, error) {
	categories, err := o.deps.Supplier.DiscoverCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate categories: %w", err)
	}

	if o.deps.CategoryRanker != nil {
		topURLs, err := o.deps.CategoryRanker.Suggest(ctx, categories)
		if err != nil {
			o.deps.Logger.Warn().Err(err).Msg("category ranker failed, keeping discovery order")
		} else {
			o.aiCache.Record(topURLs)
			categories = reorderByRanking(categories, topURLs)
		}
	}

	urls := make([]string, 0, len(categories))
	for _, c := range categories {
		urls = append(urls, c.URL)
	}
	return urls, nil
}

// reorderByRanking moves every category the ranker named, in the order
// named, to the front of the walk; everything else keeps its discovered
// order behind them.
func reorderByRanking(categories []supplier.Category, topURLs []string) []supplier.Category {
	byURL := make(map[string]supplier.Category, len(categories))
	for _, c := range categories {
		byURL[c.URL] = c
	}

	ranked := make([]supplier.Category, 0, len(categories))
	used := make(map[string]struct{}, len(topURLs))
	for _, url := range topURLs {
		if c, ok := byURL[url]; ok {
			ranked = append(ranked, c)
			used[url] = struct{}{}
		}
	}
	for _, c := range categories {
		if _, ok := used[c.URL]; !ok {
			ranked = append(ranked, c)
		}
	}
	return ranked
}

// loopCategoriesAndMatch implements the chunked interleave: after
// K_SWITCH categories' worth of products are cached, drain the backlog
// through the match phase before resuming extraction (spec §4.8's
// "chunked interleaving").
func (o *Orchestrator) loopCategoriesAndMatch(ctx context.Context, categories []string, result *RunResult) error {
	kSwitch := o.deps.Config.HybridProcessing.SwitchToAmazonAfterCategories
	if kSwitch <= 0 {
		kSwitch = len(categories)
	}
	maxPerCategory := o.deps.Config.System.MaxProductsPerCategory

	sinceSwitch := 0
	matchedIdentifiers := make(map[string]struct{})

	progress := o.state.Get().SupplierExtractionProgress
	completed := make(map[string]struct{}, len(progress.CategoriesCompleted))
	for _, url := range progress.CategoriesCompleted {
		completed[url] = struct{}{}
	}
	resumeCategoryIndex := progress.CurrentCategoryIndex
	resumeProductIndex := progress.CurrentProductIndexInCategory

	for i, categoryURL := range categories {
		if _, done := completed[categoryURL]; done {
			o.deps.Logger.Debug().Str("category", categoryURL).Msg("category already completed, skipping on resume")
			continue
		}

		startIndex := 0
		if i == resumeCategoryIndex {
			startIndex = resumeProductIndex
		}

		extracted, err := o.extractCategory(ctx, categoryURL, maxPerCategory, startIndex)
		if err != nil {
			o.deps.Logger.Warn().Err(err).Str("category", categoryURL).Msg("category extraction failed, continuing")
			continue
		}
		result.ProductsExtracted += extracted
		stageRecords.WithLabelValues("supplier-extraction").Add(float64(extracted))

		o.state.Update(func(s *domain.ProcessingState) {
			s.LastProcessedIndex = o.productCache.Len()
			s.SupplierExtractionProgress.TotalCategories = len(categories)
			s.SupplierExtractionProgress.CurrentCategoryIndex = i + 1
			s.SupplierExtractionProgress.CurrentProductIndexInCategory = 0
			s.SupplierExtractionProgress.CategoriesCompleted = append(s.SupplierExtractionProgress.CategoriesCompleted, categoryURL)
		})
		if err := o.state.Save(); err != nil {
			return err
		}

		sinceSwitch++
		if sinceSwitch >= kSwitch {
			matched, qualified, err := o.drainMatchBacklog(ctx, matchedIdentifiers)
			if err != nil {
				return err
			}
			result.ProductsMatched += matched
			result.ProductsQualified += qualified
			sinceSwitch = 0
		}
	}

	matched, qualified, err := o.drainMatchBacklog(ctx, matchedIdentifiers)
	if err != nil {
		return err
	}
	result.ProductsMatched += matched
	result.ProductsQualified += qualified

	if err := o.stageGuard("supplier-extraction", result.ProductsExtracted, -1, true); err != nil {
		return err
	}
	return nil
}

// extractCategory discovers every subpage of categoryURL, extracts
// every product tile on each, and appends each as a domain.SupplierProduct
// to the product cache, up to maxProducts (0 = unlimited).
//
// startIndex is the product position within this category to resume
// from (spec §4.8's resumability property, S3): the first startIndex
// considered product-tile positions are skipped without being
// re-extracted, and the current position is checkpointed into
// ProcessingState.SupplierExtractionProgress after every product so a
// crash mid-category resumes past exactly what was already processed.
func (o *Orchestrator) extractCategory(ctx context.Context, categoryURL string, maxProducts, startIndex int) (int, error) {
	subpages, err := o.deps.Supplier.DiscoverSubpages(ctx, categoryURL)
	if err != nil {
		return 0, fmt.Errorf("discover subpages for %s: %w", categoryURL, err)
	}

	count := 0
	pos := 0
	for _, pageURL := range subpages {
		if maxProducts > 0 && count >= maxProducts {
			break
		}

		elements, err := o.deps.Supplier.ExtractProductElements(ctx, pageURL)
		if err != nil {
			o.deps.Logger.Warn().Err(err).Str("page", pageURL).Msg("extract product elements failed")
			continue
		}

		for _, el := range elements {
			if maxProducts > 0 && count >= maxProducts {
				break
			}
			if pos < startIndex {
				pos++
				continue
			}

			extracted := o.deps.Supplier.ExtractProduct(ctx, el, "")
			product, ok := toSupplierProduct(extracted, categoryURL, o.supplier)
			pos++
			if !ok {
				o.checkpointProductIndex(pos)
				continue
			}

			if err := o.productCache.Append(ctx, product); err != nil {
				return count, err
			}
			count++
			if err := o.checkpointProductIndex(pos); err != nil {
				return count, err
			}
		}
	}

	return count, nil
}

// checkpointProductIndex persists the in-category product position so
// a resumed run can skip straight past already-processed products.
func (o *Orchestrator) checkpointProductIndex(pos int) error {
	o.state.Update(func(s *domain.ProcessingState) {
		s.SupplierExtractionProgress.CurrentProductIndexInCategory = pos
		s.LastProcessedIndex = o.productCache.Len()
	})
	return o.state.Save()
}

// toSupplierProduct builds a domain.SupplierProduct from a raw scraper
// extraction, classifying the identifier (EAN preferred, URL fallback)
// per spec §4.4/§8 invariant 4.
func toSupplierProduct(extracted supplier.ExtractedProduct, categoryURL, supplierName string) (domain.SupplierProduct, bool) {
	if extracted.Title == "" || extracted.URL == "" {
		return domain.SupplierProduct{}, false
	}

	price, err := decimal.NewFromString(extracted.Price)
	if err != nil {
		return domain.SupplierProduct{}, false
	}

	identifier := domain.Identifier{Kind: domain.IdentifierURL, Value: extracted.URL}
	if digits, ok := matching.NormalizeIdentifierDigits(extracted.Identifier); ok {
		identifier = domain.Identifier{Kind: domain.IdentifierEAN, Value: digits}
	}

	return domain.SupplierProduct{
		Identifier:        identifier,
		Title:             extracted.Title,
		Price:             price,
		URL:               extracted.URL,
		ImageURL:          extracted.Image,
		EAN:               identifierEAN(identifier),
		SourceSupplier:    supplierName,
		SourceCategoryURL: categoryURL,
		ExtractionTime:    time.Now().UTC(),
	}, true
}

// amazonEANOnPage reports supplierEAN back as the Amazon-side EAN when
// it appears among the detail page's EansOnPage set, confirming rather
// than discovering a match (the extractor captures no single
// authoritative Amazon EAN/brand field, only this on-page occurrence
// set).
func amazonEANOnPage(amazonProduct *domain.AmazonProduct, supplierEAN string) string {
	if supplierEAN == "" || amazonProduct.EansOnPage == nil {
		return ""
	}
	if _, ok := amazonProduct.EansOnPage[supplierEAN]; ok {
		return supplierEAN
	}
	return ""
}

func identifierEAN(id domain.Identifier) string {
	if id.Kind == domain.IdentifierEAN {
		return id.Value
	}
	return ""
}

// stageGuard implements spec §4.8's stage-guard rule: a zero-record
// stage following a non-zero prior stage is a warning, except in
// supplier-extraction, where it aborts.
func (o *Orchestrator) stageGuard(stage string, count int, priorCount int, abortOnZero bool) error {
	o.deps.Logger.Info().Str("stage", stage).Int("records", count).Msg("STAGE-COMPLETE")
	if count == 0 && priorCount != 0 {
		o.deps.Logger.Warn().Str("stage", stage).Msg("stage produced zero records")
		if abortOnZero {
			return fmt.Errorf("%w: stage %s produced zero records", pipelineerrors.ErrFatal, stage)
		}
	}
	return nil
}

func (o *Orchestrator) finalize(ctx context.Context) error {
	if err := o.productCache.Flush(ctx); err != nil {
		return err
	}
	if err := o.linkingMap.Flush(ctx); err != nil {
		return err
	}
	if err := o.aiCache.Flush(); err != nil {
		return err
	}
	return o.state.Save()
}

// verifyOutputs runs the final VERIFY_OUTPUTS state (spec §4.9). When
// deps.Verifier is configured (normally *verifier.Verifier, wired by
// the caller), it runs the full three-artifact schema check; otherwise
// it falls back to the one rule every run can check in-process without
// re-reading its own just-flushed files: the minimum cached-product
// count.
func (o *Orchestrator) verifyOutputs() (reason string, ok bool, err error) {
	if o.deps.Verifier != nil {
		ok, reason, err := o.deps.Verifier.Verify()
		return reason, ok, err
	}
	if o.productCache.Len() < 5 {
		return "cached_products.json has fewer than 5 products", false, nil
	}
	return "", true, nil
}

// drainMatchBacklog runs the MATCH_PHASE over every cached product not
// yet present in the linking map and within the price band, up to a
// bounded worker pool for the Amazon detail-page fetches (spec §5's
// "worker pool of N, default 5").
func (o *Orchestrator) drainMatchBacklog(ctx context.Context, seen map[string]struct{}) (matched int, qualified int, err error) {
	minPrice, maxPrice := priceBand(o.deps.Config)
	poolSize := o.deps.Config.Performance.MaxConcurrentRequests
	if poolSize <= 0 {
		poolSize = 5
	}

	var backlog []domain.SupplierProduct
	for _, p := range o.productCache.Products() {
		key := p.Identifier.String()
		if _, already := seen[key]; already {
			continue
		}
		if o.linkingMap.Contains(key) {
			seen[key] = struct{}{}
			continue
		}
		if !priceInBand(p.Price, minPrice, maxPrice) {
			continue
		}
		backlog = append(backlog, p)
	}

	if len(backlog) == 0 {
		return 0, 0, nil
	}

	type tupleResult struct {
		tuple     domain.ProcessingTuple
		qualifies bool
		reasons   []financial.RejectionReason
		ok        bool
	}
	results := make([]tupleResult, len(backlog))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(poolSize)

	for i, product := range backlog {
		i, product := i, product
		group.Go(func() error {
			tuple, qualifies, reasons, ok := o.matchOne(groupCtx, product)
			results[i] = tupleResult{tuple: tuple, qualifies: qualifies, reasons: reasons, ok: ok}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return matched, qualified, err
	}

	for _, r := range results {
		seen[r.tuple.Supplier.Identifier.String()] = struct{}{}
		if !r.ok {
			continue
		}
		matched++

		record := domain.LinkingRecord{
			SupplierProductIdentifier: r.tuple.Supplier.Identifier.String(),
			SupplierTitleSnippet:      domain.Ellipsis(r.tuple.Supplier.Title, 63),
			ChosenAmazonASIN:          r.tuple.Amazon.ASIN,
			AmazonTitleSnippet:        domain.Ellipsis(r.tuple.Amazon.Title, 63),
			MatchMethod:               r.tuple.MatchMethod,
		}
		if _, err := o.linkingMap.Append(ctx, record); err != nil {
			return matched, qualified, err
		}

		if r.qualifies {
			qualified++
		} else {
			for _, reason := range r.reasons {
				gateRejections.WithLabelValues(string(reason)).Inc()
			}
		}
	}

	stageRecords.WithLabelValues("match-phase").Add(float64(matched))
	if err := o.stageGuard("match-phase", matched, len(backlog), false); err != nil {
		return matched, qualified, err
	}

	if o.state != nil {
		o.state.Update(func(s *domain.ProcessingState) {
			s.LinkingMapBatchPosition = o.linkingMap.Len()
		})
		if err := o.state.Save(); err != nil {
			return matched, qualified, err
		}
	}

	return matched, qualified, nil
}

// matchOne resolves one supplier product against Amazon (EAN search
// first, falling back to title search per spec §4.6), evaluates the
// match and financial gate, and reports the auth coordinator's price-
// extraction-result bookkeeping.
func (o *Orchestrator) matchOne(ctx context.Context, product domain.SupplierProduct) (domain.ProcessingTuple, bool, []financial.RejectionReason, bool) {
	tuple := domain.ProcessingTuple{Supplier: product}

	asin, method, err := o.resolveASIN(ctx, product)
	if err != nil || asin == "" {
		o.deps.Auth.RecordPriceExtractionResult(false)
		return tuple, false, nil, false
	}
	tuple.MatchMethod = method

	amazonProduct, err := o.deps.Amazon.ExtractByASIN(ctx, asin)
	if err != nil || amazonProduct == nil {
		o.deps.Auth.RecordPriceExtractionResult(false)
		return tuple, false, nil, false
	}
	tuple.Amazon = *amazonProduct
	o.deps.Auth.RecordPriceExtractionResult(amazonProduct.CurrentPrice != nil)

	match := matching.Evaluate(ctx, matching.DecisionInput{
		SupplierTitle: product.Title,
		SupplierEAN:   product.EAN,
		SupplierBrand: product.Brand,
		AmazonTitle:   amazonProduct.Title,
		AmazonEAN:     amazonEANOnPage(amazonProduct, product.EAN),
		BrandVocab:    o.deps.BrandVocab,
	}, o.deps.AI)
	tuple.Match = match

	financialMetrics := financial.Evaluate(financial.Inputs{
		SupplierPriceIncVAT: product.Price,
		AmazonPriceIncVAT:   valueOrZero(amazonProduct.CurrentPrice),
	})
	tuple.Financial = financialMetrics

	gateOK, reasons := o.deps.Config.Gate.Evaluate(financial.GateInput{
		Metrics:      financialMetrics,
		Rating:       amazonProduct.Rating,
		ReviewCount:  amazonProduct.ReviewCount,
		SalesRank:    amazonProduct.SalesRank,
		InStock:      amazonProduct.InStock,
		SoldByAmazon: amazonProduct.SoldByAmazon,
		MainImage:    amazonProduct.MainImage,
		MatchQuality: match.MatchQuality,
	})

	return tuple, gateOK, reasons, true
}

// resolveASIN tries an EAN search first, then a title search, per spec
// §4.6's precedence order, reporting which method actually produced the
// ASIN so callers can record it on the LinkingRecord.
func (o *Orchestrator) resolveASIN(ctx context.Context, product domain.SupplierProduct) (string, domain.MatchMethod, error) {
	if product.EAN != "" {
		outcome, err := o.deps.Amazon.SearchByEAN(ctx, product.EAN, product.Title)
		if err == nil && outcome != nil && outcome.ASIN != "" {
			return outcome.ASIN, domain.MatchMethodEANSearch, nil
		}
	}

	results, err := o.deps.Amazon.SearchByTitle(ctx, product.Title)
	if err != nil {
		return "", "", err
	}
	best := ""
	bestScore := -1.0
	for _, r := range results {
		if r.Similarity > bestScore {
			bestScore = r.Similarity
			best = r.ASIN
		}
	}
	if best == "" {
		return "", "", nil
	}
	if product.EAN != "" {
		return best, domain.MatchMethodHybridSearch, nil
	}
	return best, domain.MatchMethodTitleSearch, nil
}

// priceBand returns the configured price-band filter, defaulting to
// spec §4.8's 0.1/20.0 when both bounds are unset.
func priceBand(cfg *pipelineconfig.Config) (min, max float64) {
	min, max = cfg.ProcessingLimits.MinPriceGBP, cfg.ProcessingLimits.MaxPriceGBP
	if min == 0 && max == 0 {
		min, max = 0.1, 20.0
	}
	return min, max
}

func priceInBand(price decimal.Decimal, min, max float64) bool {
	f, _ := price.Float64()
	return f >= min && f <= max
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
