package main

import (
	"context"
	"fmt"
	"time"

	"github.com/chri75252/simpler-fba-sub003/internal/amazon"
	"github.com/chri75252/simpler-fba-sub003/internal/authguard"
	"github.com/chri75252/simpler-fba-sub003/internal/cache"
	"github.com/chri75252/simpler-fba-sub003/internal/orchestrator"
	"github.com/chri75252/simpler-fba-sub003/internal/paths"
	"github.com/chri75252/simpler-fba-sub003/internal/pipelineconfig"
	"github.com/chri75252/simpler-fba-sub003/internal/pipelineerrors"
	"github.com/chri75252/simpler-fba-sub003/internal/ratelimit"
	"github.com/chri75252/simpler-fba-sub003/internal/runlog"
	"github.com/chri75252/simpler-fba-sub003/internal/supplier"
	"github.com/chri75252/simpler-fba-sub003/internal/supplierguard"
	"github.com/chri75252/simpler-fba-sub003/internal/verifier"
)

// loginAdapter turns a concrete supplier.Page driven login flow into
// the orchestrator's Authenticator contract.
type loginAdapter struct {
	page supplier.Page
}

func (loginAdapter) Login(ctx context.Context, email, password string) error {
	return fmt.Errorf("%w: supplier login flow is not implemented by this module (spec.md §1 out-of-scope collaborator)", pipelineerrors.ErrFatal)
}

// execute wires every in-scope component into an orchestrator.Run
// call. The only things it cannot construct on its own are the
// browser-driven Page implementations and the per-domain selector
// configs (see deps.go) — both explicitly out of scope per spec.md §1.
func execute(ctx context.Context, cfg *pipelineconfig.Config, outputRoot string, forceRegenerate bool) (*orchestrator.RunResult, error) {
	cfg.OutputRoot = outputRoot

	if newSupplierPage == nil || newAmazonPage == nil || buildSupplierConfig == nil || buildAmazonSelectors == nil {
		return nil, fmt.Errorf("%w: no browser driver / selector config wired — supply newSupplierPage, "+
			"newAmazonPage, buildSupplierConfig and buildAmazonSelectors (see cmd/fbacli/deps.go) before running fbacli",
			pipelineerrors.ErrFatal)
	}

	if cfg.SupplierURL == "" {
		return nil, fmt.Errorf("%w: --supplier-url is required", pipelineerrors.ErrFatal)
	}
	supplierName := ratelimit.DomainOf(cfg.SupplierURL)

	pm := paths.NewManager(outputRoot)

	cacheTTL := time.Duration(cfg.Cache.TTLHours) * time.Hour
	store, err := cache.NewStore(pm.Root(), nil, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: cache init: %v", pipelineerrors.ErrFatal, err)
	}

	guard := supplierguard.New(pm, cacheTTL, logger)
	auth := authguard.New(cfg.Authentication, logger)

	supplierPage, err := newSupplierPage(ctx, flagHeaded, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: supplier browser driver: %v", pipelineerrors.ErrFatal, err)
	}
	amazonPage, err := newAmazonPage(ctx, flagHeaded, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: amazon browser driver: %v", pipelineerrors.ErrFatal, err)
	}

	supplierConfig, err := buildSupplierConfig(cfg.SupplierURL)
	if err != nil {
		return nil, fmt.Errorf("%w: supplier selector config: %v", pipelineerrors.ErrFatal, err)
	}
	amazonSelectors, err := buildAmazonSelectors()
	if err != nil {
		return nil, fmt.Errorf("%w: amazon selector config: %v", pipelineerrors.ErrFatal, err)
	}

	limiter := ratelimit.New(rateLimitConfig(cfg.RateLimit))
	scraper := supplier.NewScraper(supplierConfig, supplierPage, nil, limiter, logger)
	extractor := amazon.New(amazonPage, amazonSelectors, logger)

	v := verifier.New(pm.CachedProductsFile(supplierName), pm.AICategoryCacheFile(), pm.LinkingMapFile())

	deps := orchestrator.Deps{
		Config:         cfg,
		Paths:          pm,
		Cache:          store,
		Guard:          guard,
		Auth:           auth,
		Supplier:       scraper,
		Amazon:         extractor,
		Login:          loginAdapter{page: supplierPage},
		AI:             aiTieBreaker,
		CategoryRanker: categoryRanker,
		Verifier:       v,
		BrandVocab:     nil,
		Logger:         logger,
	}

	orch, err := orchestrator.New(deps, supplierName)
	if err != nil {
		return nil, fmt.Errorf("%w: orchestrator init: %v", pipelineerrors.ErrFatal, err)
	}

	runLog := connectRunLogIfConfigured(ctx, supplierName)
	if runLog != nil {
		defer runLog.store.Close()
	}

	result, err := orch.Run(ctx, forceRegenerate)
	if runLog != nil {
		if err != nil {
			if recErr := runLog.store.RecordRunFailed(ctx, runLog.runID, err); recErr != nil {
				logger.Warn().Err(recErr).Msg("runlog: failed to record run failure")
			}
		} else {
			if recErr := runLog.store.RecordRunComplete(ctx, runLog.runID, result.ProductsExtracted, result.ProductsMatched, result.ProductsQualified); recErr != nil {
				logger.Warn().Err(recErr).Msg("runlog: failed to record run completion")
			}
		}
	}
	return result, err
}

// rateLimitConfig turns the loaded pipelineconfig.RateLimitConfig into
// a ratelimit.Config, falling back to ratelimit.DefaultConfig()'s
// spec-§4.4 default when the document left requests_per_second unset.
func rateLimitConfig(cfg pipelineconfig.RateLimitConfig) ratelimit.Config {
	if cfg.RequestsPerSecond <= 0 {
		return ratelimit.DefaultConfig()
	}
	return ratelimit.Config{
		RequestsPerSecond: cfg.RequestsPerSecond,
		MaxRetries:        cfg.MaxRetries,
		InitialBackoffMs:  cfg.InitialBackoffMs,
		MaxBackoffMs:      cfg.MaxBackoffMs,
	}
}

type activeRunLog struct {
	store *runlog.Store
	runID string
}

// connectRunLogIfConfigured wires the ambient Postgres run-audit log
// (internal/runlog) when --run-log-dsn is set. It never fails the run:
// a connect or bootstrap error is logged and the run proceeds without
// an audit trail, per spec.md §3's file-based state being the only
// thing that gates mark_ready.
func connectRunLogIfConfigured(ctx context.Context, supplierName string) *activeRunLog {
	if flagRunLogDSN == "" {
		return nil
	}
	if err := runlog.Bootstrap(flagRunLogDSN); err != nil {
		logger.Warn().Err(err).Msg("runlog: bootstrap failed, continuing without run log")
		return nil
	}
	store, err := runlog.Connect(ctx, flagRunLogDSN, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("runlog: connect failed, continuing without run log")
		return nil
	}
	runID, err := store.RecordRunStart(ctx, supplierName)
	if err != nil {
		logger.Warn().Err(err).Msg("runlog: record start failed, continuing without run log")
		store.Close()
		return nil
	}
	return &activeRunLog{store: store, runID: runID}
}
