// Command fbacli is the thin entrypoint that wires the core (C1-C4,
// C8-C12) together and drives one orchestrator.Run per invocation
// (spec.md §6's CLI flag/exit-code contract), grounded on cmd/cli's
// cobra root-command + console-logger idiom.
//
// Headless browser automation, the concrete per-domain selector
// configs, and LLM/AI collaborators are explicitly out of scope
// (spec.md §1's "external collaborators"); this binary exposes them as
// the newSupplierPage/newAmazonPage/buildSupplierConfig/
// buildAmazonSelectors/aiTieBreaker/categoryRanker package-level
// variables in deps.go, left unset here. A deployment links in
// concrete implementations of those and assigns the corresponding
// variable (from an init() in this package) before main runs.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chri75252/simpler-fba-sub003/internal/pipelineconfig"
	"github.com/chri75252/simpler-fba-sub003/internal/pipelineerrors"
)

var (
	flagConfigFile       string
	flagOutputRoot       string
	flagSupplierURL      string
	flagSupplierEmail    string
	flagSupplierPassword string
	flagHeaded           bool
	flagMaxProducts      int
	flagForceRegenerate  bool
	flagEnableTracing    bool
	flagRunLogDSN        string

	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fbacli",
	Short: "FBA arbitrage pipeline: extract, match, and evaluate one supplier's catalogue",
	Long: `fbacli drives one run of the extraction orchestrator against a
configured wholesale supplier: discover categories, extract listings,
match each to an Amazon ASIN, evaluate FBA profitability, and emit a
gated, schema-validated set of output artifacts.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfigFile, "config", "", "config file (default: ./config.json or ./config/config.json)")
	rootCmd.Flags().StringVar(&flagOutputRoot, "output-root", "./fba_output", "run output directory root")
	rootCmd.Flags().StringVar(&flagSupplierURL, "supplier-url", "", "supplier base URL")
	rootCmd.Flags().StringVar(&flagSupplierEmail, "supplier-email", "", "supplier account email")
	rootCmd.Flags().StringVar(&flagSupplierPassword, "supplier-password", "", "supplier account password")
	rootCmd.Flags().BoolVar(&flagHeaded, "headed", false, "run the browser driver headed (default false)")
	rootCmd.Flags().IntVar(&flagMaxProducts, "max-products", 0, "hard cap on products processed this run (0 = unlimited, falls back to config)")
	rootCmd.Flags().BoolVar(&flagForceRegenerate, "force-regenerate", false, "archive existing supplier data and re-extract from scratch")
	rootCmd.Flags().BoolVar(&flagEnableTracing, "enable-langgraph-tracing", false, "enable tracing only; has no effect on pipeline behaviour")
	rootCmd.Flags().StringVar(&flagRunLogDSN, "run-log-dsn", "", "optional Postgres DSN for the ambient run-audit log (internal/runlog); unset disables it")
}

func initLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stdout}
	return zerolog.New(output).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

func runPipeline(cmd *cobra.Command, args []string) error {
	logger = initLogger()

	cfg, err := pipelineconfig.Load(flagConfigFile)
	if err != nil {
		return fmt.Errorf("%w: %v", pipelineerrors.ErrFatal, err)
	}
	applyFlagOverrides(cfg)

	result, err := execute(cmd.Context(), cfg, flagOutputRoot, flagForceRegenerate)
	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		return err
	}

	logger.Info().
		Str("supplier", result.Supplier).
		Bool("skipped_already_ready", result.SkippedAlreadyReady).
		Int("categories_discovered", result.CategoriesDiscovered).
		Int("products_extracted", result.ProductsExtracted).
		Int("products_matched", result.ProductsMatched).
		Int("products_qualified", result.ProductsQualified).
		Msg("run complete")
	return nil
}

// applyFlagOverrides layers CLI flags over the loaded config document,
// per spec.md §6's flag table (flags win over the config file).
func applyFlagOverrides(cfg *pipelineconfig.Config) {
	if flagSupplierURL != "" {
		cfg.SupplierURL = flagSupplierURL
	}
	if flagSupplierEmail != "" {
		cfg.SupplierEmail = flagSupplierEmail
	}
	if flagSupplierPassword != "" {
		cfg.SupplierPassword = flagSupplierPassword
	}
	if flagMaxProducts > 0 {
		cfg.System.MaxProducts = flagMaxProducts
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(pipelineerrors.ExitCode(err))
	}
}
