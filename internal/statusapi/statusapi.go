// Package statusapi implements fbastatusd's read-only HTTP handlers
// over one output-root's on-disk run state, grounded on
// internal/handlers/health.go and internal/handlers/runs.go's gin
// handler shape (retargeted from a Postgres-backed price API to this
// module's file-backed supplier run artifacts).
package statusapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/chri75252/simpler-fba-sub003/internal/linking"
	"github.com/chri75252/simpler-fba-sub003/internal/orchestrator"
	"github.com/chri75252/simpler-fba-sub003/internal/paths"
	"github.com/chri75252/simpler-fba-sub003/internal/verifier"
)

// Service holds the output root every request is read against.
type Service struct {
	root   string
	logger zerolog.Logger
}

// New builds a Service rooted at outputRoot, the same directory fbacli
// was given via --output-root.
func New(outputRoot string, logger zerolog.Logger) *Service {
	return &Service{root: outputRoot, logger: logger}
}

// HealthResponse reports whether the output root is reachable.
type HealthResponse struct {
	Status     string `json:"status"`
	OutputRoot string `json:"output_root"`
}

// Health godoc
// @Summary Report service liveness
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (s *Service) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", OutputRoot: s.root})
}

// StatusResponse summarizes one supplier's run artifacts without
// mutating any of them.
type StatusResponse struct {
	Supplier          string            `json:"supplier"`
	CachedProducts    int               `json:"cached_products"`
	LinkedProducts    int               `json:"linked_products"`
	LastCheckpoint    string            `json:"last_checkpoint,omitempty"`
	LastIndex         int               `json:"last_processed_index"`
	VerifierPassed    bool              `json:"verifier_passed"`
	VerifierArtifacts []verifier.Result `json:"verifier_artifacts"`
}

// Status godoc
// @Summary Report one supplier's run progress and output-verifier result
// @Produce json
// @Param supplier path string true "supplier name"
// @Success 200 {object} StatusResponse
// @Failure 500 {object} map[string]string
// @Router /status/{supplier} [get]
func (s *Service) Status(c *gin.Context) {
	supplierName := c.Param("supplier")
	pm := paths.NewManager(s.root)

	productCache, err := orchestrator.LoadProductCache(pm.CachedProductsFile(supplierName), supplierName, 0, s.logger)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	state, err := orchestrator.LoadState(pm.ProcessingStateFile(supplierName), s.logger)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	linkingMap, err := linking.Load(pm.LinkingMapFile(), linking.DefaultBatchSize, s.logger)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	v := verifier.New(pm.CachedProductsFile(supplierName), pm.AICategoryCacheFile(), pm.LinkingMapFile())
	results, err := v.VerifyAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	passed := true
	for _, r := range results {
		passed = passed && r.OK
	}

	st := state.Get()
	resp := StatusResponse{
		Supplier:          supplierName,
		CachedProducts:    productCache.Len(),
		LinkedProducts:    linkingMap.Len(),
		LastIndex:         st.LastProcessedIndex,
		VerifierPassed:    passed,
		VerifierArtifacts: results,
	}
	if !st.LastCheckpoint.IsZero() {
		resp.LastCheckpoint = st.LastCheckpoint.Format("2006-01-02T15:04:05Z07:00")
	}

	c.JSON(http.StatusOK, resp)
}
