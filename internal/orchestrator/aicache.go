package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chri75252/simpler-fba-sub003/internal/domain"
	"github.com/chri75252/simpler-fba-sub003/internal/pipelineerrors"
)

// AICategoryCache persists ai_category_cache.json's ai_suggestion_history
// (recovered from original_source's langgraph category-suggestion tool;
// see SUPPLEMENTED FEATURES). Nil-safe by construction: the orchestrator
// only records to it when a CategoryRanker collaborator is configured.
type AICategoryCache struct {
	path     string
	supplier string
	created  time.Time
	logger   zerolog.Logger

	mu      sync.Mutex
	history []domain.CategorySuggestion
}

// LoadAICategoryCache opens (or initializes empty) the AI category cache
// at path. A corrupt file is quarantined, not deleted.
func LoadAICategoryCache(path, supplier string, logger zerolog.Logger) (*AICategoryCache, error) {
	c := &AICategoryCache{path: path, supplier: supplier, created: time.Now().UTC(), logger: logger}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("%w: read ai category cache %s: %v", pipelineerrors.ErrFatal, path, err)
	}

	var doc domain.AICategoryCacheDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		dest := fmt.Sprintf("%s.corrupt.%d", path, time.Now().Unix())
		if renameErr := os.Rename(path, dest); renameErr != nil && !os.IsNotExist(renameErr) {
			logger.Error().Err(renameErr).Str("path", path).Msg("failed to quarantine corrupt ai category cache")
		}
		logger.Warn().Err(err).Str("path", path).Msg("ai category cache failed JSON-decode, starting fresh")
		return c, nil
	}

	c.history = doc.AISuggestionHistory
	if !doc.Created.IsZero() {
		c.created = doc.Created
	}
	return c, nil
}

// Record appends one suggestion round to the in-memory history.
func (c *AICategoryCache) Record(topURLs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	suggestion := domain.CategorySuggestion{Timestamp: time.Now().UTC()}
	suggestion.AISuggestions.Top3URLs = topURLs
	c.history = append(c.history, suggestion)
}

// Len returns the number of recorded suggestion rounds.
func (c *AICategoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// Flush persists the AI category cache atomically. A no-op when nothing
// has ever been recorded, so suppliers run without a CategoryRanker
// never produce an empty ai_category_cache.json.
func (c *AICategoryCache) Flush() error {
	c.mu.Lock()
	if len(c.history) == 0 {
		c.mu.Unlock()
		return nil
	}
	doc := domain.AICategoryCacheDocument{
		Supplier:            c.supplier,
		Created:             c.created,
		AISuggestionHistory: c.history,
	}
	c.mu.Unlock()

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ai category cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("%w: create ai category cache dir: %v", pipelineerrors.ErrFatal, err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write tmp ai category cache %s: %v", pipelineerrors.ErrFatal, tmpPath, err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("%w: rename ai category cache into place: %v", pipelineerrors.ErrFatal, err)
	}

	c.logger.Debug().Int("rounds", len(doc.AISuggestionHistory)).Msg("ai category cache flushed")
	return nil
}
