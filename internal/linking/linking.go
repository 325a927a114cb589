// Package linking implements the C4 linking-map store: an in-memory
// array of LinkingRecord mirrored to disk, append-only and idempotent
// on supplier_product_identifier (spec §4.3).
package linking

import (
	"context"
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

// DefaultBatchSize is linking_map_batch_size's default (§4.8).
const DefaultBatchSize = 10

// Store is the linking-map store: append/flush over a single JSON file.
type Store struct {
	path      string
	batchSize int
	logger    zerolog.Logger

	mu          sync.Mutex
	records     []domain.LinkingRecord
	index       map[string]struct{} // supplier_product_identifier -> present
	unflushed   int
}

// Load opens (or initializes empty) the linking-map store at path. A
// corrupt file is treated as empty and renamed to
// linking_map.corrupt.<ts> rather than deleted.
func Load(path string, batchSize int, logger zerolog.Logger) (*Store, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	s := &Store{
		path:      path,
		batchSize: batchSize,
		logger:    logger,
		index:     make(map[string]struct{}),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("%w: read linking map %s: %v", pipelineerrors.ErrFatal, path, err)
	}

	var records []domain.LinkingRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		s.quarantine()
		logger.Warn().Err(err).Str("path", path).
			Msg("linking map failed JSON-decode, treating as empty and quarantining original")
		return s, nil
	}

	s.records = records
	for _, r := range records {
		s.index[r.SupplierProductIdentifier] = struct{}{}
	}
	return s, nil
}

func (s *Store) quarantine() {
	dest := fmt.Sprintf("%s.corrupt.%d", s.path, time.Now().Unix())
	if err := os.Rename(s.path, dest); err != nil && !os.IsNotExist(err) {
		s.logger.Error().Err(err).Str("path", s.path).Msg("failed to quarantine corrupt linking map")
	}
}

// Append adds record if its identifier is not already present. Returns
// whether the record was actually appended (false ⇒ no-op duplicate,
// per spec §3's append-only/idempotent invariant). Flushes when the
// number of unflushed appends reaches the configured batch size.
func (s *Store) Append(ctx context.Context, record domain.LinkingRecord) (bool, error) {
	s.mu.Lock()
	if _, exists := s.index[record.SupplierProductIdentifier]; exists {
		s.mu.Unlock()
		return false, nil
	}

	s.records = append(s.records, record)
	s.index[record.SupplierProductIdentifier] = struct{}{}
	s.unflushed++
	due := s.unflushed >= s.batchSize
	s.mu.Unlock()

	if due {
		if err := s.Flush(ctx); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Contains reports whether identifier is already present in the map,
// used by the orchestrator to skip already-linked products before any
// network work (§4.8 resume semantics).
func (s *Store) Contains(identifier string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[identifier]
	return ok
}

// Len returns the current in-memory record count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Flush persists the array atomically (tmp+rename), preserving
// insertion order bit-for-bit (no reordering, per spec §6).
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	records := make([]domain.LinkingRecord, len(s.records))
	copy(records, s.records)
	s.unflushed = 0
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create linking map dir: %v", pipelineerrors.ErrFatal, err)
	}

	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal linking map: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write tmp linking map %s: %v", pipelineerrors.ErrFatal, tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: rename linking map into place: %v", pipelineerrors.ErrFatal, err)
	}

	s.logger.Debug().Int("records", len(records)).Msg("linking map flushed")
	return nil
}
