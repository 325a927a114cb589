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

// StateStore persists one supplier's domain.ProcessingState to a single
// JSON file, atomically (tmp+rename), mirroring linking.Store's
// load/quarantine/flush idiom.
type StateStore struct {
	path   string
	logger zerolog.Logger

	mu    sync.Mutex
	state domain.ProcessingState
}

// LoadState opens (or initializes zero-valued) the processing-state
// file at path. A corrupt file is quarantined, not deleted, and treated
// as a fresh start.
func LoadState(path string, logger zerolog.Logger) (*StateStore, error) {
	s := &StateStore{path: path, logger: logger}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("%w: read processing state %s: %v", pipelineerrors.ErrFatal, path, err)
	}

	var state domain.ProcessingState
	if err := json.Unmarshal(raw, &state); err != nil {
		dest := fmt.Sprintf("%s.corrupt.%d", path, time.Now().Unix())
		if renameErr := os.Rename(path, dest); renameErr != nil && !os.IsNotExist(renameErr) {
			logger.Error().Err(renameErr).Str("path", path).Msg("failed to quarantine corrupt processing state")
		}
		logger.Warn().Err(err).Str("path", path).Msg("processing state failed JSON-decode, starting fresh")
		return s, nil
	}

	s.state = state
	return s, nil
}

// Get returns a copy of the current state.
func (s *StateStore) Get() domain.ProcessingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn to the in-memory state under lock; it does not
// persist (call Save to flush, per the orchestrator's checkpoint
// cadence).
func (s *StateStore) Update(fn func(*domain.ProcessingState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.state.LastCheckpoint = time.Now().UTC()
}

// Save persists the current state atomically.
func (s *StateStore) Save() error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create processing-state dir: %v", pipelineerrors.ErrFatal, err)
	}

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal processing state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write tmp processing state %s: %v", pipelineerrors.ErrFatal, tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: rename processing state into place: %v", pipelineerrors.ErrFatal, err)
	}

	s.logger.Debug().Int("last_processed_index", state.LastProcessedIndex).Msg("processing state flushed")
	return nil
}
