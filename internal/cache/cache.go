// Package cache implements the atomic, TTL-aware, family-scoped JSON
// cache store (C1): supplier_products, amazon_asin, and linking_map
// families, each with its own TTL, sharing a single on-disk root.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/chri75252/simpler-fba-sub003/internal/pipelineerrors"
)

// Family names the three cache scopes spec §4.1 defines TTLs for.
type Family string

const (
	FamilySupplierProducts Family = "supplier_products"
	FamilyAmazonASIN       Family = "amazon_asin"
	FamilyLinkingMap       Family = "linking_map"
)

// DefaultTTL is the default per-family TTL (168h, per spec §4.1).
const DefaultTTL = 168 * time.Hour

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fba_cache_hits_total",
		Help: "Total number of cache hits by family",
	}, []string{"family"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fba_cache_misses_total",
		Help: "Total number of cache misses by family",
	}, []string{"family"})

	cacheCorruptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fba_cache_corrupt_total",
		Help: "Total number of cache entries quarantined as corrupt",
	}, []string{"family"})
)

// Store is the C1 cache store: Get/Set/Clear over family-scoped JSON
// files rooted at basePath, with per-key mutex serialization (caches
// are read-mostly; writers serialize per key, per spec §5).
type Store struct {
	basePath string
	ttls     map[Family]time.Duration
	logger   zerolog.Logger

	mu        sync.Mutex
	keyLocks  map[string]*sync.Mutex
}

// NewStore creates a cache store rooted at basePath, creating it if
// necessary. ttlOverrides may supply non-default per-family TTLs.
func NewStore(basePath string, ttlOverrides map[Family]time.Duration, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache root %s: %v", pipelineerrors.ErrFatal, basePath, err)
	}

	ttls := map[Family]time.Duration{
		FamilySupplierProducts: DefaultTTL,
		FamilyAmazonASIN:       DefaultTTL,
		FamilyLinkingMap:       DefaultTTL,
	}
	for f, d := range ttlOverrides {
		ttls[f] = d
	}

	return &Store{
		basePath: basePath,
		ttls:     ttls,
		logger:   logger,
		keyLocks: make(map[string]*sync.Mutex),
	}, nil
}

// lockFor returns the per-key mutex for key, creating it if absent.
func (s *Store) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		s.keyLocks[key] = l
	}
	return l
}

// keyPath resolves a cache key to a filesystem path under basePath,
// guarding against path traversal the way the teacher's LocalStorage
// does (Clean + strip any leading separator).
func (s *Store) keyPath(key string) string {
	clean := filepath.Clean(key)
	clean = strings.TrimPrefix(clean, string(filepath.Separator))
	clean = strings.TrimPrefix(clean, "/")
	return filepath.Join(s.basePath, clean)
}

// Get returns the decoded JSON value for key if its file exists and its
// mtime is within family's TTL; returns (nil, false, nil) on a clean
// miss. A JSON-decode failure quarantines the file (renamed with a
// .corrupt.<ts> suffix, not deleted) and is reported as a miss, not an
// error, per spec §4.1's failure policy.
func (s *Store) Get(ctx context.Context, family Family, key string, out any) (bool, error) {
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	path := s.keyPath(key)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			cacheMisses.WithLabelValues(string(family)).Inc()
			return false, nil
		}
		return false, fmt.Errorf("%w: stat %s: %v", pipelineerrors.ErrFatal, path, err)
	}

	ttl := s.ttls[family]
	if ttl > 0 && time.Since(info.ModTime()) > ttl {
		cacheMisses.WithLabelValues(string(family)).Inc()
		return false, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %v", pipelineerrors.ErrFatal, path, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		s.quarantine(path)
		cacheCorruptions.WithLabelValues(string(family)).Inc()
		s.logger.Warn().Err(err).Str("key", key).Str("family", string(family)).
			Msg("cache entry failed JSON-decode, quarantined as corrupt")
		return false, nil
	}

	cacheHits.WithLabelValues(string(family)).Inc()
	return true, nil
}

// quarantine renames a corrupt cache file to <path>.corrupt.<unix-ts>,
// per spec §4.1's "not deleted" requirement.
func (s *Store) quarantine(path string) {
	dest := fmt.Sprintf("%s.corrupt.%d", path, time.Now().Unix())
	if err := os.Rename(path, dest); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to quarantine corrupt cache file")
	}
}

// Set writes value to <path>.tmp then renames over the target so a
// concurrent reader never observes a partial file (a reader that sees
// the .tmp file mid-write simply treats it as absent, since it is not
// the target key).
func (s *Store) Set(ctx context.Context, family Family, key string, value any) error {
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	path := s.keyPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create dir for %s: %v", pipelineerrors.ErrFatal, path, err)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write tmp %s: %v", pipelineerrors.ErrFatal, tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename %s -> %s: %v", pipelineerrors.ErrFatal, tmpPath, path, err)
	}

	return nil
}

// Clear removes all files under a key prefix (a supplier's scope).
func (s *Store) Clear(ctx context.Context, keyPrefix string) error {
	root := s.keyPath(keyPrefix)
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("%w: clear %s: %v", pipelineerrors.ErrFatal, root, err)
	}
	return nil
}

// Exists reports whether a (possibly stale) cache entry exists for key,
// ignoring TTL — for callers that need raw presence rather than
// freshness.
func (s *Store) Exists(key string) bool {
	_, err := os.Stat(s.keyPath(key))
	return err == nil
}

// AmazonKey builds the C1 key for an Amazon product cache entry:
// amazon/<asin>[_<ean>].json.
func AmazonKey(asin, ean string) string {
	if ean != "" {
		return fmt.Sprintf("amazon/%s_%s.json", asin, ean)
	}
	return fmt.Sprintf("amazon/%s.json", asin)
}

// SupplierProductsKey builds the C1 key for a supplier's product cache:
// supplier/<supplier>_products_cache.json.
func SupplierProductsKey(supplier string) string {
	return fmt.Sprintf("supplier/%s_products_cache.json", supplier)
}

// LinkingMapKey builds the C1 key for the linking map: linking/linking_map.json.
func LinkingMapKey() string {
	return "linking/linking_map.json"
}
