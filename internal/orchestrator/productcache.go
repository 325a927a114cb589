package orchestrator

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

// DefaultUpdateFrequencyProducts is the cache-flush cadence's default
// (spec §4.8's "default small, e.g. 3-10").
const DefaultUpdateFrequencyProducts = 5

// ProductCache accumulates SupplierProducts in memory and flushes
// cached_products/<supplier>_products_cache.json every flushEvery
// appends, mirroring linking.Store's batched-flush idiom but for the
// supplier product cache rather than the linking map.
type ProductCache struct {
	path       string
	supplier   string
	flushEvery int
	logger     zerolog.Logger

	mu        sync.Mutex
	products  []domain.SupplierProduct
	seen      map[string]struct{}
	unflushed int
}

// LoadProductCache opens (or initializes empty) the product cache at
// path. A corrupt file is quarantined, not deleted.
func LoadProductCache(path, supplier string, flushEvery int, logger zerolog.Logger) (*ProductCache, error) {
	if flushEvery <= 0 {
		flushEvery = DefaultUpdateFrequencyProducts
	}
	c := &ProductCache{path: path, supplier: supplier, flushEvery: flushEvery, logger: logger, seen: map[string]struct{}{}}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("%w: read product cache %s: %v", pipelineerrors.ErrFatal, path, err)
	}

	var doc domain.CachedProductsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		dest := fmt.Sprintf("%s.corrupt.%d", path, time.Now().Unix())
		if renameErr := os.Rename(path, dest); renameErr != nil && !os.IsNotExist(renameErr) {
			logger.Error().Err(renameErr).Str("path", path).Msg("failed to quarantine corrupt product cache")
		}
		logger.Warn().Err(err).Str("path", path).Msg("product cache failed JSON-decode, starting fresh")
		return c, nil
	}

	c.products = doc.Products
	for _, p := range doc.Products {
		c.seen[p.Identifier.String()] = struct{}{}
	}
	return c, nil
}

// Append adds product to the in-memory cache, flushing once flushEvery
// unflushed appends accumulate. A product whose identifier is already
// present (loaded from disk or appended earlier this run) is skipped,
// so a resumed run never duplicates entries in cached_products.json.
func (c *ProductCache) Append(ctx context.Context, product domain.SupplierProduct) error {
	key := product.Identifier.String()

	c.mu.Lock()
	if _, dup := c.seen[key]; dup {
		c.mu.Unlock()
		return nil
	}
	c.seen[key] = struct{}{}
	c.products = append(c.products, product)
	c.unflushed++
	due := c.unflushed >= c.flushEvery
	c.mu.Unlock()

	if due {
		return c.Flush(ctx)
	}
	return nil
}

// Products returns a copy of every cached product, used by the match
// phase to walk the price-filtered backlog.
func (c *ProductCache) Products() []domain.SupplierProduct {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.SupplierProduct, len(c.products))
	copy(out, c.products)
	return out
}

// Len returns the current in-memory product count.
func (c *ProductCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.products)
}

// Flush persists the product cache atomically.
func (c *ProductCache) Flush(ctx context.Context) error {
	c.mu.Lock()
	products := make([]domain.SupplierProduct, len(c.products))
	copy(products, c.products)
	c.unflushed = 0
	c.mu.Unlock()

	doc := domain.CachedProductsDocument{
		Supplier: c.supplier,
		Products: products,
		Updated:  time.Now().UTC(),
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal product cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("%w: create product cache dir: %v", pipelineerrors.ErrFatal, err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write tmp product cache %s: %v", pipelineerrors.ErrFatal, tmpPath, err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("%w: rename product cache into place: %v", pipelineerrors.ErrFatal, err)
	}

	c.logger.Debug().Int("products", len(products)).Msg("supplier product cache flushed")
	return nil
}
