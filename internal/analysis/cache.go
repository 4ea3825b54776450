package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/renalscope/renalscope/internal/diagnosis"
	"github.com/renalscope/renalscope/internal/imageref"
)

// CachedAnalyzer memoizes successful analyses by image fingerprint and rule
// variant. Concurrent requests for the same key share one upstream chain.
type CachedAnalyzer struct {
	inner *Orchestrator
	cache *ristretto.Cache[string, diagnosis.AnalysisResult]
	group singleflight.Group
	ttl   time.Duration
}

// NewCachedAnalyzer wraps o with a bounded TTL cache.
func NewCachedAnalyzer(o *Orchestrator, cfg CacheConfig) (*CachedAnalyzer, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultConfig().Cache.MaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().Cache.TTL
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, diagnosis.AnalysisResult]{
		NumCounters:        cfg.MaxEntries * 10,
		MaxCost:            cfg.MaxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}

	return &CachedAnalyzer{inner: o, cache: cache, ttl: cfg.TTL}, nil
}

// AnalyzeImage analyzes raw image bytes.
func (c *CachedAnalyzer) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (*diagnosis.AnalysisResult, error) {
	return c.Analyze(ctx, imageref.FromBytes(data, mimeType))
}

// Analyze returns a cached result when one exists for the image.
func (c *CachedAnalyzer) Analyze(ctx context.Context, ref imageref.Reference) (*diagnosis.AnalysisResult, error) {
	img, err := c.inner.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	key := img.Fingerprint() + ":" + string(c.inner.Variant())
	if res, ok := c.cache.Get(key); ok {
		return &res, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		res, err := c.inner.AnalyzeResolved(ctx, img)
		if err != nil {
			return nil, err
		}
		c.cache.SetWithTTL(key, *res, 1, c.ttl)
		c.cache.Wait()
		return *res, nil
	})
	if err != nil {
		return nil, err
	}

	// Each caller gets its own copy.
	res := v.(diagnosis.AnalysisResult)
	return &res, nil
}

// Close releases the cache's background goroutines.
func (c *CachedAnalyzer) Close() {
	c.cache.Close()
}
