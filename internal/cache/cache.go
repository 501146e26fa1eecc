// Package cache implements AETHERA's two-tier Dataset Cache: a memory
// LRU tier backed by a disk tier, with single-flight build semantics
// per fingerprint. It is built directly on top of InMAP's
// github.com/ctessum/requestcache package (used the same way
// sr.Reader.Source uses it: requestcache.Deduplicate() + requestcache.Memory()
// composed with a custom ProcessFunc), extended with a TTL + size-cap
// disk tier that requestcache.Disk does not provide on its own.
package cache

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ctessum/requestcache"

	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/hash"
)

// BuildFunc computes the value for a fingerprint from its source dataset.
// It is the ProcessFunc given to requestcache.NewCache.
type BuildFunc func(ctx context.Context, fp hash.Fingerprint) (interface{}, error)

// Options configures the two tiers.
type Options struct {
	MemoryEntries int           // max entries held in the memory LRU tier
	DiskDir       string        // disk tier root; empty disables the disk tier
	DiskTTL       time.Duration // entries older than this are swept from disk
	DiskMaxBytes  int64         // total disk tier size cap
}

// Cache is AETHERA's process-wide dataset cache. One Cache instance
// should be shared across all concurrent runs in a process.
type Cache struct {
	opts Options
	rc   *requestcache.Cache
	disk *diskTier

	mu      sync.Mutex
	entries map[string]entryMeta // fingerprint key -> bookkeeping, for stats()
}

type entryMeta struct {
	createdAt  time.Time
	lastAccess time.Time
	sizeBytes  int64
}

// New constructs a Cache that calls build on a miss across both tiers.
// Concurrent Load calls for the same fingerprint share one build and one
// result, including shared failures.
func New(opts Options, build BuildFunc) *Cache {
	c := &Cache{opts: opts, entries: make(map[string]entryMeta)}
	processor := func(ctx context.Context, req interface{}) (interface{}, error) {
		fp := req.(hash.Fingerprint)
		v, err := build(ctx, fp)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[fp.String()] = entryMeta{createdAt: time.Now(), lastAccess: time.Now()}
		c.mu.Unlock()
		return v, nil
	}

	var cacheFuncs []requestcache.CacheFunc
	cacheFuncs = append(cacheFuncs, requestcache.Deduplicate())
	if opts.MemoryEntries > 0 {
		cacheFuncs = append(cacheFuncs, requestcache.Memory(opts.MemoryEntries))
	}
	if opts.DiskDir != "" {
		c.disk = newDiskTier(opts.DiskDir, opts.DiskTTL, opts.DiskMaxBytes)
		cacheFuncs = append(cacheFuncs, c.disk.cacheFunc())
	}
	c.rc = requestcache.NewCache(processor, runtime.GOMAXPROCS(-1), cacheFuncs...)
	return c
}

// Load returns the value for fingerprint fp, building it at most once
// across concurrent callers. Resolution order is memory tier -> disk tier
// (rehydrate) -> build from source, exactly as composed in New.
func (c *Cache) Load(ctx context.Context, fp hash.Fingerprint) (interface{}, error) {
	key := fp.String()
	req := c.rc.NewRequest(ctx, fp, key)
	v, err := req.Result()
	if err != nil {
		return nil, errs.Wrap(errs.StorageError, "cache", fmt.Errorf("building fingerprint %s: %w", key, err))
	}
	return v, nil
}

// Stats reports operational counters for the cache.
type Stats struct {
	Entries int
	Bytes   int64
	// HitRate is the fraction of Load calls that were satisfied without
	// invoking BuildFunc.
	HitRate float64
}

// Stats returns the current cache statistics. requestcache.Requests()
// returns per-tier request counts in pipeline order; the last entry is
// always the processor (a true miss), so hit rate is 1 - misses/total.
func (c *Cache) Stats() Stats {
	reqs := c.rc.Requests()
	c.mu.Lock()
	entries := len(c.entries)
	var bytes int64
	for _, e := range c.entries {
		bytes += e.sizeBytes
	}
	c.mu.Unlock()
	if c.disk != nil {
		bytes += c.disk.totalBytes()
	}
	var hitRate float64
	if len(reqs) > 0 && reqs[0] > 0 {
		misses := reqs[len(reqs)-1]
		hitRate = 1 - float64(misses)/float64(reqs[0])
	}
	return Stats{Entries: entries, Bytes: bytes, HitRate: hitRate}
}

// Clear discards all cached entries, including the disk tier.
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]entryMeta)
	c.mu.Unlock()
	if c.disk != nil {
		return c.disk.clear()
	}
	return nil
}
