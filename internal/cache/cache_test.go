package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aethera-eia/aethera/internal/hash"
)

func TestLoadDeduplicatesConcurrentBuilds(t *testing.T) {
	var builds int32
	c := New(Options{MemoryEntries: 10}, func(ctx context.Context, fp hash.Fingerprint) (interface{}, error) {
		atomic.AddInt32(&builds, 1)
		time.Sleep(10 * time.Millisecond)
		return 42, nil
	})

	fp := hash.Fingerprint{Path: "/data/corine.tif", SizeBytes: 1}
	const n = 20
	results := make(chan interface{}, n)
	for i := 0; i < n; i++ {
		go func() {
			v, err := c.Load(context.Background(), fp)
			require.NoError(t, err)
			results <- v
		}()
	}
	for i := 0; i < n; i++ {
		require.Equal(t, 42, <-results)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&builds))
}

func TestLoadSharesFailures(t *testing.T) {
	c := New(Options{MemoryEntries: 10}, func(ctx context.Context, fp hash.Fingerprint) (interface{}, error) {
		return nil, context.DeadlineExceeded
	})
	fp := hash.Fingerprint{Path: "/data/missing.tif"}
	_, err := c.Load(context.Background(), fp)
	require.Error(t, err)
}

func TestStatsReflectsHitRate(t *testing.T) {
	c := New(Options{MemoryEntries: 10}, func(ctx context.Context, fp hash.Fingerprint) (interface{}, error) {
		return "v", nil
	})
	fp := hash.Fingerprint{Path: "/data/a.tif"}
	_, _ = c.Load(context.Background(), fp)
	_, _ = c.Load(context.Background(), fp)
	stats := c.Stats()
	require.GreaterOrEqual(t, stats.HitRate, 0.0)
}

func TestDiskTierRehydrates(t *testing.T) {
	dir := t.TempDir()
	var builds int32
	c := New(Options{MemoryEntries: 0, DiskDir: dir, DiskTTL: time.Hour, DiskMaxBytes: 1 << 20}, func(ctx context.Context, fp hash.Fingerprint) (interface{}, error) {
		atomic.AddInt32(&builds, 1)
		return []float64{1, 2, 3}, nil
	})
	fp := hash.Fingerprint{Path: "/data/b.tif"}
	_, err := c.Load(context.Background(), fp)
	require.NoError(t, err)

	// A fresh cache pointed at the same disk dir should rehydrate rather
	// than rebuild.
	c2 := New(Options{MemoryEntries: 0, DiskDir: dir, DiskTTL: time.Hour, DiskMaxBytes: 1 << 20}, func(ctx context.Context, fp hash.Fingerprint) (interface{}, error) {
		atomic.AddInt32(&builds, 1)
		return []float64{9, 9, 9}, nil
	})
	v, err := c2.Load(context.Background(), fp)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3}, v)
	require.Equal(t, int32(1), atomic.LoadInt32(&builds))
}
