package cache

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ctessum/requestcache"
)

// diskTier is a content-addressed on-disk cache tier with a TTL sweep and a
// total-size ceiling, layered on top of requestcache.Disk (which provides
// the per-request read/write-through behavior using gob marshaling, the
// same helper sr.Reader could use for its SR matrix cache). Because
// requestcache.Request's fields are private to that package, AETHERA
// cannot hook eviction into the per-request path directly; instead a
// janitor goroutine periodically sweeps the directory, the same
// out-of-band pattern used for TTL caches generally.
type diskTier struct {
	dir      string
	ttl      time.Duration
	maxBytes int64

	mu     sync.Mutex
	stopCh chan struct{}
}

func newDiskTier(dir string, ttl time.Duration, maxBytes int64) *diskTier {
	_ = os.MkdirAll(dir, 0o755)
	d := &diskTier{dir: dir, ttl: ttl, maxBytes: maxBytes, stopCh: make(chan struct{})}
	d.startJanitor()
	return d
}

// cacheFunc returns the requestcache.CacheFunc for this tier: a plain
// gob-marshaled disk cache. Eviction is handled out-of-band by the
// janitor, not by this function, since a cache miss due to disk corruption
// must be treated as absent (requestcache.Disk already does this: it
// passes the request through to the producer on any read/decode error).
func (d *diskTier) cacheFunc() requestcache.CacheFunc {
	return requestcache.Disk(d.dir, requestcache.MarshalGob, requestcache.UnmarshalGob)
}

func (d *diskTier) startJanitor() {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.sweep()
			case <-d.stopCh:
				return
			}
		}
	}()
}

// sweep evicts entries older than the TTL and, if the tier still exceeds
// maxBytes, evicts the least-recently-used remainder until it fits.
func (d *diskTier) sweep() {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return
	}
	type fi struct {
		path    string
		modTime time.Time
		size    int64
	}
	var files []fi
	now := time.Now()
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if d.ttl > 0 && now.Sub(info.ModTime()) > d.ttl {
			_ = os.Remove(filepath.Join(d.dir, e.Name()))
			continue
		}
		files = append(files, fi{filepath.Join(d.dir, e.Name()), info.ModTime(), info.Size()})
		total += info.Size()
	}
	if d.maxBytes <= 0 || total <= d.maxBytes {
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })
	for _, f := range files {
		if total <= d.maxBytes {
			break
		}
		if err := os.Remove(f.path); err == nil {
			total -= f.size
		}
	}
}

func (d *diskTier) totalBytes() int64 {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0
	}
	var total int64
	for _, e := range entries {
		if info, err := e.Info(); err == nil {
			total += info.Size()
		}
	}
	return total
}

func (d *diskTier) clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		_ = os.Remove(filepath.Join(d.dir, e.Name()))
	}
	return nil
}

func (d *diskTier) Close() {
	close(d.stopCh)
}
