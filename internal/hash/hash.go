// Package hash provides the stable hashing used for cache fingerprints and
// content-addressed artifact names. Adapted from InMAP's
// internal/hash package: gob-encode the object, fall back to a
// deterministic spew dump for values gob can't encode (NaNs, funcs, etc).
package hash

import (
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// Key returns a stable hash key for object, suitable for use as a cache or
// fingerprint key. It is not cryptographically secure; use SHA256Hex for
// content-addressing artifact bytes instead.
func Key(object interface{}) string {
	if s, ok := object.(fmt.Stringer); ok {
		return s.String()
	}
	h := fnv.New128a()
	e := gob.NewEncoder(h)
	if err := e.Encode(object); err == nil {
		bKey := h.Sum([]byte{})
		return fmt.Sprintf("%x", bKey[0:h.Size()])
	}
	// If there is an error (e.g., there are NaN values)
	// use spew instead of gob.
	printer := spew.ConfigState{
		Indent:                  " ",
		SortKeys:                true,
		DisableMethods:          true,
		SpewKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	printer.Fprintf(h, "%#v", object)
	bKey := h.Sum([]byte{})
	return fmt.Sprintf("%x", bKey[0:h.Size()])
}

// SHA256Hex returns the lowercase hex SHA-256 digest of b, used for
// manifest artifact hashes.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum)
}

// Fingerprint is the stable dataset cache key: a hash of
// (dataset path, mtime, size, requested AOI bbox rounded to 1m, optional
// filter expression).
type Fingerprint struct {
	Path       string
	ModTimeUTC int64
	SizeBytes  int64
	BBox       [4]float64 // rounded to 1m in the working CRS
	FilterExpr string
}

// String returns the fingerprint's cache key, satisfying fmt.Stringer so
// Key(fp) skips re-encoding the struct.
func (f Fingerprint) String() string {
	h := fnv.New128a()
	fmt.Fprintf(h, "%s|%d|%d|%.0f|%.0f|%.0f|%.0f|%s",
		f.Path, f.ModTimeUTC, f.SizeBytes, f.BBox[0], f.BBox[1], f.BBox[2], f.BBox[3], f.FilterExpr)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// RoundMeter rounds a coordinate to the nearest meter, required for
// fingerprint stability across callers requesting the "same" bbox with
// floating point jitter.
func RoundMeter(v float64) float64 {
	if v < 0 {
		return float64(int64(v - 0.5))
	}
	return float64(int64(v + 0.5))
}
