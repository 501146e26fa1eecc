// Package storage implements AETHERA's Storage Backend :
// an abstract save/read/delete/list/presign interface over run artifacts,
// with a local-filesystem implementation (atomic temp-file + rename, the
// same durability strategy InMAP's Save uses for gob checkpoints)
// and an object-store implementation grounded on InMAP's
// cloud.OpenBucket / readBlob / writeBlob (cloud/bucket.go, cloud/blob.go),
// built on github.com/google/go-cloud's blob package.
package storage

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-cloud/blob"

	"github.com/aethera-eia/aethera/internal/errs"
)

// Backend is the abstract storage contract consumed by the orchestrator
// and every downstream reader of run artifacts.
type Backend interface {
	Save(ctx context.Context, path string, data []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Presign(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// normalize cleans a caller-supplied path and rejects traversal outside
// the configured root.
func normalize(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	clean = strings.TrimPrefix(clean, "/")
	if clean == ".." || strings.HasPrefix(clean, "../") || clean == "" {
		return "", errs.New(errs.StorageError, "storage", fmt.Sprintf("path %q escapes the storage root", path))
	}
	return clean, nil
}

// LocalBackend roots all operations at a configured directory, writing
// atomically via temp-file + rename in the same directory.
type LocalBackend struct {
	Root string
}

// NewLocal returns a LocalBackend rooted at root, creating it if absent.
func NewLocal(root string) (*LocalBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errs.Wrap(errs.StorageError, "storage", err)
	}
	return &LocalBackend{Root: root}, nil
}

func (b *LocalBackend) resolve(path string) (string, error) {
	clean, err := normalize(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.Root, clean), nil
}

// Save writes data to path atomically: a temp file is written in the same
// directory as the destination, then renamed into place, so readers never
// observe a partial artifact.
func (b *LocalBackend) Save(ctx context.Context, path string, data []byte) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errs.Wrap(errs.StorageError, "storage", err)
	}
	tmp, err := ioutil.TempFile(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return errs.Wrap(errs.StorageError, "storage", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errs.Wrap(errs.StorageError, "storage", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.StorageError, "storage", err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.StorageError, "storage", err)
	}
	return nil
}

func (b *LocalBackend) Read(ctx context.Context, path string) ([]byte, error) {
	full, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.DatasetMissing, "storage", path)
		}
		return nil, errs.Wrap(errs.StorageError, "storage", err)
	}
	return data, nil
}

func (b *LocalBackend) Delete(ctx context.Context, path string) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.StorageError, "storage", err)
	}
	return nil
}

func (b *LocalBackend) List(ctx context.Context, prefix string) ([]string, error) {
	root, err := b.resolve(prefix)
	if err != nil {
		return nil, err
	}
	var out []string
	err = filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.Root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.StorageError, "storage", err)
	}
	return out, nil
}

// Presign is not meaningful for a local filesystem backend; it returns
// the empty string, matching "URL|None" contract.
func (b *LocalBackend) Presign(ctx context.Context, path string, ttl time.Duration) (string, error) {
	return "", nil
}

// ObjectBackend stores artifacts in a gocloud bucket, grounded on the
// teacher's cloud.OpenBucket/readBlob/writeBlob (cloud/bucket.go,
// cloud/blob.go). Writes are a single PUT, matching the object-store
// semantics 
type ObjectBackend struct {
	bucket *blob.Bucket
	prefix string
}

// NewObject opens bucketURL (e.g. "s3://my-bucket", "gs://my-bucket",
// "file:///tmp/bucket") and roots all keys under prefix.
func NewObject(ctx context.Context, bucketURL, prefix string) (*ObjectBackend, error) {
	bucket, err := openBucket(ctx, bucketURL)
	if err != nil {
		return nil, errs.Wrap(errs.StorageError, "storage", err)
	}
	return &ObjectBackend{bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (b *ObjectBackend) key(path string) (string, error) {
	clean, err := normalize(path)
	if err != nil {
		return "", err
	}
	if b.prefix == "" {
		return clean, nil
	}
	return b.prefix + "/" + clean, nil
}

func (b *ObjectBackend) Save(ctx context.Context, path string, data []byte) error {
	key, err := b.key(path)
	if err != nil {
		return err
	}
	if err := writeBlob(ctx, b.bucket, key, data); err != nil {
		return errs.Wrap(errs.StorageError, "storage", err)
	}
	return nil
}

func (b *ObjectBackend) Read(ctx context.Context, path string) ([]byte, error) {
	key, err := b.key(path)
	if err != nil {
		return nil, err
	}
	data, err := readBlob(ctx, b.bucket, key)
	if err != nil {
		return nil, errs.Wrap(errs.StorageError, "storage", err)
	}
	return data, nil
}

func (b *ObjectBackend) Delete(ctx context.Context, path string) error {
	key, err := b.key(path)
	if err != nil {
		return err
	}
	if err := b.bucket.Delete(ctx, key); err != nil {
		return errs.Wrap(errs.StorageError, "storage", err)
	}
	return nil
}

func (b *ObjectBackend) List(ctx context.Context, prefix string) ([]string, error) {
	key, err := b.key(prefix)
	if err != nil {
		return nil, err
	}
	var out []string
	iter := b.bucket.List(&blob.ListOptions{Prefix: key})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.StorageError, "storage", err)
		}
		out = append(out, obj.Key)
	}
	return out, nil
}

// Presign returns a time-limited signed URL when the underlying provider
// supports it (S3, GCS); providers that don't (e.g. the local "file"
// scheme used in tests) return an empty string.
func (b *ObjectBackend) Presign(ctx context.Context, path string, ttl time.Duration) (string, error) {
	key, err := b.key(path)
	if err != nil {
		return "", err
	}
	url, err := b.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{Expiry: ttl})
	if err != nil {
		return "", nil
	}
	return url, nil
}
