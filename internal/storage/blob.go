package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
)

// openBucket opens bucketURL, where bucketURL must be "provider://name",
// adapted from InMAP's cloud.OpenBucket (cloud/bucket.go). The
// accepted providers are "file" (local filesystem, used in tests and for
// the "object" backend pointed at a local directory), "gs" (Google Cloud
// Storage), and "s3" (AWS S3).
func openBucket(ctx context.Context, bucketURL string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("storage.openBucket: %w", err)
	}
	switch u.Scheme {
	case "file":
		return fileblob.OpenBucket(u.Hostname()+u.Path, nil)
	case "gs":
		return gcsBucket(ctx, u.Hostname())
	case "s3":
		return s3Bucket(ctx, u.Hostname())
	default:
		return nil, fmt.Errorf("storage.openBucket: invalid provider %q", u.Scheme)
	}
}

// readBlob reads the given blob from the given bucket, adapted from the
// teacher's cloud.readBlob.
func readBlob(ctx context.Context, bucket *blob.Bucket, key string) ([]byte, error) {
	var b bytes.Buffer
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("reading blob key %s: %w", key, err)
	}
	defer r.Close()
	if _, err := io.Copy(&b, r); err != nil {
		return nil, fmt.Errorf("reading blob key %s: %w", key, err)
	}
	return b.Bytes(), nil
}

// writeBlob writes data to the given bucket as a single PUT, adapted
// from InMAP's cloud.writeBlob.
func writeBlob(ctx context.Context, bucket *blob.Bucket, key string, data []byte) error {
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("creating writer for blob %s: %w", key, err)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return fmt.Errorf("copying blob %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("writing blob %s: %w", key, err)
	}
	return nil
}
