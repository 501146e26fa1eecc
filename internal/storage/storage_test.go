package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalBackendSaveReadDelete(t *testing.T) {
	dir := t.TempDir()
	b, err := NewLocal(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Save(ctx, "processed/land_cover_summary.json", []byte(`{"a":1}`)))

	got, err := b.Read(ctx, "processed/land_cover_summary.json")
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, string(got))

	list, err := b.List(ctx, "processed")
	require.NoError(t, err)
	require.Contains(t, list, "processed/land_cover_summary.json")

	require.NoError(t, b.Delete(ctx, "processed/land_cover_summary.json"))
	_, err = b.Read(ctx, "processed/land_cover_summary.json")
	require.Error(t, err)
}

func TestLocalBackendRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	b, err := NewLocal(dir)
	require.NoError(t, err)

	err = b.Save(context.Background(), "../../etc/passwd", []byte("x"))
	require.Error(t, err)
}

func TestLocalBackendPresignReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	b, err := NewLocal(dir)
	require.NoError(t, err)
	url, err := b.Presign(context.Background(), "x.json", 0)
	require.NoError(t, err)
	require.Empty(t, url)
}
