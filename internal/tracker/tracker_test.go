package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aethera-eia/aethera/internal/model"
)

func TestMemoryTrackerSetGet(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()

	require.NoError(t, tr.Set(ctx, "run-1", model.StatusProcessing))
	status, err := tr.Get(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, model.StatusProcessing, status)
}

func TestMemoryTrackerGetUnknownRunErrors(t *testing.T) {
	tr := NewMemoryTracker()
	_, err := tr.Get(context.Background(), "missing")
	require.Error(t, err)
}

func TestMemoryTrackerCancelMarksRevoked(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()
	require.NoError(t, tr.Set(ctx, "run-1", model.StatusProcessing))
	require.NoError(t, tr.Cancel(ctx, "run-1"))

	cancelled, err := tr.IsCancelled(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, cancelled)
}

func TestMemoryTrackerIsCancelledFalseWhileProcessing(t *testing.T) {
	tr := NewMemoryTracker()
	ctx := context.Background()
	require.NoError(t, tr.Set(ctx, "run-1", model.StatusProcessing))

	cancelled, err := tr.IsCancelled(ctx, "run-1")
	require.NoError(t, err)
	require.False(t, cancelled)
}
