package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func TestLocatePrefersCountrySpecific(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "corine.tif")
	writeFile(t, root, "corine_ITA.tif")

	cat := New(root, nil)
	desc, err := cat.Locate("corine", "ITA", true)
	require.NoError(t, err)
	require.NotNil(t, desc)
	require.Equal(t, filepath.Join(root, "corine_ITA.tif"), desc.Path)
}

func TestLocateFallsBackToContinental(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "corine.tif")

	cat := New(root, nil)
	desc, err := cat.Locate("corine", "GRC", true)
	require.NoError(t, err)
	require.NotNil(t, desc)
	require.Equal(t, filepath.Join(root, "corine.tif"), desc.Path)
}

func TestLocateRequiredMissingFails(t *testing.T) {
	root := t.TempDir()
	cat := New(root, nil)
	_, err := cat.Locate("wdpa", "ITA", true)
	require.Error(t, err)
}

func TestLocateOptionalMissingReturnsNil(t *testing.T) {
	root := t.TempDir()
	cat := New(root, nil)
	desc, err := cat.Locate("wdpa", "ITA", false)
	require.NoError(t, err)
	require.Nil(t, desc)
}

func TestAvailabilityReport(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "corine_ITA.tif")

	cat := New(root, nil)
	report, err := cat.AvailabilityReport(map[string]bool{
		"corine": true,
		"wdpa":   false,
	}, "ITA")
	require.NoError(t, err)
	require.True(t, report["corine"].Present)
	require.False(t, report["wdpa"].Present)
	require.False(t, report["wdpa"].Required)
}
