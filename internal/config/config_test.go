package config

import (
	"context"
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, "./data", cfg.DataRoot)
	require.Equal(t, "EPSG:3035", cfg.WorkingCRS)
	require.Equal(t, 256, cfg.CacheMemoryEntries)
}

func TestLoadReadsEnvironmentOverride(t *testing.T) {
	require.NoError(t, os.Setenv("AETHERA_DATA_ROOT", "/tmp/aethera-data"))
	defer os.Unsetenv("AETHERA_DATA_ROOT")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, "/tmp/aethera-data", cfg.DataRoot)
}

func TestBuildRegistryDefaultsToFileStore(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	cfg.OutputRoot = t.TempDir()

	reg, err := buildRegistry(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, reg)
}

func TestBuildTrackerDefaultsToMemory(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	trk, err := buildTracker(cfg)
	require.NoError(t, err)
	require.NotNil(t, trk)
}

func TestBuildRegistryPostgresRequiresDSN(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	cfg.RegistryBackend = "postgres"
	_, err = buildRegistry(context.Background(), cfg)
	require.Error(t, err)
}
