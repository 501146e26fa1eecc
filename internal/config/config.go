// Package config loads AETHERA's runtime configuration and assembles
// the AnalysisContext: the single bundle of
// shared, process-wide dependencies (catalog, cache, storage backend,
// registry, tracker) that every run is handed rather than constructing
// its own. Configuration loading follows InMAP's own
// inmaputil/cmd.go convention: a *viper.Viper reading a config file,
// environment variables under one prefix, and command-line flags, in
// that order of increasing precedence.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aethera-eia/aethera/internal/cache"
	"github.com/aethera-eia/aethera/internal/catalog"
	"github.com/aethera-eia/aethera/internal/registry"
	"github.com/aethera-eia/aethera/internal/storage"
	"github.com/aethera-eia/aethera/internal/tracker"
)

// envPrefix is the environment variable prefix configuration
// keys are read under, e.g. AETHERA_DATA_ROOT.
const envPrefix = "AETHERA"

// Config is the flat set of configuration keys 
type Config struct {
	DataRoot            string        `mapstructure:"data_root"`
	OutputRoot          string        `mapstructure:"output_root"`
	ObjectStoreURL      string        `mapstructure:"object_store_url"`
	RegistryBackend     string        `mapstructure:"registry_backend"` // "file" | "postgres"
	RegistryDSN         string        `mapstructure:"registry_dsn"`
	TrackerBackend      string        `mapstructure:"tracker_backend"` // "memory" | "redis"
	RedisAddr           string        `mapstructure:"redis_addr"`
	EmissionFactorsPath string        `mapstructure:"emission_factors_path"`
	LegalRuleSetsPath   string        `mapstructure:"legal_rule_sets_path"`
	ModelsDir           string        `mapstructure:"models_dir"` // pretrained ensemble weights, one <name>.json per ensemble
	WorkingCRS          string        `mapstructure:"working_crs"`
	CacheMemoryEntries  int           `mapstructure:"cache_memory_entries"`
	CacheDiskDir        string        `mapstructure:"cache_disk_dir"`
	CacheDiskTTL        time.Duration `mapstructure:"cache_disk_ttl"`
	CacheDiskMaxBytes   int64         `mapstructure:"cache_disk_max_bytes"`
	SoftBudget          time.Duration `mapstructure:"soft_budget"`
	HardBudget          time.Duration `mapstructure:"hard_budget"`
	MaxReceptorKM       float64       `mapstructure:"max_receptor_km"`
}

// defaults mirrors the fallback values 
// is left unset.
func defaults(v *viper.Viper) {
	v.SetDefault("data_root", "./data")
	v.SetDefault("output_root", "./runs")
	v.SetDefault("registry_backend", "file")
	v.SetDefault("tracker_backend", "memory")
	v.SetDefault("working_crs", "EPSG:3035")
	v.SetDefault("cache_memory_entries", 256)
	v.SetDefault("cache_disk_ttl", 24*time.Hour)
	v.SetDefault("cache_disk_max_bytes", int64(10)<<30) // 10 GiB
	v.SetDefault("soft_budget", 30*time.Minute)
	v.SetDefault("hard_budget", 1*time.Hour)
	v.SetDefault("max_receptor_km", 50.0)
}

// Load reads configFile (if non-empty) and environment variables under
// the AETHERA_ prefix into a Config, flags taking highest precedence if
// bound by the caller via v.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	defaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling configuration: %w", err)
	}
	return cfg, nil
}

// AnalysisContext bundles the shared, process-wide dependencies every
// run is handed: the Dataset Catalog, Dataset Cache, Storage Backend,
// Registry, and Task Tracker
// must be constructed once and shared across concurrent runs rather
// than rebuilt per run.
type AnalysisContext struct {
	Config   Config
	Catalog  *catalog.Catalog
	Cache    *cache.Cache
	Storage  storage.Backend
	Registry registry.Registry
	Tracker  tracker.Tracker
}

// Close releases resources owned by the AnalysisContext that need
// explicit teardown (currently only a Postgres registry connection).
func (ac *AnalysisContext) Close(ctx context.Context) error {
	if closer, ok := ac.Registry.(interface{ Close(context.Context) error }); ok {
		return closer.Close(ctx)
	}
	return nil
}
