package config

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aethera-eia/aethera/internal/cache"
	"github.com/aethera-eia/aethera/internal/catalog"
	"github.com/aethera-eia/aethera/internal/registry"
	"github.com/aethera-eia/aethera/internal/storage"
	"github.com/aethera-eia/aethera/internal/tracker"
)

// Build assembles an AnalysisContext from cfg, choosing concrete
// backends by the registry_backend/tracker_backend/object_store_url
// keys. build is called once per process; the orchestrator and API
// layer share the returned *AnalysisContext across concurrent runs.
func Build(ctx context.Context, cfg Config, buildFunc cache.BuildFunc, log *logrus.Entry) (*AnalysisContext, error) {
	cat := catalog.New(cfg.DataRoot, log)

	dataCache := cache.New(cache.Options{
		MemoryEntries: cfg.CacheMemoryEntries,
		DiskDir:       cfg.CacheDiskDir,
		DiskTTL:       cfg.CacheDiskTTL,
		DiskMaxBytes:  cfg.CacheDiskMaxBytes,
	}, buildFunc)

	backend, err := buildStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg, err := buildRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	trk, err := buildTracker(cfg)
	if err != nil {
		return nil, err
	}

	return &AnalysisContext{
		Config:   cfg,
		Catalog:  cat,
		Cache:    dataCache,
		Storage:  backend,
		Registry: reg,
		Tracker:  trk,
	}, nil
}

func buildStorage(ctx context.Context, cfg Config) (storage.Backend, error) {
	if cfg.ObjectStoreURL != "" {
		return storage.NewObject(ctx, cfg.ObjectStoreURL, "")
	}
	return storage.NewLocal(cfg.OutputRoot)
}

func buildRegistry(ctx context.Context, cfg Config) (registry.Registry, error) {
	switch cfg.RegistryBackend {
	case "postgres":
		if cfg.RegistryDSN == "" {
			return nil, fmt.Errorf("registry_backend=postgres requires registry_dsn")
		}
		return registry.Connect(ctx, cfg.RegistryDSN)
	case "", "file":
		return registry.NewFileStore(cfg.OutputRoot + "/_registry")
	default:
		return nil, fmt.Errorf("unknown registry_backend %q", cfg.RegistryBackend)
	}
}

func buildTracker(cfg Config) (tracker.Tracker, error) {
	switch cfg.TrackerBackend {
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("tracker_backend=redis requires redis_addr")
		}
		return tracker.NewRedisTracker(&redis.Options{Addr: cfg.RedisAddr}), nil
	case "", "memory":
		return tracker.NewMemoryTracker(), nil
	default:
		return nil, fmt.Errorf("unknown tracker_backend %q", cfg.TrackerBackend)
	}
}
