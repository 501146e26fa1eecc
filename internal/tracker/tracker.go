// Package tracker implements AETHERA's Task Tracker :
// run status get/cancel against a shared KV backend, with an
// in-memory fallback for single-process deployments. Redis is the
// shared backend, per github.com/redis/go-redis/v9 already declared in
// InMAP's dependency surface for this purpose.
package tracker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/model"
)

// Tracker records and serves run lifecycle state.
type Tracker interface {
	Set(ctx context.Context, runID string, status model.RunStatus) error
	Get(ctx context.Context, runID string) (model.RunStatus, error)
	Cancel(ctx context.Context, runID string) error
	// IsCancelled reports whether runID has been marked REVOKED, the
	// signal the orchestrator polls at stage boundaries for cooperative
	// cancellation.
	IsCancelled(ctx context.Context, runID string) (bool, error)
}

// MemoryTracker is an in-process Tracker backed by a mutex-guarded map,
// the fallback used when no shared KV store is configured.
type MemoryTracker struct {
	mu     sync.RWMutex
	status map[string]model.RunStatus
}

// NewMemoryTracker builds an empty MemoryTracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{status: map[string]model.RunStatus{}}
}

func (t *MemoryTracker) Set(_ context.Context, runID string, status model.RunStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status[runID] = status
	return nil
}

func (t *MemoryTracker) Get(_ context.Context, runID string) (model.RunStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	status, ok := t.status[runID]
	if !ok {
		return "", errs.New(errs.InvalidInput, "task_tracker_get", "no such run: "+runID)
	}
	return status, nil
}

func (t *MemoryTracker) Cancel(ctx context.Context, runID string) error {
	return t.Set(ctx, runID, model.StatusRevoked)
}

func (t *MemoryTracker) IsCancelled(ctx context.Context, runID string) (bool, error) {
	status, err := t.Get(ctx, runID)
	if err != nil {
		return false, err
	}
	return status == model.StatusRevoked, nil
}

// redisKeyPrefix namespaces run-status keys in the shared Redis
// keyspace.
const redisKeyPrefix = "aethera:run_status:"

// redisStatusTTL bounds how long a finished run's status lingers in
// Redis before eviction.
const redisStatusTTL = 7 * 24 * time.Hour

// RedisTracker is a Tracker backed by a shared Redis instance, for
// multi-process/multi-node deployments.
type RedisTracker struct {
	client *redis.Client
}

// NewRedisTracker builds a RedisTracker from go-redis client options
// (address, database, credentials).
func NewRedisTracker(opts *redis.Options) *RedisTracker {
	return &RedisTracker{client: redis.NewClient(opts)}
}

type redisStatusRecord struct {
	Status    model.RunStatus `json:"status"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (t *RedisTracker) Set(ctx context.Context, runID string, status model.RunStatus) error {
	rec := redisStatusRecord{Status: status, UpdatedAt: time.Now()}
	raw, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(errs.StorageError, "task_tracker_set", err)
	}
	if err := t.client.Set(ctx, redisKeyPrefix+runID, raw, redisStatusTTL).Err(); err != nil {
		return errs.Wrap(errs.StorageError, "task_tracker_set", err)
	}
	return nil
}

func (t *RedisTracker) Get(ctx context.Context, runID string) (model.RunStatus, error) {
	raw, err := t.client.Get(ctx, redisKeyPrefix+runID).Bytes()
	if err == redis.Nil {
		return "", errs.New(errs.InvalidInput, "task_tracker_get", "no such run: "+runID)
	}
	if err != nil {
		return "", errs.Wrap(errs.StorageError, "task_tracker_get", err)
	}
	var rec redisStatusRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", errs.Wrap(errs.StorageError, "task_tracker_get", err)
	}
	return rec.Status, nil
}

func (t *RedisTracker) Cancel(ctx context.Context, runID string) error {
	return t.Set(ctx, runID, model.StatusRevoked)
}

func (t *RedisTracker) IsCancelled(ctx context.Context, runID string) (bool, error) {
	status, err := t.Get(ctx, runID)
	if err != nil {
		return false, err
	}
	return status == model.StatusRevoked, nil
}
