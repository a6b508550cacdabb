package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/vault-console/internal/errors"
	"github.com/vault-console/internal/logging"
	"github.com/vault-console/internal/models"
)

const exportKeyPrefix = "exports:"

// ExportTracker keeps the latest snapshot of each export job in Redis so any
// API instance can report its progress
type ExportTracker struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewExportTracker creates a tracker whose snapshots expire after ttl
func NewExportTracker(cache *RedisCache, ttl time.Duration) *ExportTracker {
	return &ExportTracker{cache: cache, ttl: ttl}
}

// JobUpdated stores the job snapshot
func (t *ExportTracker) JobUpdated(ctx context.Context, job models.ExportJob) {
	raw, err := json.Marshal(job)
	if err == nil {
		err = t.cache.Set(ctx, exportKeyPrefix+job.JobID, raw, t.ttl)
	}
	if err != nil {
		logging.FromContext(ctx).Component("export-tracker").WithError(err).
			WithField("jobId", job.JobID).Warn("Failed to store export job snapshot")
	}
}

// Get returns the last snapshot of a job
func (t *ExportTracker) Get(ctx context.Context, jobID string) (*models.ExportJob, error) {
	raw, err := t.cache.Get(ctx, exportKeyPrefix+jobID)
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewNotFoundError("export job", jobID)
	}
	if err != nil {
		return nil, apperrors.NewCacheError("get export job", err)
	}

	var job models.ExportJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, apperrors.NewCacheError("decode export job", err)
	}
	return &job, nil
}
