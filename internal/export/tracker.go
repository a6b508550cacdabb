package export

import (
	"context"
	"sync"

	apperrors "github.com/vault-console/internal/errors"
	"github.com/vault-console/internal/models"
)

// MemoryTracker keeps the latest state of every job polled by this process.
// It stands in for the Redis tracker when no cache is configured.
type MemoryTracker struct {
	mu   sync.RWMutex
	jobs map[string]models.ExportJob
}

// NewMemoryTracker creates an empty tracker
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{jobs: make(map[string]models.ExportJob)}
}

// JobUpdated stores the job snapshot
func (t *MemoryTracker) JobUpdated(_ context.Context, job models.ExportJob) {
	t.mu.Lock()
	t.jobs[job.JobID] = job
	t.mu.Unlock()
}

// Get returns the last snapshot of a job
func (t *MemoryTracker) Get(_ context.Context, jobID string) (*models.ExportJob, error) {
	t.mu.RLock()
	job, ok := t.jobs[jobID]
	t.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError("export", jobID)
	}
	return &job, nil
}
