package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/vault-console/internal/logging"
	"github.com/vault-console/internal/models"
)

// ExportEvent is one finished export job as stored in ClickHouse
type ExportEvent struct {
	JobID      string    `ch:"job_id" json:"jobId"`
	Kind       string    `ch:"kind" json:"kind"`
	StartDate  string    `ch:"start_date" json:"startDate"`
	EndDate    string    `ch:"end_date" json:"endDate"`
	State      string    `ch:"state" json:"state"`
	Attempts   uint32    `ch:"attempts" json:"attempts"`
	Error      string    `ch:"error" json:"error,omitempty"`
	CreatedAt  time.Time `ch:"created_at" json:"createdAt"`
	FinishedAt time.Time `ch:"finished_at" json:"finishedAt"`
}

// ExportEventRepository appends finished export jobs to ClickHouse
type ExportEventRepository struct {
	db *ClickHouseDB
}

// NewExportEventRepository creates a new export event repository
func NewExportEventRepository(db *ClickHouseDB) *ExportEventRepository {
	return &ExportEventRepository{db: db}
}

// EventFromJob flattens a finished job into an event row
func EventFromJob(job models.ExportJob) ExportEvent {
	ev := ExportEvent{
		JobID:     job.JobID,
		Kind:      string(job.Kind),
		StartDate: job.DateRange.StartDate,
		EndDate:   job.DateRange.EndDate,
		State:     string(job.State),
		Attempts:  uint32(job.Attempts), // #nosec G115 - attempts are bounded by config
		CreatedAt: job.CreatedAt,
	}
	if job.Error != nil {
		ev.Error = *job.Error
	}
	if job.FinishedAt != nil {
		ev.FinishedAt = *job.FinishedAt
	}
	return ev
}

// JobUpdated records the job once it reached a terminal state
func (r *ExportEventRepository) JobUpdated(ctx context.Context, job models.ExportJob) {
	if !job.State.IsTerminal() {
		return
	}
	if err := r.Insert(ctx, EventFromJob(job)); err != nil {
		logging.FromContext(ctx).Component("export-events").WithError(err).
			WithField("jobId", job.JobID).Warn("Failed to record export event")
	}
}

// Insert appends one event
func (r *ExportEventRepository) Insert(ctx context.Context, ev ExportEvent) error {
	batch, err := r.db.Conn().PrepareBatch(ctx, "INSERT INTO export_events")
	if err != nil {
		return fmt.Errorf("failed to prepare export event batch: %w", err)
	}
	if err := batch.AppendStruct(&ev); err != nil {
		return fmt.Errorf("failed to append export event: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert export event: %w", err)
	}
	return nil
}

// Recent returns the newest export events
func (r *ExportEventRepository) Recent(ctx context.Context, limit int) ([]ExportEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}

	var events []ExportEvent
	err := r.db.Conn().Select(ctx, &events, `
		SELECT job_id, kind, start_date, end_date, state, attempts, error, created_at, finished_at
		FROM export_events
		ORDER BY finished_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query export events: %w", err)
	}
	return events, nil
}
