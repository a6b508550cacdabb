// Package export requests holding CSV exports from the vault and polls the job
// until the file is ready.
package export

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	apperrors "github.com/vault-console/internal/errors"
	"github.com/vault-console/internal/logging"
	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/types"
)

const (
	createPath = "analytics/holding-csv"
	statusPath = "analytics/csv-status"

	// DefaultInterval is the delay between two status checks
	DefaultInterval = 3000 * time.Millisecond
)

var (
	// ErrPollFailed is returned when a status check fails; no further checks are made
	ErrPollFailed = errors.New("export status check failed")
	// ErrPollExhausted is returned when the attempt ceiling or timeout is reached
	ErrPollExhausted = errors.New("export did not complete in time")
	// ErrPollCancelled is returned when the caller cancelled the wait
	ErrPollCancelled = errors.New("export polling cancelled")
)

// StatusClient is the subset of the vault client the poller needs
type StatusClient interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}) error
}

// Downloader consumes the file of a completed job
type Downloader interface {
	Download(ctx context.Context, job *models.ExportJob) error
}

// Observer is notified of every state change of a job
type Observer interface {
	JobUpdated(ctx context.Context, job models.ExportJob)
}

// Config bounds the poll loop
type Config struct {
	Interval    time.Duration
	MaxAttempts int           // zero means unbounded
	Timeout     time.Duration // zero means unbounded
}

// Poller drives export jobs from creation to download
type Poller struct {
	client     StatusClient
	downloader Downloader
	cfg        Config
	observers  []Observer
	now        func() time.Time

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller creates a poller
func NewPoller(client StatusClient, downloader Downloader, cfg Config, observers ...Observer) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	root, cancel := context.WithCancel(context.Background())
	return &Poller{
		client:     client,
		downloader: downloader,
		cfg:        cfg,
		observers:  observers,
		now:        time.Now,
		root:       root,
		cancel:     cancel,
	}
}

// Create issues the export request and returns the new job. It never polls.
func (p *Poller) Create(ctx context.Context, kind types.ExportType, dateRange types.DateRange) (*models.ExportJob, error) {
	logger := logging.FromContext(ctx).Component("export").WithField("type", kind)

	if !kind.IsValid() {
		return nil, apperrors.NewInvalidParameterError("type", "must be tokens or emails")
	}
	if err := dateRange.Validate(); err != nil {
		return nil, apperrors.NewValidationError("date_range", err.Error())
	}

	query := url.Values{"type": {string(kind)}}
	for k, v := range dateRange.Params() {
		query.Set(k, v)
	}

	var created models.ExportCreated
	if err := p.client.Get(ctx, createPath, query, &created); err != nil {
		logger.WithError(err).Error("Export request failed")
		return nil, err
	}
	if created.JobID == "" {
		logger.WithField("status", created.Status).Error("Export request returned no job id")
		return nil, apperrors.NewUpstreamError("vault", 502, "export request returned no job id", nil)
	}

	job := &models.ExportJob{
		JobID:     created.JobID,
		Kind:      kind,
		DateRange: dateRange,
		Status:    types.JobPending,
		State:     models.PollIdle,
		CreatedAt: p.now().UTC(),
	}
	logger.WithField("jobId", job.JobID).Info("Export job created")
	p.notify(ctx, job)
	return job, nil
}

// RequestExport creates a job and waits for it to finish. The returned job
// reflects the final state even when an error is returned.
func (p *Poller) RequestExport(ctx context.Context, kind types.ExportType, dateRange types.DateRange) (*models.ExportJob, error) {
	job, err := p.Create(ctx, kind, dateRange)
	if err != nil {
		return nil, err
	}
	return job, p.PollStatus(ctx, job)
}

// Start creates a job and polls it in the background until it finishes or
// Shutdown is called. The returned job must not be modified by the caller.
func (p *Poller) Start(ctx context.Context, kind types.ExportType, dateRange types.DateRange) (models.ExportJob, error) {
	job, err := p.Create(ctx, kind, dateRange)
	if err != nil {
		return models.ExportJob{}, err
	}
	snapshot := *job

	loopCtx := logging.WithLogger(p.root, logging.FromContext(ctx))
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		_ = p.PollStatus(loopCtx, job)
	}()
	return snapshot, nil
}

// Shutdown cancels every background poll and waits for them to stop
func (p *Poller) Shutdown() {
	p.cancel()
	p.wg.Wait()
}

// PollStatus checks the job status until it is complete, then hands the file
// to the downloader. A failed check ends the loop without retrying.
func (p *Poller) PollStatus(ctx context.Context, job *models.ExportJob) error {
	logger := logging.FromContext(ctx).Component("export").WithField("jobId", job.JobID)

	loopCtx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		loopCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	job.State = models.PollPending
	p.notify(ctx, job)

	for {
		if err := loopCtx.Err(); err != nil {
			return p.stopped(ctx, job, logger)
		}
		if p.cfg.MaxAttempts > 0 && job.Attempts >= p.cfg.MaxAttempts {
			return p.finish(ctx, job, models.PollExhausted,
				fmt.Errorf("%w: %d status checks", ErrPollExhausted, job.Attempts), logger)
		}

		job.Attempts++
		var resp models.JobStatusResponse
		err := p.client.Get(loopCtx, statusPath, url.Values{"jobId": {job.JobID}}, &resp)
		if err != nil {
			if loopCtx.Err() != nil {
				return p.stopped(ctx, job, logger)
			}
			return p.finish(ctx, job, models.PollFailed, fmt.Errorf("%w: %w", ErrPollFailed, err), logger)
		}

		job.Status = resp.Job.Status
		job.FileURL = resp.Job.FileURL

		switch {
		case job.Status == types.JobComplete && job.FileURL != "":
			if err := p.downloader.Download(loopCtx, job); err != nil {
				return p.finish(ctx, job, models.PollFailed, fmt.Errorf("download export file: %w", err), logger)
			}
			return p.finish(ctx, job, models.PollComplete, nil, logger)

		case job.Status == types.JobPending:
			p.notify(ctx, job)
			if err := sleep(loopCtx, p.cfg.Interval); err != nil {
				return p.stopped(ctx, job, logger)
			}

		default:
			return p.finish(ctx, job, models.PollFailed,
				fmt.Errorf("%w: unexpected job status %q", ErrPollFailed, job.Status), logger)
		}
	}
}

// stopped classifies a context error as a cancellation by the caller or the
// poll timeout running out
func (p *Poller) stopped(ctx context.Context, job *models.ExportJob, logger *logging.Logger) error {
	if err := ctx.Err(); err != nil {
		return p.finish(ctx, job, models.PollCancelled, fmt.Errorf("%w: %w", ErrPollCancelled, err), logger)
	}
	return p.finish(ctx, job, models.PollExhausted,
		fmt.Errorf("%w: timed out after %s", ErrPollExhausted, p.cfg.Timeout), logger)
}

func (p *Poller) finish(ctx context.Context, job *models.ExportJob, state models.PollState, err error, logger *logging.Logger) error {
	finished := p.now().UTC()
	job.State = state
	job.FinishedAt = &finished

	entry := logger.WithFields(map[string]interface{}{
		"state":    state,
		"attempts": job.Attempts,
	})
	switch state {
	case models.PollComplete:
		entry.Info("Export file ready")
	case models.PollCancelled:
		entry.Warn("Export polling cancelled")
	default:
		msg := apperrors.DisplayMessage(err, "export failed")
		job.Error = &msg
		entry.WithError(err).Error("Export polling stopped")
	}

	// Observers still get the final state after a cancellation
	p.notify(context.WithoutCancel(ctx), job)
	return err
}

func (p *Poller) notify(ctx context.Context, job *models.ExportJob) {
	for _, o := range p.observers {
		o.JobUpdated(ctx, *job)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
