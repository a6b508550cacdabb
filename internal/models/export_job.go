package models

import (
	"errors"
	"time"

	"github.com/vault-console/internal/types"
)

// ErrFileNotReady is returned when a file URL is requested before the job completed
var ErrFileNotReady = errors.New("export file is not ready")

// PollState is the local state of an export poll loop
type PollState string

const (
	// PollIdle means no request has been issued yet
	PollIdle PollState = "idle"
	// PollPending means the job exists and is being polled
	PollPending PollState = "pending"
	// PollComplete means the file was handed to the downloader
	PollComplete PollState = "complete"
	// PollFailed means creation or a status fetch failed
	PollFailed PollState = "failed"
	// PollCancelled means the owner cancelled the loop
	PollCancelled PollState = "cancelled"
	// PollExhausted means the attempt ceiling or timeout was reached
	PollExhausted PollState = "exhausted"
)

// IsTerminal reports whether no further status requests will be issued
func (s PollState) IsTerminal() bool {
	return s == PollComplete || s == PollFailed || s == PollCancelled || s == PollExhausted
}

// ExportJob tracks a server-side holding CSV export
type ExportJob struct {
	JobID      string           `json:"jobId"`
	Kind       types.ExportType `json:"kind"`
	DateRange  types.DateRange  `json:"dateRange"`
	Status     types.JobStatus  `json:"status"`
	FileURL    string           `json:"fileUrl,omitempty"`
	State      PollState        `json:"state"`
	Attempts   int              `json:"attempts"`
	CreatedAt  time.Time        `json:"createdAt"`
	FinishedAt *time.Time       `json:"finishedAt,omitempty"`
	Error      *string          `json:"error,omitempty"`
}

// DownloadURL returns the file URL only once the vault reported the job complete
func (j *ExportJob) DownloadURL() (string, error) {
	if j.Status != types.JobComplete || j.FileURL == "" {
		return "", ErrFileNotReady
	}
	return j.FileURL, nil
}

// ExportCreated is the body returned when an export is requested
type ExportCreated struct {
	Status string `json:"status"`
	JobID  string `json:"jobId"`
}

// JobStatusResponse is the body of analytics/csv-status
type JobStatusResponse struct {
	Job struct {
		Status  types.JobStatus `json:"status"`
		FileURL string          `json:"fileUrl,omitempty"`
	} `json:"job"`
}
