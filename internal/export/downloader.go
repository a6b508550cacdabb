package export

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/vault-console/internal/logging"
	"github.com/vault-console/internal/models"
)

// FileDownloader saves the export file to disk
type FileDownloader struct {
	// Out is the destination file; when empty the file is written into Dir
	// under the name from the file URL
	Out    string
	Dir    string
	Client *http.Client
}

// NewFileDownloader creates a downloader writing to out, or into dir when out is empty
func NewFileDownloader(out, dir string) *FileDownloader {
	return &FileDownloader{Out: out, Dir: dir, Client: &http.Client{Timeout: 5 * time.Minute}}
}

// Path returns where the file of job is written
func (d *FileDownloader) Path(job *models.ExportJob) string {
	if d.Out != "" {
		return d.Out
	}
	name := fmt.Sprintf("holding_%s_%s.csv", job.Kind, job.JobID)
	if u, err := url.Parse(job.FileURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			name = base
		}
	}
	return filepath.Join(d.Dir, name)
}

// Download streams the file to disk
func (d *FileDownloader) Download(ctx context.Context, job *models.ExportJob) error {
	fileURL, err := job.DownloadURL()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch export file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("export file download returned status %d", resp.StatusCode)
	}

	dest := d.Path(job)
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"jobId": job.JobID,
		"path":  dest,
		"bytes": n,
	}).Info("Export file saved")
	return nil
}

// RecordingDownloader keeps the file URL of each completed job so the console
// API can redirect the browser to it
type RecordingDownloader struct {
	mu   sync.RWMutex
	urls map[string]string
}

// NewRecordingDownloader creates an empty recording downloader
func NewRecordingDownloader() *RecordingDownloader {
	return &RecordingDownloader{urls: make(map[string]string)}
}

// Download records the file URL
func (d *RecordingDownloader) Download(_ context.Context, job *models.ExportJob) error {
	fileURL, err := job.DownloadURL()
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.urls[job.JobID] = fileURL
	d.mu.Unlock()
	return nil
}

// URL returns the recorded file URL of a job
func (d *RecordingDownloader) URL(jobID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.urls[jobID]
	return u, ok
}

// Count returns how many downloads were triggered
func (d *RecordingDownloader) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.urls)
}
