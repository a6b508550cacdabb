package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	apperrors "github.com/vault-console/internal/errors"
	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/types"
)

type exportRequest struct {
	Type      string `json:"type" validate:"required,oneof=tokens emails"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// handleStartExport handles POST /api/exports - request a holding CSV and poll it in the background
func (s *Server) handleStartExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if err := validateStruct(req); err != nil {
		respondServiceError(w, r, err, "Invalid request body")
		return
	}

	job, err := s.services.Exports.Start(r.Context(), types.ExportType(req.Type), types.DateRange{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		respondServiceError(w, r, err, "Failed to export CSV")
		return
	}

	w.Header().Set("Location", "/api/exports/"+job.JobID)
	respondJSON(w, http.StatusAccepted, job)
}

// handleExportStatus handles GET /api/exports/{jobId} - last known state of an export
func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.lookupExport(r, mux.Vars(r)["jobId"])
	if err != nil {
		respondServiceError(w, r, err, "Failed to load export")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// handleExportDownload handles GET /api/exports/{jobId}/download - redirect to the finished file
func (s *Server) handleExportDownload(w http.ResponseWriter, r *http.Request) {
	job, err := s.lookupExport(r, mux.Vars(r)["jobId"])
	if err != nil {
		respondServiceError(w, r, err, "Failed to load export")
		return
	}

	fileURL, err := job.DownloadURL()
	if errors.Is(err, models.ErrFileNotReady) {
		respondError(w, http.StatusConflict, ErrCodeNotReady, "Export file is not ready yet", map[string]interface{}{
			"state": job.State,
		})
		return
	}
	http.Redirect(w, r, fileURL, http.StatusFound)
}

// lookupExport prefers the tracker's record and falls back to the
// downloads recorded in this process
func (s *Server) lookupExport(r *http.Request, jobID string) (*models.ExportJob, error) {
	if s.services.ExportStatus != nil {
		job, err := s.services.ExportStatus.Get(r.Context(), jobID)
		if err == nil {
			return job, nil
		}
		if apperrors.Categorize(err).Category != apperrors.CategoryNotFound {
			return nil, err
		}
	}

	if s.services.Downloads != nil {
		if fileURL, ok := s.services.Downloads.URL(jobID); ok {
			return &models.ExportJob{
				JobID:   jobID,
				Status:  types.JobComplete,
				FileURL: fileURL,
				State:   models.PollComplete,
			}, nil
		}
	}
	return nil, apperrors.NewNotFoundError("export", jobID)
}
