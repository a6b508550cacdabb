package api

import (
	"bytes"
	"net/http"
	"strconv"
)

// handleWaitlist handles GET /api/waitlist - one page of waitlisted users
func (s *Server) handleWaitlist(w http.ResponseWriter, r *http.Request) {
	lq, err := parseListQuery(r.URL.Query(), s.config.PageSize)
	if err != nil {
		respondServiceError(w, r, err, "Invalid list query")
		return
	}

	page, err := s.services.Waitlist.Page(r.Context(), lq.State())
	if err != nil {
		respondServiceError(w, r, err, "Failed to fetch waitlist")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// handleWaitlistExport handles GET /api/waitlist/export - the full waitlist as a CSV attachment
func (s *Server) handleWaitlistExport(w http.ResponseWriter, r *http.Request) {
	// Buffer so a failed fetch can still be reported as JSON
	var buf bytes.Buffer
	n, err := s.services.Waitlist.ExportCSV(r.Context(), &buf)
	if err != nil {
		respondServiceError(w, r, err, "Failed to export users")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+s.services.Waitlist.FileName()+`"`)
	w.Header().Set("X-Exported-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
