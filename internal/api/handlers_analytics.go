package api

import (
	"net/http"
	"net/url"

	apperrors "github.com/vault-console/internal/errors"
	"github.com/vault-console/internal/service"
	"github.com/vault-console/internal/types"
)

func analyticsFilter(q url.Values) (service.AnalyticsFilter, error) {
	dr, err := dateRangeQuery(q)
	if err != nil {
		return service.AnalyticsFilter{}, err
	}
	return service.AnalyticsFilter{
		Chain:     types.ChainID(q.Get("chain")),
		Address:   q.Get("address"),
		DateRange: dr,
	}, nil
}

// handleHolding handles GET /api/analytics/holding - one page of user holdings
func (s *Server) handleHolding(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dr, err := dateRangeQuery(q)
	if err != nil {
		respondServiceError(w, r, err, "Invalid date range")
		return
	}
	page, err := intParam(q, "page", 1)
	if err != nil {
		respondServiceError(w, r, err, "Invalid page")
		return
	}
	limit, err := intParam(q, "limit", s.config.PageSize)
	if err != nil {
		respondServiceError(w, r, err, "Invalid limit")
		return
	}

	view, err := s.services.Analytics.Holding(r.Context(), service.HoldingQuery{
		Email:     q.Get("email"),
		DateRange: dr,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		respondServiceError(w, r, err, "Failed to load holding analytics")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// handleVolume handles GET /api/analytics/volume
func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	f, err := analyticsFilter(r.URL.Query())
	if err == nil && !f.VolumeEnabled() {
		err = apperrors.NewValidationError("filter", "Select a date or chain")
	}
	if err != nil {
		respondServiceError(w, r, err, "Invalid filter")
		return
	}

	items, err := s.services.Analytics.Volume(r.Context(), f)
	if err != nil {
		respondServiceError(w, r, err, "Error fetching volume data")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"volume": items})
}

// handleTransaction handles GET /api/analytics/transaction
func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	f, err := analyticsFilter(r.URL.Query())
	if err == nil && !f.VolumeEnabled() {
		err = apperrors.NewValidationError("filter", "Select a date or chain")
	}
	if err != nil {
		respondServiceError(w, r, err, "Invalid filter")
		return
	}

	items, err := s.services.Analytics.Transaction(r.Context(), f)
	if err != nil {
		respondServiceError(w, r, err, "Error fetching transaction data")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"transaction": items})
}

// handleEarn handles GET /api/analytics/earn - earn report plus USDC/SOL metrics
func (s *Server) handleEarn(w http.ResponseWriter, r *http.Request) {
	dr, err := requiredDateRange(r.URL.Query())
	if err != nil {
		respondServiceError(w, r, err, "Invalid date range")
		return
	}

	earn, err := s.services.Analytics.Earn(r.Context(), dr)
	if err != nil {
		respondServiceError(w, r, err, "Error fetching earn data")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"deposit":  earn.Deposit,
		"withdraw": earn.Withdraw,
		"metrics":  service.DeriveEarnMetrics(earn),
	})
}

// handleActiveUsers handles GET /api/analytics/active-users
func (s *Server) handleActiveUsers(w http.ResponseWriter, r *http.Request) {
	dr, err := requiredDateRange(r.URL.Query())
	if err != nil {
		respondServiceError(w, r, err, "Invalid date range")
		return
	}

	stats, err := s.services.Analytics.ActiveUsers(r.Context(), dr)
	if err != nil {
		respondServiceError(w, r, err, "Error fetching active users data")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// handleDashboard handles GET /api/analytics/dashboard - every enabled dashboard query at once
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	f, err := analyticsFilter(r.URL.Query())
	if err != nil {
		respondServiceError(w, r, err, "Invalid filter")
		return
	}

	dash, err := s.services.Analytics.Dashboard(r.Context(), f)
	if err != nil {
		respondServiceError(w, r, err, "Failed to load dashboard")
		return
	}
	respondJSON(w, http.StatusOK, dash)
}

// handleUserSpamTokens handles GET /api/analytics/spam-tokens - spam tokens held by one user
func (s *Server) handleUserSpamTokens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tokens, err := s.services.Analytics.UserSpamTokens(r.Context(), q.Get("address"), q.Get("solana"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to load spam tokens")
		return
	}
	respondJSON(w, http.StatusOK, tokens)
}

func requiredDateRange(q url.Values) (types.DateRange, error) {
	dr, err := dateRangeQuery(q)
	if err != nil {
		return dr, err
	}
	if dr.IsZero() {
		return dr, apperrors.NewValidationError("start_date", "start_date or end_date is required")
	}
	return dr, nil
}
