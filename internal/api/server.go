// Package api provides the console's HTTP API server.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vault-console/internal/listing"
	"github.com/vault-console/internal/logging"
	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/service"
	"github.com/vault-console/internal/types"
)

// Service interfaces for dependency injection and testing

// TokenServiceInterface defines the token moderation operations
type TokenServiceInterface interface {
	ActivePage(ctx context.Context, chain types.ChainID, st *listing.State) (listing.Page[models.ActiveToken], error)
	SpamPage(ctx context.Context, st *listing.State) (listing.Page[models.SpamToken], error)
	MechanismPage(ctx context.Context, q service.MechanismQuery, st *listing.State) (listing.Page[models.MechanismToken], error)
	MoveToken(ctx context.Context, actor string, ref models.TokenRef) error
	SaveAsSpam(ctx context.Context, actor string, refs []models.TokenRef) error
	DeleteSpam(ctx context.Context, actor string, ref models.TokenRef) error
}

// AnalyticsServiceInterface defines the analytics operations
type AnalyticsServiceInterface interface {
	Holding(ctx context.Context, q service.HoldingQuery) (*service.HoldingView, error)
	Volume(ctx context.Context, f service.AnalyticsFilter) ([]models.VolumeItem, error)
	Transaction(ctx context.Context, f service.AnalyticsFilter) ([]models.TransactionItem, error)
	Earn(ctx context.Context, dr types.DateRange) (*models.EarnResponse, error)
	ActiveUsers(ctx context.Context, dr types.DateRange) (*models.ActiveUserStats, error)
	UserSpamTokens(ctx context.Context, address, solanaAddress string) (*models.UserSpamTokens, error)
	Dashboard(ctx context.Context, f service.AnalyticsFilter) (*service.Dashboard, error)
}

// WaitlistServiceInterface defines the waitlist operations
type WaitlistServiceInterface interface {
	Page(ctx context.Context, st *listing.State) (listing.Page[models.WaitlistUser], error)
	ExportCSV(ctx context.Context, w io.Writer) (int, error)
	FileName() string
}

// ExportStarter starts background export jobs
type ExportStarter interface {
	Start(ctx context.Context, kind types.ExportType, dateRange types.DateRange) (models.ExportJob, error)
}

// ExportStatusStore returns the last known state of an export job
type ExportStatusStore interface {
	Get(ctx context.Context, jobID string) (*models.ExportJob, error)
}

// DownloadLocator returns the file URL of a completed export
type DownloadLocator interface {
	URL(jobID string) (string, bool)
}

// Services bundles the dependencies of the server. ExportStatus may be nil
// when no tracker store is configured.
type Services struct {
	Tokens       TokenServiceInterface
	Analytics    AnalyticsServiceInterface
	Waitlist     WaitlistServiceInterface
	Exports      ExportStarter
	ExportStatus ExportStatusStore
	Downloads    DownloadLocator
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	services   Services
	logger     *logging.Logger
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
	PageSize        int
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, services Services, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if config.PageSize < 1 {
		config.PageSize = listing.DefaultPageSize
	}

	s := &Server{
		router:   mux.NewRouter(),
		services: services,
		logger:   logger.Component("api"),
		config:   config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// Set up middleware (order matters!)
	s.router.Use(RequestIDMiddleware(s.logger))
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter)) // Rate limiting after CORS
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Token moderation endpoints
	api.HandleFunc("/tokens/active", s.handleActiveTokens).Methods("GET")
	api.HandleFunc("/tokens/spam", s.handleSpamTokens).Methods("GET")
	api.HandleFunc("/tokens/mechanism", s.handleMechanismTokens).Methods("GET")
	api.HandleFunc("/tokens/move", s.handleMoveToken).Methods("PATCH")
	api.HandleFunc("/tokens/spam", s.handleSaveSpam).Methods("POST")
	api.HandleFunc("/tokens/spam/{address}/{chain}", s.handleDeleteSpam).Methods("DELETE")

	// Analytics endpoints
	api.HandleFunc("/analytics/holding", s.handleHolding).Methods("GET")
	api.HandleFunc("/analytics/volume", s.handleVolume).Methods("GET")
	api.HandleFunc("/analytics/transaction", s.handleTransaction).Methods("GET")
	api.HandleFunc("/analytics/earn", s.handleEarn).Methods("GET")
	api.HandleFunc("/analytics/active-users", s.handleActiveUsers).Methods("GET")
	api.HandleFunc("/analytics/dashboard", s.handleDashboard).Methods("GET")
	api.HandleFunc("/analytics/spam-tokens", s.handleUserSpamTokens).Methods("GET")

	// Export endpoints
	api.HandleFunc("/exports", s.handleStartExport).Methods("POST")
	api.HandleFunc("/exports/{jobId}", s.handleExportStatus).Methods("GET")
	api.HandleFunc("/exports/{jobId}/download", s.handleExportDownload).Methods("GET")

	// Waitlist endpoints
	api.HandleFunc("/waitlist", s.handleWaitlist).Methods("GET")
	api.HandleFunc("/waitlist/export", s.handleWaitlistExport).Methods("GET")

	// Preflight for every path; CORSMiddleware answers it
	s.router.Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "vault-console",
	})
}

// Handler returns the router with every middleware applied
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
