package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vault-console/internal/errors"
	"github.com/vault-console/internal/export"
	"github.com/vault-console/internal/logging"
	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/service"
	"github.com/vault-console/internal/types"
)

// stubVault answers vault requests from per-path handlers
type stubVault struct {
	mu       sync.Mutex
	handlers map[string]func(query url.Values, body interface{}) (interface{}, error)
	requests []string
}

func newStubVault() *stubVault {
	return &stubVault{handlers: map[string]func(url.Values, interface{}) (interface{}, error){}}
}

func (v *stubVault) on(path string, resp interface{}, err error) {
	v.handlers[path] = func(url.Values, interface{}) (interface{}, error) { return resp, err }
}

func (v *stubVault) call(method, path string, query url.Values, body, out interface{}) error {
	v.mu.Lock()
	v.requests = append(v.requests, method+" "+path+"?"+query.Encode())
	h, ok := v.handlers[path]
	v.mu.Unlock()
	if !ok {
		return nil
	}
	resp, err := h(query, body)
	if err != nil || out == nil || resp == nil {
		return err
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (v *stubVault) Get(_ context.Context, path string, query url.Values, out interface{}) error {
	return v.call("GET", path, query, nil, out)
}

func (v *stubVault) Post(_ context.Context, path string, body, out interface{}) error {
	return v.call("POST", path, nil, body, out)
}

func (v *stubVault) Patch(_ context.Context, path string, body, out interface{}) error {
	return v.call("PATCH", path, nil, body, out)
}

func (v *stubVault) Delete(_ context.Context, path string, out interface{}) error {
	return v.call("DELETE", path, nil, nil, out)
}

func (v *stubVault) last() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.requests) == 0 {
		return ""
	}
	return v.requests[len(v.requests)-1]
}

type stubWaitlist struct {
	users []models.WaitlistUser
	err   error
}

func (s *stubWaitlist) Waitlist(context.Context) ([]models.WaitlistUser, error) {
	return s.users, s.err
}

type stubExports struct {
	job models.ExportJob
	err error
}

func (s *stubExports) Start(_ context.Context, kind types.ExportType, dr types.DateRange) (models.ExportJob, error) {
	if s.err != nil {
		return models.ExportJob{}, s.err
	}
	job := s.job
	job.Kind, job.DateRange = kind, dr
	return job, nil
}

type testServer struct {
	*Server
	vault    *stubVault
	waitlist *stubWaitlist
	exports  *stubExports
	tracker  *export.MemoryTracker
}

func quietLogger() *logging.Logger {
	logger := logging.NewLogger(logging.LevelError, logging.FormatJSON)
	logger.SetOutput(io.Discard)
	return logger
}

// createTestServer wires real services over stubbed backends
func createTestServer(t *testing.T, cfg *ServerConfig) *testServer {
	t.Helper()
	if cfg == nil {
		cfg = &ServerConfig{Host: "localhost", Port: "8080", RateLimitRPS: 0, PageSize: 15}
	}

	vault := newStubVault()
	waitlist := &stubWaitlist{}
	exports := &stubExports{job: models.ExportJob{JobID: "job-1", State: models.PollIdle}}
	tracker := export.NewMemoryTracker()

	srv := NewServer(cfg, Services{
		Tokens:       service.NewTokenService(vault, nil, nil),
		Analytics:    service.NewAnalyticsService(vault),
		Waitlist:     service.NewWaitlistService(waitlist, nil, nil),
		Exports:      exports,
		ExportStatus: tracker,
		Downloads:    export.NewRecordingDownloader(),
	}, quietLogger())

	return &testServer{Server: srv, vault: vault, waitlist: waitlist, exports: exports, tracker: tracker}
}

func (ts *testServer) do(method, target string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ServiceError {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error
}

func TestHealth(t *testing.T) {
	ts := createTestServer(t, nil)

	w := ts.do("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vault-console")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestIDIsKeptWhenValid(t *testing.T) {
	ts := createTestServer(t, nil)

	id := "2f1b8a44-6f0e-4c4a-9e51-4a3f43b0f7d2"
	w := ts.do("GET", "/health", nil, RequestIDHeader, id)
	assert.Equal(t, id, w.Header().Get(RequestIDHeader))

	w = ts.do("GET", "/health", nil, RequestIDHeader, "not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	ts := createTestServer(t, nil)

	w := ts.do("OPTIONS", "/api/tokens/move", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestActiveTokens(t *testing.T) {
	ts := createTestServer(t, nil)
	name := "USD Coin"
	ts.vault.on("spam-tokens/unique-list", []models.ActiveToken{
		{TokenAddress: "0x01", Chain: types.ChainBase, Symbol: "USDC", Name: &name},
		{TokenAddress: "0x02", Chain: types.ChainBase, Symbol: "WETH"},
	}, nil)

	w := ts.do("GET", "/api/tokens/active?chain=base-mainnet&search=coin", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page struct {
		Items       []models.ActiveToken `json:"items"`
		Total       int                  `json:"total"`
		CurrentPage int                  `json:"currentPage"`
		PageSize    int                  `json:"pageSize"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "USDC", page.Items[0].Symbol)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 15, page.PageSize)
	assert.Equal(t, "GET spam-tokens/unique-list?chain=base-mainnet", ts.vault.last())
}

func TestActiveTokens_RequiresChain(t *testing.T) {
	ts := createTestServer(t, nil)

	w := ts.do("GET", "/api/tokens/active", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PARAMETER", decodeError(t, w).Code)
}

func TestListQueryValidation(t *testing.T) {
	ts := createTestServer(t, nil)

	tests := []struct {
		query string
		field string
	}{
		{"score=10-20", "score"},
		{"automated=maybe", "automated"},
		{"order=sideways", "order"},
		{"page=0", "page"},
		{"page=4611686018427387905", "page"},
		{"page_size=100000", "page_size"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := ts.do("GET", "/api/tokens/spam?"+tt.query, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)
			se := decodeError(t, w)
			assert.Equal(t, "VALIDATION_ERROR", se.Code)
			assert.Equal(t, tt.field, se.Details["field"])
		})
	}

	w := ts.do("GET", "/api/tokens/spam?page=abc", nil)
	assert.Equal(t, "INVALID_PARAMETER", decodeError(t, w).Code)
}

func TestMechanismTokens_ServerParams(t *testing.T) {
	ts := createTestServer(t, nil)
	ts.vault.on("spam-tokens/mechanism", []models.MechanismToken{
		{ID: 1, Score: "55"}, {ID: 2, Score: "95"},
	}, nil)

	w := ts.do("GET", "/api/tokens/mechanism?chain=solana-mainnet&order_by=desc&score=50-60", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, ts.vault.last(), "chain=solana-mainnet")
	assert.Contains(t, ts.vault.last(), "order_by=desc")

	var page struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
}

func TestSaveSpam(t *testing.T) {
	ts := createTestServer(t, nil)

	w := ts.do("POST", "/api/tokens/spam", map[string]interface{}{"tokens": []interface{}{}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please select at least one token", decodeError(t, w).Message)

	w = ts.do("POST", "/api/tokens/spam", map[string]interface{}{
		"tokens": []map[string]string{{"token_address": "0x12", "chain": "base-mainnet"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do("POST", "/api/tokens/spam", map[string]interface{}{
		"tokens": []map[string]string{{"token_address": "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", "chain": "base-mainnet"}},
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "POST spam-tokens?", ts.vault.last())

	w = ts.do("POST", "/api/tokens/spam", map[string]interface{}{
		"tokens": []map[string]string{{"token_address": "x", "chain": "moon-mainnet"}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "chain", decodeError(t, w).Details["field"])
}

func TestMoveAndDeleteToken(t *testing.T) {
	ts := createTestServer(t, nil)

	w := ts.do("PATCH", "/api/tokens/move", map[string]string{"token_address": "So1anaMint", "chain": "solana-mainnet"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "PATCH spam-tokens/move?", ts.vault.last())

	w = ts.do("PATCH", "/api/tokens/move", map[string]string{"chain": "solana-mainnet"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do("PATCH", "/api/tokens/move", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do("DELETE", "/api/tokens/spam/So1anaMint/solana-mainnet", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DELETE spam-tokens/So1anaMint/solana-mainnet?", ts.vault.last())
}

func TestUpstreamErrorsAreNormalized(t *testing.T) {
	ts := createTestServer(t, nil)

	ts.vault.on("spam-tokens/unique-spam-list", nil, apperrors.NewSessionExpiredError(nil))
	w := ts.do("GET", "/api/tokens/spam", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SESSION_EXPIRED", decodeError(t, w).Code)

	ts.vault.on("spam-tokens/move", nil, apperrors.NewUpstreamError("vault", 422, "Token already moved", []string{"dup"}))
	w = ts.do("PATCH", "/api/tokens/move", map[string]string{"token_address": "So1", "chain": "solana-mainnet"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	se := decodeError(t, w)
	assert.Equal(t, "Token already moved", se.Message)
	assert.Equal(t, "vault", se.Details["backend"])

	ts.vault.on("spam-tokens/unique-spam-list", nil, apperrors.NewUpstreamError("vault", 503, "", nil))
	w = ts.do("GET", "/api/tokens/spam", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Failed to fetch spam tokens", decodeError(t, w).Message)
}

func TestHoldingValidation(t *testing.T) {
	ts := createTestServer(t, nil)

	w := ts.do("GET", "/api/analytics/holding", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email is required", decodeError(t, w).Message)

	w = ts.do("GET", "/api/analytics/holding?email=bad", nil)
	assert.Equal(t, "Please enter a valid email address", decodeError(t, w).Message)

	w = ts.do("GET", "/api/analytics/holding?start_date=2024-02-01&end_date=2024-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.vault.on("analytics/holding", models.HoldingResponse{}, nil)
	w = ts.do("GET", "/api/analytics/holding?email=ops@example.com&page=2&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, ts.vault.last(), "page=2")
	assert.Contains(t, ts.vault.last(), "limit=10")
}

func TestAnalyticsEnablement(t *testing.T) {
	ts := createTestServer(t, nil)
	ts.vault.on("analytics/earn", models.EarnResponse{
		Deposit: []models.EarnItem{{TokenIn: service.USDCMint, Count: "2", TotalDeposit: "10"}},
	}, nil)

	w := ts.do("GET", "/api/analytics/volume", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do("GET", "/api/analytics/volume?chain=base-mainnet", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do("GET", "/api/analytics/earn?chain=base-mainnet", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do("GET", "/api/analytics/earn?start_date=2024-01-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var earn struct {
		Metrics service.EarnMetrics `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &earn))
	assert.EqualValues(t, 2, earn.Metrics.USDCDepositCount)
	assert.Equal(t, "10", earn.Metrics.TotalUSDC.String())

	w = ts.do("GET", "/api/analytics/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestExports(t *testing.T) {
	ts := createTestServer(t, nil)

	w := ts.do("POST", "/api/exports", map[string]string{"type": "wallets"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "type", decodeError(t, w).Details["field"])

	w = ts.do("POST", "/api/exports", map[string]string{"type": "tokens", "start_date": "01/02/2024"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do("POST", "/api/exports", map[string]string{"type": "emails", "start_date": "2024-01-01"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "/api/exports/job-1", w.Header().Get("Location"))

	w = ts.do("GET", "/api/exports/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	ctx := context.Background()
	ts.tracker.JobUpdated(ctx, models.ExportJob{JobID: "job-1", Status: types.JobPending, State: models.PollPending, Attempts: 2})
	w = ts.do("GET", "/api/exports/job-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"pending"`)

	w = ts.do("GET", "/api/exports/job-1/download", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	ts.tracker.JobUpdated(ctx, models.ExportJob{JobID: "job-1", Status: types.JobComplete, FileURL: "https://files.example.com/h.csv", State: models.PollComplete})
	w = ts.do("GET", "/api/exports/job-1/download", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://files.example.com/h.csv", w.Header().Get("Location"))

	ts.exports.err = apperrors.NewUpstreamError("vault", 400, "Failed to export CSV", nil)
	w = ts.do("POST", "/api/exports", map[string]string{"type": "tokens"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportDownloadFallsBackToRecorder(t *testing.T) {
	downloads := export.NewRecordingDownloader()
	srv := NewServer(&ServerConfig{}, Services{Downloads: downloads}, quietLogger())

	job := &models.ExportJob{JobID: "j9", Status: types.JobComplete, FileURL: "https://files.example.com/j9.csv"}
	require.NoError(t, downloads.Download(context.Background(), job))

	req := httptest.NewRequest("GET", "/api/exports/j9/download", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestWaitlistExport(t *testing.T) {
	ts := createTestServer(t, nil)
	ts.waitlist.users = []models.WaitlistUser{{
		ID: "u1", Email: "a@example.com",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	w := ts.do("GET", "/api/waitlist/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), `attachment; filename="waitlist_users_`))
	assert.Equal(t, "1", w.Header().Get("X-Exported-Count"))
	assert.Equal(t, `"Email", "Created At", "Updated At"`+"\n"+`"a@example.com", "2024-01-02 03:04:05", "2024-01-02 03:04:05"`, w.Body.String())

	w = ts.do("GET", "/api/waitlist?search=a@example", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	ts.waitlist.err = apperrors.NewTransportError("iam", io.ErrUnexpectedEOF)
	w = ts.do("GET", "/api/waitlist/export", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestRateLimit(t *testing.T) {
	ts := createTestServer(t, &ServerConfig{RateLimitRPS: 1, RateLimitBurst: 1})

	assert.Equal(t, http.StatusOK, ts.do("GET", "/health", nil).Code)
	w := ts.do("GET", "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// Operators are limited separately
	assert.Equal(t, http.StatusOK, ts.do("GET", "/health", nil, OperatorHeader, "ops@example.com").Code)
}

func TestCompression(t *testing.T) {
	ts := createTestServer(t, nil)

	w := ts.do("GET", "/health", nil, "Accept-Encoding", "gzip")
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(body), "healthy")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ErrCodeInternal, decodeError(t, w).Code)
}

// TestConcurrentLoad exercises the middleware chain under concurrency
func TestConcurrentLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping load test in short mode")
	}

	ts := createTestServer(t, nil)
	ts.vault.on("spam-tokens/unique-spam-list", []models.SpamToken{{TokenAddress: "a", Chain: types.ChainBase}}, nil)

	var wg sync.WaitGroup
	errs := make(chan int, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w := ts.do("GET", "/api/tokens/spam?automated=all", nil); w.Code != http.StatusOK {
				errs <- w.Code
			}
		}()
	}
	wg.Wait()
	close(errs)

	for code := range errs {
		t.Errorf("unexpected status %d", code)
	}
}
