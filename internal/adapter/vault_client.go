// Package adapter provides HTTP clients for the vault and IAM backends.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vault-console/internal/circuitbreaker"
	apperrors "github.com/vault-console/internal/errors"
	"github.com/vault-console/internal/logging"
	"github.com/vault-console/internal/session"
)

const vaultBackend = "vault"

// VaultConfig configures a VaultClient
type VaultConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RPS caps outbound requests; zero disables the limiter
	RPS        int
	HTTPClient *http.Client
}

// VaultClient talks to the vault REST API. Every request carries the session
// bearer token, the API key and JSON content headers.
type VaultClient struct {
	baseURL    string
	apiKey     string
	session    *session.State
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
}

// NewVaultClient creates a vault client bound to sess
func NewVaultClient(cfg VaultConfig, sess *session.State) *VaultClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS)
	}

	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	return &VaultClient{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		session:    sess,
		httpClient: httpClient,
		limiter:    limiter,
		breaker:    circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(vaultBackend)),
	}
}

// Session returns the session the client authenticates with
func (c *VaultClient) Session() *session.State {
	return c.session
}

// Get issues a GET and decodes the JSON body into out
func (c *VaultClient) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST with a JSON body
func (c *VaultClient) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Patch issues a PATCH with a JSON body
func (c *VaultClient) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete issues a DELETE
func (c *VaultClient) Delete(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out)
}

func (c *VaultClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = b
	}

	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"backend": vaultBackend,
		"method":  method,
		"path":    path,
	})

	err := c.breaker.Execute(func() error {
		return c.roundTrip(ctx, method, reqURL, payload, out)
	}, countsAgainstBackend)

	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		logger.Warn("Vault circuit open, request rejected")
		return apperrors.NewServiceUnavailableError(vaultBackend)
	}
	if err != nil && !apperrors.IsSessionExpired(err) {
		logger.WithError(err).Warn("Vault request failed")
	}
	return err
}

func (c *VaultClient) roundTrip(ctx context.Context, method, reqURL string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	token := c.session.Token()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.NewTransportError(vaultBackend, err)
	}
	defer resp.Body.Close()

	if err := c.session.Check(resp.StatusCode, token); err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeErrorBody(vaultBackend, resp)
	}

	return decodeBody(resp.Body, out)
}

// countsAgainstBackend keeps client-side mistakes from tripping the breaker
func countsAgainstBackend(err error) bool {
	cat := apperrors.Categorize(err)
	switch cat.Category {
	case apperrors.CategoryTransport:
		return true
	case apperrors.CategoryUpstream:
		return cat.StatusCode >= 500
	default:
		return false
	}
}

// errorBody is the structured error the backends send with non-2xx responses.
// message is either a string or a list of strings.
type errorBody struct {
	Message json.RawMessage `json:"message"`
	Details interface{}     `json:"details"`
}

func (b errorBody) text() string {
	if len(b.Message) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Message, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(b.Message, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return ""
}

func decodeErrorBody(backend string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var body errorBody
	_ = json.Unmarshal(raw, &body)

	catErr := apperrors.NewUpstreamError(backend, resp.StatusCode, body.text(), body.Details)
	catErr.Cause = fmt.Errorf("request failed with status code %d", resp.StatusCode)
	return catErr
}

func decodeBody(r io.Reader, out interface{}) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}
	if err := json.NewDecoder(r).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
