package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/vault-console/internal/errors"
	"github.com/vault-console/internal/models"
)

const iamBackend = "iam"

// IAMClient reads the user waitlist from the IAM service. It authenticates
// with the service API key only.
type IAMClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewIAMClient creates a new IAM client
func NewIAMClient(baseURL, apiKey string, timeout time.Duration) *IAMClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &IAMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Waitlist fetches every waitlisted user
func (c *IAMClient) Waitlist(ctx context.Context) ([]models.WaitlistUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/user/waitlist", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.NewTransportError(iamBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeErrorBody(iamBackend, resp)
	}

	var body models.WaitlistResponse
	if err := decodeBody(resp.Body, &body); err != nil {
		return nil, err
	}
	if body.Waitlist == nil {
		return []models.WaitlistUser{}, nil
	}
	return body.Waitlist, nil
}
