package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/models"
)

// Client is a minimal HTTP client for the platform registry API. Only
// the calls the onboarding pipeline needs are implemented here.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a Client configured from cfg, or nil when no platform URL is
// configured. A nil Client means registration stays local.
func New(cfg config.PlatformConfig) *Client {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		return nil
	}
	return &Client{
		baseURL: base,
		token:   cfg.Token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// RegisterCapability announces a wrapped capability to the platform.
func (c *Client) RegisterCapability(ctx context.Context, w *models.WrapperConfig) error {
	body, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("platform: encoding capability: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, "/api/v1/capabilities", bytes.NewReader(body))
	return err
}

// UnregisterCapability removes a capability from the platform.
func (c *Client) UnregisterCapability(ctx context.Context, name string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/capabilities/"+url.PathEscape(name), nil)
	return err
}

// ListCapabilities returns what the platform believes is registered.
func (c *Client) ListCapabilities(ctx context.Context) ([]CapabilityInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/capabilities", nil)
	if err != nil {
		return nil, err
	}
	var out []CapabilityInfo
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, fmt.Errorf("platform: decoding capability list: %w", err)
	}
	return out, nil
}

// Ping validates connectivity and the configured token.
func (c *Client) Ping(ctx context.Context) (*PlatformInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return nil, err
	}
	var out PlatformInfo
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, fmt.Errorf("platform: decoding health response: %w", err)
	}
	return &out, nil
}

// do executes an authenticated HTTP request and returns the response body.
// Non-2xx responses are converted to descriptive errors.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("platform: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform: request to %s failed: %w", c.baseURL+path, err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("platform: reading response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(b, &apiErr); jsonErr == nil {
			if apiErr.Error != "" {
				return nil, fmt.Errorf("platform: registry error (%d): %s", res.StatusCode, apiErr.Error)
			}
			if apiErr.Message != "" {
				return nil, fmt.Errorf("platform: registry error (%d): %s", res.StatusCode, apiErr.Message)
			}
		}
		return nil, fmt.Errorf("platform: registry returned %d", res.StatusCode)
	}

	return b, nil
}
