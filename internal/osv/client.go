package osv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.osv.dev/v1"

// Client is an HTTP client for the OSV.dev API.
// OSV is free, unauthenticated, and allows ~100 req/s.
type Client struct {
	http    *http.Client
	baseURL string
}

// New returns a Client with a 15-second timeout.
func New() *Client {
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: defaultBaseURL,
	}
}

// BatchQuery queries OSV for multiple packages at once (POST /v1/querybatch).
// Up to 1000 entries per request; callers are responsible for chunking larger
// sets. Results are returned in the same order as queries.
func (c *Client) BatchQuery(ctx context.Context, queries []PackageQuery) ([]QueryResult, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	entries := make([]batchQueryEntry, len(queries))
	for i, q := range queries {
		entries[i] = batchQueryEntry{Package: q.Package, Version: q.Version}
	}

	body, err := json.Marshal(BatchQueryRequest{Queries: entries})
	if err != nil {
		return nil, fmt.Errorf("osv: marshal batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/querybatch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("osv: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osv: batch query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("osv: batch query HTTP %d: %s", resp.StatusCode, string(b))
	}

	var result BatchQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("osv: decode batch response: %w", err)
	}
	return result.Results, nil
}
