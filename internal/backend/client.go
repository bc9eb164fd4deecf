// Package backend is a thin client for the SitePulse REST API. The
// backend itself is an external collaborator; this package only
// consumes its contract.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sitepulse/notify/pkg/response"
)

// Client talks to ${domain}/api/* with bearer auth and the canonical
// response envelope.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a backend API client. The baseURL is the root URL
// of the backend (e.g. https://api.sitepulse.example.com).
func NewClient(baseURL, authToken string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SetAuthToken swaps the bearer token, e.g. after a session refresh.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

// do builds the request, handles auth and the response envelope, and
// unmarshals the envelope's data field into result when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	var envelope response.Envelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decoding response envelope for %s %s: %w", method, path, err)
	}
	return envelope.DecodeData(result)
}
