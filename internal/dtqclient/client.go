// Package dtqclient is a thin HTTP client shared by cmd/dtq-worker and
// cmd/dtq-client, attaching the shared-secret X-API-Key header to every
// call.
package dtqclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client wraps an *http.Client pointed at a DTQ server with a fixed
// API key attached to every request.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// New constructs a Client with a 10s request timeout.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Get performs a GET request and decodes the JSON response into out.
func (c *Client) Get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("dtqclient: building GET %s: %w", path, err)
	}
	return c.do(req, out)
}

// Post marshals body as JSON, POSTs it, and decodes the response into out.
func (c *Client) Post(path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("dtqclient: marshaling request for %s: %w", path, err)
		}
		reader = strings.NewReader(string(data))
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("dtqclient: building POST %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("X-API-Key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("dtqclient: %s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("dtqclient: reading response from %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dtqclient: %s %s returned status %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("dtqclient: decoding response from %s: %w", req.URL.Path, err)
	}
	return nil
}
