// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"net/http"
	"time"
)

// Client is a thin wrapper over net/http with a fixed overall timeout.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return NewClientWithTransport(timeout, nil)
}

// NewClientWithTransport sends requests through transport; nil means
// http.DefaultTransport.
func NewClientWithTransport(timeout time.Duration, transport http.RoundTripper) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// PostJSON sends body as application/json with the given extra headers.
func (c *Client) PostJSON(ctx context.Context, url string, body []byte, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.httpClient.Do(req)
}

// Get issues a GET request bound to ctx.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}
