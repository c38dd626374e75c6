// Package provision is the HTTP adapter for the VM provisioning backend.
// The backend brings scenario machines up and down; this client only
// triggers it and relays the captured output.
package provision

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout is generous: the backend shells out to bring whole VMs
// up before answering.
const DefaultTimeout = 5 * time.Minute

// Client triggers the provisioning backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a provisioner client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// WithHTTPClient substitutes the underlying HTTP client, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// StartScenario brings the scenario's machines up and returns the
// captured provisioning output.
func (c *Client) StartScenario(ctx context.Context, id string) (string, error) {
	return c.get(ctx, "/start", id)
}

// StopScenario halts the scenario's machines.
func (c *Client) StopScenario(ctx context.Context, id string) (string, error) {
	return c.get(ctx, "/stop", id)
}

// TailLog returns the scenario traffic log captured on the range.
func (c *Client) TailLog(ctx context.Context) (string, error) {
	return c.get(ctx, "/log", "")
}

func (c *Client) get(ctx context.Context, path, scenarioID string) (string, error) {
	endpoint := c.baseURL + path
	if scenarioID != "" {
		endpoint += "?" + url.Values{"scenario": {scenarioID}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provisioner unreachable: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read provisioner output: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return string(out), fmt.Errorf("provisioner returned HTTP %d", resp.StatusCode)
	}
	return string(out), nil
}
