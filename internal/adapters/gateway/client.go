// Package gateway implements the HTTP adapter for the remote-access
// gateway backend. It owns the wire contract; services only see the
// ports.Gateway operations.
package gateway

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
	"sync"
	"time"

	"github.com/rangelab/rangectl/internal/core/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultTimeout bounds every gateway request. Single-role calls are
	// user-interactive; nothing should hang a click for longer.
	DefaultTimeout = 15 * time.Second

	// DefaultDatasource is the gateway's authentication datasource used in
	// derived connection URLs.
	DefaultDatasource = "mysql"
)

// Client talks to the gateway's REST surface.
type Client struct {
	baseURL    string
	datasource string
	httpClient *http.Client

	// connIDs maps roles to gateway connection identifiers. Seeded from
	// configuration and refreshed from every status response.
	mu      sync.RWMutex
	connIDs map[domain.Role]string
}

// Option configures a Client.
type Option func(*Client)

// WithDatasource overrides the authentication datasource.
func WithDatasource(ds string) Option {
	return func(c *Client) { c.datasource = ds }
}

// WithHTTPClient substitutes the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithConnectionIDs seeds the role to connection-id mapping.
func WithConnectionIDs(ids map[domain.Role]string) Option {
	return func(c *Client) {
		for role, id := range ids {
			c.connIDs[role] = id
		}
	}
}

// NewClient creates a gateway client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		datasource: DefaultDatasource,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		connIDs: make(map[domain.Role]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wire types. Field names follow the backend's JSON contract.

type roleStatusPayload struct {
	DisplayName    string `json:"display_name"`
	Description    string `json:"description"`
	ColorTheme     string `json:"color_theme"`
	ConnectionID   string `json:"connection_id"`
	HasActiveToken bool   `json:"has_active_token"`
}

type statusPayload struct {
	Roles map[string]roleStatusPayload `json:"roles"`
	Meta  json.RawMessage              `json:"meta"`
}

type tokenPayload struct {
	Token         string `json:"token"`
	ConnectionURL string `json:"connection_url"`
}

type bulkPayload struct {
	Results map[string]tokenPayload `json:"results"`
	Errors  map[string]string       `json:"errors"`
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FetchStatus pulls the aggregate status snapshot and refreshes the
// connection-id mapping as a side effect.
func (c *Client) FetchStatus(ctx context.Context) (domain.SystemStatus, error) {
	var payload statusPayload
	if err := c.doJSON(ctx, http.MethodGet, "/api/status", nil, &payload); err != nil {
		return domain.SystemStatus{}, err
	}

	status := domain.SystemStatus{
		Roles: make(map[domain.Role]domain.RoleConfig, len(payload.Roles)),
		Meta:  payload.Meta,
	}

	c.mu.Lock()
	for name, rs := range payload.Roles {
		role := domain.Role(name)
		status.Roles[role] = domain.RoleConfig{
			Role:           role,
			DisplayName:    rs.DisplayName,
			Description:    rs.Description,
			ColorTheme:     rs.ColorTheme,
			ConnectionID:   rs.ConnectionID,
			HasActiveToken: rs.HasActiveToken,
		}
		if rs.ConnectionID != "" {
			c.connIDs[role] = rs.ConnectionID
		}
	}
	c.mu.Unlock()

	return status, nil
}

// RequestToken issues an access token for one role.
func (c *Client) RequestToken(ctx context.Context, role domain.Role) (domain.RoleGrant, error) {
	var payload tokenPayload
	path := "/api/token/" + url.PathEscape(string(role))
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &payload); err != nil {
		return domain.RoleGrant{}, c.roleErr(role, "token request failed", err)
	}
	if payload.Token == "" {
		return domain.RoleGrant{}, &domain.GatewayError{
			Role:    role,
			Message: "gateway returned an empty token",
		}
	}
	return domain.RoleGrant{Token: payload.Token, ConnectionURL: payload.ConnectionURL}, nil
}

// RevokeToken releases one role's token.
func (c *Client) RevokeToken(ctx context.Context, role domain.Role) error {
	path := "/api/disconnect/" + url.PathEscape(string(role))
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return c.roleErr(role, "token revoke failed", err)
	}
	return nil
}

// ConnectAll issues one gateway call covering all roles.
func (c *Client) ConnectAll(ctx context.Context) (domain.BulkResult, error) {
	var payload bulkPayload
	if err := c.doJSON(ctx, http.MethodPost, "/api/connect-all", nil, &payload); err != nil {
		return domain.BulkResult{}, err
	}

	result := domain.BulkResult{
		Results: make(map[domain.Role]domain.RoleGrant, len(payload.Results)),
		Errors:  make(map[domain.Role]string, len(payload.Errors)),
	}
	for name, tp := range payload.Results {
		result.Results[domain.Role(name)] = domain.RoleGrant{
			Token:         tp.Token,
			ConnectionURL: tp.ConnectionURL,
		}
	}
	for name, msg := range payload.Errors {
		result.Errors[domain.Role(name)] = msg
	}
	return result, nil
}

// DisconnectAll tears down every role server-side.
func (c *Client) DisconnectAll(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/disconnect-all", nil, nil)
}

// Validate probes one role's connection. Any non-2xx answer means the
// token is no longer usable.
func (c *Client) Validate(ctx context.Context, role domain.Role) error {
	path := "/api/connections/" + url.PathEscape(string(role))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil); err != nil {
		return c.roleErr(role, "validation probe failed", err)
	}
	return nil
}

// ConnectionURL derives the embeddable client URL for a role. Pure
// derivation from the base URL, datasource and the role's connection id.
func (c *Client) ConnectionURL(role domain.Role, token string) (string, error) {
	c.mu.RLock()
	cid, ok := c.connIDs[role]
	c.mu.RUnlock()
	if !ok || cid == "" {
		return "", &domain.GatewayError{Role: role, Message: "no connection id known"}
	}

	qs := url.Values{}
	qs.Set("token", token)
	qs.Set("embed", "true")
	qs.Set("resize", "scale")
	return fmt.Sprintf("%s/#/client/%s/%s?%s", c.baseURL, c.datasource, cid, qs.Encode()), nil
}

// roleErr scopes a transport-level failure to the role that caused it.
func (c *Client) roleErr(role domain.Role, msg string, err error) error {
	var ge *domain.GatewayError
	if errors.As(err, &ge) {
		ge.Role = role
		return ge
	}
	return &domain.GatewayError{Role: role, Message: msg, Err: err}
}

// doJSON performs one request and decodes a JSON answer into out when out
// is non-nil. Non-2xx answers become a *domain.GatewayError with the
// backend's message when one was sent.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.GatewayError{Message: "gateway unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		var ep errorPayload
		if decErr := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&ep); decErr == nil {
			if ep.Error != "" {
				msg = ep.Error
			} else if ep.Message != "" {
				msg = ep.Message
			}
		}
		return &domain.GatewayError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.GatewayError{Message: "malformed gateway response", Err: err}
	}
	return nil
}
