package identityx

// Package identityx is a REST adapter for the IdentityX FIDO server. The
// vendor publishes no Go SDK, so the adapter speaks the server's HAL-style
// JSON resource API directly.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/authbridge/relying-party/internal/errors"

	"github.com/authbridge/relying-party/internal/core"
)

const defaultRequestTimeout = 30 * time.Second

// Options groups Client construction parameters.
type Options struct {
	// BaseURL is the tenant root, e.g. https://tenant.identityx.example/rest/v1.
	BaseURL string
	// APIKey authenticates every request as a bearer token.
	APIKey string
	// ApplicationID names the relying-party application registered at the tenant.
	ApplicationID string
	// RegPolicyID and AuthPolicyID name the registration and authentication
	// policies within the application.
	RegPolicyID  string
	AuthPolicyID string
	// Cache holds authenticator-type metadata. Required.
	Cache core.CacheRepository
	// HTTPClient overrides the default client (useful for tests).
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to an IdentityX tenant. Call Connect before use: it resolves
// the application and policy resource hrefs the operational calls need.
type Client struct {
	baseURL       string
	apiKey        string
	applicationID string
	regPolicyID   string
	authPolicyID  string

	httpc  *http.Client
	cache  core.CacheRepository
	logger *slog.Logger

	// Resolved by Connect.
	application    *wireApplication
	regPolicyHref  string
	authPolicyHref string
}

// NewClient creates an IdentityX client. Connect must be called before any
// provider operation.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("identityx: base URL is required")
	}
	if opts.ApplicationID == "" {
		return nil, fmt.Errorf("identityx: application ID is required")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("identityx: cache repository is required")
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultRequestTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		apiKey:        opts.APIKey,
		applicationID: opts.ApplicationID,
		regPolicyID:   opts.RegPolicyID,
		authPolicyID:  opts.AuthPolicyID,
		httpc:         httpc,
		cache:         opts.Cache,
		logger:        logger.With("component", "identityx"),
	}, nil
}

// Connect resolves the application and its registration and authentication
// policies. It must succeed before the client serves traffic.
func (c *Client) Connect(ctx context.Context) error {
	app, err := c.findApplication(ctx)
	if err != nil {
		return err
	}
	c.application = app
	c.logger.Info("resolved application", "application_id", c.applicationID)

	regPolicy, err := c.findPolicy(ctx, c.regPolicyID)
	if err != nil {
		return err
	}
	c.regPolicyHref = regPolicy.Href

	authPolicy, err := c.findPolicy(ctx, c.authPolicyID)
	if err != nil {
		return err
	}
	c.authPolicyHref = authPolicy.Href
	c.logger.Info("resolved policies", "reg_policy", c.regPolicyID, "auth_policy", c.authPolicyID)
	return nil
}

// --- HTTP plumbing ---

func (c *Client) do(ctx context.Context, method, href string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Dependency("identityx: encode request", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, href, reqBody)
	if err != nil {
		return apperrors.Dependency("identityx: build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperrors.Dependency("identityx: request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return errRemoteNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.Dependency(
			fmt.Sprintf("identityx: %s %s returned %d: %s", method, href, resp.StatusCode, strings.TrimSpace(string(data))),
			nil,
		)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Dependency("identityx: decode response", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, href string, out any) error {
	return c.do(ctx, http.MethodGet, href, nil, out)
}

func (c *Client) post(ctx context.Context, href string, body, out any) error {
	return c.do(ctx, http.MethodPost, href, body, out)
}

func (c *Client) put(ctx context.Context, href string, body, out any) error {
	return c.do(ctx, http.MethodPut, href, body, out)
}

// list issues a GET against a collection href with query parameters.
func (c *Client) list(ctx context.Context, href string, query url.Values, out any) error {
	u := href
	if len(query) > 0 {
		u = href + "?" + query.Encode()
	}
	return c.get(ctx, u, out)
}

func (c *Client) resource(path string) string {
	return c.baseURL + path
}

// errRemoteNotFound marks a 404 from the tenant. Callers translate it to the
// operation-specific error.
var errRemoteNotFound = apperrors.NotFoundf("identityx: resource not found")

// idFromHref extracts the trailing path segment of a resource href.
func idFromHref(href string) string {
	idx := strings.LastIndex(href, "/")
	if idx < 0 {
		return ""
	}
	return href[idx+1:]
}
