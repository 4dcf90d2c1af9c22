// Package transport fetches CardSchema catalogs from the backend and keeps a
// staleness-windowed cache of them.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/goliatone/go-formcards/pkg/auth"
	"github.com/goliatone/go-formcards/pkg/logging"
	"github.com/goliatone/go-formcards/pkg/schema"
)

// Catalog ids served by the backend.
const (
	CatalogCustomers  = "customers"
	CatalogContacts   = "contacts"
	CatalogLeads      = "leads"
	CatalogActivities = "activities"
	CatalogBranches   = "branches"
	CatalogScores     = "scores"
	CatalogLocations  = "locations"
)

// KnownCatalogs lists the catalog ids in display order.
var KnownCatalogs = []string{
	CatalogCustomers,
	CatalogContacts,
	CatalogLeads,
	CatalogActivities,
	CatalogBranches,
	CatalogScores,
	CatalogLocations,
}

// Fetcher loads one catalog.
type Fetcher interface {
	FetchSchema(ctx context.Context, catalogID string) (schema.Catalog, error)
}

// FetcherFunc adapts a function into a Fetcher.
type FetcherFunc func(ctx context.Context, catalogID string) (schema.Catalog, error)

// FetchSchema implements Fetcher.
func (fn FetcherFunc) FetchSchema(ctx context.Context, catalogID string) (schema.Catalog, error) {
	return fn(ctx, catalogID)
}

const maxErrorBody = 64 << 10

// Client fetches catalogs over HTTP.
type Client struct {
	baseURL    string
	paths      map[string]string
	httpClient *http.Client
	headers    auth.HeaderProvider
	timeout    time.Duration
	logger     logging.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient overrides http.DefaultClient.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithHeaderProvider injects authorization headers into every request.
func WithHeaderProvider(provider auth.HeaderProvider) ClientOption {
	return func(c *Client) {
		c.headers = provider
	}
}

// WithCatalogPath maps a catalog id to an explicit path or absolute URL.
func WithCatalogPath(catalogID, path string) ClientOption {
	return func(c *Client) {
		c.paths[strings.TrimSpace(catalogID)] = strings.TrimSpace(path)
	}
}

// WithCatalogPaths merges a set of catalog paths.
func WithCatalogPaths(paths map[string]string) ClientOption {
	return func(c *Client) {
		for id, path := range paths {
			c.paths[strings.TrimSpace(id)] = strings.TrimSpace(path)
		}
	}
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout >= 0 {
			c.timeout = timeout
		}
	}
}

// WithClientLogger records request failures.
func WithClientLogger(logger logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logging.OrNoop(logger)
	}
}

// NewClient builds a Client. Catalog ids without an explicit path resolve to
// `<baseURL>/<catalogID>`.
func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		paths:      make(map[string]string),
		httpClient: http.DefaultClient,
		timeout:    30 * time.Second,
		logger:     logging.Noop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// URL returns the request URL for catalogID.
func (c *Client) URL(catalogID string) (string, error) {
	catalogID = strings.TrimSpace(catalogID)
	if catalogID == "" {
		return "", fmt.Errorf("%w: empty id", ErrUnknownCatalog)
	}
	path, ok := c.paths[catalogID]
	if !ok {
		if c.baseURL == "" {
			return "", fmt.Errorf("%w: %q has no path and no base url is configured", ErrUnknownCatalog, catalogID)
		}
		return c.baseURL + "/" + catalogID, nil
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || c.baseURL == "" {
		return path, nil
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/"), nil
}

// FetchSchema implements Fetcher.
func (c *Client) FetchSchema(ctx context.Context, catalogID string) (schema.Catalog, error) {
	target, err := c.URL(catalogID)
	if err != nil {
		return nil, &SchemaFetchError{CatalogID: catalogID, Err: err}
	}

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &SchemaFetchError{CatalogID: catalogID, Err: fmt.Errorf("request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	if err := auth.Apply(ctx, c.headers, req); err != nil {
		return nil, &SchemaFetchError{CatalogID: catalogID, Err: fmt.Errorf("headers: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("transport: %s %s (request %s) failed: %v", req.Method, target, requestID, err)
		return nil, &SchemaFetchError{CatalogID: catalogID, Err: fmt.Errorf("do request: %w", err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Printf("transport: %s %s (request %s) returned %d", req.Method, target, requestID, resp.StatusCode)
		return nil, &SchemaFetchError{
			Status:    resp.StatusCode,
			Message:   errorMessage(body, resp.StatusCode),
			CatalogID: catalogID,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SchemaFetchError{Status: resp.StatusCode, CatalogID: catalogID, Err: fmt.Errorf("read body: %w", err)}
	}
	catalog, err := schema.DecodeCatalog(data)
	if err != nil {
		return nil, &SchemaFetchError{Status: resp.StatusCode, CatalogID: catalogID, Err: err}
	}
	return catalog, nil
}

// errorMessage prefers a `message` or `error` member of a JSON body, then the
// trimmed body text, then the status text.
func errorMessage(body []byte, status int) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if msg, ok := payload[key].(string); ok && strings.TrimSpace(msg) != "" {
				return strings.TrimSpace(msg)
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 512 {
		return text
	}
	return http.StatusText(status)
}

// IsNotFound reports whether err is a SchemaFetchError with status 404.
func IsNotFound(err error) bool {
	var fetchErr *SchemaFetchError
	return errors.As(err, &fetchErr) && fetchErr.Status == http.StatusNotFound
}
