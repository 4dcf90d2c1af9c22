package enums

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
	"github.com/goliatone/go-formcards/pkg/schema"
)

// Fetcher loads the option list behind an enum source.
type Fetcher interface {
	FetchOptions(ctx context.Context, source string) ([]schema.EnumOption, error)
}

// FetcherFunc adapts a function into a Fetcher.
type FetcherFunc func(ctx context.Context, source string) ([]schema.EnumOption, error)

// FetchOptions implements Fetcher.
func (fn FetcherFunc) FetchOptions(ctx context.Context, source string) ([]schema.EnumOption, error) {
	return fn(ctx, source)
}

// HTTPFetcher performs `GET <base><enumSource>` and decodes an ordered
// `[{value,label}]` array.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
	headers auth.HeaderProvider
	timeout time.Duration
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient overrides http.DefaultClient.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithHeaderProvider injects authorization headers into every request.
func WithHeaderProvider(provider auth.HeaderProvider) HTTPOption {
	return func(f *HTTPFetcher) {
		f.headers = provider
	}
}

// WithRequestTimeout bounds a single request. Zero disables the bound.
func WithRequestTimeout(timeout time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		if timeout >= 0 {
			f.timeout = timeout
		}
	}
}

// NewHTTPFetcher builds a fetcher resolving relative enum sources against
// baseURL. Absolute sources are requested as-is.
func NewHTTPFetcher(baseURL string, options ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  http.DefaultClient,
		timeout: 10 * time.Second,
	}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// URL returns the request URL for source.
func (f *HTTPFetcher) URL(source string) string {
	source = strings.TrimSpace(source)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return source
	}
	if f.baseURL == "" {
		return source
	}
	return f.baseURL + "/" + strings.TrimLeft(source, "/")
}

// FetchOptions implements Fetcher.
func (f *HTTPFetcher) FetchOptions(ctx context.Context, source string) ([]schema.EnumOption, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &EnumFetchError{Source: source, Err: errors.New("source is required")}
	}

	reqCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, f.URL(source), nil)
	if err != nil {
		return nil, &EnumFetchError{Source: source, Err: fmt.Errorf("request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if err := auth.Apply(ctx, f.headers, req); err != nil {
		return nil, &EnumFetchError{Source: source, Err: fmt.Errorf("headers: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &EnumFetchError{Source: source, Err: fmt.Errorf("do request: %w", err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &EnumFetchError{Source: source, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &EnumFetchError{Source: source, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	options, err := DecodeOptions(data)
	if err != nil {
		return nil, &EnumFetchError{Source: source, Status: resp.StatusCode, Err: err}
	}
	return options, nil
}

// DecodeOptions decodes the enum wire format. Entries without a value are
// skipped and a missing label falls back to the value's text.
func DecodeOptions(data []byte) ([]schema.EnumOption, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	out := make([]schema.EnumOption, 0, len(raw))
	for _, item := range raw {
		value, ok := item["value"]
		if !ok || value == nil {
			continue
		}
		label, _ := item["label"].(string)
		if label == "" {
			label = fmt.Sprint(value)
		}
		out = append(out, schema.EnumOption{Value: value, Label: label})
	}
	return out, nil
}
