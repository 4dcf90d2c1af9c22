// Package auth carries caller-owned authorization headers into outbound
// schema and enum requests. Nothing in this module builds credentials itself.
package auth

import (
	"context"
	"net/http"
	"strings"
)

// HeaderProvider supplies headers for one outbound request.
type HeaderProvider interface {
	Headers(ctx context.Context) (http.Header, error)
}

// HeaderProviderFunc adapts a function into a HeaderProvider.
type HeaderProviderFunc func(ctx context.Context) (http.Header, error)

// Headers implements HeaderProvider.
func (fn HeaderProviderFunc) Headers(ctx context.Context) (http.Header, error) {
	if fn == nil {
		return nil, nil
	}
	return fn(ctx)
}

// StaticHeaders always returns a copy of the same header set.
type StaticHeaders http.Header

// Headers implements HeaderProvider.
func (s StaticHeaders) Headers(context.Context) (http.Header, error) {
	return http.Header(s).Clone(), nil
}

// Bearer returns a provider that sets `Authorization: Bearer <token>`. An
// empty token yields no headers.
func Bearer(token string) HeaderProvider {
	token = strings.TrimSpace(token)
	if token == "" {
		return StaticHeaders{}
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return StaticHeaders(h)
}

// Apply copies the provider's headers onto req. A nil provider is a no-op.
func Apply(ctx context.Context, provider HeaderProvider, req *http.Request) error {
	if provider == nil || req == nil {
		return nil
	}
	headers, err := provider.Headers(ctx)
	if err != nil {
		return err
	}
	for key, values := range headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return nil
}
