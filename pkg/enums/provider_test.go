package enums

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formcards/pkg/auth"
	"github.com/goliatone/go-formcards/pkg/schema"
)

var statusOptions = []schema.EnumOption{
	{Value: "active", Label: "Active"},
	{Value: "inactive", Label: "Inactive"},
}

func countingFetcher(calls *int32, options []schema.EnumOption, delay time.Duration) Fetcher {
	return FetcherFunc(func(ctx context.Context, source string) ([]schema.EnumOption, error) {
		atomic.AddInt32(calls, 1)
		if delay > 0 {
			time.Sleep(delay)
		}
		return options, nil
	})
}

func enumField(source string) schema.FieldDefinition {
	return schema.FieldDefinition{FieldKey: "status", Type: schema.FieldTypeEnum, EnumSource: source}
}

func TestOptionsNeverFetchesForNonOptionFields(t *testing.T) {
	var calls int32
	p := NewProvider(countingFetcher(&calls, statusOptions, 0))
	ctx := context.Background()

	state := p.Options(ctx, schema.FieldDefinition{FieldKey: "name", Type: schema.FieldTypeText, EnumSource: "/enums/x"})
	assert.Equal(t, StatusIdle, state.Status)

	state = p.Options(ctx, schema.FieldDefinition{FieldKey: "status", Type: schema.FieldTypeEnum})
	assert.Equal(t, StatusIdle, state.Status)

	state = p.Options(ctx, schema.FieldDefinition{
		FieldKey:   "tags",
		Type:       schema.FieldTypeMultiselect,
		EnumSource: "/enums/tags",
		Options:    []schema.EnumOption{{Value: "a", Label: "A"}},
	})
	assert.Equal(t, StatusReady, state.Status)
	assert.Len(t, state.Options, 1)

	p.inflight.Wait()
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestLookupReturnsLoadingThenReady(t *testing.T) {
	var calls int32
	p := NewProvider(countingFetcher(&calls, statusOptions, 10*time.Millisecond))
	ctx := context.Background()

	first := p.Options(ctx, enumField("/enums/status"))
	assert.Equal(t, StatusLoading, first.Status)

	state, err := p.Wait(ctx, "/enums/status")
	require.NoError(t, err)
	require.Equal(t, StatusReady, state.Status)
	assert.Equal(t, statusOptions, state.Options)

	label, ok := state.Label("inactive")
	assert.True(t, ok)
	assert.Equal(t, "Inactive", label)
}

func TestRepeatedLookupsFetchOnce(t *testing.T) {
	var calls int32
	p := NewProvider(countingFetcher(&calls, statusOptions, 0))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		p.Lookup(ctx, "/enums/status")
	}
	_, err := p.Wait(ctx, "/enums/status")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		assert.Equal(t, StatusReady, p.Lookup(ctx, "/enums/status").Status)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestConcurrentFieldsShareOneFetch(t *testing.T) {
	var calls int32
	p := NewProvider(countingFetcher(&calls, statusOptions, 20*time.Millisecond))
	ctx := context.Background()

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			p.Options(ctx, enumField("/enums/status"))
		}()
	}
	close(start)
	wg.Wait()

	state, err := p.Wait(ctx, "/enums/status")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, state.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTTLExpiryRefetchesButServesStaleOptions(t *testing.T) {
	var calls int32
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	p := NewProvider(countingFetcher(&calls, statusOptions, 0), WithTTL(time.Minute), WithClock(clock))
	ctx := context.Background()

	_, err := p.Wait(ctx, "/enums/status")
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	stale := p.Lookup(ctx, "/enums/status")
	assert.Equal(t, StatusReady, stale.Status)
	assert.NotEmpty(t, stale.Options)

	p.inflight.Wait()
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFailuresAreReportedAndContained(t *testing.T) {
	boom := errors.New("backend down")
	p := NewProvider(FetcherFunc(func(context.Context, string) ([]schema.EnumOption, error) {
		return nil, boom
	}))

	state, err := p.Wait(context.Background(), "/enums/status")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, state.Status)

	var fetchErr *EnumFetchError
	require.ErrorAs(t, state.Err, &fetchErr)
	assert.Equal(t, "/enums/status", fetchErr.Source)
	assert.ErrorIs(t, state.Err, boom)
}

func TestFetcherPanicBecomesFailedState(t *testing.T) {
	p := NewProvider(FetcherFunc(func(context.Context, string) ([]schema.EnumOption, error) {
		panic("kaboom")
	}))

	var state State
	require.NotPanics(t, func() {
		state, _ = p.Wait(context.Background(), "/enums/status")
	})
	assert.Equal(t, StatusFailed, state.Status)
	assert.Contains(t, state.Err.Error(), "kaboom")
}

func TestInvalidateDiscardsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int32
	p := NewProvider(FetcherFunc(func(ctx context.Context, source string) ([]schema.EnumOption, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
			return []schema.EnumOption{{Value: "old", Label: "Old"}}, nil
		}
		return []schema.EnumOption{{Value: "new", Label: "New"}}, nil
	}))
	ctx := context.Background()

	var notified []string
	var mu sync.Mutex
	unsubscribe := p.Subscribe(func(source string, state State) {
		mu.Lock()
		defer mu.Unlock()
		for _, opt := range state.Options {
			notified = append(notified, opt.Label)
		}
	})
	defer unsubscribe()

	assert.Equal(t, StatusLoading, p.Lookup(ctx, "/enums/status").Status)
	<-started
	p.Invalidate("/enums/status")

	fresh, err := p.Wait(ctx, "/enums/status")
	require.NoError(t, err)
	require.Equal(t, "New", fresh.Options[0].Label)

	close(release)
	p.inflight.Wait()

	final := p.Peek("/enums/status")
	assert.Equal(t, "New", final.Options[0].Label)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"New"}, notified)
}

func TestInvalidateAllForcesRefetch(t *testing.T) {
	var calls int32
	p := NewProvider(countingFetcher(&calls, statusOptions, 0))
	ctx := context.Background()

	_, _ = p.Wait(ctx, "/enums/a")
	_, _ = p.Wait(ctx, "/enums/b")
	p.InvalidateAll()
	assert.Equal(t, StatusIdle, p.Peek("/enums/a").Status)

	_, _ = p.Wait(ctx, "/enums/a")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWaitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	p := NewProvider(FetcherFunc(func(context.Context, string) ([]schema.EnumOption, error) {
		<-block
		return nil, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	state, err := p.Wait(ctx, "/enums/slow")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusLoading, state.Status)
}

func TestHTTPFetcherInjectsHeadersAndDecodes(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/api/enums/contact-status", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"value":"active","label":"Active"},{"value":2},{"label":"orphan"}]`))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(srv.URL+"/api/", WithHeaderProvider(auth.Bearer("secret")))
	options, err := fetcher.FetchOptions(context.Background(), "/enums/contact-status")
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, "Active", options[0].Label)
	assert.Equal(t, "2", options[1].Label)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestHTTPFetcherNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.URL).FetchOptions(context.Background(), "/enums/x")
	var fetchErr *EnumFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusForbidden, fetchErr.Status)
}
