package transport

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formcards/internal/testsupport"
	"github.com/goliatone/go-formcards/pkg/auth"
	"github.com/goliatone/go-formcards/pkg/schema"
)

func catalogServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/api/schemas/contacts":
			if r.Header.Get("Authorization") != "Bearer t0k" {
				http.Error(w, `{"message":"missing token"}`, http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(testsupport.ContactsCatalogJSON))
		case "/custom/leads.json":
			_, _ = w.Write([]byte(`[{"cardId":"lead","title":"Lead","order":0,"sections":[]}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"no such catalog"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientFetchSchema(t *testing.T) {
	var hits int32
	srv := catalogServer(t, &hits)
	client := NewClient(srv.URL+"/api/schemas", WithHeaderProvider(auth.Bearer("t0k")))

	catalog, err := client.FetchSchema(context.Background(), CatalogContacts)
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	assert.Equal(t, "details", catalog[0].CardID)
	assert.Equal(t, schema.FieldTypeGroup, catalog[0].Sections[1].Fields[0].Type)
}

func TestClientCatalogPaths(t *testing.T) {
	var hits int32
	srv := catalogServer(t, &hits)
	client := NewClient(srv.URL, WithCatalogPath(CatalogLeads, "/custom/leads.json"))

	catalog, err := client.FetchSchema(context.Background(), CatalogLeads)
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "lead", catalog[0].CardID)

	absolute := NewClient("", WithCatalogPaths(map[string]string{"x": srv.URL + "/custom/leads.json"}))
	got, err := absolute.URL("x")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/custom/leads.json", got)

	_, err = NewClient("").URL("nowhere")
	assert.ErrorIs(t, err, ErrUnknownCatalog)
}

func TestClientNon2xxReturnsSchemaFetchError(t *testing.T) {
	var hits int32
	srv := catalogServer(t, &hits)

	_, err := NewClient(srv.URL+"/api/schemas").FetchSchema(context.Background(), CatalogContacts)
	var fetchErr *SchemaFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusUnauthorized, fetchErr.Status)
	assert.Equal(t, "missing token", fetchErr.Message)
	assert.Equal(t, CatalogContacts, fetchErr.CatalogID)

	_, err = NewClient(srv.URL+"/api/schemas").FetchSchema(context.Background(), CatalogScores)
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "no such catalog", fetchErr.Message)
	assert.True(t, IsNotFound(err))
}

func TestClientSendsRequestID(t *testing.T) {
	ids := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get("X-Request-Id")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	for i := 0; i < 2; i++ {
		_, err := client.FetchSchema(context.Background(), "x")
		require.NoError(t, err)
	}
	first, second := <-ids, <-ids
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestStoreServesFreshCatalogFromCache(t *testing.T) {
	var calls int32
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	fetcher := FetcherFunc(func(ctx context.Context, id string) (schema.Catalog, error) {
		atomic.AddInt32(&calls, 1)
		return schema.Catalog{{CardID: id}}, nil
	})
	store := NewStore(fetcher, WithStaleness(time.Minute), WithStoreClock(func() time.Time { return now }))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Catalog(ctx, "contacts")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	now = now.Add(2 * time.Minute)
	_, err := store.Catalog(ctx, "contacts")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, err = store.Refresh(ctx, "contacts")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestStoreDeduplicatesConcurrentFetches(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	fetcher := FetcherFunc(func(ctx context.Context, id string) (schema.Catalog, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return schema.Catalog{{CardID: "c"}}, nil
	})
	store := NewStore(fetcher)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Catalog(context.Background(), "contacts")
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStoreCancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := FetcherFunc(func(ctx context.Context, id string) (schema.Catalog, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		select {
		case <-release:
			return schema.Catalog{{CardID: "c"}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	store := NewStore(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := store.Catalog(ctx, "contacts")
		first <- err
	}()
	<-started

	second := make(chan schema.Catalog, 1)
	go func() {
		catalog, err := store.Catalog(context.Background(), "contacts")
		assert.NoError(t, err)
		second <- catalog
	}()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	catalog := <-second
	require.Len(t, catalog, 1)
	assert.Equal(t, "c", catalog[0].CardID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStoreInvalidateDropsInFlightResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	fetcher := FetcherFunc(func(ctx context.Context, id string) (schema.Catalog, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
			return schema.Catalog{{CardID: "old"}}, nil
		}
		return schema.Catalog{{CardID: "new"}}, nil
	})

	var invalidated []string
	store := NewStore(fetcher, WithInvalidationHook(func(id string) {
		invalidated = append(invalidated, id)
	}))

	done := make(chan schema.Catalog)
	go func() {
		catalog, _ := store.Catalog(context.Background(), "contacts")
		done <- catalog
	}()
	<-started
	store.Invalidate("contacts")

	fresh, err := store.Catalog(context.Background(), "contacts")
	require.NoError(t, err)
	assert.Equal(t, "new", fresh[0].CardID)

	close(release)
	late := <-done
	assert.Equal(t, "old", late[0].CardID)

	cached, ok := store.Peek("contacts")
	require.True(t, ok)
	assert.Equal(t, "new", cached[0].CardID)
	assert.Equal(t, []string{"contacts"}, invalidated)
}

func TestStoreErrorsAreNotCached(t *testing.T) {
	var calls int32
	boom := &SchemaFetchError{Status: http.StatusBadGateway, CatalogID: "contacts"}
	store := NewStore(FetcherFunc(func(ctx context.Context, id string) (schema.Catalog, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, boom
		}
		return schema.Catalog{}, nil
	}))

	_, err := store.Catalog(context.Background(), "contacts")
	require.ErrorIs(t, err, boom)
	_, err = store.Catalog(context.Background(), "contacts")
	require.NoError(t, err)
}

func TestStoreDerivedViews(t *testing.T) {
	store := NewStore(NewFSFetcher(fstest.MapFS{
		"schemas/contacts.json": {Data: []byte(testsupport.ContactsCatalogJSON)},
	}, "schemas"))
	ctx := context.Background()

	fields, err := store.Flatten(ctx, "contacts")
	require.NoError(t, err)
	assert.Len(t, fields, 16)

	card, ok, err := store.FindCard(ctx, "contacts", "commercial")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "money", card.Sections[0].SectionID)

	field, ok, err := store.FindField(ctx, "contacts", "address.city")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "City", field.Label)
}

func TestFSFetcherYAMLAndMissing(t *testing.T) {
	fsys := fstest.MapFS{
		"leads.yaml": {Data: []byte(`
- cardId: lead
  title: Lead
  order: 2
  sections:
    - sectionId: main
      title: Main
      fields:
        - fieldKey: stage
          type: enum
          enumSource: /enums/lead-stage
`)},
		"scores.yml": {Data: []byte("[]")},
		"notes.txt":  {Data: []byte("ignored")},
	}
	fetcher := NewFSFetcher(fsys, "")

	catalog, err := fetcher.FetchSchema(context.Background(), "leads")
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, schema.FieldTypeEnum, catalog[0].Sections[0].Fields[0].Type)

	_, err = fetcher.FetchSchema(context.Background(), "customers")
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = fetcher.FetchSchema(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrUnknownCatalog)

	ids, err := fetcher.Available()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"leads", "scores"}, ids)
}
