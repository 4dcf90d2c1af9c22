package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-formcards/pkg/logging"
	"github.com/goliatone/go-formcards/pkg/schema"
)

// DefaultStaleness is how long a fetched catalog is served without refetch.
const DefaultStaleness = 5 * time.Minute

type storeEntry struct {
	catalog   schema.Catalog
	fetchedAt time.Time
}

// InvalidationHook is called after a catalog is invalidated.
type InvalidationHook func(catalogID string)

// Store caches catalogs per id. Catalogs are replaced wholesale, never
// mutated.
type Store struct {
	fetcher   Fetcher
	staleness time.Duration
	now       func() time.Time
	logger    logging.Logger
	hooks     []InvalidationHook

	group       singleflight.Group
	mu          sync.RWMutex
	entries     map[string]storeEntry
	generations map[string]uint64
	epoch       uint64
}

// StoreOption configures the Store.
type StoreOption func(*Store)

// WithStaleness overrides DefaultStaleness.
func WithStaleness(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.staleness = d
		}
	}
}

// WithStoreClock overrides time.Now.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreLogger records fetch failures and dropped results.
func WithStoreLogger(logger logging.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logging.OrNoop(logger)
	}
}

// WithInvalidationHook registers fn to run after Invalidate/InvalidateAll.
func WithInvalidationHook(fn InvalidationHook) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.hooks = append(s.hooks, fn)
		}
	}
}

// NewStore wraps fetcher with a cache.
func NewStore(fetcher Fetcher, options ...StoreOption) *Store {
	s := &Store{
		fetcher:     fetcher,
		staleness:   DefaultStaleness,
		now:         time.Now,
		logger:      logging.Noop(),
		entries:     make(map[string]storeEntry),
		generations: make(map[string]uint64),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Catalog returns the cached catalog when fresh, otherwise fetches it.
// Concurrent callers for the same id share one request.
func (s *Store) Catalog(ctx context.Context, catalogID string) (schema.Catalog, error) {
	catalogID = strings.TrimSpace(catalogID)
	s.mu.RLock()
	entry, ok := s.entries[catalogID]
	gen := s.generationLocked(catalogID)
	s.mu.RUnlock()
	if ok && s.now().Sub(entry.fetchedAt) < s.staleness {
		return entry.catalog, nil
	}
	return s.fetch(ctx, catalogID, gen)
}

// Refresh refetches catalogID regardless of staleness.
func (s *Store) Refresh(ctx context.Context, catalogID string) (schema.Catalog, error) {
	catalogID = strings.TrimSpace(catalogID)
	s.mu.RLock()
	gen := s.generationLocked(catalogID)
	s.mu.RUnlock()
	return s.fetch(ctx, catalogID, gen)
}

// generationLocked combines the per-id generation with the store-wide epoch
// bumped by InvalidateAll.
func (s *Store) generationLocked(catalogID string) string {
	return strconv.FormatUint(s.generations[catalogID], 10) + "." + strconv.FormatUint(s.epoch, 10)
}

func (s *Store) fetch(ctx context.Context, catalogID string, gen string) (schema.Catalog, error) {
	if s.fetcher == nil {
		return nil, &SchemaFetchError{CatalogID: catalogID, Err: fmt.Errorf("no fetcher configured")}
	}
	key := catalogID + "@" + gen
	// The shared fetch outlives any one caller; a cancelled caller only
	// stops waiting for it.
	flightCtx := context.WithoutCancel(ctx)
	result := s.group.DoChan(key, func() (any, error) {
		catalog, err := s.fetcher.FetchSchema(flightCtx, catalogID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generationLocked(catalogID) != gen {
			s.logger.Printf("transport: dropping catalog %q fetched under generation %s", catalogID, gen)
			return catalog, nil
		}
		s.entries[catalogID] = storeEntry{catalog: catalog, fetchedAt: s.now()}
		return catalog, nil
	})

	var value any
	var err error
	select {
	case <-ctx.Done():
		err = fmt.Errorf("transport: fetch catalog %q: %w", catalogID, ctx.Err())
	case res := <-result:
		value, err = res.Val, res.Err
	}
	if err != nil {
		s.logger.Printf("transport: %v", err)
		return nil, err
	}
	catalog, _ := value.(schema.Catalog)
	return catalog, nil
}

// Peek returns the cached catalog regardless of staleness.
func (s *Store) Peek(catalogID string) (schema.Catalog, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[strings.TrimSpace(catalogID)]
	return entry.catalog, ok
}

// Invalidate drops catalogID. A fetch already in flight will not be stored.
func (s *Store) Invalidate(catalogID string) {
	catalogID = strings.TrimSpace(catalogID)
	s.mu.Lock()
	s.generations[catalogID]++
	delete(s.entries, catalogID)
	s.mu.Unlock()
	for _, hook := range s.hooks {
		hook(catalogID)
	}
}

// InvalidateAll drops every cached catalog.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.epoch++
	s.entries = make(map[string]storeEntry)
	s.mu.Unlock()
	for _, id := range ids {
		for _, hook := range s.hooks {
			hook(id)
		}
	}
}

// Flatten returns every field of catalogID in pre-order.
func (s *Store) Flatten(ctx context.Context, catalogID string) ([]schema.FieldDefinition, error) {
	catalog, err := s.Catalog(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	return schema.Flatten(catalog), nil
}

// FindCard looks up cardID inside catalogID.
func (s *Store) FindCard(ctx context.Context, catalogID, cardID string) (schema.CardSchema, bool, error) {
	catalog, err := s.Catalog(ctx, catalogID)
	if err != nil {
		return schema.CardSchema{}, false, err
	}
	card, ok := catalog.FindCard(cardID)
	return card, ok, nil
}

// FindField looks up a field by key inside catalogID.
func (s *Store) FindField(ctx context.Context, catalogID, fieldKey string) (schema.FieldDefinition, bool, error) {
	catalog, err := s.Catalog(ctx, catalogID)
	if err != nil {
		return schema.FieldDefinition{}, false, err
	}
	field, ok := catalog.FindField(fieldKey)
	return field, ok, nil
}
