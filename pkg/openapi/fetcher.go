package openapi

import (
	"context"
	"net/http"
	"sort"

	"github.com/goliatone/go-formcards/pkg/schema"
	"github.com/goliatone/go-formcards/pkg/transport"
)

// Fetcher serves imported catalogs through the transport.Fetcher contract so
// a Store can sit in front of an OpenAPI document instead of the backend.
type Fetcher struct {
	catalogs map[string]schema.Catalog
}

var _ transport.Fetcher = (*Fetcher)(nil)

// NewFetcher wraps catalogs keyed by catalog id.
func NewFetcher(catalogs map[string]schema.Catalog) *Fetcher {
	copied := make(map[string]schema.Catalog, len(catalogs))
	for id, catalog := range catalogs {
		copied[id] = catalog
	}
	return &Fetcher{catalogs: copied}
}

// FetchSchema implements transport.Fetcher. Unknown ids yield a 404
// SchemaFetchError.
func (f *Fetcher) FetchSchema(ctx context.Context, catalogID string) (schema.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	catalog, ok := f.catalogs[catalogID]
	if !ok {
		return nil, &transport.SchemaFetchError{
			Status:    http.StatusNotFound,
			CatalogID: catalogID,
			Err:       transport.ErrUnknownCatalog,
		}
	}
	out := make(schema.Catalog, len(catalog))
	copy(out, catalog)
	return out, nil
}

// Available lists the catalog ids in sorted order.
func (f *Fetcher) Available() []string {
	ids := make([]string, 0, len(f.catalogs))
	for id := range f.catalogs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
