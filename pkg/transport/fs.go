package transport

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/goliatone/go-formcards/pkg/schema"
)

var catalogExtensions = []string{".json", ".yaml", ".yml"}

// FSFetcher serves catalogs from files named `<catalogID>.json|yaml|yml`.
type FSFetcher struct {
	fsys fs.FS
	dir  string
}

// NewFSFetcher reads catalogs from dir inside fsys. An empty dir means the
// root of fsys.
func NewFSFetcher(fsys fs.FS, dir string) *FSFetcher {
	dir = strings.Trim(strings.TrimSpace(dir), "/")
	if dir == "" {
		dir = "."
	}
	return &FSFetcher{fsys: fsys, dir: dir}
}

// FetchSchema implements Fetcher.
func (f *FSFetcher) FetchSchema(ctx context.Context, catalogID string) (schema.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, &SchemaFetchError{CatalogID: catalogID, Err: err}
	}
	if f == nil || f.fsys == nil {
		return nil, &SchemaFetchError{CatalogID: catalogID, Err: errors.New("file system is not configured")}
	}
	id := strings.TrimSpace(catalogID)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, &SchemaFetchError{CatalogID: catalogID, Err: fmt.Errorf("%w: invalid id", ErrUnknownCatalog)}
	}

	for _, ext := range catalogExtensions {
		name := path.Join(f.dir, id+ext)
		data, err := fs.ReadFile(f.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &SchemaFetchError{CatalogID: catalogID, Err: fmt.Errorf("read %s: %w", name, err)}
		}
		catalog, err := schema.DecodeCatalog(data)
		if err != nil {
			return nil, &SchemaFetchError{CatalogID: catalogID, Err: fmt.Errorf("decode %s: %w", name, err)}
		}
		return catalog, nil
	}
	return nil, &SchemaFetchError{
		Status:    http.StatusNotFound,
		Message:   fmt.Sprintf("no catalog file for %q in %s", id, f.dir),
		CatalogID: catalogID,
		Err:       fs.ErrNotExist,
	}
}

// Available lists the catalog ids present in the directory.
func (f *FSFetcher) Available() ([]string, error) {
	entries, err := fs.ReadDir(f.fsys, f.dir)
	if err != nil {
		return nil, fmt.Errorf("transport: list %s: %w", f.dir, err)
	}
	seen := make(map[string]bool)
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		for _, ext := range catalogExtensions {
			if strings.HasSuffix(name, ext) {
				id := strings.TrimSuffix(name, ext)
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
				break
			}
		}
	}
	return ids, nil
}
