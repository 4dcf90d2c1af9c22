package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnknownCatalog is returned when no path can be derived for a catalog id.
var ErrUnknownCatalog = errors.New("transport: unknown catalog")

// SchemaFetchError reports a catalog request that did not yield a catalog.
// It is surfaced whole to the caller.
type SchemaFetchError struct {
	Status    int
	Message   string
	CatalogID string
	Err       error
}

func (e *SchemaFetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Status != 0 {
		return fmt.Sprintf("transport: fetch catalog %q: status %d: %s", e.CatalogID, e.Status, msg)
	}
	return fmt.Sprintf("transport: fetch catalog %q: %s", e.CatalogID, msg)
}

func (e *SchemaFetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
