package enums

import (
	"fmt"
	"net/http"
)

// EnumFetchError reports a failed option fetch. It stays scoped to the field
// that requested the source.
type EnumFetchError struct {
	Source string
	Status int
	Err    error
}

func (e *EnumFetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("enums: fetch %q: %d %s: %v", e.Source, e.Status, http.StatusText(e.Status), e.Err)
	case e.Status != 0:
		return fmt.Sprintf("enums: fetch %q: %d %s", e.Source, e.Status, http.StatusText(e.Status))
	case e.Err != nil:
		return fmt.Sprintf("enums: fetch %q: %v", e.Source, e.Err)
	default:
		return fmt.Sprintf("enums: fetch %q failed", e.Source)
	}
}

func (e *EnumFetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
