package enumoptions

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formcards/pkg/schema"
)

// Search filters options whose label or value contains query (case
// insensitive) and caps the result at limit. Order is preserved.
func Search(options []schema.EnumOption, query string, limit int) []schema.EnumOption {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]schema.EnumOption, 0, len(options))
	for _, opt := range options {
		if limit > 0 && len(out) >= limit {
			break
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(opt.Label), query) &&
			!strings.Contains(strings.ToLower(fmt.Sprint(opt.Value)), query) {
			continue
		}
		out = append(out, opt)
	}
	return out
}
