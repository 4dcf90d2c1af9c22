package enumoptions

import (
	"net/http"

	"github.com/goliatone/go-formcards/pkg/schema"
)

// Component bundles the handler, its configuration and routing helpers.
type Component struct {
	opts Options
}

func New(fns ...OptionFn) *Component {
	return &Component{opts: NewOptions(fns...)}
}

// Options returns a copy of the component configuration.
func (c *Component) Options() Options {
	if c == nil {
		return DefaultOptions()
	}
	return NewOptions(func(o *Options) { *o = c.opts })
}

// Sources lists the served source names.
func (c *Component) Sources() []string {
	if c == nil {
		return nil
	}
	return sortedKeys(c.opts.Sources)
}

// Lookup returns the options behind source, accepting the same spellings
// as the handler.
func (c *Component) Lookup(source string) ([]schema.EnumOption, bool) {
	if c == nil {
		return nil, false
	}
	options, ok := c.opts.Sources[SourceName(source, c.opts.RoutePath)]
	if !ok {
		return nil, false
	}
	return append([]schema.EnumOption{}, options...), true
}

func (c *Component) Handler() http.Handler {
	if c == nil {
		return Handler()
	}
	return HandlerWithOptions(c.opts)
}

func (c *Component) RegisterRoutes(mux Mux, basePath string) (string, error) {
	if c == nil {
		return RegisterRoutes(mux, basePath)
	}
	return RegisterRoutesWithOptions(mux, basePath, c.opts)
}
