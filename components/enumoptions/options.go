package enumoptions

import (
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-formcards/pkg/schema"
)

type GuardFunc func(r *http.Request) error

type Options struct {
	RoutePath   string
	SearchParam string
	LimitParam  string
	MaxLimit    int
	Guard       GuardFunc

	// Sources maps a normalised source name to its options.
	Sources map[string][]schema.EnumOption
	// Latency delays every response.
	Latency time.Duration
	// Failing sources answer 503.
	Failing map[string]bool
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:   "/enums",
		SearchParam: "q",
		LimitParam:  "limit",
		MaxLimit:    500,
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.RoutePath == "" {
		opts.RoutePath = "/enums"
	}
	if opts.SearchParam == "" {
		opts.SearchParam = "q"
	}
	if opts.LimitParam == "" {
		opts.LimitParam = "limit"
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 500
	}
	sources := make(map[string][]schema.EnumOption, len(opts.Sources))
	for name, list := range opts.Sources {
		sources[SourceName(name, opts.RoutePath)] = append([]schema.EnumOption{}, list...)
	}
	opts.Sources = sources
	failing := make(map[string]bool, len(opts.Failing))
	for name, fail := range opts.Failing {
		failing[SourceName(name, opts.RoutePath)] = fail
	}
	opts.Failing = failing
	return opts
}

// SourceName normalises an enumSource ("/enums/contact-status",
// "enums/contact-status" or "contact-status") to the name served under
// routePath.
func SourceName(source, routePath string) string {
	name := strings.Trim(strings.TrimSpace(source), "/")
	prefix := strings.Trim(strings.TrimSpace(routePath), "/")
	if prefix != "" {
		if name == prefix {
			return ""
		}
		name = strings.TrimPrefix(name, prefix+"/")
	}
	return name
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		o.RoutePath = path
	}
}

func WithSearchParam(name string) OptionFn {
	return func(o *Options) {
		o.SearchParam = name
	}
}

func WithLimitParam(name string) OptionFn {
	return func(o *Options) {
		o.LimitParam = name
	}
}

func WithMaxLimit(limit int) OptionFn {
	return func(o *Options) {
		o.MaxLimit = limit
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		o.Guard = guard
	}
}

// WithSource registers one option list.
func WithSource(source string, options []schema.EnumOption) OptionFn {
	return func(o *Options) {
		if o.Sources == nil {
			o.Sources = make(map[string][]schema.EnumOption)
		}
		o.Sources[source] = options
	}
}

// WithSources registers several option lists.
func WithSources(sources map[string][]schema.EnumOption) OptionFn {
	return func(o *Options) {
		for source, options := range sources {
			WithSource(source, options)(o)
		}
	}
}

func WithLatency(d time.Duration) OptionFn {
	return func(o *Options) {
		o.Latency = d
	}
}

// WithFailing makes the listed sources answer 503.
func WithFailing(sources ...string) OptionFn {
	return func(o *Options) {
		if o.Failing == nil {
			o.Failing = make(map[string]bool)
		}
		for _, source := range sources {
			o.Failing[source] = true
		}
	}
}

func clampLimit(limit int, opts Options) int {
	if limit <= 0 || limit > opts.MaxLimit {
		return opts.MaxLimit
	}
	return limit
}
