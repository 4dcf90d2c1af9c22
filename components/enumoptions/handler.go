package enumoptions

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/goliatone/go-formcards/pkg/schema"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type wireOption struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Source string `json:"source,omitempty"`
}

// Handler is an alias of NewHandler.
func Handler(fns ...OptionFn) http.Handler {
	return NewHandler(fns...)
}

func NewHandler(fns ...OptionFn) http.Handler {
	return HandlerWithOptions(NewOptions(fns...))
}

// HandlerWithOptions builds a chi router that answers GET and HEAD for
// /{source...}. The router is meant to be mounted at Options.RoutePath.
func HandlerWithOptions(opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })

	r := chi.NewRouter()
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})
	serve := func(w http.ResponseWriter, r *http.Request) {
		serveSource(w, r, opts, SourceName(chi.URLParam(r, "*"), opts.RoutePath))
	}
	r.Get("/*", serve)
	r.Head("/*", serve)
	return r
}

func serveSource(w http.ResponseWriter, r *http.Request, opts Options, source string) {
	if opts.Guard != nil {
		if err := opts.Guard(r); err != nil {
			writeGuardError(w, err)
			return
		}
	}

	if opts.Latency > 0 {
		timer := time.NewTimer(opts.Latency)
		select {
		case <-r.Context().Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	if opts.Failing[source] {
		writeJSON(w, r, http.StatusServiceUnavailable, errorResponse{Error: "source unavailable", Source: source})
		return
	}

	options, ok := opts.Sources[source]
	if !ok {
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "unknown enum source", Source: source})
		return
	}

	query := r.URL.Query().Get(opts.SearchParam)
	limit := clampLimit(parseInt(r.URL.Query().Get(opts.LimitParam)), opts)
	writeJSON(w, r, http.StatusOK, toWire(Search(options, query, limit)))
}

func toWire(options []schema.EnumOption) []wireOption {
	out := make([]wireOption, 0, len(options))
	for _, opt := range options {
		out = append(out, wireOption{Value: opt.Value, Label: opt.Label})
	}
	return out
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(payload)
}

func writeGuardError(w http.ResponseWriter, err error) {
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		if status := httpErr.StatusCode(); status > 0 {
			code = status
		}
	}
	http.Error(w, http.StatusText(code), code)
}

func parseInt(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
