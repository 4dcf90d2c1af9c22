// Package formcards wires the schema store, enum provider, field dispatcher
// and card composer into a single Engine. Callers that need finer control can
// use the pkg/ packages directly; the Engine mirrors how they are meant to be
// assembled.
package formcards

import (
	"context"
	"errors"
	"fmt"
	"time"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formcards/pkg/auth"
	"github.com/goliatone/go-formcards/pkg/compose"
	"github.com/goliatone/go-formcards/pkg/enums"
	"github.com/goliatone/go-formcards/pkg/logging"
	"github.com/goliatone/go-formcards/pkg/render"
	"github.com/goliatone/go-formcards/pkg/renderers/html"
	"github.com/goliatone/go-formcards/pkg/schema"
	"github.com/goliatone/go-formcards/pkg/transport"
	"github.com/goliatone/go-formcards/pkg/visibility"
	"github.com/goliatone/go-formcards/pkg/visibility/rules"
)

// ErrCardNotFound is returned when a catalog has no card with the requested id.
var ErrCardNotFound = errors.New("formcards: card not found")

// Mode re-exports render.Mode so callers do not need the render import for
// the common case.
type Mode = render.Mode

const (
	ModeReadOnly = render.ModeReadOnly
	ModeEdit     = render.ModeEdit
)

type config struct {
	baseURL       string
	headers       auth.HeaderProvider
	schemaFetcher transport.Fetcher
	enumFetcher   enums.Fetcher
	catalogPaths  map[string]string
	staleness     time.Duration
	enumTTL       time.Duration
	locale        *render.Locale
	translator    render.Translator
	evaluator     visibility.Evaluator
	theme         *theme.RendererConfig
	htmlOptions   []html.Option
	logger        logging.Logger
}

// Option configures the Engine.
type Option func(*config)

// WithBaseURL points both the schema client and the enum fetcher at the
// backend unless a fetcher is supplied explicitly.
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithToken sends a bearer token on every schema and enum request.
func WithToken(token string) Option {
	return func(c *config) {
		if token != "" {
			c.headers = auth.Bearer(token)
		}
	}
}

// WithHeaderProvider injects request headers from the host application.
func WithHeaderProvider(provider auth.HeaderProvider) Option {
	return func(c *config) {
		c.headers = provider
	}
}

// WithSchemaFetcher replaces the HTTP schema client, e.g. with a
// transport.FSFetcher or an openapi.Fetcher.
func WithSchemaFetcher(fetcher transport.Fetcher) Option {
	return func(c *config) {
		c.schemaFetcher = fetcher
	}
}

// WithEnumFetcher replaces the HTTP enum fetcher.
func WithEnumFetcher(fetcher enums.Fetcher) Option {
	return func(c *config) {
		c.enumFetcher = fetcher
	}
}

// WithCatalogPaths overrides the schema endpoint per catalog id.
func WithCatalogPaths(paths map[string]string) Option {
	return func(c *config) {
		c.catalogPaths = paths
	}
}

func WithStaleness(d time.Duration) Option {
	return func(c *config) {
		c.staleness = d
	}
}

func WithEnumTTL(d time.Duration) Option {
	return func(c *config) {
		c.enumTTL = d
	}
}

// WithLocale sets the locale used for formatting and parsing. Unknown tags
// fall back to English.
func WithLocale(tag string) Option {
	return func(c *config) {
		if tag != "" {
			c.locale = render.ParseLocale(tag)
		}
	}
}

func WithTranslator(t render.Translator) Option {
	return func(c *config) {
		c.translator = t
	}
}

// WithEvaluator replaces the expr-based visibleWhen evaluator.
func WithEvaluator(evaluator visibility.Evaluator) Option {
	return func(c *config) {
		c.evaluator = evaluator
	}
}

// WithTheme forwards a resolved go-theme configuration to the HTML renderer.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(c *config) {
		c.theme = cfg
	}
}

// WithHTMLOptions forwards options to the HTML renderer.
func WithHTMLOptions(options ...html.Option) Option {
	return func(c *config) {
		c.htmlOptions = append(c.htmlOptions, options...)
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Engine is the assembled pipeline.
type Engine struct {
	store      *transport.Store
	enums      *enums.Provider
	dispatcher *render.Dispatcher
	composer   *compose.Composer
	html       *html.Renderer
	logger     logging.Logger
}

// New assembles an Engine. Either WithBaseURL or WithSchemaFetcher is
// required.
func New(options ...Option) (*Engine, error) {
	cfg := config{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	logger := logging.OrNoop(cfg.logger)

	schemaFetcher := cfg.schemaFetcher
	if schemaFetcher == nil {
		if cfg.baseURL == "" {
			return nil, fmt.Errorf("formcards: a base URL or schema fetcher is required")
		}
		schemaFetcher = transport.NewClient(cfg.baseURL,
			transport.WithHeaderProvider(cfg.headers),
			transport.WithCatalogPaths(cfg.catalogPaths),
			transport.WithClientLogger(logger),
		)
	}

	enumFetcher := cfg.enumFetcher
	if enumFetcher == nil {
		enumFetcher = enums.NewHTTPFetcher(cfg.baseURL, enums.WithHeaderProvider(cfg.headers))
	}
	enumOptions := []enums.Option{enums.WithLogger(logger)}
	if cfg.enumTTL > 0 {
		enumOptions = append(enumOptions, enums.WithTTL(cfg.enumTTL))
	}
	provider := enums.NewProvider(enumFetcher, enumOptions...)

	// A catalog refresh can change which enum sources fields point at, so the
	// option cache is dropped with it.
	store := transport.NewStore(schemaFetcher,
		transport.WithStaleness(cfg.staleness),
		transport.WithStoreLogger(logger),
		transport.WithInvalidationHook(func(string) { provider.InvalidateAll() }),
	)

	evaluator := cfg.evaluator
	if evaluator == nil {
		evaluator = rules.New()
	}
	dispatcherOptions := []render.Option{
		render.WithEnumResolver(provider),
		render.WithEvaluator(evaluator),
		render.WithLogger(logger),
	}
	if cfg.locale != nil {
		dispatcherOptions = append(dispatcherOptions, render.WithLocale(cfg.locale))
	}
	if cfg.translator != nil {
		dispatcherOptions = append(dispatcherOptions, render.WithTranslator(cfg.translator))
	}
	dispatcher := render.New(dispatcherOptions...)
	composer := compose.New(dispatcher, compose.WithEnumPrimer(provider), compose.WithLogger(logger))

	htmlOptions := append([]html.Option{}, cfg.htmlOptions...)
	if cfg.theme != nil {
		htmlOptions = append(htmlOptions, html.WithTheme(cfg.theme))
	}
	htmlRenderer, err := html.New(htmlOptions...)
	if err != nil {
		return nil, fmt.Errorf("formcards: html renderer: %w", err)
	}

	return &Engine{
		store:      store,
		enums:      provider,
		dispatcher: dispatcher,
		composer:   composer,
		html:       htmlRenderer,
		logger:     logger,
	}, nil
}

func (e *Engine) Store() *transport.Store        { return e.store }
func (e *Engine) Enums() *enums.Provider         { return e.enums }
func (e *Engine) Dispatcher() *render.Dispatcher { return e.dispatcher }
func (e *Engine) Composer() *compose.Composer    { return e.composer }
func (e *Engine) HTML() *html.Renderer           { return e.html }

// Catalog returns the cached catalog, fetching it when missing or stale.
func (e *Engine) Catalog(ctx context.Context, catalogID string) (schema.Catalog, error) {
	return e.store.Catalog(ctx, catalogID)
}

// Card returns one card of a catalog.
func (e *Engine) Card(ctx context.Context, catalogID, cardID string) (schema.CardSchema, error) {
	card, ok, err := e.store.FindCard(ctx, catalogID, cardID)
	if err != nil {
		return schema.CardSchema{}, err
	}
	if !ok {
		return schema.CardSchema{}, fmt.Errorf("%w: %s/%s", ErrCardNotFound, catalogID, cardID)
	}
	return card, nil
}

// Refresh drops the cached catalog and its enum options and refetches.
func (e *Engine) Refresh(ctx context.Context, catalogID string) (schema.Catalog, error) {
	e.store.Invalidate(catalogID)
	return e.store.Catalog(ctx, catalogID)
}

// Request describes one composition.
type Request struct {
	CatalogID string
	CardID    string
	Values    any
	Mode      Mode
	OnChange  render.OnChange
	Collapse  compose.CollapseState
	// Settle waits for the enum sources of visible fields before composing,
	// so server rendered output shows labels instead of loading markers.
	Settle bool
}

// Compose renders one card, or every card of the catalog when CardID is
// empty.
func (e *Engine) Compose(ctx context.Context, req Request) ([]compose.CardNode, error) {
	catalog, err := e.store.Catalog(ctx, req.CatalogID)
	if err != nil {
		return nil, err
	}
	cards := schema.SortCards(catalog)
	if req.CardID != "" {
		card, ok := catalog.FindCard(req.CardID)
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", ErrCardNotFound, req.CatalogID, req.CardID)
		}
		cards = schema.Catalog{card}
	}

	if req.Settle {
		var sources []string
		for _, card := range cards {
			sources = append(sources, e.composer.Prefetch(ctx, card, req.Values)...)
		}
		if err := e.composer.Settle(ctx, sources); err != nil {
			e.logger.Printf("formcards: settle enum sources: %v", err)
		}
	}

	out := make([]compose.CardNode, 0, len(cards))
	for _, card := range cards {
		out = append(out, e.composer.Compose(ctx, compose.Request{
			Card:     card,
			Root:     req.Values,
			Mode:     req.Mode,
			OnChange: req.OnChange,
			Collapse: req.Collapse,
		}))
	}
	return out, nil
}

// RenderHTML composes the request and renders a full HTML page.
func (e *Engine) RenderHTML(ctx context.Context, title string, req Request) ([]byte, error) {
	cards, err := e.Compose(ctx, req)
	if err != nil {
		return nil, err
	}
	return e.html.RenderPage(ctx, title, cards)
}
