package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	formcards "github.com/goliatone/go-formcards"
	"github.com/goliatone/go-formcards/components/enumoptions"
	"github.com/goliatone/go-formcards/pkg/enums"
	"github.com/goliatone/go-formcards/pkg/logging"
	"github.com/goliatone/go-formcards/pkg/openapi"
	"github.com/goliatone/go-formcards/pkg/schema"
	"github.com/goliatone/go-formcards/pkg/transport"
)

type config struct {
	baseURL    string
	token      string
	catalogDir string
	openAPI    string
	enumsFile  string
	catalogID  string
	cardID     string
	valuesPath string
	output     string
	locale     string
	staleness  time.Duration
	verbose    bool
}

func configFromEnv() config {
	return config{
		baseURL:   os.Getenv("FORMCARDS_BASE_URL"),
		token:     os.Getenv("FORMCARDS_TOKEN"),
		catalogID: "contacts",
		locale:    envOr("FORMCARDS_LOCALE", "en"),
	}
}

func (c *config) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.baseURL, "base-url", c.baseURL, "backend base URL for schema and enum requests (env FORMCARDS_BASE_URL)")
	fs.StringVar(&c.token, "token", c.token, "bearer token (env FORMCARDS_TOKEN)")
	fs.StringVar(&c.catalogDir, "dir", "", "read catalogs from <dir>/<catalog>.json|yaml instead of the backend")
	fs.StringVar(&c.openAPI, "openapi", "", "derive catalogs from an OpenAPI document")
	fs.StringVar(&c.enumsFile, "enums", "", "serve enum sources from a YAML fixture file")
	fs.StringVar(&c.catalogID, "catalog", c.catalogID, "catalog id")
	fs.StringVar(&c.cardID, "card", "", "card id (all cards when empty)")
	fs.StringVar(&c.valuesPath, "values", "", "JSON or YAML file with the bound values")
	fs.StringVar(&c.output, "output", "", "output file (stdout if empty)")
	fs.StringVar(&c.locale, "locale", c.locale, "BCP 47 locale for formatting")
	fs.DurationVar(&c.staleness, "staleness", 0, "schema cache staleness")
	fs.BoolVar(&c.verbose, "v", false, "log transport and enum activity")
}

func (c config) engine(ctx context.Context) (*formcards.Engine, error) {
	options := []formcards.Option{
		formcards.WithBaseURL(c.baseURL),
		formcards.WithToken(c.token),
		formcards.WithLocale(c.locale),
		formcards.WithStaleness(c.staleness),
	}
	if c.verbose {
		options = append(options, formcards.WithLogger(logging.Func(log.Printf)))
	}

	switch {
	case c.openAPI != "":
		data, err := os.ReadFile(c.openAPI)
		if err != nil {
			return nil, fmt.Errorf("read openapi document: %w", err)
		}
		catalogs, err := openapi.ImportCatalogs(ctx, data)
		if err != nil {
			return nil, err
		}
		options = append(options, formcards.WithSchemaFetcher(openapi.NewFetcher(catalogs)))
	case c.catalogDir != "":
		options = append(options, formcards.WithSchemaFetcher(transport.NewFSFetcher(os.DirFS(c.catalogDir), "")))
	}

	if c.enumsFile != "" {
		fetcher, err := fixtureEnums(c.enumsFile)
		if err != nil {
			return nil, err
		}
		options = append(options, formcards.WithEnumFetcher(fetcher))
	}
	return formcards.New(options...)
}

func (c config) title(catalog schema.Catalog) string {
	if c.cardID != "" {
		if card, ok := catalog.FindCard(c.cardID); ok && card.Title != "" {
			return card.Title
		}
	}
	return c.catalogID
}

func fixtureEnums(path string) (enums.Fetcher, error) {
	sources, err := enumoptions.LoadSourcesFS(os.DirFS(filepath.Dir(path)), filepath.Base(path))
	if err != nil {
		return nil, err
	}
	component := enumoptions.New(enumoptions.WithSources(sources))
	return enums.FetcherFunc(func(_ context.Context, source string) ([]schema.EnumOption, error) {
		options, ok := component.Lookup(source)
		if !ok {
			return nil, &enums.EnumFetchError{Source: source, Status: 404}
		}
		return options, nil
	}), nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
