package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	formcards "github.com/goliatone/go-formcards"
	"github.com/goliatone/go-formcards/components/enumoptions"
	"github.com/goliatone/go-formcards/pkg/logging"
	"github.com/goliatone/go-formcards/pkg/openapi"
	"github.com/goliatone/go-formcards/pkg/transport"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	baseURL := flag.String("base-url", os.Getenv("FORMCARDS_BASE_URL"), "backend base URL (env FORMCARDS_BASE_URL)")
	token := flag.String("token", os.Getenv("FORMCARDS_TOKEN"), "bearer token (env FORMCARDS_TOKEN)")
	dir := flag.String("dir", "", "serve catalogs from <dir>/<catalog>.json|yaml")
	spec := flag.String("openapi", "", "derive catalogs from an OpenAPI document")
	catalogID := flag.String("catalog", "contacts", "catalog id")
	valuesPath := flag.String("values", "", "JSON or YAML file seeding each session's values")
	enumsFile := flag.String("enums", "", "YAML enum fixtures served under /enums")
	latency := flag.Duration("enum-latency", 0, "artificial latency for fixture enum responses")
	failing := flag.String("enum-fail", "", "comma separated fixture sources that answer 503")
	locale := flag.String("locale", "en", "BCP 47 locale for formatting")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	options := []formcards.Option{
		formcards.WithBaseURL(*baseURL),
		formcards.WithToken(*token),
		formcards.WithLocale(*locale),
		formcards.WithLogger(logging.Func(log.Printf)),
	}
	switch {
	case *spec != "":
		data, err := os.ReadFile(*spec)
		if err != nil {
			log.Fatalf("read openapi document: %v", err)
		}
		catalogs, err := openapi.ImportCatalogs(ctx, data)
		if err != nil {
			log.Fatalf("import openapi: %v", err)
		}
		options = append(options, formcards.WithSchemaFetcher(openapi.NewFetcher(catalogs)))
	case *dir != "":
		options = append(options, formcards.WithSchemaFetcher(transport.NewFSFetcher(os.DirFS(*dir), "")))
	}

	var fixtures *enumoptions.Component
	if *enumsFile != "" {
		sources, err := enumoptions.LoadSourcesFS(os.DirFS(filepath.Dir(*enumsFile)), filepath.Base(*enumsFile))
		if err != nil {
			log.Fatalf("load enum fixtures: %v", err)
		}
		fixtures = enumoptions.New(
			enumoptions.WithSources(sources),
			enumoptions.WithLatency(*latency),
			enumoptions.WithFailing(splitList(*failing)...),
		)
		// Enum requests loop back to this server.
		options = append(options, formcards.WithEnumFetcher(selfEnumFetcher(*addr)))
	}

	engine, err := formcards.New(options...)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	seed, err := readSeed(*valuesPath)
	if err != nil {
		log.Fatalf("values: %v", err)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newServer(engine, *catalogID, seed, fixtures).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("formcards preview listening on %s (catalog %q)", *addr, *catalogID)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("serve: %v", err)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
