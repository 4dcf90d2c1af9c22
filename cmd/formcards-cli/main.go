package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	formcards "github.com/goliatone/go-formcards"
	"github.com/goliatone/go-formcards/pkg/renderers/tui"
	"github.com/goliatone/go-formcards/pkg/schema"
)

const usage = `usage: formcards-cli [flags] <command>

commands:
  show      print the card(s) bound to -values
  edit      edit one card interactively and write the new values
  validate  check the catalog for schema issues
  html      render the card(s) to an HTML page
`

func main() {
	cfg := configFromEnv()
	cfg.bind(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, flag.Arg(0)); err != nil {
		log.Fatalf("formcards-cli: %v", err)
	}
}

func run(ctx context.Context, cfg config, command string) error {
	engine, err := cfg.engine(ctx)
	if err != nil {
		return err
	}
	catalog, err := engine.Catalog(ctx, cfg.catalogID)
	if err != nil {
		return fmt.Errorf("load catalog %q: %w", cfg.catalogID, err)
	}

	if command == "validate" {
		return validate(catalog)
	}

	root, err := readValues(cfg.valuesPath)
	if err != nil {
		return err
	}

	switch command {
	case "show":
		session := tui.New(engine.Composer())
		for _, card := range cardsFor(catalog, cfg.cardID) {
			if err := session.Show(ctx, card, root); err != nil {
				return err
			}
		}
		return nil
	case "edit":
		if cfg.cardID == "" {
			return errors.New("edit needs -card")
		}
		card, err := engine.Card(ctx, cfg.catalogID, cfg.cardID)
		if err != nil {
			return err
		}
		updated, err := tui.New(engine.Composer()).Edit(ctx, card, root)
		if err != nil && !errors.Is(err, tui.ErrAborted) {
			return err
		}
		if errors.Is(err, tui.ErrAborted) {
			log.Printf("edit aborted, writing values collected so far")
		}
		return writeValues(cfg.output, cfg.valuesPath, updated)
	case "html":
		page, err := engine.RenderHTML(ctx, cfg.title(catalog), formcards.Request{
			CatalogID: cfg.catalogID,
			CardID:    cfg.cardID,
			Values:    root,
			Settle:    true,
		})
		if err != nil {
			return err
		}
		return writeOutput(cfg.output, page)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func validate(catalog schema.Catalog) error {
	issues := schema.Validate(catalog)
	for _, issue := range issues {
		fmt.Println(issue.String())
	}
	if len(issues) > 0 {
		return fmt.Errorf("%d schema issue(s)", len(issues))
	}
	fmt.Println("catalog ok")
	return nil
}

func cardsFor(catalog schema.Catalog, cardID string) schema.Catalog {
	if cardID == "" {
		return schema.SortCards(catalog)
	}
	if card, ok := catalog.FindCard(cardID); ok {
		return schema.Catalog{card}
	}
	return nil
}
