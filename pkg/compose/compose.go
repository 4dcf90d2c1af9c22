// Package compose assembles one CardSchema into a CardNode: sections then
// fields in schema order, visibility applied before dispatch.
package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-formcards/pkg/enums"
	"github.com/goliatone/go-formcards/pkg/logging"
	"github.com/goliatone/go-formcards/pkg/render"
	"github.com/goliatone/go-formcards/pkg/schema"
	"github.com/goliatone/go-formcards/pkg/values"
	"github.com/goliatone/go-formcards/pkg/visibility"
)

// CollapseState exposes caller-owned open/closed state. ok=false means the
// caller has no opinion and the schema default applies. An empty sectionID
// addresses the card itself.
type CollapseState interface {
	Open(cardID, sectionID string) (open bool, ok bool)
}

// CollapseMap is a CollapseState keyed by "cardID/sectionID" (or "cardID"
// for the card itself).
type CollapseMap map[string]bool

// Open implements CollapseState.
func (m CollapseMap) Open(cardID, sectionID string) (bool, bool) {
	key := cardID
	if sectionID != "" {
		key = cardID + "/" + sectionID
	}
	open, ok := m[key]
	return open, ok
}

// SectionNode is one composed section.
type SectionNode struct {
	SectionID   string        `json:"sectionId"`
	Title       string        `json:"title,omitempty"`
	Subtitle    string        `json:"subtitle,omitempty"`
	Collapsible bool          `json:"collapsible,omitempty"`
	Open        bool          `json:"open"`
	Fields      []render.Node `json:"fields"`
}

// CardNode is one composed card. A card whose fields are all hidden is still
// returned; suppressing it is up to the caller.
type CardNode struct {
	CardID   string        `json:"cardId"`
	Title    string        `json:"title,omitempty"`
	Subtitle string        `json:"subtitle,omitempty"`
	Icon     string        `json:"icon,omitempty"`
	Order    int           `json:"order"`
	Open     bool          `json:"open"`
	Mode     render.Mode   `json:"mode"`
	Sections []SectionNode `json:"sections"`
}

// FieldCount counts rendered top-level fields across sections.
func (c CardNode) FieldCount() int {
	total := 0
	for _, section := range c.Sections {
		total += len(section.Fields)
	}
	return total
}

// Empty reports whether no field survived visibility.
func (c CardNode) Empty() bool {
	return c.FieldCount() == 0
}

// Node converts the card into a render tree rooted at a KindCard node.
func (c CardNode) Node() render.Node {
	card := render.Node{
		Kind:  render.KindCard,
		Key:   c.CardID,
		Label: c.Title,
		Text:  c.Subtitle,
		Props: map[string]any{"icon": c.Icon, "order": c.Order, "open": c.Open, "mode": string(c.Mode)},
	}
	for _, section := range c.Sections {
		card.Children = append(card.Children, render.Node{
			Kind:     render.KindSection,
			Key:      c.CardID + "/" + section.SectionID,
			Label:    section.Title,
			Text:     section.Subtitle,
			Props:    map[string]any{"collapsible": section.Collapsible, "open": section.Open},
			Children: section.Fields,
		})
	}
	return card
}

// EnumPrimer starts and awaits enum fetches. *enums.Provider satisfies it.
type EnumPrimer interface {
	Lookup(ctx context.Context, source string) enums.State
	Wait(ctx context.Context, source string) (enums.State, error)
}

// Option configures the Composer.
type Option func(*Composer)

// WithEnumPrimer enables Prefetch.
func WithEnumPrimer(primer EnumPrimer) Option {
	return func(c *Composer) {
		c.primer = primer
	}
}

// WithLogger reports visibility rule failures.
func WithLogger(logger logging.Logger) Option {
	return func(c *Composer) {
		c.logger = logging.OrNoop(logger)
	}
}

// Composer turns cards into CardNodes using a render.Dispatcher.
type Composer struct {
	dispatcher *render.Dispatcher
	primer     EnumPrimer
	logger     logging.Logger
}

// New builds a Composer. A nil dispatcher gets render.New().
func New(dispatcher *render.Dispatcher, options ...Option) *Composer {
	if dispatcher == nil {
		dispatcher = render.New()
	}
	c := &Composer{dispatcher: dispatcher, logger: logging.Noop()}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Dispatcher returns the dispatcher used for fields.
func (c *Composer) Dispatcher() *render.Dispatcher { return c.dispatcher }

// Request describes one card composition.
type Request struct {
	Card     schema.CardSchema
	Root     any
	Mode     render.Mode
	OnChange render.OnChange
	Collapse CollapseState
}

// ComposeCard composes card against root.
func (c *Composer) ComposeCard(ctx context.Context, card schema.CardSchema, root any, mode render.Mode, onChange render.OnChange) CardNode {
	return c.Compose(ctx, Request{Card: card, Root: root, Mode: mode, OnChange: onChange})
}

// Compose is ComposeCard with caller-owned collapse state.
func (c *Composer) Compose(ctx context.Context, req Request) CardNode {
	card := req.Card
	mode := req.Mode
	if mode != render.ModeEdit {
		mode = render.ModeReadOnly
	}
	out := CardNode{
		CardID:   card.CardID,
		Title:    card.Title,
		Subtitle: card.Subtitle,
		Icon:     card.Icon,
		Order:    card.Order,
		Open:     resolveOpen(req.Collapse, card.CardID, "", card.DefaultCollapsed),
		Mode:     mode,
		Sections: make([]SectionNode, 0, len(card.Sections)),
	}

	for _, section := range card.Sections {
		node := SectionNode{
			SectionID:   section.SectionID,
			Title:       section.Title,
			Subtitle:    section.Subtitle,
			Collapsible: section.Collapsible,
			Open:        true,
			Fields:      []render.Node{},
		}
		if section.Collapsible {
			node.Open = resolveOpen(req.Collapse, card.CardID, section.SectionID, section.DefaultCollapsed)
		}
		for _, field := range section.Fields {
			if !c.visible(field, req.Root) {
				continue
			}
			value, _ := values.Resolve(req.Root, field.FieldKey)
			node.Fields = append(node.Fields, c.dispatcher.RenderRequest(ctx, render.Request{
				Field:    field,
				Value:    value,
				Mode:     mode,
				OnChange: req.OnChange,
				Path:     field.FieldKey,
				Scope:    values.Scopes{req.Root},
			}))
		}
		out.Sections = append(out.Sections, node)
	}
	return out
}

func resolveOpen(state CollapseState, cardID, sectionID string, defaultCollapsed bool) bool {
	if state != nil {
		if open, ok := state.Open(cardID, sectionID); ok {
			return open
		}
	}
	return !defaultCollapsed
}

func (c *Composer) visible(field schema.FieldDefinition, scope any) bool {
	ok, err := visibility.Check(field, scope, c.dispatcher.Evaluator())
	if err != nil {
		c.logger.Printf("compose: %v", err)
	}
	return ok
}

// ComposeCatalog composes every card ordered by order then cardId.
func (c *Composer) ComposeCatalog(ctx context.Context, catalog schema.Catalog, root any, mode render.Mode, onChange render.OnChange) []CardNode {
	sorted := schema.SortCards(catalog)
	out := make([]CardNode, 0, len(sorted))
	for _, card := range sorted {
		out = append(out, c.ComposeCard(ctx, card, root, mode, onChange))
	}
	return out
}

// Prefetch starts fetches for the enum sources of the card's visible fields
// (including visible GROUP members and ARRAY items) and returns the sources
// in first-seen order. It does not wait.
func (c *Composer) Prefetch(ctx context.Context, card schema.CardSchema, root any) []string {
	seen := make(map[string]bool)
	var sources []string
	var visit func(field schema.FieldDefinition, value any, scope values.Scopes)
	visit = func(field schema.FieldDefinition, value any, scope values.Scopes) {
		switch field.Type.Normalize() {
		case schema.FieldTypeEnum, schema.FieldTypeMultiselect:
			source := strings.TrimSpace(field.EnumSource)
			if source != "" && len(field.Options) == 0 && !seen[source] {
				seen[source] = true
				sources = append(sources, source)
			}
		case schema.FieldTypeGroup:
			inner := scope.Within(value)
			for _, child := range field.Fields {
				if !c.visible(child, inner) {
					continue
				}
				childValue, _ := values.Resolve(value, child.FieldKey)
				visit(child, childValue, inner)
			}
		case schema.FieldTypeArray:
			if field.ItemSchema == nil {
				return
			}
			list, ok := values.List(value)
			if !ok || len(list) == 0 {
				// Still prime the item's sources so the first added row has options.
				visit(*field.ItemSchema, nil, scope)
				return
			}
			for _, item := range list {
				visit(*field.ItemSchema, item, scope)
			}
		}
	}

	rootScope := values.Scopes{root}
	for _, section := range card.Sections {
		for _, field := range section.Fields {
			if !c.visible(field, root) {
				continue
			}
			value, _ := values.Resolve(root, field.FieldKey)
			visit(field, value, rootScope)
		}
	}

	if c.primer != nil {
		for _, source := range sources {
			c.primer.Lookup(ctx, source)
		}
	}
	return sources
}

// Settle waits for every source to settle. Failed sources are not errors;
// only ctx expiry is.
func (c *Composer) Settle(ctx context.Context, sources []string) error {
	if c.primer == nil {
		return nil
	}
	for _, source := range sources {
		if _, err := c.primer.Wait(ctx, source); err != nil {
			return fmt.Errorf("compose: settle enum sources: %w", err)
		}
	}
	return nil
}
