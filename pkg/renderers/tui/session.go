// Package tui drives an interactive terminal edit session over a composed
// card. Every answer is applied through the node's change hook, so the
// session only ever sees proposals the caller's onChange would see.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formcards/pkg/compose"
	"github.com/goliatone/go-formcards/pkg/logging"
	"github.com/goliatone/go-formcards/pkg/render"
	"github.com/goliatone/go-formcards/pkg/schema"
	"github.com/goliatone/go-formcards/pkg/values"
)

// Theme captures optional message prefixes.
type Theme struct {
	PromptPrefix string
	InfoPrefix   string
}

// Option configures the Session.
type Option func(*Session)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		s.theme = theme
	}
}

// WithLogger reports enum sources that failed to settle.
func WithLogger(logger logging.Logger) Option {
	return func(s *Session) {
		s.logger = logging.OrNoop(logger)
	}
}

// Session walks the editable fields of a card in schema order.
type Session struct {
	composer *compose.Composer
	driver   PromptDriver
	theme    Theme
	logger   logging.Logger
}

// New builds a Session. A nil composer gets compose.New(nil).
func New(composer *compose.Composer, options ...Option) *Session {
	if composer == nil {
		composer = compose.New(nil)
	}
	s := &Session{
		composer: composer,
		driver:   NewSurveyDriver(),
		logger:   logging.Noop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type step struct {
	node render.Node
	add  bool
}

// Edit prompts for every visible, editable field and returns the updated
// values. The card is recomposed after each answer so visibility and nested
// values always reflect the latest state. root is never mutated.
func (s *Session) Edit(ctx context.Context, card schema.CardSchema, root map[string]any) (map[string]any, error) {
	current := root
	if current == nil {
		current = map[string]any{}
	}
	onChange := func(key string, value any) {
		current = values.ProposeMap(current, key, value)
	}

	if err := s.composer.Settle(ctx, s.composer.Prefetch(ctx, card, current)); err != nil {
		return current, err
	}

	done := make(map[string]bool)
	for {
		if err := ctx.Err(); err != nil {
			return current, err
		}
		composed := s.composer.ComposeCard(ctx, card, current, render.ModeEdit, onChange)
		next, ok := nextStep(composed.Node(), done)
		if !ok {
			return current, nil
		}

		if next.add {
			more, err := s.driver.Ask(ctx, Question{
				Kind:    AskConfirm,
				Message: s.prompt(fmt.Sprintf("Add another %s?", next.node.Label)),
			})
			if err != nil {
				return current, err
			}
			if more.Yes {
				next.node.Add()
				continue
			}
			done[addKey(next.node.Key)] = true
			continue
		}

		done[next.node.Key] = true
		if err := s.ask(ctx, next.node); err != nil {
			return current, err
		}
	}
}

func addKey(key string) string { return key + "#add" }

// nextStep finds the first pending prompt in document order. ARRAY add
// prompts come after the array's items.
func nextStep(node render.Node, done map[string]bool) (step, bool) {
	if node.Kind == render.KindArray {
		for _, child := range node.Children {
			if st, ok := nextStep(child, done); ok {
				return st, true
			}
		}
		if node.Add != nil && !done[addKey(node.Key)] {
			return step{node: node, add: true}, true
		}
		return step{}, false
	}
	if (node.Change != nil || node.ChangeList != nil) && !done[node.Key] {
		return step{node: node}, true
	}
	for _, child := range node.Children {
		if st, ok := nextStep(child, done); ok {
			return st, true
		}
	}
	return step{}, false
}

func (s *Session) prompt(msg string) string {
	return s.theme.PromptPrefix + msg
}

func (s *Session) message(node render.Node) string {
	label := node.Label
	if node.Required {
		label += " *"
	}
	return s.prompt(label)
}

func (s *Session) ask(ctx context.Context, node render.Node) error {
	q, ok := s.question(node)
	if !ok {
		return nil
	}
	if fallback, _ := node.Prop("fallback"); fallback == true {
		if err := s.info(ctx, fmt.Sprintf("Options for %s are unavailable; enter a value manually.", node.Label)); err != nil {
			return err
		}
	}
	answer, err := s.driver.Ask(ctx, q)
	if err != nil {
		return err
	}

	switch q.Kind {
	case AskConfirm:
		node.Change(strconv.FormatBool(answer.Yes))
	case AskChoice:
		if len(answer.Picked) > 0 && answer.Picked[0] >= 0 && answer.Picked[0] < len(node.Options) {
			node.Change(fmt.Sprint(node.Options[answer.Picked[0]].Value))
		}
	case AskChoices:
		raw := make([]string, 0, len(answer.Picked))
		for _, idx := range answer.Picked {
			if idx >= 0 && idx < len(node.Options) {
				raw = append(raw, fmt.Sprint(node.Options[idx].Value))
			}
		}
		node.ChangeList(raw)
	default:
		node.Change(answer.Text)
	}
	return nil
}

// question maps an edit node to the prompt that fills it. Nodes without a
// change handler are skipped.
func (s *Session) question(node render.Node) (Question, bool) {
	q := Question{Kind: AskText, Message: s.message(node), Help: node.HelpText}

	switch node.Kind {
	case render.KindCheckbox:
		q.Kind = AskConfirm
		q.Yes, _ = node.Value.(bool)

	case render.KindSelect:
		q.Kind = AskChoice
		q.Options = optionLabels(node)
		q.Selected = selectedIndices(node)

	case render.KindMultiselect:
		q.Kind = AskChoices
		q.Options = optionLabels(node)
		q.Selected = selectedIndices(node)

	case render.KindNumberInput, render.KindCurrencyInput:
		locale := s.composer.Dispatcher().Locale()
		parse := locale.ParseNumber
		if node.Kind == render.KindCurrencyInput {
			parse = locale.ParseCurrency
		}
		q.Default = node.Text
		q.Validate = func(raw string) error {
			if strings.TrimSpace(raw) == "" {
				return nil
			}
			if _, ok := parse(raw); !ok {
				return fmt.Errorf("%w: %q is not a number", ErrInvalidInput, raw)
			}
			return nil
		}

	case render.KindInput:
		q.Default, _ = node.Value.(string)
		if inputType, _ := node.Prop("inputType"); inputType == "textarea" {
			q.Kind = AskMultiline
		}

	case render.KindDateInput, render.KindDateTimeInput:
		q.Default, _ = node.Value.(string)
		if q.Help == "" {
			q.Help = "YYYY-MM-DD"
			if node.Kind == render.KindDateTimeInput {
				q.Help = "YYYY-MM-DDTHH:MM"
			}
		}

	default:
		if node.Change == nil {
			return Question{}, false
		}
		q.Default = node.Text
	}
	return q, true
}

// optionLabels returns one distinct label per option; duplicate labels get
// their value appended.
func optionLabels(node render.Node) []string {
	labels := make([]string, 0, len(node.Options))
	seen := make(map[string]bool, len(node.Options))
	for _, opt := range node.Options {
		label := opt.Label
		if strings.TrimSpace(label) == "" {
			label = fmt.Sprint(opt.Value)
		}
		if seen[label] {
			label = fmt.Sprintf("%s (%v)", label, opt.Value)
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}

// selectedIndices reports which options match the node's current value,
// a single value for selects or a list for multiselects.
func selectedIndices(node render.Node) []int {
	current, ok := node.Value.([]any)
	if !ok {
		if node.Value == nil {
			return nil
		}
		current = []any{node.Value}
	}
	selected := make(map[string]bool, len(current))
	for _, v := range current {
		selected[fmt.Sprint(v)] = true
	}
	var out []int
	for i, opt := range node.Options {
		if selected[fmt.Sprint(opt.Value)] {
			out = append(out, i)
		}
	}
	return out
}

func (s *Session) info(ctx context.Context, msg string) error {
	return s.driver.Info(ctx, s.theme.InfoPrefix+msg)
}

// Show prints the read-only rendering of card, one "Label: value" line per
// field, nested members indented.
func (s *Session) Show(ctx context.Context, card schema.CardSchema, root any) error {
	if err := s.composer.Settle(ctx, s.composer.Prefetch(ctx, card, root)); err != nil {
		return err
	}
	composed := s.composer.ComposeCard(ctx, card, root, render.ModeReadOnly, nil)
	for _, line := range Lines(composed) {
		if err := s.info(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

// Lines flattens a composed card into indented text lines.
func Lines(card compose.CardNode) []string {
	lines := []string{"# " + card.Title}
	for _, section := range card.Sections {
		if section.Title != "" {
			lines = append(lines, "## "+section.Title)
		}
		for _, field := range section.Fields {
			lines = appendLines(lines, field, 0)
		}
	}
	return lines
}

func appendLines(lines []string, node render.Node, depth int) []string {
	indent := strings.Repeat("  ", depth)
	switch node.Kind {
	case render.KindGroup, render.KindArray:
		lines = append(lines, indent+node.Label+":")
		for _, child := range node.Children {
			lines = appendLines(lines, child, depth+1)
		}
	case render.KindItem:
		for _, child := range node.Children {
			if child.Kind == render.KindGroup {
				lines = append(lines, indent+"-")
				for _, member := range child.Children {
					lines = appendLines(lines, member, depth+1)
				}
				continue
			}
			lines = append(lines, indent+"- "+child.Text)
		}
	case render.KindEmpty:
		lines = append(lines, indent+node.Text)
	default:
		lines = append(lines, indent+node.Label+": "+node.Text)
	}
	return lines
}
