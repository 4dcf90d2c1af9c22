// Package render maps each field type to a read-only or editable Node,
// recursing through GROUP and ARRAY fields. Output adapters (HTML, terminal)
// consume the resulting tree.
package render

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/goliatone/go-formcards/pkg/enums"
	"github.com/goliatone/go-formcards/pkg/logging"
	"github.com/goliatone/go-formcards/pkg/schema"
	"github.com/goliatone/go-formcards/pkg/values"
	"github.com/goliatone/go-formcards/pkg/visibility"
)

// DefaultSentinel is shown for empty or unreadable values.
const DefaultSentinel = "—"

// Translation keys looked up through the optional Translator.
const (
	KeyBooleanYes = "formcards.boolean.yes"
	KeyBooleanNo  = "formcards.boolean.no"
	KeyArrayEmpty = "formcards.array.empty"
	KeyLoading    = "formcards.enum.loading"
)

// EnumResolver returns the option state of an ENUM or MULTISELECT field
// without blocking. *enums.Provider satisfies it.
type EnumResolver interface {
	Options(ctx context.Context, field schema.FieldDefinition) enums.State
}

// Translator resolves UI strings owned by the caller's translation tables.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithEnumResolver wires the option provider used by ENUM/MULTISELECT.
func WithEnumResolver(resolver EnumResolver) Option {
	return func(d *Dispatcher) {
		d.enums = resolver
	}
}

// WithLocale selects number, currency and date conventions.
func WithLocale(locale *Locale) Option {
	return func(d *Dispatcher) {
		if locale != nil {
			d.locale = locale
		}
	}
}

// WithLanguage is WithLocale for a bare language tag.
func WithLanguage(tag language.Tag) Option {
	return func(d *Dispatcher) {
		d.locale = NewLocale(tag)
	}
}

// WithSentinel overrides DefaultSentinel.
func WithSentinel(sentinel string) Option {
	return func(d *Dispatcher) {
		d.sentinel = sentinel
	}
}

// WithEvaluator enables visibleWhen rules for nested fields.
func WithEvaluator(evaluator visibility.Evaluator) Option {
	return func(d *Dispatcher) {
		d.evaluator = evaluator
	}
}

// WithTranslator resolves Yes/No, empty-list and loading labels.
func WithTranslator(t Translator) Option {
	return func(d *Dispatcher) {
		d.translator = t
	}
}

// WithLogger reports degraded renders.
func WithLogger(logger logging.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logging.OrNoop(logger)
	}
}

// Dispatcher renders fields. It holds no per-render state and is safe for
// concurrent use.
type Dispatcher struct {
	enums      EnumResolver
	locale     *Locale
	sentinel   string
	evaluator  visibility.Evaluator
	translator Translator
	logger     logging.Logger
}

// New constructs a Dispatcher.
func New(options ...Option) *Dispatcher {
	d := &Dispatcher{
		locale:   DefaultLocale(),
		sentinel: DefaultSentinel,
		logger:   logging.Noop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Locale returns the active locale.
func (d *Dispatcher) Locale() *Locale { return d.locale }

// Sentinel returns the empty-value marker.
func (d *Dispatcher) Sentinel() string { return d.sentinel }

// Evaluator returns the configured rule evaluator, if any.
func (d *Dispatcher) Evaluator() visibility.Evaluator { return d.evaluator }

// Request describes one field render.
type Request struct {
	Field    schema.FieldDefinition
	Value    any
	Mode     Mode
	OnChange OnChange
	// Path addresses the value from the root; defaults to Field.FieldKey.
	Path string
	// Scope holds the enclosing values, innermost first, used for nested
	// visibility.
	Scope values.Scopes
}

// Render renders field bound to value. onChange receives proposals keyed by
// field.FieldKey and may be nil in read-only mode.
func (d *Dispatcher) Render(ctx context.Context, field schema.FieldDefinition, value any, mode Mode, onChange OnChange) Node {
	return d.RenderRequest(ctx, Request{Field: field, Value: value, Mode: mode, OnChange: onChange})
}

// RenderRequest is Render with an explicit path and enclosing scope.
func (d *Dispatcher) RenderRequest(ctx context.Context, req Request) Node {
	if ctx == nil {
		ctx = context.Background()
	}
	path := req.Path
	if path == "" {
		path = req.Field.FieldKey
	}
	var emit func(any)
	if onChange := req.OnChange; onChange != nil {
		emit = func(v any) { onChange(path, v) }
	}
	return d.renderField(ctx, fieldRender{
		field: req.Field,
		value: req.Value,
		mode:  normalizeMode(req.Mode),
		path:  path,
		scope: req.Scope,
		emit:  emit,
	})
}

func normalizeMode(mode Mode) Mode {
	if mode == ModeEdit {
		return ModeEdit
	}
	return ModeReadOnly
}

type fieldRender struct {
	field schema.FieldDefinition
	value any
	mode  Mode
	path  string
	scope values.Scopes
	// emit proposes a new value for this field; nil when changes are not
	// observed.
	emit func(any)
}

func (r fieldRender) editing() bool {
	return r.mode == ModeEdit && !r.field.ReadOnly && r.emit != nil
}

func (d *Dispatcher) renderField(ctx context.Context, r fieldRender) (node Node) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Printf("render: field %q panicked: %v\n%s", r.path, rec, debug.Stack())
			node = d.base(r)
			node.Kind = KindError
			node.Text = d.sentinel
			node.Diagnostic = fmt.Sprint(rec)
			node.Err = fmt.Errorf("%w: %s: %v", ErrFieldPanic, r.path, rec)
			node.Change, node.ChangeList = nil, nil
		}
	}()

	switch r.field.Type.Normalize() {
	case schema.FieldTypeText, schema.FieldTypeTextarea, schema.FieldTypeEmail,
		schema.FieldTypePhone, schema.FieldTypeURL:
		return d.renderText(r)
	case schema.FieldTypeNumber, schema.FieldTypeDecimal:
		return d.renderNumber(r)
	case schema.FieldTypeCurrency:
		return d.renderCurrency(r)
	case schema.FieldTypeBoolean:
		return d.renderBoolean(r)
	case schema.FieldTypeEnum:
		return d.renderEnum(ctx, r)
	case schema.FieldTypeMultiselect:
		return d.renderMultiselect(ctx, r)
	case schema.FieldTypeDate, schema.FieldTypeDatetime:
		return d.renderDate(r)
	case schema.FieldTypeLabel:
		return d.renderLabel(r)
	case schema.FieldTypeChip:
		return d.renderChip(r)
	case schema.FieldTypeGroup:
		return d.renderGroup(ctx, r)
	case schema.FieldTypeArray:
		return d.renderArray(ctx, r)
	default:
		return d.renderUnknown(r)
	}
}

func (d *Dispatcher) base(r fieldRender) Node {
	return Node{
		Key:         r.path,
		FieldType:   r.field.Type.Normalize(),
		Label:       r.field.DisplayLabel(),
		Required:    r.field.Required,
		ReadOnly:    r.field.ReadOnly,
		Placeholder: r.field.Placeholder,
		HelpText:    r.field.HelpText,
		GridCols:    r.field.GridCols,
	}
}

func (d *Dispatcher) renderUnknown(r fieldRender) Node {
	err := &UnknownFieldTypeError{Type: r.field.Type, Key: r.path}
	d.logger.Printf("%v", err)
	node := d.base(r)
	node.Kind = KindDiagnostic
	node.Text = fmt.Sprintf("Unsupported field type %q", string(r.field.Type))
	node.Diagnostic = err.Error()
	node.Err = err
	node.Value = r.value
	return node
}

func (d *Dispatcher) renderGroup(ctx context.Context, r fieldRender) Node {
	node := d.base(r)
	node.Kind = KindGroup
	node.Value = r.value
	if len(r.field.Fields) == 0 {
		node.Diagnostic = fmt.Sprintf("GROUP field %q declares no fields", r.path)
		d.logger.Printf("render: %s", node.Diagnostic)
	}

	group := r.value
	scope := r.scope.Within(group)
	for _, child := range r.field.Fields {
		visible, err := visibility.Check(child, scope, d.evaluator)
		if err != nil {
			d.logger.Printf("render: %v", err)
		}
		if !visible {
			continue
		}
		childValue, _ := values.Resolve(group, child.FieldKey)
		node.Children = append(node.Children, d.renderField(ctx, fieldRender{
			field: child,
			value: childValue,
			mode:  r.mode,
			path:  joinPath(r.path, child.FieldKey),
			scope: scope,
			emit:  liftIntoGroup(r.emit, group, child.FieldKey),
		}))
	}
	return node
}

func liftIntoGroup(parent func(any), group any, childKey string) func(any) {
	if parent == nil {
		return nil
	}
	return func(v any) {
		parent(values.Propose(group, childKey, v))
	}
}

func (d *Dispatcher) renderArray(ctx context.Context, r fieldRender) Node {
	node := d.base(r)
	if r.field.ItemSchema == nil {
		node.Kind = KindDiagnostic
		node.Text = fmt.Sprintf("ARRAY field %q has no item schema", r.path)
		node.Diagnostic = node.Text
		node.Err = fmt.Errorf("%w: %s", ErrMissingItemSchema, r.path)
		d.logger.Printf("%v", node.Err)
		return node
	}

	list, ok := toList(r.value)
	if !ok {
		node.Kind = KindError
		node.Text = d.sentinel
		node.Err = fmt.Errorf("%w: %s holds %T", ErrNotAList, r.path, r.value)
		node.Diagnostic = node.Err.Error()
		d.logger.Printf("%v", node.Err)
		return node
	}

	node.Kind = KindArray
	node.Value = list
	node.setProp("count", len(list))
	item := *r.field.ItemSchema

	if r.editing() {
		emit := r.emit
		node.Add = func() {
			next := make([]any, len(list), len(list)+1)
			copy(next, list)
			emit(append(next, emptyItem(item)))
		}
	}

	if len(list) == 0 {
		node.Children = []Node{{
			Kind: KindEmpty,
			Key:  r.path,
			Text: d.translate(KeyArrayEmpty, d.sentinel),
		}}
		return node
	}

	for i, element := range list {
		itemPath := r.path + "." + strconv.Itoa(i)
		itemNode := Node{
			Kind:  KindItem,
			Key:   itemPath,
			Props: map[string]any{"index": i},
		}
		itemEmit := liftIntoList(r.emit, list, i)
		if r.editing() {
			emit := r.emit
			index := i
			itemNode.Remove = func() {
				next := make([]any, 0, len(list)-1)
				next = append(next, list[:index]...)
				emit(append(next, list[index+1:]...))
			}
		}
		itemNode.Children = []Node{d.renderField(ctx, fieldRender{
			field: item,
			value: element,
			mode:  r.mode,
			path:  itemPath,
			scope: r.scope,
			emit:  itemEmit,
		})}
		node.Children = append(node.Children, itemNode)
	}
	return node
}

func liftIntoList(parent func(any), list []any, index int) func(any) {
	if parent == nil {
		return nil
	}
	return func(v any) {
		next := make([]any, len(list))
		copy(next, list)
		next[index] = v
		parent(next)
	}
}

func emptyItem(item schema.FieldDefinition) any {
	switch item.Type.Normalize() {
	case schema.FieldTypeGroup:
		return map[string]any{}
	case schema.FieldTypeArray, schema.FieldTypeMultiselect:
		return []any{}
	default:
		return nil
	}
}

func (d *Dispatcher) translate(key, fallback string) string {
	if d.translator == nil {
		return fallback
	}
	out, err := d.translator.Translate(d.locale.Tag().String(), key)
	if err != nil || strings.TrimSpace(out) == "" {
		return fallback
	}
	return out
}

func joinPath(parent, child string) string {
	switch {
	case parent == "":
		return child
	case child == "":
		return parent
	default:
		return parent + "." + child
	}
}
