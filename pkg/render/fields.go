package render

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-formcards/pkg/enums"
	"github.com/goliatone/go-formcards/pkg/schema"
)

func (d *Dispatcher) sentinelNode(node Node) Node {
	node.Kind = KindText
	node.Text = d.sentinel
	node.setProp("empty", true)
	return node
}

func (d *Dispatcher) renderText(r fieldRender) Node {
	node := d.base(r)
	text, present := toText(r.value)

	if r.mode == ModeEdit {
		node.Kind = KindInput
		node.Value = ""
		if present {
			node.Value = text
		}
		node.setProp("inputType", inputType(node.FieldType))
		if r.editing() {
			emit := r.emit
			node.Change = func(raw string) { emit(raw) }
		}
		return node
	}

	if !present {
		return d.sentinelNode(node)
	}
	node.Kind = KindText
	node.Text = text
	node.Value = r.value
	if node.FieldType == schema.FieldTypeTextarea {
		node.setProp("multiline", true)
	}
	if href := linkFor(node.FieldType, text); href != "" {
		node.Kind = KindLink
		node.Href = href
	}
	return node
}

func inputType(t schema.FieldType) string {
	switch t {
	case schema.FieldTypeTextarea:
		return "textarea"
	case schema.FieldTypeEmail:
		return "email"
	case schema.FieldTypePhone:
		return "tel"
	case schema.FieldTypeURL:
		return "url"
	default:
		return "text"
	}
}

// linkFor builds a safe href for EMAIL, PHONE and URL values. Anything that
// would not be an http(s), mailto or tel link renders as plain text.
func linkFor(t schema.FieldType, text string) string {
	text = strings.TrimSpace(text)
	switch t {
	case schema.FieldTypeEmail:
		if strings.Count(text, "@") != 1 || strings.ContainsAny(text, " <>\"") {
			return ""
		}
		return "mailto:" + text
	case schema.FieldTypePhone:
		var b strings.Builder
		for i, r := range text {
			if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
				b.WriteRune(r)
			}
		}
		if b.Len() == 0 {
			return ""
		}
		return "tel:" + b.String()
	case schema.FieldTypeURL:
		candidate := text
		if !strings.Contains(candidate, "://") {
			candidate = "https://" + candidate
		}
		u, err := url.Parse(candidate)
		if err != nil || u.Host == "" {
			return ""
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return ""
		}
		return u.String()
	default:
		return ""
	}
}

func (d *Dispatcher) renderNumber(r fieldRender) Node {
	node := d.base(r)
	decimal := node.FieldType == schema.FieldTypeDecimal
	format := d.locale.FormatNumber
	if decimal {
		format = func(v float64) string { return d.locale.FormatDecimal(v, 2) }
	}
	f, ok := toFloat(r.value, d.locale)

	if r.mode == ModeEdit {
		node.Kind = KindNumberInput
		if ok {
			node.Value = f
			node.Text = format(f)
		}
		node.setProp("decimal", decimal)
		node.setProp("decimalSeparator", string(d.locale.DecimalSeparator()))
		if r.editing() {
			emit := r.emit
			locale := d.locale
			node.Change = func(raw string) {
				if v, ok := locale.ParseNumber(raw); ok {
					emit(v)
					return
				}
				emit(nil)
			}
		}
		return node
	}

	if !ok {
		return d.sentinelNode(node)
	}
	node.Kind = KindText
	node.Value = f
	node.Text = format(f)
	return node
}

func (d *Dispatcher) renderCurrency(r fieldRender) Node {
	node := d.base(r)
	code := strings.ToUpper(strings.TrimSpace(r.field.Currency))
	if code == "" {
		code = DefaultCurrency
	}
	node.setProp("currency", code)
	node.setProp("symbol", CurrencySymbol(code))
	f, ok := toFloat(r.value, d.locale)

	if r.mode == ModeEdit {
		node.Kind = KindCurrencyInput
		if ok {
			node.Value = f
			node.Text = d.locale.FormatDecimal(f, 2)
		}
		if r.editing() {
			emit := r.emit
			locale := d.locale
			node.Change = func(raw string) {
				if v, ok := locale.ParseCurrency(raw); ok {
					emit(v)
					return
				}
				emit(nil)
			}
		}
		return node
	}

	if !ok {
		return d.sentinelNode(node)
	}
	node.Kind = KindText
	node.Value = f
	node.Text = d.locale.FormatCurrency(f, code)
	return node
}

func (d *Dispatcher) renderBoolean(r fieldRender) Node {
	node := d.base(r)
	b, ok := toBool(r.value)

	if r.mode == ModeEdit {
		node.Kind = KindCheckbox
		node.Value = ok && b
		if r.editing() {
			emit := r.emit
			node.Change = func(raw string) {
				if v, ok := parseBool(raw); ok {
					emit(v)
					return
				}
				emit(nil)
			}
		}
		return node
	}

	if !ok {
		return d.sentinelNode(node)
	}
	node.Kind = KindText
	node.Value = b
	if b {
		node.Text = d.translate(KeyBooleanYes, d.locale.Bool(true))
	} else {
		node.Text = d.translate(KeyBooleanNo, d.locale.Bool(false))
	}
	return node
}

func (d *Dispatcher) enumState(ctx context.Context, field schema.FieldDefinition) enums.State {
	if len(field.Options) > 0 {
		return enums.State{Status: enums.StatusReady, Options: field.Options}
	}
	if d.enums == nil {
		return enums.State{Status: enums.StatusIdle}
	}
	return d.enums.Options(ctx, field)
}

func (d *Dispatcher) loadingNode(node Node) Node {
	node.Kind = KindProgress
	node.Text = d.translate(KeyLoading, "Loading...")
	node.Change, node.ChangeList = nil, nil
	return node
}

func (d *Dispatcher) renderEnum(ctx context.Context, r fieldRender) Node {
	node := d.base(r)
	state := d.enumState(ctx, r.field)
	node.Options = state.Options
	node.Err = state.Err
	node.setProp("status", string(state.Status))
	raw, present := toText(r.value)

	if r.mode == ModeReadOnly {
		if !present {
			return d.sentinelNode(node)
		}
		node.Kind = KindText
		node.Value = r.value
		node.Text = raw
		if label, ok := state.Label(r.value); ok {
			node.Text = label
		}
		return node
	}

	node.Value = r.value
	switch state.Status {
	case enums.StatusLoading:
		return d.loadingNode(node)
	case enums.StatusReady:
		node.Kind = KindSelect
		if r.editing() {
			emit := r.emit
			options := state.Options
			node.Change = func(raw string) { emit(optionValue(options, raw)) }
		}
	default:
		// No options available: fall back to free text input.
		node.Kind = KindInput
		node.Value = raw
		node.setProp("fallback", true)
		if r.editing() {
			emit := r.emit
			node.Change = func(raw string) {
				if strings.TrimSpace(raw) == "" {
					emit(nil)
					return
				}
				emit(raw)
			}
		}
	}
	return node
}

func optionValue(options []schema.EnumOption, raw string) any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	for _, opt := range options {
		if fmt.Sprint(opt.Value) == raw {
			return opt.Value
		}
	}
	return raw
}

func (d *Dispatcher) renderMultiselect(ctx context.Context, r fieldRender) Node {
	node := d.base(r)
	state := d.enumState(ctx, r.field)
	node.Options = state.Options
	node.Err = state.Err
	node.setProp("status", string(state.Status))

	selected, ok := toList(r.value)
	switch {
	case !ok && isNilPointer(r.value):
		selected = nil
	case !ok:
		// A lone scalar counts as one selection.
		selected = []any{r.value}
	}
	if selected == nil {
		selected = []any{}
	}

	if r.mode == ModeReadOnly {
		labels := make([]string, 0, len(selected))
		for _, v := range selected {
			text, present := toText(v)
			if !present {
				continue
			}
			if label, ok := state.Label(v); ok {
				text = label
			}
			labels = append(labels, text)
		}
		if len(labels) == 0 {
			return d.sentinelNode(node)
		}
		node.Kind = KindText
		node.Value = selected
		node.Text = strings.Join(labels, ", ")
		node.setProp("labels", labels)
		return node
	}

	node.Value = selected
	switch state.Status {
	case enums.StatusLoading:
		return d.loadingNode(node)
	case enums.StatusReady:
		node.Kind = KindMultiselect
		if r.editing() {
			emit := r.emit
			options := state.Options
			node.ChangeList = func(raw []string) {
				next := make([]any, 0, len(raw))
				for _, item := range raw {
					if v := optionValue(options, item); v != nil {
						next = append(next, v)
					}
				}
				emit(next)
			}
		}
	default:
		node.Kind = KindInput
		parts := make([]string, 0, len(selected))
		for _, v := range selected {
			if text, ok := toText(v); ok {
				parts = append(parts, text)
			}
		}
		node.Value = strings.Join(parts, ", ")
		node.setProp("fallback", true)
		if r.editing() {
			emit := r.emit
			node.Change = func(raw string) {
				next := []any{}
				for _, part := range strings.Split(raw, ",") {
					if part = strings.TrimSpace(part); part != "" {
						next = append(next, part)
					}
				}
				emit(next)
			}
		}
	}
	return node
}

func (d *Dispatcher) renderDate(r fieldRender) Node {
	node := d.base(r)
	withTime := node.FieldType == schema.FieldTypeDatetime
	t, ok := parseTime(r.value, d.locale.Location())

	if r.mode == ModeEdit {
		node.Kind = KindDateInput
		if withTime {
			node.Kind = KindDateTimeInput
		}
		node.Value = ""
		if ok {
			if withTime {
				node.Value = t.In(d.locale.Location()).Format("2006-01-02T15:04")
			} else {
				node.Value = t.Format("2006-01-02")
			}
		}
		if r.editing() {
			emit := r.emit
			locale := d.locale
			node.Change = func(raw string) {
				if v, ok := parseUserDate(raw, withTime, locale); ok {
					emit(v)
					return
				}
				emit(nil)
			}
		}
		return node
	}

	if !ok {
		if r.value != nil {
			node.setProp("raw", r.value)
		}
		return d.sentinelNode(node)
	}
	node.Kind = KindText
	node.Value = t
	if withTime {
		node.Text = d.locale.FormatDateTime(t)
	} else {
		node.Text = d.locale.FormatDate(t)
	}
	return node
}

func (d *Dispatcher) renderLabel(r fieldRender) Node {
	node := d.base(r)
	node.Kind = KindPair
	node.Value = r.value
	node.Text = d.sentinel
	if text, ok := toText(r.value); ok {
		node.Text = text
	}
	return node
}

func (d *Dispatcher) renderChip(r fieldRender) Node {
	node := d.base(r)
	text, ok := toText(r.value)
	if !ok {
		return d.sentinelNode(node)
	}
	node.Kind = KindChip
	node.Value = r.value
	node.Text = text
	return node
}
