package html

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formcards/pkg/render"
)

// nodeView flattens a Node into the map the templates read. Only strings,
// bools, ints and nested maps cross into the template.
func nodeView(node render.Node) map[string]any {
	view := map[string]any{
		"kind":        string(node.Kind),
		"key":         node.Key,
		"id":          domID(node.Key),
		"type":        strings.ToLower(string(node.FieldType)),
		"label":       node.Label,
		"text":        node.Text,
		"href":        node.Href,
		"value":       valueText(node),
		"required":    node.Required,
		"readonly":    node.ReadOnly || !editable(node),
		"placeholder": node.Placeholder,
		"help_text":   node.HelpText,
		"grid_cols":   node.GridCols,
		"diagnostic":  node.Diagnostic,
		"field":       isField(node.Kind),
		"labelled":    isControl(node.Kind),
		"can_add":     node.Add != nil,
		"can_remove":  node.Remove != nil,
		"input_type":  propString(node, "inputType"),
		"symbol":      propString(node, "symbol"),
		"currency":    propString(node, "currency"),
		"multiline":   propBool(node, "multiline") || propString(node, "inputType") == "textarea",
		"fallback":    propBool(node, "fallback"),
		"empty":       propBool(node, "empty"),
		"collapsible": propBool(node, "collapsible"),
		"open":        propBool(node, "open"),
		"checked":     node.Kind == render.KindCheckbox && node.Value == true,
	}

	switch node.Kind {
	case render.KindCard:
		icon := propString(node, "icon")
		if isMarkup(icon) {
			view["icon_svg"] = SanitizeIcon(icon)
		} else {
			view["icon_name"] = strings.TrimSpace(icon)
		}
		view["mode"] = propString(node, "mode")
	case render.KindItem:
		if idx, ok := node.Prop("index"); ok {
			view["index"] = idx
		}
	case render.KindSelect, render.KindMultiselect:
		view["options"] = optionViews(node)
	}
	return view
}

func editable(node render.Node) bool {
	return node.Change != nil || node.ChangeList != nil
}

func isField(kind render.Kind) bool {
	switch kind {
	case render.KindCard, render.KindSection, render.KindItem, render.KindEmpty:
		return false
	default:
		return true
	}
}

func isControl(kind render.Kind) bool {
	switch kind {
	case render.KindInput, render.KindNumberInput, render.KindCurrencyInput,
		render.KindCheckbox, render.KindSelect, render.KindMultiselect,
		render.KindDateInput, render.KindDateTimeInput:
		return true
	default:
		return false
	}
}

func propString(node render.Node, key string) string {
	v, ok := node.Prop(key)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func propBool(node render.Node, key string) bool {
	v, _ := node.Prop(key)
	b, _ := v.(bool)
	return b
}

// valueText is the form value attribute of a control.
func valueText(node render.Node) string {
	switch node.Kind {
	case render.KindNumberInput, render.KindCurrencyInput:
		return node.Text
	case render.KindCheckbox:
		return "true"
	}
	switch v := node.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case []any, map[string]any:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func optionViews(node render.Node) []map[string]any {
	selected := make(map[string]bool)
	switch v := node.Value.(type) {
	case []any:
		for _, item := range v {
			selected[fmt.Sprint(item)] = true
		}
	case nil:
	default:
		selected[fmt.Sprint(v)] = true
	}

	out := make([]map[string]any, 0, len(node.Options))
	for _, opt := range node.Options {
		value := fmt.Sprint(opt.Value)
		label := opt.Label
		if strings.TrimSpace(label) == "" {
			label = value
		}
		out = append(out, map[string]any{
			"value":    value,
			"label":    label,
			"selected": selected[value],
		})
	}
	return out
}
