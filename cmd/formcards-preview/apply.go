package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-formcards/pkg/compose"
	"github.com/goliatone/go-formcards/pkg/render"
	"github.com/goliatone/go-formcards/pkg/schema"
	"github.com/goliatone/go-formcards/pkg/values"
)

const actionField = "_action"

// applyForm replays a submitted edit form against root and returns the
// proposed values. The card is recomposed before every edit so nested group
// and list edits build on the previous one. Controls hidden by an earlier
// edit are skipped.
func applyForm(ctx context.Context, composer *compose.Composer, card schema.CardSchema, root map[string]any, form url.Values) (map[string]any, error) {
	onChange := func(key string, value any) {
		root = values.ProposeMap(root, key, value)
	}
	tree := func() render.Node {
		return composer.ComposeCard(ctx, card, root, render.ModeEdit, onChange).Node()
	}

	var keys []string
	tree().Walk(func(node render.Node) bool {
		if node.Editable() && node.Kind != render.KindItem {
			keys = append(keys, node.Key)
		}
		return true
	})

	for _, key := range keys {
		node, ok := tree().Find(key)
		if !ok || !node.Editable() {
			continue
		}
		submitted, present := form[key]
		switch {
		case node.ChangeList != nil:
			node.ChangeList(submitted)
		case present && node.Change != nil:
			node.Change(submitted[len(submitted)-1])
		}
	}

	action := strings.TrimSpace(form.Get(actionField))
	verb, key, _ := strings.Cut(action, ":")
	switch verb {
	case "", "save":
		return root, nil
	case "add":
		node, ok := tree().Find(key)
		if !ok || node.Add == nil {
			return nil, fmt.Errorf("preview: %q is not an editable list", key)
		}
		node.Add()
	case "remove":
		node, ok := findItem(tree(), key)
		if !ok || node.Remove == nil {
			return nil, fmt.Errorf("preview: %q is not a removable item", key)
		}
		node.Remove()
	default:
		return nil, fmt.Errorf("preview: unknown action %q", action)
	}
	return root, nil
}

func findItem(tree render.Node, key string) (render.Node, bool) {
	var found render.Node
	var ok bool
	tree.Walk(func(node render.Node) bool {
		if node.Kind == render.KindItem && node.Key == key {
			found, ok = node, true
			return false
		}
		return true
	})
	return found, ok
}
