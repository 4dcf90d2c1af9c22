// Package values reads and proposes values at dotted field paths inside an
// arbitrary bound object. Missing segments are normal and resolve to absent;
// nothing here returns an error or panics on odd shapes.
package values

import (
	"reflect"
	"strconv"
	"strings"
)

// Scopes chains value scopes innermost first. Resolve tries each scope in
// order so nested fields can see values of ancestor scopes.
type Scopes []any

// Within returns a new chain with inner pushed in front of s.
func (s Scopes) Within(inner any) Scopes {
	out := make(Scopes, 0, len(s)+1)
	out = append(out, inner)
	return append(out, s...)
}

// Resolve walks root along the dot-separated key. The second return value is
// false as soon as any segment is missing.
func Resolve(root any, key string) (any, bool) {
	if chain, ok := root.(Scopes); ok {
		for _, scope := range chain {
			if value, found := Resolve(scope, key); found {
				return value, true
			}
		}
		return nil, false
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}

	current := root
	for _, segment := range strings.Split(key, ".") {
		next, ok := step(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Get is Resolve without the presence flag.
func Get(root any, key string) any {
	value, _ := Resolve(root, key)
	return value
}

func step(current any, segment string) (any, bool) {
	if segment == "" || current == nil {
		return nil, false
	}
	switch typed := current.(type) {
	case map[string]any:
		value, ok := typed[segment]
		return value, ok
	case map[string]string:
		value, ok := typed[segment]
		return value, ok
	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(typed) {
			return nil, false
		}
		return typed[idx], true
	}
	return stepReflect(reflect.ValueOf(current), segment)
}

func stepReflect(rv reflect.Value, segment string) (any, bool) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		value := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil, false
		}
		return value.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	case reflect.Struct:
		field, ok := structField(rv, segment)
		if !ok {
			return nil, false
		}
		return field.Interface(), true
	}
	return nil, false
}

func structField(rv reflect.Value, segment string) (reflect.Value, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag := sf.Tag.Get("json"); tag != "" {
			if tagName := strings.Split(tag, ",")[0]; tagName != "" && tagName != "-" {
				name = tagName
			}
		}
		if name == segment || sf.Name == segment {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// Propose returns a copy of root with the value at key replaced. Only the
// maps along the addressed path are copied; every other branch is shared
// with root, which is never mutated. Missing intermediate segments are
// created as map[string]any. Structs, pointers and typed maps or slices along
// the path are copied into map[string]any or []any with all their entries.
// Scalar roots are replaced by a map holding just the proposed path.
func Propose(root any, key string, value any) any {
	key = strings.TrimSpace(key)
	if key == "" {
		return root
	}
	return propose(root, strings.Split(key, "."), value)
}

// ProposeMap is Propose for the common map-rooted case.
func ProposeMap(root map[string]any, key string, value any) map[string]any {
	out, _ := Propose(root, key, value).(map[string]any)
	return out
}

func propose(current any, segments []string, value any) any {
	if len(segments) == 0 {
		return value
	}
	head, rest := segments[0], segments[1:]

	switch typed := current.(type) {
	case []any:
		if idx, err := strconv.Atoi(head); err == nil && idx >= 0 && idx < len(typed) {
			clone := make([]any, len(typed))
			copy(clone, typed)
			clone[idx] = propose(typed[idx], rest, value)
			return clone
		}
	case map[string]any:
		clone := make(map[string]any, len(typed)+1)
		for k, v := range typed {
			clone[k] = v
		}
		clone[head] = propose(typed[head], rest, value)
		return clone
	case map[string]string:
		clone := make(map[string]any, len(typed)+1)
		for k, v := range typed {
			clone[k] = v
		}
		var existing any
		if v, ok := typed[head]; ok {
			existing = v
		}
		clone[head] = propose(existing, rest, value)
		return clone
	}

	if fields, ok := toMap(reflect.ValueOf(current)); ok {
		fields[head] = propose(fields[head], rest, value)
		return fields
	}
	if items, ok := toSlice(reflect.ValueOf(current)); ok {
		if idx, err := strconv.Atoi(head); err == nil && idx >= 0 && idx < len(items) {
			items[idx] = propose(items[idx], rest, value)
			return items
		}
	}
	return map[string]any{head: propose(nil, rest, value)}
}

// toMap copies a struct or string-keyed map into a fresh map[string]any.
// Struct fields are keyed the way structField reads them.
func toMap(rv reflect.Value) (map[string]any, bool) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		out := make(map[string]any, rv.Len()+1)
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	case reflect.Struct:
		rt := rv.Type()
		out := make(map[string]any, rt.NumField()+1)
		for i := 0; i < rt.NumField(); i++ {
			sf := rt.Field(i)
			if !sf.IsExported() {
				continue
			}
			name := sf.Name
			if tag := sf.Tag.Get("json"); tag != "" {
				tagName := strings.Split(tag, ",")[0]
				if tagName == "-" {
					continue
				}
				if tagName != "" {
					name = tagName
				}
			}
			out[name] = rv.Field(i).Interface()
		}
		return out, true
	}
	return nil, false
}

// List returns any slice or array value as []any. Nil reads as an empty list.
func List(value any) ([]any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, true
	case []any:
		return v, true
	}
	return toSlice(reflect.ValueOf(value))
}

func toSlice(rv reflect.Value) ([]any, bool) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
