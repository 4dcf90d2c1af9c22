// Package rules evaluates FieldDefinition.VisibleWhen expressions with
// expr-lang/expr. Rules see the field's scope values as top-level variables
// (inner scopes shadow outer ones) plus an `extras` map.
package rules

import (
	"fmt"
	"strings"
	"sync"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/goliatone/go-formcards/pkg/values"
	"github.com/goliatone/go-formcards/pkg/visibility"
)

// ProgramCache stores compiled programs keyed by rule text.
type ProgramCache interface {
	Get(key string) (*exprvm.Program, bool)
	Set(key string, program *exprvm.Program)
}

// Option configures the Evaluator.
type Option func(*Evaluator)

// WithProgramCache replaces the default in-memory cache.
func WithProgramCache(cache ProgramCache) Option {
	return func(e *Evaluator) {
		if cache != nil {
			e.cache = cache
		}
	}
}

// Evaluator implements visibility.Evaluator.
type Evaluator struct {
	cache ProgramCache
}

var _ visibility.Evaluator = (*Evaluator)(nil)

// New constructs an Evaluator with an unbounded in-memory program cache.
func New(options ...Option) *Evaluator {
	e := &Evaluator{cache: &memoryCache{}}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Eval compiles (once) and runs rule against ctx.
func (e *Evaluator) Eval(fieldPath, rule string, ctx visibility.Context) (bool, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return true, nil
	}
	program, err := e.compile(rule)
	if err != nil {
		return false, err
	}

	out, err := exprlang.Run(program, environment(ctx))
	if err != nil {
		return false, fmt.Errorf("rules: run %q for %s: %w", rule, fieldPath, err)
	}
	switch v := out.(type) {
	case bool:
		return v, nil
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("rules: %q for %s returned %T, want bool", rule, fieldPath, out)
	}
}

func (e *Evaluator) compile(rule string) (*exprvm.Program, error) {
	if program, ok := e.cache.Get(rule); ok {
		return program, nil
	}
	program, err := exprlang.Compile(rule, exprlang.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("rules: compile %q: %w", rule, err)
	}
	e.cache.Set(rule, program)
	return program, nil
}

func environment(ctx visibility.Context) map[string]any {
	env := make(map[string]any)
	mergeScope(env, ctx.Values)
	if _, taken := env["extras"]; !taken {
		extras := ctx.Extras
		if extras == nil {
			extras = map[string]any{}
		}
		env["extras"] = extras
	}
	return env
}

func mergeScope(env map[string]any, scope any) {
	switch typed := scope.(type) {
	case values.Scopes:
		// Outer scopes first so inner scopes win.
		for i := len(typed) - 1; i >= 0; i-- {
			mergeScope(env, typed[i])
		}
	case map[string]any:
		for key, value := range typed {
			env[key] = value
		}
	case map[string]string:
		for key, value := range typed {
			env[key] = value
		}
	}
}

type memoryCache struct {
	programs sync.Map
}

func (c *memoryCache) Get(key string) (*exprvm.Program, bool) {
	value, ok := c.programs.Load(key)
	if !ok {
		return nil, false
	}
	program, ok := value.(*exprvm.Program)
	return program, ok
}

func (c *memoryCache) Set(key string, program *exprvm.Program) {
	c.programs.Store(key, program)
}
