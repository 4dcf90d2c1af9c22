package visibility

// Evaluator decides a rule expression attached to a field through
// FieldDefinition.VisibleWhen.
type Evaluator interface {
	Eval(fieldPath, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values is the field's scope (a map
// or a values.Scopes chain) while Extras lets callers inject context such as
// user roles or feature flags.
type Context struct {
	Values any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldPath, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	return fn(fieldPath, rule, ctx)
}
