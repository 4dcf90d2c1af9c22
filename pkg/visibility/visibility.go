package visibility

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-formcards/pkg/schema"
	"github.com/goliatone/go-formcards/pkg/values"
)

// IsVisible reports whether field is shown given the values of its scope.
// Fields without visibleWhenField are always visible. Otherwise the value at
// visibleWhenField is stringified and compared to visibleWhenValue with exact,
// case-sensitive equality; an absent value never matches.
func IsVisible(field schema.FieldDefinition, scope any) bool {
	ref := strings.TrimSpace(field.VisibleWhenField)
	if ref == "" {
		return true
	}
	value, ok := values.Resolve(scope, ref)
	if !ok || value == nil {
		return false
	}
	return Stringify(value) == field.VisibleWhenValue
}

// Stringify normalises a bound value for visibility comparison: booleans as
// "true"/"false", integral numbers without a fraction, everything else in its
// natural text form.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(v float64, bits int) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if math.IsInf(v, 0) {
		if v > 0 {
			return "Infinity"
		}
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', -1, bits)
}

// Check combines IsVisible with the optional visibleWhen rule. A rule that
// fails to evaluate hides the field and the error is returned for logging.
// A nil evaluator ignores rules.
func Check(field schema.FieldDefinition, scope any, evaluator Evaluator) (bool, error) {
	if !IsVisible(field, scope) {
		return false, nil
	}
	rule := strings.TrimSpace(field.VisibleWhen)
	if rule == "" || evaluator == nil {
		return true, nil
	}
	ok, err := evaluator.Eval(field.FieldKey, rule, Context{Values: scope})
	if err != nil {
		return false, fmt.Errorf("visibility: field %q: %w", field.FieldKey, err)
	}
	return ok, nil
}
