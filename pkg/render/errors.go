package render

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formcards/pkg/schema"
)

var (
	// ErrMissingItemSchema marks an ARRAY field declared without itemSchema.
	ErrMissingItemSchema = errors.New("render: array field has no itemSchema")
	// ErrNotAList marks an ARRAY field whose bound value is not a list.
	ErrNotAList = errors.New("render: array value is not a list")
	// ErrFieldPanic marks a field whose rendering panicked.
	ErrFieldPanic = errors.New("render: field render panicked")
)

// UnknownFieldTypeError is carried by the diagnostic node emitted for a type
// tag outside the known set.
type UnknownFieldTypeError struct {
	Type schema.FieldType
	Key  string
}

func (e *UnknownFieldTypeError) Error() string {
	return fmt.Sprintf("render: field %q has unknown type %q", e.Key, string(e.Type))
}
