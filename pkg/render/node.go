package render

import "github.com/goliatone/go-formcards/pkg/schema"

// Mode selects read-only or editable output.
type Mode string

const (
	ModeReadOnly Mode = "readonly"
	ModeEdit     Mode = "edit"
)

// Kind tags a Node for output adapters.
type Kind string

const (
	KindText          Kind = "text"
	KindLink          Kind = "link"
	KindInput         Kind = "input"
	KindNumberInput   Kind = "number-input"
	KindCurrencyInput Kind = "currency-input"
	KindCheckbox      Kind = "checkbox"
	KindSelect        Kind = "select"
	KindMultiselect   Kind = "multiselect"
	KindDateInput     Kind = "date-input"
	KindDateTimeInput Kind = "datetime-input"
	KindPair          Kind = "pair"
	KindChip          Kind = "chip"
	KindGroup         Kind = "group"
	KindArray         Kind = "array"
	KindItem          Kind = "item"
	KindEmpty         Kind = "empty"
	KindProgress      Kind = "progress"
	KindDiagnostic    Kind = "diagnostic"
	KindError         Kind = "error"
	KindCard          Kind = "card"
	KindSection       Kind = "section"
)

// OnChange receives a proposed new value for a top-level field key. Nested
// GROUP and ARRAY edits arrive as the whole new value of that key.
type OnChange func(key string, value any)

// Node is one element of a rendered tree. Key is the dotted path of the
// field's value relative to the root passed to the composer.
type Node struct {
	Kind        Kind                `json:"kind"`
	Key         string              `json:"key,omitempty"`
	FieldType   schema.FieldType    `json:"fieldType,omitempty"`
	Label       string              `json:"label,omitempty"`
	Text        string              `json:"text,omitempty"`
	Value       any                 `json:"value,omitempty"`
	Href        string              `json:"href,omitempty"`
	Props       map[string]any      `json:"props,omitempty"`
	Children    []Node              `json:"children,omitempty"`
	Options     []schema.EnumOption `json:"options,omitempty"`
	Required    bool                `json:"required,omitempty"`
	ReadOnly    bool                `json:"readonly,omitempty"`
	Placeholder string              `json:"placeholder,omitempty"`
	HelpText    string              `json:"helpText,omitempty"`
	GridCols    int                 `json:"gridCols,omitempty"`
	Diagnostic  string              `json:"diagnostic,omitempty"`

	Err error `json:"-"`

	// Change accepts raw user input for scalar controls.
	Change func(raw string) `json:"-"`
	// ChangeList accepts the selected raw values of a multiselect.
	ChangeList func(raw []string) `json:"-"`
	// Add appends an empty item to an ARRAY; Remove drops this item.
	Add    func() `json:"-"`
	Remove func() `json:"-"`
}

// Prop returns a property value.
func (n Node) Prop(key string) (any, bool) {
	if n.Props == nil {
		return nil, false
	}
	v, ok := n.Props[key]
	return v, ok
}

// Editable reports whether the node accepts input.
func (n Node) Editable() bool {
	return n.Change != nil || n.ChangeList != nil
}

// Walk visits n and its descendants in pre-order until fn returns false.
func (n Node) Walk(fn func(Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first node whose Key equals key.
func (n Node) Find(key string) (Node, bool) {
	var found Node
	var ok bool
	n.Walk(func(node Node) bool {
		if node.Key == key && node.Kind != KindItem {
			found, ok = node, true
			return false
		}
		return true
	})
	return found, ok
}

// Count returns how many nodes of kind the tree holds.
func (n Node) Count(kind Kind) int {
	count := 0
	n.Walk(func(node Node) bool {
		if node.Kind == kind {
			count++
		}
		return true
	})
	return count
}

func (n *Node) setProp(key string, value any) {
	if n.Props == nil {
		n.Props = make(map[string]any)
	}
	n.Props[key] = value
}
