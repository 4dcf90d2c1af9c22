// Package schema defines the card catalog model the rendering engine
// interprets: CardSchema values made of ordered CardSection values, each
// holding FieldDefinition trees. GROUP fields nest further definitions under
// Fields while ARRAY fields describe their elements through ItemSchema, so a
// catalog is a tagged-union tree keyed by FieldDefinition.Type.
//
// Catalogs come from the backend and are treated as untrusted input. Decoding
// never rejects an unknown field type or a malformed GROUP/ARRAY; Validate
// reports those problems as Issues and renderers degrade the affected field
// visibly. Decoded values are shared by the transport cache and must be
// treated as read-only; revalidation replaces a catalog wholesale.
package schema
