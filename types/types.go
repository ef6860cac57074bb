// Package types defines the Soy type lattice: primitive types, sanitized
// content kinds, containers (list, map, record, union), proto-backed nominal
// types, and the special any/unknown/error markers, together with the
// assignability partial order and the Join (lowest common type) operator.
package types

import (
	"sort"
	"strings"
)

// Kind identifies the lattice variant of a Type.
type Kind int

const (
	KindAny Kind = iota
	KindUnknown
	KindError
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindHTML
	KindJS
	KindCSS
	KindURI
	KindTrustedResourceURI
	KindAttributes
	KindList
	KindMap
	KindLegacyObjectMap
	KindRecord
	KindUnion
	KindProto
	KindProtoEnum
)

// Type is an immutable element of the Soy type lattice.
type Type interface {
	Kind() Kind

	// AssignableFrom reports whether a value of the other type may be bound to
	// a slot declared with this type.  The unknown type is assignable in both
	// directions; the error type is silently assignable in both directions so
	// that one diagnostic does not cascade into many.
	AssignableFrom(other Type) bool

	// String returns the canonical source representation of the type.  Two
	// types are structurally equal iff their Strings are equal.
	String() string
}

// primType covers every variant that carries no structure of its own.
type primType struct {
	kind Kind
	name string
}

var (
	Any                Type = &primType{KindAny, "any"}
	Unknown            Type = &primType{KindUnknown, "?"}
	Error              Type = &primType{KindError, "$error"}
	Null               Type = &primType{KindNull, "null"}
	Bool               Type = &primType{KindBool, "bool"}
	Int                Type = &primType{KindInt, "int"}
	Float              Type = &primType{KindFloat, "float"}
	String             Type = &primType{KindString, "string"}
	HTML               Type = &primType{KindHTML, "html"}
	JS                 Type = &primType{KindJS, "js"}
	CSS                Type = &primType{KindCSS, "css"}
	URI                Type = &primType{KindURI, "uri"}
	TrustedResourceURI Type = &primType{KindTrustedResourceURI, "trusted_resource_uri"}
	Attributes         Type = &primType{KindAttributes, "attributes"}
)

func (t *primType) Kind() Kind     { return t.kind }
func (t *primType) String() string { return t.name }

func (t *primType) AssignableFrom(other Type) bool {
	if lenient(t, other) {
		return true
	}
	switch t.kind {
	case KindAny:
		return true
	case KindFloat:
		// Ints silently widen to float, as in arithmetic.
		return other.Kind() == KindFloat || other.Kind() == KindInt
	case KindString:
		// Sanitized content is usable anywhere a string is.
		return other.Kind() == KindString || IsSanitized(other)
	default:
		return other.Kind() == t.kind
	}
}

// lenient implements the assignability cases shared by every variant:
// error propagates silently, unknown converts freely, and union sources
// require every member to be accepted.
func lenient(t Type, other Type) bool {
	switch other.Kind() {
	case KindError, KindUnknown:
		return true
	case KindUnion:
		for _, m := range other.(*UnionType).Members {
			if !t.AssignableFrom(m) {
				return false
			}
		}
		return true
	}
	return t.Kind() == KindError || t.Kind() == KindUnknown
}

// IsSanitized reports whether t is one of the sanitized content kinds.
func IsSanitized(t Type) bool {
	switch t.Kind() {
	case KindHTML, KindJS, KindCSS, KindURI, KindTrustedResourceURI, KindAttributes:
		return true
	}
	return false
}

// ContentKind returns the template content-kind name for a sanitized type
// ("html", "js", ...) and ok=false for everything else.
func ContentKind(t Type) (string, bool) {
	if IsSanitized(t) {
		return t.String(), true
	}
	return "", false
}

// SanitizedOfKind returns the sanitized type named by a template kind
// attribute, or nil if the kind is not a sanitized one ("text" included).
func SanitizedOfKind(kind string) Type {
	switch kind {
	case "html":
		return HTML
	case "js":
		return JS
	case "css":
		return CSS
	case "uri":
		return URI
	case "trusted_resource_uri":
		return TrustedResourceURI
	case "attributes":
		return Attributes
	}
	return nil
}

// ListType is list<El>.  The EmptyList singleton (El == nil) is the type of
// the empty list literal and is assignable to every list instantiation.
type ListType struct {
	El Type
}

// EmptyList is the type of the literal [].
var EmptyList = &ListType{}

func (t *ListType) Kind() Kind { return KindList }

func (t *ListType) String() string {
	if t.El == nil {
		return "list<>"
	}
	return "list<" + t.El.String() + ">"
}

func (t *ListType) AssignableFrom(other Type) bool {
	if lenient(t, other) {
		return true
	}
	o, ok := other.(*ListType)
	if !ok {
		return false
	}
	if o.El == nil {
		return true // empty literal fits any list
	}
	if t.El == nil {
		return false
	}
	return t.El.AssignableFrom(o.El)
}

// MapType is map<Key, Value>.  The EmptyMap singleton (Value == nil) is the
// type of the empty map literal.
type MapType struct {
	Key   Type
	Value Type
}

// EmptyMap is the type of the literal [:].
var EmptyMap = &MapType{}

func (t *MapType) Kind() Kind { return KindMap }

func (t *MapType) String() string {
	if t.Value == nil {
		return "map<>"
	}
	return "map<" + t.Key.String() + "," + t.Value.String() + ">"
}

func (t *MapType) AssignableFrom(other Type) bool {
	if lenient(t, other) {
		return true
	}
	o, ok := other.(*MapType)
	if !ok {
		return false
	}
	if o.Value == nil {
		return true
	}
	if t.Value == nil {
		return false
	}
	return t.Key.AssignableFrom(o.Key) && t.Value.AssignableFrom(o.Value)
}

// LegacyObjectMapType is the old map type with string-ish keys.  It is kept
// distinct from MapType; the two convert only through the
// legacyObjectMapToMap / mapToLegacyObjectMap functions.
type LegacyObjectMapType struct {
	Key   Type
	Value Type
}

func (t *LegacyObjectMapType) Kind() Kind { return KindLegacyObjectMap }

func (t *LegacyObjectMapType) String() string {
	return "legacy_object_map<" + t.Key.String() + "," + t.Value.String() + ">"
}

func (t *LegacyObjectMapType) AssignableFrom(other Type) bool {
	if lenient(t, other) {
		return true
	}
	if o, ok := other.(*MapType); ok && o.Value == nil {
		return true // the empty literal fits either map flavor
	}
	o, ok := other.(*LegacyObjectMapType)
	if !ok {
		return false
	}
	return t.Key.AssignableFrom(o.Key) && t.Value.AssignableFrom(o.Value)
}

// RecordType is a structural record with a fixed field set.
type RecordType struct {
	fields []RecordField // sorted by name
}

type RecordField struct {
	Name string
	Type Type
}

// Record builds a record type.  Field order is normalized.
func Record(fields map[string]Type) *RecordType {
	var fs = make([]RecordField, 0, len(fields))
	for name, t := range fields {
		fs = append(fs, RecordField{name, t})
	}
	sort.Slice(fs, func(i, j int) bool { return fs[i].Name < fs[j].Name })
	return &RecordType{fs}
}

func (t *RecordType) Kind() Kind { return KindRecord }

func (t *RecordType) Fields() []RecordField { return t.fields }

// Field returns the declared type of the named field.
func (t *RecordType) Field(name string) (Type, bool) {
	for _, f := range t.fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

func (t *RecordType) String() string {
	var b strings.Builder
	b.WriteString("[")
	for i, f := range t.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Type.String())
	}
	b.WriteString("]")
	return b.String()
}

func (t *RecordType) AssignableFrom(other Type) bool {
	if lenient(t, other) {
		return true
	}
	o, ok := other.(*RecordType)
	if !ok {
		return false
	}
	// Width subtyping: the source must provide every field we declare.
	for _, f := range t.fields {
		ft, ok := o.Field(f.Name)
		if !ok || !f.Type.AssignableFrom(ft) {
			return false
		}
	}
	return true
}

// Equal reports structural equality.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}
