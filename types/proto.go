package types

import (
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

// ProtoType is a nominal message type backed by a protobuf descriptor.
type ProtoType struct {
	Desc protoreflect.MessageDescriptor
}

func (t *ProtoType) Kind() Kind     { return KindProto }
func (t *ProtoType) String() string { return string(t.Desc.FullName()) }

func (t *ProtoType) AssignableFrom(other Type) bool {
	if lenient(t, other) {
		return true
	}
	o, ok := other.(*ProtoType)
	return ok && o.Desc.FullName() == t.Desc.FullName()
}

// FieldType maps a proto field to its Soy type.  Singular message fields are
// nullable since they may be unset.
func (t *ProtoType) FieldType(name string) (Type, bool) {
	fd := t.Desc.Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		fd = t.Desc.Fields().ByJSONName(name)
	}
	if fd == nil {
		return nil, false
	}
	return fieldSoyType(fd), true
}

func fieldSoyType(fd protoreflect.FieldDescriptor) Type {
	if fd.IsMap() {
		return &MapType{scalarSoyType(fd.MapKey()), scalarSoyType(fd.MapValue())}
	}
	if fd.IsList() {
		return &ListType{scalarSoyType(fd)}
	}
	t := scalarSoyType(fd)
	if fd.Kind() == protoreflect.MessageKind || fd.Kind() == protoreflect.GroupKind {
		return Nullable(t)
	}
	return t
}

func scalarSoyType(fd protoreflect.FieldDescriptor) Type {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return Bool
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind,
		protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return Int
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return Float
	case protoreflect.StringKind, protoreflect.BytesKind:
		return String
	case protoreflect.EnumKind:
		return &ProtoEnumType{fd.Enum()}
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return &ProtoType{fd.Message()}
	}
	return Unknown
}

// ProtoEnumType is a nominal enum type backed by a protobuf descriptor.
// Enum values are ints at runtime.
type ProtoEnumType struct {
	Desc protoreflect.EnumDescriptor
}

func (t *ProtoEnumType) Kind() Kind     { return KindProtoEnum }
func (t *ProtoEnumType) String() string { return string(t.Desc.FullName()) }

func (t *ProtoEnumType) AssignableFrom(other Type) bool {
	if lenient(t, other) {
		return true
	}
	if other.Kind() == KindInt {
		return true
	}
	o, ok := other.(*ProtoEnumType)
	return ok && o.Desc.FullName() == t.Desc.FullName()
}

// ValueNumber resolves an enum value name to its number.
func (t *ProtoEnumType) ValueNumber(name string) (int64, bool) {
	vd := t.Desc.Values().ByName(protoreflect.Name(name))
	if vd == nil {
		return 0, false
	}
	return int64(vd.Number()), true
}

// ProtoRegistry resolves proto type names to Soy types.  The zero value uses
// the process-global descriptor registry.
type ProtoRegistry struct {
	Files *protoregistry.Files
}

func (r ProtoRegistry) files() *protoregistry.Files {
	if r.Files != nil {
		return r.Files
	}
	return protoregistry.GlobalFiles
}

// Type resolves a fully-qualified message or enum name.
func (r ProtoRegistry) Type(name string) (Type, bool) {
	d, err := r.files().FindDescriptorByName(protoreflect.FullName(name))
	if err != nil {
		return nil, false
	}
	switch d := d.(type) {
	case protoreflect.MessageDescriptor:
		return &ProtoType{d}, true
	case protoreflect.EnumDescriptor:
		return &ProtoEnumType{d}, true
	}
	return nil, false
}
