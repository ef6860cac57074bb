package types

import (
	"fmt"
	"strings"
	"unicode"
)

// Resolver maps a nominal type name (e.g. a proto message) to a Type.
// ProtoRegistry satisfies it.
type Resolver interface {
	Type(name string) (Type, bool)
}

// Parse parses a type expression as written in a {@param} declaration, e.g.
// "string", "?string", "list<int>", "map<string,bool>", "int|float",
// "[name: string, age: int]".
// Nominal names are resolved through the optional resolver.
func Parse(s string, resolver Resolver) (Type, error) {
	p := &typeParser{src: s, resolver: resolver}
	t, err := p.union()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("type %q: unexpected %q", s, p.src[p.pos:])
	}
	return t, nil
}

type typeParser struct {
	src      string
	pos      int
	resolver Resolver
}

func (p *typeParser) union() (Type, error) {
	t, err := p.unary()
	if err != nil {
		return nil, err
	}
	members := []Type{t}
	for p.eat('|') {
		t, err = p.unary()
		if err != nil {
			return nil, err
		}
		members = append(members, t)
	}
	if len(members) == 1 {
		return members[0], nil
	}
	return Union(members...), nil
}

func (p *typeParser) unary() (Type, error) {
	if p.eat('?') {
		t, err := p.unary()
		if err != nil {
			return nil, err
		}
		return Nullable(t), nil
	}
	return p.atom()
}

func (p *typeParser) atom() (Type, error) {
	if p.eat('[') {
		return p.record()
	}
	name := p.ident()
	if name == "" {
		return nil, fmt.Errorf("type %q: expected a type name at offset %d", p.src, p.pos)
	}
	switch name {
	case "any":
		return Any, nil
	case "null":
		return Null, nil
	case "bool":
		return Bool, nil
	case "int":
		return Int, nil
	case "float":
		return Float, nil
	case "number":
		return Union(Int, Float), nil
	case "string":
		return String, nil
	case "html", "js", "css", "uri", "trusted_resource_uri", "attributes":
		return SanitizedOfKind(name), nil
	case "list":
		args, err := p.typeArgs(1)
		if err != nil {
			return nil, err
		}
		return &ListType{args[0]}, nil
	case "map":
		args, err := p.typeArgs(2)
		if err != nil {
			return nil, err
		}
		return &MapType{args[0], args[1]}, nil
	case "legacy_object_map":
		args, err := p.typeArgs(2)
		if err != nil {
			return nil, err
		}
		return &LegacyObjectMapType{args[0], args[1]}, nil
	}
	if p.resolver != nil {
		if t, ok := p.resolver.Type(name); ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unknown type %q", name)
}

// record parses the fields of a record type; the leading '[' is consumed.
func (p *typeParser) record() (Type, error) {
	var fields = map[string]Type{}
	if p.eat(']') {
		return Record(fields), nil
	}
	for {
		name := p.ident()
		if name == "" {
			return nil, fmt.Errorf("type %q: expected a field name at offset %d", p.src, p.pos)
		}
		if !p.eat(':') {
			return nil, fmt.Errorf("type %q: expected %q after field %q", p.src, ":", name)
		}
		t, err := p.union()
		if err != nil {
			return nil, err
		}
		fields[name] = t
		if !p.eat(',') {
			break
		}
	}
	if !p.eat(']') {
		return nil, fmt.Errorf("type %q: expected %q", p.src, "]")
	}
	return Record(fields), nil
}

func (p *typeParser) typeArgs(n int) ([]Type, error) {
	if !p.eat('<') {
		return nil, fmt.Errorf("type %q: expected %q", p.src, "<")
	}
	var args []Type
	for {
		t, err := p.union()
		if err != nil {
			return nil, err
		}
		args = append(args, t)
		if !p.eat(',') {
			break
		}
	}
	if !p.eat('>') {
		return nil, fmt.Errorf("type %q: expected %q", p.src, ">")
	}
	if len(args) != n {
		return nil, fmt.Errorf("type %q: expected %d type parameters, got %d", p.src, n, len(args))
	}
	return args, nil
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '.' {
			p.pos++
		} else {
			break
		}
	}
	return strings.TrimSpace(p.src[start:p.pos])
}

func (p *typeParser) eat(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}
