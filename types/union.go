package types

import (
	"sort"
	"strings"
)

// UnionType holds two or more alternatives.  Members are flattened (never a
// union of unions), deduplicated, and kept in canonical order.  Construct
// unions only through Union.
type UnionType struct {
	Members []Type
}

// Union returns the union of the given types. Nested unions are flattened and
// duplicate members removed.  A union that collapses to one member returns
// that member; a union containing any or unknown collapses to that marker; a
// union containing error is error.
func Union(members ...Type) Type {
	var flat []Type
	var seen = map[string]bool{}
	var add func(t Type)
	add = func(t Type) {
		if t == nil || seen[Error.String()] {
			return
		}
		if u, ok := t.(*UnionType); ok {
			for _, m := range u.Members {
				add(m)
			}
			return
		}
		switch t.Kind() {
		case KindError:
			flat = append(flat[:0], Error)
			seen = map[string]bool{Error.String(): true}
			return
		}
		if !seen[t.String()] {
			seen[t.String()] = true
			flat = append(flat, t)
		}
	}
	for _, m := range members {
		if len(flat) == 1 && flat[0] == Error {
			break
		}
		add(m)
	}
	for _, m := range flat {
		switch m.Kind() {
		case KindAny:
			return Any
		case KindUnknown:
			return Unknown
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i].String() < flat[j].String() })
	return &UnionType{flat}
}

func (t *UnionType) Kind() Kind { return KindUnion }

func (t *UnionType) String() string {
	var names = make([]string, len(t.Members))
	for i, m := range t.Members {
		names[i] = m.String()
	}
	return strings.Join(names, "|")
}

func (t *UnionType) AssignableFrom(other Type) bool {
	if other.Kind() == KindError || other.Kind() == KindUnknown {
		return true
	}
	if o, ok := other.(*UnionType); ok {
		for _, m := range o.Members {
			if !t.AssignableFrom(m) {
				return false
			}
		}
		return true
	}
	for _, m := range t.Members {
		if m.AssignableFrom(other) {
			return true
		}
	}
	return false
}

// Contains reports whether some member of t accepts other exactly
// (structural equality, not assignability).
func (t *UnionType) Contains(other Type) bool {
	for _, m := range t.Members {
		if Equal(m, other) {
			return true
		}
	}
	return false
}

// Nullable returns t widened to include null.
func Nullable(t Type) Type {
	if IsNullable(t) {
		return t
	}
	return Union(t, Null)
}

// IsNullable reports whether null is assignable to t without leniency.
func IsNullable(t Type) bool {
	switch t.Kind() {
	case KindNull, KindAny, KindUnknown, KindError:
		return true
	case KindUnion:
		return t.(*UnionType).Contains(Null)
	}
	return false
}

// NonNullable returns t with the null alternative removed.  Narrowing a bare
// null leaves null; there is nothing left to narrow to.
func NonNullable(t Type) Type {
	u, ok := t.(*UnionType)
	if !ok {
		return t
	}
	var rest []Type
	for _, m := range u.Members {
		if m.Kind() != KindNull {
			rest = append(rest, m)
		}
	}
	if len(rest) == 0 {
		return Null
	}
	return Union(rest...)
}

// Join returns the lowest common type of a and b: a if it subsumes b, b if it
// subsumes a, otherwise their flattened union.  Nil inputs are identity.
func Join(a, b Type) Type {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Kind() == KindError || b.Kind() == KindError:
		return Error
	case a.Kind() == KindUnknown || b.Kind() == KindUnknown:
		return Unknown
	case a.AssignableFrom(b):
		return a
	case b.AssignableFrom(a):
		return b
	}
	return Union(a, b)
}

// JoinArithmetic is the numeric promotion table: int op int is int, anything
// involving float is float, unknown stays unknown, everything else has no
// arithmetic join (nil).
func JoinArithmetic(a, b Type) Type {
	switch {
	case a.Kind() == KindError || b.Kind() == KindError:
		return Error
	case a.Kind() == KindUnknown || b.Kind() == KindUnknown:
		return Unknown
	case a.Kind() == KindInt && b.Kind() == KindInt:
		return Int
	case isNumeric(a) && isNumeric(b):
		return Float
	}
	return nil
}

func isNumeric(t Type) bool {
	return t.Kind() == KindInt || t.Kind() == KindFloat
}
