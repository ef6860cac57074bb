package typecheck

import (
	"github.com/gosoy/soyc/types"
)

// substitution is one link in an immutable chain of narrowing scopes.  Within
// its extent, the expression whose canonical form is key has the given type
// instead of its declared one.  Chains are extended by pushing and abandoned
// by restoring the previous head, so enclosing scopes are never mutated.
type substitution struct {
	parent *substitution
	key    string
	typ    types.Type
}

// lookup returns the innermost narrowing recorded for the given canonical
// expression form.
func (s *substitution) lookup(key string) (types.Type, bool) {
	for ; s != nil; s = s.parent {
		if s.key == key {
			return s.typ, true
		}
	}
	return nil, false
}

// push extends the chain with every constraint in cs and returns the new head.
func (s *substitution) push(cs constraints) *substitution {
	for key, typ := range cs {
		s = &substitution{s, key, typ}
	}
	return s
}
