package typecheck

import (
	"github.com/gosoy/soyc/ast"
	"github.com/gosoy/soyc/types"
)

// constraints maps the canonical form of an expression (its String()) to the
// type it is known to have on one branch of a condition.
type constraints map[string]types.Type

// narrow computes what a condition proves about its subexpressions: pos holds
// on the branch where the condition is true, neg where it is false.  Both maps
// may be empty; absence of a key means the condition proves nothing about it.
//
// The condition's expressions must already be resolved, since the narrowed
// types are derived from the types in effect where the condition appears.
func narrow(cond ast.Node) (pos, neg constraints) {
	switch cond := cond.(type) {
	case *ast.DataRefNode:
		// Truthiness: a truthy value is necessarily non-null.  The false
		// branch proves nothing; falsy covers null, 0, '' and false alike.
		if t := cond.TypeOrNil(); t != nil && types.IsNullable(t) {
			return constraints{cond.String(): types.NonNullable(t)}, constraints{}
		}
		return constraints{}, constraints{}
	case *ast.NotNode:
		pos, neg := narrow(cond.Arg)
		return neg, pos
	case *ast.AndNode:
		p1, n1 := narrow(cond.Arg1)
		p2, n2 := narrow(cond.Arg2)
		// Both conjuncts hold when true; either may have failed when false.
		return conjoin(p1, p2), disjoin(n1, n2)
	case *ast.OrNode:
		p1, n1 := narrow(cond.Arg1)
		p2, n2 := narrow(cond.Arg2)
		return disjoin(p1, p2), conjoin(n1, n2)
	case *ast.EqNode:
		if ref, ok := nullComparison(cond.Arg1, cond.Arg2); ok {
			if t := ref.TypeOrNil(); t != nil && types.IsNullable(t) {
				return constraints{ref.String(): types.Null},
					constraints{ref.String(): types.NonNullable(t)}
			}
		}
		return constraints{}, constraints{}
	case *ast.NotEqNode:
		if ref, ok := nullComparison(cond.Arg1, cond.Arg2); ok {
			if t := ref.TypeOrNil(); t != nil && types.IsNullable(t) {
				return constraints{ref.String(): types.NonNullable(t)},
					constraints{ref.String(): types.Null}
			}
		}
		return constraints{}, constraints{}
	case *ast.FunctionNode:
		if cond.Name == "isNonnull" && len(cond.Args) == 1 {
			if ref, ok := cond.Args[0].(*ast.DataRefNode); ok {
				if t := ref.TypeOrNil(); t != nil && types.IsNullable(t) {
					return constraints{ref.String(): types.NonNullable(t)},
						constraints{ref.String(): types.Null}
				}
			}
		}
		if cond.Name == "isNull" && len(cond.Args) == 1 {
			if ref, ok := cond.Args[0].(*ast.DataRefNode); ok {
				if t := ref.TypeOrNil(); t != nil && types.IsNullable(t) {
					return constraints{ref.String(): types.Null},
						constraints{ref.String(): types.NonNullable(t)}
				}
			}
		}
		return constraints{}, constraints{}
	}
	// Ternaries and elvis conditions deliberately prove nothing; narrowing
	// through expression-level branches is not attempted.
	return constraints{}, constraints{}
}

// nullComparison recognizes `$ref op null` and `null op $ref`.
func nullComparison(a, b ast.Node) (*ast.DataRefNode, bool) {
	if _, ok := a.(*ast.NullNode); ok {
		ref, ok := b.(*ast.DataRefNode)
		return ref, ok
	}
	if _, ok := b.(*ast.NullNode); ok {
		ref, ok := a.(*ast.DataRefNode)
		return ref, ok
	}
	return nil, false
}

// conjoin merges constraints that hold simultaneously.  A key present in both
// keeps the narrower type.
func conjoin(a, b constraints) constraints {
	var out = make(constraints, len(a)+len(b))
	for k, t := range a {
		out[k] = t
	}
	for k, t := range b {
		if prev, ok := out[k]; ok {
			out[k] = narrower(prev, t)
		} else {
			out[k] = t
		}
	}
	return out
}

// disjoin merges constraints of which at least one holds: only keys
// constrained on both sides survive, at the join of the two types.
func disjoin(a, b constraints) constraints {
	var out = make(constraints)
	for k, at := range a {
		if bt, ok := b[k]; ok {
			out[k] = types.Join(at, bt)
		}
	}
	return out
}

func narrower(a, b types.Type) types.Type {
	if a.AssignableFrom(b) {
		return b
	}
	return a
}
