package typecheck

import (
	"github.com/gosoy/soyc/ast"
	"github.com/gosoy/soyc/types"
)

// signatures declares the built-in function signatures, keyed by name with one
// entry per supported arity.  Signatures are shared; resolution stores the
// matching one on the call node.  Functions whose return type depends on the
// argument types (keys, augmentMap, min, ...) are derived in functionType and
// appear here only for their parameter checks.
var signatures = map[string][]*ast.FuncSignature{
	"isNonnull":  {sig(types.Bool, types.Any)},
	"isNull":     {sig(types.Bool, types.Any)},
	"length":     {sig(types.Int, &types.ListType{El: types.Any})},
	"keys":       {sig(&types.ListType{El: types.Any}, types.Any)},
	"augmentMap": {sig(types.Any, types.Any, types.Any)},
	"round": {
		sig(types.Int, anyNumber),
		sig(types.Float, anyNumber, types.Int),
	},
	"floor":       {sig(types.Int, anyNumber)},
	"ceiling":     {sig(types.Int, anyNumber)},
	"min":         {sig(types.Any, anyNumber, anyNumber)},
	"max":         {sig(types.Any, anyNumber, anyNumber)},
	"randomInt":   {sig(types.Int, types.Int)},
	"strContains": {sig(types.Bool, types.String, types.String)},
	"range": {
		sig(&types.ListType{El: types.Int}, types.Int),
		sig(&types.ListType{El: types.Int}, types.Int, types.Int),
		sig(&types.ListType{El: types.Int}, types.Int, types.Int, types.Int),
	},
	"hasData": {sig(types.Bool)},

	// Loop functions take the iteration variable of an enclosing foreach.
	"index":   {sig(types.Int, types.Any)},
	"isFirst": {sig(types.Bool, types.Any)},
	"isLast":  {sig(types.Bool, types.Any)},

	"listConcat":           {sig(types.Any, &types.ListType{El: types.Any}, &types.ListType{El: types.Any})},
	"mapToLegacyObjectMap": {sig(types.Any, types.Any)},
	"legacyObjectMapToMap": {sig(types.Any, types.Any)},
}

// anyNumber accepts either numeric type.
var anyNumber = types.Union(types.Int, types.Float)

func sig(result types.Type, params ...types.Type) *ast.FuncSignature {
	return &ast.FuncSignature{Params: params, Result: result}
}

// derivedReturn computes the return types that depend on argument types.  It
// returns nil when the function has no special derivation, and falls back to
// unknown when the arguments don't determine a better answer.
func derivedReturn(name string, args []types.Type) types.Type {
	switch name {
	case "keys":
		if len(args) != 1 {
			return nil
		}
		switch t := args[0].(type) {
		case *types.LegacyObjectMapType:
			return &types.ListType{El: t.Key}
		case *types.MapType:
			if t.Key == nil {
				return types.EmptyList
			}
			return &types.ListType{El: t.Key}
		}
		return &types.ListType{El: types.Unknown}
	case "augmentMap":
		if len(args) != 2 {
			return nil
		}
		a, aok := args[0].(*types.LegacyObjectMapType)
		b, bok := args[1].(*types.LegacyObjectMapType)
		if aok && bok {
			return &types.LegacyObjectMapType{
				Key:   types.Join(a.Key, b.Key),
				Value: types.Join(a.Value, b.Value),
			}
		}
		return types.Unknown
	case "min", "max":
		if len(args) != 2 {
			return nil
		}
		if t := types.JoinArithmetic(args[0], args[1]); t != nil {
			return t
		}
		return types.Unknown
	case "listConcat":
		if len(args) != 2 {
			return nil
		}
		a, aok := args[0].(*types.ListType)
		b, bok := args[1].(*types.ListType)
		if aok && bok {
			return &types.ListType{El: types.Join(a.El, b.El)}
		}
		return types.Unknown
	case "mapToLegacyObjectMap":
		if len(args) != 1 {
			return nil
		}
		if t, ok := args[0].(*types.MapType); ok && t.Key != nil {
			return &types.LegacyObjectMapType{Key: t.Key, Value: t.Value}
		}
		return types.Unknown
	case "legacyObjectMapToMap":
		if len(args) != 1 {
			return nil
		}
		if t, ok := args[0].(*types.LegacyObjectMapType); ok {
			return &types.MapType{Key: t.Key, Value: t.Value}
		}
		return types.Unknown
	}
	return nil
}
