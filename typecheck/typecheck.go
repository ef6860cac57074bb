// Package typecheck resolves a static type for every expression in a set of
// parsed soy files.
//
// Types flow from the declarations: {@param} headers, {let} bindings and
// foreach variables.  Conditions narrow the types of data references within
// the branches they guard, so a param declared `string|null` may be printed
// as a plain string inside `{if $param}`.  Soydoc-only params have no declared
// type and resolve to unknown, which checks against everything.
//
// Errors are accumulated rather than aborting, so one run reports every
// problem in the file set.
package typecheck

import (
	"github.com/gosoy/soyc/ast"
	"github.com/gosoy/soyc/data"
	"github.com/gosoy/soyc/errortypes"
	"github.com/gosoy/soyc/template"
	"github.com/gosoy/soyc/types"
)

// Check resolves the type of every expression in every template in the
// registry.  Nominal type names in {@param} declarations are resolved against
// the given resolver, which may be nil if none are used.  All type errors are
// collected into the returned error; nil means the registry checked clean.
func Check(reg *template.Registry, resolver types.Resolver) error {
	var reporter errortypes.Reporter
	CheckWith(reg, resolver, &reporter)
	return reporter.ToError()
}

// CheckWith is Check reporting through the caller's reporter, for callers
// accumulating diagnostics across passes.
func CheckWith(reg *template.Registry, resolver types.Resolver, reporter *errortypes.Reporter) {
	for _, t := range reg.Templates {
		var c = &checker{
			registry: reg,
			resolver: resolver,
			reporter: reporter,
			template: t,
		}
		c.checkTemplate()
	}
}

type checker struct {
	registry *template.Registry
	resolver types.Resolver
	reporter *errortypes.Reporter
	template template.Template

	// scopes holds declared variables, innermost last.
	scopes []map[string]types.Type

	// subs is the head of the active narrowing chain.
	subs *substitution
}

func (c *checker) errorf(node ast.Node, format string, args ...interface{}) {
	var name = c.template.Node.Name
	c.reporter.Errorf(c.registry.FileName(name),
		c.registry.LineNumber(name, node), c.registry.ColNumber(name, node),
		format, args...)
}

func (c *checker) checkTemplate() {
	c.pushScope()
	defer c.popScope()
	for _, p := range c.template.Node.Params {
		var typ types.Type = types.Unknown
		if t, err := types.Parse(p.TypeExpr, c.resolver); err != nil {
			c.errorf(p, "param %s: %v", p.Name, err)
		} else {
			typ = t
		}
		if p.Optional {
			// An optional param may be absent entirely.
			typ = types.Nullable(typ)
		}
		c.declare(p.Name, typ)
	}
	for _, p := range c.template.Doc.Params {
		if _, ok := c.lookupVar(p.Name); !ok {
			c.declare(p.Name, types.Unknown)
		}
	}
	c.walk(c.template.Node.Body)
}

// Scopes ----------

func (c *checker) pushScope() {
	c.scopes = append(c.scopes, make(map[string]types.Type))
}

func (c *checker) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *checker) declare(name string, typ types.Type) {
	c.scopes[len(c.scopes)-1][name] = typ
}

func (c *checker) lookupVar(name string) (types.Type, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if t, ok := c.scopes[i][name]; ok {
			return t, true
		}
	}
	return nil, false
}

// withConstraints runs fn with the given narrowings in effect.
func (c *checker) withConstraints(cs constraints, fn func()) {
	var saved = c.subs
	c.subs = c.subs.push(cs)
	fn()
	c.subs = saved
}

// Statements ----------

func (c *checker) walk(node ast.Node) {
	switch node := node.(type) {
	case *ast.ListNode:
		c.walkBlock(node.Nodes)
	case *ast.RawTextNode, *ast.LiteralNode, *ast.DebuggerNode:
		// no expressions
	case *ast.PrintNode:
		c.expr(node.Arg)
		for _, d := range node.Directives {
			for _, arg := range d.Args {
				c.expr(arg)
			}
		}
	case *ast.MsgNode:
		c.walk(node.Body)
	case *ast.CssNode:
		if node.Expr != nil {
			c.expr(node.Expr)
		}
	case *ast.LogNode:
		c.walk(node.Body)
	case *ast.IfNode:
		c.walkIf(node)
	case *ast.SwitchNode:
		c.walkSwitch(node)
	case *ast.ForNode:
		c.walkFor(node)
	case *ast.CallNode:
		c.walkCall(node)
	case *ast.DelCallNode:
		c.walkDelCall(node)
	case *ast.LetValueNode:
		// Bindings outside a block resolve but do not scope anywhere.
		c.expr(node.Expr)
	case *ast.LetContentNode:
		c.walk(node.Body)
	}
}

// walkBlock resolves a statement list, bringing each {let} into scope for the
// statements after it.
func (c *checker) walkBlock(nodes []ast.Node) {
	c.pushScope()
	defer c.popScope()
	for _, node := range nodes {
		switch node := node.(type) {
		case *ast.LetValueNode:
			c.declare(node.Name, c.expr(node.Expr))
		case *ast.LetContentNode:
			c.walk(node.Body)
			c.declare(node.Name, c.contentType(node, node.Kind))
		default:
			c.walk(node)
		}
	}
}

// contentType is the type of a rendered content block with the given declared
// kind.  Unkinded blocks coerce to plain strings.
func (c *checker) contentType(node ast.Node, kind string) types.Type {
	if kind == "" {
		return types.String
	}
	if t := types.SanitizedOfKind(kind); t != nil {
		return t
	}
	c.errorf(node, "unknown content kind %q", kind)
	return types.Error
}

func (c *checker) walkIf(node *ast.IfNode) {
	// negs accumulates what the failure of the preceding conditions proved.
	var negs = constraints{}
	for _, branch := range node.Conds {
		if branch.Cond == nil {
			c.withConstraints(negs, func() { c.walk(branch.Body) })
			continue
		}
		var pos, neg constraints
		c.withConstraints(negs, func() {
			c.expr(branch.Cond)
			pos, neg = narrow(branch.Cond)
			c.withConstraints(pos, func() { c.walk(branch.Body) })
		})
		negs = conjoin(negs, neg)
	}
}

func (c *checker) walkSwitch(node *ast.SwitchNode) {
	var vt = c.expr(node.Value)
	for _, cs := range node.Cases {
		for _, v := range cs.Values {
			var ct = c.expr(v)
			if !equatable(vt, ct) {
				c.errorf(v, "case value of type %s is not comparable to switch value of type %s", ct, vt)
			}
		}
		c.walk(cs.Body)
	}
}

func (c *checker) walkFor(node *ast.ForNode) {
	var lt = c.expr(node.List)
	c.pushScope()
	c.declare(node.Var, c.elementType(node.List, lt))
	c.walk(node.Body)
	c.popScope()
	if node.IfEmpty != nil {
		c.walk(node.IfEmpty)
	}
}

// elementType is the type bound to a foreach variable iterating a value of
// type t.
func (c *checker) elementType(node ast.Node, t types.Type) types.Type {
	switch t := t.(type) {
	case *types.ListType:
		if t.El == nil {
			return types.Unknown
		}
		return t.El
	case *types.UnionType:
		var el types.Type
		for _, m := range t.Members {
			el = types.Join(el, c.elementType(node, m))
		}
		return el
	}
	switch t.Kind() {
	case types.KindAny, types.KindUnknown:
		return types.Unknown
	case types.KindError:
		return types.Error
	}
	c.errorf(node, "cannot iterate over %s", t)
	return types.Error
}

func (c *checker) walkCall(node *ast.CallNode) {
	if node.Data != nil {
		c.expr(node.Data)
	}
	var calleeName = node.Callee
	if calleeName == "" {
		calleeName = node.Name
	}
	callee, found := c.registry.Template(calleeName)
	for _, param := range node.Params {
		switch param := param.(type) {
		case *ast.CallParamValueNode:
			var pt = c.expr(param.Value)
			if found {
				c.checkCallParam(param, param.Key, pt, callee)
			}
		case *ast.CallParamContentNode:
			c.walk(param.Content)
			var pt = c.contentType(param, param.Kind)
			if found {
				c.checkCallParam(param, param.Key, pt, callee)
			}
		}
	}
}

func (c *checker) walkDelCall(node *ast.DelCallNode) {
	if node.Variant != nil {
		c.expr(node.Variant)
	}
	if node.Data != nil {
		c.expr(node.Data)
	}
	var callees = c.registry.DelTemplates(node.Name)
	for _, param := range node.Params {
		switch param := param.(type) {
		case *ast.CallParamValueNode:
			var pt = c.expr(param.Value)
			for _, callee := range callees {
				c.checkCallParam(param, param.Key, pt, callee)
			}
		case *ast.CallParamContentNode:
			c.walk(param.Content)
			var pt = c.contentType(param, param.Kind)
			for _, callee := range callees {
				c.checkCallParam(param, param.Key, pt, callee)
			}
		}
	}
}

func (c *checker) checkCallParam(node ast.Node, key string, got types.Type, callee template.Template) {
	for _, decl := range callee.Node.Params {
		if decl.Name != key {
			continue
		}
		want, err := types.Parse(decl.TypeExpr, c.resolver)
		if err != nil {
			return // reported at the declaration
		}
		if decl.Optional {
			want = types.Nullable(want)
		}
		if !want.AssignableFrom(got) {
			c.errorf(node, "param %q has type %s, but %s declares it as %s",
				key, got, callee.Node.Name, want)
		}
		return
	}
}

// Expressions ----------

// expr resolves the type of an expression, stamps it on the node, and returns
// it.  Resolution is bottom-up and left-to-right; an operand that already
// failed resolves to the error type and is not reported again.
func (c *checker) expr(node ast.Node) types.Type {
	var t = c.exprType(node)
	if e, ok := node.(ast.Expr); ok {
		e.SetType(t)
	}
	return t
}

func (c *checker) exprType(node ast.Node) types.Type {
	switch node := node.(type) {
	case *ast.NullNode:
		return types.Null
	case *ast.BoolNode:
		return types.Bool
	case *ast.IntNode:
		return types.Int
	case *ast.FloatNode:
		return types.Float
	case *ast.StringNode:
		return types.String
	case *ast.GlobalNode:
		return typeOfValue(node.Value)
	case *ast.DataRefNode:
		return c.dataRefType(node)
	case *ast.ListLiteralNode:
		var el types.Type
		for _, item := range node.Items {
			el = types.Join(el, c.expr(item))
		}
		if el == nil {
			return types.EmptyList
		}
		return &types.ListType{El: el}
	case *ast.MapLiteralNode:
		return c.mapLiteralType(node)
	case *ast.FunctionNode:
		return c.functionType(node)
	case *ast.NotNode:
		c.expr(node.Arg)
		return types.Bool
	case *ast.NegateNode:
		return c.negateType(node)
	case *ast.AndNode:
		c.expr(node.Arg1)
		pos, _ := narrow(node.Arg1)
		c.withConstraints(pos, func() { c.expr(node.Arg2) })
		return types.Bool
	case *ast.OrNode:
		c.expr(node.Arg1)
		_, neg := narrow(node.Arg1)
		c.withConstraints(neg, func() { c.expr(node.Arg2) })
		return types.Bool
	case *ast.ElvisNode:
		var a = c.expr(node.Arg1)
		var b = c.expr(node.Arg2)
		return types.Join(types.NonNullable(a), b)
	case *ast.TernNode:
		// The arms are typed without narrowing from the condition.
		c.expr(node.Arg1)
		var a = c.expr(node.Arg2)
		var b = c.expr(node.Arg3)
		return types.Join(a, b)
	case *ast.MulNode:
		return c.arithmeticType(node, node.Arg1, node.Arg2, "*")
	case *ast.DivNode:
		// Division always yields a float, even for int operands.
		var t = c.arithmeticType(node, node.Arg1, node.Arg2, "/")
		if t.Kind() == types.KindInt {
			return types.Float
		}
		return t
	case *ast.ModNode:
		return c.arithmeticType(node, node.Arg1, node.Arg2, "%")
	case *ast.AddNode:
		return c.addType(node)
	case *ast.SubNode:
		return c.arithmeticType(node, node.Arg1, node.Arg2, "-")
	case *ast.EqNode:
		return c.equalityType(node, node.Arg1, node.Arg2)
	case *ast.NotEqNode:
		return c.equalityType(node, node.Arg1, node.Arg2)
	case *ast.GtNode:
		return c.orderingType(node, node.Arg1, node.Arg2, ">")
	case *ast.GteNode:
		return c.orderingType(node, node.Arg1, node.Arg2, ">=")
	case *ast.LtNode:
		return c.orderingType(node, node.Arg1, node.Arg2, "<")
	case *ast.LteNode:
		return c.orderingType(node, node.Arg1, node.Arg2, "<=")
	}
	c.errorf(node, "unexpected expression %v", node)
	return types.Error
}

func (c *checker) negateType(node *ast.NegateNode) types.Type {
	var t = c.expr(node.Arg)
	switch t.Kind() {
	case types.KindInt, types.KindFloat:
		return t
	case types.KindAny, types.KindUnknown:
		return types.Unknown
	case types.KindError:
		return types.Error
	}
	c.errorf(node, "cannot negate %s", t)
	return types.Error
}

func (c *checker) arithmeticType(node, arg1, arg2 ast.Node, op string) types.Type {
	var a, b = c.expr(arg1), c.expr(arg2)
	if t := types.JoinArithmetic(a, b); t != nil {
		return t
	}
	c.errorf(node, "operator %s requires numeric operands, got %s and %s", op, a, b)
	return types.Error
}

// addType handles +, which doubles as string concatenation.  Any string-ish
// operand makes the whole expression a string; sanitized content degrades to
// a plain string when concatenated.
func (c *checker) addType(node *ast.AddNode) types.Type {
	var a, b = c.expr(node.Arg1), c.expr(node.Arg2)
	if a.Kind() == types.KindError || b.Kind() == types.KindError {
		return types.Error
	}
	if stringish(a) || stringish(b) {
		return types.String
	}
	if t := types.JoinArithmetic(a, b); t != nil {
		return t
	}
	c.errorf(node, "operator + requires numeric or string operands, got %s and %s", a, b)
	return types.Error
}

func stringish(t types.Type) bool {
	return t.Kind() == types.KindString || types.IsSanitized(t)
}

func (c *checker) equalityType(node, arg1, arg2 ast.Node) types.Type {
	var a, b = c.expr(arg1), c.expr(arg2)
	if !equatable(a, b) {
		c.errorf(node, "values of type %s and %s are never equal", a, b)
	}
	return types.Bool
}

func (c *checker) orderingType(node, arg1, arg2 ast.Node, op string) types.Type {
	var a, b = c.expr(arg1), c.expr(arg2)
	switch {
	case a.Kind() == types.KindError || b.Kind() == types.KindError:
	case types.JoinArithmetic(a, b) != nil:
	case stringish(a) && stringish(b):
	default:
		c.errorf(node, "operator %s requires two numbers or two strings, got %s and %s", op, a, b)
	}
	return types.Bool
}

// equatable reports whether values of the two types can ever compare equal.
func equatable(a, b types.Type) bool {
	switch a.Kind() {
	case types.KindAny, types.KindUnknown, types.KindError:
		return true
	}
	switch b.Kind() {
	case types.KindAny, types.KindUnknown, types.KindError:
		return true
	}
	if types.JoinArithmetic(a, b) != nil {
		return true
	}
	return a.AssignableFrom(b) || b.AssignableFrom(a)
}

func (c *checker) mapLiteralType(node *ast.MapLiteralNode) types.Type {
	if len(node.Items) == 0 {
		return types.EmptyMap
	}
	var value types.Type
	var seen = make(map[string]int, len(node.Items))
	for _, entry := range node.Items {
		var t = c.expr(entry.Value)
		seen[entry.Key]++
		switch seen[entry.Key] {
		case 1:
			// The first occurrence wins; shadowed values still typecheck
			// but stay out of the join.
			value = types.Join(value, t)
		case 2:
			c.errorf(entry, "duplicate map key %q", entry.Key)
		}
	}
	return &types.LegacyObjectMapType{Key: types.String, Value: value}
}

func (c *checker) functionType(node *ast.FunctionNode) types.Type {
	var args = make([]types.Type, len(node.Args))
	for i, arg := range node.Args {
		args[i] = c.expr(arg)
	}
	var sigs, known = signatures[node.Name]
	if !known {
		// Plugin functions have no declared signature.
		return types.Unknown
	}
	for _, sig := range sigs {
		if len(sig.Params) != len(args) {
			continue
		}
		node.Signature = sig
		for i, want := range sig.Params {
			if !want.AssignableFrom(args[i]) {
				c.errorf(node.Args[i], "argument %d of %s() must be %s, not %s",
					i+1, node.Name, want, args[i])
			}
		}
		if t := derivedReturn(node.Name, args); t != nil {
			return t
		}
		return sig.Result
	}
	// No signature matches the arity; assume an overload we don't know.
	return types.Unknown
}

// typeOfValue maps a global's compile-time value to its type.
func typeOfValue(v data.Value) types.Type {
	switch v.(type) {
	case data.Bool:
		return types.Bool
	case data.Int:
		return types.Int
	case data.Float:
		return types.Float
	case data.String:
		return types.String
	case data.Null:
		return types.Null
	case data.List:
		return &types.ListType{El: types.Unknown}
	case data.Map:
		return &types.LegacyObjectMapType{Key: types.String, Value: types.Unknown}
	}
	return types.Unknown
}

// Data references ----------

// dataRefType resolves $name.access... against the scope, applying any active
// narrowing at each step along the reference.
func (c *checker) dataRefType(node *ast.DataRefNode) types.Type {
	var base types.Type
	var prefix = "$" + node.Key
	if t, ok := c.subs.lookup(prefix); ok {
		base = t
	} else if t, ok := c.lookupVar(node.Key); ok {
		base = t
	} else {
		// Undefined variables are diagnosed by the data ref check pass.
		base = types.Unknown
	}
	for _, access := range node.Access {
		base = c.accessType(access, base)
		if a, ok := access.(ast.Expr); ok {
			a.SetType(base)
		}
		prefix += access.String()
		if t, ok := c.subs.lookup(prefix); ok {
			base = t
		}
	}
	return base
}

func (c *checker) accessType(access ast.Node, base types.Type) types.Type {
	switch access := access.(type) {
	case *ast.DataRefKeyNode:
		return c.fieldType(access, base, access.Key, access.NullSafe)
	case *ast.DataRefIndexNode:
		return c.indexType(access, base, access.NullSafe)
	case *ast.DataRefExprNode:
		var key = c.expr(access.Arg)
		return c.itemType(access, base, key, access.NullSafe)
	}
	c.errorf(access, "unexpected access %v", access)
	return types.Error
}

func (c *checker) fieldType(node ast.Node, base types.Type, key string, nullSafe bool) types.Type {
	switch t := base.(type) {
	case *types.UnionType:
		var result types.Type
		for _, m := range t.Members {
			if m.Kind() == types.KindNull {
				if nullSafe {
					result = types.Join(result, types.Null)
				} else {
					c.errorf(node, "field %q of nullable %s requires ?. access", key, base)
				}
				continue
			}
			result = types.Join(result, c.fieldType(node, m, key, nullSafe))
		}
		if result == nil {
			return types.Error
		}
		return result
	case *types.RecordType:
		if ft, ok := t.Field(key); ok {
			return ft
		}
		var names []string
		for _, f := range t.Fields() {
			names = append(names, f.Name)
		}
		c.errorf(node, "record %s has no field %q%s", base, key, errortypes.DidYouMean(key, names))
		return types.Error
	case *types.LegacyObjectMapType:
		return t.Value
	case *types.ProtoType:
		if ft, ok := t.FieldType(key); ok {
			return ft
		}
		c.errorf(node, "message %s has no field %q", base, key)
		return types.Error
	}
	switch base.Kind() {
	case types.KindAny, types.KindUnknown:
		return types.Unknown
	case types.KindError:
		return types.Error
	case types.KindNull:
		c.errorf(node, "field %q of null", key)
		return types.Error
	}
	c.errorf(node, "type %s does not support field access", base)
	return types.Error
}

func (c *checker) indexType(node ast.Node, base types.Type, nullSafe bool) types.Type {
	switch t := base.(type) {
	case *types.UnionType:
		var result types.Type
		for _, m := range t.Members {
			if m.Kind() == types.KindNull {
				if nullSafe {
					result = types.Join(result, types.Null)
				} else {
					c.errorf(node, "indexing nullable %s requires ?. access", base)
				}
				continue
			}
			result = types.Join(result, c.indexType(node, m, nullSafe))
		}
		if result == nil {
			return types.Error
		}
		return result
	case *types.ListType:
		if t.El == nil {
			return types.Unknown
		}
		return t.El
	}
	switch base.Kind() {
	case types.KindAny, types.KindUnknown:
		return types.Unknown
	case types.KindError:
		return types.Error
	}
	c.errorf(node, "type %s does not support indexing", base)
	return types.Error
}

func (c *checker) itemType(node ast.Node, base types.Type, key types.Type, nullSafe bool) types.Type {
	switch t := base.(type) {
	case *types.UnionType:
		var result types.Type
		for _, m := range t.Members {
			if m.Kind() == types.KindNull {
				// Null-safe item access skips the null alternative.
				if !nullSafe {
					c.errorf(node, "item access on nullable %s requires ?[] access", base)
				}
				continue
			}
			result = types.Join(result, c.itemType(node, m, key, nullSafe))
		}
		if result == nil {
			return types.Error
		}
		return result
	case *types.ListType:
		if !types.Int.AssignableFrom(key) {
			c.errorf(node, "list index must be an int, not %s", key)
		}
		if t.El == nil {
			return types.Unknown
		}
		return t.El
	case *types.MapType:
		if t.Value == nil {
			return types.Unknown
		}
		if !t.Key.AssignableFrom(key) {
			c.errorf(node, "map key must be %s, not %s", t.Key, key)
		}
		return t.Value
	case *types.LegacyObjectMapType:
		if !t.Key.AssignableFrom(key) {
			c.errorf(node, "map key must be %s, not %s", t.Key, key)
		}
		return t.Value
	}
	switch base.Kind() {
	case types.KindAny, types.KindUnknown:
		return types.Unknown
	case types.KindError:
		return types.Error
	}
	c.errorf(node, "type %s does not support item access", base)
	return types.Error
}
