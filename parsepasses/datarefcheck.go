// Package parsepasses provides checks and transformations that run on a
// template registry between parsing and escaping.
//
// CheckDataRefs validates that:
//  1. all data references are provided by @param declarations, {let} nodes, or
//     foreach variables
//  2. any data declared as a @param is used by the template (or passed via
//     {call})
//  3. all {call} params are declared by the called template
//  4. a {call}'ed template is passed all required @params, or a data attribute
//  5. {call}'d templates actually exist in the registry
//  6. any variable created by {let} is used somewhere
package parsepasses

import (
	"strings"

	"github.com/gosoy/soyc/ast"
	"github.com/gosoy/soyc/errortypes"
	"github.com/gosoy/soyc/template"
)

// CheckDataRefs runs the data reference checks on every template in the
// registry.  All problems found are collected into the returned error; nil
// means the registry checked clean.
func CheckDataRefs(reg *template.Registry) error {
	var reporter errortypes.Reporter
	CheckDataRefsWith(reg, &reporter)
	return reporter.ToError()
}

// CheckDataRefsWith is CheckDataRefs reporting through the caller's reporter,
// for callers accumulating diagnostics across passes.
func CheckDataRefsWith(reg *template.Registry, reporter *errortypes.Reporter) {
	for _, t := range reg.Templates {
		var c = &refChecker{
			registry: reg,
			reporter: reporter,
			template: t,
		}
		c.checkTemplate()
	}
}

// varInfo records one declared variable and whether anything referenced it.
type varInfo struct {
	node ast.Node
	used bool
}

type refChecker struct {
	registry *template.Registry
	reporter *errortypes.Reporter
	template template.Template

	// scopes holds declared variables, innermost last.  The outermost frame
	// holds the template's params.
	scopes []map[string]*varInfo
}

func (c *refChecker) errorf(node ast.Node, format string, args ...interface{}) {
	var name = c.template.Node.Name
	c.reporter.Errorf(c.registry.FileName(name),
		c.registry.LineNumber(name, node), c.registry.ColNumber(name, node),
		format, args...)
}

func (c *refChecker) checkTemplate() {
	c.pushScope()
	for _, p := range c.template.Node.Params {
		c.declare(p.Name, p)
	}
	for _, p := range c.template.Doc.Params {
		if _, ok := c.lookup(p.Name); !ok {
			c.declare(p.Name, p)
		}
	}
	var params = c.scopes[0]
	c.walk(c.template.Node.Body)
	c.popScope()

	for name, v := range params {
		if !v.used {
			c.errorf(v.node, "param %q is unused", name)
		}
	}
}

// Scopes ----------

func (c *refChecker) pushScope() {
	c.scopes = append(c.scopes, make(map[string]*varInfo))
}

// popScope removes the innermost frame, flagging any {let} variable that was
// never referenced.  Params are checked separately since a {call data="all"}
// counts as a use.
func (c *refChecker) popScope() {
	var frame = c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]
	if len(c.scopes) == 0 {
		return
	}
	for name, v := range frame {
		switch v.node.(type) {
		case *ast.LetValueNode, *ast.LetContentNode:
			if !v.used {
				c.errorf(v.node, "{let} variable %q is unused", name)
			}
		}
	}
}

func (c *refChecker) declare(name string, node ast.Node) {
	if name == "ij" {
		c.errorf(node, "variable name $ij is reserved for injected data")
		return
	}
	c.scopes[len(c.scopes)-1][name] = &varInfo{node: node}
}

func (c *refChecker) lookup(name string) (*varInfo, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (c *refChecker) inScope() []string {
	var names []string
	for _, frame := range c.scopes {
		for name := range frame {
			names = append(names, name)
		}
	}
	return names
}

// Walking ----------

func (c *refChecker) walk(node ast.Node) {
	switch node := node.(type) {
	case *ast.ListNode:
		c.walkBlock(node.Nodes)
		return
	case *ast.DataRefNode:
		c.visitRef(node)
		return
	case *ast.ForNode:
		c.walkFor(node)
		return
	case *ast.CallNode:
		c.walkCall(node)
		return
	case *ast.DelCallNode:
		c.walkDelCall(node)
		return
	}
	if parent, ok := node.(ast.ParentNode); ok {
		for _, child := range parent.Children() {
			c.walk(child)
		}
	}
}

// walkBlock checks a statement list, bringing each {let} into scope for the
// statements after it.
func (c *refChecker) walkBlock(nodes []ast.Node) {
	c.pushScope()
	defer c.popScope()
	for _, node := range nodes {
		switch node := node.(type) {
		case *ast.LetValueNode:
			// The binding is not in scope within its own expression.
			c.walk(node.Expr)
			c.declare(node.Name, node)
		case *ast.LetContentNode:
			c.walk(node.Body)
			c.declare(node.Name, node)
		default:
			c.walk(node)
		}
	}
}

func (c *refChecker) walkFor(node *ast.ForNode) {
	c.walk(node.List)
	c.pushScope()
	c.declare(node.Var, node)
	c.walk(node.Body)
	// The loop variable need not be referenced; iterating for the side
	// effects of the body is fine.
	c.scopes = c.scopes[:len(c.scopes)-1]
	if node.IfEmpty != nil {
		c.walk(node.IfEmpty)
	}
}

func (c *refChecker) visitRef(node *ast.DataRefNode) {
	if node.Key == "ij" {
		// Injected data needs no declaration.
	} else if v, ok := c.lookup(node.Key); ok {
		v.used = true
	} else {
		c.errorf(node, "data ref %q is not declared%s",
			"$"+node.Key, errortypes.DidYouMean(node.Key, c.inScope()))
	}
	// Access nodes may contain data refs of their own, e.g. $list[$i].
	for _, access := range node.Access {
		c.walk(access)
	}
}

// Calls ----------

func (c *refChecker) walkCall(node *ast.CallNode) {
	if node.Data != nil {
		c.walk(node.Data)
	}
	var calleeName = node.Callee
	if calleeName == "" {
		calleeName = node.Name
	}
	var callee, ok = c.resolveCallee(calleeName)
	if !ok {
		c.errorf(node, "{call}: template %q not found%s",
			node.Name, errortypes.DidYouMean(calleeName, c.templateNames()))
		c.walkCallParams(node.Params, nil)
		return
	}
	c.checkCallParams(node, node.Params, node.AllData, node.Data != nil, callee)
}

// walkDelCall checks a {delcall} against every registered implementation of
// the delegate, since which one runs is decided at render time.
func (c *refChecker) walkDelCall(node *ast.DelCallNode) {
	if node.Variant != nil {
		c.walk(node.Variant)
	}
	if node.Data != nil {
		c.walk(node.Data)
	}
	var callees = c.registry.DelTemplates(node.Name)
	if len(callees) == 0 {
		c.errorf(node, "{delcall}: no deltemplate named %q is registered%s",
			node.Name, errortypes.DidYouMean(node.Name, c.templateNames()))
		c.walkCallParams(node.Params, nil)
		return
	}
	for _, callee := range callees {
		c.checkCallParams(node, node.Params, node.AllData, node.Data != nil, callee)
	}
}

// checkCallParams reconciles the params passed by a call against the callee's
// declarations.
func (c *refChecker) checkCallParams(call ast.Node, params []ast.Node, allData, hasData bool, callee template.Template) {
	var all, required []string
	for _, p := range callee.Node.Params {
		all = append(all, p.Name)
		if !p.Optional {
			required = append(required, p.Name)
		}
	}
	for _, p := range callee.Doc.Params {
		all = append(all, p.Name)
		if !p.Optional {
			required = append(required, p.Name)
		}
	}

	// data="all" passes along every caller param the callee declares, and
	// counts as a use of those params.
	var passed []string
	if allData {
		for name, v := range c.scopes[0] {
			if contains(all, name) {
				v.used = true
				passed = append(passed, name)
			}
		}
	}
	passed = append(passed, c.walkCallParams(params, func(key string, param ast.Node) {
		if !contains(all, key) {
			c.errorf(param, "param %q is not declared by %s%s",
				key, callee.Node.Name, errortypes.DidYouMean(key, all))
		}
	})...)

	// An explicit data attribute may provide any of the remaining params.
	// data="all" forwards only the caller's own params, so the required set
	// is still checked against what the caller can actually supply.
	if hasData {
		return
	}
	for _, name := range required {
		if !contains(passed, name) {
			c.errorf(call, "call to %s is missing required param %q",
				callee.Node.Name, name)
		}
	}
}

// walkCallParams checks the param values and content blocks of a call and
// returns the param names it passes.  check, if non-nil, is invoked per param
// to validate the name against the callee.
func (c *refChecker) walkCallParams(params []ast.Node, check func(key string, param ast.Node)) []string {
	var names []string
	for _, param := range params {
		switch param := param.(type) {
		case *ast.CallParamValueNode:
			c.walk(param.Value)
			names = append(names, param.Key)
			if check != nil {
				check(param.Key, param)
			}
		case *ast.CallParamContentNode:
			c.walkBlockScoped(param.Content)
			names = append(names, param.Key)
			if check != nil {
				check(param.Key, param)
			}
		}
	}
	return names
}

// walkBlockScoped walks a content block in its own scope even when it is not
// a ListNode.
func (c *refChecker) walkBlockScoped(node ast.Node) {
	if list, ok := node.(*ast.ListNode); ok {
		c.walkBlock(list.Nodes)
		return
	}
	c.walk(node)
}

// resolveCallee finds the callee template, trying the name as written and
// then relative to the caller's namespace.
func (c *refChecker) resolveCallee(name string) (template.Template, bool) {
	if t, ok := c.registry.Template(name); ok {
		return t, true
	}
	if ns := c.namespace(); ns != "" && !strings.Contains(name, ".") {
		if t, ok := c.registry.Template(ns + "." + name); ok {
			return t, true
		}
	}
	return template.Template{}, false
}

func (c *refChecker) namespace() string {
	if c.template.Namespace == nil {
		return ""
	}
	return c.template.Namespace.Name
}

func (c *refChecker) templateNames() []string {
	var names []string
	for _, t := range c.registry.Templates {
		names = append(names, t.Node.Name)
	}
	return names
}

func contains(slice []string, item string) bool {
	for _, candidate := range slice {
		if candidate == item {
			return true
		}
	}
	return false
}
