// Package autoescape rewrites templates to add contextually-appropriate
// escaping directives to all print commands.
package autoescape

import (
	"github.com/gosoy/soyc/ast"
	"github.com/gosoy/soyc/template"
)

// Strict applies contextual autoescaping to every template in the registry
// that opts into it with autoescape="contextual" or autoescape="strict".
//
// Instead of specifying an escaping routine for each dynamic value, the
// author declares the "kind" of the data (text, html, css, uri, js,
// attributes), and the correct escaping routines are chosen for the context
// each value is printed in.  Templates that a contextual template calls are
// analyzed in the context of the call; when the same template is called from
// incompatible contexts, a derived copy is added to the registry for each.
//
// Strict templates additionally reject escape-cancelling directives and
// calls to non-strict templates, and must end in a context where their
// declared kind's content can validly end.
//
// Print commands are only rewritten once every template has been analyzed
// successfully.  On failure the returned error is an *Error identifying the
// template and line.
func Strict(reg *template.Registry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*Error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()

	var (
		inf   = newInferences(reg)
		graph = newCallGraph(reg)
	)
	// Analyzing a call may add derived templates to reg.Templates, so
	// iterate over a snapshot of the originals.
	var templates = make([]template.Template, len(reg.Templates))
	copy(templates, reg.Templates)
	for _, t := range templates {
		var e = engine{registry: reg, inf: inf, templateName: t.Node.Name}
		if t.Namespace != nil {
			e.namespace = t.Namespace.Name
		}
		switch t.Autoescape() {
		case ast.AutoescapeContextual:
			// Private templates are only rendered via {call}, so they are
			// analyzed in the context of each call rather than standalone.
			// A private template only ever called from e.g. a <script>
			// block keeps its original body unescaped; the derived copies
			// carry the escaping.
			if t.Node.Private {
				continue
			}
			e.inferRootTemplate(t)
		case ast.AutoescapeStrict:
			e.strict = true
			e.inferRootTemplate(t)
		default:
			// Non-contextual templates are not rewritten, but any
			// contextual template reachable from one is analyzed
			// starting from a plain HTML context.
			e.checkNonContextual(t.Node)
			if graph.reachesAutoescaped(t.Node.Name) {
				e.noescape = true
				e.walk(t.Node.Body, context{})
			}
		}
	}
	rewrite(inf)
	return nil
}

// checkNonContextual rejects kind-typed {let} and {param} blocks inside
// templates that do not use contextual autoescaping, where the declared kind
// could not be honored.
func (e *engine) checkNonContextual(node ast.Node) {
	switch node := node.(type) {
	case *ast.LetContentNode:
		if node.Kind != "" {
			e.errorf(ErrEscapeCancelled, node,
				"{let} node with 'kind' attribute is only permitted in "+
					"contextually autoescaped templates: %s", node)
		}
	case *ast.CallParamContentNode:
		if node.Kind != "" {
			e.errorf(ErrEscapeCancelled, node,
				"{param} node with 'kind' attribute is only permitted in "+
					"contextually autoescaped templates: %s", node)
		}
	}
	if parent, ok := node.(ast.ParentNode); ok {
		for _, child := range parent.Children() {
			e.checkNonContextual(child)
		}
	}
}

// inferRootTemplate analyzes a contextual or strict template starting from
// the context implied by its declared kind.
func (e *engine) inferRootTemplate(t template.Template) {
	var k = kind(t.Kind())
	if k == kindText {
		e.textMode = true
		e.walk(t.Node.Body, context{})
		return
	}
	var end = e.inferTemplate(t, context{state: startStateForKind(k)})
	if e.strict {
		e.templateName, e.namespace = t.Node.Name, t.Namespace.Name
		e.checkBlockEndContext(t.Node, k, end)
	}
}
