package autoescape

import (
	"strings"

	"github.com/gosoy/soyc/ast"
	"github.com/gosoy/soyc/template"
)

// callGraph records which templates call which, with callee names resolved
// against the caller's namespace.  It decides which non-contextual templates
// still need analysis because an autoescaped template is reachable from them.
type callGraph struct {
	registry *template.Registry
	calls    map[string][]string
}

func newCallGraph(reg *template.Registry) *callGraph {
	var g = &callGraph{reg, make(map[string][]string)}
	for _, t := range reg.Templates {
		g.walk(t.Node, t.Node.Name, t.Namespace.Name)
	}
	return g
}

func (g *callGraph) walk(node ast.Node, caller, namespace string) {
	if call, ok := node.(*ast.CallNode); ok {
		if name, ok := g.resolve(call.Name, namespace); ok {
			g.calls[caller] = append(g.calls[caller], name)
		}
	}
	if parent, ok := node.(ast.ParentNode); ok {
		for _, child := range parent.Children() {
			g.walk(child, caller, namespace)
		}
	}
}

func (g *callGraph) resolve(name, namespace string) (string, bool) {
	if _, ok := g.registry.Template(name); ok {
		return name, true
	}
	if namespace != "" && !strings.Contains(name, ".") {
		var qualified = namespace + "." + name
		if _, ok := g.registry.Template(qualified); ok {
			return qualified, true
		}
	}
	return "", false
}

// reachesAutoescaped reports whether any contextually or strictly autoescaped
// template is reachable from the named one through calls.
func (g *callGraph) reachesAutoescaped(name string) bool {
	return g.reaches(name, make(map[string]bool))
}

func (g *callGraph) reaches(name string, seen map[string]bool) bool {
	if seen[name] {
		return false
	}
	seen[name] = true
	for _, callee := range g.calls[name] {
		var t, ok = g.registry.Template(callee)
		if !ok {
			continue
		}
		switch t.Autoescape() {
		case ast.AutoescapeContextual, ast.AutoescapeStrict:
			return true
		}
		if g.reaches(callee, seen) {
			return true
		}
	}
	return false
}
