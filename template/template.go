package template

import "github.com/gosoy/soyc/ast"

// Template is a Soy template's parse tree, including the relevant context
// (preceding soydoc and namespace).
type Template struct {
	Doc       *ast.SoyDocNode    // this template's SoyDoc
	Node      *ast.TemplateNode  // this template's node
	Namespace *ast.NamespaceNode // this template's namespace
}

// ParamNames returns the names of all declared params, whether declared by
// {@param} headers or soydoc.
func (t Template) ParamNames() []string {
	var names []string
	for _, p := range t.Node.Params {
		names = append(names, p.Name)
	}
	for _, p := range t.Doc.Params {
		names = append(names, p.Name)
	}
	return names
}

// Autoescape returns the effective autoescape mode of this template, taking
// the namespace default into account.
func (t Template) Autoescape() ast.AutoescapeType {
	if t.Node.Autoescape != ast.AutoescapeUnspecified {
		return t.Node.Autoescape
	}
	if t.Namespace != nil && t.Namespace.Autoescape != ast.AutoescapeUnspecified {
		return t.Namespace.Autoescape
	}
	return ast.AutoescapeOn
}

// Kind returns the declared content kind of this template. Templates with no
// declaration produce HTML.
func (t Template) Kind() string {
	if t.Node.Kind == "" {
		return "html"
	}
	return t.Node.Kind
}
