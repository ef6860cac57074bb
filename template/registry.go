// Package template provides convenient access to groups of parsed Soy files.
package template

import (
	"fmt"
	"strings"

	"github.com/gosoy/soyc/ast"
)

// Registry provides access to a collection of parsed soy files.
type Registry struct {
	SoyFiles  []*ast.SoyFileNode
	Templates []Template

	// byName maps fully-qualified template name to the Templates index.
	// Deltemplates are keyed by delegate name and variant.
	byName map[string]int

	// delegates maps delegate name to all deltemplates registered under it.
	delegates map[string][]Template

	// sourceByTemplateName maps fully-qualified template name to the input
	// source it came from, for computing line numbers in error messages.
	sourceByTemplateName map[string]string

	// fileByTemplateName maps fully-qualified template name to the name of
	// the soy file that defines it.
	fileByTemplateName map[string]string
}

// Add the given soy file node (and all contained templates) to this registry.
func (r *Registry) Add(soyfile *ast.SoyFileNode) error {
	if r.byName == nil {
		r.byName = make(map[string]int)
		r.delegates = make(map[string][]Template)
		r.sourceByTemplateName = make(map[string]string)
		r.fileByTemplateName = make(map[string]string)
	}

	var ns *ast.NamespaceNode
	for _, node := range soyfile.Body {
		switch node := node.(type) {
		case *ast.SoyDocNode:
			continue
		case *ast.NamespaceNode:
			ns = node
		default:
			return fmt.Errorf("expected namespace, found %v", node)
		}
		break
	}
	if ns == nil {
		return fmt.Errorf("namespace required in %v", soyfile.Name)
	}

	r.SoyFiles = append(r.SoyFiles, soyfile)
	for i := 0; i < len(soyfile.Body); i++ {
		var tn, ok = soyfile.Body[i].(*ast.TemplateNode)
		if !ok {
			continue
		}

		// Technically every template requires soydoc, but having to add empty
		// soydoc just to get a template to compile is just stupid.
		var sdn *ast.SoyDocNode
		if i > 0 {
			sdn, _ = soyfile.Body[i-1].(*ast.SoyDocNode)
		}
		if sdn == nil {
			sdn = &ast.SoyDocNode{Pos: tn.Pos}
		}

		var t = Template{sdn, tn, ns}
		var key = registryKey(tn)
		if _, ok := r.byName[key]; ok {
			if tn.Delegate {
				return fmt.Errorf("deltemplate %v already defined for variant %q", tn.Name, tn.Variant)
			}
			return fmt.Errorf("template %v already defined", tn.Name)
		}
		r.byName[key] = len(r.Templates)
		r.Templates = append(r.Templates, t)
		if tn.Delegate {
			r.delegates[tn.Name] = append(r.delegates[tn.Name], t)
		}
		r.sourceByTemplateName[tn.Name] = soyfile.Text
		r.fileByTemplateName[tn.Name] = soyfile.Name
	}
	return nil
}

// AddDerived registers a template derived from an existing one, appending it
// (and its soydoc) to the end of the file that defines the original.  The
// derived template shares the original's source for line numbering.
func (r *Registry) AddDerived(originName string, doc *ast.SoyDocNode, node *ast.TemplateNode) error {
	if _, ok := r.byName[node.Name]; ok {
		return fmt.Errorf("template %v already defined", node.Name)
	}
	var orig, ok = r.Template(originName)
	if !ok {
		return fmt.Errorf("no such template %v", originName)
	}
	var file *ast.SoyFileNode
	for _, f := range r.SoyFiles {
		for _, n := range f.Body {
			if n == ast.Node(orig.Node) {
				file = f
			}
		}
	}
	if file == nil {
		return fmt.Errorf("no file found defining template %v", originName)
	}
	if doc != nil {
		file.Body = append(file.Body, doc)
	} else {
		doc = &ast.SoyDocNode{Pos: node.Pos}
	}
	file.Body = append(file.Body, node)
	r.byName[registryKey(node)] = len(r.Templates)
	r.Templates = append(r.Templates, Template{doc, node, orig.Namespace})
	r.sourceByTemplateName[node.Name] = r.sourceByTemplateName[originName]
	r.fileByTemplateName[node.Name] = r.fileByTemplateName[originName]
	return nil
}

func registryKey(tn *ast.TemplateNode) string {
	if tn.Delegate {
		return tn.Name + "::" + tn.Variant
	}
	return tn.Name
}

// Template allows lookup by fully-qualified template name.
func (r *Registry) Template(name string) (Template, bool) {
	var i, ok = r.byName[name]
	if !ok {
		return Template{}, false
	}
	return r.Templates[i], true
}

// DelTemplate returns the deltemplate registered under the given delegate
// name for the given variant, falling back to the default variant.
func (r *Registry) DelTemplate(name, variant string) (Template, bool) {
	if t, ok := r.byName[name+"::"+variant]; ok {
		return r.Templates[t], true
	}
	if variant != "" {
		if t, ok := r.byName[name+"::"]; ok {
			return r.Templates[t], true
		}
	}
	return Template{}, false
}

// DelTemplates returns every deltemplate registered under the given delegate
// name, across all variants.
func (r *Registry) DelTemplates(name string) []Template {
	return r.delegates[name]
}

// FileName returns the name of the soy file defining the given template.
func (r *Registry) FileName(templateName string) string {
	return r.fileByTemplateName[templateName]
}

// LineNumber computes the line number in the input source for the given node
// within the given template.
func (r *Registry) LineNumber(templateName string, node ast.Node) int {
	var src, ok = r.sourceByTemplateName[templateName]
	if !ok {
		return 0
	}
	return 1 + strings.Count(src[:node.Position()], "\n")
}

// ColNumber computes the column number in its line of the given node within
// the given template.
func (r *Registry) ColNumber(templateName string, node ast.Node) int {
	var src, ok = r.sourceByTemplateName[templateName]
	if !ok {
		return 0
	}
	return int(node.Position()) - strings.LastIndex(src[:node.Position()], "\n")
}
