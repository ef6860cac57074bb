package autoescape

import "github.com/gosoy/soyc/ast"

// rewrite applies the recorded inferences to the parse trees.  It runs only
// after every template has been analyzed successfully, so a failed analysis
// never leaves a registry half-rewritten.
func rewrite(inf *inferences) {
	for node, modes := range inf.printModes {
		applyPrintModes(node, modes)
	}
	for node, modes := range inf.callEscapes {
		var names = make([]string, len(modes))
		for i, m := range modes {
			names[i] = m.directiveName
		}
		switch node := node.(type) {
		case *ast.CallNode:
			node.Escapes = names
		case *ast.DelCallNode:
			node.Escapes = names
		}
	}
	for node, name := range inf.calleeName {
		node.Callee = name
	}
}

// applyPrintModes adds the inferred escaping directives to a print command.
// They normally run after any directives the author wrote, but an escapeHtml
// belongs before a directive that consumes and produces HTML, such as
// |bidiSpanWrap, so that the wrapper receives already-escaped content.
func applyPrintModes(node *ast.PrintNode, modes []*escapingMode) {
	var added = make([]*ast.PrintDirectiveNode, len(modes))
	for i, m := range modes {
		added[i] = &ast.PrintDirectiveNode{Pos: node.Pos, Name: m.directiveName}
	}
	if len(modes) > 0 && modes[0] == modeEscapeHTML {
		for i, d := range node.Directives {
			if pd, ok := PrintDirectives[d.Name]; ok && pd.Kind == kindHTML {
				var dirs = make([]*ast.PrintDirectiveNode, 0, len(node.Directives)+len(added))
				dirs = append(dirs, node.Directives[:i]...)
				dirs = append(dirs, added...)
				dirs = append(dirs, node.Directives[i:]...)
				node.Directives = dirs
				return
			}
		}
	}
	node.Directives = append(node.Directives, added...)
}
