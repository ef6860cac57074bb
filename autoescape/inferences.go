package autoescape

import (
	"strconv"

	"github.com/gosoy/soyc/ast"
	"github.com/gosoy/soyc/template"
)

// inferences accumulates the conclusions drawn while walking templates.  The
// walk only records what should change; the rewriter applies the changes once
// every template has been analyzed, so a failed analysis leaves the registry
// untouched.
type inferences struct {
	registry *template.Registry

	// printModes are the escaping directives to add to a print command.
	printModes map[*ast.PrintNode][]*escapingMode

	// callEscapes are the escaping directives to record on a call whose
	// output is not already known to be safe in its context.  Keys are
	// *ast.CallNode or *ast.DelCallNode.
	callEscapes map[ast.Node][]*escapingMode

	// calleeName maps a call to the derived template it should invoke
	// instead of the one it names.
	calleeName map[*ast.CallNode]string

	// endContext memoizes the end context of each (template, start
	// context) pair analyzed so far, keyed by name + "|" + context key.
	endContext map[string]context

	// inProgress marks (template, start context) pairs currently being
	// analyzed.  A recursive call hitting one of these assumes the callee
	// preserves its caller's context.
	inProgress map[string]bool

	// derivedName memoizes the template derived for each (template, start
	// context) pair, and derivedCount numbers the derivations of each
	// origin template.
	derivedName  map[string]string
	derivedCount map[string]int
}

func newInferences(reg *template.Registry) *inferences {
	return &inferences{
		registry:     reg,
		printModes:   make(map[*ast.PrintNode][]*escapingMode),
		callEscapes:  make(map[ast.Node][]*escapingMode),
		calleeName:   make(map[*ast.CallNode]string),
		endContext:   make(map[string]context),
		inProgress:   make(map[string]bool),
		derivedName:  make(map[string]string),
		derivedCount: make(map[string]int),
	}
}

func contextKey(templateName string, c context) string {
	return templateName + "|" + c.key()
}

func (inf *inferences) setPrintModes(node *ast.PrintNode, modes []*escapingMode) {
	inf.printModes[node] = modes
}

func (inf *inferences) setCallEscapes(node ast.Node, modes []*escapingMode) {
	inf.callEscapes[node] = modes
}

func (inf *inferences) setCalleeName(node *ast.CallNode, name string) {
	inf.calleeName[node] = name
}

// nextDerivedSuffix returns the name suffix for the next template derived
// from the named origin.
func (inf *inferences) nextDerivedSuffix(originName string) string {
	inf.derivedCount[originName]++
	return "__C" + strconv.Itoa(inf.derivedCount[originName])
}
