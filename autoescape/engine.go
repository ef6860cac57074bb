package autoescape

import (
	"strings"

	"github.com/gosoy/soyc/ast"
	"github.com/gosoy/soyc/template"
)

// engine walks a template body, tracking the HTML/CSS/JS context across each
// node and recording the escaping every dynamic value needs.  Errors abort
// the walk by panicking with an *Error; Strict recovers them.
type engine struct {
	registry *template.Registry
	inf      *inferences

	// templateName and namespace identify the template being walked, for
	// error messages and callee resolution.
	templateName string
	namespace    string

	// strict enables the strict-autoescaping rules: no escape-cancelling
	// directives and no calls to non-strict templates.
	strict bool

	// transitional is set inside kind-typed blocks of non-strict
	// templates, where noAutoescape remains allowed to ease migration.
	transitional bool

	// noescape analyzes without recording any escaping, for non-contextual
	// templates that call into autoescaped ones.
	noescape bool

	// textMode disables context tracking inside kind="text" blocks.
	textMode bool
}

func (e *engine) errorf(code ErrorCode, node ast.Node, f string, args ...interface{}) {
	var err = errorf(code, e.registry.LineNumber(e.templateName, node), f, args...)
	e.fail(err)
}

// fail fills in the location fields of err and panics with it.
func (e *engine) fail(err *Error) {
	err.Name = e.templateName
	err.File = e.registry.FileName(e.templateName)
	panic(err)
}

// inferTemplate walks the named template from the given start context,
// memoizing the end context.  Recursive calls back into a template being
// walked assume it preserves the context it was called in.
func (e *engine) inferTemplate(t template.Template, start context) context {
	var key = contextKey(t.Node.Name, start)
	if end, ok := e.inf.endContext[key]; ok {
		return end
	}
	if e.inf.inProgress[key] {
		return start
	}
	e.inf.inProgress[key] = true
	var prevName, prevNS = e.templateName, e.namespace
	e.templateName, e.namespace = t.Node.Name, t.Namespace.Name
	var end = e.walk(t.Node.Body, start)
	e.templateName, e.namespace = prevName, prevNS
	delete(e.inf.inProgress, key)
	e.inf.endContext[key] = end
	return end
}

func (e *engine) walk(node ast.Node, c context) context {
	switch node := node.(type) {
	case *ast.ListNode:
		for _, child := range node.Nodes {
			c = e.walk(child, c)
		}
		return c
	case *ast.RawTextNode:
		return e.inferRawText(node, c)
	case *ast.PrintNode:
		return e.inferPrint(node, c)
	case *ast.MsgNode:
		return e.walk(node.Body, c)
	case *ast.IfNode:
		return e.inferIf(node, c)
	case *ast.SwitchNode:
		return e.inferSwitch(node, c)
	case *ast.ForNode:
		return e.inferFor(node, c)
	case *ast.CallNode:
		return e.inferCall(node, c)
	case *ast.DelCallNode:
		return e.inferDelCall(node, c)
	case *ast.LetContentNode:
		return e.inferLet(node, c)
	}
	// {let $x: ...}, {css}, {log}, {debugger} and expressions produce no
	// template output.
	return c
}

func (e *engine) inferRawText(node *ast.RawTextNode, c context) context {
	if e.textMode {
		return c
	}
	c = escapeText(c, node)
	if c.state == stateError {
		var err = c.err
		if err.Line == 0 {
			err.Line = e.registry.LineNumber(e.templateName, node)
		}
		e.fail(err)
	}
	return c
}

func (e *engine) inferPrint(node *ast.PrintNode, c context) context {
	var existing []*escapingMode
	var cancel string
	for _, d := range node.Directives {
		if d.Name == "text" {
			e.errorf(ErrEscapeCancelled, node,
				"Print directive |text is only for internal use by the Soy compiler.")
		}
		if m, ok := modesByDirective[d.Name]; ok && m != modeNoAutoescape {
			existing = append(existing, m)
		} else if pd, ok := PrintDirectives[d.Name]; ok && pd.CancelAutoescape && cancel == "" {
			cancel = d.Name
		}
	}

	if e.textMode {
		if !e.noescape && len(existing) == 0 && cancel == "" {
			e.inf.setPrintModes(node, []*escapingMode{modeText})
		}
		return c
	}

	c = beforeDynamicValue(c)
	if isComment(c.state) {
		e.errorf(ErrOutputContext, node,
			"Don't put {print} or {call} inside comments : %s", node)
	}

	if len(existing) > 0 {
		// The author has already escaped this value; just check that
		// their chosen escaping cannot break out of the context.
		if !e.noescape && !c.isCompatibleWith(existing[0]) {
			var names []string
			for _, m := range existing {
				names = append(names, m.name)
			}
			e.errorf(ErrOutputContext, node,
				"Escaping modes [%s] not compatible with %s : %s",
				strings.Join(names, ", "), c, node)
		}
		return contextAfterDynamicValue(c)
	}

	if cancel != "" {
		if e.strict && !(e.transitional && cancel == "noAutoescape") {
			e.failCancelledEscaping(node, cancel, c)
		}
		return contextAfterDynamicValue(c)
	}

	if e.noescape {
		return contextAfterDynamicValue(c)
	}

	switch c.state {
	case stateURL, stateCSSDqURL, stateCSSSqURL, stateCSSURL:
		if c.urlPart == urlPartUnknown {
			e.errorf(ErrAmbigContext, node,
				"Cannot determine which part of the URL %s is in.", node)
		}
	}
	var modes, err = escapingModes(c, e.registry.LineNumber(e.templateName, node))
	if err != nil {
		e.fail(err)
	}
	e.inf.setPrintModes(node, modes)
	return contextAfterDynamicValue(c)
}

func (e *engine) failCancelledEscaping(node *ast.PrintNode, directive string, c context) {
	if directive != "noAutoescape" {
		e.errorf(ErrEscapeCancelled, node,
			"Autoescape-cancelling print directives like |%s are only allowed in kind=\"text\" blocks. "+
				"If you really want to over-escape, try using a let block: "+
				"{let $foo kind=\"text\"}%s{/let}{$foo}.", directive, node)
	}
	var prefix = "noAutoescape is not allowed in strict autoescaping mode. Instead, pass in a {param} with "
	if k := recommendedKind(c); k != "" {
		e.errorf(ErrEscapeCancelled, node, prefix+"kind=%q or SanitizedContent.", k)
	}
	e.errorf(ErrEscapeCancelled, node, prefix+`appropriate kind="..." or SanitizedContent.`)
}

// recommendedKind suggests a content kind that a {param} occupying context c
// could declare, or "" when there is no obvious one.
func recommendedKind(c context) string {
	switch c.state {
	case stateText:
		return "html"
	case stateTag, stateAttrName, stateAfterName, stateBeforeValue:
		return "attributes"
	case stateURL, stateCSSDqURL, stateCSSSqURL, stateCSSURL:
		return "uri"
	case stateJS, stateJSDqStr, stateJSSqStr, stateJSRegexp:
		return "js"
	case stateCSS, stateCSSDqStr, stateCSSSqStr:
		return "css"
	}
	return ""
}

func (e *engine) inferIf(node *ast.IfNode, c context) context {
	var (
		out     context
		hasElse bool
	)
	for i, cond := range node.Conds {
		var end = e.walk(cond.Body, c)
		if cond.Cond == nil {
			hasElse = true
		}
		if i == 0 {
			out = end
			continue
		}
		var joined = join(out, end)
		if joined.state == stateError {
			e.errorf(ErrBranchEnd, cond,
				"{if} command branch ends in a different context than preceding branches: %s",
				branchLabel(node, i))
		}
		out = joined
	}
	if !hasElse {
		var joined = join(out, c)
		if joined.state == stateError {
			e.errorf(ErrBranchEnd, node,
				"{if} command without {else} changes context : %s", node)
		}
		out = joined
	}
	return out
}

// branchLabel renders the i-th branch of an {if} the way it was written, for
// error messages.
func branchLabel(node *ast.IfNode, i int) string {
	var cond = node.Conds[i]
	switch {
	case cond.Cond == nil:
		return "{else}" + cond.Body.String()
	case i == 0:
		return "{if " + cond.Cond.String() + "}" + cond.Body.String()
	default:
		return "{elseif " + cond.Cond.String() + "}" + cond.Body.String()
	}
}

func (e *engine) inferSwitch(node *ast.SwitchNode, c context) context {
	var (
		out        context
		hasDefault bool
		first      = true
	)
	for _, cs := range node.Cases {
		var end = e.walk(cs.Body, c)
		if len(cs.Values) == 0 {
			hasDefault = true
		}
		if first {
			out, first = end, false
			continue
		}
		var joined = join(out, end)
		if joined.state == stateError {
			e.errorf(ErrBranchEnd, cs,
				"{switch} command case ends in a different context than preceding cases: %s", cs)
		}
		out = joined
	}
	if first {
		return c
	}
	if !hasDefault {
		var joined = join(out, c)
		if joined.state == stateError {
			e.errorf(ErrBranchEnd, node,
				"{switch} command without {default} changes context : %s", node)
		}
		out = joined
	}
	return out
}

func (e *engine) inferFor(node *ast.ForNode, c context) context {
	var _, isForeach = node.List.(*ast.DataRefNode)
	var fail = func() {
		if isForeach {
			e.errorf(ErrBranchEnd, node, "{foreach} body changes context : %s", node)
		}
		e.errorf(ErrBranchEnd, node,
			"{for} command changes context so it cannot be reentered : %s", node)
	}

	// An iteration must end where it began so the loop can repeat, and
	// skipping the loop entirely must be equivalent too.
	var joined = join(c, e.walk(node.Body, c))
	if joined.state == stateError {
		fail()
	}
	var again = e.walk(node.Body, joined)
	if !again.eq(joined) {
		fail()
	}
	if node.IfEmpty != nil {
		var empty = e.walk(node.IfEmpty, c)
		joined = join(joined, empty)
		if joined.state == stateError {
			fail()
		}
	}
	return joined
}

func (e *engine) inferLet(node *ast.LetContentNode, c context) context {
	switch {
	case node.Kind != "":
		if e.noescape {
			e.errorf(ErrEscapeCancelled, node,
				"{let} node with 'kind' attribute is only permitted in "+
					"contextually autoescaped templates: %s", node)
		}
		e.inferStrictBlock(node, kind(node.Kind), node.Body)
	case e.strict:
		e.errorf(ErrEscapeCancelled, node,
			"In strict templates, {let}...{/let} blocks require an explicit kind=\"<type>\". "+
				"This restriction will be lifted soon once a reasonable default is chosen. "+
				"(Note that {let $x: $y /} is NOT subject to this restriction). "+
				"Cause: %s", nodeHeader(node))
	default:
		// An untyped let renders in the context it appears in.
		e.walk(node.Body, c)
	}
	return c
}

func (e *engine) inferParamBlock(node *ast.CallParamContentNode) {
	switch {
	case node.Kind != "":
		if e.noescape {
			e.errorf(ErrEscapeCancelled, node,
				"{param} node with 'kind' attribute is only permitted in "+
					"contextually autoescaped templates: %s", node)
		}
		e.inferStrictBlock(node, kind(node.Kind), node.Content)
	case e.strict:
		e.errorf(ErrEscapeCancelled, node,
			"In strict templates, {param}...{/param} blocks require an explicit kind=\"<type>\". "+
				"This restriction will be lifted soon once a reasonable default is chosen. "+
				"(Note that {param x: $y /} is NOT subject to this restriction). "+
				"Cause: %s", nodeHeader(node))
	case e.noescape:
		e.walk(node.Content, context{})
	default:
		// Untyped params are autoescaped as an HTML fragment.
		var sub = *e
		var end = sub.walk(node.Content, context{})
		if end.state != stateText {
			e.errorf(ErrEndContext, node,
				"Blocks should start and end in HTML context: %s", nodeHeader(node))
		}
	}
}

// inferStrictBlock walks the body of a {let} or {param} with a declared
// content kind as an independent strict template of that kind.
func (e *engine) inferStrictBlock(node ast.Node, k kind, body ast.Node) {
	var sub = *e
	sub.strict = true
	sub.transitional = !e.strict
	if k == kindText {
		sub.textMode = true
		sub.walk(body, context{})
		return
	}
	var end = sub.walk(body, context{state: startStateForKind(k)})
	e.checkBlockEndContext(node, k, end)
}

func (e *engine) checkBlockEndContext(node ast.Node, k kind, end context) {
	if !isValidEndContextForKind(k, end) {
		e.errorf(ErrEndContext, node,
			"A strict block of kind=%q cannot end in context %s. Likely cause is %s: %s",
			string(k), end, likelyEndContextMismatchCause(k, end), nodeHeader(node))
	}
}

func (e *engine) inferCall(node *ast.CallNode, c context) context {
	for _, param := range node.Params {
		if p, ok := param.(*ast.CallParamContentNode); ok {
			e.inferParamBlock(p)
		}
	}
	if e.textMode {
		return c
	}

	c = beforeDynamicValue(c)
	if isComment(c.state) {
		e.errorf(ErrOutputContext, node,
			"Don't put {print} or {call} inside comments : %s", nodeHeader(node))
	}
	if e.noescape {
		// The caller itself is not escaped, but a contextual callee still
		// is, in the context of this call.
		if callee, ok := e.resolveCallee(node.Name); ok &&
			callee.Autoescape() == ast.AutoescapeContextual {
			var sub = engine{
				registry:     e.registry,
				inf:          e.inf,
				templateName: e.templateName,
				namespace:    e.namespace,
			}
			sub.inferContextualCallee(node, callee, c)
		}
		return contextAfterDynamicValue(c)
	}

	var callee, ok = e.resolveCallee(node.Name)
	if !ok {
		// The callee belongs to another compilation unit; in strict
		// mode its output is escaped like any other dynamic value.
		if e.strict {
			e.inf.setCallEscapes(node, e.modesForCall(node, c))
		}
		return contextAfterDynamicValue(c)
	}

	if callee.Autoescape() == ast.AutoescapeStrict {
		var calleeKind = kind(callee.Kind())
		if isValidStartContextForKindLoose(calleeKind, c) {
			return contextAfterDynamicValue(c)
		}
		if e.strict {
			e.inf.setCallEscapes(node, e.modesForCall(node, c))
			return contextAfterDynamicValue(c)
		}
		e.errorf(ErrOutputContext, node,
			"Cannot call strictly autoescaped template %s of kind=%q from incompatible context %s. "+
				"Strict templates generate extra code to safely call templates of other content "+
				"kinds, but non-strict templates do not: %s",
			callee.Node.Name, callee.Kind(), c, nodeHeader(node))
	}

	if e.strict {
		e.errorf(ErrOutputContext, node,
			"Soy strict autoescaping currently forbids calls to non-strict templates, unless the "+
				"context is kind=\"text\", since there's no guarantee the callee is safe: %s",
			nodeHeader(node))
	}

	return e.inferContextualCallee(node, callee, c)
}

func (e *engine) inferDelCall(node *ast.DelCallNode, c context) context {
	for _, param := range node.Params {
		if p, ok := param.(*ast.CallParamContentNode); ok {
			e.inferParamBlock(p)
		}
	}
	if e.textMode {
		return c
	}
	c = beforeDynamicValue(c)
	if isComment(c.state) {
		e.errorf(ErrOutputContext, node,
			"Don't put {print} or {call} inside comments : %s", nodeHeader(node))
	}
	// Delegates are bound at render time, so the callee is treated like an
	// extern and its output escaped for the context when in strict mode.
	if e.strict && !e.noescape {
		e.inf.setCallEscapes(node, e.modesForCall(node, c))
	}
	return contextAfterDynamicValue(c)
}

// modesForCall returns the escaping to apply to a call's output in context c.
func (e *engine) modesForCall(node ast.Node, c context) []*escapingMode {
	switch c.state {
	case stateURL, stateCSSDqURL, stateCSSSqURL, stateCSSURL:
		if c.urlPart == urlPartUnknown {
			e.errorf(ErrAmbigContext, node,
				"Cannot determine which part of the URL %s is in.", nodeHeader(node))
		}
	}
	var modes, err = escapingModes(c, e.registry.LineNumber(e.templateName, node))
	if err != nil {
		e.fail(err)
	}
	return modes
}

// inferContextualCallee analyzes a contextually autoescaped callee in the
// context of the call, deriving a copy of it specialized to that context when
// the context is not the one the callee would naturally start in.
func (e *engine) inferContextualCallee(node *ast.CallNode, callee template.Template, c context) context {
	var calleeStart = context{state: startStateForKind(kind(callee.Kind()))}
	if c.eq(calleeStart) {
		return e.inferTemplate(callee, c)
	}

	var key = contextKey(callee.Node.Name, c)
	if name, ok := e.inf.derivedName[key]; ok {
		e.inf.setCalleeName(node, node.Name+name[strings.LastIndex(name, "__C"):])
		if e.inf.inProgress[key] {
			return c
		}
		return e.inf.endContext[key]
	}

	var suffix = e.inf.nextDerivedSuffix(callee.Node.Name)
	var derived = cloneTemplateNode(callee.Node)
	derived.Name = callee.Node.Name + suffix
	if err := e.registry.AddDerived(callee.Node.Name, cloneSoyDocNode(callee.Doc), derived); err != nil {
		e.errorf(ErrNoSuchTemplate, node, "%s", err)
	}
	e.inf.derivedName[key] = derived.Name
	e.inf.setCalleeName(node, node.Name+suffix)

	var t, _ = e.registry.Template(derived.Name)
	e.inf.inProgress[key] = true
	var prevName, prevNS = e.templateName, e.namespace
	e.templateName, e.namespace = derived.Name, t.Namespace.Name
	var end = e.walk(derived.Body, c)
	e.templateName, e.namespace = prevName, prevNS
	delete(e.inf.inProgress, key)
	e.inf.endContext[key] = end
	return end
}

// resolveCallee finds the callee template, trying the name as written and
// then relative to the caller's namespace.
func (e *engine) resolveCallee(name string) (template.Template, bool) {
	if t, ok := e.registry.Template(name); ok {
		return t, true
	}
	if e.namespace != "" && !strings.Contains(name, ".") {
		if t, ok := e.registry.Template(e.namespace + "." + name); ok {
			return t, true
		}
	}
	return template.Template{}, false
}

// nodeHeader returns the opening tag of a command, e.g. "{param x}" for
// "{param x}...{/param}", the way error messages identify block commands.
func nodeHeader(node ast.Node) string {
	var s = node.String()
	if i := strings.Index(s, "}"); i >= 0 {
		return s[:i+1]
	}
	return s
}

func startStateForKind(k kind) state {
	switch k {
	case kindNone, kindHTML:
		return stateText
	case kindCSS:
		return stateCSS
	case kindAttr:
		return stateTag
	case kindJS:
		return stateJS
	case kindURL:
		return stateURL
	default:
		panic("unknown content kind: " + k)
	}
}

// isValidStartContextForKindLoose reports whether strict content of the given
// kind may be interpolated in context c.  The match is loose: it ignores the
// attribute delimiter and position within a URL, since strict content of the
// right kind composes safely anywhere within those.
func isValidStartContextForKindLoose(k kind, c context) bool {
	switch k {
	case kindNone, kindHTML:
		return c.state == stateText
	case kindCSS:
		return c.state == stateCSS
	case kindJS:
		return c.state == stateJS
	case kindURL:
		switch c.state {
		case stateURL, stateCSSDqURL, stateCSSSqURL, stateCSSURL:
			return true
		}
		return false
	case kindAttr:
		return c.state == stateTag || c.state == stateAttrName
	}
	// kind="text" content is never safe to interpolate directly.
	return false
}

func isValidEndContextForKind(k kind, c context) bool {
	switch k {
	case kindNone, kindHTML:
		return c.state == stateText
	case kindCSS:
		return c.state == stateCSS
	case kindURL:
		switch c.state {
		case stateURL, stateCSSDqURL, stateCSSSqURL, stateCSSURL:
			return c.urlPart != urlPartNone
		}
		return false
	case kindAttr:
		switch c.state {
		case stateTag, stateAttrName, stateAfterName:
			return true
		}
		return false
	case kindJS:
		return c.state == stateJS
	}
	return false
}

func likelyEndContextMismatchCause(k kind, c context) string {
	if k == kindAttr {
		return "an unterminated attribute value, or ending with an unquoted attribute"
	}
	switch c.state {
	case stateTag, stateTagName, stateAttrName, stateAfterName, stateBeforeValue:
		return "an unterminated HTML tag or attribute"
	case stateCSS:
		return "an unclosed style block or attribute"
	case stateJS:
		return "an unclosed script block or attribute"
	case stateJSRegexp:
		return "an unterminated regular expression"
	case stateCSSBlockCmt, stateCSSLineCmt, stateJSBlockCmt, stateJSLineCmt, stateHTMLCmt:
		return "an unterminated comment"
	case stateCSSDqStr, stateCSSSqStr, stateJSDqStr, stateJSSqStr:
		return "an unterminated string literal"
	case stateURL, stateCSSURL, stateCSSDqURL, stateCSSSqURL:
		return "an unterminated or empty URI"
	default:
		return "unknown to compiler"
	}
}
