// Package htmlmatch checks that the HTML tags a template emits are balanced.
// Each open tag is paired with its close tag, close tags are synthesized for
// elements whose end tag HTML makes optional, and imbalances that depend on
// which branch of a conditional runs are reported as errors.
package htmlmatch

import (
	"strings"

	"github.com/gosoy/soyc/ast"
	"github.com/gosoy/soyc/errortypes"
	"github.com/gosoy/soyc/template"
)

// Result maps template name to the tag nodes extracted from its body, in
// extraction order, with close tags the matcher synthesized appended as they
// were created.  Open and close nodes carry their pairing.
type Result map[string][]ast.Node

// Match checks every html-kinded template in the registry.
func Match(reg *template.Registry) (Result, error) {
	var reporter errortypes.Reporter
	var result = MatchWith(reg, &reporter)
	return result, reporter.ToError()
}

// MatchWith is Match collecting diagnostics into the given reporter.
func MatchWith(reg *template.Registry, reporter *errortypes.Reporter) Result {
	var result = make(Result)
	for _, t := range reg.Templates {
		if t.Kind() != "html" {
			continue
		}
		var m = &matcher{
			registry:     reg,
			reporter:     reporter,
			templateName: t.Node.Name,
			memo:         make(map[memoKey]*memoEntry),
		}
		var c = compiler{m: m}
		m.run(c.compile(t.Node.Body), t.Node)
		for _, root := range contentRoots(t.Node.Body) {
			var c = compiler{m: m}
			m.run(c.compile(root), root)
		}
		result[t.Node.Name] = m.tags
	}
	return result
}

// contentRoots finds the html-kinded {let} and {param} content blocks in a
// body.  Each renders as an independent unit and must balance on its own.
func contentRoots(node ast.Node) []ast.Node {
	var roots []ast.Node
	switch node := node.(type) {
	case *ast.LetContentNode:
		if node.Kind == "html" {
			roots = append(roots, node.Body)
		}
	case *ast.CallParamContentNode:
		if node.Kind == "html" {
			roots = append(roots, node.Content)
		}
	}
	if parent, ok := node.(ast.ParentNode); ok {
		for _, child := range parent.Children() {
			roots = append(roots, contentRoots(child)...)
		}
	}
	return roots
}

// tagStack is the stack of currently-open tags.  Pushes share structure, so
// forked branches diverge from a common stack without copying.
type tagStack struct {
	top     *tagStack
	tag     *ast.HtmlOpenTagNode
	foreign int // foreign-content depth after this push
}

func (s *tagStack) push(tag *ast.HtmlOpenTagNode) *tagStack {
	var foreign = s.foreignDepth()
	if tag.Name == "svg" || tag.Name == "math" {
		foreign++
	}
	return &tagStack{top: s, tag: tag, foreign: foreign}
}

func (s *tagStack) foreignDepth() int {
	if s == nil {
		return 0
	}
	return s.foreign
}

// key renders the stack bottom-up for memoization and error messages.
func (s *tagStack) key() string {
	if s == nil {
		return ""
	}
	var name = s.tag.Name
	if s.tag.Dynamic {
		name = "{...}"
	}
	if s.top == nil {
		return name
	}
	return s.top.key() + " " + name
}

// A task resumes a block at a step index with the stack accumulated so far.
// join, when set, is the fork this task's block is a branch of.
type task struct {
	blk   *block
	index int
	stack *tagStack
	join  *join
}

// join collects the end stacks of a fork's branches.  Once every branch has
// reported, the stacks must agree, and the enclosing block resumes after the
// fork with the agreed stack.
type join struct {
	parent  *join
	blk     *block
	index   int // resume position after the fork
	pending int
	result  *tagStack
	got     bool
	failed  bool
	node    ast.Node // fork or loop command
	loop    bool     // loop branches must preserve the entry stack
	entry   *tagStack
	memo    *memoEntry
}

type memoKey struct {
	cond  string // the fork's source form
	stack string
}

type memoEntry struct {
	done bool
	end  *tagStack
}

type matcher struct {
	registry     *template.Registry
	reporter     *errortypes.Reporter
	templateName string
	tags         []ast.Node
	memo         map[memoKey]*memoEntry
	queue        []task
}

// run drains the block graph breadth-first with an explicit work queue, so
// deeply nested conditionals cannot blow the stack and newly forked branches
// are explored in discovery order.
func (m *matcher) run(root *block, rootNode ast.Node) {
	m.queue = append(m.queue, task{blk: root})
	for len(m.queue) > 0 {
		var t = m.queue[0]
		m.queue = m.queue[1:]
		m.step(t, rootNode)
	}
}

func (m *matcher) step(t task, rootNode ast.Node) {
	for i := t.index; ; i++ {
		if i == len(t.blk.steps) {
			m.finish(t, rootNode)
			return
		}
		var s = t.blk.steps[i]
		switch s.kind {
		case stepOpen:
			t.stack = m.open(s.open, t.stack)
		case stepClose:
			t.stack = m.close(s.close, t.stack)
		case stepFork, stepLoop:
			var key = memoKey{s.node.String(), t.stack.key()}
			if e, ok := m.memo[key]; ok && e.done {
				// This condition was already decided from this
				// stack; resume with the recorded end state.
				t.index = i + 1
				t.stack = e.end
				m.queue = append(m.queue, t)
				return
			}
			var e = &memoEntry{}
			m.memo[key] = e
			var j = &join{
				parent: t.join,
				blk:    t.blk,
				index:  i + 1,
				node:   s.node,
				memo:   e,
			}
			var branches []*block
			if s.kind == stepLoop {
				j.loop, j.entry = true, t.stack
				branches = []*block{s.body}
				if s.ifempty != nil {
					branches = append(branches, s.ifempty)
				}
			} else {
				branches = s.branches
			}
			j.pending = len(branches)
			for _, br := range branches {
				m.queue = append(m.queue, task{blk: br, stack: t.stack, join: j})
			}
			return
		}
	}
}

// finish delivers a completed branch's stack to its fork's join, or, at the
// root, closes out whatever is still open.
func (m *matcher) finish(t task, rootNode ast.Node) {
	var j = t.join
	if j == nil {
		m.atEnd(t.stack, rootNode)
		return
	}
	j.pending--
	switch {
	case j.failed:
	case !j.got:
		j.result, j.got = t.stack, true
	case t.stack.key() != j.result.key():
		j.failed = true
		m.errorf(j.node, "branches leave different tags open: [%s] vs [%s]: %s",
			j.result.key(), t.stack.key(), nodeHeader(j.node))
	}
	if j.pending > 0 {
		return
	}
	if !j.failed && j.loop {
		settled, ok := m.settle(j.result, j.entry.key(), j.node.Position())
		if !ok {
			j.failed = true
			m.errorf(j.node, "tags opened in a loop body must be closed before the next iteration: %s",
				nodeHeader(j.node))
		} else {
			j.result = settled
		}
	}
	if j.failed {
		// Abandon everything downstream of the failed fork.
		return
	}
	j.memo.done, j.memo.end = true, j.result
	m.queue = append(m.queue, task{blk: j.blk, index: j.index, stack: j.result, join: j.parent})
}

// settle pops optional and dynamic tags, synthesizing their close tags,
// until the stack matches target.  Elements that require explicit close tags
// stop it.
func (m *matcher) settle(stack *tagStack, target string, pos ast.Pos) (*tagStack, bool) {
	for stack.key() != target {
		if stack == nil || !(stack.tag.Dynamic || optionalEndTags[stack.tag.Name]) {
			return stack, false
		}
		stack = m.synthesizeClose(stack, pos)
	}
	return stack, true
}

// open pushes a tag, first auto-closing any open element whose end tag this
// one implies.
func (m *matcher) open(tag *ast.HtmlOpenTagNode, stack *tagStack) *tagStack {
	tag.Foreign = stack.foreignDepth() > 0
	if tag.Dynamic {
		if tag.SelfClosing {
			return stack
		}
		return stack.push(tag)
	}
	if !tag.Foreign {
		for stack != nil && optionalEndTags[stack.tag.Name] && openImpliesClose[stack.tag.Name][tag.Name] {
			stack = m.synthesizeClose(stack, tag.Pos)
		}
		if voidElements[tag.Name] {
			return stack
		}
		if tag.SelfClosing {
			m.errorf(tag, "self-closing syntax is only allowed on void elements: <%s/>", tag.Name)
			return stack
		}
	} else if tag.SelfClosing {
		// Foreign content permits self-closing on any element.
		return stack
	}
	return stack.push(tag)
}

// close pairs a close tag with the nearest matching open tag, synthesizing
// close tags for optional elements it passes on the way.  A close tag that
// matches nothing is reported and otherwise ignored.
func (m *matcher) close(tag *ast.HtmlCloseTagNode, stack *tagStack) *tagStack {
	if !tag.Dynamic && stack.foreignDepth() == 0 && voidElements[tag.Name] {
		m.errorf(tag, "void element cannot have a close tag: </%s>", tag.Name)
		return stack
	}
	if !m.reachable(tag, stack) {
		var open []string
		for s := stack; s != nil; s = s.top {
			open = append(open, s.tag.Name)
		}
		m.errorf(tag, "unexpected close tag </%s>%s", tag.Name,
			errortypes.DidYouMean(tag.Name, open))
		return stack
	}
	for {
		var matched = stack.tag.Dynamic || (!tag.Dynamic && stack.tag.Name == tag.Name)
		if matched {
			tag.Pair, stack.tag.Pair = stack.tag, tag
			return stack.top
		}
		stack = m.synthesizeClose(stack, tag.Pos)
	}
}

// reachable reports whether the close tag can pair with something in the
// stack by popping only optional elements above it.
func (m *matcher) reachable(tag *ast.HtmlCloseTagNode, stack *tagStack) bool {
	for s := stack; s != nil; s = s.top {
		if s.tag.Dynamic || (!tag.Dynamic && s.tag.Name == tag.Name) {
			return true
		}
		if !optionalEndTags[s.tag.Name] {
			return false
		}
	}
	return false
}

// atEnd handles a template (or content block) ending with open tags:
// optional ones are closed, the rest are errors.
func (m *matcher) atEnd(stack *tagStack, rootNode ast.Node) {
	for stack != nil {
		if stack.tag.Dynamic || optionalEndTags[stack.tag.Name] {
			stack = m.synthesizeClose(stack, rootNode.Position())
			continue
		}
		m.errorf(stack.tag, "unclosed tag at end of template: <%s>", stack.tag.Name)
		stack = stack.top
	}
}

func (m *matcher) synthesizeClose(stack *tagStack, pos ast.Pos) *tagStack {
	var end = &ast.HtmlCloseTagNode{
		Pos:       pos,
		Name:      stack.tag.Name,
		Dynamic:   stack.tag.Dynamic,
		Synthetic: true,
		Pair:      stack.tag,
	}
	stack.tag.Pair = end
	m.tags = append(m.tags, end)
	return stack.top
}

func (m *matcher) errorf(node ast.Node, f string, args ...interface{}) {
	m.reporter.Errorf(
		m.registry.FileName(m.templateName),
		m.registry.LineNumber(m.templateName, node),
		m.registry.ColNumber(m.templateName, node),
		f, args...)
}

// nodeHeader is the source form of a command through its first "}".
func nodeHeader(node ast.Node) string {
	var s = node.String()
	if i := strings.Index(s, "}"); i >= 0 {
		return s[:i+1]
	}
	return s
}

// voidElements have no content and no close tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// optionalEndTags may be closed implicitly, by a following tag or by the end
// of their enclosing element.
var optionalEndTags = map[string]bool{
	"html": true, "head": true, "body": true,
	"li": true, "dt": true, "dd": true, "p": true, "rt": true, "rp": true,
	"optgroup": true, "option": true,
	"caption": true, "colgroup": true,
	"thead": true, "tbody": true, "tfoot": true,
	"tr": true, "td": true, "th": true,
}

// openImpliesClose[open tag currently on the stack][arriving open tag]:
// the arriving tag implicitly closes the one on the stack.
var openImpliesClose = map[string]map[string]bool{
	"li": {"li": true},
	"dt": {"dt": true, "dd": true},
	"dd": {"dt": true, "dd": true},
	"p": {
		"address": true, "article": true, "aside": true, "blockquote": true,
		"details": true, "div": true, "dl": true, "fieldset": true,
		"figcaption": true, "figure": true, "footer": true, "form": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"header": true, "hgroup": true, "hr": true, "main": true, "menu": true,
		"nav": true, "ol": true, "p": true, "pre": true, "section": true,
		"table": true, "ul": true,
	},
	"rt":       {"rt": true, "rp": true},
	"rp":       {"rt": true, "rp": true},
	"optgroup": {"optgroup": true},
	"option":   {"option": true, "optgroup": true},
	"caption": {
		"colgroup": true, "thead": true, "tbody": true, "tfoot": true,
		"tr": true, "td": true, "th": true,
	},
	"colgroup": {
		"caption": true, "thead": true, "tbody": true, "tfoot": true,
		"tr": true, "td": true, "th": true,
	},
	"thead": {"tbody": true, "tfoot": true},
	"tbody": {"tbody": true, "tfoot": true},
	"tr":    {"tr": true},
	"td":    {"td": true, "th": true, "tr": true},
	"th":    {"td": true, "th": true, "tr": true},
	"head":  {"body": true},
}
