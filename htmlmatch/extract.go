package htmlmatch

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gosoy/soyc/ast"
)

// A template body compiles into blocks of steps.  Straight-line HTML becomes
// open and close steps; control flow becomes fork and loop steps whose
// branches are blocks of their own.
type stepKind int

const (
	stepOpen stepKind = iota
	stepClose
	stepFork
	stepLoop
)

type step struct {
	kind     stepKind
	open     *ast.HtmlOpenTagNode
	close    *ast.HtmlCloseTagNode
	branches []*block // fork arms, including the implicit empty arm
	body     *block   // loop body
	ifempty  *block   // loop zero-iterations arm; may be nil
	node     ast.Node // originating command, for diagnostics and memo keys
}

type block struct {
	steps []step
}

// piece is one segment of a straight-line output run: literal text, or a
// dynamic value (print command) interrupting it.
type piece struct {
	text string
	node ast.Node
	dyn  bool
}

type compiler struct {
	m   *matcher
	run []piece
}

// compile flattens a node list into a block, accumulating raw text and print
// pieces until a control-flow command forces the run to be scanned for tags.
func (c *compiler) compile(node ast.Node) *block {
	var blk = &block{}
	c.compileInto(blk, node)
	c.flush(blk)
	return blk
}

func (c *compiler) compileInto(blk *block, node ast.Node) {
	switch node := node.(type) {
	case *ast.ListNode:
		for _, n := range node.Nodes {
			c.compileInto(blk, n)
		}
	case *ast.RawTextNode:
		c.run = append(c.run, piece{text: string(node.Text), node: node})
	case *ast.PrintNode:
		c.run = append(c.run, piece{node: node, dyn: true})
	case *ast.CssNode:
		c.run = append(c.run, piece{node: node, dyn: true})
	case *ast.MsgNode:
		c.compileInto(blk, node.Body)
	case *ast.IfNode:
		c.flush(blk)
		var s = step{kind: stepFork, node: node}
		var hasElse bool
		for _, cond := range node.Conds {
			if cond.Cond == nil {
				hasElse = true
			}
			s.branches = append(s.branches, c.compile(cond.Body))
		}
		if !hasElse {
			s.branches = append(s.branches, &block{})
		}
		blk.steps = append(blk.steps, s)
	case *ast.SwitchNode:
		c.flush(blk)
		var s = step{kind: stepFork, node: node}
		var hasDefault bool
		for _, caseNode := range node.Cases {
			if len(caseNode.Values) == 0 {
				hasDefault = true
			}
			s.branches = append(s.branches, c.compile(caseNode.Body))
		}
		if !hasDefault {
			s.branches = append(s.branches, &block{})
		}
		blk.steps = append(blk.steps, s)
	case *ast.ForNode:
		c.flush(blk)
		var s = step{kind: stepLoop, node: node, body: c.compile(node.Body)}
		if node.IfEmpty != nil {
			s.ifempty = c.compile(node.IfEmpty)
		}
		blk.steps = append(blk.steps, s)
	default:
		// Calls render independently-checked units; lets, logs and the
		// rest contribute no tags to this template's output.
	}
}

// flush scans the accumulated run for tags and appends open/close steps.
func (c *compiler) flush(blk *block) {
	var run = c.run
	c.run = nil
	if len(run) == 0 {
		return
	}
	var static = true
	for _, p := range run {
		if p.dyn {
			static = false
			break
		}
	}
	if static {
		var b strings.Builder
		for _, p := range run {
			b.WriteString(p.text)
		}
		var text = b.String()
		// The tokenizer silently drops a tag left unterminated by a
		// control-flow interruption; route those through the scanner.
		if strings.LastIndexByte(text, '<') <= strings.LastIndexByte(text, '>') {
			c.tokenize(blk, text, run[0].node)
			return
		}
	}
	c.scan(blk, run)
}

// tokenize extracts tags from fully static text with the html package's
// tokenizer, which already understands comments, doctypes, and the raw-text
// content of script, style, title, and textarea elements.
func (c *compiler) tokenize(blk *block, text string, node ast.Node) {
	var z = html.NewTokenizer(strings.NewReader(text))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.StartTagToken:
			var name, _ = z.TagName()
			c.emitOpen(blk, node, tagName(name), false, false)
		case html.SelfClosingTagToken:
			var name, _ = z.TagName()
			c.emitOpen(blk, node, tagName(name), false, true)
		case html.EndTagToken:
			var name, _ = z.TagName()
			c.emitClose(blk, node, tagName(name), false)
		}
	}
}

// tagName canonicalizes a tag name through the atom table.
func tagName(b []byte) string {
	if a := atom.Lookup(b); a != 0 {
		return a.String()
	}
	return strings.ToLower(string(b))
}

func (c *compiler) emitOpen(blk *block, node ast.Node, name string, dynamic, selfClosing bool) {
	var tag = &ast.HtmlOpenTagNode{
		Pos:         node.Position(),
		Name:        name,
		Dynamic:     dynamic,
		SelfClosing: selfClosing,
	}
	c.m.tags = append(c.m.tags, tag)
	blk.steps = append(blk.steps, step{kind: stepOpen, open: tag, node: node})
}

func (c *compiler) emitClose(blk *block, node ast.Node, name string, dynamic bool) {
	var tag = &ast.HtmlCloseTagNode{
		Pos:     node.Position(),
		Name:    name,
		Dynamic: dynamic,
	}
	c.m.tags = append(c.m.tags, tag)
	blk.steps = append(blk.steps, step{kind: stepClose, close: tag, node: node})
}

// Scanner states for runs interrupted by dynamic values.
type scanState int

const (
	scanText      scanState = iota
	scanLt                  // just consumed "<"
	scanLtSlash             // just consumed "</"
	scanTagName             // in an open tag's name
	scanCloseName           // in a close tag's name
	scanAttr                // between a tag's name and its ">"
	scanAttrDq              // inside a double-quoted attribute value
	scanAttrSq              // inside a single-quoted attribute value
	scanBang                // <!doctype etc., through ">"
	scanComment             // <!-- ... -->
	scanRawText             // inside a raw-text element such as <script>
)

// scan extracts tags from a run containing dynamic values.  A dynamic value
// in tag-name position makes the tag a wildcard; dynamic values in attribute
// position are ignored for matching purposes.
func (c *compiler) scan(blk *block, run []piece) {
	var (
		state    = scanText
		name     []byte
		dynamic  bool
		slash    bool // saw "/" in attribute position
		startN   ast.Node
		endName  []byte // close tag being matched in raw text, "</"+name
		endMatch int
	)

	var emit = func(selfClosing bool, isClose bool) {
		var n = tagName(name)
		if dynamic {
			n = ""
		}
		if isClose {
			c.emitClose(blk, startN, n, dynamic)
			state = scanText
			return
		}
		c.emitOpen(blk, startN, n, dynamic, selfClosing)
		if !dynamic && !selfClosing && isRawTextElement(n) {
			endName = append([]byte("</"), n...)
			endMatch = 0
			state = scanRawText
			return
		}
		state = scanText
	}

	for _, p := range run {
		if p.dyn {
			switch state {
			case scanLt:
				state, name, dynamic, startN = scanTagName, nil, true, p.node
			case scanLtSlash:
				state, name, dynamic, startN = scanCloseName, nil, true, p.node
			case scanTagName, scanCloseName:
				dynamic = true
			}
			// In text, attribute, raw-text, and comment positions a
			// dynamic value has no effect on tag structure.
			continue
		}
		var s = p.text
		for i := 0; i < len(s); i++ {
			var ch = s[i]
			switch state {
			case scanText:
				if ch == '<' {
					state = scanLt
				}
			case scanLt:
				switch {
				case ch == '/':
					state = scanLtSlash
				case isNameByte(ch):
					state, name, dynamic, startN = scanTagName, []byte{ch}, false, p.node
				case ch == '!':
					if strings.HasPrefix(s[i:], "!--") {
						state = scanComment
						i += 2
					} else {
						state = scanBang
					}
				case ch == '?':
					state = scanBang
				default:
					state = scanText
				}
			case scanLtSlash:
				if isNameByte(ch) {
					state, name, dynamic, startN = scanCloseName, []byte{ch}, false, p.node
				} else {
					state = scanText
				}
			case scanTagName, scanCloseName:
				switch {
				case isNameByte(ch):
					name = append(name, ch)
				case ch == '>':
					emit(false, state == scanCloseName)
				case ch == '/' && state == scanTagName:
					state, slash = scanAttr, true
				default:
					var isClose = state == scanCloseName
					state, slash = scanAttr, false
					if isClose {
						state = scanCloseName // close tags take no attributes; wait for ">"
						// consume until ">"
						for i < len(s) && s[i] != '>' {
							i++
						}
						if i < len(s) {
							emit(false, true)
						}
					}
				}
			case scanAttr:
				switch ch {
				case '>':
					emit(slash, false)
					slash = false
				case '/':
					slash = true
				case '"':
					state, slash = scanAttrDq, false
				case '\'':
					state, slash = scanAttrSq, false
				default:
					if !isSpaceByte(ch) {
						slash = false
					}
				}
			case scanAttrDq:
				if ch == '"' {
					state = scanAttr
				}
			case scanAttrSq:
				if ch == '\'' {
					state = scanAttr
				}
			case scanBang:
				if ch == '>' {
					state = scanText
				}
			case scanComment:
				if ch == '>' && i >= 2 && s[i-2] == '-' && s[i-1] == '-' {
					state = scanText
				}
			case scanRawText:
				if lowerByte(ch) == lowerByte(endName[endMatch]) {
					endMatch++
					if endMatch == len(endName) {
						// Consume through the ">".
						for i+1 < len(s) && s[i+1] != '>' {
							i++
						}
						i++
						name, dynamic, startN = endName[2:], false, p.node
						emit(false, true)
						endMatch = 0
					}
				} else if lowerByte(ch) == lowerByte(endName[0]) {
					endMatch = 1
				} else {
					endMatch = 0
				}
			}
		}
	}

	// A run that ends mid-tag was interrupted by control flow in attribute
	// position.  The tag's name is already known, so record the open tag;
	// its attributes do not affect matching.
	switch state {
	case scanTagName, scanAttr, scanAttrDq, scanAttrSq:
		emit(false, false)
	case scanCloseName:
		emit(false, true)
	}
}

func isNameByte(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' ||
		'0' <= ch && ch <= '9' || ch == '-' || ch == ':'
}

func isSpaceByte(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func lowerByte(ch byte) byte {
	if 'A' <= ch && ch <= 'Z' {
		return ch + 'a' - 'A'
	}
	return ch
}

// isRawTextElement reports whether the element's content is raw text in
// which "<" does not start a tag.
func isRawTextElement(name string) bool {
	switch name {
	case "script", "style", "title", "textarea":
		return true
	}
	return false
}
