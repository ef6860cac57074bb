// Package ast contains definitions for the in-memory representation of a Soy
// template.
package ast

import (
	"bytes"
	"fmt"
	"strconv"
)

// Node represents any singular piece of a soy template.  For example, a
// sequence of raw text or a print tag.
type Node interface {
	String() string // String returns the soy source representation of this node.
	Position() Pos  // byte position of start of node in full original input string
}

// ParentNode is any Node that has descendent nodes.  For example, the Children
// of a AddNode are the two nodes that should be added.
type ParentNode interface {
	Node
	Children() []Node
}

// Pos represents a byte position in the original input text from which this
// template was parsed.  It is useful to construct helpful error messages.
type Pos int

// Position returns this position.  It is implemented as a method so that Nodes
// may embed a Pos and fulfill this part of the Node interface for free.
func (p Pos) Position() Pos {
	return p
}

// AutoescapeType is one of the autoescape modes a namespace or template may
// declare.  Strict and contextual templates get full cross-template context
// inference; "true"/"false" get the legacy per-print treatment.
type AutoescapeType string

const (
	AutoescapeUnspecified AutoescapeType = ""
	AutoescapeOff         AutoescapeType = "false"
	AutoescapeOn          AutoescapeType = "true"
	AutoescapeContextual  AutoescapeType = "contextual"
	AutoescapeStrict      AutoescapeType = "strict"
)

// SoyFileNode represents a soy file.
type SoyFileNode struct {
	Name string
	Text string
	Body []Node
}

func (n SoyFileNode) Position() Pos {
	return 0
}

func (n SoyFileNode) Children() []Node {
	return n.Body
}

func (n SoyFileNode) String() string {
	var b bytes.Buffer
	for _, n := range n.Body {
		fmt.Fprint(&b, n)
	}
	return b.String()
}

// ListNode holds a sequence of nodes.
type ListNode struct {
	Pos
	Nodes []Node // The element nodes in lexical order.
}

func (l *ListNode) String() string {
	b := new(bytes.Buffer)
	for _, n := range l.Nodes {
		fmt.Fprint(b, n)
	}
	return b.String()
}

func (l *ListNode) Children() []Node {
	return l.Nodes
}

type RawTextNode struct {
	Pos
	Text []byte // The text; may span newlines.
}

func (t *RawTextNode) String() string {
	return string(t.Text)
}

// NamespaceNode registers the namespace of the soy file.
type NamespaceNode struct {
	Pos
	Name       string
	Autoescape AutoescapeType
}

func (c *NamespaceNode) String() string {
	return "{namespace " + c.Name + attrs("autoescape", string(c.Autoescape)) + "}"
}

// TemplateNode holds a template or deltemplate body together with its header
// declarations.
type TemplateNode struct {
	Pos
	Name       string // fully-qualified (deltemplates: the delegate name)
	Body       *ListNode
	Autoescape AutoescapeType
	Kind       string // declared content kind; "" means legacy html
	Private    bool
	Delegate   bool   // declared with {deltemplate}
	Variant    string // deltemplate variant; "" is the default variant
	Params     []*HeaderParamNode
}

func (n *TemplateNode) String() string {
	var name = "template"
	if n.Delegate {
		name = "deltemplate"
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "{%s %s%s}\n", name, n.Name,
		attrs("variant", n.Variant, "autoescape", string(n.Autoescape),
			"kind", n.Kind, "private", boolStr(n.Private)))
	for _, p := range n.Params {
		fmt.Fprintln(&b, p)
	}
	fmt.Fprintf(&b, "%s\n{/%s}\n", n.Body, name)
	return b.String()
}

func (n *TemplateNode) Children() []Node {
	var nodes = make([]Node, 0, len(n.Params)+1)
	for _, p := range n.Params {
		nodes = append(nodes, p)
	}
	return append(nodes, n.Body)
}

// HeaderParamNode is a typed parameter declaration, e.g.
//
//	{@param name: string}
//	{@param? address: ?string}
type HeaderParamNode struct {
	Pos
	Name     string
	TypeExpr string // the declared type, resolved by the typecheck pass
	Optional bool
}

func (n *HeaderParamNode) String() string {
	var tag = "@param"
	if n.Optional {
		tag += "?"
	}
	return fmt.Sprintf("{%s %s: %s}", tag, n.Name, n.TypeExpr)
}

func attrs(args ...string) string {
	var r string
	for i := 0; i < len(args)-1; i += 2 {
		if args[i+1] != "" {
			r += " " + args[i] + "=" + strconv.Quote(args[i+1])
		}
	}
	return r
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return ""
}

type SoyDocNode struct {
	Pos
	Params []*SoyDocParamNode
}

func (n *SoyDocNode) String() string {
	if len(n.Params) == 0 {
		return "\n/** */\n"
	}
	var expr = "\n/**"
	for _, param := range n.Params {
		expr += "\n * " + param.String()
	}
	return expr + "\n */\n"
}

func (n *SoyDocNode) Children() []Node {
	var nodes []Node
	for _, param := range n.Params {
		nodes = append(nodes, param)
	}
	return nodes
}

// SoyDocParamNode represents a legacy soydoc parameter declaration.  It
// carries no type; such params resolve to the unknown type.
// e.g.
//
//	/**
//	 * Says hello to the person
//	 * @param name The name of the person to say hello to.
//	 */
type SoyDocParamNode struct {
	Pos
	Name     string // e.g. "name"
	Optional bool
}

func (n *SoyDocParamNode) String() string {
	var expr = "@param"
	if n.Optional {
		expr += "?"
	}
	return expr + " " + n.Name
}

type PrintNode struct {
	Pos
	Arg        Node
	Directives []*PrintDirectiveNode
}

func (n *PrintNode) String() string {
	var expr = "{" + n.Arg.String()
	for _, d := range n.Directives {
		expr += d.String()
	}
	return expr + "}"
}

func (n *PrintNode) Children() []Node {
	var nodes = []Node{n.Arg}
	for _, child := range n.Directives {
		nodes = append(nodes, child)
	}
	return nodes
}

type PrintDirectiveNode struct {
	Pos
	Name string
	Args []Node
}

func (n *PrintDirectiveNode) String() string {
	var expr = " |" + n.Name
	for i, arg := range n.Args {
		if i == 0 {
			expr += ":"
		} else {
			expr += ","
		}
		expr += arg.String()
	}
	return expr
}

func (n *PrintDirectiveNode) Children() []Node {
	return n.Args
}

type LiteralNode struct {
	Pos
	Body string
}

func (n *LiteralNode) String() string {
	return "{literal}" + n.Body + "{/literal}"
}

type CssNode struct {
	Pos
	Expr   Node
	Suffix string
}

func (n *CssNode) String() string {
	var expr = "{css "
	if n.Expr != nil {
		expr += n.Expr.String() + ", "
	}
	return expr + n.Suffix + "}"
}

func (n *CssNode) Children() []Node {
	if n.Expr == nil {
		return nil
	}
	return []Node{n.Expr}
}

type LogNode struct {
	Pos
	Body Node
}

func (n *LogNode) String() string {
	return "{log}" + n.Body.String() + "{/log}"
}

func (n *LogNode) Children() []Node {
	return []Node{n.Body}
}

type DebuggerNode struct {
	Pos
}

func (n *DebuggerNode) String() string {
	return "{debugger}"
}

type LetValueNode struct {
	Pos
	Name string
	Expr Node
}

func (n *LetValueNode) String() string {
	return fmt.Sprintf("{let $%s: %s /}", n.Name, n.Expr)
}

func (n *LetValueNode) Children() []Node {
	return []Node{n.Expr}
}

type LetContentNode struct {
	Pos
	Name string
	Kind string
	Body Node
}

func (n *LetContentNode) String() string {
	return fmt.Sprintf("{let $%s%s}%s{/let}", n.Name, attrs("kind", n.Kind), n.Body)
}

func (n *LetContentNode) Children() []Node {
	return []Node{n.Body}
}

type MsgNode struct {
	Pos
	Meaning string
	Desc    string
	Body    *ListNode
}

func (n *MsgNode) String() string {
	return fmt.Sprintf("{msg desc=%q}%s{/msg}", n.Desc, n.Body)
}

func (n *MsgNode) Children() []Node {
	return []Node{n.Body}
}

// CallNode invokes another template.  Escapes is filled in by the autoescape
// pass with the escaping directives to apply to the call's output, and Callee
// by the same pass when the call is redirected to a derived template.
type CallNode struct {
	Pos
	Name    string
	AllData bool
	Data    Node
	Params  []Node
	Escapes []string
	Callee  string // rewritten callee name; "" means Name
}

func (n *CallNode) String() string {
	var expr = fmt.Sprintf("{call %s", n.calleeName())
	if n.AllData {
		expr += ` data="all"`
	} else if n.Data != nil {
		expr += fmt.Sprintf(` data="%s"`, n.Data.String())
	}
	if n.Params == nil {
		return expr + " /}"
	}
	expr += "}"
	for _, param := range n.Params {
		expr += param.String()
	}
	return expr + "{/call}"
}

func (n *CallNode) calleeName() string {
	if n.Callee != "" {
		return n.Callee
	}
	return n.Name
}

func (n *CallNode) Children() []Node {
	var nodes []Node
	if n.Data != nil {
		nodes = append(nodes, n.Data)
	}
	for _, child := range n.Params {
		nodes = append(nodes, child)
	}
	return nodes
}

// DelCallNode invokes a delegate template by delegate name; the variant
// selects among deltemplate definitions at render time.
type DelCallNode struct {
	Pos
	Name    string
	Variant Node // expression; nil for the default variant
	AllData bool
	Data    Node
	Params  []Node
	Escapes []string
}

func (n *DelCallNode) String() string {
	var expr = fmt.Sprintf("{delcall %s", n.Name)
	if n.Variant != nil {
		expr += fmt.Sprintf(` variant="%s"`, n.Variant)
	}
	if n.AllData {
		expr += ` data="all"`
	} else if n.Data != nil {
		expr += fmt.Sprintf(` data="%s"`, n.Data.String())
	}
	if n.Params == nil {
		return expr + " /}"
	}
	expr += "}"
	for _, param := range n.Params {
		expr += param.String()
	}
	return expr + "{/delcall}"
}

func (n *DelCallNode) Children() []Node {
	var nodes []Node
	if n.Variant != nil {
		nodes = append(nodes, n.Variant)
	}
	if n.Data != nil {
		nodes = append(nodes, n.Data)
	}
	for _, child := range n.Params {
		nodes = append(nodes, child)
	}
	return nodes
}

type CallParamValueNode struct {
	Pos
	Key   string
	Value Node
}

func (n *CallParamValueNode) String() string {
	return fmt.Sprintf("{param %s: %s /}", n.Key, n.Value.String())
}

func (n *CallParamValueNode) Children() []Node {
	return []Node{n.Value}
}

type CallParamContentNode struct {
	Pos
	Key     string
	Kind    string
	Content Node
}

func (n *CallParamContentNode) String() string {
	return fmt.Sprintf("{param %s%s}%s{/param}", n.Key, attrs("kind", n.Kind), n.Content.String())
}

func (n *CallParamContentNode) Children() []Node {
	return []Node{n.Content}
}

// Control flow ----------

type IfNode struct {
	Pos
	Conds []*IfCondNode
}

func (n *IfNode) String() string {
	var expr string
	for i, cond := range n.Conds {
		if i == 0 {
			expr += "{if "
		} else if cond.Cond == nil {
			expr += "{else}"
		} else {
			expr += "{elseif "
		}
		expr += cond.String()
	}
	return expr + "{/if}"
}

func (n *IfNode) Children() []Node {
	var nodes []Node
	for _, child := range n.Conds {
		nodes = append(nodes, child)
	}
	return nodes
}

type IfCondNode struct {
	Pos
	Cond Node // nil if "else"
	Body Node
}

func (n *IfCondNode) String() string {
	var expr string
	if n.Cond != nil {
		expr = n.Cond.String() + "}"
	}
	return expr + n.Body.String()
}

func (n *IfCondNode) Children() []Node {
	if n.Cond == nil {
		return []Node{n.Body}
	}
	return []Node{n.Cond, n.Body}
}

type SwitchNode struct {
	Pos
	Value Node
	Cases []*SwitchCaseNode
}

func (n *SwitchNode) String() string {
	var expr = "{switch " + n.Value.String() + "}"
	for _, caseNode := range n.Cases {
		expr += caseNode.String()
	}
	return expr + "{/switch}"
}

func (n *SwitchNode) Children() []Node {
	var nodes = []Node{n.Value}
	for _, child := range n.Cases {
		nodes = append(nodes, child)
	}
	return nodes
}

type SwitchCaseNode struct {
	Pos
	Values []Node // len(Values) == 0 => default case
	Body   Node
}

func (n *SwitchCaseNode) String() string {
	if len(n.Values) == 0 {
		return "{default}" + n.Body.String()
	}
	var expr = "{case "
	for i, val := range n.Values {
		if i > 0 {
			expr += ","
		}
		expr += val.String()
	}
	return expr + "}" + n.Body.String()
}

func (n *SwitchCaseNode) Children() []Node {
	var nodes []Node
	for _, child := range n.Values {
		nodes = append(nodes, child)
	}
	return append(nodes, n.Body)
}

// Note:
// - "For" node is required to have a range() call as the List
// - "Foreach" node is required to have a DataRefNode as the List
type ForNode struct {
	Pos
	Var     string // without the leading $
	List    Node
	Body    Node
	IfEmpty Node
}

func (n *ForNode) String() string {
	var _, isForeach = n.List.(*DataRefNode)
	var name = "for"
	if isForeach {
		name = "foreach"
	}

	var expr = "{" + name + " "
	expr += "$" + n.Var + " in " + n.List.String() + "}" + n.Body.String()
	if n.IfEmpty != nil {
		expr += "{ifempty}" + n.IfEmpty.String()
	}
	return expr + "{/" + name + "}"
}

func (n *ForNode) Children() []Node {
	var children = make([]Node, 2, 3)
	children[0] = n.List
	children[1] = n.Body
	if n.IfEmpty != nil {
		children = append(children, n.IfEmpty)
	}
	return children
}
