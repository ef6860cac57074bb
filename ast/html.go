package ast

// HTML tag nodes are produced by the htmlmatch pass from the raw text of a
// template.  They are annotations over the raw-text stream rather than
// children of it: each template's tag list lives alongside the body, and each
// open/close node carries its resolved pairing, possibly to a node the
// matcher synthesized.

type HtmlOpenTagNode struct {
	Pos
	Name        string // lowercased; "" when Dynamic
	Dynamic     bool   // tag name contains a dynamic part
	SelfClosing bool
	Foreign     bool // inside svg/math foreign content
	Pair        *HtmlCloseTagNode
}

func (n *HtmlOpenTagNode) String() string {
	if n.Dynamic {
		return "<{...}>"
	}
	if n.SelfClosing {
		return "<" + n.Name + "/>"
	}
	return "<" + n.Name + ">"
}

type HtmlCloseTagNode struct {
	Pos
	Name      string // lowercased; "" when Dynamic
	Dynamic   bool
	Synthetic bool // inserted by the matcher for an optional end tag
	Pair      *HtmlOpenTagNode
}

func (n *HtmlCloseTagNode) String() string {
	if n.Dynamic {
		return "</{...}>"
	}
	return "</" + n.Name + ">"
}
