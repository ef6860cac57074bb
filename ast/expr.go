package ast

import (
	"fmt"
	"strconv"

	"github.com/gosoy/soyc/data"
	"github.com/gosoy/soyc/types"
)

// Expr is an expression node.  Every expression carries a type annotation
// slot, filled in by the typecheck pass before any later pass may read it.
type Expr interface {
	Node
	SetType(types.Type)
	Type() types.Type
	TypeOrNil() types.Type
}

// Typed is embedded by expression nodes to hold the resolved type.
type Typed struct {
	typ types.Type
}

func (t *Typed) SetType(typ types.Type) { t.typ = typ }

// Type returns the resolved type.  Asking before the typecheck pass has run
// is a compiler bug, not a user error.
func (t *Typed) Type() types.Type {
	if t.typ == nil {
		panic("soyc: internal error: expression type requested before resolution")
	}
	return t.typ
}

// TypeOrNil returns the resolved type, or nil if resolution has not run.
func (t *Typed) TypeOrNil() types.Type { return t.typ }

// Values ----------

type NullNode struct {
	Pos
	Typed
}

func (s *NullNode) String() string {
	return "null"
}

type BoolNode struct {
	Pos
	Typed
	True bool
}

func (b *BoolNode) String() string {
	if b.True {
		return "true"
	}
	return "false"
}

type IntNode struct {
	Pos
	Typed
	Value int64
}

func (n *IntNode) String() string {
	return strconv.FormatInt(n.Value, 10)
}

type FloatNode struct {
	Pos
	Typed
	Value float64
}

func (n *FloatNode) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

type StringNode struct {
	Pos
	Typed
	Quoted string // e.g. 'hello\tworld'
	Value  string // e.g. hello	world
}

func (s *StringNode) String() string {
	return s.Quoted
}

// GlobalNode is a reference to a compile-time constant.  Its value is bound
// by the globals parse pass.
type GlobalNode struct {
	Pos
	Typed
	Name string
	data.Value
}

func (n *GlobalNode) String() string {
	return n.Name
}

// FunctionNode calls a builtin or plugin function.  Signature is resolved by
// the typecheck pass.
type FunctionNode struct {
	Pos
	Typed
	Name      string
	Args      []Node
	Signature *FuncSignature
}

// FuncSignature is a resolved function signature: parameter types and the
// result type.
type FuncSignature struct {
	Params []types.Type
	Result types.Type
}

func (n *FunctionNode) String() string {
	var expr = n.Name + "("
	for i, arg := range n.Args {
		if i > 0 {
			expr += ","
		}
		expr += arg.String()
	}
	return expr + ")"
}

func (n *FunctionNode) Children() []Node {
	return n.Args
}

type ListLiteralNode struct {
	Pos
	Typed
	Items []Node
}

func (n *ListLiteralNode) String() string {
	var expr = "["
	for i, item := range n.Items {
		if i > 0 {
			expr += ", "
		}
		expr += item.String()
	}
	return expr + "]"
}

func (n *ListLiteralNode) Children() []Node {
	return n.Items
}

// MapLiteralNode keeps its entries in source order so that duplicate keys can
// be reported at the right position.
type MapLiteralNode struct {
	Pos
	Typed
	Items []*MapEntryNode
}

func (n *MapLiteralNode) String() string {
	if len(n.Items) == 0 {
		return "[:]"
	}
	var expr = "["
	for i, entry := range n.Items {
		if i > 0 {
			expr += ", "
		}
		expr += entry.String()
	}
	return expr + "]"
}

func (n *MapLiteralNode) Children() []Node {
	var nodes []Node
	for _, entry := range n.Items {
		nodes = append(nodes, entry)
	}
	return nodes
}

type MapEntryNode struct {
	Pos
	Key   string
	Value Node
}

func (n *MapEntryNode) String() string {
	return fmt.Sprintf("'%s': %s", n.Key, n.Value.String())
}

func (n *MapEntryNode) Children() []Node {
	return []Node{n.Value}
}

// Data References ----------

type DataRefNode struct {
	Pos
	Typed
	Key    string
	Access []Node
}

func (n *DataRefNode) String() string {
	var expr = "$" + n.Key
	for _, access := range n.Access {
		expr += access.String()
	}
	return expr
}

func (n *DataRefNode) Children() []Node {
	return n.Access
}

type DataRefIndexNode struct {
	Pos
	Typed
	NullSafe bool
	Index    int
}

func (n *DataRefIndexNode) String() string {
	var expr = "."
	if n.NullSafe {
		expr = "?" + expr
	}
	return expr + strconv.Itoa(n.Index)
}

type DataRefExprNode struct {
	Pos
	Typed
	NullSafe bool
	Arg      Node
}

func (n *DataRefExprNode) String() string {
	var expr = "["
	if n.NullSafe {
		expr = "?" + expr
	}
	return expr + n.Arg.String() + "]"
}

func (n *DataRefExprNode) Children() []Node {
	return []Node{n.Arg}
}

type DataRefKeyNode struct {
	Pos
	Typed
	NullSafe bool
	Key      string
}

func (n *DataRefKeyNode) String() string {
	var expr = "."
	if n.NullSafe {
		expr = "?" + expr
	}
	return expr + n.Key
}

// Operators ----------

type NotNode struct {
	Pos
	Typed
	Arg Node
}

func (n *NotNode) String() string {
	return "not " + n.Arg.String()
}

func (n *NotNode) Children() []Node {
	return []Node{n.Arg}
}

type NegateNode struct {
	Pos
	Typed
	Arg Node
}

func (n *NegateNode) String() string {
	return "-" + n.Arg.String()
}

func (n *NegateNode) Children() []Node {
	return []Node{n.Arg}
}

type BinaryOpNode struct {
	Name string
	Pos
	Typed
	Arg1, Arg2 Node
}

func (n *BinaryOpNode) String() string {
	return n.Arg1.String() + n.Name + n.Arg2.String()
}

func (n *BinaryOpNode) Children() []Node {
	return []Node{n.Arg1, n.Arg2}
}

type (
	MulNode   struct{ BinaryOpNode }
	DivNode   struct{ BinaryOpNode }
	ModNode   struct{ BinaryOpNode }
	AddNode   struct{ BinaryOpNode }
	SubNode   struct{ BinaryOpNode }
	EqNode    struct{ BinaryOpNode }
	NotEqNode struct{ BinaryOpNode }
	GtNode    struct{ BinaryOpNode }
	GteNode   struct{ BinaryOpNode }
	LtNode    struct{ BinaryOpNode }
	LteNode   struct{ BinaryOpNode }
	OrNode    struct{ BinaryOpNode }
	AndNode   struct{ BinaryOpNode }
	ElvisNode struct{ BinaryOpNode }
)

type TernNode struct {
	Pos
	Typed
	Arg1, Arg2, Arg3 Node
}

func (n *TernNode) String() string {
	return n.Arg1.String() + "?" + n.Arg2.String() + ":" + n.Arg3.String()
}

func (n *TernNode) Children() []Node {
	return []Node{n.Arg1, n.Arg2, n.Arg3}
}
