package soyc

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gosoy/soyc/ast"
	"github.com/gosoy/soyc/data"
	"github.com/gosoy/soyc/parse"
)

// ParseGlobals parses the given input, expecting the form:
//
//	<global_name> = <primitive_data>
//
// Furthermore:
//   - Empty lines and lines beginning with '//' are ignored.
//   - <primitive_data> must be a valid template expression literal for a
//     primitive type (null, boolean, integer, float, or string)
func ParseGlobals(input io.Reader) (data.Map, error) {
	var globals = make(data.Map)
	var scanner = bufio.NewScanner(input)
	for scanner.Scan() {
		var line = scanner.Text()
		if len(line) == 0 || strings.HasPrefix(line, "//") {
			continue
		}
		var eq = strings.Index(line, "=")
		if eq == -1 {
			return nil, fmt.Errorf("no equals on line: %q", line)
		}
		var (
			name = strings.TrimSpace(line[:eq])
			expr = strings.TrimSpace(line[eq+1:])
		)
		var node, err = parse.Expr(expr)
		if err != nil {
			return nil, err
		}
		value, err := literalValue(node)
		if err != nil {
			return nil, fmt.Errorf("global %s: %v", name, err)
		}
		globals[name] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return globals, nil
}

// literalValue returns the value of a primitive literal expression.
func literalValue(node ast.Node) (data.Value, error) {
	switch node := node.(type) {
	case *ast.NullNode:
		return data.Null{}, nil
	case *ast.BoolNode:
		return data.Bool(node.True), nil
	case *ast.IntNode:
		return data.Int(node.Value), nil
	case *ast.FloatNode:
		return data.Float(node.Value), nil
	case *ast.StringNode:
		return data.String(node.Value), nil
	}
	return nil, fmt.Errorf("expected a primitive literal, got %v", node)
}
