package autoescape

import (
	"reflect"

	"github.com/gosoy/soyc/ast"
)

func cloneTemplateNode(n *ast.TemplateNode) *ast.TemplateNode {
	return cloneNode(n).(*ast.TemplateNode)
}

func cloneSoyDocNode(n *ast.SoyDocNode) *ast.SoyDocNode {
	return cloneNode(n).(*ast.SoyDocNode)
}

// cloneNode deep-copies a parse tree.  Derived templates get their own copy
// of the callee's body so that rewriting one context's version never
// disturbs another's.
func cloneNode(n ast.Node) ast.Node {
	var (
		src = reflect.ValueOf(n).Elem()
		dst = reflect.New(src.Type())
	)
	dst.Elem().Set(src)
	cloneFields(dst.Elem())
	return dst.Interface().(ast.Node)
}

func cloneFields(v reflect.Value) {
	for i := 0; i < v.NumField(); i++ {
		var f = v.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.Interface, reflect.Ptr:
			if sub, ok := asNode(f); ok {
				f.Set(reflect.ValueOf(cloneNode(sub)))
			}
		case reflect.Slice:
			if f.IsNil() {
				continue
			}
			var s = reflect.MakeSlice(f.Type(), f.Len(), f.Len())
			for j := 0; j < f.Len(); j++ {
				var el = f.Index(j)
				if sub, ok := asNode(el); ok {
					s.Index(j).Set(reflect.ValueOf(cloneNode(sub)))
				} else {
					s.Index(j).Set(el)
				}
			}
			f.Set(s)
		}
	}
}

func asNode(v reflect.Value) (ast.Node, bool) {
	if (v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr) && !v.IsNil() {
		if n, ok := v.Interface().(ast.Node); ok {
			return n, true
		}
	}
	return nil, false
}
