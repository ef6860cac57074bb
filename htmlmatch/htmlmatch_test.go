package htmlmatch

import (
	"strings"
	"testing"

	"github.com/gosoy/soyc/ast"
	"github.com/gosoy/soyc/parse"
	"github.com/gosoy/soyc/template"
)

func TestMatch(t *testing.T) {
	var tests = []struct {
		name string
		body string
		err  string // "" means the body must match cleanly
	}{
		{"empty", ``, ""},
		{"no tags", `hello world`, ""},
		{"balanced", `<div><b>x</b></div>`, ""},
		{"nested same name", `<div><div>x</div></div>`, ""},
		{"void elements", `<br><img src="x"><input type="text">`, ""},
		{"void with self-closing slash", `<br/><hr/>`, ""},
		{"close tag for void element", `<div></br></div>`, "void element cannot have a close tag: </br>"},
		{"self-closing non-void", `<div/>`, "self-closing syntax is only allowed on void elements: <div/>"},
		{"self-closing in foreign content", `<svg><circle cx="1"/></svg>`, ""},
		{"unclosed tag", `<div>x`, "unclosed tag at end of template: <div>"},
		{"unexpected close", `<div>x</span></div>`, "unexpected close tag </span>"},
		{"close suggests open", `<div>x</divv></div>`, `did you mean "div"?`},
		{"optional li closes", `<ul><li>A<li>B</ul>`, ""},
		{"optional p closes", `<p>one<p>two`, ""},
		{"table cells", `<table><tr><td>a<td>b</table>`, ""},
		{"gt in quoted attribute", `<div title="a>b">x</div>`, ""},
		{"script content is raw text", `<div><script>var x = '<b>';</script></div>`, ""},
		{"comment is not a tag", `<!-- <div> -->ok`, ""},
		{"doctype", `<!DOCTYPE html><html><body>x`, ""},
		{"dynamic attribute value", `<div class="{$c}">x</div>`, ""},
		{"dynamic tag name", `<{$t} class="x">content</{$t}>`, ""},
		{"dynamic tag left open", `<{$t}>content`, ""},
		{"balanced branches", `{if $a}<b>x</b>{else}<i>y</i>{/if}`, ""},
		{"branches agree on open tags", `{if $a}<div>{else}<div>{/if}x</div>`, ""},
		{"branch leaves tag open", `{if $a}<div>{/if}x</div>`, "branches leave different tags open"},
		{"switch cases agree", `{switch $a}{case 1}<b>x</b>{default}<i>y</i>{/switch}`, ""},
		{"switch without default leaves tag open", `{switch $a}{case 1}<div>{/switch}</div>`, "branches leave different tags open"},
		{"loop body balanced", `<ul>{foreach $x in $items}<li>{$x}</li>{/foreach}</ul>`, ""},
		{"loop body with optional li", `<ul>{foreach $x in $items}<li>{$x}{/foreach}</ul>`, ""},
		{"loop leaves tag open", `{foreach $x in $items}<div>{$x}{/foreach}`, "tags opened in a loop body must be closed"},
		{"tag interrupted by condition", `<div {if $a}class="a"{/if}>x</div>`, ""},
		{"kinded let must balance", `{let $x kind="html"}<div>{/let}{$x}`, "unclosed tag at end of template: <div>"},
	}

	for _, test := range tests {
		var _, err = matchBody(t, test.body)
		switch {
		case test.err == "" && err != nil:
			t.Errorf("%s: unexpected error: %s", test.name, err)
		case test.err != "" && err == nil:
			t.Errorf("%s: expected error containing %q, got none", test.name, test.err)
		case test.err != "" && !strings.Contains(err.Error(), test.err):
			t.Errorf("%s: expected error containing %q, got: %s", test.name, test.err, err)
		}
	}
}

func TestSynthesizedCloseTags(t *testing.T) {
	var result, err = matchBody(t, `<ul><li>A<li>B</ul>`)
	if err != nil {
		t.Fatal(err)
	}
	var synthetic []*ast.HtmlCloseTagNode
	for _, node := range result["test.main"] {
		if n, ok := node.(*ast.HtmlCloseTagNode); ok && n.Synthetic {
			synthetic = append(synthetic, n)
		}
	}
	if len(synthetic) != 2 {
		t.Fatalf("expected 2 synthesized close tags, got %d", len(synthetic))
	}
	for _, n := range synthetic {
		if n.Name != "li" {
			t.Errorf("synthesized close tag for %q, expected li", n.Name)
		}
		if n.Pair == nil || n.Pair.Pair != n {
			t.Errorf("synthesized </li> not paired with its open tag")
		}
	}
}

func TestPairing(t *testing.T) {
	var result, err = matchBody(t, `<div><b>x</b></div>`)
	if err != nil {
		t.Fatal(err)
	}
	var opens []*ast.HtmlOpenTagNode
	for _, node := range result["test.main"] {
		if n, ok := node.(*ast.HtmlOpenTagNode); ok {
			opens = append(opens, n)
		}
	}
	if len(opens) != 2 {
		t.Fatalf("expected 2 open tags, got %d", len(opens))
	}
	for _, open := range opens {
		if open.Pair == nil {
			t.Fatalf("<%s> has no pair", open.Name)
		}
		if open.Pair.Name != open.Name || open.Pair.Pair != open {
			t.Errorf("<%s> paired with </%s>", open.Name, open.Pair.Name)
		}
	}
}

func TestDynamicPairing(t *testing.T) {
	var result, err = matchBody(t, `<{$t}>content</{$t}>`)
	if err != nil {
		t.Fatal(err)
	}
	for _, node := range result["test.main"] {
		if n, ok := node.(*ast.HtmlOpenTagNode); ok {
			if !n.Dynamic {
				t.Errorf("expected a dynamic open tag, got <%s>", n.Name)
			}
			if n.Pair == nil || !n.Pair.Dynamic {
				t.Error("dynamic open tag not paired with a dynamic close tag")
			}
		}
	}
}

func TestNonHTMLKindsSkipped(t *testing.T) {
	var registry = template.Registry{}
	var tree, err = parse.SoyFile("test.soy", `{namespace test}

/** text */
{template .plain kind="text"}
<div>never closed, but not html
{/template}
`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := registry.Add(tree); err != nil {
		t.Fatal(err)
	}
	result, err := Match(&registry)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(result) != 0 {
		t.Errorf("expected no matched templates, got %d", len(result))
	}
}

func matchBody(t *testing.T, body string) (Result, error) {
	var registry = template.Registry{}
	var tree, err = parse.SoyFile("test.soy", `{namespace test}

/** main */
{template .main}
`+body+`
{/template}
`, nil)
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	if err := registry.Add(tree); err != nil {
		t.Fatal(err)
	}
	return Match(&registry)
}
