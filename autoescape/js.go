// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package autoescape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gosoy/soyc/data"
)

// escapeJSValue escapes a value so that it evaluates to the equivalent
// JavaScript value when embedded in a script.  Scalars become literals padded
// with spaces so they cannot combine with surrounding tokens, and lists and
// maps become JSON.
func escapeJSValue(value data.Value, _ []data.Value) data.Value {
	switch v := value.(type) {
	case data.JS:
		return v
	case data.Undefined, data.Null:
		return data.String(" null ")
	case data.Bool, data.Int, data.Float:
		return data.String(" " + v.String() + " ")
	case data.String:
		return data.String(jsonEscape(string(v)))
	case data.List, data.Map:
		b, err := json.Marshal(v)
		if err != nil {
			panic(fmt.Errorf("Error JSON encoding value: %v", err))
		}
		return data.String(jsScriptSafe(string(b)))
	}
	return data.String(jsonEscape(toString(value)))
}

func jsonEscape(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Errorf("Error JSON encoding value: %v", err))
	}
	return jsScriptSafe(string(b))
}

// jsScriptSafe replaces the characters that could end a script element or
// change the meaning of surrounding JSON with unicode escapes.
func jsScriptSafe(s string) string {
	return strings.NewReplacer(
		"<", `\u003c`,
		">", `\u003e`,
		"&", `\u0026`,
		"\u2028", `\u2028`,
		"\u2029", `\u2029`,
	).Replace(s)
}

// jsStrReplacementTable escapes characters inside a JS string literal.
// Soy spells single-byte escapes \xXX rather than \uXXXX.
var jsStrReplacementTable = []string{
	0:    `\x00`,
	'\t': `\t`,
	'\n': `\n`,
	'\v': `\x0b`,
	'\f': `\f`,
	'\r': `\r`,
	'"':  `\x22`,
	'&':  `\x26`,
	'\'': `\x27`,
	'+':  `\x2b`,
	'/':  `\/`,
	'<':  `\x3c`,
	'=':  `\x3d`,
	'>':  `\x3e`,
	'\\': `\\`,
}

// jsRegexpReplacementTable is like jsStrReplacementTable but additionally
// escapes the regular expression metacharacters so the value matches itself
// literally.
var jsRegexpReplacementTable = []string{
	0:    `\x00`,
	'\t': `\t`,
	'\n': `\n`,
	'\v': `\x0b`,
	'\f': `\f`,
	'\r': `\r`,
	'"':  `\x22`,
	'$':  `\$`,
	'&':  `\x26`,
	'\'': `\x27`,
	'(':  `\(`,
	')':  `\)`,
	'*':  `\*`,
	'+':  `\x2b`,
	'-':  `\-`,
	'.':  `\.`,
	'/':  `\/`,
	'<':  `\x3c`,
	'=':  `\x3d`,
	'>':  `\x3e`,
	'?':  `\?`,
	'[':  `\[`,
	'\\': `\\`,
	']':  `\]`,
	'^':  `\^`,
	'{':  `\{`,
	'|':  `\|`,
	'}':  `\}`,
}

// escapeJSString escapes a value for inclusion between quotes in a JS string
// literal.
func escapeJSString(value data.Value, _ []data.Value) data.Value {
	return data.String(replace(toString(value), jsStrReplacementTable))
}

// escapeJSRegex escapes a value for inclusion in a JS regular expression
// literal.
func escapeJSRegex(value data.Value, _ []data.Value) data.Value {
	return data.String(replace(toString(value), jsRegexpReplacementTable))
}

// replace replaces each rune r of s with replacementTable[r], provided that
// r < len(replacementTable).  The line separator runes U+2028 and U+2029 are
// always escaped since they are newlines to JS parsers but not to Go.
func replace(s string, replacementTable []string) string {
	var b bytes.Buffer
	r, w, written := rune(0), 0, 0
	for i := 0; i < len(s); i += w {
		// See comment in htmlReplacer.
		r, w = utf8.DecodeRuneInString(s[i:])
		var repl string
		switch {
		case int(r) < len(replacementTable) && replacementTable[r] != "":
			repl = replacementTable[r]
		case r == '\u2028':
			repl = `\u2028`
		case r == '\u2029':
			repl = `\u2029`
		default:
			continue
		}
		b.WriteString(s[written:i])
		b.WriteString(repl)
		written = i + w
	}
	if written == 0 {
		return s
	}
	b.WriteString(s[written:])
	return b.String()
}
