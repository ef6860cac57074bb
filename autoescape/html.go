// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package autoescape

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/gosoy/soyc/data"
)

// filterFailsafe is an innocuous word that is emitted in place of unsafe
// values by sanitizer functions.  It is not a keyword in any programming
// language, contains no special characters, is not empty, and when it appears
// in output it is distinct enough that a developer can find the source of the
// problem via a search engine.
const filterFailsafe = data.String("zSoyz")

// toString returns the string form of a value for escaping purposes, without
// the quoting that data.String.String() applies for display.
func toString(v data.Value) string {
	switch v := v.(type) {
	case data.String:
		return string(v)
	case data.HTML:
		return string(v)
	case data.HTMLAttr:
		return string(v)
	case data.JS:
		return string(v)
	case data.CSS:
		return string(v)
	case data.URI:
		return string(v)
	}
	return v.String()
}

// htmlReplacementTable contains the runes that need to be escaped inside a
// quoted attribute value or in a text node.
var htmlReplacementTable = []string{
	0:    "�",
	'"':  "&#34;",
	'&':  "&amp;",
	'\'': "&#39;",
	'<':  "&lt;",
	'>':  "&gt;",
}

// htmlNospaceReplacementTable contains the runes that need to be escaped
// inside an unquoted attribute value.  The set of runes escaped is a superset
// of the HTML specials above, and includes the space and other characters
// that would terminate an unquoted attribute value.
var htmlNospaceReplacementTable = []string{
	0:    "&#xfffd;",
	'\t': "&#9;",
	'\n': "&#10;",
	'\v': "&#11;",
	'\f': "&#12;",
	'\r': "&#13;",
	' ':  "&#32;",
	'"':  "&#34;",
	'&':  "&amp;",
	'\'': "&#39;",
	'=':  "&#61;",
	'<':  "&lt;",
	'>':  "&gt;",
	'`':  "&#96;",
}

// escapeHTML escapes a value for inclusion in an HTML text node.
func escapeHTML(value data.Value, _ []data.Value) data.Value {
	if v, ok := value.(data.HTML); ok {
		return v
	}
	return data.String(htmlReplacer(toString(value), htmlReplacementTable))
}

// escapeHTMLRcdata escapes a value for inclusion in an RCDATA element body
// such as <title> or <textarea>.
func escapeHTMLRcdata(value data.Value, _ []data.Value) data.Value {
	return data.String(htmlReplacer(toString(value), htmlReplacementTable))
}

// escapeHTMLAttribute escapes a value for inclusion in a quoted attribute
// value.  Sanitized HTML has its tags removed before escaping so that only
// its text content lands in the attribute.
func escapeHTMLAttribute(value data.Value, _ []data.Value) data.Value {
	var s string
	if v, ok := value.(data.HTML); ok {
		s = stripTags(string(v))
	} else {
		s = toString(value)
	}
	return data.String(htmlReplacer(s, htmlReplacementTable))
}

// escapeHTMLAttributeNospace is like escapeHTMLAttribute for attribute values
// delimited by spaces or the end of the tag rather than quotes.
func escapeHTMLAttributeNospace(value data.Value, _ []data.Value) data.Value {
	var s string
	if v, ok := value.(data.HTML); ok {
		s = stripTags(string(v))
	} else {
		s = toString(value)
	}
	return data.String(htmlReplacer(s, htmlNospaceReplacementTable))
}

// htmlReplacer returns s with runes replaced according to replacementTable.
func htmlReplacer(s string, replacementTable []string) string {
	var b *bytes.Buffer
	written := 0
	for i, r := range s {
		if int(r) < len(replacementTable) {
			if repl := replacementTable[r]; repl != "" {
				if b == nil {
					b = new(bytes.Buffer)
				}
				b.WriteString(s[written:i])
				b.WriteString(repl)
				// Valid as long as replacementTable doesn't
				// include anything above 0x7f.
				written = i + len(string(r))
			}
		}
	}
	if b == nil {
		return s
	}
	b.WriteString(s[written:])
	return b.String()
}

// stripTags takes a snippet of HTML and returns only the text content.
// For example, `<b>&iexcl;Hi!</b> <script>...</script>` -> `&iexcl;Hi! `.
func stripTags(html string) string {
	var b bytes.Buffer
	s, c, i, allText := []byte(html), context{}, 0, true
	// Using the transition funcs helps us avoid mangling
	// `<div title="1>2">` or `I <3 Ponies!`.
	for i != len(s) {
		if c.delim == delimNone {
			st := c.state
			// Use RCDATA instead of parsing into JS or CSS styles.
			if c.element != elementNone && !isInTag(st) {
				st = stateRCDATA
			}
			d, nread := transitionFunc[st](c, s[i:])
			i1 := i + nread
			if c.state == stateText || c.state == stateRCDATA {
				// Emit text up to the start of the tag or comment.
				j := i1
				if d.state != c.state {
					for j1 := j - 1; j1 >= i; j1-- {
						if s[j1] == '<' {
							j = j1
							break
						}
					}
				}
				b.Write(s[i:j])
			} else {
				allText = false
			}
			c, i = d, i1
			continue
		}
		i1 := i + bytes.IndexAny(s[i:], delimEnds[c.delim])
		if i1 < i {
			break
		}
		if c.delim != delimSpaceOrTagEnd {
			// Consume any quote.
			i1++
		}
		c, i = context{state: stateTag, element: c.element}, i1
	}
	if allText {
		return html
	}
	return b.String()
}

// htmlElementNamePattern matches names of elements that cannot change the
// parsing mode of the document, per the HTML_TAG_NAME sanitizer.
var htmlElementNamePattern = regexp.MustCompile(
	`^(?:[a-zA-Z0-9]+)$`)

// badElementNames are legal element names whose content is parsed as
// something other than HTML, so a dynamic tag name must not produce them.
var badElementNames = map[string]bool{
	"base":     true,
	"iframe":   true,
	"link":     true,
	"script":   true,
	"style":    true,
	"textarea": true,
	"title":    true,
	"xmp":      true,
}

// filterHTMLElementName allows only names of ordinary elements through.
func filterHTMLElementName(value data.Value, _ []data.Value) data.Value {
	var s = toString(value)
	var lower = strings.ToLower(s)
	if !htmlElementNamePattern.MatchString(s) ||
		badElementNames[lower] ||
		strings.HasPrefix(lower, "no") {
		return filterFailsafe
	}
	return data.String(s)
}

// filterHTMLAttributes allows dynamic content in tag context only when it is
// a harmless attribute name, or attributes sanitized upstream.
// Attribute names that carry URLs or code are rejected since the value cannot
// be escaped for them after the fact.
func filterHTMLAttributes(value data.Value, _ []data.Value) data.Value {
	if v, ok := value.(data.HTMLAttr); ok {
		return v
	}
	var s = toString(value)
	if !htmlAttributeOK(s) {
		return filterFailsafe
	}
	return data.String(s)
}

var riskyAttrNames = []string{
	"action", "archive", "background", "cite", "classid", "codebase",
	"data", "dsrc", "href", "longdesc", "style", "usemap",
}

func htmlAttributeOK(s string) bool {
	var lower = strings.ToLower(s)
	if strings.HasPrefix(lower, "on") {
		return false
	}
	for _, name := range riskyAttrNames {
		if lower == name {
			return false
		}
	}
	for _, r := range lower {
		switch {
		case 'a' <= r && r <= 'z', '0' <= r && r <= '9':
		case r == '_', r == '$', r == ':', r == '-':
		default:
			return false
		}
	}
	return true
}
