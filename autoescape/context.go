package autoescape

import (
	"fmt"
	"strings"
)

// context describes the state an HTML parser must be in when it reaches the
// portion of HTML produced by evaluating a particular template node.
//
// The zero value of type context is the start context for a template that
// produces an HTML fragment as defined at
// http://www.w3.org/TR/html5/syntax.html#the-end
// where the context element is null.
type context struct {
	state   state
	delim   delim
	urlPart urlPart
	jsCtx   jsCtx
	attr    attr
	element element
	err     *Error
}

// String renders the context the way escaping errors report it: the state
// name followed by whichever of the other dimensions are relevant to it.
func (c context) String() string {
	var parts = []string{c.state.String()}
	if c.attr != attrNone {
		parts = append(parts, c.attr.String())
	} else if c.delim != delimNone {
		// Inside an attribute value the attr field has been folded into the
		// state, so recover the attribute type from it.
		switch c.state {
		case stateJS, stateJSDqStr, stateJSSqStr, stateJSRegexp:
			parts = append(parts, attrScript.String())
		case stateCSS, stateCSSDqStr, stateCSSSqStr,
			stateCSSDqURL, stateCSSSqURL, stateCSSURL:
			parts = append(parts, attrStyle.String())
		case stateURL:
			parts = append(parts, attrURL.String())
		default:
			parts = append(parts, "PLAIN_TEXT")
		}
	} else if c.state == stateAttr {
		parts = append(parts, "PLAIN_TEXT")
	}
	if c.delim != delimNone {
		parts = append(parts, c.delim.String())
	}
	if c.state == stateJS {
		parts = append(parts, c.jsCtx.String())
	}
	switch c.state {
	case stateURL, stateCSSDqURL, stateCSSSqURL, stateCSSURL:
		parts = append(parts, c.urlPart.String())
	}
	return "(Context " + strings.Join(parts, " ") + ")"
}

// eq reports whether two contexts are identical.
func (c context) eq(d context) bool {
	return c.state == d.state &&
		c.delim == d.delim &&
		c.urlPart == d.urlPart &&
		c.jsCtx == d.jsCtx &&
		c.attr == d.attr &&
		c.element == d.element &&
		c.err == d.err
}

// key returns a compact representation of the context, used to memoize
// derived templates by the context they were derived for.
func (c context) key() string {
	return fmt.Sprintf("%d.%d.%d.%d.%d.%d",
		c.state, c.delim, c.urlPart, c.jsCtx, c.attr, c.element)
}

// state describes a high-level HTML parser state.
//
// It bounds the top of the element stack, and by extension the HTML insertion
// mode, but also contains state that does not correspond to anything in the
// HTML5 parsing algorithm because a single token production in the HTML
// grammar may contain embedded actions in a template. For instance, the
// quoted HTML attribute produced by
//
//	<div title="Hello {$world}">
//
// is a single token in HTML's grammar but in a template spans several nodes.
type state uint8

const (
	// stateText is parsed character data. An HTML parser is in
	// this state when its parse position is outside an HTML tag,
	// directive, comment, and special element body.
	stateText state = iota
	// stateTagName occurs inside a tag name.
	stateTagName
	// stateTag occurs before an HTML attribute or the end of a tag.
	stateTag
	// stateAttrName occurs inside an attribute name.
	// It occurs between the ^'s in ` ^name^ = value`.
	stateAttrName
	// stateAfterName occurs after an attr name has ended but before any
	// equals sign. It occurs between the ^'s in ` name^ ^= value`.
	stateAfterName
	// stateBeforeValue occurs after the equals sign but before the value.
	// It occurs between the ^'s in ` name =^ ^value`.
	stateBeforeValue
	// stateHTMLCmt occurs inside an <!-- HTML comment -->.
	stateHTMLCmt
	// stateRCDATA occurs inside an RCDATA element (<textarea> or <title>)
	// as described at http://dev.w3.org/html5/spec/syntax.html#elements-0
	stateRCDATA
	// stateAttr occurs inside an HTML attribute whose content is text.
	stateAttr
	// stateURL occurs inside an HTML attribute whose content is a URL.
	stateURL
	// stateJS occurs inside an event handler or script element.
	stateJS
	// stateJSDqStr occurs inside a JavaScript double quoted string.
	stateJSDqStr
	// stateJSSqStr occurs inside a JavaScript single quoted string.
	stateJSSqStr
	// stateJSRegexp occurs inside a JavaScript regexp literal.
	stateJSRegexp
	// stateJSBlockCmt occurs inside a JavaScript /* block comment */.
	stateJSBlockCmt
	// stateJSLineCmt occurs inside a JavaScript // line comment.
	stateJSLineCmt
	// stateCSS occurs inside a <style> element or style attribute.
	stateCSS
	// stateCSSDqStr occurs inside a CSS double quoted string.
	stateCSSDqStr
	// stateCSSSqStr occurs inside a CSS single quoted string.
	stateCSSSqStr
	// stateCSSDqURL occurs inside a CSS double quoted url("...").
	stateCSSDqURL
	// stateCSSSqURL occurs inside a CSS single quoted url('...').
	stateCSSSqURL
	// stateCSSURL occurs inside a CSS unquoted url(...).
	stateCSSURL
	// stateCSSBlockCmt occurs inside a CSS /* block comment */.
	stateCSSBlockCmt
	// stateCSSLineCmt occurs inside a CSS // line comment.
	stateCSSLineCmt
	// stateError is an infectious error state outside any valid
	// HTML/CSS/JS construct.
	stateError
)

var stateNames = [...]string{
	stateText:        "HTML_PCDATA",
	stateTagName:     "HTML_TAG_NAME",
	stateTag:         "HTML_TAG",
	stateAttrName:    "HTML_ATTRIBUTE_NAME",
	stateAfterName:   "HTML_AFTER_ATTRIBUTE_NAME",
	stateBeforeValue: "HTML_BEFORE_ATTRIBUTE_VALUE",
	stateHTMLCmt:     "HTML_COMMENT",
	stateRCDATA:      "HTML_RCDATA",
	stateAttr:        "HTML_NORMAL_ATTR_VALUE",
	stateURL:         "URI",
	stateJS:          "JS",
	stateJSDqStr:     "JS_DQ_STRING",
	stateJSSqStr:     "JS_SQ_STRING",
	stateJSRegexp:    "JS_REGEX",
	stateJSBlockCmt:  "JS_BLOCK_COMMENT",
	stateJSLineCmt:   "JS_LINE_COMMENT",
	stateCSS:         "CSS",
	stateCSSDqStr:    "CSS_DQ_STRING",
	stateCSSSqStr:    "CSS_SQ_STRING",
	stateCSSDqURL:    "CSS_DQ_URI",
	stateCSSSqURL:    "CSS_SQ_URI",
	stateCSSURL:      "CSS_URI",
	stateCSSBlockCmt: "CSS_BLOCK_COMMENT",
	stateCSSLineCmt:  "CSS_LINE_COMMENT",
	stateError:       "ERROR",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("illegal state %d", int(s))
}

// isComment reports whether the state is inside a comment.
func isComment(s state) bool {
	switch s {
	case stateHTMLCmt, stateJSBlockCmt, stateJSLineCmt, stateCSSBlockCmt, stateCSSLineCmt:
		return true
	}
	return false
}

// isInTag reports whether the state occurs inside an HTML tag.
func isInTag(s state) bool {
	switch s {
	case stateTag, stateAttrName, stateAfterName, stateBeforeValue, stateAttr:
		return true
	}
	return false
}

// delim is the delimiter that will end the current HTML attribute.
type delim uint8

const (
	// delimNone occurs outside any attribute.
	delimNone delim = iota
	// delimDoubleQuote occurs when a double quote (") closes the attribute.
	delimDoubleQuote
	// delimSingleQuote occurs when a single quote (') closes the attribute.
	delimSingleQuote
	// delimSpaceOrTagEnd occurs when a space or right angle bracket (>)
	// closes the attribute.
	delimSpaceOrTagEnd
)

var delimNames = [...]string{
	delimNone:          "NONE",
	delimDoubleQuote:   "DOUBLE_QUOTE",
	delimSingleQuote:   "SINGLE_QUOTE",
	delimSpaceOrTagEnd: "SPACE_OR_TAG_END",
}

func (d delim) String() string {
	if int(d) < len(delimNames) {
		return delimNames[d]
	}
	return fmt.Sprintf("illegal delim %d", int(d))
}

// urlPart identifies a part in an RFC 3986 hierarchical URL to allow different
// encoding strategies.
type urlPart uint8

const (
	// urlPartNone occurs when not in a URL, or possibly at the start:
	// ^ in "^http://auth/path?k=v#frag".
	urlPartNone urlPart = iota
	// urlPartPreQuery occurs in the scheme, authority, or path; between the
	// ^s in "h^ttp://auth/path^?k=v#frag".
	urlPartPreQuery
	// urlPartQueryOrFrag occurs in the query portion between the ^s in
	// "http://auth/path?^k=v^#frag".
	urlPartQueryOrFrag
	// urlPartFragment occurs after a '#': "http://auth/path?k=v#^frag^".
	urlPartFragment
	// urlPartUnknown occurs due to joining of contexts both before and
	// after the query separator.
	urlPartUnknown
)

var urlPartNames = [...]string{
	urlPartNone:        "START",
	urlPartPreQuery:    "PRE_QUERY",
	urlPartQueryOrFrag: "QUERY",
	urlPartFragment:    "FRAGMENT",
	urlPartUnknown:     "UNKNOWN",
}

func (u urlPart) String() string {
	if int(u) < len(urlPartNames) {
		return urlPartNames[u]
	}
	return fmt.Sprintf("illegal urlPart %d", int(u))
}

// jsCtx determines whether a '/' starts a regular expression literal or is a
// division operator, as described at
// http://www.mozilla.org/js/language/js20-2000-07/rationale/syntax.html
type jsCtx uint8

const (
	// jsCtxRegexp occurs when a '/' would start a regexp literal.
	jsCtxRegexp jsCtx = iota
	// jsCtxDivOp occurs when a '/' would start a division operator.
	jsCtxDivOp
	// jsCtxUnknown occurs where a '/' is ambiguous due to context joining.
	jsCtxUnknown
)

func (c jsCtx) String() string {
	switch c {
	case jsCtxRegexp:
		return "REGEX"
	case jsCtxDivOp:
		return "DIV_OP"
	case jsCtxUnknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("illegal jsCtx %d", int(c))
}

// element identifies the HTML element when inside a start tag or special body.
// Certain HTML element (for example <script> and <style>) have bodies that are
// treated differently from stateText so the element type is necessary to
// transition into the correct context at the end of a tag and to identify the
// end delimiter for the body.
type element uint8

const (
	// elementNone occurs outside a special tag or special element body.
	elementNone element = iota
	// elementScript corresponds to the raw text <script> element.
	elementScript
	// elementStyle corresponds to the raw text <style> element.
	elementStyle
	// elementTextarea corresponds to the RCDATA <textarea> element.
	elementTextarea
	// elementTitle corresponds to the RCDATA <title> element.
	elementTitle
)

var elementNames = [...]string{
	elementNone:     "NONE",
	elementScript:   "SCRIPT",
	elementStyle:    "STYLE",
	elementTextarea: "TEXTAREA",
	elementTitle:    "TITLE",
}

func (e element) String() string {
	if int(e) < len(elementNames) {
		return elementNames[e]
	}
	return fmt.Sprintf("illegal element %d", int(e))
}

// attr identifies the current HTML attribute when inside the attribute, that
// is, starting from stateAttrName until stateTag/stateText (exclusive).
type attr uint8

const (
	// attrNone corresponds to a normal attribute or no attribute.
	attrNone attr = iota
	// attrScript corresponds to an event handler attribute.
	attrScript
	// attrStyle corresponds to the style attribute whose value is CSS.
	attrStyle
	// attrURL corresponds to an attribute whose value is a URL.
	attrURL
)

var attrNames = [...]string{
	attrNone:   "NONE",
	attrScript: "SCRIPT",
	attrStyle:  "STYLE",
	attrURL:    "URI",
}

func (a attr) String() string {
	if int(a) < len(attrNames) {
		return attrNames[a]
	}
	return fmt.Sprintf("illegal attr %d", int(a))
}
