package autoescape

// An escapingMode describes a print directive that the rewriter may insert to
// make a dynamic value safe in its surrounding context.
type escapingMode struct {
	// directiveName is how the mode is spelled in template source.
	directiveName string

	// name is the constant-style spelling used in error messages.
	name string

	// htmlEmbeddable is true if the mode's output may be embedded in an
	// HTML attribute without further attribute escaping.
	htmlEmbeddable bool
}

func (m *escapingMode) String() string { return m.name }

var (
	modeEscapeHTML            = &escapingMode{"escapeHtml", "ESCAPE_HTML", true}
	modeEscapeHTMLRcdata      = &escapingMode{"escapeHtmlRcdata", "ESCAPE_HTML_RCDATA", true}
	modeEscapeHTMLAttr        = &escapingMode{"escapeHtmlAttribute", "ESCAPE_HTML_ATTRIBUTE", true}
	modeEscapeHTMLAttrNospace = &escapingMode{"escapeHtmlAttributeNospace", "ESCAPE_HTML_ATTRIBUTE_NOSPACE", true}
	modeFilterHTMLElementName = &escapingMode{"filterHtmlElementName", "FILTER_HTML_ELEMENT_NAME", true}
	modeFilterHTMLAttributes  = &escapingMode{"filterHtmlAttributes", "FILTER_HTML_ATTRIBUTES", true}
	modeEscapeJSString        = &escapingMode{"escapeJsString", "ESCAPE_JS_STRING", false}
	modeEscapeJSValue         = &escapingMode{"escapeJsValue", "ESCAPE_JS_VALUE", false}
	modeEscapeJSRegex         = &escapingMode{"escapeJsRegex", "ESCAPE_JS_REGEX", false}
	modeEscapeCSSString       = &escapingMode{"escapeCssString", "ESCAPE_CSS_STRING", false}
	modeFilterCSSValue        = &escapingMode{"filterCssValue", "FILTER_CSS_VALUE", false}
	modeEscapeURI             = &escapingMode{"escapeUri", "ESCAPE_URI", true}
	modeNormalizeURI          = &escapingMode{"normalizeUri", "NORMALIZE_URI", false}
	modeFilterNormalizeURI    = &escapingMode{"filterNormalizeUri", "FILTER_NORMALIZE_URI", false}
	modeText                  = &escapingMode{"text", "TEXT", false}
	modeNoAutoescape          = &escapingMode{"noAutoescape", "NO_AUTOESCAPE", false}
)

// modesByDirective maps the source spelling of each escaping directive back to
// its mode, for recognizing directives the template author wrote themselves.
var modesByDirective = map[string]*escapingMode{}

func init() {
	for _, m := range []*escapingMode{
		modeEscapeHTML, modeEscapeHTMLRcdata, modeEscapeHTMLAttr,
		modeEscapeHTMLAttrNospace, modeFilterHTMLElementName,
		modeFilterHTMLAttributes, modeEscapeJSString, modeEscapeJSValue,
		modeEscapeJSRegex, modeEscapeCSSString, modeFilterCSSValue,
		modeEscapeURI, modeNormalizeURI, modeFilterNormalizeURI,
		modeText, modeNoAutoescape,
	} {
		modesByDirective[m.directiveName] = m
	}
}

// escapingModes returns the escaping directives required to render a dynamic
// value safely in context c, in application order.
func escapingModes(c context, line int) ([]*escapingMode, *Error) {
	var modes []*escapingMode
	switch c.state {
	case stateText:
		modes = append(modes, modeEscapeHTML)
	case stateRCDATA:
		modes = append(modes, modeEscapeHTMLRcdata)
	case stateTagName:
		modes = append(modes, modeFilterHTMLElementName)
	case stateTag, stateAttrName:
		modes = append(modes, modeFilterHTMLAttributes)
	case stateAttr:
		// Attribute escaping is appended below based on the delimiter.
	case stateURL, stateCSSDqURL, stateCSSSqURL, stateCSSURL:
		switch c.urlPart {
		case urlPartNone:
			modes = append(modes, modeFilterNormalizeURI)
		case urlPartPreQuery:
			modes = append(modes, modeNormalizeURI)
		case urlPartQueryOrFrag:
			modes = append(modes, modeEscapeURI)
		case urlPartFragment:
			// Fragments are never sent on the wire, so percent-encoding
			// buys nothing; the attribute escaping below suffices.
			if c.delim == delimNone {
				modes = append(modes, modeNormalizeURI)
			}
		default:
			return nil, errorf(ErrAmbigContext, line,
				"Cannot determine which part of the URL this dynamic value is in.")
		}
	case stateJS:
		modes = append(modes, modeEscapeJSValue)
	case stateJSDqStr, stateJSSqStr:
		modes = append(modes, modeEscapeJSString)
	case stateJSRegexp:
		modes = append(modes, modeEscapeJSRegex)
	case stateCSS:
		modes = append(modes, modeFilterCSSValue)
	case stateCSSDqStr, stateCSSSqStr:
		modes = append(modes, modeEscapeCSSString)
	case stateError:
		return nil, c.err
	default:
		return nil, errorf(ErrOutputContext, line, "unexpected context %v", c)
	}
	if c.delim != delimNone {
		if len(modes) == 0 || !modes[len(modes)-1].htmlEmbeddable {
			if c.delim == delimSpaceOrTagEnd {
				modes = append(modes, modeEscapeHTMLAttrNospace)
			} else {
				modes = append(modes, modeEscapeHTMLAttr)
			}
		}
	}
	return modes, nil
}

// isCompatibleWith reports whether output escaped with the given mode is
// acceptable, though possibly lossy, in context c.  Used to decide whether a
// directive the author wrote themselves may be left alone.
func (c context) isCompatibleWith(m *escapingMode) bool {
	switch m {
	case modeEscapeJSValue:
		// escapeJsValue produces an unquoted expression, which is
		// wrong inside a quoted string or regex literal.
		switch c.state {
		case stateJSDqStr, stateJSSqStr, stateJSRegexp,
			stateCSSDqStr, stateCSSSqStr:
			return false
		}
	}
	return true
}

// beforeDynamicValue normalizes a context before a print or call lands in it.
func beforeDynamicValue(c context) context {
	c = nudge(c)
	switch c.state {
	case stateJS:
		// The dynamic value counts as an expression, so a following
		// slash is a division operator.
		c.jsCtx = jsCtxDivOp
	}
	return c
}

// contextAfterDynamicValue returns the context after a dynamic value is
// rendered into context c.
func contextAfterDynamicValue(c context) context {
	switch c.state {
	case stateURL, stateCSSDqURL, stateCSSSqURL, stateCSSURL:
		if c.urlPart == urlPartNone {
			c.urlPart = urlPartPreQuery
		}
	}
	return c
}

// join returns the least upper bound of two branch end contexts, or a context
// with stateError if the branches diverge irreconcilably.  The caller supplies
// the error message since it differs by command.
func join(a, b context) context {
	if a.state == stateError {
		return a
	}
	if b.state == stateError {
		return b
	}
	if a.eq(b) {
		return a
	}

	c := a
	c.urlPart = b.urlPart
	if c.eq(b) {
		c.urlPart = urlPartUnknown
		return c
	}

	c = a
	c.jsCtx = b.jsCtx
	if c.eq(b) {
		c.jsCtx = jsCtxUnknown
		return c
	}

	c = a
	c.attr = b.attr
	if c.eq(b) {
		c.attr = attrNone
		return c
	}

	c = a
	c.element = b.element
	if c.eq(b) {
		c.element = elementNone
		return c
	}

	// A branch that ends half way through a tag name joins with one that
	// has moved on to attributes:
	//     <div{if $c} class="x"{/if}>
	// The dynamic-name interpretation is dropped since the joined context
	// can only be used inside the tag.
	if a.state == stateTagName || b.state == stateTagName {
		c, d := a, b
		if c.state == stateTagName {
			c.state = stateTag
		}
		if d.state == stateTagName {
			d.state = stateTag
		}
		if !(c.eq(a) && d.eq(b)) {
			return join(c, d)
		}
	}

	// An unquoted attribute value in one branch joins with the tag body in
	// the other:
	//     <input {if $c}id={$id}{/if}>
	// A space or ">" exits the unquoted value, so the joined context stays
	// in the value.
	if a.state == stateAttr && a.delim == delimSpaceOrTagEnd &&
		(b.state == stateTag || b.state == stateAttrName || b.state == stateAfterName) {
		return a
	}
	if b.state == stateAttr && b.delim == delimSpaceOrTagEnd &&
		(a.state == stateTag || a.state == stateAttrName || a.state == stateAfterName) {
		return b
	}

	// Allow an attribute to be closed in one branch but not the other:
	//     {if $p} dir=ltr{/if}
	// nudging follows the empty-string transitions out of the open
	// attribute so the contexts can be compared on equal footing.
	if c, d := nudge(a), nudge(b); !(c.eq(a) && d.eq(b)) {
		return join(c, d)
	}

	return context{state: stateError}
}
