package autoescape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/gosoy/soyc/data"
)

// PrintDirective represents a transformation applied when printing a value.
type PrintDirective struct {
	Apply           func(value data.Value, args []data.Value) data.Value
	ValidArgLengths []int

	// CancelAutoescape directives disable autoescaping for the value they
	// are applied to.  They are rejected in strict templates.
	CancelAutoescape bool

	// Kind is the content kind the directive's output is sanitized as, if
	// any.  Escaping required in such a context is applied to the input
	// rather than the output.
	Kind kind
}

// PrintDirectives are the builtin print directives.
// Callers may add their own print directives to this map.
var PrintDirectives = map[string]PrintDirective{
	"insertWordBreaks":  {directiveInsertWordBreaks, []int{1}, true, kindNone},
	"changeNewlineToBr": {directiveChangeNewlineToBr, []int{0}, true, kindNone},
	"truncate":          {directiveTruncate, []int{1, 2}, false, kindNone},
	"id":                {directiveNoAutoescape, []int{0}, true, kindNone},
	"noAutoescape":      {directiveNoAutoescape, []int{0}, true, kindNone},
	"json":              {directiveJSON, []int{0}, true, kindNone},
	"bidiSpanWrap":      {directiveBidiSpanWrap, []int{0}, false, kindHTML},
	"bidiUnicodeWrap":   {directiveBidiUnicodeWrap, []int{0}, false, kindHTML},

	"text":                       {directiveNoAutoescape, []int{0}, false, kindNone},
	"escapeHtml":                 {escapeHTML, []int{0}, false, kindNone},
	"escapeHtmlRcdata":           {escapeHTMLRcdata, []int{0}, false, kindNone},
	"escapeHtmlAttribute":        {escapeHTMLAttribute, []int{0}, false, kindNone},
	"escapeHtmlAttributeNospace": {escapeHTMLAttributeNospace, []int{0}, false, kindNone},
	"filterHtmlElementName":      {filterHTMLElementName, []int{0}, false, kindNone},
	"filterHtmlAttributes":       {filterHTMLAttributes, []int{0}, false, kindNone},
	"escapeJsString":             {escapeJSString, []int{0}, false, kindNone},
	"escapeJsValue":              {escapeJSValue, []int{0}, false, kindNone},
	"escapeJsRegex":              {escapeJSRegex, []int{0}, false, kindNone},
	"escapeCssString":            {escapeCSSString, []int{0}, false, kindNone},
	"filterCssValue":             {filterCSSValue, []int{0}, false, kindNone},
	"escapeUri":                  {escapeURI, []int{0}, false, kindNone},
	"normalizeUri":               {normalizeURI, []int{0}, false, kindNone},
	"filterNormalizeUri":         {filterNormalizeURI, []int{0}, false, kindNone},
}

func directiveInsertWordBreaks(value data.Value, args []data.Value) data.Value {
	var (
		input    = toString(escapeHTML(value, nil))
		maxChars = int(args[0].(data.Int))
		chars    = 0
		output   *bytes.Buffer // create the buffer lazily
	)
	for i, ch := range input {
		switch {
		case ch == ' ':
			chars = 0
		case chars >= maxChars:
			if output == nil {
				output = bytes.NewBufferString(input[:i])
			}
			output.WriteString("<wbr>")
			chars = 1
		default:
			chars++
		}
		if output != nil {
			output.WriteRune(ch)
		}
	}
	if output == nil {
		return data.String(input)
	}
	return data.String(output.String())
}

var newlinePattern = regexp.MustCompile(`\r\n|\r|\n`)

func directiveChangeNewlineToBr(value data.Value, _ []data.Value) data.Value {
	return data.String(newlinePattern.ReplaceAllString(
		toString(escapeHTML(value, nil)), "<br>"))
}

func directiveTruncate(value data.Value, args []data.Value) data.Value {
	if _, ok := args[0].(data.Int); !ok {
		panic(fmt.Errorf("First parameter of '|truncate' is not an integer: %v", args[0]))
	}
	var maxLen = int(args[0].(data.Int))
	var str = toString(value)
	if len(str) <= maxLen {
		return value
	}

	var ellipsis = data.Bool(true)
	if len(args) == 2 {
		var ok bool
		ellipsis, ok = args[1].(data.Bool)
		if !ok {
			panic(fmt.Errorf("Second parameter of '|truncate' is not a bool: %v", args[1]))
		}
	}

	if ellipsis {
		if maxLen > 3 {
			maxLen -= 3
		} else {
			ellipsis = false
		}
	}

	for !utf8.RuneStart(str[maxLen]) {
		maxLen--
	}

	str = str[:maxLen]
	if ellipsis {
		str += "..."
	}
	return data.String(str)
}

func directiveNoAutoescape(value data.Value, _ []data.Value) data.Value {
	return value
}

func directiveJSON(value data.Value, _ []data.Value) data.Value {
	j, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Errorf("Error JSON encoding value: %v", err))
	}
	return data.String(j)
}

// directiveBidiSpanWrap wraps RTL text in a span that isolates its direction
// from the (assumed LTR) surrounding page.
func directiveBidiSpanWrap(value data.Value, _ []data.Value) data.Value {
	var str = toString(value)
	if estimateDirection(str) == dirRTL {
		return data.String(`<span dir="rtl">` + str + "</span>")
	}
	return value
}

// directiveBidiUnicodeWrap is like bidiSpanWrap for contexts where markup is
// not allowed, using Unicode directional formatting characters instead.
func directiveBidiUnicodeWrap(value data.Value, _ []data.Value) data.Value {
	var str = toString(value)
	if estimateDirection(str) == dirRTL {
		return data.String("‫" + str + "‬‎")
	}
	return value
}

type direction int

const (
	dirLTR direction = iota
	dirRTL
)

// estimateDirection guesses the overall direction of text by majority vote of
// its strongly-directional runes.
func estimateDirection(s string) direction {
	var ltr, rtl int
	for _, r := range s {
		switch {
		case unicode.In(r, unicode.Hebrew, unicode.Arabic, unicode.Syriac, unicode.Thaana):
			rtl++
		case unicode.IsLetter(r):
			ltr++
		}
	}
	if rtl > ltr {
		return dirRTL
	}
	return dirLTR
}
