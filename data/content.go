package data

// Sanitized content types.  A value of one of these types carries an
// assertion that its content is already safe in the named context, and the
// escaping directives for that context pass it through unchanged.
type (
	// HTML holds a known-safe HTML document fragment.
	HTML string

	// HTMLAttr holds a known-safe sequence of HTML attribute name/value
	// pairs, e.g. ` dir="ltr"`.
	HTMLAttr string

	// JS holds a known-safe JavaScript expression.
	JS string

	// CSS holds known-safe CSS content: declarations, or a full stylesheet.
	CSS string

	// URI holds a known-safe URL or URL substring.
	URI string
)

func (v HTML) Truthy() bool     { return v != "" }
func (v HTMLAttr) Truthy() bool { return v != "" }
func (v JS) Truthy() bool       { return v != "" }
func (v CSS) Truthy() bool      { return v != "" }
func (v URI) Truthy() bool      { return v != "" }

func (v HTML) String() string     { return "'" + string(v) + "'" }
func (v HTMLAttr) String() string { return "'" + string(v) + "'" }
func (v JS) String() string       { return "'" + string(v) + "'" }
func (v CSS) String() string      { return "'" + string(v) + "'" }
func (v URI) String() string      { return "'" + string(v) + "'" }

func (v HTML) Equals(other Value) bool {
	if o, ok := other.(HTML); ok {
		return v == o
	}
	return false
}

func (v HTMLAttr) Equals(other Value) bool {
	if o, ok := other.(HTMLAttr); ok {
		return v == o
	}
	return false
}

func (v JS) Equals(other Value) bool {
	if o, ok := other.(JS); ok {
		return v == o
	}
	return false
}

func (v CSS) Equals(other Value) bool {
	if o, ok := other.(CSS); ok {
		return v == o
	}
	return false
}

func (v URI) Equals(other Value) bool {
	if o, ok := other.(URI); ok {
		return v == o
	}
	return false
}
