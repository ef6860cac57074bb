package autoescape

import "fmt"

// Error describes a problem encountered while inferring escaping contexts.
type Error struct {
	ErrorCode
	Name        string // the fully-qualified name of the offending template
	File        string // the soy file that defines it
	Line        int
	Description string
}

// ErrorCode classifies escaping errors.
type ErrorCode int

const (
	// OK indicates the lack of an error.
	OK ErrorCode = iota

	// ErrAmbigContext: a dynamic value appears where the surrounding
	// context cannot be determined, e.g. in a URL whose query boundary
	// depends on the branch taken.
	ErrAmbigContext

	// ErrBadHTML: the raw text contains HTML that the context engine
	// cannot parse, e.g. a quote or angle bracket in an attribute name.
	ErrBadHTML

	// ErrBranchEnd: branches of an {if}, {switch} or loop end in
	// irreconcilable contexts.
	ErrBranchEnd

	// ErrEndContext: a template or strict block ends in a context
	// incompatible with its content kind, e.g. inside an open string.
	ErrEndContext

	// ErrNoSuchTemplate: a contextual call names a template that cannot
	// be found in the registry.
	ErrNoSuchTemplate

	// ErrOutputContext: no valid escaping exists for the computed context.
	ErrOutputContext

	// ErrPartialCharset: a JS regexp character class is interrupted by a
	// dynamic value.
	ErrPartialCharset

	// ErrPartialEscape: a backslash escape sequence is interrupted by a
	// dynamic value.
	ErrPartialEscape

	// ErrSlashAmbig: a slash could be either a division operator or a
	// regexp delimiter depending on the branch taken.
	ErrSlashAmbig

	// ErrEscapeCancelled: an escape-cancelling print directive appears
	// where autoescaping may not be disabled.
	ErrEscapeCancelled
)

func (e *Error) Error() string {
	var file = e.File
	if file == "" {
		file = "no-path"
	}
	if e.Name != "" {
		return fmt.Sprintf("In file %s:%d, template %s: %s", file, e.Line, e.Name, e.Description)
	}
	return fmt.Sprintf("In file %s:%d: %s", file, e.Line, e.Description)
}

// errorf returns an error with the given code, line, and description.  The
// template name and file are filled in by the inference engine once the error
// propagates out of the raw text machinery.
func errorf(code ErrorCode, line int, f string, args ...interface{}) *Error {
	return &Error{ErrorCode: code, Line: line, Description: fmt.Sprintf(f, args...)}
}
