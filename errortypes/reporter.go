package errortypes

import (
	"bytes"
	"fmt"
)

// Severity distinguishes fatal problems from advisories.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is a single problem found at a position in a soy file.
type Diagnostic struct {
	File      string
	Line, Col int
	Severity  Severity
	Message   string
}

func (d Diagnostic) Error() string {
	var sev = ""
	if d.Severity == SeverityWarning {
		sev = "warning: "
	}
	if d.Line == 0 {
		return fmt.Sprintf("%s: %s%s", d.File, sev, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s%s", d.File, d.Line, d.Col, sev, d.Message)
}

// Reporter accumulates diagnostics across compiler passes.  Passes report
// everything they find rather than halting at the first problem; the driver
// converts the collected errors into a single failure at the end.
//
// Duplicate reports at the same position are dropped, since expression
// checking may visit shared subtrees more than once.
type Reporter struct {
	diags []Diagnostic
	seen  map[string]bool
}

func (r *Reporter) report(d Diagnostic) {
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	var key = d.Error()
	if r.seen[key] {
		return
	}
	r.seen[key] = true
	r.diags = append(r.diags, d)
}

// Errorf reports an error at the given position.
func (r *Reporter) Errorf(file string, line, col int, format string, args ...interface{}) {
	r.report(Diagnostic{file, line, col, SeverityError, fmt.Sprintf(format, args...)})
}

// Warnf reports a warning at the given position.  Warnings never fail the
// compile.
func (r *Reporter) Warnf(file string, line, col int, format string, args ...interface{}) {
	r.report(Diagnostic{file, line, col, SeverityWarning, fmt.Sprintf(format, args...)})
}

// HasErrors returns true if any error-severity diagnostic has been reported.
func (r *Reporter) HasErrors() bool {
	for _, d := range r.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Diagnostics returns everything reported so far, in report order.
func (r *Reporter) Diagnostics() []Diagnostic {
	return r.diags
}

// Checkpoint marks the current report position for a later Rollback.
// Speculative analysis uses this to discard diagnostics from abandoned
// branches.
func (r *Reporter) Checkpoint() int {
	return len(r.diags)
}

// Rollback discards all diagnostics reported since the given checkpoint.
func (r *Reporter) Rollback(checkpoint int) {
	for _, d := range r.diags[checkpoint:] {
		delete(r.seen, d.Error())
	}
	r.diags = r.diags[:checkpoint]
}

// ToError returns nil if no errors were reported, else an error whose message
// lists every error-severity diagnostic.
func (r *Reporter) ToError() error {
	if !r.HasErrors() {
		return nil
	}
	var b bytes.Buffer
	var n = 0
	for _, d := range r.diags {
		if d.Severity != SeverityError {
			continue
		}
		if n > 0 {
			b.WriteString("\n")
		}
		b.WriteString(d.Error())
		n++
	}
	return fmt.Errorf("%s", b.String())
}

// DidYouMean returns a suggestion string like ` (did you mean "x"?)` if any
// candidate is within a small edit distance of name, else "".
func DidYouMean(name string, candidates []string) string {
	var best string
	var bestDist = len(name)/2 + 1 // too far away and the suggestion is noise
	for _, c := range candidates {
		if c == name {
			continue
		}
		if d := editDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}

// editDistance is the Levenshtein distance between a and b.
func editDistance(a, b string) int {
	var prev = make([]int, len(b)+1)
	var cur = make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			var cost = 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
