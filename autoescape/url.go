// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package autoescape

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gosoy/soyc/data"
)

// escapeURI escapes a value so it can be embedded in a URI query parameter or
// fragment, percent-encoding everything outside the unreserved set.
func escapeURI(value data.Value, _ []data.Value) data.Value {
	return data.String(processURL(toString(value), false))
}

// normalizeURI escapes a value so it can be embedded in a URI, keeping the
// reserved punctuation and existing percent-escapes intact.
func normalizeURI(value data.Value, _ []data.Value) data.Value {
	return data.String(processURL(toString(value), true))
}

// filterNormalizeURI is like normalizeURI but additionally rejects URIs whose
// scheme could cause code execution, such as javascript:.
func filterNormalizeURI(value data.Value, _ []data.Value) data.Value {
	if v, ok := value.(data.URI); ok {
		return data.String(processURL(string(v), true))
	}
	var s = toString(value)
	if i := strings.IndexRune(s, ':'); i >= 0 && !strings.ContainsRune(s[:i], '/') {
		switch strings.ToLower(s[:i]) {
		case "http", "https", "mailto":
		default:
			return data.String("#" + filterFailsafe)
		}
	}
	return data.String(processURL(s, true))
}

// processURL percent-encodes the given string.  If norm is true, it treats the
// string as a URL needing normalization rather than a content string needing
// embedding, so RFC 3986 reserved punctuation and well-formed %xx sequences
// pass through unchanged.
func processURL(s string, norm bool) string {
	var b bytes.Buffer
	written := 0
	// The byte loop below assumes that all URLs use UTF-8 as the
	// content-encoding. This is similar to the URI to IRI encoding scheme
	// defined in section 3.1 of  RFC 3987, and behaves the same as the
	// EcmaScript builtin encodeURIComponent.
	// It should not cause any misencoding of URLs in pages with
	// Content-type: text/html;charset=UTF-8.
	for i, n := 0, len(s); i < n; i++ {
		c := s[i]
		switch c {
		// Single quote and parens are sub-delims in RFC 3986, but we
		// escape them so the output can be embedded in single
		// quoted attributes and unquoted CSS url(...) constructs.
		// Single quotes are reserved in URLs, but are only used in
		// the obsolete "mark" rule in an appendix in RFC 3986
		// so can be percent encoded without changing semantics.
		case '!', '#', '$', '&', '*', '+', ',', '/', ':', ';', '=', '?', '@', '[', ']':
			if norm {
				continue
			}
		case '-', '.', '_', '~':
			continue
		case '%':
			// When normalizing do not re-encode valid escapes.
			if norm && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
				continue
			}
		default:
			// Unreserved according to RFC 3986 sec 2.3
			if 'a' <= c && c <= 'z' {
				continue
			}
			if 'A' <= c && c <= 'Z' {
				continue
			}
			if '0' <= c && c <= '9' {
				continue
			}
		}
		b.WriteString(s[written:i])
		fmt.Fprintf(&b, "%%%02x", c)
		written = i + 1
	}
	if written == 0 {
		return s
	}
	b.WriteString(s[written:])
	return b.String()
}
