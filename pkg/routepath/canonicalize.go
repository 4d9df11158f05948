// Package routepath normalizes navigation paths before they reach the
// route matcher.
package routepath

import (
	"errors"
	"net/url"
	"strings"

	"github.com/dimfeld/httppath"
)

// Result is a canonicalized navigation target.
type Result struct {
	// Path is the canonical path (without query string).
	Path string

	// Query is the raw query string (without leading "?").
	Query string

	// Changed indicates the path was modified during canonicalization.
	Changed bool
}

// Canonicalization errors.
var (
	ErrBackslashInPath       = errors.New("path contains backslash")
	ErrNullByteInPath        = errors.New("path contains null byte")
	ErrInvalidPercentEscape  = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot       = errors.New("path escapes root via ..")
	ErrEncodedSlashInSegment = errors.New("encoded slash (%2F) in path segment")
)

// Canonicalize normalizes a navigation target:
//   - the query string is split off and kept verbatim
//   - a leading slash is ensured
//   - repeated slashes and "." segments are removed, ".." is resolved
//   - the trailing slash is dropped (except for "/")
//
// Backslashes, NUL bytes, malformed percent-escapes and ".." segments that
// climb above the root are rejected.
func Canonicalize(input string) (Result, error) {
	path, query := SplitPathAndQuery(input)
	if path == "" {
		return Result{Path: "/", Query: query, Changed: true}, nil
	}

	if strings.Contains(path, "\\") {
		return Result{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Result{}, ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return Result{}, err
		}
	}
	if escapesRoot(path) {
		return Result{}, ErrPathEscapesRoot
	}

	clean := httppath.Clean(path)
	if len(clean) > 1 {
		clean = strings.TrimSuffix(clean, "/")
	}

	return Result{
		Path:    clean,
		Query:   query,
		Changed: clean != path,
	}, nil
}

// SplitPathAndQuery splits input at the first "?". The query is returned
// without the leading "?".
func SplitPathAndQuery(input string) (path, query string) {
	path, query, _ = strings.Cut(input, "?")
	return path, query
}

// Segments splits a canonical path into its raw segments.
func Segments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// DecodeSegment percent-decodes a single path segment. A segment that
// decodes to something containing "/" is rejected.
func DecodeSegment(segment string) (string, error) {
	if !strings.Contains(segment, "%") {
		return segment, nil
	}
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if strings.Contains(decoded, "/") {
		return "", ErrEncodedSlashInSegment
	}
	return decoded, nil
}

// escapesRoot reports whether ".." segments climb above "/".
func escapesRoot(path string) bool {
	depth := 0
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return true
			}
		default:
			depth++
		}
	}
	return false
}

// validatePercentEscapes checks that every "%" starts a valid %XX escape.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
