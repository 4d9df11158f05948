// Package pattern describes route path patterns.
//
// A Pattern is an immutable sequence of literal and parameter segments.
// Patterns are parsed from templates such as "/users/:id" or, with an inline
// type, "/users/:id:int", and can be concatenated with Join so prefixes can be
// applied to nested routes:
//
//	users := pattern.MustParse("/users")
//	show := pattern.MustJoin(users, pattern.MustParse("/:id:int"))
//	show.Template() // "/users/:id"
//
// Each pattern derives a Schema used to validate and decode captured values.
package pattern

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the type of a segment.
type Kind uint8

const (
	// KindLiteral matches a fixed path segment.
	KindLiteral Kind = iota + 1

	// KindParam captures one path segment under a name.
	KindParam
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindParam:
		return "param"
	default:
		return "unknown"
	}
}

// Segment is one element of a pattern.
type Segment struct {
	Kind Kind

	// Text is the literal text for literal segments and the parameter
	// name for parameter segments.
	Text string

	// Type is the declared parameter type ("string" when not declared).
	Type string
}

// Pattern parsing errors.
var (
	ErrEmptyParamName     = errors.New("pattern: empty parameter name")
	ErrDuplicateParamName = errors.New("pattern: duplicate parameter name")
	ErrUnknownParam       = errors.New("pattern: unknown parameter")
	ErrUnknownParamType   = errors.New("pattern: unknown parameter type")
)

// Pattern is an immutable path pattern.
type Pattern struct {
	segments []Segment
}

// Root is the pattern matching "/".
var Root = Pattern{}

// Parse parses a template such as "/users/:id" or "/files/:name:string".
// Empty segments are ignored, so "users", "/users" and "/users/" are the
// same pattern.
func Parse(template string) (Pattern, error) {
	var segments []Segment
	for _, part := range strings.Split(template, "/") {
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, ":") {
			name, typ := parseParamSegment(part)
			if name == "" {
				return Pattern{}, fmt.Errorf("%w in %q", ErrEmptyParamName, template)
			}
			if !KnownType(typ) {
				return Pattern{}, fmt.Errorf("%w %q in %q", ErrUnknownParamType, typ, template)
			}
			segments = append(segments, Segment{Kind: KindParam, Text: name, Type: typ})
			continue
		}
		segments = append(segments, Segment{Kind: KindLiteral, Text: part})
	}

	p := Pattern{segments: segments}
	if err := p.validate(); err != nil {
		return Pattern{}, fmt.Errorf("%w in %q", err, template)
	}
	return p, nil
}

// MustParse is like Parse but panics on error.
func MustParse(template string) Pattern {
	p, err := Parse(template)
	if err != nil {
		panic(err)
	}
	return p
}

// Literal returns a pattern of literal segments. Slashes in text separate
// segments; no parameter syntax is interpreted.
func Literal(text string) Pattern {
	var segments []Segment
	for _, part := range strings.Split(text, "/") {
		if part != "" {
			segments = append(segments, Segment{Kind: KindLiteral, Text: part})
		}
	}
	return Pattern{segments: segments}
}

// Param returns a single parameter segment pattern with type "string".
func Param(name string) Pattern {
	return Pattern{segments: []Segment{{Kind: KindParam, Text: name, Type: "string"}}}
}

// Join concatenates patterns. It fails if a parameter name appears twice.
func Join(parts ...Pattern) (Pattern, error) {
	var n int
	for _, p := range parts {
		n += len(p.segments)
	}
	segments := make([]Segment, 0, n)
	for _, p := range parts {
		segments = append(segments, p.segments...)
	}

	joined := Pattern{segments: segments}
	if err := joined.validate(); err != nil {
		return Pattern{}, err
	}
	return joined, nil
}

// MustJoin is like Join but panics on error.
func MustJoin(parts ...Pattern) Pattern {
	p, err := Join(parts...)
	if err != nil {
		panic(err)
	}
	return p
}

// WithParamType returns a copy of p with the type of the named parameter
// replaced.
func (p Pattern) WithParamType(name, typ string) (Pattern, error) {
	if !KnownType(typ) {
		return Pattern{}, fmt.Errorf("%w %q", ErrUnknownParamType, typ)
	}
	segments := p.Segments()
	for i, seg := range segments {
		if seg.Kind == KindParam && seg.Text == name {
			segments[i].Type = typ
			return Pattern{segments: segments}, nil
		}
	}
	return Pattern{}, fmt.Errorf("%w %q in %q", ErrUnknownParam, name, p.Template())
}

// Segments returns a copy of the pattern's segments.
func (p Pattern) Segments() []Segment {
	return append([]Segment(nil), p.segments...)
}

// Len returns the number of segments.
func (p Pattern) Len() int {
	return len(p.segments)
}

// Template returns the structural template, e.g. "/users/:id". Parameter
// types are not included, so two patterns that differ only in parameter
// types share a template.
func (p Pattern) Template() string {
	if len(p.segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range p.segments {
		b.WriteByte('/')
		if seg.Kind == KindParam {
			b.WriteByte(':')
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

// String returns the template including non-default parameter types.
func (p Pattern) String() string {
	if len(p.segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range p.segments {
		b.WriteByte('/')
		if seg.Kind == KindParam {
			b.WriteByte(':')
			b.WriteString(seg.Text)
			if seg.Type != "" && seg.Type != "string" {
				b.WriteByte(':')
				b.WriteString(seg.Type)
			}
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

// Schema returns the parameter schema derived from the pattern.
func (p Pattern) Schema() Schema {
	var params []ParamDef
	for i, seg := range p.segments {
		if seg.Kind == KindParam {
			params = append(params, ParamDef{Name: seg.Text, Type: seg.Type, Index: i})
		}
	}
	return Schema{Params: params}
}

func (p Pattern) validate() error {
	seen := make(map[string]struct{})
	for _, seg := range p.segments {
		if seg.Kind != KindParam {
			continue
		}
		if _, dup := seen[seg.Text]; dup {
			return fmt.Errorf("%w %q", ErrDuplicateParamName, seg.Text)
		}
		seen[seg.Text] = struct{}{}
	}
	return nil
}

// parseParamSegment extracts name and type from a parameter segment.
// Input: ":id" or ":id:int" -> name="id", type="string" or "int"
func parseParamSegment(seg string) (name, paramType string) {
	seg = seg[1:]
	if idx := strings.Index(seg, ":"); idx != -1 {
		return seg[:idx], seg[idx+1:]
	}
	return seg, "string"
}
