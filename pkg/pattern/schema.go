package pattern

import (
	"fmt"
	"regexp"
	"strconv"
)

// ParamDef defines a pattern parameter.
type ParamDef struct {
	// Name is the parameter name (e.g., "id").
	Name string

	// Type is the parameter type (e.g., "int", "string", "uuid").
	Type string

	// Index is the segment position of the parameter.
	Index int
}

// Schema describes the parameters a pattern captures.
type Schema struct {
	Params []ParamDef
}

// Names returns the parameter names in segment order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Params))
	for i, p := range s.Params {
		names[i] = p.Name
	}
	return names
}

// Values are captured or decoded string parameters keyed by name.
type Values map[string]string

// Clone returns a copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// ParamError reports a captured value that does not satisfy its declared
// type.
type ParamError struct {
	Name  string
	Value string
	Type  string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("param %q: %v", e.Name, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// Validate checks every declared parameter against its type. Missing
// parameters are reported as errors.
func (s Schema) Validate(values Values) error {
	for _, p := range s.Params {
		value, ok := values[p.Name]
		if !ok {
			return &ParamError{Name: p.Name, Type: p.Type, Err: fmt.Errorf("missing value")}
		}
		if err := ValidateParam(value, p.Type); err != nil {
			return &ParamError{Name: p.Name, Value: value, Type: p.Type, Err: err}
		}
	}
	return nil
}

// knownTypes are the parameter types understood by ValidateParam.
var knownTypes = map[string]struct{}{
	"": {}, "string": {},
	"int": {}, "int64": {}, "int32": {}, "int16": {}, "int8": {},
	"uint": {}, "uint64": {}, "uint32": {}, "uint16": {}, "uint8": {},
	"float": {}, "float64": {}, "bool": {}, "uuid": {},
}

// KnownType reports whether typ is a supported parameter type.
func KnownType(typ string) bool {
	_, ok := knownTypes[typ]
	return ok
}

// uuidRegex matches valid UUIDs.
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// ValidateParam validates a parameter value against its expected type.
func ValidateParam(value, paramType string) error {
	switch paramType {
	case "int", "int64", "int32", "int16", "int8":
		if _, err := strconv.ParseInt(value, 10, bitSize(paramType)); err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
	case "uint", "uint64", "uint32", "uint16", "uint8":
		if _, err := strconv.ParseUint(value, 10, bitSize(paramType)); err != nil {
			return fmt.Errorf("invalid unsigned integer: %s", value)
		}
	case "float", "float64":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("invalid float: %s", value)
		}
	case "bool":
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
	case "uuid":
		if !uuidRegex.MatchString(value) {
			return fmt.Errorf("invalid UUID: %s", value)
		}
	}
	return nil
}

func bitSize(paramType string) int {
	switch paramType {
	case "int8", "uint8":
		return 8
	case "int16", "uint16":
		return 16
	case "int32", "uint32":
		return 32
	default:
		return 64
	}
}
