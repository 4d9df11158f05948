package pattern

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
)

// Input is the raw captured input of a matched path.
type Input struct {
	// Path holds the captured path parameters.
	Path Values

	// Query holds the parsed query string.
	Query url.Values
}

// Merged returns path parameters merged with the first value of every query
// parameter. Path parameters win on conflict.
func (in Input) Merged() Values {
	out := make(Values, len(in.Path)+len(in.Query))
	for k, vs := range in.Query {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	for k, v := range in.Path {
		out[k] = v
	}
	return out
}

// Decoder turns raw input into the value handed to guards and handlers.
type Decoder interface {
	Decode(in Input) (any, error)
}

// DecoderFunc adapts a function to a Decoder.
type DecoderFunc func(in Input) (any, error)

// Decode implements Decoder.
func (f DecoderFunc) Decode(in Input) (any, error) {
	return f(in)
}

// ValuesDecoder validates the input against schema and returns the merged
// Values.
func ValuesDecoder(schema Schema) Decoder {
	return DecoderFunc(func(in Input) (any, error) {
		if err := schema.Validate(in.Path); err != nil {
			return nil, err
		}
		return in.Merged(), nil
	})
}

// StructDecoder validates the input against schema and decodes it into a
// new *T. Fields tagged `param:"name"` receive path parameters and fields
// tagged `query:"name"` receive query parameters.
func StructDecoder[T any](schema Schema) Decoder {
	return DecoderFunc(func(in Input) (any, error) {
		if err := schema.Validate(in.Path); err != nil {
			return nil, err
		}
		target := new(T)
		if err := DecodeInto(target, in); err != nil {
			return nil, err
		}
		return target, nil
	})
}

// DecodeInto populates a struct from the input.
// The target must be a pointer to a struct.
func DecodeInto(target any, in Input) error {
	if target == nil {
		return nil
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("target must be a pointer, got %s", v.Kind())
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to struct, got pointer to %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		if name := field.Tag.Get("param"); name != "" {
			value, ok := in.Path[name]
			if !ok {
				continue
			}
			if err := setField(fieldValue, []string{value}); err != nil {
				return fmt.Errorf("parsing param %q: %w", name, err)
			}
			continue
		}

		if name := field.Tag.Get("query"); name != "" {
			values, ok := in.Query[name]
			if !ok || len(values) == 0 {
				continue
			}
			if err := setField(fieldValue, values); err != nil {
				return fmt.Errorf("parsing query %q: %w", name, err)
			}
		}
	}

	return nil
}

// setField sets a field from one or more string values. Scalars take the
// first value; string slices take all of them.
func setField(field reflect.Value, values []string) error {
	value := values[0]

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer: %s", value)
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float: %s", value)
		}
		field.SetFloat(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type: %s", field.Type().Elem().Kind())
		}
		field.Set(reflect.ValueOf(append([]string(nil), values...)).Convert(field.Type()))

	default:
		return fmt.Errorf("unsupported type: %s", field.Kind())
	}

	return nil
}
