package router

import "fmt"

// Key identifies a service of type T. Keys compare by identity.
type Key[T any] struct {
	name string
}

// NewKey creates a service key. The name is used in diagnostics only.
func NewKey[T any](name string) *Key[T] {
	return &Key[T]{name: name}
}

// String returns the key's name.
func (k *Key[T]) String() string {
	return k.name
}

// Services is an immutable set of services. The zero value is empty.
type Services struct {
	m map[any]any
}

// Provide returns a copy of s with key bound to value.
func Provide[T any](s Services, key *Key[T], value T) Services {
	m := make(map[any]any, len(s.m)+1)
	for k, v := range s.m {
		m[k] = v
	}
	m[key] = value
	return Services{m: m}
}

// Lookup returns the service bound to key.
func Lookup[T any](s Services, key *Key[T]) (T, bool) {
	v, ok := s.m[key]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// MustLookup returns the service bound to key and panics if it is missing.
func MustLookup[T any](s Services, key *Key[T]) T {
	v, ok := Lookup(s, key)
	if !ok {
		panic(fmt.Sprintf("router: service %q not provided", key.name))
	}
	return v
}

// Merge returns a copy of s overlaid with other. Bindings in other win.
func (s Services) Merge(other Services) Services {
	if len(other.m) == 0 {
		return s
	}
	if len(s.m) == 0 {
		return other
	}
	m := make(map[any]any, len(s.m)+len(other.m))
	for k, v := range s.m {
		m[k] = v
	}
	for k, v := range other.m {
		m[k] = v
	}
	return Services{m: m}
}

// Len returns the number of bound services.
func (s Services) Len() int {
	return len(s.m)
}
