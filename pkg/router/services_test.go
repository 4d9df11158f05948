package router

import "testing"

func TestServicesProvideAndLookup(t *testing.T) {
	name := NewKey[string]("name")
	port := NewKey[int]("port")

	var empty Services
	if _, ok := Lookup(empty, name); ok {
		t.Error("Lookup() on empty services should fail")
	}

	s := Provide(empty, name, "orders")
	s2 := Provide(s, port, 8080)

	if got, ok := Lookup(s2, name); !ok || got != "orders" {
		t.Errorf("Lookup(name) = %q, %v", got, ok)
	}
	if got := MustLookup(s2, port); got != 8080 {
		t.Errorf("MustLookup(port) = %d, want 8080", got)
	}
	if _, ok := Lookup(s, port); ok {
		t.Error("Provide should not modify its input")
	}
	if s2.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s2.Len())
	}
}

func TestServicesKeysAreDistinct(t *testing.T) {
	a := NewKey[string]("db")
	b := NewKey[string]("db")

	s := Provide(Services{}, a, "primary")
	if _, ok := Lookup(s, b); ok {
		t.Error("keys with the same name should not collide")
	}
	if a.String() != "db" {
		t.Errorf("String() = %q, want db", a.String())
	}
}

func TestServicesMerge(t *testing.T) {
	k := NewKey[string]("k")
	other := NewKey[int]("other")

	base := Provide(Services{}, k, "base")
	over := Provide(Provide(Services{}, k, "over"), other, 1)

	merged := base.Merge(over)
	if got := MustLookup(merged, k); got != "over" {
		t.Errorf("merged k = %q, want over", got)
	}
	if got := MustLookup(base, k); got != "base" {
		t.Errorf("base k = %q after Merge, want base", got)
	}
	if merged.Len() != 2 {
		t.Errorf("Len() = %d, want 2", merged.Len())
	}
}

func TestMustLookupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustLookup should panic for a missing service")
		}
	}()
	MustLookup(Services{}, NewKey[string]("missing"))
}
