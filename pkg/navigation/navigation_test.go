package navigation

import (
	"reflect"
	"testing"
)

func TestNavigate(t *testing.T) {
	nav := New("/")

	if err := nav.Navigate("/users/"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if got := nav.Current(); got != "/users" {
		t.Errorf("Current() = %q, want /users", got)
	}

	back, forward := nav.History()
	if !reflect.DeepEqual(back, []string{"/"}) || len(forward) != 0 {
		t.Errorf("History() = %v, %v", back, forward)
	}
}

func TestNavigateSameLocationIsNoop(t *testing.T) {
	nav := New("/a")
	changes := 0
	nav.Path().Subscribe(func() { changes++ })

	nav.Navigate("/a/")
	nav.Navigate("/a")

	if changes != 0 {
		t.Errorf("changes = %d, want 0", changes)
	}
	if back, _ := nav.History(); len(back) != 0 {
		t.Errorf("back = %v, want empty", back)
	}
}

func TestNavigateWithParams(t *testing.T) {
	nav := New("/")
	nav.Navigate("/search?q=go", WithParams(map[string]any{"page": 2, "sort": "asc"}))

	if got, want := nav.Current(), "/search?page=2&q=go&sort=asc"; got != want {
		t.Errorf("Current() = %q, want %q", got, want)
	}
}

func TestNavigateInvalid(t *testing.T) {
	nav := New("/")
	if err := nav.Navigate("/../etc"); err == nil {
		t.Error("Navigate() should reject paths escaping root")
	}
	if nav.Current() != "/" {
		t.Errorf("Current() = %q, want unchanged", nav.Current())
	}
}

func TestRedirectReplaces(t *testing.T) {
	nav := New("/")
	nav.Navigate("/admin")
	nav.Redirect("/login")

	if nav.Current() != "/login" {
		t.Errorf("Current() = %q", nav.Current())
	}
	back, _ := nav.History()
	if !reflect.DeepEqual(back, []string{"/"}) {
		t.Errorf("back = %v, want [/]", back)
	}
}

func TestBackForward(t *testing.T) {
	nav := New("/")
	nav.Navigate("/a")
	nav.Navigate("/b")

	if !nav.Back() || nav.Current() != "/a" {
		t.Fatalf("Back() -> %q, want /a", nav.Current())
	}
	if !nav.Back() || nav.Current() != "/" {
		t.Fatalf("Back() -> %q, want /", nav.Current())
	}
	if nav.Back() {
		t.Error("Back() at start of history should report false")
	}
	if !nav.Forward() || nav.Current() != "/a" {
		t.Fatalf("Forward() -> %q, want /a", nav.Current())
	}

	nav.Navigate("/c")
	if nav.Forward() {
		t.Error("navigation should clear the forward stack")
	}
}

func TestNewInvalidInitial(t *testing.T) {
	if got := New("/../x").Current(); got != "/" {
		t.Errorf("Current() = %q, want /", got)
	}
}
