package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

type codedError struct{ code string }

func (e codedError) Error() string { return "coded failure" }
func (e codedError) Code() string  { return e.code }

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "route not found",
			code:    CodeRouteNotFound,
			wantMsg: "Route not found",
			wantCat: CategoryRouting,
		},
		{
			name:    "decode failure",
			code:    CodeRouteDecode,
			wantMsg: "Route parameters could not be decoded",
			wantCat: CategoryValidation,
		},
		{
			name:    "layer build",
			code:    CodeLayerBuild,
			wantMsg: "Layer build failed",
			wantCat: CategoryLifecycle,
		},
		{
			name:    "unknown error code",
			code:    "R999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "scenario %q not found", "demo.yaml")
	if err.Message != `scenario "demo.yaml" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Code != "" {
		t.Errorf("Code = %q, want empty", err.Code)
	}
}

func TestError_Error(t *testing.T) {
	err := New(CodeRouteNotFound).WithPath("/orders")
	want := "R001: Route not found (/orders)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	plain := Newf(CategoryConfig, "bad value")
	if plain.Error() != "bad value" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "bad value")
	}
}

func TestError_Wrap(t *testing.T) {
	inner := fmt.Errorf("boom")
	err := New(CodeLayerBuild).Wrap(inner)
	if !stderrors.Is(err, inner) {
		t.Error("wrapped error should be reachable through errors.Is")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, CodeInternal) != nil {
		t.Error("FromError(nil) should return nil")
	}

	existing := New(CodeRouteGuard)
	if got := FromError(fmt.Errorf("outer: %w", existing), CodeInternal); got != existing {
		t.Error("FromError should return an existing *Error unchanged")
	}

	plain := fmt.Errorf("plain")
	got := FromError(plain, CodeInvalidConfig)
	if got.Code != CodeInvalidConfig || got.Wrapped != plain {
		t.Errorf("FromError = %+v", got)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"coded", codedError{code: CodeRouteDecode}, CodeRouteDecode},
		{"wrapped coded", fmt.Errorf("transition: %w", codedError{code: CodeRouteGuard}), CodeRouteGuard},
		{"plain", fmt.Errorf("plain"), CodeInternal},
		{"structured", New(CodeTeardown), CodeTeardown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Describe(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}

	if Describe(nil) != nil {
		t.Error("Describe(nil) should return nil")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New(CodeRouteGuard).
		WithPath("/admin").
		WithSuggestion("Sign in first").
		Wrap(stderrors.Join(fmt.Errorf("not signed in"), fmt.Errorf("not an admin")))

	formatted := err.Format()

	for _, want := range []string{
		"R003",
		"No route guard accepted the path",
		"/admin",
		"cause: not signed in",
		"cause: not an admin",
		"Hint: Sign in first",
		"Learn more:",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format should contain %q, got:\n%s", want, formatted)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New(CodeRouteNotFound).WithPath("/orders")
	compact := err.FormatCompact()

	want := "R001: Route not found /orders"
	if compact != want {
		t.Errorf("FormatCompact() = %q, want %q", compact, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New(CodeRouteNotFound).WithPath("/orders").Wrap(fmt.Errorf("no match"))
	json := err.FormatJSON()

	for _, want := range []string{
		`"code":"R001"`,
		`"category":"routing"`,
		`"message":"Route not found"`,
		`"path":"/orders"`,
		`"causes":["no match"]`,
	} {
		if !strings.Contains(json, want) {
			t.Errorf("JSON should contain %s, got %s", want, json)
		}
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("GetAllCodes() should return codes")
	}
	if codes[0] != CodeRouteNotFound {
		t.Errorf("codes[0] = %q, want %q", codes[0], CodeRouteNotFound)
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] > codes[i] {
			t.Fatalf("codes not sorted: %v", codes)
		}
	}
}

func TestGetTemplate(t *testing.T) {
	template, ok := GetTemplate(CodeAmbiguousRoute)
	if !ok {
		t.Fatal("R010 should exist")
	}
	if template.Message != "Ambiguous route" {
		t.Error("Template message mismatch")
	}

	if _, ok := GetTemplate("R999"); ok {
		t.Error("R999 should not exist")
	}
}

func TestRegister(t *testing.T) {
	Register("R999", ErrorTemplate{
		Category: CategoryRouting,
		Message:  "Custom test error",
		Detail:   "This is a test error",
		DocURL:   "https://test.dev/R999",
	})
	defer delete(registry, "R999")

	err := New("R999")
	if err.Message != "Custom test error" {
		t.Errorf("Message = %q, want %q", err.Message, "Custom test error")
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("short text", 100)
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}

	got = wrapText("this is a longer text that should be wrapped", 20)
	if len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}

	got = wrapText("", 10)
	if len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
}

func TestColorFunctions(t *testing.T) {
	EnableColors()
	if !strings.Contains(red("test"), "\033[31m") {
		t.Error("red should contain ANSI code when colors enabled")
	}
	if !strings.Contains(cyan("/orders"), "\033[36m") {
		t.Error("cyan should contain ANSI code when colors enabled")
	}

	DisableColors()
	if strings.Contains(gray("test"), "\033[") {
		t.Error("gray should not contain ANSI code when colors disabled")
	}
	EnableColors()
}
