package bridge

import (
	"errors"
	"testing"
)

func TestParseSignatureBasic(t *testing.T) {
	sig, err := ParseSignature("int add(int a, int b)")
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if sig.Name != "add" {
		t.Errorf("Name = %q, want %q", sig.Name, "add")
	}
	if sig.Return != TagI32 {
		t.Errorf("Return = %v, want i32", sig.Return)
	}
	if len(sig.Params) != 2 || sig.Params[0] != TagI32 || sig.Params[1] != TagI32 {
		t.Errorf("Params = %v, want [i32 i32]", sig.Params)
	}
	if sig.Variadic {
		t.Error("Variadic = true, want false")
	}
}

func TestParseSignatureNoParams(t *testing.T) {
	sig, err := ParseSignature("u64 get_time()")
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if sig.Name != "get_time" || sig.Return != TagU64 || len(sig.Params) != 0 {
		t.Errorf("got %v, want u64 get_time()", sig)
	}
}

func TestParseSignatureVariadic(t *testing.T) {
	sig, err := ParseSignature("int printf(const char* fmt, ...)")
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if !sig.Variadic {
		t.Error("Variadic = false, want true")
	}
	if len(sig.Params) != 1 || sig.Params[0] != TagString {
		t.Errorf("Params = %v, want [string]", sig.Params)
	}
	if err := sig.ValidateArgs(3); err != nil {
		t.Errorf("variadic ValidateArgs(3) = %v, want nil", err)
	}
}

func TestParseSignatureAliases(t *testing.T) {
	cases := []struct {
		decl   string
		ret    TypeTag
		params []TypeTag
	}{
		{"double sqrt(double x)", TagF64, []TypeTag{TagF64}},
		{"float scale(float v, float by)", TagF32, []TypeTag{TagF32, TagF32}},
		{"void* alloc(size_t n)", TagPointer, []TypeTag{TagU64}},
		{"const char* greeting()", TagString, nil},
		{"unsigned long long mix(unsigned int a, long long b)", TagU64, []TypeTag{TagU32, TagI64}},
		{"i16 clamp(u8 lo, u8 hi)", TagI16, []TypeTag{TagU8, TagU8}},
		{"void note(char *msg)", TagVoid, []TypeTag{TagString}},
		{"bool ok(void)", TagU8, nil},
	}
	for _, tc := range cases {
		sig, err := ParseSignature(tc.decl)
		if err != nil {
			t.Errorf("%q: %v", tc.decl, err)
			continue
		}
		if sig.Return != tc.ret {
			t.Errorf("%q: Return = %v, want %v", tc.decl, sig.Return, tc.ret)
		}
		if len(sig.Params) != len(tc.params) {
			t.Errorf("%q: Params = %v, want %v", tc.decl, sig.Params, tc.params)
			continue
		}
		for i := range tc.params {
			if sig.Params[i] != tc.params[i] {
				t.Errorf("%q: param %d = %v, want %v", tc.decl, i, sig.Params[i], tc.params[i])
			}
		}
	}
}

func TestParseSignatureMalformed(t *testing.T) {
	cases := []string{
		"",
		"int add",
		"add()",
		"wibble add(int a)",
		"int add(wibble a)",
		"int add(void a)",
		"int add(..., int b)",
		"int add(int a,)",
	}
	for _, decl := range cases {
		if _, err := ParseSignature(decl); !errors.Is(err, ErrConversion) {
			t.Errorf("%q: err = %v, want ErrConversion", decl, err)
		}
	}
}

func TestParseSignatureCaseInsensitiveTypes(t *testing.T) {
	sig, err := ParseSignature("INT Add(Double x)")
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if sig.Return != TagI32 || sig.Params[0] != TagF64 {
		t.Errorf("got %v, want i32 Add(f64)", sig)
	}
	if sig.Name != "Add" {
		t.Errorf("Name = %q, symbol case must be preserved", sig.Name)
	}
}

func TestMustParseSignaturePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParseSignature did not panic on malformed input")
		}
	}()
	MustParseSignature("not a signature")
}
