package bridge

import (
	"errors"
	"testing"
)

func TestValidateArgsFixed(t *testing.T) {
	sig := Signature{Name: "add", Params: []TypeTag{TagI32, TagI32}, Return: TagI32}
	for n := 0; n <= 4; n++ {
		err := sig.ValidateArgs(n)
		if n == 2 && err != nil {
			t.Errorf("ValidateArgs(2) = %v, want nil", err)
		}
		if n != 2 {
			if !errors.Is(err, ErrInvalidArgCount) {
				t.Errorf("ValidateArgs(%d) = %v, want ErrInvalidArgCount", n, err)
			}
		}
	}
}

func TestValidateArgsVariadic(t *testing.T) {
	sig := Signature{Name: "printf", Params: []TypeTag{TagString}, Return: TagI32, Variadic: true}
	if err := sig.ValidateArgs(0); !errors.Is(err, ErrInvalidArgCount) {
		t.Errorf("variadic ValidateArgs(0) = %v, want ErrInvalidArgCount", err)
	}
	for n := 1; n <= 6; n++ {
		if err := sig.ValidateArgs(n); err != nil {
			t.Errorf("variadic ValidateArgs(%d) = %v, want nil", n, err)
		}
	}
}

func TestSignatureString(t *testing.T) {
	cases := []struct {
		sig  Signature
		want string
	}{
		{Signature{Name: "add", Params: []TypeTag{TagI32, TagI32}, Return: TagI32}, "i32 add(i32, i32)"},
		{Signature{Name: "get_time", Return: TagU64}, "u64 get_time()"},
		{Signature{Name: "log", Params: []TypeTag{TagString}, Return: TagVoid, Variadic: true}, "void log(string, ...)"},
		{Signature{Name: "pause", Return: TagVoid, Variadic: true}, "void pause(...)"},
	}
	for _, tc := range cases {
		if got := tc.sig.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestArity(t *testing.T) {
	sig := Signature{Name: "f", Params: []TypeTag{TagI32, TagF64, TagString}}
	if sig.Arity() != 3 {
		t.Errorf("Arity() = %d, want 3", sig.Arity())
	}
}
