package bridge

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Signature: declared shape of a native function
// ---------------------------------------------------------------------------

// Signature describes a native function's calling shape: its symbol name,
// the declared parameter tags in order, the return tag, and whether the
// function accepts extra arguments past the declared ones.
type Signature struct {
	Name     string
	Params   []TypeTag
	Return   TypeTag
	Variadic bool
}

// Arity returns the number of declared parameters. Variadic calls may
// carry more actual arguments than this.
func (s Signature) Arity() int { return len(s.Params) }

// ValidateArgs checks an argument count against the signature. Fixed
// signatures demand an exact match; variadic signatures accept any count
// at or above the declared parameters.
func (s Signature) ValidateArgs(n int) error {
	if s.Variadic {
		if n < len(s.Params) {
			return fmt.Errorf("%w: %s expects at least %d args, got %d",
				ErrInvalidArgCount, s.Name, len(s.Params), n)
		}
		return nil
	}
	if n != len(s.Params) {
		return fmt.Errorf("%w: %s expects %d args, got %d",
			ErrInvalidArgCount, s.Name, len(s.Params), n)
	}
	return nil
}

// String renders the signature in declaration form, for example
// "i32 add(i32, i32)" or "void log(string, ...)".
func (s Signature) String() string {
	var b strings.Builder
	b.WriteString(s.Return.String())
	b.WriteByte(' ')
	b.WriteString(s.Name)
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	if s.Variadic {
		if len(s.Params) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("...")
	}
	b.WriteByte(')')
	return b.String()
}
