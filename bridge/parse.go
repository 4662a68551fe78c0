package bridge

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Signature parsing: C-style declaration strings
// ---------------------------------------------------------------------------

// typeAliases maps lowercase type keywords, after pointer stars have been
// attached to their base token, onto tags. Multi-word C spellings are keyed
// by their space-joined form and matched longest-first.
var typeAliases = map[string]TypeTag{
	"void": TagVoid,

	"u8": TagU8, "uint8": TagU8, "uint8_t": TagU8,
	"uchar": TagU8, "unsigned char": TagU8, "byte": TagU8, "bool": TagU8,

	"i8": TagI8, "int8": TagI8, "int8_t": TagI8,
	"char": TagI8, "signed char": TagI8,

	"u16": TagU16, "uint16": TagU16, "uint16_t": TagU16,
	"ushort": TagU16, "unsigned short": TagU16,

	"i16": TagI16, "int16": TagI16, "int16_t": TagI16, "short": TagI16,

	"u32": TagU32, "uint32": TagU32, "uint32_t": TagU32,
	"uint": TagU32, "unsigned": TagU32, "unsigned int": TagU32,

	"i32": TagI32, "int32": TagI32, "int32_t": TagI32, "int": TagI32,

	"u64": TagU64, "uint64": TagU64, "uint64_t": TagU64,
	"ulong": TagU64, "unsigned long": TagU64, "unsigned long long": TagU64,
	"size_t": TagU64,

	"i64": TagI64, "int64": TagI64, "int64_t": TagI64,
	"long": TagI64, "long long": TagI64, "ssize_t": TagI64,

	"f32": TagF32, "float": TagF32,
	"f64": TagF64, "double": TagF64,

	"pointer": TagPointer, "ptr": TagPointer, "void*": TagPointer,

	"string": TagString, "char*": TagString, "const char*": TagString,

	"buffer": TagBuffer, "buf": TagBuffer, "bytes": TagBuffer,
}

// maxAliasTokens is the longest space-joined alias ("unsigned long long").
const maxAliasTokens = 3

// ParseSignature parses a declaration of the form
//
//	"<return_type> <name>(<type>, <type>, ... [, ...])"
//
// The name is the last whitespace-delimited token before the parameter
// list; everything before it is the return type. Each parameter entry's
// leading type keyword(s) select the tag; a trailing identifier is treated
// as a parameter name and ignored. A final "..." entry marks the signature
// variadic. Both canonical tag names and common C spellings are accepted;
// matching is case-insensitive. Malformed declarations fail with a
// conversion error and never partially succeed.
func ParseSignature(decl string) (Signature, error) {
	open := strings.IndexByte(decl, '(')
	closing := strings.LastIndexByte(decl, ')')
	if open < 0 || closing < open {
		return Signature{}, fmt.Errorf("%w: malformed signature %q", ErrConversion, decl)
	}

	head := typeTokens(decl[:open])
	if len(head) < 2 {
		return Signature{}, fmt.Errorf("%w: signature %q needs a return type and a name", ErrConversion, decl)
	}
	name := head[len(head)-1]
	ret, consumed, ok := matchType(head[:len(head)-1])
	if !ok || consumed != len(head)-1 {
		return Signature{}, fmt.Errorf("%w: unknown return type %q in %q",
			ErrConversion, strings.Join(head[:len(head)-1], " "), decl)
	}

	sig := Signature{Name: name, Return: ret}
	body := strings.TrimSpace(decl[open+1 : closing])
	if body == "" || body == "void" {
		return sig, nil
	}

	for _, entry := range strings.Split(body, ",") {
		toks := typeTokens(entry)
		if len(toks) == 0 {
			return Signature{}, fmt.Errorf("%w: empty parameter entry in %q", ErrConversion, decl)
		}
		if sig.Variadic {
			return Signature{}, fmt.Errorf("%w: parameter after \"...\" in %q", ErrConversion, decl)
		}
		if toks[0] == "..." {
			sig.Variadic = true
			continue
		}
		tag, _, ok := matchType(toks)
		if !ok {
			return Signature{}, fmt.Errorf("%w: unknown parameter type %q in %q",
				ErrConversion, strings.Join(toks, " "), decl)
		}
		if tag == TagVoid {
			return Signature{}, fmt.Errorf("%w: void parameter in %q", ErrConversion, decl)
		}
		sig.Params = append(sig.Params, tag)
	}
	return sig, nil
}

// MustParseSignature is ParseSignature for known-good declarations baked
// into source. It panics on error.
func MustParseSignature(decl string) Signature {
	sig, err := ParseSignature(decl)
	if err != nil {
		panic(err)
	}
	return sig
}

// typeTokens splits a declaration fragment on whitespace and attaches
// pointer stars to their base token, so "char *s", "char* s" and
// "char * s" all tokenize as ["char*", "s"].
func typeTokens(s string) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		for strings.HasPrefix(f, "*") && len(out) > 0 {
			out[len(out)-1] += "*"
			f = f[1:]
		}
		if f == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// matchType resolves the longest leading alias in toks, trying up to
// maxAliasTokens space-joined tokens. It reports the tag, how many tokens
// the alias consumed, and whether a match was found.
func matchType(toks []string) (TypeTag, int, bool) {
	limit := len(toks)
	if limit > maxAliasTokens {
		limit = maxAliasTokens
	}
	for n := limit; n >= 1; n-- {
		key := strings.ToLower(strings.Join(toks[:n], " "))
		if tag, ok := typeAliases[key]; ok {
			return tag, n, true
		}
	}
	return TagVoid, 0, false
}
