// Package capgen introspects Go packages and generates capability
// wrappers for the bridge's built-in registry.
//
// A wrappable function takes string or []byte parameters and returns a
// string or []byte, optionally with a trailing error. Anything else is
// skipped with a reason so callers can report what was left out.
package capgen

// ArgKind classifies a wrappable parameter or result type.
type ArgKind int

const (
	ArgBytes ArgKind = iota
	ArgString
)

// PackageModel is the in-memory representation of a Go package's
// wrappable API.
type PackageModel struct {
	ImportPath string
	Name       string // short package name (e.g., "bytes")
	Functions  []FunctionModel
	Skipped    []SkippedFunction
}

// FunctionModel represents one exported function the generator can wrap.
type FunctionModel struct {
	Name       string
	Doc        string // leading comment, may be empty
	Params     []ArgKind
	Result     ArgKind
	ReturnsErr bool // true if the function also returns error
}

// SkippedFunction records an exported function that couldn't be wrapped.
type SkippedFunction struct {
	Name   string
	Reason string
}
