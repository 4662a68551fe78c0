package bridge

import "errors"

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

// Every boundary-crossing operation reports one of these sentinel errors,
// usually wrapped with context via fmt.Errorf and %w. Callers discriminate
// with errors.Is; nothing in this package panics on malformed input.
var (
	// ErrLoadFailed reports a shared library that could not be opened.
	ErrLoadFailed = errors.New("library load failed")

	// ErrSymbolNotFound reports a symbol the native loader could not resolve.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrInvalidSymbol reports an empty symbol name or one with an embedded NUL.
	ErrInvalidSymbol = errors.New("invalid symbol name")

	// ErrLibraryNotFound reports a library referenced before it was loaded.
	ErrLibraryNotFound = errors.New("library not loaded")

	// ErrFunctionNotFound reports an unregistered qualified name or capability.
	ErrFunctionNotFound = errors.New("function not registered")

	// ErrInvalidArgCount reports an argument count the signature rejects.
	ErrInvalidArgCount = errors.New("invalid argument count")

	// ErrInvalidArgType reports an argument whose type a callee rejects.
	ErrInvalidArgType = errors.New("invalid argument type")

	// ErrTooManyArgs reports a call exceeding the supported native arity.
	ErrTooManyArgs = errors.New("too many arguments")

	// ErrCallFailed reports a native or remote invocation failure.
	ErrCallFailed = errors.New("call failed")

	// ErrConversion reports a malformed signature string or bit pattern.
	ErrConversion = errors.New("conversion error")

	// ErrHandleNotFound reports a buffer handle with no live entry.
	ErrHandleNotFound = errors.New("buffer handle not found")

	// ErrBufferTooSmall reports a buffer shorter than an operation requires.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrNotSupported reports an operation the current platform cannot perform.
	ErrNotSupported = errors.New("not supported")

	// ErrNotConnected reports use of a closed or never-opened connection.
	ErrNotConnected = errors.New("not connected")
)
