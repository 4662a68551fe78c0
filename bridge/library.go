package bridge

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// MaxArity is the highest argument count the native dispatch table
// supports. Calls with more words are rejected, never truncated.
const MaxArity = 6

// ---------------------------------------------------------------------------
// LoadedLibrary: one native handle plus a lazily filled symbol cache
// ---------------------------------------------------------------------------

// LoadedLibrary owns exactly one dlopen handle. Symbol addresses are
// resolved on first use and cached for the life of the library. Native
// calls through one instance are mutually exclusive; a native function is
// not assumed reentrant. Close invalidates every cached address; the
// caller sequences Close after in-flight calls complete.
type LoadedLibrary struct {
	path   string
	handle uintptr
	closed atomic.Bool

	mu      sync.RWMutex
	symbols map[string]uintptr

	callMu sync.Mutex
}

// OpenLibrary opens the shared object at path. The path is used verbatim;
// use LocateLibrary to turn a bare name into a path first.
func OpenLibrary(path string) (*LoadedLibrary, error) {
	handle, err := dlOpen(path)
	if err != nil {
		return nil, err
	}
	return &LoadedLibrary{
		path:    path,
		handle:  handle,
		symbols: make(map[string]uintptr),
	}, nil
}

// Path returns the filesystem path the library was opened from.
func (l *LoadedLibrary) Path() string { return l.path }

// Resolve returns the address of an exported symbol, consulting the cache
// first. Empty names and names with an embedded NUL are rejected before
// any native lookup.
func (l *LoadedLibrary) Resolve(name string) (uintptr, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty symbol name", ErrInvalidSymbol)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return 0, fmt.Errorf("%w: %q contains an embedded NUL", ErrInvalidSymbol, name)
	}
	if l.closed.Load() {
		return 0, fmt.Errorf("%w: %s is closed", ErrLibraryNotFound, l.path)
	}

	l.mu.RLock()
	addr, ok := l.symbols[name]
	l.mu.RUnlock()
	if ok {
		return addr, nil
	}

	addr, err := dlResolve(l.handle, name)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	l.symbols[name] = addr
	l.mu.Unlock()
	return addr, nil
}

// Invoke calls the signature's symbol with the given arguments. Argument
// count is validated against the signature, then every value is lowered
// to its 64-bit register word; owned strings and buffers are pinned into
// C memory for the duration of the call and released afterwards. The raw
// result word is decoded against the declared return tag, with string
// returns copied out of native memory immediately.
func (l *LoadedLibrary) Invoke(sig Signature, args []TaggedValue) (TaggedValue, error) {
	if err := sig.ValidateArgs(len(args)); err != nil {
		return Void(), err
	}
	if len(args) > MaxArity {
		return Void(), fmt.Errorf("%w: %s called with %d args, dispatch table ends at %d",
			ErrTooManyArgs, sig.Name, len(args), MaxArity)
	}
	if sig.Return == TagBuffer {
		return Void(), fmt.Errorf("%w: %s returns a buffer, which cannot cross as one register word",
			ErrConversion, sig.Name)
	}

	addr, err := l.Resolve(sig.Name)
	if err != nil {
		return Void(), err
	}

	words := make([]uint64, len(args))
	release := make([]func(), 0, len(args))
	defer func() {
		for i := len(release) - 1; i >= 0; i-- {
			release[i]()
		}
	}()

	for i, arg := range args {
		if i < len(sig.Params) {
			if !argCompatible(sig.Params[i], arg.Tag()) {
				return Void(), fmt.Errorf("%w: %s arg %d: have %s, want %s",
					ErrInvalidArgType, sig.Name, i, arg.Tag(), sig.Params[i])
			}
		} else {
			arg = promoteVariadic(arg)
		}
		switch {
		case arg.Owned() && arg.Tag() == TagString:
			p, free := pinString(arg.Text())
			release = append(release, free)
			words[i] = uint64(p)
		case arg.Owned() && arg.Tag() == TagBuffer:
			p, free := pinBytes(arg.Data())
			release = append(release, free)
			words[i] = uint64(p)
		default:
			words[i] = ToRegister(arg)
		}
	}

	l.callMu.Lock()
	bits, err := dlCall(addr, words)
	l.callMu.Unlock()
	if err != nil {
		return Void(), err
	}

	if sig.Return == TagString {
		return Str(cStringAt(uintptr(bits))), nil
	}
	return FromRegister(bits, sig.Return), nil
}

// Close unloads the library. Further resolves and invokes fail; cached
// addresses are dropped. Closing twice is harmless.
func (l *LoadedLibrary) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	l.mu.Lock()
	l.symbols = nil
	l.mu.Unlock()
	return dlClose(l.handle)
}

// argCompatible reports whether a value tagged got can fill a parameter
// declared want. Matching is by class: any integer width fills any
// integer parameter, floats fill floats, pointer-like values fill any
// pointer-like parameter. Void fills nothing.
func argCompatible(want, got TypeTag) bool {
	if got == TagVoid || want == TagVoid {
		return false
	}
	return want == got || want.Class() == got.Class()
}

// promoteVariadic applies the C default argument promotions to arguments
// past the declared parameters. Integer widths are already carried
// sign- or zero-extended in their register word; only f32 needs active
// widening to double.
func promoteVariadic(v TaggedValue) TaggedValue {
	if v.Tag() == TagF32 {
		return F64(float64(v.Float32()))
	}
	return v
}
