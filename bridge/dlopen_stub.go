//go:build (!linux && !darwin) || !cgo

package bridge

import "fmt"

// Dynamic loading is only wired up for platforms with dlopen. Everything
// here fails with a not-supported error so the rest of the bridge, and in
// particular the built-in capability registry, keeps working.

func dlOpen(path string) (uintptr, error) {
	return 0, fmt.Errorf("%w: dynamic library loading on this platform", ErrNotSupported)
}

func dlResolve(handle uintptr, name string) (uintptr, error) {
	return 0, fmt.Errorf("%w: symbol resolution on this platform", ErrNotSupported)
}

func dlClose(handle uintptr) error {
	return fmt.Errorf("%w: dynamic library loading on this platform", ErrNotSupported)
}

func dlCall(fn uintptr, args []uint64) (uint64, error) {
	return 0, fmt.Errorf("%w: native calls on this platform", ErrNotSupported)
}

func pinString(s string) (uintptr, func()) { return 0, func() {} }

func pinBytes(b []byte) (uintptr, func()) { return 0, func() {} }

func cStringAt(addr uintptr) string { return "" }
