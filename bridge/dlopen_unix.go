//go:build (linux || darwin) && cgo

package bridge

/*
#cgo linux LDFLAGS: -ldl

#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

// Open a shared library without polluting the global symbol namespace
static void* open_library(const char* path) {
    return dlopen(path, RTLD_NOW | RTLD_LOCAL);
}

static int close_library(void* handle) {
    return dlclose(handle);
}

// dlerror returns NULL once the error has been consumed; substitute a
// fixed diagnostic so callers never format a NULL
static const char* last_dl_error(void) {
    const char* e = dlerror();
    return e ? e : "unknown dynamic linker error";
}

static void* resolve_symbol(void* handle, const char* name) {
    dlerror();
    return dlsym(handle, name);
}

// Every native call goes through one of these fixed shapes: N 64-bit words
// in, one 64-bit word out. The word carries integer, pointer, or IEEE-754
// bit patterns; the Go side decides which by the declared tag.
typedef uint64_t (*fn0)(void);
typedef uint64_t (*fn1)(uint64_t);
typedef uint64_t (*fn2)(uint64_t, uint64_t);
typedef uint64_t (*fn3)(uint64_t, uint64_t, uint64_t);
typedef uint64_t (*fn4)(uint64_t, uint64_t, uint64_t, uint64_t);
typedef uint64_t (*fn5)(uint64_t, uint64_t, uint64_t, uint64_t, uint64_t);
typedef uint64_t (*fn6)(uint64_t, uint64_t, uint64_t, uint64_t, uint64_t, uint64_t);

static uint64_t call_fn0(void* fn) {
    return ((fn0)fn)();
}
static uint64_t call_fn1(void* fn, uint64_t a) {
    return ((fn1)fn)(a);
}
static uint64_t call_fn2(void* fn, uint64_t a, uint64_t b) {
    return ((fn2)fn)(a, b);
}
static uint64_t call_fn3(void* fn, uint64_t a, uint64_t b, uint64_t c) {
    return ((fn3)fn)(a, b, c);
}
static uint64_t call_fn4(void* fn, uint64_t a, uint64_t b, uint64_t c, uint64_t d) {
    return ((fn4)fn)(a, b, c, d);
}
static uint64_t call_fn5(void* fn, uint64_t a, uint64_t b, uint64_t c, uint64_t d, uint64_t e) {
    return ((fn5)fn)(a, b, c, d, e);
}
static uint64_t call_fn6(void* fn, uint64_t a, uint64_t b, uint64_t c, uint64_t d, uint64_t e, uint64_t f) {
    return ((fn6)fn)(a, b, c, d, e, f);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// dlOpen loads a shared library and returns its opaque handle. Failures
// carry the dynamic linker's own diagnostic.
func dlOpen(path string) (uintptr, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	handle := C.open_library(cpath)
	if handle == nil {
		return 0, fmt.Errorf("%w: %s: %s", ErrLoadFailed, path, C.GoString(C.last_dl_error()))
	}
	return uintptr(handle), nil
}

// dlResolve looks up a symbol address in a loaded library. A NULL address
// is treated as not-found; the bridge never calls through address zero.
func dlResolve(handle uintptr, name string) (uintptr, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	addr := C.resolve_symbol(unsafe.Pointer(handle), cname)
	if addr == nil {
		return 0, fmt.Errorf("%w: %s: %s", ErrSymbolNotFound, name, C.GoString(C.last_dl_error()))
	}
	return uintptr(addr), nil
}

// dlClose releases a library handle.
func dlClose(handle uintptr) error {
	if C.close_library(unsafe.Pointer(handle)) != 0 {
		return fmt.Errorf("%w: dlclose: %s", ErrCallFailed, C.GoString(C.last_dl_error()))
	}
	return nil
}

// dlCall invokes a function address through the arity-indexed dispatch
// table. The table is closed at MaxArity words; larger argument lists are
// rejected before touching native code.
func dlCall(fn uintptr, args []uint64) (uint64, error) {
	p := unsafe.Pointer(fn)
	switch len(args) {
	case 0:
		return uint64(C.call_fn0(p)), nil
	case 1:
		return uint64(C.call_fn1(p, C.uint64_t(args[0]))), nil
	case 2:
		return uint64(C.call_fn2(p, C.uint64_t(args[0]), C.uint64_t(args[1]))), nil
	case 3:
		return uint64(C.call_fn3(p, C.uint64_t(args[0]), C.uint64_t(args[1]), C.uint64_t(args[2]))), nil
	case 4:
		return uint64(C.call_fn4(p, C.uint64_t(args[0]), C.uint64_t(args[1]), C.uint64_t(args[2]),
			C.uint64_t(args[3]))), nil
	case 5:
		return uint64(C.call_fn5(p, C.uint64_t(args[0]), C.uint64_t(args[1]), C.uint64_t(args[2]),
			C.uint64_t(args[3]), C.uint64_t(args[4]))), nil
	case 6:
		return uint64(C.call_fn6(p, C.uint64_t(args[0]), C.uint64_t(args[1]), C.uint64_t(args[2]),
			C.uint64_t(args[3]), C.uint64_t(args[4]), C.uint64_t(args[5]))), nil
	default:
		return 0, fmt.Errorf("%w: %d args, dispatch table ends at %d", ErrTooManyArgs, len(args), MaxArity)
	}
}

// pinString copies s into C memory with a trailing NUL and returns the
// address plus a release function.
func pinString(s string) (uintptr, func()) {
	p := C.CString(s)
	return uintptr(unsafe.Pointer(p)), func() { C.free(unsafe.Pointer(p)) }
}

// pinBytes copies b into C memory and returns the address plus a release
// function. Empty slices pin a valid zero-length allocation.
func pinBytes(b []byte) (uintptr, func()) {
	p := C.CBytes(b)
	return uintptr(p), func() { C.free(p) }
}

// cStringAt reads a NUL-terminated string from a native address. Address
// zero reads as the empty string.
func cStringAt(addr uintptr) string {
	if addr == 0 {
		return ""
	}
	return C.GoString((*C.char)(unsafe.Pointer(addr)))
}
