package bridge

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// TaggedValue: one marshalled value plus the tag that produced it
// ---------------------------------------------------------------------------

// TaggedValue carries a single value across the native boundary. The
// concrete payload is one of: absence (void), a 64-bit integer covering
// all integer widths, an IEEE-754 bit pattern, a raw address, an owned
// string, or an owned byte slice.
//
// The bits field always holds the canonical register image for the tag:
// signed integers are stored sign-extended, unsigned zero-extended, f32
// keeps its 32-bit pattern in the low word. Owned string and buffer
// payloads have no address until the call dispatcher pins them.
type TaggedValue struct {
	tag   TypeTag
	bits  uint64
	str   string
	buf   []byte
	owned bool
}

// Void returns the absence value. Its register image is zero.
func Void() TaggedValue { return TaggedValue{tag: TagVoid} }

func U8(v uint8) TaggedValue   { return TaggedValue{tag: TagU8, bits: uint64(v)} }
func I8(v int8) TaggedValue    { return TaggedValue{tag: TagI8, bits: uint64(int64(v))} }
func U16(v uint16) TaggedValue { return TaggedValue{tag: TagU16, bits: uint64(v)} }
func I16(v int16) TaggedValue  { return TaggedValue{tag: TagI16, bits: uint64(int64(v))} }
func U32(v uint32) TaggedValue { return TaggedValue{tag: TagU32, bits: uint64(v)} }
func I32(v int32) TaggedValue  { return TaggedValue{tag: TagI32, bits: uint64(int64(v))} }
func U64(v uint64) TaggedValue { return TaggedValue{tag: TagU64, bits: v} }
func I64(v int64) TaggedValue  { return TaggedValue{tag: TagI64, bits: uint64(v)} }

// F32 stores the 32-bit IEEE-754 pattern in the low word.
func F32(v float32) TaggedValue {
	return TaggedValue{tag: TagF32, bits: uint64(math.Float32bits(v))}
}

// F64 stores the full 64-bit IEEE-754 pattern.
func F64(v float64) TaggedValue {
	return TaggedValue{tag: TagF64, bits: math.Float64bits(v)}
}

// Ptr wraps a raw address. The bridge never hands these to VM callers;
// they exist for native parameters declared as opaque pointers.
func Ptr(addr uintptr) TaggedValue {
	return TaggedValue{tag: TagPointer, bits: uint64(addr)}
}

// Str wraps an owned Go string destined for a NUL-terminated native string.
func Str(s string) TaggedValue { return TaggedValue{tag: TagString, str: s, owned: true} }

// Bytes wraps an owned byte slice. The value keeps the slice; callers must
// not mutate it while a call is in flight.
func Bytes(b []byte) TaggedValue { return TaggedValue{tag: TagBuffer, buf: b, owned: true} }

// Tag returns the tag the value was produced with.
func (v TaggedValue) Tag() TypeTag { return v.tag }

// IsVoid reports the absence value.
func (v TaggedValue) IsVoid() bool { return v.tag == TagVoid }

// Uint64 returns the canonical register bits of the value.
func (v TaggedValue) Uint64() uint64 { return v.bits }

// Int64 returns the value as a signed 64-bit integer. Signed tags are
// already stored sign-extended, so the conversion is a plain reinterpret.
func (v TaggedValue) Int64() int64 { return int64(v.bits) }

// Float64 returns the floating-point payload, widening f32 values.
func (v TaggedValue) Float64() float64 {
	if v.tag == TagF32 {
		return float64(math.Float32frombits(uint32(v.bits)))
	}
	return math.Float64frombits(v.bits)
}

// Float32 returns the 32-bit floating-point payload.
func (v TaggedValue) Float32() float32 {
	return math.Float32frombits(uint32(v.bits))
}

// Addr returns the pointer payload as a uintptr.
func (v TaggedValue) Addr() uintptr { return uintptr(v.bits) }

// Text returns the owned string payload, or "" when the value owns none.
func (v TaggedValue) Text() string { return v.str }

// Data returns the owned byte payload, or nil when the value owns none.
func (v TaggedValue) Data() []byte { return v.buf }

// Owned reports whether the value carries its payload itself rather than
// referencing native memory through an address. Only owned string and
// buffer values are pinned to C memory at call time.
func (v TaggedValue) Owned() bool { return v.owned }

// TryText returns the owned string payload and whether one is present.
// Values decoded from a register word carry only an address, no payload.
func (v TaggedValue) TryText() (string, bool) {
	if v.tag != TagString || !v.owned {
		return "", false
	}
	return v.str, true
}

// TryData returns the owned byte payload and whether one is present.
func (v TaggedValue) TryData() ([]byte, bool) {
	if v.tag != TagBuffer || !v.owned {
		return nil, false
	}
	return v.buf, true
}

func (v TaggedValue) String() string {
	switch v.tag.Class() {
	case ClassFloat:
		return fmt.Sprintf("%s(%g)", v.tag, v.Float64())
	case ClassPointer:
		if v.tag == TagString && v.str != "" {
			return fmt.Sprintf("string(%q)", v.str)
		}
		if v.tag == TagBuffer && v.buf != nil {
			return fmt.Sprintf("buffer(%d bytes)", len(v.buf))
		}
		return fmt.Sprintf("%s(0x%x)", v.tag, v.bits)
	default:
		if v.tag == TagVoid {
			return "void"
		}
		if v.tag.Signed() {
			return fmt.Sprintf("%s(%d)", v.tag, v.Int64())
		}
		return fmt.Sprintf("%s(%d)", v.tag, v.bits)
	}
}

// ---------------------------------------------------------------------------
// Register transport
// ---------------------------------------------------------------------------

// ToRegister converts a value to its raw 64-bit register form. Total:
// every tag has a defined image, void maps to zero. For integer and
// pointer classes the round trip through FromRegister is lossless; floats
// round-trip bit-exactly.
func ToRegister(v TaggedValue) uint64 {
	return v.bits
}

// FromRegister decodes a raw 64-bit register word against a tag. The
// switch is purely on the tag's class: integer tags re-canonicalize the
// bits to their width, f32 reinterprets the low 32 bits, f64 all 64,
// pointer-like tags copy the bits as an address. Values decoded for
// string and buffer tags carry the address only; ownership is attached
// by whoever resolves the address.
func FromRegister(bits uint64, tag TypeTag) TaggedValue {
	return TaggedValue{tag: tag, bits: canonBits(bits, tag)}
}

// canonBits normalizes raw bits to the canonical image for the tag:
// masked for unsigned widths, sign-extended for signed widths, low word
// only for f32, forced zero for void.
func canonBits(bits uint64, tag TypeTag) uint64 {
	switch tag {
	case TagVoid:
		return 0
	case TagU8:
		return bits & 0xFF
	case TagI8:
		return uint64(int64(int8(bits)))
	case TagU16:
		return bits & 0xFFFF
	case TagI16:
		return uint64(int64(int16(bits)))
	case TagU32, TagF32:
		return bits & 0xFFFFFFFF
	case TagI32:
		return uint64(int64(int32(bits)))
	default:
		return bits
	}
}
