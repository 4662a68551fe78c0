package bridge

import (
	"math"
	"testing"
)

func TestRegisterRoundTripIntegers(t *testing.T) {
	cases := []struct {
		name string
		v    TaggedValue
	}{
		{"u8 max", U8(255)},
		{"i8 negative", I8(-1)},
		{"i8 min", I8(-128)},
		{"u16", U16(65535)},
		{"i16 negative", I16(-32768)},
		{"u32", U32(4294967295)},
		{"i32 negative", I32(-2147483648)},
		{"u64 max", U64(math.MaxUint64)},
		{"i64 negative", I64(-9223372036854775808)},
		{"pointer", Ptr(0xdeadbeef)},
	}
	for _, tc := range cases {
		got := FromRegister(ToRegister(tc.v), tc.v.Tag())
		if got.Uint64() != tc.v.Uint64() || got.Tag() != tc.v.Tag() {
			t.Errorf("%s: round trip gave %v, want %v", tc.name, got, tc.v)
		}
	}
}

func TestRegisterRoundTripFloats(t *testing.T) {
	// Floats compare by bit pattern, not approximate equality. NaN is the
	// case that breaks value comparison but must survive the trip.
	f64s := []float64{0, 1.5, -2.25, math.Pi, math.Inf(1), math.Inf(-1), math.NaN()}
	for _, f := range f64s {
		v := F64(f)
		got := FromRegister(ToRegister(v), TagF64)
		if math.Float64bits(got.Float64()) != math.Float64bits(f) {
			t.Errorf("f64 %v: bits %x, want %x", f, math.Float64bits(got.Float64()), math.Float64bits(f))
		}
	}
	f32s := []float32{0, 1.5, -2.25, float32(math.Inf(1)), float32(math.NaN())}
	for _, f := range f32s {
		v := F32(f)
		got := FromRegister(ToRegister(v), TagF32)
		if math.Float32bits(got.Float32()) != math.Float32bits(f) {
			t.Errorf("f32 %v: bits %x, want %x", f, math.Float32bits(got.Float32()), math.Float32bits(f))
		}
	}
}

func TestVoidRegisterImage(t *testing.T) {
	if got := ToRegister(Void()); got != 0 {
		t.Errorf("ToRegister(Void()) = %d, want 0", got)
	}
	v := FromRegister(12345, TagVoid)
	if !v.IsVoid() || v.Uint64() != 0 {
		t.Errorf("FromRegister(12345, TagVoid) = %v, want void with zero bits", v)
	}
}

func TestFromRegisterCanonicalizes(t *testing.T) {
	// Garbage in the high bits must not leak into narrow values.
	if got := FromRegister(0xFFFFFF01, TagU8).Uint64(); got != 0x01 {
		t.Errorf("u8 canon = %#x, want 0x01", got)
	}
	if got := FromRegister(0xFF, TagI8).Int64(); got != -1 {
		t.Errorf("i8 canon = %d, want -1", got)
	}
	if got := FromRegister(0x18000, TagI16).Int64(); got != -32768 {
		t.Errorf("i16 canon = %d, want -32768", got)
	}
	if got := FromRegister(0xFFFFFFFF80000000, TagU32).Uint64(); got != 0x80000000 {
		t.Errorf("u32 canon = %#x, want 0x80000000", got)
	}
	if got := FromRegister(0x80000000, TagI32).Int64(); got != -2147483648 {
		t.Errorf("i32 canon = %d, want -2147483648", got)
	}
}

func TestSignedAccessors(t *testing.T) {
	v := I32(-7)
	if v.Int64() != -7 {
		t.Errorf("I32(-7).Int64() = %d, want -7", v.Int64())
	}
	if v.Uint64() != 0xFFFFFFFFFFFFFFF9 {
		t.Errorf("I32(-7).Uint64() = %#x, want sign-extended image", v.Uint64())
	}
}

func TestFloat32Widening(t *testing.T) {
	v := F32(1.5)
	if v.Float64() != 1.5 {
		t.Errorf("F32(1.5).Float64() = %v, want 1.5", v.Float64())
	}
}

func TestOwnedPayloads(t *testing.T) {
	s := Str("hello")
	if !s.Owned() || s.Text() != "hello" {
		t.Errorf("Str: owned=%v text=%q", s.Owned(), s.Text())
	}
	if txt, ok := s.TryText(); !ok || txt != "hello" {
		t.Errorf("TryText = %q, %v", txt, ok)
	}
	b := Bytes([]byte{1, 2, 3})
	if !b.Owned() || len(b.Data()) != 3 {
		t.Errorf("Bytes: owned=%v len=%d", b.Owned(), len(b.Data()))
	}
	// Decoded values reference native memory, they own nothing.
	d := FromRegister(0x1000, TagString)
	if d.Owned() {
		t.Error("FromRegister string value should not be owned")
	}
	if _, ok := d.TryText(); ok {
		t.Error("decoded string value should have no text payload")
	}
}
