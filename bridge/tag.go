package bridge

// ---------------------------------------------------------------------------
// TypeTag: the closed set of marshallable native kinds
// ---------------------------------------------------------------------------

// TypeTag identifies the native representation of a marshalled value.
// The set is closed: every tag has a fixed byte size and belongs to
// exactly one TagClass, and both properties are immutable.
type TypeTag uint8

const (
	TagVoid TypeTag = iota
	TagU8
	TagI8
	TagU16
	TagI16
	TagU32
	TagI32
	TagU64
	TagI64
	TagF32
	TagF64
	TagPointer
	TagString
	TagBuffer
)

// TagClass groups type tags by how their bits travel through a native call.
type TagClass uint8

const (
	ClassInteger TagClass = iota
	ClassFloat
	ClassPointer
)

// Class returns the marshalling class of the tag. Void classifies as
// integer; its register image is always zero.
func (t TypeTag) Class() TagClass {
	switch t {
	case TagF32, TagF64:
		return ClassFloat
	case TagPointer, TagString, TagBuffer:
		return ClassPointer
	default:
		return ClassInteger
	}
}

// Size returns the native byte size of the tag. Pointer-like tags report
// the transport word size, not the size of what they point at.
func (t TypeTag) Size() int {
	switch t {
	case TagVoid:
		return 0
	case TagU8, TagI8:
		return 1
	case TagU16, TagI16:
		return 2
	case TagU32, TagI32, TagF32:
		return 4
	default:
		return 8
	}
}

// Signed reports whether the tag is a signed integer kind.
func (t TypeTag) Signed() bool {
	switch t {
	case TagI8, TagI16, TagI32, TagI64:
		return true
	}
	return false
}

var tagNames = [...]string{
	TagVoid:    "void",
	TagU8:      "u8",
	TagI8:      "i8",
	TagU16:     "u16",
	TagI16:     "i16",
	TagU32:     "u32",
	TagI32:     "i32",
	TagU64:     "u64",
	TagI64:     "i64",
	TagF32:     "f32",
	TagF64:     "f64",
	TagPointer: "pointer",
	TagString:  "string",
	TagBuffer:  "buffer",
}

func (t TypeTag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "invalid"
}

// AllTags lists every tag once, in declaration order. Used by exhaustive
// checks and tests.
func AllTags() []TypeTag {
	tags := make([]TypeTag, 0, len(tagNames))
	for i := range tagNames {
		tags = append(tags, TypeTag(i))
	}
	return tags
}
