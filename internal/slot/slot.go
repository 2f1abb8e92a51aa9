// Package slot implements the tagged variable-slot value (spec C1): the
// single representation used for locals, arguments, globals, and operand
// stack entries throughout the engine.
package slot

import "fmt"

// Kind tags the payload carried by a Slot. Values mirror the CIL-inspired
// set named in spec.md §3.1; any may be OR-tagged with StaticMember.
type Kind uint8

const (
	Void Kind = iota
	Uint32
	Int32
	Boolean
	Object
	Method
	ValueArray
	ReferenceArray
	Float
	LargeValueType
	Int64
	Uint64
	Double
	RuntimeFieldHandle
	RuntimeTypeHandle
	AddressOfVariable
	FunctionPointer
	NativeHandle

	kindCount
)

// StaticMember is OR-tagged onto a Kind to mark a slot as backing a static
// field rather than an instance field or stack/local value.
const StaticMember Kind = 0x80

// kindMask strips the StaticMember tag to recover the base Kind.
const kindMask = StaticMember - 1

// Base returns k with any StaticMember tag removed.
func (k Kind) Base() Kind { return k & kindMask }

// IsStatic reports whether k carries the StaticMember tag.
func (k Kind) IsStatic() bool { return k&StaticMember != 0 }

// wide64 is the bit-4 marker spec.md §3.1 uses to infer an 8-byte size:
// "size is inferred from kind (8 if bit 4 of kind is set, else 4 …)".
const wide64 = 1 << 4

// IsReference reports whether k's payload is a pointer per invariant I2:
// Object, AddressOfVariable, ReferenceArray, and ValueArray are reference
// kinds even though ValueArray may also carry inline bytes for a boxed
// value type — the array header itself is always heap-allocated.
func (k Kind) IsReference() bool {
	switch k.Base() {
	case Object, AddressOfVariable, ReferenceArray, ValueArray, Method, FunctionPointer, NativeHandle:
		return true
	}
	return false
}

func (k Kind) String() string {
	names := [...]string{
		"Void", "Uint32", "Int32", "Boolean", "Object", "Method",
		"ValueArray", "ReferenceArray", "Float", "LargeValueType",
		"Int64", "Uint64", "Double", "RuntimeFieldHandle",
		"RuntimeTypeHandle", "AddressOfVariable", "FunctionPointer",
		"NativeHandle",
	}
	base := k.Base()
	label := "Kind(?)"
	if int(base) < len(names) {
		label = names[base]
	}
	if k.IsStatic() {
		return label + "|Static"
	}
	return label
}

// DefaultMarker and DeclMarker are the two constant marker bytes spec.md
// §3.1 assigns: 0x37 for ordinary slots, 0x39 for "declaration-only" slots
// used purely as metadata (field/local descriptors before a value exists).
const (
	DefaultMarker byte = 0x37
	DeclMarker    byte = 0x39
)

// PointerSize is the target pointer width assumed by this engine. The
// original firmware targets 32-bit microcontrollers; this implementation
// keeps that assumption explicit rather than using unsafe.Sizeof, since the
// managed heap this engine models is a simulated address space, not the
// host process's own.
const PointerSize = 4

// Slot is the tuple (kind, marker, size, payload) of spec.md §3.1. Payload
// is stored as a 64-bit word for scalar kinds; Bytes holds the inline
// representation for LargeValueType (invariant I3: a large value type's
// payload may exceed the slot's inline area, so Bytes grows to fit and the
// surrounding container — local storage, array element — is responsible
// for reserving enough room).
type Slot struct {
	Kind    Kind
	Marker  byte
	Size    int
	Payload uint64
	Bytes   []byte // only non-nil for Kind.Base() == LargeValueType
}

// fieldSize returns the payload width implied by kind alone, before any
// explicit override, per spec.md §3.1: "8 if bit 4 of kind is set, else 4,
// except reference kinds which are pointer-sized".
func fieldSize(k Kind) int {
	base := k.Base()
	if base.IsReference() {
		return PointerSize
	}
	if uint8(base)&wide64 != 0 {
		return 8
	}
	switch base {
	case Int64, Uint64, Double:
		return 8
	}
	return 4
}

// New constructs a Slot of the given kind with an explicit payload. size==0
// means "infer from kind" per spec.md §3.1.
func New(kind Kind, payload uint64, size int) Slot {
	if size == 0 {
		size = fieldSize(kind)
	}
	return Slot{Kind: kind, Marker: DefaultMarker, Size: size, Payload: payload}
}

// Decl constructs a declaration-only slot: metadata for a field or local
// before any value has been assigned, marked per spec.md §3.1.
func Decl(kind Kind, size int) Slot {
	s := New(kind, 0, size)
	s.Marker = DeclMarker
	return s
}

// NewLarge constructs a LargeValueType slot whose payload lives in an
// out-of-line byte buffer, per invariant I3.
func NewLarge(bytes []byte) Slot {
	return Slot{Kind: LargeValueType, Marker: DefaultMarker, Size: len(bytes), Bytes: append([]byte(nil), bytes...)}
}

// FieldSize returns v's payload width, matching spec.md §8's "variable size
// invariant" testable property.
func (v Slot) FieldSize() int {
	if v.Kind.Base() == LargeValueType {
		return len(v.Bytes)
	}
	return fieldSize(v.Kind)
}

// IsDecl reports whether v is a declaration-only slot.
func (v Slot) IsDecl() bool { return v.Marker == DeclMarker }

// AssignFrom implements invariant I1: "assignment between slots requires
// matching size unless the destination is a declaration slot." It returns
// an error rather than panicking — this is a guest-program-facing check
// the loader/interpreter can turn into a system exception, not an engine
// bug.
func (dst *Slot) AssignFrom(src Slot) error {
	if !dst.IsDecl() && dst.Size != 0 && dst.Size != src.Size {
		return fmt.Errorf("slot: size mismatch assigning %s(size=%d) into %s(size=%d)",
			src.Kind, src.Size, dst.Kind, dst.Size)
	}
	kind := dst.Kind
	marker := dst.Marker
	*dst = src
	dst.Kind = kind
	if marker != DeclMarker {
		dst.Marker = marker
	}
	return nil
}

// I32 returns the payload reinterpreted as a signed 32-bit integer.
func (v Slot) I32() int32 { return int32(uint32(v.Payload)) }

// U32 returns the payload reinterpreted as an unsigned 32-bit integer.
func (v Slot) U32() uint32 { return uint32(v.Payload) }

// I64 returns the payload reinterpreted as a signed 64-bit integer.
func (v Slot) I64() int64 { return int64(v.Payload) }

// U64 returns the raw payload.
func (v Slot) U64() uint64 { return v.Payload }

// F32 returns the payload reinterpreted as a 32-bit float.
func (v Slot) F32() float32 { return float32FromBits(uint32(v.Payload)) }

// F64 returns the payload reinterpreted as a 64-bit float.
func (v Slot) F64() float64 { return float64FromBits(v.Payload) }

// Bool reports the payload as a boolean (nonzero is true).
func (v Slot) Bool() bool { return v.Payload != 0 }

// Ptr returns the payload as a simulated heap address; valid only for
// reference kinds (invariant I2).
func (v Slot) Ptr() uint32 { return uint32(v.Payload) }

// Int32Slot, Uint32Slot, Int64Slot, etc. are convenience constructors used
// throughout the interpreter and tests.
func Int32Slot(v int32) Slot   { return New(Int32, uint64(uint32(v)), 4) }
func Uint32Slot(v uint32) Slot { return New(Uint32, uint64(v), 4) }
func Int64Slot(v int64) Slot   { return New(Int64, uint64(v), 8) }
func Uint64Slot(v uint64) Slot { return New(Uint64, v, 8) }
func BoolSlot(v bool) Slot {
	if v {
		return New(Boolean, 1, 4)
	}
	return New(Boolean, 0, 4)
}
func FloatSlot(v float32) Slot  { return New(Float, uint64(float32Bits(v)), 4) }
func DoubleSlot(v float64) Slot { return New(Double, float64Bits(v), 8) }
func ObjectSlot(addr uint32) Slot {
	return New(Object, uint64(addr), PointerSize)
}
func NilObject() Slot { return New(Object, 0, PointerSize) }
