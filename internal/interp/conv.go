package interp

import (
	"math"

	"github.com/clrfirmata/ilengine/internal/exmachine"
	"github.com/clrfirmata/ilengine/internal/slot"
)

// execConv implements spec.md §4.7's conversion family, including both
// resolutions of the Open Question noted in SPEC_FULL.md §9: unchecked
// conv.* always succeeds (narrowing wraps, the CLR way — conv.i1/u1/i2/u2
// narrow then the CLR widens back to a 32-bit stack slot, which is why
// their target kinds here are still Int32/Uint32); conv.ovf.* range-checks
// against the target width and throws Overflow on failure.
//
// Integer-to-integer conversions never go through asFloat64: float64 only
// represents integers exactly up to 2^53, so an Int64/Uint64 source beyond
// that magnitude would silently round before truncation or range-checking.
// Those conversions are truncated and range-checked as native integers
// instead; the float path is reserved for genuinely float-sourced
// conversions (and for conv.r4/conv.r8, where the target itself is a float
// and the precision loss is the conversion's whole point).
func (ip *Interpreter) execConv(cur *Frame, op Opcode) error {
	v := cur.Operand.Pop()
	checked := isConvOvf(op)

	if op != OpConvR4 && op != OpConvR8 && isIntegerKind(v.Kind.Base()) {
		return pushConvInt(cur, op, asIntSource(v), checked)
	}

	f := asFloat64(v)
	if checked {
		// Range-check the value truncated toward zero, not the raw float.
		f = math.Trunc(f)
	}
	switch op {
	case OpConvI1, OpConvOvfI1:
		if checked && (f < math.MinInt8 || f > math.MaxInt8) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.i1: value out of range")
		}
		cur.Operand.Push(slot.Int32Slot(int32(int8(int64(f)))))
	case OpConvU1, OpConvOvfU1:
		if checked && (f < 0 || f > math.MaxUint8) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.u1: value out of range")
		}
		cur.Operand.Push(slot.Uint32Slot(uint32(uint8(int64(f)))))
	case OpConvI2, OpConvOvfI2:
		if checked && (f < math.MinInt16 || f > math.MaxInt16) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.i2: value out of range")
		}
		cur.Operand.Push(slot.Int32Slot(int32(int16(int64(f)))))
	case OpConvU2, OpConvOvfU2:
		if checked && (f < 0 || f > math.MaxUint16) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.u2: value out of range")
		}
		cur.Operand.Push(slot.Uint32Slot(uint32(uint16(int64(f)))))
	case OpConvI4, OpConvOvfI4:
		if checked && (f < math.MinInt32 || f > math.MaxInt32) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.i4: value out of range")
		}
		cur.Operand.Push(slot.Int32Slot(int32(int64(f))))
	case OpConvU4, OpConvOvfU4:
		if checked && (f < 0 || f > math.MaxUint32) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.u4: value out of range")
		}
		cur.Operand.Push(slot.Uint32Slot(uint32(int64(f))))
	case OpConvI8, OpConvOvfI8:
		if checked && (f < math.MinInt64 || f >= 1<<63) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.i8: value out of range")
		}
		cur.Operand.Push(slot.Int64Slot(int64(f)))
	case OpConvU8, OpConvOvfU8:
		if checked && (f < 0 || f >= 1<<64) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.u8: value out of range")
		}
		cur.Operand.Push(slot.Uint64Slot(uint64(f)))
	case OpConvR4:
		cur.Operand.Push(slot.FloatSlot(float32(f)))
	case OpConvR8:
		cur.Operand.Push(slot.DoubleSlot(f))
	default:
		return exmachine.New(exmachine.InvalidOperation, 0, "unrecognized conversion opcode")
	}
	return nil
}

// isIntegerKind reports whether k is one of the four integer slot kinds
// that carry an exact native value asFloat64 cannot losslessly widen past
// 2^53.
func isIntegerKind(k slot.Kind) bool {
	switch k {
	case slot.Int32, slot.Uint32, slot.Int64, slot.Uint64:
		return true
	}
	return false
}

// intSource holds an integer slot's exact value without any float
// round-trip. u carries the full 64-bit two's-complement bit pattern
// (sign-extended for signed sources), which is all truncation ever needs;
// signed additionally records whether the source kind itself is signed, so
// range checks can tell an Int64 -1 from a Uint64 0xFFFFFFFFFFFFFFFF instead
// of conflating their bit patterns.
type intSource struct {
	u      uint64
	signed bool
}

func asIntSource(v slot.Slot) intSource {
	switch v.Kind.Base() {
	case slot.Int32:
		return intSource{u: uint64(int64(v.I32())), signed: true}
	case slot.Int64:
		return intSource{u: uint64(v.I64()), signed: true}
	case slot.Uint32:
		return intSource{u: uint64(v.U32())}
	case slot.Uint64:
		return intSource{u: v.U64()}
	}
	return intSource{}
}

// signedOverflow reports whether s's exact value falls outside [min, max],
// a signed target range. An unsigned source (Uint32/Uint64) is never
// negative, so only the upper bound can be violated.
func (s intSource) signedOverflow(min, max int64) bool {
	if s.signed {
		v := int64(s.u)
		return v < min || v > max
	}
	if max < 0 {
		return true
	}
	return s.u > uint64(max)
}

// unsignedOverflow reports whether s's exact value falls outside [0, max],
// an unsigned target range. A signed source overflows whenever its value is
// negative, regardless of max.
func (s intSource) unsignedOverflow(max uint64) bool {
	if s.signed {
		v := int64(s.u)
		if v < 0 {
			return true
		}
		return uint64(v) > max
	}
	return s.u > max
}

// pushConvInt implements the conv/conv.ovf family for an integer-kinded
// source, truncating and range-checking natively instead of through
// asFloat64.
func pushConvInt(cur *Frame, op Opcode, s intSource, checked bool) error {
	switch op {
	case OpConvI1, OpConvOvfI1:
		if checked && s.signedOverflow(math.MinInt8, math.MaxInt8) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.i1: value out of range")
		}
		cur.Operand.Push(slot.Int32Slot(int32(int8(uint8(s.u)))))
	case OpConvU1, OpConvOvfU1:
		if checked && s.unsignedOverflow(math.MaxUint8) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.u1: value out of range")
		}
		cur.Operand.Push(slot.Uint32Slot(uint32(uint8(s.u))))
	case OpConvI2, OpConvOvfI2:
		if checked && s.signedOverflow(math.MinInt16, math.MaxInt16) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.i2: value out of range")
		}
		cur.Operand.Push(slot.Int32Slot(int32(int16(uint16(s.u)))))
	case OpConvU2, OpConvOvfU2:
		if checked && s.unsignedOverflow(math.MaxUint16) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.u2: value out of range")
		}
		cur.Operand.Push(slot.Uint32Slot(uint32(uint16(s.u))))
	case OpConvI4, OpConvOvfI4:
		if checked && s.signedOverflow(math.MinInt32, math.MaxInt32) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.i4: value out of range")
		}
		cur.Operand.Push(slot.Int32Slot(int32(uint32(s.u))))
	case OpConvU4, OpConvOvfU4:
		if checked && s.unsignedOverflow(math.MaxUint32) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.u4: value out of range")
		}
		cur.Operand.Push(slot.Uint32Slot(uint32(s.u)))
	case OpConvI8, OpConvOvfI8:
		if checked && s.signedOverflow(math.MinInt64, math.MaxInt64) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.i8: value out of range")
		}
		cur.Operand.Push(slot.Int64Slot(int64(s.u)))
	case OpConvU8, OpConvOvfU8:
		if checked && s.unsignedOverflow(math.MaxUint64) {
			return exmachine.New(exmachine.Overflow, 0, "conv.ovf.u8: value out of range")
		}
		cur.Operand.Push(slot.Uint64Slot(s.u))
	default:
		return exmachine.New(exmachine.InvalidOperation, 0, "unrecognized conversion opcode")
	}
	return nil
}

func isConvOvf(op Opcode) bool {
	switch op {
	case OpConvOvfI1, OpConvOvfU1, OpConvOvfI2, OpConvOvfU2,
		OpConvOvfI4, OpConvOvfU4, OpConvOvfI8, OpConvOvfU8:
		return true
	}
	return false
}

// asFloat64 widens a numeric slot kind to float64 for conversions whose
// target is itself numeric via a float: genuinely float-sourced conv/
// conv.ovf opcodes, and conv.r4/conv.r8 regardless of source kind (their
// precision loss against a >2^53 Int64/Uint64 source is the conversion's
// intended behavior, not a truncation bug). execConv never routes an
// integer-to-integer conversion through this function — see pushConvInt.
func asFloat64(v slot.Slot) float64 {
	switch v.Kind.Base() {
	case slot.Int32:
		return float64(v.I32())
	case slot.Uint32:
		return float64(v.U32())
	case slot.Int64:
		return float64(v.I64())
	case slot.Uint64:
		return float64(v.U64())
	case slot.Float:
		return float64(v.F32())
	case slot.Double:
		return v.F64()
	case slot.Boolean:
		if v.Bool() {
			return 1
		}
		return 0
	default:
		return float64(v.Payload)
	}
}
