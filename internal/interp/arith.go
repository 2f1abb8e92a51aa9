package interp

import (
	"math"

	"github.com/clrfirmata/ilengine/internal/exmachine"
	"github.com/clrfirmata/ilengine/internal/slot"
)

// execBinaryArith implements spec.md §4.7's arithmetic family: add, sub,
// mul, div, div.un, rem, rem.un, and, or, xor, shl, shr, shr.un, with
// signed and unsigned .ovf variants that throw on overflow.
func (ip *Interpreter) execBinaryArith(cur *Frame, op Opcode) error {
	b := cur.Operand.Pop()
	a := cur.Operand.Pop()
	kind := a.Kind.Base()

	switch kind {
	case slot.Int32:
		x, y := a.I32(), b.I32()
		r, ovf := binI32(op, x, y)
		if op == OpAddOvfUn || op == OpSubOvfUn || op == OpMulOvfUn {
			ur, uovf := binU32(op, uint32(x), uint32(y))
			r, ovf = int32(ur), uovf
		}
		if ovf && isOvfOp(op) {
			return exmachine.New(exmachine.Overflow, 0, "arithmetic overflow")
		}
		if isDivOp(op) && y == 0 {
			return exmachine.New(exmachine.DivideByZero, 0, "integer division by zero")
		}
		cur.Operand.Push(slot.Int32Slot(r))
	case slot.Uint32:
		x, y := a.U32(), b.U32()
		r, ovf := binU32(op, x, y)
		if ovf && isOvfOp(op) {
			return exmachine.New(exmachine.Overflow, 0, "arithmetic overflow")
		}
		if isDivOp(op) && y == 0 {
			return exmachine.New(exmachine.DivideByZero, 0, "integer division by zero")
		}
		cur.Operand.Push(slot.Uint32Slot(r))
	case slot.Int64:
		x, y := a.I64(), b.I64()
		r, ovf := binI64(op, x, y)
		if op == OpAddOvfUn || op == OpSubOvfUn || op == OpMulOvfUn {
			ur, uovf := binU64(op, uint64(x), uint64(y))
			r, ovf = int64(ur), uovf
		}
		if ovf && isOvfOp(op) {
			return exmachine.New(exmachine.Overflow, 0, "arithmetic overflow")
		}
		if isDivOp(op) && y == 0 {
			return exmachine.New(exmachine.DivideByZero, 0, "integer division by zero")
		}
		cur.Operand.Push(slot.Int64Slot(r))
	case slot.Uint64:
		x, y := a.U64(), b.U64()
		r, ovf := binU64(op, x, y)
		if ovf && isOvfOp(op) {
			return exmachine.New(exmachine.Overflow, 0, "arithmetic overflow")
		}
		if isDivOp(op) && y == 0 {
			return exmachine.New(exmachine.DivideByZero, 0, "integer division by zero")
		}
		cur.Operand.Push(slot.Uint64Slot(r))
	case slot.Float:
		cur.Operand.Push(slot.FloatSlot(binF32(op, a.F32(), b.F32())))
	case slot.Double:
		cur.Operand.Push(slot.DoubleSlot(binF64(op, a.F64(), b.F64())))
	default:
		return exmachine.New(exmachine.InvalidOperation, 0, "arithmetic on non-numeric kind")
	}
	return nil
}

func isOvfOp(op Opcode) bool {
	switch op {
	case OpAddOvf, OpAddOvfUn, OpSubOvf, OpSubOvfUn, OpMulOvf, OpMulOvfUn:
		return true
	}
	return false
}

func isDivOp(op Opcode) bool {
	switch op {
	case OpDiv, OpDivUn, OpRem, OpRemUn:
		return true
	}
	return false
}

func binI32(op Opcode, x, y int32) (int32, bool) {
	switch op {
	case OpAdd, OpAddOvf, OpAddOvfUn:
		r := x + y
		return r, (x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r > 0)
	case OpSub, OpSubOvf, OpSubOvfUn:
		r := x - y
		return r, (y > 0 && x < math.MinInt32+y) || (y < 0 && x > math.MaxInt32+y)
	case OpMul, OpMulOvf, OpMulOvfUn:
		r := x * y
		return r, x != 0 && r/x != y
	case OpDiv, OpDivUn:
		if y == 0 {
			return 0, false
		}
		return x / y, false
	case OpRem, OpRemUn:
		if y == 0 {
			return 0, false
		}
		return x % y, false
	case OpAnd:
		return x & y, false
	case OpOr:
		return x | y, false
	case OpXor:
		return x ^ y, false
	case OpShl:
		return x << (uint32(y) & 31), false
	case OpShr:
		return x >> (uint32(y) & 31), false
	case OpShrUn:
		return int32(uint32(x) >> (uint32(y) & 31)), false
	}
	return 0, false
}

func binU32(op Opcode, x, y uint32) (uint32, bool) {
	switch op {
	case OpAdd, OpAddOvfUn:
		r := x + y
		return r, r < x
	case OpAddOvf:
		return binU32(OpAddOvfUn, x, y)
	case OpSub, OpSubOvfUn:
		return x - y, y > x
	case OpSubOvf:
		return binU32(OpSubOvfUn, x, y)
	case OpMul, OpMulOvfUn:
		r := x * y
		return r, x != 0 && r/x != y
	case OpMulOvf:
		return binU32(OpMulOvfUn, x, y)
	case OpDiv, OpDivUn:
		if y == 0 {
			return 0, false
		}
		return x / y, false
	case OpRem, OpRemUn:
		if y == 0 {
			return 0, false
		}
		return x % y, false
	case OpAnd:
		return x & y, false
	case OpOr:
		return x | y, false
	case OpXor:
		return x ^ y, false
	case OpShl:
		return x << (y & 31), false
	case OpShr, OpShrUn:
		return x >> (y & 31), false
	}
	return 0, false
}

func binI64(op Opcode, x, y int64) (int64, bool) {
	switch op {
	case OpAdd, OpAddOvf, OpAddOvfUn:
		r := x + y
		return r, (x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r > 0)
	case OpSub, OpSubOvf, OpSubOvfUn:
		r := x - y
		return r, (y > 0 && x < math.MinInt64+y) || (y < 0 && x > math.MaxInt64+y)
	case OpMul, OpMulOvf, OpMulOvfUn:
		r := x * y
		return r, x != 0 && r/x != y
	case OpDiv, OpDivUn:
		if y == 0 {
			return 0, false
		}
		return x / y, false
	case OpRem, OpRemUn:
		if y == 0 {
			return 0, false
		}
		return x % y, false
	case OpAnd:
		return x & y, false
	case OpOr:
		return x | y, false
	case OpXor:
		return x ^ y, false
	case OpShl:
		return x << (uint64(y) & 63), false
	case OpShr:
		return x >> (uint64(y) & 63), false
	case OpShrUn:
		return int64(uint64(x) >> (uint64(y) & 63)), false
	}
	return 0, false
}

func binU64(op Opcode, x, y uint64) (uint64, bool) {
	switch op {
	case OpAdd, OpAddOvfUn:
		r := x + y
		return r, r < x
	case OpAddOvf:
		return binU64(OpAddOvfUn, x, y)
	case OpSub, OpSubOvfUn:
		return x - y, y > x
	case OpSubOvf:
		return binU64(OpSubOvfUn, x, y)
	case OpMul, OpMulOvfUn:
		r := x * y
		return r, x != 0 && r/x != y
	case OpMulOvf:
		return binU64(OpMulOvfUn, x, y)
	case OpDiv, OpDivUn:
		if y == 0 {
			return 0, false
		}
		return x / y, false
	case OpRem, OpRemUn:
		if y == 0 {
			return 0, false
		}
		return x % y, false
	case OpAnd:
		return x & y, false
	case OpOr:
		return x | y, false
	case OpXor:
		return x ^ y, false
	case OpShl:
		return x << (y & 63), false
	case OpShr, OpShrUn:
		return x >> (y & 63), false
	}
	return 0, false
}

func binF32(op Opcode, x, y float32) float32 {
	switch op {
	case OpAdd, OpAddOvf, OpAddOvfUn:
		return x + y
	case OpSub, OpSubOvf, OpSubOvfUn:
		return x - y
	case OpMul, OpMulOvf, OpMulOvfUn:
		return x * y
	case OpDiv, OpDivUn:
		return x / y
	case OpRem, OpRemUn:
		return float32(math.Mod(float64(x), float64(y)))
	}
	return 0
}

func binF64(op Opcode, x, y float64) float64 {
	switch op {
	case OpAdd, OpAddOvf, OpAddOvfUn:
		return x + y
	case OpSub, OpSubOvf, OpSubOvfUn:
		return x - y
	case OpMul, OpMulOvf, OpMulOvfUn:
		return x * y
	case OpDiv, OpDivUn:
		return x / y
	case OpRem, OpRemUn:
		return math.Mod(x, y)
	}
	return 0
}

// execUnaryArith implements neg and not.
func (ip *Interpreter) execUnaryArith(cur *Frame, op Opcode) error {
	a := cur.Operand.Pop()
	switch a.Kind.Base() {
	case slot.Int32:
		if op == OpNeg {
			cur.Operand.Push(slot.Int32Slot(-a.I32()))
		} else {
			cur.Operand.Push(slot.Int32Slot(^a.I32()))
		}
	case slot.Uint32:
		if op == OpNeg {
			cur.Operand.Push(slot.Uint32Slot(-a.U32()))
		} else {
			cur.Operand.Push(slot.Uint32Slot(^a.U32()))
		}
	case slot.Int64:
		if op == OpNeg {
			cur.Operand.Push(slot.Int64Slot(-a.I64()))
		} else {
			cur.Operand.Push(slot.Int64Slot(^a.I64()))
		}
	case slot.Uint64:
		if op == OpNeg {
			cur.Operand.Push(slot.Uint64Slot(-a.U64()))
		} else {
			cur.Operand.Push(slot.Uint64Slot(^a.U64()))
		}
	case slot.Float:
		cur.Operand.Push(slot.FloatSlot(-a.F32()))
	case slot.Double:
		cur.Operand.Push(slot.DoubleSlot(-a.F64()))
	default:
		return exmachine.New(exmachine.InvalidOperation, 0, "unary arithmetic on non-numeric kind")
	}
	return nil
}

// execCompare implements ceq, cgt, cgt.un, clt, clt.un, pushing a Boolean
// result per spec.md §4.7.
func (ip *Interpreter) execCompare(cur *Frame, op Opcode) error {
	b := cur.Operand.Pop()
	a := cur.Operand.Pop()
	cur.Operand.Push(slot.BoolSlot(compareSlots(op, a, b)))
	return nil
}

func compareSlots(op Opcode, a, b slot.Slot) bool {
	switch a.Kind.Base() {
	case slot.Int32:
		return cmpOrdered(op, a.I32(), b.I32())
	case slot.Uint32:
		return cmpOrdered(op, a.U32(), b.U32())
	case slot.Int64:
		return cmpOrdered(op, a.I64(), b.I64())
	case slot.Uint64:
		return cmpOrdered(op, a.U64(), b.U64())
	case slot.Float:
		return cmpOrdered(op, a.F32(), b.F32())
	case slot.Double:
		return cmpOrdered(op, a.F64(), b.F64())
	default:
		switch op {
		case OpCeq:
			return a.Payload == b.Payload
		default:
			return false
		}
	}
}

type ordered interface {
	~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

func cmpOrdered[T ordered](op Opcode, a, b T) bool {
	switch op {
	case OpCeq:
		return a == b
	case OpCgt, OpCgtUn:
		return a > b
	case OpClt, OpCltUn:
		return a < b
	}
	return false
}

// evalBranchCond implements the long/short conditional branch family:
// beq, bge, bgt, ble, blt, bne.un.
func (ip *Interpreter) evalBranchCond(cur *Frame, op Opcode) (bool, error) {
	b := cur.Operand.Pop()
	a := cur.Operand.Pop()
	switch a.Kind.Base() {
	case slot.Int32:
		return branchCond(op, a.I32(), b.I32()), nil
	case slot.Uint32:
		return branchCond(op, a.U32(), b.U32()), nil
	case slot.Int64:
		return branchCond(op, a.I64(), b.I64()), nil
	case slot.Uint64:
		return branchCond(op, a.U64(), b.U64()), nil
	case slot.Float:
		return branchCond(op, a.F32(), b.F32()), nil
	case slot.Double:
		return branchCond(op, a.F64(), b.F64()), nil
	default:
		if op == OpBeq {
			return a.Payload == b.Payload, nil
		}
		if op == OpBneUn {
			return a.Payload != b.Payload, nil
		}
		return false, exmachine.New(exmachine.InvalidOperation, 0, "ordered branch on non-numeric kind")
	}
}

func branchCond[T ordered](op Opcode, a, b T) bool {
	switch op {
	case OpBeq:
		return a == b
	case OpBneUn:
		return a != b
	case OpBge:
		return a >= b
	case OpBgt:
		return a > b
	case OpBle:
		return a <= b
	case OpBlt:
		return a < b
	}
	return false
}
