package interp

import (
	"github.com/clrfirmata/ilengine/internal/exmachine"
	"github.com/clrfirmata/ilengine/internal/slot"
)

// execSimple dispatches every opcode family except call/callvirt/calli,
// ret, throw/rethrow, leave, and endfilter/endfinally (handled directly in
// step, since those touch the frame chain or the exception machine
// instead of just this frame's stack/locals). execSimple owns cur.PC:
// a normal instruction advances it past itself; a taken branch sets it to
// the target directly.
func (ip *Interpreter) execSimple(cur *Frame, in inst) error {
	switch in.Op {
	case OpLdcI4:
		cur.Operand.Push(slot.Int32Slot(in.I32))
	case OpLdcI8:
		cur.Operand.Push(slot.Int64Slot(in.I64))
	case OpLdcR4:
		cur.Operand.Push(slot.New(slot.Float, uint64(uint32(in.I32)), 4))
	case OpLdcR8:
		cur.Operand.Push(slot.New(slot.Double, uint64(in.I64), 8))

	case OpLdloc:
		cur.Operand.Push(cur.Locals[in.I32])
	case OpStloc:
		v := cur.Operand.Pop()
		if err := assignInto(&cur.Locals[in.I32], v); err != nil {
			return err
		}
	case OpLdloca:
		cur.Operand.Push(slot.New(slot.AddressOfVariable, uint64(in.I32), slot.PointerSize))

	case OpLdarg:
		cur.Operand.Push(cur.Arguments[in.I32])
	case OpStarg:
		v := cur.Operand.Pop()
		if err := assignInto(&cur.Arguments[in.I32], v); err != nil {
			return err
		}
	case OpLdarga:
		cur.Operand.Push(slot.New(slot.AddressOfVariable, uint64(in.I32), slot.PointerSize))

	case OpLdfld, OpLdflda, OpLdind, OpLdobj:
		return ip.execLoadField(cur, in)
	case OpStfld, OpStind, OpStobj:
		return ip.execStoreField(cur, in)

	case OpLdsfld:
		cur.Operand.Push(ip.Statics[in.Tok])
	case OpStsfld:
		v := cur.Operand.Pop()
		ip.Statics[in.Tok] = v

	case OpAdd, OpAddOvf, OpAddOvfUn, OpSub, OpSubOvf, OpSubOvfUn,
		OpMul, OpMulOvf, OpMulOvfUn, OpDiv, OpDivUn, OpRem, OpRemUn,
		OpAnd, OpOr, OpXor, OpShl, OpShr, OpShrUn:
		return ip.execBinaryArith(cur, in.Op)
	case OpNeg, OpNot:
		return ip.execUnaryArith(cur, in.Op)

	case OpConvI1, OpConvU1, OpConvI2, OpConvU2, OpConvI4, OpConvU4,
		OpConvI8, OpConvU8, OpConvR4, OpConvR8,
		OpConvOvfI1, OpConvOvfU1, OpConvOvfI2, OpConvOvfU2,
		OpConvOvfI4, OpConvOvfU4, OpConvOvfI8, OpConvOvfU8:
		return ip.execConv(cur, in.Op)

	case OpCeq, OpCgt, OpCgtUn, OpClt, OpCltUn:
		return ip.execCompare(cur, in.Op)

	case OpBr:
		cur.PC = int(in.I32)
		return nil
	case OpBrtrue:
		v := cur.Operand.Pop()
		if v.Payload != 0 {
			cur.PC = int(in.I32)
			return nil
		}
	case OpBrfalse:
		v := cur.Operand.Pop()
		if v.Payload == 0 {
			cur.PC = int(in.I32)
			return nil
		}
	case OpBeq, OpBge, OpBgt, OpBle, OpBlt, OpBneUn:
		taken, err := ip.evalBranchCond(cur, in.Op)
		if err != nil {
			return err
		}
		if taken {
			cur.PC = int(in.I32)
			return nil
		}
	case OpSwitch:
		v := cur.Operand.Pop()
		idx := int(v.U32())
		if idx >= 0 && idx < len(in.Targets) {
			cur.PC = int(in.Targets[idx])
			return nil
		}

	case OpNewarr, OpInitobj, OpLdlen, OpLdelem, OpStelem,
		OpLdelema, OpBox, OpUnbox, OpUnboxAny, OpCastclass, OpIsinst,
		OpLdtoken, OpLdftn, OpLdvirtftn, OpLdstr, OpSizeof:
		return ip.execObjectModel(cur, in)

	default:
		return errInvalidCode(uint32(in.Op), "interp: unhandled opcode %s at pc=%d", in.Op, cur.PC)
	}

	cur.PC += in.Width
	return nil
}

// assignInto implements invariant I1 (slot.AssignFrom): a destination
// local/argument slot's size must match the source unless the
// destination is a declaration slot.
func assignInto(dst *slot.Slot, src slot.Slot) error {
	if err := dst.AssignFrom(src); err != nil {
		return exmachine.New(exmachine.InvalidOperation, 0, err.Error())
	}
	return nil
}
