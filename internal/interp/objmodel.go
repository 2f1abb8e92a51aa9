package interp

import (
	"encoding/binary"

	"github.com/clrfirmata/ilengine/internal/exmachine"
	"github.com/clrfirmata/ilengine/internal/gc"
	"github.com/clrfirmata/ilengine/internal/slot"
	"github.com/clrfirmata/ilengine/internal/token"
)

// Field-access operands pack a slot.Kind into the token's top byte (the
// same byte token.Token.Kind() already reads off every other token kind)
// and a byte offset into the low 24 bits — this engine's own compact
// FieldRef encoding (see opcode.go's header comment on why this package
// invents its own operand encodings rather than guessing at
// original_source's undocumented wire format).
func decodeFieldRef(tok token.Token) (kind slot.Kind, offset int) {
	return slot.Kind(tok.Kind()), int(uint32(tok) & 0x00FFFFFF)
}

func (ip *Interpreter) readSlotAt(addr int, kind slot.Kind) slot.Slot {
	size := slot.New(kind, 0, 0).FieldSize()
	if size == 8 {
		v := binary.LittleEndian.Uint64(ip.Heap.Memory[addr : addr+8])
		return slot.New(kind, v, 8)
	}
	v := ip.Heap.ReadU32(addr)
	return slot.New(kind, uint64(v), 4)
}

func (ip *Interpreter) writeSlotAt(addr int, v slot.Slot) {
	if v.FieldSize() == 8 {
		binary.LittleEndian.PutUint64(ip.Heap.Memory[addr:addr+8], v.Payload)
		return
	}
	ip.Heap.WriteU32(addr, uint32(v.Payload))
}

// execLoadField implements ldfld/ldflda/ldind/ldobj: all read through a
// heap address, differing only in whether the address names a field
// within an object (ldfld/ldflda: addr = objAddr + HeaderSize + offset,
// matching gc/mark.go's markObjectFields, which scans fields from that
// same base) or is already the value's address (ldind/ldobj). ldflda
// pushes the computed address itself rather than dereferencing it.
func (ip *Interpreter) execLoadField(cur *Frame, in inst) error {
	kind, offset := decodeFieldRef(in.Tok)
	switch in.Op {
	case OpLdfld:
		obj := cur.Operand.Pop()
		if obj.Payload == 0 {
			return exmachine.New(exmachine.NullReference, 0, "ldfld: null reference")
		}
		addr := int(obj.Payload) + gc.HeaderSize + offset
		cur.Operand.Push(ip.readSlotAt(addr, kind))
	case OpLdflda:
		obj := cur.Operand.Pop()
		if obj.Payload == 0 {
			return exmachine.New(exmachine.NullReference, 0, "ldflda: null reference")
		}
		addr := int(obj.Payload) + gc.HeaderSize + offset
		cur.Operand.Push(slot.New(slot.AddressOfVariable, uint64(addr), slot.PointerSize))
	case OpLdind, OpLdobj:
		addr := cur.Operand.Pop()
		cur.Operand.Push(ip.readSlotAt(int(addr.Payload), kind))
	}
	cur.PC += in.Width
	return nil
}

// execStoreField implements stfld/stind/stobj.
func (ip *Interpreter) execStoreField(cur *Frame, in inst) error {
	kind, offset := decodeFieldRef(in.Tok)
	switch in.Op {
	case OpStfld:
		v := cur.Operand.Pop()
		obj := cur.Operand.Pop()
		if obj.Payload == 0 {
			return exmachine.New(exmachine.NullReference, 0, "stfld: null reference")
		}
		ip.writeSlotAt(int(obj.Payload)+gc.HeaderSize+offset, v)
	case OpStind, OpStobj:
		v := cur.Operand.Pop()
		addr := cur.Operand.Pop()
		ip.writeSlotAt(int(addr.Payload), v)
	}
	_ = kind
	cur.PC += in.Width
	return nil
}

// execObjectModel implements newobj, newarr, initobj, ldlen, ldelem,
// stelem, ldelema, box, unbox, unbox.any, castclass, isinst, ldtoken,
// ldftn, ldvirtftn, ldstr, sizeof.
func (ip *Interpreter) execObjectModel(cur *Frame, in inst) error {
	switch in.Op {
	case OpNewarr:
		n := cur.Operand.Pop()
		count := int(n.U32())
		if count < 0 {
			return exmachine.New(exmachine.IndexOutOfRange, in.Tok, "newarr: negative length")
		}
		var addr int
		var err error
		if elemCls, ok := ip.Classes.GetByKey(in.Tok); ok && elemCls.IsValueType {
			addr, err = ip.Heap.NewValueArray(ip.Special.ArrayToken, in.Tok, elemCls.DynamicSize, count)
		} else {
			addr, err = ip.Heap.NewReferenceArray(ip.Special.ArrayToken, in.Tok, count)
		}
		if err != nil {
			return exmachine.New(exmachine.OutOfMemory, in.Tok, err.Error())
		}
		cur.Operand.Push(slot.ObjectSlot(uint32(addr)))

	case OpInitobj:
		addr := cur.Operand.Pop()
		cls, ok := ip.Classes.GetByKey(in.Tok)
		size := 4
		if ok {
			size = cls.DynamicSize
		}
		ip.Heap.Zero(int(addr.Payload), size)

	case OpLdlen:
		addr := cur.Operand.Pop()
		if addr.Payload == 0 {
			return exmachine.New(exmachine.NullReference, 0, "ldlen: null array")
		}
		cur.Operand.Push(slot.Int32Slot(int32(ip.Heap.ArrayLen(int(addr.Payload)))))

	case OpLdelem, OpLdelema:
		kind, _ := decodeFieldRef(in.Tok)
		idx := cur.Operand.Pop()
		arr := cur.Operand.Pop()
		if arr.Payload == 0 {
			return exmachine.New(exmachine.NullReference, 0, "ldelem: null array")
		}
		i := int(idx.I32())
		if i < 0 || i >= ip.Heap.ArrayLen(int(arr.Payload)) {
			return exmachine.New(exmachine.IndexOutOfRange, 0, "array index out of range")
		}
		elemSize := slot.New(kind, 0, 0).FieldSize()
		addr := ip.Heap.ArrayPayloadAddr(int(arr.Payload)) + i*elemSize
		if in.Op == OpLdelema {
			cur.Operand.Push(slot.New(slot.AddressOfVariable, uint64(addr), slot.PointerSize))
		} else {
			cur.Operand.Push(ip.readSlotAt(addr, kind))
		}

	case OpStelem:
		kind, _ := decodeFieldRef(in.Tok)
		v := cur.Operand.Pop()
		idx := cur.Operand.Pop()
		arr := cur.Operand.Pop()
		if arr.Payload == 0 {
			return exmachine.New(exmachine.NullReference, 0, "stelem: null array")
		}
		i := int(idx.I32())
		if i < 0 || i >= ip.Heap.ArrayLen(int(arr.Payload)) {
			return exmachine.New(exmachine.IndexOutOfRange, 0, "array index out of range")
		}
		elemSize := slot.New(kind, 0, 0).FieldSize()
		addr := ip.Heap.ArrayPayloadAddr(int(arr.Payload)) + i*elemSize
		ip.writeSlotAt(addr, v)

	case OpBox:
		v := cur.Operand.Pop()
		cls, ok := ip.Classes.GetByKey(in.Tok)
		size := v.FieldSize()
		if ok {
			size = cls.DynamicSize
		}
		addr, err := ip.Heap.NewObject(in.Tok, size)
		if err != nil {
			return exmachine.New(exmachine.OutOfMemory, in.Tok, err.Error())
		}
		ip.writeSlotAt(addr+gc.HeaderSize, v)
		cur.Operand.Push(slot.ObjectSlot(uint32(addr)))

	case OpUnbox, OpUnboxAny:
		v := cur.Operand.Pop()
		if v.Payload == 0 {
			return exmachine.New(exmachine.NullReference, 0, "unbox: null reference")
		}
		if ip.Heap.ClassOf(int(v.Payload)) != in.Tok {
			return exmachine.New(exmachine.InvalidCast, in.Tok, "unbox: class token mismatch")
		}
		if in.Op == OpUnbox {
			cur.Operand.Push(slot.New(slot.AddressOfVariable, uint64(int(v.Payload)+4), slot.PointerSize))
		} else {
			cur.Operand.Push(ip.readSlotAt(int(v.Payload)+4, slot.Int32))
		}

	case OpCastclass:
		v := cur.Operand.Pop()
		if v.Payload != 0 && !ip.assignable(ip.Heap.ClassOf(int(v.Payload)), in.Tok) {
			return exmachine.New(exmachine.InvalidCast, in.Tok, "castclass: incompatible type")
		}
		cur.Operand.Push(v)

	case OpIsinst:
		v := cur.Operand.Pop()
		if v.Payload != 0 && ip.assignable(ip.Heap.ClassOf(int(v.Payload)), in.Tok) {
			cur.Operand.Push(v)
		} else {
			cur.Operand.Push(slot.NilObject())
		}

	case OpLdtoken:
		cur.Operand.Push(slot.New(slot.RuntimeTypeHandle, uint64(in.Tok), 4))

	case OpLdftn, OpLdvirtftn:
		cur.Operand.Push(slot.New(slot.FunctionPointer, uint64(in.Tok), slot.PointerSize))

	case OpLdstr:
		data, ok := ip.Consts.Get(in.Tok)
		if !ok {
			return exmachine.New(exmachine.ClassNotFound, in.Tok, "ldstr: constant token not found")
		}
		units := make([]uint16, len(data)/2)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(data[i*2:])
		}
		addr, err := ip.Heap.NewString(ip.Special.ArrayToken, units)
		if err != nil {
			return exmachine.New(exmachine.OutOfMemory, in.Tok, err.Error())
		}
		cur.Operand.Push(slot.ObjectSlot(uint32(addr)))

	case OpSizeof:
		cls, ok := ip.Classes.GetByKey(in.Tok)
		size := 4
		if ok {
			size = cls.DynamicSize
		}
		cur.Operand.Push(slot.Int32Slot(int32(size)))
	}
	cur.PC += in.Width
	return nil
}

