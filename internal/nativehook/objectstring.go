package nativehook

import (
	"github.com/clrfirmata/ilengine/internal/interp"
	"github.com/clrfirmata/ilengine/internal/slot"
)

// registerObjectAndString implements the System.Object/System.String
// identity and character-access subset of original_source/NativeMethod.h.
// Strings are arrays of 2-byte units (gc.Heap's array layout, spec.md
// §3.6), so every string operation here is expressed in terms of the same
// gc.Heap array helpers the interpreter's array opcodes use.
func registerObjectAndString(h *Host) {
	h.handlers[ObjectEquals] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.BoolSlot(args[0].Ptr() == args[1].Ptr())
		return true
	}

	h.handlers[ObjectReferenceEquals] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.BoolSlot(args[0].Ptr() == args[1].Ptr())
		return true
	}

	h.handlers[ObjectGetHashCode] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.Int32Slot(int32(args[0].Ptr()))
		return true
	}

	h.handlers[StringGetElem] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		addr := int(args[0].Ptr())
		idx := int(args[1].I32())
		if idx < 0 || idx >= h.heap.ArrayLen(addr) {
			return false
		}
		u := h.heap.ReadU16(h.heap.ArrayPayloadAddr(addr) + idx*2)
		*result = slot.Int32Slot(int32(u))
		return true
	}

	h.handlers[StringSetElem] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		addr := int(args[0].Ptr())
		idx := int(args[1].I32())
		if idx < 0 || idx >= h.heap.ArrayLen(addr) {
			return false
		}
		h.heap.WriteU16(h.heap.ArrayPayloadAddr(addr)+idx*2, uint16(args[2].I32()))
		return true
	}

	h.handlers[StringGetHashCode] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.Int32Slot(int32(stringHash(h, int(args[0].Ptr()))))
		return true
	}

	h.handlers[StringEquals] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.BoolSlot(stringsEqual(h, int(args[0].Ptr()), int(args[1].Ptr())))
		return true
	}

	h.handlers[StringEqualsStatic] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.BoolSlot(stringsEqual(h, int(args[0].Ptr()), int(args[1].Ptr())))
		return true
	}
}

func stringUnits(h *Host, addr int) []uint16 {
	n := h.heap.ArrayLen(addr)
	base := h.heap.ArrayPayloadAddr(addr)
	out := make([]uint16, n)
	for i := range out {
		out[i] = h.heap.ReadU16(base + i*2)
	}
	return out
}

func stringHash(h *Host, addr int) uint32 {
	var hash uint32 = 5381
	for _, u := range stringUnits(h, addr) {
		hash = hash*33 + uint32(u)
	}
	return hash
}

func stringsEqual(h *Host, a, b int) bool {
	if a == b {
		return true
	}
	au, bu := stringUnits(h, a), stringUnits(h, b)
	if len(au) != len(bu) {
		return false
	}
	for i := range au {
		if au[i] != bu[i] {
			return false
		}
	}
	return true
}
