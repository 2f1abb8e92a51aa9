package nativehook

import (
	"github.com/clrfirmata/ilengine/internal/interp"
	"github.com/clrfirmata/ilengine/internal/slot"
)

// registerArrayAndGC implements Array.GetLength and the GC diagnostic
// methods (GcGetTotalMemory/GcGetTotalAllocatedBytes/
// GcTotalAvailableMemoryBytes) against gc.Heap's own bookkeeping.
//
// GcCollect is deliberately left unregistered: a real collection pass
// needs the live frame chain and static-vector roots gc.Roots requires,
// which this package has no access to (HandlerFunc receives only the
// callee's own frame, not the interpreter's Statics map or the engine's
// root builder) — that wiring belongs to internal/engine, which owns
// both the interpreter and the heap and can register a GcCollect handler
// itself once constructed.
func registerArrayAndGC(h *Host) {
	h.handlers[ArrayGetLength] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.Int32Slot(int32(h.heap.ArrayLen(int(args[0].Ptr()))))
		return true
	}

	h.handlers[GcGetTotalMemory] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.Int64Slot(h.heap.MemInUse())
		return true
	}

	h.handlers[GcGetTotalAllocatedBytes] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.Int64Slot(h.heap.MaxUsed())
		return true
	}

	h.handlers[GcTotalAvailableMemoryBytes] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.Int64Slot(int64(len(h.heap.Memory)))
		return true
	}
}
