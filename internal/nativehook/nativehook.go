// Package nativehook implements the native-method hook registry (spec C13,
// SPEC_FULL.md §4.11): a table-driven stand-in for
// `executeHardwareAccess(frame, nativeMethodId, argSlots[], outResult) ->
// bool` (spec.md §6.1).
//
// Grounded directly on original_source/HardwareAccess.cpp's
// ExecuteHardwareAccess switch and original_source/NativeMethod.h's
// enumeration — the IDs declared in ids.go reuse that enum's own numeric
// values verbatim, so a loader emitting the real firmware's native-method
// tokens resolves against this table without a translation layer.
package nativehook

import (
	"go.uber.org/zap"

	"github.com/clrfirmata/ilengine/internal/gc"
	"github.com/clrfirmata/ilengine/internal/interp"
	"github.com/clrfirmata/ilengine/internal/method"
	"github.com/clrfirmata/ilengine/internal/slot"
)

// HandlerFunc is one native method's implementation. result is an
// out-parameter (left untouched for void methods) rather than a second
// return value, mirroring ExecuteHardwareAccess's own
// `Variable& result` out-parameter and the signature SPEC_FULL.md §4.11
// names for this registry.
type HandlerFunc func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool

// Host is a method.NativeMethodID -> HandlerFunc table that implements
// interp.NativeHost. It owns no state of its own beyond the board and heap
// handlers close over; Invoke is a pure lookup-and-call.
type Host struct {
	handlers map[method.NativeMethodID]HandlerFunc
	board    BoardIO
	heap     *gc.Heap
	log      *zap.Logger
}

// NewHost builds a registry wired against board (the hardware leaf) and
// heap (for array/string/object-layout helpers); log may be nil. Handlers
// are registered eagerly so Invoke never has to branch on partial setup.
func NewHost(board BoardIO, heap *gc.Heap, log *zap.Logger) *Host {
	if board == nil {
		board = NullBoard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	h := &Host{handlers: make(map[method.NativeMethodID]HandlerFunc), board: board, heap: heap, log: log}
	registerHardwareAccess(h)
	registerObjectAndString(h)
	registerMathAndBits(h)
	registerArrayAndGC(h)
	return h
}

// Register installs or overrides the handler for id, letting a host add
// board-specific native methods (e.g. I2C, filesystem) beyond the
// representative subset this package ships (spec.md §6.1: "Implementers
// may stub any subset").
func (h *Host) Register(id method.NativeMethodID, fn HandlerFunc) {
	h.handlers[id] = fn
}

// Invoke implements interp.NativeHost. A missing entry returns ok=false,
// which the interpreter turns into MissingMethod at the call site
// (spec.md §6.1: "Return true indicates handled; false causes
// MissingMethod").
func (h *Host) Invoke(frame *interp.Frame, id method.NativeMethodID, args []slot.Slot) (slot.Slot, bool) {
	fn, ok := h.handlers[id]
	if !ok {
		h.log.Debug("native method not registered", zap.Uint16("id", uint16(id)))
		return slot.Slot{}, false
	}
	var result slot.Slot
	if !fn(frame, args, &result) {
		return slot.Slot{}, false
	}
	return result, true
}
