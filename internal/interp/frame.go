package interp

import (
	"github.com/clrfirmata/ilengine/internal/method"
	"github.com/clrfirmata/ilengine/internal/slot"
	"github.com/clrfirmata/ilengine/internal/vstack"
)

// guardWord is the constant bracketing every frame (spec.md §3.5: "Guard
// words bracket the frame to catch stack corruption").
const guardWord uint64 = 0xFEEDFACE

// Frame is one execution frame (spec.md §3.5): a method, its program
// counter, its operand stack, locals, arguments, a local-storage list for
// value types too large for a single slot, and the calling frame.
//
// Grounded on the teacher's per-call frame region
// (std/compiler/backend_vm.go:850-902: a dedicated, guard-checked stack
// region sized from Locals/Params) generalized from raw words to slots and
// from a single flat region to the four named lists spec.md §3.5 wants
// kept separately (so GC root-scanning and ldarg/ldloc/ldflda can each
// address the right one without re-deriving offsets).
type Frame struct {
	Method       *method.Descriptor
	PC           int
	Operand      *vstack.Stack
	Locals       []slot.Slot
	Arguments    []slot.Slot
	LocalStorage []slot.Slot // spilled large value types addressed by ldloca/ldarga

	Next *Frame

	guardHead uint64
	guardTail uint64
}

// NewFrame allocates a frame for m, with arguments already populated by the
// caller (call/callvirt dispatch pops them off the caller's stack).
func NewFrame(m *method.Descriptor, args []slot.Slot, next *Frame) *Frame {
	locals := make([]slot.Slot, len(m.Locals))
	for i, l := range m.Locals {
		locals[i] = slot.Decl(l.Decl.Kind, l.Decl.Size)
	}
	return &Frame{
		Method:    m,
		Operand:   vstack.New(m.MaxStack),
		Locals:    locals,
		Arguments: args,
		Next:      next,
		guardHead: guardWord,
		guardTail: guardWord,
	}
}

// CheckGuards panics with the teacher's "ICE:" idiom if this frame's guard
// words have been overwritten — an interpreter bug, never a guest fault.
func (f *Frame) CheckGuards() {
	if f.guardHead != guardWord || f.guardTail != guardWord {
		panic("ICE: frame guard word corrupted")
	}
}

// OperandStackSlots, LocalSlots, ArgumentSlots, and LocalStorageSlots
// implement gc.FrameRoots.
func (f *Frame) OperandStackSlots() []slot.Slot { return f.Operand.Snapshot() }
func (f *Frame) LocalSlots() []slot.Slot        { return f.Locals }
func (f *Frame) ArgumentSlots() []slot.Slot     { return f.Arguments }
func (f *Frame) LocalStorageSlots() []slot.Slot { return f.LocalStorage }

// Chain walks this frame and every caller above it, innermost first —
// the order the exception machine's handler search and the GC's frame
// root scan both want (spec.md §4.5 step 3, §4.8 step 2).
func (f *Frame) Chain() []*Frame {
	var out []*Frame
	for cur := f; cur != nil; cur = cur.Next {
		out = append(out, cur)
	}
	return out
}
