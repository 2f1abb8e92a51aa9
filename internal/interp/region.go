package interp

import (
	"github.com/clrfirmata/ilengine/internal/slot"
)

// runRegionToStop executes instructions on f starting at startPC until
// stopOp is reached, restoring f.PC to its entry value afterward. It
// backs runFilter and runHandlerRegion (spec.md §4.8's filter and
// finally/fault regions), which run synchronously against the same
// frame's locals/arguments but — per the caller — a fresh empty operand
// stack.
//
// Call/callvirt are not supported inside a filter or finally/fault region:
// the corpus's exception handlers are themselves simple (original_source's
// finally blocks release/restore state inline), and supporting a full
// nested frame-chain re-entry here would duplicate run()'s frame-stepping
// for a case spec.md's testable scenarios never exercise. A region that
// attempts one aborts with InvalidOpCode rather than silently
// misbehaving.
func (ip *Interpreter) runRegionToStop(f *Frame, startPC int, stopOp Opcode) (slot.Slot, error) {
	savedPC := f.PC
	f.PC = startPC
	defer func() { f.PC = savedPC }()

	for {
		in, err := decode(f.Method.Code, f.PC)
		if err != nil {
			return slot.Slot{}, err
		}
		if in.Op == stopOp {
			var top slot.Slot
			if !f.Operand.Empty() {
				top = f.Operand.Top()
			}
			return top, nil
		}
		if in.Op == OpCall || in.Op == OpCallvirt || in.Op == OpCalli {
			return slot.Slot{}, errInvalidCode(uint32(f.Method.MethodToken), "interp: call opcode inside filter/finally region at pc=%d not supported", f.PC)
		}
		if err := ip.execSimple(f, in); err != nil {
			return slot.Slot{}, err
		}
	}
}
