package interp

import (
	"github.com/clrfirmata/ilengine/internal/exmachine"
	"github.com/clrfirmata/ilengine/internal/method"
	"github.com/clrfirmata/ilengine/internal/slot"
	"github.com/clrfirmata/ilengine/internal/token"
	"github.com/clrfirmata/ilengine/internal/vstack"
)

// materializeException builds the ManagedException for a throw (the
// object just pushed by the guest) or, for rethrow, recovers the
// currently-propagating one — this engine keeps it on the frame that
// last caught it rather than a separate engine-wide slot, so rethrow
// simply re-reads the exception object pushed by the enclosing handler.
func (ip *Interpreter) materializeException(cur *Frame, isRethrow bool) (*exmachine.ManagedException, error) {
	if isRethrow {
		v := cur.Operand.Top()
		addr := int(v.Payload)
		return &exmachine.ManagedException{ClassToken: ip.Heap.ClassOf(addr), ObjectAddr: uint32(addr)}, nil
	}
	v := cur.Operand.Pop()
	addr := int(v.Payload)
	if addr == 0 {
		return exmachine.New(exmachine.NullReference, token.Invalid, "throw: null exception object"), nil
	}
	return &exmachine.ManagedException{ClassToken: ip.Heap.ClassOf(addr), ObjectAddr: uint32(addr)}, nil
}

// assignable reports whether a thrown class is catchable by a handler
// declared for target — assignable if target is thrown's class or any
// ancestor, or an interface thrown implements (spec.md §4.8 Clause match:
// "target class token is assignable from the exception's class").
func (ip *Interpreter) assignable(thrown, target token.Token) bool {
	cls, ok := ip.Classes.GetByKey(thrown)
	if !ok {
		return thrown == target
	}
	for _, c := range ip.Classes.Resolve(cls) {
		if c.ClassToken == target {
			return true
		}
		if c.ImplementsInterface(target) {
			return true
		}
	}
	return false
}

// unwind implements spec.md §4.8's two-pass throw path, starting the
// first-pass handler search at (pc, frame) — either where throw/rethrow
// executed or where a leave's overlapping finally finished propagating a
// fault.
func (ip *Interpreter) unwind(frame *Frame, pc int, exc *exmachine.ManagedException) (*Frame, ExecResult, bool) {
	for f := frame; f != nil; f = f.Next {
		searchPC := pc
		if f != frame {
			searchPC = f.PC
		}
		clause, found := exmachine.FindHandler(f.Method.Clauses, searchPC, exc, ip.assignable, func(filterTok token.Token) bool {
			return ip.runFilter(f, filterTok, exc)
		})
		if !found {
			continue
		}

		// Run finally/fault clauses for every frame above f (fully
		// unwound) and, within f itself, those between searchPC and the
		// matched clause.
		for inner := frame; inner != f; inner = inner.Next {
			for _, c := range exmachine.UnwindClauses(inner.Method.Clauses, inner.PC, method.ExceptionClause{TryOffset: -1}, true) {
				if err := ip.runHandlerRegion(inner, c.HandlerOffset, c.HandlerLength); err != nil {
					return nil, abortResult(err), true
				}
			}
		}
		for _, c := range exmachine.UnwindClauses(f.Method.Clauses, searchPC, clause, true) {
			if err := ip.runHandlerRegion(f, c.HandlerOffset, c.HandlerLength); err != nil {
				return nil, abortResult(err), true
			}
		}

		f.Operand.Clear()
		f.Operand.Push(slot.ObjectSlot(exc.ObjectAddr))
		f.PC = clause.HandlerOffset
		return f, ExecResult{}, false
	}
	return nil, ExecResult{Status: UnhandledException, Exception: exc}, true
}

// execLeave implements spec.md §4.8's last line: "`leave` from inside a
// try triggers execution of any overlapping finallys in order before
// transferring to the target PC."
func (ip *Interpreter) execLeave(cur *Frame, in inst) (*Frame, ExecResult, bool) {
	target := int(in.I32)
	for _, c := range exmachine.LeaveClauses(cur.Method.Clauses, cur.PC, target) {
		if err := ip.runHandlerRegion(cur, c.HandlerOffset, c.HandlerLength); err != nil {
			return nil, abortResult(err), true
		}
	}
	cur.PC = target
	return cur, ExecResult{}, false
}

// runFilter executes a Filter clause's filter region synchronously,
// reporting whether it took the exception (spec.md §4.8: "run the filter
// code ... take if it returns non-zero"). filterTok's payload doubles as
// the filter region's starting offset within the same method's code.
func (ip *Interpreter) runFilter(f *Frame, filterTok token.Token, exc *exmachine.ManagedException) bool {
	saved := f.Operand
	f.Operand = vstack.New(8)
	f.Operand.Push(slot.ObjectSlot(exc.ObjectAddr))
	result, err := ip.runRegionToStop(f, int(filterTok), OpEndfilter)
	f.Operand = saved
	if err != nil {
		return false
	}
	return result.Payload != 0
}

// runHandlerRegion executes a Finally/Fault region to completion (spec.md
// §4.8: "execute the finally region with an empty operand stack;
// `endfinally` returns control to the next outer unwind step").
func (ip *Interpreter) runHandlerRegion(f *Frame, offset, length int) error {
	saved := f.Operand
	f.Operand = vstack.New(8)
	_, err := ip.runRegionToStop(f, offset, OpEndfinally)
	f.Operand = saved
	return err
}
