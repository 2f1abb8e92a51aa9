package interp

import (
	"github.com/clrfirmata/ilengine/internal/class"
	"github.com/clrfirmata/ilengine/internal/exmachine"
	"github.com/clrfirmata/ilengine/internal/method"
	"github.com/clrfirmata/ilengine/internal/slot"
	"github.com/clrfirmata/ilengine/internal/token"
)

// dispatchCall implements spec.md §4.7 "Call dispatch" for call, callvirt,
// and calli. All three resolve to a concrete method.Descriptor and build a
// new callee frame; they differ only in how that descriptor is found.
func (ip *Interpreter) dispatchCall(cur *Frame, in inst) (*Frame, error) {
	resolved := cur.Method.RemapCallSite(in.Tok)

	// The call-site token always names a method.Descriptor stub in the
	// method table — for `call`/`calli` that stub IS the target; for
	// `callvirt` it is merely the virtual declaration, sharing the real
	// target's signature (every override of a virtual slot shares its
	// arity), which is all dispatchCall needs from it before the actual
	// override search below.
	decl, ok := ip.Methods.GetByKey(resolved)
	if !ok {
		return nil, exmachine.New(exmachine.MissingMethod, resolved, "call: method not found")
	}

	var target *method.Descriptor
	args := ip.popArgs(cur, decl.NumArgs)

	switch in.Op {
	case OpCall, OpCalli:
		target = decl

	case OpCallvirt:
		if len(args) == 0 || args[0].Payload == 0 {
			return nil, exmachine.New(exmachine.NullReference, resolved, "callvirt: null receiver")
		}
		thisAddr := int(args[0].Payload)
		classTok := ip.Heap.ClassOf(thisAddr)
		cls, ok := ip.Classes.GetByKey(classTok)
		if !ok {
			return nil, exmachine.New(exmachine.ClassNotFound, classTok, "callvirt: receiver class not found")
		}
		m, ok := ip.findVirtualTarget(cls, resolved)
		if !ok {
			return nil, exmachine.New(exmachine.MissingMethod, resolved, "callvirt: no override declares call-site token")
		}
		target = m
	}

	if target.IsNative {
		result, ok := ip.invokeNative(cur, target, args)
		if !ok {
			return nil, exmachine.New(exmachine.MissingMethod, target.MethodToken, "native method unhandled")
		}
		if !target.Flags.Has(method.FlagVoid) {
			cur.Operand.Push(result)
		}
		return cur, nil
	}

	return NewFrame(target, args, cur), nil
}

// popArgs pops n arguments off cur's operand stack, reversing them so
// argument 0 ends up leftmost (spec.md §4.7: "pop N arguments ... in
// reverse order so argument 0 is leftmost").
func (ip *Interpreter) popArgs(cur *Frame, n int) []slot.Slot {
	args := make([]slot.Slot, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = cur.Operand.Pop()
	}
	return args
}

// findVirtualTarget walks class -> parent -> ... (spec.md §4.7 callvirt)
// searching each class's method list for one whose declarationTokens
// includes the call-site token. Interface calls follow the same rule
// against the declaring interface token (an implementing method's
// DeclarationTokens includes the interface method's token per the
// loader's Interfaces wiring), so no separate interface-dispatch path is
// needed.
func (ip *Interpreter) findVirtualTarget(cls *class.Descriptor, callSite token.Token) (*method.Descriptor, bool) {
	for _, c := range ip.Classes.Resolve(cls) {
		for _, m := range c.Methods {
			if m.Declares(callSite) {
				return m, true
			}
		}
	}
	return nil, false
}

// dispatchNewobj implements spec.md §4.7 "newobj": allocate storage for
// in.Tok's class, then run its constructor against the new address as an
// implicit `this`. The object's address is pushed onto cur's operand stack
// up front — before cur is set aside as the constructor frame's Next — so
// it is already waiting there by the time the constructor's ret resumes
// cur, exactly where a non-void call's return value would land; ctors are
// declared void (spec.md §4.7 "Special methods"), so execRet's normal
// void/non-void branch pushes nothing of its own and never disturbs it.
func (ip *Interpreter) dispatchNewobj(cur *Frame, in inst) (*Frame, error) {
	cls, ok := ip.Classes.GetByKey(in.Tok)
	if !ok {
		return nil, exmachine.New(exmachine.ClassNotFound, in.Tok, "newobj: class not found")
	}

	addr, err := ip.Heap.NewObject(in.Tok, cls.DynamicSize)
	if err != nil {
		return nil, exmachine.New(exmachine.OutOfMemory, in.Tok, err.Error())
	}

	ctor := findCtor(cls)
	if ctor == nil {
		cur.Operand.Push(slot.ObjectSlot(uint32(addr)))
		return cur, nil
	}

	args := ip.popArgs(cur, ctor.NumArgs-1)
	thisArg := slot.ObjectSlot(uint32(addr))
	allArgs := append([]slot.Slot{thisArg}, args...)

	if ctor.IsNative {
		if _, ok := ip.invokeNative(cur, ctor, allArgs); !ok {
			return nil, exmachine.New(exmachine.MissingMethod, ctor.MethodToken, "native constructor unhandled")
		}
		cur.Operand.Push(thisArg)
		return cur, nil
	}

	cur.Operand.Push(thisArg)
	return NewFrame(ctor, allArgs, cur), nil
}

// findCtor returns cls's own constructor method, if it declares one
// (spec.md §4.7: newobj runs the exact class named, not an inherited
// ctor — a derived class without one is assumed default-constructible).
func findCtor(cls *class.Descriptor) *method.Descriptor {
	for _, m := range cls.Methods {
		if m.Flags.Has(method.FlagCtor) {
			return m
		}
	}
	return nil
}

// execRet implements spec.md §4.7 "On ret": pop the current frame; if the
// method is non-void push the return slot to the caller; if this was the
// root frame the task completes with that slot as its result.
func (ip *Interpreter) execRet(cur *Frame) (*Frame, ExecResult, bool) {
	var retVal slot.Slot
	hasResult := !cur.Method.Flags.Has(method.FlagVoid)
	if hasResult {
		retVal = cur.Operand.Pop()
	}
	if cur.Next == nil {
		return nil, ExecResult{Status: Completed, Result: retVal, HasResult: hasResult}, true
	}
	if hasResult {
		cur.Next.Operand.Push(retVal)
	}
	return cur.Next, ExecResult{}, false
}
