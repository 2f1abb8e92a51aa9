package interp

import (
	"github.com/clrfirmata/ilengine/internal/class"
	"github.com/clrfirmata/ilengine/internal/constheap"
	"github.com/clrfirmata/ilengine/internal/engineerr"
	"github.com/clrfirmata/ilengine/internal/exmachine"
	"github.com/clrfirmata/ilengine/internal/gc"
	"github.com/clrfirmata/ilengine/internal/method"
	"github.com/clrfirmata/ilengine/internal/slot"
	"github.com/clrfirmata/ilengine/internal/token"
)

// NativeHost invokes a SpecialMethod's native implementation (spec.md §4.7
// "Special methods", §6.1). Kept as a narrow interface here so this
// package does not depend on internal/nativehook's board-leaf wiring.
type NativeHost interface {
	Invoke(frame *Frame, id method.NativeMethodID, args []slot.Slot) (result slot.Slot, ok bool)
}

// ExecStatus is the outcome of one RunSlice call.
type ExecStatus int

const (
	Running ExecStatus = iota
	Completed
	Aborted
	UnhandledException
)

// ExecResult reports how a slice ended (spec.md §4.7 "Slicing and
// progress", §4.8 step 3 "abort the task with status UnhandledException").
type ExecResult struct {
	Status    ExecStatus
	Result    slot.Slot
	HasResult bool
	Err       error                      // set when Status == Aborted
	Exception *exmachine.ManagedException // set when Status == UnhandledException
}

// Interpreter is the engine's execution core (spec C9), threaded through
// explicitly rather than reached via package state (spec.md §9 design
// notes: "engine-struct-not-globals").
type Interpreter struct {
	Heap    *gc.Heap
	Classes *class.Table
	Methods *method.Table
	Consts  *constheap.Heap
	Natives NativeHost
	Special gc.SpecialTokens

	// Statics holds static-field storage keyed directly by the field's own
	// token (the loader assigns distinct tokens per field the same way it
	// does for methods and classes, so a field token is already a unique
	// key — a simplification over carving a separate static-vector address
	// space).
	Statics map[token.Token]slot.Slot

	// SliceBudget is the per-RunSlice instruction budget K (spec.md §4.7
	// "Slicing and progress": "a small constant").
	SliceBudget int

	budgetLeft int
}

// New returns an interpreter wired against the engine's shared tables.
func New(heap *gc.Heap, classes *class.Table, methods *method.Table, consts *constheap.Heap, natives NativeHost, special gc.SpecialTokens, sliceBudget int) *Interpreter {
	if sliceBudget <= 0 {
		sliceBudget = 256
	}
	return &Interpreter{
		Heap: heap, Classes: classes, Methods: methods, Consts: consts,
		Natives: natives, Special: special, Statics: map[token.Token]slot.Slot{},
		SliceBudget: sliceBudget,
	}
}

// RunSlice executes up to SliceBudget instructions starting at cur,
// returning the frame execution should resume at (nil once the root frame
// has completed or aborted) and how the slice ended.
func (ip *Interpreter) RunSlice(cur *Frame) (*Frame, ExecResult) {
	ip.budgetLeft = ip.SliceBudget
	return ip.run(cur)
}

func (ip *Interpreter) run(cur *Frame) (*Frame, ExecResult) {
	for {
		if cur == nil {
			return nil, ExecResult{Status: Completed}
		}
		if ip.budgetLeft <= 0 {
			return cur, ExecResult{Status: Running}
		}
		cur.CheckGuards()

		in, err := decode(cur.Method.Code, cur.PC)
		if err != nil {
			return nil, abortResult(err)
		}
		ip.budgetLeft--

		next, result, handled := ip.step(cur, in)
		if handled {
			return nil, result
		}
		cur = next
	}
}

func abortResult(err error) ExecResult {
	return ExecResult{Status: Aborted, Err: err}
}

// step executes one decoded instruction against cur, returning the frame
// to resume at (possibly cur itself, possibly a new callee or cur.Next
// after a ret) and, when the slice must stop immediately (completion,
// abort, or unhandled exception), a terminal ExecResult with handled=true.
func (ip *Interpreter) step(cur *Frame, in inst) (next *Frame, result ExecResult, handled bool) {
	switch in.Op {
	case OpNop, OpUnaligned, OpVolatile, OpTail, OpConstrained, OpReadonly:
		cur.PC += in.Width
		return cur, ExecResult{}, false

	case OpCall, OpCallvirt, OpCalli:
		callee, err := ip.dispatchCall(cur, in)
		if err != nil {
			if exc, ok := err.(*exmachine.ManagedException); ok {
				return ip.unwind(cur, cur.PC, exc)
			}
			return nil, abortResult(err), true
		}
		cur.PC += in.Width
		return callee, ExecResult{}, false

	case OpNewobj:
		callee, err := ip.dispatchNewobj(cur, in)
		if err != nil {
			if exc, ok := err.(*exmachine.ManagedException); ok {
				return ip.unwind(cur, cur.PC, exc)
			}
			return nil, abortResult(err), true
		}
		cur.PC += in.Width
		return callee, ExecResult{}, false

	case OpRet:
		return ip.execRet(cur)

	case OpThrow, OpRethrow:
		exc, err := ip.materializeException(cur, in.Op == OpRethrow)
		if err != nil {
			return nil, abortResult(err), true
		}
		return ip.unwind(cur, cur.PC, exc)

	case OpLeave:
		return ip.execLeave(cur, in)

	case OpEndfilter, OpEndfinally:
		// Only meaningful inside runRegion's nested loop, which intercepts
		// these opcodes itself; reaching here at top level is a no-op
		// advance (guards against a stray endfinally outside a handler).
		cur.PC += in.Width
		return cur, ExecResult{}, false

	default:
		// execSimple owns cur.PC entirely: it advances past the
		// instruction on a normal fall-through, or sets it to a branch
		// target directly, so step never adds in.Width itself here.
		if err := ip.execSimple(cur, in); err != nil {
			if exc, ok := err.(*exmachine.ManagedException); ok {
				return ip.unwind(cur, cur.PC, exc)
			}
			return nil, abortResult(err), true
		}
		return cur, ExecResult{}, false
	}
}

func errInvalidCode(tok uint32, format string, args ...interface{}) error {
	return engineerr.Newf(engineerr.InvalidOpCode, tok, format, args...)
}
