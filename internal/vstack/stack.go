// Package vstack implements the dynamic execution stack (spec C2): an
// append-only, variable-width LIFO of slots that doubles on overflow.
//
// The original firmware represents this as a raw byte buffer with a
// push/pop trailer scheme so variable-width entries can be popped without
// a separate length table (spec.md §4.6). The teacher VM's operand stack
// (std/compiler/backend_vm.go: VM.stack []uint64, push/pop) is word-sized
// only, one value per slot; we generalize that shape to slot.Slot entries,
// which already carry their own width, giving the same O(1) push/pop/top
// without reinterpreting a byte arena (see DESIGN.md on sub-block arenas
// for why we avoid that pattern where a typed slice suffices).
package vstack

import (
	"fmt"

	"github.com/clrfirmata/ilengine/internal/slot"
)

// Stack is a LIFO of slot.Slot. The zero value is not usable; use New.
type Stack struct {
	data []slot.Slot
}

// New returns a Stack pre-sized to hold cap entries before its first grow.
func New(cap int) *Stack {
	if cap <= 0 {
		cap = 16
	}
	return &Stack{data: make([]slot.Slot, 0, cap)}
}

// Push appends v to the top of the stack, doubling capacity on overflow
// (spec.md §4.6: "on push that would exceed capacity, extend by at least
// the required size").
func (s *Stack) Push(v slot.Slot) {
	s.data = append(s.data, v)
}

// Pop removes and returns the top entry. Popping an empty stack is a fatal
// engine error per spec.md §4.6 ("underflow is a fatal engine error") —
// callers that can recover (e.g. the interpreter deciding whether a guest
// bug caused this) should check Empty first; Pop itself panics with an
// "ICE" message since underflow here always indicates an interpreter bug,
// never a guest-program fault (the verifier-less loader trusts arities).
func (s *Stack) Pop() slot.Slot {
	if len(s.data) == 0 {
		panic("ICE: vstack underflow")
	}
	v := s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return v
}

// Top returns the most recently pushed entry without removing it.
func (s *Stack) Top() slot.Slot {
	if len(s.data) == 0 {
		panic("ICE: vstack.Top on empty stack")
	}
	return s.data[len(s.data)-1]
}

// Nth returns the k-th most recent push (0 is the top), matching the
// "nth(k) matches the k-th most recent push" testable property.
func (s *Stack) Nth(k int) slot.Slot {
	idx := len(s.data) - 1 - k
	if idx < 0 || idx >= len(s.data) {
		panic(fmt.Sprintf("ICE: vstack.Nth(%d) out of range (depth=%d)", k, len(s.data)))
	}
	return s.data[idx]
}

// Empty reports whether the stack has no entries.
func (s *Stack) Empty() bool { return len(s.data) == 0 }

// Depth returns the current number of entries.
func (s *Stack) Depth() int { return len(s.data) }

// Clear empties the stack without releasing its backing array, for finally
// and handler entry (spec.md §4.8: "Enter the matched handler: clear the
// operand stack …").
func (s *Stack) Clear() { s.data = s.data[:0] }

// Snapshot returns a defensive copy of the stack's contents, oldest first,
// for GC root scanning (spec.md §4.5 "Mark stacks").
func (s *Stack) Snapshot() []slot.Slot {
	out := make([]slot.Slot, len(s.data))
	copy(out, s.data)
	return out
}
