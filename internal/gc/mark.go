package gc

import (
	"github.com/clrfirmata/ilengine/internal/class"
	"github.com/clrfirmata/ilengine/internal/slot"
	"github.com/clrfirmata/ilengine/internal/token"
)

// SpecialTokens names the built-in type tokens the loader's
// SpecialTokenList request installs (spec.md §4.9): the subset the
// collector itself must recognize to tell an array-of-arrays from an
// array of plain references.
type SpecialTokens struct {
	ArrayToken token.Token
}

// Roots bundles every GC root spec.md §4.5's "Collect" step scans:
// statics (including large value-typed statics — both represented simply
// as slot.Slot, a large one self-describing via its Bytes field, which is
// a deliberate simplification of the spec's two separate lists: a plain
// Slot and a "large-static list" end up needing identical treatment in
// markReachable, so one list suffices) and every live frame.
type Roots struct {
	Statics []slot.Slot
	Frames  []FrameRoots
}

// Collect runs spec.md §4.5's single-pass mark-and-sweep: mark every
// sub-block Free, mark everything reachable from roots Used, then
// recompute per-block free counters and the global watermark.
func (h *Heap) Collect(roots Roots, special SpecialTokens) {
	for _, b := range h.blocks {
		for i := range b.Subs {
			b.Subs[i].Flag = Free
		}
	}

	for _, s := range roots.Statics {
		h.markReachable(s, special, false)
	}
	for _, f := range roots.Frames {
		for _, s := range f.OperandStackSlots() {
			h.markReachable(s, special, false)
		}
		for _, s := range f.LocalSlots() {
			h.markReachable(s, special, false)
		}
		for _, s := range f.ArgumentSlots() {
			h.markReachable(s, special, false)
		}
		for _, s := range f.LocalStorageSlots() {
			h.markReachable(s, special, false)
		}
	}

	h.memInUse = 0
	for _, b := range h.blocks {
		free := (b.Start + b.Size) - b.Tail
		used := 0
		for _, s := range b.Subs {
			if s.Flag == Free {
				free += s.Size + Alignment
			} else {
				used += s.Size
			}
		}
		b.FreeBytes = free
		h.memInUse += int64(used)
	}
	if h.memInUse > h.maxUsed {
		h.maxUsed = h.memInUse
	}
}

// markReachable implements spec.md §4.5's mark-reachable algorithm.
// fromValueTypeWord distinguishes a top-level AddressOfVariable root
// (skipped — see the Open Question resolution in DESIGN.md: the spec's
// text is self-contradictory about AddressOfVariable, naming it both a
// skipped "non-reference primitive" and something recursed into from
// struct-word scanning; we skip it at the top level, since a root
// AddressOfVariable always aliases a local/argument slot already reached
// directly by the frame scan above, and only chase it when arriving via a
// value type's inline words, which may point at heap-allocated memory a
// plain field scan would otherwise miss) from the inner recursive call a
// value-type's word scan makes.
func (h *Heap) markReachable(v slot.Slot, special SpecialTokens, fromValueTypeWord bool) {
	base := v.Kind.Base()

	switch base {
	case slot.Boolean, slot.Float, slot.Double:
		return
	case slot.AddressOfVariable:
		if !fromValueTypeWord {
			return
		}
	case slot.LargeValueType:
		h.markValueTypeWords(v.Bytes, special)
		return
	}

	if base != slot.AddressOfVariable && !base.IsReference() {
		return // non-reference scalar (Int32, Uint32, Int64, Uint64, etc.)
	}

	addr := int(v.Payload)
	if addr == 0 {
		return
	}

	b, sb, ok := h.findSubBlock(addr)
	if !ok {
		return // dangling/foreign address; nothing to mark
	}
	if sb.Flag == Used {
		return // cycle cutoff
	}
	sb.Flag = Used
	_ = b

	switch base {
	case slot.ReferenceArray:
		h.markReferenceArray(addr, special)
	case slot.ValueArray:
		h.markValueArray(addr, special)
	case slot.Object:
		h.markObjectFields(addr, special)
	}
}

func (h *Heap) markValueTypeWords(bytes []byte, special SpecialTokens) {
	for off := 0; off+4 <= len(bytes); off += 4 {
		word := uint32(bytes[off]) | uint32(bytes[off+1])<<8 | uint32(bytes[off+2])<<16 | uint32(bytes[off+3])<<24
		h.markReachable(slot.New(slot.AddressOfVariable, uint64(word), 4), special, true)
	}
}

func (h *Heap) markReferenceArray(addr int, special SpecialTokens) {
	n := h.ArrayLen(addr)
	elemTok := h.ArrayElemToken(addr)
	kind := slot.Object
	if elemTok == special.ArrayToken {
		kind = slot.ReferenceArray
	}
	base := h.ArrayPayloadAddr(addr)
	for i := 0; i < n; i++ {
		word := h.ReadU32(base + i*4)
		h.markReachable(slot.New(kind, uint64(word), 4), special, false)
	}
}

func (h *Heap) markValueArray(addr int, special SpecialTokens) {
	elemClassTok := h.ArrayElemToken(addr)
	cls, ok := h.classes.GetByKey(elemClassTok)
	if !ok {
		return
	}
	n := h.ArrayLen(addr)
	base := h.ArrayPayloadAddr(addr)
	elemSize := cls.DynamicSize
	for i := 0; i < n; i++ {
		elemAddr := base + i*elemSize
		h.markFieldsOf(cls, elemAddr, special)
	}
}

func (h *Heap) markObjectFields(addr int, special SpecialTokens) {
	classTok := h.ClassOf(addr)
	cls, ok := h.classes.GetByKey(classTok)
	if !ok {
		return
	}
	// Fields holds only the fields cls itself declares (AddField offsets
	// them past the inherited baseline, spec.md I5); inherited fields live
	// in the ancestors' own Fields lists, so walk the parent chain too.
	for cur := cls; cur != nil; {
		h.markFieldsOf(cur, addr+HeaderSize, special)
		if cur.ParentToken == token.Invalid {
			break
		}
		parent, ok := h.classes.GetByKey(cur.ParentToken)
		if !ok {
			break
		}
		cur = parent
	}
}

// markFieldsOf marks the reference-bearing fields cls declares locally,
// skipping fields flagged StaticMember, starting at base within the
// object's instance region.
func (h *Heap) markFieldsOf(cls *class.Descriptor, base int, special SpecialTokens) {
	for _, f := range cls.Fields {
		if f.Decl.Kind.IsStatic() {
			continue
		}
		k := f.Decl.Kind.Base()
		if k != slot.Object && k != slot.ReferenceArray && k != slot.ValueArray {
			continue
		}
		addr := base + f.Offset
		word := h.ReadU32(addr)
		h.markReachable(slot.New(k, uint64(word), 4), special, false)
	}
}
