// Package constheap implements the constant/string heap (spec C6): an
// append-only byte heap addressed by token, with a CopyToFlash command that
// transfers it verbatim.
//
// Grounded directly on the teacher VM's string interning
// (std/compiler/backend_vm.go:632-646: internString appends bytes to VM
// memory and remembers the address by content), generalized from
// content-addressed strings to token-addressed arbitrary constant bytes —
// the loader assigns the token, the host compiler having already interned
// by content on its side.
package constheap

import "github.com/clrfirmata/ilengine/internal/token"

// entry is one (token, bytes) pair.
type entry struct {
	tok   token.Token
	bytes []byte
}

// Heap is the constant/string heap (spec C6).
type Heap struct {
	ram    []entry
	frozen []entry
	byTok  map[token.Token]int // index into ram, for fast ConstantData appends
}

// New returns an empty constant heap.
func New() *Heap {
	return &Heap{byTok: map[token.Token]int{}}
}

// Put appends or extends the bytes stored under tok. The loader's
// ConstantData request streams a constant's bytes across several messages
// at increasing offsets; Put grows the entry to fit.
func (h *Heap) Put(tok token.Token, offset int, data []byte) {
	idx, ok := h.byTok[tok]
	if !ok {
		h.byTok[tok] = len(h.ram)
		h.ram = append(h.ram, entry{tok: tok})
		idx = len(h.ram) - 1
	}
	e := &h.ram[idx]
	need := offset + len(data)
	if need > len(e.bytes) {
		grown := make([]byte, need)
		copy(grown, e.bytes)
		e.bytes = grown
	}
	copy(e.bytes[offset:], data)
}

// Get returns the bytes stored under tok, searching RAM first then the
// frozen (flash) list — mirroring the sorted-table lookup policy elsewhere
// so late loads shadow flashed constants.
func (h *Heap) Get(tok token.Token) ([]byte, bool) {
	if idx, ok := h.byTok[tok]; ok {
		return h.ram[idx].bytes, true
	}
	for _, e := range h.frozen {
		if e.tok == tok {
			return e.bytes, true
		}
	}
	return nil, false
}

// CopyToFlash transfers the heap verbatim, in insertion order, returning
// the frozen entries' tokens and byte slices for the flash manager's
// layout pass.
func (h *Heap) CopyToFlash() (tokens []token.Token, blobs [][]byte) {
	h.frozen = append(h.frozen, h.ram...)
	h.ram = nil
	h.byTok = map[token.Token]int{}
	for _, e := range h.frozen {
		tokens = append(tokens, e.tok)
		blobs = append(blobs, e.bytes)
	}
	return tokens, blobs
}

// Clear drops RAM (and, if includingFlash, frozen) entries.
func (h *Heap) Clear(includingFlash bool) {
	h.ram = nil
	h.byTok = map[token.Token]int{}
	if includingFlash {
		h.frozen = nil
	}
}

// Len reports the total number of interned entries (RAM + frozen).
func (h *Heap) Len() int { return len(h.ram) + len(h.frozen) }
