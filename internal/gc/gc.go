// Package gc implements the managed heap and precise garbage collector
// (spec C8): a segregated free-list allocator over coarse blocks with a
// single-pass, non-compacting, precise mark-and-sweep collector.
//
// Grounded on the teacher VM's slab allocator
// (std/compiler/backend_vm.go:378-459: slabAllocSmall/Large, consuming a
// per-size free list threaded through the first word of each freed slot,
// falling back to a bump allocator that carves fresh pages) generalized
// from two fixed slab sizes to variable-size sub-blocks as spec.md §4.5
// requires, and on original_source/GarbageCollector.cpp for the
// mark-and-sweep pass itself (the teacher's slab allocator never collects;
// it only frees explicitly).
package gc

import (
	"fmt"

	"github.com/clrfirmata/ilengine/internal/class"
	"github.com/clrfirmata/ilengine/internal/slot"
	"github.com/clrfirmata/ilengine/internal/token"
)

// Alignment is the sub-block header size and allocation granularity,
// invariant I7: "sizeof(BlockHd) == alignment (4)".
const Alignment = 4

// DefaultBlockSize is the size of a freshly allocated GC block when no
// existing block can satisfy a request (spec.md §4.5 step 3).
const DefaultBlockSize = 16 * 1024

// SubBlockFlag is Free or Used, spec.md §3.7.
type SubBlockFlag uint8

const (
	Free SubBlockFlag = iota
	Used
)

// subBlockMarker is the canonical constant every sub-block header carries,
// checked by validateBlocks (spec.md §4.5 "Validation").
const subBlockMarker = 0xA5

// subBlock is one entry in a block's chain. The design notes (spec.md §9)
// call for "an arena of bytes plus a parallel index of (offset, size,
// flag) records" rather than reinterpreting bytes as structs; this is that
// parallel index. Offset is relative to the owning block's Start.
type subBlock struct {
	Offset int
	Size   int // payload size, not including the header
	Flag   SubBlockFlag
	Marker byte
	// The class token of an object held here is not stored in this
	// record; it is read out of the simulated object header at mark time.
}

// block is one coarse GC block (spec.md §3.7).
type block struct {
	Start     int
	Size      int
	FreeBytes int
	Tail      int // spec.md I10: linear fill pointer until full, then block end
	Subs      []subBlock
}

// Heap is the managed heap (spec C8): a flat simulated address space plus
// the block chain describing it. Memory is addressed by plain int offsets
// rather than uintptr, since this is a simulated microcontroller heap, not
// host process memory.
type Heap struct {
	Memory       []byte
	blocks       []*block
	memInUse     int64
	maxUsed      int64
	classes      ClassResolver
	nextBlockReq int
}

// ClassResolver is the narrow view of the class table the GC needs to scan
// object fields; kept separate from internal/class to avoid a dependency
// cycle with any future GC-aware class-table behavior.
type ClassResolver interface {
	GetByKey(token.Token) (*class.Descriptor, bool)
}

// New returns an empty heap. classes is consulted during Collect to walk
// object field layouts.
func New(classes ClassResolver) *Heap {
	return &Heap{classes: classes}
}

// MemInUse and MaxUsed report the bookkeeping spec.md §4.5's "Recompute"
// step maintains: "sum Used into global memory-in-use; update max-used
// watermark."
func (h *Heap) MemInUse() int64 { return h.memInUse }
func (h *Heap) MaxUsed() int64  { return h.maxUsed }

// growMemory extends the backing byte slice so block [start,start+size) is
// addressable.
func (h *Heap) growMemory(end int) {
	if end <= len(h.Memory) {
		return
	}
	grown := make([]byte, end)
	copy(grown, h.Memory)
	h.Memory = grown
}

func alignUp(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// newBlock appends a fresh block of at least size bytes, per spec.md §4.5
// step 3: "allocate a new block of max(DEFAULT_BLOCK_SIZE, size+header);
// halve the request on OOM until either success or request < required
// size (then fail)."
func (h *Heap) newBlock(minSize int) (*block, error) {
	req := DefaultBlockSize
	if minSize > req {
		req = minSize
	}
	for req >= minSize {
		start := 0
		if n := len(h.blocks); n > 0 {
			last := h.blocks[n-1]
			start = last.Start + last.Size
		}
		// A host-side simulated heap has no real OOM short of running out
		// of address space; we keep the halving loop so the allocator's
		// control flow — and its failure path — match spec.md §4.5
		// exactly, bounded by a generous cap standing in for physical
		// flash/RAM limits on the real target.
		const simulatedCeiling = 64 * 1024 * 1024
		if start+req > simulatedCeiling {
			req = req / 2
			continue
		}
		b := &block{Start: start, Size: req, FreeBytes: req, Tail: start}
		h.growMemory(start + req)
		h.blocks = append(h.blocks, b)
		return b, nil
	}
	return nil, fmt.Errorf("gc: out of memory allocating block of >= %d bytes", minSize)
}

// Alloc implements spec.md §4.5's allocation algorithm. tag is used only
// for diagnostics (mirroring the teacher's per-tag accounting in
// std/compiler/backend_vm.go's trackAlloc). Allocated memory is not
// zero-initialized; callers that need zeroed storage call Zero
// explicitly (spec.md §4.5 step 4: "the GC does not zero").
func (h *Heap) Alloc(size int, tag string) (int, error) {
	if size <= 0 {
		size = 1
	}
	size = alignUp(size)

	// Step 1: linear tail fit.
	for _, b := range h.blocks {
		need := size + Alignment
		if size <= b.FreeBytes && b.Tail+need <= b.Start+b.Size {
			addr := b.Tail + Alignment
			b.Subs = append(b.Subs, subBlock{Offset: b.Tail - b.Start, Size: size, Flag: Used, Marker: subBlockMarker})
			b.Tail += need
			b.FreeBytes -= need
			if b.Tail >= b.Start+b.Size {
				b.Tail = b.Start + b.Size
			}
			h.accountAlloc(size)
			return addr, nil
		}
	}

	// Step 2: scan for a free sub-block fit within [size, 2*size].
	for _, b := range h.blocks {
		for i := range b.Subs {
			s := &b.Subs[i]
			if s.Flag != Free {
				continue
			}
			if s.Size < size || s.Size > 2*size {
				continue
			}
			if s.Size >= size+Alignment+Alignment {
				residual := subBlock{Offset: s.Offset + Alignment + size, Size: s.Size - size - Alignment, Flag: Free, Marker: subBlockMarker}
				s.Size = size
				s.Flag = Used
				b.Subs = append(b.Subs, residual)
				b.FreeBytes -= size + Alignment
			} else {
				s.Flag = Used
				b.FreeBytes -= s.Size + Alignment
			}
			addr := b.Start + s.Offset + Alignment
			h.accountAlloc(size)
			return addr, nil
		}
	}

	// Step 3: grow.
	b, err := h.newBlock(size + Alignment)
	if err != nil {
		return 0, err
	}
	addr := b.Tail + Alignment
	b.Subs = append(b.Subs, subBlock{Offset: b.Tail - b.Start, Size: size, Flag: Used, Marker: subBlockMarker})
	b.Tail += size + Alignment
	b.FreeBytes -= size + Alignment
	h.accountAlloc(size)
	return addr, nil
}

func (h *Heap) accountAlloc(size int) {
	h.memInUse += int64(size)
	if h.memInUse > h.maxUsed {
		h.maxUsed = h.memInUse
	}
}

// Zero clears size bytes at addr, for callers that need zero-initialized
// storage (newobj/newarr).
func (h *Heap) Zero(addr, size int) {
	for i := addr; i < addr+size && i < len(h.Memory); i++ {
		h.Memory[i] = 0
	}
}

func (h *Heap) findSubBlock(addr int) (*block, *subBlock, bool) {
	for _, b := range h.blocks {
		if addr < b.Start || addr >= b.Start+b.Size {
			continue
		}
		for i := range b.Subs {
			s := &b.Subs[i]
			payloadStart := b.Start + s.Offset + Alignment
			if addr >= payloadStart && addr < payloadStart+s.Size {
				return b, s, true
			}
		}
	}
	return nil, nil, false
}

// ValidateBlocks walks every block, asserting sub-block chain consistency
// (spec.md §4.5 "Validation", invariant I13: "sub-block.size + header sums
// exactly to block size").
func (h *Heap) ValidateBlocks() error {
	for bi, b := range h.blocks {
		sum := 0
		for _, s := range b.Subs {
			if s.Marker != subBlockMarker {
				return fmt.Errorf("gc: block %d sub-block at offset %d has bad marker %#x", bi, s.Offset, s.Marker)
			}
			sum += s.Size + Alignment
		}
		// The chain may not yet cover the whole block if it has never
		// filled (tail-fill region is implicitly free, uncounted by Subs
		// until something forces a split there).
		tailFree := (b.Start + b.Size) - b.Tail
		if sum+tailFree != b.Size {
			return fmt.Errorf("gc: block %d sub-block chain covers %d bytes, want %d", bi, sum+tailFree, b.Size)
		}
	}
	return nil
}

// FrameRoots is the minimal view of one execution frame the collector
// needs, implemented by internal/interp.Frame. Keeping it as an interface
// here (rather than importing internal/interp) avoids a cycle, since
// interp imports gc for allocation.
type FrameRoots interface {
	OperandStackSlots() []slot.Slot
	LocalSlots() []slot.Slot
	ArgumentSlots() []slot.Slot
	LocalStorageSlots() []slot.Slot
}
