package gc

import (
	"encoding/binary"

	"github.com/clrfirmata/ilengine/internal/token"
)

// HeaderSize is the width of the pointer-sized header every managed object
// begins with, pointing (here: by class token, not a raw pointer — see
// below) to its class descriptor (spec.md §3.6).
const HeaderSize = 4

// Array and string layout, spec.md §3.6:
//   header, element count (i32), element-type token (i32), element payload.
// Strings are arrays of 2-byte elements.
const (
	arrayCountOffset   = HeaderSize
	arrayElemTokOffset = HeaderSize + 4
	arrayPayloadOffset = HeaderSize + 8
)

func (h *Heap) ReadU32(addr int) uint32 {
	return binary.LittleEndian.Uint32(h.Memory[addr : addr+4])
}

func (h *Heap) WriteU32(addr int, v uint32) {
	binary.LittleEndian.PutUint32(h.Memory[addr:addr+4], v)
}

func (h *Heap) ReadU16(addr int) uint16 {
	return binary.LittleEndian.Uint16(h.Memory[addr : addr+2])
}

func (h *Heap) WriteU16(addr int, v uint16) {
	binary.LittleEndian.PutUint16(h.Memory[addr:addr+2], v)
}

// ClassOf returns the class token stored in the object header at addr.
// This engine represents the header-to-descriptor link as a class token
// rather than a raw pointer: the flash-freeze relocation pass (internal/
// flash) rewrites intra-object pointers, and a token survives that rewrite
// unchanged, whereas an in-process Go pointer to a class.Descriptor would
// not survive being written out to a flash image at all.
func (h *Heap) ClassOf(addr int) token.Token {
	return token.Token(h.ReadU32(addr))
}

// NewObject allocates dynamicSize bytes plus a header for an instance of
// classTok, zero-initialized, and stamps the header.
func (h *Heap) NewObject(classTok token.Token, dynamicSize int) (int, error) {
	addr, err := h.Alloc(HeaderSize+dynamicSize, "object")
	if err != nil {
		return 0, err
	}
	h.Zero(addr, HeaderSize+dynamicSize)
	h.WriteU32(addr, uint32(classTok))
	return addr, nil
}

// NewReferenceArray allocates an array of n pointer-sized elements whose
// static element type is elemTypeTok (spec.md §3.6 array layout).
func (h *Heap) NewReferenceArray(arrayClassTok, elemTypeTok token.Token, n int) (int, error) {
	size := arrayPayloadOffset + n*4
	addr, err := h.Alloc(size, "refarray")
	if err != nil {
		return 0, err
	}
	h.Zero(addr, size)
	h.WriteU32(addr, uint32(arrayClassTok))
	h.WriteU32(addr+arrayCountOffset, uint32(n))
	h.WriteU32(addr+arrayElemTokOffset, uint32(elemTypeTok))
	return addr, nil
}

// NewValueArray allocates an array of n elements of elemSize bytes each,
// whose element class is elemClassTok.
func (h *Heap) NewValueArray(arrayClassTok, elemClassTok token.Token, elemSize, n int) (int, error) {
	size := arrayPayloadOffset + n*elemSize
	addr, err := h.Alloc(size, "valuearray")
	if err != nil {
		return 0, err
	}
	h.Zero(addr, size)
	h.WriteU32(addr, uint32(arrayClassTok))
	h.WriteU32(addr+arrayCountOffset, uint32(n))
	h.WriteU32(addr+arrayElemTokOffset, uint32(elemClassTok))
	return addr, nil
}

// NewString allocates a string with 2-byte (UTF-16-ish) elements, per
// spec.md §3.6: "Strings follow the array layout with 2-byte elements."
func (h *Heap) NewString(stringClassTok token.Token, units []uint16) (int, error) {
	size := arrayPayloadOffset + len(units)*2
	addr, err := h.Alloc(size, "string")
	if err != nil {
		return 0, err
	}
	h.Zero(addr, size)
	h.WriteU32(addr, uint32(stringClassTok))
	h.WriteU32(addr+arrayCountOffset, uint32(len(units)))
	h.WriteU32(addr+arrayElemTokOffset, uint32(stringClassTok))
	for i, u := range units {
		h.WriteU16(addr+arrayPayloadOffset+i*2, u)
	}
	return addr, nil
}

// ArrayLen reads an array/string's element count.
func (h *Heap) ArrayLen(addr int) int { return int(h.ReadU32(addr + arrayCountOffset)) }

// ArrayElemToken reads an array/string's element-type token.
func (h *Heap) ArrayElemToken(addr int) token.Token {
	return token.Token(h.ReadU32(addr + arrayElemTokOffset))
}

// ArrayPayloadAddr returns the address of element 0.
func (h *Heap) ArrayPayloadAddr(addr int) int { return addr + arrayPayloadOffset }
