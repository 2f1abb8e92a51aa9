package loader

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/clrfirmata/ilengine/internal/class"
	"github.com/clrfirmata/ilengine/internal/method"
	"github.com/clrfirmata/ilengine/internal/slot"
	"github.com/clrfirmata/ilengine/internal/token"
)

// The flash image's per-root encoding is this package's own design: the
// original firmware freezes its C++ structs byte-for-byte onto flash,
// which Go cannot do portably. Each blob below opens with a 4-byte total
// length (so RestoreFromFlash knows how much to read back from a bare
// offset) followed by a record count and the records themselves, mirroring
// the field order of class.Descriptor/method.Descriptor/constheap's
// (token, bytes) pairs.

func putU32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.LittleEndian, v) }
func putU16(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.LittleEndian, v) }

func marshalClasses(classes []*class.Descriptor) []byte {
	var body bytes.Buffer
	putU32(&body, uint32(len(classes)))
	for _, c := range classes {
		putU32(&body, uint32(c.ClassToken))
		putU32(&body, uint32(c.ParentToken))
		putU32(&body, uint32(c.DynamicSize))
		putU32(&body, uint32(c.StaticSize))
		if c.IsValueType {
			body.WriteByte(1)
		} else {
			body.WriteByte(0)
		}
		putU16(&body, uint16(len(c.Fields)))
		for _, f := range c.Fields {
			body.WriteByte(byte(f.Decl.Kind))
			putU16(&body, uint16(f.Decl.Size))
			putU32(&body, uint32(f.Offset))
		}
		putU16(&body, uint16(len(c.Interfaces)))
		for iface := range c.Interfaces {
			putU32(&body, uint32(iface))
		}
	}
	return framed(body.Bytes())
}

func unmarshalClasses(blob []byte) ([]*class.Descriptor, error) {
	body, err := unframe(blob)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(body)
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]*class.Descriptor, 0, count)
	for i := uint32(0); i < count; i++ {
		tok, err := readTok(r)
		if err != nil {
			return nil, err
		}
		parent, err := readTok(r)
		if err != nil {
			return nil, err
		}
		dynSize, err := readU32(r)
		if err != nil {
			return nil, err
		}
		staticSize, err := readU32(r)
		if err != nil {
			return nil, err
		}
		isValueType, err := readByte(r)
		if err != nil {
			return nil, err
		}
		fieldCount, err := readU16(r)
		if err != nil {
			return nil, err
		}
		d := &class.Descriptor{
			ClassToken: tok, ParentToken: parent, StaticSize: int(staticSize),
			IsValueType: isValueType != 0, Interfaces: map[token.Token]struct{}{}, Frozen: true,
		}
		for j := 0; j < int(fieldCount); j++ {
			kind, err := readByte(r)
			if err != nil {
				return nil, err
			}
			size, err := readU16(r)
			if err != nil {
				return nil, err
			}
			offset, err := readU32(r)
			if err != nil {
				return nil, err
			}
			d.Fields = append(d.Fields, class.FieldDescriptor{
				Name: fmt.Sprintf("field%d", j), Decl: slot.Decl(slot.Kind(kind), int(size)), Offset: int(offset),
			})
		}
		d.DynamicSize = int(dynSize)
		ifaceCount, err := readU16(r)
		if err != nil {
			return nil, err
		}
		for j := 0; j < int(ifaceCount); j++ {
			iface, err := readTok(r)
			if err != nil {
				return nil, err
			}
			d.Interfaces[iface] = struct{}{}
		}
		out = append(out, d)
	}
	return out, nil
}

func marshalMethods(methods []*method.Descriptor) []byte {
	var body bytes.Buffer
	putU32(&body, uint32(len(methods)))
	for _, d := range methods {
		putU32(&body, uint32(d.MethodToken))
		putU32(&body, uint32(d.OwnerClass))
		putU16(&body, uint16(d.Flags))
		putU16(&body, uint16(d.MaxStack))
		putU16(&body, uint16(d.NumArgs))
		if d.IsNative {
			body.WriteByte(1)
		} else {
			body.WriteByte(0)
		}
		putU16(&body, uint16(d.NativeMethod))
		putU32(&body, uint32(len(d.Code)))
		body.Write(d.Code)
		putU16(&body, uint16(len(d.Clauses)))
		for _, c := range d.Clauses {
			body.WriteByte(byte(c.Type))
			putU32(&body, uint32(c.TryOffset))
			putU32(&body, uint32(c.TryLength))
			putU32(&body, uint32(c.HandlerOffset))
			putU32(&body, uint32(c.HandlerLength))
			putU32(&body, uint32(c.FilterToken))
			putU32(&body, uint32(c.TargetClass))
		}
	}
	return framed(body.Bytes())
}

func unmarshalMethods(blob []byte) ([]*method.Descriptor, error) {
	body, err := unframe(blob)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(body)
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]*method.Descriptor, 0, count)
	for i := uint32(0); i < count; i++ {
		tok, err := readTok(r)
		if err != nil {
			return nil, err
		}
		owner, err := readTok(r)
		if err != nil {
			return nil, err
		}
		flags, err := readU16(r)
		if err != nil {
			return nil, err
		}
		maxStack, err := readU16(r)
		if err != nil {
			return nil, err
		}
		numArgs, err := readU16(r)
		if err != nil {
			return nil, err
		}
		isNative, err := readByte(r)
		if err != nil {
			return nil, err
		}
		nativeID, err := readU16(r)
		if err != nil {
			return nil, err
		}
		codeLen, err := readU32(r)
		if err != nil {
			return nil, err
		}
		code := make([]byte, codeLen)
		if _, err := r.Read(code); err != nil && codeLen > 0 {
			return nil, err
		}
		d := &method.Descriptor{
			MethodToken: tok, OwnerClass: owner, Flags: method.Flags(flags),
			MaxStack: int(maxStack), NumArgs: int(numArgs), IsNative: isNative != 0,
			NativeMethod: method.NativeMethodID(nativeID), Code: code,
			TokenRemap: map[token.Token]token.Token{}, DeclarationTokens: map[token.Token]struct{}{},
		}
		clauseCount, err := readU16(r)
		if err != nil {
			return nil, err
		}
		for j := 0; j < int(clauseCount); j++ {
			typ, err := readByte(r)
			if err != nil {
				return nil, err
			}
			tryOffset, err := readU32(r)
			if err != nil {
				return nil, err
			}
			tryLength, err := readU32(r)
			if err != nil {
				return nil, err
			}
			handlerOffset, err := readU32(r)
			if err != nil {
				return nil, err
			}
			handlerLength, err := readU32(r)
			if err != nil {
				return nil, err
			}
			filterTok, err := readTok(r)
			if err != nil {
				return nil, err
			}
			targetClass, err := readTok(r)
			if err != nil {
				return nil, err
			}
			d.Clauses = append(d.Clauses, method.ExceptionClause{
				MethodToken: tok, Type: method.ClauseType(typ), TryOffset: int(tryOffset),
				TryLength: int(tryLength), HandlerOffset: int(handlerOffset),
				HandlerLength: int(handlerLength), FilterToken: filterTok, TargetClass: targetClass,
			})
		}
		out = append(out, d)
	}
	return out, nil
}

func marshalConsts(tokens []token.Token, blobs [][]byte) []byte {
	var body bytes.Buffer
	putU32(&body, uint32(len(tokens)))
	for i, tok := range tokens {
		putU32(&body, uint32(tok))
		putU32(&body, uint32(len(blobs[i])))
		body.Write(blobs[i])
	}
	return framed(body.Bytes())
}

func unmarshalConsts(blob []byte) (tokens []token.Token, blobs [][]byte, err error) {
	body, err := unframe(blob)
	if err != nil {
		return nil, nil, err
	}
	r := bytes.NewReader(body)
	count, err := readU32(r)
	if err != nil {
		return nil, nil, err
	}
	for i := uint32(0); i < count; i++ {
		tok, err := readTok(r)
		if err != nil {
			return nil, nil, err
		}
		n, err := readU32(r)
		if err != nil {
			return nil, nil, err
		}
		data := make([]byte, n)
		if _, err := r.Read(data); err != nil && n > 0 {
			return nil, nil, err
		}
		tokens = append(tokens, tok)
		blobs = append(blobs, data)
	}
	return tokens, blobs, nil
}

// framed prepends body's own length so RestoreFromFlash can size its
// read-back from a bare flash offset (flash.Manager has no directory of
// blob lengths of its own — only page-aligned addresses).
func framed(body []byte) []byte {
	var out bytes.Buffer
	putU32(&out, uint32(len(body)))
	out.Write(body)
	return out.Bytes()
}

func unframe(blob []byte) ([]byte, error) {
	if len(blob) < 4 {
		return nil, fmt.Errorf("loader: flash blob too short to carry a length prefix")
	}
	n := binary.LittleEndian.Uint32(blob[:4])
	if uint32(len(blob)-4) < n {
		return nil, fmt.Errorf("loader: flash blob length prefix %d exceeds read length %d", n, len(blob)-4)
	}
	return blob[4 : 4+n], nil
}

// RestoreFromFlash repopulates the class/method/constant tables from an
// already-mounted flash image (spec.md §4.4 step 2: "publish the root
// pointers"). Each record is inserted through the tables' ordinary
// Declare/Put paths, so restored entries sit in the RAM lists, not the
// frozen ones, and a subsequent CopyToFlash writes them to the partition
// again. Call once at boot, after Flash.Mount() reports valid.
func (l *Loader) RestoreFromFlash() error {
	h := l.Flash.Header()

	if classBlob, err := l.readFramed(h.Roots.Classes); err == nil {
		classes, err := unmarshalClasses(classBlob)
		if err != nil {
			return fmt.Errorf("loader: restore classes: %w", err)
		}
		for _, c := range classes {
			*l.Classes.Declare(c.ClassToken) = *c
		}
	}

	if methodBlob, err := l.readFramed(h.Roots.Methods); err == nil {
		methods, err := unmarshalMethods(methodBlob)
		if err != nil {
			return fmt.Errorf("loader: restore methods: %w", err)
		}
		for _, d := range methods {
			canonical := l.Methods.Declare(d.MethodToken)
			*canonical = *d
			if cls, ok := l.Classes.GetByKey(d.OwnerClass); ok && !classHasMethod(cls, canonical) {
				cls.Methods = append(cls.Methods, canonical)
			}
		}
	}

	if constBlob, err := l.readFramed(h.Roots.Constants); err == nil {
		tokens, blobs, err := unmarshalConsts(constBlob)
		if err != nil {
			return fmt.Errorf("loader: restore constants: %w", err)
		}
		for i, tok := range tokens {
			l.Consts.Put(tok, 0, blobs[i])
		}
	}

	l.staticMemSize = h.StaticVectorMemorySize
	l.flashRoots = h.Roots
	return nil
}

// readFramed reads the 4-byte length prefix at addr, then the body it
// announces, handing unframe a self-contained blob.
func (l *Loader) readFramed(addr uint32) ([]byte, error) {
	if addr == 0 {
		return nil, fmt.Errorf("loader: no root at offset 0")
	}
	lenBytes, err := l.Flash.ReadAt(int(addr), 4)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBytes)
	return l.Flash.ReadAt(int(addr), 4+int(n))
}
