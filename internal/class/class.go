// Package class implements the class descriptor and class table (spec C4):
// token, parent, instance/static layout, fields, methods, and implemented
// interfaces, with a RAM-then-frozen lifecycle via sortedtable.Table.
//
// Grounded on the teacher's TypeInfo (std/compiler/ir.go:30-49), which
// carries Kind/Name/Size/Align/Fields/Elem for a resolved type; we split
// that single struct into Descriptor (the class-table entry proper) plus
// FieldDescriptor, and add the method list, interface set, and flash
// lifecycle the teacher's compile-time-only TypeInfo never needed.
package class

import (
	"fmt"

	"github.com/clrfirmata/ilengine/internal/method"
	"github.com/clrfirmata/ilengine/internal/slot"
	"github.com/clrfirmata/ilengine/internal/sortedtable"
	"github.com/clrfirmata/ilengine/internal/token"
)

// FieldDescriptor is one entry in a class's ordered field list. Field order
// fixes instance layout (invariant I5); Offset is the byte offset within
// an instance, following the field order of this class and all ancestors.
type FieldDescriptor struct {
	Name   string
	Decl   slot.Slot // declaration-only slot carrying kind/size
	Offset int
}

// Descriptor is a class (or value-type) descriptor, spec.md §3.2.
type Descriptor struct {
	ClassToken     token.Token
	ParentToken    token.Token
	DynamicSize    int // bytes in an instance including inherited fields, excluding the vtable header
	StaticSize     int
	IsValueType    bool
	Fields         []FieldDescriptor
	Methods        []*method.Descriptor
	Interfaces     map[token.Token]struct{}
	Frozen         bool
}

// Key implements sortedtable.Entry.
func (d *Descriptor) Key() token.Token { return d.ClassToken }

// GetFieldByIndex returns the i-th field descriptor (spec.md §4.2).
func (d *Descriptor) GetFieldByIndex(i int) (FieldDescriptor, bool) {
	if i < 0 || i >= len(d.Fields) {
		return FieldDescriptor{}, false
	}
	return d.Fields[i], true
}

// GetMethodByIndex returns the i-th method descriptor (spec.md §4.2).
func (d *Descriptor) GetMethodByIndex(i int) (*method.Descriptor, bool) {
	if i < 0 || i >= len(d.Methods) {
		return nil, false
	}
	return d.Methods[i], true
}

// ImplementsInterface reports whether d's interface set contains tok.
// Interfaces are unordered (invariant I6), so this is a set membership
// test, not an indexed lookup.
func (d *Descriptor) ImplementsInterface(tok token.Token) bool {
	_, ok := d.Interfaces[tok]
	return ok
}

// AddField appends a field, assigning it the next offset after the current
// last field (or after DynamicSize's inherited-fields baseline if this is
// the first field declared locally).
func (d *Descriptor) AddField(name string, decl slot.Slot) {
	offset := d.DynamicSize
	d.Fields = append(d.Fields, FieldDescriptor{Name: name, Decl: decl, Offset: offset})
	d.DynamicSize += decl.FieldSize()
}

// Table is the class table (spec C4), built on sortedtable.Table.
type Table struct {
	tbl *sortedtable.Table[token.Token, *Descriptor]
}

// NewTable returns an empty class table.
func NewTable() *Table {
	return &Table{tbl: sortedtable.New[token.Token, *Descriptor]()}
}

// Declare inserts a new, empty class stub for tok, or returns the existing
// one if already declared (the loader's DeclareClass/ClassDeclaration
// sequence may be split across several wire requests).
func (t *Table) Declare(tok token.Token) *Descriptor {
	if d, ok := t.tbl.GetByKey(tok, false); ok {
		return d
	}
	d := &Descriptor{ClassToken: tok, Interfaces: map[token.Token]struct{}{}}
	t.tbl.Insert(d)
	return d
}

// GetByKey looks up a class by token (spec.md §4.1 getByKey semantics).
func (t *Table) GetByKey(tok token.Token) (*Descriptor, bool) {
	return t.tbl.GetByKey(tok, false)
}

// Resolve walks class -> parent -> … looking up each ancestor's descriptor,
// returning the full chain from d to its ultimate root (spec.md §4.7
// callvirt: "walk class → parent → …").
func (t *Table) Resolve(start *Descriptor) []*Descriptor {
	chain := []*Descriptor{start}
	cur := start
	for cur.ParentToken != token.Invalid {
		parent, ok := t.GetByKey(cur.ParentToken)
		if !ok {
			break
		}
		chain = append(chain, parent)
		cur = parent
	}
	return chain
}

// Clear drops RAM (and, if includingFlash, frozen) entries.
func (t *Table) Clear(includingFlash bool) { t.tbl.Clear(includingFlash) }

// CopyToFlash freezes all classes currently in RAM, in insertion order.
func (t *Table) CopyToFlash() []*Descriptor {
	for _, d := range t.tbl.Frozen() {
		d.Frozen = true
	}
	frozen := t.tbl.CopyToFlash()
	for _, d := range frozen {
		d.Frozen = true
	}
	return frozen
}

// ValidateOrder mirrors sortedtable's invariant check.
func (t *Table) ValidateOrder() int { return t.tbl.ValidateOrder() }

func (d *Descriptor) String() string {
	return fmt.Sprintf("class(token=%#x parent=%#x fields=%d methods=%d value=%v)",
		uint32(d.ClassToken), uint32(d.ParentToken), len(d.Fields), len(d.Methods), d.IsValueType)
}
