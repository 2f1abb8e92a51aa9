package method

import (
	"github.com/clrfirmata/ilengine/internal/sortedtable"
	"github.com/clrfirmata/ilengine/internal/token"
)

// Table is the method table (spec C5), built on sortedtable.Table.
type Table struct {
	tbl *sortedtable.Table[token.Token, *Descriptor]
}

// NewTable returns an empty method table.
func NewTable() *Table {
	return &Table{tbl: sortedtable.New[token.Token, *Descriptor]()}
}

// Declare inserts a new, empty method stub for tok, or returns the existing
// one (DeclareMethod/MethodSignature/LoadIl arrive as separate requests).
func (t *Table) Declare(tok token.Token) *Descriptor {
	if d, ok := t.tbl.GetByKey(tok, false); ok {
		return d
	}
	d := &Descriptor{
		MethodToken:       tok,
		TokenRemap:        map[token.Token]token.Token{},
		DeclarationTokens: map[token.Token]struct{}{},
	}
	t.tbl.Insert(d)
	return d
}

// GetByKey looks up a method by token.
func (t *Table) GetByKey(tok token.Token) (*Descriptor, bool) {
	return t.tbl.GetByKey(tok, false)
}

// Clear drops RAM (and, if includingFlash, frozen) entries.
func (t *Table) Clear(includingFlash bool) { t.tbl.Clear(includingFlash) }

// CopyToFlash freezes all methods currently in RAM.
func (t *Table) CopyToFlash() []*Descriptor { return t.tbl.CopyToFlash() }

// ValidateOrder mirrors sortedtable's invariant check.
func (t *Table) ValidateOrder() int { return t.tbl.ValidateOrder() }
