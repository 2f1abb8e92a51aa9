// Package method implements the method descriptor, its exception clauses,
// and the method table (spec C5): flags, argument/local descriptors, IL
// bytes or a native-method tag, a call-site token remap table, and an
// ordered exception-clause list.
//
// Grounded on the teacher's IRFunc (std/compiler/ir.go:140-147: Name,
// Params, Locals, RetCount, Code []Inst) — a compiled method body in
// exactly this shape — generalized with the flags, remap table, native tag,
// and exception clauses the teacher's Go-subset compiler never needed
// (the RTG language it compiles has neither exceptions nor a loader-time
// token indirection).
package method

import (
	"sort"

	"github.com/clrfirmata/ilengine/internal/slot"
	"github.com/clrfirmata/ilengine/internal/token"
)

// Flags are the method-level bits named in spec.md §3.3.
type Flags uint16

const (
	FlagStatic Flags = 1 << iota
	FlagVirtual
	FlagSpecialMethod
	FlagVoid
	FlagCtor
	FlagAbstract
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// ClauseType is one of the four exception-clause kinds, spec.md §3.4.
type ClauseType uint8

const (
	ClauseTypeClause ClauseType = iota
	ClauseTypeFilter
	ClauseTypeFinally
	ClauseTypeFault
)

// ExceptionClause is one try/handler region, spec.md §3.4. Clauses are kept
// ordered within a method by TryOffset ascending, then innermost-first for
// equal offsets (see Descriptor.SortClauses).
type ExceptionClause struct {
	MethodToken   token.Token
	Type          ClauseType
	TryOffset     int
	TryLength     int
	HandlerOffset int
	HandlerLength int
	FilterToken   token.Token  // only meaningful when Type == ClauseTypeFilter
	TargetClass   token.Token  // only meaningful when Type == ClauseTypeClause
}

// Covers reports whether pc falls within the clause's try range.
func (c ExceptionClause) Covers(pc int) bool {
	return pc >= c.TryOffset && pc < c.TryOffset+c.TryLength
}

// ArgDescriptor and LocalDescriptor describe one parameter or local slot.
type ArgDescriptor struct {
	Name string
	Decl slot.Slot
}

type LocalDescriptor struct {
	Name string
	Decl slot.Slot
}

// NativeMethodID names a SpecialMethod's built-in implementation (spec.md
// §4.7 "Special methods", §6.1).
type NativeMethodID uint16

// Descriptor is a method descriptor, spec.md §3.3.
type Descriptor struct {
	MethodToken token.Token
	Flags       Flags
	NumArgs     int
	MaxStack    int

	// Exactly one of (Code non-nil) or (NativeMethod, IsNative) is set.
	Code         []byte
	IsNative     bool
	NativeMethod NativeMethodID

	Locals []LocalDescriptor
	Args   []ArgDescriptor

	// TokenRemap rewrites MemberRef-class call-site tokens to MethodDef
	// tokens resolvable in this image (spec.md §3.3, GLOSSARY "Remap
	// table").
	TokenRemap map[token.Token]token.Token

	Clauses []ExceptionClause

	// DeclarationTokens are the call-site tokens this method overrides or
	// implements, consulted during virtual/interface dispatch (spec.md
	// §4.7 callvirt: "whose declarationTokens includes the call-site's
	// token").
	DeclarationTokens map[token.Token]struct{}

	OwnerClass token.Token
}

// Key implements sortedtable.Entry.
func (d *Descriptor) Key() token.Token { return d.MethodToken }

// RemapCallSite resolves a MemberRef-class token seen at a call site within
// this method to a MethodDef token, per the GLOSSARY's remap-table
// definition. If no remapping exists the token is assumed to already be a
// MethodDef token.
func (d *Descriptor) RemapCallSite(callSite token.Token) token.Token {
	if mapped, ok := d.TokenRemap[callSite]; ok {
		return mapped
	}
	return callSite
}

// Declares reports whether this method's declaration set includes tok,
// used by virtual/interface dispatch.
func (d *Descriptor) Declares(tok token.Token) bool {
	_, ok := d.DeclarationTokens[tok]
	return ok
}

// SortClauses orders Clauses by TryOffset ascending, then by nesting
// (innermost first for equal offsets, approximated here by shorter
// TryLength sorting first), per spec.md §3.4.
func (d *Descriptor) SortClauses() {
	sort.SliceStable(d.Clauses, func(i, j int) bool {
		a, b := d.Clauses[i], d.Clauses[j]
		if a.TryOffset != b.TryOffset {
			return a.TryOffset < b.TryOffset
		}
		return a.TryLength < b.TryLength
	})
}

// ClausesCovering returns, in search order, the clauses whose try range
// covers pc — the candidates the exception machine's first pass scans.
func (d *Descriptor) ClausesCovering(pc int) []ExceptionClause {
	var out []ExceptionClause
	for _, c := range d.Clauses {
		if c.Covers(pc) {
			out = append(out, c)
		}
	}
	return out
}
