// Package exmachine implements the managed exception machine (spec C10):
// throw/rethrow, a two-pass unwind across typed catch/finally/filter
// clauses, and managed exception-object construction.
//
// The teacher's Go-subset IR has no exceptions at all, so there is no
// direct teacher analog for this package; its shape is grounded on
// original_source/FirmataIlExecutor.cpp's handler search (walking frames
// innermost-out, matching clause type against the thrown class) and
// original_source/ClrException.cpp (the managed exception object's shape:
// class token, message, inner exception).
package exmachine

import (
	"fmt"

	"github.com/clrfirmata/ilengine/internal/method"
	"github.com/clrfirmata/ilengine/internal/token"
)

// SystemExceptionKind names one of the catchable managed exception kinds
// from spec.md §7's "System exceptions" list.
type SystemExceptionKind int

const (
	NullReference SystemExceptionKind = iota
	InvalidCast
	IndexOutOfRange
	Overflow
	DivideByZero
	ArrayTypeMismatch
	InvalidOperation
	MissingMethod
	ClassNotFound
	NotSupported
	StackOverflow
	OutOfMemory
	FieldAccess
	Arithmetic
	IO
	Custom
)

func (k SystemExceptionKind) String() string {
	names := [...]string{
		"NullReference", "InvalidCast", "IndexOutOfRange", "Overflow",
		"DivideByZero", "ArrayTypeMismatch", "InvalidOperation",
		"MissingMethod", "ClassNotFound", "NotSupported", "StackOverflow",
		"OutOfMemory", "FieldAccess", "Arithmetic", "IO", "Custom",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "SystemException(?)"
}

// ManagedException is the exception object thrown and caught within the
// interpreter, never surfaced as a Go `error` (spec.md §7: "System
// exceptions propagate through the interpreter via the exception machine").
type ManagedException struct {
	Kind        SystemExceptionKind
	ClassToken  token.Token
	Message     string
	ObjectAddr  uint32 // heap address of the constructed exception object, 0 if not yet boxed
	Inner       *ManagedException
}

func (e *ManagedException) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

// New constructs a ManagedException of the given system kind.
func New(kind SystemExceptionKind, classToken token.Token, message string) *ManagedException {
	return &ManagedException{Kind: kind, ClassToken: classToken, Message: message}
}

// IsAssignableFrom is consulted by a Clause-type handler match (spec.md
// §4.8: "target class token is assignable from the exception's class").
// assignable is supplied by the caller (the interpreter, which has access
// to the class table's parent-walk) since this package stays class-table
// agnostic.
type AssignabilityCheck func(thrown, target token.Token) bool

// FindHandler runs the first pass of spec.md §4.8's throw path over a
// single frame's clause list: "scan its clause list in order; a clause
// matches when tryOffset <= pc < tryOffset+tryLength and ...". runFilter
// executes a Filter clause's filter region and reports whether it took the
// exception (non-zero return). Finally/Fault clauses never match here —
// they're handled in the second (unwind) pass.
func FindHandler(clauses []method.ExceptionClause, pc int, exc *ManagedException, assignable AssignabilityCheck, runFilter func(filterToken token.Token) bool) (method.ExceptionClause, bool) {
	for _, c := range clauses {
		if !c.Covers(pc) {
			continue
		}
		switch c.Type {
		case method.ClauseTypeClause:
			if assignable(exc.ClassToken, c.TargetClass) {
				return c, true
			}
		case method.ClauseTypeFilter:
			if runFilter(c.FilterToken) {
				return c, true
			}
		case method.ClauseTypeFinally, method.ClauseTypeFault:
			// do not match in first pass (spec.md §4.8)
		}
	}
	return method.ExceptionClause{}, false
}

// UnwindClauses returns, from a frame's clause list, the Finally clauses
// (and, when the exception is propagating rather than a normal `leave`,
// Fault clauses too) that must run while unwinding to matched, in
// execution order — spec.md §4.8's second pass: "For each unwound clause
// of type Finally (and Fault when the exception is propagating) execute
// the finally region."
func UnwindClauses(clauses []method.ExceptionClause, pc int, matched method.ExceptionClause, propagating bool) []method.ExceptionClause {
	var out []method.ExceptionClause
	for _, c := range clauses {
		if !c.Covers(pc) {
			continue
		}
		if c.TryOffset == matched.TryOffset && c.TryLength == matched.TryLength && c.Type == matched.Type {
			break // reached the matched clause itself; stop unwinding
		}
		switch c.Type {
		case method.ClauseTypeFinally:
			out = append(out, c)
		case method.ClauseTypeFault:
			if propagating {
				out = append(out, c)
			}
		}
	}
	return out
}

// LeaveClauses returns the Finally clauses overlapping the `leave` site's
// pc whose try range does not contain target — spec.md §4.8:
// "`leave` from inside a try triggers execution of any overlapping
// finallys in order before transferring to the target PC."
func LeaveClauses(clauses []method.ExceptionClause, pc, target int) []method.ExceptionClause {
	var out []method.ExceptionClause
	for _, c := range clauses {
		if c.Type != method.ClauseTypeFinally {
			continue
		}
		if c.Covers(pc) && !(target >= c.TryOffset && target < c.TryOffset+c.TryLength) {
			out = append(out, c)
		}
	}
	return out
}
