// Package engineerr defines the engine-error taxonomy (spec.md §7): fatal
// errors that abort the running task, as distinct from managed system
// exceptions (internal/exmachine) which guest IL can catch, and loader
// errors (internal/loader) which are reported as Nack and leave state
// unchanged.
package engineerr

import "fmt"

// Kind is one of the four fatal engine-error kinds named in spec.md §7.
type Kind int

const (
	InvalidOpCode Kind = iota
	MemoryCorruption
	FlashCorruption
	Protocol
)

func (k Kind) String() string {
	switch k {
	case InvalidOpCode:
		return "InvalidOpCode"
	case MemoryCorruption:
		return "MemoryCorruption"
	case FlashCorruption:
		return "FlashCorruption"
	case Protocol:
		return "Protocol"
	}
	return "EngineError(?)"
}

// Error is a fatal engine error: "Engine errors unwind every frame and end
// the task with status Aborted; the host receives a result frame carrying
// the error kind and the faulting token" (spec.md §7).
type Error struct {
	Kind  Kind
	Token uint32
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("engine error %s (token=%#x): %v", e.Kind, e.Token, e.Cause)
	}
	return fmt.Sprintf("engine error %s (token=%#x)", e.Kind, e.Token)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given kind, optionally wrapping cause.
func New(kind Kind, tok uint32, cause error) *Error {
	return &Error{Kind: kind, Token: tok, Cause: cause}
}

// Newf constructs an Error with a formatted cause message, matching the
// teacher's fmt.Errorf-based error style throughout
// std/compiler/backend*.go.
func Newf(kind Kind, tok uint32, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Token: tok, Cause: fmt.Errorf(format, args...)}
}
