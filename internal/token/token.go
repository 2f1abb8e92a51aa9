// Package token defines the 32-bit bytecode token (see spec.md GLOSSARY)
// used to identify classes, methods, fields, strings, and signatures
// across the wire protocol and the in-memory tables.
package token

// Token is a 32-bit identifier assigned by the host compiler. The top byte
// names the kind.
type Token uint32

// Kind byte values, per spec.md GLOSSARY.
const (
	KindMethodDef byte = 0x06
	KindMemberRef byte = 0x0A
	KindTypeDef   byte = 0x02
	KindUserString byte = 0x70
)

// Kind returns the top byte of t, identifying what it names.
func (t Token) Kind() byte { return byte(t >> 24) }

// Invalid is the zero token, never assigned to a real entity.
const Invalid Token = 0
