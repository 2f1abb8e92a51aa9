package interp

import (
	"encoding/binary"

	"github.com/clrfirmata/ilengine/internal/token"
)

// inst is one decoded instruction: the opcode plus whichever operand its
// operandKind calls for.
type inst struct {
	Op      Opcode
	I32     int32
	I64     int64
	Tok     token.Token
	Targets []int32 // only for OpSwitch
	Width   int      // total bytes consumed, including the opcode byte
}

// decode reads one instruction from code starting at pc.
func decode(code []byte, pc int) (inst, error) {
	if pc < 0 || pc >= len(code) {
		return inst{}, errOpBounds(pc)
	}
	op := Opcode(code[pc])
	if op >= opcodeCount {
		return inst{}, errInvalidOp(op)
	}
	width := 1
	var in inst
	in.Op = op

	switch operandKindOf(op) {
	case operandNone:
		// no operand bytes
	case operandI32:
		if pc+1+4 > len(code) {
			return inst{}, errOpBounds(pc)
		}
		in.I32 = int32(binary.LittleEndian.Uint32(code[pc+1 : pc+5]))
		width += 4
	case operandI64:
		if pc+1+8 > len(code) {
			return inst{}, errOpBounds(pc)
		}
		in.I64 = int64(binary.LittleEndian.Uint64(code[pc+1 : pc+9]))
		width += 8
	case operandToken:
		if pc+1+4 > len(code) {
			return inst{}, errOpBounds(pc)
		}
		in.Tok = token.Token(binary.LittleEndian.Uint32(code[pc+1 : pc+5]))
		width += 4
	case operandSwitchTable:
		if pc+1+4 > len(code) {
			return inst{}, errOpBounds(pc)
		}
		n := int(binary.LittleEndian.Uint32(code[pc+1 : pc+5]))
		width += 4
		if pc+width+n*4 > len(code) {
			return inst{}, errOpBounds(pc)
		}
		in.Targets = make([]int32, n)
		for i := 0; i < n; i++ {
			off := pc + width + i*4
			in.Targets[i] = int32(binary.LittleEndian.Uint32(code[off : off+4]))
		}
		width += n * 4
	}
	in.Width = width
	return in, nil
}
