package interp

import (
	"github.com/clrfirmata/ilengine/internal/engineerr"
)

func errOpBounds(pc int) error {
	return engineerr.Newf(engineerr.InvalidOpCode, uint32(pc), "interp: instruction decode ran past method body at pc=%d", pc)
}

func errInvalidOp(op Opcode) error {
	return engineerr.Newf(engineerr.InvalidOpCode, uint32(op), "interp: opcode %d out of range", op)
}
