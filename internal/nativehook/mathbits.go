package nativehook

import (
	"math"

	"github.com/clrfirmata/ilengine/internal/interp"
	"github.com/clrfirmata/ilengine/internal/slot"
)

// registerMathAndBits implements the System.Math and System.BitConverter
// subset of original_source/NativeMethod.h. These are pure functions of
// their arguments (no board or heap state), unlike the hardware and
// string handlers.
func registerMathAndBits(h *Host) {
	h.handlers[MathCeiling] = mathUnary(math.Ceil)
	h.handlers[MathFloor] = mathUnary(math.Floor)
	h.handlers[MathLog] = mathUnary(math.Log)
	h.handlers[MathLog2] = mathUnary(math.Log2)
	h.handlers[MathLog10] = mathUnary(math.Log10)
	h.handlers[MathSin] = mathUnary(math.Sin)
	h.handlers[MathCos] = mathUnary(math.Cos)
	h.handlers[MathTan] = mathUnary(math.Tan)
	h.handlers[MathSqrt] = mathUnary(math.Sqrt)
	h.handlers[MathExp] = mathUnary(math.Exp)
	h.handlers[MathAbs] = mathUnary(math.Abs)

	h.handlers[MathPow] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.DoubleSlot(math.Pow(args[0].F64(), args[1].F64()))
		return true
	}

	h.handlers[BitConverterSingleToInt32Bits] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.Int32Slot(int32(math.Float32bits(args[0].F32())))
		return true
	}
	h.handlers[BitConverterInt32BitsToSingle] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.FloatSlot(math.Float32frombits(uint32(args[0].I32())))
		return true
	}
	h.handlers[BitConverterDoubleToInt64Bits] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.Int64Slot(int64(math.Float64bits(args[0].F64())))
		return true
	}
	h.handlers[BitConverterInt64BitsToDouble] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.DoubleSlot(math.Float64frombits(uint64(args[0].I64())))
		return true
	}
}

// mathUnary adapts a float64->float64 stdlib math function to HandlerFunc.
func mathUnary(f func(float64) float64) HandlerFunc {
	return func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.DoubleSlot(f(args[0].F64()))
		return true
	}
}
