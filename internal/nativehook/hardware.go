package nativehook

import (
	"github.com/clrfirmata/ilengine/internal/interp"
	"github.com/clrfirmata/ilengine/internal/slot"
)

// registerHardwareAccess implements the GPIO/tick subset of
// original_source/HardwareAccess.cpp's ExecuteHardwareAccess switch.
// Argument indexing follows that file exactly: HardwareLevelAccess methods
// are instance methods (args[0] is the implicit `this`, the real
// parameters start at args[1]), while the ArduinoNativeHelpers/Environment
// methods are static (parameters start at args[0]).
func registerHardwareAccess(h *Host) {
	h.handlers[HardwareLevelAccessSetPinMode] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		pin := int(args[1].I32())
		switch PinMode(args[2].I32()) {
		case PinModeInput:
			h.board.SetPinMode(pin, PinModeInput)
		case PinModeOutput:
			h.board.SetPinMode(pin, PinModeOutput)
		case PinModeInputPullup:
			h.board.SetPinMode(pin, PinModeInputPullup)
		}
		return true
	}

	h.handlers[HardwareLevelAccessWritePin] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		h.board.DigitalWrite(int(args[1].I32()), args[2].I32() != 0)
		return true
	}

	h.handlers[HardwareLevelAccessReadPin] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		v := int32(0)
		if h.board.DigitalRead(int(args[1].I32())) {
			v = 1
		}
		*result = slot.Int32Slot(v)
		return true
	}

	h.handlers[HardwareLevelAccessGetPinMode] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		mode, ok := h.board.PinMode(int(args[1].I32()))
		if !ok {
			return false
		}
		*result = slot.Int32Slot(int32(mode))
		return true
	}

	h.handlers[HardwareLevelAccessIsPinModeSupported] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		mode := args[2].I32()
		supported := (mode == int32(PinModeInput) || mode == int32(PinModeOutput) || mode == int32(PinModeInputPullup)) &&
			h.board.IsDigitalPin(int(args[1].I32()))
		*result = slot.BoolSlot(supported)
		return true
	}

	h.handlers[HardwareLevelAccessGetPinCount] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.Int32Slot(int32(h.board.PinCount()))
		return true
	}

	h.handlers[EnvironmentTickCount] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.Int32Slot(int32(h.board.Millis()))
		return true
	}

	h.handlers[EnvironmentTickCount64] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.Int64Slot(int64(h.board.Millis()))
		return true
	}

	h.handlers[EnvironmentProcessorCount] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.Int32Slot(1)
		return true
	}

	h.handlers[ArduinoNativeHelpersSleepMicroseconds] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		h.board.SleepMicroseconds(args[0].U32())
		return true
	}

	h.handlers[ArduinoNativeHelpersGetMicroseconds] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		*result = slot.Uint32Slot(h.board.Micros())
		return true
	}

	h.handlers[InteropGetRandomBytes] = func(frame *interp.Frame, args []slot.Slot, result *slot.Slot) bool {
		ptr := int(args[0].Ptr())
		size := int(args[1].I32())
		for i := 0; i < size; i++ {
			h.heap.Memory[ptr+i] = h.board.RandomByte()
		}
		return true
	}
}
