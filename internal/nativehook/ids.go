package nativehook

import "github.com/clrfirmata/ilengine/internal/method"

// Native method IDs, reusing original_source/NativeMethod.h's own numeric
// values so this table lines up with tokens emitted by a real loader
// without translation. Only the subset this package implements a handler
// for is named here; spec.md §6.1 names roughly 150 entries in total, and
// implementers are explicitly permitted to stub any subset.
const (
	HardwareLevelAccessSetPinMode         method.NativeMethodID = 1
	HardwareLevelAccessWritePin           method.NativeMethodID = 2
	HardwareLevelAccessReadPin            method.NativeMethodID = 3
	HardwareLevelAccessGetPinMode         method.NativeMethodID = 4
	HardwareLevelAccessIsPinModeSupported method.NativeMethodID = 5
	HardwareLevelAccessGetPinCount        method.NativeMethodID = 6
	EnvironmentTickCount                  method.NativeMethodID = 7
	EnvironmentTickCount64                method.NativeMethodID = 8
	EnvironmentProcessorCount             method.NativeMethodID = 9
	ArduinoNativeHelpersSleepMicroseconds method.NativeMethodID = 12
	ArduinoNativeHelpersGetMicroseconds   method.NativeMethodID = 13
	ObjectEquals                          method.NativeMethodID = 14
	ObjectGetHashCode                     method.NativeMethodID = 15
	ObjectReferenceEquals                 method.NativeMethodID = 16

	StringEquals       method.NativeMethodID = 23
	StringGetHashCode  method.NativeMethodID = 25
	StringSetElem      method.NativeMethodID = 26
	StringGetElem      method.NativeMethodID = 27
	StringEqualsStatic method.NativeMethodID = 30

	BitConverterSingleToInt32Bits method.NativeMethodID = 64
	BitConverterDoubleToInt64Bits method.NativeMethodID = 65
	BitConverterInt64BitsToDouble method.NativeMethodID = 67
	BitConverterInt32BitsToSingle method.NativeMethodID = 68

	InteropGetRandomBytes method.NativeMethodID = 98

	ArrayGetLength method.NativeMethodID = 119

	GcGetTotalMemory           method.NativeMethodID = 122
	GcGetTotalAllocatedBytes   method.NativeMethodID = 123
	GcTotalAvailableMemoryBytes method.NativeMethodID = 124

	MathCeiling method.NativeMethodID = 125
	MathFloor   method.NativeMethodID = 126
	MathPow     method.NativeMethodID = 127
	MathLog     method.NativeMethodID = 128
	MathLog2    method.NativeMethodID = 129
	MathLog10   method.NativeMethodID = 130
	MathSin     method.NativeMethodID = 131
	MathCos     method.NativeMethodID = 132
	MathTan     method.NativeMethodID = 133
	MathSqrt    method.NativeMethodID = 134
	MathExp     method.NativeMethodID = 135
	MathAbs     method.NativeMethodID = 136
)
