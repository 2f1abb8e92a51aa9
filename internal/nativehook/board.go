package nativehook

// PinMode mirrors the three digital pin modes HardwareAccess.cpp's
// SetPinMode/GetPinMode switch on (0=Input, 1=Output, 3=InputPullup — the
// numbering matches the guest-side PinMode enum, so no translation table
// is needed at the call boundary).
type PinMode int32

const (
	PinModeInput       PinMode = 0
	PinModeOutput      PinMode = 1
	PinModeInputPullup PinMode = 3
)

// BoardIO is the hardware leaf this engine's native hooks delegate to
// (spec.md §6.1's "GPIO read/write, tick counts ... etc" family, narrowed
// to an interface so a host can supply a real board driver or a test
// double). Every method is a single hardware primitive; a board that
// cannot support one (no RNG source, no filesystem) is free to return a
// zero value from the read-side methods — the native hook above it still
// reports the call as handled, exactly as the original firmware does when
// running on hardware that lacks a given peripheral. The one exception is
// PinMode: a false ok makes GetPinMode report the call as unhandled.
type BoardIO interface {
	SetPinMode(pin int, mode PinMode)
	DigitalWrite(pin int, high bool)
	DigitalRead(pin int) bool
	PinMode(pin int) (PinMode, bool)
	IsDigitalPin(pin int) bool
	PinCount() int
	Millis() uint32
	Micros() uint32
	SleepMicroseconds(us uint32)
	RandomByte() byte
}

// NullBoard is a BoardIO that answers every read with its zero value and
// discards every write — a usable default when a component only needs the
// native-method dispatch table to be present, not a real board (spec.md
// §6.1: "Implementers may stub any subset").
type NullBoard struct{}

func (NullBoard) SetPinMode(pin int, mode PinMode)  {}
func (NullBoard) DigitalWrite(pin int, high bool)   {}
func (NullBoard) DigitalRead(pin int) bool          { return false }
func (NullBoard) PinMode(pin int) (PinMode, bool)   { return PinModeInput, false }
func (NullBoard) IsDigitalPin(pin int) bool         { return true }
func (NullBoard) PinCount() int                     { return 0 }
func (NullBoard) Millis() uint32                    { return 0 }
func (NullBoard) Micros() uint32                    { return 0 }
func (NullBoard) SleepMicroseconds(us uint32)       {}
func (NullBoard) RandomByte() byte                  { return 0 }
