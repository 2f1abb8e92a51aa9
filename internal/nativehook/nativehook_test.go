package nativehook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clrfirmata/ilengine/internal/class"
	"github.com/clrfirmata/ilengine/internal/gc"
	"github.com/clrfirmata/ilengine/internal/slot"
)

type fakeBoard struct {
	NullBoard
	modes   map[int]PinMode
	writes  map[int]bool
	reads   map[int]bool
	millis  uint32
	micros  uint32
	rand    byte
	slept   uint32
	pinCnt  int
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{modes: map[int]PinMode{}, writes: map[int]bool{}, reads: map[int]bool{}}
}

func (b *fakeBoard) SetPinMode(pin int, mode PinMode) { b.modes[pin] = mode }
func (b *fakeBoard) DigitalWrite(pin int, high bool)  { b.writes[pin] = high }
func (b *fakeBoard) DigitalRead(pin int) bool         { return b.reads[pin] }
func (b *fakeBoard) PinMode(pin int) (PinMode, bool) {
	m, ok := b.modes[pin]
	return m, ok
}
func (b *fakeBoard) IsDigitalPin(pin int) bool     { return true }
func (b *fakeBoard) PinCount() int                 { return b.pinCnt }
func (b *fakeBoard) Millis() uint32                { return b.millis }
func (b *fakeBoard) Micros() uint32                { return b.micros }
func (b *fakeBoard) SleepMicroseconds(us uint32)   { b.slept = us }
func (b *fakeBoard) RandomByte() byte              { return b.rand }

func newTestHost(t *testing.T) (*Host, *fakeBoard, *gc.Heap) {
	t.Helper()
	classes := class.NewTable()
	heap := gc.New(classes)
	board := newFakeBoard()
	return NewHost(board, heap, nil), board, heap
}

func TestPinModeAndReadWrite(t *testing.T) {
	h, board, _ := newTestHost(t)

	var out slot.Slot
	ok := h.handlers[HardwareLevelAccessSetPinMode](nil, []slot.Slot{{}, slot.Int32Slot(5), slot.Int32Slot(1)}, &out)
	require.True(t, ok)
	assert.Equal(t, PinModeOutput, board.modes[5])

	ok = h.handlers[HardwareLevelAccessWritePin](nil, []slot.Slot{{}, slot.Int32Slot(5), slot.Int32Slot(1)}, &out)
	require.True(t, ok)
	assert.True(t, board.writes[5])

	board.reads[7] = true
	ok = h.handlers[HardwareLevelAccessReadPin](nil, []slot.Slot{{}, slot.Int32Slot(7)}, &out)
	require.True(t, ok)
	assert.Equal(t, int32(1), out.I32())
}

func TestInvokeUnregisteredReturnsFalse(t *testing.T) {
	h, _, _ := newTestHost(t)
	_, ok := h.Invoke(nil, 9999, nil)
	assert.False(t, ok)
}

func TestTickCountAndMicroseconds(t *testing.T) {
	h, board, _ := newTestHost(t)
	board.millis = 42
	board.micros = 4200

	result, ok := h.Invoke(nil, EnvironmentTickCount, nil)
	require.True(t, ok)
	assert.Equal(t, int32(42), result.I32())

	result, ok = h.Invoke(nil, ArduinoNativeHelpersGetMicroseconds, nil)
	require.True(t, ok)
	assert.Equal(t, uint32(4200), result.U32())
}

func TestStringRoundTripViaHeap(t *testing.T) {
	h, _, heap := newTestHost(t)
	addr, err := heap.NewString(1, []uint16{'h', 'i'})
	require.NoError(t, err)

	result, ok := h.Invoke(nil, StringGetElem, []slot.Slot{slot.ObjectSlot(uint32(addr)), slot.Int32Slot(0)})
	require.True(t, ok)
	assert.Equal(t, int32('h'), result.I32())

	other, err := heap.NewString(1, []uint16{'h', 'i'})
	require.NoError(t, err)
	result, ok = h.Invoke(nil, StringEquals, []slot.Slot{slot.ObjectSlot(uint32(addr)), slot.ObjectSlot(uint32(other))})
	require.True(t, ok)
	assert.True(t, result.Bool())
}

func TestMathHandlers(t *testing.T) {
	h, _, _ := newTestHost(t)
	result, ok := h.Invoke(nil, MathSqrt, []slot.Slot{slot.DoubleSlot(9)})
	require.True(t, ok)
	assert.Equal(t, float64(3), result.F64())

	result, ok = h.Invoke(nil, MathPow, []slot.Slot{slot.DoubleSlot(2), slot.DoubleSlot(10)})
	require.True(t, ok)
	assert.Equal(t, float64(1024), result.F64())
}

func TestRandomBytesWritesIntoHeap(t *testing.T) {
	h, board, heap := newTestHost(t)
	board.rand = 0xAB
	addr, err := heap.Alloc(4, "buf")
	require.NoError(t, err)

	_, ok := h.Invoke(nil, InteropGetRandomBytes, []slot.Slot{slot.ObjectSlot(uint32(addr)), slot.Int32Slot(4)})
	require.True(t, ok)
	for i := 0; i < 4; i++ {
		assert.Equal(t, byte(0xAB), heap.Memory[addr+i])
	}
}

func TestGcDiagnostics(t *testing.T) {
	h, _, heap := newTestHost(t)
	_, err := heap.Alloc(64, "x")
	require.NoError(t, err)

	result, ok := h.Invoke(nil, GcGetTotalMemory, nil)
	require.True(t, ok)
	assert.True(t, result.I64() > 0)
}
