package interp

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clrfirmata/ilengine/internal/exmachine"
	"github.com/clrfirmata/ilengine/internal/slot"
)

func (a *asm) i64(op Opcode, v int64) *asm {
	a.buf = append(a.buf, byte(op))
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	a.buf = append(a.buf, b[:]...)
	return a
}

func (a *asm) r8(v float64) *asm {
	return a.i64(OpLdcR8, int64(math.Float64bits(v)))
}

// runConv assembles "push v, conv, ret" and runs it to completion.
func runConv(t *testing.T, push func(*asm), convOp Opcode) (slot.Slot, *exmachine.ManagedException) {
	t.Helper()
	f := newFixture(t)

	var a asm
	push(&a)
	a.op(convOp)
	a.op(OpRet)

	m := declMethod(f, 0x06000070, 0, 0, 4, nil, a.code())
	frame := NewFrame(m, nil, nil)
	_, res := f.ip.RunSlice(frame)

	if res.Status == UnhandledException {
		return slot.Slot{}, res.Exception
	}
	require.Equal(t, Completed, res.Status)
	return res.Result, nil
}

func TestConvI4TruncatesInt64BeyondFloat64Precision(t *testing.T) {
	// 2^53+1: the smallest Int64 that float64 cannot represent exactly.
	// Truncation to the low 32 bits must still yield 1, not 0.
	const beyondPrecision = int64(1) << 53
	result, exc := runConv(t, func(a *asm) { a.i64(OpLdcI8, beyondPrecision+1) }, OpConvI4)
	require.Nil(t, exc)
	assert.Equal(t, int32(1), result.I32())
}

func TestConvU8TruncatesInt64BeyondFloat64Precision(t *testing.T) {
	const beyondPrecision = int64(1) << 53
	result, exc := runConv(t, func(a *asm) { a.i64(OpLdcI8, beyondPrecision+1) }, OpConvU8)
	require.Nil(t, exc)
	assert.Equal(t, uint64(beyondPrecision+1), result.U64())
}

func TestConvI4RoundTripsSmallValue(t *testing.T) {
	result, exc := runConv(t, func(a *asm) { a.i32(OpLdcI4, 7) }, OpConvI4)
	require.Nil(t, exc)
	assert.Equal(t, int32(7), result.I32())
}

func TestConvOvfI4ThrowsOnOverflow(t *testing.T) {
	_, exc := runConv(t, func(a *asm) { a.i64(OpLdcI8, int64(1)<<40) }, OpConvOvfI4)
	require.NotNil(t, exc)
	assert.Equal(t, exmachine.Overflow, exc.Kind)
}

func TestConvOvfU8ThrowsOnNegativeSource(t *testing.T) {
	_, exc := runConv(t, func(a *asm) { a.i64(OpLdcI8, -1) }, OpConvOvfU8)
	require.NotNil(t, exc)
	assert.Equal(t, exmachine.Overflow, exc.Kind)
}

func TestConvI1WrapsUnchecked(t *testing.T) {
	result, exc := runConv(t, func(a *asm) { a.i32(OpLdcI4, 0x1FF) }, OpConvI1)
	require.Nil(t, exc)
	assert.Equal(t, int32(int8(0xFF)), result.I32())
}

func TestConvOvfI1ThrowsOnOverflow(t *testing.T) {
	_, exc := runConv(t, func(a *asm) { a.i32(OpLdcI4, 200) }, OpConvOvfI1)
	require.NotNil(t, exc)
	assert.Equal(t, exmachine.Overflow, exc.Kind)
}

func TestConvU8FromFloatAboveInt64RangeDoesNotGoThroughInt64(t *testing.T) {
	// 2^63 + 2^11: within conv.ovf.u8's own accepted range (0, MaxUint64],
	// but beyond what int64 can hold — a prior version of this conversion
	// truncated through int64(f) first, which is out of range for values
	// this large and produced a nonsense result.
	const v = float64(1<<63) + (1 << 11)
	result, exc := runConv(t, func(a *asm) { a.r8(v) }, OpConvU8)
	require.Nil(t, exc)
	assert.Equal(t, uint64(v), result.U64())
}

func TestConvR8FromInt64LosesPrecisionByDesign(t *testing.T) {
	// Unlike the integer-target conversions above, conv.r8's whole point is
	// an IEEE-754 value, so rounding beyond 2^53 here is correct behavior,
	// not the bug the integer path was fixed for.
	const beyondPrecision = int64(1) << 53
	result, exc := runConv(t, func(a *asm) { a.i64(OpLdcI8, beyondPrecision+1) }, OpConvR8)
	require.Nil(t, exc)
	assert.Equal(t, float64(beyondPrecision), result.F64())
}
