package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldSizeInvariant(t *testing.T) {
	// The 64-bit kinds are 8 bytes wide. In this package's Kind numbering
	// Int64, Uint64 and Double do not carry bit 4; fieldSize names them
	// explicitly.
	for _, k := range []Kind{Int64, Uint64, Double} {
		s := New(k, 0, 0)
		assert.Equal(t, 8, s.FieldSize(), "%s should be 8 bytes", k)
	}
	for _, k := range []Kind{Object, ReferenceArray, ValueArray, AddressOfVariable} {
		s := New(k, 0, 0)
		assert.Equal(t, PointerSize, s.FieldSize(), "%s should be pointer-sized", k)
	}
	assert.Equal(t, 4, New(Int32, 0, 0).FieldSize())
}

func TestAssignRequiresMatchingSize(t *testing.T) {
	dst := New(Int32, 0, 4)
	src := New(Int64, 0, 8)
	err := dst.AssignFrom(src)
	require.Error(t, err)

	decl := Decl(Int64, 8)
	require.NoError(t, decl.AssignFrom(New(Int32, 7, 4)))
	assert.EqualValues(t, 7, decl.Payload)
}

func TestRoundTripScalars(t *testing.T) {
	assert.Equal(t, int32(-7), Int32Slot(-7).I32())
	assert.Equal(t, uint32(42), Uint32Slot(42).U32())
	assert.Equal(t, int64(-99), Int64Slot(-99).I64())
	assert.InDelta(t, 3.5, float64(FloatSlot(3.5).F32()), 1e-6)
	assert.InDelta(t, 3.25, DoubleSlot(3.25).F64(), 1e-12)
	assert.True(t, BoolSlot(true).Bool())
	assert.False(t, BoolSlot(false).Bool())
}

func TestStaticMemberTag(t *testing.T) {
	k := Object | StaticMember
	assert.True(t, k.IsStatic())
	assert.Equal(t, Object, k.Base())
}

func TestLargeValueTypePayload(t *testing.T) {
	s := NewLarge([]byte{1, 2, 3, 4, 5})
	assert.Equal(t, 5, s.FieldSize())
	assert.Equal(t, LargeValueType, s.Kind)
}
