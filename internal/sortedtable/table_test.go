package sortedtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type intEntry struct {
	K K
	V string
}

type K = uint32

func (e intEntry) Key() K { return e.K }

func TestInsertAndLookup(t *testing.T) {
	tbl := New[K, intEntry]()
	tbl.Insert(intEntry{K: 5, V: "five"})
	tbl.Insert(intEntry{K: 1, V: "one"})

	got, ok := tbl.GetByKey(5, false)
	require.True(t, ok)
	assert.Equal(t, "five", got.V)

	_, ok = tbl.GetByKey(99, false)
	assert.False(t, ok)
}

func TestCopyToFlashFreezesAndOrders(t *testing.T) {
	tbl := New[K, intEntry]()
	tbl.Insert(intEntry{K: 5, V: "five"})
	tbl.Insert(intEntry{K: 1, V: "one"})
	tbl.Insert(intEntry{K: 3, V: "three"})

	frozen := tbl.CopyToFlash()
	require.Len(t, frozen, 3)
	assert.Equal(t, 0, tbl.RAMLen())
	assert.Equal(t, -1, tbl.ValidateOrder())

	for i := 1; i < len(frozen); i++ {
		assert.Less(t, frozen[i-1].Key(), frozen[i].Key())
	}

	got, ok := tbl.GetByKey(3, false)
	require.True(t, ok)
	assert.Equal(t, "three", got.V)
}

func TestInsertAfterFreezeShadowsFrozenEntry(t *testing.T) {
	tbl := New[K, intEntry]()
	tbl.Insert(intEntry{K: 1, V: "one"})
	tbl.CopyToFlash()

	tbl.Insert(intEntry{K: 1, V: "one-updated"})
	got, ok := tbl.GetByKey(1, false)
	require.True(t, ok)
	assert.Equal(t, "one-updated", got.V, "RAM entries shadow frozen ones")
}

func TestClearIncludingFlash(t *testing.T) {
	tbl := New[K, intEntry]()
	tbl.Insert(intEntry{K: 1, V: "one"})
	tbl.CopyToFlash()
	tbl.Clear(true)
	assert.Equal(t, 0, tbl.FrozenLen())
}

func TestValidateOrderDetectsViolation(t *testing.T) {
	tbl := New[K, intEntry]()
	tbl.Insert(intEntry{K: 1})
	tbl.Insert(intEntry{K: 2})
	tbl.CopyToFlash()
	// Tamper directly to simulate a corrupted flash list.
	frozen := tbl.Frozen()
	frozen[0], frozen[1] = frozen[1], frozen[0]
	assert.NotEqual(t, -1, tbl.ValidateOrder())
}
