package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clrfirmata/ilengine/internal/class"
	"github.com/clrfirmata/ilengine/internal/slot"
	"github.com/clrfirmata/ilengine/internal/token"
)

func newLinkedClass() (*class.Table, token.Token) {
	classes := class.NewTable()
	tok := token.Token(1)
	cls := classes.Declare(tok)
	cls.AddField("next", slot.Decl(slot.Object, 0))
	return classes, tok
}

func TestAllocValidatesBlockChain(t *testing.T) {
	classes, _ := newLinkedClass()
	heap := New(classes)

	addr, err := heap.Alloc(64, "payload")
	require.NoError(t, err)
	assert.NotZero(t, addr)
	assert.NoError(t, heap.ValidateBlocks())
	assert.EqualValues(t, 64, heap.MemInUse())
}

func TestCollectKeepsObjectsReachableFromStaticRoot(t *testing.T) {
	classes, tok := newLinkedClass()
	heap := New(classes)
	cls, _ := classes.GetByKey(tok)

	addrB, err := heap.NewObject(tok, cls.DynamicSize)
	require.NoError(t, err)
	addrA, err := heap.NewObject(tok, cls.DynamicSize)
	require.NoError(t, err)
	heap.WriteU32(addrA+HeaderSize, uint32(addrB))

	before := heap.MemInUse()
	root := Roots{Statics: []slot.Slot{slot.ObjectSlot(uint32(addrA))}}
	heap.Collect(root, SpecialTokens{})

	assert.Equal(t, before, heap.MemInUse(), "both linked objects must survive a collection rooted at A")
	assert.NoError(t, heap.ValidateBlocks())
}

func TestCollectReclaimsUnreachableObjects(t *testing.T) {
	classes, tok := newLinkedClass()
	heap := New(classes)
	cls, _ := classes.GetByKey(tok)

	_, err := heap.NewObject(tok, cls.DynamicSize)
	require.NoError(t, err)
	require.NotZero(t, heap.MemInUse())

	heap.Collect(Roots{}, SpecialTokens{})

	assert.Zero(t, heap.MemInUse())
	assert.NoError(t, heap.ValidateBlocks())
}

func TestCollectDropsHalfOfAnUnlinkedChain(t *testing.T) {
	classes, tok := newLinkedClass()
	heap := New(classes)
	cls, _ := classes.GetByKey(tok)

	addrB, err := heap.NewObject(tok, cls.DynamicSize)
	require.NoError(t, err)
	addrA, err := heap.NewObject(tok, cls.DynamicSize)
	require.NoError(t, err)
	heap.WriteU32(addrA+HeaderSize, uint32(addrB))

	// Root only B: A (and its pointer to B) is garbage, B survives.
	heap.Collect(Roots{Statics: []slot.Slot{slot.ObjectSlot(uint32(addrB))}}, SpecialTokens{})

	oneObject := int64(HeaderSize + cls.DynamicSize)
	assert.Equal(t, oneObject, heap.MemInUse())
}
