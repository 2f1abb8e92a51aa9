package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clrfirmata/ilengine/internal/config"
	"github.com/clrfirmata/ilengine/internal/loader"
	"github.com/clrfirmata/ilengine/internal/nativehook"
	"github.com/clrfirmata/ilengine/internal/wire"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Config{
		BlockSize: 256, FrameStackWords: 32, SliceBudget: 256,
		FlashPath: filepath.Join(t.TempDir(), "flash.img"), FlashSize: 64 * 1024,
	}
	return cfg
}

func TestNewWiresEveryComponent(t *testing.T) {
	e, err := New(testConfig(t), nil, nativehook.NullBoard{})
	require.NoError(t, err)
	assert.NotNil(t, e.Heap)
	assert.NotNil(t, e.Classes)
	assert.NotNil(t, e.Methods)
	assert.NotNil(t, e.Consts)
	assert.NotNil(t, e.Flash)
	assert.NotNil(t, e.Natives)
	assert.NotNil(t, e.Interp)
	assert.NotNil(t, e.Loader)
}

func TestBootOnVirginPartitionIsANoOp(t *testing.T) {
	e, err := New(testConfig(t), nil, nativehook.NullBoard{})
	require.NoError(t, err)
	require.NoError(t, e.Boot())
	assert.False(t, e.Flash.Valid())
}

func TestGcCollectHandlerIsRegistered(t *testing.T) {
	e, err := New(testConfig(t), nil, nativehook.NullBoard{})
	require.NoError(t, err)

	_, err = e.Heap.Alloc(64, "garbage")
	require.NoError(t, err)

	_, ok := e.Natives.Invoke(nil, gcCollectNativeID, nil)
	assert.True(t, ok)
}

func TestDispatchDeclareMethodThroughEngineLoader(t *testing.T) {
	e, err := New(testConfig(t), nil, nativehook.NullBoard{})
	require.NoError(t, err)

	var p []byte
	p = append(p, wire.EncodeUint32(0x06000099)...) // methodToken
	p = append(p, wire.EncodeUint32(0)...)           // ownerClass
	p = append(p, 0, 0)                              // flags
	p = append(p, 4, 0)                              // maxStack, numArgs
	resp := e.Loader.Dispatch(wire.Frame{SubCommand: byte(loader.SubDeclareMethod), Payload: p})
	assert.Equal(t, wire.Ack, resp.SubCommand)
}
