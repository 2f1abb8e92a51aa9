package loader

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clrfirmata/ilengine/internal/class"
	"github.com/clrfirmata/ilengine/internal/constheap"
	"github.com/clrfirmata/ilengine/internal/flash"
	"github.com/clrfirmata/ilengine/internal/gc"
	"github.com/clrfirmata/ilengine/internal/interp"
	"github.com/clrfirmata/ilengine/internal/method"
	"github.com/clrfirmata/ilengine/internal/slot"
	"github.com/clrfirmata/ilengine/internal/token"
	"github.com/clrfirmata/ilengine/internal/wire"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	classes := class.NewTable()
	methods := method.NewTable()
	consts := constheap.New()
	heap := gc.New(classes)
	ip := interp.New(heap, classes, methods, consts, nil, gc.SpecialTokens{}, 256)

	dir := t.TempDir()
	var fp [30]byte
	fm, err := flash.NewManager(filepath.Join(dir, "flash.img"), 64*1024, 256, fp)
	require.NoError(t, err)
	t.Cleanup(func() { fm.Close() })

	return New(classes, methods, consts, heap, fm, ip, nil)
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
func u16le(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func declareMethodPayload(tok, owner uint32, flags uint16, maxStack, numArgs byte) []byte {
	var b bytes.Buffer
	b.Write(u32le(tok))
	b.Write(u32le(owner))
	b.Write(u16le(flags))
	b.WriteByte(maxStack)
	b.WriteByte(numArgs)
	return b.Bytes()
}

func TestDeclareMethodCreatesStub(t *testing.T) {
	l := newTestLoader(t)
	resp := l.Dispatch(wire.Frame{SubCommand: byte(SubDeclareMethod), Payload: declareMethodPayload(0x06000001, 0, 3, 8, 2)})
	assert.Equal(t, wire.Ack, resp.SubCommand)

	d, ok := l.Methods.GetByKey(tokenOf(0x06000001))
	require.True(t, ok)
	assert.Equal(t, 8, d.MaxStack)
	assert.Equal(t, 2, d.NumArgs)
	assert.EqualValues(t, 3, d.Flags)
}

func TestLoadIlSplicesAcrossRequests(t *testing.T) {
	l := newTestLoader(t)
	l.Dispatch(wire.Frame{SubCommand: byte(SubDeclareMethod), Payload: declareMethodPayload(0x06000002, 0, 0, 4, 0)})

	full := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05}
	var p1 bytes.Buffer
	p1.Write(u32le(0x06000002))
	p1.Write(u32le(uint32(len(full))))
	p1.Write(u32le(0))
	p1.Write(full[:3])
	resp := l.Dispatch(wire.Frame{SubCommand: byte(SubLoadIl), Payload: p1.Bytes()})
	require.Equal(t, wire.Ack, resp.SubCommand)

	var p2 bytes.Buffer
	p2.Write(u32le(0x06000002))
	p2.Write(u32le(uint32(len(full))))
	p2.Write(u32le(3))
	p2.Write(full[3:])
	resp = l.Dispatch(wire.Frame{SubCommand: byte(SubLoadIl), Payload: p2.Bytes()})
	require.Equal(t, wire.Ack, resp.SubCommand)

	d, ok := l.Methods.GetByKey(tokenOf(0x06000002))
	require.True(t, ok)
	assert.Equal(t, full, d.Code)
}

func TestStartTaskRejectedWhileBusy(t *testing.T) {
	l := newTestLoader(t)
	l.Dispatch(wire.Frame{SubCommand: byte(SubDeclareMethod), Payload: declareMethodPayload(0x06000003, 0, 0, 4, 0)})
	d, _ := l.Methods.GetByKey(tokenOf(0x06000003))
	d.Code = []byte{0x2A} // opcode value irrelevant; never executed in this test

	var p bytes.Buffer
	p.Write(u32le(0x06000003))
	p.WriteByte(0)
	resp := l.Dispatch(wire.Frame{SubCommand: byte(SubStartTask), Payload: p.Bytes()})
	require.Equal(t, wire.Ack, resp.SubCommand)
	assert.True(t, l.Running())

	resp = l.Dispatch(wire.Frame{SubCommand: byte(SubStartTask), Payload: p.Bytes()})
	assert.Equal(t, wire.Nack, resp.SubCommand)
	assert.Equal(t, byte(ErrEngineBusy), resp.Payload[1])
}

func TestKillTaskAllowedWhileBusy(t *testing.T) {
	l := newTestLoader(t)
	l.Dispatch(wire.Frame{SubCommand: byte(SubDeclareMethod), Payload: declareMethodPayload(0x06000004, 0, 0, 4, 0)})
	d, _ := l.Methods.GetByKey(tokenOf(0x06000004))
	d.Code = []byte{0x2A}

	var p bytes.Buffer
	p.Write(u32le(0x06000004))
	p.WriteByte(0)
	l.Dispatch(wire.Frame{SubCommand: byte(SubStartTask), Payload: p.Bytes()})
	require.True(t, l.Running())

	resp := l.Dispatch(wire.Frame{SubCommand: byte(SubKillTask), Payload: nil})
	assert.Equal(t, wire.Ack, resp.SubCommand)
	assert.False(t, l.Running())
	require.NotNil(t, l.LastResult)
	assert.Equal(t, StateKilled, l.LastResult.State)
}

func TestClassDeclarationAddsFields(t *testing.T) {
	l := newTestLoader(t)
	var p bytes.Buffer
	p.Write(u32le(0x02000001))
	p.Write(u32le(0))
	p.Write(u32le(0))
	p.WriteByte(0)
	p.WriteByte(2)
	p.WriteByte(byte(slot.Int32))
	p.Write(u16le(4))
	p.WriteByte(byte(slot.Double))
	p.Write(u16le(8))
	resp := l.Dispatch(wire.Frame{SubCommand: byte(SubClassDeclaration), Payload: p.Bytes()})
	require.Equal(t, wire.Ack, resp.SubCommand)

	cls, ok := l.Classes.GetByKey(tokenOf(0x02000001))
	require.True(t, ok)
	require.Len(t, cls.Fields, 2)
	assert.Equal(t, 0, cls.Fields[0].Offset)
	assert.Equal(t, 4, cls.Fields[1].Offset)
	assert.Equal(t, 12, cls.DynamicSize)
}

func TestConstantDataPopulatesHeap(t *testing.T) {
	l := newTestLoader(t)
	var p bytes.Buffer
	p.Write(u32le(0x70000001))
	p.Write(u32le(0))
	p.Write([]byte("hi"))
	resp := l.Dispatch(wire.Frame{SubCommand: byte(SubConstantData), Payload: p.Bytes()})
	require.Equal(t, wire.Ack, resp.SubCommand)

	data, ok := l.Consts.Get(tokenOf(0x70000001))
	require.True(t, ok)
	assert.Equal(t, []byte("hi"), data)
}

func TestCopyToFlashThenWriteHeaderThenCheckVersion(t *testing.T) {
	l := newTestLoader(t)
	l.Dispatch(wire.Frame{SubCommand: byte(SubDeclareMethod), Payload: declareMethodPayload(0x06000005, 0, 0, 2, 0)})

	resp := l.Dispatch(wire.Frame{SubCommand: byte(SubCopyToFlash), Payload: nil})
	require.Equal(t, wire.Ack, resp.SubCommand)

	var hp bytes.Buffer
	hp.Write(u32le(7))
	hp.Write(u32le(0xABCDEF01))
	hp.Write(u32le(0x06000005))
	hp.Write(u32le(0))
	resp = l.Dispatch(wire.Frame{SubCommand: byte(SubWriteFlashHeader), Payload: hp.Bytes()})
	require.Equal(t, wire.Ack, resp.SubCommand)

	var cp bytes.Buffer
	cp.Write(u32le(7))
	cp.Write(u32le(0xABCDEF01))
	resp = l.Dispatch(wire.Frame{SubCommand: byte(SubCheckFlashVersion), Payload: cp.Bytes()})
	assert.Equal(t, wire.Ack, resp.SubCommand)
}

func TestRestoreFromFlashRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flash.img")
	var fp [30]byte

	build := func() *Loader {
		classes := class.NewTable()
		methods := method.NewTable()
		consts := constheap.New()
		heap := gc.New(classes)
		ip := interp.New(heap, classes, methods, consts, nil, gc.SpecialTokens{}, 256)
		fm, err := flash.NewManager(path, 64*1024, 256, fp)
		require.NoError(t, err)
		return New(classes, methods, consts, heap, fm, ip, nil)
	}

	l1 := build()
	l1.Dispatch(wire.Frame{SubCommand: byte(SubDeclareMethod), Payload: declareMethodPayload(0x06000006, 0, 1, 3, 1)})
	var ilp bytes.Buffer
	ilp.Write(u32le(0x06000006))
	ilp.Write(u32le(1))
	ilp.Write(u32le(0))
	ilp.WriteByte(0x2A)
	l1.Dispatch(wire.Frame{SubCommand: byte(SubLoadIl), Payload: ilp.Bytes()})
	l1.Dispatch(wire.Frame{SubCommand: byte(SubCopyToFlash), Payload: nil})
	var hp bytes.Buffer
	hp.Write(u32le(1))
	hp.Write(u32le(2))
	hp.Write(u32le(0))
	hp.Write(u32le(0))
	l1.Dispatch(wire.Frame{SubCommand: byte(SubWriteFlashHeader), Payload: hp.Bytes()})
	l1.Flash.Close()

	classes := class.NewTable()
	methods := method.NewTable()
	consts := constheap.New()
	heap := gc.New(classes)
	ip := interp.New(heap, classes, methods, consts, nil, gc.SpecialTokens{}, 256)
	fm, err := flash.NewManager(path, 64*1024, 256, fp)
	require.NoError(t, err)
	defer fm.Close()
	valid, err := fm.Mount()
	require.NoError(t, err)
	require.True(t, valid)

	l2 := New(classes, methods, consts, heap, fm, ip, nil)
	require.NoError(t, l2.RestoreFromFlash())

	d, ok := methods.GetByKey(tokenOf(0x06000006))
	require.True(t, ok)
	assert.Equal(t, []byte{0x2A}, d.Code)
}

func tokenOf(v uint32) token.Token { return token.Token(v) }
