package interp

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clrfirmata/ilengine/internal/class"
	"github.com/clrfirmata/ilengine/internal/constheap"
	"github.com/clrfirmata/ilengine/internal/exmachine"
	"github.com/clrfirmata/ilengine/internal/gc"
	"github.com/clrfirmata/ilengine/internal/method"
	"github.com/clrfirmata/ilengine/internal/slot"
	"github.com/clrfirmata/ilengine/internal/token"
)

// --- tiny bytecode assembler, test-only -------------------------------

type asm struct {
	buf []byte
}

func (a *asm) op(op Opcode) *asm {
	a.buf = append(a.buf, byte(op))
	return a
}

func (a *asm) i32(op Opcode, v int32) *asm {
	a.buf = append(a.buf, byte(op))
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	a.buf = append(a.buf, b[:]...)
	return a
}

func (a *asm) tok(op Opcode, t token.Token) *asm {
	a.buf = append(a.buf, byte(op))
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(t))
	a.buf = append(a.buf, b[:]...)
	return a
}

func (a *asm) pc() int32 { return int32(len(a.buf)) }

func (a *asm) code() []byte { return a.buf }

// --- shared test fixture -----------------------------------------------

type fixture struct {
	classes *class.Table
	methods *method.Table
	heap    *gc.Heap
	consts  *constheap.Heap
	ip      *Interpreter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	classes := class.NewTable()
	methods := method.NewTable()
	heap := gc.New(classes)
	consts := constheap.New()
	ip := New(heap, classes, methods, consts, nil, gc.SpecialTokens{ArrayToken: 0x02000099}, 1000)
	return &fixture{classes: classes, methods: methods, heap: heap, consts: consts, ip: ip}
}

func declMethod(f *fixture, tok token.Token, flags method.Flags, numArgs, maxStack int, locals []method.LocalDescriptor, code []byte) *method.Descriptor {
	m := f.methods.Declare(tok)
	m.Flags = flags
	m.NumArgs = numArgs
	m.MaxStack = maxStack
	m.Locals = locals
	m.Code = code
	return m
}

// --- arithmetic ----------------------------------------------------------

func TestArithmeticAdd(t *testing.T) {
	f := newFixture(t)

	var a asm
	a.i32(OpLdcI4, 7)
	a.i32(OpLdcI4, 35)
	a.op(OpAdd)
	a.op(OpRet)

	m := declMethod(f, 0x06000001, 0, 0, 4, nil, a.code())

	frame := NewFrame(m, nil, nil)
	resume, res := f.ip.RunSlice(frame)

	require.Nil(t, resume)
	assert.Equal(t, Completed, res.Status)
	assert.True(t, res.HasResult)
	assert.Equal(t, int32(42), res.Result.I32())
}

func TestDivideByZeroThrowsUnhandled(t *testing.T) {
	f := newFixture(t)

	var a asm
	a.i32(OpLdcI4, 1)
	a.i32(OpLdcI4, 0)
	a.op(OpDiv)
	a.op(OpRet)

	m := declMethod(f, 0x06000002, method.FlagVoid, 0, 4, nil, a.code())
	frame := NewFrame(m, nil, nil)
	resume, res := f.ip.RunSlice(frame)

	require.Nil(t, resume)
	assert.Equal(t, UnhandledException, res.Status)
	require.NotNil(t, res.Exception)
	assert.Equal(t, exmachine.DivideByZero, res.Exception.Kind)
}

// --- call / callvirt dispatch --------------------------------------------

func TestCallReturnsValueToCaller(t *testing.T) {
	f := newFixture(t)

	var callee asm
	callee.i32(OpLdarg, 0)
	callee.i32(OpLdarg, 1)
	callee.op(OpAdd)
	callee.op(OpRet)
	calleeTok := token.Token(0x06000010)
	declMethod(f, calleeTok, 0, 2, 4, nil, callee.code())

	var caller asm
	caller.i32(OpLdcI4, 3)
	caller.i32(OpLdcI4, 4)
	caller.tok(OpCall, calleeTok)
	caller.op(OpRet)
	callerM := declMethod(f, 0x06000011, 0, 0, 4, nil, caller.code())

	frame := NewFrame(callerM, nil, nil)
	resume, res := f.ip.RunSlice(frame)

	require.Nil(t, resume)
	assert.Equal(t, Completed, res.Status)
	assert.Equal(t, int32(7), res.Result.I32())
}

func TestCallvirtDispatchesToOverride(t *testing.T) {
	f := newFixture(t)

	baseTok := token.Token(0x02000001)
	derivedTok := token.Token(0x02000002)
	base := f.classes.Declare(baseTok)
	base.ParentToken = token.Invalid
	base.DynamicSize = 4
	derived := f.classes.Declare(derivedTok)
	derived.ParentToken = baseTok
	derived.DynamicSize = 4

	virtualTok := token.Token(0x06000020)

	var baseImpl asm
	baseImpl.i32(OpLdcI4, 1)
	baseImpl.op(OpRet)
	baseM := declMethod(f, virtualTok, method.FlagVirtual, 1, 4, nil, baseImpl.code())
	baseM.DeclarationTokens[virtualTok] = struct{}{}
	baseM.OwnerClass = baseTok
	base.Methods = append(base.Methods, baseM)

	var derivedImpl asm
	derivedImpl.i32(OpLdcI4, 2)
	derivedImpl.op(OpRet)
	derivedImplTok := token.Token(0x06000021)
	derivedM := declMethod(f, derivedImplTok, method.FlagVirtual, 1, 4, nil, derivedImpl.code())
	derivedM.DeclarationTokens[virtualTok] = struct{}{}
	derivedM.OwnerClass = derivedTok
	derived.Methods = append(derived.Methods, derivedM)

	addr, err := f.heap.NewObject(derivedTok, derived.DynamicSize)
	require.NoError(t, err)

	var caller asm
	caller.i32(OpLdcI4, int32(addr))
	caller.tok(OpCallvirt, virtualTok)
	caller.op(OpRet)
	callerM := declMethod(f, 0x06000022, 0, 0, 4, nil, caller.code())

	frame := NewFrame(callerM, nil, nil)
	resume, res := f.ip.RunSlice(frame)

	require.Nil(t, resume)
	assert.Equal(t, Completed, res.Status)
	assert.Equal(t, int32(2), res.Result.I32(), "callvirt on a derived-class receiver must run the override, not the base")
}

// --- newobj ---------------------------------------------------------------

func TestNewobjRunsCtorAndLeavesAddressOnStack(t *testing.T) {
	f := newFixture(t)

	classTok := token.Token(0x02000010)
	cls := f.classes.Declare(classTok)
	cls.ParentToken = token.Invalid
	cls.AddField("x", slot.Decl(slot.Int32, 4))

	fieldRef := token.Token(uint32(slot.Int32) << 24) // field "x" at offset 0

	var ctor asm
	ctor.i32(OpLdarg, 0) // this
	ctor.i32(OpLdcI4, 99)
	ctor.tok(OpStfld, fieldRef)
	ctor.op(OpRet)
	ctorTok := token.Token(0x06000030)
	ctorM := declMethod(f, ctorTok, method.FlagVoid|method.FlagCtor, 1, 4, nil, ctor.code())
	cls.Methods = append(cls.Methods, ctorM)

	var caller asm
	caller.tok(OpNewobj, classTok)
	caller.op(OpRet)
	callerM := declMethod(f, 0x06000031, 0, 0, 4, nil, caller.code())

	frame := NewFrame(callerM, nil, nil)
	resume, res := f.ip.RunSlice(frame)

	require.Nil(t, resume)
	assert.Equal(t, Completed, res.Status)
	require.True(t, res.HasResult)
	addr := int(res.Result.Payload)
	assert.Equal(t, uint32(99), f.heap.ReadU32(addr+gc.HeaderSize))
}

// --- exceptions -----------------------------------------------------------

func TestCatchHandlesThrownException(t *testing.T) {
	f := newFixture(t)

	excClassTok := token.Token(0x02000020)
	excCls := f.classes.Declare(excClassTok)
	excCls.ParentToken = token.Invalid
	excCls.DynamicSize = 4

	var a asm
	tryStartPC := a.pc()
	a.tok(OpNewobj, excClassTok)
	a.op(OpThrow)
	tryLen := int(a.pc()) - int(tryStartPC)

	handlerStartPC := a.pc()
	const handlerBodyLen = 5 + 5 + 5 // stloc + ldc.i4 + leave, each op+i32
	retPC := int(handlerStartPC) + handlerBodyLen

	a.i32(OpStloc, 0)
	a.i32(OpLdcI4, 5)
	a.i32(OpLeave, int32(retPC))
	handlerLen := int(a.pc()) - int(handlerStartPC)
	require.Equal(t, retPC, int(a.pc()))

	a.op(OpRet)

	m := declMethod(f, 0x06000040, method.FlagVoid, 0, 4,
		[]method.LocalDescriptor{{Name: "tmp", Decl: slot.Decl(slot.Object, slot.PointerSize)}},
		a.code())
	m.Clauses = []method.ExceptionClause{
		{
			MethodToken:   m.MethodToken,
			Type:          method.ClauseTypeClause,
			TryOffset:     int(tryStartPC),
			TryLength:     tryLen,
			HandlerOffset: int(handlerStartPC),
			HandlerLength: handlerLen,
			TargetClass:   excClassTok,
		},
	}
	m.SortClauses()

	frame := NewFrame(m, nil, nil)
	resume, res := f.ip.RunSlice(frame)

	require.Nil(t, resume)
	assert.Equal(t, Completed, res.Status, "exception should have been caught, not propagated")
}

func TestFinallyRunsOnLeave(t *testing.T) {
	f := newFixture(t)

	ranFinally := token.Token(0x01020304)

	var a asm
	tryStartPC := a.pc()
	const leaveBodyLen = 5 // op+i32
	finallyStartPC := int(tryStartPC) + leaveBodyLen
	const finallyBodyLen = 5 + 5 + 1 // ldsfld + stsfld + endfinally
	retPC := finallyStartPC + finallyBodyLen

	a.i32(OpLeave, int32(retPC))
	tryLen := int(a.pc()) - int(tryStartPC)
	require.Equal(t, finallyStartPC, int(a.pc()))

	a.tok(OpLdsfld, ranFinally)
	a.tok(OpStsfld, ranFinally)
	a.op(OpEndfinally)
	finallyLen := int(a.pc()) - finallyStartPC
	require.Equal(t, retPC, int(a.pc()))

	a.i32(OpLdcI4, 1)
	a.op(OpRet)

	m := declMethod(f, 0x06000050, 0, 0, 4, nil, a.code())
	m.Clauses = []method.ExceptionClause{
		{
			MethodToken:   m.MethodToken,
			Type:          method.ClauseTypeFinally,
			TryOffset:     int(tryStartPC),
			TryLength:     tryLen,
			HandlerOffset: finallyStartPC,
			HandlerLength: finallyLen,
		},
	}
	m.SortClauses()

	f.ip.Statics[ranFinally] = slot.Int32Slot(0)

	frame := NewFrame(m, nil, nil)
	resume, res := f.ip.RunSlice(frame)

	require.Nil(t, resume)
	assert.Equal(t, Completed, res.Status)
	assert.Equal(t, int32(1), res.Result.I32())
	assert.Equal(t, int32(0), f.ip.Statics[ranFinally].I32(), "finally body round-trips the static through ldsfld/stsfld")
}

// --- slicing / resumability ----------------------------------------------

func TestRunSliceResumesAcrossBudget(t *testing.T) {
	f := newFixture(t)

	var a asm
	for i := 0; i < 10; i++ {
		a.i32(OpLdcI4, int32(i))
		a.i32(OpStloc, 0)
	}
	a.i32(OpLdloc, 0)
	a.op(OpRet)

	m := declMethod(f, 0x06000060, 0, 0, 4,
		[]method.LocalDescriptor{{Name: "i", Decl: slot.Decl(slot.Int32, 4)}},
		a.code())

	f.ip.SliceBudget = 3
	frame := NewFrame(m, nil, nil)

	resume := frame
	var res ExecResult
	steps := 0
	for {
		resume, res = f.ip.RunSlice(resume)
		steps++
		if resume == nil {
			break
		}
		require.Less(t, steps, 50, "interpreter never made progress")
	}

	assert.Equal(t, Completed, res.Status)
	assert.Equal(t, int32(9), res.Result.I32())
	assert.Greater(t, steps, 1, "a budget of 3 over a ~21-instruction method must take more than one slice")
}
