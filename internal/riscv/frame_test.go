package riscv

import (
	"testing"

	"sysyc/internal/koopa"
)

func TestPlanFrameAllocReservesDeclaredSize(t *testing.T) {
	alloc := &koopa.Value{Kind: koopa.Alloc, Type: koopa.Ptr(koopa.Array(koopa.I32, 4)), AllocType: koopa.Array(koopa.I32, 4)}
	fn := &koopa.Function{
		Name:    "f",
		RetType: koopa.Unit,
		Blocks:  []*koopa.BasicBlock{{Name: "entry", Values: []*koopa.Value{alloc}}},
	}
	f := planFrame(fn)
	h := f.homeOf(alloc)
	if h.kind != hkStack {
		t.Fatalf("expected alloc to get a stack home, got %+v", h)
	}
	if f.size < 16 {
		t.Fatalf("a 16-byte array alloc should require at least a 16-byte frame, got %d", f.size)
	}
}

func TestPlanFrameNoCallsMeansNoRASave(t *testing.T) {
	ret := &koopa.Value{Kind: koopa.Return, Type: koopa.Unit}
	fn := &koopa.Function{Name: "f", RetType: koopa.Unit, Blocks: []*koopa.BasicBlock{{Name: "entry", Values: []*koopa.Value{ret}}}}
	f := planFrame(fn)
	if f.isRASaved {
		t.Fatal("a leaf function should not save ra")
	}
}

func TestPlanFrameCallSetsRASaved(t *testing.T) {
	call := &koopa.Value{Kind: koopa.Call, Type: koopa.Unit, Callee: &koopa.Function{Name: "g"}}
	fn := &koopa.Function{Name: "f", RetType: koopa.Unit, Blocks: []*koopa.BasicBlock{{Name: "entry", Values: []*koopa.Value{call}}}}
	f := planFrame(fn)
	if !f.isRASaved {
		t.Fatal("a function that calls another must save ra")
	}
}

func TestPlanFrameNineArgCallReservesOneStackSlot(t *testing.T) {
	args := make([]*koopa.Value, 9)
	for i := range args {
		args[i] = &koopa.Value{Kind: koopa.Integer, Type: koopa.I32, IntVal: int32(i)}
	}
	call := &koopa.Value{Kind: koopa.Call, Type: koopa.Unit, Args: args, Callee: &koopa.Function{Name: "g"}}
	fn := &koopa.Function{Name: "f", RetType: koopa.Unit, Blocks: []*koopa.BasicBlock{{Name: "entry", Values: []*koopa.Value{call}}}}
	f := planFrame(fn)
	if f.stackParamNum != 1 {
		t.Fatalf("a 9-argument call should reserve exactly 1 outgoing stack slot, got %d", f.stackParamNum)
	}
}

func TestPlanFrameSizeIs16ByteAligned(t *testing.T) {
	alloc := &koopa.Value{Kind: koopa.Alloc, Type: koopa.Ptr(koopa.I32), AllocType: koopa.I32}
	fn := &koopa.Function{Name: "f", RetType: koopa.Unit, Blocks: []*koopa.BasicBlock{{Name: "entry", Values: []*koopa.Value{alloc}}}}
	f := planFrame(fn)
	if f.size%16 != 0 {
		t.Fatalf("frame size %d is not 16-byte aligned", f.size)
	}
}

func TestPlanFrameFuncArgRefHomesByPointerIdentity(t *testing.T) {
	fn := &koopa.Function{Name: "f", RetType: koopa.I32}
	fn.ArgRefs = make([]*koopa.Value, 9)
	for i := range fn.ArgRefs {
		fn.ArgRefs[i] = &koopa.Value{Kind: koopa.FuncArgRef, Type: koopa.I32, ArgIndex: i}
	}
	ret := &koopa.Value{Kind: koopa.Return, Type: koopa.Unit, Args: []*koopa.Value{fn.ArgRefs[8]}}
	fn.Blocks = []*koopa.BasicBlock{{Name: "entry", Values: []*koopa.Value{ret}}}

	f := planFrame(fn)
	for i := 0; i < 8; i++ {
		h := f.homeOf(fn.ArgRefs[i])
		if h.kind != hkRegister || h.reg != regName(i) {
			t.Errorf("arg %d should live in register %s, got %+v", i, regName(i), h)
		}
	}
	h8 := f.homeOf(fn.ArgRefs[8])
	if h8.kind != hkStack {
		t.Fatalf("the 9th argument should be homed on the stack, got %+v", h8)
	}
	if h8.offset != f.size {
		t.Fatalf("the 9th argument's stack home should sit exactly at the caller's outgoing area (frame size %d), got offset %d", f.size, h8.offset)
	}
}
