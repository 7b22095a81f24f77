package koopa

import "testing"

func TestParseSimpleFunction(t *testing.T) {
	src := `
fun @main(): i32 {
%entry:
  %0 = add 1, 2
  ret %0
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fn := prog.FindFunc("main")
	if fn == nil {
		t.Fatal("expected to find function main")
	}
	if fn.IsDecl() {
		t.Fatal("main has a body and should not be a bare declaration")
	}
	if len(fn.Blocks) != 1 || len(fn.Blocks[0].Values) != 2 {
		t.Fatalf("expected one block with two instructions, got %+v", fn.Blocks)
	}
	add := fn.Blocks[0].Values[0]
	if add.Kind != Binary || add.Op != ADD {
		t.Fatalf("first instruction should be an ADD binary, got %+v", add)
	}
	ret := fn.Blocks[0].Values[1]
	if ret.Kind != Return || len(ret.Args) != 1 || ret.Args[0] != add {
		t.Fatalf("ret should reference the add result by identity, got %+v", ret)
	}
}

func TestParseFuncArgRefIdentity(t *testing.T) {
	src := `
fun @f(%x: i32): i32 {
%entry:
  @x_0 = alloc i32
  store %x, @x_0
  %0 = load @x_0
  ret %0
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fn := prog.FindFunc("f")
	if len(fn.ArgRefs) != 1 {
		t.Fatalf("expected exactly one ArgRef, got %d", len(fn.ArgRefs))
	}
	store := fn.Blocks[0].Values[1]
	if store.Kind != Store || store.Args[0] != fn.ArgRefs[0] {
		t.Fatalf("store's source operand must be pointer-identical to fn.ArgRefs[0], got %+v", store)
	}
}

func TestParseVoidCallHasUnitType(t *testing.T) {
	src := `
decl @putint(i32)
fun @main(): i32 {
%entry:
  call @putint(1)
  ret 0
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fn := prog.FindFunc("main")
	call := fn.Blocks[0].Values[0]
	if call.Kind != Call {
		t.Fatalf("expected a call instruction, got %+v", call)
	}
	if call.Type.Kind != KindUnit {
		t.Fatalf("a call binding no result must have Unit type, got %v", call.Type)
	}
}

func TestParseNonVoidCallHasI32Type(t *testing.T) {
	src := `
decl @getint(): i32
fun @main(): i32 {
%entry:
  %0 = call @getint()
  ret %0
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fn := prog.FindFunc("main")
	call := fn.Blocks[0].Values[0]
	if call.Type.Kind != KindI32 {
		t.Fatalf("a call binding a result must have i32 type, got %v", call.Type)
	}
}

func TestParseGlobalArrayInitializer(t *testing.T) {
	src := `
global @a = alloc [i32, 3], {1, 2, 3}
fun @main(): i32 {
%entry:
  ret 0
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Globals) != 1 {
		t.Fatalf("expected one global, got %d", len(prog.Globals))
	}
	g := prog.Globals[0]
	if g.Init.Kind != Aggregate || len(g.Init.Elems) != 3 {
		t.Fatalf("expected a 3-element aggregate initializer, got %+v", g.Init)
	}
	for i, want := range []int32{1, 2, 3} {
		if g.Init.Elems[i].IntVal != want {
			t.Errorf("element %d = %d, want %d", i, g.Init.Elems[i].IntVal, want)
		}
	}
}

func TestParseZeroInitGlobal(t *testing.T) {
	src := `
global @a = alloc i32, zeroinit
fun @main(): i32 {
%entry:
  ret 0
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if prog.Globals[0].Init.Kind != ZeroInit {
		t.Fatalf("expected ZeroInit, got %+v", prog.Globals[0].Init)
	}
}

func TestParseForwardBranchToLoopEntry(t *testing.T) {
	// The entry block jumps forward to the loop entry label before that
	// label is defined; the block pre-scan must resolve it, and the loop
	// body's back-edge must resolve to the very same block.
	src := `
fun @main(): i32 {
%entry:
  jump %while_entry
%while_entry:
  %0 = lt 0, 1
  br %0, %while_body, %while_end
%while_body:
  jump %while_entry
%while_end:
  ret 0
}
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fn := prog.FindFunc("main")
	if len(fn.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(fn.Blocks))
	}
	entryJump := fn.Blocks[0].Values[0]
	if entryJump.Kind != Jump || entryJump.Target.Name != "while_entry" {
		t.Fatalf("entry jump should target while_entry, got %+v", entryJump)
	}
	bodyJump := fn.Blocks[2].Values[0]
	if bodyJump.Target != fn.Blocks[1] {
		t.Fatal("while_body's back-edge should resolve to the same *BasicBlock node as while_entry")
	}
}

func TestParseRejectsUnknownInstruction(t *testing.T) {
	src := `
fun @main(): i32 {
%entry:
  frobnicate 1, 2
}
`
	if _, err := Parse(src); err == nil {
		t.Fatal("an unknown instruction mnemonic should produce a parse error")
	}
}
