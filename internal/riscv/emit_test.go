package riscv

import (
	"strings"
	"testing"

	"sysyc/internal/config"
	"sysyc/internal/koopa"
)

func compile(t *testing.T, src string) string {
	t.Helper()
	prog, err := koopa.Parse(src)
	if err != nil {
		t.Fatalf("koopa.Parse: %v", err)
	}
	return Compile(prog, config.Default())
}

func TestCompileLeafFunctionSkipsRASave(t *testing.T) {
	text := compile(t, `
fun @main(): i32 {
%entry:
  ret 0
}
`)
	if strings.Contains(text, "ra") {
		t.Fatalf("a leaf function with no locals should never touch ra, got:\n%s", text)
	}
}

func TestCompileCallingFunctionSavesAndRestoresRA(t *testing.T) {
	text := compile(t, `
decl @g()
fun @f(): i32 {
%entry:
  call @g()
  ret 0
}
`)
	if strings.Count(text, "ra") < 2 {
		t.Fatalf("expected at least one ra save and one ra restore, got:\n%s", text)
	}
}

func TestCompileBinaryOpLoweringTable(t *testing.T) {
	cases := map[string]string{
		"add": "add t0, t0, t1",
		"sub": "sub t0, t0, t1",
		"mul": "mul t0, t0, t1",
		"div": "div t0, t0, t1",
		"mod": "rem t0, t0, t1",
		"lt":  "slt t0, t0, t1",
		"gt":  "sgt t0, t0, t1",
	}
	for op, want := range cases {
		src := `
fun @main(): i32 {
%entry:
  %0 = ` + op + ` 1, 2
  ret %0
}
`
		text := compile(t, src)
		if !strings.Contains(text, want) {
			t.Errorf("op %q: expected %q in:\n%s", op, want, text)
		}
	}
}

func TestCompileEqLowersToXorSeqz(t *testing.T) {
	text := compile(t, `
fun @main(): i32 {
%entry:
  %0 = eq 1, 2
  ret %0
}
`)
	if !strings.Contains(text, "xor t0, t0, t1") || !strings.Contains(text, "seqz t0, t0") {
		t.Fatalf("expected xor+seqz lowering for eq, got:\n%s", text)
	}
}

func TestCompileLeLowersToSgtSeqz(t *testing.T) {
	text := compile(t, `
fun @main(): i32 {
%entry:
  %0 = le 1, 2
  ret %0
}
`)
	if !strings.Contains(text, "sgt t0, t0, t1") || !strings.Contains(text, "seqz t0, t0") {
		t.Fatalf("expected sgt+seqz lowering for le, got:\n%s", text)
	}
}

func TestCompileGlobalZeroInitEmitsZeroDirective(t *testing.T) {
	text := compile(t, `
global @a = alloc i32, zeroinit
fun @main(): i32 {
%entry:
  ret 0
}
`)
	if !strings.Contains(text, ".zero 4") {
		t.Fatalf("expected a .zero directive for a zeroinit global, got:\n%s", text)
	}
}

func TestCompileGlobalIntegerEmitsWordDirective(t *testing.T) {
	text := compile(t, `
global @a = alloc i32, 7
fun @main(): i32 {
%entry:
  ret 0
}
`)
	if !strings.Contains(text, ".word 7") {
		t.Fatalf("expected a .word directive with the initial value, got:\n%s", text)
	}
}

func TestCompileGlobalAggregateEmitsOneWordPerElement(t *testing.T) {
	text := compile(t, `
global @a = alloc [i32, 3], {1, 2, 3}
fun @main(): i32 {
%entry:
  ret 0
}
`)
	for _, want := range []string{".word 1", ".word 2", ".word 3"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestCompileFunctionDeclarationEmitsNoBody(t *testing.T) {
	text := compile(t, `
decl @putint(i32)
fun @main(): i32 {
%entry:
  call @putint(1)
  ret 0
}
`)
	if strings.Contains(text, "putint:") {
		t.Fatalf("a bare declaration must never get a label of its own, got:\n%s", text)
	}
	if !strings.Contains(text, "call putint") {
		t.Fatalf("expected a call to putint, got:\n%s", text)
	}
}

func TestCompileNineArgCallSpillsNinthToStack(t *testing.T) {
	text := compile(t, `
decl @g(i32, i32, i32, i32, i32, i32, i32, i32, i32)
fun @main(): i32 {
%entry:
  call @g(1, 2, 3, 4, 5, 6, 7, 8, 9)
  ret 0
}
`)
	if !strings.Contains(text, "sw") {
		t.Fatalf("expected the 9th argument to be stored to the outgoing stack area, got:\n%s", text)
	}
	for i := 0; i < 8; i++ {
		if !strings.Contains(text, "li "+regName(i)+", "+itoa(i+1)) {
			t.Errorf("expected argument %d loaded into %s, got:\n%s", i+1, regName(i), text)
		}
	}
}

func TestCompileEmitsGloblForEveryDefinedFunction(t *testing.T) {
	text := compile(t, `
fun @f(): i32 {
%entry:
  ret 0
}
fun @main(): i32 {
%entry:
  ret 0
}
`)
	if !strings.Contains(text, ".globl f") || !strings.Contains(text, ".globl main") {
		t.Fatalf("expected .globl directives for both functions, got:\n%s", text)
	}
}
