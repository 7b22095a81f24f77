// Package irgen lowers the SysY AST to Koopa IR text: C4 (expression
// emission), C5 (control-flow emission) and C8 (the intrinsics table) from
// spec.md §4.4-§4.8.
//
// The emitter writes Koopa syntax directly to a strings.Builder rather than
// building an intermediate object graph first — spec.md's own pipeline
// diagram has AST lower straight to "Koopa IR text", with the typed graph
// only appearing after the external parser (internal/koopa) re-reads that
// text. Structurally this still mirrors the teacher's codegen.go: a single
// Context carrying scope state and per-function counters, with
// codegenExpr/codegenStmt-shaped methods returning (operand, terminated).
package irgen

import (
	"fmt"
	"strings"

	"sysyc/internal/ast"
	"sysyc/internal/diag"
	"sysyc/internal/sema"
	"sysyc/internal/token"
)

// intrinsic is one entry of the fixed I/O/timing library from spec.md §4.8,
// supplemented per SPEC_FULL.md with getarray/putarray's calling
// convention.
type intrinsic struct {
	name       string
	paramTypes []string // Koopa type text, in order
	retVoid    bool
}

var intrinsics = []intrinsic{
	{"getint", nil, false},
	{"getch", nil, false},
	{"getarray", []string{"*i32"}, false},
	{"putint", []string{"i32"}, true},
	{"putch", []string{"i32"}, true},
	{"putarray", []string{"i32", "*i32"}, true},
	{"starttime", nil, true},
	{"stoptime", nil, true},
}

type emitter struct {
	eng *sema.Engine
	out strings.Builder

	nextReg    int
	ifCount    int
	whileCount int
	scCount    int // shared lor/land short-circuit-cell counter (spec.md §4.5)
}

// Emit lowers a parsed CompUnit to Koopa IR text. The returned renames list
// records every local variable and parameter together with the name_<k>
// unique_name it received, for callers that want to surface a
// -Wshadow-style notice.
func Emit(compUnit *ast.Node) (string, []sema.Rename) {
	e := &emitter{eng: sema.NewEngine()}
	e.emitIntrinsics()
	items := compUnit.Data.(ast.CompUnitNode).Items
	for _, item := range items {
		switch item.Type {
		case ast.ConstDecl, ast.VarDecl:
			e.emitGlobalDecl(item)
		case ast.FuncDef:
			e.emitFuncDef(item)
		default:
			diag.Raise(diag.InvariantError, item.Tok, "unexpected top-level node %v", item.Type)
		}
	}
	return e.out.String(), e.eng.Renames
}

func (e *emitter) emitIntrinsics() {
	for _, in := range intrinsics {
		ret := sema.TypeVoid
		retText := ""
		if !in.retVoid {
			ret = sema.TypeInt
			retText = ": i32"
		}
		e.eng.Add(token.Token{}, &sema.Symbol{Name: in.name, Kind: sema.KindFunc, Type: ret})
		fmt.Fprintf(&e.out, "decl @%s(%s)%s\n", in.name, strings.Join(in.paramTypes, ", "), retText)
	}
	e.out.WriteString("\n")
}

func (e *emitter) freshReg() string {
	r := fmt.Sprintf("%%%d", e.nextReg)
	e.nextReg++
	return r
}

// line writes a raw statement-level Koopa line (no result binding).
func (e *emitter) line(format string, args ...interface{}) {
	fmt.Fprintf(&e.out, "  "+format+"\n", args...)
}

// bind writes "  <dest> = <format>\n" and returns dest, the standard shape
// of every result-producing instruction.
func (e *emitter) bind(dest, format string, args ...interface{}) string {
	fmt.Fprintf(&e.out, "  %s = "+format+"\n", append([]interface{}{dest}, args...)...)
	return dest
}

func evalDims(eng *sema.Engine, exprs []*ast.Node) []int {
	dims := make([]int, len(exprs))
	for i, x := range exprs {
		dims[i] = int(eng.EvalConst(x))
	}
	return dims
}

// koopaType renders the nested array type for a set of declared dimensions,
// row-major and outermost-first, per spec.md §3's layout invariant.
func koopaType(dims []int) string {
	t := "i32"
	for i := len(dims) - 1; i >= 0; i-- {
		t = fmt.Sprintf("[%s, %d]", t, dims[i])
	}
	return t
}

// paramType renders a FuncFParam's Koopa type: plain i32 for scalars, or a
// pointer to the (possibly further-nested) element type for arrays, whose
// leading dimension is always erased per spec.md §3.
func paramType(isArray bool, subDims []int) string {
	if !isArray {
		return "i32"
	}
	if len(subDims) == 0 {
		return "*i32"
	}
	return "*" + koopaType(subDims)
}

func (e *emitter) emitGlobalDecl(node *ast.Node) {
	d := node.Data.(ast.DeclNode)
	for _, def := range d.Defs {
		e.emitGlobalDef(d.IsConst, def)
	}
}

// emitGlobalDef folds both const and non-const global initializers to
// literal values: Koopa globals carry their initializer inline
// (`alloc T, <init>`), and SysY itself requires global initializers to be
// constant expressions regardless of the const/var declaration keyword.
func (e *emitter) emitGlobalDef(isConst bool, def *ast.Node) {
	d := def.Data.(ast.DefNode)
	dims := evalDims(e.eng, d.Dims)

	if len(dims) == 0 {
		var val int32
		if d.Init != nil {
			val = e.eng.EvalConst(d.Init.Data.(ast.InitValExprNode).Expr)
		}
		sym := &sema.Symbol{Name: d.Name, Kind: sema.KindVar, Type: sema.TypeInt, IsConst: isConst, ConstValue: val}
		if !e.eng.Add(def.Tok, sym) {
			diag.Raise(diag.ScopeError, def.Tok, "redefinition of %q", d.Name)
		}
		if isConst {
			return // pure compile-time substitution: no storage at all
		}
		fmt.Fprintf(&e.out, "global @%s = alloc i32, %d\n", d.Name, val)
		return
	}

	sym := &sema.Symbol{Name: d.Name, Kind: sema.KindVar, Type: sema.TypeInt, IsConst: isConst, Dims: dims}
	if !e.eng.Add(def.Tok, sym) {
		diag.Raise(diag.ScopeError, def.Tok, "redefinition of %q", d.Name)
	}
	total := sema.ArrayElementCount(dims, 0)
	if d.Init == nil {
		fmt.Fprintf(&e.out, "global @%s = alloc %s, zeroinit\n", d.Name, koopaType(dims))
		return
	}
	flat := sema.Flatten(d.Init, dims)
	allZero := true
	vals := make([]int32, total)
	for i, elem := range flat {
		if elem.Expr != nil {
			vals[i] = e.eng.EvalConst(elem.Expr)
			if vals[i] != 0 {
				allZero = false
			}
		}
	}
	if allZero {
		fmt.Fprintf(&e.out, "global @%s = alloc %s, zeroinit\n", d.Name, koopaType(dims))
		return
	}
	fmt.Fprintf(&e.out, "global @%s = alloc %s, %s\n", d.Name, koopaType(dims), nestedAggregate(vals, dims))
}

// nestedAggregate renders a flat value vector as Koopa's brace-nested
// aggregate literal, matching the array's declared shape.
func nestedAggregate(vals []int32, dims []int) string {
	if len(dims) == 0 {
		return fmt.Sprintf("%d", vals[0])
	}
	unit := sema.ArrayElementCount(dims, 1)
	parts := make([]string, dims[0])
	for i := 0; i < dims[0]; i++ {
		parts[i] = nestedAggregate(vals[i*unit:(i+1)*unit], dims[1:])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
