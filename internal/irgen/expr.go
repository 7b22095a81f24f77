package irgen

import (
	"fmt"

	"sysyc/internal/ast"
	"sysyc/internal/diag"
	"sysyc/internal/sema"
	"sysyc/internal/token"
)

var binOpText = map[token.Type]string{
	token.Plus:    "add",
	token.Minus:   "sub",
	token.Star:    "mul",
	token.Slash:   "div",
	token.Percent: "mod",
	token.Eq:      "eq",
	token.Neq:     "ne",
	token.Lt:      "lt",
	token.Gt:      "gt",
	token.Le:      "le",
	token.Ge:      "ge",
}

// emitExpr lowers an expression to an operand: a decimal literal for
// compile-time constants, or an SSA register for anything computed, per
// spec.md §4.4.
func (e *emitter) emitExpr(node *ast.Node) string {
	switch node.Type {
	case ast.Number:
		return itoa32(node.Data.(ast.NumberNode).Value)

	case ast.LVal:
		return e.emitLValRead(node)

	case ast.UnaryExpr:
		d := node.Data.(ast.UnaryExprNode)
		v := e.emitExpr(d.Expr)
		switch d.Op {
		case token.Plus:
			return v
		case token.Minus:
			return e.bind(e.freshReg(), "sub 0, %s", v)
		case token.Not:
			return e.bind(e.freshReg(), "eq 0, %s", v)
		}
		diag.Raise(diag.InvariantError, node.Tok, "unhandled unary operator")

	case ast.BinaryExpr:
		d := node.Data.(ast.BinaryExprNode)
		if d.Op == token.AndAnd || d.Op == token.OrOr {
			return e.emitShortCircuit(node)
		}
		l := e.emitExpr(d.Left)
		r := e.emitExpr(d.Right)
		opText, ok := binOpText[d.Op]
		if !ok {
			diag.Raise(diag.InvariantError, node.Tok, "unhandled binary operator")
		}
		return e.bind(e.freshReg(), "%s %s, %s", opText, l, r)

	case ast.CallExpr:
		return e.emitCall(node)
	}
	diag.Raise(diag.InvariantError, node.Tok, "unhandled expression node %v", node.Type)
	return ""
}

func (e *emitter) emitCall(node *ast.Node) string {
	d := node.Data.(ast.CallExprNode)
	sym, ok := e.eng.Lookup(d.Callee)
	if !ok {
		diag.Raise(diag.ScopeError, node.Tok, "call to undefined function %q", d.Callee)
	}
	if sym.Kind != sema.KindFunc {
		diag.Raise(diag.ScopeError, node.Tok, "%q is not a function", d.Callee)
	}
	args := make([]string, len(d.Args))
	for i, a := range d.Args {
		args[i] = e.emitExpr(a)
	}
	call := "call @" + d.Callee + "(" + joinArgs(args) + ")"
	if sym.Type == sema.TypeVoid {
		e.line(call)
		return ""
	}
	return e.bind(e.freshReg(), call)
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}

// emitLValRead lowers an LVal used as an rvalue: a bare scalar loads
// directly, a const scalar substitutes its literal value, and an array
// identifier either loads a fully-indexed element or yields a pointer to a
// sub-array (spec.md §4.4).
func (e *emitter) emitLValRead(node *ast.Node) string {
	d := node.Data.(ast.LValNode)
	sym, ok := e.eng.Lookup(d.Name)
	if !ok {
		diag.Raise(diag.ScopeError, node.Tok, "undefined identifier %q", d.Name)
	}
	if sym.Kind != sema.KindVar {
		diag.Raise(diag.ScopeError, node.Tok, "%q is not a variable", d.Name)
	}

	if len(sym.Dims) == 0 {
		if len(d.Indices) > 0 {
			diag.Raise(diag.ScopeError, node.Tok, "%q is not an array", d.Name)
		}
		if sym.IsConst {
			return itoa32(sym.ConstValue)
		}
		return e.bind(e.freshReg(), "load @%s", sym.UniqueName)
	}

	ptr, fully := e.computeArrayAddr(node.Tok, sym, d.Indices)
	if fully {
		return e.bind(e.freshReg(), "load %s", ptr)
	}
	return ptr
}

// emitLValAddr lowers an LVal used as an assignment target: it must resolve
// to a scalar cell (a plain variable, or a fully-indexed array element).
func (e *emitter) emitLValAddr(node *ast.Node) string {
	d := node.Data.(ast.LValNode)
	sym, ok := e.eng.Lookup(d.Name)
	if !ok {
		diag.Raise(diag.ScopeError, node.Tok, "undefined identifier %q", d.Name)
	}
	if sym.Kind != sema.KindVar {
		diag.Raise(diag.ScopeError, node.Tok, "%q is not a variable", d.Name)
	}
	if sym.IsConst {
		diag.Raise(diag.ScopeError, node.Tok, "cannot assign to const %q", d.Name)
	}

	if len(sym.Dims) == 0 {
		if len(d.Indices) > 0 {
			diag.Raise(diag.ScopeError, node.Tok, "%q is not an array", d.Name)
		}
		return "@" + sym.UniqueName
	}

	ptr, fully := e.computeArrayAddr(node.Tok, sym, d.Indices)
	if !fully {
		diag.Raise(diag.ScopeError, node.Tok, "assignment target %q is not fully indexed", d.Name)
	}
	return ptr
}

// computeArrayAddr implements the flat-offset addressing scheme of
// spec.md §4.4: strides are the right-cumulative product of the symbol's
// declared dimensions, each given index is scaled by its stride (skipping
// the multiply when the stride is 1) and accumulated with add, and the
// single resulting flat element offset drives one getelemptr (fixed array)
// or getptr-after-load (parameter array) instruction. fully reports whether
// every declared dimension was indexed, i.e. the result names a scalar.
func (e *emitter) computeArrayAddr(tok token.Token, sym *sema.Symbol, indices []*ast.Node) (ptr string, fully bool) {
	rank := len(sym.Dims)
	if len(indices) > rank {
		diag.Raise(diag.ScopeError, tok, "too many indices for %q", sym.Name)
	}
	isParam := rank > 0 && sym.Dims[0] == 0

	flat := "0"
	for j, idxNode := range indices {
		idx := e.emitExpr(idxNode)
		stride := sema.ArrayElementCount(sym.Dims, j+1)
		term := idx
		if stride > 1 {
			term = e.bind(e.freshReg(), "mul %s, %d", idx, stride)
		}
		if j == 0 {
			flat = term
		} else {
			flat = e.bind(e.freshReg(), "add %s, %s", flat, term)
		}
	}

	if isParam {
		p := e.bind(e.freshReg(), "load @%s", sym.UniqueName)
		ptr = e.bind(e.freshReg(), "getptr %s, %s", p, flat)
	} else {
		ptr = e.bind(e.freshReg(), "getelemptr @%s, %s", sym.UniqueName, flat)
	}
	return ptr, len(indices) == rank
}

// emitShortCircuit lowers && and || through an explicit stack-allocated
// boolean cell rather than Koopa block arguments or phi nodes, per
// spec.md §4.5: the result cell is pre-seeded, the right-hand side is only
// evaluated in a fresh block reached conditionally, and both paths jump to
// a shared merge block that loads the cell.
func (e *emitter) emitShortCircuit(node *ast.Node) string {
	d := node.Data.(ast.BinaryExprNode)
	n := e.scCount
	e.scCount++

	isOr := d.Op == token.OrOr
	base := "land_res"
	if isOr {
		base = "lor_res"
	}
	cell := fmt.Sprintf("%s_%d", base, n)
	e.line("@%s = alloc i32", cell)

	l := e.emitExpr(d.Left)
	lBool := e.bind(e.freshReg(), "ne 0, %s", l)

	rhsLabel := fmt.Sprintf("%s_rhs_%d", base, n)
	endLabel := fmt.Sprintf("%s_end_%d", base, n)

	if isOr {
		e.line("store 1, @%s", cell)
		e.line("br %s, %%%s, %%%s", lBool, endLabel, rhsLabel)
	} else { // AndAnd
		e.line("store 0, @%s", cell)
		e.line("br %s, %%%s, %%%s", lBool, rhsLabel, endLabel)
	}

	e.out.WriteString("%" + rhsLabel + ":\n")
	r := e.emitExpr(d.Right)
	rBool := e.bind(e.freshReg(), "ne 0, %s", r)
	e.line("store %s, @%s", rBool, cell)
	e.line("jump %%%s", endLabel)

	e.out.WriteString("%" + endLabel + ":\n")
	return e.bind(e.freshReg(), "load @%s", cell)
}

func itoa32(v int32) string { return fmt.Sprintf("%d", v) }
