package sema

import (
	"sysyc/internal/ast"
	"sysyc/internal/diag"
	"sysyc/internal/token"
)

// EvalConst folds an AST expression to a compile-time int32, per spec.md
// §4.2 (C2). Failures raise diag.ConstEvalError: referencing a non-const
// symbol, indexing into an array element, or calling a function from a
// constant context are all rejected, matching the corpus's own
// evalConstExpr helper (codegen.go) which returns (value, ok) rather than
// silently defaulting to zero.
//
// Division/modulo by zero during folding is not specially guarded: spec.md
// §4.2 leaves the caller responsible for either trapping or reproducing
// undefined behavior, so sysyc lets Go's own runtime division panic
// propagate — trapping is the chosen interpretation.
func (e *Engine) EvalConst(node *ast.Node) int32 {
	switch node.Type {
	case ast.Number:
		return node.Data.(ast.NumberNode).Value

	case ast.UnaryExpr:
		d := node.Data.(ast.UnaryExprNode)
		v := e.EvalConst(d.Expr)
		switch d.Op {
		case token.Plus:
			return v
		case token.Minus:
			return -v
		case token.Not:
			return boolToI32(v == 0)
		}

	case ast.BinaryExpr:
		d := node.Data.(ast.BinaryExprNode)
		// LOr/LAnd fold eagerly (both sides evaluated); spec.md §4.2 does
		// not require short-circuit at fold time, only at runtime (§4.5).
		l := e.EvalConst(d.Left)
		r := e.EvalConst(d.Right)
		switch d.Op {
		case token.Plus:
			return l + r
		case token.Minus:
			return l - r
		case token.Star:
			return l * r
		case token.Slash:
			return l / r
		case token.Percent:
			return l % r
		case token.Eq:
			return boolToI32(l == r)
		case token.Neq:
			return boolToI32(l != r)
		case token.Lt:
			return boolToI32(l < r)
		case token.Gt:
			return boolToI32(l > r)
		case token.Le:
			return boolToI32(l <= r)
		case token.Ge:
			return boolToI32(l >= r)
		case token.AndAnd:
			return boolToI32(l != 0 && r != 0)
		case token.OrOr:
			return boolToI32(l != 0 || r != 0)
		}

	case ast.LVal:
		d := node.Data.(ast.LValNode)
		sym, ok := e.Lookup(d.Name)
		if !ok {
			diag.Raise(diag.ScopeError, node.Tok, "undefined identifier %q", d.Name)
		}
		if !sym.IsConst || len(d.Indices) > 0 {
			diag.Raise(diag.ConstEvalError, node.Tok, "%q is not usable in a constant expression", d.Name)
		}
		return sym.ConstValue

	case ast.CallExpr:
		diag.Raise(diag.ConstEvalError, node.Tok, "function call is not a constant expression")
	}
	diag.Raise(diag.InvariantError, node.Tok, "unhandled AST node in constant folding: %v", node.Type)
	return 0
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
