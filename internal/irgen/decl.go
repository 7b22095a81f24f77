package irgen

import (
	"sysyc/internal/ast"
	"sysyc/internal/diag"
	"sysyc/internal/sema"
)

func (e *emitter) emitLocalDecl(node *ast.Node) {
	d := node.Data.(ast.DeclNode)
	for _, def := range d.Defs {
		e.emitLocalDef(d.IsConst, def)
	}
}

func (e *emitter) emitLocalDef(isConst bool, def *ast.Node) {
	d := def.Data.(ast.DefNode)
	dims := evalDims(e.eng, d.Dims)

	if len(dims) == 0 {
		if isConst {
			val := e.eng.EvalConst(d.Init.Data.(ast.InitValExprNode).Expr)
			sym := &sema.Symbol{Name: d.Name, Kind: sema.KindVar, Type: sema.TypeInt, IsConst: true, ConstValue: val}
			if !e.eng.Add(def.Tok, sym) {
				diag.Raise(diag.ScopeError, def.Tok, "redefinition of %q", d.Name)
			}
			return // pure compile-time substitution, no storage
		}
		sym := &sema.Symbol{Name: d.Name, Kind: sema.KindVar, Type: sema.TypeInt}
		if !e.eng.Add(def.Tok, sym) {
			diag.Raise(diag.ScopeError, def.Tok, "redefinition of %q", d.Name)
		}
		e.line("@%s = alloc i32", sym.UniqueName)
		if d.Init != nil {
			val := e.emitExpr(d.Init.Data.(ast.InitValExprNode).Expr)
			e.line("store %s, @%s", val, sym.UniqueName)
		}
		return
	}

	sym := &sema.Symbol{Name: d.Name, Kind: sema.KindVar, Type: sema.TypeInt, IsConst: isConst, Dims: dims}
	if !e.eng.Add(def.Tok, sym) {
		diag.Raise(diag.ScopeError, def.Tok, "redefinition of %q", d.Name)
	}
	e.line("@%s = alloc %s", sym.UniqueName, koopaType(dims))
	if d.Init == nil {
		return
	}

	// Local array allocations carry no inline initializer syntax, unlike
	// globals, so every provided slot (and every slot the initializer
	// leaves implicit) is written with its own store, per spec.md §4.3's
	// "missing elements default to zero" rule.
	if isConst {
		flat := sema.Flatten(d.Init, dims)
		for i, elem := range flat {
			var v int32
			if elem.Expr != nil {
				v = e.eng.EvalConst(elem.Expr)
			}
			ptr := e.bind(e.freshReg(), "getelemptr @%s, %d", sym.UniqueName, i)
			e.line("store %d, %s", v, ptr)
		}
		return
	}
	flat := sema.Flatten(d.Init, dims)
	for i, elem := range flat {
		operand := "0"
		if elem.Expr != nil {
			operand = e.emitExpr(elem.Expr)
		}
		ptr := e.bind(e.freshReg(), "getelemptr @%s, %d", sym.UniqueName, i)
		e.line("store %s, %s", operand, ptr)
	}
}
