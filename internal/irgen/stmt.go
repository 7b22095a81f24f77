package irgen

import (
	"fmt"
	"strings"

	"sysyc/internal/ast"
	"sysyc/internal/diag"
	"sysyc/internal/sema"
	"sysyc/internal/token"
)

func (e *emitter) emitFuncDef(node *ast.Node) {
	d := node.Data.(ast.FuncDefNode)

	retType := sema.TypeInt
	if d.RetVoid {
		retType = sema.TypeVoid
	}
	if !e.eng.Add(node.Tok, &sema.Symbol{Name: d.Name, Kind: sema.KindFunc, Type: retType}) {
		diag.Raise(diag.ScopeError, node.Tok, "redefinition of %q", d.Name)
	}

	e.eng.ResetFunction()
	e.nextReg, e.ifCount, e.whileCount, e.scCount = 0, 0, 0, 0
	e.eng.EnterScope()

	type paramInfo struct {
		tok     token.Token
		name    string
		typ     string
		subDims []int
		isArray bool
	}
	params := make([]paramInfo, len(d.Params))
	for i, p := range d.Params {
		fp := p.Data.(ast.FuncFParamNode)
		subDims := evalDims(e.eng, fp.Dims)
		params[i] = paramInfo{tok: p.Tok, name: fp.Name, typ: paramType(fp.IsArray, subDims), subDims: subDims, isArray: fp.IsArray}
	}

	sigParams := make([]string, len(params))
	for i, p := range params {
		sigParams[i] = fmt.Sprintf("%%%s: %s", p.name, p.typ)
	}
	retText := ""
	if !d.RetVoid {
		retText = ": i32"
	}
	fmt.Fprintf(&e.out, "fun @%s(%s)%s {\n", d.Name, strings.Join(sigParams, ", "), retText)
	e.out.WriteString("%entry:\n")

	// Parameters arrive as immutable SSA registers named %<param>. SysY
	// parameters are assignable like any other local, so each one gets its
	// own stack slot (named in the @ namespace, which never collides with
	// the %-named parameter register) that the rest of the function reads
	// and writes through exactly like a normal variable.
	for _, p := range params {
		symType := sema.TypeInt
		var dims []int
		if p.isArray {
			symType = sema.TypePtr
			dims = append([]int{0}, p.subDims...)
		}
		sym := &sema.Symbol{Name: p.name, Kind: sema.KindVar, Type: symType, Dims: dims}
		if !e.eng.Add(p.tok, sym) {
			diag.Raise(diag.ScopeError, p.tok, "duplicate parameter %q", p.name)
		}
		e.line("@%s = alloc %s", sym.UniqueName, p.typ)
		e.line("store %%%s, @%s", p.name, sym.UniqueName)
	}

	body := d.Body.Data.(ast.BlockNode).Items
	terminated := e.emitItems(body)
	if !terminated {
		if d.RetVoid {
			e.line("ret")
		} else {
			e.line("ret 0")
		}
	}

	e.out.WriteString("}\n\n")
	e.eng.ExitScope()
}

// emitItems lowers a sequence of declarations/statements, stopping once one
// of them terminates its block (spec.md §4.5: unreachable trailing
// statements are simply not emitted).
func (e *emitter) emitItems(items []*ast.Node) bool {
	for _, item := range items {
		switch item.Type {
		case ast.ConstDecl, ast.VarDecl:
			e.emitLocalDecl(item)
		default:
			if e.emitStmt(item) {
				return true
			}
		}
	}
	return false
}

func (e *emitter) emitStmt(node *ast.Node) bool {
	switch node.Type {
	case ast.StmtAssign:
		d := node.Data.(ast.StmtAssignNode)
		ptr := e.emitLValAddr(d.LVal)
		val := e.emitExpr(d.Rhs)
		e.line("store %s, %s", val, ptr)
		return false

	case ast.StmtExpr:
		d := node.Data.(ast.StmtExprNode)
		if d.Expr != nil {
			e.emitExpr(d.Expr)
		}
		return false

	case ast.StmtEmpty:
		return false

	case ast.StmtBlock:
		d := node.Data.(ast.StmtBlockNode)
		e.eng.EnterScope()
		terminated := e.emitItems(d.Body.Data.(ast.BlockNode).Items)
		e.eng.ExitScope()
		return terminated

	case ast.StmtIf:
		return e.emitIf(node)

	case ast.StmtWhile:
		return e.emitWhile(node)

	case ast.StmtBreak:
		e.line("jump %%%s", e.eng.CurrentBreak(node.Tok))
		return true

	case ast.StmtContinue:
		e.line("jump %%%s", e.eng.CurrentContinue(node.Tok))
		return true

	case ast.StmtReturn:
		d := node.Data.(ast.StmtReturnNode)
		if d.Expr == nil {
			e.line("ret")
		} else {
			v := e.emitExpr(d.Expr)
			e.line("ret %s", v)
		}
		return true
	}
	diag.Raise(diag.InvariantError, node.Tok, "unhandled statement node %v", node.Type)
	return false
}

// emitIf lowers if/else per spec.md §4.5: then/else bodies each get their
// own label, and a merge block is only emitted (and only jumped to) from a
// branch that didn't already terminate.
func (e *emitter) emitIf(node *ast.Node) bool {
	d := node.Data.(ast.StmtIfNode)
	n := e.ifCount
	e.ifCount++

	thenLabel := fmt.Sprintf("then_%d", n)
	endLabel := fmt.Sprintf("if_end_%d", n)
	elseLabel := endLabel
	if d.Else != nil {
		elseLabel = fmt.Sprintf("else_%d", n)
	}

	cond := e.emitExpr(d.Cond)
	e.line("br %s, %%%s, %%%s", cond, thenLabel, elseLabel)

	e.out.WriteString("%" + thenLabel + ":\n")
	thenTerm := e.emitStmt(d.Then)
	if !thenTerm {
		e.line("jump %%%s", endLabel)
	}

	elseTerm := false
	if d.Else != nil {
		e.out.WriteString("%" + elseLabel + ":\n")
		elseTerm = e.emitStmt(d.Else)
		if !elseTerm {
			e.line("jump %%%s", endLabel)
		}
	}

	if thenTerm && elseTerm {
		// Both arms terminated: the end label would start an unreachable
		// block with no terminator, so it is not emitted at all and the
		// whole if reports terminated to the caller.
		return true
	}
	e.out.WriteString("%" + endLabel + ":\n")
	return false
}

// emitWhile lowers while/break/continue per spec.md §4.5: the loop-label
// stack maps break to the exit block and continue to the condition block,
// letting break/continue lower to a single jump instruction.
func (e *emitter) emitWhile(node *ast.Node) bool {
	d := node.Data.(ast.StmtWhileNode)
	n := e.whileCount
	e.whileCount++

	entryLabel := fmt.Sprintf("while_%d_entry", n)
	bodyLabel := fmt.Sprintf("while_%d_body", n)
	exitLabel := fmt.Sprintf("while_%d_exit", n)

	e.line("jump %%%s", entryLabel)
	e.out.WriteString("%" + entryLabel + ":\n")
	cond := e.emitExpr(d.Cond)
	e.line("br %s, %%%s, %%%s", cond, bodyLabel, exitLabel)

	e.out.WriteString("%" + bodyLabel + ":\n")
	e.eng.EnterLoop(entryLabel, exitLabel)
	terminated := e.emitStmt(d.Body)
	e.eng.ExitLoop()
	if !terminated {
		e.line("jump %%%s", entryLabel)
	}

	e.out.WriteString("%" + exitLabel + ":\n")
	return false
}
