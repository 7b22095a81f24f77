// Package parser implements a hand-rolled recursive-descent parser over the
// SysY grammar, producing the ast.Node tree defined in spec.md §3.
//
// Like internal/lexer, this stands in for the "external" parser collaborator
// spec.md §1 places out of scope; it is grounded on the teacher's
// pkg/parser/parser.go recursive-descent shape (current/previous token
// cursor, expect/match helpers, precedence-climbing binary expressions).
package parser

import (
	"strconv"

	"sysyc/internal/ast"
	"sysyc/internal/diag"
	"sysyc/internal/token"
)

type Parser struct {
	tokens  []token.Token
	pos     int
	current token.Token
}

func New(tokens []token.Token) *Parser {
	p := &Parser{tokens: tokens}
	if len(tokens) > 0 {
		p.current = tokens[0]
	}
	return p
}

func (p *Parser) advance() token.Token {
	tok := p.current
	if p.pos < len(p.tokens)-1 {
		p.pos++
		p.current = p.tokens[p.pos]
	}
	return tok
}

func (p *Parser) check(t token.Type) bool { return p.current.Type == t }

func (p *Parser) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(t token.Type) token.Token {
	if !p.check(t) {
		diag.Raise(diag.ParseError, p.current, "expected %s, got %s", t, p.current.Type)
	}
	return p.advance()
}

// Parse parses a whole CompUnit: an ordered sequence of Decls and FuncDefs.
func Parse(tokens []token.Token) *ast.Node {
	p := New(tokens)
	tok := p.current
	var items []*ast.Node
	for !p.check(token.EOF) {
		items = append(items, p.topLevelItem())
	}
	return ast.NewCompUnit(tok, items)
}

// topLevelItem disambiguates `const`/plain-type declarations from function
// definitions by looking past the type and identifier for '('.
func (p *Parser) topLevelItem() *ast.Node {
	if p.check(token.KwConst) {
		return p.decl()
	}
	// "int" or "void" lead both VarDecl and FuncDef; void only ever starts
	// a FuncDef (spec.md §9 open question: void is function-return-only).
	if p.check(token.KwVoid) {
		return p.funcDef()
	}
	// KwInt: peek past ident to see '(' vs anything else.
	save := p.pos
	p.expect(token.KwInt)
	p.expect(token.Ident)
	isFunc := p.check(token.LParen)
	p.pos = save
	p.current = p.tokens[p.pos]
	if isFunc {
		return p.funcDef()
	}
	return p.decl()
}

func (p *Parser) funcDef() *ast.Node {
	tok := p.current
	retVoid := p.match(token.KwVoid)
	if !retVoid {
		p.expect(token.KwInt)
	}
	name := p.expect(token.Ident).Value
	p.expect(token.LParen)
	var params []*ast.Node
	if !p.check(token.RParen) {
		params = append(params, p.funcFParam())
		for p.match(token.Comma) {
			params = append(params, p.funcFParam())
		}
	}
	p.expect(token.RParen)
	body := p.block()
	return ast.NewFuncDef(tok, retVoid, name, params, body)
}

func (p *Parser) funcFParam() *ast.Node {
	tok := p.current
	p.expect(token.KwInt)
	name := p.expect(token.Ident).Value
	isArray := false
	var dims []*ast.Node
	if p.match(token.LBracket) {
		isArray = true
		p.expect(token.RBracket) // leading dimension is always unspecified
		for p.match(token.LBracket) {
			dims = append(dims, p.expr())
			p.expect(token.RBracket)
		}
	}
	return ast.NewFuncFParam(tok, name, isArray, dims)
}

func (p *Parser) decl() *ast.Node {
	tok := p.current
	isConst := p.match(token.KwConst)
	p.expect(token.KwInt)
	var defs []*ast.Node
	defs = append(defs, p.def(isConst))
	for p.match(token.Comma) {
		defs = append(defs, p.def(isConst))
	}
	p.expect(token.Semi)
	return ast.NewDecl(tok, isConst, defs)
}

func (p *Parser) def(isConst bool) *ast.Node {
	tok := p.current
	name := p.expect(token.Ident).Value
	var dims []*ast.Node
	for p.match(token.LBracket) {
		dims = append(dims, p.expr())
		p.expect(token.RBracket)
	}
	var init *ast.Node
	if isConst {
		p.expect(token.Assign)
		init = p.initVal()
	} else if p.match(token.Assign) {
		init = p.initVal()
	}
	return ast.NewDef(tok, isConst, name, dims, init)
}

func (p *Parser) initVal() *ast.Node {
	tok := p.current
	if p.match(token.LBrace) {
		var items []*ast.Node
		if !p.check(token.RBrace) {
			items = append(items, p.initVal())
			for p.match(token.Comma) {
				items = append(items, p.initVal())
			}
		}
		p.expect(token.RBrace)
		return ast.NewInitValList(tok, items)
	}
	return ast.NewInitValExpr(tok, p.expr())
}

func (p *Parser) block() *ast.Node {
	tok := p.expect(token.LBrace)
	var items []*ast.Node
	for !p.check(token.RBrace) {
		items = append(items, p.blockItem())
	}
	p.expect(token.RBrace)
	return ast.NewBlock(tok, items)
}

func (p *Parser) blockItem() *ast.Node {
	if p.check(token.KwConst) || p.check(token.KwInt) {
		return p.decl()
	}
	return p.stmt()
}

func (p *Parser) stmt() *ast.Node {
	tok := p.current
	switch {
	case p.check(token.LBrace):
		return ast.NewStmtBlock(tok, p.block())
	case p.match(token.Semi):
		return ast.NewStmtEmpty(tok)
	case p.match(token.KwIf):
		p.expect(token.LParen)
		cond := p.expr()
		p.expect(token.RParen)
		then := p.stmt()
		var els *ast.Node
		if p.match(token.KwElse) {
			els = p.stmt()
		}
		return ast.NewStmtIf(tok, cond, then, els)
	case p.match(token.KwWhile):
		p.expect(token.LParen)
		cond := p.expr()
		p.expect(token.RParen)
		body := p.stmt()
		return ast.NewStmtWhile(tok, cond, body)
	case p.match(token.KwBreak):
		p.expect(token.Semi)
		return ast.NewStmtBreak(tok)
	case p.match(token.KwContinue):
		p.expect(token.Semi)
		return ast.NewStmtContinue(tok)
	case p.match(token.KwReturn):
		var e *ast.Node
		if !p.check(token.Semi) {
			e = p.expr()
		}
		p.expect(token.Semi)
		return ast.NewStmtReturn(tok, e)
	}
	return p.exprOrAssignStmt()
}

// exprOrAssignStmt disambiguates "lval = expr;" from "expr;" by trying an
// LVal-shaped prefix and checking for '=' before committing.
func (p *Parser) exprOrAssignStmt() *ast.Node {
	tok := p.current
	if p.check(token.Ident) {
		save := p.pos
		lval := p.tryLVal()
		if lval != nil && p.check(token.Assign) {
			p.advance()
			rhs := p.expr()
			p.expect(token.Semi)
			return ast.NewStmtAssign(tok, lval, rhs)
		}
		p.pos = save
		p.current = p.tokens[p.pos]
	}
	e := p.expr()
	p.expect(token.Semi)
	return ast.NewStmtExpr(tok, e)
}

func (p *Parser) tryLVal() *ast.Node {
	tok := p.current
	if !p.check(token.Ident) {
		return nil
	}
	name := p.advance().Value
	var idx []*ast.Node
	for p.match(token.LBracket) {
		idx = append(idx, p.expr())
		p.expect(token.RBracket)
	}
	return ast.NewLVal(tok, name, idx)
}

// --- Expressions: LOr -> LAnd -> Eq -> Rel -> Add -> Mul -> Unary -> Primary ---

func (p *Parser) expr() *ast.Node { return p.lorExpr() }

func (p *Parser) lorExpr() *ast.Node {
	left := p.landExpr()
	for p.check(token.OrOr) {
		tok := p.advance()
		right := p.landExpr()
		left = ast.NewBinaryExpr(tok, token.OrOr, left, right)
	}
	return left
}

func (p *Parser) landExpr() *ast.Node {
	left := p.eqExpr()
	for p.check(token.AndAnd) {
		tok := p.advance()
		right := p.eqExpr()
		left = ast.NewBinaryExpr(tok, token.AndAnd, left, right)
	}
	return left
}

func (p *Parser) eqExpr() *ast.Node {
	left := p.relExpr()
	for p.check(token.Eq) || p.check(token.Neq) {
		tok := p.advance()
		right := p.relExpr()
		left = ast.NewBinaryExpr(tok, tok.Type, left, right)
	}
	return left
}

func (p *Parser) relExpr() *ast.Node {
	left := p.addExpr()
	for p.check(token.Lt) || p.check(token.Gt) || p.check(token.Le) || p.check(token.Ge) {
		tok := p.advance()
		right := p.addExpr()
		left = ast.NewBinaryExpr(tok, tok.Type, left, right)
	}
	return left
}

func (p *Parser) addExpr() *ast.Node {
	left := p.mulExpr()
	for p.check(token.Plus) || p.check(token.Minus) {
		tok := p.advance()
		right := p.mulExpr()
		left = ast.NewBinaryExpr(tok, tok.Type, left, right)
	}
	return left
}

func (p *Parser) mulExpr() *ast.Node {
	left := p.unaryExpr()
	for p.check(token.Star) || p.check(token.Slash) || p.check(token.Percent) {
		tok := p.advance()
		right := p.unaryExpr()
		left = ast.NewBinaryExpr(tok, tok.Type, left, right)
	}
	return left
}

func (p *Parser) unaryExpr() *ast.Node {
	tok := p.current
	if p.check(token.Plus) || p.check(token.Minus) || p.check(token.Not) {
		op := p.advance().Type
		return ast.NewUnaryExpr(tok, op, p.unaryExpr())
	}
	if p.check(token.Ident) {
		save := p.pos
		name := p.advance().Value
		if p.match(token.LParen) {
			var args []*ast.Node
			if !p.check(token.RParen) {
				args = append(args, p.expr())
				for p.match(token.Comma) {
					args = append(args, p.expr())
				}
			}
			p.expect(token.RParen)
			return ast.NewCallExpr(tok, name, args)
		}
		p.pos = save
		p.current = p.tokens[p.pos]
	}
	return p.primaryExpr()
}

func (p *Parser) primaryExpr() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.LParen):
		e := p.expr()
		p.expect(token.RParen)
		return e
	case p.check(token.IntConst):
		v, _ := strconv.ParseInt(p.advance().Value, 10, 64)
		return ast.NewNumber(tok, int32(uint32(v)))
	case p.check(token.Ident):
		name := p.advance().Value
		var idx []*ast.Node
		for p.match(token.LBracket) {
			idx = append(idx, p.expr())
			p.expect(token.RBracket)
		}
		return ast.NewLVal(tok, name, idx)
	}
	diag.Raise(diag.ParseError, tok, "expected expression, got %s", tok.Type)
	return nil
}
