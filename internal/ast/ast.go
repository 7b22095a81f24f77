// Package ast defines the SysY abstract syntax tree (spec.md §3): a single
// tagged Node type carrying a NodeType discriminant and a Data payload,
// pattern-matched by every downstream pass instead of walked through
// virtual dispatch — the idiomatic-Go rendering spec.md §9 asks for.
package ast

import "sysyc/internal/token"

type NodeType int

const (
	CompUnit NodeType = iota
	FuncDef
	FuncFParam
	ConstDecl
	VarDecl
	ConstDef
	VarDef
	InitValExpr  // single-expression InitVal/ConstInitVal
	InitValList  // brace-list InitVal/ConstInitVal
	Block
	StmtAssign
	StmtExpr
	StmtEmpty
	StmtBlock
	StmtIf
	StmtWhile
	StmtBreak
	StmtContinue
	StmtReturn
	LVal
	BinaryExpr
	UnaryExpr
	CallExpr
	Number
)

// Node is the single AST node type; Data holds one of the *Node structs
// below, selected by Type.
type Node struct {
	Type NodeType
	Tok  token.Token
	Data interface{}
}

// --- Node payloads ---

type CompUnitNode struct{ Items []*Node } // Decl or FuncDef, in source order

type FuncDefNode struct {
	RetVoid bool // true for void, false for int
	Name    string
	Params  []*Node // FuncFParam
	Body    *Node   // Block
}

type FuncFParamNode struct {
	Name     string
	IsArray  bool
	Dims     []*Node // sub-dimension size expressions; leading dim omitted
}

type DeclNode struct {
	IsConst bool
	Defs    []*Node // ConstDef or VarDef
}

type DefNode struct {
	Name    string
	Dims    []*Node // dimension-size constant expressions, empty for scalars
	Init    *Node   // InitValExpr/InitValList, nil if absent
}

type InitValExprNode struct{ Expr *Node }
type InitValListNode struct{ Items []*Node } // possibly empty

type BlockNode struct{ Items []*Node } // Decl or Stmt

type StmtAssignNode struct{ LVal, Rhs *Node }
type StmtExprNode struct{ Expr *Node } // may be nil for a bare ';'
type StmtBlockNode struct{ Body *Node }
type StmtIfNode struct{ Cond, Then, Else *Node }
type StmtWhileNode struct{ Cond, Body *Node }
type StmtReturnNode struct{ Expr *Node } // nil for bare "return;"

type LValNode struct {
	Name    string
	Indices []*Node
}

type BinaryExprNode struct {
	Op          token.Type
	Left, Right *Node
}

type UnaryExprNode struct {
	Op   token.Type // Plus, Minus or Not
	Expr *Node
}

type CallExprNode struct {
	Callee string
	Args   []*Node
}

type NumberNode struct{ Value int32 }

// --- Constructors ---

func newNode(tok token.Token, t NodeType, data interface{}) *Node { return &Node{Type: t, Tok: tok, Data: data} }

func NewCompUnit(tok token.Token, items []*Node) *Node { return newNode(tok, CompUnit, CompUnitNode{items}) }
func NewFuncDef(tok token.Token, retVoid bool, name string, params []*Node, body *Node) *Node {
	return newNode(tok, FuncDef, FuncDefNode{retVoid, name, params, body})
}
func NewFuncFParam(tok token.Token, name string, isArray bool, dims []*Node) *Node {
	return newNode(tok, FuncFParam, FuncFParamNode{name, isArray, dims})
}
func NewDecl(tok token.Token, isConst bool, defs []*Node) *Node {
	nt := VarDecl
	if isConst {
		nt = ConstDecl
	}
	return newNode(tok, nt, DeclNode{isConst, defs})
}
func NewDef(tok token.Token, isConst bool, name string, dims []*Node, init *Node) *Node {
	nt := VarDef
	if isConst {
		nt = ConstDef
	}
	return newNode(tok, nt, DefNode{name, dims, init})
}
func NewInitValExpr(tok token.Token, expr *Node) *Node { return newNode(tok, InitValExpr, InitValExprNode{expr}) }
func NewInitValList(tok token.Token, items []*Node) *Node { return newNode(tok, InitValList, InitValListNode{items}) }
func NewBlock(tok token.Token, items []*Node) *Node { return newNode(tok, Block, BlockNode{items}) }
func NewStmtAssign(tok token.Token, lval, rhs *Node) *Node { return newNode(tok, StmtAssign, StmtAssignNode{lval, rhs}) }
func NewStmtExpr(tok token.Token, expr *Node) *Node { return newNode(tok, StmtExpr, StmtExprNode{expr}) }
func NewStmtEmpty(tok token.Token) *Node             { return newNode(tok, StmtEmpty, nil) }
func NewStmtBlock(tok token.Token, body *Node) *Node { return newNode(tok, StmtBlock, StmtBlockNode{body}) }
func NewStmtIf(tok token.Token, cond, then, els *Node) *Node {
	return newNode(tok, StmtIf, StmtIfNode{cond, then, els})
}
func NewStmtWhile(tok token.Token, cond, body *Node) *Node { return newNode(tok, StmtWhile, StmtWhileNode{cond, body}) }
func NewStmtBreak(tok token.Token) *Node                   { return newNode(tok, StmtBreak, nil) }
func NewStmtContinue(tok token.Token) *Node                { return newNode(tok, StmtContinue, nil) }
func NewStmtReturn(tok token.Token, expr *Node) *Node      { return newNode(tok, StmtReturn, StmtReturnNode{expr}) }
func NewLVal(tok token.Token, name string, indices []*Node) *Node {
	return newNode(tok, LVal, LValNode{name, indices})
}
func NewBinaryExpr(tok token.Token, op token.Type, l, r *Node) *Node {
	return newNode(tok, BinaryExpr, BinaryExprNode{op, l, r})
}
func NewUnaryExpr(tok token.Token, op token.Type, e *Node) *Node {
	return newNode(tok, UnaryExpr, UnaryExprNode{op, e})
}
func NewCallExpr(tok token.Token, callee string, args []*Node) *Node {
	return newNode(tok, CallExpr, CallExprNode{callee, args})
}
func NewNumber(tok token.Token, v int32) *Node { return newNode(tok, Number, NumberNode{v}) }
