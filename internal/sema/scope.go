// Package sema implements the front-end semantic passes described by
// spec.md §4.1-§4.3: the scope & symbol engine (C1), the constant
// evaluator (C2), and the initializer flattener (C3).
//
// The scope chain is grounded on the teacher's pkg/typeChecker/typeChecker.go
// Scope/Symbol linked list (a singly-linked Symbol chain per scope, scopes
// themselves chained through parent) rather than a slice-of-maps; Lookup
// walks each scope's chain linearly by source name.
package sema

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"sysyc/internal/diag"
	"sysyc/internal/token"
)

type SymKind int

const (
	KindVar SymKind = iota
	KindFunc
)

type SymType int

const (
	TypeInt SymType = iota
	TypeVoid
	TypePtr // pointer to i32, only ever the type of an array parameter
)

// Symbol is the symbol-table entry from spec.md §3.
type Symbol struct {
	Name       string
	UniqueName string
	ConstValue int32
	IsConst    bool
	Kind       SymKind
	Type       SymType
	Dims       []int // empty for scalars; Dims[0]==0 marks an array parameter

	Next *Symbol // next symbol in the same scope's chain
}

type scope struct {
	symbols *Symbol
	parent  *scope
}

type loopCtx struct{ breakLabel, continueLabel string }

// Engine is the stacked-scope symbol table plus the loop-label stack from
// spec.md §4.1.
type Engine struct {
	current *scope
	global  *scope

	loops []loopCtx

	renameCounter map[string]int  // per-function; reset at function entry
	usedNames     map[uint64]bool // xxhash64(unique_name) of every name emitted so far

	Renames []Rename // every local name_<k> allocation, for -Wshadow-style reporting
}

// Rename records the name_<k> unique_name given to one local variable or
// parameter, surfaced to callers that want to warn about it (see
// internal/config's WarnShadow).
type Rename struct {
	Name, UniqueName string
}

func NewEngine() *Engine {
	g := &scope{}
	return &Engine{
		current:       g,
		global:        g,
		renameCounter: map[string]int{},
		usedNames:     map[uint64]bool{},
	}
}

func hashName(s string) uint64 { return xxhash.Sum64String(s) }

func (e *Engine) EnterScope() { e.current = &scope{parent: e.current} }

func (e *Engine) ExitScope() {
	if e.current.parent == nil {
		diag.Raise(diag.InvariantError, token.Token{}, "scope stack underflow")
	}
	e.current = e.current.parent
}

// IsGlobalScope is true iff only the bottom (global) scope is live.
func (e *Engine) IsGlobalScope() bool { return e.current == e.global }

// ResetFunction clears the per-function rename counter and the set of
// unique_names already handed out, then reseeds usedNames from every global
// declared so far; called on entry to every FuncDef per
// spec.md §4.1/§4.5/§4.6. Collision avoidance is a per-function/global
// concern (Koopa locals live in a per-function namespace, mirrored by
// internal/koopa/parse.go's own per-function values map reset), so a name
// used by a local in one function must not forbid the same name_k in an
// unrelated function — but it must still never collide with a global's bare
// name, since internal/koopa/parse.go's resolveOperand checks the
// function-local values map before globals and would silently resolve a
// reference to the global into the unrelated local's alloc cell instead.
func (e *Engine) ResetFunction() {
	e.renameCounter = map[string]int{}
	e.usedNames = map[uint64]bool{}
	for s := e.global.symbols; s != nil; s = s.Next {
		e.usedNames[hashName(s.UniqueName)] = true
	}
}

// Add binds sym.Name in the current (innermost) scope, computing its
// UniqueName. It returns false without binding anything if the current
// scope already binds that name.
func (e *Engine) Add(tok token.Token, sym *Symbol) bool {
	for s := e.current.symbols; s != nil; s = s.Next {
		if s.Name == sym.Name {
			return false
		}
	}
	sym.UniqueName = e.uniqueName(sym.Name)
	e.usedNames[hashName(sym.UniqueName)] = true
	sym.Next = e.current.symbols
	e.current.symbols = sym
	return true
}

// uniqueName implements the C1 rename rule: globals keep their bare name;
// locals get the smallest name_<k> (k starting at 0) not already in use.
//
// Open question carried from spec.md §9: the corpus never exercises the
// case where a local's computed name_k collides with a global declared
// *after* the local was emitted, since Koopa text is written function by
// function and a later global cannot retroactively rename an already-typed
// local. sysyc checks only against names known at the time of allocation
// and does not attempt to guess the unexercised behavior.
func (e *Engine) uniqueName(name string) string {
	if e.IsGlobalScope() {
		return name
	}
	for {
		k := e.renameCounter[name]
		e.renameCounter[name] = k + 1
		candidate := fmt.Sprintf("%s_%d", name, k)
		if !e.usedNames[hashName(candidate)] {
			e.Renames = append(e.Renames, Rename{Name: name, UniqueName: candidate})
			return candidate
		}
	}
}

// Lookup searches innermost-to-outermost and returns the first hit.
func (e *Engine) Lookup(name string) (*Symbol, bool) {
	for s := e.current; s != nil; s = s.parent {
		for sym := s.symbols; sym != nil; sym = sym.Next {
			if sym.Name == name {
				return sym, true
			}
		}
	}
	return nil, false
}

func (e *Engine) EnterLoop(entryLabel, exitLabel string) {
	e.loops = append(e.loops, loopCtx{breakLabel: exitLabel, continueLabel: entryLabel})
}

func (e *Engine) ExitLoop() {
	if len(e.loops) == 0 {
		diag.Raise(diag.InvariantError, token.Token{}, "loop stack underflow")
	}
	e.loops = e.loops[:len(e.loops)-1]
}

// CurrentBreak/CurrentContinue resolve break/continue targets. Per
// spec.md §7, use of break/continue outside any loop is an InvariantError:
// the front end is expected to only ever emit them while lowering a while
// body, so an empty stack here means a bug upstream, not a user error.
func (e *Engine) CurrentBreak(tok token.Token) string {
	if len(e.loops) == 0 {
		diag.Raise(diag.InvariantError, tok, "break outside loop")
	}
	return e.loops[len(e.loops)-1].breakLabel
}

func (e *Engine) CurrentContinue(tok token.Token) string {
	if len(e.loops) == 0 {
		diag.Raise(diag.InvariantError, tok, "continue outside loop")
	}
	return e.loops[len(e.loops)-1].continueLabel
}

// DimsMatch reports whether idxCount is a legal number of subscripts for a
// symbol with the given declared rank (spec.md §7 ScopeError: mismatched
// rank).
func DimsMatch(sym *Symbol, idxCount int) bool {
	return idxCount <= len(sym.Dims)
}

// ArrayElementCount returns the product of dims[from:], i.e. how many
// scalar elements one index at position `from` still spans.
func ArrayElementCount(dims []int, from int) int {
	n := 1
	for _, d := range dims[from:] {
		n *= d
	}
	return n
}
