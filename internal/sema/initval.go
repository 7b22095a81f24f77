package sema

import (
	"sysyc/internal/ast"
	"sysyc/internal/diag"
)

// FlatElem is one slot of a flattened initializer: either the source
// expression that produces it, or nil meaning zero (spec.md §4.3).
type FlatElem struct {
	Expr *ast.Node
}

// Flatten walks an InitVal/ConstInitVal tree against a target shape dims
// (all entries positive) and produces a dense row-major vector of length
// product(dims), per spec.md §4.3 (C3).
//
// Not grounded on any single teacher file — the teacher's B-language
// front end has no nested brace-initializer shape to flatten — but follows
// the same depth-first tree-walk-with-running-cursor style the teacher
// uses throughout pkg/codegen/codegen.go's initializer handling
// (codegenGlobalVarDecl/codegenLocalVarDecl), generalized to arbitrary
// rank.
func Flatten(init *ast.Node, dims []int) []FlatElem {
	if len(dims) == 0 {
		if init.Type != ast.InitValExpr {
			diag.Raise(diag.ShapeError, init.Tok, "scalar initializer must be a single expression")
		}
		return []FlatElem{{Expr: init.Data.(ast.InitValExprNode).Expr}}
	}
	if init.Type != ast.InitValList {
		diag.Raise(diag.ShapeError, init.Tok, "array initializer must be a brace list")
	}
	return flattenList(init.Data.(ast.InitValListNode).Items, dims, 0)
}

// flattenList fills a sub-array occupying dims[level:], given its child
// initializer items, per the algorithm in spec.md §4.3:
//  1. stride = product(dims[level+1:]) is the size of one child sub-array.
//  2. a scalar child contributes one element and advances the cursor.
//  3. a brace-list child must start on a stride boundary and recurses at
//     level+1.
//  4. once children are exhausted, pad with zeros up to product(dims[level:]).
func flattenList(items []*ast.Node, dims []int, level int) []FlatElem {
	total := ArrayElementCount(dims, level)
	stride := ArrayElementCount(dims, level+1)

	var out []FlatElem
	count := 0
	for _, child := range items {
		switch child.Type {
		case ast.InitValExpr:
			if count >= total {
				diag.Raise(diag.ShapeError, child.Tok, "too many initializers for array of size %d", total)
			}
			out = append(out, FlatElem{Expr: child.Data.(ast.InitValExprNode).Expr})
			count++
		case ast.InitValList:
			if level+1 >= len(dims) {
				diag.Raise(diag.ShapeError, child.Tok, "initializer nested deeper than the array's rank")
			}
			if count%stride != 0 {
				diag.Raise(diag.ShapeError, child.Tok, "initializer is not aligned to a sub-array boundary")
			}
			if count >= total {
				diag.Raise(diag.ShapeError, child.Tok, "too many initializers for array of size %d", total)
			}
			sub := flattenList(child.Data.(ast.InitValListNode).Items, dims, level+1)
			out = append(out, sub...)
			count += stride
		default:
			diag.Raise(diag.InvariantError, child.Tok, "unexpected node in initializer list: %v", child.Type)
		}
	}
	for count < total {
		out = append(out, FlatElem{Expr: nil})
		count++
	}
	return out
}
