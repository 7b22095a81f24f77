package sema

import (
	"testing"

	"sysyc/internal/ast"
	"sysyc/internal/token"
)

func TestFlattenScalar(t *testing.T) {
	init := ast.NewInitValExpr(token.Token{}, num(7))
	flat := Flatten(init, nil)
	if len(flat) != 1 || flat[0].Expr == nil {
		t.Fatalf("scalar flatten should produce exactly one populated slot, got %+v", flat)
	}
}

func TestFlattenEmptyBraceZeroFills(t *testing.T) {
	init := ast.NewInitValList(token.Token{}, nil)
	flat := Flatten(init, []int{4})
	if len(flat) != 4 {
		t.Fatalf("len(flat) = %d, want 4", len(flat))
	}
	for i, e := range flat {
		if e.Expr != nil {
			t.Errorf("slot %d should be implicit zero, got an expression", i)
		}
	}
}

func TestFlattenFlatList(t *testing.T) {
	items := []*ast.Node{
		ast.NewInitValExpr(token.Token{}, num(1)),
		ast.NewInitValExpr(token.Token{}, num(2)),
	}
	init := ast.NewInitValList(token.Token{}, items)
	flat := Flatten(init, []int{4})
	if len(flat) != 4 {
		t.Fatalf("len(flat) = %d, want 4", len(flat))
	}
	if flat[0].Expr == nil || flat[1].Expr == nil {
		t.Fatal("first two slots should carry the given expressions")
	}
	if flat[2].Expr != nil || flat[3].Expr != nil {
		t.Fatal("trailing slots should be implicit zero")
	}
}

func TestFlattenNestedAlignedSubarray(t *testing.T) {
	// int a[2][3] = {{1, 2, 3}, {4}};
	row0 := ast.NewInitValList(token.Token{}, []*ast.Node{
		ast.NewInitValExpr(token.Token{}, num(1)),
		ast.NewInitValExpr(token.Token{}, num(2)),
		ast.NewInitValExpr(token.Token{}, num(3)),
	})
	row1 := ast.NewInitValList(token.Token{}, []*ast.Node{
		ast.NewInitValExpr(token.Token{}, num(4)),
	})
	init := ast.NewInitValList(token.Token{}, []*ast.Node{row0, row1})
	flat := Flatten(init, []int{2, 3})
	if len(flat) != 6 {
		t.Fatalf("len(flat) = %d, want 6", len(flat))
	}
	for i, wantPresent := range []bool{true, true, true, true, false, false} {
		if (flat[i].Expr != nil) != wantPresent {
			t.Errorf("slot %d presence = %v, want %v", i, flat[i].Expr != nil, wantPresent)
		}
	}
}

func TestFlattenMixedScalarAndSubarray(t *testing.T) {
	// int a[2][2] = {1, {2, 3}}; first scalar fills a[0][0], the brace
	// child must then start on a stride (2-element) boundary, which the
	// slot after a single leading scalar violates.
	sub := ast.NewInitValList(token.Token{}, []*ast.Node{
		ast.NewInitValExpr(token.Token{}, num(2)),
		ast.NewInitValExpr(token.Token{}, num(3)),
	})
	init := ast.NewInitValList(token.Token{}, []*ast.Node{
		ast.NewInitValExpr(token.Token{}, num(1)),
		sub,
	})
	defer func() {
		if recover() == nil {
			t.Fatal("a brace child not aligned to a stride boundary should raise a ShapeError")
		}
	}()
	Flatten(init, []int{2, 2})
}

func TestFlattenRejectsTooManyInitializers(t *testing.T) {
	// int a[3] = {1, 2, 3, 4, 5}; must never silently overrun the array.
	items := []*ast.Node{
		ast.NewInitValExpr(token.Token{}, num(1)),
		ast.NewInitValExpr(token.Token{}, num(2)),
		ast.NewInitValExpr(token.Token{}, num(3)),
		ast.NewInitValExpr(token.Token{}, num(4)),
		ast.NewInitValExpr(token.Token{}, num(5)),
	}
	init := ast.NewInitValList(token.Token{}, items)
	defer func() {
		if recover() == nil {
			t.Fatal("more scalar initializers than the array's declared size should raise a ShapeError")
		}
	}()
	Flatten(init, []int{3})
}

func TestFlattenRejectsOverdeepNesting(t *testing.T) {
	inner := ast.NewInitValList(token.Token{}, []*ast.Node{ast.NewInitValExpr(token.Token{}, num(1))})
	init := ast.NewInitValList(token.Token{}, []*ast.Node{inner})
	defer func() {
		if recover() == nil {
			t.Fatal("nesting deeper than the array's rank should raise a ShapeError")
		}
	}()
	Flatten(init, []int{1}) // rank 1, but init nests one level too deep
}
