package evaluator

import (
	"testing"

	"github.com/gospwn/spwn/internal/ast"
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/rterror"
	"github.com/gospwn/spwn/internal/value"
)

// TestArrowReturnSplitsAndContinues checks spec.md §4.4/§5/§9's arrow
// return: `return expr ->` forks the leaf into a broken branch carrying
// the returned value and a continuation branch that runs the rest of the
// block as if the statement were never there.
func TestArrowReturnSplitsAndContinues(t *testing.T) {
	ev, g, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	arrowVal := num(7)
	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{Symbol: "ran", Mutable: true, Value: expr(num(0))},
		&ast.Return{Value: &ast.Expression{Values: []ast.Variable{arrowVal}}, Arrow: true},
		&ast.ExprStmt{Value: exprOp(sym("ran"), ast.OpAssign, num(1))},
	}}

	if err := ev.EvalBlock(root, prog, info); err != nil {
		t.Fatal(err)
	}

	if !root.IsSplit() {
		t.Fatal("an arrow return should have split the root into two branches")
	}

	it := root.IterWithBreaks()
	var sawBroken, sawContinuation bool
	for node, ok := it.Next(); ok; node, ok = it.Next() {
		ctx := node.Inner()
		if ctx.Broken != nil {
			sawBroken = true
			if ctx.Broken.Kind != rterror.BreakMacro || !ctx.Broken.Arrow {
				t.Fatalf("broken branch: got %+v, want an arrow macro break", ctx.Broken)
			}
			n, ok := g.Arena.Get(*ctx.Broken.Value).(value.Number)
			if !ok || float64(n) != 7 {
				t.Fatalf("broken branch's carried value: got %v, want 7", g.Arena.Get(*ctx.Broken.Value))
			}
			continue
		}
		sawContinuation = true
		k, ok := ctx.GetVariable("ran")
		if !ok {
			t.Fatal("continuation branch should still see the def before the arrow return")
		}
		n, ok := g.Arena.Get(k).(value.Number)
		if !ok || float64(n) != 1 {
			t.Fatalf("continuation branch: got %v, want 1 (the statement after the arrow return should have run)", g.Arena.Get(k))
		}
	}

	if !sawBroken {
		t.Fatal("expected a broken (returned) branch")
	}
	if !sawContinuation {
		t.Fatal("expected a live continuation branch")
	}
}

// TestPlainReturnDoesNotSplit checks that a non-arrow `return expr` still
// just aborts the leaf in place, with no context split.
func TestPlainReturnDoesNotSplit(t *testing.T) {
	ev, _, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Return{Value: &ast.Expression{Values: []ast.Variable{num(1)}}, Arrow: false},
	}}

	if err := ev.EvalBlock(root, prog, info); err != nil {
		t.Fatal(err)
	}

	if root.IsSplit() {
		t.Fatal("a plain return should not split the context")
	}
	if root.Inner().Broken == nil {
		t.Fatal("a plain return should mark the leaf broken")
	}
}
