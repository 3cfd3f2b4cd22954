package evaluator

import (
	"testing"

	"github.com/gospwn/spwn/internal/ast"
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/globals"
	"github.com/gospwn/spwn/internal/ictx"
	"github.com/gospwn/spwn/internal/value"
)

func newTestEvaluator() (*Evaluator, *globals.Globals, *ictx.FullContext) {
	arena := value.NewArena()
	g := globals.New(arena, "test.spwn")
	g.FuncIDs = []globals.FunctionId{{}}
	root := ictx.NewRoot(g.NullStorage)
	root.Inner().NewVariable("$", g.BuiltinStorage, 0)
	return New(g), g, root
}

func sym(name string) ast.Variable {
	return ast.Variable{Value: ast.ValueLiteral{Kind: ast.LitSymbol, Symbol: name}}
}

func num(n float64) ast.Variable {
	return ast.Variable{Value: ast.ValueLiteral{Kind: ast.LitNumber, Number: n}}
}

func expr(values ...ast.Variable) ast.Expression {
	return ast.Expression{Values: values}
}

func exprOp(a ast.Variable, op ast.Operator, b ast.Variable) ast.Expression {
	return ast.Expression{Values: []ast.Variable{a, b}, Operators: []ast.Operator{op}}
}

// TestWhileLoopCompoundAssign is spec.md §8 scenario 3:
// `let x=0; while x<3 { x+=1 } assert(x==3)`.
func TestWhileLoopCompoundAssign(t *testing.T) {
	ev, g, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{Symbol: "x", Mutable: true, Value: expr(num(0))},
		&ast.While{
			Condition: exprOp(sym("x"), ast.OpLess, num(3)),
			Body: &ast.Block{Statements: []ast.Statement{
				&ast.ExprStmt{Value: exprOp(sym("x"), ast.OpAddEq, num(1))},
			}},
		},
	}}

	if err := ev.EvalBlock(root, prog, info); err != nil {
		t.Fatal(err)
	}

	k, ok := root.Inner().GetVariable("x")
	if !ok {
		t.Fatal("x was never bound")
	}
	n, ok := g.Arena.Get(k).(value.Number)
	if !ok || float64(n) != 3 {
		t.Fatalf("got %v, want 3", g.Arena.Get(k))
	}
}

// TestPlainAssignWritesThroughSameSlot checks that `x = 5` mutates x's
// existing arena slot rather than rebinding the name to a fresh one.
func TestPlainAssignWritesThroughSameSlot(t *testing.T) {
	ev, g, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{Symbol: "x", Mutable: true, Value: expr(num(1))},
		&ast.ExprStmt{Value: exprOp(sym("x"), ast.OpAssign, num(5))},
	}}

	if err := ev.EvalBlock(root, prog, info); err != nil {
		t.Fatal(err)
	}

	k, _ := root.Inner().GetVariable("x")
	n, ok := g.Arena.Get(k).(value.Number)
	if !ok || float64(n) != 5 {
		t.Fatalf("got %v, want 5", g.Arena.Get(k))
	}
}

// TestAssignToImmutableFails checks spec.md §3's "to mutate a slot, its
// mutable flag must be true" half of the mutation rule.
func TestAssignToImmutableFails(t *testing.T) {
	ev, _, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{Symbol: "x", Mutable: false, Value: expr(num(1))},
		&ast.ExprStmt{Value: exprOp(sym("x"), ast.OpAssign, num(5))},
	}}

	if err := ev.EvalBlock(root, prog, info); err == nil {
		t.Fatal("expected a mutability error assigning to a non-mutable binding")
	}
}

// TestSwapOperatorExchangesValues checks `<=>`.
func TestSwapOperatorExchangesValues(t *testing.T) {
	ev, g, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{Symbol: "x", Mutable: true, Value: expr(num(1))},
		&ast.Def{Symbol: "y", Mutable: true, Value: expr(num(2))},
		&ast.ExprStmt{Value: exprOp(sym("x"), ast.OpSwap, sym("y"))},
	}}

	if err := ev.EvalBlock(root, prog, info); err != nil {
		t.Fatal(err)
	}

	xk, _ := root.Inner().GetVariable("x")
	yk, _ := root.Inner().GetVariable("y")
	xn, _ := g.Arena.Get(xk).(value.Number)
	yn, _ := g.Arena.Get(yk).(value.Number)
	if float64(xn) != 2 || float64(yn) != 1 {
		t.Fatalf("got x=%v y=%v, want x=2 y=1", xn, yn)
	}
}

// TestIsOperatorMatchesType checks that `x is @number_like` is false for a
// number when number_like is an unrelated user-defined type.
func TestIsOperatorMatchesType(t *testing.T) {
	ev, g, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)
	g.NewTypeID("number_like", diag.Native)

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{Symbol: "x", Mutable: false, Value: expr(num(1))},
		&ast.Def{Symbol: "result", Mutable: false, Value: exprOp(sym("x"), ast.OpIs, ast.Variable{
			Value: ast.ValueLiteral{Kind: ast.LitTypeIndicator, TypeName: "number_like"},
		})},
	}}

	if err := ev.EvalBlock(root, prog, info); err != nil {
		t.Fatal(err)
	}

	k, _ := root.Inner().GetVariable("result")
	b, ok := g.Arena.Get(k).(value.Bool)
	if !ok || bool(b) {
		t.Fatalf("a number should not match an unrelated user type, got %v", g.Arena.Get(k))
	}
}
