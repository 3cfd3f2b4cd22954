package evaluator

import (
	"testing"

	"github.com/gospwn/spwn/internal/ast"
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/value"
)

// TestForLoopSumsArray checks that `for n in arr { total += n }` visits
// every element in source order.
func TestForLoopSumsArray(t *testing.T) {
	ev, g, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{Symbol: "total", Mutable: true, Value: expr(num(0))},
		&ast.For{
			Symbol: "n",
			Array:  expr(ast.Variable{Value: ast.ValueLiteral{Kind: ast.LitArray, Array: []ast.Expression{expr(num(1)), expr(num(2)), expr(num(3))}}}),
			Body: &ast.Block{Statements: []ast.Statement{
				&ast.ExprStmt{Value: exprOp(sym("total"), ast.OpAddEq, sym("n"))},
			}},
		},
	}}

	if err := ev.EvalBlock(root, prog, info); err != nil {
		t.Fatal(err)
	}

	k, _ := root.Inner().GetVariable("total")
	n, ok := g.Arena.Get(k).(value.Number)
	if !ok || float64(n) != 6 {
		t.Fatalf("got %v, want 6", g.Arena.Get(k))
	}
}

// TestBreakStopsForLoop checks that `break` halts iteration early and
// later elements never run their body.
func TestBreakStopsForLoop(t *testing.T) {
	ev, g, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{Symbol: "seen", Mutable: true, Value: expr(num(0))},
		&ast.For{
			Symbol: "n",
			Array:  expr(ast.Variable{Value: ast.ValueLiteral{Kind: ast.LitArray, Array: []ast.Expression{expr(num(1)), expr(num(2)), expr(num(3))}}}),
			Body: &ast.Block{Statements: []ast.Statement{
				&ast.ExprStmt{Value: exprOp(sym("seen"), ast.OpAddEq, num(1))},
				&ast.Break{},
			}},
		},
	}}

	if err := ev.EvalBlock(root, prog, info); err != nil {
		t.Fatal(err)
	}

	k, _ := root.Inner().GetVariable("seen")
	n, ok := g.Arena.Get(k).(value.Number)
	if !ok || float64(n) != 1 {
		t.Fatalf("got %v, want 1 (break should stop after the first element)", g.Arena.Get(k))
	}
}

// TestContinueSkipsRestOfBody checks that `continue` jumps straight to the
// next element without running the statements after it.
func TestContinueSkipsRestOfBody(t *testing.T) {
	ev, g, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{Symbol: "total", Mutable: true, Value: expr(num(0))},
		&ast.For{
			Symbol: "n",
			Array:  expr(ast.Variable{Value: ast.ValueLiteral{Kind: ast.LitArray, Array: []ast.Expression{expr(num(1)), expr(num(2)), expr(num(3))}}}),
			Body: &ast.Block{Statements: []ast.Statement{
				&ast.Continue{},
				&ast.ExprStmt{Value: exprOp(sym("total"), ast.OpAddEq, sym("n"))},
			}},
		},
	}}

	if err := ev.EvalBlock(root, prog, info); err != nil {
		t.Fatal(err)
	}

	k, _ := root.Inner().GetVariable("total")
	n, ok := g.Arena.Get(k).(value.Number)
	if !ok || float64(n) != 0 {
		t.Fatalf("got %v, want 0 (continue should skip the add entirely)", g.Arena.Get(k))
	}
}

// TestIfElseTakesElseBranch checks that a false condition with no matching
// branch falls through to Else.
func TestIfElseTakesElseBranch(t *testing.T) {
	ev, g, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{Symbol: "x", Mutable: true, Value: expr(num(0))},
		&ast.If{
			Branches: []ast.IfBranch{{
				Condition: exprOp(num(1), ast.OpEq, num(2)),
				Body:      &ast.Block{Statements: []ast.Statement{&ast.ExprStmt{Value: exprOp(sym("x"), ast.OpAssign, num(1))}}},
			}},
			Else: &ast.Block{Statements: []ast.Statement{&ast.ExprStmt{Value: exprOp(sym("x"), ast.OpAssign, num(2))}}},
		},
	}}

	if err := ev.EvalBlock(root, prog, info); err != nil {
		t.Fatal(err)
	}

	k, _ := root.Inner().GetVariable("x")
	n, ok := g.Arena.Get(k).(value.Number)
	if !ok || float64(n) != 2 {
		t.Fatalf("got %v, want 2 (else branch should have run)", g.Arena.Get(k))
	}
}

func arrLit(vals ...ast.Expression) ast.Expression {
	return expr(ast.Variable{Value: ast.ValueLiteral{Kind: ast.LitArray, Array: vals}})
}

// TestDestructureDefBindsArrayElements checks `let [a, b, c] = [1, 2, 3]`
// binds each name to its matching element.
func TestDestructureDefBindsArrayElements(t *testing.T) {
	ev, g, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{
			Mutable: true,
			Target: &ast.DestructureTarget{Array: []ast.ArrayBindingElement{
				{Symbol: "a"}, {Symbol: "b"}, {Symbol: "c"},
			}},
			Value: arrLit(expr(num(1)), expr(num(2)), expr(num(3))),
		},
	}}

	if err := ev.EvalBlock(root, prog, info); err != nil {
		t.Fatal(err)
	}

	for name, want := range map[string]float64{"a": 1, "b": 2, "c": 3} {
		k, ok := root.Inner().GetVariable(name)
		if !ok {
			t.Fatalf("%s was never bound", name)
		}
		n, ok := g.Arena.Get(k).(value.Number)
		if !ok || float64(n) != want {
			t.Fatalf("%s: got %v, want %v", name, g.Arena.Get(k), want)
		}
	}
}

// TestDestructureDefWithSpreadCollectsMiddle checks `let [a, ...rest, c] =
// [1, 2, 3, 4]` binds the spread element to everything between the fixed
// positions (spec.md §4.4/§8).
func TestDestructureDefWithSpreadCollectsMiddle(t *testing.T) {
	ev, g, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{
			Mutable: true,
			Target: &ast.DestructureTarget{Array: []ast.ArrayBindingElement{
				{Symbol: "a"},
				{Symbol: "rest", Spread: true},
				{Symbol: "c"},
			}},
			Value: arrLit(expr(num(1)), expr(num(2)), expr(num(3)), expr(num(4))),
		},
	}}

	if err := ev.EvalBlock(root, prog, info); err != nil {
		t.Fatal(err)
	}

	ak, _ := root.Inner().GetVariable("a")
	if n, _ := g.Arena.Get(ak).(value.Number); float64(n) != 1 {
		t.Fatalf("a: got %v, want 1", g.Arena.Get(ak))
	}
	ck, _ := root.Inner().GetVariable("c")
	if n, _ := g.Arena.Get(ck).(value.Number); float64(n) != 4 {
		t.Fatalf("c: got %v, want 4", g.Arena.Get(ck))
	}
	rk, ok := root.Inner().GetVariable("rest")
	if !ok {
		t.Fatal("rest was never bound")
	}
	rest, ok := g.Arena.Get(rk).(value.Array)
	if !ok || len(rest) != 2 {
		t.Fatalf("rest: got %v, want a 2-element array", g.Arena.Get(rk))
	}
	if n, _ := g.Arena.Get(rest[0]).(value.Number); float64(n) != 2 {
		t.Fatalf("rest[0]: got %v, want 2", g.Arena.Get(rest[0]))
	}
}

// TestDestructureArityMismatchFails checks `let [a, b] = [1, 2, 3]`
// (no spread, N!=M) fails rather than silently truncating.
func TestDestructureArityMismatchFails(t *testing.T) {
	ev, _, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{
			Mutable: true,
			Target: &ast.DestructureTarget{Array: []ast.ArrayBindingElement{
				{Symbol: "a"}, {Symbol: "b"},
			}},
			Value: arrLit(expr(num(1)), expr(num(2)), expr(num(3))),
		},
	}}

	if err := ev.EvalBlock(root, prog, info); err == nil {
		t.Fatal("expected an arity-mismatch error")
	}
}

// TestDestructureIntoPatternFails checks that destructuring a non-array,
// non-dict value (e.g. a plain number) against an array pattern fails,
// spec.md's "destructuring into a pattern fails".
func TestDestructureIntoPatternFails(t *testing.T) {
	ev, _, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{
			Mutable: true,
			Target: &ast.DestructureTarget{Array: []ast.ArrayBindingElement{
				{Symbol: "a"}, {Symbol: "b"},
			}},
			Value: expr(num(5)),
		},
	}}

	if err := ev.EvalBlock(root, prog, info); err == nil {
		t.Fatal("expected destructuring a number to fail")
	}
}

// TestForLoopDestructuresDictPairs checks `for [k, v] in dict { ... }`
// destructures each `[key, val]` pair the dict iteration yields.
func TestForLoopDestructuresDictPairs(t *testing.T) {
	ev, g, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	dictLit := expr(ast.Variable{Value: ast.ValueLiteral{Kind: ast.LitDict, Dict: []ast.DictEntry{
		{Key: "only", Value: expr(num(7))},
	}}})

	prog := &ast.Block{Statements: []ast.Statement{
		&ast.Def{Symbol: "seenKey", Mutable: true, Value: expr(ast.Variable{Value: ast.ValueLiteral{Kind: ast.LitStr, Str: ""}})},
		&ast.Def{Symbol: "seenVal", Mutable: true, Value: expr(num(0))},
		&ast.For{
			Target: &ast.DestructureTarget{Array: []ast.ArrayBindingElement{{Symbol: "k"}, {Symbol: "v"}}},
			Array:  dictLit,
			Body: &ast.Block{Statements: []ast.Statement{
				&ast.ExprStmt{Value: exprOp(sym("seenKey"), ast.OpAssign, sym("k"))},
				&ast.ExprStmt{Value: exprOp(sym("seenVal"), ast.OpAssign, sym("v"))},
			}},
		},
	}}

	if err := ev.EvalBlock(root, prog, info); err != nil {
		t.Fatal(err)
	}

	kk, _ := root.Inner().GetVariable("seenKey")
	if s, ok := g.Arena.Get(kk).(value.Str); !ok || string(s) != "only" {
		t.Fatalf("seenKey: got %v, want \"only\"", g.Arena.Get(kk))
	}
	vk, _ := root.Inner().GetVariable("seenVal")
	if n, ok := g.Arena.Get(vk).(value.Number); !ok || float64(n) != 7 {
		t.Fatalf("seenVal: got %v, want 7", g.Arena.Get(vk))
	}
}

// TestMacroReturnValue checks that `return expr` inside a macro body
// produces that value as the call's result rather than running past it.
func TestMacroReturnValue(t *testing.T) {
	ev, g, root := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	body := &ast.Block{Statements: []ast.Statement{
		&ast.Return{Value: &ast.Expression{Values: []ast.Variable{num(42)}}},
		&ast.Def{Symbol: "unreachable", Mutable: false, Value: expr(num(0))},
	}}
	m := &value.Macro{Body: body}
	macroKey := g.Arena.Insert(value.StoredValData{Val: value.MacroValue{Macro: m}, DefArea: diag.Native})

	leaf := firstLeaf(root)
	result, err := ev.callMacro(leaf, macroKey, nil, nil, diag.Native, info)
	if err != nil {
		t.Fatal(err)
	}

	n, ok := g.Arena.Get(result).(value.Number)
	if !ok || float64(n) != 42 {
		t.Fatalf("got %v, want 42", g.Arena.Get(result))
	}
	if _, ok := leaf.Inner().GetVariable("unreachable"); ok {
		t.Fatal("statement after return should never have run")
	}
}
