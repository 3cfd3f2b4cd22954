package api

import (
	"strings"
	"testing"

	"github.com/gospwn/spwn/internal/ast"
)

func num(n float64) ast.Variable {
	return ast.Variable{Value: ast.ValueLiteral{Kind: ast.LitNumber, Number: n}}
}

func dollarAdd(obj ast.Variable) ast.Statement {
	return &ast.Call{Fn: ast.Expression{Values: []ast.Variable{{
		Value: ast.ValueLiteral{Kind: ast.LitSymbol, Symbol: "$"},
		Path: []ast.Path{
			ast.Member{Name: "add"},
			ast.CallArgs{Args: []ast.Argument{{Value: ast.Expression{Values: []ast.Variable{obj}}}}},
		},
	}}}}
}

// TestCompileAddsPlainObject exercises the full pkg/api.Compile pipeline
// (value arena -> globals -> evaluator -> emitter) against a program
// equivalent to `$.add(obj{1:1, 2:15})`.
func TestCompileAddsPlainObject(t *testing.T) {
	prog := &ast.Block{Statements: []ast.Statement{
		dollarAdd(ast.Variable{Value: ast.ValueLiteral{Kind: ast.LitObject, Object: &ast.ObjectLiteral{
			Entries: []ast.ObjectEntry{
				{Key: ast.Expression{Values: []ast.Variable{num(1)}}, Value: ast.Expression{Values: []ast.Variable{num(1)}}},
				{Key: ast.Expression{Values: []ast.Variable{num(2)}}, Value: ast.Expression{Values: []ast.Variable{num(15)}}},
			},
		}}}),
	}}

	result, err := Compile(prog, Options{Path: "test.spwn"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.ObjectString, "1,1") || !strings.Contains(result.ObjectString, "2,15") {
		t.Fatalf("expected the object's own params in the output, got %q", result.ObjectString)
	}
	if strings.Contains(result.ObjectString, "108,1") {
		t.Fatal("a plain object must not get the trigger linked-group suffix")
	}
	if !strings.HasSuffix(result.ObjectString, ";") {
		t.Fatalf("expected a trailing ';', got %q", result.ObjectString)
	}
}

// TestCompileAddsTrigger checks that `$.add(trigger{...})` lands in the
// FunctionId forest and comes out with the unconditional linked-group
// suffix and a resolved position.
func TestCompileAddsTrigger(t *testing.T) {
	prog := &ast.Block{Statements: []ast.Statement{
		dollarAdd(ast.Variable{Value: ast.ValueLiteral{Kind: ast.LitObject, Object: &ast.ObjectLiteral{
			IsTrigger: true,
			Entries: []ast.ObjectEntry{
				{Key: ast.Expression{Values: []ast.Variable{num(1)}}, Value: ast.Expression{Values: []ast.Variable{num(1268)}}},
			},
		}}}),
	}}

	result, err := Compile(prog, Options{Path: "test.spwn"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.ObjectString, "108,1") {
		t.Fatalf("expected the trigger linked-group suffix, got %q", result.ObjectString)
	}
}

// TestCompileRejectsDeniedBuiltin checks Options.Deny reaches the evaluator
// via Globals.Permissions.
func TestCompileRejectsDeniedBuiltin(t *testing.T) {
	prog := &ast.Block{Statements: []ast.Statement{
		dollarAdd(ast.Variable{Value: ast.ValueLiteral{Kind: ast.LitObject, Object: &ast.ObjectLiteral{
			Entries: []ast.ObjectEntry{
				{Key: ast.Expression{Values: []ast.Variable{num(1)}}, Value: ast.Expression{Values: []ast.Variable{num(1)}}},
			},
		}}}),
	}}

	if _, err := Compile(prog, Options{Path: "test.spwn", Deny: []string{"add"}}); err == nil {
		t.Fatal("expected the denied builtin to be rejected")
	}
}
