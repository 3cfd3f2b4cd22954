package evaluator

import (
	"github.com/gospwn/spwn/internal/ast"
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/ictx"
	"github.com/gospwn/spwn/internal/rterror"
	"github.com/gospwn/spwn/internal/value"
)

// buildMacro evaluates a macro literal's argument defaults/patterns
// against node's single leaf and captures the current environment,
// compiler_types.rs's handling of ValueBody::Lambda.
func (e *Evaluator) buildMacro(node *ictx.FullContext, lit *ast.MacroLiteral, info diag.Info) (*value.Macro, error) {
	m := &value.Macro{Body: lit.Body, DefFile: info.Position.File, ArgPos: lit.ArgPos}
	for _, a := range lit.Args {
		def := value.ArgDef{Name: a.Name, Position: a.Pos, AsRef: a.AsRef}
		if a.Default != nil {
			if err := e.EvalExpression(node, a.Default, info); err != nil {
				return nil, err
			}
			k := firstLeaf(node).Inner().ReturnValue
			def.Default = &k
		}
		if a.Pattern != nil {
			if err := e.EvalExpression(node, a.Pattern, info); err != nil {
				return nil, err
			}
			k := firstLeaf(node).Inner().ReturnValue
			def.Pattern = &k
		}
		m.Args = append(m.Args, def)
	}
	if lit.RetType != nil {
		if err := e.EvalExpression(node, lit.RetType, info); err != nil {
			return nil, err
		}
		k := firstLeaf(node).Inner().ReturnValue
		m.RetPattern = &k
	}
	m.DefVars = make(map[string]value.Key)
	ctx := firstLeaf(node).Inner()
	for name, stack := range ctx.Variables() {
		if len(stack) > 0 {
			m.DefVars[name] = stack[len(stack)-1].Val
		}
	}
	return m, nil
}

// callArg is one actual argument to a macro call: either an AST expression
// still to be evaluated (a normal call site) or an already-resolved arena
// key (an operator override's copied operand, or a builtin-constructed
// call). Keeping this internal to the evaluator avoids giving the ast
// package any notion of a "resolved" literal, which would require it to
// import the value package and create an import cycle.
type callArg struct {
	Symbol   string
	Expr     *ast.Expression
	Resolved *value.Key
}

func argsFromAST(args []ast.Argument) []callArg {
	out := make([]callArg, len(args))
	for i := range args {
		out[i] = callArg{Symbol: args[i].Symbol, Expr: &args[i].Value}
	}
	return out
}

// callMacro invokes macroKey's closure against node's leaf with selfVal
// (nil if not a method call) and the given actual arguments, binding
// parameters per spec.md §4.4: positional then named, arity/defaults
// enforced, patterns checked, body run in a replaced (not layered)
// environment, def_file pushed for the call's duration.
func (e *Evaluator) callMacro(node *ictx.FullContext, macroKey value.Key, selfVal *value.Key, args []callArg, callArea diag.CodeArea, info diag.Info) (value.Key, error) {
	mv, ok := e.G.Arena.Get(macroKey).(value.MacroValue)
	if !ok {
		return value.Key{}, &rterror.TypeError{Expected: "macro", Found: kindName(e.G.Arena.Get(macroKey)), ValDef: callArea, Info: info.WithArea(callArea)}
	}
	m := mv.Macro

	bound := make(map[string]value.Key)
	formals := m.Args
	argIdx := 0
	if selfVal != nil && len(formals) > 0 && formals[0].Name == "self" {
		bound["self"] = *selfVal
		formals = formals[1:]
	}

	var named []callArg
	for _, a := range args {
		if a.Symbol == "" {
			if argIdx >= len(formals) {
				return value.Key{}, &rterror.BuiltinError{Builtin: "macro call", Message: "too many positional arguments", Info: info.WithArea(callArea)}
			}
			k, err := e.resolveCallArg(node, a, info)
			if err != nil {
				return value.Key{}, err
			}
			bound[formals[argIdx].Name] = k
			argIdx++
		} else {
			named = append(named, a)
		}
	}
	for _, a := range named {
		k, err := e.resolveCallArg(node, a, info)
		if err != nil {
			return value.Key{}, err
		}
		bound[a.Symbol] = k
	}

	for _, f := range formals {
		if _, ok := bound[f.Name]; ok {
			continue
		}
		if f.Default == nil {
			return value.Key{}, &rterror.BuiltinError{Builtin: "macro call", Message: "missing argument: " + f.Name, Info: info.WithArea(callArea)}
		}
		bound[f.Name] = e.G.Arena.DeepClone(*f.Default, &callArea)
	}

	allFormals := m.Args
	for _, f := range allFormals {
		if f.Pattern == nil {
			continue
		}
		vk, ok := bound[f.Name]
		if !ok {
			continue
		}
		matched, err := e.matchesPattern(node, vk, *f.Pattern, info)
		if err != nil {
			return value.Key{}, err
		}
		if !matched {
			return value.Key{}, &rterror.PatternMismatchError{
				Pattern: f.Name, Val: f.Name,
				PatDef: f.Position, ValDef: callArea, Info: info.WithArea(callArea),
			}
		}
	}

	leaf := firstLeaf(node)
	ctx := leaf.Inner()
	savedVars := ctx.Variables()
	freshVars := make(map[string][]ictx.VariableData, len(bound))
	for name, k := range bound {
		freshVars[name] = []ictx.VariableData{{Val: k, Layers: 0}}
	}
	ctx.SetVariables(freshVars)

	savedPath := e.G.Path
	if m.DefFile != nil {
		e.G.Path = m.DefFile.Path
	}
	callInfo := info.Pushed(callArea)
	err := e.EvalBlock(leaf, m.Body, callInfo)
	e.G.Path = savedPath

	result := ctx.ReturnValue
	if ctx.Broken != nil && ctx.Broken.Kind == rterror.BreakMacro && ctx.Broken.Value != nil {
		result = *ctx.Broken.Value
	}
	ctx.Broken = nil
	ctx.SetVariables(savedVars)

	if err != nil {
		return value.Key{}, err
	}

	if m.RetPattern != nil {
		matched, perr := e.matchesPattern(leaf, result, *m.RetPattern, callInfo)
		if perr != nil {
			return value.Key{}, perr
		}
		if !matched {
			return value.Key{}, &rterror.PatternMismatchError{
				Pattern: "return type", Val: "return value",
				PatDef: m.ArgPos, ValDef: callArea, Info: callInfo,
			}
		}
	}
	return result, nil
}

// resolveCallArg evaluates a callArg's expression (if any), otherwise
// returns its already-resolved key unchanged.
func (e *Evaluator) resolveCallArg(node *ictx.FullContext, a callArg, info diag.Info) (value.Key, error) {
	if a.Resolved != nil {
		return *a.Resolved, nil
	}
	if err := e.EvalExpression(node, a.Expr, info); err != nil {
		return value.Key{}, err
	}
	return firstLeaf(node).Inner().ReturnValue, nil
}

// callOperatorMacro invokes a binary operator override, copying the rhs
// (spec.md §4.4: "copies argument so the original value can't be mutated").
func (e *Evaluator) callOperatorMacro(node *ictx.FullContext, macroKey, lhs, rhs value.Key, area diag.CodeArea, info diag.Info) (value.Key, error) {
	rhsCopy := e.G.Arena.DeepClone(rhs, &area)
	args := []callArg{{Resolved: &rhsCopy}}
	return e.callMacro(node, macroKey, &lhs, args, area, info)
}

func (e *Evaluator) callUnaryOperatorMacro(node *ictx.FullContext, macroKey, v value.Key, area diag.CodeArea, info diag.Info) (value.Key, error) {
	return e.callMacro(node, macroKey, &v, nil, area, info)
}
