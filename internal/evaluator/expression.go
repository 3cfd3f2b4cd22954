package evaluator

import (
	"github.com/gospwn/spwn/internal/ast"
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/ictx"
	"github.com/gospwn/spwn/internal/ids"
	"github.com/gospwn/spwn/internal/rterror"
	"github.com/gospwn/spwn/internal/value"
)

// forEachLeaf calls f once per leaf currently reachable from root,
// re-iterating the tree fresh (via root.Iter()) so a split caused by one
// leaf's f is visible to leaves visited afterward within the same call,
// and so a later forEachLeaf call sees the updated shape. This is the
// building block every multi-step expression evaluation in this package
// is written against.
func (e *Evaluator) forEachLeaf(root *ictx.FullContext, f func(leaf *ictx.FullContext) error) error {
	it := root.Iter()
	for node, ok := it.Next(); ok; node, ok = it.Next() {
		if err := f(node); err != nil {
			return err
		}
	}
	return nil
}

// EvalExpression resolves expr against every current leaf of root,
// writing the final value into each leaf's ReturnValue. Grounded on
// spec.md §4.4's operator evaluation algorithm.
func (e *Evaluator) EvalExpression(root *ictx.FullContext, expr *ast.Expression, info diag.Info) error {
	if len(expr.Values) == 0 {
		return rterror.New(info.WithArea(expr.Pos), "empty expression")
	}
	if err := e.evalVariable(root, &expr.Values[0], info); err != nil {
		return err
	}
	for i, op := range expr.Operators {
		rhs := expr.Values[i+1]
		if err := e.evalOperatorStep(root, op, &rhs, expr.Pos, info); err != nil {
			return err
		}
	}
	return nil
}

// evalOperatorStep evaluates one infix step against every current leaf:
// short-circuiting &&/|| per spec.md §4.4 step 2, otherwise evaluating the
// right operand against that leaf (which may itself split it) before
// dispatching the operator. Assignment-family operators (=, +=, -=, ...)
// and <=> write through the lhs's arena slot in place instead of producing
// a fresh value, per spec.md §3's mutation rule.
func (e *Evaluator) evalOperatorStep(root *ictx.FullContext, op ast.Operator, rhs *ast.Variable, area diag.CodeArea, info diag.Info) error {
	return e.forEachLeaf(root, func(node *ictx.FullContext) error {
		leaf := firstLeaf(node)
		ctx := leaf.Inner()
		lhsVal := ctx.ReturnValue

		if op == ast.OpAnd || op == ast.OpOr {
			if lb, ok := e.G.Arena.Get(lhsVal).(value.Bool); ok {
				if _, overridden := e.lookupOverride(e.G.Arena.Get(lhsVal), opName(op)); !overridden {
					if op == ast.OpAnd && !bool(lb) {
						ctx.ReturnValue = e.boolKey(false, area)
						return nil
					}
					if op == ast.OpOr && bool(lb) {
						ctx.ReturnValue = e.boolKey(true, area)
						return nil
					}
				}
			}
		}

		rhsCopy := *rhs
		if err := e.evalVariable(leaf, &rhsCopy, info); err != nil {
			return err
		}
		rhsLeaf := firstLeaf(leaf)
		rhsCtx := rhsLeaf.Inner()
		rhsVal := rhsCtx.ReturnValue

		if op == ast.OpSwap {
			lhsSlot := e.G.Arena.Index(lhsVal)
			rhsSlot := e.G.Arena.Index(rhsVal)
			if err := e.checkMutable(lhsSlot, area, rhsCtx, info); err != nil {
				return err
			}
			if err := e.checkMutable(rhsSlot, area, rhsCtx, info); err != nil {
				return err
			}
			lhsSlot.Val, rhsSlot.Val = rhsSlot.Val, lhsSlot.Val
			rhsCtx.ReturnValue = lhsVal
			return nil
		}

		if compound, hasCompound, isAssign := assignOpKind(op); isAssign {
			newVal := rhsVal
			if hasCompound {
				result, err := e.evalBinary(rhsLeaf, compound, lhsVal, rhsVal, area, info)
				if err != nil {
					return err
				}
				newVal = result
			}
			slot := e.G.Arena.Index(lhsVal)
			if err := e.checkMutable(slot, area, rhsCtx, info); err != nil {
				return err
			}
			slot.Val = e.G.Arena.Get(newVal)
			rhsCtx.ReturnValue = lhsVal
			return nil
		}

		result, err := e.evalBinary(rhsLeaf, op, lhsVal, rhsVal, area, info)
		if err != nil {
			return err
		}
		rhsCtx.ReturnValue = result
		return nil
	})
}

// evalVariable resolves v's literal, applies its path in order, and
// applies its unary operator, writing the end result to ReturnValue of
// every current (possibly newly split) leaf.
func (e *Evaluator) evalVariable(root *ictx.FullContext, v *ast.Variable, info diag.Info) error {
	if err := e.forEachLeaf(root, func(node *ictx.FullContext) error {
		k, err := e.resolveLiteral(node, v.Value, v.Pos, info)
		if err != nil {
			return err
		}
		node.Inner().ReturnValue = k
		return nil
	}); err != nil {
		return err
	}

	pendingSelf := make(map[*ictx.Context]value.Key)
	hasSelf := make(map[*ictx.Context]bool)

	for _, p := range v.Path {
		if err := e.forEachLeaf(root, func(node *ictx.FullContext) error {
			leaf := firstLeaf(node)
			ctx := leaf.Inner()
			switch pp := p.(type) {
			case ast.Member:
				self, found, err := e.applyMember(leaf, pp.Name, v.Pos, info)
				if err != nil {
					return err
				}
				if found {
					pendingSelf[ctx] = self
					hasSelf[ctx] = true
				} else {
					hasSelf[ctx] = false
				}
			case ast.Index:
				hasSelf[ctx] = false
				return e.applyIndex(leaf, pp.Value, v.Pos, info)
			case ast.Slice:
				hasSelf[ctx] = false
				return e.applySlice(leaf, pp, v.Pos, info)
			case ast.CallArgs:
				var selfPtr *value.Key
				if hasSelf[ctx] {
					s := pendingSelf[ctx]
					selfPtr = &s
				}
				result, err := e.applyCall(leaf, pp.Args, selfPtr, v.Pos, info)
				if err != nil {
					return err
				}
				firstLeaf(leaf).Inner().ReturnValue = result
				delete(hasSelf, ctx)
			case ast.Constructor:
				hasSelf[ctx] = false
				return e.applyConstructor(leaf, pp.Entries, v.Pos, info)
			case ast.Increment:
				hasSelf[ctx] = false
				return e.applyIncDec(leaf, 1, v.Pos, info)
			case ast.Decrement:
				hasSelf[ctx] = false
				return e.applyIncDec(leaf, -1, v.Pos, info)
			}
			return nil
		}); err != nil {
			return err
		}
	}

	if v.Operator != nil {
		op := *v.Operator
		if err := e.forEachLeaf(root, func(node *ictx.FullContext) error {
			leaf := firstLeaf(node)
			ctx := leaf.Inner()
			result, err := e.evalUnary(leaf, op, ctx.ReturnValue, v.Pos, info)
			if err != nil {
				return err
			}
			firstLeaf(leaf).Inner().ReturnValue = result
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// resolveLiteral turns a single ValueLiteral into an arena key against
// leaf. Composite literals (array/dict/macro/object/switch/range) recurse
// into leaf via the collections helpers, which apply the first-leaf
// continuation simplification documented at the top of evaluator.go.
func (e *Evaluator) resolveLiteral(leaf *ictx.FullContext, lit ast.ValueLiteral, area diag.CodeArea, info diag.Info) (value.Key, error) {
	switch lit.Kind {
	case ast.LitNull:
		return e.G.NullStorage, nil
	case ast.LitNumber:
		return e.num(lit.Number, area), nil
	case ast.LitBool:
		return e.boolKey(lit.Bool, area), nil
	case ast.LitStr:
		return e.str(lit.Str, area), nil
	case ast.LitID:
		return e.resolveID(lit.ID, area), nil
	case ast.LitSymbol, ast.LitSelf:
		name := lit.Symbol
		if lit.Kind == ast.LitSelf {
			name = "self"
		}
		k, ok := leaf.Inner().GetVariable(name)
		if !ok {
			return value.Key{}, &rterror.UndefinedErr{Undefined: name, Desc: "variable", Info: info.WithArea(area)}
		}
		return k, nil
	case ast.LitArray:
		return e.evalArrayLiteral(leaf, lit.Array, area, info)
	case ast.LitDict:
		return e.evalDictLiteral(leaf, lit.Dict, area, info)
	case ast.LitMacro:
		m, err := e.buildMacro(leaf, lit.Macro, info)
		if err != nil {
			return value.Key{}, err
		}
		return e.G.Arena.Insert(value.StoredValData{Val: value.MacroValue{Macro: m}, Mutable: false, DefArea: area}), nil
	case ast.LitObject:
		return e.evalObjectLiteral(leaf, lit.Object, area, info)
	case ast.LitTypeIndicator:
		entry, ok := e.G.TypeIDs[lit.TypeName]
		if !ok {
			return value.Key{}, &rterror.UndefinedErr{Undefined: lit.TypeName, Desc: "type", Info: info.WithArea(area)}
		}
		return e.G.Arena.Insert(value.StoredValData{Val: value.TypeIndicator(entry.ID), Mutable: false, DefArea: area}), nil
	case ast.LitExpression:
		if err := e.EvalExpression(leaf, lit.Expression, info); err != nil {
			return value.Key{}, err
		}
		return firstLeaf(leaf).Inner().ReturnValue, nil
	case ast.LitSwitch:
		return e.evalSwitchExpr(leaf, lit.Switch, area, info)
	case ast.LitRange:
		return e.evalRangeLiteral(leaf, lit.Range, area, info)
	case ast.LitImport:
		return e.resolveImport(lit.Import, area, info)
	default:
		return value.Key{}, rterror.New(info.WithArea(area), "internal error: unhandled literal kind")
	}
}

func (e *Evaluator) resolveID(lit ast.IDLiteral, area diag.CodeArea) value.Key {
	class := ids.Class(lit.Class)
	var resolved ids.ID
	if lit.IsArbitrary {
		resolved = e.G.Ids.NextFree(class)
	} else {
		resolved = ids.Specific(lit.Value)
	}
	id := wrapID(class, resolved)
	return e.G.Arena.Insert(value.StoredValData{Val: id, Mutable: true, DefArea: area})
}

// wrapID boxes a resolved ids.ID into the Value variant matching class.
func wrapID(class ids.Class, id ids.ID) value.Value {
	switch class {
	case ids.Group:
		return value.Group{ID: id}
	case ids.Color:
		return value.Color{ID: id}
	case ids.Block:
		return value.Block{ID: id}
	default:
		return value.Item{ID: id}
	}
}

func (e *Evaluator) resolveImport(path string, area diag.CodeArea, info diag.Info) (value.Key, error) {
	for key, cached := range e.G.PrevImports {
		if key.Path == path {
			return cached.Value, nil
		}
	}
	return value.Key{}, &rterror.PackageError{Import: path, Cause: rterror.New(info.WithArea(area), "module not found in cache")}
}
