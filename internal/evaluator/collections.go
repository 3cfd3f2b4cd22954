package evaluator

import (
	"github.com/gospwn/spwn/internal/ast"
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/ictx"
	"github.com/gospwn/spwn/internal/rterror"
	"github.com/gospwn/spwn/internal/value"
)

// evalArrayLiteral evaluates each element expression in turn against node,
// applying the package's first-leaf-continuation simplification: an
// element whose evaluation splits node only has its first branch continue
// to contribute the remaining elements. The final array is attributed to
// that first branch alone.
func (e *Evaluator) evalArrayLiteral(node *ictx.FullContext, elems []ast.Expression, area diag.CodeArea, info diag.Info) (value.Key, error) {
	cur := node
	out := make(value.Array, 0, len(elems))
	for i := range elems {
		expr := elems[i]
		if err := e.EvalExpression(cur, &expr, info); err != nil {
			return value.Key{}, err
		}
		cur = firstLeaf(cur)
		out = append(out, cur.Inner().ReturnValue)
	}
	return e.G.Arena.Insert(value.StoredValData{Val: out, Mutable: true, DefArea: area}), nil
}

// evalDictLiteral is evalArrayLiteral's dict analog; a `...expr` spread
// entry must evaluate to a dictionary, whose members are merged in.
func (e *Evaluator) evalDictLiteral(node *ictx.FullContext, entries []ast.DictEntry, area diag.CodeArea, info diag.Info) (value.Key, error) {
	dict, err := e.buildDict(node, entries, area, info)
	if err != nil {
		return value.Key{}, err
	}
	return e.G.Arena.Insert(value.StoredValData{Val: dict, Mutable: true, DefArea: area}), nil
}

// buildDict evaluates entries in turn against node (narrowing per the
// first-leaf-continuation simplification, like evalArrayLiteral), merging
// `...expr` spread entries' members in.
func (e *Evaluator) buildDict(node *ictx.FullContext, entries []ast.DictEntry, area diag.CodeArea, info diag.Info) (value.Dict, error) {
	cur := node
	dict := make(value.Dict, len(entries))
	for _, ent := range entries {
		expr := ent.Value
		if err := e.EvalExpression(cur, &expr, info); err != nil {
			return nil, err
		}
		cur = firstLeaf(cur)
		v := cur.Inner().ReturnValue
		if ent.Spread {
			spread, ok := e.G.Arena.Get(v).(value.Dict)
			if !ok {
				return nil, &rterror.TypeError{Expected: "dictionary", Found: kindName(e.G.Arena.Get(v)), ValDef: area, Info: info.WithArea(area)}
			}
			for name, k := range spread {
				dict[name] = k
			}
			continue
		}
		dict[ent.Key] = v
	}
	return dict, nil
}

// evalObjectLiteral evaluates an object/trigger literal's key/value pairs
// into a value.Obj, spec.md §5.1. Keys are always numeric object-property
// ids; values are coerced into the matching ObjParam variant.
func (e *Evaluator) evalObjectLiteral(node *ictx.FullContext, lit *ast.ObjectLiteral, area diag.CodeArea, info diag.Info) (value.Key, error) {
	cur := node
	params := make([]value.ObjParamEntry, 0, len(lit.Entries))
	for _, ent := range lit.Entries {
		keyExpr := ent.Key
		if err := e.EvalExpression(cur, &keyExpr, info); err != nil {
			return value.Key{}, err
		}
		cur = firstLeaf(cur)
		keyVal, ok := e.G.Arena.Get(cur.Inner().ReturnValue).(value.Number)
		if !ok {
			return value.Key{}, &rterror.TypeError{Expected: "number", Found: kindName(e.G.Arena.Get(cur.Inner().ReturnValue)), ValDef: area, Info: info.WithArea(area)}
		}
		keyID, valid := asInt(float64(keyVal))
		if !valid || keyID < 0 {
			return value.Key{}, rterror.New(info.WithArea(area), "object keys must be non-negative integers")
		}

		valExpr := ent.Value
		if err := e.EvalExpression(cur, &valExpr, info); err != nil {
			return value.Key{}, err
		}
		cur = firstLeaf(cur)
		param, err := e.toObjParam(e.G.Arena.Get(cur.Inner().ReturnValue), area, info)
		if err != nil {
			return value.Key{}, err
		}
		params = append(params, value.ObjParamEntry{Key: uint16(keyID), Param: param})
	}

	mode := value.ModeObject
	if lit.IsTrigger {
		mode = value.ModeTrigger
	}
	obj := value.Obj{Params: params, Mode: mode}
	return e.G.Arena.Insert(value.StoredValData{Val: obj, Mutable: true, DefArea: area}), nil
}

// toObjParam converts an evaluated runtime value into the ObjParam variant
// the emitter serializes, spec.md §5.1's value-to-param coercion.
func (e *Evaluator) toObjParam(v value.Value, area diag.CodeArea, info diag.Info) (value.ObjParam, error) {
	switch t := v.(type) {
	case value.Group:
		return value.ParamGroup{ID: t.ID}, nil
	case value.Color:
		return value.ParamColor{ID: t.ID}, nil
	case value.Block:
		return value.ParamBlock{ID: t.ID}, nil
	case value.Item:
		return value.ParamItem{ID: t.ID}, nil
	case value.Number:
		return value.ParamNumber(t), nil
	case value.Bool:
		return value.ParamBool(t), nil
	case value.Str:
		return value.ParamText(t), nil
	case value.Array:
		list := make(value.ParamGroupList, 0, len(t))
		for _, k := range t {
			gv, ok := e.G.Arena.Get(k).(value.Group)
			if !ok {
				return nil, &rterror.TypeError{Expected: "array of groups", Found: kindName(e.G.Arena.Get(k)), ValDef: area, Info: info.WithArea(area)}
			}
			list = append(list, gv.ID)
		}
		return list, nil
	default:
		return nil, &rterror.TypeError{Expected: "group, color, block, item, number, bool, string or array", Found: kindName(v), ValDef: area, Info: info.WithArea(area)}
	}
}

// evalSwitchExpr evaluates a `switch` used as a value-producing expression:
// identical arm-matching to evalSwitchStmt, but returns the matched arm's
// value instead of discarding it.
func (e *Evaluator) evalSwitchExpr(leaf *ictx.FullContext, lit *ast.SwitchLiteral, area diag.CodeArea, info diag.Info) (value.Key, error) {
	val := lit.Value
	if err := e.EvalExpression(leaf, &val, info); err != nil {
		return value.Key{}, err
	}
	cur := firstLeaf(leaf)
	subject := cur.Inner().ReturnValue

	for _, c := range lit.Cases {
		if c.Kind == ast.CaseDefault {
			return e.evalArmExpr(cur, c, info)
		}
		pat := c.Pattern
		if err := e.EvalExpression(cur, &pat, info); err != nil {
			return value.Key{}, err
		}
		patLeaf := firstLeaf(cur)
		patKey := patLeaf.Inner().ReturnValue
		matched, err := e.matchesPattern(patLeaf, subject, patKey, info)
		if err != nil {
			return value.Key{}, err
		}
		if matched {
			return e.evalArmExpr(patLeaf, c, info)
		}
	}
	return value.Key{}, rterror.New(info.WithArea(area), "switch expression matched no arm")
}

func (e *Evaluator) evalArmExpr(node *ictx.FullContext, c ast.Case, info diag.Info) (value.Key, error) {
	body := c.Body
	if err := e.EvalExpression(node, &body, info); err != nil {
		return value.Key{}, err
	}
	return firstLeaf(node).Inner().ReturnValue, nil
}

// evalRangeLiteral builds a Range value from `start..end` / `start..end..step`.
func (e *Evaluator) evalRangeLiteral(node *ictx.FullContext, lit *ast.RangeLiteral, area diag.CodeArea, info diag.Info) (value.Key, error) {
	startExpr := lit.Start
	if err := e.EvalExpression(node, &startExpr, info); err != nil {
		return value.Key{}, err
	}
	cur := firstLeaf(node)
	startN, ok := e.G.Arena.Get(cur.Inner().ReturnValue).(value.Number)
	if !ok {
		return value.Key{}, &rterror.TypeError{Expected: "number", Found: kindName(e.G.Arena.Get(cur.Inner().ReturnValue)), ValDef: area, Info: info.WithArea(area)}
	}

	endExpr := lit.End
	if err := e.EvalExpression(cur, &endExpr, info); err != nil {
		return value.Key{}, err
	}
	cur = firstLeaf(cur)
	endN, ok := e.G.Arena.Get(cur.Inner().ReturnValue).(value.Number)
	if !ok {
		return value.Key{}, &rterror.TypeError{Expected: "number", Found: kindName(e.G.Arena.Get(cur.Inner().ReturnValue)), ValDef: area, Info: info.WithArea(area)}
	}

	step := uint64(1)
	if lit.Step != nil {
		stepExpr := *lit.Step
		if err := e.EvalExpression(cur, &stepExpr, info); err != nil {
			return value.Key{}, err
		}
		cur = firstLeaf(cur)
		stepN, ok := e.G.Arena.Get(cur.Inner().ReturnValue).(value.Number)
		if !ok {
			return value.Key{}, &rterror.TypeError{Expected: "number", Found: kindName(e.G.Arena.Get(cur.Inner().ReturnValue)), ValDef: area, Info: info.WithArea(area)}
		}
		stepI, valid := asInt(float64(stepN))
		if !valid || stepI <= 0 {
			return value.Key{}, rterror.New(info.WithArea(area), "range step must be a positive integer")
		}
		step = uint64(stepI)
	}

	startI, sok := asInt(float64(startN))
	endI, eok := asInt(float64(endN))
	if !sok || !eok {
		return value.Key{}, rterror.New(info.WithArea(area), "range bounds must be integers")
	}
	r := value.Range{Start: int32(startI), End: int32(endI), Step: step}
	return e.G.Arena.Insert(value.StoredValData{Val: r, Mutable: true, DefArea: area}), nil
}
