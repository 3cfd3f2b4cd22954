package evaluator

import (
	"github.com/gospwn/spwn/internal/ast"
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/ictx"
	"github.com/gospwn/spwn/internal/rterror"
	"github.com/gospwn/spwn/internal/value"
)

// applyMember resolves a `.name` path segment against leaf's current
// ReturnValue: a dictionary member, a `$.name` builtin reference, or a
// type-level `impl` override. Dict members and impl overrides report a
// "self" candidate for a following call to bind, spec.md §4.4's "self is
// bound to the value the member was looked up on"; a `$.name` reference
// reports none.
func (e *Evaluator) applyMember(leaf *ictx.FullContext, name string, area diag.CodeArea, info diag.Info) (self value.Key, found bool, err error) {
	ctx := leaf.Inner()
	receiver := ctx.ReturnValue
	v := e.G.Arena.Get(receiver)

	if d, ok := v.(value.Dict); ok {
		if k, ok := d[name]; ok {
			ctx.ReturnValue = k
			return receiver, true, nil
		}
		return value.Key{}, false, &rterror.UndefinedErr{Undefined: name, Desc: "member", Info: info.WithArea(area)}
	}
	if _, ok := v.(value.Builtins); ok {
		ctx.ReturnValue = e.G.Arena.Insert(value.StoredValData{Val: value.BuiltinFunction{Name: name}, Mutable: false, DefArea: area})
		return value.Key{}, false, nil
	}
	if k, ok := e.lookupOverride(v, name); ok {
		ctx.ReturnValue = k
		return receiver, true, nil
	}
	return value.Key{}, false, &rterror.UndefinedErr{Undefined: name, Desc: "member", Info: info.WithArea(area)}
}

// applyIndex handles `value[index]` for arrays, dictionaries (by string
// key) and strings (by rune position).
func (e *Evaluator) applyIndex(leaf *ictx.FullContext, idxExpr ast.Expression, area diag.CodeArea, info diag.Info) error {
	ctx := leaf.Inner()
	receiver := e.G.Arena.Get(ctx.ReturnValue)

	if err := e.EvalExpression(leaf, &idxExpr, info); err != nil {
		return err
	}
	idxLeaf := firstLeaf(leaf)
	idxVal := e.G.Arena.Get(idxLeaf.Inner().ReturnValue)

	switch c := receiver.(type) {
	case value.Array:
		n, ok := idxVal.(value.Number)
		if !ok {
			return &rterror.TypeError{Expected: "number", Found: kindName(idxVal), ValDef: area, Info: info.WithArea(area)}
		}
		i, valid := asInt(float64(n))
		if !valid {
			return rterror.New(info.WithArea(area), "array index must be an integer")
		}
		if i < 0 {
			i += int64(len(c))
		}
		if i < 0 || i >= int64(len(c)) {
			return rterror.New(info.WithArea(area), "array index out of bounds")
		}
		idxLeaf.Inner().ReturnValue = c[i]
		return nil
	case value.Dict:
		s, ok := idxVal.(value.Str)
		if !ok {
			return &rterror.TypeError{Expected: "string", Found: kindName(idxVal), ValDef: area, Info: info.WithArea(area)}
		}
		k, ok := c[string(s)]
		if !ok {
			return &rterror.UndefinedErr{Undefined: string(s), Desc: "member", Info: info.WithArea(area)}
		}
		idxLeaf.Inner().ReturnValue = k
		return nil
	case value.Str:
		n, ok := idxVal.(value.Number)
		if !ok {
			return &rterror.TypeError{Expected: "number", Found: kindName(idxVal), ValDef: area, Info: info.WithArea(area)}
		}
		i, valid := asInt(float64(n))
		runes := []rune(string(c))
		if !valid {
			return rterror.New(info.WithArea(area), "string index must be an integer")
		}
		if i < 0 {
			i += int64(len(runes))
		}
		if i < 0 || i >= int64(len(runes)) {
			return rterror.New(info.WithArea(area), "string index out of bounds")
		}
		idxLeaf.Inner().ReturnValue = e.str(string(runes[i]), area)
		return nil
	default:
		return &rterror.TypeError{Expected: "array, dictionary or string", Found: kindName(receiver), ValDef: area, Info: info.WithArea(area)}
	}
}

// applySlice handles `value[left:right:step]` on arrays and strings; any of
// the three bounds may be omitted.
func (e *Evaluator) applySlice(leaf *ictx.FullContext, s ast.Slice, area diag.CodeArea, info diag.Info) error {
	ctx := leaf.Inner()
	receiver := e.G.Arena.Get(ctx.ReturnValue)

	bound := func(expr *ast.Expression, def int) (int, error) {
		if expr == nil {
			return def, nil
		}
		if err := e.EvalExpression(leaf, expr, info); err != nil {
			return 0, err
		}
		n, ok := e.G.Arena.Get(firstLeaf(leaf).Inner().ReturnValue).(value.Number)
		if !ok {
			return 0, rterror.New(info.WithArea(area), "slice bound must be a number")
		}
		i, valid := asInt(float64(n))
		if !valid {
			return 0, rterror.New(info.WithArea(area), "slice bound must be an integer")
		}
		return int(i), nil
	}

	step, err := bound(s.Step, 1)
	if err != nil {
		return err
	}
	if step == 0 {
		return rterror.New(info.WithArea(area), "slice step cannot be zero")
	}

	normalize := func(n int) (int, int, error) {
		left, err := bound(s.Left, 0)
		if err != nil {
			return 0, 0, err
		}
		right, err := bound(s.Right, n)
		if err != nil {
			return 0, 0, err
		}
		if s.Right == nil && step < 0 {
			right = -1
		}
		if left < 0 {
			left += n
		}
		if right < 0 && s.Right != nil {
			right += n
		}
		return left, right, nil
	}

	switch c := receiver.(type) {
	case value.Array:
		left, right, err := normalize(len(c))
		if err != nil {
			return err
		}
		out := make(value.Array, 0)
		if step > 0 {
			for i := left; i < right && i < len(c); i += step {
				if i >= 0 {
					out = append(out, c[i])
				}
			}
		} else {
			for i := left; i > right && i >= 0; i += step {
				if i < len(c) {
					out = append(out, c[i])
				}
			}
		}
		ctx.ReturnValue = e.G.Arena.Insert(value.StoredValData{Val: out, Mutable: true, DefArea: area})
		return nil
	case value.Str:
		runes := []rune(string(c))
		left, right, err := normalize(len(runes))
		if err != nil {
			return err
		}
		var out []rune
		if step > 0 {
			for i := left; i < right && i < len(runes); i += step {
				if i >= 0 {
					out = append(out, runes[i])
				}
			}
		} else {
			for i := left; i > right && i >= 0; i += step {
				if i < len(runes) {
					out = append(out, runes[i])
				}
			}
		}
		ctx.ReturnValue = e.str(string(out), area)
		return nil
	default:
		return &rterror.TypeError{Expected: "array or string", Found: kindName(receiver), ValDef: area, Info: info.WithArea(area)}
	}
}

// applyCall invokes a macro value or builtin function sitting at leaf's
// ReturnValue, with self (if any) supplied by the preceding Member lookup.
func (e *Evaluator) applyCall(leaf *ictx.FullContext, args []ast.Argument, self *value.Key, area diag.CodeArea, info diag.Info) (value.Key, error) {
	callee := e.G.Arena.Get(leaf.Inner().ReturnValue)
	if bf, ok := callee.(value.BuiltinFunction); ok {
		return e.callBuiltin(leaf, bf.Name, args, area, info)
	}
	return e.callMacro(leaf, leaf.Inner().ReturnValue, self, argsFromAST(args), area, info)
}

// applyConstructor builds `Type::{ entries... }`: a dict tagged with the
// type indicator currently at leaf's ReturnValue.
func (e *Evaluator) applyConstructor(leaf *ictx.FullContext, entries []ast.DictEntry, area diag.CodeArea, info diag.Info) error {
	ctx := leaf.Inner()
	ti, ok := e.G.Arena.Get(ctx.ReturnValue).(value.TypeIndicator)
	if !ok {
		return &rterror.TypeError{Expected: "type indicator", Found: kindName(e.G.Arena.Get(ctx.ReturnValue)), ValDef: area, Info: info.WithArea(area)}
	}
	dict, err := e.buildDict(leaf, entries, area, info)
	if err != nil {
		return err
	}
	dict["type"] = e.G.Arena.Insert(value.StoredValData{Val: ti, Mutable: false, DefArea: area})
	ctx.ReturnValue = e.G.Arena.Insert(value.StoredValData{Val: dict, Mutable: true, DefArea: area})
	return nil
}

// applyIncDec applies `++`/`--` in place, requiring the current value to be
// a mutable number, spec.md §4.5.
func (e *Evaluator) applyIncDec(leaf *ictx.FullContext, delta float64, area diag.CodeArea, info diag.Info) error {
	ctx := leaf.Inner()
	slot := e.G.Arena.Index(ctx.ReturnValue)
	n, ok := slot.Val.(value.Number)
	if !ok {
		return &rterror.TypeError{Expected: "number", Found: kindName(slot.Val), ValDef: area, Info: info.WithArea(area)}
	}
	if err := e.checkMutable(slot, area, ctx, info); err != nil {
		return err
	}
	slot.Val = value.Number(float64(n) + delta)
	return nil
}
