package evaluator

import (
	"github.com/gospwn/spwn/internal/ast"
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/globals"
	"github.com/gospwn/spwn/internal/ictx"
	"github.com/gospwn/spwn/internal/rterror"
	"github.com/gospwn/spwn/internal/value"
)

// evalCondSingleLeaf evaluates cond against node (narrowed to a single
// leaf's worth of tree) and returns the resulting bool, used by both `if`
// and `while`.
func (e *Evaluator) evalCondSingleLeaf(node *ictx.FullContext, cond *ast.Expression, info diag.Info) (bool, error) {
	if err := e.EvalExpression(node, cond, info); err != nil {
		return false, err
	}
	leaf := firstLeaf(node)
	b, ok := e.G.Arena.Get(leaf.Inner().ReturnValue).(value.Bool)
	if !ok {
		return false, &rterror.TypeError{Expected: "bool", Found: kindName(e.G.Arena.Get(leaf.Inner().ReturnValue)), ValDef: cond.Pos, Info: info.WithArea(cond.Pos)}
	}
	return bool(b), nil
}

// evalIf descends into the taken branch per-leaf, spec.md §4.4: "`if`
// evaluates the condition and descends into each branch per-leaf."
func (e *Evaluator) evalIf(root *ictx.FullContext, s *ast.If, info diag.Info) error {
	it := root.Iter()
	for node, ok := it.Next(); ok; node, ok = it.Next() {
		taken := false
		for _, br := range s.Branches {
			cond := br.Condition
			matched, err := e.evalCondSingleLeaf(node, &cond, info)
			if err != nil {
				return err
			}
			if matched {
				node.EnterScope()
				err := e.EvalBlock(node, br.Body, info)
				node.ExitScope()
				if err != nil {
					return err
				}
				taken = true
				break
			}
		}
		if !taken && s.Else != nil {
			node.EnterScope()
			err := e.EvalBlock(node, s.Else, info)
			node.ExitScope()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// evalWhile loops per-leaf; a condition whose evaluation splits its leaf is
// rejected (spec.md §4.4: "consider a runtime while loop"). `continue` is
// cleared at the loop head; `break` (including the implicit one issued
// when the condition turns false) is cleared once the whole statement
// finishes so it never escapes to an enclosing block.
func (e *Evaluator) evalWhile(root *ictx.FullContext, s *ast.While, info diag.Info) error {
	for {
		root.DisableBreaks(rterror.BreakContinueLoop)
		anyRan := false
		it := root.Iter()
		for node, ok := it.Next(); ok; node, ok = it.Next() {
			before := countLeaves(node)
			matched, err := e.evalCondSingleLeaf(node, &s.Condition, info)
			if err != nil {
				return err
			}
			if countLeaves(node) != before {
				return rterror.New(info.WithArea(s.Pos), "while-loop condition split the context; consider a runtime while loop")
			}
			if !matched {
				node.Inner().Broken = &ictx.Break{Kind: rterror.BreakLoop, Area: s.Pos}
				continue
			}
			anyRan = true
			node.EnterScope()
			err = e.EvalBlock(node, s.Body, info)
			node.ExitScope()
			if err != nil {
				return err
			}
		}
		if !anyRan {
			break
		}
	}
	root.DisableBreaks(rterror.BreakLoop)
	return nil
}

func countLeaves(node *ictx.FullContext) int {
	n := 0
	it := node.IterWithBreaks()
	for _, ok := it.Next(); ok; _, ok = it.Next() {
		n++
	}
	return n
}

// evalFor iterates an array/dict/string/range per-leaf, binding Symbol to
// each element in turn. Spec.md §4.4: arrays/ranges in source order (or
// reverse, for a descending range), dicts yield `[key, val]` pairs,
// strings yield single-character strings.
func (e *Evaluator) evalFor(root *ictx.FullContext, s *ast.For, info diag.Info) error {
	type iterState struct {
		elems []value.Key
		idx   int
	}
	states := make(map[*ictx.Context]*iterState)

	it := root.Iter()
	for node, ok := it.Next(); ok; node, ok = it.Next() {
		array := s.Array
		if err := e.EvalExpression(node, &array, info); err != nil {
			return err
		}
		leaf := firstLeaf(node)
		ctx := leaf.Inner()
		elems, err := e.materializeIterable(ctx.ReturnValue, s.Pos, info)
		if err != nil {
			return err
		}
		states[ctx] = &iterState{elems: elems}
	}

	for {
		root.DisableBreaks(rterror.BreakContinueLoop)
		anyRan := false
		it2 := root.Iter()
		for node, ok := it2.Next(); ok; node, ok = it2.Next() {
			ctx := node.Inner()
			st := states[ctx]
			if st == nil || st.idx >= len(st.elems) {
				ctx.Broken = &ictx.Break{Kind: rterror.BreakLoop, Area: s.Pos}
				continue
			}
			anyRan = true
			elemKey := st.elems[st.idx]
			st.idx++

			node.EnterScope()
			if s.Target != nil {
				bind := func(name string, k value.Key) { ctx.NewVariable(name, k, 0) }
				if err := e.bindDestructure(s.Target, elemKey, s.Pos, info, bind); err != nil {
					return err
				}
			} else {
				ctx.NewVariable(s.Symbol, elemKey, 0)
			}
			err := e.EvalBlock(node, s.Body, info)
			node.ExitScope()
			if err != nil {
				return err
			}
		}
		if !anyRan {
			break
		}
	}
	root.DisableBreaks(rterror.BreakLoop)
	return nil
}

// materializeIterable expands v into the ordered element list a for-loop
// walks, constructing fresh arena slots for dict pairs and string
// characters on demand.
func (e *Evaluator) materializeIterable(k value.Key, pos diag.CodeArea, info diag.Info) ([]value.Key, error) {
	switch v := e.G.Arena.Get(k).(type) {
	case value.Array:
		out := make([]value.Key, len(v))
		copy(out, v)
		return out, nil
	case value.Dict:
		out := make([]value.Key, 0, len(v))
		for name, vk := range v {
			nameKey := e.str(name, pos)
			pair := value.Array{nameKey, vk}
			out = append(out, e.G.Arena.Insert(value.StoredValData{Val: pair, Mutable: true, DefArea: pos}))
		}
		return out, nil
	case value.Str:
		runes := []rune(string(v))
		out := make([]value.Key, len(runes))
		for i, r := range runes {
			out[i] = e.str(string(r), pos)
		}
		return out, nil
	case value.Range:
		var out []value.Key
		if v.Step == 0 {
			return nil, rterror.New(info.WithArea(pos), "range step cannot be zero")
		}
		if v.Start <= v.End {
			for i := v.Start; i < v.End; i += int32(v.Step) {
				out = append(out, e.num(float64(i), pos))
			}
		} else {
			for i := v.Start; i > v.End; i -= int32(v.Step) {
				out = append(out, e.num(float64(i), pos))
			}
		}
		return out, nil
	default:
		return nil, &rterror.TypeError{Expected: "array, dictionary, string or range", Found: kindName(v), ValDef: pos, Info: info.WithArea(pos)}
	}
}

// evalImpl registers overrides against a type id; only legal at the
// top-level context (spec.md §4.4: "requiring start_group == Specific(0)
// and forbidding context splitting").
func (e *Evaluator) evalImpl(root *ictx.FullContext, s *ast.Impl, info diag.Info) error {
	if root.IsSplit() {
		return rterror.New(info.WithArea(s.Pos), "impl blocks cannot run inside a split context")
	}
	ctx := root.Inner()
	if ctx.StartGroup.IsSpecific() && ctx.StartGroup.SpecificValue() != 0 {
		return rterror.New(info.WithArea(s.Pos), "impl blocks can only run in the root trigger context")
	}
	entry, ok := e.G.TypeIDs[s.Symbol]
	if !ok {
		return &rterror.UndefinedErr{Undefined: s.Symbol, Desc: "type", Info: info.WithArea(s.Pos)}
	}
	if e.G.Implementations[entry.ID] == nil {
		e.G.Implementations[entry.ID] = make(map[string]globals.Impl)
	}
	for _, m := range s.Members {
		expr := m.Value
		if err := e.EvalExpression(root, &expr, info); err != nil {
			return err
		}
		k := firstLeaf(root).Inner().ReturnValue
		e.G.Implementations[entry.ID][m.Name] = globals.Impl{Value: k, FromCurrentModule: true}
	}
	return nil
}

func (e *Evaluator) evalSwitchStmt(root *ictx.FullContext, s *ast.Switch, info diag.Info) error {
	it := root.Iter()
	for node, ok := it.Next(); ok; node, ok = it.Next() {
		val := s.Value
		if err := e.EvalExpression(node, &val, info); err != nil {
			return err
		}
		leaf := firstLeaf(node)
		subject := leaf.Inner().ReturnValue

		matchedArm := -1
		for i, c := range s.Cases {
			if c.Kind == ast.CaseDefault {
				matchedArm = i
				break
			}
			pat := c.Pattern
			if err := e.EvalExpression(leaf, &pat, info); err != nil {
				return err
			}
			patKey := firstLeaf(leaf).Inner().ReturnValue
			ok, err := e.matchesPattern(leaf, subject, patKey, info)
			if err != nil {
				return err
			}
			if ok {
				matchedArm = i
				break
			}
		}
		if matchedArm < 0 {
			continue
		}
		body := s.Cases[matchedArm].Body
		leaf.EnterScope()
		err := e.EvalExpression(leaf, &body, info)
		leaf.ExitScope()
		if err != nil {
			return err
		}
	}
	return nil
}
