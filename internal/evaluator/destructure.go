package evaluator

import (
	"fmt"

	"github.com/gospwn/spwn/internal/ast"
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/ictx"
	"github.com/gospwn/spwn/internal/rterror"
	"github.com/gospwn/spwn/internal/value"
)

// bindDestructure recursively binds target's names against src within
// ctx's leaf, spec.md §4.4/§8: an array pattern of length N against an
// M-length source requires N==M with no spread element, N<=M with one;
// a dict pattern requires every named key to be present in src, with one
// optional trailing spread binding the remainder dict. bind receives each
// leaf name/value pair to actually install — evalDef clones and marks the
// value mutable the way a plain `let` does, evalFor just binds the
// iteration element as-is, matching their respective non-destructuring
// paths.
func (e *Evaluator) bindDestructure(target *ast.DestructureTarget, src value.Key, area diag.CodeArea, info diag.Info, bind func(name string, k value.Key)) error {
	v := e.G.Arena.Get(src)

	switch {
	case target.Array != nil:
		arr, ok := v.(value.Array)
		if !ok {
			return &rterror.TypeError{Expected: "array", Found: kindName(v), ValDef: area, Info: info.WithArea(area)}
		}
		return e.bindArrayDestructure(target.Array, arr, area, info, bind)
	case target.Dict != nil:
		dict, ok := v.(value.Dict)
		if !ok {
			return &rterror.TypeError{Expected: "dictionary", Found: kindName(v), ValDef: area, Info: info.WithArea(area)}
		}
		return e.bindDictDestructure(target.Dict, dict, area, info, bind)
	default:
		return rterror.New(info.WithArea(area), "a destructuring pattern must have at least one element")
	}
}

func (e *Evaluator) bindOne(symbol string, sub *ast.DestructureTarget, k value.Key, area diag.CodeArea, info diag.Info, bind func(name string, k value.Key)) error {
	if sub != nil {
		return e.bindDestructure(sub, k, area, info, bind)
	}
	bind(symbol, k)
	return nil
}

func (e *Evaluator) bindArrayDestructure(elems []ast.ArrayBindingElement, arr value.Array, area diag.CodeArea, info diag.Info, bind func(name string, k value.Key)) error {
	spreadIdx := -1
	for i, el := range elems {
		if el.Spread {
			if spreadIdx >= 0 {
				return rterror.New(info.WithArea(area), "an array destructuring pattern may have at most one spread element")
			}
			spreadIdx = i
		}
	}

	if spreadIdx < 0 {
		if len(elems) != len(arr) {
			return rterror.New(info.WithArea(area), fmt.Sprintf("cannot destructure an array of length %d into %d names", len(arr), len(elems)))
		}
	} else if len(elems)-1 > len(arr) {
		return rterror.New(info.WithArea(area), fmt.Sprintf("cannot destructure an array of length %d into at least %d names", len(arr), len(elems)-1))
	}

	if spreadIdx < 0 {
		for i, el := range elems {
			if err := e.bindOne(el.Symbol, el.Target, arr[i], area, info, bind); err != nil {
				return err
			}
		}
		return nil
	}

	for i := 0; i < spreadIdx; i++ {
		if err := e.bindOne(elems[i].Symbol, elems[i].Target, arr[i], area, info, bind); err != nil {
			return err
		}
	}

	after := elems[spreadIdx+1:]
	tailStart := len(arr) - len(after)
	rest := make(value.Array, 0, tailStart-spreadIdx)
	for _, k := range arr[spreadIdx:tailStart] {
		rest = append(rest, e.G.Arena.DeepClone(k, &area))
	}
	restKey := e.G.Arena.Insert(value.StoredValData{Val: rest, Mutable: true, DefArea: area})
	if err := e.bindOne(elems[spreadIdx].Symbol, elems[spreadIdx].Target, restKey, area, info, bind); err != nil {
		return err
	}

	for i, el := range after {
		if err := e.bindOne(el.Symbol, el.Target, arr[tailStart+i], area, info, bind); err != nil {
			return err
		}
	}
	return nil
}

func (e *Evaluator) bindDictDestructure(entries []ast.DictBindingEntry, dict value.Dict, area diag.CodeArea, info diag.Info, bind func(name string, k value.Key)) error {
	used := make(map[string]bool, len(entries))
	var spread *ast.DictBindingEntry

	for i := range entries {
		entry := &entries[i]
		if entry.Spread {
			if spread != nil {
				return rterror.New(info.WithArea(area), "a dict destructuring pattern may have at most one trailing spread")
			}
			spread = entry
			continue
		}
		k, found := dict[entry.Key]
		if !found {
			return &rterror.UndefinedErr{Undefined: entry.Key, Desc: "dictionary key", Info: info.WithArea(area)}
		}
		used[entry.Key] = true
		if err := e.bindOne(entry.Symbol, entry.Target, k, area, info, bind); err != nil {
			return err
		}
	}

	if spread == nil {
		return nil
	}

	rest := make(value.Dict, len(dict)-len(used))
	for name, k := range dict {
		if used[name] {
			continue
		}
		rest[name] = e.G.Arena.DeepClone(k, &area)
	}
	restKey := e.G.Arena.Insert(value.StoredValData{Val: rest, Mutable: true, DefArea: area})
	return e.bindOne(spread.Symbol, spread.Target, restKey, area, info, bind)
}

// destructureDefBind is the bind callback evalDef uses for a destructuring
// `let`/plain def: each leaf name is deep-cloned and tagged mutable the
// same way evalDef's non-destructuring path does.
func (e *Evaluator) destructureDefBind(ctx *ictx.Context, mutable bool, area diag.CodeArea) func(name string, k value.Key) {
	return func(name string, k value.Key) {
		cloned := e.G.Arena.DeepClone(k, &area)
		e.G.Arena.SetMutability(cloned, mutable)
		e.G.Arena.Index(cloned).FnContext = ctx.StartGroup
		ctx.NewVariable(name, cloned, 0)
	}
}
