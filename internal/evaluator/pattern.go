package evaluator

import (
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/ictx"
	"github.com/gospwn/spwn/internal/value"
)

// matchesPattern checks vk against the pattern stored at patKey, spec.md
// §4.6. Matching is pure (no side effects, no context splits) except when
// a `_is_` override on vk's type takes over entirely.
func (e *Evaluator) matchesPattern(node *ictx.FullContext, vk, patKey value.Key, info diag.Info) (bool, error) {
	v := e.G.Arena.Get(vk)
	if macroKey, ok := e.lookupOverride(v, "_is_"); ok {
		result, err := e.callMacro(node, macroKey, &vk, []callArg{{Resolved: &patKey}}, info.Position, info)
		if err != nil {
			return false, err
		}
		b, ok := e.G.Arena.Get(result).(value.Bool)
		if !ok {
			return false, nil
		}
		return bool(b), nil
	}

	pv, ok := e.G.Arena.Get(patKey).(value.PatternValue)
	if !ok {
		return false, nil
	}
	return e.matchPure(vk, pv.Pattern, info)
}

// matchPure implements the primitive pattern kinds without needing a
// context, since none of them can trigger user code once we've already
// ruled out a `_is_` override above.
func (e *Evaluator) matchPure(vk value.Key, p value.Pattern, info diag.Info) (bool, error) {
	v := e.G.Arena.Get(vk)
	switch p.Tag() {
	case value.PatternAny:
		return true, nil
	case value.PatternType:
		return e.SemanticKind(v) == p.Type(), nil
	case value.PatternEq:
		return e.G.Arena.Equal(vk, p.Key()), nil
	case value.PatternNotEq:
		return !e.G.Arena.Equal(vk, p.Key()), nil
	case value.PatternMoreThan, value.PatternLessThan, value.PatternMoreOrEq, value.PatternLessOrEq:
		n, ok := v.(value.Number)
		if !ok {
			return false, nil
		}
		other, ok := e.G.Arena.Get(p.Key()).(value.Number)
		if !ok {
			return false, nil
		}
		switch p.Tag() {
		case value.PatternMoreThan:
			return n > other, nil
		case value.PatternLessThan:
			return n < other, nil
		case value.PatternMoreOrEq:
			return n >= other, nil
		default:
			return n <= other, nil
		}
	case value.PatternIn:
		return e.inContainer(vk, p.Key()), nil
	case value.PatternEither:
		l, err := e.matchPure(vk, *p.Left(), info)
		if err != nil || l {
			return l, err
		}
		return e.matchPure(vk, *p.Right(), info)
	case value.PatternBoth:
		l, err := e.matchPure(vk, *p.Left(), info)
		if err != nil || !l {
			return false, err
		}
		return e.matchPure(vk, *p.Right(), info)
	case value.PatternNot:
		r, err := e.matchPure(vk, *p.Left(), info)
		return !r, err
	default:
		return false, nil
	}
}

func (e *Evaluator) inContainer(vk, containerKey value.Key) bool {
	switch c := e.G.Arena.Get(containerKey).(type) {
	case value.Array:
		for _, ek := range c {
			if e.G.Arena.Equal(vk, ek) {
				return true
			}
		}
	}
	return false
}

// patternSubsumes reports whether every value matching p1 also matches p2
// (spec.md §4.6's "pattern subsumption"), decidable structurally for the
// cases that don't require enumerating all possible values.
func patternSubsumes(p1, p2 value.Pattern) bool {
	if p2.Tag() == value.PatternAny {
		return true
	}
	if p1.Tag() == p2.Tag() {
		switch p1.Tag() {
		case value.PatternType:
			return p1.Type() == p2.Type()
		case value.PatternEq:
			return p1.Key() == p2.Key()
		}
	}
	if p1.Tag() == value.PatternEither {
		return patternSubsumes(*p1.Left(), p2) && patternSubsumes(*p1.Right(), p2)
	}
	if p2.Tag() == value.PatternEither {
		return patternSubsumes(p1, *p2.Left()) || patternSubsumes(p1, *p2.Right())
	}
	if p2.Tag() == value.PatternBoth {
		return patternSubsumes(p1, *p2.Left()) && patternSubsumes(p1, *p2.Right())
	}
	return false
}
