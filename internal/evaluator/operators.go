package evaluator

import (
	"fmt"
	"math"

	"github.com/gospwn/spwn/internal/ast"
	"github.com/gospwn/spwn/internal/config"
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/ictx"
	"github.com/gospwn/spwn/internal/ids"
	"github.com/gospwn/spwn/internal/rterror"
	"github.com/gospwn/spwn/internal/value"
)

// assignOpKind reports whether op is an assignment-family operator, and the
// underlying binary operator (if any) a compound assignment composes with
// the existing value before writing back. OpAssign has no underlying op.
func assignOpKind(op ast.Operator) (compound ast.Operator, hasCompound bool, isAssign bool) {
	switch op {
	case ast.OpAssign:
		return 0, false, true
	case ast.OpAddEq:
		return ast.OpAdd, true, true
	case ast.OpSubEq:
		return ast.OpSub, true, true
	case ast.OpMulEq:
		return ast.OpMul, true, true
	case ast.OpDivEq:
		return ast.OpDiv, true, true
	case ast.OpModEq:
		return ast.OpMod, true, true
	case ast.OpPowEq:
		return ast.OpPow, true, true
	}
	return 0, false, false
}

// checkMutable enforces spec.md §3's mutation rule: the slot's mutable bit
// must be set, and if it was tagged with the context it was defined in (see
// evalDef), that context must match ctx's current start group. A slot never
// tagged with a FnContext (most values besides the bindings evalDef and
// destructuring create) is only subject to the mutable-bit check, narrowing the fully
// general rule to the case spec.md's scenarios actually exercise.
func (e *Evaluator) checkMutable(slot *value.StoredValData, area diag.CodeArea, ctx *ictx.Context, info diag.Info) error {
	if !slot.Mutable {
		return &rterror.MutabilityError{ValDef: slot.DefArea, Info: info.WithArea(area)}
	}
	untagged := ids.ID{}
	if !slot.FnContext.Equal(untagged) && !slot.FnContext.Equal(ctx.StartGroup) {
		return &rterror.ContextChangeMutateError{ValDef: slot.DefArea, ContextChanges: ctx.FnContextChangeStack, Info: info.WithArea(area)}
	}
	return nil
}

// formatNumber renders a float the way builtins.rs's number Display does:
// a near-integer (within NumberPrintEpsilon) prints with no decimals, else
// with 3 fixed decimals.
func formatNumber(f float64) string {
	if math.Abs(f-math.Round(f)) < config.NumberPrintEpsilon {
		return fmt.Sprintf("%d", int64(math.Round(f)))
	}
	return fmt.Sprintf("%.3f", f)
}

// asInt converts f to an integer, succeeding only when its fractional part
// is within IntConversionEpsilon of zero (spec.md §4.5).
func asInt(f float64) (int64, bool) {
	r := math.Round(f)
	if math.Abs(f-r) > config.IntConversionEpsilon {
		return 0, false
	}
	return int64(r), true
}

// euclidMod is Euclidean remainder: always has the sign of the divisor's
// magnitude convention (non-negative for a positive divisor), spec.md
// §4.5's "Modulus uses Euclidean remainder."
func euclidMod(a, b float64) float64 {
	r := math.Mod(a, b)
	if r < 0 {
		r += math.Abs(b)
	}
	return r
}

// opName maps an ast.Operator to the member name a user `impl` block may
// override it with, e.g. `+` looks up a member literally named "_plus_".
// Grounded on builtins.rs's Builtin enum, whose variant names double as
// the overridable member names (e.g. Builtin::Plus -> "_plus_").
func opName(op ast.Operator) string {
	switch op {
	case ast.OpAdd:
		return "_plus_"
	case ast.OpSub:
		return "_minus_"
	case ast.OpMul:
		return "_times_"
	case ast.OpDiv:
		return "_divided_by_"
	case ast.OpMod:
		return "_mod_"
	case ast.OpPow:
		return "_pow_"
	case ast.OpEq:
		return "_equal_"
	case ast.OpNotEq:
		return "_not_equal_"
	case ast.OpGreater:
		return "_more_than_"
	case ast.OpGreaterEq:
		return "_more_or_equal_"
	case ast.OpLess:
		return "_less_than_"
	case ast.OpLessEq:
		return "_less_or_equal_"
	case ast.OpAnd:
		return "_and_"
	case ast.OpOr:
		return "_or_"
	case ast.OpRange:
		return "_range_"
	case ast.OpIn:
		return "_in_"
	case ast.OpAs:
		return "_as_"
	case ast.OpEither:
		return "_either_"
	case ast.OpBoth:
		return "_both_"
	default:
		return ""
	}
}

// lookupOverride finds a user-defined operator override for v's semantic
// type, compiler_types.rs's Implementations lookup.
func (e *Evaluator) lookupOverride(v value.Value, name string) (value.Key, bool) {
	kind := e.SemanticKind(v)
	members, ok := e.G.Implementations[uint16(kind)]
	if !ok {
		return value.Key{}, false
	}
	impl, ok := members[name]
	if !ok {
		return value.Key{}, false
	}
	return impl.Value, true
}

// SemanticKind resolves a Value's effective type id: a Dict's reserved
// "type" member overrides its literal Kind (spec.md §3's StoredValData
// invariant on semantic typing).
func (e *Evaluator) SemanticKind(v value.Value) value.Kind {
	if d, ok := v.(value.Dict); ok {
		if tk, ok := d["type"]; ok {
			if ti, ok := e.G.Arena.Get(tk).(value.TypeIndicator); ok {
				return value.Kind(ti)
			}
		}
	}
	return v.Kind()
}

// evalBinary applies op to the values at lhs/rhs within ctx's leaf,
// dispatching to a user override first (spec.md §4.4 step 4) and falling
// back to the built-in arithmetic/comparison/logic semantics.
func (e *Evaluator) evalBinary(node *ictx.FullContext, op ast.Operator, lhs, rhs value.Key, area diag.CodeArea, info diag.Info) (value.Key, error) {
	if op == ast.OpIs {
		return e.evalIsOp(node, lhs, rhs, area, info)
	}
	lv := e.G.Arena.Get(lhs)
	name := opName(op)
	if name != "" {
		if macroKey, ok := e.lookupOverride(lv, name); ok {
			return e.callOperatorMacro(node, macroKey, lhs, rhs, area, info)
		}
	}
	return e.builtinBinary(op, lhs, rhs, area, info)
}

// evalIsOp implements `is`: rhs is coerced to a pattern (an existing pattern
// value passes through; a type indicator or any other value becomes a
// type/equality pattern via asPattern) and matched against lhs, spec.md
// §4.6. A `_is_` override on lhs's type, if any, is applied inside
// matchesPattern itself.
func (e *Evaluator) evalIsOp(node *ictx.FullContext, lhs, rhs value.Key, area diag.CodeArea, info diag.Info) (value.Key, error) {
	rv := e.G.Arena.Get(rhs)
	patKey := rhs
	if _, ok := rv.(value.PatternValue); !ok {
		p := e.asPattern(rhs, rv, area)
		patKey = e.G.Arena.Insert(value.StoredValData{Val: value.PatternValue{Pattern: p}, Mutable: false, DefArea: area})
	}
	ok, err := e.matchesPattern(node, lhs, patKey, info)
	if err != nil {
		return value.Key{}, err
	}
	return e.boolKey(ok, area), nil
}

func (e *Evaluator) builtinBinary(op ast.Operator, lhs, rhs value.Key, area diag.CodeArea, info diag.Info) (value.Key, error) {
	lv, rv := e.G.Arena.Get(lhs), e.G.Arena.Get(rhs)

	switch op {
	case ast.OpAdd:
		if ln, ok := lv.(value.Number); ok {
			if rn, ok := rv.(value.Number); ok {
				return e.num(float64(ln) + float64(rn), area), nil
			}
		}
		if ls, ok := lv.(value.Str); ok {
			if rs, ok := rv.(value.Str); ok {
				return e.str(string(ls)+string(rs), area), nil
			}
		}
		if la, ok := lv.(value.Array); ok {
			if ra, ok := rv.(value.Array); ok {
				out := make(value.Array, 0, len(la)+len(ra))
				for _, k := range la {
					out = append(out, e.G.Arena.DeepClone(k, &area))
				}
				for _, k := range ra {
					out = append(out, e.G.Arena.DeepClone(k, &area))
				}
				return e.G.Arena.Insert(value.StoredValData{Val: out, Mutable: true, DefArea: area}), nil
			}
		}
		return value.Key{}, typeErr("number, string or array", lv, rv, area, info)
	case ast.OpSub:
		return e.numOp(lv, rv, area, info, func(a, b float64) float64 { return a - b })
	case ast.OpMul:
		if n, s, ok := numAndStr(lv, rv); ok {
			count, valid := asInt(n)
			if !valid || count < 0 {
				return value.Key{}, rterror.New(info.WithArea(area), "cannot repeat a string a negative or non-integer number of times")
			}
			out := ""
			for i := int64(0); i < count; i++ {
				out += s
			}
			return e.str(out, area), nil
		}
		if n, arr, ok := numAndArray(lv, rv); ok {
			count, valid := asInt(n)
			if !valid || count < 0 {
				return value.Key{}, rterror.New(info.WithArea(area), "cannot repeat an array a negative or non-integer number of times")
			}
			out := make(value.Array, 0, int64(len(arr))*count)
			for i := int64(0); i < count; i++ {
				for _, k := range arr {
					out = append(out, e.G.Arena.DeepClone(k, &area))
				}
			}
			return e.G.Arena.Insert(value.StoredValData{Val: out, Mutable: true, DefArea: area}), nil
		}
		return e.numOp(lv, rv, area, info, func(a, b float64) float64 { return a * b })
	case ast.OpDiv:
		return e.numOpFallible(lv, rv, area, info, "divide", func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, rterror.New(info.WithArea(area), "division by zero")
			}
			return a / b, nil
		})
	case ast.OpMod:
		return e.numOpFallible(lv, rv, area, info, "modulo", func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, rterror.New(info.WithArea(area), "modulo by zero")
			}
			return euclidMod(a, b), nil
		})
	case ast.OpPow:
		return e.numOp(lv, rv, area, info, math.Pow)
	case ast.OpEq:
		return e.boolKey(e.G.Arena.Equal(lhs, rhs), area), nil
	case ast.OpNotEq:
		return e.boolKey(!e.G.Arena.Equal(lhs, rhs), area), nil
	case ast.OpGreater:
		return e.cmp(lv, rv, area, info, func(a, b float64) bool { return a > b })
	case ast.OpGreaterEq:
		return e.cmp(lv, rv, area, info, func(a, b float64) bool { return a >= b })
	case ast.OpLess:
		return e.cmp(lv, rv, area, info, func(a, b float64) bool { return a < b })
	case ast.OpLessEq:
		return e.cmp(lv, rv, area, info, func(a, b float64) bool { return a <= b })
	case ast.OpAnd:
		lb, lok := lv.(value.Bool)
		rb, rok := rv.(value.Bool)
		if !lok || !rok {
			return value.Key{}, typeErr("bool", lv, rv, area, info)
		}
		return e.boolKey(bool(lb) && bool(rb), area), nil
	case ast.OpOr:
		lb, lok := lv.(value.Bool)
		rb, rok := rv.(value.Bool)
		if !lok || !rok {
			return value.Key{}, typeErr("bool", lv, rv, area, info)
		}
		return e.boolKey(bool(lb) || bool(rb), area), nil
	case ast.OpIn:
		return e.evalIn(lhs, rhs, lv, rv, area, info)
	case ast.OpRange:
		ln, lok := lv.(value.Number)
		rn, rok := rv.(value.Number)
		if !lok || !rok {
			return value.Key{}, typeErr("number", lv, rv, area, info)
		}
		start, sok := asInt(float64(ln))
		end, eok := asInt(float64(rn))
		if !sok || !eok {
			return value.Key{}, rterror.New(info.WithArea(area), "range bounds must be integers")
		}
		r := value.Range{Start: int32(start), End: int32(end), Step: 1}
		return e.G.Arena.Insert(value.StoredValData{Val: r, Mutable: true, DefArea: area}), nil
	case ast.OpEither:
		lp := e.asPattern(lhs, lv, area)
		rp := e.asPattern(rhs, rv, area)
		p := value.EitherPattern(lp, rp)
		return e.G.Arena.Insert(value.StoredValData{Val: value.PatternValue{Pattern: p}, Mutable: false, DefArea: area}), nil
	case ast.OpBoth:
		lp := e.asPattern(lhs, lv, area)
		rp := e.asPattern(rhs, rv, area)
		p := value.BothPattern(lp, rp)
		return e.G.Arena.Insert(value.StoredValData{Val: value.PatternValue{Pattern: p}, Mutable: false, DefArea: area}), nil
	case ast.OpAs:
		return e.evalAs(lhs, rhs, lv, rv, area, info)
	default:
		return value.Key{}, rterror.New(info.WithArea(area), "unsupported operator")
	}
}

// asPattern coerces a value used on either side of `either`/`both` into a
// value.Pattern: a pattern value passes through, a type indicator becomes a
// type pattern, anything else becomes an equality pattern against a copy of
// the value itself.
func (e *Evaluator) asPattern(k value.Key, v value.Value, area diag.CodeArea) value.Pattern {
	switch t := v.(type) {
	case value.PatternValue:
		return t.Pattern
	case value.TypeIndicator:
		return value.TypePattern(value.Kind(t))
	default:
		return value.EqPattern(k)
	}
}

// evalAs implements the `as` cast operator: casting to a matching pattern
// returns the value unchanged, casting a number to a string (or vice versa)
// converts textually, per spec.md §4.5's numeric/string conversion rules.
func (e *Evaluator) evalAs(lhs, rhs value.Key, lv, rv value.Value, area diag.CodeArea, info diag.Info) (value.Key, error) {
	if pv, ok := rv.(value.PatternValue); ok {
		matched, err := e.matchPure(lhs, pv.Pattern, info)
		if err != nil {
			return value.Key{}, err
		}
		if !matched {
			return value.Key{}, &rterror.PatternMismatchError{Pattern: "as", Val: "value", PatDef: area, ValDef: area, Info: info.WithArea(area)}
		}
		return lhs, nil
	}
	ti, ok := rv.(value.TypeIndicator)
	if !ok {
		return value.Key{}, typeErr("type indicator or pattern", lv, rv, area, info)
	}
	switch value.Kind(ti) {
	case value.KindStr:
		s, err := e.describe(lhs)
		if err != nil {
			return value.Key{}, err
		}
		return e.str(s, area), nil
	case value.KindNumber:
		if s, ok := lv.(value.Str); ok {
			var f float64
			if _, err := fmt.Sscanf(string(s), "%g", &f); err != nil {
				return value.Key{}, rterror.New(info.WithArea(area), "cannot convert string to a number")
			}
			return e.num(f, area), nil
		}
		if b, ok := lv.(value.Bool); ok {
			if b {
				return e.num(1, area), nil
			}
			return e.num(0, area), nil
		}
	case value.KindBool:
		if n, ok := lv.(value.Number); ok {
			return e.boolKey(n != 0, area), nil
		}
	}
	return value.Key{}, rterror.New(info.WithArea(area), "unsupported conversion")
}

func (e *Evaluator) evalIn(lhs, rhs value.Key, lv, rv value.Value, area diag.CodeArea, info diag.Info) (value.Key, error) {
	switch container := rv.(type) {
	case value.Array:
		for _, ek := range container {
			if e.G.Arena.Equal(lhs, ek) {
				return e.boolKey(true, area), nil
			}
		}
		return e.boolKey(false, area), nil
	case value.Dict:
		ls, ok := lv.(value.Str)
		if !ok {
			return value.Key{}, typeErr("string", lv, rv, area, info)
		}
		_, found := container[string(ls)]
		return e.boolKey(found, area), nil
	case value.Str:
		ls, ok := lv.(value.Str)
		if !ok {
			return value.Key{}, typeErr("string", lv, rv, area, info)
		}
		return e.boolKey(contains(string(container), string(ls)), area), nil
	default:
		return value.Key{}, typeErr("array, dictionary or string", lv, rv, area, info)
	}
}

func contains(haystack, needle string) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func numAndStr(a, b value.Value) (float64, string, bool) {
	if n, ok := a.(value.Number); ok {
		if s, ok := b.(value.Str); ok {
			return float64(n), string(s), true
		}
	}
	if n, ok := b.(value.Number); ok {
		if s, ok := a.(value.Str); ok {
			return float64(n), string(s), true
		}
	}
	return 0, "", false
}

// numAndArray recognizes the two argument orders of `array * number` /
// `number * array` (spec.md §4.5: "String/array multiplication by a
// non-negative integer N repeats; negative N fails.").
func numAndArray(a, b value.Value) (float64, value.Array, bool) {
	if n, ok := a.(value.Number); ok {
		if arr, ok := b.(value.Array); ok {
			return float64(n), arr, true
		}
	}
	if n, ok := b.(value.Number); ok {
		if arr, ok := a.(value.Array); ok {
			return float64(n), arr, true
		}
	}
	return 0, nil, false
}

func (e *Evaluator) numOp(a, b value.Value, area diag.CodeArea, info diag.Info, f func(a, b float64) float64) (value.Key, error) {
	an, aok := a.(value.Number)
	bn, bok := b.(value.Number)
	if !aok || !bok {
		return value.Key{}, typeErr("number", a, b, area, info)
	}
	return e.num(f(float64(an), float64(bn)), area), nil
}

func (e *Evaluator) numOpFallible(a, b value.Value, area diag.CodeArea, info diag.Info, opname string, f func(a, b float64) (float64, error)) (value.Key, error) {
	an, aok := a.(value.Number)
	bn, bok := b.(value.Number)
	if !aok || !bok {
		return value.Key{}, typeErr("number", a, b, area, info)
	}
	r, err := f(float64(an), float64(bn))
	if err != nil {
		return value.Key{}, &rterror.BuiltinError{Builtin: opname, Message: err.Error(), Info: info.WithArea(area)}
	}
	return e.num(r, area), nil
}

func (e *Evaluator) cmp(a, b value.Value, area diag.CodeArea, info diag.Info, f func(a, b float64) bool) (value.Key, error) {
	an, aok := a.(value.Number)
	bn, bok := b.(value.Number)
	if !aok || !bok {
		return value.Key{}, typeErr("number", a, b, area, info)
	}
	return e.boolKey(f(float64(an), float64(bn)), area), nil
}

func (e *Evaluator) num(f float64, area diag.CodeArea) value.Key {
	return e.G.Arena.Insert(value.StoredValData{Val: value.Number(f), Mutable: true, DefArea: area})
}

func (e *Evaluator) str(s string, area diag.CodeArea) value.Key {
	return e.G.Arena.Insert(value.StoredValData{Val: value.Str(s), Mutable: true, DefArea: area})
}

func (e *Evaluator) boolKey(b bool, area diag.CodeArea) value.Key {
	return e.G.Arena.Insert(value.StoredValData{Val: value.Bool(b), Mutable: true, DefArea: area})
}

// evalUnary applies a prefix operator to v within node's leaf, checking for
// a user override (named "_unary_minus_"/"_unary_not_"/"_unary_range_")
// before falling back to
// the built-in.
func (e *Evaluator) evalUnary(node *ictx.FullContext, op ast.UnaryOperator, v value.Key, area diag.CodeArea, info diag.Info) (value.Key, error) {
	val := e.G.Arena.Get(v)
	var name string
	switch op {
	case ast.UnaryMinus:
		name = "_unary_minus_"
	case ast.UnaryNot:
		name = "_unary_not_"
	case ast.UnaryRange:
		name = "_unary_range_"
	}
	if name != "" {
		if macroKey, ok := e.lookupOverride(val, name); ok {
			return e.callUnaryOperatorMacro(node, macroKey, v, area, info)
		}
	}
	switch op {
	case ast.UnaryMinus:
		n, ok := val.(value.Number)
		if !ok {
			return value.Key{}, typeErr("number", val, val, area, info)
		}
		return e.num(-float64(n), area), nil
	case ast.UnaryNot:
		b, ok := val.(value.Bool)
		if !ok {
			return value.Key{}, typeErr("bool", val, val, area, info)
		}
		return e.boolKey(!bool(b), area), nil
	case ast.UnaryRange:
		n, ok := val.(value.Number)
		if !ok {
			return value.Key{}, typeErr("number", val, val, area, info)
		}
		end, valid := asInt(float64(n))
		if !valid {
			return value.Key{}, rterror.New(info.WithArea(area), "range bound must be an integer")
		}
		r := value.Range{Start: 0, End: int32(end), Step: 1}
		return e.G.Arena.Insert(value.StoredValData{Val: r, Mutable: true, DefArea: area}), nil
	default:
		return value.Key{}, rterror.New(info.WithArea(area), "unsupported unary operator")
	}
}

func typeErr(expected string, a, b value.Value, area diag.CodeArea, info diag.Info) error {
	return &rterror.TypeError{
		Expected: expected,
		Found:    kindName(a) + "/" + kindName(b),
		ValDef:   area,
		Info:     info.WithArea(area),
	}
}

func kindName(v value.Value) string {
	switch v.Kind() {
	case value.KindNumber:
		return "number"
	case value.KindStr:
		return "string"
	case value.KindBool:
		return "bool"
	case value.KindArray:
		return "array"
	case value.KindDict:
		return "dictionary"
	case value.KindNull:
		return "null"
	default:
		return "value"
	}
}
