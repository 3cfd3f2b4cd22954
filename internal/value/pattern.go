package value

// Pattern is the tagged variant spec.md §3 defines for `is`/match-arm
// checking. Composite variants (Either/Both/Not) hold pointers so the type
// stays a small fixed-size value even though Pattern is recursive.
type Pattern struct {
	tag     patternTag
	typ     Kind
	key     Key
	lhs, rhs *Pattern
}

type patternTag int

const (
	PatternAny patternTag = iota
	PatternType
	PatternEq
	PatternNotEq
	PatternMoreThan
	PatternLessThan
	PatternMoreOrEq
	PatternLessOrEq
	PatternIn
	PatternEither
	PatternBoth
	PatternNot
)

func (p Pattern) Tag() patternTag { return p.tag }
func (p Pattern) Type() Kind      { return p.typ }
func (p Pattern) Key() Key        { return p.key }
func (p Pattern) Left() *Pattern  { return p.lhs }
func (p Pattern) Right() *Pattern { return p.rhs }

func AnyPattern() Pattern                { return Pattern{tag: PatternAny} }
func TypePattern(k Kind) Pattern         { return Pattern{tag: PatternType, typ: k} }
func EqPattern(k Key) Pattern            { return Pattern{tag: PatternEq, key: k} }
func NotEqPattern(k Key) Pattern         { return Pattern{tag: PatternNotEq, key: k} }
func MoreThanPattern(k Key) Pattern      { return Pattern{tag: PatternMoreThan, key: k} }
func LessThanPattern(k Key) Pattern      { return Pattern{tag: PatternLessThan, key: k} }
func MoreOrEqPattern(k Key) Pattern      { return Pattern{tag: PatternMoreOrEq, key: k} }
func LessOrEqPattern(k Key) Pattern      { return Pattern{tag: PatternLessOrEq, key: k} }
func InPattern(k Key) Pattern            { return Pattern{tag: PatternIn, key: k} }
func EitherPattern(a, b Pattern) Pattern { return Pattern{tag: PatternEither, lhs: &a, rhs: &b} }
func BothPattern(a, b Pattern) Pattern   { return Pattern{tag: PatternBoth, lhs: &a, rhs: &b} }
func NotPattern(a Pattern) Pattern       { return Pattern{tag: PatternNot, lhs: &a} }
