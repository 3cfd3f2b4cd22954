package evaluator

import (
	"testing"

	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/value"
)

func TestMatchPureComparisonPatterns(t *testing.T) {
	ev, g, _ := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	five := g.Arena.Insert(value.StoredValData{Val: value.Number(5), DefArea: diag.Native})
	three := g.Arena.Insert(value.StoredValData{Val: value.Number(3), DefArea: diag.Native})

	ok, err := ev.matchPure(five, value.MoreThanPattern(three), info)
	if err != nil || !ok {
		t.Fatalf("5 > 3 pattern: got ok=%v err=%v", ok, err)
	}
	ok, err = ev.matchPure(three, value.MoreThanPattern(five), info)
	if err != nil || ok {
		t.Fatalf("3 > 5 pattern should not match: got ok=%v err=%v", ok, err)
	}
}

func TestMatchPureEitherAndBoth(t *testing.T) {
	ev, g, _ := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	five := g.Arena.Insert(value.StoredValData{Val: value.Number(5), DefArea: diag.Native})
	three := g.Arena.Insert(value.StoredValData{Val: value.Number(3), DefArea: diag.Native})
	ten := g.Arena.Insert(value.StoredValData{Val: value.Number(10), DefArea: diag.Native})

	either := value.EitherPattern(value.MoreThanPattern(ten), value.LessThanPattern(three))
	ok, err := ev.matchPure(five, either, info)
	if err != nil || ok {
		t.Fatalf("5 matches neither >10 nor <3: got ok=%v err=%v", ok, err)
	}

	both := value.BothPattern(value.MoreThanPattern(three), value.LessThanPattern(ten))
	ok, err = ev.matchPure(five, both, info)
	if err != nil || !ok {
		t.Fatalf("5 is both >3 and <10: got ok=%v err=%v", ok, err)
	}

	notFive := value.NotPattern(value.EqPattern(five))
	ok, err = ev.matchPure(five, notFive, info)
	if err != nil || ok {
		t.Fatalf("not(==5) should reject 5: got ok=%v err=%v", ok, err)
	}
}

func TestMatchPureInPattern(t *testing.T) {
	ev, g, _ := newTestEvaluator()
	info := diag.FromArea(diag.Native)

	one := g.Arena.Insert(value.StoredValData{Val: value.Number(1), DefArea: diag.Native})
	two := g.Arena.Insert(value.StoredValData{Val: value.Number(2), DefArea: diag.Native})
	three := g.Arena.Insert(value.StoredValData{Val: value.Number(3), DefArea: diag.Native})
	arr := g.Arena.Insert(value.StoredValData{Val: value.Array{one, two}, DefArea: diag.Native})

	ok, err := ev.matchPure(one, value.InPattern(arr), info)
	if err != nil || !ok {
		t.Fatalf("1 in [1,2]: got ok=%v err=%v", ok, err)
	}
	ok, err = ev.matchPure(three, value.InPattern(arr), info)
	if err != nil || ok {
		t.Fatalf("3 in [1,2] should be false: got ok=%v err=%v", ok, err)
	}
}

// TestPatternSubsumesCoversAnyAndComposite exercises spec.md §4.6's
// structural pattern-subsumption check: patternSubsumes(p1, p2) holds when
// every value matching p1 also matches p2.
func TestPatternSubsumesCoversAnyAndComposite(t *testing.T) {
	anyP := value.AnyPattern()
	numP := value.TypePattern(value.KindNumber)
	if !patternSubsumes(numP, anyP) {
		t.Fatal("any pattern must subsume everything")
	}
	if patternSubsumes(anyP, numP) {
		t.Fatal("a narrower pattern must not subsume any")
	}

	boolP := value.TypePattern(value.KindBool)
	either := value.EitherPattern(numP, boolP)
	if !patternSubsumes(either, anyP) {
		t.Fatal("either(number, bool) should subsume against any on the rhs")
	}
	if patternSubsumes(either, numP) {
		t.Fatal("number alone should not subsume either(number, bool)")
	}
}
