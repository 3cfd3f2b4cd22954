package ictx

import (
	"testing"

	"github.com/gospwn/spwn/internal/value"
)

// TestCloneCopiesBindingsIndependently checks that mutating the clone's
// binding stacks (pushing/popping a variable) never reaches back into the
// original Context, spec.md's requirement that an arrow-return's
// continuation branch starts from an untouched snapshot.
func TestCloneCopiesBindingsIndependently(t *testing.T) {
	null := value.Key{}
	orig := NewContext(null)
	orig.NewVariable("x", null, 0)

	clone := orig.Clone()
	clone.NewVariable("y", null, 0)

	if _, ok := orig.GetVariable("y"); ok {
		t.Fatal("pushing a variable onto the clone should not affect the original")
	}
	if _, ok := clone.GetVariable("x"); !ok {
		t.Fatal("the clone should still see bindings that existed at clone time")
	}

	orig.NewVariable("z", null, 0)
	if _, ok := clone.GetVariable("z"); ok {
		t.Fatal("pushing a variable onto the original after cloning should not affect the clone")
	}
}

// TestCloneStartsUnbroken checks a clone never carries over Broken, since a
// fresh snapshot is always a live, unbroken universe.
func TestCloneStartsUnbroken(t *testing.T) {
	null := value.Key{}
	orig := NewContext(null)
	orig.Broken = &Break{Kind: 0}

	clone := orig.Clone()
	if clone.Broken != nil {
		t.Fatal("a clone should never start out broken")
	}
}

// TestSpliceSiblingPreservesLeafRootInvariant checks that SpliceSibling's
// freeze step keeps every nested leaf's Root() pointing at the FullContext
// that now actually holds it, both when f started as a plain leaf and when
// it was already a Split.
func TestSpliceSiblingPreservesLeafRootInvariant(t *testing.T) {
	null := value.Key{}

	t.Run("leaf", func(t *testing.T) {
		c := NewContext(null)
		node := Single(c)
		sibling := Single(NewContext(null))

		node.SpliceSibling(sibling)

		if !node.IsSplit() {
			t.Fatal("node should now be a split")
		}
		if c.Root() == node {
			t.Fatal("the original leaf's root should no longer be the now-split node")
		}
		if c.Root().Inner() != c {
			t.Fatal("the frozen leaf's root must point back at its own new holder")
		}
	})

	t.Run("already split", func(t *testing.T) {
		left := NewContext(null)
		right := NewContext(null)
		node := Split(Single(left), Single(right))
		sibling := Single(NewContext(null))

		node.SpliceSibling(sibling)

		if !node.IsSplit() {
			t.Fatal("node should still be a split")
		}
		it := node.IterWithBreaks()
		count := 0
		for leaf, ok := it.Next(); ok; leaf, ok = it.Next() {
			count++
			if leaf.Inner().Root() != leaf {
				t.Fatal("every leaf's root must point at the FullContext it's actually reachable from")
			}
		}
		if count != 3 {
			t.Fatalf("expected 3 leaves (left, right, sibling), got %d", count)
		}
	})
}
