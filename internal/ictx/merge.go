package ictx

import (
	"github.com/gospwn/spwn/internal/ids"
	"github.com/gospwn/spwn/internal/value"
)

// MergeHost is the slice of Globals that context merging needs: a fresh
// group id, a place to file the spawn-trigger object each merged leaf
// emits, and strict value equality for comparing return values and
// bindings. Kept as an interface here (rather than importing a globals
// package) so ictx has no dependency on evaluator/globals state, mirroring
// how context.rs's merge_contexts takes `&mut Globals` as a parameter
// rather than owning one.
type MergeHost interface {
	NextFreeGroup() ids.ID
	NextFuncID(parent int) int
	EmitSpawnTrigger(funcID int, target ids.ID)
	StrictEqual(a, b value.Key) bool
}

// MergeAll repeatedly merges leaves of f with identical variable bindings
// and equal break status into a single leaf, emitting a spawn trigger per
// merged leaf that targets a freshly allocated group. Runs until no further
// merge is found, context.rs's merge_contexts driven to a fixed point and
// spec.md §4.3's merge_all.
func MergeAll(f *FullContext, host MergeHost, checkReturnVals bool) {
	for mergeOnce(f, host, checkReturnVals) {
	}
}

func mergeOnce(f *FullContext, host MergeHost, checkReturnVals bool) bool {
	var leaves []*FullContext
	it := f.IterWithBreaks()
	for n, ok := it.Next(); ok; n, ok = it.Next() {
		leaves = append(leaves, n)
	}

	for refIdx := 0; refIdx < len(leaves); refIdx++ {
		ref := leaves[refIdx].Inner()
		var group []int
		for i, other := range leaves {
			if i == refIdx {
				continue
			}
			c := other.Inner()
			if (ref.Broken == nil) != (c.Broken == nil) {
				continue
			}
			if ref.Broken != nil {
				if ref.Broken.Kind != c.Broken.Kind || (ref.Broken.Value == nil) != (c.Broken.Value == nil) {
					continue
				}
				if ref.Broken.Value != nil && !host.StrictEqual(*ref.Broken.Value, *c.Broken.Value) {
					continue
				}
			}
			if !contextsMergeable(ref, c, host, checkReturnVals) {
				continue
			}
			group = append(group, i)
		}
		if len(group) == 0 {
			continue
		}

		newGroup := host.NextFreeGroup()
		host.EmitSpawnTrigger(ref.FuncID, newGroup)
		for _, i := range group {
			host.EmitSpawnTrigger(leaves[i].Inner().FuncID, newGroup)
		}

		ref.StartGroup = newGroup
		ref.FuncID = host.NextFuncID(ref.FuncID)

		dropped := make(map[int]bool, len(group))
		for _, i := range group {
			dropped[i] = true
		}
		collapseLeaves(f, leaves, refIdx, dropped)
		return true
	}
	return false
}

func contextsMergeable(ref, c *Context, host MergeHost, checkReturnVals bool) bool {
	if checkReturnVals && !host.StrictEqual(ref.ReturnValue, c.ReturnValue) {
		return false
	}
	if len(ref.variables) != len(c.variables) {
		return false
	}
	for name, refStack := range ref.variables {
		stack, ok := c.variables[name]
		if !ok || len(stack) != len(refStack) {
			return false
		}
		for i := range refStack {
			if !host.StrictEqual(refStack[i].Val, stack[i].Val) {
				return false
			}
		}
	}
	return true
}

// collapseLeaves removes every leaf index in dropped from the tree rooted
// at f, leaving the ref leaf (now retargeted to the merge group) in place.
// context.rs collapses a flat Vec<Context> with swap_remove; we rebuild the
// tree from the surviving leaves instead since our contexts live in a
// binary tree rather than a flat vector.
func collapseLeaves(f *FullContext, leaves []*FullContext, refIdx int, dropped map[int]bool) {
	var survivors []*FullContext
	for i, leaf := range leaves {
		if dropped[i] {
			continue
		}
		survivors = append(survivors, leaf)
		_ = refIdx
	}
	rebuilt := Stack(survivors)
	*f = *rebuilt
	for _, leaf := range survivors {
		leaf.leaf.root = f
	}
}
