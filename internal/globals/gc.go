package globals

import "github.com/gospwn/spwn/internal/ictx"

// Collect runs a full mark-sweep pass rooted at root, spec.md §4.1's root
// set: NULL_STORAGE, BUILTIN_STORAGE, the initial-objects cache, every
// variable binding across every live context leaf (marked via
// IterWithBreaks so broken leaves aren't skipped), every break-carried
// return value, every return_value/return_value2, every preserved-stack
// entry, every implementation value, and every cached import.
func (g *Globals) Collect(root *ictx.FullContext) {
	g.Arena.Mark(g.NullStorage)
	g.Arena.Mark(g.BuiltinStorage)
	if g.InitialObjects != nil {
		g.Arena.Mark(*g.InitialObjects)
	}

	if root != nil {
		it := root.IterWithBreaks()
		for node, ok := it.Next(); ok; node, ok = it.Next() {
			ctx := node.Inner()
			for _, stack := range ctx.Variables() {
				for _, v := range stack {
					g.Arena.Mark(v.Val)
				}
			}
			g.Arena.Mark(ctx.ReturnValue)
			g.Arena.Mark(ctx.ReturnValue2)
			if ctx.Broken != nil && ctx.Broken.Value != nil {
				g.Arena.Mark(*ctx.Broken.Value)
			}
		}
	}

	for _, k := range g.PreservedKeys() {
		g.Arena.Mark(k)
	}

	for _, members := range g.Implementations {
		for _, impl := range members {
			g.Arena.Mark(impl.Value)
		}
	}

	for _, cached := range g.PrevImports {
		g.Arena.Mark(cached.Value)
		for _, members := range cached.Impls {
			for _, impl := range members {
				g.Arena.Mark(impl.Value)
			}
		}
	}

	g.Arena.Sweep()
}

// MaybeCollect runs Collect only if the arena has grown past its growth
// threshold since the last sweep, the statement-boundary policy spec.md
// §4.1 describes.
func (g *Globals) MaybeCollect(root *ictx.FullContext) {
	if g.Arena.ShouldSweep() {
		g.Collect(root)
	}
}
