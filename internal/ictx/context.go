// Package ictx implements SPWN's context-splitting interpreter state: the
// binary tree of execution contexts ("the multiverse") in which each leaf
// is one parallel universe running the program independently. Grounded
// directly on
// original_source/compiler/src/context.rs, spec.md §3 (Context) and §4.3
// (Context Tree).
package ictx

import (
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/ids"
	"github.com/gospwn/spwn/internal/rterror"
	"github.com/gospwn/spwn/internal/value"
)

// Break records that a leaf hit break/continue/return/switch-fallthrough;
// Value carries the returned/switched-on value for Macro and Switch breaks
// (spec.md §3's BreakKind: `Macro(Option<Key>, arrow) | Switch(Key)`).
type Break struct {
	Kind  rterror.BreakKind
	Area  diag.CodeArea
	Value *value.Key
	Arrow bool
}

// VariableData is one binding in a Context's shadow stack for a name;
// Layers counts enclosing scopes so exit_scope knows which bindings just
// went out of scope (context.rs's VariableData).
type VariableData struct {
	Val        value.Key
	Layers     int16
	Redefinable bool
}

// Context is one leaf of the multiverse: a single thread of execution with
// its own variable bindings, trigger target group and break status.
type Context struct {
	Broken                *Break
	StartGroup            ids.ID
	FuncID                int
	FnContextChangeStack  []diag.CodeArea
	variables             map[string][]VariableData
	ReturnValue           value.Key
	ReturnValue2          value.Key
	root                  *FullContext
}

// NewContext builds the single root context a compile starts with.
// nullKey should be the arena's reserved null value, mirroring
// Context::new using globals.NULL_STORAGE for both return slots.
func NewContext(nullKey value.Key) *Context {
	return &Context{
		StartGroup:  ids.Specific(0),
		variables:   make(map[string][]VariableData),
		ReturnValue: nullKey,
		ReturnValue2: nullKey,
	}
}

// GetVariable returns the innermost binding of name, if any.
func (c *Context) GetVariable(name string) (value.Key, bool) {
	stack := c.variables[name]
	if len(stack) == 0 {
		return value.Key{}, false
	}
	return stack[len(stack)-1].Val, true
}

// IsRedefinable reports whether name's innermost binding was declared via
// NewRedefinableVariable (used by `extract` and stdlib import).
func (c *Context) IsRedefinable(name string) (bool, bool) {
	stack := c.variables[name]
	if len(stack) == 0 {
		return false, false
	}
	return stack[len(stack)-1].Redefinable, true
}

func (c *Context) newVariableFull(name string, val value.Key, layer int16, redefinable bool) {
	c.variables[name] = append(c.variables[name], VariableData{Val: val, Layers: layer, Redefinable: redefinable})
}

// NewVariable pushes a normal (non-redefinable) binding.
func (c *Context) NewVariable(name string, val value.Key, layer int16) {
	c.newVariableFull(name, val, layer, false)
}

// NewRedefinableVariable pushes a binding that `extract`/stdlib import may
// overwrite in place rather than shadow.
func (c *Context) NewRedefinableVariable(name string, val value.Key, layer int16) {
	c.newVariableFull(name, val, layer, true)
}

// Variables exposes the raw binding table for context-merge comparisons.
func (c *Context) Variables() map[string][]VariableData { return c.variables }

// SetVariables replaces the binding table wholesale, used when restoring a
// snapshot taken before a scope that must not leak bindings outward.
func (c *Context) SetVariables(vars map[string][]VariableData) { c.variables = vars }

// Root returns the FullContext node this leaf currently sits at
// (context.rs's root_context_ptr).
func (c *Context) Root() *FullContext { return c.root }

// Clone snapshots c's bindings into a fresh, unattached Context: each
// name's binding stack is its own copy, so pushing or popping a variable on
// either the clone or the original never aliases the other's backing
// array. Broken is intentionally left nil — a clone always starts as a
// live, unbroken universe. Used by the arrow-return statement (spec.md
// §4.4/§5) to take a snapshot of "what this leaf looked like before the
// statement ran" to use as the branch that continues past it.
func (c *Context) Clone() *Context {
	vars := make(map[string][]VariableData, len(c.variables))
	for name, stack := range c.variables {
		cp := make([]VariableData, len(stack))
		copy(cp, stack)
		vars[name] = cp
	}
	return &Context{
		StartGroup:           c.StartGroup,
		FuncID:               c.FuncID,
		FnContextChangeStack: append([]diag.CodeArea(nil), c.FnContextChangeStack...),
		variables:            vars,
		ReturnValue:          c.ReturnValue,
		ReturnValue2:         c.ReturnValue2,
	}
}

// FullContext is a node of the binary multiverse tree: either a single
// live Context (a leaf) or a Split of two subtrees.
type FullContext struct {
	leaf        *Context
	left, right *FullContext
}

// NewRoot builds the one-leaf tree a fresh compile starts with.
func NewRoot(nullKey value.Key) *FullContext {
	ctx := NewContext(nullKey)
	fc := &FullContext{leaf: ctx}
	ctx.root = fc
	return fc
}

// Single wraps an existing Context as a leaf node.
func Single(c *Context) *FullContext {
	fc := &FullContext{leaf: c}
	c.root = fc
	return fc
}

// Split combines two subtrees into one branch node.
func Split(l, r *FullContext) *FullContext { return &FullContext{left: l, right: r} }

func (f *FullContext) IsSplit() bool { return f.leaf == nil }

// Inner returns the leaf's Context, panicking on a Split node exactly like
// FullContext::inner in context.rs.
func (f *FullContext) Inner() *Context {
	if f.leaf == nil {
		panic("ictx: Inner called on a split node")
	}
	return f.leaf
}

// ReplaceWithSplit turns a leaf in place into a Split of l and r, forking
// execution at that node without the caller needing to restructure the
// tree around it.
func (f *FullContext) ReplaceWithSplit(l, r *FullContext) {
	f.leaf = nil
	f.left, f.right = l, r
}

// SpliceSibling turns whatever is currently at f's position — a leaf or an
// entire already-split subtree — into a Split of that unchanged content
// alongside sibling, without disturbing the Root() identity of any leaf
// nested inside it. Unlike ReplaceWithSplit, which the caller uses when it
// already has two subtrees in hand, SpliceSibling is for grafting a new
// branch onto content that's already there: the arrow-return statement
// (spec.md §4.4/§5) uses it to attach a pre-statement snapshot as a sibling
// of whatever the return expression's own evaluation produced.
func (f *FullContext) SpliceSibling(sibling *FullContext) {
	frozen := &FullContext{leaf: f.leaf, left: f.left, right: f.right}
	if frozen.leaf != nil {
		frozen.leaf.root = frozen
	}
	f.leaf = nil
	f.left, f.right = frozen, sibling
}

// EnterScope increments every live (including broken) leaf's variable
// layer counters, context.rs's FullContext::enter_scope.
func (f *FullContext) EnterScope() {
	it := f.IterWithBreaks()
	for node, ok := it.Next(); ok; node, ok = it.Next() {
		for _, stack := range node.Inner().variables {
			for i := range stack {
				stack[i].Layers++
			}
		}
	}
}

// ExitScope decrements layer counters and drops bindings whose layer fell
// below zero, context.rs's FullContext::exit_scope.
func (f *FullContext) ExitScope() {
	it := f.IterWithBreaks()
	for node, ok := it.Next(); ok; node, ok = it.Next() {
		ctx := node.Inner()
		for name, stack := range ctx.variables {
			for i := range stack {
				stack[i].Layers--
			}
			for len(stack) > 0 && stack[len(stack)-1].Layers < 0 {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				delete(ctx.variables, name)
			} else {
				ctx.variables[name] = stack
			}
		}
	}
}

// ResetReturnVals clears return_value/return_value2 back to nullKey on
// every leaf, run between statements.
func (f *FullContext) ResetReturnVals(nullKey value.Key) {
	it := f.IterWithBreaks()
	for node, ok := it.Next(); ok; node, ok = it.Next() {
		ctx := node.Inner()
		ctx.ReturnValue = nullKey
		ctx.ReturnValue2 = nullKey
	}
}

// DisableBreaks clears Broken from every leaf whose break kind matches
// kind, context.rs's disable_breaks (used when a loop/macro body consumes
// its own break/continue/return before it can propagate further out).
func (f *FullContext) DisableBreaks(kind rterror.BreakKind) {
	it := f.IterWithBreaks()
	for node, ok := it.Next(); ok; node, ok = it.Next() {
		ctx := node.Inner()
		if ctx.Broken != nil && ctx.Broken.Kind == kind {
			ctx.Broken = nil
		}
	}
}

// Stack rebuilds a right-leaning Split tree from a flat list of leaves,
// context.rs's FullContext::stack (used by MergeAll to rebuild the tree
// from the leaves that survive a merge).
func Stack(leaves []*FullContext) *FullContext {
	if len(leaves) == 0 {
		return nil
	}
	if len(leaves) == 1 {
		return leaves[0]
	}
	return Split(leaves[0], Stack(leaves[1:]))
}
