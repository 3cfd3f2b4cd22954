package ictx

// Iter performs an in-order traversal of the tree rooted at f, skipping any
// leaf whose Broken is non-nil — the default traversal every expression
// evaluation and statement execution uses. Grounded on context.rs's
// ContextIter.
type Iter struct {
	rightNodes []*FullContext
	current    *FullContext
}

// IterWithBreaks is the same traversal but yields broken leaves too, used
// by scope bookkeeping (EnterScope/ExitScope/DisableBreaks) that must touch
// every leaf regardless of break status. Grounded on context.rs's
// ContextIterWithBreaks.
type IterWithBreaks struct {
	rightNodes []*FullContext
	current    *FullContext
}

func addLeftSubtree(node *FullContext, rightNodes *[]*FullContext) *FullContext {
	for node.IsSplit() {
		*rightNodes = append(*rightNodes, node.right)
		node = node.left
	}
	return node
}

// Iter starts an in-order, break-skipping traversal of f.
func (f *FullContext) Iter() *Iter {
	it := &Iter{}
	it.current = addLeftSubtree(f, &it.rightNodes)
	return it
}

// IterWithBreaks starts an in-order traversal of f that visits every leaf.
func (f *FullContext) IterWithBreaks() *IterWithBreaks {
	it := &IterWithBreaks{}
	it.current = addLeftSubtree(f, &it.rightNodes)
	return it
}

// Next returns the next non-broken leaf, or (nil, false) when exhausted.
// The leaf after the returned one is located before Next returns, so if
// the caller turns the returned leaf into a Split before calling Next
// again, this iterator does not visit the new subtree; a fresh Iter does.
func (it *Iter) Next() (*FullContext, bool) {
	result := it.current
	it.current = nil
	if n := len(it.rightNodes); n > 0 {
		next := it.rightNodes[n-1]
		it.rightNodes = it.rightNodes[:n-1]
		it.current = addLeftSubtree(next, &it.rightNodes)
	}
	if result == nil {
		return nil, false
	}
	if result.Inner().Broken != nil {
		return it.Next()
	}
	return result, true
}

// Next returns the next leaf regardless of break status, or (nil, false)
// when exhausted.
func (it *IterWithBreaks) Next() (*FullContext, bool) {
	result := it.current
	it.current = nil
	if n := len(it.rightNodes); n > 0 {
		next := it.rightNodes[n-1]
		it.rightNodes = it.rightNodes[:n-1]
		it.current = addLeftSubtree(next, &it.rightNodes)
	}
	if result == nil {
		return nil, false
	}
	return result, true
}
