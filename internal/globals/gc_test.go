package globals

import (
	"testing"

	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/ictx"
	"github.com/gospwn/spwn/internal/value"
)

// TestCollectSweepsUnreachableKeepsReachable checks the root set Collect
// walks (spec.md §4.1): a key bound into a live context leaf survives, one
// that's never reachable from any root does not.
func TestCollectSweepsUnreachableKeepsReachable(t *testing.T) {
	arena := value.NewArena()
	g := New(arena, "test.spwn")

	root := ictx.NewRoot(g.NullStorage)
	reachable := arena.Insert(value.StoredValData{Val: value.Number(1), DefArea: diag.Native})
	root.Inner().NewVariable("kept", reachable, 0)

	unreachable := arena.Insert(value.StoredValData{Val: value.Number(2), DefArea: diag.Native})

	g.Collect(root)

	if got := arena.Get(reachable); got != value.Number(1) {
		t.Fatalf("reachable slot should survive a collection, got %v", got)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected Index on a swept key to panic")
			}
		}()
		arena.Index(unreachable)
	}()
}

// TestCollectKeepsImplementationValues checks that a registered operator
// override stays alive even though no context leaf references it directly.
func TestCollectKeepsImplementationValues(t *testing.T) {
	arena := value.NewArena()
	g := New(arena, "test.spwn")
	root := ictx.NewRoot(g.NullStorage)

	typeID := g.NewTypeID("mytype", diag.Native)
	implVal := arena.Insert(value.StoredValData{Val: value.Number(7), DefArea: diag.Native})
	g.Implementations[typeID] = map[string]Impl{"_plus_": {Value: implVal, FromCurrentModule: true}}

	g.Collect(root)

	if got := arena.Get(implVal); got != value.Number(7) {
		t.Fatalf("implementation value should survive collection, got %v", got)
	}
}
