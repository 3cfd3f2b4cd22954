package value

import "testing"

func TestInsertAndGet(t *testing.T) {
	a := NewArena()
	k := a.Insert(StoredValData{Val: Number(3.5)})
	if got := a.Get(k); got != Number(3.5) {
		t.Fatalf("got %v", got)
	}
}

func TestDeepCloneArrayIsIndependent(t *testing.T) {
	a := NewArena()
	elem := a.Insert(StoredValData{Val: Number(1)})
	arr := a.Insert(StoredValData{Val: Array{elem}})

	clone := a.DeepClone(arr, nil)
	if clone == arr {
		t.Fatal("clone must have a distinct key from the source")
	}
	clonedArr := a.Get(clone).(Array)
	if clonedArr[0] == elem {
		t.Fatal("clone must re-intern nested elements, not alias the source's keys")
	}
	if a.Get(clonedArr[0]) != Number(1) {
		t.Fatalf("cloned element has wrong value: %v", a.Get(clonedArr[0]))
	}
}

func TestSetMutabilityPropagatesRecursively(t *testing.T) {
	a := NewArena()
	inner := a.Insert(StoredValData{Val: Number(1), Mutable: false})
	outer := a.Insert(StoredValData{Val: Array{inner}, Mutable: false})

	a.SetMutability(outer, true)

	if !a.Index(outer).Mutable {
		t.Fatal("expected outer to become mutable")
	}
	if !a.Index(inner).Mutable {
		t.Fatal("expected mutability to propagate to the array element")
	}
}

func TestSetMutabilitySkipsMacros(t *testing.T) {
	a := NewArena()
	m := a.Insert(StoredValData{Val: MacroValue{Macro: &Macro{}}, Mutable: false})
	a.SetMutability(m, true)
	if a.Index(m).Mutable {
		t.Fatal("a macro slot must stay immutable even when mutability is requested")
	}
}

func TestMarkSweepDropsUnreachable(t *testing.T) {
	a := NewArena()
	kept := a.Insert(StoredValData{Val: Number(1)})
	dropped := a.Insert(StoredValData{Val: Number(2)})

	a.Mark(kept)
	a.Sweep()

	if got := a.Get(kept); got != Number(1) {
		t.Fatalf("kept slot should survive, got %v", got)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected indexing a swept slot to panic (dangling key)")
		}
	}()
	a.Get(dropped)
}

func TestMarkSweepKeepsReachableArrayElements(t *testing.T) {
	a := NewArena()
	elem := a.Insert(StoredValData{Val: Number(9)})
	arr := a.Insert(StoredValData{Val: Array{elem}})

	a.Mark(arr)
	a.Sweep()

	if a.Get(elem) != Number(9) {
		t.Fatal("array element reachable from a marked root must survive sweep")
	}
}

func TestMarkIsCycleSafe(t *testing.T) {
	a := NewArena()
	d1 := a.Insert(StoredValData{Val: Dict{}})
	d2 := a.Insert(StoredValData{Val: Dict{"back": d1}})
	*a.Index(d1) = StoredValData{Val: Dict{"next": d2}}

	a.Mark(d1) // must terminate instead of recursing forever around the cycle
	a.Sweep()
	if a.Get(d1).(Dict)["next"] != d2 {
		t.Fatal("cyclic structure should survive a mark rooted at either node")
	}
}

func TestShouldSweepThreshold(t *testing.T) {
	a := NewArena()
	if a.ShouldSweep() {
		t.Fatal("a fresh arena should not need a sweep")
	}
	for i := 0; i < GrowthThreshold+1; i++ {
		a.Insert(StoredValData{Val: Null{}})
	}
	if !a.ShouldSweep() {
		t.Fatal("expected ShouldSweep to trip past the growth threshold")
	}
}
