package value

import (
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/ids"
)

// Key is a stable handle into an Arena, the Go analog of value_storage.rs's
// SlotMap key: an index plus a generation counter so a reused slot never
// aliases a stale Key.
type Key struct {
	index uint32
	gen    uint32
}

// NullKey is the zero Key; arenas reserve index 0 for NULL_STORAGE so a
// zero-value Key never accidentally aliases a real slot.
var NullKey = Key{}

// StoredValData is the per-slot metadata spec.md §3 defines: the value
// itself plus everything the GC, mutability checks and diagnostics need.
type StoredValData struct {
	Val        Value
	FnContext  ids.ID
	Mutable    bool
	DefArea    diag.CodeArea
	mark       bool
}

type slot struct {
	data     StoredValData
	gen      uint32
	occupied bool
}

// Arena is SPWN's value store: a mark-sweep GC'd slotmap, grounded on
// value_storage.rs's ValStorage/SlotMap<StoredValue, StoredValData>.
type Arena struct {
	slots      []slot
	free       []uint32
	lastSweep  int
}

// GrowthThreshold is the number of new slots since the last sweep that
// triggers the next automatic collection (config.GCGrowthThreshold).
const GrowthThreshold = 5000

func NewArena() *Arena {
	a := &Arena{}
	a.slots = append(a.slots, slot{occupied: true, data: StoredValData{Val: Null{}, Mutable: false}})
	return a
}

// Insert stores data and returns a stable Key, value_storage.rs's
// ValStorage::insert.
func (a *Arena) Insert(data StoredValData) Key {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.occupied = true
		s.data = data
		return Key{index: idx, gen: s.gen}
	}
	idx := uint32(len(a.slots))
	a.slots = append(a.slots, slot{occupied: true, data: data})
	return Key{index: idx, gen: 0}
}

// Index returns the slot data for k, panicking on a dangling key the way
// SlotMap indexing does — callers must not hold a Key past a sweep that
// dropped it.
func (a *Arena) Index(k Key) *StoredValData {
	s := a.checked(k)
	return &s.data
}

func (a *Arena) checked(k Key) *slot {
	if int(k.index) >= len(a.slots) {
		panic("value: dangling key")
	}
	s := &a.slots[k.index]
	if !s.occupied || s.gen != k.gen {
		panic("value: dangling key")
	}
	return s
}

// Get is a convenience reader equivalent to Index(k).Val.
func (a *Arena) Get(k Key) Value { return a.Index(k).Val }

// DeepClone duplicates the structure reachable from k, preserving def_area
// unless newArea is supplied, mirroring value_storage.rs's deep_clone:
// arrays/dicts/macro defaults/patterns/captures all recurse, but a clone
// never aliases the source's arena slots.
func (a *Arena) DeepClone(k Key, newArea *diag.CodeArea) Key {
	return a.deepCloneSeen(k, newArea, map[uint32]Key{})
}

func (a *Arena) deepCloneSeen(k Key, newArea *diag.CodeArea, seen map[uint32]Key) Key {
	if nk, ok := seen[k.index]; ok {
		return nk
	}
	src := a.checked(k)
	area := src.data.DefArea
	if newArea != nil {
		area = *newArea
	}
	clone := StoredValData{FnContext: src.data.FnContext, Mutable: src.data.Mutable, DefArea: area}
	placeholder := a.Insert(clone)
	seen[k.index] = placeholder

	switch v := src.data.Val.(type) {
	case Array:
		out := make(Array, len(v))
		for i, ek := range v {
			out[i] = a.deepCloneSeen(ek, newArea, seen)
		}
		clone.Val = out
	case Dict:
		out := make(Dict, len(v))
		for name, ek := range v {
			out[name] = a.deepCloneSeen(ek, newArea, seen)
		}
		clone.Val = out
	case MacroValue:
		clone.Val = MacroValue{Macro: a.cloneMacro(v.Macro, newArea, seen)}
	default:
		clone.Val = src.data.Val
	}
	*a.Index(placeholder) = clone
	return placeholder
}

func (a *Arena) cloneMacro(m *Macro, newArea *diag.CodeArea, seen map[uint32]Key) *Macro {
	out := &Macro{Body: m.Body, DefFile: m.DefFile, ArgPos: m.ArgPos}
	out.Args = make([]ArgDef, len(m.Args))
	for i, arg := range m.Args {
		out.Args[i] = arg
		if arg.Default != nil {
			nk := a.deepCloneSeen(*arg.Default, newArea, seen)
			out.Args[i].Default = &nk
		}
		if arg.Pattern != nil {
			nk := a.deepCloneSeen(*arg.Pattern, newArea, seen)
			out.Args[i].Pattern = &nk
		}
	}
	if m.RetPattern != nil {
		nk := a.deepCloneSeen(*m.RetPattern, newArea, seen)
		out.RetPattern = &nk
	}
	out.DefVars = make(map[string]Key, len(m.DefVars))
	for name, vk := range m.DefVars {
		out.DefVars[name] = a.deepCloneSeen(vk, newArea, seen)
	}
	return out
}

// SetMutability recursively propagates a mutability change through
// array/dict children, skipping macros (spec.md §3: "A Value::Macro slot is
// always immutable even if requested otherwise").
func (a *Arena) SetMutability(k Key, mutable bool) {
	a.setMutabilitySeen(k, mutable, map[uint32]bool{})
}

func (a *Arena) setMutabilitySeen(k Key, mutable bool, seen map[uint32]bool) {
	if seen[k.index] {
		return
	}
	seen[k.index] = true
	s := a.checked(k)
	if _, isMacro := s.data.Val.(MacroValue); isMacro {
		return
	}
	s.data.Mutable = mutable
	switch v := s.data.Val.(type) {
	case Array:
		for _, ek := range v {
			a.setMutabilitySeen(ek, mutable, seen)
		}
	case Dict:
		for _, ek := range v {
			a.setMutabilitySeen(ek, mutable, seen)
		}
	}
}

// Mark traverses everything reachable from k, setting the slot's mark bit.
// Idempotent: a slot already marked returns immediately, which both stops
// infinite recursion on cycles and keeps repeated marking of shared
// substructure O(1) per slot.
func (a *Arena) Mark(k Key) {
	if int(k.index) >= len(a.slots) {
		return
	}
	s := &a.slots[k.index]
	if !s.occupied || s.gen != k.gen || s.data.mark {
		return
	}
	s.data.mark = true
	switch v := s.data.Val.(type) {
	case Array:
		for _, ek := range v {
			a.Mark(ek)
		}
	case Dict:
		for _, ek := range v {
			a.Mark(ek)
		}
	case MacroValue:
		a.markMacro(v.Macro)
	case PatternValue:
		a.markPattern(v.Pattern)
	}
}

func (a *Arena) markMacro(m *Macro) {
	for _, arg := range m.Args {
		if arg.Default != nil {
			a.Mark(*arg.Default)
		}
		if arg.Pattern != nil {
			a.Mark(*arg.Pattern)
		}
	}
	if m.RetPattern != nil {
		a.Mark(*m.RetPattern)
	}
	for _, vk := range m.DefVars {
		a.Mark(vk)
	}
}

func (a *Arena) markPattern(p Pattern) {
	switch p.Tag() {
	case PatternEq, PatternNotEq, PatternMoreThan, PatternLessThan, PatternMoreOrEq, PatternLessOrEq, PatternIn:
		a.Mark(p.Key())
	case PatternEither, PatternBoth:
		a.markPattern(*p.Left())
		a.markPattern(*p.Right())
	case PatternNot:
		a.markPattern(*p.Left())
	}
}

// Sweep drops every unmarked occupied slot (except index 0, NULL_STORAGE)
// and clears the mark bit on survivors, value_storage.rs's ValStorage::sweep.
func (a *Arena) Sweep() {
	for i := 1; i < len(a.slots); i++ {
		s := &a.slots[i]
		if !s.occupied {
			continue
		}
		if !s.data.mark {
			s.occupied = false
			s.data = StoredValData{}
			s.gen++
			a.free = append(a.free, uint32(i))
			continue
		}
		s.data.mark = false
	}
	a.lastSweep = len(a.slots)
}

// ShouldSweep reports whether the arena has grown enough since the last
// sweep to warrant another collection pass (spec.md §4.1's ~5000-slot
// policy).
func (a *Arena) ShouldSweep() bool {
	return len(a.slots)-a.lastSweep > GrowthThreshold
}

// Len reports the number of slots ever allocated, including freed ones;
// used only for diagnostics/tests.
func (a *Arena) Len() int { return len(a.slots) }
