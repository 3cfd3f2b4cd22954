package value

// Equal is SPWN's structural `==`: recurses through arrays/dicts, comparing
// contained values rather than arena identity. Two arrays/dicts of
// differing length/keys are unequal without visiting elements.
func (a *Arena) Equal(x, y Key) bool {
	return a.equalSeen(x, y, map[[2]uint32]bool{})
}

func (a *Arena) equalSeen(x, y Key, seen map[[2]uint32]bool) bool {
	pair := [2]uint32{x.index, y.index}
	if seen[pair] {
		return true
	}
	seen[pair] = true

	vx, vy := a.Get(x), a.Get(y)
	if vx.Kind() != vy.Kind() {
		return false
	}
	switch lx := vx.(type) {
	case Null:
		return true
	case Bool:
		return lx == vy.(Bool)
	case Number:
		return lx == vy.(Number)
	case Str:
		return lx == vy.(Str)
	case Range:
		return lx == vy.(Range)
	case Array:
		ly := vy.(Array)
		if len(lx) != len(ly) {
			return false
		}
		for i := range lx {
			if !a.equalSeen(lx[i], ly[i], seen) {
				return false
			}
		}
		return true
	case Dict:
		ly := vy.(Dict)
		if len(lx) != len(ly) {
			return false
		}
		for k, ek := range lx {
			oek, ok := ly[k]
			if !ok || !a.equalSeen(ek, oek, seen) {
				return false
			}
		}
		return true
	case Group:
		return lx.ID.Equal(vy.(Group).ID)
	case Color:
		return lx.ID.Equal(vy.(Color).ID)
	case Block:
		return lx.ID.Equal(vy.(Block).ID)
	case Item:
		return lx.ID.Equal(vy.(Item).ID)
	case TypeIndicator:
		return lx == vy.(TypeIndicator)
	case BuiltinFunction:
		return lx.Name == vy.(BuiltinFunction).Name
	case MacroValue:
		// Macros compare by identity: two closures are equal only if they
		// are literally the same slot (matches Rust's #[derive(PartialEq)]
		// on a struct containing a parsed AST pointer, which has no
		// structural notion of macro equality).
		return x.index == y.index
	case TriggerFunc:
		return lx.StartGroup.Equal(vy.(TriggerFunc).StartGroup)
	default:
		return x.index == y.index
	}
}

// StrictEqual compares by arena identity alone, the cycle-safe variant
// spec.md §3 calls out for use inside context-merge comparisons.
func (a *Arena) StrictEqual(x, y Key) bool { return x.index == y.index && x.gen == y.gen }
