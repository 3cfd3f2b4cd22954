// Package globals holds everything a compile shares across its whole
// context tree: the value arena, id pools, the function-id forest, the
// type registry, operator overrides ("implementations"), the built-in
// permission table and the per-import cache. Grounded on
// original_source/compiler/src/globals.rs's Globals struct and spec.md §3
// (Globals) / §4.7 (FunctionId).
package globals

import (
	"github.com/google/uuid"

	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/ids"
	"github.com/gospwn/spwn/internal/value"
)

// FunctionId is one node of the trigger-group forest the emitter lays out
// in a depth-first pass: spec.md §3's `{ parent, width, obj_list }`.
type FunctionId struct {
	Parent   *int
	Width    *uint32
	ObjList  []ObjEntry
}

// ObjEntry pairs an emitted object/trigger with the float order key that
// preserves source order within a FunctionId (TriggerOrder in
// compiler_types.rs).
type ObjEntry struct {
	Obj   value.Obj
	Order float64
}

// TypeEntry records where a `type @name` statement defined a semantic
// type, for error messages naming the definition site.
type TypeEntry struct {
	ID     uint16
	DefArea diag.CodeArea
}

// Impl is one member's (value, fromCurrentModule) pair inside an
// `impl @type { ... }` block (compiler_types.rs's Implementations value
// type, sans the FnvHashMap wrapper since Go maps are built in).
type Impl struct {
	Value            value.Key
	FromCurrentModule bool
}

// ImportKey identifies a previously-compiled module so repeated imports of
// the same file/library reuse the cached result instead of recompiling,
// compiler_types.rs's ImportType.
type ImportKey struct {
	Path    string
	IsLib   bool
}

// ImportCache is one cached import's resolved value plus the operator
// overrides it installed.
type ImportCache struct {
	Value value.Key
	Impls map[uint16]map[string]Impl
}

// Permissions maps a built-in's name to whether it's currently allowed to
// run, toggled by the CLI's --allow/--deny flags (builtins.rs's
// BuiltinPermissions, spec.md §6).
type Permissions map[string]bool

// Globals is the single mutable state threaded through an entire compile.
type Globals struct {
	Arena *value.Arena
	Ids   ids.Pools

	Path string

	TypeIDs          map[string]TypeEntry
	TypeDescriptions map[uint16]string
	nextTypeID       uint16

	FuncIDs        []FunctionId
	Objects        []value.Obj
	InitialObjects *value.Key

	PrevImports map[ImportKey]ImportCache

	TriggerOrder float64
	UIDCounter   int

	Implementations map[uint16]map[string]Impl

	Includes []string

	Permissions Permissions

	NullStorage    value.Key
	BuiltinStorage value.Key

	preservedStack [][]value.Key
}

// New builds a Globals with the null/builtins roots already inserted into
// arena (globals.rs constructs NULL_STORAGE/BUILTIN_STORAGE the same way,
// ahead of compiling anything).
func New(arena *value.Arena, path string) *Globals {
	g := &Globals{
		Arena:            arena,
		TypeIDs:          make(map[string]TypeEntry),
		TypeDescriptions: make(map[uint16]string),
		nextTypeID:       uint16(value.FirstUserKind),
		PrevImports:      make(map[ImportKey]ImportCache),
		Implementations:  make(map[uint16]map[string]Impl),
		Permissions:      make(Permissions),
		Path:             path,
	}
	g.NullStorage = arena.Insert(value.StoredValData{Val: value.Null{}, Mutable: false})
	g.BuiltinStorage = arena.Insert(value.StoredValData{Val: value.Builtins{}, Mutable: false})
	registerBuiltinTypes(g)
	return g
}

func registerBuiltinTypes(g *Globals) {
	names := []string{
		"group", "color", "block", "item", "number", "bool", "trigger_function",
		"dictionary", "macro", "string", "array", "object", "spwn", "builtin",
		"type_indicator", "null", "trigger", "range", "pattern", "object_key", "epsilon",
	}
	for i, name := range names {
		g.TypeIDs[name] = TypeEntry{ID: uint16(i)}
		g.TypeDescriptions[uint16(i)] = name
	}
}

// NewTypeID registers a user `type @name` statement, assigning the next id
// above the reserved built-in range.
func (g *Globals) NewTypeID(name string, def diag.CodeArea) uint16 {
	id := g.nextTypeID
	g.nextTypeID++
	g.TypeIDs[name] = TypeEntry{ID: id, DefArea: def}
	g.TypeDescriptions[id] = name
	return id
}

// NextFreeGroup implements ictx.MergeHost: allocate the next arbitrary
// group id for a context-merge spawn trigger.
func (g *Globals) NextFreeGroup() ids.ID { return g.Ids.NextFree(ids.Group) }

// NextFuncID implements ictx.MergeHost: push a new FunctionId child of
// parent and return its index, context.rs's Context::next_fn_id.
func (g *Globals) NextFuncID(parent int) int {
	g.FuncIDs = append(g.FuncIDs, FunctionId{Parent: &parent})
	return len(g.FuncIDs) - 1
}

// EmitSpawnTrigger implements ictx.MergeHost: files a spawn trigger
// (object key 51=target group, 1=obj id 1268) into funcID's object list,
// context.rs's merge_contexts add_spawn_trigger closure.
func (g *Globals) EmitSpawnTrigger(funcID int, target ids.ID) {
	g.TriggerOrder++
	obj := value.Obj{
		Mode: value.ModeTrigger,
		UID:  uuid.NewString(),
		Params: []value.ObjParamEntry{
			{Key: 1, Param: value.ParamNumber(1268)},
			{Key: 51, Param: value.ParamGroup{ID: target}},
		},
	}
	g.FuncIDs[funcID].ObjList = append(g.FuncIDs[funcID].ObjList, ObjEntry{Obj: obj, Order: g.TriggerOrder})
}

// StrictEqual implements ictx.MergeHost.
func (g *Globals) StrictEqual(a, b value.Key) bool { return g.Arena.StrictEqual(a, b) }

// PushPreserved opens a new GC-root scope: every key appended to it via
// Preserve stays marked until the matching PopPreserved, protecting values
// that are only reachable through a Go call stack (not yet bound to any
// variable) during a compound evaluation. Mirrors globals.rs's
// preserved_stack.
func (g *Globals) PushPreserved() { g.preservedStack = append(g.preservedStack, nil) }

// Preserve pins k as a GC root until the current PushPreserved scope closes.
func (g *Globals) Preserve(k value.Key) {
	top := len(g.preservedStack) - 1
	g.preservedStack[top] = append(g.preservedStack[top], k)
}

// PopPreserved closes the innermost preserved scope.
func (g *Globals) PopPreserved() {
	g.preservedStack = g.preservedStack[:len(g.preservedStack)-1]
}

// PreservedKeys returns every key currently pinned across all open scopes,
// for the GC root scan.
func (g *Globals) PreservedKeys() []value.Key {
	var out []value.Key
	for _, scope := range g.preservedStack {
		out = append(out, scope...)
	}
	return out
}
