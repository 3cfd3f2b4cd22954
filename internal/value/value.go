// Package value implements SPWN's tagged value union and the arena that
// stores it: spec.md §3 (Value, Macro, Pattern, StoredValData) and §4.1 (the
// value arena and mark-sweep GC), grounded on
// original_source/compiler/src/{value_storage,builtins}.rs and the value
// enum sketched in original_source/src/value.rs.
package value

import "github.com/gospwn/spwn/internal/ids"

// Kind is the semantic type id baked into every type_id! in globals.rs —
// numbers 0..20 are reserved for the built-in types so user `type` statements
// start counting above them.
type Kind uint16

const (
	KindGroup Kind = iota
	KindColor
	KindBlock
	KindItem
	KindNumber
	KindBool
	KindTriggerFunction
	KindDict
	KindMacro
	KindStr
	KindArray
	KindObject
	KindSpwn
	KindBuiltin
	KindTypeIndicator
	KindNull
	KindTrigger
	KindRange
	KindPattern
	KindObjectKey
	KindEpsilon
	FirstUserKind
)

// Value is the common interface every SPWN value implements; analogous to
// the teacher's evaluator.Object but closed over the fixed variant set
// spec.md §3 names instead of an open object system.
type Value interface {
	Kind() Kind
}

type Null struct{}

func (Null) Kind() Kind { return KindNull }

type Bool bool

func (Bool) Kind() Kind { return KindBool }

type Number float64

func (Number) Kind() Kind { return KindNumber }

type Str string

func (Str) Kind() Kind { return KindStr }

// Range is SPWN's `a..b` / `a..=b` step iterator value.
type Range struct {
	Start, End int32
	Step       uint64
}

func (Range) Kind() Kind { return KindRange }

// Array holds arena keys, not values — copying an Array copies the key list,
// not the pointed-to data (value_storage.rs's deep_clone is what actually
// duplicates the elements).
type Array []Key

func (Array) Kind() Kind { return KindArray }

// Dict is keyed by interned member names. The reserved "type" key (if its
// value resolves to a TypeIndicator) determines the semantic type of a dict
// per spec.md §3; see the evaluator's (*Evaluator).SemanticKind.
type Dict map[string]Key

func (Dict) Kind() Kind { return KindDict }

type Group struct{ ID ids.ID }

func (Group) Kind() Kind { return KindGroup }

type Color struct{ ID ids.ID }

func (Color) Kind() Kind { return KindColor }

type Block struct{ ID ids.ID }

func (Block) Kind() Kind { return KindBlock }

type Item struct{ ID ids.ID }

func (Item) Kind() Kind { return KindItem }

// ObjectMode distinguishes a plain level Object from a Trigger (GLOSSARY).
type ObjectMode int

const (
	ModeObject ObjectMode = iota
	ModeTrigger
)

// ObjParam is the typed value half of one (key, value) object parameter.
type ObjParam interface{ isObjParam() }

type ParamGroup struct{ ID ids.ID }
type ParamColor struct{ ID ids.ID }
type ParamBlock struct{ ID ids.ID }
type ParamItem struct{ ID ids.ID }
type ParamNumber float64
type ParamBool bool
type ParamText string
type ParamGroupList []ids.ID
type ParamEpsilon struct{}

func (ParamGroup) isObjParam()     {}
func (ParamColor) isObjParam()     {}
func (ParamBlock) isObjParam()     {}
func (ParamItem) isObjParam()      {}
func (ParamNumber) isObjParam()    {}
func (ParamBool) isObjParam()      {}
func (ParamText) isObjParam()      {}
func (ParamGroupList) isObjParam() {}
func (ParamEpsilon) isObjParam()   {}

// ObjParamEntry preserves insertion order of (key, value) pairs as read from
// source; the emitter re-sorts by key for output but user code may rely on
// iteration order when inspecting an object's params.
type ObjParamEntry struct {
	Key   uint16
	Param ObjParam
}

// Obj is a constructed-but-not-yet-added object/trigger literal
// (`obj { ... }` / `trigger { ... }` before `add(...)`).
//
// UID is assigned once, at add()/edit_obj() time (not at emission), so the
// same logical object keeps its identity across a cached/incremental
// compile; see internal/modcache and DESIGN.md.
type Obj struct {
	Params []ObjParamEntry
	Mode   ObjectMode
	UID    string
}

func (Obj) Kind() Kind { return KindObject }

// TriggerFunc is the value `$.extend_trigger_func`/arrow-statements produce:
// a handle to the group subsequent `add(...)` calls inside it will target.
type TriggerFunc struct {
	StartGroup ids.ID
}

func (TriggerFunc) Kind() Kind { return KindTriggerFunction }

type MacroValue struct{ *Macro }

func (MacroValue) Kind() Kind { return KindMacro }

type PatternValue struct{ Pattern }

func (PatternValue) Kind() Kind { return KindPattern }

// BuiltinFunction is a first-class reference to a `$.name` builtin before
// it's called — e.g. passed to `array.map($.sqrt)`.
type BuiltinFunction struct{ Name string }

func (BuiltinFunction) Kind() Kind { return KindBuiltin }

// TypeIndicator is the `@name` value naming a type.
type TypeIndicator uint16

func (TypeIndicator) Kind() Kind { return KindTypeIndicator }

// Builtins is the `$` value itself, the receiver of every built-in call and
// of `extract $`.
type Builtins struct{}

func (Builtins) Kind() Kind { return KindBuiltin }
