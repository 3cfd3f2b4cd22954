package evaluator

import (
	"encoding/json"
	"fmt"
	"hash"
	"hash/fnv"
	"math/rand"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/gospwn/spwn/internal/ast"
	"github.com/gospwn/spwn/internal/diag"
	"github.com/gospwn/spwn/internal/globals"
	"github.com/gospwn/spwn/internal/ictx"
	"github.com/gospwn/spwn/internal/rterror"
	"github.com/gospwn/spwn/internal/value"
)

// callBuiltin dispatches a `$.name(...)` call. Each case implements one
// entry of spec.md §4.5's built-in library; argument evaluation happens
// here (rather than in a separate table-driven framework, as builtins.rs's
// `builtin_function!` macro does) because a handful of builtins
// (add/edit_obj/extend_trigger_func) need direct access to the current
// leaf's Context, something a framework-level dispatcher would have to
// thread through anyway. Permission checking (the "unsafe, default-allow"
// rule) happens here first: a name that Globals.Permissions maps to false
// (filled from pkg/api's Options.Allow/Deny) is rejected before any of its
// arguments are evaluated.
func (e *Evaluator) callBuiltin(leaf *ictx.FullContext, name string, args []ast.Argument, area diag.CodeArea, info diag.Info) (value.Key, error) {
	if allowed, ok := e.G.Permissions[name]; ok && !allowed {
		return value.Key{}, &rterror.BuiltinError{Builtin: name, Message: "this builtin has been denied by --deny", Info: info.WithArea(area)}
	}

	eval := func(i int) (value.Key, error) {
		if i >= len(args) {
			return value.Key{}, &rterror.BuiltinError{Builtin: name, Message: "missing argument", Info: info.WithArea(area)}
		}
		expr := args[i].Value
		if err := e.EvalExpression(leaf, &expr, info); err != nil {
			return value.Key{}, err
		}
		return firstLeaf(leaf).Inner().ReturnValue, nil
	}

	switch name {
	case "add":
		return e.builtinAdd(leaf, eval, area, info)
	case "edit_obj":
		return e.builtinEditObj(leaf, eval, area, info)
	case "extend_trigger_func":
		return e.builtinExtendTriggerFunc(leaf, eval, area, info)
	case "hash":
		k, err := eval(0)
		if err != nil {
			return value.Key{}, err
		}
		return e.num(float64(e.structuralHash(k))/1000.0, area), nil
	case "random":
		return e.builtinRandom(args, eval, area, info)
	case "time":
		return e.num(float64(time.Now().UnixNano())/1e9, area), nil
	case "readfile":
		return e.builtinReadfile(eval, len(args), area, info)
	case "regex":
		return e.builtinRegex(eval, len(args), area, info)
	default:
		return value.Key{}, &rterror.BuiltinError{Builtin: name, Message: "unknown builtin", Info: info.WithArea(area)}
	}
}

func (e *Evaluator) builtinAdd(leaf *ictx.FullContext, eval func(int) (value.Key, error), area diag.CodeArea, info diag.Info) (value.Key, error) {
	objKey, err := eval(0)
	if err != nil {
		return value.Key{}, err
	}
	obj, ok := e.G.Arena.Get(objKey).(value.Obj)
	if !ok {
		return value.Key{}, &rterror.TypeError{Expected: "object or trigger", Found: kindName(e.G.Arena.Get(objKey)), ValDef: area, Info: info.WithArea(area)}
	}
	if obj.UID == "" {
		obj.UID = uuid.NewString()
	}
	ctx := leaf.Inner()
	if obj.Mode == value.ModeObject {
		if ctx.StartGroup.IsSpecific() && ctx.StartGroup.SpecificValue() != 0 {
			return value.Key{}, &rterror.BuiltinError{Builtin: "add", Message: "adding a level object requires the root trigger context", Info: info.WithArea(area)}
		}
		e.G.Objects = append(e.G.Objects, obj)
		return e.G.NullStorage, nil
	}
	e.G.TriggerOrder++
	e.G.FuncIDs[ctx.FuncID].ObjList = append(e.G.FuncIDs[ctx.FuncID].ObjList, globals.ObjEntry{Obj: obj, Order: e.G.TriggerOrder})
	return e.G.NullStorage, nil
}

func (e *Evaluator) builtinEditObj(leaf *ictx.FullContext, eval func(int) (value.Key, error), area diag.CodeArea, info diag.Info) (value.Key, error) {
	objKey, err := eval(0)
	if err != nil {
		return value.Key{}, err
	}
	keyKey, err := eval(1)
	if err != nil {
		return value.Key{}, err
	}
	valKey, err := eval(2)
	if err != nil {
		return value.Key{}, err
	}

	slot := e.G.Arena.Index(objKey)
	obj, ok := slot.Val.(value.Obj)
	if !ok {
		return value.Key{}, &rterror.TypeError{Expected: "object or trigger", Found: kindName(slot.Val), ValDef: area, Info: info.WithArea(area)}
	}
	keyNum, ok := e.G.Arena.Get(keyKey).(value.Number)
	if !ok {
		return value.Key{}, &rterror.TypeError{Expected: "number", Found: kindName(e.G.Arena.Get(keyKey)), ValDef: area, Info: info.WithArea(area)}
	}
	keyID, valid := asInt(float64(keyNum))
	if !valid || keyID < 0 {
		return value.Key{}, rterror.New(info.WithArea(area), "object keys must be non-negative integers")
	}
	if obj.Mode == value.ModeTrigger && (keyID == 57 || keyID == 62) {
		return value.Key{}, &rterror.BuiltinError{Builtin: "edit_obj", Message: "cannot edit a trigger's group (57) or spawn-triggered flag (62) directly", Info: info.WithArea(area)}
	}
	param, err := e.toObjParam(e.G.Arena.Get(valKey), area, info)
	if err != nil {
		return value.Key{}, err
	}
	replaced := false
	for i := range obj.Params {
		if obj.Params[i].Key == uint16(keyID) {
			obj.Params[i].Param = param
			replaced = true
			break
		}
	}
	if !replaced {
		obj.Params = append(obj.Params, value.ObjParamEntry{Key: uint16(keyID), Param: param})
	}
	if obj.UID == "" {
		obj.UID = uuid.NewString()
	}
	slot.Val = obj
	return e.G.NullStorage, nil
}

// builtinExtendTriggerFunc runs macro with the leaf's effective start group
// and func-id temporarily switched to target's, so add() calls made inside
// the macro file into that trigger function. This narrows the reference
// compiler's context-splitting implementation (which forks into a genuine
// child FullContext rooted at the new function id) to a single-leaf
// save/restore, consistent with this package's documented per-leaf scope.
func (e *Evaluator) builtinExtendTriggerFunc(leaf *ictx.FullContext, eval func(int) (value.Key, error), area diag.CodeArea, info diag.Info) (value.Key, error) {
	groupKey, err := eval(0)
	if err != nil {
		return value.Key{}, err
	}
	macroKey, err := eval(1)
	if err != nil {
		return value.Key{}, err
	}
	group, ok := e.G.Arena.Get(groupKey).(value.Group)
	if !ok {
		return value.Key{}, &rterror.TypeError{Expected: "group", Found: kindName(e.G.Arena.Get(groupKey)), ValDef: area, Info: info.WithArea(area)}
	}

	ctx := leaf.Inner()
	savedGroup, savedFunc := ctx.StartGroup, ctx.FuncID
	ctx.StartGroup = group.ID
	ctx.FuncID = e.G.NextFuncID(savedFunc)
	ctx.FnContextChangeStack = append(ctx.FnContextChangeStack, area)

	result, callErr := e.callMacro(leaf, macroKey, nil, nil, area, info)

	ctx.FnContextChangeStack = ctx.FnContextChangeStack[:len(ctx.FnContextChangeStack)-1]
	ctx.StartGroup, ctx.FuncID = savedGroup, savedFunc
	if callErr != nil {
		return value.Key{}, callErr
	}
	return result, nil
}

func (e *Evaluator) builtinRandom(args []ast.Argument, eval func(int) (value.Key, error), area diag.CodeArea, info diag.Info) (value.Key, error) {
	if len(args) == 0 {
		return e.num(rand.Float64(), area), nil
	}
	arrKey, err := eval(0)
	if err != nil {
		return value.Key{}, err
	}
	arr, ok := e.G.Arena.Get(arrKey).(value.Array)
	if !ok {
		return value.Key{}, &rterror.TypeError{Expected: "array", Found: kindName(e.G.Arena.Get(arrKey)), ValDef: area, Info: info.WithArea(area)}
	}
	if len(arr) == 0 {
		return value.Key{}, rterror.New(info.WithArea(area), "random: array is empty")
	}
	if len(args) == 1 {
		return arr[rand.Intn(len(arr))], nil
	}
	nKey, err := eval(1)
	if err != nil {
		return value.Key{}, err
	}
	nNum, ok := e.G.Arena.Get(nKey).(value.Number)
	if !ok {
		return value.Key{}, &rterror.TypeError{Expected: "number", Found: kindName(e.G.Arena.Get(nKey)), ValDef: area, Info: info.WithArea(area)}
	}
	n, valid := asInt(float64(nNum))
	if !valid || n < 0 {
		return value.Key{}, rterror.New(info.WithArea(area), "random: sample count must be a non-negative integer")
	}
	out := make(value.Array, n)
	for i := range out {
		out[i] = arr[rand.Intn(len(arr))]
	}
	return e.G.Arena.Insert(value.StoredValData{Val: out, Mutable: true, DefArea: area}), nil
}

func (e *Evaluator) builtinReadfile(eval func(int) (value.Key, error), argc int, area diag.CodeArea, info diag.Info) (value.Key, error) {
	pathKey, err := eval(0)
	if err != nil {
		return value.Key{}, err
	}
	path, ok := e.G.Arena.Get(pathKey).(value.Str)
	if !ok {
		return value.Key{}, &rterror.TypeError{Expected: "string", Found: kindName(e.G.Arena.Get(pathKey)), ValDef: area, Info: info.WithArea(area)}
	}
	format := "text"
	if argc > 1 {
		fmtKey, err := eval(1)
		if err != nil {
			return value.Key{}, err
		}
		fs, ok := e.G.Arena.Get(fmtKey).(value.Str)
		if !ok {
			return value.Key{}, &rterror.TypeError{Expected: "string", Found: kindName(e.G.Arena.Get(fmtKey)), ValDef: area, Info: info.WithArea(area)}
		}
		format = string(fs)
	}

	data, ioErr := os.ReadFile(string(path))
	if ioErr != nil {
		return value.Key{}, &rterror.BuiltinError{Builtin: "readfile", Message: ioErr.Error(), Info: info.WithArea(area)}
	}

	switch format {
	case "text":
		return e.str(string(data), area), nil
	case "bin":
		out := make(value.Array, len(data))
		for i, b := range data {
			out[i] = e.num(float64(b), area)
		}
		return e.G.Arena.Insert(value.StoredValData{Val: out, Mutable: true, DefArea: area}), nil
	case "json":
		var v interface{}
		if err := json.Unmarshal(data, &v); err != nil {
			return value.Key{}, &rterror.BuiltinError{Builtin: "readfile", Message: "invalid json: " + err.Error(), Info: info.WithArea(area)}
		}
		return e.fromGoValue(v, area), nil
	case "yaml":
		var v interface{}
		if err := yaml.Unmarshal(data, &v); err != nil {
			return value.Key{}, &rterror.BuiltinError{Builtin: "readfile", Message: "invalid yaml: " + err.Error(), Info: info.WithArea(area)}
		}
		return e.fromGoValue(normalizeYAML(v), area), nil
	case "toml":
		var v interface{}
		if err := toml.Unmarshal(data, &v); err != nil {
			return value.Key{}, &rterror.BuiltinError{Builtin: "readfile", Message: "invalid toml: " + err.Error(), Info: info.WithArea(area)}
		}
		return e.fromGoValue(v, area), nil
	default:
		return value.Key{}, &rterror.BuiltinError{Builtin: "readfile", Message: "unknown format: " + format, Info: info.WithArea(area)}
	}
}

// normalizeYAML recursively rewrites map[string]interface{} in place of
// yaml.v3's default map[interface{}]interface{}/map[string]interface{} mix
// so fromGoValue's single map case covers both json and yaml results.
func normalizeYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return t
	}
}

// fromGoValue converts a decoded json/yaml/toml tree into SPWN Values,
// spec.md §4.5's "Parsing produces Value: null<->Null, bool<->Bool, ...".
func (e *Evaluator) fromGoValue(v interface{}, area diag.CodeArea) value.Key {
	switch t := v.(type) {
	case nil:
		return e.G.NullStorage
	case bool:
		return e.boolKey(t, area)
	case string:
		return e.str(t, area)
	case float64:
		return e.num(t, area)
	case int64:
		return e.num(float64(t), area)
	case int:
		return e.num(float64(t), area)
	case []interface{}:
		out := make(value.Array, len(t))
		for i, el := range t {
			out[i] = e.fromGoValue(el, area)
		}
		return e.G.Arena.Insert(value.StoredValData{Val: out, Mutable: true, DefArea: area})
	case map[string]interface{}:
		out := make(value.Dict, len(t))
		for k, el := range t {
			out[k] = e.fromGoValue(el, area)
		}
		return e.G.Arena.Insert(value.StoredValData{Val: out, Mutable: true, DefArea: area})
	default:
		return e.str("", area)
	}
}

func (e *Evaluator) builtinRegex(eval func(int) (value.Key, error), argc int, area diag.CodeArea, info diag.Info) (value.Key, error) {
	patKey, err := eval(0)
	if err != nil {
		return value.Key{}, err
	}
	strKey, err := eval(1)
	if err != nil {
		return value.Key{}, err
	}
	modeKey, err := eval(2)
	if err != nil {
		return value.Key{}, err
	}
	pat, ok := e.G.Arena.Get(patKey).(value.Str)
	if !ok {
		return value.Key{}, &rterror.TypeError{Expected: "string", Found: kindName(e.G.Arena.Get(patKey)), ValDef: area, Info: info.WithArea(area)}
	}
	subject, ok := e.G.Arena.Get(strKey).(value.Str)
	if !ok {
		return value.Key{}, &rterror.TypeError{Expected: "string", Found: kindName(e.G.Arena.Get(strKey)), ValDef: area, Info: info.WithArea(area)}
	}
	mode, ok := e.G.Arena.Get(modeKey).(value.Str)
	if !ok {
		return value.Key{}, &rterror.TypeError{Expected: "string", Found: kindName(e.G.Arena.Get(modeKey)), ValDef: area, Info: info.WithArea(area)}
	}

	re, reErr := regexp.Compile(string(pat))
	if reErr != nil {
		return value.Key{}, &rterror.BuiltinError{Builtin: "regex", Message: "invalid pattern: " + reErr.Error(), Info: info.WithArea(area)}
	}

	switch string(mode) {
	case "match":
		return e.boolKey(re.MatchString(string(subject)), area), nil
	case "replace":
		if argc < 4 {
			return value.Key{}, &rterror.BuiltinError{Builtin: "regex", Message: "replace mode requires a replacer argument", Info: info.WithArea(area)}
		}
		replKey, err := eval(3)
		if err != nil {
			return value.Key{}, err
		}
		repl, ok := e.G.Arena.Get(replKey).(value.Str)
		if !ok {
			return value.Key{}, &rterror.TypeError{Expected: "string", Found: kindName(e.G.Arena.Get(replKey)), ValDef: area, Info: info.WithArea(area)}
		}
		return e.str(re.ReplaceAllString(string(subject), string(repl)), area), nil
	case "find_all":
		matches := re.FindAllStringIndex(string(subject), -1)
		out := make(value.Array, len(matches))
		for i, m := range matches {
			pair := value.Array{e.num(float64(m[0]), area), e.num(float64(m[1]), area)}
			out[i] = e.G.Arena.Insert(value.StoredValData{Val: pair, Mutable: true, DefArea: area})
		}
		return e.G.Arena.Insert(value.StoredValData{Val: out, Mutable: true, DefArea: area}), nil
	case "find_groups":
		names := re.SubexpNames()
		all := re.FindAllStringSubmatchIndex(string(subject), -1)
		out := make(value.Array, 0, len(all))
		for _, m := range all {
			for gi := 0; gi < len(m)/2; gi++ {
				s, en := m[2*gi], m[2*gi+1]
				if s < 0 {
					continue
				}
				rangeArr := value.Array{e.num(float64(s), area), e.num(float64(en), area)}
				rangeKey := e.G.Arena.Insert(value.StoredValData{Val: rangeArr, Mutable: true, DefArea: area})
				var nameKey value.Key
				if gi < len(names) && names[gi] != "" {
					nameKey = e.str(names[gi], area)
				} else {
					nameKey = e.G.NullStorage
				}
				entry := value.Dict{
					"range": rangeKey,
					"text":  e.str(string(subject)[s:en], area),
					"name":  nameKey,
				}
				out = append(out, e.G.Arena.Insert(value.StoredValData{Val: entry, Mutable: true, DefArea: area}))
			}
		}
		return e.G.Arena.Insert(value.StoredValData{Val: out, Mutable: true, DefArea: area}), nil
	default:
		return value.Key{}, &rterror.BuiltinError{Builtin: "regex", Message: "unknown mode: " + string(mode), Info: info.WithArea(area)}
	}
}

// structuralHash hashes k's reachable structure deterministically, spec.md
// §4.5's "deterministic hash over the value's structural content".
func (e *Evaluator) structuralHash(k value.Key) uint64 {
	h := fnv.New64a()
	e.hashInto(k, h, map[value.Key]bool{})
	return h.Sum64()
}

func (e *Evaluator) hashInto(k value.Key, h hash.Hash64, seen map[value.Key]bool) {
	if seen[k] {
		h.Write([]byte{9})
		return
	}
	seen[k] = true
	v := e.G.Arena.Get(k)
	switch t := v.(type) {
	case value.Null:
		h.Write([]byte{0})
	case value.Bool:
		if t {
			h.Write([]byte{1, 1})
		} else {
			h.Write([]byte{1, 0})
		}
	case value.Number:
		h.Write([]byte{2})
		h.Write([]byte(formatNumber(float64(t))))
	case value.Str:
		h.Write([]byte{3})
		h.Write([]byte(t))
	case value.Array:
		h.Write([]byte{4})
		for _, ek := range t {
			e.hashInto(ek, h, seen)
		}
	case value.Dict:
		h.Write([]byte{5})
		for name, ek := range t {
			h.Write([]byte(name))
			e.hashInto(ek, h, seen)
		}
	default:
		h.Write([]byte{byte(v.Kind())})
	}
}
