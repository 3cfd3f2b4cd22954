// Package emitter turns the evaluator's output — Globals.Objects (plain
// level objects) and the FunctionId forest (trigger groupings) — into the
// final semicolon-delimited object string spec.md §4.7 describes. Grounded
// on original_source/src/levelstring.rs's apply_fn_ids/append_objects and
// leveldata/object_data.rs's Display for ObjParam.
package emitter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gospwn/spwn/internal/config"
	"github.com/gospwn/spwn/internal/globals"
	"github.com/gospwn/spwn/internal/ids"
	"github.com/gospwn/spwn/internal/rterror"
	"github.com/gospwn/spwn/internal/value"
)

// laidOut is one object or trigger after the column-layout pass, still
// carrying Arbitrary ids.
type laidOut struct {
	obj value.Obj
	x   int
	y   int
}

// Emitter lays out and serializes one compile's output against a Globals.
type Emitter struct {
	G *globals.Globals
}

func New(g *globals.Globals) *Emitter { return &Emitter{G: g} }

// Emit runs the full §4.7 pipeline and returns the new object-string to
// splice into a level (the caller, internal/levelio, handles stripping any
// previous signature-group objects from the existing level first).
func (e *Emitter) Emit() (string, error) {
	children := buildChildren(e.G.FuncIDs)

	var laid []laidOut
	if len(e.G.FuncIDs) > 0 {
		var err error
		laid, err = e.layout(0, children, 0)
		if err != nil {
			return "", err
		}
	}

	type positioned struct {
		obj  value.Obj
		x, y int
	}
	all := make([]positioned, 0, len(e.G.Objects)+len(laid))
	for _, o := range e.G.Objects {
		all = append(all, positioned{obj: o})
	}
	for _, l := range laid {
		all = append(all, positioned{obj: l.obj, x: l.x, y: l.y})
	}

	plain := make([]value.Obj, len(all))
	for i, p := range all {
		plain[i] = p.obj
	}
	closed := collectClosedIDs(plain)
	arbitrary := map[ids.Class]map[uint16]uint16{
		ids.Group: {}, ids.Color: {}, ids.Block: {}, ids.Item: {},
	}

	resolveID := func(class ids.Class, id ids.ID) (ids.ID, error) {
		if id.IsSpecific() {
			return id, nil
		}
		m := arbitrary[class]
		if sp, ok := m[id.ArbitraryValue()]; ok {
			return ids.Specific(sp), nil
		}
		sp, err := nextFreeSpecific(closed[class], class)
		if err != nil {
			return ids.ID{}, err
		}
		closed[class][sp] = true
		m[id.ArbitraryValue()] = sp
		return ids.Specific(sp), nil
	}

	var sb strings.Builder
	for _, p := range all {
		rendered, err := renderWithPos(p.obj, p.x, p.y, resolveID)
		if err != nil {
			return "", err
		}
		sb.WriteString(rendered)
	}
	return sb.String(), nil
}

// buildChildren turns the parent-pointer FunctionId forest into a
// children-index list, since §4.7's "walk the forest depth-first" needs
// top-down traversal but FunctionId only stores parent pointers
// (globals.rs's next_fn_id appends a child with Parent set, never a
// reverse edge).
func buildChildren(funcIDs []globals.FunctionId) [][]int {
	children := make([][]int, len(funcIDs))
	for i, f := range funcIDs {
		if f.Parent != nil && i != 0 {
			children[*f.Parent] = append(children[*f.Parent], i)
		}
	}
	return children
}

// columnCursor tracks the next free (x, y-slot) position within one
// function-id's trigger column, inherited by its children per §4.7 step 1.
type columnCursor struct {
	x      int
	filled int
}

const columnHeight = config.MaxHeight - config.StartHeight

// layout depth-first walks the FunctionId subtree rooted at idx, laying out
// its own obj_list (sorted by TriggerOrder) before descending into
// children, each of which inherits the parent's resulting x-offset.
func (e *Emitter) layout(idx int, children [][]int, xOffset int) ([]laidOut, error) {
	node := e.G.FuncIDs[idx]
	entries := append([]globals.ObjEntry(nil), node.ObjList...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Order < entries[j].Order })

	cur := columnCursor{x: xOffset}
	var out []laidOut
	for _, entry := range entries {
		if entry.Obj.Mode != value.ModeTrigger {
			out = append(out, laidOut{obj: entry.Obj, x: 0, y: 0})
			continue
		}
		if cur.filled == columnHeight {
			cur.x++
			cur.filled = 0
		}
		out = append(out, laidOut{obj: entry.Obj, x: cur.x, y: cur.filled})
		cur.filled++
	}

	nextOffset := cur.x
	if cur.filled > 0 {
		nextOffset++
	}
	for _, childIdx := range children[idx] {
		childOut, err := e.layout(childIdx, children, nextOffset)
		if err != nil {
			return nil, err
		}
		out = append(out, childOut...)
		if len(childOut) > 0 {
			// Siblings after this child continue from wherever it ended;
			// find the widest x any descendant reached.
			max := nextOffset
			for _, c := range childOut {
				if c.obj.Mode == value.ModeTrigger && c.x > max {
					max = c.x
				}
			}
			nextOffset = max
		}
	}
	return out, nil
}

// collectClosedIDs scans every already-Specific id referenced by class, the
// §4.2/§4.7-step-3 "bucket every Specific id referenced into per-class
// closed sets" pass.
func collectClosedIDs(objs []value.Obj) map[ids.Class]map[uint16]bool {
	closed := map[ids.Class]map[uint16]bool{
		ids.Group: {}, ids.Color: {}, ids.Block: {}, ids.Item: {},
	}
	note := func(class ids.Class, id ids.ID) {
		if id.IsSpecific() {
			closed[class][id.SpecificValue()] = true
		}
	}
	for _, obj := range objs {
		for _, p := range obj.Params {
			switch v := p.Param.(type) {
			case value.ParamGroup:
				note(ids.Group, v.ID)
			case value.ParamColor:
				note(ids.Color, v.ID)
			case value.ParamBlock:
				note(ids.Block, v.ID)
			case value.ParamItem:
				note(ids.Item, v.ID)
			case value.ParamGroupList:
				for _, id := range v {
					note(ids.Group, id)
				}
			}
		}
	}
	return closed
}

// nextFreeSpecific finds the smallest specific id in [1, MaxSpecificID] not
// already in closed, spec.md §4.7 step 3's ascending assignment.
func nextFreeSpecific(closed map[uint16]bool, class ids.Class) (uint16, error) {
	for n := uint16(1); n <= config.MaxSpecificID; n++ {
		if !closed[n] {
			return n, nil
		}
	}
	return 0, &rterror.BoundedResourceError{Resource: class.String() + " ids", Limit: config.MaxSpecificID, Count: config.MaxSpecificID + 1}
}

// renderWithPos resolves every id in obj through resolveID, stamps the
// signature group and (for triggers) the spawn-triggered/linked-group flags
// and x/y cell position, then serializes the record.
func renderWithPos(obj value.Obj, x, y int, resolveID func(ids.Class, ids.ID) (ids.ID, error)) (string, error) {
	kv := map[uint16]string{}
	var groups []ids.ID
	haveGroups := false
	for _, p := range obj.Params {
		switch v := p.Param.(type) {
		case value.ParamGroup:
			id, err := resolveID(ids.Group, v.ID)
			if err != nil {
				return "", err
			}
			kv[p.Key] = strconv.Itoa(int(id.SpecificValue()))
		case value.ParamColor:
			id, err := resolveID(ids.Color, v.ID)
			if err != nil {
				return "", err
			}
			kv[p.Key] = strconv.Itoa(int(id.SpecificValue()))
		case value.ParamBlock:
			id, err := resolveID(ids.Block, v.ID)
			if err != nil {
				return "", err
			}
			kv[p.Key] = strconv.Itoa(int(id.SpecificValue()))
		case value.ParamItem:
			id, err := resolveID(ids.Item, v.ID)
			if err != nil {
				return "", err
			}
			kv[p.Key] = strconv.Itoa(int(id.SpecificValue()))
		case value.ParamNumber:
			kv[p.Key] = formatNumber(float64(v))
		case value.ParamBool:
			if v {
				kv[p.Key] = "1"
			} else {
				kv[p.Key] = "0"
			}
		case value.ParamText:
			kv[p.Key] = string(v)
		case value.ParamEpsilon:
			kv[p.Key] = "0.05"
		case value.ParamGroupList:
			haveGroups = true
			ids2 := make([]ids.ID, len(v))
			for i, id := range v {
				resolved, err := resolveID(ids.Group, id)
				if err != nil {
					return "", err
				}
				ids2[i] = resolved
			}
			groups = ids2
		}
	}

	// Spawned-flag heuristic must look at the object's own groups as they
	// existed before the signature stamp below — otherwise every object
	// would read as spawn-triggered once it's unconditionally in group
	// 1001 (original_source's apply_fn_ids checks the object's actual
	// group membership, not the compiler's own bookkeeping group).
	if obj.Mode == value.ModeTrigger {
		spawned := kv[62] == "1"
		if !spawned {
			for _, g := range groups {
				if !(g.IsSpecific() && g.SpecificValue() == 0) {
					spawned = true
					break
				}
			}
		}
		if spawned {
			kv[62] = "1"
			kv[87] = "1"
		}
		kv[2] = strconv.Itoa(x*30 + 15)
		kv[3] = strconv.Itoa((80-y)*30 + 15)
	}

	// Signature group (§4.7 step 4): stamp 1001 onto every object's group
	// list, creating key 57 if it wasn't already present.
	groups = append(groups, ids.Specific(config.SignatureGroupID))
	haveGroups = true

	if haveGroups {
		parts := make([]string, len(groups))
		for i, g := range groups {
			parts[i] = strconv.Itoa(int(g.SpecificValue()))
		}
		kv[57] = strings.Join(parts, ".")
	}

	keysOrder := make([]int, 0, len(kv))
	for k := range kv {
		keysOrder = append(keysOrder, int(k))
	}
	sort.Ints(keysOrder)

	var sb strings.Builder
	for _, k := range keysOrder {
		sb.WriteString(strconv.Itoa(k))
		sb.WriteByte(',')
		sb.WriteString(kv[uint16(k)])
		sb.WriteByte(',')
	}
	if obj.Mode == value.ModeTrigger {
		sb.WriteString("108,1,")
	}
	out := sb.String()
	if len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out + ";", nil
}

// formatNumber matches leveldata/object_data.rs's Display for ObjParam:
// integers print bare, everything else rounds to 3 decimals.
func formatNumber(f float64) string {
	if diff := f - float64(int64(f)); diff > -config.NumberPrintEpsilon && diff < config.NumberPrintEpsilon {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprintf("%.3f", f)
}

// RemoveSignatureGroupObjects strips every object whose group list (key 57)
// contains the signature group from objString, splitting on ';' then ','
// pairs exactly as original_source/src/levelstring.rs's
// remove_spwn_objects. Used by internal/levelio before splicing in fresh
// output so a recompile replaces, rather than duplicates, its own objects.
func RemoveSignatureGroupObjects(objString string) string {
	records := strings.Split(objString, ";")
	var kept []string
	sig := strconv.Itoa(config.SignatureGroupID)
	for _, rec := range records {
		if rec == "" {
			continue
		}
		fields := strings.Split(rec, ",")
		isSignature := false
		for i := 0; i+1 < len(fields); i += 2 {
			if fields[i] == "57" {
				for _, g := range strings.Split(fields[i+1], ".") {
					if g == sig {
						isSignature = true
						break
					}
				}
			}
		}
		if !isSignature {
			kept = append(kept, rec)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, ";") + ";"
}
