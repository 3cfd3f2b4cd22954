package emitter

import (
	"strconv"
	"strings"
	"testing"

	"github.com/gospwn/spwn/internal/config"
	"github.com/gospwn/spwn/internal/globals"
	"github.com/gospwn/spwn/internal/ids"
	"github.com/gospwn/spwn/internal/value"
)

func newTestGlobals() *globals.Globals {
	arena := value.NewArena()
	g := globals.New(arena, "test.spwn")
	g.FuncIDs = []globals.FunctionId{{}}
	return g
}

func TestEmitPlainObjectPassesThrough(t *testing.T) {
	g := newTestGlobals()
	g.Objects = append(g.Objects, value.Obj{
		Mode: value.ModeObject,
		Params: []value.ObjParamEntry{
			{Key: 1, Param: value.ParamNumber(1)},
			{Key: 2, Param: value.ParamNumber(15)},
		},
	})

	out, err := New(g).Emit()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(out, ";") {
		t.Fatalf("expected a trailing ';', got %q", out)
	}
	if strings.Contains(out, "108,1") {
		t.Fatal("object-mode items must not get the trigger linked-group suffix")
	}
	if !strings.Contains(out, "57,"+strconv.Itoa(config.SignatureGroupID)) {
		t.Fatalf("expected the signature group stamped on every object, got %q", out)
	}
}

func TestEmitTriggerGetsLinkedGroupAndPosition(t *testing.T) {
	g := newTestGlobals()
	g.FuncIDs[0].ObjList = append(g.FuncIDs[0].ObjList, globals.ObjEntry{
		Obj: value.Obj{
			Mode: value.ModeTrigger,
			Params: []value.ObjParamEntry{
				{Key: 1, Param: value.ParamNumber(1268)},
				{Key: 51, Param: value.ParamGroup{ID: ids.Specific(5)}},
				{Key: 57, Param: value.ParamGroupList{ids.Specific(7)}},
			},
		},
		Order: 1,
	})

	out, err := New(g).Emit()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "108,1") {
		t.Fatal("expected the unconditional trigger linked-group suffix")
	}
	if !strings.Contains(out, "2,15") || !strings.Contains(out, "3,2415") {
		t.Fatalf("expected the first trigger's x=0,y=0 cell coordinates, got %q", out)
	}
	if !strings.Contains(out, "62,1") {
		t.Fatal("a trigger whose own group (key 57) is non-zero should be marked spawn-triggered")
	}
}

func TestArbitraryIDsAreRenumberedWithoutCollidingExistingSpecifics(t *testing.T) {
	g := newTestGlobals()
	var pools ids.Pools
	arb := pools.NextFree(ids.Group)

	g.Objects = append(g.Objects,
		value.Obj{Mode: value.ModeObject, Params: []value.ObjParamEntry{
			{Key: 57, Param: value.ParamGroupList{ids.Specific(1)}},
		}},
		value.Obj{Mode: value.ModeObject, Params: []value.ObjParamEntry{
			{Key: 57, Param: value.ParamGroupList{ids.Specific(2)}},
		}},
		value.Obj{Mode: value.ModeObject, Params: []value.ObjParamEntry{
			{Key: 51, Param: value.ParamGroup{ID: arb}},
		}},
	)

	out, err := New(g).Emit()
	if err != nil {
		t.Fatal(err)
	}
	records := strings.Split(strings.TrimRight(out, ";"), ";")
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %q", len(records), out)
	}
	last := records[2]
	if strings.Contains(last, "51,1,") || strings.Contains(last, "51,2,") {
		t.Fatalf("arbitrary id must not collide with an already-used specific id, got %q", last)
	}
}

func TestArbitraryIDOverflowIsBoundedResourceError(t *testing.T) {
	g := newTestGlobals()
	var pools ids.Pools
	for i := 0; i < config.MaxSpecificID; i++ {
		sp := ids.Specific(uint16(i + 1))
		g.Objects = append(g.Objects, value.Obj{Mode: value.ModeObject, Params: []value.ObjParamEntry{
			{Key: 57, Param: value.ParamGroupList{sp}},
		}})
	}
	arb := pools.NextFree(ids.Group)
	g.Objects = append(g.Objects, value.Obj{Mode: value.ModeObject, Params: []value.ObjParamEntry{
		{Key: 51, Param: value.ParamGroup{ID: arb}},
	}})

	_, err := New(g).Emit()
	if err == nil {
		t.Fatal("expected a bounded-resource error once every specific id below the cap is taken")
	}
}

func TestRemoveSignatureGroupObjects(t *testing.T) {
	sig := strconv.Itoa(config.SignatureGroupID)
	input := "1,1,57,5." + sig + ";1,2,57,6;"
	out := RemoveSignatureGroupObjects(input)
	if strings.Contains(out, "57,5."+sig) {
		t.Fatalf("expected the signature-group object to be removed, got %q", out)
	}
	if !strings.Contains(out, "57,6") {
		t.Fatalf("expected the non-signature object to survive, got %q", out)
	}
}

func TestFormatNumber(t *testing.T) {
	if got := formatNumber(4.0); got != "4" {
		t.Errorf("formatNumber(4.0) = %q, want \"4\"", got)
	}
	if got := formatNumber(4.12345); got != "4.123" {
		t.Errorf("formatNumber(4.12345) = %q, want \"4.123\"", got)
	}
}
