package ids

import "testing"

func TestSpecificRoundTrip(t *testing.T) {
	id := Specific(42)
	if !id.IsSpecific() {
		t.Fatal("expected specific")
	}
	if id.SpecificValue() != 42 {
		t.Fatalf("got %d", id.SpecificValue())
	}
}

func TestNextFreeIsMonotonic(t *testing.T) {
	var p Pools
	a := p.NextFree(Group)
	b := p.NextFree(Group)
	if a.IsSpecific() || b.IsSpecific() {
		t.Fatal("arbitrary ids must not be specific")
	}
	if a.ArbitraryValue() >= b.ArbitraryValue() {
		t.Fatalf("expected increasing arbitrary ids, got %d then %d", a.ArbitraryValue(), b.ArbitraryValue())
	}
}

func TestPoolsAreIndependent(t *testing.T) {
	var p Pools
	g := p.NextFree(Group)
	c := p.NextFree(Color)
	if g.ArbitraryValue() != 1 || c.ArbitraryValue() != 1 {
		t.Fatalf("expected each class to start its own counter at 1, got group=%d color=%d", g.ArbitraryValue(), c.ArbitraryValue())
	}
}

func TestClassString(t *testing.T) {
	cases := map[Class]string{Group: "group", Color: "color", Block: "block ID", Item: "item ID"}
	for class, want := range cases {
		if got := class.String(); got != want {
			t.Errorf("Class(%d).String() = %q, want %q", class, got, want)
		}
	}
}
